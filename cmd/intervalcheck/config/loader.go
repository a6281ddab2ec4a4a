// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

var (
	// Global is a singleton instance
	Global    Config
	once      sync.Once
	globalErr error
)

// Load reads the config once into Global. An empty path selects
// ~/.intervalcheck/config.yaml, which is created with defaults on first run.
func Load(path string) error {
	once.Do(func() {
		globalErr = loadInternal(path)
	})
	return globalErr
}

func loadInternal(path string) error {
	if path == "" {
		p, pathErr := DefaultPath()
		if pathErr != nil {
			return pathErr
		}
		path = p
		if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
			if createErr := createDefault(path); createErr != nil {
				return createErr
			}
		}
	}

	cfg, loadErr := LoadFrom(path)
	if loadErr != nil {
		return loadErr
	}
	Global = cfg
	return nil
}

// DefaultPath returns ~/.intervalcheck/config.yaml.
func DefaultPath() (string, error) {
	home, homeErr := os.UserHomeDir()
	if homeErr != nil {
		return "", fmt.Errorf("could not find the user's home directory: %w", homeErr)
	}
	return filepath.Join(home, ".intervalcheck", "config.yaml"), nil
}

// LoadFrom reads and validates the config at path. Keys missing from the
// file keep their default values.
func LoadFrom(path string) (Config, error) {
	data, readErr := os.ReadFile(path)
	if readErr != nil {
		return Config{}, fmt.Errorf("failed to read the config file: %w", readErr)
	}
	cfg := DefaultConfig()
	if parseErr := yaml.Unmarshal(data, &cfg); parseErr != nil {
		return Config{}, fmt.Errorf("failed to parse %s: %w", path, parseErr)
	}
	if validErr := cfg.Validate(); validErr != nil {
		return Config{}, fmt.Errorf("%s: %w", path, validErr)
	}
	return cfg, nil
}

func createDefault(path string) error {
	dir := filepath.Dir(path)
	if mkErr := os.MkdirAll(dir, 0755); mkErr != nil {
		return fmt.Errorf("failed to create the config directory: %w", mkErr)
	}
	data, marshalErr := yaml.Marshal(DefaultConfig())
	if marshalErr != nil {
		return marshalErr
	}
	return os.WriteFile(path, data, 0644)
}
