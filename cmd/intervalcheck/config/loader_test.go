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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

// TestCreateDefault verifies default config creation in nested directories.
func TestCreateDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deep", "nested", "config.yaml")
	require.NoError(t, createDefault(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var cfg Config
	require.NoError(t, yaml.Unmarshal(data, &cfg))
	assert.Equal(t, DefaultConfig(), cfg)
	assert.Equal(t, CurrentConfigVersion, cfg.Meta.Version)
}

func TestDefaultConfigStep(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, float32(1.0/60.0), cfg.Step())
	assert.Equal(t, float32(0.05), cfg.Interval)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFrom_PartialFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
frame_rate: 50
validation:
  seed: 9
  offsets: [0, 0.013]
`)
	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, float32(0.02), cfg.Step())
	assert.Equal(t, uint64(9), cfg.Validation.Seed)
	assert.Equal(t, []float32{0, 0.013}, cfg.Validation.Offsets)
	assert.Equal(t, int64(1_000_000), cfg.Validation.MaxFrames)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "none", cfg.Telemetry.TraceExporter)
}

func TestLoadFrom_Errors(t *testing.T) {
	_, err := LoadFrom(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadFrom(writeConfig(t, "frame_rate: [1"))
	assert.Error(t, err)

	_, err = LoadFrom(writeConfig(t, "frame_rate: 0"))
	assert.ErrorIs(t, err, ErrInvalidFrameRate)

	_, err = LoadFrom(writeConfig(t, "interval: -1"))
	assert.ErrorIs(t, err, ErrInvalidInterval)

	_, err = LoadFrom(writeConfig(t, "validation:\n  parallelism: 0"))
	assert.ErrorIs(t, err, ErrInvalidValidation)

	_, err = LoadFrom(writeConfig(t, "validation:\n  skip_rate: 2"))
	assert.ErrorIs(t, err, ErrInvalidValidation)
}

func TestLoad_ExplicitPathRunsOnce(t *testing.T) {
	path := writeConfig(t, "interval: 0.25")
	require.NoError(t, Load(path))
	assert.Equal(t, float32(0.25), Global.Interval)

	// Later calls keep the first result.
	require.NoError(t, Load(writeConfig(t, "interval: 0.5")))
	assert.Equal(t, float32(0.25), Global.Interval)
}
