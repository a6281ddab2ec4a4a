// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads the intervalcheck CLI configuration.
package config

import (
	"errors"
	"fmt"
	"math"
)

// CurrentConfigVersion is written into new config files.
const CurrentConfigVersion = "1"

var (
	// ErrInvalidFrameRate is returned for non-positive frame rates.
	ErrInvalidFrameRate = errors.New("frame_rate must be positive")

	// ErrInvalidInterval is returned for non-positive check intervals.
	ErrInvalidInterval = errors.New("interval must be positive")

	// ErrInvalidValidation is returned for invalid validation settings.
	ErrInvalidValidation = errors.New("invalid validation settings")
)

// Config is the root of config.yaml.
type Config struct {
	Meta MetaConfig `yaml:"meta"`

	// FrameRate sets the nominal step as float32(1/frame_rate).
	FrameRate float64 `yaml:"frame_rate"`

	// Interval is the default check interval in seconds.
	Interval float32 `yaml:"interval"`

	Validation ValidationConfig `yaml:"validation"`
	Logging    LoggingConfig    `yaml:"logging"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
}

// MetaConfig versions the file layout.
type MetaConfig struct {
	Version string `yaml:"version"`
}

// ValidationConfig holds defaults of the validate commands.
type ValidationConfig struct {
	Seed        uint64    `yaml:"seed"`
	MaxFrames   int64     `yaml:"max_frames"`
	Parallelism int       `yaml:"parallelism"`
	SkipRate    float64   `yaml:"skip_rate"`
	Offsets     []float32 `yaml:"offsets"`
}

// LoggingConfig configures the CLI logger.
type LoggingConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level"`

	// Dir enables a log file in this directory when set.
	Dir string `yaml:"dir"`

	JSON bool `yaml:"json"`
}

// TelemetryConfig configures tracing and metric export.
type TelemetryConfig struct {
	// TraceExporter is none or stdout.
	TraceExporter string `yaml:"trace_exporter"`

	// MetricsFile receives Prometheus text format after validate runs.
	MetricsFile string `yaml:"metrics_file"`
}

// DefaultConfig returns the configuration written on first run.
func DefaultConfig() Config {
	return Config{
		Meta:      MetaConfig{Version: CurrentConfigVersion},
		FrameRate: 60,
		Interval:  0.05,
		Validation: ValidationConfig{
			Seed:        1,
			MaxFrames:   1_000_000,
			Parallelism: 4,
			SkipRate:    0.001,
			Offsets:     []float32{0},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Telemetry: TelemetryConfig{
			TraceExporter: "none",
		},
	}
}

// Step returns the nominal per-frame step.
func (c Config) Step() float32 {
	return float32(1 / c.FrameRate)
}

// Validate checks the values that cannot be defaulted.
func (c Config) Validate() error {
	if !(c.FrameRate > 0) || math.IsInf(c.FrameRate, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidFrameRate, c.FrameRate)
	}
	if !(c.Interval > 0) {
		return fmt.Errorf("%w: %v", ErrInvalidInterval, c.Interval)
	}
	v := c.Validation
	if v.MaxFrames < 0 {
		return fmt.Errorf("%w: max_frames %d", ErrInvalidValidation, v.MaxFrames)
	}
	if v.Parallelism < 1 {
		return fmt.Errorf("%w: parallelism %d", ErrInvalidValidation, v.Parallelism)
	}
	if v.SkipRate < 0 || v.SkipRate > 1 {
		return fmt.Errorf("%w: skip_rate %v", ErrInvalidValidation, v.SkipRate)
	}
	return nil
}
