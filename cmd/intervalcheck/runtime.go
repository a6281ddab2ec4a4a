// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/IntervalCheck/cmd/intervalcheck/config"
	"github.com/AleutianAI/IntervalCheck/pkg/logging"
	"github.com/AleutianAI/IntervalCheck/pkg/telemetry"
	"github.com/AleutianAI/IntervalCheck/pkg/ux"
)

// runtime holds what every command needs once flags are parsed.
type runtime struct {
	cfg      config.Config
	logger   *logging.Logger
	printer  *ux.Printer
	shutdown func(context.Context) error
}

var rt *runtime

// setupRuntime loads the config and builds the logger, printer and tracer
// provider. It runs before every command.
func setupRuntime(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return NewCommandError(cmd.CommandPath(), exitFailure, "loading config", err)
	}

	level := ux.DetectPersonality(os.Getenv, fdOf(cmd))
	if personalityLevel != "" {
		level = ux.ParsePersonalityLevel(personalityLevel)
	}
	if quiet {
		level = ux.PersonalityMachine
	}
	ux.SetPersonalityLevel(level)

	logLevel, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return NewCommandError(cmd.CommandPath(), exitFailure, "logging.level", err)
	}
	logger := logging.New(logging.Config{
		Level:   logLevel,
		LogDir:  cfg.Logging.Dir,
		Service: "intervalcheck",
		JSON:    cfg.Logging.JSON,
		Quiet:   quiet,
		Output:  cmd.ErrOrStderr(),
	})

	tcfg := telemetry.DefaultConfig()
	tcfg.ServiceVersion = version
	tcfg.TraceExporter = cfg.Telemetry.TraceExporter
	tcfg.TraceWriter = cmd.ErrOrStderr()
	shutdown, err := telemetry.Init(cmd.Context(), tcfg)
	if err != nil {
		_ = logger.Close()
		return NewCommandError(cmd.CommandPath(), exitFailure, "starting telemetry", err)
	}

	rt = &runtime{
		cfg:      cfg,
		logger:   logger,
		printer:  ux.NewPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr(), level),
		shutdown: shutdown,
	}
	logger.Debug("configuration loaded", "frame_rate", cfg.FrameRate, "interval", cfg.Interval)
	return nil
}

// closeRuntime flushes spans and closes the log file.
func closeRuntime(ctx context.Context) error {
	if rt == nil {
		return nil
	}
	r := rt
	rt = nil
	return errors.Join(r.shutdown(ctx), r.logger.Close())
}

func loadConfig() (config.Config, error) {
	if configPath != "" {
		return config.LoadFrom(configPath)
	}
	if err := config.Load(""); err != nil {
		return config.Config{}, err
	}
	return config.Global, nil
}

// fdOf returns the file descriptor behind the command's output, or an
// invalid descriptor when output is not a file.
func fdOf(cmd *cobra.Command) uintptr {
	if f, ok := cmd.OutOrStdout().(interface{ Fd() uintptr }); ok {
		return f.Fd()
	}
	return ^uintptr(0)
}
