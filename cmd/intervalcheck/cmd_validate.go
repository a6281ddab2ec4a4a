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
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/IntervalCheck/pkg/telemetry"
	"github.com/AleutianAI/IntervalCheck/pkg/ux"
	"github.com/AleutianAI/IntervalCheck/pkg/validate"
)

// progressInterval throttles progress redraws.
const progressInterval = 200 * time.Millisecond

func runValidateRanges(cmd *cobra.Command, _ []string) error {
	v, done := newValidator(cmd, 0)
	defer done()

	ctx, cancel, err := validationContext(cmd)
	if err != nil {
		return err
	}
	defer cancel()

	res, err := v.ValidateRanges(ctx)
	if err != nil {
		return NewCommandError(cmd.CommandPath(), exitFailure, "validation failed", err)
	}
	done()

	rt.printer.Success("Validation OK")
	rt.printer.KeyValues([][2]string{
		{"run", res.RunID},
		{"frames", strconv.FormatInt(res.Frames, 10)},
		{"duration", res.Duration.Round(time.Millisecond).String()},
	})
	return writeMetrics(cmd)
}

func runValidateChecks(cmd *cobra.Command, args []string) error {
	offsets := rt.cfg.Validation.Offsets
	if len(args) > 0 {
		offsets = make([]float32, 0, len(args))
		for _, arg := range args {
			offset, err := parseOffset(cmd, arg)
			if err != nil {
				return err
			}
			offsets = append(offsets, offset)
		}
	}
	if len(offsets) == 0 {
		return usageError(cmd.CommandPath(), "no offsets given and none configured")
	}

	mode := validate.ModeBoth
	switch {
	case deepValidation && !skipValidation:
		mode = validate.ModeDeep
	case skipValidation && !deepValidation:
		mode = validate.ModeSkip
	}

	v, done := newValidator(cmd, rt.cfg.Validation.MaxFrames)
	defer done()

	ctx, cancel, err := validationContext(cmd)
	if err != nil {
		return err
	}
	defer cancel()

	interval := intervalFor(cmd)
	results, err := v.ValidateOffsets(ctx, offsets, interval, mode)
	if err != nil {
		return NewCommandError(cmd.CommandPath(), exitFailure, "validation failed", err)
	}
	done()

	rt.printer.Success("Validation OK")
	rows := make([][]string, 0, len(results))
	for i, res := range results {
		rows = append(rows, []string{
			strconv.FormatFloat(float64(offsets[i]), 'g', -1, 32),
			res.RunID,
			strconv.FormatInt(res.Compared, 10),
			strconv.FormatInt(res.Fired, 10),
			res.Duration.Round(time.Millisecond).String(),
		})
	}
	rt.printer.Table([]string{"offset", "run", "compared", "fired", "duration"}, rows)
	return writeMetrics(cmd)
}

// newValidator builds a validator from config and flags. The returned func
// ends the progress bar and may be called more than once.
func newValidator(cmd *cobra.Command, defaultMaxFrames int64) (*validate.Validator, func()) {
	vc := rt.cfg.Validation
	frames := defaultMaxFrames
	if cmd.Flags().Changed("max-frames") {
		frames = maxFrames
	}
	seed := vc.Seed
	if cmd.Flags().Changed("seed") {
		seed = validationSeed
	}
	workers := vc.Parallelism
	if cmd.Flags().Changed("parallelism") {
		workers = parallelism
	}
	rate := vc.SkipRate
	if cmd.Flags().Changed("skip-rate") {
		rate = skipRate
	}

	opts := []validate.ValidatorOption{
		validate.WithLogger(rt.logger),
		validate.WithStep(rt.cfg.Step()),
		validate.WithMaxFrames(frames),
		validate.WithSeed(seed),
		validate.WithParallelism(workers),
		validate.WithSkipRate(rate),
	}

	// Machine output (pipes, CI logs) gets one PROGRESS line per update;
	// --quiet silences progress entirely.
	done := func() {}
	if !quiet {
		bar := ux.NewProgressReporter(cmd.ErrOrStderr(), rt.printer.Level(), 40)
		opts = append(opts, validate.WithProgress(func(p validate.Progress) {
			bar.Update(p.Kind, p.Frame, p.Total)
		}, progressInterval))
		done = bar.Done
	}
	return validate.NewValidator(opts...), done
}

// validationContext applies --timeout to the command context.
func validationContext(cmd *cobra.Command) (context.Context, context.CancelFunc, error) {
	if validateTimeout == "" {
		ctx, cancel := context.WithCancel(cmd.Context())
		return ctx, cancel, nil
	}
	d, err := time.ParseDuration(validateTimeout)
	if err != nil || d <= 0 {
		return nil, nil, usageError(cmd.CommandPath(), "--timeout %q is not a positive duration", validateTimeout)
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), d)
	return ctx, cancel, nil
}

func writeMetrics(cmd *cobra.Command) error {
	path := rt.cfg.Telemetry.MetricsFile
	if path == "" {
		return nil
	}
	if err := telemetry.WriteMetrics(path, prometheus.DefaultGatherer); err != nil {
		return NewCommandError(cmd.CommandPath(), exitFailure, "writing metrics", err)
	}
	rt.logger.Info("metrics written", "path", path)
	return nil
}
