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
	"fmt"

	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	configPath       string
	quiet            bool
	personalityLevel string // UX personality level (full/minimal/machine)

	// shared by dt_ranges, hazard_checks, hazard_info and validate
	checkInterval float32

	// dt_ranges
	showFrameRange      bool
	showStartValue      bool
	showEffectiveDeltas bool
	cycleDepth          int
	showCycleDeltas     bool
	showCycleIntervals  bool
	showCycleDrifts     bool
	showCycleLengths    bool

	// hazard_checks
	startFrame int64
	numFrames  int64

	// hazard_info
	showCycleInfo      bool
	showRawCheckInfo   bool
	showRangeCheckInfo bool

	// validate
	deepValidation  bool
	skipValidation  bool
	maxFrames       int64
	validationSeed  uint64
	parallelism     int
	skipRate        float64
	validateTimeout string

	rootCmd = &cobra.Command{
		Use:   "intervalcheck",
		Short: "Predict and validate interval checks on a float32 frame clock",
		Long: `intervalcheck predicts on which frames a periodic interval check fires
when simulation time is accumulated in float32, one fixed step per frame,
and validates those predictions against direct accumulation.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setupRuntime,
	}

	dtRangesCmd = &cobra.Command{
		Use:   "dt_ranges",
		Short: "List the effective delta ranges of the accumulator",
		Args:  cobra.NoArgs,
		RunE:  runDTRanges,
	}

	hazardChecksCmd = &cobra.Command{
		Use:   "hazard_checks <offset>",
		Short: "Print C (check) or X (no check) for a span of frames",
		Long: `Print C (check) or X (no check) for every frame of a span.
Pass negative offsets after "--", for example: intervalcheck hazard_checks -- -0.2`,
		Args: cobra.ExactArgs(1),
		RunE: runHazardChecks,
	}

	hazardInfoCmd = &cobra.Command{
		Use:   "hazard_info <offset> [frame]",
		Short: "Show range and cycle state for a frame, or the initial state of every range",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runHazardInfo,
	}

	validateCmd = &cobra.Command{
		Use:   "validate",
		Short: "Validate predictions against direct float32 accumulation",
	}

	validateRangesCmd = &cobra.Command{
		Use:   "dt_ranges",
		Short: "Check the effective delta ranges frame by frame",
		Args:  cobra.NoArgs,
		RunE:  runValidateRanges,
	}

	validateChecksCmd = &cobra.Command{
		Use:   "hazard_checks [offset...]",
		Short: "Check predicted interval checks for one or more offsets",
		RunE:  runValidateChecks,
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "intervalcheck %s\n", version)
			return err
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Config file (default ~/.intervalcheck/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false,
		"Plain machine-readable output and no console logging")
	rootCmd.PersistentFlags().StringVar(&personalityLevel, "personality", "",
		"Output style: full, minimal or machine (default: detect)")

	rootCmd.AddCommand(dtRangesCmd)
	dtRangesCmd.Flags().Float32Var(&checkInterval, "check-interval", 0, "Check interval (default from config)")
	dtRangesCmd.Flags().BoolVar(&showFrameRange, "frame-range", true, "Show the frames of each range")
	dtRangesCmd.Flags().BoolVar(&showStartValue, "start-value", true, "Show the accumulator value at the start of each range")
	dtRangesCmd.Flags().BoolVar(&showEffectiveDeltas, "effective-deltas", true, "Show effective and transition deltas")
	dtRangesCmd.Flags().IntVar(&cycleDepth, "cycle-depth", 0, "Number of cycle levels to show per range")
	dtRangesCmd.Flags().BoolVar(&showCycleDeltas, "cycle-deltas", false, "Show the delta of each cycle level")
	dtRangesCmd.Flags().BoolVar(&showCycleIntervals, "cycle-intervals", false, "Show the interval of each cycle level")
	dtRangesCmd.Flags().BoolVar(&showCycleDrifts, "cycle-drifts", false, "Show the residual drift of each cycle level")
	dtRangesCmd.Flags().BoolVar(&showCycleLengths, "cycle-lengths", false, "Show the cycle length of each level")

	rootCmd.AddCommand(hazardChecksCmd)
	hazardChecksCmd.Flags().Float32Var(&checkInterval, "check-interval", 0, "Check interval (default from config)")
	hazardChecksCmd.Flags().Int64Var(&startFrame, "start-frame", 0, "First frame to print")
	hazardChecksCmd.Flags().Int64Var(&numFrames, "num-frames", 600, "Number of frames to print")

	rootCmd.AddCommand(hazardInfoCmd)
	hazardInfoCmd.Flags().Float32Var(&checkInterval, "check-interval", 0, "Check interval (default from config)")
	hazardInfoCmd.Flags().BoolVar(&showCycleInfo, "cycle-info", false, "Show the state of every cycle level")
	hazardInfoCmd.Flags().BoolVar(&showRawCheckInfo, "raw-check-info", false, "Show raw check distances per level")
	hazardInfoCmd.Flags().BoolVar(&showRangeCheckInfo, "range-check-info", false, "Show range check distances per level")

	rootCmd.AddCommand(validateCmd)
	validateCmd.PersistentFlags().Int64Var(&maxFrames, "max-frames", 0,
		"Frames to validate (default from config; dt_ranges runs until the accumulator freezes)")
	validateCmd.PersistentFlags().StringVar(&validateTimeout, "timeout", "", "Abort validation after this duration (e.g. 10m)")
	validateCmd.AddCommand(validateRangesCmd)
	validateCmd.AddCommand(validateChecksCmd)
	validateChecksCmd.Flags().Float32Var(&checkInterval, "check-interval", 0, "Check interval (default from config)")
	validateChecksCmd.Flags().BoolVar(&deepValidation, "deep", false, "Compare every frame and every cycle level")
	validateChecksCmd.Flags().BoolVar(&skipValidation, "skip", false, "Compare randomly chosen frames reached by seeking")
	validateChecksCmd.Flags().Uint64Var(&validationSeed, "seed", 0, "Seed of skip validation (default from config)")
	validateChecksCmd.Flags().IntVar(&parallelism, "parallelism", 0, "Offsets validated concurrently (default from config)")
	validateChecksCmd.Flags().Float64Var(&skipRate, "skip-rate", 0, "Fraction of frames checked by skip validation (default from config)")

	rootCmd.AddCommand(versionCmd)
}

// intervalFor returns --check-interval when given, otherwise the configured
// interval.
func intervalFor(cmd *cobra.Command) float32 {
	if cmd.Flags().Changed("check-interval") {
		return checkInterval
	}
	return rt.cfg.Interval
}
