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
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/IntervalCheck/pkg/cycle"
	"github.com/AleutianAI/IntervalCheck/pkg/predictor"
	"github.com/AleutianAI/IntervalCheck/pkg/ratmath"
	"github.com/AleutianAI/IntervalCheck/pkg/ux"
)

// =============================================================================
// hazard_checks
// =============================================================================

func runHazardChecks(cmd *cobra.Command, args []string) error {
	offset, err := parseOffset(cmd, args[0])
	if err != nil {
		return err
	}
	if startFrame < 0 || numFrames < 0 {
		return usageError(cmd.CommandPath(), "--start-frame and --num-frames must not be negative")
	}
	if startFrame > math.MaxInt64-numFrames {
		return usageError(cmd.CommandPath(), "--start-frame %d plus --num-frames %d overflows the frame range", startFrame, numFrames)
	}
	p, err := newPredictor(cmd, offset)
	if err != nil {
		return err
	}

	width := max(1, int(rt.cfg.FrameRate))
	lines := checkLines(p, startFrame, numFrames, width, rt.printer.Level())
	rt.printer.Title(fmt.Sprintf("Checks for offset %.9g interval %.9g", offset, intervalFor(cmd)))
	out := rt.printer.Out()
	for _, line := range lines {
		fmt.Fprintln(out, line)
	}
	return nil
}

// checkLines renders frames [start, start+count) as C/X, width frames per
// line, each line prefixed with its first frame.
func checkLines(p *predictor.IntervalCheckPredictor, start, count int64, width int, level ux.PersonalityLevel) []string {
	var (
		lines []string
		b     strings.Builder
		first = start
		n     int
	)
	flush := func() {
		if n == 0 {
			return
		}
		if level == ux.PersonalityMachine {
			lines = append(lines, fmt.Sprintf("%d\t%s", first, b.String()))
		} else {
			lines = append(lines, fmt.Sprintf("%10d  %s", first, b.String()))
		}
		b.Reset()
		n = 0
	}

	for frame, fired := range p.PredictCheckResults(start, start+count) {
		if n == 0 {
			first = frame
		}
		b.WriteString(checkMark(fired, level))
		n++
		if n == width {
			flush()
		}
	}
	flush()
	return lines
}

func checkMark(fired bool, level ux.PersonalityLevel) string {
	switch {
	case fired && level == ux.PersonalityFull:
		return ux.Styles.Success.Render("C")
	case fired:
		return "C"
	case level == ux.PersonalityFull:
		return ux.Styles.Muted.Render("X")
	default:
		return "X"
	}
}

// =============================================================================
// hazard_info
// =============================================================================

func runHazardInfo(cmd *cobra.Command, args []string) error {
	offset, err := parseOffset(cmd, args[0])
	if err != nil {
		return err
	}
	p, err := newPredictor(cmd, offset)
	if err != nil {
		return err
	}

	if len(args) == 1 {
		rt.printer.Title(fmt.Sprintf("Ranges for offset %.9g", offset))
		headers, rows := rangeStates(p)
		rt.printer.Table(headers, rows)
		return nil
	}

	frame, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil || frame < 0 {
		return usageError(cmd.CommandPath(), "frame %q must be a non-negative integer", args[1])
	}
	if err := p.SeekFrame(frame); err != nil {
		return NewCommandError(cmd.CommandPath(), exitFailure, "seeking", err)
	}

	rt.printer.Title(fmt.Sprintf("Frame %d, offset %.9g", frame, offset))
	rt.printer.KeyValues(frameState(p))
	rp := p.CurrentRange().Predictor
	if showCycleInfo && rp.Cycles() > 0 {
		rt.printer.Table(cycleTable(rp))
	}
	if showRawCheckInfo && rp.Cycles() > 0 {
		rt.printer.Table(rawCheckTable(rp))
	}
	if showRangeCheckInfo && rp.Cycles() > 0 {
		rt.printer.Table(rangeCheckTable(rp))
	}
	return nil
}

func frameState(p *predictor.IntervalCheckPredictor) [][2]string {
	r := p.CurrentRange()
	return [][2]string{
		{"frame", strconv.FormatInt(p.CurrentFrame(), 10)},
		{"range", strconv.Itoa(p.CurrentRangeIndex())},
		{"range frames", frameSpan(r.StartFrame, r.EndFrame)},
		{"range frame", strconv.FormatInt(r.Predictor.CurrentFrame(), 10)},
		{"delta", ratmath.FormatTrim(r.Delta, ratDigits)},
		{"range offset", ratmath.Format(r.Predictor.Offset(), ratDigits, true)},
		{"cycle levels", strconv.Itoa(r.Predictor.Cycles())},
		{"check", checkMark(p.CheckResult(), ux.PersonalityMachine)},
	}
}

// rangeStates lists every range at its first frame.
func rangeStates(p *predictor.IntervalCheckPredictor) ([]string, [][]string) {
	headers := []string{"range", "frames", "delta", "offset", "levels", "check"}
	if showCycleInfo {
		headers = append(headers, "lengths")
	}
	if showRawCheckInfo {
		headers = append(headers, "till raw")
	}
	if showRangeCheckInfo {
		headers = append(headers, "till range")
	}

	ranges := p.Ranges()
	rows := make([][]string, 0, len(ranges))
	for i := range ranges {
		r := &ranges[i]
		rp := r.Predictor
		row := []string{
			strconv.Itoa(i),
			frameSpan(r.StartFrame, r.EndFrame),
			ratmath.FormatTrim(r.Delta, ratDigits),
			ratmath.Format(rp.Offset(), ratDigits, true),
			strconv.Itoa(rp.Cycles()),
			checkMark(rp.CheckResult(), ux.PersonalityMachine),
		}
		if showCycleInfo {
			lengths := make([]string, rp.Cycles())
			for level := range lengths {
				lengths[level] = strconv.FormatInt(rp.Cycle(level).CycleLength(), 10)
			}
			row = append(row, strings.Join(lengths, "/"))
		}
		if showRawCheckInfo {
			row = append(row, headDistance(rp, (*cycle.Cycle).TicksTillNextRawCheck))
		}
		if showRangeCheckInfo {
			row = append(row, headDistance(rp, (*cycle.Cycle).TicksTillNextRangeCheck))
		}
		rows = append(rows, row)
	}
	return headers, rows
}

func headDistance(rp *predictor.DTRangePredictor, f func(*cycle.Cycle) int64) string {
	if rp.Cycles() == 0 {
		return "-"
	}
	return strconv.FormatInt(f(rp.Cycle(0)), 10)
}

func cycleTable(rp *predictor.DTRangePredictor) ([]string, [][]string) {
	headers := []string{"level", "interval", "delta", "offset", "length", "tick", "cycle offset", "cycle target"}
	rows := make([][]string, 0, rp.Cycles())
	for level := range rp.Cycles() {
		c := rp.Cycle(level)
		rows = append(rows, []string{
			strconv.Itoa(level),
			ratmath.FormatTrim(c.Interval(), ratDigits),
			ratmath.Format(c.Delta(), ratDigits, true),
			ratmath.FormatTrim(c.Offset(), ratDigits),
			strconv.FormatInt(c.CycleLength(), 10),
			strconv.FormatInt(c.TickIndex(), 10),
			strconv.FormatInt(c.CycleOffset(), 10),
			strconv.FormatInt(c.CycleTarget(), 10),
		})
	}
	return headers, rows
}

func rawCheckTable(rp *predictor.DTRangePredictor) ([]string, [][]string) {
	headers := []string{"level", "since raw", "till raw", "prev", "cur", "next", "till group drift"}
	rows := make([][]string, 0, rp.Cycles())
	for level := range rp.Cycles() {
		c := rp.Cycle(level)
		rows = append(rows, []string{
			strconv.Itoa(level),
			strconv.FormatInt(c.TicksSinceLastRawCheck(), 10),
			strconv.FormatInt(c.TicksTillNextRawCheck(), 10),
			strconv.FormatBool(c.PrevRawCheckResult()),
			strconv.FormatBool(c.CurRawCheckResult()),
			strconv.FormatBool(c.NextRawCheckResult()),
			strconv.FormatInt(c.TicksTillNextGroupDrift(), 10),
		})
	}
	return headers, rows
}

func rangeCheckTable(rp *predictor.DTRangePredictor) ([]string, [][]string) {
	headers := []string{"level", "since range", "till range", "prev", "cur", "next", "till length drift"}
	rows := make([][]string, 0, rp.Cycles())
	for level := range rp.Cycles() {
		c := rp.Cycle(level)
		rows = append(rows, []string{
			strconv.Itoa(level),
			strconv.FormatInt(c.TicksSinceLastRangeCheck(), 10),
			strconv.FormatInt(c.TicksTillNextRangeCheck(), 10),
			strconv.FormatBool(c.PrevRangeCheckResult()),
			strconv.FormatBool(c.CurRangeCheckResult()),
			strconv.FormatBool(c.NextRangeCheckResult()),
			strconv.FormatInt(c.TicksTillNextLengthDrift(), 10),
		})
	}
	return headers, rows
}

// =============================================================================
// Helpers
// =============================================================================

func parseOffset(cmd *cobra.Command, s string) (float32, error) {
	v, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return 0, usageError(cmd.CommandPath(), "offset %q is not a number", s)
	}
	return float32(v), nil
}

func newPredictor(cmd *cobra.Command, offset float32) (*predictor.IntervalCheckPredictor, error) {
	p, err := predictor.New(offset, intervalFor(cmd), predictor.WithStep(rt.cfg.Step()))
	if err != nil {
		return nil, NewCommandError(cmd.CommandPath(), exitUsage, "building predictor", err)
	}
	return p, nil
}
