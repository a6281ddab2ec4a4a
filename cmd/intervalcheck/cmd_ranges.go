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
	"math/big"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/IntervalCheck/pkg/effdt"
	"github.com/AleutianAI/IntervalCheck/pkg/predictor"
	"github.com/AleutianAI/IntervalCheck/pkg/ratmath"
)

// ratDigits is the precision of rationals in tables.
const ratDigits = 12

// rangeColumns selects the columns of the dt_ranges table.
type rangeColumns struct {
	frameRange      bool
	startValue      bool
	effectiveDeltas bool
	depth           int
	cycleDeltas     bool
	cycleIntervals  bool
	cycleDrifts     bool
	cycleLengths    bool
}

func runDTRanges(cmd *cobra.Command, _ []string) error {
	step := rt.cfg.Step()
	interval := intervalFor(cmd)

	cols := rangeColumns{
		frameRange:      showFrameRange,
		startValue:      showStartValue,
		effectiveDeltas: showEffectiveDeltas,
		depth:           cycleDepth,
		cycleDeltas:     showCycleDeltas,
		cycleIntervals:  showCycleIntervals,
		cycleDrifts:     showCycleDrifts,
		cycleLengths:    showCycleLengths,
	}
	if cols.depth > 0 && !cols.cycleDeltas && !cols.cycleIntervals && !cols.cycleDrifts && !cols.cycleLengths {
		cols.cycleDeltas = true
		cols.cycleLengths = true
	}

	ranges, err := effdt.Collect(step)
	if err != nil {
		return NewCommandError(cmd.CommandPath(), exitFailure, "enumerating ranges", err)
	}
	headers, rows, err := rangeTable(ranges, interval, step, cols)
	if err != nil {
		return NewCommandError(cmd.CommandPath(), exitFailure, "building cycles", err)
	}

	rt.logger.Debug("ranges enumerated", "ranges", len(ranges), "step", step)
	rt.printer.Title(fmt.Sprintf("Effective delta ranges (step %.9g, interval %.9g)", step, interval))
	rt.printer.Table(headers, rows)
	return nil
}

// rangeTable renders one row per range. Cycle columns describe the chain of
// a check with offset zero over the range's per-frame delta.
func rangeTable(ranges []effdt.Range, interval, step float32, cols rangeColumns) ([]string, [][]string, error) {
	headers := []string{"range"}
	if cols.frameRange {
		headers = append(headers, "frames")
	}
	if cols.startValue {
		headers = append(headers, "start value")
	}
	if cols.effectiveDeltas {
		headers = append(headers, "effective delta", "transition delta")
	}
	for level := range cols.depth {
		if cols.cycleDeltas {
			headers = append(headers, fmt.Sprintf("L%d delta", level))
		}
		if cols.cycleIntervals {
			headers = append(headers, fmt.Sprintf("L%d interval", level))
		}
		if cols.cycleDrifts {
			headers = append(headers, fmt.Sprintf("L%d drift", level))
		}
		if cols.cycleLengths {
			headers = append(headers, fmt.Sprintf("L%d length", level))
		}
	}

	exactInterval := ratmath.FromFloat32(interval)
	threshold := ratmath.FromFloat32(step)
	rows := make([][]string, 0, len(ranges))
	for i, r := range ranges {
		row := []string{strconv.Itoa(i)}
		if cols.frameRange {
			row = append(row, frameSpan(r.StartFrame, r.EndFrame))
		}
		if cols.startValue {
			row = append(row, fmt.Sprintf("%.9g", r.StartValue))
		}
		if cols.effectiveDeltas {
			eff := "-"
			if d, ok := r.EffectiveDelta.Get(); ok {
				eff = fmt.Sprintf("%.9g", d)
			}
			trans := "-"
			if d, ok := r.TransitionDelta.Get(); ok {
				trans = ratmath.FormatTrim(d, ratDigits)
			}
			row = append(row, eff, trans)
		}
		if cols.depth > 0 {
			cells, err := cycleCells(r, exactInterval, threshold, cols)
			if err != nil {
				return nil, nil, fmt.Errorf("range %d: %w", i, err)
			}
			row = append(row, cells...)
		}
		rows = append(rows, row)
	}
	return headers, rows, nil
}

func cycleCells(r effdt.Range, interval, threshold *big.Rat, cols rangeColumns) ([]string, error) {
	delta, ok := r.EffectiveDelta.Get()
	exact := ratmath.FromFloat32(delta)
	if !ok {
		exact, _ = r.TransitionDelta.Get()
	}
	p, err := predictor.NewDTRangePredictor(ratmath.Zero(), interval, exact, threshold)
	if err != nil {
		return nil, err
	}

	var cells []string
	for level := range cols.depth {
		present := level < p.Cycles()
		cell := func(f func() string) string {
			if !present {
				return ""
			}
			return f()
		}
		if cols.cycleDeltas {
			cells = append(cells, cell(func() string { return ratmath.Format(p.Cycle(level).Delta(), ratDigits, true) }))
		}
		if cols.cycleIntervals {
			cells = append(cells, cell(func() string { return ratmath.FormatTrim(p.Cycle(level).Interval(), ratDigits) }))
		}
		if cols.cycleDrifts {
			cells = append(cells, cell(func() string { return ratmath.Format(p.Cycle(level).ResidualDrift(), ratDigits, true) }))
		}
		if cols.cycleLengths {
			cells = append(cells, cell(func() string { return strconv.FormatInt(p.Cycle(level).CycleLength(), 10) }))
		}
	}
	return cells, nil
}

func frameSpan(start, end int64) string {
	if end == effdt.Unbounded {
		return fmt.Sprintf("%d-...", start)
	}
	return fmt.Sprintf("%d-%d", start, end)
}
