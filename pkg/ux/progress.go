// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
)

// ProgressReporter renders frame progress of long runs.
//
// # Description
//
// Full output redraws a gradient bar in place with a carriage return.
// Minimal output does the same without colors. Machine output prints one
// "PROGRESS:" line per update so logs stay greppable.
//
// # Thread Safety
//
// Update and Done may be called from several goroutines.
type ProgressReporter struct {
	mu    sync.Mutex
	w     io.Writer
	level PersonalityLevel
	bar   progress.Model
	drawn bool
}

// NewProgressReporter creates a reporter writing to w.
func NewProgressReporter(w io.Writer, level PersonalityLevel, width int) *ProgressReporter {
	opts := []progress.Option{progress.WithWidth(width)}
	if level == PersonalityFull {
		opts = append(opts, progress.WithGradient(string(ColorTealDeep), string(ColorTealBright)))
	} else {
		opts = append(opts, progress.WithSolidFill(string(ColorTealPrimary)))
	}
	return &ProgressReporter{w: w, level: level, bar: progress.New(opts...)}
}

// Update reports that label has reached done of total.
func (r *ProgressReporter) Update(label string, done, total int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.level == PersonalityMachine {
		fmt.Fprintf(r.w, "PROGRESS: %s %d/%d\n", label, done, total)
		return
	}
	fmt.Fprintf(r.w, "\r%s %s", r.bar.ViewAs(Fraction(done, total)), Styles.Muted.Render(label))
	r.drawn = true
}

// Done terminates an in-place bar.
func (r *ProgressReporter) Done() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.drawn {
		fmt.Fprintln(r.w)
		r.drawn = false
	}
}

// Fraction returns done/total clamped to [0, 1]; zero when total is not
// positive.
func Fraction(done, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return min(1, max(0, float64(done)/float64(total)))
}
