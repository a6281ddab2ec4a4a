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
	"bytes"
	"strings"
	"testing"
)

func TestFraction(t *testing.T) {
	tests := []struct {
		done, total int64
		want        float64
	}{
		{0, 100, 0},
		{50, 100, 0.5},
		{150, 100, 1},
		{-5, 100, 0},
		{5, 0, 0},
	}
	for _, tt := range tests {
		if got := Fraction(tt.done, tt.total); got != tt.want {
			t.Errorf("Fraction(%d, %d) = %v, want %v", tt.done, tt.total, got, tt.want)
		}
	}
}

func TestProgressReporter_Machine(t *testing.T) {
	var buf bytes.Buffer
	r := NewProgressReporter(&buf, PersonalityMachine, 30)
	r.Update("deep", 10, 40)
	r.Done()

	if got, want := buf.String(), "PROGRESS: deep 10/40\n"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestProgressReporter_Bar(t *testing.T) {
	var buf bytes.Buffer
	r := NewProgressReporter(&buf, PersonalityFull, 30)
	r.Update("deep", 50, 100)
	r.Done()

	out := buf.String()
	if !strings.HasPrefix(out, "\r") {
		t.Errorf("bar should redraw in place: %q", out)
	}
	if !strings.Contains(out, "50%") || !strings.Contains(out, "deep") {
		t.Errorf("bar missing percentage or label: %q", out)
	}
	if !strings.HasSuffix(out, "\n") {
		t.Errorf("Done should end the line: %q", out)
	}

	buf.Reset()
	r.Done()
	if buf.Len() != 0 {
		t.Errorf("second Done wrote %q", buf.String())
	}
}
