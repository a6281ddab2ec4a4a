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

func newTestPrinter(level PersonalityLevel) (*Printer, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	return NewPrinter(&out, &errOut, level), &out, &errOut
}

// =============================================================================
// Icon.Render Tests
// =============================================================================

func TestIcon_Render(t *testing.T) {
	for _, icon := range []Icon{IconSuccess, IconWarning, IconError, IconArrow} {
		if got := icon.Render(); !strings.Contains(got, string(icon)) {
			t.Errorf("Render(%q) = %q, missing icon", icon, got)
		}
	}
}

// =============================================================================
// Machine Output Tests
// =============================================================================

func TestPrinter_Machine(t *testing.T) {
	p, out, errOut := newTestPrinter(PersonalityMachine)

	p.Title("ignored")
	p.Success("ranges valid")
	p.Warning("slow")
	p.Error("mismatch")
	p.KeyValues([][2]string{{"offset", "0"}, {"interval", "0.05"}})

	wantOut := "OK: ranges valid\noffset=0\ninterval=0.05\n"
	if out.String() != wantOut {
		t.Errorf("stdout = %q, want %q", out.String(), wantOut)
	}
	wantErr := "WARN: slow\nERROR: mismatch\n"
	if errOut.String() != wantErr {
		t.Errorf("stderr = %q, want %q", errOut.String(), wantErr)
	}
}

func TestPrinter_MachineTable(t *testing.T) {
	p, out, _ := newTestPrinter(PersonalityMachine)
	p.Table([]string{"start", "end"}, [][]string{{"0", "7"}, {"7", "22"}})

	want := "start\tend\n0\t7\n7\t22\n"
	if out.String() != want {
		t.Errorf("table = %q, want %q", out.String(), want)
	}
}

// =============================================================================
// Styled Output Tests
// =============================================================================

func TestPrinter_FullContainsText(t *testing.T) {
	p, out, errOut := newTestPrinter(PersonalityFull)

	p.Title("DT Ranges")
	p.Success("done")
	p.KeyValues([][2]string{{"frames", "200000"}})
	p.Error("broken")

	for _, want := range []string{"DT Ranges", "done", "frames", "200000"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q: %q", want, out.String())
		}
	}
	if !strings.Contains(errOut.String(), "broken") {
		t.Errorf("stderr missing error text: %q", errOut.String())
	}
}

func TestPrinter_TableRendersCells(t *testing.T) {
	for _, level := range []PersonalityLevel{PersonalityFull, PersonalityMinimal} {
		p, out, _ := newTestPrinter(level)
		p.Table([]string{"start", "delta"}, [][]string{{"0", "0.016666668"}, {"7", "0.016666666"}})

		for _, want := range []string{"start", "delta", "0.016666668", "0.016666666"} {
			if !strings.Contains(out.String(), want) {
				t.Errorf("%s table missing %q:\n%s", level, want, out.String())
			}
		}
	}
}

func TestPrinter_Accessors(t *testing.T) {
	p, out, _ := newTestPrinter(PersonalityMinimal)
	if p.Level() != PersonalityMinimal {
		t.Errorf("Level() = %q", p.Level())
	}
	if p.Out() != out {
		t.Error("Out() does not return the result writer")
	}
}
