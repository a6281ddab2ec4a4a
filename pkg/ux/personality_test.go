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
	"os"
	"testing"
)

func TestSetPersonalityLevel(t *testing.T) {
	orig := GetPersonalityLevel()
	defer SetPersonalityLevel(orig)

	SetPersonalityLevel(PersonalityMinimal)
	if got := GetPersonalityLevel(); got != PersonalityMinimal {
		t.Errorf("GetPersonalityLevel() = %q, want %q", got, PersonalityMinimal)
	}
}

func TestParsePersonalityLevel(t *testing.T) {
	tests := []struct {
		input string
		want  PersonalityLevel
	}{
		{"full", PersonalityFull},
		{"FULL", PersonalityFull},
		{"minimal", PersonalityMinimal},
		{" min ", PersonalityMinimal},
		{"machine", PersonalityMachine},
		{"quiet", PersonalityMachine},
		{"q", PersonalityMachine},
		{"unknown", PersonalityFull},
		{"", PersonalityFull},
	}

	for _, tt := range tests {
		if got := ParsePersonalityLevel(tt.input); got != tt.want {
			t.Errorf("ParsePersonalityLevel(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestDetectPersonality_EnvWins(t *testing.T) {
	getenv := func(key string) string {
		if key == PersonalityEnv {
			return "minimal"
		}
		return ""
	}
	if got := DetectPersonality(getenv, os.Stdout.Fd()); got != PersonalityMinimal {
		t.Errorf("DetectPersonality() = %q, want %q", got, PersonalityMinimal)
	}
}

func TestDetectPersonality_NonTerminal(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "out")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	noEnv := func(string) string { return "" }
	if got := DetectPersonality(noEnv, f.Fd()); got != PersonalityMachine {
		t.Errorf("DetectPersonality(file) = %q, want %q", got, PersonalityMachine)
	}
}
