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
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
)

// PersonalityEnv overrides the detected personality level.
const PersonalityEnv = "INTERVALCHECK_PERSONALITY"

// PersonalityLevel defines the richness of CLI output
type PersonalityLevel string

const (
	// PersonalityFull enables colors, boxes, tables and progress bars
	PersonalityFull PersonalityLevel = "full"

	// PersonalityMinimal uses icons and plain tables only
	PersonalityMinimal PersonalityLevel = "minimal"

	// PersonalityMachine outputs plain text suitable for scripting and parsing
	PersonalityMachine PersonalityLevel = "machine"
)

var (
	currentLevel  = PersonalityFull
	personalityMu sync.RWMutex
)

// GetPersonalityLevel returns the current personality level
func GetPersonalityLevel() PersonalityLevel {
	personalityMu.RLock()
	defer personalityMu.RUnlock()
	return currentLevel
}

// SetPersonalityLevel updates the personality level
func SetPersonalityLevel(level PersonalityLevel) {
	personalityMu.Lock()
	defer personalityMu.Unlock()
	currentLevel = level
}

// ParsePersonalityLevel converts a string to PersonalityLevel. Unknown values
// map to PersonalityFull.
func ParsePersonalityLevel(s string) PersonalityLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "minimal", "min", "m":
		return PersonalityMinimal
	case "machine", "quiet", "q":
		return PersonalityMachine
	default:
		return PersonalityFull
	}
}

// DetectPersonality picks a level from the environment and the terminal.
//
// # Description
//
// PersonalityEnv wins when set. Otherwise output to a terminal gets
// PersonalityFull and anything else (pipes, CI logs) PersonalityMachine.
func DetectPersonality(getenv func(string) string, fd uintptr) PersonalityLevel {
	if v := getenv(PersonalityEnv); v != "" {
		return ParsePersonalityLevel(v)
	}
	if !isTerminal(fd) {
		return PersonalityMachine
	}
	return PersonalityFull
}

// InitPersonality sets the level detected for stdout.
func InitPersonality() {
	SetPersonalityLevel(DetectPersonality(os.Getenv, os.Stdout.Fd()))
}

func isTerminal(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
