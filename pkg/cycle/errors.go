// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package cycle

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// =============================================================================
// Sentinel Errors
// =============================================================================

var (
	// ErrInvalidInterval indicates a non-positive interval.
	ErrInvalidInterval = errors.New("interval must be positive")

	// ErrZeroDelta indicates a delta of exactly zero where a cycle is required.
	ErrZeroDelta = errors.New("delta must be non-zero")

	// ErrRatioTooSmall indicates |delta| > interval at the outermost level,
	// where a single tick could cross more than one interval boundary.
	ErrRatioTooSmall = errors.New("interval must be at least |delta|")

	// ErrInvalidThreshold indicates a threshold outside [0, interval).
	ErrInvalidThreshold = errors.New("threshold must lie in [0, interval)")

	// ErrNegativeTicks indicates an attempt to advance backwards.
	ErrNegativeTicks = errors.New("tick count must not be negative")

	// ErrTickOverflow indicates an advance past the largest representable
	// tick.
	ErrTickOverflow = errors.New("tick count overflows the chain position")
)

// =============================================================================
// InvariantError
// =============================================================================

// InvariantError reports a broken internal invariant of a cycle chain.
//
// # Description
//
// These errors indicate a logic defect, not bad input. The chain panics with
// an *InvariantError so the failure cannot be silently retried; callers that
// need to report it with more context (the validator does) recover it and
// wrap it.
type InvariantError struct {
	Level       int
	Tick        int64
	CycleOffset int64
	CycleTarget int64
	CycleLength int64
	Interval    *big.Rat
	Delta       *big.Rat
	Offset      *big.Rat
	Detail      string
}

// Error implements the error interface.
func (e *InvariantError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "cycle invariant violated at level %d tick %d: %s", e.Level, e.Tick, e.Detail)
	fmt.Fprintf(&b, " [cycleOffset=%d cycleTarget=%d cycleLength=%d", e.CycleOffset, e.CycleTarget, e.CycleLength)
	if e.Interval != nil {
		fmt.Fprintf(&b, " interval=%s", e.Interval.FloatString(30))
	}
	if e.Delta != nil {
		fmt.Fprintf(&b, " delta=%s", e.Delta.FloatString(30))
	}
	if e.Offset != nil {
		fmt.Fprintf(&b, " offset=%s", e.Offset.FloatString(30))
	}
	b.WriteString("]")
	return b.String()
}

// AsInvariantError converts a recovered panic value into an *InvariantError.
func AsInvariantError(v any) (*InvariantError, bool) {
	switch e := v.(type) {
	case *InvariantError:
		return e, true
	case error:
		var ie *InvariantError
		if errors.As(e, &ie) {
			return ie, true
		}
	}
	return nil, false
}
