// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package validate

import (
	"errors"
	"fmt"

	"github.com/AleutianAI/IntervalCheck/pkg/cycle"
)

var (
	// ErrMismatch is matched by every *MismatchError.
	ErrMismatch = errors.New("prediction does not match direct evaluation")

	// ErrNoMode is returned when neither deep nor skip validation is requested.
	ErrNoMode = errors.New("no validation mode selected")
)

// MismatchError describes the first frame on which a prediction disagreed
// with direct evaluation.
type MismatchError struct {
	// Kind is "check", "raw", "range" or "dt_range".
	Kind string

	// Frame is the absolute frame index.
	Frame int64

	// Value is the accumulator value on Frame.
	Value float32

	// Offset and Interval identify the check; zero for dt_range failures.
	Offset   float32
	Interval float32

	// Level is the chain level for raw and range failures, -1 otherwise.
	Level int

	Expected  bool
	Predicted bool

	// Detail carries kind-specific context.
	Detail string
}

func (e *MismatchError) Error() string {
	msg := fmt.Sprintf("%s mismatch at frame %d (value=%.9g", e.Kind, e.Frame, e.Value)
	if e.Interval != 0 {
		msg += fmt.Sprintf(" offset=%.9g interval=%.9g", e.Offset, e.Interval)
	}
	if e.Level >= 0 {
		msg += fmt.Sprintf(" level=%d", e.Level)
	}
	msg += fmt.Sprintf("): expected %v, predicted %v", e.Expected, e.Predicted)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Is reports ErrMismatch.
func (e *MismatchError) Is(target error) bool { return target == ErrMismatch }

// guard runs fn and converts an invariant panic of the cycle chain into an
// error carrying the frame it happened on. Other panics propagate.
func guard(frame int64, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			ie, ok := cycle.AsInvariantError(r)
			if !ok {
				panic(r)
			}
			err = fmt.Errorf("frame %d: %w", frame, ie)
		}
	}()
	return fn()
}
