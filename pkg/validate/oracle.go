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
	"iter"
	"math"
)

// AccumulatorValues yields the accumulator of a simulation frame by frame:
// frame 0 holds one step and each later frame adds one step in float32.
// The sequence is infinite; stop ranging to end it.
func AccumulatorValues(step float32) iter.Seq[float32] {
	return func(yield func(float32) bool) {
		acc := step
		for yield(acc) {
			acc = float32(acc + step)
		}
	}
}

// DirectIntervalCheck evaluates the interval check the way a simulation
// does on each frame: the check fires when value-offset crossed a multiple
// of interval during the last step.
func DirectIntervalCheck(value, interval, offset, step float32) bool {
	t, i, o, s := float64(value), float64(interval), float64(offset), float64(step)
	return math.Floor((t-o-s)/i) < math.Floor((t-o)/i)
}
