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
	"math/big"

	"github.com/AleutianAI/IntervalCheck/pkg/ratmath"
)

// =============================================================================
// Closed Form
// =============================================================================

// boundary returns floor((tick*delta - offset) / interval), the index of the
// last interval boundary at or below the progression at tick.
func (c *Cycle) boundary(tick int64) int64 {
	return ratmath.Floor(ratmath.Quo(ratmath.Sub(ratmath.MulInt(c.delta, tick), c.offset), c.interval))
}

// hitsBetween counts the hits in the ticks [from, to]. A tick hits when the
// step ending at it (delta > 0) or starting at it (delta < 0) crosses a
// boundary, so the count is a difference of two boundary indices.
func (c *Cycle) hitsBetween(from, to int64) int64 {
	if from > to {
		return 0
	}
	if c.deltaSign > 0 {
		return c.boundary(to) - c.boundary(from-1)
	}
	return c.boundary(from) - c.boundary(to+1)
}

// hitTick returns the tick whose hit crosses boundary m.
func (c *Cycle) hitTick(m int64) int64 {
	b := ratmath.Quo(ratmath.Add(ratmath.MulInt(c.interval, m), c.offset), c.delta)
	if c.deltaSign > 0 {
		return ratmath.Ceil(b)
	}
	return ratmath.Floor(b)
}

// lastBoundary returns the boundary crossed by the last hit at or before
// tick. Later hits cross boundaries further in the direction of delta.
func (c *Cycle) lastBoundary(tick int64) int64 {
	if c.deltaSign > 0 {
		return c.boundary(tick)
	}
	return c.boundary(tick+1) + 1
}

// hitBefore returns the tick of the k-th hit at or before tick, k >= 1.
func (c *Cycle) hitBefore(tick, k int64) int64 {
	return c.hitTick(c.lastBoundary(tick) - c.deltaSign*(k-1))
}

// hitAfter returns the tick of the p-th hit after tick, p >= 1.
func (c *Cycle) hitAfter(tick, p int64) int64 {
	return c.hitTick(c.lastBoundary(tick) + c.deltaSign*p)
}

// =============================================================================
// Prediction
// =============================================================================

// CalcNumTargetHits counts hits relative to the current tick t without
// changing any state.
//
// # Inputs
//
//   - ticks: for ticks > 0 the hits in (t, t+ticks] are counted, for
//     ticks < 0 the hits in (t+ticks, t].
//
// # Outputs
//
// The number of hits. Zero ticks count zero hits.
func (c *Cycle) CalcNumTargetHits(ticks int64) int64 {
	if ticks > 0 {
		return c.hitsBetween(c.tick+1, c.tick+ticks)
	}
	return c.hitsBetween(c.tick+ticks+1, c.tick)
}

// CalcDrift returns the total deviation from CycleLength of the gaps ending
// at the next hits hits (hits > 0) or at the last -hits hits (hits < 0).
func (c *Cycle) CalcDrift(hits int64) int64 {
	n := c.Next()
	if n == nil || hits == 0 {
		return 0
	}
	if hits > 0 {
		return c.driftSign * n.CalcNumTargetHits(hits)
	}
	k := n.CalcNumTargetHits(-(-hits + 1))
	if n.CurRawCheckResult() {
		k--
	}
	return c.driftSign * k
}

// CalcTicksFromPropagatedTicks converts a hit count into a tick distance.
//
// # Description
//
// For p > 0 the result is the number of ticks until the p-th hit after the
// current tick. For p < 0 it is the negated number of ticks back to the
// (-p)-th hit at or before the current tick, minus one. Zero maps to zero.
// The distance is assembled from whole cycles and the drift of the next
// level.
func (c *Cycle) CalcTicksFromPropagatedTicks(p int64) int64 {
	switch {
	case p > 0:
		return c.tillRaw + c.length*(p-1) + c.CalcDrift(p-1)
	case p < 0:
		return -(c.sinceRaw + c.length*(-p-1) + c.CalcDrift(-(-p - 1)) + 1)
	default:
		return 0
	}
}

// windowLengthsAt returns the lengths of the windows around the last and
// the next hit as seen from tick. The next level sits at the number of hits
// in [0, tick] then.
func (c *Cycle) windowLengthsAt(tick int64) (int64, int64) {
	n := c.Next()
	if n == nil {
		return c.baseLength + c.terminalExtend, c.baseLength + c.terminalExtend
	}
	nt := c.hitsBetween(0, tick)
	if c.driftSign != c.deltaSign {
		nt--
	}
	return c.baseLength + boolTick(n.RangeCheckAt(nt)), c.baseLength + boolTick(n.RangeCheckAt(nt+1))
}

// sinceRangeAt derives TicksSinceLastRangeCheck for any tick. Windows at
// most one tick wide sit exactly on the hits that the next level's range
// check selects, so the distance is that of the k-th last hit.
func (c *Cycle) sinceRangeAt(tick int64) int64 {
	if n := c.Next(); n != nil && c.baseLength == 0 {
		if !c.lengthDrifts {
			return -1
		}
		nt := c.hitsBetween(0, tick)
		if c.driftSign != c.deltaSign {
			nt--
		}
		return tick - c.hitBefore(tick, n.sinceRangeAt(nt)+1)
	}

	lenA, lenB := c.windowLengthsAt(tick)
	switch {
	case lenA == 0 && lenB == 0:
		return -1
	case c.RangeCheckAt(tick):
		return 0
	case c.deltaSign > 0:
		return tick - c.hitBefore(tick, 1) - (lenA - 1)
	default:
		return tick - c.hitBefore(tick, 1)
	}
}

// tillRangeAt derives TicksTillNextRangeCheck for any tick.
func (c *Cycle) tillRangeAt(tick int64) int64 {
	if c.Next() != nil && c.baseLength == 0 {
		return c.tillLengthDriftAt(tick)
	}

	lenA, lenB := c.windowLengthsAt(tick)
	switch {
	case lenA == 0 && lenB == 0:
		return -1
	case c.deltaSign > 0:
		if tick-c.hitBefore(tick, 1) < lenA-1 {
			return 1
		}
		return c.hitAfter(tick, 1) - tick
	default:
		return max(1, c.hitAfter(tick, 1)-tick-(lenB-1))
	}
}

func (c *Cycle) tillAnyRangeAt(tick int64) int64 {
	if c.RangeCheckAt(tick) {
		return 0
	}
	return c.tillRangeAt(tick)
}

// tillLengthDriftAt derives TicksTillNextLengthDrift for any tick: the next
// lengthened window belongs to the hit the next level's next range check
// points at.
func (c *Cycle) tillLengthDriftAt(tick int64) int64 {
	if !c.lengthDrifts {
		return -1
	}
	n := c.Next()
	nt := c.hitsBetween(0, tick)
	var p int64
	if c.driftSign == c.deltaSign {
		p = n.tillRangeAt(nt)
	} else {
		p = n.tillAnyRangeAt(nt) + 1
	}
	return c.hitAfter(tick, p) - tick
}

// =============================================================================
// Ground Truth
// =============================================================================

// CheckValue returns RMod(tick*delta - offset, interval), the exact position
// of the progression within the interval at tick.
func (c *Cycle) CheckValue(tick int64) *big.Rat {
	return ratmath.RMod(ratmath.Sub(ratmath.MulInt(c.delta, tick), c.offset), c.interval)
}

// RawCheckAt evaluates the hit condition at tick directly.
func (c *Cycle) RawCheckAt(tick int64) bool {
	return c.CheckValue(tick).Cmp(ratmath.Abs(c.delta)) < 0
}

// RangeCheckAt evaluates the window condition at tick directly.
func (c *Cycle) RangeCheckAt(tick int64) bool {
	return c.CheckValue(tick).Cmp(c.threshold) < 0
}
