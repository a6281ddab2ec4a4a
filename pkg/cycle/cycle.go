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
	"fmt"
	"math/big"

	"github.com/AleutianAI/IntervalCheck/pkg/ratmath"
)

// Cycle is one level of a Chain.
//
// # Description
//
// The static parameters are fixed at construction. The mutable state is the
// pair (cycleOffset, cycleTarget): cycleOffset is the tick position within
// the current cycle and cycleTarget the position of the next hit, so that
// cycleOffset < cycleTarget <= cycleOffset + CycleLength + 1 always holds.
// Every other field is derived from that pair and the next level by refresh.
//
// # Thread Safety
//
// Not safe for concurrent use.
type Cycle struct {
	chain *Chain
	index int

	interval       *big.Rat
	delta          *big.Rat
	offset         *big.Rat
	residualDrift  *big.Rat
	threshold      *big.Rat
	lengthOffset   *big.Rat
	length         int64
	group          int64
	baseLength     int64
	terminalExtend int64
	deltaSign      int64
	driftSign      int64

	tick        int64
	cycleOffset int64
	cycleTarget int64

	sinceRaw int64
	tillRaw  int64
	prevRaw  bool

	prevRange bool
	curRange  bool
	nextRange bool

	tillGroupDrift int64

	lastLengthDrift bool
	nextLengthDrift bool

	rangeChecks  bool
	lengthDrifts bool

	// Range distances walk the whole chain below, so they are computed on
	// first use and cached until the cycle moves.
	sinceRange      int64
	tillRange       int64
	tillLengthDrift int64
	sinceRangeValid bool
	tillRangeValid  bool
	tillLDValid     bool
}

func newCycle(chain *Chain, index int, offset, interval, delta, threshold *big.Rat) Cycle {
	c := Cycle{
		chain:         chain,
		index:         index,
		interval:      ratmath.Clone(interval),
		delta:         ratmath.Clone(delta),
		offset:        boundedOffset(interval, delta, offset),
		residualDrift: residualDrift(interval, delta),
		threshold:     ratmath.Clone(threshold),
		lengthOffset:  ratmath.Mod(threshold, ratmath.Abs(delta)),
		length:        cycleLength(interval, delta),
		group:         cycleGroup(interval, delta, offset),
		baseLength:    ratmath.Floor(ratmath.Quo(threshold, ratmath.Abs(delta))),
		deltaSign:     int64(delta.Sign()),
	}
	c.driftSign = int64(c.residualDrift.Sign())

	// Without a next level every hit lands at the same remainder, so either
	// all windows get the extra tick or none does.
	if c.CheckValue(c.group).Cmp(c.lengthOffset) < 0 {
		c.terminalExtend = 1
	}
	return c
}

// =============================================================================
// Static Parameters
// =============================================================================

// Index returns the level of the cycle within its chain.
func (c *Cycle) Index() int { return c.index }

// Interval returns the interval of the cycle.
func (c *Cycle) Interval() *big.Rat { return ratmath.Clone(c.interval) }

// Delta returns the per-tick delta of the cycle.
func (c *Cycle) Delta() *big.Rat { return ratmath.Clone(c.delta) }

// Offset returns the bounded offset of the cycle.
func (c *Cycle) Offset() *big.Rat { return ratmath.Clone(c.offset) }

// ResidualDrift returns interval - CycleLength*|delta|.
func (c *Cycle) ResidualDrift() *big.Rat { return ratmath.Clone(c.residualDrift) }

// Threshold returns the window width of the range check.
func (c *Cycle) Threshold() *big.Rat { return ratmath.Clone(c.threshold) }

// LengthOffset returns threshold mod |delta|.
func (c *Cycle) LengthOffset() *big.Rat { return ratmath.Clone(c.lengthOffset) }

// CycleLength returns the nominal number of ticks between hits.
func (c *Cycle) CycleLength() int64 { return c.length }

// InitialCycleTarget returns the tick of the first hit at or after tick 0.
func (c *Cycle) InitialCycleTarget() int64 { return c.group }

// BaseLength returns the minimum number of ticks of every window.
func (c *Cycle) BaseLength() int64 { return c.baseLength }

// Next returns the next level, or nil for the last level.
func (c *Cycle) Next() *Cycle {
	if c.index+1 < len(c.chain.cycles) {
		return &c.chain.cycles[c.index+1]
	}
	return nil
}

// Prev returns the previous level, or nil for the head.
func (c *Cycle) Prev() *Cycle {
	if c.index > 0 {
		return &c.chain.cycles[c.index-1]
	}
	return nil
}

// =============================================================================
// State Machine
// =============================================================================

// moveTo places the cycle at tick. The next level must already sit at
// nextTick, the number of hits in [0, tick].
func (c *Cycle) moveTo(tick, nextTick int64) {
	var nextHits int64
	if n := c.Next(); n != nil {
		nextHits = n.hitsBetween(1, nextTick)
	}

	// From the bootstrap tick -1, where the target is CycleLength+group,
	// every tick consumes one unit of the distance, every hit adds one cycle
	// and every hit of the next level adds one tick of drift.
	c.tick = tick
	c.cycleOffset = tick % c.length
	c.cycleTarget = c.cycleOffset + c.group - tick + nextTick*c.length + nextHits*c.driftSign

	if c.cycleOffset >= c.cycleTarget || c.cycleTarget > c.cycleOffset+c.length+1 {
		c.fail(fmt.Sprintf("cycle target out of bounds at tick %d", tick))
	}

	c.prevRaw = c.RawCheckAt(tick - 1)
	c.prevRange = c.RangeCheckAt(tick - 1)
	c.refresh()
}

// refresh recomputes every derived predicate from (cycleOffset, cycleTarget)
// and the state of the next level.
func (c *Cycle) refresh() {
	next := c.Next()

	var adjust int64
	if next != nil && next.CurRawCheckResult() {
		adjust = c.driftSign
	}
	c.sinceRaw = c.cycleOffset - (c.cycleTarget - adjust - c.length)
	c.tillRaw = c.cycleTarget - c.cycleOffset

	lenA, lenB := c.baseLength, c.baseLength
	var lastLD, nextLD bool
	if next != nil {
		if c.driftSign == c.deltaSign {
			lastLD, nextLD = next.curRange, next.nextRange
		} else {
			lastLD, nextLD = next.prevRange, next.curRange
		}
		lenA += boolTick(lastLD)
		lenB += boolTick(nextLD)

		c.tillGroupDrift = c.tillRaw + c.length*next.TicksTillAnyRawCheck()
		if !next.CurRawCheckResult() {
			c.tillGroupDrift += c.driftSign
		}
	} else {
		lenA += c.terminalExtend
		lenB += c.terminalExtend
		c.tillGroupDrift = -1
	}

	if c.deltaSign > 0 || c.CurRawCheckResult() {
		c.curRange = c.sinceRaw < lenA
	} else {
		c.curRange = c.tillRaw < lenB
	}
	if c.deltaSign > 0 && !c.NextRawCheckResult() {
		c.nextRange = c.sinceRaw+1 < lenA
	} else {
		c.nextRange = c.tillRaw-1 < lenB
	}

	c.lastLengthDrift, c.nextLengthDrift = lastLD, nextLD
	c.sinceRangeValid, c.tillRangeValid, c.tillLDValid = false, false, false
}

func (c *Cycle) fail(detail string) {
	panic(&InvariantError{
		Level:       c.index,
		Tick:        c.tick,
		CycleOffset: c.cycleOffset,
		CycleTarget: c.cycleTarget,
		CycleLength: c.length,
		Interval:    c.interval,
		Delta:       c.delta,
		Offset:      c.offset,
		Detail:      detail,
	})
}

func boolTick(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// =============================================================================
// Counters
// =============================================================================

// TickIndex returns the current tick.
func (c *Cycle) TickIndex() int64 { return c.tick }

// CycleOffset returns the position of the current tick within its cycle.
func (c *Cycle) CycleOffset() int64 { return c.cycleOffset }

// CycleTarget returns the position of the next hit relative to the current
// cycle.
func (c *Cycle) CycleTarget() int64 { return c.cycleTarget }

// =============================================================================
// Raw Checks
// =============================================================================

// TicksSinceLastRawCheck returns the ticks since the last hit; 0 when the
// current tick hits.
func (c *Cycle) TicksSinceLastRawCheck() int64 { return c.sinceRaw }

// TicksTillNextRawCheck returns the ticks until the next hit after the
// current tick; always at least 1.
func (c *Cycle) TicksTillNextRawCheck() int64 { return c.tillRaw }

// TicksTillAnyRawCheck returns 0 when the current tick hits, otherwise
// TicksTillNextRawCheck.
func (c *Cycle) TicksTillAnyRawCheck() int64 {
	if c.sinceRaw == 0 {
		return 0
	}
	return c.tillRaw
}

// PrevRawCheckResult reports whether the previous tick hit.
func (c *Cycle) PrevRawCheckResult() bool { return c.prevRaw }

// CurRawCheckResult reports whether the current tick hits.
func (c *Cycle) CurRawCheckResult() bool { return c.sinceRaw == 0 }

// NextRawCheckResult reports whether the next tick hits.
func (c *Cycle) NextRawCheckResult() bool { return c.tillRaw == 1 }

// =============================================================================
// Range Checks
// =============================================================================

// PrevRangeCheckResult reports whether the previous tick was inside a window.
func (c *Cycle) PrevRangeCheckResult() bool { return c.prevRange }

// CurRangeCheckResult reports whether the current tick is inside a window.
func (c *Cycle) CurRangeCheckResult() bool { return c.curRange }

// NextRangeCheckResult reports whether the next tick is inside a window.
func (c *Cycle) NextRangeCheckResult() bool { return c.nextRange }

// TicksSinceLastRangeCheck returns the ticks since the last tick inside a
// window, 0 when the current tick is inside one, or -1 when the cycle has no
// windows.
func (c *Cycle) TicksSinceLastRangeCheck() int64 {
	if !c.sinceRangeValid {
		c.sinceRange = c.sinceRangeAt(c.tick)
		c.sinceRangeValid = true
	}
	return c.sinceRange
}

// TicksTillNextRangeCheck returns the ticks until the next tick inside a
// window, or -1 when the cycle has no windows.
func (c *Cycle) TicksTillNextRangeCheck() int64 {
	if !c.tillRangeValid {
		c.tillRange = c.tillRangeAt(c.tick)
		c.tillRangeValid = true
	}
	return c.tillRange
}

// TicksTillAnyRangeCheck returns 0 when the current tick is inside a window,
// otherwise TicksTillNextRangeCheck.
func (c *Cycle) TicksTillAnyRangeCheck() int64 {
	if c.curRange {
		return 0
	}
	return c.TicksTillNextRangeCheck()
}

// HasRangeChecks reports whether any tick of the cycle is inside a window.
func (c *Cycle) HasRangeChecks() bool { return c.rangeChecks }

// =============================================================================
// Group Drift
// =============================================================================

// HasGroupDrifts reports whether gaps between hits ever deviate from
// CycleLength.
func (c *Cycle) HasGroupDrifts() bool { return c.Next() != nil }

// LastRawCheckDidGroupDrift reports whether the gap ending at the last hit
// deviated from CycleLength.
func (c *Cycle) LastRawCheckDidGroupDrift() bool {
	n := c.Next()
	return n != nil && n.prevRaw
}

// NextRawCheckDidGroupDrift reports whether the gap ending at the next hit
// deviates from CycleLength.
func (c *Cycle) NextRawCheckDidGroupDrift() bool {
	n := c.Next()
	return n != nil && n.CurRawCheckResult()
}

// TicksTillNextGroupDrift returns the ticks until the next hit ending a
// drifted gap, or -1 without group drifts.
func (c *Cycle) TicksTillNextGroupDrift() int64 { return c.tillGroupDrift }

// TicksTillAnyGroupDrift returns 0 when the current tick ends a drifted gap,
// otherwise TicksTillNextGroupDrift.
func (c *Cycle) TicksTillAnyGroupDrift() int64 {
	if c.sinceRaw == 0 && c.LastRawCheckDidGroupDrift() {
		return 0
	}
	return c.tillGroupDrift
}

// =============================================================================
// Length Drift
// =============================================================================

// HasLengthDrifts reports whether window lengths vary between BaseLength and
// BaseLength+1.
func (c *Cycle) HasLengthDrifts() bool { return c.lengthDrifts }

// LastCheckRangeDidLengthDrift reports whether the window around the last
// hit was one tick longer than BaseLength.
func (c *Cycle) LastCheckRangeDidLengthDrift() bool { return c.lastLengthDrift }

// NextCheckRangeDidLengthDrift reports whether the window around the next
// hit is one tick longer than BaseLength.
func (c *Cycle) NextCheckRangeDidLengthDrift() bool { return c.nextLengthDrift }

// TicksTillNextLengthDrift returns the ticks until the next lengthened
// window, or -1 without length drifts. The value is computed on first use
// and cached until the cycle moves.
func (c *Cycle) TicksTillNextLengthDrift() int64 {
	if !c.tillLDValid {
		c.tillLengthDrift = c.tillLengthDriftAt(c.tick)
		c.tillLDValid = true
	}
	return c.tillLengthDrift
}

// TicksTillAnyLengthDrift returns 0 when the current tick hits and its
// window is lengthened, otherwise TicksTillNextLengthDrift.
func (c *Cycle) TicksTillAnyLengthDrift() int64 {
	if c.sinceRaw == 0 && c.lastLengthDrift {
		return 0
	}
	return c.TicksTillNextLengthDrift()
}

// String implements fmt.Stringer.
func (c *Cycle) String() string {
	return fmt.Sprintf("cycle[%d] tick=%d offset=%d target=%d length=%d group=%d base=%d interval=%s delta=%s drift=%s",
		c.index, c.tick, c.cycleOffset, c.cycleTarget, c.length, c.group, c.baseLength,
		c.interval.FloatString(12), c.delta.FloatString(12), c.residualDrift.FloatString(12))
}
