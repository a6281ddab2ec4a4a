// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package cycle implements the recursive cycle decomposition of a periodic
// interval check.
//
// # Description
//
// A check that fires whenever t*delta - offset crosses a multiple of interval
// is periodic with period CycleLength, except that every so often a gap is
// one tick longer or shorter. Which gaps drift is again a periodic check, one
// level down, with interval |delta| and delta equal to the residual drift.
// Repeating the descent yields a finite chain (a signed continued-fraction
// expansion of interval/delta). Every level can be placed at any tick in
// closed form, so advancing costs the same whatever the distance.
//
// Each level also tracks a window ("range") check: whether t*delta - offset
// lies within threshold past a boundary. Window lengths are BaseLength or
// BaseLength+1 ticks, and which windows are longer is decided by the next
// level's window check against the length offset.
//
// # Thread Safety
//
// A Chain and its cycles are not safe for concurrent use, including the
// read-only prediction accessors, which cache their results per tick.
package cycle

import (
	"fmt"
	"math"
	"math/big"

	"github.com/AleutianAI/IntervalCheck/pkg/ratmath"
)

// DepthHint is the initial capacity of a chain. Chains grow beyond it when a
// decomposition needs more levels; the depth is bounded only by the
// denominators of interval and delta.
const DepthHint = 64

// maxTick bounds the head tick. Predictions look a few cycles past the
// current tick and must stay within int64.
const maxTick = math.MaxInt64 / 4

// Chain owns the ordered levels of one decomposition.
//
// # Description
//
// Levels are stored by value in one slice; a level reaches its successor
// and predecessor by index, never through stored pointers. Level 0 is the
// head: advancing or resetting it drives every deeper level.
type Chain struct {
	cycles  []Cycle
	targets []int64
}

// State holds the canonical counters of one level.
type State struct {
	Tick        int64
	CycleOffset int64
	CycleTarget int64
}

// NewChain builds and resets the chain for a check with the given offset,
// interval, delta and window threshold.
//
// # Inputs
//
//   - offset: any rational; only its value modulo interval matters.
//   - interval: must be positive.
//   - delta: non-zero, with |delta| <= interval.
//   - threshold: window width, in [0, interval).
//
// # Outputs
//
// The chain is positioned at tick 0.
func NewChain(offset, interval, delta, threshold *big.Rat) (*Chain, error) {
	if err := validateIntervalDelta(interval, delta); err != nil {
		return nil, err
	}
	if ratmath.Abs(delta).Cmp(interval) > 0 {
		return nil, fmt.Errorf("%w: interval=%s delta=%s", ErrRatioTooSmall,
			interval.RatString(), delta.RatString())
	}
	if threshold.Sign() < 0 || threshold.Cmp(interval) >= 0 {
		return nil, fmt.Errorf("%w: threshold=%s interval=%s", ErrInvalidThreshold,
			threshold.RatString(), interval.RatString())
	}

	c := &Chain{cycles: make([]Cycle, 0, DepthHint)}
	off, intv, d, th := offset, interval, delta, threshold
	for d.Sign() != 0 {
		c.cycles = append(c.cycles, newCycle(c, len(c.cycles), off, intv, d, th))
		th = ratmath.Mod(th, ratmath.Abs(d))
		intv, d, off = descend(intv, d, off)
	}
	c.targets = make([]int64, len(c.cycles)+1)

	// Range checks exist at a level when its own windows are non-empty or
	// the level below lengthens some of them.
	for i := len(c.cycles) - 1; i >= 0; i-- {
		cy := &c.cycles[i]
		if n := cy.Next(); n != nil {
			cy.lengthDrifts = n.rangeChecks
		} else {
			cy.rangeChecks = cy.terminalExtend > 0
		}
		cy.rangeChecks = cy.rangeChecks || cy.baseLength > 0 || cy.lengthDrifts
	}

	c.Reset()
	return c, nil
}

// Len returns the number of levels.
func (c *Chain) Len() int { return len(c.cycles) }

// Cycle returns level i.
func (c *Chain) Cycle(i int) *Cycle { return &c.cycles[i] }

// Head returns level 0.
func (c *Chain) Head() *Cycle { return &c.cycles[0] }

// Reset rewinds every level to tick 0.
func (c *Chain) Reset() { c.place(0, true) }

// AdvanceTicks moves the chain forward by ticks head ticks and returns the
// number of head hits passed.
//
// # Description
//
// The hits a level passes are counted in closed form, and the next level
// moves by exactly that many ticks. The work is constant per level whatever
// the size of ticks.
func (c *Chain) AdvanceTicks(ticks int64) (int64, error) {
	if ticks < 0 {
		return 0, fmt.Errorf("%w: %d", ErrNegativeTicks, ticks)
	}
	head := &c.cycles[0]
	if ticks > maxTick-head.tick {
		return 0, fmt.Errorf("%w: %d past tick %d", ErrTickOverflow, ticks, head.tick)
	}
	if ticks == 0 {
		return 0, nil
	}
	hits := head.hitsBetween(head.tick+1, head.tick+ticks)
	c.place(head.tick+ticks, false)
	return hits, nil
}

// Tick returns the head's current tick.
func (c *Chain) Tick() int64 { return c.cycles[0].tick }

// Snapshot returns the canonical counters of every level.
func (c *Chain) Snapshot() []State {
	states := make([]State, len(c.cycles))
	for i := range c.cycles {
		cy := &c.cycles[i]
		states[i] = State{Tick: cy.tick, CycleOffset: cy.cycleOffset, CycleTarget: cy.cycleTarget}
	}
	return states
}

// =============================================================================
// Placement
// =============================================================================

// place moves the head to tick. A level sits at the number of hits its
// predecessor has passed in [0, tick], so the targets are resolved top-down
// and the levels refreshed bottom-up. The state of a level depends on its
// own tick only: unless force is set, descent stops at the first level that
// does not move.
func (c *Chain) place(tick int64, force bool) {
	c.targets[0] = tick
	moved := 0
	for moved < len(c.cycles) {
		cy := &c.cycles[moved]
		if !force && cy.tick == c.targets[moved] {
			break
		}
		c.targets[moved+1] = cy.hitsBetween(0, c.targets[moved])
		moved++
	}
	for i := moved - 1; i >= 0; i-- {
		c.cycles[i].moveTo(c.targets[i], c.targets[i+1])
	}
}
