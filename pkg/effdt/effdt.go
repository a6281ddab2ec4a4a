// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package effdt models how a float32 accumulator quantizes a fixed per-frame
// step.
//
// # Description
//
// A simulation adds the same nominal step to a float32 accumulator once per
// frame. Inside one binary exponent block every addition rounds the same way,
// so the accumulator grows by a constant "effective delta" until its mantissa
// overflows into the next block. The addition that crosses the block boundary
// rounds differently and is recorded exactly as a transition delta. Once the
// step is smaller than half an ulp of the accumulator, additions stop having
// any effect and the accumulator is frozen forever.
//
// The Enumerator walks these ranges lazily from frame 0, where the
// accumulator already holds one step.
//
// # Thread Safety
//
// Range values are immutable. An Enumerator is not safe for concurrent use.
package effdt

import (
	"errors"
	"fmt"
	"iter"
	"math"
	"math/big"

	"github.com/samber/mo"

	"github.com/AleutianAI/IntervalCheck/pkg/floatbits"
	"github.com/AleutianAI/IntervalCheck/pkg/ratmath"
)

// Unbounded is the EndFrame of the frozen range.
const Unbounded int64 = math.MaxInt64

var (
	// ErrInvalidStep is returned for steps that are not positive normal floats.
	ErrInvalidStep = errors.New("step must be a positive normal float32")

	// ErrOverflow is returned when the accumulator would leave the finite
	// float32 range before freezing.
	ErrOverflow = errors.New("accumulator overflows float32")
)

// =============================================================================
// Range
// =============================================================================

// Range is a contiguous span of frames sharing one effective delta.
type Range struct {
	// StartFrame is the first frame of the range.
	StartFrame int64

	// EndFrame is exclusive; Unbounded for the frozen range.
	EndFrame int64

	// StartValue is the accumulator value at StartFrame.
	StartValue float32

	// Exponent is the biased exponent shared by every accumulator value
	// in the range.
	Exponent int32

	// EffectiveDelta is the per-frame increment between consecutive frames
	// of the range. It is absent for single-frame ranges and Some(0) for the
	// frozen range.
	EffectiveDelta mo.Option[float32]

	// TransitionDelta is the exact increment from the last frame of the range
	// to the first frame of the next one. It is absent for the frozen range.
	TransitionDelta mo.Option[*big.Rat]
}

// Frozen reports whether this is the terminal range in which the accumulator
// no longer changes.
func (r Range) Frozen() bool {
	d, ok := r.EffectiveDelta.Get()
	return ok && d == 0
}

// NumFrames returns the number of frames in the range, or Unbounded.
func (r Range) NumFrames() int64 {
	if r.EndFrame == Unbounded {
		return Unbounded
	}
	return r.EndFrame - r.StartFrame
}

// Contains reports whether frame lies in [StartFrame, EndFrame).
func (r Range) Contains(frame int64) bool {
	return r.StartFrame <= frame && frame < r.EndFrame
}

// DeltaAt returns the exact increment applied after frame, which must lie in
// the range.
func (r Range) DeltaAt(frame int64) (*big.Rat, bool) {
	if !r.Contains(frame) {
		return nil, false
	}
	if frame == r.EndFrame-1 && r.EndFrame != Unbounded {
		return r.TransitionDelta.Get()
	}
	d, ok := r.EffectiveDelta.Get()
	if !ok {
		return nil, false
	}
	return ratmath.FromFloat32(d), true
}

// String implements fmt.Stringer.
func (r Range) String() string {
	end := "..."
	if r.EndFrame != Unbounded {
		end = fmt.Sprint(r.EndFrame)
	}
	eff := "none"
	if d, ok := r.EffectiveDelta.Get(); ok {
		eff = fmt.Sprintf("%.30f", d)
	}
	trans := "none"
	if d, ok := r.TransitionDelta.Get(); ok {
		trans = d.FloatString(30)
	}
	return fmt.Sprintf("exp=%d frames=%d-%s startValue=%.30f effDelta=%s transDelta=%s",
		r.Exponent, r.StartFrame, end, r.StartValue, eff, trans)
}

// =============================================================================
// Enumerator
// =============================================================================

// Enumerator lazily produces the Range sequence of a nominal step.
//
// # Description
//
// Next yields ranges in frame order until the frozen range has been
// returned. Reset restarts the walk from frame 0. Errors stop the walk and
// are reported by Err, in the style of bufio.Scanner.
//
// # Example
//
//	e, err := effdt.NewEnumerator(step)
//	if err != nil {
//	    return err
//	}
//	for r, ok := e.Next(); ok; r, ok = e.Next() {
//	    fmt.Println(r)
//	}
//	if err := e.Err(); err != nil {
//	    return err
//	}
type Enumerator struct {
	step    float32
	stepExp int32

	start int64
	value float32
	done  bool
	err   error
}

// NewEnumerator returns an Enumerator for step.
func NewEnumerator(step float32) (*Enumerator, error) {
	if step <= 0 || !floatbits.IsNormal(step) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidStep, step)
	}
	e := &Enumerator{step: step, stepExp: floatbits.Exponent(step)}
	e.Reset()
	return e, nil
}

// Step returns the nominal step.
func (e *Enumerator) Step() float32 { return e.step }

// Reset restarts the enumeration at frame 0.
func (e *Enumerator) Reset() {
	e.start = 0
	e.value = e.step
	e.done = false
	e.err = nil
}

// Err returns the error that stopped the enumeration, if any.
func (e *Enumerator) Err() error { return e.err }

// Next returns the next range. It returns false after the frozen range or
// after an error.
func (e *Enumerator) Next() (Range, bool) {
	if e.done {
		return Range{}, false
	}

	acc := e.value
	exp := floatbits.Exponent(acc)
	mant := floatbits.Mantissa(acc)
	shift := exp - e.stepExp
	if shift < 0 || !floatbits.IsNormal(acc) {
		return e.fail(fmt.Errorf("accumulator %v below step %v", acc, e.step))
	}

	r := Range{
		StartFrame:      e.start,
		EndFrame:        e.start + 1,
		StartValue:      acc,
		Exponent:        exp,
		EffectiveDelta:  mo.None[float32](),
		TransitionDelta: mo.None[*big.Rat](),
	}

	last := acc
	if inc, ok := e.increment(acc); ok {
		if inc == 0 {
			r.EndFrame = Unbounded
			r.EffectiveDelta = mo.Some[float32](0)
			e.done = true
			return r, true
		}

		// Ties round to even, so only the first addition of a block can
		// differ from the rest. That frame becomes a range of its own.
		if floatbits.IsTie(e.step, shift) {
			if next, ok := e.increment(float32(acc + e.step)); ok && next != inc {
				return e.transition(r, acc)
			}
		}

		eff, err := floatbits.BuildNormalized(0, e.stepExp, inc<<shift)
		if err != nil {
			return e.fail(fmt.Errorf("building effective delta: %w", err))
		}
		frames := (floatbits.ImplicitBit - mant + inc - 1) / inc
		if last, err = floatbits.Build(0, exp, mant+(frames-1)*inc); err != nil {
			return e.fail(fmt.Errorf("building last value of block: %w", err))
		}

		r.EndFrame = e.start + int64(frames)
		r.EffectiveDelta = mo.Some(eff)
	}
	return e.transition(r, last)
}

// transition completes r, whose last accumulator value is last, with the
// exact step into the next range and moves the walk past it.
func (e *Enumerator) transition(r Range, last float32) (Range, bool) {
	next := float32(last + e.step)
	if math.IsInf(float64(next), 0) {
		return e.fail(fmt.Errorf("%w: at frame %d", ErrOverflow, r.EndFrame))
	}
	r.TransitionDelta = mo.Some(ratmath.Sub(ratmath.FromFloat32(next), ratmath.FromFloat32(last)))

	e.value = next
	e.start = r.EndFrame
	return r, true
}

// increment returns the mantissa increment of acc+step in units of acc's ulp,
// or false when the sum leaves acc's exponent block.
func (e *Enumerator) increment(acc float32) (int32, bool) {
	next := float32(acc + e.step)
	if floatbits.Exponent(next) != floatbits.Exponent(acc) {
		return 0, false
	}
	return floatbits.Mantissa(next) - floatbits.Mantissa(acc), true
}

func (e *Enumerator) fail(err error) (Range, bool) {
	e.err = err
	e.done = true
	return Range{}, false
}

// All returns an iterator over a fresh walk of the ranges. Errors end the
// iteration early; use Collect or Next/Err when they matter.
func (e *Enumerator) All() iter.Seq[Range] {
	return func(yield func(Range) bool) {
		walk := &Enumerator{step: e.step, stepExp: e.stepExp}
		walk.Reset()
		for r, ok := walk.Next(); ok; r, ok = walk.Next() {
			if !yield(r) {
				return
			}
		}
	}
}

// Collect enumerates every range of step.
func Collect(step float32) ([]Range, error) {
	e, err := NewEnumerator(step)
	if err != nil {
		return nil, err
	}
	var ranges []Range
	for r, ok := e.Next(); ok; r, ok = e.Next() {
		ranges = append(ranges, r)
	}
	if err := e.Err(); err != nil {
		return nil, err
	}
	return ranges, nil
}
