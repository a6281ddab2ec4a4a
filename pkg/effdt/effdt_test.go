// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package effdt

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/IntervalCheck/pkg/ratmath"
)

const testStep = float32(1.0 / 60.0)

func TestNewEnumeratorRejectsInvalidSteps(t *testing.T) {
	var zero float32
	for _, step := range []float32{0, -1, float32(math.Inf(1)), zero / zero, math.Float32frombits(1)} {
		_, err := NewEnumerator(step)
		assert.ErrorIs(t, err, ErrInvalidStep, "step %v", step)
	}
}

func TestRangesAreContiguousAndEndFrozen(t *testing.T) {
	ranges, err := Collect(testStep)
	require.NoError(t, err)
	require.NotEmpty(t, ranges)

	assert.Equal(t, int64(0), ranges[0].StartFrame)
	assert.Equal(t, testStep, ranges[0].StartValue)

	for i, r := range ranges {
		assert.Less(t, r.StartFrame, r.EndFrame, "range %d is empty", i)
		if i > 0 {
			assert.Equal(t, ranges[i-1].EndFrame, r.StartFrame, "range %d is not contiguous", i)
			assert.GreaterOrEqual(t, r.Exponent, ranges[i-1].Exponent)
		}
		if i < len(ranges)-1 {
			assert.False(t, r.Frozen(), "only the last range may be frozen")
			assert.True(t, r.TransitionDelta.IsPresent(), "range %d lacks a transition delta", i)
		}
	}

	last := ranges[len(ranges)-1]
	assert.True(t, last.Frozen())
	assert.Equal(t, Unbounded, last.EndFrame)
	assert.Equal(t, Unbounded, last.NumFrames())
	assert.True(t, last.TransitionDelta.IsAbsent())
}

// TestRangesMatchDirectAccumulation walks the accumulator frame by frame up
// to the frozen range and compares every increment with the table.
func TestRangesMatchDirectAccumulation(t *testing.T) {
	if testing.Short() {
		t.Skip("walks tens of millions of frames")
	}

	ranges, err := Collect(testStep)
	require.NoError(t, err)

	idx := 0
	acc := testStep
	for frame := int64(0); ; frame++ {
		r := &ranges[idx]
		if !r.Contains(frame) {
			t.Fatalf("frame %d outside range %d (%s)", frame, idx, r)
		}
		if frame == r.StartFrame && r.StartValue != acc {
			t.Fatalf("start value of range %d = %v, accumulator holds %v", idx, r.StartValue, acc)
		}

		next := float32(acc + testStep)
		if r.Frozen() {
			require.Equal(t, acc, next, "frozen accumulator moved at frame %d", frame)
			break
		}

		if frame == r.EndFrame-1 {
			trans, ok := r.TransitionDelta.Get()
			require.True(t, ok)
			exact := ratmath.Sub(ratmath.FromFloat32(next), ratmath.FromFloat32(acc))
			require.Zero(t, trans.Cmp(exact), "transition delta of range %d", idx)
			idx++
		} else {
			eff, ok := r.EffectiveDelta.Get()
			// Both operands are float32 values of similar magnitude, so the
			// float64 difference is exact.
			if !ok || float64(eff) != float64(next)-float64(acc) {
				t.Fatalf("frame %d: increment %v does not match effective delta %v of range %d",
					frame, float64(next)-float64(acc), eff, idx)
			}
		}
		acc = next
	}
	assert.Equal(t, len(ranges)-1, idx)
}

func TestEnumeratorResetRestarts(t *testing.T) {
	e, err := NewEnumerator(testStep)
	require.NoError(t, err)

	first, ok := e.Next()
	require.True(t, ok)
	_, _ = e.Next()
	e.Reset()

	again, ok := e.Next()
	require.True(t, ok)
	assert.Equal(t, first.StartFrame, again.StartFrame)
	assert.Equal(t, first.EndFrame, again.EndFrame)
	assert.Equal(t, first.StartValue, again.StartValue)
}

func TestAllMatchesCollect(t *testing.T) {
	e, err := NewEnumerator(0.1)
	require.NoError(t, err)
	ranges, err := Collect(0.1)
	require.NoError(t, err)

	var fromIter []Range
	for r := range e.All() {
		fromIter = append(fromIter, r)
	}
	require.Len(t, fromIter, len(ranges))
	for i := range ranges {
		assert.Equal(t, ranges[i].StartFrame, fromIter[i].StartFrame)
		assert.Equal(t, ranges[i].EndFrame, fromIter[i].EndFrame)
	}

	// Breaking out early must not disturb the enumerator itself.
	for range e.All() {
		break
	}
	r, ok := e.Next()
	require.True(t, ok)
	assert.Equal(t, int64(0), r.StartFrame)
}

func TestDeltaAt(t *testing.T) {
	ranges, err := Collect(testStep)
	require.NoError(t, err)

	for _, r := range ranges {
		if r.Frozen() || r.NumFrames() < 2 {
			continue
		}
		d, ok := r.DeltaAt(r.StartFrame)
		require.True(t, ok)
		eff, _ := r.EffectiveDelta.Get()
		assert.Zero(t, d.Cmp(ratmath.FromFloat32(eff)))

		d, ok = r.DeltaAt(r.EndFrame - 1)
		require.True(t, ok)
		trans, _ := r.TransitionDelta.Get()
		assert.Zero(t, d.Cmp(trans))

		_, ok = r.DeltaAt(r.EndFrame)
		assert.False(t, ok)
		return
	}
	t.Fatal("no multi-frame range found")
}
