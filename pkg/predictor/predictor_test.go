// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package predictor

import (
	"math"
	"math/big"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/IntervalCheck/pkg/effdt"
)

// directChecks accumulates the step frame by frame and evaluates the check
// the way a simulation does.
func directChecks(offset, interval, step float32, frames int) []bool {
	out := make([]bool, frames)
	acc := step
	for f := range frames {
		o, i, s, t := float64(offset), float64(interval), float64(step), float64(acc)
		out[f] = math.Floor((t-o-s)/i) < math.Floor((t-o)/i)
		acc = float32(acc + step)
	}
	return out
}

// directChecksAt is directChecks for a few ascending frames far out.
func directChecksAt(offset, interval, step float32, frames []int64) []bool {
	out := make([]bool, len(frames))
	o, i, s := float64(offset), float64(interval), float64(step)
	acc := step
	next := 0
	for f := int64(0); next < len(frames); f++ {
		if f == frames[next] {
			t := float64(acc)
			out[next] = math.Floor((t-o-s)/i) < math.Floor((t-o)/i)
			next++
		}
		acc = float32(acc + step)
	}
	return out
}

// =============================================================================
// DTRangePredictor
// =============================================================================

func TestNewDTRangePredictorRejectsInvalidInput(t *testing.T) {
	_, err := NewDTRangePredictor(big.NewRat(0, 1), big.NewRat(0, 1), big.NewRat(1, 10), big.NewRat(1, 10))
	assert.ErrorIs(t, err, ErrInvalidInterval)

	_, err = NewDTRangePredictor(big.NewRat(0, 1), big.NewRat(1, 1), big.NewRat(-1, 10), big.NewRat(1, 10))
	assert.ErrorIs(t, err, ErrNegativeDelta)
}

func TestDTRangePredictorThresholdCoversInterval(t *testing.T) {
	p, err := NewDTRangePredictor(big.NewRat(1, 3), big.NewRat(1, 2), big.NewRat(1, 7), big.NewRat(1, 2))
	require.NoError(t, err)
	assert.Zero(t, p.Cycles())
	for range 10 {
		assert.True(t, p.CheckResult())
		require.NoError(t, p.AdvanceFrames(1))
	}
}

func TestDTRangePredictorConstantDelta(t *testing.T) {
	// Delta is a whole number of intervals, so every frame sees the same
	// remainder of -offset.
	p, err := NewDTRangePredictor(big.NewRat(-1, 10), big.NewRat(1, 2), big.NewRat(3, 2), big.NewRat(1, 5))
	require.NoError(t, err)
	assert.Zero(t, p.Cycles())
	assert.True(t, p.CheckResult())

	q, err := NewDTRangePredictor(big.NewRat(-3, 10), big.NewRat(1, 2), big.NewRat(0, 1), big.NewRat(1, 5))
	require.NoError(t, err)
	assert.False(t, q.CheckResult())
	require.NoError(t, q.SetCurrentFrame(1000))
	assert.False(t, q.CheckResult())
}

func TestDTRangePredictorSeekBackwards(t *testing.T) {
	p, err := NewDTRangePredictor(big.NewRat(1, 9), big.NewRat(1, 1), big.NewRat(3, 10), big.NewRat(1, 10))
	require.NoError(t, err)
	require.Positive(t, p.Cycles())

	var walk []bool
	for f := int64(0); f < 200; f++ {
		require.NoError(t, p.SetCurrentFrame(f))
		walk = append(walk, p.CheckResult())
	}

	r := rand.New(rand.NewPCG(1, 1))
	for range 100 {
		f := r.Int64N(200)
		require.NoError(t, p.SetCurrentFrame(f))
		assert.Equal(t, f, p.CurrentFrame())
		assert.Equal(t, walk[f], p.CheckResult(), "frame %d", f)
	}

	assert.ErrorIs(t, p.SetCurrentFrame(-1), ErrNegativeFrame)
	assert.ErrorIs(t, p.AdvanceFrames(-2), ErrNegativeFrame)
}

// =============================================================================
// IntervalCheckPredictor
// =============================================================================

func TestNewRejectsInvalidInput(t *testing.T) {
	_, err := New(0, 0)
	assert.ErrorIs(t, err, ErrInvalidInterval)
	_, err = New(0, -0.05)
	assert.ErrorIs(t, err, ErrInvalidInterval)
	_, err = New(0, float32(math.Inf(1)))
	assert.ErrorIs(t, err, ErrInvalidInterval)
	_, err = New(float32(math.NaN()), 0.05)
	assert.ErrorIs(t, err, ErrInvalidOffset)
	_, err = New(0, 0.05, WithStep(-1))
	assert.ErrorIs(t, err, effdt.ErrInvalidStep)
}

func TestRangesCoverEveryFrame(t *testing.T) {
	p, err := New(0, DefaultInterval)
	require.NoError(t, err)

	ranges := p.Ranges()
	require.NotEmpty(t, ranges)
	assert.Equal(t, int64(0), ranges[0].StartFrame)
	for i := 1; i < len(ranges); i++ {
		assert.Equal(t, ranges[i-1].EndFrame, ranges[i].StartFrame)
		assert.NotZero(t, ranges[i-1].Delta.Cmp(ranges[i].Delta), "adjacent spans %d and %d share a delta", i-1, i)
	}
	last := ranges[len(ranges)-1]
	assert.True(t, last.Unbounded())
	assert.Zero(t, last.Delta.Sign())
}

func TestGetRangeIndex(t *testing.T) {
	p, err := New(0, DefaultInterval)
	require.NoError(t, err)

	for i, r := range p.Ranges() {
		idx, err := p.GetRangeIndex(r.StartFrame)
		require.NoError(t, err)
		assert.Equal(t, i, idx)
		if !r.Unbounded() {
			idx, err = p.GetRangeIndex(r.EndFrame - 1)
			require.NoError(t, err)
			assert.Equal(t, i, idx)
		}
	}

	idx, err := p.GetRangeIndex(math.MaxInt64 - 1)
	require.NoError(t, err)
	assert.Equal(t, len(p.Ranges())-1, idx)

	_, err = p.GetRangeIndex(-1)
	assert.ErrorIs(t, err, ErrNegativeFrame)
}

// TestScenarioZeroOffset compares the first 100000 frames of the default
// check against direct accumulation.
func TestScenarioZeroOffset(t *testing.T) {
	const frames = 100_000
	p, err := New(0, DefaultInterval)
	require.NoError(t, err)

	want := directChecks(0, DefaultInterval, DefaultStep, frames)
	for f, got := range p.PredictCheckResults(0, frames) {
		if got != want[f] {
			t.Fatalf("frame %d: predicted %v, direct accumulation %v", f, got, want[f])
		}
	}
	assert.Equal(t, int64(frames-1), p.CurrentFrame())
}

func TestOffsetsAndIntervals(t *testing.T) {
	// A chain whose interval is barely above its delta hits on nearly every
	// tick at every level, so each frame touches the whole chain. Those rows
	// walk fewer frames.
	tests := []struct {
		name     string
		offset   float32
		interval float32
		step     float32
		frames   int
	}{
		{"default interval", 0.013, 0.05, DefaultStep, 30_000},
		{"negative offset", -0.2, 0.1, DefaultStep, 30_000},
		{"wide interval", 0.7, 0.25, DefaultStep, 30_000},
		{"interval under one step", 0.01, 0.0125, DefaultStep, 30_000},
		{"offset past interval", 1.5, 0.05, DefaultStep, 30_000},
		{"interval 1.05 steps", 0.004, 0.0175, DefaultStep, 30_000},
		{"interval 1.002 steps", -0.3, 0.0167, DefaultStep, 3_000},
		{"interval 1.04 steps at 30Hz", -0.88669294, 0.034666125, 1.0 / 30, 30_000},
		{"interval over a late 30Hz delta", -1.9061563, 0.06250084, 1.0 / 30, 30_000},
	}
	const budget = time.Minute
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			began := time.Now()
			p, err := New(tt.offset, tt.interval, WithStep(tt.step))
			require.NoError(t, err)

			want := directChecks(tt.offset, tt.interval, tt.step, tt.frames)
			for f := range tt.frames {
				got, err := p.CheckAt(int64(f))
				require.NoError(t, err)
				if got != want[f] {
					t.Fatalf("frame %d: predicted %v, direct %v", f, got, want[f])
				}
			}
			assert.Less(t, time.Since(began), budget)
		})
	}
}

// TestIntervalNearEffectiveDelta covers an interval a hair above the 1/16
// delta the 30Hz step settles to after about 16.6M frames. The chain for
// that span is tens of thousands of levels deep.
func TestIntervalNearEffectiveDelta(t *testing.T) {
	const (
		offset   = float32(-1.9061563)
		interval = float32(0.06250084)
		step     = float32(1.0 / 30)
	)
	began := time.Now()
	p, err := New(offset, interval, WithStep(step))
	require.NoError(t, err)

	deepest := 0
	for i, r := range p.Ranges() {
		if r.Predictor.Cycles() > p.Ranges()[deepest].Predictor.Cycles() {
			deepest = i
		}
	}
	deep := p.Ranges()[deepest]
	assert.Equal(t, 74239, deep.Predictor.Cycles())
	assert.Equal(t, int64(16_598_346), deep.StartFrame)
	assert.Zero(t, deep.Delta.Cmp(big.NewRat(1, 16)))

	if testing.Short() {
		t.Skip("deep span seeks skipped in short mode")
	}
	frames := []int64{
		deep.StartFrame,
		deep.StartFrame + 1,
		deep.StartFrame + 2,
		deep.StartFrame + 777,
		deep.StartFrame + 500_000,
	}
	want := directChecksAt(offset, interval, step, frames)
	for i, f := range frames {
		got, err := p.CheckAt(f)
		require.NoError(t, err)
		assert.Equal(t, want[i], got, "frame %d", f)
	}
	assert.Less(t, time.Since(began), time.Minute)
}

func TestSeekMatchesWalk(t *testing.T) {
	const frames = 20_000
	walker, err := New(0.02, DefaultInterval)
	require.NoError(t, err)
	var walk []bool
	for _, got := range walker.PredictCheckResults(0, frames) {
		walk = append(walk, got)
	}
	require.Len(t, walk, frames)

	seeker, err := New(0.02, DefaultInterval)
	require.NoError(t, err)
	r := rand.New(rand.NewPCG(42, 7))
	for range 2000 {
		f := r.Int64N(frames)
		got, err := seeker.CheckAt(f)
		require.NoError(t, err)
		require.Equal(t, walk[f], got, "frame %d", f)

		idx, err := seeker.GetRangeIndex(f)
		require.NoError(t, err)
		assert.Equal(t, idx, seeker.CurrentRangeIndex())
		assert.True(t, seeker.CurrentRange().Contains(f))
	}
}

func TestPredictCheckResultsStopsEarly(t *testing.T) {
	p, err := New(0, DefaultInterval)
	require.NoError(t, err)

	var seen []int64
	for f := range p.PredictCheckResults(-5, 100) {
		seen = append(seen, f)
		if len(seen) == 3 {
			break
		}
	}
	assert.Equal(t, []int64{0, 1, 2}, seen)
}

func TestPredictCheckResultsCoversEveryFrame(t *testing.T) {
	p, err := New(0.031, DefaultInterval)
	require.NoError(t, err)
	ref, err := New(0.031, DefaultInterval)
	require.NoError(t, err)

	const end = int64(2000)
	last, err := p.GetRangeIndex(end - 1)
	require.NoError(t, err)
	require.Greater(t, last, 4)

	next := int64(0)
	for f, got := range p.PredictCheckResults(-3, end) {
		require.Equal(t, next, f)
		want, err := ref.CheckAt(f)
		require.NoError(t, err)
		require.Equal(t, want, got, "frame %d", f)
		next++
	}
	assert.Equal(t, end, next)

	assert.ErrorIs(t, p.SeekFrame(-1), ErrNegativeFrame)
	_, err = p.CheckAt(-1)
	assert.ErrorIs(t, err, ErrNegativeFrame)
}

func TestFarFramesAreReachable(t *testing.T) {
	p, err := New(0, DefaultInterval)
	require.NoError(t, err)

	for _, f := range []int64{10_000_000, 1 << 40, math.MaxInt64 / 4} {
		_, err := p.CheckAt(f)
		require.NoError(t, err)
		assert.Equal(t, f, p.CurrentFrame())
	}
}
