// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package predictor answers "does the interval check fire on frame f" for a
// float32 accumulator advanced by a fixed step, at any frame, without
// simulating the frames in between.
//
// # Description
//
// The accumulator T starts at one step on frame 0 and grows by float32
// additions. A check with offset O and interval I fires on a frame when
// T - O crossed a multiple of I during the last step, which is the same as
// RMod(T - O, I) < step. The effdt package splits the frames into spans of
// constant increment; each span gets a DTRangePredictor whose offset is the
// running offset carried over from the spans before it.
//
// # Example
//
//	p, err := predictor.New(0, 0.05)
//	if err != nil {
//	    return err
//	}
//	fires, err := p.CheckAt(1_000_000)
//
// # Thread Safety
//
// Not safe for concurrent use. Build one predictor per goroutine.
package predictor

import (
	"fmt"
	"iter"
	"math"
	"math/big"
	"sort"

	"github.com/AleutianAI/IntervalCheck/pkg/cycle"
	"github.com/AleutianAI/IntervalCheck/pkg/effdt"
	"github.com/AleutianAI/IntervalCheck/pkg/ratmath"
)

const (
	// DefaultStep is one frame at 60 frames per second.
	DefaultStep float32 = 1.0 / 60.0

	// DefaultInterval is the default check interval.
	DefaultInterval float32 = 0.05
)

// DTRange is a span of frames predicted by one DTRangePredictor.
type DTRange struct {
	// StartFrame is the first frame of the span.
	StartFrame int64

	// EndFrame is exclusive; effdt.Unbounded for the last span.
	EndFrame int64

	// Delta is the exact per-frame increment of the span.
	Delta *big.Rat

	// Predictor predicts frames relative to StartFrame.
	Predictor *DTRangePredictor
}

// Contains reports whether frame lies in the span.
func (r *DTRange) Contains(frame int64) bool {
	return r.StartFrame <= frame && frame < r.EndFrame
}

// Unbounded reports whether the span extends forever.
func (r *DTRange) Unbounded() bool { return r.EndFrame == effdt.Unbounded }

// Option configures an IntervalCheckPredictor.
type Option func(*IntervalCheckPredictor)

// WithStep overrides the nominal per-frame step.
func WithStep(step float32) Option {
	return func(p *IntervalCheckPredictor) {
		p.step = step
	}
}

// IntervalCheckPredictor predicts interval checks for every frame.
type IntervalCheckPredictor struct {
	step     float32
	offset   *big.Rat
	interval *big.Rat
	ranges   []DTRange

	current int
	frame   int64
}

// New builds a predictor for a check with the given offset and interval.
//
// # Inputs
//
//   - offset: check offset; must be finite.
//   - interval: check interval; must be positive and finite.
//   - opts: WithStep.
//
// # Outputs
//
// A predictor positioned at frame 0.
func New(offset, interval float32, opts ...Option) (*IntervalCheckPredictor, error) {
	if math.IsNaN(float64(offset)) || math.IsInf(float64(offset), 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOffset, offset)
	}
	if !(interval > 0) || math.IsInf(float64(interval), 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInterval, interval)
	}
	return NewExact(ratmath.FromFloat32(offset), ratmath.FromFloat32(interval), opts...)
}

// NewExact is New with rational offset and interval.
func NewExact(offset, interval *big.Rat, opts ...Option) (*IntervalCheckPredictor, error) {
	if interval.Sign() <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInterval, interval.RatString())
	}
	p := &IntervalCheckPredictor{
		step:     DefaultStep,
		offset:   ratmath.Clone(offset),
		interval: ratmath.Clone(interval),
	}
	for _, opt := range opts {
		opt(p)
	}
	if err := p.build(); err != nil {
		return nil, err
	}
	return p, nil
}

// =============================================================================
// Construction
// =============================================================================

// rangeBuilder merges consecutive parts with equal deltas into DTRanges
// while carrying the running offset across them.
type rangeBuilder struct {
	interval  *big.Rat
	threshold *big.Rat
	offset    *big.Rat

	start, end int64
	delta      *big.Rat
	ranges     []DTRange
}

func (b *rangeBuilder) add(start, end int64, delta *big.Rat) error {
	if end <= start {
		return nil
	}
	if b.delta != nil && b.delta.Cmp(delta) == 0 && b.end == start {
		b.end = end
		return nil
	}
	if err := b.emit(); err != nil {
		return err
	}
	b.start, b.end, b.delta = start, end, delta
	return nil
}

func (b *rangeBuilder) emit() error {
	if b.delta == nil || b.end <= b.start {
		return nil
	}
	rp, err := NewDTRangePredictor(b.offset, b.interval, b.delta, b.threshold)
	if err != nil {
		return fmt.Errorf("frames %d-%d: %w", b.start, b.end, err)
	}
	b.ranges = append(b.ranges, DTRange{
		StartFrame: b.start,
		EndFrame:   b.end,
		Delta:      b.delta,
		Predictor:  rp,
	})
	if b.end != effdt.Unbounded {
		drift, err := cycle.OffsetDrift(b.interval, b.delta, b.end-b.start)
		if err != nil {
			return err
		}
		b.offset = ratmath.Add(b.offset, drift)
	}
	return nil
}

func (p *IntervalCheckPredictor) build() error {
	step := ratmath.FromFloat32(p.step)
	enum, err := effdt.NewEnumerator(p.step)
	if err != nil {
		return err
	}

	// Frame 0 already holds one step, so the offset is re-anchored by one
	// step before the first span.
	drift, err := cycle.OffsetDrift(p.interval, step, 1)
	if err != nil {
		return err
	}
	b := &rangeBuilder{
		interval:  p.interval,
		threshold: step,
		offset:    ratmath.Add(p.offset, drift),
	}

	for r, ok := enum.Next(); ok; r, ok = enum.Next() {
		if eff, ok := r.EffectiveDelta.Get(); ok {
			end := r.EndFrame - 1
			if r.Frozen() {
				end = effdt.Unbounded
			}
			if err := b.add(r.StartFrame, end, ratmath.FromFloat32(eff)); err != nil {
				return err
			}
		}
		if trans, ok := r.TransitionDelta.Get(); ok {
			if err := b.add(r.EndFrame-1, r.EndFrame, trans); err != nil {
				return err
			}
		}
	}
	if err := enum.Err(); err != nil {
		return fmt.Errorf("enumerating effective deltas: %w", err)
	}
	if err := b.emit(); err != nil {
		return err
	}

	p.ranges = b.ranges
	return nil
}

// =============================================================================
// Queries
// =============================================================================

// Step returns the nominal step.
func (p *IntervalCheckPredictor) Step() float32 { return p.step }

// Offset returns the check offset.
func (p *IntervalCheckPredictor) Offset() *big.Rat { return ratmath.Clone(p.offset) }

// Interval returns the check interval.
func (p *IntervalCheckPredictor) Interval() *big.Rat { return ratmath.Clone(p.interval) }

// Ranges returns the spans in frame order. The slice is shared; callers must
// not modify it.
func (p *IntervalCheckPredictor) Ranges() []DTRange { return p.ranges }

// GetRangeIndex returns the index of the span containing frame.
func (p *IntervalCheckPredictor) GetRangeIndex(frame int64) (int, error) {
	if frame < 0 {
		return 0, fmt.Errorf("%w: %d", ErrNegativeFrame, frame)
	}
	i := sort.Search(len(p.ranges), func(i int) bool {
		return p.ranges[i].StartFrame > frame
	})
	return i - 1, nil
}

// SeekFrame moves to frame.
//
// # Description
//
// Moving forward within the current span advances its chain; moving into
// another span or backwards replays that span from its start.
func (p *IntervalCheckPredictor) SeekFrame(frame int64) error {
	if frame < 0 {
		return fmt.Errorf("%w: %d", ErrNegativeFrame, frame)
	}
	if !p.ranges[p.current].Contains(frame) {
		idx, err := p.GetRangeIndex(frame)
		if err != nil {
			return err
		}
		p.current = idx
	}
	r := &p.ranges[p.current]
	if err := r.Predictor.SetCurrentFrame(frame - r.StartFrame); err != nil {
		return fmt.Errorf("seeking to frame %d: %w", frame, err)
	}
	p.frame = frame
	return nil
}

// CurrentFrame returns the frame of the last SeekFrame.
func (p *IntervalCheckPredictor) CurrentFrame() int64 { return p.frame }

// CurrentRangeIndex returns the index of the span containing CurrentFrame.
func (p *IntervalCheckPredictor) CurrentRangeIndex() int { return p.current }

// CurrentRange returns the span containing CurrentFrame.
func (p *IntervalCheckPredictor) CurrentRange() *DTRange { return &p.ranges[p.current] }

// CheckResult reports whether the check fires on CurrentFrame.
func (p *IntervalCheckPredictor) CheckResult() bool {
	return p.ranges[p.current].Predictor.CheckResult()
}

// CheckAt seeks to frame and returns its check result.
func (p *IntervalCheckPredictor) CheckAt(frame int64) (bool, error) {
	if err := p.SeekFrame(frame); err != nil {
		return false, err
	}
	return p.CheckResult(), nil
}

// PredictCheckResults yields the check result of every frame in
// [start, end). Frames below zero are skipped.
//
// # Description
//
// SeekFrame rejects negative frames only: every bounded span is far shorter
// than the range of a chain and the unbounded span has no chain. The
// sequence therefore covers [max(start, 0), end) unless the caller stops it.
// Should a seek fail anyway, the sequence ends before that frame and
// CheckAt on it reports the error.
func (p *IntervalCheckPredictor) PredictCheckResults(start, end int64) iter.Seq2[int64, bool] {
	return func(yield func(int64, bool) bool) {
		for f := max(start, 0); f < end; f++ {
			if err := p.SeekFrame(f); err != nil {
				return
			}
			if !yield(f, p.CheckResult()) {
				return
			}
		}
	}
}
