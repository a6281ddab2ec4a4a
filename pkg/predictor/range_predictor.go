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
	"fmt"
	"math/big"

	"github.com/AleutianAI/IntervalCheck/pkg/cycle"
	"github.com/AleutianAI/IntervalCheck/pkg/ratmath"
)

// DTRangePredictor predicts the window check for one span of frames that
// share a single effective delta.
//
// # Description
//
// Frames are counted from the start of the span. The check fires on frame f
// when RMod(f*delta - offset, interval) < threshold. The predictor holds the
// cycle chain of that check and moves it forward on demand; moving backwards
// resets the chain and replays from frame 0.
//
// # Thread Safety
//
// Not safe for concurrent use.
type DTRangePredictor struct {
	offset    *big.Rat
	interval  *big.Rat
	delta     *big.Rat
	threshold *big.Rat

	alwaysTrue    bool
	constantCheck bool
	chain         *cycle.Chain
	frame         int64
}

// NewDTRangePredictor builds the predictor for one span.
//
// # Inputs
//
//   - offset: running offset at the first frame of the span.
//   - interval: check interval, positive.
//   - effectiveDelta: per-frame increment, non-negative.
//   - threshold: window width; the nominal step for interval checks.
//
// # Outputs
//
// A predictor positioned at frame 0, or ErrInvalidInterval/ErrNegativeDelta.
func NewDTRangePredictor(offset, interval, effectiveDelta, threshold *big.Rat) (*DTRangePredictor, error) {
	if interval.Sign() <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInterval, interval.RatString())
	}
	if effectiveDelta.Sign() < 0 {
		return nil, fmt.Errorf("%w: %s", ErrNegativeDelta, effectiveDelta.RatString())
	}

	p := &DTRangePredictor{
		offset:    ratmath.Clone(offset),
		interval:  ratmath.Clone(interval),
		delta:     ratmath.Clone(effectiveDelta),
		threshold: ratmath.Clone(threshold),
	}

	if threshold.Cmp(interval) >= 0 {
		p.alwaysTrue = true
		return p, nil
	}

	d := ratmath.RMod(effectiveDelta, interval)
	if d.Sign() == 0 {
		p.constantCheck = ratmath.RMod(ratmath.Neg(offset), interval).Cmp(threshold) < 0
		return p, nil
	}

	chain, err := cycle.NewChain(offset, interval, d, threshold)
	if err != nil {
		return nil, fmt.Errorf("building cycle chain: %w", err)
	}
	p.chain = chain
	return p, nil
}

// Offset returns the running offset at frame 0 of the span.
func (p *DTRangePredictor) Offset() *big.Rat { return ratmath.Clone(p.offset) }

// Delta returns the effective delta of the span.
func (p *DTRangePredictor) Delta() *big.Rat { return ratmath.Clone(p.delta) }

// Reset moves back to frame 0.
func (p *DTRangePredictor) Reset() {
	if p.chain != nil {
		p.chain.Reset()
	}
	p.frame = 0
}

// AdvanceFrames moves forward by frames.
func (p *DTRangePredictor) AdvanceFrames(frames int64) error {
	if frames < 0 {
		return fmt.Errorf("%w: advance by %d", ErrNegativeFrame, frames)
	}
	if p.chain != nil {
		if _, err := p.chain.AdvanceTicks(frames); err != nil {
			return err
		}
	}
	p.frame += frames
	return nil
}

// CurrentFrame returns the frame within the span.
func (p *DTRangePredictor) CurrentFrame() int64 { return p.frame }

// SetCurrentFrame moves to frame, resetting first when frame lies behind the
// current one.
func (p *DTRangePredictor) SetCurrentFrame(frame int64) error {
	if frame < 0 {
		return fmt.Errorf("%w: %d", ErrNegativeFrame, frame)
	}
	if frame < p.frame {
		p.Reset()
	}
	return p.AdvanceFrames(frame - p.frame)
}

// CheckResult reports whether the check fires on the current frame.
func (p *DTRangePredictor) CheckResult() bool {
	switch {
	case p.alwaysTrue:
		return true
	case p.chain == nil:
		return p.constantCheck
	default:
		return p.chain.Head().CurRangeCheckResult()
	}
}

// Cycles returns the number of chain levels; zero when the check does not
// depend on the frame.
func (p *DTRangePredictor) Cycles() int {
	if p.chain == nil {
		return 0
	}
	return p.chain.Len()
}

// Cycle returns chain level i.
func (p *DTRangePredictor) Cycle(i int) *cycle.Cycle { return p.chain.Cycle(i) }
