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

// =============================================================================
// Cycle Math
// =============================================================================
//
// A cycle models the progression x_t = t*delta - offset modulo interval. The
// cycle "hits" on tick t when x_t lands in [0, |delta|), i.e. when the
// progression crossed a multiple of interval during the tick. Consecutive
// hits are CycleLength or CycleLength+sign(ResidualDrift) ticks apart; which
// of the two applies is itself periodic and is modelled by the next cycle
// of the chain (see Descend).

var (
	ratOne = big.NewRat(1, 1)
	ratTwo = big.NewRat(2, 1)
)

func validateIntervalDelta(interval, delta *big.Rat) error {
	if interval.Sign() <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidInterval, interval.RatString())
	}
	if delta.Sign() == 0 {
		return ErrZeroDelta
	}
	return nil
}

// CycleLength returns round(interval/|delta|), or 2 when the ratio lies
// strictly between 1 and 2.
//
// # Description
//
// A length of 1 would make every tick a hit and leave the residual drift
// undefined, so ratios in (1, 2) are pinned to 2 (the residual drift is then
// negative).
func CycleLength(interval, delta *big.Rat) (int64, error) {
	if err := validateIntervalDelta(interval, delta); err != nil {
		return 0, err
	}
	return cycleLength(interval, delta), nil
}

func cycleLength(interval, delta *big.Rat) int64 {
	ratio := ratmath.Quo(interval, ratmath.Abs(delta))
	if ratio.Cmp(ratOne) > 0 && ratio.Cmp(ratTwo) < 0 {
		return 2
	}
	return ratmath.Round(ratio)
}

// ResidualDrift returns interval - CycleLength*|delta|. Zero terminates a
// chain.
func ResidualDrift(interval, delta *big.Rat) (*big.Rat, error) {
	if err := validateIntervalDelta(interval, delta); err != nil {
		return nil, err
	}
	return residualDrift(interval, delta), nil
}

func residualDrift(interval, delta *big.Rat) *big.Rat {
	return ratmath.Sub(interval, ratmath.MulInt(ratmath.Abs(delta), cycleLength(interval, delta)))
}

// BoundedOffset reduces offset modulo interval to the representative used
// for hit counting.
//
// # Outputs
//
// For delta > 0 the result lies in (-|delta|, interval-|delta|]; for
// delta < 0 it lies in (-interval, 0]. In both cases the first hit at or
// after tick 0 is at tick |ceil(result/|delta|)|.
func BoundedOffset(interval, delta, offset *big.Rat) (*big.Rat, error) {
	if err := validateIntervalDelta(interval, delta); err != nil {
		return nil, err
	}
	return boundedOffset(interval, delta, offset), nil
}

func boundedOffset(interval, delta, offset *big.Rat) *big.Rat {
	off := ratmath.RMod(offset, interval)
	if delta.Sign() > 0 {
		if ratmath.Sub(off, interval).Cmp(ratmath.Neg(ratmath.Abs(delta))) > 0 {
			off.Sub(off, interval)
		}
	} else if off.Sign() > 0 {
		off.Sub(off, interval)
	}
	return off
}

// CycleGroup returns the number of ticks before the first hit at or after
// tick 0.
//
// # Outputs
//
// The result g satisfies 0 <= g <= CycleLength and
// 0 <= g*delta - BoundedOffset < |delta|.
func CycleGroup(interval, delta, offset *big.Rat) (int64, error) {
	if err := validateIntervalDelta(interval, delta); err != nil {
		return 0, err
	}
	return cycleGroup(interval, delta, offset), nil
}

func cycleGroup(interval, delta, offset *big.Rat) int64 {
	g := ratmath.Ceil(ratmath.Quo(boundedOffset(interval, delta, offset), ratmath.Abs(delta)))
	if g < 0 {
		g = -g
	}
	return g
}

// BaseLength returns floor(threshold/|delta|): the number of ticks every
// window (range) check covers at least.
func BaseLength(threshold, delta *big.Rat) (int64, error) {
	if delta.Sign() == 0 {
		return 0, ErrZeroDelta
	}
	return ratmath.Floor(ratmath.Quo(threshold, ratmath.Abs(delta))), nil
}

// LengthOffset returns threshold mod |delta|. It becomes the threshold of
// the next cycle and decides which windows are one tick longer.
func LengthOffset(threshold, delta *big.Rat) (*big.Rat, error) {
	if delta.Sign() == 0 {
		return nil, ErrZeroDelta
	}
	return ratmath.Mod(threshold, ratmath.Abs(delta)), nil
}

// OffsetDrift returns -((delta*frames) mod interval), the correction that
// re-anchors an offset after frames frames advancing by delta each.
func OffsetDrift(interval, delta *big.Rat, frames int64) (*big.Rat, error) {
	if interval.Sign() <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInterval, interval.RatString())
	}
	return ratmath.Neg(ratmath.Mod(ratmath.MulInt(delta, frames), interval)), nil
}

// Descend performs one step of the signed Euclidean decomposition.
//
// # Description
//
// Tick s of the returned cycle stands for the gap that ends at the s-th hit
// (counted from the first hit at or after tick 0) of the input cycle. That
// tick is a hit exactly when the gap has length
// CycleLength + sign(ResidualDrift).
//
// # Outputs
//
//   - interval' = |delta|
//   - delta' = -sign(delta) * ResidualDrift
//   - offset' = BoundedOffset - sign(delta)*ResidualDrift when delta and the
//     residual drift share a sign, BoundedOffset otherwise.
//
// delta' is zero when the input cycle has no drift and |delta'| < |delta|
// otherwise. All values stay multiples of one rational unit, so repeated
// descent terminates for every rational input.
func Descend(interval, delta, offset *big.Rat) (nInterval, nDelta, nOffset *big.Rat, err error) {
	if err := validateIntervalDelta(interval, delta); err != nil {
		return nil, nil, nil, err
	}
	nInterval, nDelta, nOffset = descend(interval, delta, offset)
	return nInterval, nDelta, nOffset, nil
}

func descend(interval, delta, offset *big.Rat) (*big.Rat, *big.Rat, *big.Rat) {
	rd := residualDrift(interval, delta)
	off := boundedOffset(interval, delta, offset)
	if rd.Sign() == delta.Sign() {
		off = ratmath.Sub(off, ratmath.MulInt(rd, int64(delta.Sign())))
	}
	nDelta := ratmath.MulInt(rd, -int64(delta.Sign()))
	return ratmath.Abs(delta), nDelta, off
}
