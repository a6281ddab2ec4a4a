// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package floatbits decomposes and builds IEEE-754 binary32 values.
package floatbits

import (
	"errors"
	"fmt"
	"math"
	"math/bits"
)

const (
	// MantissaBits is the number of explicitly stored mantissa bits.
	MantissaBits = 23

	// ExponentBits is the width of the biased exponent field.
	ExponentBits = 8

	// ExponentBias is subtracted from the stored exponent of normal numbers.
	ExponentBias = 127

	// ImplicitBit is the leading one of a normal number's significand.
	ImplicitBit = 1 << MantissaBits

	mantissaMask = ImplicitBit - 1
	exponentMask = 1<<ExponentBits - 1
)

var (
	// ErrFieldRange is returned when a sign, exponent or mantissa does not
	// fit its bit field.
	ErrFieldRange = errors.New("float field out of range")

	// ErrInexact is returned when normalizing a mantissa would drop set bits.
	ErrInexact = errors.New("mantissa cannot be represented exactly")
)

// Mantissa returns the 23 stored mantissa bits of f.
func Mantissa(f float32) int32 {
	return int32(math.Float32bits(f) & mantissaMask)
}

// Exponent returns the biased exponent of f.
func Exponent(f float32) int32 {
	return int32((math.Float32bits(f) >> MantissaBits) & exponentMask)
}

// SignBit returns 1 for negative values (including -0), 0 otherwise.
func SignBit(f float32) int32 {
	return int32(math.Float32bits(f) >> (MantissaBits + ExponentBits))
}

// Significand returns the mantissa of a normal f with its implicit bit set.
func Significand(f float32) int32 {
	return Mantissa(f) | ImplicitBit
}

// IsNormal reports whether f is a normal number (neither zero, subnormal,
// infinite nor NaN).
func IsNormal(f float32) bool {
	e := Exponent(f)
	return e > 0 && e < exponentMask
}

// Build assembles a float32 from its raw fields.
func Build(sign, exp, mant int32) (float32, error) {
	if sign < 0 || sign > 1 {
		return 0, fmt.Errorf("%w: sign %d", ErrFieldRange, sign)
	}
	if exp < 0 || exp > exponentMask {
		return 0, fmt.Errorf("%w: exponent %d", ErrFieldRange, exp)
	}
	if mant < 0 || mant > mantissaMask {
		return 0, fmt.Errorf("%w: mantissa %#x", ErrFieldRange, mant)
	}
	b := uint32(sign)<<(MantissaBits+ExponentBits) | uint32(exp)<<MantissaBits | uint32(mant)
	return math.Float32frombits(b), nil
}

// BuildNormalized builds sign * mant * 2^(exp - ExponentBias - MantissaBits).
//
// # Description
//
// Unlike Build, mant is a full significand whose leading one may sit at any
// bit position. It is shifted so the leading one lands on ImplicitBit and the
// exponent is adjusted by the same amount. Shifting right must not drop any
// set bit, otherwise ErrInexact is returned.
//
// # Inputs
//
//   - sign: 0 or 1.
//   - exp: biased exponent that applies when the leading one is at ImplicitBit.
//   - mant: positive significand.
//
// # Example
//
//	// 3 ulps of a value with exponent e, as a normal float32:
//	f, err := BuildNormalized(0, e, 3)
func BuildNormalized(sign, exp, mant int32) (float32, error) {
	if mant <= 0 {
		return 0, fmt.Errorf("%w: significand %d must be positive", ErrFieldRange, mant)
	}
	shift := int32(bits.Len32(uint32(mant))-1) - MantissaBits
	if shift <= 0 {
		return Build(sign, exp+shift, (mant<<-shift)&mantissaMask)
	}
	if mant&(1<<shift-1) != 0 {
		return 0, fmt.Errorf("%w: significand %#x shifted by %d", ErrInexact, mant, shift)
	}
	return Build(sign, exp+shift, (mant>>shift)&mantissaMask)
}

// ULPRemainder returns the part of step's significand that lies below the ulp
// of a value shift exponent blocks above step, together with half that ulp.
//
// # Description
//
// Adding step to a value whose exponent is Exponent(step)+shift rounds away
// the low shift bits of step's significand. When the remainder equals exactly
// half an ulp the addition is a round-half-to-even tie and its result depends
// on the parity of the other operand.
//
// # Outputs
//
//   - rem: the low shift bits of step's significand.
//   - half: 1 << (shift-1), or 0 when shift is 0.
func ULPRemainder(step float32, shift int32) (rem, half uint32) {
	if shift <= 0 {
		return 0, 0
	}
	if shift > MantissaBits+1 {
		return uint32(Significand(step)), 1 << (MantissaBits + 1)
	}
	sig := uint32(Significand(step))
	return sig & (1<<uint32(shift) - 1), 1 << uint32(shift-1)
}

// IsTie reports whether adding step to a value shift exponent blocks above it
// rounds a tie.
func IsTie(step float32, shift int32) bool {
	rem, half := ULPRemainder(step, shift)
	return half != 0 && rem == half
}
