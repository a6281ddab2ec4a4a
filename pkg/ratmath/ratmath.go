// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ratmath provides exact rational helpers on top of math/big.
//
// # Description
//
// Every value produced by this package is a fresh *big.Rat; inputs are never
// modified. Callers may therefore share rationals freely between predictors
// as long as they treat them as immutable.
//
// Integer-valued results (Floor, Ceil, Round) are returned as int64. In this
// module every such quotient is bounded by a frame or tick count, so a result
// that does not fit in an int64 indicates a logic defect and panics.
//
// # Thread Safety
//
// All functions are pure and safe for concurrent use.
package ratmath

import (
	"fmt"
	"math"
	"math/big"
	"strings"
)

var (
	bigOne  = big.NewInt(1)
	ratHalf = big.NewRat(1, 2)
)

// Zero returns a new rational equal to zero.
func Zero() *big.Rat { return new(big.Rat) }

// FromInt returns n as a rational.
func FromInt(n int64) *big.Rat { return new(big.Rat).SetInt64(n) }

// FromFloat32 returns the exact value of a finite float32.
//
// # Description
//
// The conversion is exact: a float32 always has a finite binary expansion.
// NaN and infinities have no rational value and cause a panic; callers must
// validate user input before converting it.
func FromFloat32(f float32) *big.Rat {
	if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
		panic(fmt.Sprintf("ratmath: cannot convert %v to a rational", f))
	}
	return new(big.Rat).SetFloat64(float64(f))
}

// Clone returns a copy of x.
func Clone(x *big.Rat) *big.Rat { return new(big.Rat).Set(x) }

// Add returns a + b.
func Add(a, b *big.Rat) *big.Rat { return new(big.Rat).Add(a, b) }

// Sub returns a - b.
func Sub(a, b *big.Rat) *big.Rat { return new(big.Rat).Sub(a, b) }

// Mul returns a * b.
func Mul(a, b *big.Rat) *big.Rat { return new(big.Rat).Mul(a, b) }

// Quo returns a / b. It panics if b is zero.
func Quo(a, b *big.Rat) *big.Rat { return new(big.Rat).Quo(a, b) }

// MulInt returns x * n.
func MulInt(x *big.Rat, n int64) *big.Rat { return new(big.Rat).Mul(x, FromInt(n)) }

// Neg returns -x.
func Neg(x *big.Rat) *big.Rat { return new(big.Rat).Neg(x) }

// Abs returns |x|.
func Abs(x *big.Rat) *big.Rat { return new(big.Rat).Abs(x) }

// Sign returns -1, 0 or +1.
func Sign(x *big.Rat) int { return x.Sign() }

// Cmp compares a and b.
func Cmp(a, b *big.Rat) int { return a.Cmp(b) }

// Equal reports whether a == b exactly.
func Equal(a, b *big.Rat) bool { return a.Cmp(b) == 0 }

// Less reports whether a < b.
func Less(a, b *big.Rat) bool { return a.Cmp(b) < 0 }

// floorInt returns floor(x) as a big.Int.
func floorInt(x *big.Rat) *big.Int {
	// big.Int.Div is Euclidean; with a positive denominator that is floor.
	return new(big.Int).Div(x.Num(), x.Denom())
}

func toInt64(i *big.Int) int64 {
	if !i.IsInt64() {
		panic(fmt.Sprintf("ratmath: %s overflows int64", i.String()))
	}
	return i.Int64()
}

// Floor returns the greatest integer <= x.
func Floor(x *big.Rat) int64 { return toInt64(floorInt(x)) }

// Ceil returns the least integer >= x.
func Ceil(x *big.Rat) int64 {
	f := floorInt(x)
	if !x.IsInt() {
		f.Add(f, bigOne)
	}
	return toInt64(f)
}

// Round returns x rounded to the nearest integer, halves away from zero.
func Round(x *big.Rat) int64 {
	if x.Sign() < 0 {
		return -Round(Neg(x))
	}
	return Floor(new(big.Rat).Add(x, ratHalf))
}

// Mod returns the truncated remainder of x / m; the result has the sign of x.
//
// # Description
//
// Mod mirrors the remainder operator of integer arithmetic: x - m*trunc(x/m).
// Use RMod when a representative in [0, |m|) is required.
func Mod(x, m *big.Rat) *big.Rat {
	q := new(big.Rat).Quo(x, m)
	t := new(big.Int).Quo(q.Num(), q.Denom()) // truncates toward zero
	return new(big.Rat).Sub(x, new(big.Rat).Mul(m, new(big.Rat).SetInt(t)))
}

// RMod returns the positive remainder of x / m, in [0, |m|).
func RMod(x, m *big.Rat) *big.Rat {
	r := Mod(x, m)
	if r.Sign() < 0 {
		r.Add(r, Abs(m))
	}
	return r
}

// Format renders x as a fixed-point decimal with the given number of digits.
//
// # Description
//
// When signed is true a '+' is prefixed to non-negative values so columns of
// signed deltas line up. Digits beyond the requested precision are rounded
// half away from zero by big.Rat.FloatString.
func Format(x *big.Rat, digits int, signed bool) string {
	s := x.FloatString(digits)
	if signed && x.Sign() >= 0 {
		return "+" + s
	}
	return s
}

// FormatTrim renders x like Format but removes trailing zeros after the
// decimal point.
func FormatTrim(x *big.Rat, digits int) string {
	s := x.FloatString(digits)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	return s
}
