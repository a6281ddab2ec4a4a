// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ratmath

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFloorCeilRound(t *testing.T) {
	tests := []struct {
		name               string
		x                  *big.Rat
		floor, ceil, round int64
	}{
		{"positive fraction", big.NewRat(7, 2), 3, 4, 4},
		{"negative fraction", big.NewRat(-7, 2), -4, -3, -4},
		{"integer", big.NewRat(5, 1), 5, 5, 5},
		{"small positive", big.NewRat(1, 3), 0, 1, 0},
		{"small negative", big.NewRat(-1, 3), -1, 0, 0},
		{"below half", big.NewRat(149, 100), 1, 2, 1},
		{"zero", new(big.Rat), 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.floor, Floor(tt.x))
			assert.Equal(t, tt.ceil, Ceil(tt.x))
			assert.Equal(t, tt.round, Round(tt.x))
		})
	}
}

func TestModAndRMod(t *testing.T) {
	tests := []struct {
		name      string
		x, m      *big.Rat
		mod, rmod *big.Rat
	}{
		{"positive", big.NewRat(7, 1), big.NewRat(3, 1), big.NewRat(1, 1), big.NewRat(1, 1)},
		{"negative dividend", big.NewRat(-7, 1), big.NewRat(3, 1), big.NewRat(-1, 1), big.NewRat(2, 1)},
		{"fractions", big.NewRat(-1, 10), big.NewRat(1, 4), big.NewRat(-1, 10), big.NewRat(3, 20)},
		{"exact multiple", big.NewRat(-3, 4), big.NewRat(1, 4), new(big.Rat), new(big.Rat)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Zero(t, Mod(tt.x, tt.m).Cmp(tt.mod), "Mod = %s", Mod(tt.x, tt.m))
			assert.Zero(t, RMod(tt.x, tt.m).Cmp(tt.rmod), "RMod = %s", RMod(tt.x, tt.m))
		})
	}
}

func TestFromFloat32IsExact(t *testing.T) {
	f := float32(0.05)
	r := FromFloat32(f)
	back, exact := r.Float32()
	assert.True(t, exact)
	assert.Equal(t, f, back)
	assert.False(t, Equal(r, big.NewRat(1, 20)), "0.05f is not exactly 1/20")
}

func TestFromFloat32PanicsOnNaN(t *testing.T) {
	var zero float32
	assert.Panics(t, func() { FromFloat32(zero / zero) })
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "+0.250", Format(big.NewRat(1, 4), 3, true))
	assert.Equal(t, "-0.250", Format(big.NewRat(-1, 4), 3, true))
	assert.Equal(t, "0.25", FormatTrim(big.NewRat(1, 4), 10))
	assert.Equal(t, "2", FormatTrim(big.NewRat(2, 1), 4))
}

func TestInputsAreNotModified(t *testing.T) {
	a := big.NewRat(1, 3)
	b := big.NewRat(1, 6)
	_ = Add(a, b)
	_ = RMod(a, b)
	_ = Abs(Neg(a))
	assert.Zero(t, a.Cmp(big.NewRat(1, 3)))
	assert.Zero(t, b.Cmp(big.NewRat(1, 6)))
}
