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

import "errors"

var (
	// ErrInvalidInterval indicates a non-positive or non-finite interval.
	ErrInvalidInterval = errors.New("check interval must be positive and finite")

	// ErrInvalidOffset indicates a non-finite offset.
	ErrInvalidOffset = errors.New("check offset must be finite")

	// ErrNegativeDelta indicates a negative effective delta.
	ErrNegativeDelta = errors.New("effective delta must not be negative")

	// ErrNegativeFrame indicates a frame index or frame count below zero.
	ErrNegativeFrame = errors.New("frame must not be negative")
)
