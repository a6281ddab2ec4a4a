// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package validate

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("intervalcheck.validate")

// =============================================================================
// Prometheus Metrics for Validation
// =============================================================================

var (
	// framesValidated counts frames compared against direct evaluation.
	// Labels: kind (dt_ranges, deep, skip)
	framesValidated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "intervalcheck",
		Subsystem: "validate",
		Name:      "frames_total",
		Help:      "Frames compared against direct evaluation",
	}, []string{"kind"})

	// mismatches counts failed comparisons.
	// Labels: kind (check, raw, range, dt_range)
	mismatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "intervalcheck",
		Subsystem: "validate",
		Name:      "mismatches_total",
		Help:      "Predictions that disagreed with direct evaluation",
	}, []string{"kind"})

	// rangeTransitions counts exponent block transitions checked exactly.
	rangeTransitions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "intervalcheck",
		Subsystem: "validate",
		Name:      "range_transitions_total",
		Help:      "Effective delta range transitions verified",
	})

	// runDuration measures validation runs.
	// Labels: kind (dt_ranges, hazard_checks), status (ok, mismatch, error)
	runDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "intervalcheck",
		Subsystem: "validate",
		Name:      "run_duration_seconds",
		Help:      "Duration of validation runs",
		Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 15, 60, 300},
	}, []string{"kind", "status"})
)

func runStatus(err error) string {
	switch {
	case err == nil:
		return "ok"
	case isMismatch(err):
		return "mismatch"
	default:
		return "error"
	}
}
