// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package telemetry wires tracing and metric export for the CLI.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const (
	// ExporterNone disables tracing.
	ExporterNone = "none"

	// ExporterStdout prints finished spans as JSON.
	ExporterStdout = "stdout"
)

var (
	// ErrNilContext is returned when Init is called without a context.
	ErrNilContext = errors.New("telemetry: nil context")

	// ErrUnknownExporter is returned for unsupported exporter names.
	ErrUnknownExporter = errors.New("telemetry: unknown exporter")
)

// Config controls telemetry behavior.
type Config struct {
	// ServiceName identifies this process in spans.
	ServiceName string `yaml:"service_name"`

	// ServiceVersion is the version string reported in spans.
	ServiceVersion string `yaml:"service_version"`

	// TraceExporter is "none" or "stdout".
	TraceExporter string `yaml:"trace_exporter"`

	// TraceWriter receives stdout spans. Defaults to os.Stderr so span
	// output never mixes with command output.
	TraceWriter io.Writer `yaml:"-"`
}

// DefaultConfig returns a configuration with tracing disabled.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "intervalcheck",
		ServiceVersion: "dev",
		TraceExporter:  ExporterNone,
	}
}

// Init installs the global tracer provider.
//
// Description:
//
//	With TraceExporter "none" the global no-op provider stays in place and
//	the returned shutdown does nothing. With "stdout" spans are batched and
//	printed to TraceWriter.
//
// Inputs:
//
//	ctx - Context for initialization. Must not be nil.
//	cfg - Telemetry configuration.
//
// Outputs:
//
//	shutdown - Flushes and stops the provider. Always non-nil on success.
//	error - ErrNilContext, ErrUnknownExporter or an exporter error.
//
// Thread Safety: Call once at startup.
func Init(ctx context.Context, cfg Config) (shutdown func(context.Context) error, err error) {
	if ctx == nil {
		return nil, ErrNilContext
	}

	noop := func(context.Context) error { return nil }
	switch cfg.TraceExporter {
	case "", ExporterNone:
		return noop, nil
	case ExporterStdout:
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownExporter, cfg.TraceExporter)
	}

	w := cfg.TraceWriter
	if w == nil {
		w = os.Stderr
	}
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("create exporter: %w", err)
	}

	res := resource.NewWithAttributes(
		"",
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", cfg.ServiceVersion),
	)
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

// WriteMetrics writes every metric of gatherer to path in the Prometheus
// text format, for collection by a node exporter textfile collector. A nil
// gatherer means the default registry.
func WriteMetrics(path string, gatherer prometheus.Gatherer) error {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	if err := prometheus.WriteToTextfile(path, gatherer); err != nil {
		return fmt.Errorf("write metrics to %s: %w", path, err)
	}
	return nil
}
