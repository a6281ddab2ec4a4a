// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// =============================================================================
// Level Tests
// =============================================================================

func TestLevel_String(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{Level(42), "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := tt.level.String(); got != tt.want {
			t.Errorf("Level(%d).String() = %q, want %q", tt.level, got, tt.want)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name    string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{" INFO ", LevelInfo, false},
		{"", LevelInfo, false},
		{"Warning", LevelWarn, false},
		{"error", LevelError, false},
		{"verbose", LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.name)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, ErrUnknownLevel) {
			t.Errorf("ParseLevel(%q) error %v is not ErrUnknownLevel", tt.name, err)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestLevel_RoundTripsThroughSlog(t *testing.T) {
	for _, l := range []Level{LevelDebug, LevelInfo, LevelWarn, LevelError} {
		if got := fromSlogLevel(l.toSlogLevel()); got != l {
			t.Errorf("fromSlogLevel(%v.toSlogLevel()) = %v", l, got)
		}
	}
}

// =============================================================================
// Logger Tests
// =============================================================================

func TestLogger_WritesToOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelInfo, Service: "test", Output: &buf})

	logger.Debug("hidden")
	logger.Info("visible", "frame", 42)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug message written at info level: %s", out)
	}
	for _, want := range []string{"visible", "frame=42", "service=test"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q lacks %q", out, want)
		}
	}
}

func TestLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{JSON: true, Output: &buf})
	logger.Warn("mismatch", "frame", 7)

	if !strings.Contains(buf.String(), `"msg":"mismatch"`) {
		t.Errorf("expected JSON output, got %s", buf.String())
	}
}

func TestLogger_Quiet(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Quiet: true, Output: &buf})
	logger.Error("nothing")
	if buf.Len() != 0 {
		t.Errorf("quiet logger wrote %q", buf.String())
	}
}

func TestLogger_With(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Output: &buf}).With("run_id", "abc")
	logger.Info("started")
	if !strings.Contains(buf.String(), "run_id=abc") {
		t.Errorf("With attribute missing: %s", buf.String())
	}
	if logger.Slog() == nil {
		t.Error("Slog() returned nil")
	}
}

func TestLogger_LogDir(t *testing.T) {
	dir := t.TempDir()
	logger := New(Config{LogDir: dir, Service: "svc", Quiet: true})
	logger.Info("to file", "k", "v")

	path := logger.LogPath()
	if filepath.Dir(path) != dir || !strings.HasPrefix(filepath.Base(path), "svc_") {
		t.Fatalf("unexpected log path %q", path)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"msg":"to file"`) {
		t.Errorf("log file content %q", data)
	}
	if logger.LogPath() != "" {
		t.Error("LogPath() should be empty after Close")
	}
}

func TestLogger_LogDirFailureFallsBack(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, nil, 0600); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	logger := New(Config{LogDir: filepath.Join(blocker, "logs"), Output: &buf})
	if logger.LogPath() != "" {
		t.Error("expected no log file")
	}
	if !strings.Contains(buf.String(), "file logging disabled") {
		t.Errorf("missing fallback warning: %s", buf.String())
	}
}

func TestNop(t *testing.T) {
	logger := Nop()
	logger.Error("dropped")
	if err := logger.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if got := expandPath("~/logs"); got != filepath.Join(home, "logs") {
		t.Errorf("expandPath(~/logs) = %q", got)
	}
	if got := expandPath("/var/log"); got != "/var/log" {
		t.Errorf("expandPath(/var/log) = %q", got)
	}
}

// =============================================================================
// Exporter Tests
// =============================================================================

func TestBufferedExporter_ReceivesWarnings(t *testing.T) {
	exp := NewBufferedExporter()
	logger := New(Config{Level: LevelDebug, Quiet: true, Service: "svc", Exporter: exp})

	logger.Info("ignored")
	logger.With("offset", "0.05").WithGroup("check").Warn("slow seek", "frame", int64(9))
	logger.Error("failed")

	entries := exp.Entries()
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2: %+v", len(entries), entries)
	}

	first := entries[0]
	if first.Level != LevelWarn || first.Message != "slow seek" || first.Service != "svc" {
		t.Errorf("unexpected entry %+v", first)
	}
	if first.Attrs["offset"] != "0.05" {
		t.Errorf("offset attribute = %v", first.Attrs["offset"])
	}
	if first.Attrs["check.frame"] != int64(9) {
		t.Errorf("grouped frame attribute = %v", first.Attrs["check.frame"])
	}
	if entries[1].Level != LevelError {
		t.Errorf("second entry level = %v", entries[1].Level)
	}
}

type failingExporter struct{ NopExporter }

func (failingExporter) Flush(context.Context) error { return errors.New("flush failed") }

func TestLogger_CloseReportsExporterError(t *testing.T) {
	logger := New(Config{Quiet: true, Exporter: failingExporter{}})
	if err := logger.Close(); err == nil || !strings.Contains(err.Error(), "flush failed") {
		t.Errorf("Close() = %v, want flush error", err)
	}
}

func TestBufferedExporter_Concurrent(t *testing.T) {
	exp := NewBufferedExporter()
	logger := New(Config{Quiet: true, Exporter: exp})

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Warn("worker", "id", i)
		}()
	}
	wg.Wait()

	if got := len(exp.Entries()); got != 8 {
		t.Errorf("got %d entries, want 8", got)
	}
}

func TestMultiHandler_Enabled(t *testing.T) {
	h := &multiHandler{handlers: []slog.Handler{
		slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError}),
		slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelInfo}),
	}}
	if !h.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("info should be enabled by the second handler")
	}
	if h.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("debug should be disabled")
	}
}
