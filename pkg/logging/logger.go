// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package logging provides structured logging for the IntervalCheck tools.
//
// Records go to stderr (text or JSON), optionally to a daily JSON file
// under a log directory, and optionally to a LogExporter that collects
// warnings and errors, for example to summarize a validation run.
//
// # Basic Usage
//
//	logger := logging.Default()
//	logger.Info("validation started", "run_id", runID)
//
// # File Logging
//
//	logger := logging.New(logging.Config{
//	    Level:   logging.LevelDebug,
//	    LogDir:  "~/.intervalcheck/logs",
//	    Service: "intervalcheck",
//	})
//	defer logger.Close()
//
// # Thread Safety
//
// Logger is safe for concurrent use.
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// =============================================================================
// Log Levels
// =============================================================================

// Level is a log severity. Debug < Info < Warn < Error.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns "DEBUG", "INFO", "WARN", "ERROR" or "UNKNOWN".
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l Level) toSlogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func fromSlogLevel(l slog.Level) Level {
	switch {
	case l >= slog.LevelError:
		return LevelError
	case l >= slog.LevelWarn:
		return LevelWarn
	case l >= slog.LevelInfo:
		return LevelInfo
	default:
		return LevelDebug
	}
}

// ErrUnknownLevel is returned by ParseLevel for unrecognized names.
var ErrUnknownLevel = errors.New("unknown log level")

// ParseLevel converts a case-insensitive level name from configuration.
// An empty name means LevelInfo.
func ParseLevel(name string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("%w: %q", ErrUnknownLevel, name)
	}
}

// =============================================================================
// Configuration
// =============================================================================

// Config configures a Logger. The zero value logs Info and above to stderr
// as text.
type Config struct {
	// Level is the minimum level written to any destination.
	Level Level

	// LogDir enables a JSON log file "{Service}_{YYYY-MM-DD}.log" in this
	// directory. A leading ~ expands to the home directory.
	LogDir string

	// Service is attached to every record as the "service" attribute.
	Service string

	// JSON switches the console output to JSON.
	JSON bool

	// Quiet disables console output.
	Quiet bool

	// Output replaces stderr as the console destination.
	Output io.Writer

	// Exporter receives every record at Warn and above.
	Exporter LogExporter
}

// =============================================================================
// Exporters
// =============================================================================

// LogExporter receives warning and error records.
type LogExporter interface {
	// Export is called synchronously for each record; it must not block.
	Export(ctx context.Context, entry LogEntry) error

	// Flush delivers buffered entries. Called by Logger.Close.
	Flush(ctx context.Context) error

	// Close releases resources. Called by Logger.Close after Flush.
	Close() error
}

// LogEntry is one exported record.
type LogEntry struct {
	Timestamp time.Time
	Level     Level
	Message   string
	Service   string
	Attrs     map[string]any
}

// NopExporter discards everything.
type NopExporter struct{}

func (NopExporter) Export(context.Context, LogEntry) error { return nil }
func (NopExporter) Flush(context.Context) error            { return nil }
func (NopExporter) Close() error                           { return nil }

var _ LogExporter = NopExporter{}

// BufferedExporter keeps entries in memory. The validator uses it to list
// the warnings of a run at the end.
type BufferedExporter struct {
	mu      sync.Mutex
	entries []LogEntry
}

// NewBufferedExporter returns an empty BufferedExporter.
func NewBufferedExporter() *BufferedExporter {
	return &BufferedExporter{entries: make([]LogEntry, 0, 16)}
}

func (e *BufferedExporter) Export(_ context.Context, entry LogEntry) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.entries = append(e.entries, entry)
	return nil
}

func (e *BufferedExporter) Flush(context.Context) error { return nil }
func (e *BufferedExporter) Close() error                { return nil }

// Entries returns a copy of the collected entries.
func (e *BufferedExporter) Entries() []LogEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]LogEntry, len(e.entries))
	copy(out, e.entries)
	return out
}

var _ LogExporter = (*BufferedExporter)(nil)

// =============================================================================
// Logger
// =============================================================================

// Logger wraps slog.Logger with file output and export.
//
// Call Close when done to sync the log file and flush the exporter.
type Logger struct {
	slog   *slog.Logger
	config Config
	file   *os.File
	mu     *sync.Mutex
}

// New creates a Logger. File logging failures fall back to console-only
// logging and are reported once on the console.
func New(config Config) *Logger {
	opts := &slog.HandlerOptions{Level: config.Level.toSlogLevel()}
	logger := &Logger{config: config, mu: &sync.Mutex{}}

	var handlers []slog.Handler
	if !config.Quiet {
		out := config.Output
		if out == nil {
			out = os.Stderr
		}
		if config.JSON {
			handlers = append(handlers, slog.NewJSONHandler(out, opts))
		} else {
			handlers = append(handlers, slog.NewTextHandler(out, opts))
		}
	}

	var fileErr error
	if config.LogDir != "" {
		logger.file, fileErr = openLogFile(config.LogDir, config.Service)
		if fileErr == nil {
			handlers = append(handlers, slog.NewJSONHandler(logger.file, opts))
		}
	}

	if config.Exporter != nil {
		handlers = append(handlers, &exportHandler{
			exporter: config.Exporter,
			service:  config.Service,
			minLevel: max(config.Level, LevelWarn),
		})
	}

	var handler slog.Handler
	switch len(handlers) {
	case 0:
		handler = slog.NewTextHandler(io.Discard, opts)
	case 1:
		handler = handlers[0]
	default:
		handler = &multiHandler{handlers: handlers}
	}
	if config.Service != "" {
		handler = handler.WithAttrs([]slog.Attr{slog.String("service", config.Service)})
	}

	logger.slog = slog.New(handler)
	if fileErr != nil {
		logger.Warn("file logging disabled", "dir", config.LogDir, "error", fileErr)
	}
	return logger
}

// Default returns an Info logger writing text to stderr.
func Default() *Logger {
	return New(Config{Level: LevelInfo, Service: "intervalcheck"})
}

// Nop returns a logger that writes nothing.
func Nop() *Logger {
	return New(Config{Quiet: true})
}

func openLogFile(dir, service string) (*os.File, error) {
	dir = expandPath(dir)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	if service == "" {
		service = "intervalcheck"
	}
	name := fmt.Sprintf("%s_%s.log", service, time.Now().Format("2006-01-02"))
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

func (l *Logger) Debug(msg string, args ...any) { l.slog.Debug(msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.slog.Info(msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.slog.Warn(msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.slog.Error(msg, args...) }

// With returns a Logger that adds args to every record. The returned
// logger shares the file and exporter; close only the root logger.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{slog: l.slog.With(args...), config: l.config, file: l.file, mu: l.mu}
}

// WithGroup returns a Logger that nests subsequent attributes under name.
func (l *Logger) WithGroup(name string) *Logger {
	return &Logger{slog: l.slog.WithGroup(name), config: l.config, file: l.file, mu: l.mu}
}

// Slog returns the underlying slog.Logger.
func (l *Logger) Slog() *slog.Logger { return l.slog }

// LogPath returns the path of the log file, or "" without file logging.
func (l *Logger) LogPath() string {
	if l.file == nil {
		return ""
	}
	return l.file.Name()
}

// Close flushes the exporter and closes the log file. It returns the first
// error encountered.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var errs []error
	if exp := l.config.Exporter; exp != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := exp.Flush(ctx); err != nil {
			errs = append(errs, fmt.Errorf("flush exporter: %w", err))
		}
		if err := exp.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close exporter: %w", err))
		}
	}
	if l.file != nil {
		if err := l.file.Sync(); err != nil {
			errs = append(errs, fmt.Errorf("sync log file: %w", err))
		}
		if err := l.file.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close log file: %w", err))
		}
		l.file = nil
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// =============================================================================
// Handlers
// =============================================================================

// multiHandler fans records out to several handlers.
type multiHandler struct {
	handlers []slog.Handler
}

func (h *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, r.Level) {
			if err := handler.Handle(ctx, r.Clone()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithAttrs(attrs)
	}
	return &multiHandler{handlers: handlers}
}

func (h *multiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithGroup(name)
	}
	return &multiHandler{handlers: handlers}
}

// exportHandler turns records into LogEntry values for an exporter.
// Groups are flattened into dotted keys.
type exportHandler struct {
	exporter LogExporter
	service  string
	minLevel Level
	attrs    []slog.Attr
	prefix   string
}

func (h *exportHandler) Enabled(_ context.Context, level slog.Level) bool {
	return fromSlogLevel(level) >= h.minLevel
}

func (h *exportHandler) Handle(ctx context.Context, r slog.Record) error {
	attrs := make(map[string]any, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		attrs[a.Key] = a.Value.Resolve().Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		attrs[h.prefix+a.Key] = a.Value.Resolve().Any()
		return true
	})
	_ = h.exporter.Export(ctx, LogEntry{
		Timestamp: r.Time,
		Level:     fromSlogLevel(r.Level),
		Message:   r.Message,
		Service:   h.service,
		Attrs:     attrs,
	})
	return nil
}

func (h *exportHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append([]slog.Attr(nil), h.attrs...)
	for _, a := range attrs {
		a.Key = h.prefix + a.Key
		next.attrs = append(next.attrs, a)
	}
	return &next
}

func (h *exportHandler) WithGroup(name string) slog.Handler {
	next := *h
	next.prefix = h.prefix + name + "."
	return &next
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
