// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validate checks the effective delta table and the interval check
// predictor against direct float32 accumulation.
//
// # Description
//
// The oracle replays the accumulator frame by frame, exactly as a
// simulation would, and evaluates the check on every frame. Deep validation
// compares every frame and every chain level; skip validation seeks the
// predictor to randomly chosen frames so that long advances are exercised.
// Several offsets can be validated concurrently.
//
// # Thread Safety
//
// A Validator may be shared by goroutines; each run builds its own
// predictor. The Progress callback may be invoked concurrently by
// ValidateOffsets.
package validate

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/AleutianAI/IntervalCheck/pkg/effdt"
	"github.com/AleutianAI/IntervalCheck/pkg/logging"
	"github.com/AleutianAI/IntervalCheck/pkg/predictor"
	"github.com/AleutianAI/IntervalCheck/pkg/ratmath"
)

// Mode selects the validation strategy of ValidateChecks.
type Mode uint8

const (
	// ModeDeep compares every frame and every chain level.
	ModeDeep Mode = 1 << iota

	// ModeSkip compares randomly chosen frames reached by seeking.
	ModeSkip

	// ModeBoth runs deep validation, then skip validation.
	ModeBoth = ModeDeep | ModeSkip
)

// String implements fmt.Stringer.
func (m Mode) String() string {
	switch m {
	case ModeDeep:
		return "deep"
	case ModeSkip:
		return "skip"
	case ModeBoth:
		return "deep+skip"
	default:
		return "none"
	}
}

const (
	// DefaultMaxFrames bounds check validation runs.
	DefaultMaxFrames int64 = 1_000_000

	// DefaultSkipRate is the probability that skip validation checks a
	// frame.
	DefaultSkipRate = 0.001

	// cancelCheckMask sets how often long walks look at the context.
	cancelCheckMask = 1<<14 - 1
)

// Progress reports how far a run has come.
type Progress struct {
	RunID string
	Kind  string
	Frame int64
	Total int64
}

// Result summarizes a successful run.
type Result struct {
	RunID    string
	Kind     string
	Frames   int64
	Compared int64
	Fired    int64
	Duration time.Duration
}

// =============================================================================
// Validator
// =============================================================================

// Validator runs validations with shared settings.
type Validator struct {
	logger      *logging.Logger
	tracer      trace.Tracer
	progress    func(Progress)
	throttle    *rate.Sometimes
	step        float32
	seed        uint64
	maxFrames   int64
	skipRate    float64
	parallelism int
}

// ValidatorOption configures a Validator.
type ValidatorOption func(*Validator)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *logging.Logger) ValidatorOption {
	return func(v *Validator) { v.logger = l }
}

// WithTracer overrides the tracer.
func WithTracer(t trace.Tracer) ValidatorOption {
	return func(v *Validator) { v.tracer = t }
}

// WithProgress installs a progress callback, invoked at most every interval.
func WithProgress(fn func(Progress), interval time.Duration) ValidatorOption {
	return func(v *Validator) {
		v.progress = fn
		v.throttle = &rate.Sometimes{Interval: interval}
	}
}

// WithStep sets the nominal step. Defaults to predictor.DefaultStep.
func WithStep(step float32) ValidatorOption {
	return func(v *Validator) { v.step = step }
}

// WithSeed seeds skip validation.
func WithSeed(seed uint64) ValidatorOption {
	return func(v *Validator) { v.seed = seed }
}

// WithMaxFrames bounds the number of frames per run. For range validation
// zero means "until the accumulator freezes".
func WithMaxFrames(n int64) ValidatorOption {
	return func(v *Validator) { v.maxFrames = n }
}

// WithSkipRate sets the fraction of frames checked by skip validation.
func WithSkipRate(p float64) ValidatorOption {
	return func(v *Validator) { v.skipRate = p }
}

// WithParallelism bounds concurrent runs in ValidateOffsets.
func WithParallelism(n int) ValidatorOption {
	return func(v *Validator) { v.parallelism = n }
}

// NewValidator creates a Validator.
func NewValidator(opts ...ValidatorOption) *Validator {
	v := &Validator{
		logger:      logging.Nop(),
		tracer:      tracer,
		step:        predictor.DefaultStep,
		seed:        1,
		maxFrames:   DefaultMaxFrames,
		skipRate:    DefaultSkipRate,
		parallelism: 4,
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.parallelism < 1 {
		v.parallelism = 1
	}
	return v
}

func (v *Validator) report(p Progress) {
	if v.progress == nil {
		return
	}
	v.throttle.Do(func() { v.progress(p) })
}

func isMismatch(err error) bool { return errors.Is(err, ErrMismatch) }

func (v *Validator) finish(span trace.Span, kind string, start time.Time, err error) {
	runDuration.WithLabelValues(kind, runStatus(err)).Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetStatus(codes.Ok, "")
}

// =============================================================================
// Range Validation
// =============================================================================

// ValidateRanges walks the accumulator frame by frame and checks that the
// effective delta table describes every increment: start values, constant
// effective deltas inside ranges, exact transition deltas, and a frozen
// final range.
func (v *Validator) ValidateRanges(ctx context.Context) (res Result, err error) {
	runID := uuid.NewString()
	log := v.logger.With("run_id", runID, "kind", "dt_ranges")
	ctx, span := v.tracer.Start(ctx, "validate.Ranges",
		trace.WithAttributes(
			attribute.String("run_id", runID),
			attribute.Float64("step", float64(v.step)),
			attribute.Int64("max_frames", v.maxFrames),
		),
	)
	defer span.End()
	start := time.Now()
	defer func() { v.finish(span, "dt_ranges", start, err) }()

	res = Result{RunID: runID, Kind: "dt_ranges"}
	ranges, err := effdt.Collect(v.step)
	if err != nil {
		return res, fmt.Errorf("enumerate ranges: %w", err)
	}
	log.Info("validating ranges", "ranges", len(ranges))

	idx := 0
	frame := int64(-1)
	var prev float32
	for acc := range AccumulatorValues(v.step) {
		frame++
		if v.maxFrames > 0 && frame >= v.maxFrames {
			break
		}
		if frame&cancelCheckMask == 0 {
			if err := ctx.Err(); err != nil {
				return res, err
			}
			v.report(Progress{RunID: runID, Kind: "dt_ranges", Frame: frame, Total: v.maxFrames})
		}

		r := &ranges[idx]
		if frame == r.StartFrame && acc != r.StartValue {
			return res, v.rangeMismatch(frame, acc, fmt.Sprintf("range %d starts at %v", idx, r.StartValue))
		}
		if frame > 0 {
			if mErr := v.checkIncrement(ranges, &idx, frame, prev, acc); mErr != nil {
				return res, mErr
			}
			if ranges[idx].Frozen() {
				res.Frames = frame + 1
				log.Info("accumulator frozen", "frame", frame, "value", acc)
				break
			}
		}
		prev = acc
		res.Frames = frame + 1
	}

	framesValidated.WithLabelValues("dt_ranges").Add(float64(res.Frames))
	res.Compared = res.Frames
	res.Duration = time.Since(start)
	span.SetAttributes(attribute.Int64("frames", res.Frames))
	log.Info("ranges valid", "frames", res.Frames, "duration", res.Duration)
	return res, nil
}

// checkIncrement verifies the step from frame-1 (value prev) to frame
// (value acc) against the range containing frame-1, moving idx forward on
// transitions.
func (v *Validator) checkIncrement(ranges []effdt.Range, idx *int, frame int64, prev, acc float32) error {
	r := &ranges[*idx]
	last := frame - 1
	if r.EndFrame != effdt.Unbounded && last == r.EndFrame-1 {
		trans, ok := r.TransitionDelta.Get()
		exact := ratmath.Sub(ratmath.FromFloat32(acc), ratmath.FromFloat32(prev))
		if !ok || trans.Cmp(exact) != 0 {
			return v.rangeMismatch(frame, acc, fmt.Sprintf("transition of range %d is %s", *idx, exact.FloatString(30)))
		}
		rangeTransitions.Inc()
		*idx++
		if next := &ranges[*idx]; next.StartFrame != frame || next.StartValue != acc {
			return v.rangeMismatch(frame, acc, fmt.Sprintf("range %d does not start here", *idx))
		}
		return nil
	}

	eff, ok := r.EffectiveDelta.Get()
	if !ok || float64(eff) != float64(acc)-float64(prev) {
		return v.rangeMismatch(frame, acc, fmt.Sprintf("increment %v outside effective delta of range %d",
			float64(acc)-float64(prev), *idx))
	}
	return nil
}

func (v *Validator) rangeMismatch(frame int64, acc float32, detail string) error {
	mismatches.WithLabelValues("dt_range").Inc()
	return &MismatchError{Kind: "dt_range", Frame: frame, Value: acc, Level: -1, Expected: true, Detail: detail}
}

// =============================================================================
// Check Validation
// =============================================================================

// ValidateChecks compares the predictor of one check against the oracle.
//
// # Inputs
//
//   - ctx: cancels the run.
//   - offset, interval: the check.
//   - mode: ModeDeep, ModeSkip or ModeBoth.
//
// # Outputs
//
// A Result on success; a *MismatchError for the first disagreement; an
// error wrapping *cycle.InvariantError if the chain broke an invariant.
func (v *Validator) ValidateChecks(ctx context.Context, offset, interval float32, mode Mode) (res Result, err error) {
	if mode&ModeBoth == 0 {
		return Result{}, ErrNoMode
	}
	runID := uuid.NewString()
	log := v.logger.With("run_id", runID, "offset", offset, "interval", interval)
	ctx, span := v.tracer.Start(ctx, "validate.Checks",
		trace.WithAttributes(
			attribute.String("run_id", runID),
			attribute.Float64("offset", float64(offset)),
			attribute.Float64("interval", float64(interval)),
			attribute.String("mode", mode.String()),
			attribute.Int64("max_frames", v.maxFrames),
		),
	)
	defer span.End()
	start := time.Now()
	defer func() { v.finish(span, "hazard_checks", start, err) }()

	res = Result{RunID: runID, Kind: "hazard_checks"}
	p, err := predictor.New(offset, interval, predictor.WithStep(v.step))
	if err != nil {
		return res, fmt.Errorf("build predictor: %w", err)
	}
	log.Info("validating checks", "mode", mode.String(), "ranges", len(p.Ranges()), "max_frames", v.maxFrames)

	c := &checkRun{v: v, p: p, runID: runID, offset: offset, interval: interval}
	if mode&ModeDeep != 0 {
		if err := c.deep(ctx); err != nil {
			log.Warn("deep validation failed", "error", err)
			return res, err
		}
	}
	if mode&ModeSkip != 0 {
		if err := c.skip(ctx, rand.New(rand.NewPCG(v.seed, c.stream()))); err != nil {
			log.Warn("skip validation failed", "error", err)
			return res, err
		}
	}

	res.Frames = c.frames
	res.Compared = c.compared
	res.Fired = c.fired
	res.Duration = time.Since(start)
	span.SetAttributes(attribute.Int64("compared", res.Compared), attribute.Int64("fired", res.Fired))
	log.Info("checks valid", "compared", res.Compared, "fired", res.Fired, "duration", res.Duration)
	return res, nil
}

// ValidateOffsets runs ValidateChecks for several offsets concurrently. The
// first failure cancels the remaining runs and is returned.
func (v *Validator) ValidateOffsets(ctx context.Context, offsets []float32, interval float32, mode Mode) ([]Result, error) {
	results := make([]Result, len(offsets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.parallelism)
	for i, offset := range offsets {
		g.Go(func() error {
			res, err := v.ValidateChecks(gctx, offset, interval, mode)
			if err != nil {
				return fmt.Errorf("offset %v: %w", offset, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// checkRun holds the state of one ValidateChecks call.
type checkRun struct {
	v        *Validator
	p        *predictor.IntervalCheckPredictor
	runID    string
	offset   float32
	interval float32

	frames   int64
	compared int64
	fired    int64
}

// stream derives a per-check random stream so that concurrent runs with one
// seed sample different frames.
func (c *checkRun) stream() uint64 {
	return uint64(math.Float32bits(c.offset))<<32 | uint64(math.Float32bits(c.interval))
}

func (c *checkRun) deep(ctx context.Context) error {
	frame := int64(-1)
	for acc := range AccumulatorValues(c.v.step) {
		frame++
		if frame >= c.v.maxFrames {
			break
		}
		if frame&cancelCheckMask == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
			c.v.report(Progress{RunID: c.runID, Kind: "deep", Frame: frame, Total: c.v.maxFrames})
		}

		err := guard(frame, func() error {
			if err := c.p.SeekFrame(frame); err != nil {
				return err
			}
			if err := c.compare(frame, acc); err != nil {
				return err
			}
			return c.compareLevels(frame, acc)
		})
		if err != nil {
			return err
		}
	}
	c.frames = max(c.frames, frame)
	framesValidated.WithLabelValues("deep").Add(float64(frame))
	return nil
}

func (c *checkRun) skip(ctx context.Context, rng *rand.Rand) error {
	frame := int64(-1)
	var checked int64
	for acc := range AccumulatorValues(c.v.step) {
		frame++
		if frame >= c.v.maxFrames {
			break
		}
		if frame&cancelCheckMask == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
			c.v.report(Progress{RunID: c.runID, Kind: "skip", Frame: frame, Total: c.v.maxFrames})
		}
		if rng.Float64() >= c.v.skipRate {
			continue
		}

		err := guard(frame, func() error {
			if err := c.p.SeekFrame(frame); err != nil {
				return err
			}
			return c.compare(frame, acc)
		})
		if err != nil {
			return err
		}
		checked++
	}
	c.frames = max(c.frames, frame)
	framesValidated.WithLabelValues("skip").Add(float64(checked))
	return nil
}

// compare checks the predictor's result on frame against the oracle.
func (c *checkRun) compare(frame int64, acc float32) error {
	want := DirectIntervalCheck(acc, c.interval, c.offset, c.v.step)
	got := c.p.CheckResult()
	c.compared++
	if got {
		c.fired++
	}
	if got == want {
		return nil
	}
	mismatches.WithLabelValues("check").Inc()
	return &MismatchError{
		Kind:      "check",
		Frame:     frame,
		Value:     acc,
		Offset:    c.offset,
		Interval:  c.interval,
		Level:     -1,
		Expected:  want,
		Predicted: got,
		Detail:    fmt.Sprintf("range %d", c.p.CurrentRangeIndex()),
	}
}

// compareLevels checks every chain level of the current span against its
// own exact ground truth.
func (c *checkRun) compareLevels(frame int64, acc float32) error {
	rp := c.p.CurrentRange().Predictor
	for i := range rp.Cycles() {
		cy := rp.Cycle(i)
		tick := cy.TickIndex()
		if want, got := cy.RawCheckAt(tick), cy.CurRawCheckResult(); want != got {
			return c.levelMismatch("raw", frame, acc, i, want, got, cy.String())
		}
		if want, got := cy.RangeCheckAt(tick), cy.CurRangeCheckResult(); want != got {
			return c.levelMismatch("range", frame, acc, i, want, got, cy.String())
		}
	}
	return nil
}

func (c *checkRun) levelMismatch(kind string, frame int64, acc float32, level int, want, got bool, detail string) error {
	mismatches.WithLabelValues(kind).Inc()
	return &MismatchError{
		Kind:      kind,
		Frame:     frame,
		Value:     acc,
		Offset:    c.offset,
		Interval:  c.interval,
		Level:     level,
		Expected:  want,
		Predicted: got,
		Detail:    detail,
	}
}
