package observe

import (
	"context"
	"time"
)

// Runner wraps units of monitoring work with tracing, metrics and logging.
//
// Contract:
//   - Concurrency: Run is safe for concurrent use.
//   - Errors: the error returned by fn is recorded and returned unchanged.
type Runner struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewRunner creates a Runner. Nil components fall back to no-ops.
func NewRunner(tracer Tracer, metrics Metrics, logger Logger) *Runner {
	if tracer == nil {
		tracer = newNoopTracer()
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &Runner{tracer: tracer, metrics: metrics, logger: logger}
}

// NopRunner returns a Runner that only calls through.
func NopRunner() *Runner {
	return NewRunner(nil, nil, nil)
}

// RunnerFromObserver builds a Runner from an Observer's tracer, meter and logger.
func RunnerFromObserver(obs Observer) (*Runner, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}
	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}
	return NewRunner(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}

// Logger returns the runner's logger.
func (r *Runner) Logger() Logger {
	return r.logger
}

// Run executes fn inside a span named after op, records its duration and
// logs the outcome at debug (success) or warn (failure) level.
func (r *Runner) Run(ctx context.Context, op Operation, fn func(context.Context) error) error {
	ctx, span := r.tracer.StartSpan(ctx, op)
	start := time.Now()

	err := fn(ctx)

	duration := time.Since(start)
	r.tracer.EndSpan(span, err)
	r.metrics.RecordOperation(ctx, op, duration, err)

	fields := append(op.fields(), F("duration_ms", float64(duration.Microseconds())/1000))
	if err != nil {
		r.logger.Warn(ctx, "operation failed", append(fields, Err(err))...)
	} else {
		r.logger.Debug(ctx, "operation completed", fields...)
	}

	return err
}
