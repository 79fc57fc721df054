package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultTimeout is used when a Timeout is built with a non-positive duration.
const DefaultTimeout = 30 * time.Second

// Timeout bounds operations to a fixed duration.
type Timeout struct {
	d time.Duration
}

// NewTimeout creates a timeout wrapper. Non-positive durations fall back to
// DefaultTimeout.
func NewTimeout(d time.Duration) *Timeout {
	if d <= 0 {
		d = DefaultTimeout
	}
	return &Timeout{d: d}
}

// Duration returns the configured bound.
func (t *Timeout) Duration() time.Duration {
	return t.d
}

// Execute runs op with the timeout applied.
func (t *Timeout) Execute(ctx context.Context, op func(context.Context) error) error {
	_, err := Call(ctx, t.d, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// Call runs fn under a deadline of d and returns its result.
//
// When the deadline passes before fn returns, Call returns ErrTimeout and
// abandons fn: it keeps running in its own goroutine with a cancelled context
// and its result is discarded. A panic inside fn is recovered and returned as
// an error wrapping ErrPanic. Cancellation of the parent context is returned
// as ctx.Err().
func Call[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if d <= 0 {
		return zero, fmt.Errorf("resilience: invalid timeout %v", d)
	}

	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type outcome struct {
		val T
		err error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("%w: %v", ErrPanic, r)}
			}
		}()
		v, err := fn(ctx)
		done <- outcome{val: v, err: err}
	}()

	select {
	case out := <-done:
		return out.val, out.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, ErrTimeout
		}
		return zero, ctx.Err()
	}
}
