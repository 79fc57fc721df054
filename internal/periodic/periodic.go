// Package periodic runs a function on a fixed interval in one goroutine.
package periodic

import (
	"context"
	"sync"
	"time"
)

// Task runs fn every interval until stopped or until the Start context ends.
// Start and Stop are idempotent.
// Ticks never overlap; a tick in progress when Stop is called runs to
// completion on a context detached from the Start context's cancellation.
type Task struct {
	interval time.Duration
	fn       func(ctx context.Context)

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates a stopped task.
func New(interval time.Duration, fn func(ctx context.Context)) *Task {
	return &Task{interval: interval, fn: fn}
}

// Start launches the loop. The first tick fires after one interval.
// It reports false when the task was already running.
func (t *Task) Start(ctx context.Context) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return false
	}

	loopCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.done = make(chan struct{})
	t.running = true

	go t.loop(loopCtx, t.done)
	return true
}

// Stop cancels the loop and waits for an in-flight tick. It reports false
// when the task was not running.
func (t *Task) Stop() bool {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return false
	}
	t.running = false
	cancel, done := t.cancel, t.done
	t.mu.Unlock()

	cancel()
	<-done
	return true
}

// Running reports whether the loop is active.
func (t *Task) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

func (t *Task) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.mu.Lock()
			if t.done == done {
				t.running = false
			}
			t.mu.Unlock()
			return
		case <-ticker.C:
			t.fn(context.WithoutCancel(ctx))
		}
	}
}
