package periodic

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestTask_TicksUntilStopped(t *testing.T) {
	var ticks atomic.Int32
	task := New(5*time.Millisecond, func(context.Context) { ticks.Add(1) })

	if !task.Start(context.Background()) {
		t.Fatal("first Start returned false")
	}
	if task.Start(context.Background()) {
		t.Error("second Start returned true")
	}

	deadline := time.Now().Add(2 * time.Second)
	for ticks.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if ticks.Load() < 3 {
		t.Fatalf("ticks = %d, want >= 3", ticks.Load())
	}

	if !task.Stop() {
		t.Fatal("Stop returned false")
	}
	if task.Stop() {
		t.Error("second Stop returned true")
	}
	after := ticks.Load()
	time.Sleep(20 * time.Millisecond)
	if ticks.Load() != after {
		t.Error("task ticked after Stop")
	}
}

func TestTask_StopWaitsForInflightTick(t *testing.T) {
	entered := make(chan struct{})
	var finished atomic.Bool
	var ctxErr atomic.Value

	task := New(time.Millisecond, func(ctx context.Context) {
		select {
		case entered <- struct{}{}:
		default:
			return
		}
		time.Sleep(20 * time.Millisecond)
		if err := ctx.Err(); err != nil {
			ctxErr.Store(err)
		}
		finished.Store(true)
	})

	task.Start(context.Background())
	<-entered
	task.Stop()

	if !finished.Load() {
		t.Error("Stop returned before the in-flight tick finished")
	}
	if v := ctxErr.Load(); v != nil {
		t.Errorf("tick context canceled during Stop: %v", v)
	}
}

func TestTask_ParentCancelEndsLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	task := New(time.Hour, func(context.Context) {})
	task.Start(ctx)
	cancel()

	// Stop must still return promptly and reset state.
	task.Stop()
	if task.Running() {
		t.Error("Running() = true after Stop")
	}
	if !task.Start(context.Background()) {
		t.Error("restart after Stop failed")
	}
	task.Stop()
}

func TestTask_ParentCancelAllowsRestart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	task := New(time.Hour, func(context.Context) {})
	if !task.Start(ctx) {
		t.Fatal("Start returned false")
	}
	cancel()

	deadline := time.Now().Add(2 * time.Second)
	for task.Running() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if task.Running() {
		t.Fatal("Running() = true after parent cancel")
	}
	if task.Stop() {
		t.Error("Stop after parent cancel returned true")
	}

	var ticks atomic.Int32
	task = New(5*time.Millisecond, func(context.Context) { ticks.Add(1) })
	ctx, cancel = context.WithCancel(context.Background())
	task.Start(ctx)
	cancel()
	for task.Running() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if !task.Start(context.Background()) {
		t.Fatal("restart after parent cancel returned false")
	}
	for ticks.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if ticks.Load() == 0 {
		t.Error("restarted task never ticked")
	}
	if !task.Stop() {
		t.Error("Stop of restarted task returned false")
	}
}
