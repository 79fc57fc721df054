package resource

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestRuntimeCollector(t *testing.T) {
	c := NewRuntimeCollector()
	ctx := context.Background()

	if _, err := c.Collect(ctx); err != nil {
		t.Fatalf("first Collect: %v", err)
	}
	m, err := c.Collect(ctx)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}

	if m.Memory.HeapUsed == 0 || m.Memory.HeapTotal == 0 {
		t.Errorf("heap = %d/%d", m.Memory.HeapUsed, m.Memory.HeapTotal)
	}
	if m.Memory.Percentage <= 0 || m.Memory.Percentage > 100 {
		t.Errorf("memory percentage = %v", m.Memory.Percentage)
	}
	if m.CPU.NumCPU < 1 {
		t.Errorf("NumCPU = %d", m.CPU.NumCPU)
	}
	if m.CPU.Percent < 0 || m.CPU.Percent > 100 {
		t.Errorf("cpu percent = %v", m.CPU.Percent)
	}
	if m.Scheduler.Utilization < 0 || m.Scheduler.Utilization > 100 {
		t.Errorf("utilization = %v", m.Scheduler.Utilization)
	}
	if m.Process.PID != os.Getpid() || m.Process.Goroutines < 1 {
		t.Errorf("process = %+v", m.Process)
	}
	if m.Timestamp.IsZero() {
		t.Error("timestamp not set")
	}
}

func TestRuntimeCollector_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewRuntimeCollector().Collect(ctx); err == nil {
		t.Error("expected context error")
	}
}

func TestSchedulerMetrics_DelayMillis(t *testing.T) {
	s := SchedulerMetrics{Delay: 1500 * time.Microsecond}
	if got := s.DelayMillis(); got != 1.5 {
		t.Errorf("DelayMillis() = %v, want 1.5", got)
	}
}

func TestRing(t *testing.T) {
	r := newRing(2)
	if _, ok := r.last(); ok {
		t.Fatal("empty ring reported a last entry")
	}
	r.push(memAt(1, epoch))
	r.push(memAt(2, epoch.Add(time.Second)))
	r.push(memAt(3, epoch.Add(2*time.Second)))

	if r.len() != 2 {
		t.Fatalf("len = %d, want 2", r.len())
	}
	got := r.since(epoch.Add(2 * time.Second))
	if len(got) != 1 || got[0].Memory.Percentage != 3 {
		t.Errorf("since = %+v", got)
	}
}
