package health

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func staticChecker(name string, critical bool, status Status) Checker {
	return NewCheckerFunc(name, critical, func(context.Context) Result {
		return Result{Status: status}
	})
}

func TestAggregate(t *testing.T) {
	ts := func(state Status, critical bool) TargetStatus {
		return TargetStatus{State: state, Critical: critical}
	}

	tests := []struct {
		name    string
		targets []TargetStatus
		want    Status
	}{
		{"empty set", nil, StatusHealthy},
		{"all healthy", []TargetStatus{ts(StatusHealthy, true), ts(StatusHealthy, false)}, StatusHealthy},
		{"critical unhealthy", []TargetStatus{ts(StatusUnhealthy, true), ts(StatusHealthy, false), ts(StatusHealthy, false)}, StatusUnhealthy},
		{"one non-critical unhealthy of three", []TargetStatus{ts(StatusUnhealthy, false), ts(StatusHealthy, true), ts(StatusHealthy, false)}, StatusDegraded},
		{"exactly half unhealthy", []TargetStatus{ts(StatusUnhealthy, false), ts(StatusHealthy, false)}, StatusDegraded},
		{"majority unhealthy", []TargetStatus{ts(StatusUnhealthy, false), ts(StatusUnhealthy, false), ts(StatusHealthy, true)}, StatusUnhealthy},
		{"single non-critical unhealthy", []TargetStatus{ts(StatusUnhealthy, false)}, StatusUnhealthy},
		{"degraded only", []TargetStatus{ts(StatusDegraded, true), ts(StatusHealthy, false)}, StatusDegraded},
		{"critical degraded is not unhealthy", []TargetStatus{ts(StatusDegraded, true)}, StatusDegraded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Aggregate(tt.targets); got != tt.want {
				t.Errorf("Aggregate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRegistry_RegisterOrderAndReplace(t *testing.T) {
	reg := NewRegistry(RegistryConfig{})
	reg.Register(staticChecker("database", true, StatusHealthy))
	reg.Register(staticChecker("cache", false, StatusHealthy))
	reg.Register(staticChecker("database", true, StatusDegraded))

	names := reg.CheckerNames()
	if len(names) != 2 || names[0] != "database" || names[1] != "cache" {
		t.Fatalf("CheckerNames() = %v, want [database cache]", names)
	}

	h := reg.PerformHealthCheck(context.Background())
	if h.Targets[0].State != StatusDegraded {
		t.Errorf("replaced checker not used: %v", h.Targets[0].State)
	}

	reg.Unregister("database")
	reg.Unregister("unknown")
	if names := reg.CheckerNames(); len(names) != 1 || names[0] != "cache" {
		t.Errorf("CheckerNames() after Unregister = %v", names)
	}
}

func TestRegistry_PerformHealthCheck(t *testing.T) {
	reg := NewRegistry(RegistryConfig{})
	reg.Register(staticChecker("database", true, StatusHealthy))
	reg.Register(staticChecker("cache", false, StatusDegraded))
	reg.Register(staticChecker("payments", false, StatusHealthy))

	h := reg.PerformHealthCheck(context.Background())

	if h.Overall != StatusDegraded {
		t.Errorf("Overall = %v, want degraded", h.Overall)
	}
	if len(h.Targets) != 3 {
		t.Fatalf("len(Targets) = %d, want 3", len(h.Targets))
	}
	for i, want := range []string{"database", "cache", "payments"} {
		if h.Targets[i].Target != want {
			t.Errorf("Targets[%d] = %s, want %s", i, h.Targets[i].Target, want)
		}
		if h.Targets[i].CheckedAt.IsZero() {
			t.Errorf("Targets[%d].CheckedAt not set", i)
		}
	}
	if !h.Targets[0].Critical || h.Targets[1].Critical {
		t.Error("critical flag not copied from checker")
	}
	if h.ObservedAt.IsZero() || h.Uptime < 0 {
		t.Errorf("ObservedAt=%v Uptime=%v", h.ObservedAt, h.Uptime)
	}

	if tgt, ok := h.Target("cache"); !ok || tgt.State != StatusDegraded {
		t.Errorf("Target(cache) = %v, %v", tgt, ok)
	}
	if _, ok := h.Target("missing"); ok {
		t.Error("Target(missing) ok = true")
	}
}

func TestRegistry_EmptyIsHealthy(t *testing.T) {
	h := NewRegistry(RegistryConfig{}).PerformHealthCheck(context.Background())
	if h.Overall != StatusHealthy || len(h.Targets) != 0 {
		t.Errorf("empty registry = %v with %d targets", h.Overall, len(h.Targets))
	}
}

func TestRegistry_TimeoutIsUnhealthy(t *testing.T) {
	reg := NewRegistry(RegistryConfig{})
	reg.Register(NewCheckerFunc("database", true, func(ctx context.Context) Result {
		<-ctx.Done()
		return Healthy("too late")
	}), WithTimeout(20*time.Millisecond))
	reg.Register(staticChecker("cache", false, StatusHealthy))

	h := reg.PerformHealthCheck(context.Background())

	db := h.Targets[0]
	if db.State != StatusUnhealthy {
		t.Fatalf("database state = %v, want unhealthy", db.State)
	}
	if db.Error != ErrCheckTimeout.Error() {
		t.Errorf("database error = %q, want %q", db.Error, ErrCheckTimeout.Error())
	}
	if db.ResponseTime < 20*time.Millisecond {
		t.Errorf("ResponseTime = %v, want >= 20ms", db.ResponseTime)
	}
	if h.Targets[1].State != StatusHealthy {
		t.Errorf("cache state = %v, want healthy; a slow probe must not affect others", h.Targets[1].State)
	}
	if h.Overall != StatusUnhealthy {
		t.Errorf("Overall = %v, want unhealthy (critical target down)", h.Overall)
	}
}

func TestRegistry_PanicIsIsolated(t *testing.T) {
	reg := NewRegistry(RegistryConfig{})
	reg.Register(NewCheckerFunc("flaky", false, func(context.Context) Result {
		panic("nil map write")
	}))
	reg.Register(staticChecker("database", true, StatusHealthy))
	reg.Register(staticChecker("cache", false, StatusHealthy))

	h := reg.PerformHealthCheck(context.Background())

	if h.Targets[0].State != StatusUnhealthy {
		t.Fatalf("flaky state = %v, want unhealthy", h.Targets[0].State)
	}
	if !strings.Contains(h.Targets[0].Error, "nil map write") {
		t.Errorf("flaky error = %q, want panic text", h.Targets[0].Error)
	}
	if h.Overall != StatusDegraded {
		t.Errorf("Overall = %v, want degraded", h.Overall)
	}
}

func TestRegistry_NegativeTimeoutAlwaysUnhealthy(t *testing.T) {
	var calls atomic.Int32
	reg := NewRegistry(RegistryConfig{})
	reg.Register(NewCheckerFunc("cache", false, func(context.Context) Result {
		calls.Add(1)
		return Healthy("ok")
	}), WithTimeout(-time.Second))

	for i := 0; i < 2; i++ {
		h := reg.PerformHealthCheck(context.Background())
		if h.Targets[0].State != StatusUnhealthy {
			t.Errorf("run %d: state = %v, want unhealthy", i, h.Targets[0].State)
		}
		if !strings.Contains(h.Targets[0].Error, ErrInvalidTimeout.Error()) {
			t.Errorf("run %d: error = %q", i, h.Targets[0].Error)
		}
	}
	if calls.Load() != 0 {
		t.Errorf("misconfigured probe ran %d times, want 0", calls.Load())
	}
}

func TestRegistry_UnhealthyWithoutError(t *testing.T) {
	reg := NewRegistry(RegistryConfig{})
	reg.Register(staticChecker("cache", false, StatusUnhealthy))

	h := reg.PerformHealthCheck(context.Background())
	if h.Targets[0].Error != ErrCheckFailed.Error() {
		t.Errorf("Error = %q, want %q", h.Targets[0].Error, ErrCheckFailed.Error())
	}
}

func TestRegistry_Check(t *testing.T) {
	reg := NewRegistry(RegistryConfig{})
	reg.Register(staticChecker("cache", false, StatusDegraded))

	ts, err := reg.Check(context.Background(), "cache")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if ts.Target != "cache" || ts.State != StatusDegraded {
		t.Errorf("Check() = %+v", ts)
	}

	if _, err := reg.Check(context.Background(), "missing"); !errors.Is(err, ErrCheckerNotFound) {
		t.Errorf("Check(missing) error = %v, want ErrCheckerNotFound", err)
	}
}

func TestRegistry_ConcurrentCallsShareOneRun(t *testing.T) {
	var calls atomic.Int32
	entered := make(chan struct{})
	release := make(chan struct{})

	reg := NewRegistry(RegistryConfig{})
	reg.Register(NewCheckerFunc("database", true, func(context.Context) Result {
		if calls.Add(1) == 1 {
			close(entered)
		}
		<-release
		return Healthy("ok")
	}))

	var wg sync.WaitGroup
	results := make([]SystemHealth, 3)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = reg.PerformHealthCheck(context.Background())
		}(i)
		if i == 0 {
			<-entered
		}
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Errorf("probe ran %d times, want 1", n)
	}

	results[0].Targets[0].Target = "mutated"
	if results[1].Targets[0].Target != "database" {
		t.Error("callers share the same targets slice")
	}
}

func TestRegistry_ResponseTimeFromResult(t *testing.T) {
	reg := NewRegistry(RegistryConfig{})
	reg.Register(NewCheckerFunc("database", true, func(context.Context) Result {
		return Healthy("ok").WithResponseTime(42 * time.Millisecond)
	}))

	ts, _ := reg.Check(context.Background(), "database")
	if ts.ResponseTime != 42*time.Millisecond {
		t.Errorf("ResponseTime = %v, want 42ms", ts.ResponseTime)
	}
	if ts.ResponseTimeMs() != 42 {
		t.Errorf("ResponseTimeMs() = %v, want 42", ts.ResponseTimeMs())
	}
}
