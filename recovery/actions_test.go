package recovery

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonwraymond/healthops/cache"
	"github.com/jonwraymond/healthops/health"
	"github.com/jonwraymond/healthops/resilience"
)

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		msg  string
		want bool
	}{
		{"dial tcp 127.0.0.1:6379: connect: connection refused", true},
		{"read: connection reset by peer", true},
		{"health: check timeout", true},
		{"redis: client is closed", true},
		{"unexpected EOF", true},
		{"health: value mismatch", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsConnectionError(tt.msg); got != tt.want {
			t.Errorf("IsConnectionError(%q) = %v, want %v", tt.msg, got, tt.want)
		}
	}
}

type flakyReconnector struct {
	failures int
	calls    int
}

func (r *flakyReconnector) Reconnect(context.Context) error {
	r.calls++
	if r.calls <= r.failures {
		return errors.New("connection refused")
	}
	return nil
}

func TestReconnectCache(t *testing.T) {
	client := &flakyReconnector{failures: 2}
	retry := resilience.NewRetry(resilience.RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond})
	a := ReconnectCache(client, retry)

	if a.TargetService != "cache" || a.Cooldown != 5*time.Minute || a.MaxAttemptsPerWindow != 3 {
		t.Errorf("action = %+v", a)
	}
	if !a.matches(unhealthy("cache", false, "dial tcp: connection refused")) {
		t.Error("connection error did not match")
	}
	if a.matches(unhealthy("cache", false, "health: value mismatch")) {
		t.Error("value mismatch matched")
	}
	if a.matches(health.TargetStatus{Target: "cache", State: health.StatusDegraded, Error: "connection slow"}) {
		t.Error("degraded cache matched")
	}

	if err := a.Remediate(context.Background()); err != nil {
		t.Fatalf("Remediate: %v", err)
	}
	if client.calls != 3 {
		t.Errorf("reconnect calls = %d, want 3", client.calls)
	}
}

func TestReconnectCache_Exhausted(t *testing.T) {
	client := &flakyReconnector{failures: 10}
	retry := resilience.NewRetry(resilience.RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond})

	err := ReconnectCache(client, retry).Remediate(context.Background())
	if !errors.Is(err, resilience.ErrRetriesExhausted) {
		t.Errorf("err = %v, want ErrRetriesExhausted", err)
	}
}

func TestReclaimMemory(t *testing.T) {
	ctx := context.Background()
	mc := cache.NewMemoryCache()
	_ = mc.Set(ctx, "paper:1", []byte("x"), time.Minute)
	_ = mc.Set(ctx, "paper:2", []byte("y"), time.Minute)

	a := ReclaimMemory(mc)
	if a.TargetService != "resources" || a.Cooldown != 10*time.Minute || a.MaxAttemptsPerWindow != 2 {
		t.Errorf("action = %+v", a)
	}

	at := func(pct any) health.TargetStatus {
		return health.TargetStatus{Target: "resources", State: health.StatusDegraded,
			Metadata: map[string]any{"memory_percent": pct}}
	}
	if !a.matches(at(85.0)) {
		t.Error("85% did not match")
	}
	if a.matches(at(80.0)) || a.matches(at(75.0)) {
		t.Error("memory at or below 80% matched")
	}
	if a.matches(at("high")) {
		t.Error("non-numeric metadata matched")
	}

	if err := a.Remediate(ctx); err != nil {
		t.Fatalf("Remediate: %v", err)
	}
	if mc.Len() != 0 {
		t.Errorf("cache entries = %d, want 0", mc.Len())
	}
}

type failingClearer struct{}

func (failingClearer) Clear(context.Context) (int, error) { return 0, errors.New("cache: closed") }

func TestReclaimMemory_ClearerError(t *testing.T) {
	if err := ReclaimMemory(failingClearer{}).Remediate(context.Background()); err == nil {
		t.Error("expected clearer error")
	}
}

func TestFailoverEndpoint(t *testing.T) {
	backup := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer backup.Close()

	ep := health.NewExternalChecker(health.Endpoint{
		Name:      "metadata-api",
		URL:       "http://127.0.0.1:1/ping",
		BackupURL: backup.URL,
		Critical:  true,
	})
	a := FailoverEndpoint(ep)

	if a.ID != "failover_metadata-api" || a.TargetService != "metadata-api" || a.MaxAttemptsPerWindow != 5 {
		t.Errorf("action = %+v", a)
	}
	if !a.matches(unhealthy("metadata-api", true, "connection refused")) {
		t.Error("critical unhealthy endpoint did not match")
	}
	if a.matches(unhealthy("metadata-api", false, "connection refused")) {
		t.Error("non-critical endpoint matched")
	}

	if err := a.Remediate(context.Background()); err != nil {
		t.Fatalf("Remediate: %v", err)
	}
	if ep.ActiveURL() != backup.URL {
		t.Errorf("ActiveURL() = %q, want backup", ep.ActiveURL())
	}
	if r := ep.Check(context.Background()); r.Status != health.StatusHealthy {
		t.Errorf("check after failover = %v", r.Status)
	}
	if err := a.Remediate(context.Background()); !errors.Is(err, health.ErrAlreadyFailedOver) {
		t.Errorf("second Remediate = %v, want ErrAlreadyFailedOver", err)
	}
}

type restartRecorder struct{ restarts int }

func (r *restartRecorder) Restart(context.Context) error {
	r.restarts++
	return nil
}

func TestRestartDatabasePool(t *testing.T) {
	r := &restartRecorder{}
	a := RestartDatabasePool(r)

	slow := health.TargetStatus{Target: "database", State: health.StatusUnhealthy, ResponseTime: 5 * time.Second}
	fast := health.TargetStatus{Target: "database", State: health.StatusDegraded, ResponseTime: 1200 * time.Millisecond}
	if !a.matches(slow) || a.matches(fast) {
		t.Error("response time condition wrong")
	}
	if a.Cooldown != 15*time.Minute || a.MaxAttemptsPerWindow != 2 {
		t.Errorf("action = %+v", a)
	}

	_ = a.Remediate(context.Background())
	if r.restarts != 1 {
		t.Errorf("restarts = %d, want 1", r.restarts)
	}
}

func TestReferenceActionsThroughEngine(t *testing.T) {
	r := &restartRecorder{}
	e, prober, clk, rec := newTestEngine(t, Config{}, RestartDatabasePool(r))
	prober.set(health.TargetStatus{Target: "database", Critical: true, State: health.StatusUnhealthy, ResponseTime: 6 * time.Second})
	ctx := context.Background()

	e.RunOnce(ctx)
	clk.advance(16 * time.Minute)
	e.RunOnce(ctx)
	clk.advance(16 * time.Minute)
	e.RunOnce(ctx)

	if r.restarts != 2 {
		t.Errorf("restarts = %d, want 2 (daily budget)", r.restarts)
	}
	if got := len(rec.OfType(NotificationSucceeded)); got != 2 {
		t.Errorf("success notifications = %d, want 2", got)
	}
}
