package health

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/hashicorp/go-cleanhttp"

	"github.com/jonwraymond/healthops/resilience"
)

// Endpoint describes one external dependency.
type Endpoint struct {
	Name      string `yaml:"name"`
	URL       string `yaml:"url"`
	BackupURL string `yaml:"backup_url"`

	// Timeout is the request deadline; exceeding it is unhealthy.
	// Default: 5s
	Timeout time.Duration `yaml:"timeout"`

	// SlowThreshold is the latency above which a response is degraded.
	// Default: half of Timeout
	SlowThreshold time.Duration `yaml:"slow_threshold"`

	Critical bool `yaml:"critical"`
}

// ExternalChecker issues a lightweight GET against an endpoint. Only the
// status code and latency are read.
type ExternalChecker struct {
	endpoint Endpoint
	client   *http.Client
	breaker  *resilience.CircuitBreaker

	mu         sync.RWMutex
	activeURL  string
	failedOver bool
}

// ExternalOption customizes an ExternalChecker.
type ExternalOption func(*ExternalChecker)

// WithHTTPClient replaces the pooled default client.
func WithHTTPClient(c *http.Client) ExternalOption {
	return func(e *ExternalChecker) { e.client = c }
}

// WithCircuitBreaker replaces the default breaker (5 failures, 30s reset).
func WithCircuitBreaker(cb *resilience.CircuitBreaker) ExternalOption {
	return func(e *ExternalChecker) { e.breaker = cb }
}

// NewExternalChecker creates a probe for endpoint.
func NewExternalChecker(endpoint Endpoint, opts ...ExternalOption) *ExternalChecker {
	if endpoint.Timeout <= 0 {
		endpoint.Timeout = 5 * time.Second
	}
	if endpoint.SlowThreshold <= 0 || endpoint.SlowThreshold > endpoint.Timeout {
		endpoint.SlowThreshold = endpoint.Timeout / 2
	}
	e := &ExternalChecker{
		endpoint:  endpoint,
		activeURL: endpoint.URL,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.client == nil {
		e.client = cleanhttp.DefaultPooledClient()
	}
	if e.breaker == nil {
		e.breaker = resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			MaxFailures:  5,
			ResetTimeout: 30 * time.Second,
		})
	}
	return e
}

func (e *ExternalChecker) Name() string   { return e.endpoint.Name }
func (e *ExternalChecker) Critical() bool { return e.endpoint.Critical }

// ActiveURL returns the URL currently probed.
func (e *ExternalChecker) ActiveURL() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.activeURL
}

// Timeout returns the request deadline.
func (e *ExternalChecker) Timeout() time.Duration { return e.endpoint.Timeout }

// Failover switches the probe to the backup URL and resets the breaker. It
// fails with ErrAlreadyFailedOver once the backup is active.
func (e *ExternalChecker) Failover(context.Context) error {
	if e.endpoint.BackupURL == "" {
		return fmt.Errorf("health: endpoint %s has no backup url", e.endpoint.Name)
	}

	e.mu.Lock()
	if e.failedOver {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrAlreadyFailedOver, e.endpoint.Name)
	}
	e.activeURL = e.endpoint.BackupURL
	e.failedOver = true
	e.mu.Unlock()

	e.breaker.Reset()
	return nil
}

// Check performs the GET under the endpoint timeout. A transport error, a
// timeout or a 5xx response is unhealthy; a 4xx response or one slower than
// SlowThreshold is degraded. While the breaker is open the endpoint is
// reported unhealthy without a call.
func (e *ExternalChecker) Check(ctx context.Context) Result {
	url := e.ActiveURL()
	md := map[string]any{
		"url":     url,
		"circuit": e.breaker.State().String(),
	}
	e.mu.RLock()
	if e.failedOver {
		md["failed_over"] = true
	}
	e.mu.RUnlock()

	if err := e.breaker.Allow(); err != nil {
		return Unhealthy("circuit open", err).WithMetadata(md)
	}

	reqCtx, cancel := context.WithTimeout(ctx, e.endpoint.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		e.breaker.Record(err)
		return Unhealthy("invalid request", err).WithMetadata(md)
	}

	start := time.Now()
	resp, err := e.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		e.breaker.Record(err)
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return Unhealthy(fmt.Sprintf("no response within %v", e.endpoint.Timeout),
				fmt.Errorf("%w: %v", ErrCheckTimeout, e.endpoint.Timeout)).
				WithMetadata(md).WithResponseTime(latency)
		}
		return Unhealthy("endpoint unreachable", err).WithMetadata(md).WithResponseTime(latency)
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()

	md["status_code"] = resp.StatusCode

	switch {
	case resp.StatusCode >= 500:
		err := fmt.Errorf("%w: status %d", ErrCheckFailed, resp.StatusCode)
		e.breaker.Record(err)
		return Unhealthy(http.StatusText(resp.StatusCode), err).WithMetadata(md).WithResponseTime(latency)
	case resp.StatusCode >= 400:
		e.breaker.Record(nil)
		return Degraded(fmt.Sprintf("client error: %d", resp.StatusCode)).WithMetadata(md).WithResponseTime(latency)
	case latency > e.endpoint.SlowThreshold:
		e.breaker.Record(nil)
		return Degraded(fmt.Sprintf("slow response: %v", latency.Round(time.Millisecond))).
			WithMetadata(md).WithResponseTime(latency)
	default:
		e.breaker.Record(nil)
		return Healthy("endpoint reachable").WithMetadata(md).WithResponseTime(latency)
	}
}
