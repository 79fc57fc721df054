package health

import (
	"context"
	"fmt"
	"time"
)

// Status represents the health status of a target.
type Status int

const (
	// StatusHealthy indicates the target is functioning normally.
	StatusHealthy Status = iota
	// StatusDegraded indicates the target is functioning but with issues.
	StatusDegraded
	// StatusUnhealthy indicates the target is not functioning properly.
	StatusUnhealthy
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(b []byte) error {
	switch string(b) {
	case "healthy":
		*s = StatusHealthy
	case "degraded":
		*s = StatusDegraded
	case "unhealthy":
		*s = StatusUnhealthy
	default:
		return fmt.Errorf("health: unknown status %q", b)
	}
	return nil
}

// Result is what a Checker reports. The registry turns it into a TargetStatus.
type Result struct {
	Status  Status
	Message string

	// Metadata is a probe-specific diagnostic payload.
	Metadata map[string]any

	// ResponseTime is the measured round trip. Zero lets the registry use the
	// probe's wall-clock duration.
	ResponseTime time.Duration

	Error error
}

// Healthy creates a healthy result.
func Healthy(message string) Result {
	return Result{Status: StatusHealthy, Message: message}
}

// Degraded creates a degraded result.
func Degraded(message string) Result {
	return Result{Status: StatusDegraded, Message: message}
}

// Unhealthy creates an unhealthy result.
func Unhealthy(message string, err error) Result {
	return Result{Status: StatusUnhealthy, Message: message, Error: err}
}

// WithMetadata attaches metadata to a result.
func (r Result) WithMetadata(md map[string]any) Result {
	r.Metadata = md
	return r
}

// WithResponseTime sets the measured response time.
func (r Result) WithResponseTime(d time.Duration) Result {
	r.ResponseTime = d
	return r
}

// TargetStatus is the normalized outcome of probing one target. It is built
// fresh by every probe run and not modified afterwards.
type TargetStatus struct {
	Target       string         `json:"target"`
	State        Status         `json:"state"`
	Critical     bool           `json:"critical"`
	Message      string         `json:"message,omitempty"`
	ResponseTime time.Duration  `json:"-"`
	CheckedAt    time.Time      `json:"last_checked_at"`
	Error        string         `json:"error,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// ResponseTimeMs returns the response time in milliseconds.
func (t TargetStatus) ResponseTimeMs() float64 {
	return float64(t.ResponseTime.Microseconds()) / 1000
}

// SystemHealth is the aggregate view over every registered target.
type SystemHealth struct {
	Overall    Status         `json:"overall"`
	Targets    []TargetStatus `json:"targets"`
	ObservedAt time.Time      `json:"observed_at"`
	Uptime     time.Duration  `json:"-"`
}

// Target returns the status of the named target.
func (h SystemHealth) Target(name string) (TargetStatus, bool) {
	for _, t := range h.Targets {
		if t.Target == name {
			return t, true
		}
	}
	return TargetStatus{}, false
}

// Checker probes one target.
//
// Contract:
// - Concurrency: Check may be called concurrently with itself.
// - Context: Check should return promptly once ctx is done.
// - Errors: failures are reported through Result, never by panicking.
type Checker interface {
	Name() string
	Critical() bool
	Check(ctx context.Context) Result
}

// CheckerFunc adapts a function to the Checker interface.
type CheckerFunc struct {
	name     string
	critical bool
	fn       func(context.Context) Result
}

// NewCheckerFunc creates a new CheckerFunc.
func NewCheckerFunc(name string, critical bool, fn func(context.Context) Result) *CheckerFunc {
	return &CheckerFunc{name: name, critical: critical, fn: fn}
}

func (f *CheckerFunc) Name() string                     { return f.name }
func (f *CheckerFunc) Critical() bool                   { return f.critical }
func (f *CheckerFunc) Check(ctx context.Context) Result { return f.fn(ctx) }
