package health

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/healthops/observe"
	"github.com/jonwraymond/healthops/resilience"
)

// DefaultCheckTimeout bounds a probe registered without WithTimeout.
const DefaultCheckTimeout = 5 * time.Second

// RegistryConfig configures the probe registry.
type RegistryConfig struct {
	// DefaultTimeout applies to probes registered without a timeout.
	// Default: 5 seconds
	DefaultTimeout time.Duration

	Logger      observe.Logger
	Instruments *observe.Instruments
}

type registration struct {
	checker Checker
	timeout time.Duration
}

// RegisterOption customizes a single registration.
type RegisterOption func(*registration)

// WithTimeout sets the probe's timeout. Zero selects the registry default; a
// negative value is kept and makes the probe report unhealthy on every run.
func WithTimeout(d time.Duration) RegisterOption {
	return func(r *registration) { r.timeout = d }
}

// Registry runs a set of independent probes and aggregates their results.
type Registry struct {
	config  RegistryConfig
	logger  observe.Logger
	started time.Time
	now     func() time.Time

	mu       sync.RWMutex
	checkers map[string]registration
	order    []string

	flight singleflight.Group
}

// NewRegistry creates an empty registry.
func NewRegistry(config RegistryConfig) *Registry {
	if config.DefaultTimeout <= 0 {
		config.DefaultTimeout = DefaultCheckTimeout
	}
	logger := config.Logger
	if logger == nil {
		logger = observe.NopLogger()
	}

	return &Registry{
		config:   config,
		logger:   logger.With(observe.F("component", "registry")),
		started:  time.Now(),
		now:      time.Now,
		checkers: make(map[string]registration),
	}
}

// Register adds or replaces a checker under checker.Name(). Replacing keeps
// the original position in the output order.
func (r *Registry) Register(checker Checker, opts ...RegisterOption) {
	reg := registration{checker: checker}
	for _, opt := range opts {
		opt(&reg)
	}
	if reg.timeout == 0 {
		reg.timeout = r.config.DefaultTimeout
	}
	if reg.timeout < 0 {
		r.logger.Error(context.Background(), "probe registered with invalid timeout",
			observe.F("target", checker.Name()), observe.F("timeout", reg.timeout.String()))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	name := checker.Name()
	if _, exists := r.checkers[name]; !exists {
		r.order = append(r.order, name)
	}
	r.checkers[name] = reg
}

// Unregister removes a checker. Unknown names are ignored.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.checkers[name]; !ok {
		return
	}
	delete(r.checkers, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// CheckerNames returns the registered names in registration order.
func (r *Registry) CheckerNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Check runs a single named probe.
func (r *Registry) Check(ctx context.Context, name string) (TargetStatus, error) {
	r.mu.RLock()
	reg, ok := r.checkers[name]
	r.mu.RUnlock()

	if !ok {
		return TargetStatus{}, fmt.Errorf("%w: %s", ErrCheckerNotFound, name)
	}
	return r.runProbe(ctx, reg), nil
}

// PerformHealthCheck runs every probe in parallel, each inside its own
// timeout, and aggregates the results. Concurrent callers share one run.
// A failing probe never fails the call; it is reported as unhealthy.
func (r *Registry) PerformHealthCheck(ctx context.Context) SystemHealth {
	v, _, _ := r.flight.Do("all", func() (any, error) {
		return r.checkAll(context.WithoutCancel(ctx)), nil
	})

	shared := v.(SystemHealth)
	out := shared
	out.Targets = make([]TargetStatus, len(shared.Targets))
	copy(out.Targets, shared.Targets)
	return out
}

func (r *Registry) checkAll(ctx context.Context) SystemHealth {
	r.mu.RLock()
	regs := make([]registration, 0, len(r.order))
	for _, name := range r.order {
		regs = append(regs, r.checkers[name])
	}
	r.mu.RUnlock()

	targets := make([]TargetStatus, len(regs))
	var g errgroup.Group
	for i, reg := range regs {
		g.Go(func() error {
			targets[i] = r.runProbe(ctx, reg)
			return nil
		})
	}
	_ = g.Wait()

	now := r.now()
	return SystemHealth{
		Overall:    Aggregate(targets),
		Targets:    targets,
		ObservedAt: now,
		Uptime:     now.Sub(r.started),
	}
}

func (r *Registry) runProbe(ctx context.Context, reg registration) TargetStatus {
	name := reg.checker.Name()
	start := r.now()

	var res Result
	if reg.timeout < 0 {
		res = Unhealthy("probe misconfigured",
			fmt.Errorf("%w: %v", ErrInvalidTimeout, reg.timeout))
	} else {
		var err error
		res, err = resilience.Call(ctx, reg.timeout, func(ctx context.Context) (Result, error) {
			return reg.checker.Check(ctx), nil
		})
		switch {
		case errors.Is(err, resilience.ErrTimeout):
			res = Unhealthy(fmt.Sprintf("probe exceeded %v", reg.timeout), ErrCheckTimeout)
		case errors.Is(err, resilience.ErrPanic):
			res = Unhealthy("probe panicked", fmt.Errorf("%w: %v", ErrCheckPanicked, err))
		case err != nil:
			res = Unhealthy("probe aborted", err)
		}
	}

	elapsed := r.now().Sub(start)
	status := TargetStatus{
		Target:       name,
		State:        res.Status,
		Critical:     reg.checker.Critical(),
		Message:      res.Message,
		ResponseTime: res.ResponseTime,
		CheckedAt:    start,
		Metadata:     res.Metadata,
	}
	if status.ResponseTime == 0 {
		status.ResponseTime = elapsed
	}
	if res.Error != nil {
		status.Error = res.Error.Error()
	} else if status.State == StatusUnhealthy {
		status.Error = ErrCheckFailed.Error()
	}

	r.config.Instruments.RecordProbe(ctx, name, status.State.String(), elapsed)
	if status.State != StatusHealthy {
		r.logger.Warn(ctx, "probe not healthy",
			observe.F("target", name),
			observe.F("state", status.State.String()),
			observe.F("error", status.Error),
			observe.F("response_time_ms", status.ResponseTimeMs()))
	}
	return status
}

// Aggregate derives the overall status of a probe set:
//   - unhealthy if any critical target is unhealthy, or more than half of
//     all targets are unhealthy;
//   - otherwise degraded if any target is unhealthy or degraded;
//   - otherwise healthy. An empty set is healthy.
func Aggregate(targets []TargetStatus) Status {
	unhealthy, degraded := 0, 0
	for _, t := range targets {
		switch t.State {
		case StatusUnhealthy:
			if t.Critical {
				return StatusUnhealthy
			}
			unhealthy++
		case StatusDegraded:
			degraded++
		}
	}

	switch {
	case unhealthy*2 > len(targets):
		return StatusUnhealthy
	case unhealthy > 0 || degraded > 0:
		return StatusDegraded
	default:
		return StatusHealthy
	}
}
