package monitor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/jonwraymond/healthops/health"
	"github.com/jonwraymond/healthops/notify"
	"github.com/jonwraymond/healthops/observe"
	"github.com/jonwraymond/healthops/recovery"
	"github.com/jonwraymond/healthops/resource"
)

// DefaultSummaryWindow is used by ResourceSummary for a non-positive window.
const DefaultSummaryWindow = time.Hour

// Dependencies are the collaborators an Orchestrator probes and repairs.
// A probe whose collaborator is nil is not registered.
type Dependencies struct {
	// Database backs the database probe. If it also implements
	// recovery.Restarter the pool restart action is available.
	Database health.Querier

	// Cache backs the cache probe. If it implements recovery.Reconnector
	// the reconnect action is available; if it implements
	// recovery.Clearer it is cleared by the memory reclaim action.
	Cache health.CacheClient

	// Clearers are extra caches emptied by the memory reclaim action.
	Clearers []recovery.Clearer

	// HTTPClient is used by external endpoint probes.
	HTTPClient *http.Client

	// Collector overrides the sampler's RuntimeCollector.
	Collector resource.Collector

	// Checkers and Actions are registered after the built-in ones.
	Checkers []health.Checker
	Actions  []recovery.Action

	Notifier    notify.Notifier
	Logger      observe.Logger
	Runner      *observe.Runner
	Instruments *observe.Instruments
}

// Orchestrator owns the registry, sampler and recovery engine.
type Orchestrator struct {
	cfg      Config
	logger   observe.Logger
	registry *health.Registry
	sampler  *resource.Sampler
	engine   *recovery.Engine

	mu      sync.Mutex
	running bool
}

// New wires an Orchestrator. It never fails: a probe with a bad timeout is
// registered anyway and reports unhealthy on every run.
func New(cfg Config, deps Dependencies) *Orchestrator {
	logger := deps.Logger
	if logger == nil {
		logger = observe.NopLogger()
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notify.Discard()
	}

	o := &Orchestrator{
		cfg:    cfg,
		logger: logger.With(observe.F("component", "monitor")),
		registry: health.NewRegistry(health.RegistryConfig{
			DefaultTimeout: cfg.DefaultTimeout,
			Logger:         logger,
			Instruments:    deps.Instruments,
		}),
		sampler: resource.NewSampler(resource.Config{
			Interval:    cfg.Sampler.Interval,
			HistorySize: cfg.Sampler.HistorySize,
			Thresholds:  cfg.Sampler.Thresholds,
			Collector:   deps.Collector,
			Notifier:    notifier,
			Logger:      logger,
			Instruments: deps.Instruments,
		}),
	}

	failovers := o.registerProbes(deps)

	o.engine = recovery.NewEngine(o.registry, recovery.Config{
		Interval:       cfg.Recovery.Interval,
		AlertThreshold: cfg.Recovery.AlertThreshold,
		ActionTimeout:  cfg.Recovery.ActionTimeout,
		Actions:        o.recoveryActions(deps, failovers),
		Notifier:       notifier,
		Logger:         logger,
		Runner:         deps.Runner,
		Instruments:    deps.Instruments,
	})
	return o
}

func (o *Orchestrator) registerProbes(deps Dependencies) []*health.ExternalChecker {
	ctx := context.Background()
	p := o.cfg.Probes

	if p.Database.Enabled {
		if deps.Database == nil {
			o.logger.Warn(ctx, "database probe enabled without a database; skipping")
		} else {
			o.registry.Register(health.NewDatabaseChecker(deps.Database, health.DatabaseCheckerConfig{
				NonCritical:     p.Database.NonCritical,
				SlowThreshold:   p.Database.SlowThreshold,
				CriticalQueries: p.Database.CriticalQueries,
			}), health.WithTimeout(p.Database.Timeout))
		}
	}

	if p.Cache.Enabled {
		if deps.Cache == nil {
			o.logger.Warn(ctx, "cache probe enabled without a cache; skipping")
		} else {
			o.registry.Register(health.NewCacheChecker(deps.Cache, health.CacheCheckerConfig{
				Critical:      p.Cache.Critical,
				SlowThreshold: p.Cache.SlowThreshold,
			}), health.WithTimeout(p.Cache.Timeout))
		}
	}

	if p.Resources.Enabled {
		th := o.sampler.Thresholds()
		o.registry.Register(health.NewResourceChecker(o.sampler, health.ResourceCheckerConfig{
			MemoryWarning: th.Memory.Warning,
			CPUWarning:    th.CPU.Warning,
		}), health.WithTimeout(p.Resources.Timeout))
	}

	var failovers []*health.ExternalChecker
	if p.External.Enabled {
		var opts []health.ExternalOption
		if deps.HTTPClient != nil {
			opts = append(opts, health.WithHTTPClient(deps.HTTPClient))
		}
		for _, ep := range p.External.Endpoints {
			checker := health.NewExternalChecker(ep, opts...)
			o.registry.Register(checker, health.WithTimeout(checker.Timeout()))
			if ep.Critical && ep.BackupURL != "" {
				failovers = append(failovers, checker)
			}
		}
	}

	for _, c := range deps.Checkers {
		o.registry.Register(c)
	}
	return failovers
}

func (o *Orchestrator) recoveryActions(deps Dependencies, failovers []*health.ExternalChecker) []recovery.Action {
	ac := o.cfg.Recovery.Actions
	registered := make(map[string]bool)
	for _, name := range o.registry.CheckerNames() {
		registered[name] = true
	}

	var actions []recovery.Action
	if ac.ReconnectCache && registered["cache"] {
		if r, ok := deps.Cache.(recovery.Reconnector); ok {
			actions = append(actions, recovery.ReconnectCache(r, nil))
		}
	}
	if ac.ReclaimMemory && registered["resources"] {
		clearers := append([]recovery.Clearer(nil), deps.Clearers...)
		if c, ok := deps.Cache.(recovery.Clearer); ok {
			clearers = append(clearers, c)
		}
		actions = append(actions, recovery.ReclaimMemory(clearers...))
	}
	if ac.FailoverEndpoints {
		for _, ep := range failovers {
			actions = append(actions, recovery.FailoverEndpoint(ep))
		}
	}
	if ac.RestartDatabasePool && registered["database"] {
		if r, ok := deps.Database.(recovery.Restarter); ok {
			actions = append(actions, recovery.RestartDatabasePool(r))
		}
	}
	actions = append(actions, deps.Actions...)

	for i := range actions {
		p, ok := ac.Policies[actions[i].ID]
		if !ok {
			continue
		}
		if p.Cooldown > 0 {
			actions[i].Cooldown = p.Cooldown
		}
		if p.MaxAttemptsPerWindow > 0 {
			actions[i].MaxAttemptsPerWindow = p.MaxAttemptsPerWindow
		}
	}
	return actions
}

// Start brings up the sampler (taking a first sample), then the recovery
// engine, then runs one synchronous health check, each only when enabled.
// Calling Start on a running Orchestrator is a no-op.
func (o *Orchestrator) Start(ctx context.Context) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.running {
		return
	}
	o.running = true

	if o.cfg.Sampler.Enabled {
		if err := o.sampler.Sample(ctx); err != nil {
			o.logger.Warn(ctx, "initial resource sample failed", observe.Err(err))
		}
		o.sampler.Start(ctx)
	}
	if o.cfg.Recovery.Enabled {
		o.engine.Start(ctx)
	}

	sh := o.registry.PerformHealthCheck(ctx)
	o.logger.Info(ctx, "health monitoring started",
		observe.F("overall", sh.Overall.String()),
		observe.F("targets", len(sh.Targets)))
}

// Stop halts the recovery engine and then the sampler, waiting for
// in-flight work.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.running {
		return
	}
	o.running = false

	o.engine.Stop()
	o.sampler.Stop()
	o.logger.Info(context.Background(), "health monitoring stopped")
}

// Running reports whether Start has been called without a matching Stop.
func (o *Orchestrator) Running() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

// Config returns the configuration the Orchestrator was built with.
func (o *Orchestrator) Config() Config { return o.cfg }

// Registry returns the probe registry.
func (o *Orchestrator) Registry() *health.Registry { return o.registry }

// SystemHealth runs every probe and aggregates the result.
func (o *Orchestrator) SystemHealth(ctx context.Context) health.SystemHealth {
	return o.registry.PerformHealthCheck(ctx)
}

// ServiceStatus runs one probe.
func (o *Orchestrator) ServiceStatus(ctx context.Context, name string) (health.TargetStatus, error) {
	ts, err := o.registry.Check(ctx, name)
	if errors.Is(err, health.ErrCheckerNotFound) {
		return health.TargetStatus{}, fmt.Errorf("%w: %s", ErrTargetNotFound, name)
	}
	return ts, err
}

// CurrentResourceMetrics returns the latest resource snapshot.
func (o *Orchestrator) CurrentResourceMetrics() (resource.Metrics, bool) {
	return o.sampler.Current()
}

// ResourceHistory returns up to limit snapshots, oldest first.
func (o *Orchestrator) ResourceHistory(limit int) []resource.Metrics {
	return o.sampler.History(limit)
}

// ActiveResourceAlerts returns the active resource alerts.
func (o *Orchestrator) ActiveResourceAlerts() []resource.Alert {
	return o.sampler.ActiveAlerts()
}

// ResourceAlertHistory returns recent alert events.
func (o *Orchestrator) ResourceAlertHistory() []resource.AlertEvent {
	return o.sampler.AlertHistory()
}

// ResourceSummary aggregates the trailing window, one hour by default.
func (o *Orchestrator) ResourceSummary(window time.Duration) resource.Summary {
	if window <= 0 {
		window = DefaultSummaryWindow
	}
	return o.sampler.Summary(window)
}

// RecoveryStats summarises remediation attempts.
func (o *Orchestrator) RecoveryStats() recovery.Stats {
	return o.engine.Stats()
}

// RecoveryHistory returns attempts for actionID, or all when empty.
func (o *Orchestrator) RecoveryHistory(actionID string) ([]recovery.Attempt, error) {
	return o.engine.History(actionID)
}

// RecoveryActions returns the configured recovery actions.
func (o *Orchestrator) RecoveryActions() []recovery.Action {
	return o.engine.Actions()
}

// SampleNow takes one resource sample outside the timer.
func (o *Orchestrator) SampleNow(ctx context.Context) error {
	return o.sampler.Sample(ctx)
}

// RecoverNow runs one recovery cycle outside the timer.
func (o *Orchestrator) RecoverNow(ctx context.Context) []recovery.Attempt {
	return o.engine.RunOnce(ctx)
}
