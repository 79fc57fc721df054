package monitor

import (
	"errors"
	"fmt"
	"time"

	"github.com/jonwraymond/healthops/health"
	"github.com/jonwraymond/healthops/recovery"
	"github.com/jonwraymond/healthops/resource"
)

// Config holds every recognized monitoring option.
type Config struct {
	// DefaultTimeout applies to probes without their own timeout.
	// Default: 5s
	DefaultTimeout time.Duration `yaml:"default_timeout"`

	Probes   ProbesConfig   `yaml:"probes"`
	Sampler  SamplerConfig  `yaml:"sampler"`
	Recovery RecoveryConfig `yaml:"recovery"`
}

// ProbeConfig is shared by every probe. A zero Timeout selects the default
// and a negative one makes the probe report unhealthy on every run.
type ProbeConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Timeout       time.Duration `yaml:"timeout"`
	SlowThreshold time.Duration `yaml:"slow_threshold"`
}

// DatabaseProbeConfig configures the persistent-store probe.
type DatabaseProbeConfig struct {
	ProbeConfig     `yaml:",inline"`
	NonCritical     bool                `yaml:"non_critical"`
	CriticalQueries []health.NamedQuery `yaml:"critical_queries"`
}

// CacheProbeConfig configures the cache probe.
type CacheProbeConfig struct {
	ProbeConfig `yaml:",inline"`
	Critical    bool `yaml:"critical"`
}

// ResourceProbeConfig configures the resource-pressure probe.
type ResourceProbeConfig struct {
	Enabled bool          `yaml:"enabled"`
	Timeout time.Duration `yaml:"timeout"`
}

// ExternalProbeConfig configures one probe per endpoint.
type ExternalProbeConfig struct {
	Enabled   bool              `yaml:"enabled"`
	Endpoints []health.Endpoint `yaml:"endpoints"`
}

// ProbesConfig groups the probe options.
type ProbesConfig struct {
	Database  DatabaseProbeConfig `yaml:"database"`
	Cache     CacheProbeConfig    `yaml:"cache"`
	Resources ResourceProbeConfig `yaml:"resources"`
	External  ExternalProbeConfig `yaml:"external"`
}

// SamplerConfig configures the resource sampler.
type SamplerConfig struct {
	Enabled     bool                `yaml:"enabled"`
	Interval    time.Duration       `yaml:"interval"`
	HistorySize int                 `yaml:"history_size"`
	Thresholds  resource.Thresholds `yaml:"thresholds"`
}

// ActionPolicy overrides the gate of one recovery action.
type ActionPolicy struct {
	Cooldown             time.Duration `yaml:"cooldown"`
	MaxAttemptsPerWindow int           `yaml:"max_attempts_per_window"`
}

// ActionsConfig switches the reference recovery actions on or off.
type ActionsConfig struct {
	ReconnectCache      bool `yaml:"reconnect_cache"`
	ReclaimMemory       bool `yaml:"reclaim_memory"`
	FailoverEndpoints   bool `yaml:"failover_endpoints"`
	RestartDatabasePool bool `yaml:"restart_database_pool"`

	// Policies overrides cooldown and budget by action ID.
	Policies map[string]ActionPolicy `yaml:"policies"`
}

// RecoveryConfig configures the recovery engine.
type RecoveryConfig struct {
	Enabled        bool          `yaml:"enabled"`
	Interval       time.Duration `yaml:"interval"`
	AlertThreshold int           `yaml:"alert_threshold"`
	ActionTimeout  time.Duration `yaml:"action_timeout"`
	Actions        ActionsConfig `yaml:"actions"`
}

// DefaultConfig returns the reference configuration: every probe and both
// loops enabled, reference thresholds and intervals, and every reference
// recovery action switched on.
func DefaultConfig() Config {
	return Config{
		DefaultTimeout: health.DefaultCheckTimeout,
		Probes: ProbesConfig{
			Database: DatabaseProbeConfig{
				ProbeConfig: ProbeConfig{Enabled: true, SlowThreshold: time.Second},
			},
			Cache: CacheProbeConfig{
				ProbeConfig: ProbeConfig{Enabled: true, SlowThreshold: 500 * time.Millisecond},
			},
			Resources: ResourceProbeConfig{Enabled: true},
			External:  ExternalProbeConfig{Enabled: true},
		},
		Sampler: SamplerConfig{
			Enabled:     true,
			Interval:    resource.DefaultInterval,
			HistorySize: resource.DefaultHistorySize,
			Thresholds:  resource.DefaultThresholds(),
		},
		Recovery: RecoveryConfig{
			Enabled:        true,
			Interval:       recovery.DefaultInterval,
			AlertThreshold: recovery.DefaultAlertThreshold,
			ActionTimeout:  recovery.DefaultActionTimeout,
			Actions: ActionsConfig{
				ReconnectCache:      true,
				ReclaimMemory:       true,
				FailoverEndpoints:   true,
				RestartDatabasePool: true,
			},
		},
	}
}

// Validate reports configuration mistakes. New accepts an invalid Config
// regardless; Validate is for loaders that want to fail fast.
func (c Config) Validate() error {
	var errs []error
	if c.DefaultTimeout < 0 {
		errs = append(errs, fmt.Errorf("monitor: negative default timeout %v", c.DefaultTimeout))
	}
	if err := c.Sampler.Thresholds.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Sampler.Interval < 0 || c.Recovery.Interval < 0 {
		errs = append(errs, errors.New("monitor: negative interval"))
	}
	seen := make(map[string]bool)
	for i, ep := range c.Probes.External.Endpoints {
		switch {
		case ep.Name == "":
			errs = append(errs, fmt.Errorf("monitor: endpoint %d has no name", i))
		case ep.URL == "":
			errs = append(errs, fmt.Errorf("monitor: endpoint %s has no url", ep.Name))
		case seen[ep.Name]:
			errs = append(errs, fmt.Errorf("monitor: duplicate endpoint %s", ep.Name))
		}
		seen[ep.Name] = true
	}
	for id, p := range c.Recovery.Actions.Policies {
		if p.Cooldown < 0 || p.MaxAttemptsPerWindow < 0 {
			errs = append(errs, fmt.Errorf("monitor: invalid policy for action %s", id))
		}
	}
	return errors.Join(errs...)
}
