package health

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Querier is the persistent-store contract the database probe needs.
type Querier interface {
	Query(ctx context.Context, query string) ([]map[string]any, error)
}

// NamedQuery is an extra query whose outcome is reported in the probe
// metadata under critical_queries.
type NamedQuery struct {
	Name string `yaml:"name"`
	SQL  string `yaml:"sql"`
}

// DatabaseCheckerConfig configures the database probe.
type DatabaseCheckerConfig struct {
	// Name is the target name. Default: "database"
	Name string

	// NonCritical excludes the store from the critical-path rule.
	NonCritical bool

	// PingQuery is the round-trip query. Default: "SELECT 1"
	PingQuery string

	// SlowThreshold marks the store degraded. Default: 1 second
	SlowThreshold time.Duration

	CriticalQueries []NamedQuery
}

// DatabaseChecker probes the persistent store with a trivial query.
type DatabaseChecker struct {
	db     Querier
	config DatabaseCheckerConfig
}

// NewDatabaseChecker creates a database probe.
func NewDatabaseChecker(db Querier, config DatabaseCheckerConfig) *DatabaseChecker {
	if config.Name == "" {
		config.Name = "database"
	}
	if config.PingQuery == "" {
		config.PingQuery = "SELECT 1"
	}
	if config.SlowThreshold <= 0 {
		config.SlowThreshold = time.Second
	}
	return &DatabaseChecker{db: db, config: config}
}

func (c *DatabaseChecker) Name() string   { return c.config.Name }
func (c *DatabaseChecker) Critical() bool { return !c.config.NonCritical }

// Check runs the ping query and then each named query. A failing ping is
// unhealthy. A slow ping or any failing named query is degraded.
func (c *DatabaseChecker) Check(ctx context.Context) Result {
	start := time.Now()
	_, err := c.db.Query(ctx, c.config.PingQuery)
	latency := time.Since(start)

	if err != nil {
		return Unhealthy("database unreachable", err).WithResponseTime(latency)
	}

	md := map[string]any{
		"latency_ms": latency.Milliseconds(),
	}

	var failed []string
	if len(c.config.CriticalQueries) > 0 {
		results := make(map[string]any, len(c.config.CriticalQueries))
		for _, q := range c.config.CriticalQueries {
			qs := time.Now()
			_, qerr := c.db.Query(ctx, q.SQL)
			entry := map[string]any{
				"success":    qerr == nil,
				"latency_ms": time.Since(qs).Milliseconds(),
			}
			if qerr != nil {
				entry["error"] = qerr.Error()
				failed = append(failed, q.Name)
			}
			results[q.Name] = entry
		}
		md["critical_queries"] = results
	}

	switch {
	case len(failed) > 0:
		r := Degraded(fmt.Sprintf("%d critical queries failed", len(failed)))
		r.Error = errors.New("failed queries: " + strings.Join(failed, ", "))
		return r.WithMetadata(md).WithResponseTime(latency)
	case latency > c.config.SlowThreshold:
		return Degraded(fmt.Sprintf("slow response: %v", latency.Round(time.Millisecond))).
			WithMetadata(md).WithResponseTime(latency)
	default:
		return Healthy("database reachable").WithMetadata(md).WithResponseTime(latency)
	}
}
