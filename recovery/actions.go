package recovery

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"

	"github.com/jonwraymond/healthops/health"
	"github.com/jonwraymond/healthops/resilience"
)

// Reconnector re-establishes a client connection. *cache.RedisCache
// satisfies it.
type Reconnector interface {
	Reconnect(ctx context.Context) error
}

// Clearer drops cached entries and reports how many were removed.
// *cache.MemoryCache satisfies it.
type Clearer interface {
	Clear(ctx context.Context) (int, error)
}

// Failoverer switches an endpoint to its backup. *health.ExternalChecker
// satisfies it.
type Failoverer interface {
	Name() string
	Failover(ctx context.Context) error
}

// Restarter recycles a connection pool. *store.PGStore satisfies it.
type Restarter interface {
	Restart(ctx context.Context) error
}

// MemoryReclaimThreshold is the memory percentage above which ReclaimMemory
// applies.
const MemoryReclaimThreshold = 80.0

// SlowDatabaseThreshold is the probe response time at which
// RestartDatabasePool applies.
const SlowDatabaseThreshold = 5 * time.Second

var connectionKeywords = []string{
	"connection",
	"connect",
	"refused",
	"reset by peer",
	"broken pipe",
	"eof",
	"timed out",
	"timeout",
	"closed",
}

// IsConnectionError reports whether msg describes a connectivity failure.
func IsConnectionError(msg string) bool {
	msg = strings.ToLower(msg)
	for _, kw := range connectionKeywords {
		if strings.Contains(msg, kw) {
			return true
		}
	}
	return false
}

// ReconnectCache reconnects the cache client when its probe fails with a
// connection error. Reconnects are retried with backoff; a nil retry uses
// the resilience defaults.
func ReconnectCache(client Reconnector, retry *resilience.Retry) Action {
	if retry == nil {
		retry = resilience.NewRetry(resilience.RetryConfig{})
	}
	return Action{
		ID:            "reconnect_cache",
		TargetService: "cache",
		Description:   "Reconnect the cache client",
		Condition: func(ts health.TargetStatus) bool {
			return ts.State == health.StatusUnhealthy && IsConnectionError(ts.Error)
		},
		Remediate: func(ctx context.Context) error {
			return retry.Execute(ctx, client.Reconnect)
		},
		Cooldown:             5 * time.Minute,
		MaxAttemptsPerWindow: 3,
	}
}

// ReclaimMemory forces a garbage collection, returns freed memory to the
// OS, and empties the given caches when memory pressure is above
// MemoryReclaimThreshold.
func ReclaimMemory(clearers ...Clearer) Action {
	return Action{
		ID:            "reclaim_memory",
		TargetService: "resources",
		Description:   "Force garbage collection and clear caches",
		Condition: func(ts health.TargetStatus) bool {
			pct, ok := ts.Metadata["memory_percent"].(float64)
			return ok && pct > MemoryReclaimThreshold
		},
		Remediate: func(ctx context.Context) error {
			var errs []error
			for _, c := range clearers {
				if _, err := c.Clear(ctx); err != nil {
					errs = append(errs, err)
				}
			}
			runtime.GC()
			debug.FreeOSMemory()
			return errors.Join(errs...)
		},
		Cooldown:             10 * time.Minute,
		MaxAttemptsPerWindow: 2,
	}
}

// FailoverEndpoint switches a critical external endpoint to its backup URL
// when it is unhealthy.
func FailoverEndpoint(ep Failoverer) Action {
	return Action{
		ID:            "failover_" + ep.Name(),
		TargetService: ep.Name(),
		Description:   fmt.Sprintf("Fail over %s to its backup endpoint", ep.Name()),
		Condition: func(ts health.TargetStatus) bool {
			return ts.Critical && ts.State == health.StatusUnhealthy
		},
		Remediate:            ep.Failover,
		Cooldown:             2 * time.Minute,
		MaxAttemptsPerWindow: 5,
	}
}

// RestartDatabasePool recycles the database pool when the probe response
// time reaches SlowDatabaseThreshold.
func RestartDatabasePool(r Restarter) Action {
	return Action{
		ID:            "restart_database_pool",
		TargetService: "database",
		Description:   "Restart the database connection pool",
		Condition: func(ts health.TargetStatus) bool {
			return ts.ResponseTime >= SlowDatabaseThreshold
		},
		Remediate:            r.Restart,
		Cooldown:             15 * time.Minute,
		MaxAttemptsPerWindow: 2,
	}
}
