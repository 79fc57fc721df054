// Package resilience provides the failure-containment primitives used by the
// health monitor.
//
// Probes, remediations and notification delivery all talk to collaborators
// that can hang or fail. The patterns here keep those failures local:
//
//   - Timeout / Call: bound a single probe or remediation and turn a panic
//     into an ordinary error.
//
//   - Circuit Breaker: stop calling an external endpoint after repeated
//     failures and report it unhealthy without touching the network.
//
//   - Retry: re-attempt a reconnect with exponential backoff.
//
//   - Rate Limiter: cap how many notifications leave the process per second.
//
// # Usage
//
//	status, err := resilience.Call(ctx, 5*time.Second, func(ctx context.Context) (int, error) {
//	    return db.Query(ctx, "SELECT 1")
//	})
//	if errors.Is(err, resilience.ErrTimeout) {
//	    // report the probe unhealthy
//	}
package resilience
