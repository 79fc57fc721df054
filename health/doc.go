// Package health probes the dependencies of a service and aggregates the
// results into a single SystemHealth.
//
// # Checkers
//
// A Checker probes one target and reports a Result. The package ships
// probes for a persistent store (DatabaseChecker), a cache (CacheChecker),
// external HTTP endpoints (ExternalChecker) and local resource pressure
// (ResourceChecker).
//
// # Registry
//
// Registry runs every registered probe in parallel, each under its own
// timeout. A probe that times out or panics is reported unhealthy; it never
// fails the whole check:
//
//	reg := health.NewRegistry(health.RegistryConfig{})
//	reg.Register(health.NewDatabaseChecker(db, health.DatabaseCheckerConfig{}),
//	    health.WithTimeout(5*time.Second))
//	reg.Register(health.NewCacheChecker(rdb, health.CacheCheckerConfig{}))
//
//	h := reg.PerformHealthCheck(ctx)
//
// The overall status follows Aggregate: a single unhealthy critical target,
// or a majority of unhealthy targets, makes the system unhealthy.
//
// # HTTP Endpoints
//
//	health.RegisterHandlers(mux, reg) // /healthz, /readyz, /health, /health/{name}
package health
