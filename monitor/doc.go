// Package monitor composes the probe registry, the resource sampler and the
// recovery engine into one Orchestrator.
//
// Start brings the parts up in dependency order (sampler, then recovery
// engine, then one synchronous health check) and Stop tears them down in
// reverse. The Orchestrator's query methods delegate to the parts.
//
// A process-wide Orchestrator is available through Default, built lazily
// from DefaultConfig with only the resource probe and a log notifier.
// Reinitialize replaces it, which test harnesses use to start from a clean
// slate. Services with real collaborators build their own with New.
package monitor
