// Package observe provides the telemetry primitives shared by the health
// monitoring packages: a structured Logger, an OpenTelemetry Observer,
// domain Instruments, and Runner, which wraps a unit of work in a span, a
// duration measurement and a log line.
//
// Nothing here performs health checks itself. Callers construct an Observer
// once at startup and hand its pieces to the registry, sampler and recovery
// engine.
package observe
