// Package resource samples process and runtime metrics on a timer, keeps a
// bounded history of snapshots, and raises or resolves threshold alerts.
//
// A Sampler evaluates four metrics independently on every tick: heap memory
// percentage, process CPU percentage, scheduler delay and scheduler
// utilization. Each has a warning/critical threshold pair. At most one alert
// is active per metric category; a notification is sent only when an alert
// is raised or its severity strictly increases, and exactly once when it
// resolves.
//
// RuntimeCollector is the production Collector. It reads runtime.MemStats and
// runtime/metrics and queries the operating system through gopsutil.
package resource
