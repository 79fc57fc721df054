package resource

import (
	"context"
	"os"
	"runtime"
	rtmetrics "runtime/metrics"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// Collector captures one resource snapshot.
//
// Contract:
// - Concurrency: Collect is never called concurrently by a Sampler, but
//   implementations should still be safe for concurrent use.
// - Context: Collect must return ctx.Err() once ctx is done.
type Collector interface {
	Collect(ctx context.Context) (Metrics, error)
}

// CollectorFunc adapts a function to Collector.
type CollectorFunc func(ctx context.Context) (Metrics, error)

func (f CollectorFunc) Collect(ctx context.Context) (Metrics, error) { return f(ctx) }

const (
	cpuTotalMetric = "/cpu/classes/total:cpu-seconds"
	cpuIdleMetric  = "/cpu/classes/idle:cpu-seconds"
)

// RuntimeCollector samples the current process.
//
// Operating system figures (RSS, CPU, load, open files, host memory) come
// from gopsutil and are best effort: a platform that cannot report one
// leaves it zero rather than failing the snapshot.
type RuntimeCollector struct {
	started time.Time
	pid     int

	mu        sync.Mutex
	proc      *process.Process
	cpuSample [2]rtmetrics.Sample
	lastTotal float64
	lastIdle  float64
}

// NewRuntimeCollector creates a collector for the calling process.
func NewRuntimeCollector() *RuntimeCollector {
	pid := os.Getpid()
	c := &RuntimeCollector{
		started: time.Now(),
		pid:     pid,
	}
	c.cpuSample[0].Name = cpuTotalMetric
	c.cpuSample[1].Name = cpuIdleMetric

	if p, err := process.NewProcess(int32(pid)); err == nil {
		c.proc = p
	}
	return c
}

// Collect implements Collector.
func (c *RuntimeCollector) Collect(ctx context.Context) (Metrics, error) {
	if err := ctx.Err(); err != nil {
		return Metrics{}, err
	}

	delay, err := schedulerDelay(ctx)
	if err != nil {
		return Metrics{}, err
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	m := Metrics{
		Timestamp: time.Now(),
		Memory: MemoryMetrics{
			HeapUsed:   ms.HeapAlloc,
			HeapTotal:  ms.HeapSys,
			Percentage: percent(float64(ms.HeapAlloc), float64(ms.HeapSys)),
			Sys:        ms.Sys,
			Stack:      ms.StackSys,
		},
		CPU: CPUMetrics{
			NumCPU: runtime.NumCPU(),
		},
		Process: ProcessMetrics{
			PID:        c.pid,
			Uptime:     time.Since(c.started),
			Goroutines: runtime.NumGoroutine(),
		},
		Scheduler: SchedulerMetrics{
			Delay: delay,
		},
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	m.Scheduler.Utilization = c.utilizationLocked()

	if c.proc != nil {
		if info, err := c.proc.MemoryInfoWithContext(ctx); err == nil {
			m.Memory.RSS = info.RSS
		}
		if times, err := c.proc.TimesWithContext(ctx); err == nil {
			m.CPU.UserSeconds = times.User
			m.CPU.SystemSeconds = times.System
		}
		if pct, err := c.proc.PercentWithContext(ctx, 0); err == nil && m.CPU.NumCPU > 0 {
			m.CPU.Percent = clampPercent(pct / float64(m.CPU.NumCPU))
		}
		if fds, err := c.proc.NumFDsWithContext(ctx); err == nil {
			m.Process.OpenFiles = int(fds)
		}
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		m.Memory.SystemPercent = vm.UsedPercent
	}
	if avg, err := load.AvgWithContext(ctx); err == nil {
		m.CPU.Load1, m.CPU.Load5, m.CPU.Load15 = avg.Load1, avg.Load5, avg.Load15
	}

	return m, ctx.Err()
}

// utilizationLocked returns the busy share of CPU time since the previous
// call. The first call establishes the baseline and returns 0.
func (c *RuntimeCollector) utilizationLocked() float64 {
	rtmetrics.Read(c.cpuSample[:])
	if c.cpuSample[0].Value.Kind() != rtmetrics.KindFloat64 ||
		c.cpuSample[1].Value.Kind() != rtmetrics.KindFloat64 {
		return 0
	}
	total := c.cpuSample[0].Value.Float64()
	idle := c.cpuSample[1].Value.Float64()

	dTotal, dIdle := total-c.lastTotal, idle-c.lastIdle
	first := c.lastTotal == 0
	c.lastTotal, c.lastIdle = total, idle
	if first || dTotal <= 0 {
		return 0
	}
	return clampPercent((dTotal - dIdle) / dTotal * 100)
}

// schedulerDelay measures how long a new goroutine waits before it runs.
func schedulerDelay(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	woke := make(chan time.Duration, 1)
	go func() { woke <- time.Since(start) }()

	select {
	case d := <-woke:
		return d, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func percent(part, whole float64) float64 {
	if whole <= 0 {
		return 0
	}
	return part / whole * 100
}

func clampPercent(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}
