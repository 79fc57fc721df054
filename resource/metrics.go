package resource

import "time"

// Metrics is one resource snapshot. Snapshots are values and are never
// modified after collection.
type Metrics struct {
	Timestamp time.Time        `json:"timestamp"`
	Memory    MemoryMetrics    `json:"memory"`
	CPU       CPUMetrics       `json:"cpu"`
	Process   ProcessMetrics   `json:"process"`
	Scheduler SchedulerMetrics `json:"scheduler"`
}

// MemoryMetrics describes Go heap and process memory.
type MemoryMetrics struct {
	HeapUsed   uint64  `json:"heap_used"`
	HeapTotal  uint64  `json:"heap_total"`
	Percentage float64 `json:"percentage"`
	Sys        uint64  `json:"sys"`
	Stack      uint64  `json:"stack"`
	RSS        uint64  `json:"rss"`

	// SystemPercent is host memory in use, 0 when unavailable.
	SystemPercent float64 `json:"system_percent"`
}

// CPUMetrics describes process CPU usage.
type CPUMetrics struct {
	UserSeconds   float64 `json:"user_seconds"`
	SystemSeconds float64 `json:"system_seconds"`

	// Percent is process CPU since the previous sample, normalized to
	// 0-100 across all CPUs.
	Percent float64 `json:"percent"`

	Load1  float64 `json:"load1"`
	Load5  float64 `json:"load5"`
	Load15 float64 `json:"load15"`
	NumCPU int     `json:"num_cpu"`
}

// ProcessMetrics describes the running process.
type ProcessMetrics struct {
	PID        int           `json:"pid"`
	Uptime     time.Duration `json:"uptime"`
	Goroutines int           `json:"goroutines"`
	OpenFiles  int           `json:"open_files"`
}

// SchedulerMetrics describes Go scheduler responsiveness.
type SchedulerMetrics struct {
	// Delay is how long a freshly spawned goroutine waited to run.
	Delay time.Duration `json:"delay"`

	// Utilization is the share of available CPU time spent outside the
	// idle class since the previous sample, 0-100.
	Utilization float64 `json:"utilization"`
}

// DelayMillis returns the scheduler delay in milliseconds.
func (s SchedulerMetrics) DelayMillis() float64 {
	return float64(s.Delay.Microseconds()) / 1000
}
