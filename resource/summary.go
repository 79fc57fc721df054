package resource

import "time"

// Reading holds the four evaluated metric values.
type Reading struct {
	MemoryPercent        float64 `json:"memory_percent"`
	CPUPercent           float64 `json:"cpu_percent"`
	SchedulerDelayMs     float64 `json:"scheduler_delay_ms"`
	SchedulerUtilization float64 `json:"scheduler_utilization"`
}

func readingOf(m Metrics) Reading {
	return Reading{
		MemoryPercent:        m.Memory.Percentage,
		CPUPercent:           m.CPU.Percent,
		SchedulerDelayMs:     m.Scheduler.DelayMillis(),
		SchedulerUtilization: m.Scheduler.Utilization,
	}
}

// Summary aggregates the snapshots of a trailing window.
type Summary struct {
	Window  time.Duration `json:"window"`
	Samples int           `json:"samples"`
	Average Reading       `json:"average"`
	Peak    Reading       `json:"peak"`

	// AlertCount counts alerts raised or upgraded inside the window.
	AlertCount int `json:"alert_count"`
}

// Summary aggregates snapshots and alert events from the trailing window.
// An empty window yields zero readings.
func (s *Sampler) Summary(window time.Duration) Summary {
	since := s.now().Add(-window)

	s.mu.RLock()
	samples := s.history.since(since)
	alerts := 0
	for _, e := range s.events {
		if e.Kind != EventResolved && !e.At.Before(since) {
			alerts++
		}
	}
	s.mu.RUnlock()

	sum := Summary{Window: window, Samples: len(samples), AlertCount: alerts}
	if len(samples) == 0 {
		return sum
	}

	var total Reading
	for i, m := range samples {
		r := readingOf(m)
		total.MemoryPercent += r.MemoryPercent
		total.CPUPercent += r.CPUPercent
		total.SchedulerDelayMs += r.SchedulerDelayMs
		total.SchedulerUtilization += r.SchedulerUtilization
		if i == 0 {
			sum.Peak = r
			continue
		}
		sum.Peak.MemoryPercent = max(sum.Peak.MemoryPercent, r.MemoryPercent)
		sum.Peak.CPUPercent = max(sum.Peak.CPUPercent, r.CPUPercent)
		sum.Peak.SchedulerDelayMs = max(sum.Peak.SchedulerDelayMs, r.SchedulerDelayMs)
		sum.Peak.SchedulerUtilization = max(sum.Peak.SchedulerUtilization, r.SchedulerUtilization)
	}

	n := float64(len(samples))
	sum.Average = Reading{
		MemoryPercent:        total.MemoryPercent / n,
		CPUPercent:           total.CPUPercent / n,
		SchedulerDelayMs:     total.SchedulerDelayMs / n,
		SchedulerUtilization: total.SchedulerUtilization / n,
	}
	return sum
}
