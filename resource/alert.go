package resource

import (
	"fmt"
	"time"
)

// Category names the metric an alert is about. It doubles as the alert ID.
type Category string

const (
	CategoryMemory               Category = "memory"
	CategoryCPU                  Category = "cpu"
	CategorySchedulerDelay       Category = "scheduler-delay"
	CategorySchedulerUtilization Category = "scheduler-utilization"
)

// Categories lists every category in evaluation order.
var Categories = []Category{
	CategoryMemory,
	CategoryCPU,
	CategorySchedulerDelay,
	CategorySchedulerUtilization,
}

func (c Category) unit() string {
	if c == CategorySchedulerDelay {
		return "ms"
	}
	return "%"
}

func (c Category) label() string {
	switch c {
	case CategoryMemory:
		return "Memory usage"
	case CategoryCPU:
		return "CPU usage"
	case CategorySchedulerDelay:
		return "Scheduler delay"
	case CategorySchedulerUtilization:
		return "Scheduler utilization"
	}
	return string(c)
}

// Severity is the level of an active alert.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

func (s Severity) rank() int {
	if s == SeverityCritical {
		return 2
	}
	return 1
}

// Threshold is a warning/critical pair. A value strictly above a level
// crosses it.
type Threshold struct {
	Warning  float64 `yaml:"warning" json:"warning"`
	Critical float64 `yaml:"critical" json:"critical"`
}

// IsZero reports whether neither level is set.
func (t Threshold) IsZero() bool { return t.Warning == 0 && t.Critical == 0 }

// Thresholds holds one Threshold per category. Memory, CPU and utilization
// are percentages; SchedulerDelay is in milliseconds.
type Thresholds struct {
	Memory               Threshold `yaml:"memory" json:"memory"`
	CPU                  Threshold `yaml:"cpu" json:"cpu"`
	SchedulerDelay       Threshold `yaml:"scheduler_delay" json:"scheduler_delay"`
	SchedulerUtilization Threshold `yaml:"scheduler_utilization" json:"scheduler_utilization"`
}

// DefaultThresholds returns the reference thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Memory:               Threshold{Warning: 70, Critical: 85},
		CPU:                  Threshold{Warning: 70, Critical: 90},
		SchedulerDelay:       Threshold{Warning: 10, Critical: 50},
		SchedulerUtilization: Threshold{Warning: 70, Critical: 90},
	}
}

// For returns the threshold of category c.
func (t Thresholds) For(c Category) Threshold {
	switch c {
	case CategoryMemory:
		return t.Memory
	case CategoryCPU:
		return t.CPU
	case CategorySchedulerDelay:
		return t.SchedulerDelay
	case CategorySchedulerUtilization:
		return t.SchedulerUtilization
	}
	return Threshold{}
}

// withDefaults fills unset pairs from DefaultThresholds.
func (t Thresholds) withDefaults() Thresholds {
	d := DefaultThresholds()
	if t.Memory.IsZero() {
		t.Memory = d.Memory
	}
	if t.CPU.IsZero() {
		t.CPU = d.CPU
	}
	if t.SchedulerDelay.IsZero() {
		t.SchedulerDelay = d.SchedulerDelay
	}
	if t.SchedulerUtilization.IsZero() {
		t.SchedulerUtilization = d.SchedulerUtilization
	}
	return t
}

// Validate checks that every pair is non-negative with warning below
// critical. Unset pairs are valid and take defaults.
func (t Thresholds) Validate() error {
	for _, c := range Categories {
		th := t.For(c)
		if th.IsZero() {
			continue
		}
		if th.Warning < 0 || th.Critical < 0 {
			return fmt.Errorf("%w: %s levels must be non-negative", ErrInvalidThreshold, c)
		}
		if th.Warning >= th.Critical {
			return fmt.Errorf("%w: %s warning %.2f must be below critical %.2f",
				ErrInvalidThreshold, c, th.Warning, th.Critical)
		}
	}
	return nil
}

// Alert is an active or resolved threshold breach.
type Alert struct {
	ID         string     `json:"id"`
	Category   Category   `json:"category"`
	Severity   Severity   `json:"severity"`
	Message    string     `json:"message"`
	Value      float64    `json:"value"`
	Threshold  float64    `json:"threshold"`
	RaisedAt   time.Time  `json:"raised_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// Resolved reports whether the alert has been resolved.
func (a Alert) Resolved() bool { return a.ResolvedAt != nil }

func (a Alert) clone() Alert {
	if a.ResolvedAt != nil {
		t := *a.ResolvedAt
		a.ResolvedAt = &t
	}
	return a
}

// EventKind classifies an alert history entry.
type EventKind string

const (
	EventRaised   EventKind = "raised"
	EventUpgraded EventKind = "upgraded"
	EventResolved EventKind = "resolved"
)

// AlertEvent is one entry of the alert history.
type AlertEvent struct {
	Kind  EventKind `json:"kind"`
	Alert Alert     `json:"alert"`
	At    time.Time `json:"at"`
}

func alertMessage(c Category, s Severity, value, threshold float64) string {
	return fmt.Sprintf("%s %.1f%s exceeds %s threshold %.1f%s",
		c.label(), value, c.unit(), s, threshold, c.unit())
}

func resolvedMessage(c Category, value float64) string {
	return fmt.Sprintf("%s back to normal at %.1f%s", c.label(), value, c.unit())
}
