package health

import (
	"context"
	"fmt"
	"time"
)

// ResourcePressure is the slice of a resource sample the probe evaluates.
type ResourcePressure struct {
	MemoryPercent float64
	CPUPercent    float64
	CollectedAt   time.Time
}

// PressureSource supplies the latest resource sample, if any.
type PressureSource interface {
	Pressure() (ResourcePressure, bool)
}

// ResourceCheckerConfig configures the resource probe.
type ResourceCheckerConfig struct {
	// MemoryWarning is the memory percentage that degrades the target.
	// Default: 70
	MemoryWarning float64

	// CPUWarning is the CPU percentage that degrades the target.
	// Default: 70
	CPUWarning float64
}

// ResourceChecker reports local resource pressure from the sampler's most
// recent snapshot. It never collects metrics itself.
type ResourceChecker struct {
	source PressureSource
	config ResourceCheckerConfig
}

// NewResourceChecker creates the "resources" probe.
func NewResourceChecker(source PressureSource, config ResourceCheckerConfig) *ResourceChecker {
	if config.MemoryWarning <= 0 {
		config.MemoryWarning = 70
	}
	if config.CPUWarning <= 0 {
		config.CPUWarning = 70
	}
	return &ResourceChecker{source: source, config: config}
}

func (c *ResourceChecker) Name() string   { return "resources" }
func (c *ResourceChecker) Critical() bool { return false }

func (c *ResourceChecker) Check(ctx context.Context) Result {
	p, ok := c.source.Pressure()
	if !ok {
		return Healthy("no resource samples yet").WithMetadata(map[string]any{"samples": 0})
	}

	md := map[string]any{
		"memory_percent": p.MemoryPercent,
		"cpu_percent":    p.CPUPercent,
		"sampled_at":     p.CollectedAt,
	}

	switch {
	case p.MemoryPercent > c.config.MemoryWarning:
		return Degraded(fmt.Sprintf("memory usage high: %.1f%%", p.MemoryPercent)).WithMetadata(md)
	case p.CPUPercent > c.config.CPUWarning:
		return Degraded(fmt.Sprintf("cpu usage high: %.1f%%", p.CPUPercent)).WithMetadata(md)
	default:
		return Healthy(fmt.Sprintf("memory %.1f%%, cpu %.1f%%", p.MemoryPercent, p.CPUPercent)).WithMetadata(md)
	}
}
