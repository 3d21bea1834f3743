package health

import (
	"context"
	"fmt"
	"runtime"
)

// MemoryCheckerConfig configures the memory health checker.
type MemoryCheckerConfig struct {
	// Limit is the heap size, in bytes, the thresholds are measured
	// against. Zero uses the memory obtained from the OS (runtime Sys).
	Limit uint64

	// Warning is the fraction of Limit that is degraded. Default: 0.8
	Warning float64

	// Critical is the fraction of Limit that is unhealthy. Default: 0.95
	Critical float64
}

// MemoryChecker reports heap usage.
type MemoryChecker struct {
	config  MemoryCheckerConfig
	readMem func(*runtime.MemStats)
}

// NewMemoryChecker creates a memory checker.
func NewMemoryChecker(config MemoryCheckerConfig) *MemoryChecker {
	if config.Warning <= 0 || config.Warning >= 1 {
		config.Warning = 0.8
	}
	if config.Critical <= 0 || config.Critical >= 1 {
		config.Critical = 0.95
	}
	if config.Critical < config.Warning {
		config.Critical = min(config.Warning+0.1, 0.99)
	}
	return &MemoryChecker{config: config, readMem: runtime.ReadMemStats}
}

// Name returns "memory".
func (m *MemoryChecker) Name() string { return "memory" }

// Check compares the live heap with the configured limit.
func (m *MemoryChecker) Check(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return Unhealthy("context cancelled", err)
	}

	var stats runtime.MemStats
	m.readMem(&stats)

	limit := m.config.Limit
	if limit == 0 {
		limit = stats.Sys
	}
	details := map[string]any{
		"heap_alloc_bytes": stats.HeapAlloc,
		"sys_bytes":        stats.Sys,
		"limit_bytes":      limit,
		"num_gc":           stats.NumGC,
		"goroutines":       runtime.NumGoroutine(),
	}
	if limit == 0 {
		return Healthy("memory stats unavailable").WithDetails(details)
	}

	ratio := float64(stats.HeapAlloc) / float64(limit)
	details["usage_percent"] = ratio * 100

	switch {
	case ratio >= m.config.Critical:
		return Unhealthy(fmt.Sprintf("memory usage critical: %.1f%%", ratio*100), ErrCheckFailed).WithDetails(details)
	case ratio >= m.config.Warning:
		return Degraded(fmt.Sprintf("memory usage high: %.1f%%", ratio*100)).WithDetails(details)
	default:
		return Healthy(fmt.Sprintf("memory usage normal: %.1f%%", ratio*100)).WithDetails(details)
	}
}
