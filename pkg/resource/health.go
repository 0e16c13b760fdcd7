// pkg/resource/health.go
package resource

import (
	"context"
	"fmt"
)

// goroutineHeadroom is the fraction of MaxGoroutines above which the host
// reports itself not ready for new sessions.
const goroutineHeadroom = 0.8

// ResourceHealthCheck reports unhealthy when memory is over the limit or the
// tracked simulation loops approach MaxGoroutines.
type ResourceHealthCheck struct {
	manager *ResourceManager
}

// NewResourceHealthCheck creates a health check backed by manager.
func NewResourceHealthCheck(manager *ResourceManager) *ResourceHealthCheck {
	return &ResourceHealthCheck{manager: manager}
}

// Name returns the name of this health check.
func (r *ResourceHealthCheck) Name() string {
	return "resource"
}

// Check verifies that resource usage is within acceptable limits.
func (r *ResourceHealthCheck) Check(ctx context.Context) error {
	stats := r.manager.GetResourceStats()

	if stats.MemoryUsageMB > stats.MaxMemoryMB {
		return fmt.Errorf("memory usage %dMB exceeds limit %dMB",
			stats.MemoryUsageMB, stats.MaxMemoryMB)
	}

	threshold := int64(float64(stats.MaxGoroutines) * goroutineHeadroom)
	if stats.GoroutineCount > threshold {
		return fmt.Errorf("tracked goroutines %d exceed %.0f%% of limit (%d/%d)",
			stats.GoroutineCount, goroutineHeadroom*100, threshold, stats.MaxGoroutines)
	}
	return nil
}
