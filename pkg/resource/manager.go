// pkg/resource/manager.go
package resource

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/opd-ai/go-orbitsim/pkg/config"
	"github.com/opd-ai/go-orbitsim/pkg/logging"
)

var (
	// ErrGoroutineLimit is returned when starting a loop would exceed MaxGoroutines.
	ErrGoroutineLimit = errors.New("goroutine limit exceeded")
	// ErrAlreadyRunning is returned by Start on a running manager.
	ErrAlreadyRunning = errors.New("resource manager already running")
)

// ResourceManager tracks the long-lived goroutines that host simulations and
// keeps heap usage under the configured ceiling. Shutdown drains the tracked
// goroutines before returning.
type ResourceManager struct {
	maxMemoryMB     int64
	maxGoroutines   int64
	shutdownTimeout time.Duration
	checkInterval   time.Duration

	goroutineCount int64
	memoryUsageMB  int64

	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	mu      sync.RWMutex
	running bool
	logger  *logging.Logger

	// tracked counts live goroutines per name.
	tracked map[string]int

	readMemory func() int64

	lastMemoryCheck    time.Time
	lastGoroutineCheck time.Time
}

// NewResourceManager creates a resource manager with the limits from cfg.
// A nil logger falls back to the default JSON logger.
func NewResourceManager(cfg *config.EnvironmentConfig, logger *logging.Logger) *ResourceManager {
	ctx, cancel := context.WithCancel(context.Background())
	if logger == nil {
		logger = logging.NewLogger()
	}

	now := time.Now()
	return &ResourceManager{
		maxMemoryMB:        cfg.MaxMemoryMB,
		maxGoroutines:      int64(cfg.MaxGoroutines),
		shutdownTimeout:    cfg.ShutdownTimeout,
		checkInterval:      cfg.ResourceCheckInterval,
		ctx:                ctx,
		cancel:             cancel,
		done:               make(chan struct{}),
		logger:             logger.With("component", "resource"),
		tracked:            make(map[string]int),
		readMemory:         heapAllocMB,
		lastMemoryCheck:    now,
		lastGoroutineCheck: now,
	}
}

func heapAllocMB() int64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return int64(m.Alloc / 1024 / 1024)
}

// Start begins the periodic memory check loop.
func (rm *ResourceManager) Start() error {
	rm.mu.Lock()
	if rm.running {
		rm.mu.Unlock()
		return ErrAlreadyRunning
	}
	rm.running = true
	rm.mu.Unlock()

	go rm.monitoringLoop()

	rm.logger.Info(rm.ctx, "Resource manager started",
		"max_memory_mb", rm.maxMemoryMB,
		"max_goroutines", rm.maxGoroutines,
		"check_interval", rm.checkInterval,
	)
	return nil
}

// StartGoroutine runs fn on a tracked goroutine under name. A panic in fn is
// recovered and logged so one faulty simulation cannot take the host down.
func (rm *ResourceManager) StartGoroutine(ctx context.Context, name string, fn func(context.Context)) error {
	rm.mu.Lock()
	current := atomic.LoadInt64(&rm.goroutineCount)
	if current >= rm.maxGoroutines {
		rm.mu.Unlock()
		rm.logger.Warn(ctx, "Goroutine limit exceeded",
			"current", current,
			"limit", rm.maxGoroutines,
			"name", name,
		)
		return fmt.Errorf("%w: %d/%d", ErrGoroutineLimit, current, rm.maxGoroutines)
	}
	atomic.AddInt64(&rm.goroutineCount, 1)
	rm.tracked[name]++
	rm.mu.Unlock()

	go func() {
		defer rm.release(name)
		defer func() {
			if r := recover(); r != nil {
				rm.logger.Error(ctx, "Goroutine panic",
					fmt.Errorf("panic: %v", r),
					"name", name,
				)
			}
		}()
		fn(ctx)
	}()
	return nil
}

func (rm *ResourceManager) release(name string) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	atomic.AddInt64(&rm.goroutineCount, -1)
	if rm.tracked[name] <= 1 {
		delete(rm.tracked, name)
		return
	}
	rm.tracked[name]--
}

// Tracked reports whether a goroutine started under name is still running.
func (rm *ResourceManager) Tracked(name string) bool {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return rm.tracked[name] > 0
}

// Active returns the sorted names of running tracked goroutines.
func (rm *ResourceManager) Active() []string {
	rm.mu.RLock()
	names := make([]string, 0, len(rm.tracked))
	for name := range rm.tracked {
		names = append(names, name)
	}
	rm.mu.RUnlock()
	sort.Strings(names)
	return names
}

// CheckMemoryUsage samples heap usage and compares it to the limit.
func (rm *ResourceManager) CheckMemoryUsage() error {
	currentMB := rm.readMemory()
	atomic.StoreInt64(&rm.memoryUsageMB, currentMB)

	rm.mu.Lock()
	rm.lastMemoryCheck = time.Now()
	rm.mu.Unlock()

	if currentMB > rm.maxMemoryMB {
		return fmt.Errorf("memory usage %dMB exceeds limit %dMB", currentMB, rm.maxMemoryMB)
	}
	return nil
}

// GetGoroutineCount returns the number of tracked goroutines.
func (rm *ResourceManager) GetGoroutineCount() int64 {
	return atomic.LoadInt64(&rm.goroutineCount)
}

// GetMemoryUsage returns the last sampled heap usage in MB.
func (rm *ResourceManager) GetMemoryUsage() int64 {
	return atomic.LoadInt64(&rm.memoryUsageMB)
}

// GetResourceStats returns current resource usage statistics.
func (rm *ResourceManager) GetResourceStats() ResourceStats {
	rm.mu.RLock()
	lastMemory, lastGoroutine := rm.lastMemoryCheck, rm.lastGoroutineCheck
	rm.mu.RUnlock()

	return ResourceStats{
		GoroutineCount:     rm.GetGoroutineCount(),
		MaxGoroutines:      rm.maxGoroutines,
		MemoryUsageMB:      rm.GetMemoryUsage(),
		MaxMemoryMB:        rm.maxMemoryMB,
		LastMemoryCheck:    lastMemory,
		LastGoroutineCheck: lastGoroutine,
	}
}

// ResourceStats contains resource usage statistics.
type ResourceStats struct {
	GoroutineCount     int64     `json:"goroutine_count"`
	MaxGoroutines      int64     `json:"max_goroutines"`
	MemoryUsageMB      int64     `json:"memory_usage_mb"`
	MaxMemoryMB        int64     `json:"max_memory_mb"`
	LastMemoryCheck    time.Time `json:"last_memory_check"`
	LastGoroutineCheck time.Time `json:"last_goroutine_check"`
}

// Shutdown stops the monitoring loop and waits for tracked goroutines to
// exit. Callers cancel the contexts they passed to StartGoroutine first.
func (rm *ResourceManager) Shutdown(ctx context.Context) error {
	rm.mu.Lock()
	wasRunning := rm.running
	rm.running = false
	rm.mu.Unlock()

	rm.logger.Info(ctx, "Shutting down resource manager")
	rm.cancel()

	shutdownCtx, cancel := context.WithTimeout(ctx, rm.shutdownTimeout)
	defer cancel()

	if wasRunning {
		select {
		case <-rm.done:
		case <-shutdownCtx.Done():
			rm.logger.Warn(ctx, "Resource manager monitoring loop did not stop gracefully")
		}
	}

	return rm.waitForGoroutines(shutdownCtx)
}

func (rm *ResourceManager) waitForGoroutines(ctx context.Context) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		count := rm.GetGoroutineCount()
		if count == 0 {
			rm.logger.Debug(ctx, "All tracked goroutines finished")
			return nil
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			remaining := rm.GetGoroutineCount()
			rm.logger.Warn(ctx, "Shutdown timeout exceeded with goroutines still running",
				"remaining", remaining,
				"names", rm.Active(),
			)
			return fmt.Errorf("shutdown timeout: %d goroutines still running", remaining)
		}
	}
}

func (rm *ResourceManager) monitoringLoop() {
	defer close(rm.done)

	ticker := time.NewTicker(rm.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rm.performResourceChecks()
		case <-rm.ctx.Done():
			rm.logger.Debug(rm.ctx, "Resource monitoring loop stopping")
			return
		}
	}
}

func (rm *ResourceManager) performResourceChecks() {
	if err := rm.CheckMemoryUsage(); err != nil {
		rm.logger.Error(rm.ctx, "Memory limit exceeded", err,
			"current_mb", rm.GetMemoryUsage(),
			"limit_mb", rm.maxMemoryMB,
		)
	}

	rm.mu.Lock()
	rm.lastGoroutineCheck = time.Now()
	rm.mu.Unlock()

	rm.logger.Debug(rm.ctx, "Resource usage check",
		"goroutines", rm.GetGoroutineCount(),
		"max_goroutines", rm.maxGoroutines,
		"memory_mb", rm.GetMemoryUsage(),
	)
}
