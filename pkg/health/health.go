// Package health provides liveness and readiness endpoints for the simulator
// server. Readiness aggregates pluggable checks: session capacity, the HTTP
// listener, resource limits and shutdown draining.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// HealthCheck is one readiness condition. Check returns nil when ready.
type HealthCheck interface {
	Name() string
	Check(ctx context.Context) error
}

// HealthStatus is the readiness body: "healthy" or "unhealthy" plus one
// entry per check.
type HealthStatus struct {
	Status string                     `json:"status"`
	Checks map[string]ComponentHealth `json:"checks"`
}

// ComponentHealth carries a failing check's error as Message.
type ComponentHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HealthChecker holds the readiness checks, keyed by name.
type HealthChecker struct {
	checks map[string]HealthCheck
	mu     sync.RWMutex
}

func NewHealthChecker() *HealthChecker {
	return &HealthChecker{
		checks: make(map[string]HealthCheck),
	}
}

// AddCheck registers check, replacing any check with the same name.
func (hc *HealthChecker) AddCheck(check HealthCheck) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.checks[check.Name()] = check
}

func (hc *HealthChecker) RemoveCheck(name string) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	delete(hc.checks, name)
}

// CheckHealth runs every check in turn under ctx.
func (hc *HealthChecker) CheckHealth(ctx context.Context) HealthStatus {
	hc.mu.RLock()
	defer hc.mu.RUnlock()

	status := HealthStatus{
		Status: "healthy",
		Checks: make(map[string]ComponentHealth),
	}

	for name, check := range hc.checks {
		res := ComponentHealth{Status: "healthy"}
		if err := check.Check(ctx); err != nil {
			res = ComponentHealth{Status: "unhealthy", Message: err.Error()}
			status.Status = "unhealthy"
		}
		status.Checks[name] = res
	}
	return status
}

// LivenessHandler always answers 200 {"status":"alive"}; it runs no checks.
func (hc *HealthChecker) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	_ = json.NewEncoder(w).Encode(map[string]string{"status": "alive"})
}

// ReadinessHandler answers 200 when every check passes and 503 otherwise.
// Checks share a five second budget.
func (hc *HealthChecker) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	health := hc.CheckHealth(ctx)

	code := http.StatusOK
	if health.Status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	_ = json.NewEncoder(w).Encode(health)
}

// SessionHealthCheck reports not ready once the session registry is full,
// so load balancers route new missions elsewhere.
type SessionHealthCheck struct {
	count    func() int
	capacity int
}

// NewSessionHealthCheck creates a check over a session count. A capacity of
// zero or less never fails.
func NewSessionHealthCheck(count func() int, capacity int) *SessionHealthCheck {
	return &SessionHealthCheck{count: count, capacity: capacity}
}

func (s *SessionHealthCheck) Name() string {
	return "sessions"
}

// Check verifies that another session can be created.
func (s *SessionHealthCheck) Check(ctx context.Context) error {
	if s.capacity <= 0 {
		return nil
	}
	if n := s.count(); n >= s.capacity {
		return fmt.Errorf("session capacity reached (%d/%d)", n, s.capacity)
	}
	return nil
}

// ListenerHealthCheck implements HealthCheck for the HTTP listener.
type ListenerHealthCheck struct {
	listenerAddr func() string
}

// NewListenerHealthCheck creates a check that passes once addr is non-empty.
func NewListenerHealthCheck(listenerAddr func() string) *ListenerHealthCheck {
	return &ListenerHealthCheck{listenerAddr: listenerAddr}
}

func (n *ListenerHealthCheck) Name() string {
	return "listener"
}

// Check verifies that the listener is bound.
func (n *ListenerHealthCheck) Check(ctx context.Context) error {
	if n.listenerAddr() == "" {
		return fmt.Errorf("http listener is not active")
	}
	return nil
}

// DrainCheck fails once draining has started, taking the instance out of
// rotation before its sessions are stopped.
type DrainCheck struct {
	draining atomic.Bool
}

func (d *DrainCheck) Name() string {
	return "drain"
}

// Drain marks the instance as shutting down.
func (d *DrainCheck) Drain() {
	d.draining.Store(true)
}

// Check fails while draining.
func (d *DrainCheck) Check(ctx context.Context) error {
	if d.draining.Load() {
		return fmt.Errorf("server is draining")
	}
	return nil
}
