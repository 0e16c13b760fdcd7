package validation

import (
	"sync"
	"time"
)

// RateLimiter is a token bucket per key: an e-mail address for code requests,
// a session ID for control actions.
type RateLimiter struct {
	maxRequests int
	window      time.Duration
	keys        map[string]*bucket
	mu          sync.Mutex
	now         func() time.Time
	cleanupTick *time.Ticker
	done        chan struct{}
	closeOnce   sync.Once
}

type bucket struct {
	tokens     int
	lastRefill time.Time
	lastSeen   time.Time
}

// NewRateLimiter allows maxRequests per window for each key.
func NewRateLimiter(maxRequests int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		maxRequests: maxRequests,
		window:      window,
		keys:        make(map[string]*bucket),
		now:         time.Now,
		cleanupTick: time.NewTicker(window),
		done:        make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

// Allow consumes one token for key and reports whether the request may proceed.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, ok := rl.keys[key]
	if !ok {
		b = &bucket{tokens: rl.maxRequests, lastRefill: now}
		rl.keys[key] = b
	}
	b.lastSeen = now
	rl.refill(b, now)

	if b.tokens > 0 {
		b.tokens--
		return true
	}
	return false
}

// Remaining returns the tokens key could spend right now.
func (rl *RateLimiter) Remaining(key string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.keys[key]
	if !ok {
		return rl.maxRequests
	}
	rl.refill(b, rl.now())
	return b.tokens
}

// refill adds tokens in proportion to the elapsed fraction of the window.
func (rl *RateLimiter) refill(b *bucket, now time.Time) {
	elapsed := now.Sub(b.lastRefill)
	if elapsed <= 0 || b.tokens >= rl.maxRequests {
		b.lastRefill = now
		return
	}
	add := int(float64(rl.maxRequests) * float64(elapsed) / float64(rl.window))
	if add > 0 {
		b.tokens = min(b.tokens+add, rl.maxRequests)
		b.lastRefill = now
	}
}

func (rl *RateLimiter) cleanup() {
	for {
		select {
		case <-rl.cleanupTick.C:
			rl.removeIdle()
		case <-rl.done:
			return
		}
	}
}

// removeIdle drops keys not seen for two windows.
func (rl *RateLimiter) removeIdle() {
	cutoff := rl.now().Add(-2 * rl.window)

	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, b := range rl.keys {
		if b.lastSeen.Before(cutoff) {
			delete(rl.keys, key)
		}
	}
}

// Close stops the cleanup goroutine. It is safe to call more than once.
func (rl *RateLimiter) Close() {
	rl.closeOnce.Do(func() {
		close(rl.done)
		rl.cleanupTick.Stop()
	})
}
