// Package rate limits how often a single client may hit an endpoint.
package rate

import (
	"sync"
	"time"
)

type Limiter interface {
	Allow(key string, limit int, window time.Duration) (bool, time.Duration)
}

// MemoryLimiter counts hits per key in fixed windows.
type MemoryLimiter struct {
	mu    sync.Mutex
	store map[string]*bucket
	now   func() time.Time
}

type bucket struct {
	count   int
	resetAt time.Time
	window  time.Duration
}

// sweepThreshold is the bucket count above which expired buckets are dropped.
const sweepThreshold = 4096

func NewMemory() *MemoryLimiter {
	return &MemoryLimiter{store: make(map[string]*bucket), now: time.Now}
}

// Allow records a hit for key and reports whether it is within limit,
// along with the time left in the current window.
func (m *MemoryLimiter) Allow(key string, limit int, window time.Duration) (bool, time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if len(m.store) > sweepThreshold {
		m.sweep(now)
	}

	b, ok := m.store[key]
	if !ok || now.After(b.resetAt) || b.window != window {
		b = &bucket{count: 0, resetAt: now.Add(window), window: window}
		m.store[key] = b
	}

	if b.count >= limit {
		return false, b.resetAt.Sub(now)
	}

	b.count++
	return true, b.resetAt.Sub(now)
}

func (m *MemoryLimiter) sweep(now time.Time) {
	for k, b := range m.store {
		if now.After(b.resetAt) {
			delete(m.store, k)
		}
	}
}
