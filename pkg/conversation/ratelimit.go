package conversation

import (
	"sync"
	"time"
)

// RateLimiter is a fixed-window per-key counter. Zero limit disables
// limiting entirely.
type RateLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	buckets map[string]*bucket
	clock   func() time.Time
}

type bucket struct {
	windowStart time.Time
	count       int
}

// NewRateLimiter creates a limiter allowing limit calls per window per key.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{
		limit:   limit,
		window:  window,
		buckets: make(map[string]*bucket),
		clock:   time.Now,
	}
}

// Allow reports whether another call is permitted for key, counting it if so.
func (r *RateLimiter) Allow(key string) bool {
	if r.limit <= 0 {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock()
	b, ok := r.buckets[key]
	if !ok || now.Sub(b.windowStart) >= r.window {
		r.buckets[key] = &bucket{windowStart: now, count: 1}
		return true
	}
	if b.count >= r.limit {
		return false
	}
	b.count++
	return true
}
