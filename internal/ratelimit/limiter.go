// README: Sliding-window rate limiting behind a small injected port.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Decision is the outcome of one rate-limit check. RetryAfter is only
// meaningful when Allowed is false.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Limiter decides whether one more request is allowed for a key. The update
// must be atomic per key; implementations are safe for concurrent use.
type Limiter interface {
	Check(ctx context.Context, key string) (Decision, error)
}

// MemoryLimiter is a per-process sliding-window limiter. Suitable for a
// single-instance deployment; a multi-instance deployment needs the Redis
// limiter instead, since each process would otherwise count alone.
type MemoryLimiter struct {
	limit      int
	window     time.Duration
	retryAfter time.Duration
	now        func() time.Time

	mu        sync.Mutex
	hits      map[string][]time.Time
	lastSweep time.Time
}

func NewMemoryLimiter(limit int, window, retryAfter time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		limit:      limit,
		window:     window,
		retryAfter: retryAfter,
		now:        time.Now,
		hits:       make(map[string][]time.Time),
	}
}

func (l *MemoryLimiter) Check(_ context.Context, key string) (Decision, error) {
	now := l.now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	// At most once per window, drop keys whose hits have all aged out, so the
	// map does not grow with every distinct client ever seen.
	if now.Sub(l.lastSweep) >= l.window {
		l.sweep(cutoff)
		l.lastSweep = now
	}

	recent := l.hits[key][:0]
	for _, t := range l.hits[key] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}
	if len(recent) >= l.limit {
		l.hits[key] = recent
		return Decision{Allowed: false, RetryAfter: l.retryAfter}, nil
	}
	l.hits[key] = append(recent, now)
	return Decision{Allowed: true}, nil
}

func (l *MemoryLimiter) sweep(cutoff time.Time) {
	for key, hits := range l.hits {
		recent := hits[:0]
		for _, t := range hits {
			if t.After(cutoff) {
				recent = append(recent, t)
			}
		}
		if len(recent) == 0 {
			delete(l.hits, key)
			continue
		}
		l.hits[key] = recent
	}
}
