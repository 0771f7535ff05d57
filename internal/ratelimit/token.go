package ratelimit

import (
	"context"
	"sync"
	"time"

	"resumetex/internal/errors"

	"golang.org/x/time/rate"
)

// TokenBucket is a smoother alternative to FixedWindow: each key refills at
// limit/window and may burst up to limit.
type TokenBucket struct {
	name   string
	rate   rate.Limit
	burst  int
	logger *errors.Logger

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	lastSeen map[string]time.Time
	done     chan struct{}
	once     sync.Once
}

// NewTokenBucket creates a per-key token bucket limiter
func NewTokenBucket(name string, limit int, window time.Duration, logger *errors.Logger) *TokenBucket {
	t := &TokenBucket{
		name:     name,
		rate:     rate.Limit(float64(limit) / window.Seconds()),
		burst:    limit,
		logger:   logger,
		limiters: make(map[string]*rate.Limiter),
		lastSeen: make(map[string]time.Time),
		done:     make(chan struct{}),
	}

	go t.cleanupRoutine(10 * time.Minute)
	return t
}

func (t *TokenBucket) limiter(key string) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()

	limiter, exists := t.limiters[key]
	if !exists {
		limiter = rate.NewLimiter(t.rate, t.burst)
		t.limiters[key] = limiter
	}
	t.lastSeen[key] = time.Now()

	return limiter
}

// Allow is non-blocking and never returns an error
func (t *TokenBucket) Allow(_ context.Context, key string) (bool, error) {
	return t.limiter(key).Allow(), nil
}

// Stats returns current limiter statistics
func (t *TokenBucket) Stats() map[string]any {
	t.mu.Lock()
	defer t.mu.Unlock()

	return map[string]any{
		"backend":         "token",
		"name":            t.name,
		"active_limiters": len(t.limiters),
		"rate_per_second": float64(t.rate),
		"burst_capacity":  t.burst,
	}
}

func (t *TokenBucket) cleanupRoutine(evictionAge time.Duration) {
	ticker := time.NewTicker(evictionAge)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			t.cleanup(evictionAge)
		case <-t.done:
			return
		}
	}
}

// cleanup removes limiters that haven't been used for evictionAge
func (t *TokenBucket) cleanup(evictionAge time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	for key, lastSeen := range t.lastSeen {
		if now.Sub(lastSeen) > evictionAge {
			delete(t.limiters, key)
			delete(t.lastSeen, key)
		}
	}

	if t.logger != nil {
		t.logger.Debug("Rate limiter cleanup completed",
			"limiter", t.name,
			"remaining_limiters", len(t.limiters))
	}
}

// Close stops the cleanup goroutine
func (t *TokenBucket) Close() error {
	t.once.Do(func() { close(t.done) })
	return nil
}
