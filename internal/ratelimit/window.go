package ratelimit

import (
	"context"
	"sync"
	"time"

	"resumetex/internal/errors"
)

type windowCounter struct {
	start time.Time
	count int
}

// FixedWindow counts requests per key in memory. A key's window opens on
// its first request; counters for windows that have ended are swept periodically.
type FixedWindow struct {
	name   string
	limit  int
	window time.Duration
	now    func() time.Time
	logger *errors.Logger

	mu       sync.Mutex
	counters map[string]*windowCounter
	done     chan struct{}
	once     sync.Once
}

// NewFixedWindow allows limit requests per key in every window
func NewFixedWindow(name string, limit int, window time.Duration, logger *errors.Logger) *FixedWindow {
	f := newFixedWindow(name, limit, window, time.Now, logger)
	go f.cleanupRoutine(max(window, time.Minute))
	return f
}

func newFixedWindow(name string, limit int, window time.Duration, now func() time.Time, logger *errors.Logger) *FixedWindow {
	return &FixedWindow{
		name:     name,
		limit:    limit,
		window:   window,
		now:      now,
		logger:   logger,
		counters: make(map[string]*windowCounter),
		done:     make(chan struct{}),
	}
}

// Allow never returns an error
func (f *FixedWindow) Allow(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()
	counter, ok := f.counters[key]
	if !ok || windowEnded(counter.start, now, f.window) {
		counter = &windowCounter{start: now}
		f.counters[key] = counter
	}

	if counter.count >= f.limit {
		return false, nil
	}
	counter.count++
	return true, nil
}

// Stats returns current limiter statistics
func (f *FixedWindow) Stats() map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()

	return map[string]any{
		"backend":      "memory",
		"name":         f.name,
		"limit":        f.limit,
		"window":       f.window.String(),
		"tracked_keys": len(f.counters),
	}
}

func (f *FixedWindow) cleanupRoutine(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			f.cleanup()
		case <-f.done:
			return
		}
	}
}

// cleanup drops counters whose window has ended
func (f *FixedWindow) cleanup() {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()
	for key, counter := range f.counters {
		if windowEnded(counter.start, now, f.window) {
			delete(f.counters, key)
		}
	}

	if f.logger != nil {
		f.logger.Debug("Rate limiter cleanup completed",
			"limiter", f.name,
			"remaining_keys", len(f.counters))
	}
}

// Close stops the cleanup goroutine
func (f *FixedWindow) Close() error {
	f.once.Do(func() { close(f.done) })
	return nil
}
