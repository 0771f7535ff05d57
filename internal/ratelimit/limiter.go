// Package ratelimit throttles requests per client key. The server only sees
// the Limiter interface; the backend is chosen by configuration.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"resumetex/internal/config"
	"resumetex/internal/errors"
)

// Limiter decides whether one more request for key fits in its budget
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Stats() map[string]any
	Close() error
}

// Set holds one limiter per endpoint class
type Set struct {
	Tailor Limiter
	Upload Limiter
}

// NewSet builds the tailor and upload limiters for the configured backend.
// It returns nil when rate limiting is disabled.
func NewSet(cfg config.RateLimitConfig, logger *errors.Logger) (*Set, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	switch cfg.Backend {
	case "", "memory":
		return &Set{
			Tailor: NewFixedWindow("tailor", cfg.Tailor.Requests, cfg.Tailor.Window, logger),
			Upload: NewFixedWindow("upload", cfg.Upload.Requests, cfg.Upload.Window, logger),
		}, nil
	case "token":
		return &Set{
			Tailor: NewTokenBucket("tailor", cfg.Tailor.Requests, cfg.Tailor.Window, logger),
			Upload: NewTokenBucket("upload", cfg.Upload.Requests, cfg.Upload.Window, logger),
		}, nil
	case "redis":
		client, err := NewRedisClient(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		return &Set{
			Tailor: NewRedisWindow(client, "tailor", cfg.Tailor.Requests, cfg.Tailor.Window, false),
			// Both limiters share one client; only the last closes it.
			Upload: NewRedisWindow(client, "upload", cfg.Upload.Requests, cfg.Upload.Window, true),
		}, nil
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("unknown rate limit backend %q", cfg.Backend), nil)
	}
}

// Stats reports both limiters; a nil Set reports disabled.
func (s *Set) Stats() map[string]any {
	if s == nil {
		return map[string]any{"enabled": false}
	}
	return map[string]any{
		"enabled": true,
		"tailor":  s.Tailor.Stats(),
		"upload":  s.Upload.Stats(),
	}
}

// Close stops background work and releases connections
func (s *Set) Close() error {
	if s == nil {
		return nil
	}
	errTailor := s.Tailor.Close()
	errUpload := s.Upload.Close()
	if errTailor != nil {
		return errTailor
	}
	return errUpload
}

// windowEnded reports whether a window opened at start has run its course
func windowEnded(start, now time.Time, window time.Duration) bool {
	return !now.Before(start.Add(window))
}
