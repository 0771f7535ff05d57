package ratelimit

import (
	"context"
	"fmt"
	"time"

	"resumetex/internal/errors"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "resumetex:ratelimit:"

// NewRedisClient parses a redis:// URL into a client with conservative timeouts
func NewRedisClient(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "invalid rate limit redis URL", err)
	}

	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	return redis.NewClient(opts), nil
}

// RedisWindow is a fixed-window counter shared by every server instance
// pointed at the same Redis. A client's key is created by its first request
// and expires one window later, which resets the count.
type RedisWindow struct {
	client     *redis.Client
	name       string
	limit      int
	window     time.Duration
	ownsClient bool
}

// NewRedisWindow creates a Redis-backed limiter. When ownsClient is set,
// Close also closes the client.
func NewRedisWindow(client *redis.Client, name string, limit int, window time.Duration, ownsClient bool) *RedisWindow {
	return &RedisWindow{
		client:     client,
		name:       name,
		limit:      limit,
		window:     window,
		ownsClient: ownsClient,
	}
}

func (r *RedisWindow) key(clientKey string) string {
	return redisKeyPrefix + r.name + ":" + clientKey
}

// Allow increments the client's counter. The expiry is only set when the
// key has none, so later requests do not extend the window.
func (r *RedisWindow) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := r.key(key)

	var incr *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKey)
		pipe.ExpireNX(ctx, redisKey, r.window)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("rate limit counter update failed: %w", err)
	}

	return incr.Val() <= int64(r.limit), nil
}

// Stats returns limiter settings; counters live in Redis
func (r *RedisWindow) Stats() map[string]any {
	return map[string]any{
		"backend": "redis",
		"name":    r.name,
		"limit":   r.limit,
		"window":  r.window.String(),
	}
}

// Close releases the client if this limiter owns it
func (r *RedisWindow) Close() error {
	if !r.ownsClient {
		return nil
	}
	return r.client.Close()
}
