package ratelimit

import (
	"context"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"resumetex/internal/config"
	"resumetex/internal/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func TestFixedWindow_TailorBudget(t *testing.T) {
	clock := newClock()
	limiter := newFixedWindow("tailor", 20, time.Minute, clock.Now, errors.NewNopLogger())
	ctx := context.Background()

	for i := range 20 {
		ok, err := limiter.Allow(ctx, "203.0.113.7")
		require.NoError(t, err)
		assert.True(t, ok, "request %d should be allowed", i+1)
	}

	ok, _ := limiter.Allow(ctx, "203.0.113.7")
	assert.False(t, ok, "21st request in the window must be rejected")

	ok, _ = limiter.Allow(ctx, "198.51.100.1")
	assert.True(t, ok, "other clients keep their own budget")

	clock.Advance(time.Minute)
	ok, _ = limiter.Allow(ctx, "203.0.113.7")
	assert.True(t, ok, "budget resets in the next window")
}

func TestFixedWindow_UploadBudget(t *testing.T) {
	clock := newClock()
	limiter := newFixedWindow("upload", 30, time.Minute, clock.Now, nil)
	ctx := context.Background()

	allowed := 0
	for range 40 {
		if ok, _ := limiter.Allow(ctx, "ip"); ok {
			allowed++
		}
	}
	assert.Equal(t, 30, allowed)
}

func TestFixedWindow_WindowOpensOnFirstRequest(t *testing.T) {
	clock := newClock()
	clock.Advance(59 * time.Second)
	limiter := newFixedWindow("tailor", 20, time.Minute, clock.Now, nil)
	ctx := context.Background()

	for range 20 {
		ok, _ := limiter.Allow(ctx, "ip")
		require.True(t, ok)
	}

	clock.Advance(time.Second)
	ok, _ := limiter.Allow(ctx, "ip")
	assert.False(t, ok, "crossing the minute boundary must not refill the budget")

	clock.Advance(58 * time.Second)
	ok, _ = limiter.Allow(ctx, "ip")
	assert.False(t, ok, "window still open one second before it ends")

	clock.Advance(time.Second)
	ok, _ = limiter.Allow(ctx, "ip")
	assert.True(t, ok, "budget resets one window after the first request")
}

func TestFixedWindow_Cleanup(t *testing.T) {
	clock := newClock()
	limiter := newFixedWindow("tailor", 5, time.Minute, clock.Now, errors.NewNopLogger())
	ctx := context.Background()

	_, _ = limiter.Allow(ctx, "a")
	_, _ = limiter.Allow(ctx, "b")
	assert.Equal(t, 2, limiter.Stats()["tracked_keys"])

	clock.Advance(2 * time.Minute)
	_, _ = limiter.Allow(ctx, "c")
	limiter.cleanup()
	assert.Equal(t, 1, limiter.Stats()["tracked_keys"])
}

func TestFixedWindow_Concurrent(t *testing.T) {
	limiter := NewFixedWindow("upload", 30, time.Minute, nil)
	defer limiter.Close()

	var mu sync.Mutex
	allowed := 0
	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := limiter.Allow(context.Background(), "shared"); ok {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 30, allowed)
}

func TestTokenBucket(t *testing.T) {
	limiter := NewTokenBucket("tailor", 3, time.Minute, errors.NewNopLogger())
	defer limiter.Close()
	ctx := context.Background()

	for range 3 {
		ok, err := limiter.Allow(ctx, "ip")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, _ := limiter.Allow(ctx, "ip")
	assert.False(t, ok)

	stats := limiter.Stats()
	assert.Equal(t, "token", stats["backend"])
	assert.Equal(t, 3, stats["burst_capacity"])
}

func TestNewSet(t *testing.T) {
	limits := config.RateLimitConfig{
		Enabled: true,
		Tailor:  config.WindowLimit{Window: time.Minute, Requests: 20},
		Upload:  config.WindowLimit{Window: time.Minute, Requests: 30},
	}

	t.Run("disabled", func(t *testing.T) {
		set, err := NewSet(config.RateLimitConfig{}, nil)
		require.NoError(t, err)
		assert.Nil(t, set)
		assert.Equal(t, false, set.Stats()["enabled"])
		assert.NoError(t, set.Close())
	})

	t.Run("memory", func(t *testing.T) {
		cfg := limits
		cfg.Backend = "memory"
		set, err := NewSet(cfg, nil)
		require.NoError(t, err)
		defer set.Close()
		assert.IsType(t, &FixedWindow{}, set.Tailor)
		assert.Equal(t, 20, set.Tailor.Stats()["limit"])
		assert.Equal(t, 30, set.Upload.Stats()["limit"])
	})

	t.Run("token", func(t *testing.T) {
		cfg := limits
		cfg.Backend = "token"
		set, err := NewSet(cfg, nil)
		require.NoError(t, err)
		defer set.Close()
		assert.IsType(t, &TokenBucket{}, set.Upload)
	})

	t.Run("bad redis url", func(t *testing.T) {
		cfg := limits
		cfg.Backend = "redis"
		cfg.RedisURL = "://nope"
		_, err := NewSet(cfg, nil)
		assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
	})

	t.Run("unknown backend", func(t *testing.T) {
		cfg := limits
		cfg.Backend = "carrier-pigeon"
		_, err := NewSet(cfg, nil)
		assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
	})
}

func TestRedisWindow(t *testing.T) {
	redisURL := os.Getenv("RESUMETEX_TEST_REDIS_URL")
	if redisURL == "" {
		t.Skip("RESUMETEX_TEST_REDIS_URL not set")
	}

	client, err := NewRedisClient(redisURL)
	require.NoError(t, err)
	limiter := NewRedisWindow(client, "test-"+uuid.NewString(), 2, time.Minute, true)
	defer limiter.Close()
	ctx := context.Background()

	for range 2 {
		ok, err := limiter.Allow(ctx, "ip")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := limiter.Allow(ctx, "ip")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClientKey(t *testing.T) {
	tests := []struct {
		name       string
		xff        string
		realIP     string
		remoteAddr string
		want       string
	}{
		{"forwarded first entry", " 203.0.113.7 , 10.0.0.1", "", "10.0.0.2:1234", "203.0.113.7"},
		{"real ip", "", "198.51.100.4", "10.0.0.2:1234", "198.51.100.4"},
		{"remote addr", "", "", "192.0.2.1:5555", "192.0.2.1"},
		{"remote addr without port", "", "", "192.0.2.1", "192.0.2.1"},
		{"empty forwarded entry", " ,10.0.0.1", "198.51.100.4", "10.0.0.2:1234", "198.51.100.4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/api/tailor", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.realIP != "" {
				r.Header.Set("X-Real-IP", tt.realIP)
			}
			assert.Equal(t, tt.want, ClientKey(r))
		})
	}
}
