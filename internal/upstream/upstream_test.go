package upstream

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"resumetex/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

var fastPolicy = RetryPolicy{MaxRetries: 3, InitialInterval: time.Millisecond}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"status error", &StatusError{StatusCode: 503}, 503},
		{"wrapped status error", fmt.Errorf("call: %w", &StatusError{StatusCode: 429}), 429},
		{"genai", genai.APIError{Code: 429, Message: "quota"}, 429},
		{"googleapi", &googleapi.Error{Code: 404}, 404},
		{"plain", fmt.Errorf("boom"), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusCode(tt.err))
		})
	}
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(&StatusError{StatusCode: http.StatusTooManyRequests}))
	assert.True(t, IsTransient(&StatusError{StatusCode: http.StatusBadGateway}))
	assert.False(t, IsTransient(&StatusError{StatusCode: http.StatusBadRequest}))
	assert.False(t, IsTransient(nil))
}

func TestRetryOnRateLimitRetriesThenSucceeds(t *testing.T) {
	calls := 0
	var waits []time.Duration

	got, err := RetryOnRateLimit(context.Background(), fastPolicy, func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", &StatusError{StatusCode: http.StatusTooManyRequests}
		}
		return "ok", nil
	}, func(attempt int, err error, wait time.Duration) {
		waits = append(waits, wait)
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond}, waits)
}

func TestRetryOnRateLimitGivesUpAfterMaxRetries(t *testing.T) {
	calls := 0
	_, err := RetryOnRateLimit(context.Background(), fastPolicy, func(ctx context.Context) (string, error) {
		calls++
		return "", &StatusError{StatusCode: http.StatusTooManyRequests}
	}, nil)

	require.Error(t, err)
	assert.Equal(t, 4, calls)
	assert.True(t, IsRateLimited(err))
}

func TestRetryOnRateLimitStopsOnOtherErrors(t *testing.T) {
	calls := 0
	_, err := RetryOnRateLimit(context.Background(), fastPolicy, func(ctx context.Context) (string, error) {
		calls++
		return "", &StatusError{StatusCode: http.StatusInternalServerError}
	}, nil)

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, http.StatusInternalServerError, StatusCode(err))
}

func TestDefaultRetryPolicyIntervals(t *testing.T) {
	b := DefaultRetryPolicy().backOff()
	b.Reset()
	assert.Equal(t, time.Second, b.NextBackOff())
	assert.Equal(t, 2*time.Second, b.NextBackOff())
	assert.Equal(t, 4*time.Second, b.NextBackOff())
}

func TestBreaker(t *testing.T) {
	t.Run("disabled breaker runs directly", func(t *testing.T) {
		b := NewBreaker[string]("compile", config.CircuitBreakerConfig{Enabled: false}, nil)
		assert.Nil(t, b)

		got, err := b.Execute(func() (string, error) { return "pdf", nil })
		require.NoError(t, err)
		assert.Equal(t, "pdf", got)
		assert.True(t, b.IsHealthy())
		assert.Equal(t, false, b.GetStats()["enabled"])
	})

	t.Run("trips after failures", func(t *testing.T) {
		b := NewBreaker[string]("ai", config.CircuitBreakerConfig{
			Enabled:          true,
			MaxRequests:      1,
			Interval:         time.Minute,
			Timeout:          time.Minute,
			MinRequests:      2,
			FailureThreshold: 0.5,
		}, nil)

		for range 2 {
			_, _ = b.Execute(func() (string, error) { return "", fmt.Errorf("upstream down") })
		}

		_, err := b.Execute(func() (string, error) { return "never", nil })
		assert.True(t, IsOpen(err))
		assert.False(t, b.IsHealthy())
		assert.Equal(t, "open", b.GetStats()["state"])
		assert.Equal(t, "ai", b.GetStats()["name"])
	})

	t.Run("client errors do not trip", func(t *testing.T) {
		b := NewBreaker[string]("ai", config.CircuitBreakerConfig{
			Enabled:          true,
			MaxRequests:      1,
			Interval:         time.Minute,
			Timeout:          time.Minute,
			MinRequests:      2,
			FailureThreshold: 0.5,
		}, nil)

		for _, code := range []int{http.StatusForbidden, http.StatusNotFound, http.StatusTooManyRequests, http.StatusForbidden} {
			_, err := b.Execute(func() (string, error) { return "", genai.APIError{Code: code} })
			require.Error(t, err)
			assert.False(t, IsOpen(err))
		}
		_, _ = b.Execute(func() (string, error) { return "", context.Canceled })

		called := false
		got, err := b.Execute(func() (string, error) {
			called = true
			return "ok", nil
		})
		require.NoError(t, err)
		assert.True(t, called)
		assert.Equal(t, "ok", got)
		assert.True(t, b.IsHealthy())
	})
}

func TestIsServiceFailure(t *testing.T) {
	assert.True(t, IsServiceFailure(fmt.Errorf("connection reset")))
	assert.True(t, IsServiceFailure(&StatusError{StatusCode: http.StatusBadGateway}))
	assert.True(t, IsServiceFailure(genai.APIError{Code: 500}))
	assert.True(t, IsServiceFailure(context.DeadlineExceeded))
	assert.False(t, IsServiceFailure(genai.APIError{Code: 403}))
	assert.False(t, IsServiceFailure(&googleapi.Error{Code: 404}))
	assert.False(t, IsServiceFailure(&StatusError{StatusCode: http.StatusTooManyRequests}))
	assert.False(t, IsServiceFailure(fmt.Errorf("call: %w", context.Canceled)))
	assert.False(t, IsServiceFailure(nil))
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "short", Snippet("short", 10))
	assert.Equal(t, "abc...", Snippet("abcdef", 3))

	// "é" is two bytes; cutting at 2 would split it.
	got := Snippet("aéb", 2)
	assert.Equal(t, "a...", got)
	assert.True(t, utf8.ValidString(got))

	got = Snippet(strings.Repeat("ü", 200), 301)
	assert.True(t, utf8.ValidString(got))
	assert.Len(t, got, 300+len("..."))
}

func TestIsPublicAddr(t *testing.T) {
	tests := map[string]bool{
		"93.184.216.34":   true,
		"2606:4700::1111": true,
		"127.0.0.1":       false,
		"::1":             false,
		"10.1.2.3":        false,
		"172.16.0.9":      false,
		"192.168.1.1":     false,
		"169.254.169.254": false,
		"fe80::1":         false,
		"fd00::1":         false,
		"0.0.0.0":         false,
		"::":              false,
		"100.64.0.1":      false,
		"::ffff:10.0.0.1": false,
		"224.0.0.1":       false,
	}
	for raw, want := range tests {
		assert.Equal(t, want, IsPublicAddr(netip.MustParseAddr(raw)), raw)
	}
}

func TestNewPublicClientRefusesLoopback(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer server.Close()

	resp, err := NewPublicClient(5 * time.Second).Get(server.URL)
	if resp != nil {
		_ = resp.Body.Close()
	}
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBlockedAddress)
	assert.Zero(t, hits)
}
