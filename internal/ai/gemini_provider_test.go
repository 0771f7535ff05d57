package ai

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"resumetex/internal/config"
	"resumetex/internal/errors"
	"resumetex/internal/upstream"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func sdkConfig(baseURL string) config.AIConfig {
	return config.AIConfig{
		BaseURL:     baseURL,
		APIVersion:  "v1beta",
		Temperature: 0.4,
		Timeout:     5 * time.Second,
		CircuitBreaker: config.CircuitBreakerConfig{
			Enabled:          true,
			MaxRequests:      1,
			Interval:         time.Minute,
			Timeout:          time.Minute,
			MinRequests:      2,
			FailureThreshold: 0.5,
		},
	}
}

const sdkReply = `{"candidates":[{"content":{"role":"model","parts":[{"text":"\\documentclass{article}"}]}}],` +
	`"usageMetadata":{"promptTokenCount":3,"candidatesTokenCount":5,"totalTokenCount":8}}`

func TestGeminiGenerator_Generate(t *testing.T) {
	var gotPath, gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sdkReply))
	}))
	defer server.Close()

	gen := NewGeminiGenerator(sdkConfig(server.URL), server.Client(), errors.NewNopLogger())
	text, err := gen.Generate(context.Background(), GenerateCall{APIKey: "server-key", Model: "gemini-2.5-flash", Prompt: "hello"})
	require.NoError(t, err)

	assert.Equal(t, `\documentclass{article}`, text)
	assert.Equal(t, "/v1beta/models/gemini-2.5-flash:generateContent", gotPath)
	assert.Equal(t, "server-key", gotKey)
	assert.True(t, gen.IsHealthy())
}

func TestGeminiGenerator_RateLimitSurfacesAsAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":429,"message":"quota exceeded","status":"RESOURCE_EXHAUSTED"}}`))
	}))
	defer server.Close()

	gen := NewGeminiGenerator(sdkConfig(server.URL), server.Client(), errors.NewNopLogger())
	_, err := gen.Generate(context.Background(), GenerateCall{APIKey: "server-key", Model: "gemini-2.5-flash", Prompt: "hello"})
	require.Error(t, err)

	var apiErr genai.APIError
	require.True(t, stderrors.As(err, &apiErr), "expected genai.APIError, got %T", err)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.Code)
	assert.True(t, upstream.IsRateLimited(err))
}

func TestGeminiGenerator_BadKeyDoesNotOpenBreaker(t *testing.T) {
	goodCalls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Header.Get("x-goog-api-key") != "server-key" {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"error":{"code":403,"message":"API key not valid","status":"PERMISSION_DENIED"}}`))
			return
		}
		goodCalls++
		_, _ = w.Write([]byte(sdkReply))
	}))
	defer server.Close()

	gen := NewGeminiGenerator(sdkConfig(server.URL), server.Client(), errors.NewNopLogger())
	ctx := context.Background()

	for _, model := range []string{"gemini-2.5-flash", "gemini-2.0-flash", "gemini-2.5-flash", "gemini-2.0-flash"} {
		_, err := gen.Generate(ctx, GenerateCall{APIKey: "caller-typo", Model: model, Prompt: "hello"})
		require.Error(t, err)
		assert.False(t, upstream.IsOpen(err))
	}

	text, err := gen.Generate(ctx, GenerateCall{APIKey: "server-key", Model: "gemini-2.5-flash", Prompt: "hello"})
	require.NoError(t, err)
	assert.Equal(t, `\documentclass{article}`, text)
	assert.Equal(t, 1, goodCalls)
	assert.True(t, gen.IsHealthy())
}

func TestGeminiGenerator_ServerErrorsOpenBreaker(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"code":500,"message":"internal","status":"INTERNAL"}}`))
	}))
	defer server.Close()

	gen := NewGeminiGenerator(sdkConfig(server.URL), server.Client(), errors.NewNopLogger())
	call := GenerateCall{APIKey: "server-key", Model: "gemini-2.5-flash", Prompt: "hello"}

	for range 2 {
		_, _ = gen.Generate(context.Background(), call)
	}
	_, err := gen.Generate(context.Background(), call)

	assert.True(t, upstream.IsOpen(err))
	assert.Equal(t, 2, calls)
	assert.False(t, gen.IsHealthy())
}

func TestGeminiGenerator_ListModels(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"models":[
			{"name":"models/gemini-2.5-flash","displayName":"Gemini 2.5 Flash","supportedGenerationMethods":["generateContent","countTokens"]},
			{"name":"models/text-embedding-004","displayName":"Text Embedding","supportedGenerationMethods":["embedContent"]},
			{"name":"models/embedding-gecko-001","displayName":"Gecko","supportedGenerationMethods":["generateContent"]},
			{"name":"models/aqa","displayName":"Attributed QA","supportedGenerationMethods":["generateAnswer"]}
		]}`))
	}))
	defer server.Close()

	gen := NewGeminiGenerator(sdkConfig(server.URL), server.Client(), errors.NewNopLogger())
	models, err := gen.ListModels(context.Background(), "server-key")
	require.NoError(t, err)

	assert.Equal(t, "/v1beta/models", gotPath)
	require.Len(t, models, 1)
	assert.Equal(t, "gemini-2.5-flash", models[0].Name)
	assert.Equal(t, "Gemini 2.5 Flash", models[0].DisplayName)
	assert.Equal(t, []string{"generateContent", "countTokens"}, models[0].Actions)
}

func TestGeminiGenerator_ListModelsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"code":503,"message":"unavailable","status":"UNAVAILABLE"}}`))
	}))
	defer server.Close()

	gen := NewGeminiGenerator(sdkConfig(server.URL), server.Client(), errors.NewNopLogger())
	_, err := gen.ListModels(context.Background(), "server-key")

	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrorTypeUpstreamTransient, appErr.Type)
	assert.Equal(t, errors.ErrCodeAIServiceFailed, appErr.Code)
}
