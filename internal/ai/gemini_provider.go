package ai

import (
	"context"
	"net/http"
	"slices"
	"strings"
	"sync"

	"resumetex/internal/config"
	"resumetex/internal/errors"
	"resumetex/internal/types"
	"resumetex/internal/upstream"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"google.golang.org/genai"
)

// GeminiGenerator calls Gemini through the official SDK. Clients are created
// lazily, one per API key, because callers may bring their own key.
type GeminiGenerator struct {
	cfg        config.AIConfig
	httpClient *http.Client
	breaker    *upstream.Breaker[*genai.GenerateContentResponse]
	logger     *errors.Logger

	mu      sync.Mutex
	clients map[string]*genai.Client
}

var (
	_ TextGenerator = (*GeminiGenerator)(nil)
	_ ModelLister   = (*GeminiGenerator)(nil)
)

// NewGeminiGenerator creates the SDK-backed generator
func NewGeminiGenerator(cfg config.AIConfig, httpClient *http.Client, logger *errors.Logger) *GeminiGenerator {
	return &GeminiGenerator{
		cfg:        cfg,
		httpClient: httpClient,
		breaker:    upstream.NewBreaker[*genai.GenerateContentResponse]("gemini-sdk", cfg.CircuitBreaker, logger),
		logger:     logger,
		clients:    make(map[string]*genai.Client),
	}
}

// Name identifies the calling convention in logs
func (g *GeminiGenerator) Name() string { return "gemini-sdk" }

func (g *GeminiGenerator) client(ctx context.Context, apiKey string) (*genai.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if client, ok := g.clients[apiKey]; ok {
		return client, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: g.httpClient,
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    g.cfg.BaseURL,
			APIVersion: g.cfg.APIVersion,
		},
	})
	if err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeAIServiceFailed, "failed to create Gemini client", err)
	}
	g.clients[apiKey] = client
	return client, nil
}

// Generate sends one prompt to one model
func (g *GeminiGenerator) Generate(ctx context.Context, call GenerateCall) (string, error) {
	ctx, span := otel.Tracer("resumetex.ai.gemini").Start(ctx, "gemini.generate")
	defer span.End()

	span.SetAttributes(
		attribute.String("ai.provider", "gemini"),
		attribute.String("ai.model", call.Model),
		attribute.String("ai.api_version", g.cfg.APIVersion),
		attribute.Float64("ai.temperature", float64(g.cfg.Temperature)),
	)

	client, err := g.client(ctx, call.APIKey)
	if err != nil {
		span.RecordError(err)
		return "", err
	}

	genaiConfig := &genai.GenerateContentConfig{
		Temperature: float32Ptr(g.cfg.Temperature),
	}

	result, err := g.breaker.Execute(func() (*genai.GenerateContentResponse, error) {
		return client.Models.GenerateContent(ctx, call.Model, genai.Text(call.Prompt), genaiConfig)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generate failed")
		span.SetAttributes(attribute.Int("http.status_code", upstream.StatusCode(err)))
		return "", err
	}

	if usage := result.UsageMetadata; usage != nil {
		span.SetAttributes(
			attribute.Int64("ai.tokens.input", int64(usage.PromptTokenCount)),
			attribute.Int64("ai.tokens.output", int64(usage.CandidatesTokenCount)),
			attribute.Int64("ai.tokens.total", int64(usage.TotalTokenCount)),
		)
	}

	return result.Text(), nil
}

// ListModels returns the text generation models visible to apiKey
func (g *GeminiGenerator) ListModels(ctx context.Context, apiKey string) ([]types.ModelInfo, error) {
	ctx, span := otel.Tracer("resumetex.ai.gemini").Start(ctx, "gemini.list_models")
	defer span.End()

	client, err := g.client(ctx, apiKey)
	if err != nil {
		return nil, err
	}

	var models []types.ModelInfo
	for model, err := range client.Models.All(ctx) {
		if err != nil {
			span.RecordError(err)
			return nil, errors.NewUpstreamTransientError(errors.ErrCodeAIServiceFailed, "failed to list models", err)
		}
		if !IsTextModel(model.Name) {
			continue
		}
		if len(model.SupportedActions) > 0 && !slices.Contains(model.SupportedActions, "generateContent") {
			continue
		}
		models = append(models, types.ModelInfo{
			Name:        strings.TrimPrefix(model.Name, "models/"),
			DisplayName: model.DisplayName,
			Description: model.Description,
			Actions:     model.SupportedActions,
		})
	}

	span.SetAttributes(attribute.Int("ai.models.count", len(models)))
	return models, nil
}

// GetCircuitBreakerStats reports the SDK breaker state
func (g *GeminiGenerator) GetCircuitBreakerStats() map[string]any {
	return g.breaker.GetStats()
}

// IsHealthy is false while the SDK breaker is open
func (g *GeminiGenerator) IsHealthy() bool {
	return g.breaker.IsHealthy()
}

func float32Ptr(v float32) *float32 {
	return &v
}
