package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"resumetex/internal/config"
	"resumetex/internal/errors"
	"resumetex/internal/upstream"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const maxRESTResponseSize = 8 << 20

// RESTGenerator calls the generateContent endpoint directly over HTTP on the
// alternate API version. It is the last resort when the SDK path fails for
// every model.
type RESTGenerator struct {
	baseURL    string
	apiVersion string
	temp       float32
	timeout    time.Duration
	client     *http.Client
	logger     *errors.Logger
}

var _ TextGenerator = (*RESTGenerator)(nil)

// NewRESTGenerator creates the raw HTTP generator
func NewRESTGenerator(cfg config.AIConfig, client *http.Client, logger *errors.Logger) *RESTGenerator {
	return &RESTGenerator{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiVersion: cfg.FallbackAPIVersion,
		temp:       cfg.Temperature,
		timeout:    cfg.Timeout,
		client:     client,
		logger:     logger,
	}
}

// Name identifies the calling convention in logs
func (r *RESTGenerator) Name() string { return "gemini-rest" }

type restPart struct {
	Text string `json:"text"`
}

type restContent struct {
	Role  string     `json:"role,omitempty"`
	Parts []restPart `json:"parts"`
}

type restRequest struct {
	Contents         []restContent `json:"contents"`
	GenerationConfig struct {
		Temperature float32 `json:"temperature"`
	} `json:"generationConfig"`
}

type restResponse struct {
	Candidates []struct {
		Content restContent `json:"content"`
	} `json:"candidates"`
}

// Generate posts the prompt and concatenates the text parts of the first
// candidate. The key travels in a header so it never appears in a URL that
// transport errors might echo.
func (r *RESTGenerator) Generate(ctx context.Context, call GenerateCall) (string, error) {
	ctx, span := otel.Tracer("resumetex.ai.gemini").Start(ctx, "gemini.rest_generate")
	defer span.End()

	model := strings.TrimPrefix(call.Model, "models/")
	span.SetAttributes(
		attribute.String("ai.provider", "gemini"),
		attribute.String("ai.model", model),
		attribute.String("ai.api_version", r.apiVersion),
	)

	var payload restRequest
	payload.Contents = []restContent{{Role: "user", Parts: []restPart{{Text: call.Prompt}}}}
	payload.GenerationConfig.Temperature = r.temp

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/models/%s:generateContent", r.baseURL, r.apiVersion, url.PathEscape(model))
	req, err := http.NewRequest(http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", call.APIKey)

	resp, cancel, err := upstream.Do(ctx, r.client, req, r.timeout)
	defer cancel()
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("gemini request failed: %w", err)
	}

	data, err := upstream.ReadBody(resp, maxRESTResponseSize)
	if err != nil {
		return "", err
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode != http.StatusOK {
		return "", &upstream.StatusError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	var parsed restResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(parsed.Candidates) == 0 {
		return "", nil
	}

	var text strings.Builder
	for _, part := range parsed.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}
	return text.String(), nil
}
