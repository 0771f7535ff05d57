package ai

import (
	"context"
	"strings"
	"time"

	"resumetex/internal/common"
	"resumetex/internal/config"
	"resumetex/internal/errors"
	"resumetex/internal/latex"
	"resumetex/internal/types"
	"resumetex/internal/upstream"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// TailorOptions holds the server-side defaults a tailoring call falls back on
type TailorOptions struct {
	DefaultAPIKey     string
	DefaultModel      string
	FallbackModels    []string
	Retry             upstream.RetryPolicy
	CallTimeout       time.Duration
	ATSKeywords       bool
	ExperienceContext string
}

// TailorOptionsFromConfig maps the AI configuration section onto TailorOptions
func TailorOptionsFromConfig(cfg config.AIConfig) TailorOptions {
	return TailorOptions{
		DefaultAPIKey:     cfg.APIKey,
		DefaultModel:      cfg.Model,
		FallbackModels:    cfg.FallbackModels,
		Retry:             upstream.RetryPolicy{MaxRetries: cfg.MaxRetries, InitialInterval: cfg.RetryInitialInterval},
		CallTimeout:       cfg.Timeout,
		ATSKeywords:       cfg.ATSKeywords,
		ExperienceContext: cfg.ExperienceContext,
	}
}

// Tailorer rewrites a LaTeX resume for a job description. Models are tried in
// candidate order through the primary generator, then once more through the
// fallback generator.
type Tailorer struct {
	primary   TextGenerator
	fallback  TextGenerator
	templates TemplateSource
	opts      TailorOptions
	logger    *errors.Logger
	tracer    trace.Tracer
}

// NewTailorer wires a tailorer. fallback may be nil.
func NewTailorer(primary, fallback TextGenerator, templates TemplateSource, opts TailorOptions, logger *errors.Logger) *Tailorer {
	return &Tailorer{
		primary:   primary,
		fallback:  fallback,
		templates: templates,
		opts:      opts,
		logger:    logger,
		tracer:    otel.Tracer("resumetex.ai"),
	}
}

// Tailor produces a tailored LaTeX resume. When the model answers with
// something that is not a LaTeX document the original resume is returned and
// the result is marked degraded.
func (t *Tailorer) Tailor(ctx context.Context, req types.TailorRequest) (*types.TailorResult, error) {
	if err := common.ValidateStruct(req, errors.ErrCodeJobDescTooShort); err != nil {
		return nil, err
	}

	apiKey := strings.TrimSpace(req.APIKey)
	if apiKey == "" {
		apiKey = t.opts.DefaultAPIKey
	}
	if apiKey == "" {
		return nil, errors.NewConfigError(errors.ErrCodeMissingAPIKey,
			"no Gemini API key configured; set GEMINI_API_KEY or pass apiKey", nil)
	}

	baseResume, err := t.resolveBaseResume(req.BaseResume)
	if err != nil {
		return nil, err
	}

	ctx, span := t.tracer.Start(ctx, "ai.tailor")
	defer span.End()

	input := PromptInput{
		JobDescription:    req.JobDescription,
		BaseResume:        baseResume,
		ExperienceContext: t.opts.ExperienceContext,
	}
	if t.opts.ATSKeywords {
		input.Keywords = ExtractKeywords(req.JobDescription)
	}
	prompt := BuildTailorPrompt(input)

	candidates := BuildCandidateList(req.Model, t.opts.DefaultModel, t.opts.FallbackModels)
	span.SetAttributes(attribute.StringSlice("ai.candidates", candidates))

	text, model, ok := t.runCandidates(ctx, t.primary, apiKey, prompt, candidates, true)
	if !ok && t.fallback != nil {
		t.logger.Warn("All models failed through the SDK, trying raw REST fallback",
			"candidates", candidates,
			"generator", t.fallback.Name())
		text, model, ok = t.runCandidates(ctx, t.fallback, apiKey, prompt, candidates, false)
	}
	if !ok {
		span.SetAttributes(attribute.Bool("success", false))
		return nil, errors.NewUpstreamExhaustedError(errors.ErrCodeModelsExhausted,
			"all candidate models failed to produce output", ctx.Err()).
			WithContext("attempted_models", candidates)
	}

	result := &types.TailorResult{
		LaTeX:     StripCodeFences(text),
		Model:     model,
		Attempted: candidates,
	}
	if !latex.HasDocumentClass(result.LaTeX) {
		t.logger.Warn("Model output is not a LaTeX document, returning the base resume",
			"model", model,
			"output_length", len(result.LaTeX))
		result.LaTeX = baseResume
		result.Degraded = true
	}

	span.SetAttributes(
		attribute.Bool("success", true),
		attribute.String("ai.model", model),
		attribute.Bool("ai.degraded", result.Degraded),
	)
	return result, nil
}

func (t *Tailorer) resolveBaseResume(supplied string) (string, error) {
	if strings.TrimSpace(supplied) != "" {
		return supplied, nil
	}
	if t.templates == nil {
		return "", errors.NewConfigError(errors.ErrCodeMissingTemplate, "no base resume supplied and no default template configured", nil)
	}
	resume, err := t.templates.Default()
	if err != nil {
		return "", errors.NewConfigError(errors.ErrCodeMissingTemplate, "failed to load default resume template", err)
	}
	return resume, nil
}

// runCandidates tries each model in order and stops at the first non-empty
// answer. When retry is set, 429 responses are retried with backoff.
func (t *Tailorer) runCandidates(ctx context.Context, gen TextGenerator, apiKey, prompt string, candidates []string, retry bool) (string, string, bool) {
	for _, model := range candidates {
		if ctx.Err() != nil {
			return "", "", false
		}

		text, err := t.generate(ctx, gen, GenerateCall{APIKey: apiKey, Model: model, Prompt: prompt}, retry)
		if err != nil {
			t.logger.Warn("Model call failed",
				"generator", gen.Name(),
				"model", model,
				"status", upstream.StatusCode(err),
				"error", err.Error())
			continue
		}
		if strings.TrimSpace(text) == "" {
			t.logger.Warn("Model returned empty output", "generator", gen.Name(), "model", model)
			continue
		}

		t.logger.Info("Model produced output", "generator", gen.Name(), "model", model)
		return text, model, true
	}
	return "", "", false
}

func (t *Tailorer) generate(ctx context.Context, gen TextGenerator, call GenerateCall, retry bool) (string, error) {
	attempt := func(ctx context.Context) (string, error) {
		if t.opts.CallTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, t.opts.CallTimeout)
			defer cancel()
		}
		return gen.Generate(ctx, call)
	}

	if !retry {
		return attempt(ctx)
	}

	return upstream.RetryOnRateLimit(ctx, t.opts.Retry, attempt, func(n int, err error, wait time.Duration) {
		t.logger.Warn("Model rate limited, backing off",
			"generator", gen.Name(),
			"model", call.Model,
			"attempt", n,
			"wait", wait.String())
	})
}
