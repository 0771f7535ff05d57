package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Outcome labels for tailoring and compilation metrics
const (
	OutcomeSuccess  = "success"
	OutcomeDegraded = "degraded"
	OutcomeFailed   = "failed"
)

// Metrics holds the application instruments. A nil *Metrics records nothing.
type Metrics struct {
	TailorDuration  metric.Float64Histogram
	TailorRequests  metric.Int64Counter
	CompileDuration metric.Float64Histogram
	CompileRequests metric.Int64Counter
	CompileAttempts metric.Int64Histogram
	JobDescFetches  metric.Int64Counter
	RateLimitHits   metric.Int64Counter
	TemplateReloads metric.Int64Counter
}

// NewMetrics creates every instrument on meter
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	if m.TailorDuration, err = meter.Float64Histogram(
		"resumetex_tailor_duration_seconds",
		metric.WithDescription("Time spent tailoring a resume, across all model attempts"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("failed to create tailor duration metric: %w", err)
	}

	if m.TailorRequests, err = meter.Int64Counter(
		"resumetex_tailor_requests_total",
		metric.WithDescription("Tailoring requests by outcome and model"),
	); err != nil {
		return nil, fmt.Errorf("failed to create tailor request metric: %w", err)
	}

	if m.CompileDuration, err = meter.Float64Histogram(
		"resumetex_compile_duration_seconds",
		metric.WithDescription("Time spent producing a PDF, including fallbacks"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("failed to create compile duration metric: %w", err)
	}

	if m.CompileRequests, err = meter.Int64Counter(
		"resumetex_compile_requests_total",
		metric.WithDescription("Compilation requests by outcome and engine"),
	); err != nil {
		return nil, fmt.Errorf("failed to create compile request metric: %w", err)
	}

	if m.CompileAttempts, err = meter.Int64Histogram(
		"resumetex_compile_attempts",
		metric.WithDescription("Calls made to the compilation service per request"),
	); err != nil {
		return nil, fmt.Errorf("failed to create compile attempts metric: %w", err)
	}

	if m.JobDescFetches, err = meter.Int64Counter(
		"resumetex_jobdesc_fetches_total",
		metric.WithDescription("Job posting fetches by outcome"),
	); err != nil {
		return nil, fmt.Errorf("failed to create job description metric: %w", err)
	}

	if m.RateLimitHits, err = meter.Int64Counter(
		"resumetex_rate_limit_hits_total",
		metric.WithDescription("Requests rejected by the rate limiter"),
	); err != nil {
		return nil, fmt.Errorf("failed to create rate limit hits metric: %w", err)
	}

	if m.TemplateReloads, err = meter.Int64Counter(
		"resumetex_template_reloads_total",
		metric.WithDescription("Default template reloads from disk"),
	); err != nil {
		return nil, fmt.Errorf("failed to create template reload metric: %w", err)
	}

	return m, nil
}

func outcome(err error, degraded bool) string {
	switch {
	case err != nil:
		return OutcomeFailed
	case degraded:
		return OutcomeDegraded
	default:
		return OutcomeSuccess
	}
}

// RecordTailor records one tailoring request
func (m *Metrics) RecordTailor(ctx context.Context, model string, degraded bool, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("outcome", outcome(err, degraded)),
		attribute.String("model", model),
	)
	m.TailorRequests.Add(ctx, 1, attrs)
	m.TailorDuration.Record(ctx, elapsed.Seconds(), attrs)
}

// RecordCompile records one compilation request
func (m *Metrics) RecordCompile(ctx context.Context, engine string, attempts int, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("outcome", outcome(err, false)),
		attribute.String("engine", engine),
	)
	m.CompileRequests.Add(ctx, 1, attrs)
	m.CompileDuration.Record(ctx, elapsed.Seconds(), attrs)
	m.CompileAttempts.Record(ctx, int64(attempts), attrs)
}

// RecordJobDescFetch records one job posting fetch
func (m *Metrics) RecordJobDescFetch(ctx context.Context, err error) {
	if m == nil {
		return
	}
	m.JobDescFetches.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome(err, false))))
}

// RecordRateLimitHit records a rejected request for an endpoint class
func (m *Metrics) RecordRateLimitHit(ctx context.Context, class string) {
	if m == nil {
		return
	}
	m.RateLimitHits.Add(ctx, 1, metric.WithAttributes(attribute.String("class", class)))
}

// RecordTemplateReload records a default template reload
func (m *Metrics) RecordTemplateReload(ctx context.Context, err error) {
	if m == nil {
		return
	}
	m.TemplateReloads.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome(err, false))))
}
