package observability

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"resumetex/internal/config"
	"resumetex/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	found := map[string]metricdata.Aggregation{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			found[m.Name] = m.Data
		}
	}
	return found
}

func TestMetrics_Record(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = provider.Shutdown(context.Background()) }()

	metrics, err := NewMetrics(provider.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	metrics.RecordTailor(ctx, "gemini-2.5-flash", false, nil, 2*time.Second)
	metrics.RecordTailor(ctx, "gemini-2.5-flash", true, nil, time.Second)
	metrics.RecordTailor(ctx, "", false, stderrors.New("exhausted"), time.Second)
	metrics.RecordCompile(ctx, "xelatex", 3, nil, time.Second)
	metrics.RecordRateLimitHit(ctx, "tailor")
	metrics.RecordJobDescFetch(ctx, nil)
	metrics.RecordTemplateReload(ctx, nil)

	found := collect(t, reader)

	tailor, ok := found["resumetex_tailor_requests_total"].(metricdata.Sum[int64])
	require.True(t, ok)
	outcomes := map[string]int64{}
	for _, dp := range tailor.DataPoints {
		value, _ := dp.Attributes.Value("outcome")
		outcomes[value.AsString()] += dp.Value
	}
	assert.Equal(t, map[string]int64{OutcomeSuccess: 1, OutcomeDegraded: 1, OutcomeFailed: 1}, outcomes)

	attempts, ok := found["resumetex_compile_attempts"].(metricdata.Histogram[int64])
	require.True(t, ok)
	require.Len(t, attempts.DataPoints, 1)
	assert.Equal(t, int64(3), attempts.DataPoints[0].Sum)

	hits, ok := found["resumetex_rate_limit_hits_total"].(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, hits.DataPoints, 1)
	assert.Equal(t, int64(1), hits.DataPoints[0].Value)

	assert.Contains(t, found, "resumetex_jobdesc_fetches_total")
	assert.Contains(t, found, "resumetex_template_reloads_total")
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var metrics *Metrics
	assert.NotPanics(t, func() {
		metrics.RecordTailor(context.Background(), "m", false, nil, time.Second)
		metrics.RecordCompile(context.Background(), "pdflatex", 1, nil, time.Second)
		metrics.RecordRateLimitHit(context.Background(), "upload")
		metrics.RecordJobDescFetch(context.Background(), nil)
		metrics.RecordTemplateReload(context.Background(), nil)
	})
}

func TestGetObservabilityConfig(t *testing.T) {
	fallback := GetObservabilityConfig(nil, "1.2.3")
	assert.Equal(t, "resumetex", fallback.ServiceName)
	assert.Equal(t, "1.2.3", fallback.ServiceVersion)
	assert.Equal(t, "/metrics", fallback.Prometheus.Endpoint)

	cfg := &config.Config{}
	cfg.Observability.ServiceName = "resumetex"
	cfg.Observability.ServiceVersion = "9.9.9"
	cfg.Observability.Tracing.SampleRate = 0.5
	cfg.Observability.Prometheus.Port = "9191"

	obs := GetObservabilityConfig(cfg, "1.2.3")
	assert.Equal(t, "9.9.9", obs.ServiceVersion)
	assert.Equal(t, 0.5, obs.SampleRate)
	assert.Equal(t, "9191", obs.Prometheus.Port)
}

func TestObservabilityManager_Disabled(t *testing.T) {
	om, err := NewObservabilityManager(ObservabilityConfig{Enabled: false}, errors.NewNopLogger())
	require.NoError(t, err)

	assert.Nil(t, om.GetMetrics())
	assert.NoError(t, om.Shutdown(context.Background()))
}

func TestObservabilityManager_MetricsWithoutExporters(t *testing.T) {
	om, err := NewObservabilityManager(ObservabilityConfig{
		ServiceName:    "resumetex-test",
		ServiceVersion: "test",
		Enabled:        true,
		MetricsEnabled: true,
		TracingEnabled: true,
		SampleRate:     1,
	}, errors.NewNopLogger())
	require.NoError(t, err)
	defer func() { _ = om.Shutdown(context.Background()) }()

	assert.NotNil(t, om.GetMetrics())
	assert.NotNil(t, om.HTTPMiddleware())
}
