package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDefaultViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func TestDefaultsLoad(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")

	cfg, err := finishLoading(newDefaultViper(), "")
	require.NoError(t, err)

	assert.Equal(t, "gemini-2.5-flash", cfg.AI.Model)
	assert.Equal(t, 3, cfg.AI.MaxRetries)
	assert.Equal(t, time.Second, cfg.AI.RetryInitialInterval)
	assert.Equal(t, "v1", cfg.AI.FallbackAPIVersion)
	assert.Equal(t, 40*time.Second, cfg.LaTeX.DirectTimeout)
	assert.Equal(t, 120*time.Second, cfg.LaTeX.ArchiveTimeout)
	assert.Equal(t, int64(5*1024*1024), cfg.LaTeX.MaxUploadSize)
	assert.Equal(t, WindowLimit{Window: time.Minute, Requests: 20}, cfg.RateLimit.Tailor)
	assert.Equal(t, WindowLimit{Window: time.Minute, Requests: 30}, cfg.RateLimit.Upload)
	assert.Equal(t, "memory", cfg.RateLimit.Backend)
	assert.NotEmpty(t, cfg.Observability.ServiceInstance)
}

func TestGeminiKeyFallback(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "legacy-key")

	cfg, err := finishLoading(newDefaultViper(), "")
	require.NoError(t, err)
	assert.Equal(t, "legacy-key", cfg.AI.APIKey)

	v := newDefaultViper()
	v.Set("ai.apiKey", "explicit-key")
	cfg, err = finishLoading(v, "")
	require.NoError(t, err)
	assert.Equal(t, "explicit-key", cfg.AI.APIKey)
}

func TestFallbackModelsFromCommaList(t *testing.T) {
	v := newDefaultViper()
	v.Set("ai.fallbackModels", []string{"a, b,c"})

	cfg, err := finishLoading(v, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, cfg.AI.FallbackModels)
}

func TestExperienceContextFile(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "experience.md")
	require.NoError(t, os.WriteFile(path, []byte("\n  Led the payments migration.\n"), 0600))

	v := newDefaultViper()
	v.Set("ai.experienceContextFile", path)
	cfg, err := finishLoading(v, "")
	require.NoError(t, err)
	assert.Equal(t, "Led the payments migration.", cfg.AI.ExperienceContext)

	empty := filepath.Join(dir, "empty.md")
	require.NoError(t, os.WriteFile(empty, []byte("   "), 0600))
	v = newDefaultViper()
	v.Set("ai.experienceContextFile", empty)
	_, err = finishLoading(v, "")
	assert.ErrorContains(t, err, "is empty")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(v *viper.Viper)
		wantErr string
	}{
		{"valid defaults", func(v *viper.Viper) {}, ""},
		{"missing model", func(v *viper.Viper) { v.Set("ai.model", "") }, "AI model is required"},
		{"bad timeout", func(v *viper.Viper) { v.Set("ai.timeout", 0) }, "AI timeout"},
		{"no service url", func(v *viper.Viper) { v.Set("latex.serviceURL", "") }, "LaTeX service URL"},
		{"bad upload size", func(v *viper.Viper) { v.Set("latex.maxUploadSize", 0) }, "maxUploadSize"},
		{"unknown backend", func(v *viper.Viper) { v.Set("rateLimit.backend", "memcached") }, "invalid rate limit backend"},
		{"redis without url", func(v *viper.Viper) { v.Set("rateLimit.backend", "redis") }, "redisURL"},
		{"zero window", func(v *viper.Viper) { v.Set("rateLimit.tailor.requests", 0) }, "rate limit tailor"},
		{"limits ignored when disabled", func(v *viper.Viper) {
			v.Set("rateLimit.enabled", false)
			v.Set("rateLimit.tailor.requests", 0)
		}, ""},
		{"bad format", func(v *viper.Viper) { v.Set("app.defaultFormat", "markdown") }, "invalid default format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newDefaultViper()
			tt.mutate(v)
			_, err := finishLoading(v, "")
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
