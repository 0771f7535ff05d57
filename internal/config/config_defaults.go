package config

import (
	"time"

	"github.com/spf13/viper"
)

// DefaultFallbackModels are tried after the requested and configured models
var DefaultFallbackModels = []string{
	"gemini-2.5-flash",
	"gemini-2.0-flash",
	"gemini-2.0-flash-lite",
	"gemini-1.5-flash",
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// AI Configuration
	v.SetDefault("ai.apiKey", "")
	v.SetDefault("ai.model", "gemini-2.5-flash")
	v.SetDefault("ai.fallbackModels", DefaultFallbackModels)
	v.SetDefault("ai.apiVersion", "v1beta")
	v.SetDefault("ai.fallbackApiVersion", "v1")
	v.SetDefault("ai.baseURL", "https://generativelanguage.googleapis.com")
	v.SetDefault("ai.timeout", 90*time.Second)
	v.SetDefault("ai.maxRetries", 3)
	v.SetDefault("ai.retryInitialInterval", time.Second)
	v.SetDefault("ai.temperature", 0.3) // Lower temperature for consistency
	v.SetDefault("ai.atsKeywords", false)
	v.SetDefault("ai.experienceContextFile", "")

	v.SetDefault("ai.circuitBreaker.enabled", true)
	v.SetDefault("ai.circuitBreaker.maxRequests", 3)
	v.SetDefault("ai.circuitBreaker.interval", 60*time.Second)
	v.SetDefault("ai.circuitBreaker.timeout", 60*time.Second)
	v.SetDefault("ai.circuitBreaker.minRequests", 5)
	v.SetDefault("ai.circuitBreaker.failureThreshold", 0.8)

	// LaTeX compilation
	v.SetDefault("latex.serviceURL", "https://latexonline.cc")
	v.SetDefault("latex.mirrorURL", "https://mirrors.ctan.org/macros/latex/contrib")
	v.SetDefault("latex.directTimeout", 40*time.Second)
	v.SetDefault("latex.archiveTimeout", 120*time.Second)
	v.SetDefault("latex.mirrorTimeout", 20*time.Second)
	v.SetDefault("latex.maxUploadSize", 5*1024*1024) // 5 MiB
	v.SetDefault("latex.workDir", "")                // os.TempDir()
	v.SetDefault("latex.defaultTemplateFile", "")
	v.SetDefault("latex.watchTemplate", true)

	v.SetDefault("latex.circuitBreaker.enabled", true)
	v.SetDefault("latex.circuitBreaker.maxRequests", 2)
	v.SetDefault("latex.circuitBreaker.interval", 60*time.Second)
	v.SetDefault("latex.circuitBreaker.timeout", 30*time.Second)
	v.SetDefault("latex.circuitBreaker.minRequests", 10)
	v.SetDefault("latex.circuitBreaker.failureThreshold", 0.9)

	// Server Configuration
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.readTimeout", 30*time.Second)
	v.SetDefault("server.writeTimeout", 5*time.Minute) // tailor + archive compile can be slow
	v.SetDefault("server.idleTimeout", 120*time.Second)
	v.SetDefault("server.apiKeys", []string{})

	// Rate limiting
	v.SetDefault("rateLimit.enabled", true)
	v.SetDefault("rateLimit.backend", "memory")
	v.SetDefault("rateLimit.redisURL", "")
	v.SetDefault("rateLimit.tailor.window", time.Minute)
	v.SetDefault("rateLimit.tailor.requests", 20)
	v.SetDefault("rateLimit.upload.window", time.Minute)
	v.SetDefault("rateLimit.upload.requests", 30)

	// Job description scraper
	v.SetDefault("jobdesc.timeout", 15*time.Second)
	v.SetDefault("jobdesc.maxBodySize", 2*1024*1024)
	v.SetDefault("jobdesc.userAgent", "Mozilla/5.0 (compatible; resumetex/1.0)")

	// App Configuration
	v.SetDefault("app.logLevel", "info")
	v.SetDefault("app.defaultFormat", "tex")
	v.SetDefault("app.maxFileSize", 1024*1024) // 1MB

	// Vault Configuration
	v.SetDefault("vault.enabled", false)
	v.SetDefault("vault.address", "")
	v.SetDefault("vault.token", "")
	v.SetDefault("vault.tokenFile", "")
	v.SetDefault("vault.namespace", "")
	v.SetDefault("vault.secrets.apiKeys", "")
	v.SetDefault("vault.secrets.geminiKey", "")

	// Observability Configuration
	v.SetDefault("observability.enabled", true)
	v.SetDefault("observability.serviceName", "resumetex")
	v.SetDefault("observability.serviceVersion", "")
	v.SetDefault("observability.serviceInstance", "")
	v.SetDefault("observability.tracing.enabled", true)
	v.SetDefault("observability.tracing.sampleRate", 1.0)
	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.collectionInterval", 15*time.Second)
	v.SetDefault("observability.console.enabled", false)
	v.SetDefault("observability.console.prettyPrint", true)
	v.SetDefault("observability.prometheus.enabled", true)
	v.SetDefault("observability.prometheus.endpoint", "/metrics")
	v.SetDefault("observability.prometheus.port", "9090")
	v.SetDefault("observability.otlp.enabled", false)
	v.SetDefault("observability.otlp.endpoint", "http://localhost:4318")
	v.SetDefault("observability.otlp.insecure", true)
	v.SetDefault("observability.otlp.headers", map[string]string{})
}
