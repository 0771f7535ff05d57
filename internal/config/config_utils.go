package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// applyFallbacks applies environment variable fallbacks
func (c *Config) applyFallbacks() {
	if c.AI.APIKey == "" {
		if key := os.Getenv("GEMINI_API_KEY"); key != "" {
			c.AI.APIKey = key
		}
	}

	if len(c.Server.APIKeys) == 0 {
		if apiKeysEnv := os.Getenv("RESUMETEX_SERVER_APIKEYS"); apiKeysEnv != "" {
			c.Server.APIKeys = splitAndTrim(apiKeysEnv)
		}
	}
	// viper delivers a comma separated env value as a single element
	if len(c.AI.FallbackModels) == 1 && strings.Contains(c.AI.FallbackModels[0], ",") {
		c.AI.FallbackModels = splitAndTrim(c.AI.FallbackModels[0])
	}

	if c.Observability.ServiceInstance == "" {
		c.Observability.ServiceInstance = generateServiceInstanceID(c.Observability.ServiceName)
	}
}

func splitAndTrim(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// generateServiceInstanceID generates a unique service instance ID
func generateServiceInstanceID(serviceName string) string {
	if hostname, err := os.Hostname(); err == nil {
		return fmt.Sprintf("%s-%s", serviceName, hostname)
	}
	return fmt.Sprintf("%s-1", serviceName)
}

// loadExperienceContext reads the narrative experience block used by the
// richer tailoring prompt.
func (c *Config) loadExperienceContext() error {
	if c.AI.ExperienceContextFile == "" {
		return nil
	}

	absPath, err := filepath.Abs(c.AI.ExperienceContextFile)
	if err != nil {
		return fmt.Errorf("failed to resolve experience context file '%s': %w", c.AI.ExperienceContextFile, err)
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return fmt.Errorf("failed to read experience context file '%s': %w", absPath, err)
	}

	trimmed := strings.TrimSpace(string(content))
	if trimmed == "" {
		return fmt.Errorf("experience context file '%s' is empty", absPath)
	}

	c.AI.ExperienceContext = trimmed
	log.Printf("[CONFIG] Loaded experience context from file: %s (%d characters)", absPath, len(trimmed))
	return nil
}

// Validate checks if the configuration is valid. A missing AI key is not an
// error here: requests may carry their own key.
func (c *Config) Validate() error {
	if c.AI.Model == "" {
		return fmt.Errorf("AI model is required")
	}
	if c.AI.Timeout <= 0 {
		return fmt.Errorf("AI timeout must be positive")
	}
	if c.AI.MaxRetries < 0 {
		return fmt.Errorf("AI maxRetries cannot be negative")
	}

	if c.LaTeX.ServiceURL == "" {
		return fmt.Errorf("LaTeX service URL is required")
	}
	if c.LaTeX.DirectTimeout <= 0 || c.LaTeX.ArchiveTimeout <= 0 {
		return fmt.Errorf("LaTeX timeouts must be positive")
	}
	if c.LaTeX.MaxUploadSize <= 0 {
		return fmt.Errorf("LaTeX maxUploadSize must be positive")
	}

	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	switch c.RateLimit.Backend {
	case "memory", "token":
	case "redis":
		if c.RateLimit.RedisURL == "" {
			return fmt.Errorf("rateLimit.redisURL is required for the redis backend")
		}
	default:
		return fmt.Errorf("invalid rate limit backend: %s", c.RateLimit.Backend)
	}
	if c.RateLimit.Enabled {
		for name, limit := range map[string]WindowLimit{"tailor": c.RateLimit.Tailor, "upload": c.RateLimit.Upload} {
			if limit.Window <= 0 || limit.Requests <= 0 {
				return fmt.Errorf("rate limit %s needs a positive window and request count", name)
			}
		}
	}

	switch c.App.DefaultFormat {
	case "tex", "json":
	default:
		return fmt.Errorf("invalid default format: %s", c.App.DefaultFormat)
	}

	return nil
}

// logConfigurationSources logs a summary of configuration sources being used
func (c *Config) logConfigurationSources(configFileUsed string) {
	log.Println("[CONFIG] === Configuration Sources Summary ===")

	if configFileUsed != "" {
		log.Printf("[CONFIG] Config file: %s", configFileUsed)
	} else {
		log.Println("[CONFIG] Config file: None (using defaults)")
	}

	envVars := []string{
		"RESUMETEX_AI_APIKEY",
		"RESUMETEX_AI_MODEL",
		"RESUMETEX_LATEX_SERVICEURL",
		"RESUMETEX_SERVER_PORT",
		"RESUMETEX_SERVER_HOST",
		"RESUMETEX_RATELIMIT_BACKEND",
		"RESUMETEX_RATELIMIT_REDISURL",
		"RESUMETEX_APP_LOGLEVEL",
		"RESUMETEX_VAULT_ENABLED",
		"GEMINI_API_KEY",
	}

	log.Println("[CONFIG] Environment variables:")
	hasEnvVars := false
	for _, envVar := range envVars {
		if value := os.Getenv(envVar); value != "" {
			lower := strings.ToLower(envVar)
			if strings.Contains(lower, "key") || strings.Contains(lower, "redisurl") {
				log.Printf("[CONFIG]   %s=***MASKED***", envVar)
			} else {
				log.Printf("[CONFIG]   %s=%s", envVar, value)
			}
			hasEnvVars = true
		}
	}
	if !hasEnvVars {
		log.Println("[CONFIG]   None set")
	}

	log.Println("[CONFIG] === Key Configuration Values ===")
	log.Printf("[CONFIG] AI Model: %s (fallbacks: %s)", c.AI.Model, strings.Join(c.AI.FallbackModels, ", "))
	log.Printf("[CONFIG] AI API Versions: %s, fallback %s", c.AI.APIVersion, c.AI.FallbackAPIVersion)
	if c.AI.APIKey != "" {
		log.Println("[CONFIG] AI API Key: ***CONFIGURED***")
	} else {
		log.Println("[CONFIG] AI API Key: ***NOT SET*** (requests must supply one)")
	}
	log.Printf("[CONFIG] LaTeX Service: %s", c.LaTeX.ServiceURL)
	log.Printf("[CONFIG] Package Mirror: %s", c.LaTeX.MirrorURL)
	log.Printf("[CONFIG] Server Host: %s", c.Server.Host)
	log.Printf("[CONFIG] Server Port: %s", c.Server.Port)
	log.Printf("[CONFIG] Rate Limit: enabled=%t backend=%s", c.RateLimit.Enabled, c.RateLimit.Backend)
	log.Printf("[CONFIG] Log Level: %s", c.App.LogLevel)
	log.Printf("[CONFIG] Vault Enabled: %t", c.Vault.Enabled)
	log.Printf("[CONFIG] Observability Enabled: %t", c.Observability.Enabled)
	log.Println("[CONFIG] =====================================")
}
