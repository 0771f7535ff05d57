package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
// API Key Precedence Order:
// 1. Vault (if configured) - Highest priority
// 2. Config File values
// 3. Environment Variables (RESUMETEX_AI_APIKEY, then GEMINI_API_KEY)
// 4. Default values - Lowest priority
type Config struct {
	AI            AIConfig            `mapstructure:"ai"`
	LaTeX         LaTeXConfig         `mapstructure:"latex"`
	Server        ServerConfig        `mapstructure:"server"`
	RateLimit     RateLimitConfig     `mapstructure:"rateLimit"`
	JobDesc       JobDescConfig       `mapstructure:"jobdesc"`
	App           AppConfig           `mapstructure:"app"`
	Vault         VaultConfig         `mapstructure:"vault"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// AIConfig holds generative model configuration
type AIConfig struct {
	APIKey         string   `mapstructure:"apiKey"`
	Model          string   `mapstructure:"model"`
	FallbackModels []string `mapstructure:"fallbackModels"`

	// APIVersion is used by the SDK path; FallbackAPIVersion by the raw REST path.
	APIVersion         string `mapstructure:"apiVersion"`
	FallbackAPIVersion string `mapstructure:"fallbackApiVersion"`
	BaseURL            string `mapstructure:"baseURL"`

	Timeout              time.Duration `mapstructure:"timeout"`
	MaxRetries           int           `mapstructure:"maxRetries"`
	RetryInitialInterval time.Duration `mapstructure:"retryInitialInterval"`
	Temperature          float32       `mapstructure:"temperature"`

	ATSKeywords           bool   `mapstructure:"atsKeywords"`
	ExperienceContextFile string `mapstructure:"experienceContextFile"`
	// ExperienceContext is populated from ExperienceContextFile at load time.
	ExperienceContext string `mapstructure:"experienceContext"`

	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuitBreaker"`
}

// CircuitBreakerConfig represents circuit breaker configuration
type CircuitBreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`          // Whether circuit breaker is enabled
	MaxRequests      uint32        `mapstructure:"maxRequests"`      // Max requests allowed when half-open
	Interval         time.Duration `mapstructure:"interval"`         // Interval to clear counts
	Timeout          time.Duration `mapstructure:"timeout"`          // Timeout for half-open to open
	MinRequests      uint32        `mapstructure:"minRequests"`      // Minimum requests before tripping
	FailureThreshold float64       `mapstructure:"failureThreshold"` // Failure ratio threshold (0.0-1.0)
}

// LaTeXConfig holds compilation service configuration
type LaTeXConfig struct {
	ServiceURL     string        `mapstructure:"serviceURL"`
	MirrorURL      string        `mapstructure:"mirrorURL"`
	DirectTimeout  time.Duration `mapstructure:"directTimeout"`
	ArchiveTimeout time.Duration `mapstructure:"archiveTimeout"`
	MirrorTimeout  time.Duration `mapstructure:"mirrorTimeout"`
	MaxUploadSize  int64         `mapstructure:"maxUploadSize"`
	WorkDir        string        `mapstructure:"workDir"`

	DefaultTemplateFile string `mapstructure:"defaultTemplateFile"`
	WatchTemplate       bool   `mapstructure:"watchTemplate"`

	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuitBreaker"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
	IdleTimeout  time.Duration `mapstructure:"idleTimeout"`

	// API Authentication
	APIKeys []string `mapstructure:"apiKeys"` // Valid API keys for authentication
}

// RateLimitConfig holds per-client rate limiting configuration
type RateLimitConfig struct {
	Enabled  bool        `mapstructure:"enabled"`
	Backend  string      `mapstructure:"backend"` // memory, token, redis
	RedisURL string      `mapstructure:"redisURL"`
	Tailor   WindowLimit `mapstructure:"tailor"`
	Upload   WindowLimit `mapstructure:"upload"`
}

// WindowLimit is a request budget per time window
type WindowLimit struct {
	Window   time.Duration `mapstructure:"window"`
	Requests int           `mapstructure:"requests"`
}

// JobDescConfig holds job posting scraper configuration
type JobDescConfig struct {
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxBodySize int64         `mapstructure:"maxBodySize"`
	UserAgent   string        `mapstructure:"userAgent"`
}

// AppConfig holds general application configuration
type AppConfig struct {
	LogLevel      string `mapstructure:"logLevel"`
	DefaultFormat string `mapstructure:"defaultFormat"`
	MaxFileSize   int64  `mapstructure:"maxFileSize"`
}

// ObservabilityConfig holds observability configuration
type ObservabilityConfig struct {
	Enabled         bool             `mapstructure:"enabled"`
	ServiceName     string           `mapstructure:"serviceName"`
	ServiceVersion  string           `mapstructure:"serviceVersion"`
	ServiceInstance string           `mapstructure:"serviceInstance"`
	Tracing         TracingConfig    `mapstructure:"tracing"`
	Metrics         MetricsConfig    `mapstructure:"metrics"`
	Console         ConsoleConfig    `mapstructure:"console"`
	Prometheus      PrometheusConfig `mapstructure:"prometheus"`
	OTLP            OTLPConfig       `mapstructure:"otlp"`
}

// TracingConfig holds tracing configuration
type TracingConfig struct {
	Enabled    bool    `mapstructure:"enabled"`
	SampleRate float64 `mapstructure:"sampleRate"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	CollectionInterval time.Duration `mapstructure:"collectionInterval"`
}

// ConsoleConfig holds console output configuration
type ConsoleConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	PrettyPrint bool `mapstructure:"prettyPrint"`
}

// PrometheusConfig holds Prometheus configuration
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
	Port     string `mapstructure:"port"`
}

// OTLPConfig holds OTLP exporter configuration
type OTLPConfig struct {
	Enabled  bool              `mapstructure:"enabled"`
	Endpoint string            `mapstructure:"endpoint"`
	Insecure bool              `mapstructure:"insecure"`
	Headers  map[string]string `mapstructure:"headers"`
}

// LoadConfig loads configuration from environment variables and a config file
func LoadConfig() (*Config, error) {
	log.Println("[CONFIG] Starting configuration loading process")

	// A .env file is optional; real environment variables take precedence.
	if err := godotenv.Load(); err == nil {
		log.Println("[CONFIG] Loaded environment overrides from .env")
	}

	v := viper.New()
	setDefaults(v)
	log.Println("[CONFIG] Applied default configuration values")

	v.SetEnvPrefix("RESUMETEX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	log.Println("[CONFIG] Configured environment variable handling with prefix 'RESUMETEX'")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/resumetex/")
	v.AddConfigPath("$HOME/.resumetex")
	v.AddConfigPath(".")
	log.Println("[CONFIG] Configured config file search paths: /etc/resumetex/, $HOME/.resumetex, .")

	configFileUsed := ""
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		log.Println("[CONFIG] No config file found, using defaults and environment variables")
	} else {
		configFileUsed = v.ConfigFileUsed()
		log.Printf("[CONFIG] Successfully loaded config file: %s", configFileUsed)
	}

	return finishLoading(v, configFileUsed)
}

// finishLoading unmarshals, applies fallbacks and validates. Split out of
// LoadConfig so tests can feed a prepared viper instance.
func finishLoading(v *viper.Viper, configFileUsed string) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	log.Println("[CONFIG] Successfully unmarshaled configuration")

	config.applyFallbacks()
	log.Println("[CONFIG] Applied configuration fallbacks and environment variable overrides")

	config.logConfigurationSources(configFileUsed)

	if err := config.loadExperienceContext(); err != nil {
		return nil, fmt.Errorf("failed to load experience context: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log.Println("[CONFIG] Configuration loading completed successfully")
	return &config, nil
}
