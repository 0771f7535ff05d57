package server

import (
	"context"
	"time"

	"resumetex/internal/ai"
	resumetexErrors "resumetex/internal/errors"
	"resumetex/internal/observability"
	"resumetex/internal/ratelimit"
	"resumetex/internal/types"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Tailorer rewrites a resume for a job description
type Tailorer interface {
	Tailor(ctx context.Context, req types.TailorRequest) (*types.TailorResult, error)
}

// Compiler produces a PDF from LaTeX source or an archive
type Compiler interface {
	Compile(ctx context.Context, req types.CompileRequest) (*types.CompileResult, error)
}

// JobFetcher scrapes a job posting
type JobFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*types.JobDescription, error)
}

// BreakerReporter is an upstream client guarded by a circuit breaker
type BreakerReporter interface {
	IsHealthy() bool
	GetCircuitBreakerStats() map[string]any
}

// StatsReporter exposes component statistics for /stats
type StatsReporter interface {
	Stats() map[string]any
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string         `json:"error"`
	Message string         `json:"message,omitempty"`
	Code    string         `json:"code,omitempty"`
	Context map[string]any `json:"context,omitempty"`
}

// CompileErrorResponse carries the diagnostics of a failed compilation
type CompileErrorResponse struct {
	Error    string                `json:"error"`
	Message  string                `json:"message"`
	Log      string                `json:"log,omitempty"`
	Attempts []types.EngineAttempt `json:"attempts"`
}

// TailorResponse is the body of a successful /api/tailor call
type TailorResponse struct {
	LaTeX    string `json:"latex"`
	Model    string `json:"model"`
	Degraded bool   `json:"degraded"`
}

// Server holds configuration for the HTTP server
type Server struct {
	Host    string
	Port    string
	Version string

	// API Authentication
	APIKeys map[string]bool

	// Timeout configurations
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// Request size limits; uploads to /api/compile get their own budget
	MaxRequestSize int64
	MaxUploadSize  int64

	tailorer  Tailorer
	compiler  Compiler
	models    ai.ModelLister
	jobs      JobFetcher
	limiters  *ratelimit.Set
	templates StatsReporter
	breakers  map[string]BreakerReporter
	om        *observability.ObservabilityManager
	metrics   *observability.Metrics
	tracer    trace.Tracer

	defaultAPIKey string

	// Logger
	Logger *resumetexErrors.Logger
}

// ServerConfig holds configuration for creating a Server instance
type ServerConfig struct {
	Host           string
	Port           string
	Version        string
	APIKeys        []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxRequestSize int64
	MaxUploadSize  int64
	// DefaultAPIKey is the server's Gemini key, used to list models when the
	// caller does not bring one.
	DefaultAPIKey string
}

// Dependencies are the services the handlers delegate to. Any of them may be
// nil; the matching endpoint then answers 503.
type Dependencies struct {
	Tailorer      Tailorer
	Compiler      Compiler
	Models        ai.ModelLister
	Jobs          JobFetcher
	Limiters      *ratelimit.Set
	Templates     StatsReporter
	Breakers      map[string]BreakerReporter
	Observability *observability.ObservabilityManager
}

// NewServer creates a new Server instance
func NewServer(cfg ServerConfig, deps Dependencies, logger *resumetexErrors.Logger) *Server {
	// Convert API keys slice to map for O(1) lookup
	apiKeyMap := make(map[string]bool)
	for _, key := range cfg.APIKeys {
		if key != "" {
			apiKeyMap[key] = true
		}
	}

	if logger == nil {
		logger = resumetexErrors.NewNopLogger()
	}

	s := &Server{
		Host:           cfg.Host,
		Port:           cfg.Port,
		Version:        cfg.Version,
		APIKeys:        apiKeyMap,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxRequestSize: cfg.MaxRequestSize,
		MaxUploadSize:  cfg.MaxUploadSize,
		tailorer:       deps.Tailorer,
		compiler:       deps.Compiler,
		models:         deps.Models,
		jobs:           deps.Jobs,
		limiters:       deps.Limiters,
		templates:      deps.Templates,
		breakers:       deps.Breakers,
		om:             deps.Observability,
		tracer:         otel.Tracer("resumetex.api"),
		defaultAPIKey:  cfg.DefaultAPIKey,
		Logger:         logger,
	}
	if s.om != nil {
		s.metrics = s.om.GetMetrics()
	}
	return s
}
