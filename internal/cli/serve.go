package cli

import (
	"context"
	"fmt"
	"time"

	"resumetex/internal/observability"
	"resumetex/internal/ratelimit"
	"resumetex/internal/server"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server for resume tailoring and compilation",
	Long: `Start an HTTP server that provides REST API endpoints for tailoring and
compiling LaTeX resumes.

Available endpoints:
- POST /api/tailor: Tailor a LaTeX resume for a job description
- POST /api/compile: Compile LaTeX source or an uploaded archive to PDF
- POST /api/jobdesc: Scrape a job description from a URL
- GET /api/models: List available Gemini models
- GET /health: Health check endpoint
- GET /stats: Server statistics and rate limiting info`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringP("port", "p", "", "Port to listen on (default from config)")
	serveCmd.Flags().String("host", "", "Host to bind to (default from config)")
	serveCmd.Flags().Bool("watch-template", false, "Reload the default template when it changes on disk")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	// Explicit flags win over file and environment settings.
	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Server.Port, _ = flags.GetString("port")
	}
	if flags.Changed("host") {
		cfg.Server.Host, _ = flags.GetString("host")
	}
	if flags.Changed("watch-template") {
		cfg.LaTeX.WatchTemplate, _ = flags.GetBool("watch-template")
	}

	om, err := observability.NewObservabilityManager(observability.GetObservabilityConfig(cfg, Version), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := om.Shutdown(ctx); err != nil {
			logger.LogError(err, "Failed to shut down observability")
		}
	}()

	templates, err := newTemplateStore(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = templates.Close() }()

	if cfg.LaTeX.WatchTemplate {
		metrics := om.GetMetrics()
		templates.OnReload(func(err error) {
			metrics.RecordTemplateReload(context.Background(), err)
		})
		if err := templates.Watch(); err != nil {
			return fmt.Errorf("failed to watch template: %w", err)
		}
	}

	limiters, err := ratelimit.NewSet(cfg.RateLimit, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize rate limiting: %w", err)
	}

	tailorer, gemini := newTailorer(cfg, templates, logger)
	compiler, backend := newCompiler(cfg, logger)

	serverCfg := server.ServerConfig{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		Version:        Version,
		APIKeys:        cfg.Server.APIKeys,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxRequestSize: cfg.App.MaxFileSize,
		MaxUploadSize:  cfg.LaTeX.MaxUploadSize,
		DefaultAPIKey:  cfg.AI.APIKey,
	}
	deps := server.Dependencies{
		Tailorer:  tailorer,
		Compiler:  compiler,
		Models:    gemini,
		Jobs:      newFetcher(cfg, logger),
		Limiters:  limiters,
		Templates: templates,
		Breakers: map[string]server.BreakerReporter{
			"gemini": gemini,
			"latex":  backend,
		},
		Observability: om,
	}
	return server.NewServer(serverCfg, deps, logger).Start()
}
