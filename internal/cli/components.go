package cli

import (
	"resumetex/internal/ai"
	"resumetex/internal/config"
	"resumetex/internal/errors"
	"resumetex/internal/jobdesc"
	"resumetex/internal/latex"
	"resumetex/internal/template"
	"resumetex/internal/upstream"
)

// newGenerators creates the SDK generator and its raw REST fallback. Both
// share one pooled client.
func newGenerators(cfg *config.Config, logger *errors.Logger) (*ai.GeminiGenerator, *ai.RESTGenerator) {
	client := upstream.NewClient(cfg.AI.Timeout)
	return ai.NewGeminiGenerator(cfg.AI, client, logger), ai.NewRESTGenerator(cfg.AI, client, logger)
}

func newTailorer(cfg *config.Config, templates ai.TemplateSource, logger *errors.Logger) (*ai.Tailorer, *ai.GeminiGenerator) {
	gemini, rest := newGenerators(cfg, logger)
	return ai.NewTailorer(gemini, rest, templates, ai.TailorOptionsFromConfig(cfg.AI), logger), gemini
}

func newTemplateStore(cfg *config.Config, logger *errors.Logger) (*template.Store, error) {
	return template.NewStore(cfg.LaTeX.DefaultTemplateFile, logger)
}

// newCompiler wires the compilation service client, its breaker and the
// package mirror used for missing-package recovery
func newCompiler(cfg *config.Config, logger *errors.Logger) (*latex.Compiler, *latex.HTTPBackend) {
	client := upstream.NewClient(cfg.LaTeX.ArchiveTimeout)
	breaker := upstream.NewBreaker[*latex.Response]("latex-service", cfg.LaTeX.CircuitBreaker, logger)
	backend := latex.NewHTTPBackend(cfg.LaTeX.ServiceURL, client, cfg.LaTeX.DirectTimeout, cfg.LaTeX.ArchiveTimeout, breaker)
	mirror := latex.NewCTANMirror(cfg.LaTeX.MirrorURL, client, cfg.LaTeX.MirrorTimeout)
	return latex.NewCompiler(backend, mirror, cfg.LaTeX.WorkDir, logger), backend
}

// newFetcher only dials public addresses; posting URLs come from callers.
func newFetcher(cfg *config.Config, logger *errors.Logger) *jobdesc.Fetcher {
	return jobdesc.NewFetcher(cfg.JobDesc, upstream.NewPublicClient(cfg.JobDesc.Timeout), logger)
}
