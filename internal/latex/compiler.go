package latex

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"resumetex/internal/errors"
	"resumetex/internal/types"
	"resumetex/internal/upstream"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const snippetLength = 300

// CompileFailure carries the diagnostics of a compile that produced no PDF
type CompileFailure struct {
	Status   int
	Log      string
	Attempts []types.EngineAttempt
}

func (f *CompileFailure) Error() string {
	return fmt.Sprintf("compilation failed after %d attempts (last status %d)", len(f.Attempts), f.Status)
}

// Compiler turns LaTeX into PDF through a Backend
type Compiler struct {
	backend Backend
	mirror  PackageMirror
	workDir string
	logger  *errors.Logger
	tracer  trace.Tracer
}

// NewCompiler creates a compiler. workDir is the parent of per-request build
// directories; empty means os.TempDir().
func NewCompiler(backend Backend, mirror PackageMirror, workDir string, logger *errors.Logger) *Compiler {
	return &Compiler{
		backend: backend,
		mirror:  mirror,
		workDir: workDir,
		logger:  logger,
		tracer:  otel.Tracer("resumetex.latex"),
	}
}

// Compile produces a PDF from req. Text sources go through the direct
// endpoint for every candidate engine before falling back to an archive
// upload; caller archives are forwarded as-is.
func (c *Compiler) Compile(ctx context.Context, req types.CompileRequest) (*types.CompileResult, error) {
	ctx, span := c.tracer.Start(ctx, "latex.compile")
	defer span.End()

	if len(req.Archive) > 0 {
		span.SetAttributes(attribute.String("compile.path", "passthrough"))
		return c.compilePassthrough(ctx, req)
	}

	if !HasDocumentClass(req.LaTeX) {
		return nil, errors.NewValidationError(errors.ErrCodeNotLaTeX,
			"source does not declare a \\documentclass", nil)
	}
	if req.Engine != "" && !req.Engine.Valid() {
		return nil, errors.NewValidationError(errors.ErrCodeUnknownEngine,
			fmt.Sprintf("unknown engine %q", req.Engine), nil)
	}

	initial := req.Engine
	if initial == "" {
		initial = InferEngine(req.LaTeX)
	}
	span.SetAttributes(
		attribute.String("compile.initial_engine", string(initial)),
		attribute.Int("compile.source_length", len(req.LaTeX)),
	)

	var attempts []types.EngineAttempt
	for _, engine := range TrialOrder(initial) {
		for _, method := range []string{MethodPost, MethodGet} {
			resp, err := c.backend.Direct(ctx, engine, method, req.LaTeX)
			attempt := types.EngineAttempt{Engine: engine, Method: method}
			if ok := c.classify(resp, err, &attempt); ok {
				span.SetAttributes(attribute.String("compile.engine", string(engine)))
				return &types.CompileResult{PDF: resp.Body, Engine: engine, Attempts: attempts}, nil
			}
			attempts = append(attempts, attempt)
			c.logger.Debug("Direct compile attempt failed",
				"engine", engine, "method", method, "status", attempt.Status)

			if ctx.Err() != nil {
				return nil, c.exhausted(http.StatusGatewayTimeout, ctx.Err().Error(), attempts)
			}
		}
	}

	span.SetAttributes(attribute.String("compile.path", "archive"))
	return c.compileArchive(ctx, req.LaTeX, attempts)
}

// classify reports whether a reply is a PDF, filling attempt otherwise.
func (c *Compiler) classify(resp *Response, err error, attempt *types.EngineAttempt) bool {
	if err != nil {
		attempt.Status = upstream.StatusCode(err)
		attempt.Error = upstream.Snippet(err.Error(), snippetLength)
		return false
	}
	attempt.Status = resp.StatusCode
	if IsPDF(resp.ContentType, resp.Body) {
		return true
	}
	attempt.Error = upstream.Snippet(string(resp.Body), snippetLength)
	return false
}

func (c *Compiler) compilePassthrough(ctx context.Context, req types.CompileRequest) (*types.CompileResult, error) {
	name := req.ArchiveName
	if name == "" {
		name = ArchiveFileName
	}

	resp, err := c.backend.Archive(ctx, req.Archive, name, EntryPoint, types.EnginePlain)
	attempt := types.EngineAttempt{Engine: types.EnginePlain, Method: "ARCHIVE"}
	if c.classify(resp, err, &attempt) {
		return &types.CompileResult{PDF: resp.Body, Engine: types.EnginePlain}, nil
	}

	attempts := []types.EngineAttempt{attempt}
	if resp != nil {
		return nil, c.exhausted(resp.StatusCode, string(resp.Body), attempts)
	}
	return nil, c.exhausted(attempt.Status, attempt.Error, attempts)
}

// compileArchive builds main.tex into a scratch directory and runs the
// archive recovery machine. The directory is removed on every return path.
func (c *Compiler) compileArchive(ctx context.Context, source string, attempts []types.EngineAttempt) (*types.CompileResult, error) {
	dir, err := os.MkdirTemp(c.workDir, "latex-build-*")
	if err != nil {
		return nil, errors.NewUpstreamExhaustedError(errors.ErrCodeArchiveBuild,
			"failed to create build directory", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			c.logger.Warn("Failed to remove build directory", "dir", dir, "error", rmErr.Error())
		}
	}()

	if err := os.WriteFile(filepath.Join(dir, EntryPoint), []byte(source), 0o600); err != nil {
		return nil, errors.NewUpstreamExhaustedError(errors.ErrCodeArchiveBuild,
			"failed to write build source", err)
	}

	run := &archiveRun{compiler: c, dir: dir, attempts: attempts}
	return run.execute(ctx)
}

func (c *Compiler) exhausted(status int, log string, attempts []types.EngineAttempt) error {
	return errors.NewUpstreamExhaustedError(errors.ErrCodeCompileFailed,
		"no compilation attempt produced a PDF",
		&CompileFailure{Status: status, Log: log, Attempts: attempts}).
		WithContext("attempts", len(attempts))
}
