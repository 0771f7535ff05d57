package server

import (
	stderrors "errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"resumetex/internal/errors"
	"resumetex/internal/latex"
	"resumetex/internal/types"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// tailorHandler rewrites the base resume for the posted job description
func (s *Server) tailorHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.tracer.Start(r.Context(), "api.tailor")
	defer span.End()

	if s.tailorer == nil {
		writeUnavailable(w, "tailoring")
		return
	}

	var req types.TailorRequest
	if err := parseJSONRequest(r, &req); err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.String("error.type", "validation"))
		writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}

	span.SetAttributes(
		attribute.Int("request.job_length", len(req.JobDescription)),
		attribute.Int("request.resume_length", len(req.BaseResume)),
		attribute.Bool("request.caller_key", req.APIKey != ""),
		attribute.String("operation", "tailor"),
	)

	start := time.Now()
	result, err := s.tailorer.Tailor(ctx, req)

	var model string
	var degraded bool
	if result != nil {
		model, degraded = result.Model, result.Degraded
	}
	s.metrics.RecordTailor(ctx, model, degraded, err, time.Since(start))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "tailoring failed")
		s.Logger.LogError(err, "Tailoring failed", "request_id", requestID(r))
		writeAppError(w, err)
		return
	}

	span.SetAttributes(
		attribute.Bool("success", true),
		attribute.String("ai.model", model),
		attribute.Bool("ai.degraded", degraded),
	)

	if degraded {
		w.Header().Set("X-Resumetex-Degraded", "true")
	}
	writeJSON(w, http.StatusOK, TailorResponse{
		LaTeX:    result.LaTeX,
		Model:    result.Model,
		Degraded: result.Degraded,
	})
}

// compileHandler turns posted LaTeX, or an uploaded .tex or archive, into a PDF
func (s *Server) compileHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.tracer.Start(r.Context(), "api.compile")
	defer span.End()

	if s.compiler == nil {
		writeUnavailable(w, "compilation")
		return
	}

	req, err := s.parseCompileRequest(r)
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.String("error.type", "validation"))
		writeAppError(w, err)
		return
	}

	span.SetAttributes(
		attribute.Int("request.source_length", len(req.LaTeX)),
		attribute.Int("request.archive_size", len(req.Archive)),
		attribute.String("request.engine", string(req.Engine)),
		attribute.String("operation", "compile"),
	)

	start := time.Now()
	result, err := s.compiler.Compile(ctx, req)

	engine := string(req.Engine)
	attempts := 0
	if result != nil {
		engine = string(result.Engine)
		attempts = len(result.Attempts) + 1
	} else {
		var failure *latex.CompileFailure
		if stderrors.As(err, &failure) {
			attempts = len(failure.Attempts)
		}
	}
	s.metrics.RecordCompile(ctx, engine, attempts, err, time.Since(start))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "compilation failed")
		s.Logger.LogError(err, "Compilation failed", "request_id", requestID(r), "attempts", attempts)
		writeCompileError(w, err)
		return
	}

	span.SetAttributes(
		attribute.Bool("success", true),
		attribute.String("compile.engine", engine),
		attribute.Int("response.pdf_size", len(result.PDF)),
	)

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="resume.pdf"`)
	w.Header().Set("X-Resumetex-Engine", engine)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(result.PDF); err != nil {
		s.Logger.LogError(err, "Failed to write PDF response", "request_id", requestID(r))
	}
}

// parseCompileRequest reads either a JSON body or a multipart upload
func (s *Server) parseCompileRequest(r *http.Request) (types.CompileRequest, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		var req types.CompileRequest
		if err := parseJSONRequest(r, &req); err != nil {
			return req, errors.NewValidationError(errors.ErrCodeInvalidRequest, err.Error(), nil)
		}
		if strings.TrimSpace(req.LaTeX) == "" {
			return req, errors.NewValidationError(errors.ErrCodeInvalidRequest, "latex field is required", nil)
		}
		return req, nil
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if stderrors.As(err, &maxBytesErr) {
			return types.CompileRequest{}, errors.NewValidationError(errors.ErrCodeFileTooLarge,
				fmt.Sprintf("upload exceeds the %d byte limit", s.MaxUploadSize), err)
		}
		return types.CompileRequest{}, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			"multipart upload must carry the document in the \"file\" field", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			s.Logger.Warn("Failed to close uploaded file", "error", err.Error())
		}
	}()

	data, err := io.ReadAll(file)
	if err != nil {
		return types.CompileRequest{}, errors.NewIOError(errors.ErrCodeFileNotReadable, "failed to read uploaded file", err)
	}

	kind, err := latex.ClassifyUpload(header.Filename, data, s.MaxUploadSize)
	if err != nil {
		return types.CompileRequest{}, err
	}

	req := types.CompileRequest{Engine: types.Engine(strings.TrimSpace(r.FormValue("engine")))}
	if kind == latex.UploadArchive {
		req.Archive = data
		req.ArchiveName = header.Filename
	} else {
		req.LaTeX = string(data)
	}
	return req, nil
}

// modelsHandler lists the text generation models the key can use
func (s *Server) modelsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.tracer.Start(r.Context(), "api.models")
	defer span.End()

	if s.models == nil {
		writeUnavailable(w, "model listing")
		return
	}

	apiKey := strings.TrimSpace(r.Header.Get("X-Gemini-API-Key"))
	if apiKey == "" {
		apiKey = s.defaultAPIKey
	}
	if apiKey == "" {
		writeAppError(w, errors.NewConfigError(errors.ErrCodeMissingAPIKey,
			"no Gemini API key configured; send X-Gemini-API-Key", nil))
		return
	}

	models, err := s.models.ListModels(ctx, apiKey)
	if err != nil {
		span.RecordError(err)
		s.Logger.LogError(err, "Model listing failed", "request_id", requestID(r))
		writeAppError(w, err)
		return
	}

	span.SetAttributes(attribute.Int("models.count", len(models)))
	writeJSON(w, http.StatusOK, map[string]any{"models": models})
}

// jobDescHandler scrapes the text of a job posting
func (s *Server) jobDescHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.tracer.Start(r.Context(), "api.jobdesc")
	defer span.End()

	if s.jobs == nil {
		writeUnavailable(w, "job description fetching")
		return
	}

	var req types.JobDescriptionRequest
	if err := parseJSONRequest(r, &req); err != nil {
		span.RecordError(err)
		writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}

	job, err := s.jobs.Fetch(ctx, req.URL)
	s.metrics.RecordJobDescFetch(ctx, err)
	if err != nil {
		span.RecordError(err)
		s.Logger.LogError(err, "Job description fetch failed", "request_id", requestID(r))
		writeAppError(w, err)
		return
	}

	span.SetAttributes(attribute.Int("response.text_length", len(job.Text)))
	writeJSON(w, http.StatusOK, job)
}
