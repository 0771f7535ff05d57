package server

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"sort"

	"resumetex/internal/errors"
	"resumetex/internal/latex"
)

// healthHandler reports whether the upstream breakers are closed
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"status":  "healthy",
		"service": "resumetex",
		"version": s.Version,
	}

	breakers, healthy := s.checkCircuitBreakerHealth()
	response["circuit_breakers"] = breakers
	response["components"] = map[string]bool{
		"tailor":  s.tailorer != nil,
		"compile": s.compiler != nil,
		"models":  s.models != nil,
		"jobdesc": s.jobs != nil,
	}

	status := http.StatusOK
	if !healthy {
		response["status"] = "degraded"
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, response)
}

// checkCircuitBreakerHealth collects breaker state; the bool is false when
// any breaker is not closed
func (s *Server) checkCircuitBreakerHealth() (map[string]any, bool) {
	status := make(map[string]any, len(s.breakers))
	healthy := true

	names := make([]string, 0, len(s.breakers))
	for name := range s.breakers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		reporter := s.breakers[name]
		ok := reporter.IsHealthy()
		if !ok {
			healthy = false
		}
		status[name] = map[string]any{
			"healthy": ok,
			"breaker": reporter.GetCircuitBreakerStats(),
		}
	}
	return status, healthy
}

// statsHandler provides server statistics including rate limiting info
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"service": "resumetex",
		"version": s.Version,
		"server": map[string]any{
			"max_request_size_bytes": s.MaxRequestSize,
			"max_upload_size_bytes":  s.MaxUploadSize,
			"auth_enabled":           len(s.APIKeys) > 0,
		},
		"rate_limiting": s.limiters.Stats(),
	}

	if s.templates != nil {
		response["template"] = s.templates.Stats()
	}
	if len(s.breakers) > 0 {
		breakers, _ := s.checkCircuitBreakerHealth()
		response["circuit_breakers"] = breakers
	}

	writeJSON(w, http.StatusOK, response)
}

// parseJSONRequest parses JSON request body into the provided struct
func parseJSONRequest(r *http.Request, v any) error {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return fmt.Errorf("content-type must be application/json")
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if stderrors.As(err, &maxBytesErr) {
			return fmt.Errorf("request body too large (limit is %d bytes)", maxBytesErr.Limit)
		}
		return fmt.Errorf("failed to read request body: %w", err)
	}
	defer func() {
		if err := r.Body.Close(); err != nil {
			log.Printf("Failed to close request body: %v", err)
		}
	}()

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}

	return nil
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

// writeErrorResponse writes a standardized error response
func writeErrorResponse(w http.ResponseWriter, error, message string, statusCode int) {
	writeJSON(w, statusCode, ErrorResponse{
		Error:   error,
		Message: message,
	})
}

// writeAppError maps err onto its status code. Causes are not echoed back.
func writeAppError(w http.ResponseWriter, err error) {
	appErr, ok := errors.As(err)
	if !ok {
		writeErrorResponse(w, errors.ErrCodeInternal, "internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, errors.HTTPStatus(err), ErrorResponse{
		Error:   appErr.Code,
		Message: appErr.Message,
		Code:    string(appErr.Type),
		Context: appErr.Context,
	})
}

// writeCompileError returns the compilation service's status and log when
// the failure came from the service itself
func writeCompileError(w http.ResponseWriter, err error) {
	var failure *latex.CompileFailure
	appErr, ok := errors.As(err)
	if !ok || !stderrors.As(err, &failure) {
		writeAppError(w, err)
		return
	}

	status := failure.Status
	if status < http.StatusBadRequest {
		status = http.StatusBadGateway
	}

	writeJSON(w, status, CompileErrorResponse{
		Error:    appErr.Code,
		Message:  appErr.Message,
		Log:      failure.Log,
		Attempts: failure.Attempts,
	})
}

func writeUnavailable(w http.ResponseWriter, feature string) {
	writeErrorResponse(w, "Service unavailable", feature+" is not configured on this server", http.StatusServiceUnavailable)
}
