package server

import (
	"context"
	"net/http"
	"strings"

	"resumetex/internal/errors"

	"github.com/google/uuid"
)

// multipartOverhead is the slack allowed on top of MaxUploadSize for the
// multipart envelope around an uploaded file
const multipartOverhead = 64 * 1024

type requestIDKey struct{}

// Handler returns the routed API wrapped in request-id and tracing middleware
func (s *Server) Handler() http.Handler {
	var handler http.Handler = s.setupRoutes()
	handler = s.requestIDMiddleware(handler)
	if s.om != nil {
		handler = s.om.HTTPMiddleware()(handler)
	}
	return handler
}

// setupRoutes configures all HTTP routes and middleware
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	tailorLimit := s.rateLimitMiddleware("tailor", s.tailorLimiter())
	uploadLimit := s.rateLimitMiddleware("upload", s.uploadLimiter())
	requestLimit := s.requestSizeLimitMiddleware(s.MaxRequestSize)
	uploadSizeLimit := s.requestSizeLimitMiddleware(s.uploadBodyLimit())

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /stats", s.statsHandler)
	mux.HandleFunc("POST /api/tailor",
		tailorLimit(s.authMiddleware(requestLimit(s.tailorHandler))),
	)
	mux.HandleFunc("POST /api/compile",
		uploadLimit(s.authMiddleware(uploadSizeLimit(s.compileHandler))),
	)
	mux.HandleFunc("POST /api/jobdesc",
		uploadLimit(s.authMiddleware(requestLimit(s.jobDescHandler))),
	)
	mux.HandleFunc("GET /api/models", s.authMiddleware(s.modelsHandler))

	return mux
}

func (s *Server) uploadBodyLimit() int64 {
	if s.MaxUploadSize <= 0 {
		return 0
	}
	return s.MaxUploadSize + multipartOverhead
}

// requestIDMiddleware tags every request with an X-Request-ID, keeping the
// caller's when one is supplied
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

// requestID returns the id assigned by requestIDMiddleware
func requestID(r *http.Request) string {
	id, _ := r.Context().Value(requestIDKey{}).(string)
	return id
}

// authMiddleware provides API key authentication
func (s *Server) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Skip authentication if no API keys are configured
		if len(s.APIKeys) == 0 {
			next(w, r)
			return
		}

		// Check for API key in X-API-Key header
		apiKey := r.Header.Get("X-API-Key")
		if apiKey == "" {
			// Check for Bearer token in Authorization header as fallback
			authHeader := r.Header.Get("Authorization")
			if after, ok := strings.CutPrefix(authHeader, "Bearer "); ok {
				apiKey = after
			}
		}

		if apiKey == "" {
			s.Logger.Info("Authentication failed: missing API key",
				"endpoint", r.URL.Path,
				"request_id", requestID(r))
			writeErrorResponse(w, "Missing API key", "X-API-Key header or Authorization Bearer token required", http.StatusUnauthorized)
			return
		}

		if !s.APIKeys[apiKey] {
			s.Logger.Info("Authentication failed: invalid API key",
				"endpoint", r.URL.Path,
				"request_id", requestID(r),
				"api_key", errors.MaskSecret(apiKey))
			writeErrorResponse(w, "Invalid API key", "Unauthorized access", http.StatusUnauthorized)
			return
		}

		s.Logger.Debug("API authentication successful",
			"endpoint", r.URL.Path,
			"api_key", errors.MaskSecret(apiKey))

		next(w, r)
	}
}

// requestSizeLimitMiddleware limits the size of incoming requests
func (s *Server) requestSizeLimitMiddleware(limit int64) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if limit > 0 {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next(w, r)
		}
	}
}
