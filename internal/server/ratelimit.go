package server

import (
	"net/http"

	"resumetex/internal/errors"
	"resumetex/internal/ratelimit"
)

func (s *Server) tailorLimiter() ratelimit.Limiter {
	if s.limiters == nil {
		return nil
	}
	return s.limiters.Tailor
}

func (s *Server) uploadLimiter() ratelimit.Limiter {
	if s.limiters == nil {
		return nil
	}
	return s.limiters.Upload
}

// rateLimitMiddleware rejects a client once it has used up its budget for
// the endpoint class. A failing limiter backend lets the request through.
func (s *Server) rateLimitMiddleware(class string, limiter ratelimit.Limiter) func(http.HandlerFunc) http.HandlerFunc {
	if limiter == nil {
		return func(next http.HandlerFunc) http.HandlerFunc { return next }
	}

	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			key := ratelimit.ClientKey(r)

			allowed, err := limiter.Allow(r.Context(), key)
			if err != nil {
				s.Logger.LogError(err, "Rate limiter unavailable, allowing request",
					"class", class,
					"endpoint", r.URL.Path)
				next(w, r)
				return
			}

			if !allowed {
				s.Logger.Info("Rate limit exceeded",
					"class", class,
					"client", key,
					"endpoint", r.URL.Path,
					"request_id", requestID(r))
				s.metrics.RecordRateLimitHit(r.Context(), class)
				writeAppError(w, errors.NewRateLimitedError(errors.ErrCodeRateLimited,
					"too many requests, try again in a minute").WithContext("class", class))
				return
			}

			next(w, r)
		}
	}
}
