package server

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/teranos/taxa/errors"
	"github.com/teranos/taxa/logger"
)

// Handler returns the HTTP handler serving RPC calls and metrics.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", s.metrics.handler())
	mux.HandleFunc("/", s.corsMiddleware(s.requestIDMiddleware(s.rateLimitMiddleware(s.HandleRPC))))
	return mux
}

// corsMiddleware adds CORS headers for configured origins and answers preflight requests
func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.checkOrigin(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+RequestIDHeader)
		w.Header().Set("Access-Control-Expose-Headers", RequestIDHeader)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next(w, r)
	}
}

// checkOrigin matches origin against the allowed prefixes, so any port is accepted
func (s *Server) checkOrigin(origin string) bool {
	for _, allowed := range s.allowedOrigins {
		if strings.HasPrefix(origin, allowed) {
			return true
		}
	}
	return false
}

// requestIDMiddleware echoes the caller's request id or assigns a new one
func (s *Server) requestIDMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next(w, r.WithContext(logger.WithRequestID(r.Context(), id)))
	}
}

// rateLimitMiddleware rejects calls beyond the configured budget.
// Health checks are never limited.
func (s *Server) rateLimitMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if lim := s.limiter.Load(); lim != nil && !lim.Allow() {
				w.Header().Set("Retry-After", "1")
				kind := s.writeError(w, r, errors.Wrap(errors.ErrRateLimited, "request budget exhausted"))
				s.metrics.observe(unknownMethodLabel, kind, 0)
				return
			}
		}
		next(w, r)
	}
}
