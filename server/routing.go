package server

import (
	"net/http"
)

// setupHTTPRoutes configures all HTTP handlers
func (s *Server) setupHTTPRoutes() {
	s.mux.HandleFunc("/api/jobs", s.corsMiddleware(s.HandleRun))                     // Run a batch (POST)
	s.mux.HandleFunc("/api/jobs/{id}", s.corsMiddleware(s.HandleStatus))             // Derived status (GET)
	s.mux.HandleFunc("/api/jobs/{id}/results", s.corsMiddleware(s.HandleResults))    // Inline interval resource (GET)
	s.mux.HandleFunc("/api/jobs/{id}/watch", s.HandleWatch)                          // Status stream (WebSocket)
	s.mux.HandleFunc("/api/service", s.corsMiddleware(s.HandleService))              // Metadata (GET), close (DELETE)
	s.mux.HandleFunc("/api/service/parameters", s.corsMiddleware(s.HandleParameters)) // Parameter descriptions (GET)
	s.mux.HandleFunc("/health", s.corsMiddleware(s.HandleHealth))
	s.mux.Handle("/metrics", s.opts.Metrics.Handler())
}

// corsMiddleware adds CORS headers for allowed origins and refuses requests
// while the server drains
func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.checkOrigin(r) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		// Handle preflight requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		if s.getState() != ServerStateRunning {
			writeError(w, http.StatusServiceUnavailable, "Server is shutting down")
			return
		}

		next(w, r)
	}
}
