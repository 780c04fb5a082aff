package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/auth/login", s.handleLogin)
		r.Get("/metrics", s.handleMetrics)

		// WebSocket auth is via single-use ticket, validated in the handler
		r.Get("/ws", s.handleWebSocket)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Post("/auth/ws-ticket", s.handleWSTicket)

			r.Route("/config/flows", func(r chi.Router) {
				r.Get("/", s.handleListFlows)
				r.Post("/", s.handleStartFlow)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetFlow)
					r.Post("/", s.handleConfigureFlow)
					r.Delete("/", s.handleAbortFlow)
				})
			})

			r.Route("/config/entries", func(r chi.Router) {
				r.Get("/", s.handleListEntries)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetEntry)
					r.Delete("/", s.handleDeleteEntry)
					r.Post("/options", s.handleStartOptionsFlow)
					r.Post("/reload", s.handleReloadEntry)
				})
			})

			r.Route("/services", func(r chi.Router) {
				r.Get("/", s.handleListServices)
				r.Post("/{domain}/{service}", s.handleCallService)
			})

			r.Get("/audit", s.handleListAudit)
		})
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
