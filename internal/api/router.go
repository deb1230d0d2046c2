package api

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
)

// healthCheckTimeout bounds each component probe in /health.
const healthCheckTimeout = 2 * time.Second

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
		r.Get("/metrics", s.handleMetrics)

		// Engine output
		r.Get("/intent", s.handleGetIntent)
		r.Get("/state", s.handleGetState)

		r.Get("/vibes", s.handleListVibes)
		r.Get("/effects", s.handleListEffects)

		// Show control
		r.Group(func(r chi.Router) {
			r.Use(s.requireOperator)

			r.Put("/vibe", s.handleSetVibe)

			r.Post("/effects", s.handleTriggerEffect)
			r.Delete("/effects", s.handleAbortAllEffects)
			r.Delete("/effects/{id}", s.handleAbortEffect)
			r.Post("/strike", s.handleStrike)

			r.Put("/consciousness", s.handleSetConsciousness)
			r.Post("/stabilizers/reset", s.handleResetStabilizers)
		})

		r.Get("/journal", s.handleListJournal)
		r.Get("/journal/sessions/{id}", s.handleGetSession)

		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// healthResponse is the body of GET /health.
type healthResponse struct {
	Status     string            `json:"status"`
	Version    string            `json:"version"`
	Vibe       string            `json:"vibe"`
	Components map[string]string `json:"components,omitempty"`
}

// handleHealth reports overall health and the state of each wired component.
// Any failing component turns the response into 503 "degraded".
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:  "ok",
		Version: s.version,
		Vibe:    string(s.engine.ActiveVibe()),
	}

	if len(s.checks) > 0 {
		resp.Components = make(map[string]string, len(s.checks))
		names := make([]string, 0, len(s.checks))
		for name := range s.checks {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
			err := s.checks[name].HealthCheck(ctx)
			cancel()
			if err != nil {
				resp.Status = "degraded"
				resp.Components[name] = err.Error()
				continue
			}
			resp.Components[name] = "ok"
		}
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}
