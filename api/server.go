/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for a frontend

ROUTE GROUPS:
  /api/attacks/*    Attack log
  /api/context/*    Day-keyed snapshots
  /api/report       Report export
  /api/stats        Quick-glance stats
  /api/scenarios/*  Demo scenarios

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Attack routes
		r.Route("/attacks", func(r chi.Router) {
			r.Get("/", h.ListAttacks)
			r.Post("/", h.LogAttack)
			r.Get("/{id}", h.GetAttack)
			r.Put("/{id}", h.UpdateAttack)
			r.Delete("/{id}", h.DeleteAttack)
		})

		// Context routes
		r.Route("/context", func(r chi.Router) {
			r.Get("/", h.ListContextDays)
			r.Get("/{day}", h.GetContext)
			r.Post("/{day}/refresh", h.RefreshContext)
		})

		// Reporting routes
		r.Get("/report", h.GetReport)
		r.Get("/stats", h.GetStats)

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Post("/load", h.LoadScenario)
		})
	})

	// Landing page for anyone poking the port directly.
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Migraine Context Engine</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>Migraine Context Engine API</h1>
<h2>API Endpoints</h2>
<ul>
<li><a href="/api/attacks">/api/attacks</a> - Attack log</li>
<li><a href="/api/context">/api/context</a> - Cached context days</li>
<li><a href="/api/report">/api/report</a> - Report export</li>
<li><a href="/api/stats">/api/stats</a> - Stats</li>
<li><a href="/api/scenarios">/api/scenarios</a> - Demo scenarios</li>
</ul>
</body>
</html>`))
	})

	return r
}
