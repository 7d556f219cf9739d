// SPDX-License-Identifier: MIT
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/opencivic/crimetrend/internal/api/middleware"
)

// Router builds the chi router with the canonical middleware stack.
func (s *Server) Router() http.Handler {
	r := middleware.NewRouter(middleware.StackConfig{
		EnableCORS:            true,
		AllowedOrigins:        s.cfg.AllowedOrigins,
		EnableSecurityHeaders: true,
		EnableMetrics:         true,
		EnableLogging:         true,
		EnableRateLimit:       true,
	})

	r.Get("/healthz", s.health.ServeHealth)
	r.Get("/readyz", s.health.ServeReady)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/cities", s.handleCities)
		r.Get("/categories", s.handleCategories)
		r.Get("/series", s.handleSeries)
		r.Get("/heatmap", s.handleHeatmap)
		r.Get("/summary", s.handleSummary)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RefreshRateLimit())
			r.Use(s.requireToken)
			r.Post("/refresh", s.handleRefresh)
		})
	})

	r.Get("/files/{name}", s.handleCombinedFile)

	return r
}
