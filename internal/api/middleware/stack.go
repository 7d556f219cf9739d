// SPDX-License-Identifier: MIT

// Package middleware holds the canonical HTTP ingress middleware stack.
package middleware

import (
	"github.com/go-chi/chi/v5"

	"github.com/opencivic/crimetrend/internal/log"
)

// StackConfig configures the ingress middleware stack.
type StackConfig struct {
	EnableCORS     bool
	AllowedOrigins []string

	EnableSecurityHeaders bool

	EnableMetrics bool
	EnableLogging bool

	EnableRateLimit bool
	RateLimitPerMin int
}

// NewRouter constructs a chi router with the canonical stack applied.
func NewRouter(cfg StackConfig) *chi.Mux {
	r := chi.NewRouter()
	ApplyStack(r, cfg)
	return r
}

// ApplyStack applies the stack in its fixed order: recovery outermost, then
// correlation, browser concerns, observability, rate limiting innermost.
func ApplyStack(r chi.Router, cfg StackConfig) {
	r.Use(Recoverer)
	r.Use(RequestID)
	if cfg.EnableCORS {
		r.Use(CORS(cfg.AllowedOrigins))
	}
	if cfg.EnableSecurityHeaders {
		r.Use(SecurityHeaders())
	}
	if cfg.EnableMetrics {
		r.Use(Metrics())
	}
	if cfg.EnableLogging {
		r.Use(log.Middleware())
	}
	if cfg.EnableRateLimit {
		r.Use(APIRateLimit(cfg.RateLimitPerMin))
	}
}
