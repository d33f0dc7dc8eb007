// Shopfeed - Personalized Product Feed Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopfeed

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/shopfeed/internal/config"
	"github.com/tomtom215/shopfeed/internal/middleware"
)

// adminRateLimit bounds manual rebuild triggers per client.
const adminRateLimit = 6

// NewRouter builds the chi router. Health and metrics are never rate
// limited so monitoring keeps working under load.
func NewRouter(h *Handler, sec *config.SecurityConfig) http.Handler {
	if sec == nil {
		sec = &config.SecurityConfig{}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	// cors treats an empty origin list as "*", so no origins means no handler.
	if len(sec.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: sec.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", middleware.RequestIDHeader},
			ExposedHeaders: []string{middleware.RequestIDHeader},
			MaxAge:         86400,
		}))
	}
	r.Use(middleware.AccessLog)
	r.Use(middleware.PrometheusMetrics)

	r.Get("/health", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(apiRateLimit(sec))
		r.Use(middleware.Compression)

		r.Route("/api", func(r chi.Router) {
			r.Get("/feed", h.Feed)
			r.Get("/items", h.Items)
			r.Post("/event", h.Event)
			r.Post("/log", h.Log)

			r.With(middleware.RateLimit(adminRateLimit, time.Minute)).Post("/admin/rebuild", h.Rebuild)
		})

		r.Get("/recommendations/{user_id}", h.Recommendations)
		r.Post("/feedback", h.Feedback)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusNotFound, ErrCodeNotFound, "route not found", nil, nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusMethodNotAllowed, ErrCodeValidation, "method not allowed", nil, nil)
	})
	return r
}

func apiRateLimit(sec *config.SecurityConfig) func(http.Handler) http.Handler {
	if sec.RateLimitDisabled {
		return middleware.RateLimit(0, 0)
	}
	return middleware.RateLimit(sec.RateLimitReqs, sec.RateLimitWindow)
}
