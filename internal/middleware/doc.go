// Shopfeed - Personalized Product Feed Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopfeed

// Package middleware provides the HTTP middleware stack of the API server.
//
// All middleware uses the func(http.Handler) http.Handler shape so it plugs
// straight into chi:
//
//   - RequestID: propagates or generates X-Request-ID and seeds the logging context
//   - AccessLog: one zerolog line per request, level by status class
//   - PrometheusMetrics: request count, latency and in-flight gauge per route pattern
//   - Compression: pooled gzip writers for clients that accept gzip
//   - RateLimit: per-IP limiting via httprate with a JSON 429 body
//
// Recommended order:
//
//	r.Use(middleware.RequestID)
//	r.Use(middleware.AccessLog)
//	r.Use(middleware.PrometheusMetrics)
//	r.Use(middleware.RateLimit(100, time.Minute))
//	r.Use(middleware.Compression)
package middleware
