// Shopfeed - Personalized Product Feed Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopfeed

/*
Package metrics provides Prometheus metrics collection and export.

All collectors are registered with the default registry through promauto
and exposed at /metrics:

	curl http://localhost:8080/metrics

# Available Metrics

HTTP Metrics:
  - api_requests_total: Total API requests (counter)
    Labels: method, endpoint, status_code
  - api_request_duration_seconds: Request latency (histogram)
  - api_active_requests: In-flight requests (gauge)
  - api_rate_limit_hits_total: Rate limit rejections (counter)

Database Metrics:
  - duckdb_query_duration_seconds, duckdb_query_errors_total

Recommendation Metrics:
  - shopfeed_rebuild_duration_seconds, shopfeed_rebuilds_total{status}
  - shopfeed_snapshot_version, shopfeed_snapshot_items, shopfeed_snapshot_clusters
  - shopfeed_feed_requests_total{mode}, shopfeed_feed_items{list}
  - shopfeed_feedback_total{signal,outcome}
  - shopfeed_events_skipped_total{reason}, shopfeed_events_ingested_total{action}
  - shopfeed_weight_store_duration_seconds{operation}

Event Bus Metrics:
  - shopfeed_bus_published_total, shopfeed_bus_consumed_total

Circuit Breaker Metrics:
  - circuit_breaker_state (0=closed, 1=half-open, 2=open)
  - circuit_breaker_state_transitions_total

# Usage

	start := time.Now()
	rows, err := db.QueryContext(ctx, query)
	metrics.RecordDBQuery("SELECT", "events", time.Since(start), err)

Recorders are safe for concurrent use.
*/
package metrics
