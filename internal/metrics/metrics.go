// Shopfeed - Personalized Product Feed Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopfeed

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table"},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Rebuild Metrics
	RebuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "shopfeed_rebuild_duration_seconds",
			Help:    "Duration of snapshot rebuilds in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
		},
	)

	RebuildsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopfeed_rebuilds_total",
			Help: "Total number of rebuild attempts by outcome",
		},
		[]string{"status"}, // "success", "skipped", "failed", "busy"
	)

	RebuildLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "shopfeed_rebuild_last_success_timestamp",
			Help: "Unix timestamp of the last successful rebuild",
		},
	)

	SnapshotVersion = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "shopfeed_snapshot_version",
			Help: "Version of the snapshot currently served",
		},
	)

	SnapshotItems = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "shopfeed_snapshot_items",
			Help: "Number of items in the served similarity matrix",
		},
	)

	SnapshotClusters = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "shopfeed_snapshot_clusters",
			Help: "Effective cluster count of the served snapshot",
		},
	)

	// Serving Metrics
	FeedRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopfeed_feed_requests_total",
			Help: "Total number of composed feeds by mode",
		},
		[]string{"mode"}, // "separated", "blended"
	)

	FeedItems = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shopfeed_feed_items",
			Help:    "Number of items returned per list",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
		},
		[]string{"list"},
	)

	FeedbackTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopfeed_feedback_total",
			Help: "Total number of feedback signals by signal and outcome",
		},
		[]string{"signal", "outcome"}, // outcome: "applied", "noop", "limited"
	)

	EventsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopfeed_events_skipped_total",
			Help: "Total number of events skipped as malformed",
		},
		[]string{"reason"},
	)

	EventsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopfeed_events_ingested_total",
			Help: "Total number of live events appended",
		},
		[]string{"action"},
	)

	// Weight Store Metrics
	WeightStoreDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shopfeed_weight_store_duration_seconds",
			Help:    "Duration of weight profile store operations",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		},
		[]string{"operation"},
	)

	// Event Bus Metrics
	BusPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopfeed_bus_published_total",
			Help: "Total number of messages published to the event bus",
		},
		[]string{"topic", "result"},
	)

	BusConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopfeed_bus_consumed_total",
			Help: "Total number of messages consumed from the event bus",
		},
		[]string{"topic", "result"}, // result: "ack", "nack", "dropped"
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Application Info
	// Catalog Cache Metrics
	CatalogCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_cache_lookups_total",
			Help: "Catalog cache lookups by result (hit, miss)",
		},
		[]string{"kind", "result"},
	)

	CatalogCacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_cache_entries",
			Help: "Products currently held in the catalog cache",
		},
	)

	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version information",
		},
		[]string{"version", "go_version"},
	)
)

// RecordDBQuery records a database query metric.
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordRateLimitHit counts a request rejected by the rate limiter.
func RecordRateLimitHit(endpoint string) {
	APIRateLimitHits.WithLabelValues(endpoint).Inc()
}

// RecordRebuild records the outcome of a rebuild attempt.
func RecordRebuild(status string, duration time.Duration) {
	RebuildsTotal.WithLabelValues(status).Inc()
	if status == "success" {
		RebuildDuration.Observe(duration.Seconds())
		RebuildLastSuccess.Set(float64(time.Now().Unix()))
	}
}

// SetSnapshot publishes the shape of the snapshot now being served.
func SetSnapshot(version uint64, items, clusters int) {
	SnapshotVersion.Set(float64(version))
	SnapshotItems.Set(float64(items))
	SnapshotClusters.Set(float64(clusters))
}

// RecordFeed records a composed feed and the size of each of its lists.
func RecordFeed(mode string, listSizes map[string]int) {
	FeedRequests.WithLabelValues(mode).Inc()
	for list, n := range listSizes {
		FeedItems.WithLabelValues(list).Observe(float64(n))
	}
}

// RecordFeedback records a feedback signal.
func RecordFeedback(signal, outcome string) {
	FeedbackTotal.WithLabelValues(signal, outcome).Inc()
}

// RecordSkippedEvents adds n malformed events under reason.
func RecordSkippedEvents(reason string, n int) {
	if n > 0 {
		EventsSkipped.WithLabelValues(reason).Add(float64(n))
	}
}

// RecordEventIngested counts an appended live event.
func RecordEventIngested(action string) {
	EventsIngested.WithLabelValues(action).Inc()
}

// RecordWeightStoreOp records the latency of a weight store operation.
func RecordWeightStoreOp(operation string, start time.Time) {
	WeightStoreDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// RecordBusPublish records a publish attempt.
func RecordBusPublish(topic string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	BusPublished.WithLabelValues(topic, result).Inc()
}

// RecordBusConsume records a consumed message outcome.
func RecordBusConsume(topic, result string) {
	BusConsumed.WithLabelValues(topic, result).Inc()
}

// RecordBreakerTransition records a circuit breaker state change.
// States are gobreaker's String() values.
func RecordBreakerTransition(name, from, to string) {
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
	CircuitBreakerState.WithLabelValues(name).Set(breakerStateValue(to))
}

func breakerStateValue(state string) float64 {
	switch state {
	case "half-open":
		return 1
	case "open":
		return 2
	default:
		return 0
	}
}

// RecordCatalogCache counts hit and miss lookups of one kind (product, all).
func RecordCatalogCache(kind string, hits, misses int) {
	if hits > 0 {
		CatalogCacheLookups.WithLabelValues(kind, "hit").Add(float64(hits))
	}
	if misses > 0 {
		CatalogCacheLookups.WithLabelValues(kind, "miss").Add(float64(misses))
	}
}
