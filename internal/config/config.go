// Shopfeed - Personalized Product Feed Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopfeed

package config

import "time"

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Weights   WeightsConfig   `koanf:"weights"`
	Artifacts ArtifactsConfig `koanf:"artifacts"`
	Recommend RecommendConfig `koanf:"recommend"`
	Events    EventsConfig    `koanf:"events"`
	Logging   LoggingConfig   `koanf:"logging"`
	Security  SecurityConfig  `koanf:"security"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Timeout         time.Duration `koanf:"timeout"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// Environment is "development" or "production".
	Environment string `koanf:"environment"`
}

// DatabaseConfig holds DuckDB settings for the catalog, users and events.
type DatabaseConfig struct {
	// Path is the DuckDB file; ":memory:" for an ephemeral database.
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`

	// Threads is the DuckDB worker count. 0 uses runtime.NumCPU().
	Threads int `koanf:"threads"`

	// QueryTimeout bounds every single fetch made on behalf of a request.
	QueryTimeout time.Duration `koanf:"query_timeout"`

	// SeedOnStartup populates an empty database with demo data.
	SeedOnStartup bool  `koanf:"seed_on_startup"`
	SeedValue     int64 `koanf:"seed_value"`

	// CatalogCacheSize and CatalogCacheTTL bound the in-memory product cache.
	CatalogCacheSize int           `koanf:"catalog_cache_size"`
	CatalogCacheTTL  time.Duration `koanf:"catalog_cache_ttl"`
}

// WeightsConfig holds the BadgerDB settings for per-user weight profiles.
type WeightsConfig struct {
	Path       string `koanf:"path"`
	InMemory   bool   `koanf:"in_memory"`
	SyncWrites bool   `koanf:"sync_writes"`
}

// ArtifactsConfig holds settings for persisted model snapshots.
type ArtifactsConfig struct {
	Path string `koanf:"path"`

	// KeepVersions is how many snapshot files are retained on disk.
	KeepVersions int `koanf:"keep_versions"`
}

// RecommendConfig holds recommendation engine settings.
type RecommendConfig struct {
	// RebuildSchedule is a cron expression (robfig/cron syntax, descriptors allowed).
	RebuildSchedule  string        `koanf:"rebuild_schedule"`
	RebuildOnStartup bool          `koanf:"rebuild_on_startup"`
	RebuildTimeout   time.Duration `koanf:"rebuild_timeout"`

	// ClusterCount is K for the user cohort clustering.
	ClusterCount  int   `koanf:"cluster_count"`
	ClusterSeed   int64 `koanf:"cluster_seed"`
	MaxIterations int   `koanf:"max_iterations"`

	// CollaborativeStrategy is item_similarity or cluster_popularity.
	CollaborativeStrategy string `koanf:"collaborative_strategy"`
	SimilarItems          int    `koanf:"similar_items"`

	TopCategories int `koanf:"top_categories"`

	// ListSize is N for every composed list.
	ListSize int `koanf:"list_size"`

	// FeedMode selects what /api/feed composes: separated or blended.
	FeedMode string `koanf:"feed_mode"`

	LearningRate float64 `koanf:"learning_rate"`
	MaxSubWeight float64 `koanf:"max_sub_weight"`

	TrendingWindow  time.Duration `koanf:"trending_window"`
	TrendingDecay   float64       `koanf:"trending_decay"`
	TrendingLimit   int           `koanf:"trending_limit"`
	TrendingActions []string      `koanf:"trending_actions"`

	// LiveWindow bounds how far back a user's live events are read.
	LiveWindow time.Duration `koanf:"live_window"`

	InteractionStrengths map[string]float64 `koanf:"interaction_strengths"`
	ActionWeights        map[string]float64 `koanf:"action_weights"`

	// FeedbackPerMinute limits feedback calls per user. 0 disables the limit.
	FeedbackPerMinute float64 `koanf:"feedback_per_minute"`
	FeedbackBurst     int     `koanf:"feedback_burst"`
}

// EventsConfig holds the live event bus settings.
type EventsConfig struct {
	// Transport is memory (in-process gochannel) or nats.
	Transport        string        `koanf:"transport"`
	NATSURL          string        `koanf:"nats_url"`
	Topic            string        `koanf:"topic"`
	QueueGroup       string        `koanf:"queue_group"`
	DurableName      string        `koanf:"durable_name"`
	SubscribersCount int           `koanf:"subscribers_count"`
	AckWaitTimeout   time.Duration `koanf:"ack_wait_timeout"`
	CloseTimeout     time.Duration `koanf:"close_timeout"`

	BreakerFailureThreshold uint32        `koanf:"breaker_failure_threshold"`
	BreakerTimeout          time.Duration `koanf:"breaker_timeout"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	// Format is json or console. Unset means json in production and
	// console otherwise.
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// SecurityConfig holds HTTP hardening settings.
type SecurityConfig struct {
	// CORSOrigins unset means any origin in development and none in
	// production.
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// Addr returns host:port for the HTTP listener.
func (s *ServerConfig) Addr() string {
	return joinHostPort(s.Host, s.Port)
}

// IsProduction reports whether the server runs in production mode.
func (s *ServerConfig) IsProduction() bool {
	return s.Environment == "production"
}

// applyEnvironmentDefaults fills the settings left unset whose default
// depends on the environment. Production logs JSON and allows no
// cross-origin callers; development logs to the console and allows any
// origin.
func (c *Config) applyEnvironmentDefaults() {
	prod := c.Server.IsProduction()
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
		if prod {
			c.Logging.Format = "json"
		}
	}
	if len(c.Security.CORSOrigins) == 0 && !prod {
		c.Security.CORSOrigins = []string{"*"}
	}
}
