// Shopfeed - Personalized Product Feed Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopfeed

package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/robfig/cron/v3"
)

// Validate checks that configuration values are usable.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validateRecommend(); err != nil {
		return err
	}
	if err := c.validateEvents(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive, got %v", c.Server.Timeout)
	}
	switch c.Server.Environment {
	case "development", "production":
	default:
		return fmt.Errorf("ENVIRONMENT must be development or production, got %q", c.Server.Environment)
	}
	return nil
}

func (c *Config) validateDatabase() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return fmt.Errorf("DUCKDB_PATH is required")
	}
	if c.Database.QueryTimeout <= 0 {
		return fmt.Errorf("database.query_timeout must be positive, got %v", c.Database.QueryTimeout)
	}
	if c.Database.CatalogCacheSize < 0 || c.Database.CatalogCacheTTL < 0 {
		return fmt.Errorf("database.catalog_cache_size and catalog_cache_ttl must be non-negative")
	}
	if !c.Weights.InMemory && strings.TrimSpace(c.Weights.Path) == "" {
		return fmt.Errorf("WEIGHTS_PATH is required unless weights.in_memory is set")
	}
	return nil
}

func (c *Config) validateRecommend() error {
	r := &c.Recommend

	if _, err := cron.ParseStandard(r.RebuildSchedule); err != nil {
		return fmt.Errorf("recommend.rebuild_schedule %q is invalid: %w", r.RebuildSchedule, err)
	}
	if r.ClusterCount < 1 {
		return fmt.Errorf("recommend.cluster_count must be at least 1, got %d", r.ClusterCount)
	}
	switch r.CollaborativeStrategy {
	case "item_similarity", "cluster_popularity":
	default:
		return fmt.Errorf("recommend.collaborative_strategy must be item_similarity or cluster_popularity, got %q", r.CollaborativeStrategy)
	}
	switch r.FeedMode {
	case "separated", "blended":
	default:
		return fmt.Errorf("recommend.feed_mode must be separated or blended, got %q", r.FeedMode)
	}
	if r.ListSize < 1 {
		return fmt.Errorf("recommend.list_size must be at least 1, got %d", r.ListSize)
	}
	if r.LearningRate <= 0 || r.LearningRate > 1 {
		return fmt.Errorf("recommend.learning_rate must be in (0, 1], got %v", r.LearningRate)
	}
	if r.MaxSubWeight <= 0 {
		return fmt.Errorf("recommend.max_sub_weight must be positive, got %v", r.MaxSubWeight)
	}
	if r.TrendingWindow <= 0 {
		return fmt.Errorf("recommend.trending_window must be positive, got %v", r.TrendingWindow)
	}
	if r.TrendingDecay < 0 {
		return fmt.Errorf("recommend.trending_decay must be non-negative, got %v", r.TrendingDecay)
	}
	if r.FeedbackPerMinute < 0 {
		return fmt.Errorf("recommend.feedback_per_minute must be non-negative, got %v", r.FeedbackPerMinute)
	}
	return nil
}

func (c *Config) validateEvents() error {
	switch c.Events.Transport {
	case "memory":
	case "nats":
		if c.Events.NATSURL == "" {
			return fmt.Errorf("NATS_URL is required when EVENTS_TRANSPORT=nats")
		}
	default:
		return fmt.Errorf("EVENTS_TRANSPORT must be memory or nats, got %q", c.Events.Transport)
	}
	if c.Events.Topic == "" {
		return fmt.Errorf("events.topic is required")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic", "disabled":
	default:
		return fmt.Errorf("LOG_LEVEL %q is not a valid level", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

func joinHostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
