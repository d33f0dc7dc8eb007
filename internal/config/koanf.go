// Shopfeed - Personalized Product Feed Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopfeed

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists config file locations in priority order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/shopfeed/config.yaml",
	"/etc/shopfeed/config.yml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

// envPrefix is accepted in front of every nested key, e.g. SHOPFEED_RECOMMEND__LIST_SIZE.
const envPrefix = "SHOPFEED_"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			Timeout:         30 * time.Second,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			Environment:     "development",
		},
		Database: DatabaseConfig{
			Path:          "/data/shopfeed.duckdb",
			MaxMemory:     "1GB",
			Threads:       0,
			QueryTimeout:  5 * time.Second,
			SeedOnStartup: false,
			SeedValue:     42,

			CatalogCacheSize: 10000,
			CatalogCacheTTL:  time.Minute,
		},
		Weights: WeightsConfig{
			Path:       "/data/weights",
			InMemory:   false,
			SyncWrites: true,
		},
		Artifacts: ArtifactsConfig{
			Path:         "/data/artifacts",
			KeepVersions: 3,
		},
		Recommend: RecommendConfig{
			RebuildSchedule:       "@hourly",
			RebuildOnStartup:      true,
			RebuildTimeout:        10 * time.Minute,
			ClusterCount:          8,
			ClusterSeed:           42,
			MaxIterations:         300,
			CollaborativeStrategy: "item_similarity",
			SimilarItems:          10,
			TopCategories:         3,
			ListSize:              10,
			FeedMode:              "separated",
			LearningRate:          0.05,
			MaxSubWeight:          2.0,
			TrendingWindow:        48 * time.Hour,
			TrendingDecay:         0.1,
			TrendingLimit:         20,
			TrendingActions:       []string{"order"},
			LiveWindow:            30 * 24 * time.Hour,
			InteractionStrengths: map[string]float64{
				"order": 2.0,
				"seen":  1.0,
			},
			ActionWeights: map[string]float64{
				"seen":    1.0,
				"reorder": 1.5,
				"order":   1.2,
				"cancel":  -2.0,
			},
			FeedbackPerMinute: 30,
			FeedbackBurst:     10,
		},
		Events: EventsConfig{
			Transport:               "memory",
			NATSURL:                 "nats://127.0.0.1:4222",
			Topic:                   "shopfeed.events.live",
			QueueGroup:              "shopfeed-ingest",
			DurableName:             "shopfeed-ingest",
			SubscribersCount:        2,
			AckWaitTimeout:          30 * time.Second,
			CloseTimeout:            10 * time.Second,
			BreakerFailureThreshold: 5,
			BreakerTimeout:          30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Caller: false,
		},
		Security: SecurityConfig{
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
		},
	}
}

// LoadWithKoanf loads configuration from, in increasing precedence:
//  1. built-in defaults
//  2. an optional YAML file (CONFIG_PATH or DefaultConfigPaths)
//  3. environment variables
func LoadWithKoanf() (*Config, error) {
	return load(findConfigFile())
}

// LoadFile is LoadWithKoanf with an explicit YAML path.
func LoadFile(path string) (*Config, error) {
	return load(path)
}

func load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	cfg.applyEnvironmentDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

var sliceConfigPaths = []string{
	"security.cors_origins",
	"recommend.trending_actions",
}

// processSliceFields splits comma-separated env values for slice fields.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) == 0 {
			continue
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// legacyEnv maps flat environment variable names to koanf paths.
var legacyEnv = map[string]string{
	"http_host":         "server.host",
	"http_port":         "server.port",
	"http_timeout":      "server.timeout",
	"environment":       "server.environment",
	"duckdb_path":       "database.path",
	"duckdb_max_memory": "database.max_memory",
	"duckdb_threads":    "database.threads",
	"seed_on_startup":   "database.seed_on_startup",
	"weights_path":      "weights.path",
	"weights_in_memory": "weights.in_memory",
	"artifacts_path":    "artifacts.path",

	"rebuild_schedule":       "recommend.rebuild_schedule",
	"rebuild_on_startup":     "recommend.rebuild_on_startup",
	"cluster_count":          "recommend.cluster_count",
	"cluster_seed":           "recommend.cluster_seed",
	"collaborative_strategy": "recommend.collaborative_strategy",
	"feed_mode":              "recommend.feed_mode",
	"list_size":              "recommend.list_size",
	"learning_rate":          "recommend.learning_rate",
	"max_sub_weight":         "recommend.max_sub_weight",
	"trending_window":        "recommend.trending_window",
	"trending_decay":         "recommend.trending_decay",
	"trending_actions":       "recommend.trending_actions",

	"events_transport": "events.transport",
	"nats_url":         "events.nats_url",
	"events_topic":     "events.topic",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	"cors_origins":        "security.cors_origins",
	"rate_limit_requests": "security.rate_limit_requests",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",
}

// envTransformFunc maps an environment variable name to a koanf path.
//
//   - HTTP_PORT -> server.port (legacy flat name)
//   - SHOPFEED_RECOMMEND__LIST_SIZE -> recommend.list_size
//
// Anything else is dropped so unrelated variables never leak into config.
func envTransformFunc(key string) string {
	lower := strings.ToLower(key)
	if mapped, ok := legacyEnv[lower]; ok {
		return mapped
	}
	if strings.HasPrefix(key, envPrefix) {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(key, envPrefix)), "__", ".")
	}
	return ""
}
