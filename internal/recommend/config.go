// Shopfeed - Personalized Product Feed Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopfeed

package recommend

import (
	"fmt"
	"time"

	"github.com/tomtom215/shopfeed/internal/config"
	"github.com/tomtom215/shopfeed/internal/models"
	"github.com/tomtom215/shopfeed/internal/recommend/algorithms"
	"github.com/tomtom215/shopfeed/internal/recommend/feed"
	"github.com/tomtom215/shopfeed/internal/recommend/weights"
)

// Config contains all configuration for the recommendation engine.
type Config struct {
	// Clustering
	ClusterCount  int
	ClusterSeed   int64
	MaxIterations int

	// Collaborative scoring
	CollaborativeStrategy string
	SimilarItems          int

	// Personal scoring
	TopCategories int
	ActionWeights map[models.Action]float64

	// InteractionStrengths fill the user x item matrix.
	InteractionStrengths map[models.Action]float64

	// Composition
	ListSize int
	FeedMode string

	// Weight adaptation
	Learning          weights.Params
	FeedbackPerMinute float64
	FeedbackBurst     int

	// Trending
	TrendingWindow  time.Duration
	TrendingDecay   float64
	TrendingLimit   int
	TrendingActions []models.Action

	// LiveWindow bounds how far back a user's live events are read.
	LiveWindow time.Duration

	// RebuildTimeout bounds a whole rebuild; QueryTimeout bounds each
	// fetch made while serving a request.
	RebuildTimeout time.Duration
	QueryTimeout   time.Duration

	// Breaker settings for the historical events fetch.
	BreakerFailureThreshold uint32
	BreakerTimeout          time.Duration
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		ClusterCount:          8,
		ClusterSeed:           42,
		MaxIterations:         300,
		CollaborativeStrategy: algorithms.StrategyItemSimilarity,
		SimilarItems:          10,
		TopCategories:         3,
		ActionWeights:         cloneActionMap(algorithms.DefaultActionWeights),
		InteractionStrengths:  cloneActionMap(algorithms.DefaultInteractionStrengths),
		ListSize:              feed.DefaultListSize,
		FeedMode:              feed.ModeSeparated,
		Learning:              weights.DefaultParams(),
		FeedbackPerMinute:     30,
		FeedbackBurst:         10,
		TrendingWindow:        48 * time.Hour,
		TrendingDecay:         0.1,
		TrendingLimit:         20,
		TrendingActions:       []models.Action{models.ActionOrder},
		LiveWindow:            30 * 24 * time.Hour,
		RebuildTimeout:        10 * time.Minute,
		QueryTimeout:          5 * time.Second,

		BreakerFailureThreshold: 3,
		BreakerTimeout:          30 * time.Second,
	}
}

// FromAppConfig converts the application configuration. Action tables from
// the file are merged over the defaults, so a partial table only overrides
// the actions it names.
func FromAppConfig(rc *config.RecommendConfig, db *config.DatabaseConfig, ev *config.EventsConfig) (Config, error) {
	cfg := DefaultConfig()

	cfg.ClusterCount = rc.ClusterCount
	cfg.ClusterSeed = rc.ClusterSeed
	if rc.MaxIterations > 0 {
		cfg.MaxIterations = rc.MaxIterations
	}
	cfg.CollaborativeStrategy = rc.CollaborativeStrategy
	if rc.SimilarItems > 0 {
		cfg.SimilarItems = rc.SimilarItems
	}
	if rc.TopCategories > 0 {
		cfg.TopCategories = rc.TopCategories
	}
	if rc.ListSize > 0 {
		cfg.ListSize = rc.ListSize
	}
	if rc.FeedMode != "" {
		cfg.FeedMode = rc.FeedMode
	}
	cfg.Learning = weights.Params{LearningRate: rc.LearningRate, MaxSubWeight: rc.MaxSubWeight}
	cfg.FeedbackPerMinute = rc.FeedbackPerMinute
	cfg.FeedbackBurst = rc.FeedbackBurst
	if rc.TrendingWindow > 0 {
		cfg.TrendingWindow = rc.TrendingWindow
	}
	cfg.TrendingDecay = rc.TrendingDecay
	cfg.TrendingLimit = rc.TrendingLimit
	if rc.LiveWindow > 0 {
		cfg.LiveWindow = rc.LiveWindow
	}
	if rc.RebuildTimeout > 0 {
		cfg.RebuildTimeout = rc.RebuildTimeout
	}
	if db != nil && db.QueryTimeout > 0 {
		cfg.QueryTimeout = db.QueryTimeout
	}
	if ev != nil {
		if ev.BreakerFailureThreshold > 0 {
			cfg.BreakerFailureThreshold = ev.BreakerFailureThreshold
		}
		if ev.BreakerTimeout > 0 {
			cfg.BreakerTimeout = ev.BreakerTimeout
		}
	}

	if len(rc.TrendingActions) > 0 {
		actions := make([]models.Action, 0, len(rc.TrendingActions))
		for _, raw := range rc.TrendingActions {
			a, err := models.ParseAction(raw)
			if err != nil {
				return Config{}, fmt.Errorf("trending_actions: %w", err)
			}
			actions = append(actions, a)
		}
		cfg.TrendingActions = actions
	}

	var err error
	if cfg.ActionWeights, err = mergeActionMap(cfg.ActionWeights, rc.ActionWeights); err != nil {
		return Config{}, fmt.Errorf("action_weights: %w", err)
	}
	if cfg.InteractionStrengths, err = mergeActionMap(cfg.InteractionStrengths, rc.InteractionStrengths); err != nil {
		return Config{}, fmt.Errorf("interaction_strengths: %w", err)
	}

	return cfg, cfg.Validate()
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.ClusterCount < 1 {
		return fmt.Errorf("cluster_count must be at least 1, got %d", c.ClusterCount)
	}
	if _, err := algorithms.NewCollaborativeScorer(c.CollaborativeStrategy, c.SimilarItems); err != nil {
		return err
	}
	if _, err := feed.ParseMode(c.FeedMode); err != nil {
		return err
	}
	if c.ListSize < 1 {
		return fmt.Errorf("list_size must be at least 1, got %d", c.ListSize)
	}
	if c.Learning.LearningRate < 0 || c.Learning.LearningRate > 1 {
		return fmt.Errorf("learning_rate must be in [0, 1], got %v", c.Learning.LearningRate)
	}
	if c.TrendingDecay < 0 {
		return fmt.Errorf("trending_decay must be non-negative, got %v", c.TrendingDecay)
	}
	if c.FeedbackPerMinute < 0 {
		return fmt.Errorf("feedback_per_minute must be non-negative, got %v", c.FeedbackPerMinute)
	}
	return nil
}

func cloneActionMap(m map[models.Action]float64) map[models.Action]float64 {
	out := make(map[models.Action]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func mergeActionMap(base map[models.Action]float64, overrides map[string]float64) (map[models.Action]float64, error) {
	out := cloneActionMap(base)
	for raw, v := range overrides {
		a, err := models.ParseAction(raw)
		if err != nil {
			return nil, err
		}
		out[a] = v
	}
	return out, nil
}
