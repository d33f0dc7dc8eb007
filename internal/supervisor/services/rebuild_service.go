// Shopfeed - Personalized Product Feed Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopfeed

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/tomtom215/shopfeed/internal/recommend"
)

// DefaultRebuildSchedule rebuilds once an hour.
const DefaultRebuildSchedule = "@hourly"

// RebuildEngine is the engine surface the scheduler drives.
type RebuildEngine interface {
	Rebuild(ctx context.Context) (*recommend.RebuildResult, error)
	LoadArtifacts(ctx context.Context) (bool, error)
}

// RebuildServiceConfig configures the rebuild scheduler.
type RebuildServiceConfig struct {
	// Schedule is a standard cron expression or descriptor (@hourly,
	// @every 30m). Empty means DefaultRebuildSchedule.
	Schedule string

	// LoadOnStartup restores the latest persisted snapshot before anything
	// else so requests are served from a model immediately.
	LoadOnStartup bool

	// RebuildOnStartup rebuilds once when the service starts.
	RebuildOnStartup bool
}

// RebuildService rebuilds the engine snapshot on a cron schedule.
type RebuildService struct {
	engine   RebuildEngine
	config   RebuildServiceConfig
	schedule cron.Schedule
	logger   zerolog.Logger
	now      func() time.Time

	// loaded guards the startup work so supervisor restarts don't repeat it.
	loaded bool
}

// NewRebuildService parses the schedule and creates the service.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewRebuildService(engine RebuildEngine, cfg RebuildServiceConfig, logger zerolog.Logger) (*RebuildService, error) {
	if cfg.Schedule == "" {
		cfg.Schedule = DefaultRebuildSchedule
	}
	schedule, err := cron.ParseStandard(cfg.Schedule)
	if err != nil {
		return nil, fmt.Errorf("parse rebuild schedule %q: %w", cfg.Schedule, err)
	}
	return &RebuildService{
		engine:   engine,
		config:   cfg,
		schedule: schedule,
		logger:   logger.With().Str("service", "rebuild").Logger(),
		now:      time.Now,
	}, nil
}

// Serve implements suture.Service.
func (s *RebuildService) Serve(ctx context.Context) error {
	if !s.loaded {
		s.loaded = true
		s.startup(ctx)
	}

	for {
		now := s.now()
		next := s.schedule.Next(now)
		s.logger.Debug().Time("next_run", next).Msg("rebuild scheduled")

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			s.run(ctx, "scheduled")
		}
	}
}

func (s *RebuildService) startup(ctx context.Context) {
	s.logger.Info().
		Str("schedule", s.config.Schedule).
		Bool("load_on_startup", s.config.LoadOnStartup).
		Bool("rebuild_on_startup", s.config.RebuildOnStartup).
		Msg("rebuild service starting")

	if s.config.LoadOnStartup {
		loaded, err := s.engine.LoadArtifacts(ctx)
		switch {
		case err != nil:
			s.logger.Warn().Err(err).Msg("failed to load persisted snapshot")
		case !loaded:
			s.logger.Info().Msg("no persisted snapshot found")
		}
	}
	if s.config.RebuildOnStartup {
		s.run(ctx, "startup")
	}
}

// run performs one rebuild. Failures are logged; the engine keeps its
// previous snapshot.
func (s *RebuildService) run(ctx context.Context, trigger string) {
	res, err := s.engine.Rebuild(ctx)
	switch {
	case errors.Is(err, recommend.ErrNoHistoricalEvents):
		s.logger.Info().Str("trigger", trigger).Msg("no historical events, rebuild skipped")
	case errors.Is(err, recommend.ErrRebuildInProgress):
		s.logger.Info().Str("trigger", trigger).Msg("rebuild already running, skipped")
	case err != nil:
		s.logger.Error().Err(err).Str("trigger", trigger).Msg("rebuild failed, keeping previous snapshot")
	default:
		s.logger.Info().
			Str("trigger", trigger).
			Uint64("version", res.Version).
			Int("users", res.Users).
			Int("items", res.Items).
			Int64("duration_ms", res.DurationMS).
			Msg("rebuild complete")
	}
}

// String implements fmt.Stringer for supervisor logs.
func (s *RebuildService) String() string {
	return "rebuild-scheduler"
}
