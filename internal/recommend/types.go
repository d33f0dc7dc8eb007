// Shopfeed - Personalized Product Feed Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopfeed

package recommend

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/shopfeed/internal/models"
	"github.com/tomtom215/shopfeed/internal/recommend/algorithms"
	"github.com/tomtom215/shopfeed/internal/recommend/feed"
	"github.com/tomtom215/shopfeed/internal/recommend/weights"
)

var (
	// ErrInvalidUserID is returned for an empty or malformed user id.
	ErrInvalidUserID = weights.ErrInvalidUserID

	// ErrUnknownUser is returned when a user is not in the directory.
	ErrUnknownUser = errors.New("unknown user")

	// ErrUnknownProduct is returned when an event names a product missing
	// from the catalog.
	ErrUnknownProduct = errors.New("unknown product")

	// ErrMalformedEvent is returned for events missing a required field.
	ErrMalformedEvent = models.ErrMalformedEvent

	// ErrRebuildInProgress is returned when a rebuild is already running.
	ErrRebuildInProgress = errors.New("rebuild already in progress")

	// ErrNoHistoricalEvents is returned when a rebuild finds nothing to
	// build from. The current snapshot is kept and no artifact is written.
	ErrNoHistoricalEvents = errors.New("no historical events")

	// ErrFeedbackRateLimited is returned when a user sends feedback faster
	// than the configured rate.
	ErrFeedbackRateLimited = errors.New("feedback rate limited")
)

// EventSource supplies historical and live events.
type EventSource interface {
	// HistoricalEvents returns every historical event used for rebuilds.
	HistoricalEvents(ctx context.Context) ([]models.Event, error)

	// UserEvents returns the user's live events at or after since.
	UserEvents(ctx context.Context, userID string, since time.Time) ([]models.Event, error)

	// EventsByAction returns live events of the given actions at or after since.
	EventsByAction(ctx context.Context, actions []models.Action, since time.Time) ([]models.Event, error)
}

// Catalog resolves products.
type Catalog interface {
	// Products returns the known products among ids. Unknown ids are absent.
	Products(ctx context.Context, ids []int64) (map[int64]models.Product, error)

	ProductsByCategory(ctx context.Context, categories []string) ([]models.Product, error)
	AllProducts(ctx context.Context) ([]models.Product, error)
}

// UserDirectory reads and writes per-user records.
type UserDirectory interface {
	UserExists(ctx context.Context, userID string) (bool, error)

	// SetClusters overwrites every user's cohort id.
	SetClusters(ctx context.Context, assignments map[string]int) error
}

// ArtifactStore persists built models.
type ArtifactStore interface {
	Save(ctx context.Context, model *algorithms.Model, buildDuration time.Duration) error

	// LoadLatest wraps storage.ErrNotFound when nothing was saved.
	LoadLatest(ctx context.Context) (*algorithms.Model, error)
}

// WeightStore reads and adapts per-user weight profiles.
type WeightStore interface {
	Get(ctx context.Context, userID string) (weights.Profile, error)
	Update(ctx context.Context, userID string, signal weights.Signal) (weights.Profile, bool, error)
}

// Deps are the collaborators an Engine reads from and writes to.
type Deps struct {
	Events  EventSource
	Catalog Catalog
	Users   UserDirectory
	Weights WeightStore

	// Artifacts is optional; without it rebuilds are not persisted.
	Artifacts ArtifactStore
}

// Recommendations is the blended top-N for a user.
type Recommendations struct {
	UserID          string          `json:"user_id"`
	Items           []feed.Scored   `json:"items"`
	Weights         weights.Profile `json:"weights"`
	SnapshotVersion uint64          `json:"snapshot_version"`
}

// Feed is the composed feed for a user in the configured mode.
type Feed struct {
	UserID string `json:"user_id"`
	Mode   string `json:"mode"`

	// Lists is set in separated mode.
	Lists feed.Lists `json:"lists"`

	// Blended is set in blended mode.
	Blended []feed.Scored `json:"blended,omitempty"`

	// Products resolves every item id in the feed.
	Products map[int64]models.Product `json:"-"`

	TrendingFromHistory bool   `json:"trending_from_history"`
	SnapshotVersion     uint64 `json:"snapshot_version"`
}

// RebuildResult describes a completed rebuild.
type RebuildResult struct {
	Version    uint64        `json:"version"`
	Events     int           `json:"events"`
	Users      int           `json:"users"`
	Items      int           `json:"items"`
	Clusters   int           `json:"clusters"`
	Skipped    int           `json:"skipped"`
	Persisted  bool          `json:"persisted"`
	Duration   time.Duration `json:"-"`
	DurationMS int64         `json:"duration_ms"`
}

// Status reports the engine's serving state.
type Status struct {
	SnapshotVersion uint64    `json:"snapshot_version"`
	BuiltAt         time.Time `json:"built_at,omitempty"`
	Users           int       `json:"users"`
	Items           int       `json:"items"`
	Clusters        int       `json:"clusters"`
	Rebuilding      bool      `json:"rebuilding"`
	LastRebuildAt   time.Time `json:"last_rebuild_at,omitempty"`
	LastError       string    `json:"last_error,omitempty"`
}
