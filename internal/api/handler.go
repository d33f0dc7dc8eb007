// Shopfeed - Personalized Product Feed Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopfeed

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/shopfeed/internal/logging"
	"github.com/tomtom215/shopfeed/internal/models"
	"github.com/tomtom215/shopfeed/internal/recommend"
	"github.com/tomtom215/shopfeed/internal/recommend/weights"
)

// Recommender is the engine surface the handlers use.
type Recommender interface {
	Feed(ctx context.Context, userID string) (*recommend.Feed, error)
	Recommendations(ctx context.Context, userID string, n int) (*recommend.Recommendations, error)
	Feedback(ctx context.Context, userID, signal string) (weights.Profile, bool, error)
	Rebuild(ctx context.Context) (*recommend.RebuildResult, error)
	ValidateEvent(ctx context.Context, ev *models.Event) error
	Status() recommend.Status
}

// Catalog lists and resolves products.
type Catalog interface {
	AllProducts(ctx context.Context) ([]models.Product, error)
	Products(ctx context.Context, ids []int64) (map[int64]models.Product, error)
}

// EventIngestor accepts validated live events.
type EventIngestor interface {
	Ingest(ctx context.Context, ev *models.Event) (queued bool, err error)
}

// Pinger reports database reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler serves the HTTP endpoints.
type Handler struct {
	engine    Recommender
	catalog   Catalog
	ingest    EventIngestor
	db        Pinger
	logger    zerolog.Logger
	startTime time.Time
	now       func() time.Time
}

// NewHandler wires the handlers. db may be nil, in which case /health
// reports the database as unchecked.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewHandler(engine Recommender, catalog Catalog, ingest EventIngestor, db Pinger, logger zerolog.Logger) *Handler {
	return &Handler{
		engine:    engine,
		catalog:   catalog,
		ingest:    ingest,
		db:        db,
		logger:    logger.With().Str("component", "api").Logger(),
		startTime: time.Now(),
		now:       time.Now,
	}
}

// withUser tags the request context with the shopper id, so log lines
// written for the request can be filtered per user.
func withUser(r *http.Request, userID string) *http.Request {
	return r.WithContext(logging.ContextWithUserID(r.Context(), userID))
}
