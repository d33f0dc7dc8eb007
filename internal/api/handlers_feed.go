// Shopfeed - Personalized Product Feed Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopfeed

package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/shopfeed/internal/models"
	"github.com/tomtom215/shopfeed/internal/recommend/feed"
	"github.com/tomtom215/shopfeed/internal/recommend/weights"
)

// maxRecommendations caps ?n= on /recommendations.
const maxRecommendations = 100

// FeedEntry is one product in a feed list.
type FeedEntry struct {
	models.Product
	Score *float64 `json:"score,omitempty"`
}

// FeedResponse is the payload of GET /api/feed in separated mode.
type FeedResponse struct {
	UserID              string      `json:"user_id"`
	Mode                string      `json:"mode"`
	ForYou              []FeedEntry `json:"for_you"`
	BasedOnWatchlist    []FeedEntry `json:"based_on_watchlist"`
	Trending            []FeedEntry `json:"trending"`
	TrendingFromHistory bool        `json:"trending_from_history"`
	SnapshotVersion     uint64      `json:"snapshot_version"`
}

// BlendedFeedResponse is the payload of GET /api/feed in blended mode.
type BlendedFeedResponse struct {
	UserID              string      `json:"user_id"`
	Mode                string      `json:"mode"`
	Items               []FeedEntry `json:"items"`
	TrendingFromHistory bool        `json:"trending_from_history"`
	SnapshotVersion     uint64      `json:"snapshot_version"`
}

// RecommendationsResponse is the payload of GET /recommendations/{user_id}.
type RecommendationsResponse struct {
	UserID          string          `json:"user_id"`
	Items           []FeedEntry     `json:"items"`
	Weights         weights.Profile `json:"weights"`
	SnapshotVersion uint64          `json:"snapshot_version"`
}

// Feed handles GET /api/feed?user_id=.
func (h *Handler) Feed(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		respondError(w, r, http.StatusBadRequest, ErrCodeValidation, "user_id query parameter is required", nil, nil)
		return
	}
	r = withUser(r, userID)

	f, err := h.engine.Feed(r.Context(), userID)
	if err != nil {
		respondEngineError(w, r, err)
		return
	}

	if f.Mode == feed.ModeBlended {
		respondSuccess(w, r, http.StatusOK, BlendedFeedResponse{
			UserID:              f.UserID,
			Mode:                f.Mode,
			Items:               scoredEntries(f.Blended, f.Products),
			TrendingFromHistory: f.TrendingFromHistory,
			SnapshotVersion:     f.SnapshotVersion,
		})
		return
	}
	respondSuccess(w, r, http.StatusOK, FeedResponse{
		UserID:              f.UserID,
		Mode:                f.Mode,
		ForYou:              entries(f.Lists.Collaborative, f.Products),
		BasedOnWatchlist:    entries(f.Lists.SelfFeed, f.Products),
		Trending:            entries(f.Lists.Trending, f.Products),
		TrendingFromHistory: f.TrendingFromHistory,
		SnapshotVersion:     f.SnapshotVersion,
	})
}

// Recommendations handles GET /recommendations/{user_id}?n=.
func (h *Handler) Recommendations(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(chi.URLParam(r, "user_id"))
	if userID == "" {
		respondError(w, r, http.StatusBadRequest, ErrCodeValidation, "user_id is required", nil, nil)
		return
	}
	r = withUser(r, userID)

	n := 0
	if raw := r.URL.Query().Get("n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > maxRecommendations {
			respondError(w, r, http.StatusBadRequest, ErrCodeValidation,
				"n must be an integer between 1 and "+strconv.Itoa(maxRecommendations),
				map[string]interface{}{"field": "n"}, nil)
			return
		}
		n = v
	}

	rec, err := h.engine.Recommendations(r.Context(), userID, n)
	if err != nil {
		respondEngineError(w, r, err)
		return
	}

	ids := make([]int64, len(rec.Items))
	for i, it := range rec.Items {
		ids[i] = it.ItemID
	}
	products, err := h.catalog.Products(r.Context(), ids)
	if err != nil {
		respondEngineError(w, r, err)
		return
	}

	respondSuccess(w, r, http.StatusOK, RecommendationsResponse{
		UserID:          rec.UserID,
		Items:           scoredEntries(rec.Items, products),
		Weights:         rec.Weights,
		SnapshotVersion: rec.SnapshotVersion,
	})
}

// Items handles GET /api/items.
func (h *Handler) Items(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.AllProducts(r.Context())
	if err != nil {
		respondEngineError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, models.GroupByCategory(products))
}

// entries resolves ids to products, dropping ids no longer in the catalog.
func entries(ids []int64, products map[int64]models.Product) []FeedEntry {
	out := make([]FeedEntry, 0, len(ids))
	for _, id := range ids {
		if p, ok := products[id]; ok {
			out = append(out, FeedEntry{Product: p})
		}
	}
	return out
}

func scoredEntries(items []feed.Scored, products map[int64]models.Product) []FeedEntry {
	out := make([]FeedEntry, 0, len(items))
	for _, it := range items {
		p, ok := products[it.ItemID]
		if !ok {
			continue
		}
		score := it.Score
		out = append(out, FeedEntry{Product: p, Score: &score})
	}
	return out
}
