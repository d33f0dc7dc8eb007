// Shopfeed - Personalized Product Feed Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopfeed

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/tomtom215/shopfeed/internal/recommend"
	"github.com/tomtom215/shopfeed/internal/recommend/weights"
)

// FeedbackResponse is the payload of POST /feedback.
type FeedbackResponse struct {
	UserID  string          `json:"user_id"`
	Weights weights.Profile `json:"weights"`
	Changed bool            `json:"changed"`
}

// RebuildResponse is the payload of POST /api/admin/rebuild.
type RebuildResponse struct {
	Rebuilt bool                     `json:"rebuilt"`
	Reason  string                   `json:"reason,omitempty"`
	Result  *recommend.RebuildResult `json:"result,omitempty"`
}

// HealthResponse is the payload of GET /health.
type HealthResponse struct {
	Status      string           `json:"status"`
	Database    string           `json:"database"`
	Engine      recommend.Status `json:"engine"`
	UptimeSecs  float64          `json:"uptime_seconds"`
	GeneratedAt time.Time        `json:"generated_at"`
}

// Feedback handles POST /feedback.
func (h *Handler) Feedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := decodeRequest(w, r, &req); err != nil {
		respondDecodeError(w, r, err)
		return
	}
	r = withUser(r, req.UserID)

	profile, changed, err := h.engine.Feedback(r.Context(), req.UserID, req.DominantSignal)
	if err != nil {
		respondEngineError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, FeedbackResponse{UserID: req.UserID, Weights: profile, Changed: changed})
}

// Rebuild handles POST /api/admin/rebuild. The rebuild is detached from the
// request context so a disconnecting client cannot abort it halfway.
func (h *Handler) Rebuild(w http.ResponseWriter, r *http.Request) {
	res, err := h.engine.Rebuild(context.WithoutCancel(r.Context()))
	switch {
	case errors.Is(err, recommend.ErrNoHistoricalEvents):
		respondSuccess(w, r, http.StatusOK, RebuildResponse{Reason: "no historical events"})
		return
	case err != nil:
		respondEngineError(w, r, err)
		return
	}
	h.logger.Info().Uint64("version", res.Version).Int64("duration_ms", res.DurationMS).Msg("rebuild triggered over API")
	respondSuccess(w, r, http.StatusOK, RebuildResponse{Rebuilt: true, Result: res})
}

// Health handles GET /health. It answers 503 when the database is
// unreachable.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:      "healthy",
		Database:    "unchecked",
		Engine:      h.engine.Status(),
		UptimeSecs:  time.Since(h.startTime).Seconds(),
		GeneratedAt: h.now().UTC(),
	}

	status := http.StatusOK
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			h.logger.Warn().Err(err).Msg("health check: database unreachable")
			resp.Status = "degraded"
			resp.Database = "unreachable"
			status = http.StatusServiceUnavailable
		} else {
			resp.Database = "ok"
		}
	}
	respondSuccess(w, r, status, resp)
}
