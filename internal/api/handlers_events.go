// Shopfeed - Personalized Product Feed Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopfeed

package api

import (
	"errors"
	"net/http"

	"github.com/tomtom215/shopfeed/internal/models"
	"github.com/tomtom215/shopfeed/internal/validation"
)

// EventResponse acknowledges an accepted live event.
type EventResponse struct {
	EventID string `json:"event_id"`
	Action  string `json:"action"`

	// Queued is true when the event went through the bus, false when it was
	// written directly.
	Queued bool `json:"queued"`
}

// Event handles POST /api/event with a minimal {user_id, action, product_id}
// payload.
func (h *Handler) Event(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := decodeRequest(w, r, &req); err != nil {
		respondDecodeError(w, r, err)
		return
	}
	ev, err := req.toEvent(h.now())
	if err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeValidation, err.Error(), nil, nil)
		return
	}
	h.accept(w, r, &ev)
}

// Log handles POST /api/log with a full {user_id, action, detail,
// client_timestamp} payload.
func (h *Handler) Log(w http.ResponseWriter, r *http.Request) {
	var req logRequest
	if err := decodeRequest(w, r, &req); err != nil {
		respondDecodeError(w, r, err)
		return
	}
	ev, err := req.toEvent(h.now())
	if err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeValidation, err.Error(), nil, nil)
		return
	}
	h.accept(w, r, &ev)
}

func (h *Handler) accept(w http.ResponseWriter, r *http.Request, ev *models.Event) {
	if err := h.engine.ValidateEvent(r.Context(), ev); err != nil {
		respondEngineError(w, r, err)
		return
	}
	queued, err := h.ingest.Ingest(r.Context(), ev)
	if err != nil {
		respondEngineError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusAccepted, EventResponse{
		EventID: ev.ID,
		Action:  string(ev.Action),
		Queued:  queued,
	})
}

func respondDecodeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *validation.RequestValidationError
	if errors.As(err, &verr) {
		respondError(w, r, http.StatusBadRequest, ErrCodeValidation, verr.Error(), verr.Details(), nil)
		return
	}
	respondError(w, r, http.StatusBadRequest, ErrCodeValidation, err.Error(), nil, nil)
}
