// Shopfeed - Personalized Product Feed Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopfeed

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/shopfeed/internal/logging"
	"github.com/tomtom215/shopfeed/internal/recommend"
)

// Error codes.
const (
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeConflict           = "CONFLICT"
	ErrCodeRateLimited        = "RATE_LIMITED"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	ErrCodeInternal           = "INTERNAL_ERROR"
)

// APIResponse is the envelope of every JSON response.
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data,omitempty"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata accompanies every response.
type Metadata struct {
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// APIError is the error half of the envelope.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// sanitizeLogValue escapes control characters so client input cannot forge
// log lines.
func sanitizeLogValue(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			fmt.Fprintf(&b, "\\x%02x", r)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func respondJSON(w http.ResponseWriter, r *http.Request, status int, response *APIResponse) {
	response.Metadata.Timestamp = time.Now().UTC()
	response.Metadata.RequestID = logging.RequestIDFromContext(r.Context())

	data, err := json.Marshal(response)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Ctx(r.Context()).Debug().Err(err).Msg("failed to write JSON response")
	}
}

func respondSuccess(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	respondJSON(w, r, status, &APIResponse{Status: "success", Data: data})
}

// respondError writes an error envelope. A non-nil err is logged, never sent
// to the client.
func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string, details map[string]interface{}, err error) {
	if err != nil {
		ev := logging.Ctx(r.Context()).Warn()
		if status >= http.StatusInternalServerError {
			ev = logging.Ctx(r.Context()).Error()
		}
		ev.Str("code", code).Str("error", sanitizeLogValue(err.Error())).Str("path", r.URL.Path).Msg("API error")
	}
	respondJSON(w, r, status, &APIResponse{
		Status: "error",
		Error:  &APIError{Code: code, Message: message, Details: details},
	})
}

// respondEngineError maps engine and infrastructure errors onto HTTP.
func respondEngineError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, recommend.ErrInvalidUserID), errors.Is(err, recommend.ErrMalformedEvent):
		respondError(w, r, http.StatusBadRequest, ErrCodeValidation, err.Error(), nil, nil)
	case errors.Is(err, recommend.ErrUnknownUser), errors.Is(err, recommend.ErrUnknownProduct):
		respondError(w, r, http.StatusNotFound, ErrCodeNotFound, err.Error(), nil, nil)
	case errors.Is(err, recommend.ErrRebuildInProgress):
		respondError(w, r, http.StatusConflict, ErrCodeConflict, "a rebuild is already running", nil, nil)
	case errors.Is(err, recommend.ErrFeedbackRateLimited):
		w.Header().Set("Retry-After", "60")
		respondError(w, r, http.StatusTooManyRequests, ErrCodeRateLimited, "too much feedback for this user", nil, nil)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, gobreaker.ErrOpenState):
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "backing store unavailable, retry later", nil, err)
	case errors.Is(err, context.Canceled):
		// Client went away; nothing useful to send.
		logging.Ctx(r.Context()).Debug().Str("path", r.URL.Path).Msg("request canceled")
	default:
		respondError(w, r, http.StatusInternalServerError, ErrCodeInternal, "internal error", nil, err)
	}
}
