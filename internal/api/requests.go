// Shopfeed - Personalized Product Feed Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopfeed

package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/shopfeed/internal/models"
	"github.com/tomtom215/shopfeed/internal/validation"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 64 << 10

// clockSkew is how far into the future a client timestamp may point.
const clockSkew = 5 * time.Minute

type eventRequest struct {
	UserID    string `json:"user_id" validate:"required,userid,max=128"`
	Action    string `json:"action" validate:"required,action"`
	ProductID int64  `json:"product_id" validate:"required,gt=0"`
}

type logDetail struct {
	ProductID int64  `json:"product_id" validate:"gte=0"`
	Category  string `json:"category" validate:"max=128"`
	Query     string `json:"query" validate:"max=512"`
	Text      string `json:"text" validate:"max=2048"`
}

type logRequest struct {
	UserID          string     `json:"user_id" validate:"required,userid,max=128"`
	Action          string     `json:"action" validate:"required,action"`
	Detail          logDetail  `json:"detail"`
	ClientTimestamp *time.Time `json:"client_timestamp"`
}

type feedbackRequest struct {
	UserID         string `json:"user_id" validate:"required,userid,max=128"`
	DominantSignal string `json:"dominant_signal" validate:"required,max=64"`
}

// decodeRequest reads a JSON body into dst and validates it.
func decodeRequest(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return errors.New("request body is empty")
		case errors.As(err, &maxErr):
			return fmt.Errorf("request body exceeds %d bytes", maxErr.Limit)
		default:
			return fmt.Errorf("invalid JSON body: %w", err)
		}
	}
	if verr := validation.ValidateStruct(dst); verr != nil {
		return verr
	}
	return nil
}

// toEvent builds the live event of a minimal payload.
func (req *eventRequest) toEvent(now time.Time) (models.Event, error) {
	action, err := models.ParseAction(req.Action)
	if err != nil {
		return models.Event{}, err
	}
	return models.NewEvent(req.UserID, action, models.EventDetail{ProductID: req.ProductID}, now), nil
}

// toEvent builds the live event of a full payload. The client timestamp is
// used when present and not in the future beyond clockSkew.
func (req *logRequest) toEvent(now time.Time) (models.Event, error) {
	action, err := models.ParseAction(req.Action)
	if err != nil {
		return models.Event{}, err
	}
	ts := now
	if req.ClientTimestamp != nil && !req.ClientTimestamp.IsZero() && !req.ClientTimestamp.After(now.Add(clockSkew)) {
		ts = *req.ClientTimestamp
	}
	detail := models.EventDetail{
		ProductID: req.Detail.ProductID,
		Category:  req.Detail.Category,
		Query:     req.Detail.Query,
		Text:      req.Detail.Text,
	}
	return models.NewEvent(req.UserID, action, detail, ts), nil
}
