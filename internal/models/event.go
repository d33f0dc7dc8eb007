// Shopfeed - Personalized Product Feed Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopfeed

package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrUnknownAction is returned when an action name is not recognized.
	ErrUnknownAction = errors.New("unknown action")

	// ErrMalformedEvent is returned when an event is missing a field its action requires.
	ErrMalformedEvent = errors.New("malformed event")
)

// Action is the kind of shopper interaction recorded by an event.
type Action string

const (
	ActionSeen    Action = "seen"
	ActionOrder   Action = "order"
	ActionReorder Action = "reorder"
	ActionCancel  Action = "cancel"
	ActionSearch  Action = "search"
)

// Actions lists every known action.
var Actions = []Action{ActionSeen, ActionOrder, ActionReorder, ActionCancel, ActionSearch}

// ParseAction resolves an action name case-insensitively ("Order", "SEEN").
// "purchase" is accepted as an alias of order.
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "seen", "view", "viewed":
		return ActionSeen, nil
	case "order", "purchase":
		return ActionOrder, nil
	case "reorder":
		return ActionReorder, nil
	case "cancel", "cancelled", "canceled":
		return ActionCancel, nil
	case "search":
		return ActionSearch, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
	}
}

// RefersToItem reports whether events of this action carry a product id.
func (a Action) RefersToItem() bool {
	return a != ActionSearch
}

// EventDetail is the action-specific payload of an Event. Item actions
// require ProductID; search requires Query. Category is filled from the
// catalog on ingestion when the client omits it.
type EventDetail struct {
	ProductID int64  `json:"product_id,omitempty"`
	Category  string `json:"category,omitempty"`
	Query     string `json:"query,omitempty"`
	Text      string `json:"text,omitempty"`
}

// Event is one recorded shopper interaction.
//
// Historical events feed the periodic model rebuild only. Live events drive
// personalization and trending and never retrain the global models directly.
type Event struct {
	ID         string      `json:"id"`
	UserID     string      `json:"user_id"`
	Action     Action      `json:"action"`
	Detail     EventDetail `json:"detail"`
	Timestamp  time.Time   `json:"timestamp"`
	Historical bool        `json:"historical"`
}

// NewEvent builds a live event stamped with a fresh id.
func NewEvent(userID string, action Action, detail EventDetail, ts time.Time) Event {
	return Event{
		ID:        uuid.New().String(),
		UserID:    userID,
		Action:    action,
		Detail:    detail,
		Timestamp: ts.UTC(),
	}
}

// Validate enforces the required fields of the event's action variant.
func (e *Event) Validate() error {
	if strings.TrimSpace(e.UserID) == "" {
		return fmt.Errorf("%w: user_id is required", ErrMalformedEvent)
	}
	if e.Timestamp.IsZero() {
		return fmt.Errorf("%w: timestamp is required", ErrMalformedEvent)
	}
	switch e.Action {
	case ActionSeen, ActionOrder, ActionReorder, ActionCancel:
		if e.Detail.ProductID <= 0 {
			return fmt.Errorf("%w: %s requires a positive product_id", ErrMalformedEvent, e.Action)
		}
	case ActionSearch:
		if strings.TrimSpace(e.Detail.Query) == "" && e.Detail.Category == "" {
			return fmt.Errorf("%w: search requires a query or category", ErrMalformedEvent)
		}
	default:
		return fmt.Errorf("%w: %w %q", ErrMalformedEvent, ErrUnknownAction, e.Action)
	}
	return nil
}

// ItemID returns the product id and whether the event refers to one.
func (e *Event) ItemID() (int64, bool) {
	if !e.Action.RefersToItem() || e.Detail.ProductID <= 0 {
		return 0, false
	}
	return e.Detail.ProductID, true
}
