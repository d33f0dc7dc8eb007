// Shopfeed - Personalized Product Feed Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopfeed

package eventbus

import (
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"

	"github.com/tomtom215/shopfeed/internal/models"
)

// ErrMalformedMessage is returned for payloads that are not a valid event.
var ErrMalformedMessage = errors.New("malformed event message")

// Metadata keys set on every event message.
const (
	MetadataUserID = "user_id"
	MetadataAction = "action"
)

// Encode builds a message carrying ev. The event id doubles as the message
// UUID so broker-side deduplication works across retries.
func Encode(ev *models.Event) (*message.Message, error) {
	if err := ev.Validate(); err != nil {
		return nil, fmt.Errorf("validate event: %w", err)
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	msg := message.NewMessage(ev.ID, data)
	msg.Metadata.Set(MetadataUserID, ev.UserID)
	msg.Metadata.Set(MetadataAction, string(ev.Action))
	return msg, nil
}

// Decode parses and validates an event message. Events read from the bus
// are always live.
func Decode(msg *message.Message) (*models.Event, error) {
	var ev models.Event
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}
	if err := ev.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}
	if ev.ID == "" {
		ev.ID = msg.UUID
	}
	ev.Historical = false
	return &ev, nil
}
