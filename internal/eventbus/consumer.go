// Shopfeed - Personalized Product Feed Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopfeed

package eventbus

import (
	"context"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"

	"github.com/tomtom215/shopfeed/internal/metrics"
	"github.com/tomtom215/shopfeed/internal/models"
)

// EventSink stores live events.
type EventSink interface {
	AppendEvent(ctx context.Context, ev *models.Event) error
}

// Consumer appends every event read from the bus to the sink. Messages are
// acked once stored and nacked for redelivery when the sink fails.
// Malformed messages are acked and dropped since redelivery cannot fix them.
type Consumer struct {
	bus    *Bus
	sink   EventSink
	logger zerolog.Logger
}

// NewConsumer creates an ingest consumer.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewConsumer(bus *Bus, sink EventSink, logger zerolog.Logger) *Consumer {
	return &Consumer{
		bus:    bus,
		sink:   sink,
		logger: logger.With().Str("component", "event-consumer").Logger(),
	}
}

// Serve consumes until ctx is canceled. It implements suture.Service.
func (c *Consumer) Serve(ctx context.Context) error {
	messages, err := c.bus.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", c.bus.Topic(), err)
	}
	c.logger.Info().Str("topic", c.bus.Topic()).Msg("event consumer started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			c.handle(ctx, msg)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg *message.Message) {
	topic := c.bus.Topic()

	ev, err := Decode(msg)
	if err != nil {
		c.logger.Warn().Err(err).Str("message_uuid", msg.UUID).Msg("dropping malformed event message")
		metrics.RecordBusConsume(topic, "malformed")
		metrics.RecordSkippedEvents("malformed", 1)
		msg.Ack()
		return
	}

	if err := c.sink.AppendEvent(ctx, ev); err != nil {
		if errors.Is(err, context.Canceled) {
			msg.Nack()
			return
		}
		c.logger.Error().Err(err).Str("event_id", ev.ID).Msg("failed to store event")
		metrics.RecordBusConsume(topic, "failed")
		msg.Nack()
		return
	}

	metrics.RecordBusConsume(topic, "ok")
	metrics.RecordEventIngested(string(ev.Action))
	msg.Ack()
}

// String implements fmt.Stringer for supervisor logs.
func (c *Consumer) String() string { return "event-consumer" }
