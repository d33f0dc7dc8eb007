// Shopfeed - Personalized Product Feed Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopfeed

package eventbus

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tomtom215/shopfeed/internal/metrics"
	"github.com/tomtom215/shopfeed/internal/models"
)

// Ingestor accepts live events from the API. Events go through the bus
// when one is configured; when publishing fails they are written to the
// sink directly so an accepted event is never lost.
type Ingestor struct {
	bus    *Bus
	sink   EventSink
	logger zerolog.Logger
}

// NewIngestor creates an ingestor. bus may be nil for direct writes.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewIngestor(bus *Bus, sink EventSink, logger zerolog.Logger) *Ingestor {
	return &Ingestor{bus: bus, sink: sink, logger: logger.With().Str("component", "ingest").Logger()}
}

// Ingest records ev. queued reports whether it went through the bus.
func (i *Ingestor) Ingest(ctx context.Context, ev *models.Event) (queued bool, err error) {
	if i.bus != nil {
		err := i.bus.Publish(ctx, ev)
		if err == nil {
			return true, nil
		}
		i.logger.Warn().Err(err).Str("event_id", ev.ID).Msg("publish failed, storing event directly")
	}

	if err := i.sink.AppendEvent(ctx, ev); err != nil {
		return false, fmt.Errorf("store event: %w", err)
	}
	metrics.RecordEventIngested(string(ev.Action))
	return false, nil
}
