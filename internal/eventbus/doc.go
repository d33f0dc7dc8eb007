// Shopfeed - Personalized Product Feed Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopfeed

/*
Package eventbus moves live events from the HTTP API into storage.

	API -> Ingestor -> Bus (watermill) -> Consumer -> DuckDB

Two transports are supported: an in-process gochannel (memory, the default)
and NATS JetStream via watermill-nats. Publishing runs through a gobreaker
circuit breaker; when it fails the Ingestor writes the event directly.

Messages carry the JSON encoded models.Event (goccy/go-json). The event id
is the message UUID and the Nats-Msg-Id header, so JetStream drops
duplicates of a retried publish and the events table ignores a re-appended
id.
*/
package eventbus
