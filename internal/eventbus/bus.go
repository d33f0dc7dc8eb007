// Shopfeed - Personalized Product Feed Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopfeed

package eventbus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	natsgo "github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/shopfeed/internal/config"
	"github.com/tomtom215/shopfeed/internal/metrics"
	"github.com/tomtom215/shopfeed/internal/models"
)

// Transports.
const (
	TransportMemory = "memory"
	TransportNATS   = "nats"
)

// ErrClosed is returned when publishing on a closed bus.
var ErrClosed = errors.New("event bus is closed")

// Bus carries live events from the API to the ingest consumer.
type Bus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	topic      string
	transport  string
	breaker    *gobreaker.CircuitBreaker[struct{}]
	logger     zerolog.Logger

	// shared is set when one component both publishes and subscribes.
	shared bool

	mu     sync.RWMutex
	closed bool
}

// New creates a bus on the configured transport: an in-process gochannel
// for memory, JetStream for nats.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func New(cfg *config.EventsConfig, logger zerolog.Logger) (*Bus, error) {
	logger = logger.With().Str("component", "eventbus").Str("transport", cfg.Transport).Logger()
	wmLogger := NewLoggerAdapter(logger)

	b := &Bus{topic: cfg.Topic, transport: cfg.Transport, logger: logger}
	if b.topic == "" {
		b.topic = "shopfeed.events"
	}

	switch cfg.Transport {
	case TransportMemory, "":
		ch := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 256}, wmLogger)
		b.publisher, b.subscriber = ch, ch
		b.transport = TransportMemory
		b.shared = true
	case TransportNATS:
		pub, sub, err := newNATS(cfg, wmLogger)
		if err != nil {
			return nil, err
		}
		b.publisher, b.subscriber = pub, sub
	default:
		return nil, fmt.Errorf("unknown event transport %q", cfg.Transport)
	}

	b.breaker = newBreaker("event-publish", cfg.BreakerFailureThreshold, cfg.BreakerTimeout, logger)
	return b, nil
}

// NewWithPubSub builds a bus over existing watermill components. When pub
// and sub are the same value it is closed once.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewWithPubSub(pub message.Publisher, sub message.Subscriber, topic string, threshold uint32, logger zerolog.Logger) *Bus {
	shared := false
	if s, ok := pub.(message.Subscriber); ok && s == sub {
		shared = true
	}
	return &Bus{
		publisher:  pub,
		subscriber: sub,
		topic:      topic,
		transport:  "custom",
		breaker:    newBreaker("event-publish", threshold, 30*time.Second, logger),
		logger:     logger,
		shared:     shared,
	}
}

//nolint:gocritic // logger passed by value is acceptable for zerolog
func newBreaker(name string, threshold uint32, timeout time.Duration, logger zerolog.Logger) *gobreaker.CircuitBreaker[struct{}] {
	if threshold == 0 {
		threshold = 5
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("circuit breaker state changed")
			metrics.RecordBreakerTransition(name, from.String(), to.String())
		},
	})
}

func newNATS(cfg *config.EventsConfig, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber, error) {
	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(10),
		natsgo.ReconnectWait(2 * time.Second),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         cfg.NATSURL,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision: true,
			TrackMsgId:    true,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("create NATS publisher: %w", err)
	}

	ackWait := cfg.AckWaitTimeout
	if ackWait <= 0 {
		ackWait = 30 * time.Second
	}
	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              cfg.NATSURL,
		QueueGroupPrefix: cfg.QueueGroup,
		SubscribersCount: max(cfg.SubscribersCount, 1),
		AckWaitTimeout:   ackWait,
		CloseTimeout:     cfg.CloseTimeout,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision: true,
			SubscribeOptions: []natsgo.SubOpt{
				natsgo.AckWait(ackWait),
				natsgo.DeliverNew(),
			},
			DurablePrefix: cfg.DurableName,
		},
	}, logger)
	if err != nil {
		_ = pub.Close()
		return nil, nil, fmt.Errorf("create NATS subscriber: %w", err)
	}
	return pub, sub, nil
}

// Topic returns the event topic.
func (b *Bus) Topic() string { return b.topic }

// Transport returns the transport name.
func (b *Bus) Transport() string { return b.transport }

// Publish sends one live event through the circuit breaker.
func (b *Bus) Publish(ctx context.Context, ev *models.Event) error {
	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return ErrClosed
	}

	msg, err := Encode(ev)
	if err != nil {
		return err
	}
	msg.SetContext(ctx)
	if msg.Metadata.Get(natsgo.MsgIdHdr) == "" {
		msg.Metadata.Set(natsgo.MsgIdHdr, msg.UUID)
	}

	_, err = b.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, b.publisher.Publish(b.topic, msg)
	})
	metrics.RecordBusPublish(b.topic, err)
	if err != nil {
		return fmt.Errorf("publish event %s: %w", ev.ID, err)
	}
	return nil
}

// Subscribe returns the message stream for the event topic.
func (b *Bus) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	return b.subscriber.Subscribe(ctx, b.topic)
}

// Close shuts down the publisher and subscriber.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true

	err := b.publisher.Close()
	if !b.shared {
		err = errors.Join(err, b.subscriber.Close())
	}
	return err
}
