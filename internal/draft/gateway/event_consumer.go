package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"

	"github.com/renegades-league/draftd/internal/draft/outbox"
)

// JetStreamConsumerConfig holds configuration for the JetStream consumer.
type JetStreamConsumerConfig struct {
	StreamName    string
	ConsumerName  string
	SubjectFilter string
	MaxDeliver    int
	AckWait       time.Duration
	MaxAckPending int
}

// DefaultJetStreamConsumerConfig returns default consumer configuration.
func DefaultJetStreamConsumerConfig() JetStreamConsumerConfig {
	return JetStreamConsumerConfig{
		StreamName:    "DRAFT_CHANGES",
		ConsumerName:  "draft-gateway",
		SubjectFilter: "draft.changes.>",
		MaxDeliver:    5,
		AckWait:       30 * time.Second,
		MaxAckPending: 100,
	}
}

// EventConsumer consumes change events from JetStream and hands them to the
// connection manager for WebSocket broadcast.
type EventConsumer struct {
	connectionManager *ConnectionManager
	js                jetstream.JetStream
	consumer          jetstream.Consumer
	config            JetStreamConsumerConfig
	consumeCtx        jetstream.ConsumeContext
}

// NewEventConsumer creates the durable consumer on the change stream.
func NewEventConsumer(ctx context.Context, nc *nats.Conn, cm *ConnectionManager, config JetStreamConsumerConfig) (*EventConsumer, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	stream, err := js.Stream(ctx, config.StreamName)
	if err != nil {
		return nil, fmt.Errorf("failed to get stream %s: %w", config.StreamName, err)
	}

	consumer, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Durable:       config.ConsumerName,
		FilterSubject: config.SubjectFilter,
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    config.MaxDeliver,
		AckWait:       config.AckWait,
		MaxAckPending: config.MaxAckPending,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer: %w", err)
	}

	return &EventConsumer{
		connectionManager: cm,
		js:                js,
		consumer:          consumer,
		config:            config,
	}, nil
}

// Start begins consuming. Messages are acked after broadcast; broadcast is
// fire-and-forget per connection, reconnecting clients resync via snapshot.
func (ec *EventConsumer) Start() error {
	consumeCtx, err := ec.consumer.Consume(func(msg jetstream.Msg) {
		var event outbox.Event
		if err := json.Unmarshal(msg.Data(), &event); err != nil {
			log.Error().Err(err).Str("subject", msg.Subject()).Msg("failed to decode change event")
			msg.Term()
			return
		}

		ec.connectionManager.BroadcastChange(event)
		msg.Ack()
	})
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}
	ec.consumeCtx = consumeCtx

	log.Info().
		Str("stream", ec.config.StreamName).
		Str("consumer", ec.config.ConsumerName).
		Msg("gateway event consumer started")
	return nil
}

// Stop drains the consumer.
func (ec *EventConsumer) Stop() {
	if ec.consumeCtx != nil {
		ec.consumeCtx.Drain()
	}
}
