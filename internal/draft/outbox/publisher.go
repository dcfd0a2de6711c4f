package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// EventPublisher delivers outbox events to the message bus.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// NATSPublisher publishes change events to NATS JetStream. Events for the
// same row are published in seq order by the worker, and JetStream
// preserves publish order per subject, so subscribers can reconcile rows
// last-write-wins by seq.
type NATSPublisher struct {
	js            nats.JetStreamContext
	subjectPrefix string
}

func NewNATSPublisher(nc *nats.Conn, streamName, subjectPrefix string) (*NATSPublisher, error) {
	js, err := nc.JetStream()
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	// Create the stream if this is the first instance up.
	if _, err := js.StreamInfo(streamName); err != nil {
		_, err = js.AddStream(&nats.StreamConfig{
			Name:     streamName,
			Subjects: []string{subjectPrefix + ".>"},
			Storage:  nats.FileStorage,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create stream %s: %w", streamName, err)
		}
	}

	return &NATSPublisher{
		js:            js,
		subjectPrefix: subjectPrefix,
	}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	subject := event.Subject(p.subjectPrefix)
	if _, err := p.js.Publish(subject, data, nats.Context(ctx)); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}

	log.Debug().
		Str("subject", subject).
		Int64("seq", event.Seq).
		Str("row_id", event.Change.RowID.String()).
		Msg("change event published")
	return nil
}

// MockPublisher collects events in memory for tests.
type MockPublisher struct {
	mu     sync.Mutex
	Events []Event
	Fail   error
}

func (p *MockPublisher) Publish(ctx context.Context, event Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Fail != nil {
		return p.Fail
	}
	p.Events = append(p.Events, event)
	return nil
}

// Published returns a snapshot of delivered events.
func (p *MockPublisher) Published() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Event, len(p.Events))
	copy(out, p.Events)
	return out
}
