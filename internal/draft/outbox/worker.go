package outbox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/renegades-league/draftd/internal/sqlutil"
)

type Config struct {
	PollInterval time.Duration
	BatchSize    int32
}

func DefaultConfig() Config {
	return Config{
		PollInterval: 500 * time.Millisecond,
		BatchSize:    100,
	}
}

// Worker drains the outbox table and publishes events to the bus. It polls
// in seq order and marks rows published in the same transaction that read
// them, so a crashed worker re-delivers rather than losing events
// (at-least-once; subscribers de-duplicate by seq).
type Worker struct {
	pool      *pgxpool.Pool
	repo      *Repository
	publisher EventPublisher
	config    Config

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup
}

func NewWorker(pool *pgxpool.Pool, publisher EventPublisher, cfg Config) *Worker {
	return &Worker{
		pool:      pool,
		repo:      NewRepository(pool),
		publisher: publisher,
		config:    cfg,
		stopChan:  make(chan struct{}),
	}
}

func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("outbox worker already running")
	}
	w.running = true
	w.mu.Unlock()

	w.wg.Add(1)
	go w.run(ctx)

	log.Info().
		Dur("poll_interval", w.config.PollInterval).
		Int32("batch_size", w.config.BatchSize).
		Msg("outbox worker started")
	return nil
}

func (w *Worker) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return fmt.Errorf("outbox worker not running")
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopChan)
	w.wg.Wait()

	log.Info().Msg("outbox worker stopped")
	return nil
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	// Drain immediately on start.
	w.drainOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case <-ticker.C:
			w.drainOnce(ctx)
		}
	}
}

func (w *Worker) drainOnce(ctx context.Context) {
	err := sqlutil.WithTx(ctx, w.pool, func(tx pgx.Tx) error {
		events, err := w.repo.FetchUnpublished(ctx, tx, w.config.BatchSize)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}

		published := publishBatch(ctx, w.publisher, events)
		return w.repo.MarkPublished(ctx, tx, published, time.Now())
	})
	if err != nil {
		log.Error().Err(err).Msg("outbox drain failed")
	}
}

// publishBatch publishes events in seq order and returns the ids that made
// it out. It stops at the first failure so a gap never opens in the stream;
// the remainder is retried on the next poll.
func publishBatch(ctx context.Context, publisher EventPublisher, events []Event) []uuid.UUID {
	published := make([]uuid.UUID, 0, len(events))
	for _, ev := range events {
		if err := publisher.Publish(ctx, ev); err != nil {
			log.Error().Err(err).Int64("seq", ev.Seq).Msg("failed to publish outbox event")
			break
		}
		published = append(published, ev.ID)
	}
	return published
}
