package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists and drains outbox events.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Record inserts a change event inside the caller's transaction so the
// event becomes visible iff the mutation it describes commits.
func (r *Repository) Record(ctx context.Context, tx pgx.Tx, change Change) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO draft_outbox (id, table_name, event_type, row_id, old_row, new_row)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.New(), change.Table, string(change.EventType), change.RowID, change.Old, change.New,
	)
	if err != nil {
		return fmt.Errorf("failed to record outbox event: %w", err)
	}
	return nil
}

// FetchUnpublished returns up to limit unpublished events in seq order,
// locking them against concurrent workers.
func (r *Repository) FetchUnpublished(ctx context.Context, tx pgx.Tx, limit int32) ([]Event, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, seq, table_name, event_type, row_id, old_row, new_row, created_at
		FROM draft_outbox
		WHERE published_at IS NULL
		ORDER BY seq
		LIMIT $1
		FOR UPDATE SKIP LOCKED`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unpublished events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			ev        Event
			eventType string
		)
		if err := rows.Scan(&ev.ID, &ev.Seq, &ev.Change.Table, &eventType,
			&ev.Change.RowID, &ev.Change.Old, &ev.Change.New, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan outbox event: %w", err)
		}
		ev.Change.EventType = EventType(eventType)
		events = append(events, ev)
	}
	return events, rows.Err()
}

// MarkPublished stamps the given events as delivered.
func (r *Repository) MarkPublished(ctx context.Context, tx pgx.Tx, ids []uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := tx.Exec(ctx, `UPDATE draft_outbox SET published_at = $2 WHERE id = ANY($1)`, ids, at)
	if err != nil {
		return fmt.Errorf("failed to mark outbox events published: %w", err)
	}
	return nil
}
