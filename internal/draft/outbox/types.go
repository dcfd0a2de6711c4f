package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType mirrors the storage layer's change feed event kinds.
type EventType string

const (
	EventInsert EventType = "insert"
	EventUpdate EventType = "update"
	EventDelete EventType = "delete"
)

// Change is a single row mutation captured in the same transaction as the
// write it describes.
type Change struct {
	Table     string          `json:"table"`
	EventType EventType       `json:"event_type"`
	RowID     uuid.UUID       `json:"row_id"`
	Old       json.RawMessage `json:"old,omitempty"`
	New       json.RawMessage `json:"new,omitempty"`
}

// Event is a persisted outbox row. Seq is assigned by the database and is
// the per-row ordering token clients use for last-write-wins reconciliation.
type Event struct {
	ID        uuid.UUID `json:"id"`
	Seq       int64     `json:"seq"`
	Change    Change    `json:"change"`
	CreatedAt time.Time `json:"created_at"`
}

// Subject returns the NATS subject the event is published on.
func (e Event) Subject(prefix string) string {
	return prefix + "." + e.Change.Table
}
