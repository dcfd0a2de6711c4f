package models

import (
	"time"

	"github.com/google/uuid"
)

// Keeper marks a player a team retains from a prior season. Keepers occupy
// no ledger slot but are excluded from the draftable pool.
type Keeper struct {
	ID        uuid.UUID `json:"id"`
	TeamID    uuid.UUID `json:"team_id"`
	PlayerID  uuid.UUID `json:"player_id"`
	Season    string    `json:"season"`
	CreatedAt time.Time `json:"created_at"`
}
