package models

import (
	"time"

	"github.com/google/uuid"
)

// DraftPick represents a single slot in the pick ledger.
// OverallPick is derived as (round-1)*leagueSize + pickNumber and is the
// ordering key for turn resolution. CurrentTeamID may diverge from
// OriginalTeamID when picks are traded; order never changes.
type DraftPick struct {
	ID             uuid.UUID  `json:"id"`
	Round          int        `json:"round"`
	PickNumber     int        `json:"pick_number"` // position within the round
	OverallPick    int        `json:"overall_pick"`
	OriginalTeamID uuid.UUID  `json:"original_team_id"`
	CurrentTeamID  uuid.UUID  `json:"current_team_id"`
	PlayerID       *uuid.UUID `json:"player_id,omitempty"` // nil until used
	IsUsed         bool       `json:"is_used"`
	PickedAt       *time.Time `json:"picked_at,omitempty"`
}
