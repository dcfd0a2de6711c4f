package models

import (
	"github.com/google/uuid"
)

// DraftType defines how the turn order is generated.
type DraftType string

const (
	DraftTypeSnake  DraftType = "snake"
	DraftTypeLinear DraftType = "linear"
	DraftTypeManual DraftType = "manual"
)

// DraftSettings is the league-wide singleton configuration. Changing it
// resets the entire pick ledger; settings and ledger shape are coupled.
type DraftSettings struct {
	ID               uuid.UUID   `json:"id"`
	LeagueSize       int         `json:"league_size"` // number of teams
	RosterSize       int         `json:"roster_size"` // number of rounds
	DraftType        DraftType   `json:"draft_type"`
	PickTimeLimitSec int         `json:"pick_time_limit_seconds"`
	Season           string      `json:"season"`
	DraftOrder       []uuid.UUID `json:"draft_order,omitempty"` // team IDs, slot 1 first
}

// TotalPicks returns the ledger size implied by the settings.
func (s DraftSettings) TotalPicks() int {
	return s.LeagueSize * s.RosterSize
}

// DraftStats is the derived projection recomputed from ledger + player pool.
type DraftStats struct {
	TotalPicks       int `json:"total_picks"`
	CompletedPicks   int `json:"completed_picks"`
	AvailablePlayers int `json:"available_players"`
	Progress         int `json:"progress"` // 0..100
}
