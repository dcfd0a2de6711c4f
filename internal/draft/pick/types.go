package pick

import (
	"github.com/google/uuid"
	"github.com/renegades-league/draftd/internal/models"
)

// MakePickRequest represents a request to bind a player to the current pick.
// TeamID is the authenticated caller's team, not a free choice.
type MakePickRequest struct {
	TeamID   uuid.UUID `json:"team_id"`
	PlayerID uuid.UUID `json:"player_id"`
}

// AssignPickRequest is the storage-level write: bind playerID to the pick
// slot pickID on behalf of teamID. The repository enforces the unused-slot
// and undrafted-player conditions at write time.
type AssignPickRequest struct {
	PickID   uuid.UUID `json:"pick_id"`
	PlayerID uuid.UUID `json:"player_id"`
	TeamID   uuid.UUID `json:"team_id"`
}

// TradePickRequest moves an unused slot to another team. Only CurrentTeamID
// changes; the slot keeps its place in the order, so turn resolution simply
// follows the new owner.
type TradePickRequest struct {
	PickID   uuid.UUID `json:"pick_id"`
	ToTeamID uuid.UUID `json:"to_team_id"`
}

// CurrentPick is the resolved on-the-clock slot plus the owning team's name
// (surfaced in NotYourTurnError).
type CurrentPick struct {
	models.DraftPick
	TeamName string `json:"team_name"`
}
