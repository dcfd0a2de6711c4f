package models

import (
	"time"

	"github.com/google/uuid"
)

// Player represents an NBA player with one season stat line.
// A player is draft-eligible iff !IsDrafted && !IsKeeper.
type Player struct {
	ID              uuid.UUID  `json:"id"`
	Name            string     `json:"name"`
	Position        string     `json:"position"`
	NBATeam         string     `json:"nba_team"`
	Points          float64    `json:"points"`
	Rebounds        float64    `json:"rebounds"`
	Assists         float64    `json:"assists"`
	Steals          float64    `json:"steals"`
	Blocks          float64    `json:"blocks"`
	ThreePointers   float64    `json:"three_pointers_made"`
	Turnovers       float64    `json:"turnovers"`
	FieldGoalPct    float64    `json:"field_goal_pct"`
	FreeThrowPct    float64    `json:"free_throw_pct"`
	GamesPlayed     int        `json:"games_played"`
	IsDrafted       bool       `json:"is_drafted"`
	DraftedByTeamID *uuid.UUID `json:"drafted_by_team_id,omitempty"`
	IsKeeper        bool       `json:"is_keeper"`
	CreatedAt       time.Time  `json:"created_at"`
}

// Eligible reports whether the player can be taken by a draft pick.
func (p *Player) Eligible() bool {
	return !p.IsDrafted && !p.IsKeeper
}
