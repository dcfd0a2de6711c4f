package gateway

import (
	"context"
	"fmt"

	"github.com/renegades-league/draftd/internal/models"
)

// StateProvider supplies full draft state for in-band client resync.
type StateProvider interface {
	Snapshot(ctx context.Context) (*StateSnapshot, error)
}

// StateSnapshot is the payload of a snapshot frame. Field names match the
// HTTP state endpoint so clients decode both the same way.
type StateSnapshot struct {
	Settings models.DraftSettings `json:"settings"`
	Picks    []models.DraftPick   `json:"picks"`
	Players  []models.Player      `json:"players"`
	Teams    []models.Team        `json:"teams"`
}

// PickLister, SettingsGetter, PlayerLister and TeamLister are the app-layer
// slices the provider aggregates.
type PickLister interface {
	GetDraftPicks(ctx context.Context) ([]models.DraftPick, error)
}

type SettingsGetter interface {
	GetSettings(ctx context.Context) (*models.DraftSettings, error)
}

type PlayerLister interface {
	GetPlayers(ctx context.Context) ([]models.Player, error)
}

type TeamLister interface {
	GetTeams(ctx context.Context) ([]models.Team, error)
}

// DraftStateProvider builds snapshots from the live app layer.
type DraftStateProvider struct {
	picks    PickLister
	settings SettingsGetter
	players  PlayerLister
	teams    TeamLister
}

func NewDraftStateProvider(picks PickLister, settings SettingsGetter, players PlayerLister, teams TeamLister) *DraftStateProvider {
	return &DraftStateProvider{
		picks:    picks,
		settings: settings,
		players:  players,
		teams:    teams,
	}
}

func (p *DraftStateProvider) Snapshot(ctx context.Context) (*StateSnapshot, error) {
	var snap StateSnapshot

	settings, err := p.settings.GetSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	if settings != nil {
		snap.Settings = *settings
	}
	if snap.Picks, err = p.picks.GetDraftPicks(ctx); err != nil {
		return nil, fmt.Errorf("failed to get draft picks: %w", err)
	}
	if snap.Players, err = p.players.GetPlayers(ctx); err != nil {
		return nil, fmt.Errorf("failed to get players: %w", err)
	}
	if snap.Teams, err = p.teams.GetTeams(ctx); err != nil {
		return nil, fmt.Errorf("failed to get teams: %w", err)
	}
	return &snap, nil
}
