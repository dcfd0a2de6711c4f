package settings

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/renegades-league/draftd/internal/draft/engine"
	"github.com/renegades-league/draftd/internal/models"
)

// SettingsRepository defines what the settings app needs from storage.
type SettingsRepository interface {
	GetSettings(ctx context.Context) (*models.DraftSettings, error)
	ApplySettings(ctx context.Context, s models.DraftSettings, picks []models.DraftPick) (*models.DraftSettings, error)
}

// TeamStore lists the league's teams for order generation.
type TeamStore interface {
	GetTeams(ctx context.Context) ([]models.Team, error)
}

// App handles draft settings business logic. Updating settings always
// resets the full pick ledger: shape and turn order are derived from the
// settings, so the two cannot be versioned independently.
type App struct {
	repo  SettingsRepository
	teams TeamStore
}

func NewApp(repo SettingsRepository, teams TeamStore) *App {
	return &App{
		repo:  repo,
		teams: teams,
	}
}

// GetSettings returns the singleton settings, or nil when uninitialized.
func (a *App) GetSettings(ctx context.Context) (*models.DraftSettings, error) {
	s, err := a.repo.GetSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get draft settings: %w", err)
	}
	return s, nil
}

// UpdateSettings validates and applies new settings, regenerating the pick
// ledger and clearing every player's draft flags in the same transaction.
func (a *App) UpdateSettings(ctx context.Context, s models.DraftSettings) (*models.DraftSettings, error) {
	if err := a.validate(s); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if s.ID == uuid.Nil {
		existing, err := a.repo.GetSettings(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load existing settings: %w", err)
		}
		if existing != nil {
			s.ID = existing.ID
		} else {
			s.ID = uuid.New()
		}
	}

	teams, err := a.teams.GetTeams(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}

	picks, err := engine.GeneratePicks(s, teams)
	if err != nil {
		return nil, fmt.Errorf("failed to generate pick ledger: %w", err)
	}

	applied, err := a.repo.ApplySettings(ctx, s, picks)
	if err != nil {
		return nil, fmt.Errorf("failed to apply draft settings: %w", err)
	}

	log.Info().
		Int("league_size", applied.LeagueSize).
		Int("roster_size", applied.RosterSize).
		Str("draft_type", string(applied.DraftType)).
		Int("picks_created", len(picks)).
		Msg("draft settings applied, ledger reset")

	return applied, nil
}

func (a *App) validate(s models.DraftSettings) error {
	if s.LeagueSize < 1 {
		return fmt.Errorf("league_size must be at least 1")
	}
	if s.RosterSize < 1 {
		return fmt.Errorf("roster_size must be at least 1")
	}
	if s.PickTimeLimitSec < 0 {
		return fmt.Errorf("pick_time_limit_seconds must not be negative")
	}
	switch s.DraftType {
	case models.DraftTypeSnake, models.DraftTypeLinear, models.DraftTypeManual:
	default:
		return fmt.Errorf("unsupported draft type: %s", s.DraftType)
	}
	if s.Season == "" {
		return fmt.Errorf("season is required")
	}
	return nil
}
