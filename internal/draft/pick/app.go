package pick

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/renegades-league/draftd/internal/models"
)

// PickRepository defines what the pick app layer needs from storage.
// AssignPick must be atomic: either both the pick row and the player row are
// updated, or neither is. It returns ErrPickAlreadyUsed when the slot was
// taken between resolution and write, and ErrPlayerAlreadyDrafted or
// ErrPlayerIsKeeper when the player condition fails at write time.
type PickRepository interface {
	GetCurrentPick(ctx context.Context) (*CurrentPick, error)
	GetDraftPicks(ctx context.Context) ([]models.DraftPick, error)
	AssignPick(ctx context.Context, req AssignPickRequest) (*models.DraftPick, error)
	TradePick(ctx context.Context, req TradePickRequest) (*models.DraftPick, error)
}

// PlayerStore defines what the pick app needs from the player domain.
type PlayerStore interface {
	GetPlayer(ctx context.Context, id uuid.UUID) (*models.Player, error)
}

// KeeperStore reports whether a player is kept for a season.
type KeeperStore interface {
	IsKeeper(ctx context.Context, playerID uuid.UUID, season string) (bool, error)
}

// SettingsStore provides the active season for keeper scoping.
type SettingsStore interface {
	GetSettings(ctx context.Context) (*models.DraftSettings, error)
}

// App handles pick business logic.
type App struct {
	repo     PickRepository
	players  PlayerStore
	keepers  KeeperStore
	settings SettingsStore
}

// NewApp creates a new pick App.
func NewApp(repo PickRepository, players PlayerStore, keepers KeeperStore, settings SettingsStore) *App {
	return &App{
		repo:     repo,
		players:  players,
		keepers:  keepers,
		settings: settings,
	}
}

// MakePick binds playerID to the current pick slot on behalf of teamID.
//
// Preconditions are checked in order, each with a distinct failure mode:
// a current pick must exist, the caller must be on the clock, the player
// must be undrafted and not a keeper, and the slot must still be unused at
// the moment of the write. The last condition is enforced by the storage
// layer's conditional update, not by any client-side lock: when two callers
// race for the same slot exactly one write lands.
func (a *App) MakePick(ctx context.Context, req MakePickRequest) (*models.DraftPick, error) {
	if req.TeamID == uuid.Nil {
		return nil, fmt.Errorf("team_id is required")
	}
	if req.PlayerID == uuid.Nil {
		return nil, fmt.Errorf("player_id is required")
	}

	current, err := a.repo.GetCurrentPick(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve current pick: %w", err)
	}
	if current == nil {
		return nil, ErrDraftComplete
	}

	if current.CurrentTeamID != req.TeamID {
		return nil, &NotYourTurnError{OnClockTeam: current.TeamName}
	}

	player, err := a.players.GetPlayer(ctx, req.PlayerID)
	if err != nil {
		return nil, fmt.Errorf("failed to verify player status: %w", err)
	}
	if player.IsDrafted {
		return nil, ErrPlayerAlreadyDrafted
	}

	settings, err := a.settings.GetSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load draft settings: %w", err)
	}
	kept, err := a.keepers.IsKeeper(ctx, req.PlayerID, settings.Season)
	if err != nil {
		return nil, fmt.Errorf("failed to verify keeper status: %w", err)
	}
	if kept || player.IsKeeper {
		return nil, ErrPlayerIsKeeper
	}

	updated, err := a.repo.AssignPick(ctx, AssignPickRequest{
		PickID:   current.ID,
		PlayerID: req.PlayerID,
		TeamID:   current.CurrentTeamID,
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("pick_id", updated.ID.String()).
		Str("player_id", req.PlayerID.String()).
		Str("team_id", req.TeamID.String()).
		Int("overall_pick", updated.OverallPick).
		Msg("pick made")

	return updated, nil
}

// TradePick moves an unused slot's CurrentTeamID to another team.
// OriginalTeamID never changes, so the ledger keeps the trade history
// visible. Used slots cannot move.
func (a *App) TradePick(ctx context.Context, req TradePickRequest) (*models.DraftPick, error) {
	if req.PickID == uuid.Nil {
		return nil, fmt.Errorf("pick_id is required")
	}
	if req.ToTeamID == uuid.Nil {
		return nil, fmt.Errorf("to_team_id is required")
	}

	updated, err := a.repo.TradePick(ctx, req)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("pick_id", updated.ID.String()).
		Str("to_team_id", req.ToTeamID.String()).
		Int("overall_pick", updated.OverallPick).
		Msg("pick traded")

	return updated, nil
}

// GetDraftPicks returns the full ledger ordered by overall pick.
func (a *App) GetDraftPicks(ctx context.Context) ([]models.DraftPick, error) {
	picks, err := a.repo.GetDraftPicks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get draft picks: %w", err)
	}
	return picks, nil
}

// GetCurrentPick returns the on-the-clock slot, or nil when the draft is
// complete.
func (a *App) GetCurrentPick(ctx context.Context) (*CurrentPick, error) {
	current, err := a.repo.GetCurrentPick(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve current pick: %w", err)
	}
	return current, nil
}
