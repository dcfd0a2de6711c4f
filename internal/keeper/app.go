package keeper

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/renegades-league/draftd/internal/models"
)

// KeeperRepository defines what the keeper app layer needs from storage.
type KeeperRepository interface {
	IsKeeper(ctx context.Context, playerID uuid.UUID, season string) (bool, error)
	GetKeepers(ctx context.Context, season string) ([]models.Keeper, error)
	CreateKeeper(ctx context.Context, teamID, playerID uuid.UUID, season string) (*models.Keeper, error)
	DeleteKeeper(ctx context.Context, id uuid.UUID) error
}

// App handles keeper business logic.
type App struct {
	repo KeeperRepository
}

func NewApp(repo KeeperRepository) *App {
	return &App{repo: repo}
}

func (a *App) IsKeeper(ctx context.Context, playerID uuid.UUID, season string) (bool, error) {
	return a.repo.IsKeeper(ctx, playerID, season)
}

func (a *App) GetKeepers(ctx context.Context, season string) ([]models.Keeper, error) {
	return a.repo.GetKeepers(ctx, season)
}

func (a *App) CreateKeeper(ctx context.Context, teamID, playerID uuid.UUID, season string) (*models.Keeper, error) {
	if teamID == uuid.Nil || playerID == uuid.Nil {
		return nil, fmt.Errorf("team_id and player_id are required")
	}
	if season == "" {
		return nil, fmt.Errorf("season is required")
	}
	return a.repo.CreateKeeper(ctx, teamID, playerID, season)
}

func (a *App) DeleteKeeper(ctx context.Context, id uuid.UUID) error {
	return a.repo.DeleteKeeper(ctx, id)
}
