package player

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/renegades-league/draftd/internal/models"
)

// PlayerRepository defines what the player app layer needs from storage.
type PlayerRepository interface {
	GetPlayer(ctx context.Context, id uuid.UUID) (*models.Player, error)
	GetPlayers(ctx context.Context) ([]models.Player, error)
	GetAvailablePlayers(ctx context.Context) ([]models.Player, error)
	UpsertPlayers(ctx context.Context, players []models.Player) (int, error)
}

// App handles player business logic.
type App struct {
	repo PlayerRepository
}

func NewApp(repo PlayerRepository) *App {
	return &App{repo: repo}
}

func (a *App) GetPlayer(ctx context.Context, id uuid.UUID) (*models.Player, error) {
	return a.repo.GetPlayer(ctx, id)
}

func (a *App) GetPlayers(ctx context.Context) ([]models.Player, error) {
	return a.repo.GetPlayers(ctx)
}

func (a *App) GetAvailablePlayers(ctx context.Context) ([]models.Player, error) {
	return a.repo.GetAvailablePlayers(ctx)
}

func (a *App) ImportPlayers(ctx context.Context, players []models.Player) (int, error) {
	for i := range players {
		if players[i].ID == uuid.Nil {
			players[i].ID = uuid.New()
		}
		if players[i].Name == "" {
			return 0, fmt.Errorf("player name is required")
		}
	}
	return a.repo.UpsertPlayers(ctx, players)
}
