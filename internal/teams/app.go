package teams

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/renegades-league/draftd/internal/models"
)

// TeamRepository defines what the teams app layer needs from storage.
type TeamRepository interface {
	GetTeams(ctx context.Context) ([]models.Team, error)
	GetTeam(ctx context.Context, id uuid.UUID) (*models.Team, error)
	CreateTeam(ctx context.Context, name string, ownerEmail *string) (*models.Team, error)
}

// App handles team business logic.
type App struct {
	repo TeamRepository
}

func NewApp(repo TeamRepository) *App {
	return &App{repo: repo}
}

func (a *App) GetTeams(ctx context.Context) ([]models.Team, error) {
	return a.repo.GetTeams(ctx)
}

func (a *App) GetTeam(ctx context.Context, id uuid.UUID) (*models.Team, error) {
	return a.repo.GetTeam(ctx, id)
}

func (a *App) CreateTeam(ctx context.Context, name string, ownerEmail *string) (*models.Team, error) {
	if name == "" {
		return nil, fmt.Errorf("team name is required")
	}
	return a.repo.CreateTeam(ctx, name, ownerEmail)
}
