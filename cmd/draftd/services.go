package main

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/renegades-league/draftd/internal/draft/outbox"
	"github.com/renegades-league/draftd/internal/draft/pick"
	"github.com/renegades-league/draftd/internal/draft/settings"
	"github.com/renegades-league/draftd/internal/keeper"
	"github.com/renegades-league/draftd/internal/player"
	"github.com/renegades-league/draftd/internal/teams"
)

type Services struct {
	Picks    *pick.App
	Settings *settings.App
	Teams    *teams.App
	Players  *player.App
	Keepers  *keeper.App
	Outbox   *outbox.Repository
}

func setupServices(pool *pgxpool.Pool) *Services {
	// Database layer → repository layer → app layer. Every write that must
	// reach clients goes through the outbox repository inside the writer's
	// transaction.
	outboxRepo := outbox.NewRepository(pool)

	teamsApp := teams.NewApp(teams.NewRepository(pool))
	playersApp := player.NewApp(player.NewRepository(pool))
	keepersApp := keeper.NewApp(keeper.NewRepository(pool, outboxRepo))
	settingsApp := settings.NewApp(settings.NewRepository(pool, outboxRepo), teamsApp)
	picksApp := pick.NewApp(pick.NewRepository(pool, outboxRepo), playersApp, keepersApp, settingsApp)

	return &Services{
		Picks:    picksApp,
		Settings: settingsApp,
		Teams:    teamsApp,
		Players:  playersApp,
		Keepers:  keepersApp,
		Outbox:   outboxRepo,
	}
}
