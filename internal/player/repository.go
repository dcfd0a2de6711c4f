package player

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/renegades-league/draftd/internal/models"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const playerColumns = `id, name, position, nba_team, points, rebounds, assists, steals, blocks,
	three_pointers_made, turnovers, field_goal_pct, free_throw_pct, games_played,
	is_drafted, drafted_by_team_id, is_keeper, created_at`

func scanPlayer(row pgx.Row) (*models.Player, error) {
	var p models.Player
	err := row.Scan(&p.ID, &p.Name, &p.Position, &p.NBATeam,
		&p.Points, &p.Rebounds, &p.Assists, &p.Steals, &p.Blocks,
		&p.ThreePointers, &p.Turnovers, &p.FieldGoalPct, &p.FreeThrowPct, &p.GamesPlayed,
		&p.IsDrafted, &p.DraftedByTeamID, &p.IsKeeper, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repository) GetPlayer(ctx context.Context, id uuid.UUID) (*models.Player, error) {
	p, err := scanPlayer(r.pool.QueryRow(ctx,
		`SELECT `+playerColumns+` FROM players WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("player %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	return p, nil
}

func (r *Repository) GetPlayers(ctx context.Context) ([]models.Player, error) {
	return r.queryPlayers(ctx, `SELECT `+playerColumns+` FROM players ORDER BY name`)
}

// GetAvailablePlayers returns the draftable pool: neither drafted nor kept.
func (r *Repository) GetAvailablePlayers(ctx context.Context) ([]models.Player, error) {
	return r.queryPlayers(ctx, `
		SELECT `+playerColumns+` FROM players
		WHERE is_drafted = false AND is_keeper = false
		ORDER BY points DESC, name`)
}

func (r *Repository) queryPlayers(ctx context.Context, query string, args ...any) ([]models.Player, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query players: %w", err)
	}
	defer rows.Close()

	var players []models.Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		players = append(players, *p)
	}
	return players, rows.Err()
}

// UpsertPlayers bulk-writes player season stat lines, used by the seed tool
// and stat refreshes. Draft flags are preserved on conflict.
func (r *Repository) UpsertPlayers(ctx context.Context, players []models.Player) (int, error) {
	batch := &pgx.Batch{}
	for _, p := range players {
		batch.Queue(`
			INSERT INTO players (id, name, position, nba_team, points, rebounds, assists, steals, blocks,
				three_pointers_made, turnovers, field_goal_pct, free_throw_pct, games_played)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
			ON CONFLICT (name, nba_team) DO UPDATE SET
				position = EXCLUDED.position,
				points = EXCLUDED.points,
				rebounds = EXCLUDED.rebounds,
				assists = EXCLUDED.assists,
				steals = EXCLUDED.steals,
				blocks = EXCLUDED.blocks,
				three_pointers_made = EXCLUDED.three_pointers_made,
				turnovers = EXCLUDED.turnovers,
				field_goal_pct = EXCLUDED.field_goal_pct,
				free_throw_pct = EXCLUDED.free_throw_pct,
				games_played = EXCLUDED.games_played`,
			p.ID, p.Name, p.Position, p.NBATeam, p.Points, p.Rebounds, p.Assists, p.Steals, p.Blocks,
			p.ThreePointers, p.Turnovers, p.FieldGoalPct, p.FreeThrowPct, p.GamesPlayed)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range players {
		if _, err := results.Exec(); err != nil {
			return 0, fmt.Errorf("failed to upsert player: %w", err)
		}
	}
	return len(players), nil
}
