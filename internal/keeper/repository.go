package keeper

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/renegades-league/draftd/internal/draft/outbox"
	"github.com/renegades-league/draftd/internal/models"
	"github.com/renegades-league/draftd/internal/sqlutil"
)

// ChangeRecorder captures row mutations in the same transaction as the
// writes they describe, for the realtime change feed.
type ChangeRecorder interface {
	Record(ctx context.Context, tx pgx.Tx, change outbox.Change) error
}

type Repository struct {
	pool    *pgxpool.Pool
	changes ChangeRecorder
}

func NewRepository(pool *pgxpool.Pool, changes ChangeRecorder) *Repository {
	return &Repository{
		pool:    pool,
		changes: changes,
	}
}

// IsKeeper reports whether the player is kept by any team for the season.
func (r *Repository) IsKeeper(ctx context.Context, playerID uuid.UUID, season string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM keepers WHERE player_id = $1 AND season = $2)`,
		playerID, season).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check keeper status: %w", err)
	}
	return exists, nil
}

func (r *Repository) GetKeepers(ctx context.Context, season string) ([]models.Keeper, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, team_id, player_id, season, created_at
		FROM keepers
		WHERE season = $1
		ORDER BY created_at`, season)
	if err != nil {
		return nil, fmt.Errorf("failed to list keepers: %w", err)
	}
	defer rows.Close()

	var keepers []models.Keeper
	for rows.Next() {
		var k models.Keeper
		if err := rows.Scan(&k.ID, &k.TeamID, &k.PlayerID, &k.Season, &k.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan keeper: %w", err)
		}
		keepers = append(keepers, k)
	}
	return keepers, rows.Err()
}

// CreateKeeper inserts the association and flags the player as kept, in one
// transaction so the pool exclusion takes effect with the row.
func (r *Repository) CreateKeeper(ctx context.Context, teamID, playerID uuid.UUID, season string) (*models.Keeper, error) {
	var k models.Keeper
	err := sqlutil.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO keepers (id, team_id, player_id, season)
			VALUES ($1, $2, $3, $4)
			RETURNING id, team_id, player_id, season, created_at`,
			uuid.New(), teamID, playerID, season).
			Scan(&k.ID, &k.TeamID, &k.PlayerID, &k.Season, &k.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to create keeper: %w", err)
		}

		if _, err := tx.Exec(ctx,
			`UPDATE players SET is_keeper = true WHERE id = $1`, playerID); err != nil {
			return fmt.Errorf("failed to flag keeper player: %w", err)
		}

		change, err := keeperFlagChange(playerID, true)
		if err != nil {
			return err
		}
		return r.changes.Record(ctx, tx, change)
	})
	if err != nil {
		return nil, err
	}
	return &k, nil
}

// DeleteKeeper removes the association and clears the player flag if no
// other season keeps the player.
func (r *Repository) DeleteKeeper(ctx context.Context, id uuid.UUID) error {
	return sqlutil.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var playerID uuid.UUID
		err := tx.QueryRow(ctx,
			`DELETE FROM keepers WHERE id = $1 RETURNING player_id`, id).Scan(&playerID)
		if err != nil {
			return fmt.Errorf("failed to delete keeper: %w", err)
		}

		var stillKept bool
		err = tx.QueryRow(ctx, `
			UPDATE players SET is_keeper = EXISTS (
				SELECT 1 FROM keepers WHERE player_id = $1
			) WHERE id = $1
			RETURNING is_keeper`, playerID).Scan(&stillKept)
		if err != nil {
			return fmt.Errorf("failed to update keeper flag: %w", err)
		}

		change, err := keeperFlagChange(playerID, stillKept)
		if err != nil {
			return err
		}
		return r.changes.Record(ctx, tx, change)
	})
}

// keeperFlagChange describes the players.is_keeper flip as a partial row,
// the same shape the pick writer emits, so client views merge it in place.
func keeperFlagChange(playerID uuid.UUID, isKeeper bool) (outbox.Change, error) {
	payload, err := json.Marshal(map[string]any{
		"id":        playerID,
		"is_keeper": isKeeper,
	})
	if err != nil {
		return outbox.Change{}, fmt.Errorf("failed to marshal keeper change: %w", err)
	}
	return outbox.Change{
		Table:     "players",
		EventType: outbox.EventUpdate,
		RowID:     playerID,
		New:       payload,
	}, nil
}
