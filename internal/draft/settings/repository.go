package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sqlc-dev/pqtype"

	"github.com/renegades-league/draftd/internal/draft/outbox"
	"github.com/renegades-league/draftd/internal/models"
	"github.com/renegades-league/draftd/internal/sqlutil"
)

// ChangeRecorder captures row mutations for the realtime change feed.
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

// GetSettings returns the singleton settings row, or nil if none exists yet.
func (r *Repository) GetSettings(ctx context.Context) (*models.DraftSettings, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, league_size, roster_size, draft_type, pick_time_limit_seconds, season, draft_order
		FROM draft_settings
		LIMIT 1`)

	s, err := scanSettings(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get draft settings: %w", err)
	}
	return s, nil
}

func scanSettings(row pgx.Row) (*models.DraftSettings, error) {
	var (
		s         models.DraftSettings
		draftType string
		order     pqtype.NullRawMessage
	)
	if err := row.Scan(&s.ID, &s.LeagueSize, &s.RosterSize, &draftType,
		&s.PickTimeLimitSec, &s.Season, &order); err != nil {
		return nil, err
	}
	s.DraftType = models.DraftType(draftType)
	if order.Valid {
		if err := json.Unmarshal(order.RawMessage, &s.DraftOrder); err != nil {
			return nil, fmt.Errorf("failed to decode draft order: %w", err)
		}
	}
	return &s, nil
}

// ApplySettings upserts the singleton settings row and rebuilds the ledger
// in one transaction: all existing picks are deleted, every player's draft
// flags are cleared, and the freshly generated pick rows are inserted.
// Settings and ledger shape are coupled; there is no partial reset.
func (r *Repository) ApplySettings(ctx context.Context, s models.DraftSettings, picks []models.DraftPick) (*models.DraftSettings, error) {
	orderJSON, err := json.Marshal(s.DraftOrder)
	if err != nil {
		return nil, fmt.Errorf("failed to encode draft order: %w", err)
	}

	var applied *models.DraftSettings
	err = sqlutil.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			INSERT INTO draft_settings (id, league_size, roster_size, draft_type, pick_time_limit_seconds, season, draft_order)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (singleton) DO UPDATE SET
				league_size = EXCLUDED.league_size,
				roster_size = EXCLUDED.roster_size,
				draft_type = EXCLUDED.draft_type,
				pick_time_limit_seconds = EXCLUDED.pick_time_limit_seconds,
				season = EXCLUDED.season,
				draft_order = EXCLUDED.draft_order
			RETURNING id, league_size, roster_size, draft_type, pick_time_limit_seconds, season, draft_order`,
			s.ID, s.LeagueSize, s.RosterSize, string(s.DraftType),
			s.PickTimeLimitSec, s.Season,
			pqtype.NullRawMessage{RawMessage: orderJSON, Valid: len(orderJSON) > 0})

		stored, err := scanSettings(row)
		if err != nil {
			return fmt.Errorf("failed to upsert draft settings: %w", err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM draft_picks`); err != nil {
			return fmt.Errorf("failed to clear pick ledger: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			UPDATE players SET is_drafted = false, drafted_by_team_id = NULL
			WHERE is_drafted = true OR drafted_by_team_id IS NOT NULL`); err != nil {
			return fmt.Errorf("failed to reset player draft flags: %w", err)
		}

		if err := r.insertPicks(ctx, tx, picks); err != nil {
			return err
		}

		settingsJSON, err := json.Marshal(stored)
		if err != nil {
			return fmt.Errorf("failed to marshal settings change: %w", err)
		}
		if err := r.changes.Record(ctx, tx, outbox.Change{
			Table:     "draft_settings",
			EventType: outbox.EventUpdate,
			RowID:     stored.ID,
			New:       settingsJSON,
		}); err != nil {
			return err
		}

		applied = stored
		return nil
	})
	if err != nil {
		return nil, err
	}
	return applied, nil
}

func (r *Repository) insertPicks(ctx context.Context, tx pgx.Tx, picks []models.DraftPick) error {
	if len(picks) == 0 {
		return nil
	}

	rows := make([][]any, len(picks))
	for i, p := range picks {
		rows[i] = []any{p.ID, p.Round, p.PickNumber, p.OverallPick, p.OriginalTeamID, p.CurrentTeamID}
	}
	_, err := tx.CopyFrom(ctx,
		pgx.Identifier{"draft_picks"},
		[]string{"id", "round", "pick_number", "overall_pick", "original_team_id", "current_team_id"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("failed to batch insert draft picks: %w", err)
	}
	return nil
}
