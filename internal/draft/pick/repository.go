package pick

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
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

const pickColumns = `id, round, pick_number, overall_pick, original_team_id, current_team_id, player_id, is_used, picked_at`

func scanPick(row pgx.Row) (*models.DraftPick, error) {
	var p models.DraftPick
	err := row.Scan(&p.ID, &p.Round, &p.PickNumber, &p.OverallPick,
		&p.OriginalTeamID, &p.CurrentTeamID, &p.PlayerID, &p.IsUsed, &p.PickedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetCurrentPick resolves the lowest-overall unused slot, joined with the
// owning team's name. Returns nil when the draft is complete.
func (r *Repository) GetCurrentPick(ctx context.Context) (*CurrentPick, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT dp.id, dp.round, dp.pick_number, dp.overall_pick,
		       dp.original_team_id, dp.current_team_id, dp.player_id,
		       dp.is_used, dp.picked_at, t.name
		FROM draft_picks dp
		JOIN teams t ON t.id = dp.current_team_id
		WHERE dp.is_used = false
		ORDER BY dp.overall_pick
		LIMIT 1`)

	var cp CurrentPick
	err := row.Scan(&cp.ID, &cp.Round, &cp.PickNumber, &cp.OverallPick,
		&cp.OriginalTeamID, &cp.CurrentTeamID, &cp.PlayerID, &cp.IsUsed, &cp.PickedAt, &cp.TeamName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get current pick: %w", err)
	}
	return &cp, nil
}

// GetDraftPicks returns the full ledger in overall-pick order.
func (r *Repository) GetDraftPicks(ctx context.Context) ([]models.DraftPick, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+pickColumns+` FROM draft_picks ORDER BY overall_pick`)
	if err != nil {
		return nil, fmt.Errorf("failed to get draft picks: %w", err)
	}
	defer rows.Close()

	var picks []models.DraftPick
	for rows.Next() {
		p, err := scanPick(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan draft pick: %w", err)
		}
		picks = append(picks, *p)
	}
	return picks, rows.Err()
}

// AssignPick binds the player to the pick slot and flags the player drafted
// in a single transaction. Both conditional updates re-check their guard at
// write time, so a caller racing on a stale snapshot loses cleanly here
// rather than double-assigning. A unique index on draft_picks.player_id
// backs the same guarantee at the constraint level.
func (r *Repository) AssignPick(ctx context.Context, req AssignPickRequest) (*models.DraftPick, error) {
	var updated *models.DraftPick

	err := sqlutil.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			UPDATE draft_picks
			SET player_id = $2, is_used = true, picked_at = now()
			WHERE id = $1 AND is_used = false
			RETURNING `+pickColumns,
			req.PickID, req.PlayerID)

		p, err := scanPick(row)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrPickAlreadyUsed
		}
		if err != nil {
			return r.mapConstraintError(err)
		}

		tag, err := tx.Exec(ctx, `
			UPDATE players
			SET is_drafted = true, drafted_by_team_id = $2
			WHERE id = $1 AND is_drafted = false AND is_keeper = false`,
			req.PlayerID, req.TeamID)
		if err != nil {
			return fmt.Errorf("failed to update player status: %w", err)
		}
		if tag.RowsAffected() == 0 {
			// Rolling back the pick update; report why the player write lost.
			var isKeeper bool
			if err := tx.QueryRow(ctx,
				`SELECT is_keeper FROM players WHERE id = $1`, req.PlayerID).Scan(&isKeeper); err != nil {
				return fmt.Errorf("failed to verify player status: %w", err)
			}
			if isKeeper {
				return ErrPlayerIsKeeper
			}
			return ErrPlayerAlreadyDrafted
		}

		if err := r.recordAssignment(ctx, tx, p, req); err != nil {
			return err
		}

		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// TradePick reassigns an unused slot to another team. The conditional
// update refuses to move a used pick, so a trade racing a pick for the same
// slot loses cleanly.
func (r *Repository) TradePick(ctx context.Context, req TradePickRequest) (*models.DraftPick, error) {
	var updated *models.DraftPick

	err := sqlutil.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			UPDATE draft_picks
			SET current_team_id = $2
			WHERE id = $1 AND is_used = false
			RETURNING `+pickColumns,
			req.PickID, req.ToTeamID)

		p, err := scanPick(row)
		if errors.Is(err, pgx.ErrNoRows) {
			var exists bool
			if err := tx.QueryRow(ctx,
				`SELECT EXISTS (SELECT 1 FROM draft_picks WHERE id = $1)`, req.PickID).Scan(&exists); err != nil {
				return fmt.Errorf("failed to verify pick: %w", err)
			}
			if !exists {
				return ErrPickNotFound
			}
			return ErrPickAlreadyUsed
		}
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23503" {
				return ErrTeamNotFound
			}
			return fmt.Errorf("failed to trade pick: %w", err)
		}

		if err := r.recordPickChange(ctx, tx, p); err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *Repository) recordPickChange(ctx context.Context, tx pgx.Tx, p *models.DraftPick) error {
	pickJSON, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal pick change: %w", err)
	}
	return r.changes.Record(ctx, tx, outbox.Change{
		Table:     "draft_picks",
		EventType: outbox.EventUpdate,
		RowID:     p.ID,
		New:       pickJSON,
	})
}

func (r *Repository) recordAssignment(ctx context.Context, tx pgx.Tx, p *models.DraftPick, req AssignPickRequest) error {
	if err := r.recordPickChange(ctx, tx, p); err != nil {
		return err
	}

	playerChange, err := json.Marshal(map[string]any{
		"id":                 req.PlayerID,
		"is_drafted":         true,
		"drafted_by_team_id": req.TeamID,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal player change: %w", err)
	}
	return r.changes.Record(ctx, tx, outbox.Change{
		Table:     "players",
		EventType: outbox.EventUpdate,
		RowID:     req.PlayerID,
		New:       playerChange,
	})
}

// mapConstraintError converts a unique violation on the player binding into
// the typed already-drafted error.
func (r *Repository) mapConstraintError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrPlayerAlreadyDrafted
	}
	return fmt.Errorf("failed to assign pick: %w", err)
}
