package postgres

import (
	"context"
	"errors"
	"fmt"

	"live-bingo-engine/internal/core/domain"
	"live-bingo-engine/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// LedgerRepo implements ports.LedgerRepository. The reference column
// carries a unique index; inserting a duplicate reference fails the
// enclosing transaction.
type LedgerRepo struct {
	pool Pool
}

// NewLedgerRepo creates a new LedgerRepo.
func NewLedgerRepo(pool Pool) *LedgerRepo {
	return &LedgerRepo{pool: pool}
}

// Create inserts a ledger entry within a transaction.
func (r *LedgerRepo) Create(ctx context.Context, tx pgx.Tx, e *domain.LedgerEntry) error {
	query := `INSERT INTO ledger_entries (id, reference, user_id, kind, amount, status, round_id, card_number, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := tx.Exec(ctx, query,
		e.ID, e.Reference, e.UserID, e.Kind, e.Amount,
		e.Status, e.RoundID, e.CardNumber, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

// GetByReference fetches a ledger entry by its idempotency reference.
// Returns (nil, nil) when no entry exists.
func (r *LedgerRepo) GetByReference(ctx context.Context, reference string) (*domain.LedgerEntry, error) {
	query := `SELECT id, reference, user_id, kind, amount, status, round_id, card_number, created_at
		FROM ledger_entries WHERE reference = $1`

	e := &domain.LedgerEntry{}
	err := r.pool.QueryRow(ctx, query, reference).Scan(
		&e.ID, &e.Reference, &e.UserID, &e.Kind, &e.Amount,
		&e.Status, &e.RoundID, &e.CardNumber, &e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get ledger entry by reference: %w", err)
	}
	return e, nil
}

// PayoutExists reports whether a completed payout entry already exists
// for the round. Called under the winner's wallet row lock.
func (r *LedgerRepo) PayoutExists(ctx context.Context, tx pgx.Tx, roundID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS (
		SELECT 1 FROM ledger_entries WHERE round_id = $1 AND kind = $2 AND status = $3
	)`

	var exists bool
	err := tx.QueryRow(ctx, query, roundID, domain.LedgerKindPayout, domain.LedgerStatusCompleted).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check payout exists: %w", err)
	}
	return exists, nil
}

// List returns a page of a user's ledger entries, newest first, with
// the total count for pagination.
func (r *LedgerRepo) List(ctx context.Context, params ports.LedgerListParams) ([]domain.LedgerEntry, int64, error) {
	where := `WHERE user_id = $1`
	args := []any{params.UserID}
	if params.Kind != nil {
		where += ` AND kind = $2`
		args = append(args, *params.Kind)
	}

	var total int64
	countQuery := `SELECT COUNT(*) FROM ledger_entries ` + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count ledger entries: %w", err)
	}

	offset := (params.Page - 1) * params.PageSize
	listQuery := fmt.Sprintf(
		`SELECT id, reference, user_id, kind, amount, status, round_id, card_number, created_at
		FROM ledger_entries %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		where, len(args)+1, len(args)+2,
	)
	args = append(args, params.PageSize, offset)

	rows, err := r.pool.Query(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		var e domain.LedgerEntry
		if err := rows.Scan(
			&e.ID, &e.Reference, &e.UserID, &e.Kind, &e.Amount,
			&e.Status, &e.RoundID, &e.CardNumber, &e.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan ledger entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate ledger entries: %w", err)
	}

	return entries, total, nil
}
