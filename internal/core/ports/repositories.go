package ports

import (
	"context"

	"live-bingo-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// UserRepository defines persistence operations for players.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByPhone(ctx context.Context, phone string) (*domain.User, error)
}

// WalletRepository defines persistence operations for player wallets.
// Methods accepting pgx.Tx are used inside transaction blocks for
// pessimistic locking: all mutations to one user's balance serialize on
// the wallet row, regardless of which round they originate from.
type WalletRepository interface {
	Create(ctx context.Context, wallet *domain.Wallet) error
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error)
	GetByUserIDForUpdate(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*domain.Wallet, error)
	UpdateBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, balance int64) error
	AddEarnings(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, amount int64) error
}

// LedgerRepository defines persistence for wallet ledger entries.
// Reference carries a unique constraint; inserting a duplicate
// reference fails the transaction, which is the durable idempotency
// layer underneath the Redis fast path.
type LedgerRepository interface {
	Create(ctx context.Context, tx pgx.Tx, entry *domain.LedgerEntry) error
	GetByReference(ctx context.Context, reference string) (*domain.LedgerEntry, error)
	// PayoutExists reports whether a completed payout entry already
	// exists for the round. Called under the wallet row lock.
	PayoutExists(ctx context.Context, tx pgx.Tx, roundID uuid.UUID) (bool, error)
	List(ctx context.Context, params LedgerListParams) ([]domain.LedgerEntry, int64, error)
}

// LedgerListParams holds filter + pagination for listing ledger entries.
type LedgerListParams struct {
	UserID   uuid.UUID
	Kind     *domain.LedgerEntryKind
	Page     int
	PageSize int
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
