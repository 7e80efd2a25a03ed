package ports

import (
	"context"
	"time"

	"live-bingo-engine/internal/core/domain"

	"github.com/google/uuid"
)

// SettlementLedger performs atomic wallet mutations paired with ledger
// entries. Every operation either applies both the balance change and
// the entry, or neither (fail-closed).
type SettlementLedger interface {
	// Purchase debits amount and records a completed purchase entry.
	// Idempotent per allocationID; fails with no balance change on
	// insufficient funds.
	Purchase(ctx context.Context, userID uuid.UUID, amount int64, roundID, allocationID uuid.UUID, cardNumber int) (*domain.LedgerEntry, error)
	// Refund credits back a cancelled allocation. amount must equal the
	// original purchase amount for allocationID.
	Refund(ctx context.Context, userID uuid.UUID, amount int64, roundID, allocationID uuid.UUID, cardNumber int) (*domain.LedgerEntry, error)
	// Payout credits the prize. Idempotent per round: a second payout
	// for a round that already has a completed one is rejected.
	Payout(ctx context.Context, userID uuid.UUID, amount int64, roundID uuid.UUID) (*domain.LedgerEntry, error)
	// Deposit credits external funds (topup path).
	Deposit(ctx context.Context, userID uuid.UUID, amount int64) (*domain.LedgerEntry, error)
}

// EventPublisher is the publish-to-room primitive the round engine
// emits state changes through. Implementations fan the event out to
// every participant of the round; delivery is best-effort.
type EventPublisher interface {
	PublishToRound(ctx context.Context, roundID uuid.UUID, event domain.RoundEvent) error
}

// RoundCoordinator is the inbound boundary of the round engine, as seen
// by the HTTP surface. The stake identifies the tier; the engine routes
// to the single open round for it.
type RoundCoordinator interface {
	JoinRound(ctx context.Context, stake int64) (*domain.RoundSnapshot, error)
	AllocateCard(ctx context.Context, stake int64, userID uuid.UUID, cardNumber int) (*domain.CardAllocation, error)
	CancelAllocation(ctx context.Context, stake int64, userID uuid.UUID, cardNumber int) error
	ClaimWin(ctx context.Context, stake int64, userID uuid.UUID, cardNumber int) (*domain.Winner, error)
	History(ctx context.Context) []domain.RoundSnapshot
}

// HashService handles password hashing (Argon2id).
type HashService interface {
	Hash(password string) (string, error)
	Verify(password string, hash string) (bool, error)
}

// TokenService handles JWT token operations.
type TokenService interface {
	Generate(userID uuid.UUID, phone string) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	UserID uuid.UUID
	Phone  string
}

// IdempotencyCache is the Redis-layer settlement result cache (fast
// path). The ledger reference unique constraint remains the durable
// layer.
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // cached entry JSON or nil
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// AuthService defines authentication business logic.
type AuthService interface {
	Register(ctx context.Context, phone, password string) (*domain.User, error)
	Login(ctx context.Context, phone, password string) (string, time.Time, error) // token, expiry
}

// WalletService defines the player-facing wallet surface.
type WalletService interface {
	GetBalance(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error)
	ListTransactions(ctx context.Context, params LedgerListParams) ([]domain.LedgerEntry, int64, error)
	Topup(ctx context.Context, userID uuid.UUID, amount int64) (*domain.LedgerEntry, error)
}
