package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"live-bingo-engine/internal/core/domain"
	"live-bingo-engine/internal/core/ports"
	"live-bingo-engine/internal/metrics"
	"live-bingo-engine/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const idempotencyTTL = 24 * time.Hour

// SettlementServiceImpl implements ports.SettlementLedger on top of a
// PostgreSQL wallet store with a Redis idempotency fast path.
//
// Idempotency is two-layered: a Redis cache of completed entries keyed
// by ledger reference, backed by the reference unique constraint in the
// ledger table. Per-user serialization comes from the wallet row lock
// (SELECT ... FOR UPDATE): two settlements against the same user queue
// on the row regardless of which round issued them.
type SettlementServiceImpl struct {
	walletRepo ports.WalletRepository
	ledgerRepo ports.LedgerRepository
	idempCache ports.IdempotencyCache
	transactor ports.DBTransactor
	log        zerolog.Logger
}

// NewSettlementService creates a new SettlementServiceImpl.
func NewSettlementService(
	walletRepo ports.WalletRepository,
	ledgerRepo ports.LedgerRepository,
	idempCache ports.IdempotencyCache,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *SettlementServiceImpl {
	return &SettlementServiceImpl{
		walletRepo: walletRepo,
		ledgerRepo: ledgerRepo,
		idempCache: idempCache,
		transactor: transactor,
		log:        log,
	}
}

// Purchase atomically debits the card price and records a completed
// purchase entry. Fails with no balance change on insufficient funds.
// The idempotency reference is scoped to allocationID, so a retry of
// the same allocation replays its entry while a re-sale of the card
// settles as a fresh purchase.
func (s *SettlementServiceImpl) Purchase(ctx context.Context, userID uuid.UUID, amount int64, roundID, allocationID uuid.UUID, cardNumber int) (*domain.LedgerEntry, error) {
	start := time.Now()
	if amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	reference := domain.PurchaseReference(allocationID)

	// Layer 1: Redis idempotency check
	if entry, hit := s.cachedEntry(ctx, reference); hit {
		return entry, nil
	}

	// Layer 2: DB idempotency check
	existing, err := s.ledgerRepo.GetByReference(ctx, reference)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("db idempotency check: %w", err))
	}
	if existing != nil {
		return existing, nil
	}

	// Begin database transaction
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	// Lock & get wallet
	wallet, err := s.walletRepo.GetByUserIDForUpdate(ctx, dbTx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}

	// Business rule: sufficient funds
	if wallet.Balance < amount {
		metrics.ObserveSettlement("purchase", "failed", start)
		return nil, apperror.ErrInsufficientFunds()
	}

	entry := &domain.LedgerEntry{
		ID:         uuid.New(),
		Reference:  reference,
		UserID:     userID,
		Kind:       domain.LedgerKindPurchase,
		Amount:     amount,
		Status:     domain.LedgerStatusCompleted,
		RoundID:    roundID,
		CardNumber: &cardNumber,
		CreatedAt:  time.Now().UTC(),
	}

	// Persist: debit wallet
	if err := s.walletRepo.UpdateBalance(ctx, dbTx, wallet.ID, wallet.Balance-amount); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update balance: %w", err))
	}

	// Persist: ledger entry (unique reference constraint)
	if err := s.ledgerRepo.Create(ctx, dbTx, entry); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create ledger entry: %w", err))
	}

	// Commit
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.cacheEntry(ctx, reference, entry)
	metrics.ObserveSettlement("purchase", "completed", start)

	s.log.Info().
		Str("reference", reference).
		Str("user_id", userID.String()).
		Int64("amount", amount).
		Msg("purchase settled")

	return entry, nil
}

// Refund atomically credits back a cancelled allocation. The amount
// must equal the original purchase amount for the same allocation.
func (s *SettlementServiceImpl) Refund(ctx context.Context, userID uuid.UUID, amount int64, roundID, allocationID uuid.UUID, cardNumber int) (*domain.LedgerEntry, error) {
	start := time.Now()
	reference := domain.RefundReference(allocationID)

	// Layer 1: Redis idempotency check
	if entry, hit := s.cachedEntry(ctx, reference); hit {
		return entry, nil
	}

	// Layer 2: DB idempotency check
	existing, err := s.ledgerRepo.GetByReference(ctx, reference)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("db idempotency check: %w", err))
	}
	if existing != nil {
		return existing, nil
	}

	// The refund must mirror the allocation's completed purchase by the
	// same user.
	original, err := s.ledgerRepo.GetByReference(ctx, domain.PurchaseReference(allocationID))
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find original purchase: %w", err))
	}
	if original == nil {
		return nil, apperror.ErrNotFound("original purchase")
	}
	if original.UserID != userID || original.Amount != amount {
		return nil, apperror.ErrRefundMismatch()
	}

	// Begin database transaction
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	// Lock & get wallet
	wallet, err := s.walletRepo.GetByUserIDForUpdate(ctx, dbTx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}

	entry := &domain.LedgerEntry{
		ID:         uuid.New(),
		Reference:  reference,
		UserID:     userID,
		Kind:       domain.LedgerKindRefund,
		Amount:     amount,
		Status:     domain.LedgerStatusCompleted,
		RoundID:    roundID,
		CardNumber: &cardNumber,
		CreatedAt:  time.Now().UTC(),
	}

	// Persist: credit wallet
	if err := s.walletRepo.UpdateBalance(ctx, dbTx, wallet.ID, wallet.Balance+amount); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update balance: %w", err))
	}

	// Persist: ledger entry
	if err := s.ledgerRepo.Create(ctx, dbTx, entry); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create ledger entry: %w", err))
	}

	// Commit
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.cacheEntry(ctx, reference, entry)
	metrics.ObserveSettlement("refund", "completed", start)

	s.log.Info().
		Str("reference", reference).
		Str("user_id", userID.String()).
		Int64("amount", amount).
		Msg("refund settled")

	return entry, nil
}

// Payout atomically credits the prize and records a completed payout
// entry. Idempotent per round: a second payout for a round that already
// has a completed one is rejected.
func (s *SettlementServiceImpl) Payout(ctx context.Context, userID uuid.UUID, amount int64, roundID uuid.UUID) (*domain.LedgerEntry, error) {
	start := time.Now()
	if amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	reference := domain.PayoutReference(roundID)

	// Layer 1: Redis check. A cached payout means the round was
	// already paid; a retried payout is rejected, not replayed.
	if _, hit := s.cachedEntry(ctx, reference); hit {
		return nil, apperror.ErrDuplicatePayout()
	}

	// Begin database transaction
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	// Lock & get wallet first; the payout-exists check runs under the
	// same transaction so concurrent payouts serialize on the row.
	wallet, err := s.walletRepo.GetByUserIDForUpdate(ctx, dbTx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}

	exists, err := s.ledgerRepo.PayoutExists(ctx, dbTx, roundID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("check payout exists: %w", err))
	}
	if exists {
		metrics.ObserveSettlement("payout", "failed", start)
		return nil, apperror.ErrDuplicatePayout()
	}

	entry := &domain.LedgerEntry{
		ID:        uuid.New(),
		Reference: reference,
		UserID:    userID,
		Kind:      domain.LedgerKindPayout,
		Amount:    amount,
		Status:    domain.LedgerStatusCompleted,
		RoundID:   roundID,
		CreatedAt: time.Now().UTC(),
	}

	// Persist: credit wallet
	if err := s.walletRepo.UpdateBalance(ctx, dbTx, wallet.ID, wallet.Balance+amount); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update balance: %w", err))
	}

	// Persist: lifetime earnings counter
	if err := s.walletRepo.AddEarnings(ctx, dbTx, wallet.ID, amount); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("add earnings: %w", err))
	}

	// Persist: ledger entry
	if err := s.ledgerRepo.Create(ctx, dbTx, entry); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create ledger entry: %w", err))
	}

	// Commit
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.cacheEntry(ctx, reference, entry)
	metrics.ObserveSettlement("payout", "completed", start)

	s.log.Info().
		Str("reference", reference).
		Str("user_id", userID.String()).
		Int64("prize", amount).
		Msg("payout settled")

	return entry, nil
}

// Deposit credits external funds to the wallet with a completed
// deposit entry.
func (s *SettlementServiceImpl) Deposit(ctx context.Context, userID uuid.UUID, amount int64) (*domain.LedgerEntry, error) {
	start := time.Now()
	if amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	now := time.Now().UTC()
	reference := fmt.Sprintf("TOPUP-%s-%d", userID.String()[:8], now.UnixMilli())

	// Begin database transaction
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	// Lock & get wallet
	wallet, err := s.walletRepo.GetByUserIDForUpdate(ctx, dbTx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}

	entry := &domain.LedgerEntry{
		ID:        uuid.New(),
		Reference: reference,
		UserID:    userID,
		Kind:      domain.LedgerKindDeposit,
		Amount:    amount,
		Status:    domain.LedgerStatusCompleted,
		CreatedAt: now,
	}

	// Persist: credit wallet
	if err := s.walletRepo.UpdateBalance(ctx, dbTx, wallet.ID, wallet.Balance+amount); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update balance: %w", err))
	}

	// Persist: ledger entry
	if err := s.ledgerRepo.Create(ctx, dbTx, entry); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create ledger entry: %w", err))
	}

	// Commit
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	metrics.ObserveSettlement("deposit", "completed", start)

	s.log.Info().
		Str("reference", reference).
		Str("user_id", userID.String()).
		Int64("amount", amount).
		Msg("deposit settled")

	return entry, nil
}

// cachedEntry returns the cached completed entry for reference, if any.
// Cache errors fall through to the DB layer.
func (s *SettlementServiceImpl) cachedEntry(ctx context.Context, reference string) (*domain.LedgerEntry, bool) {
	cached, err := s.idempCache.Get(ctx, reference)
	if err != nil {
		s.log.Warn().Err(err).Str("reference", reference).Msg("redis idempotency check failed, falling through to DB")
		return nil, false
	}
	if cached == nil {
		return nil, false
	}
	entry := &domain.LedgerEntry{}
	if err := json.Unmarshal(cached, entry); err != nil {
		s.log.Warn().Err(err).Str("reference", reference).Msg("corrupt cached ledger entry, falling through to DB")
		return nil, false
	}
	return entry, true
}

// cacheEntry stores the completed entry in Redis (best-effort).
func (s *SettlementServiceImpl) cacheEntry(ctx context.Context, reference string, entry *domain.LedgerEntry) {
	data, err := json.Marshal(entry)
	if err != nil {
		s.log.Warn().Err(err).Str("reference", reference).Msg("marshal ledger entry for cache failed")
		return
	}
	if err := s.idempCache.Set(ctx, reference, data, idempotencyTTL); err != nil {
		s.log.Warn().Err(err).Str("reference", reference).Msg("failed to cache ledger entry in redis")
	}
}
