package service

import (
	"context"
	"fmt"

	"live-bingo-engine/internal/core/domain"
	"live-bingo-engine/internal/core/ports"
	"live-bingo-engine/pkg/apperror"

	"github.com/google/uuid"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// WalletServiceImpl implements ports.WalletService. Balance mutations
// go through the settlement ledger; this service only reads wallet
// state and forwards topups.
type WalletServiceImpl struct {
	walletRepo ports.WalletRepository
	ledgerRepo ports.LedgerRepository
	settlement ports.SettlementLedger
}

// NewWalletService creates a new WalletServiceImpl.
func NewWalletService(
	walletRepo ports.WalletRepository,
	ledgerRepo ports.LedgerRepository,
	settlement ports.SettlementLedger,
) *WalletServiceImpl {
	return &WalletServiceImpl{
		walletRepo: walletRepo,
		ledgerRepo: ledgerRepo,
		settlement: settlement,
	}
}

// GetBalance returns the player's wallet.
func (s *WalletServiceImpl) GetBalance(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	wallet, err := s.walletRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}
	return wallet, nil
}

// ListTransactions returns a page of the player's ledger entries.
func (s *WalletServiceImpl) ListTransactions(ctx context.Context, params ports.LedgerListParams) ([]domain.LedgerEntry, int64, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 {
		params.PageSize = defaultPageSize
	}
	if params.PageSize > maxPageSize {
		params.PageSize = maxPageSize
	}

	entries, total, err := s.ledgerRepo.List(ctx, params)
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("list ledger entries: %w", err))
	}
	return entries, total, nil
}

// Topup credits external funds to the player's wallet.
func (s *WalletServiceImpl) Topup(ctx context.Context, userID uuid.UUID, amount int64) (*domain.LedgerEntry, error) {
	return s.settlement.Deposit(ctx, userID, amount)
}
