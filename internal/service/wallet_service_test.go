package service

import (
	"context"
	"testing"

	"live-bingo-engine/internal/core/domain"
	"live-bingo-engine/internal/core/ports"
	"live-bingo-engine/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type walletTestDeps struct {
	svc        *WalletServiceImpl
	walletRepo *mocks.MockWalletRepository
	ledgerRepo *mocks.MockLedgerRepository
	settlement *mocks.MockSettlementLedger
	ctrl       *gomock.Controller
}

func setupWalletService(t *testing.T) *walletTestDeps {
	ctrl := gomock.NewController(t)
	d := &walletTestDeps{
		walletRepo: mocks.NewMockWalletRepository(ctrl),
		ledgerRepo: mocks.NewMockLedgerRepository(ctrl),
		settlement: mocks.NewMockSettlementLedger(ctrl),
		ctrl:       ctrl,
	}
	d.svc = NewWalletService(d.walletRepo, d.ledgerRepo, d.settlement)
	return d
}

func TestWalletService_GetBalance_Success(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()

	d.walletRepo.EXPECT().GetByUserID(ctx, userID).Return(&domain.Wallet{
		UserID:  userID,
		Balance: 4200,
	}, nil)

	wallet, err := d.svc.GetBalance(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(4200), wallet.Balance)
}

func TestWalletService_GetBalance_NotFound(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()

	d.walletRepo.EXPECT().GetByUserID(ctx, userID).Return(nil, nil)

	_, err := d.svc.GetBalance(ctx, userID)
	assertCode(t, err, "PAY_004")
}

func TestWalletService_ListTransactions_ClampsPaging(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()

	d.ledgerRepo.EXPECT().List(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, params ports.LedgerListParams) ([]domain.LedgerEntry, int64, error) {
			assert.Equal(t, 1, params.Page)
			assert.Equal(t, maxPageSize, params.PageSize)
			return []domain.LedgerEntry{{UserID: userID}}, 1, nil
		})

	entries, total, err := d.svc.ListTransactions(ctx, ports.LedgerListParams{
		UserID:   userID,
		Page:     0,
		PageSize: 5000,
	})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, int64(1), total)
}

func TestWalletService_ListTransactions_DefaultPageSize(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()

	d.ledgerRepo.EXPECT().List(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, params ports.LedgerListParams) ([]domain.LedgerEntry, int64, error) {
			assert.Equal(t, defaultPageSize, params.PageSize)
			return nil, 0, nil
		})

	_, _, err := d.svc.ListTransactions(ctx, ports.LedgerListParams{UserID: uuid.New()})
	require.NoError(t, err)
}

func TestWalletService_Topup_Delegates(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()

	d.settlement.EXPECT().Deposit(ctx, userID, int64(5000)).Return(&domain.LedgerEntry{
		UserID: userID,
		Kind:   domain.LedgerKindDeposit,
		Amount: 5000,
	}, nil)

	entry, err := d.svc.Topup(ctx, userID, 5000)
	require.NoError(t, err)
	assert.Equal(t, domain.LedgerKindDeposit, entry.Kind)
}
