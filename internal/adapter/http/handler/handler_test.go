package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"live-bingo-engine/internal/core/domain"
	"live-bingo-engine/internal/core/ports"
	"live-bingo-engine/internal/core/ports/mocks"
	"live-bingo-engine/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type handlerTestDeps struct {
	router      *gin.Engine
	authSvc     *mocks.MockAuthService
	walletSvc   *mocks.MockWalletService
	coordinator *mocks.MockRoundCoordinator
	tokenSvc    *mocks.MockTokenService
	ctrl        *gomock.Controller
}

func setupRouter(t *testing.T) *handlerTestDeps {
	ctrl := gomock.NewController(t)
	d := &handlerTestDeps{
		authSvc:     mocks.NewMockAuthService(ctrl),
		walletSvc:   mocks.NewMockWalletService(ctrl),
		coordinator: mocks.NewMockRoundCoordinator(ctrl),
		tokenSvc:    mocks.NewMockTokenService(ctrl),
		ctrl:        ctrl,
	}
	d.router = SetupRouter(RouterDeps{
		AuthSvc:     d.authSvc,
		WalletSvc:   d.walletSvc,
		Coordinator: d.coordinator,
		TokenSvc:    d.tokenSvc,
		Logger:      zerolog.Nop(),
	})
	return d
}

// authorize wires the token mock to accept "Bearer test-token" for userID.
func (d *handlerTestDeps) authorize(userID uuid.UUID) {
	d.tokenSvc.EXPECT().Validate("test-token").Return(&ports.TokenClaims{
		UserID: userID,
		Phone:  "0912345678",
	}, nil).AnyTimes()
}

func doJSON(router *gin.Engine, method, path string, body any, token string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// ==================== Auth Tests ====================

func TestRegister_Success(t *testing.T) {
	d := setupRouter(t)
	defer d.ctrl.Finish()

	userID := uuid.New()
	d.authSvc.EXPECT().Register(gomock.Any(), "0912345678", "secret123").Return(&domain.User{
		ID:    userID,
		Phone: "0912345678",
	}, nil)

	w := doJSON(d.router, http.MethodPost, "/api/v1/auth/register", gin.H{
		"phone": "0912345678", "password": "secret123",
	}, "")

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), userID.String())
}

func TestRegister_MissingBody(t *testing.T) {
	d := setupRouter(t)
	defer d.ctrl.Finish()

	w := doJSON(d.router, http.MethodPost, "/api/v1/auth/register", gin.H{"phone": "0912345678"}, "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "VAL_003")
}

func TestLogin_Success(t *testing.T) {
	d := setupRouter(t)
	defer d.ctrl.Finish()

	expiry := time.Now().Add(time.Hour)
	d.authSvc.EXPECT().Login(gomock.Any(), "0912345678", "secret123").Return("jwt-token", expiry, nil)

	w := doJSON(d.router, http.MethodPost, "/api/v1/auth/login", gin.H{
		"phone": "0912345678", "password": "secret123",
	}, "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "jwt-token")
}

func TestLogin_InvalidCredentials(t *testing.T) {
	d := setupRouter(t)
	defer d.ctrl.Finish()

	d.authSvc.EXPECT().Login(gomock.Any(), "0912345678", "wrong-pass").
		Return("", time.Time{}, apperror.ErrInvalidCredentials())

	w := doJSON(d.router, http.MethodPost, "/api/v1/auth/login", gin.H{
		"phone": "0912345678", "password": "wrong-pass",
	}, "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "AUTH_001")
}

// ==================== Round Tests ====================

func TestJoinRound_Success(t *testing.T) {
	d := setupRouter(t)
	defer d.ctrl.Finish()

	userID := uuid.New()
	d.authorize(userID)

	roundID := uuid.New()
	d.coordinator.EXPECT().JoinRound(gomock.Any(), int64(2000)).Return(&domain.RoundSnapshot{
		RoundID:      roundID,
		Stake:        2000,
		Status:       domain.RoundStatusForming,
		TotalNumbers: 75,
	}, nil)

	w := doJSON(d.router, http.MethodGet, "/api/v1/rounds/2000", nil, "test-token")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), roundID.String())
	assert.Contains(t, w.Body.String(), "FORMING")
}

func TestJoinRound_InvalidStakeParam(t *testing.T) {
	d := setupRouter(t)
	defer d.ctrl.Finish()
	d.authorize(uuid.New())

	w := doJSON(d.router, http.MethodGet, "/api/v1/rounds/abc", nil, "test-token")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestJoinRound_UnknownTier(t *testing.T) {
	d := setupRouter(t)
	defer d.ctrl.Finish()
	d.authorize(uuid.New())

	d.coordinator.EXPECT().JoinRound(gomock.Any(), int64(999)).Return(nil, apperror.ErrInvalidStake(999))

	w := doJSON(d.router, http.MethodGet, "/api/v1/rounds/999", nil, "test-token")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "VAL_001")
}

func TestAllocateCard_Success(t *testing.T) {
	d := setupRouter(t)
	defer d.ctrl.Finish()

	userID := uuid.New()
	d.authorize(userID)

	roundID := uuid.New()
	d.coordinator.EXPECT().AllocateCard(gomock.Any(), int64(2000), userID, 7).Return(&domain.CardAllocation{
		RoundID:    roundID,
		UserID:     userID,
		CardNumber: 7,
	}, nil)

	w := doJSON(d.router, http.MethodPost, "/api/v1/rounds/2000/cards", gin.H{"card_number": 7}, "test-token")

	assert.Equal(t, http.StatusCreated, w.Code)

	var envelope struct {
		Data struct {
			RoundID    string `json:"round_id"`
			CardNumber int    `json:"card_number"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, roundID.String(), envelope.Data.RoundID)
	assert.Equal(t, 7, envelope.Data.CardNumber)
}

func TestAllocateCard_CardTaken(t *testing.T) {
	d := setupRouter(t)
	defer d.ctrl.Finish()

	userID := uuid.New()
	d.authorize(userID)

	d.coordinator.EXPECT().AllocateCard(gomock.Any(), int64(2000), userID, 7).
		Return(nil, apperror.ErrCardTaken(7))

	w := doJSON(d.router, http.MethodPost, "/api/v1/rounds/2000/cards", gin.H{"card_number": 7}, "test-token")

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "GAME_002")
}

func TestAllocateCard_Unauthorized(t *testing.T) {
	d := setupRouter(t)
	defer d.ctrl.Finish()

	w := doJSON(d.router, http.MethodPost, "/api/v1/rounds/2000/cards", gin.H{"card_number": 7}, "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCancelAllocation_Success(t *testing.T) {
	d := setupRouter(t)
	defer d.ctrl.Finish()

	userID := uuid.New()
	d.authorize(userID)

	d.coordinator.EXPECT().CancelAllocation(gomock.Any(), int64(2000), userID, 7).Return(nil)

	w := doJSON(d.router, http.MethodDelete, "/api/v1/rounds/2000/cards/7", nil, "test-token")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "refunded")
}

func TestClaimWin_Success(t *testing.T) {
	d := setupRouter(t)
	defer d.ctrl.Finish()

	userID := uuid.New()
	d.authorize(userID)

	d.coordinator.EXPECT().ClaimWin(gomock.Any(), int64(2000), userID, 7).Return(&domain.Winner{
		UserID:     userID,
		CardNumber: 7,
		Pattern:    domain.PatternRow,
		Prize:      3200,
	}, nil)

	w := doJSON(d.router, http.MethodPost, "/api/v1/rounds/2000/claim", gin.H{"card_number": 7}, "test-token")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "3200")
	assert.Contains(t, w.Body.String(), string(domain.PatternRow))
}

func TestClaimWin_Rejected(t *testing.T) {
	d := setupRouter(t)
	defer d.ctrl.Finish()

	userID := uuid.New()
	d.authorize(userID)

	d.coordinator.EXPECT().ClaimWin(gomock.Any(), int64(2000), userID, 7).
		Return(nil, apperror.ErrClaimRejected())

	w := doJSON(d.router, http.MethodPost, "/api/v1/rounds/2000/claim", gin.H{"card_number": 7}, "test-token")

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "GAME_007")
}

func TestRoundHistory(t *testing.T) {
	d := setupRouter(t)
	defer d.ctrl.Finish()
	d.authorize(uuid.New())

	roundID := uuid.New()
	d.coordinator.EXPECT().History(gomock.Any()).Return([]domain.RoundSnapshot{
		{RoundID: roundID, Stake: 2000, Status: domain.RoundStatusResolved},
	})

	w := doJSON(d.router, http.MethodGet, "/api/v1/rounds/history", nil, "test-token")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), roundID.String())
}

// ==================== Wallet Tests ====================

func TestGetBalance_Success(t *testing.T) {
	d := setupRouter(t)
	defer d.ctrl.Finish()

	userID := uuid.New()
	d.authorize(userID)

	d.walletSvc.EXPECT().GetBalance(gomock.Any(), userID).Return(&domain.Wallet{
		UserID:        userID,
		Balance:       4200,
		TotalEarnings: 10000,
	}, nil)

	w := doJSON(d.router, http.MethodGet, "/api/v1/wallet/balance", nil, "test-token")

	assert.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data struct {
			Balance       int64 `json:"balance"`
			TotalEarnings int64 `json:"total_earnings"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, int64(4200), envelope.Data.Balance)
	assert.Equal(t, int64(10000), envelope.Data.TotalEarnings)
}

func TestListTransactions_FiltersKind(t *testing.T) {
	d := setupRouter(t)
	defer d.ctrl.Finish()

	userID := uuid.New()
	d.authorize(userID)

	d.walletSvc.EXPECT().ListTransactions(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ any, params ports.LedgerListParams) ([]domain.LedgerEntry, int64, error) {
			assert.Equal(t, userID, params.UserID)
			require.NotNil(t, params.Kind)
			assert.Equal(t, domain.LedgerKindPayout, *params.Kind)
			return []domain.LedgerEntry{{
				ID:        uuid.New(),
				UserID:    userID,
				Kind:      domain.LedgerKindPayout,
				Amount:    3200,
				Status:    domain.LedgerStatusCompleted,
				CreatedAt: time.Now(),
			}}, 1, nil
		})

	w := doJSON(d.router, http.MethodGet, "/api/v1/wallet/transactions?kind=PAYOUT", nil, "test-token")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "PAYOUT")
}

func TestTopup_Success(t *testing.T) {
	d := setupRouter(t)
	defer d.ctrl.Finish()

	userID := uuid.New()
	d.authorize(userID)

	d.walletSvc.EXPECT().Topup(gomock.Any(), userID, int64(5000)).Return(&domain.LedgerEntry{
		ID:        uuid.New(),
		UserID:    userID,
		Kind:      domain.LedgerKindDeposit,
		Amount:    5000,
		Status:    domain.LedgerStatusCompleted,
		Reference: "TOPUP-abc-123",
		CreatedAt: time.Now(),
	}, nil)

	w := doJSON(d.router, http.MethodPost, "/api/v1/wallet/topup", gin.H{"amount": 5000}, "test-token")

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "TOPUP-abc-123")
}

func TestTopup_InvalidAmount(t *testing.T) {
	d := setupRouter(t)
	defer d.ctrl.Finish()
	d.authorize(uuid.New())

	w := doJSON(d.router, http.MethodPost, "/api/v1/wallet/topup", gin.H{"amount": -5}, "test-token")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// ==================== Health Tests ====================

func TestHealthCheck_NoCheckers(t *testing.T) {
	d := setupRouter(t)
	defer d.ctrl.Finish()

	w := doJSON(d.router, http.MethodGet, "/health", nil, "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}
