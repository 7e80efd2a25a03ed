package handler

import (
	"strconv"
	"time"

	"live-bingo-engine/internal/adapter/http/dto"
	"live-bingo-engine/internal/core/domain"
	"live-bingo-engine/internal/core/ports"
	"live-bingo-engine/pkg/apperror"
	"live-bingo-engine/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// WalletHandler handles player wallet endpoints.
type WalletHandler struct {
	walletSvc ports.WalletService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(walletSvc ports.WalletService) *WalletHandler {
	return &WalletHandler{walletSvc: walletSvc}
}

// GetBalance handles GET /api/v1/wallet/balance.
func (h *WalletHandler) GetBalance(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	wallet, err := h.walletSvc.GetBalance(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.WalletBalanceResponse{
		Balance:       wallet.Balance,
		TotalEarnings: wallet.TotalEarnings,
	})
}

// ListTransactions handles GET /api/v1/wallet/transactions.
func (h *WalletHandler) ListTransactions(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	params := ports.LedgerListParams{
		UserID:   userID,
		Page:     page,
		PageSize: pageSize,
	}
	if k := c.Query("kind"); k != "" {
		kind := domain.LedgerEntryKind(k)
		params.Kind = &kind
	}

	entries, total, err := h.walletSvc.ListTransactions(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.TransactionResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, toTransactionResponse(e))
	}

	totalPages := int(total) / params.PageSize
	if int(total)%params.PageSize != 0 {
		totalPages++
	}

	response.OK(c, dto.TransactionListResponse{
		Items:      items,
		Total:      total,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: totalPages,
	})
}

// Topup handles POST /api/v1/wallet/topup.
func (h *WalletHandler) Topup(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.TopupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	entry, err := h.walletSvc.Topup(c.Request.Context(), userID, req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toTransactionResponse(*entry))
}

func toTransactionResponse(e domain.LedgerEntry) dto.TransactionResponse {
	resp := dto.TransactionResponse{
		ID:         e.ID.String(),
		Reference:  e.Reference,
		Kind:       string(e.Kind),
		Amount:     e.Amount,
		Status:     string(e.Status),
		CardNumber: e.CardNumber,
		CreatedAt:  e.CreatedAt.UTC().Format(time.RFC3339),
	}
	if e.RoundID != uuid.Nil {
		resp.RoundID = e.RoundID.String()
	}
	return resp
}
