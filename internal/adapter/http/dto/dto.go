package dto

import "live-bingo-engine/internal/core/domain"

// RegisterRequest is the request body for player registration.
type RegisterRequest struct {
	Phone    string `json:"phone" binding:"required"`
	Password string `json:"password" binding:"required,min=6,max=128"`
}

// LoginRequest is the request body for player login.
type LoginRequest struct {
	Phone    string `json:"phone" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RegisterResponse is the response body for successful registration.
type RegisterResponse struct {
	UserID string `json:"user_id"`
	Phone  string `json:"phone"`
}

// LoginResponse is the response body for successful login.
type LoginResponse struct {
	Token  string `json:"token"`
	Expiry int64  `json:"expiry"` // Unix timestamp
}

// AllocateCardRequest is the request body for picking a card.
type AllocateCardRequest struct {
	CardNumber int `json:"card_number" binding:"required,gt=0"`
}

// ClaimRequest is the request body for claiming a win.
type ClaimRequest struct {
	CardNumber int `json:"card_number" binding:"required,gt=0"`
}

// CardResponse is the response body for a successful allocation.
type CardResponse struct {
	RoundID    string          `json:"round_id"`
	CardNumber int             `json:"card_number"`
	Grid       domain.CardGrid `json:"grid"`
}

// WinnerResponse is the response body for an honored claim.
type WinnerResponse struct {
	UserID     string `json:"user_id"`
	CardNumber int    `json:"card_number"`
	Pattern    string `json:"pattern"`
	Prize      int64  `json:"prize"`
}

// TopupRequest is the request body for wallet topup.
type TopupRequest struct {
	Amount int64 `json:"amount" binding:"required,gt=0"`
}

// WalletBalanceResponse is the response for balance query.
type WalletBalanceResponse struct {
	Balance       int64 `json:"balance"`
	TotalEarnings int64 `json:"total_earnings"`
}

// TransactionResponse is the response body for one ledger entry.
type TransactionResponse struct {
	ID         string `json:"id"`
	Reference  string `json:"reference"`
	Kind       string `json:"kind"`
	Amount     int64  `json:"amount"`
	Status     string `json:"status"`
	RoundID    string `json:"round_id,omitempty"`
	CardNumber *int   `json:"card_number,omitempty"`
	CreatedAt  string `json:"created_at"`
}

// TransactionListResponse wraps a paginated ledger entry list.
type TransactionListResponse struct {
	Items      []TransactionResponse `json:"items"`
	Total      int64                 `json:"total"`
	Page       int                   `json:"page"`
	PageSize   int                   `json:"page_size"`
	TotalPages int                   `json:"total_pages"`
}
