package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // wrapped internal error, never exposed to clients
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Validation (VAL) ----

func ErrInvalidStake(stake int64) *AppError {
	return New("VAL_001", fmt.Sprintf("No stake tier for amount %d", stake), http.StatusBadRequest)
}

func ErrInvalidCardNumber(n int) *AppError {
	return New("VAL_002", fmt.Sprintf("Card number %d is out of range", n), http.StatusBadRequest)
}

func ErrInvalidAmount() *AppError {
	return New("VAL_003", "Invalid amount", http.StatusBadRequest)
}

// Validation returns a VAL_003-style validation error with a custom message.
func Validation(message string) *AppError {
	return New("VAL_003", message, http.StatusBadRequest)
}

// ---- Round & Game Logic (GAME) ----

func ErrRoundNotJoinable() *AppError {
	return New("GAME_001", "Round is not joinable", http.StatusConflict)
}

func ErrCardTaken(n int) *AppError {
	return New("GAME_002", fmt.Sprintf("Card %d is already taken", n), http.StatusConflict)
}

func ErrCardLimitExceeded(limit int) *AppError {
	return New("GAME_003", fmt.Sprintf("Maximum %d cards allowed per round", limit), http.StatusConflict)
}

func ErrRoundResolved() *AppError {
	return New("GAME_004", "Round has already resolved", http.StatusConflict)
}

func ErrNotCardOwner() *AppError {
	return New("GAME_005", "Card belongs to another player", http.StatusForbidden)
}

func ErrCardBlocked() *AppError {
	return New("GAME_006", "Card is blocked after a false claim", http.StatusConflict)
}

func ErrClaimRejected() *AppError {
	return New("GAME_007", "No winning pattern on this card", http.StatusConflict)
}

func ErrClaimNotOpen() *AppError {
	return New("GAME_008", "Claims are only accepted while numbers are being drawn", http.StatusConflict)
}

// ---- Settlement (PAY) ----

func ErrInsufficientFunds() *AppError {
	return New("PAY_001", "Insufficient wallet balance", http.StatusPaymentRequired)
}

func ErrDuplicatePayout() *AppError {
	return New("PAY_002", "Round has already been paid out", http.StatusConflict)
}

func ErrRefundMismatch() *AppError {
	return New("PAY_003", "Refund amount does not match the original purchase", http.StatusBadRequest)
}

func ErrNotFound(entity string) *AppError {
	return New("PAY_004", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

// ---- Authentication (AUTH) ----

func ErrInvalidCredentials() *AppError {
	return New("AUTH_001", "Invalid credentials", http.StatusUnauthorized)
}

func ErrPhoneExists() *AppError {
	return New("AUTH_002", "Phone number already registered", http.StatusConflict)
}

func ErrInvalidToken() *AppError {
	return New("AUTH_003", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrUserSuspended() *AppError {
	return New("AUTH_004", "Account is suspended", http.StatusForbidden)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

func ErrSchedulerFailure(err error) *AppError {
	return Wrap("SYS_002", "Draw scheduler failure", http.StatusInternalServerError, err)
}

func ErrRateLimitExceeded() *AppError {
	return New("SYS_003", "Too many requests", http.StatusTooManyRequests)
}
