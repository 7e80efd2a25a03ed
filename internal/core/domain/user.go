package domain

import (
	"time"

	"github.com/google/uuid"
)

// UserStatus represents the account state.
type UserStatus string

const (
	UserStatusActive    UserStatus = "ACTIVE"
	UserStatusSuspended UserStatus = "SUSPENDED"
)

// User is a registered player. The core receives an already
// authenticated user id; credentials live here only for the auth
// surface.
type User struct {
	ID           uuid.UUID  `json:"id"`
	Phone        string     `json:"phone"`
	PasswordHash string     `json:"-"`
	Status       UserStatus `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// IsActive returns true if the user may play.
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

// Wallet holds a player's balance in the smallest currency unit.
// Invariant: Balance >= 0; every mutation is paired with a ledger entry.
type Wallet struct {
	ID            uuid.UUID `json:"id"`
	UserID        uuid.UUID `json:"user_id"`
	Balance       int64     `json:"balance"`
	TotalEarnings int64     `json:"total_earnings"` // lifetime payout credits
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
