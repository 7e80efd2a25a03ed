package domain

import (
	"time"

	"github.com/google/uuid"
)

// RoundStatus represents the lifecycle state of a bingo round.
type RoundStatus string

const (
	RoundStatusForming  RoundStatus = "FORMING"
	RoundStatusLocking  RoundStatus = "LOCKING"
	RoundStatusDrawing  RoundStatus = "DRAWING"
	RoundStatusResolved RoundStatus = "RESOLVED"
)

// IsJoinable returns true if new players may still allocate cards.
func (s RoundStatus) IsJoinable() bool {
	return s == RoundStatusForming
}

// Winner identifies the single honored claim of a resolved round.
type Winner struct {
	UserID     uuid.UUID `json:"user_id"`
	CardNumber int       `json:"card_number"`
	Pattern    Pattern   `json:"pattern"`
	Prize      int64     `json:"prize"` // smallest currency unit
}

// Round is one bingo game instance for a stake tier. It is owned
// exclusively by its round actor; no other component mutates it.
type Round struct {
	ID           uuid.UUID   `json:"id"`
	Stake        int64       `json:"stake"` // price per card, smallest unit
	Status       RoundStatus `json:"status"`
	DrawSequence []int       `json:"-"` // shuffled 1..75, fixed at lock time
	DrawnCount   int         `json:"drawn_count"`
	Winner       *Winner     `json:"winner,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	StartedAt    *time.Time  `json:"started_at,omitempty"`
	EndedAt      *time.Time  `json:"ended_at,omitempty"`
}

// DrawnNumbers returns the prefix of the draw sequence revealed so far.
func (r *Round) DrawnNumbers() []int {
	return r.DrawSequence[:r.DrawnCount]
}

// RoundSnapshot is the read-only view of a round handed to clients
// joining a stake tier, and the archived form of a resolved round.
type RoundSnapshot struct {
	RoundID       uuid.UUID   `json:"round_id"`
	Stake         int64       `json:"stake"`
	Status        RoundStatus `json:"status"`
	PlayerCount   int         `json:"player_count"`
	OccupiedCards []int       `json:"occupied_cards"`
	DrawnNumbers  []int       `json:"drawn_numbers"`
	TotalNumbers  int         `json:"total_numbers"`
	Winner        *Winner     `json:"winner,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	EndedAt       *time.Time  `json:"ended_at,omitempty"`
}
