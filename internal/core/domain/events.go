package domain

import "github.com/google/uuid"

// RoundEvent is a state-change notification broadcast to every
// participant of a round. Transport framing is the publisher's concern.
type RoundEvent interface {
	EventType() string
}

// CardSelectedEvent is emitted when an allocation succeeds.
type CardSelectedEvent struct {
	CardNumber  int       `json:"card_number"`
	UserID      uuid.UUID `json:"user_id"`
	PlayerCount int       `json:"player_count"`
}

func (CardSelectedEvent) EventType() string { return "cardSelected" }

// RoundLockedEvent is emitted when the round stops accepting new
// players and the pre-draw countdown starts.
type RoundLockedEvent struct {
	CountdownSeconds int `json:"countdown_seconds"`
}

func (RoundLockedEvent) EventType() string { return "roundLocked" }

// NumberCalledEvent is emitted for each drawn number.
type NumberCalledEvent struct {
	Number     int `json:"number"`
	DrawnCount int `json:"drawn_count"`
	Total      int `json:"total"`
}

func (NumberCalledEvent) EventType() string { return "numberCalled" }

// ClaimRejectedEvent is emitted when a claim fails validation; the
// claiming card is blocked for the remainder of the round.
type ClaimRejectedEvent struct {
	UserID     uuid.UUID `json:"user_id"`
	CardNumber int       `json:"card_number"`
}

func (ClaimRejectedEvent) EventType() string { return "claimRejected" }

// RoundResolvedEvent is emitted exactly once, when the round reaches
// its terminal state. Winner fields are empty when the draw sequence
// was exhausted without a valid claim.
type RoundResolvedEvent struct {
	WinnerUserID *uuid.UUID `json:"winner_user_id,omitempty"`
	CardNumber   *int       `json:"card_number,omitempty"`
	Prize        *int64     `json:"prize,omitempty"`
	Pattern      *Pattern   `json:"pattern,omitempty"`
}

func (RoundResolvedEvent) EventType() string { return "roundResolved" }
