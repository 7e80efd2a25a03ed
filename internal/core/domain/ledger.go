package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// LedgerEntryKind represents the kind of wallet mutation.
type LedgerEntryKind string

const (
	LedgerKindPurchase LedgerEntryKind = "PURCHASE"
	LedgerKindRefund   LedgerEntryKind = "REFUND"
	LedgerKindPayout   LedgerEntryKind = "PAYOUT"
	LedgerKindDeposit  LedgerEntryKind = "DEPOSIT"
)

// LedgerEntryStatus represents the lifecycle state of a ledger entry.
type LedgerEntryStatus string

const (
	LedgerStatusPending   LedgerEntryStatus = "PENDING"
	LedgerStatusCompleted LedgerEntryStatus = "COMPLETED"
	LedgerStatusFailed    LedgerEntryStatus = "FAILED"
)

// LedgerEntry is one immutable economic event paired with a wallet
// balance mutation. The Reference doubles as the idempotency key: it is
// unique per logical event, so a retried settlement cannot post twice.
type LedgerEntry struct {
	ID         uuid.UUID         `json:"id"`
	Reference  string            `json:"reference"`
	UserID     uuid.UUID         `json:"user_id"`
	Kind       LedgerEntryKind   `json:"kind"`
	Amount     int64             `json:"amount"` // always >= 0; Kind carries the direction
	Status     LedgerEntryStatus `json:"status"`
	RoundID    uuid.UUID         `json:"round_id,omitempty"` // uuid.Nil for deposits
	CardNumber *int              `json:"card_number,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

// PurchaseReference builds the idempotency reference for a card
// purchase. Keyed by the allocation id, not (round, card): a card freed
// by a cancel and bought again is a new allocation with its own
// reference, so the second buyer's debit cannot be absorbed by the
// first buyer's entry.
func PurchaseReference(allocationID uuid.UUID) string {
	return fmt.Sprintf("CARD-%s", allocationID)
}

// RefundReference builds the idempotency reference for the refund of a
// cancelled allocation. Keyed to the same allocation as the purchase it
// reverses.
func RefundReference(allocationID uuid.UUID) string {
	return fmt.Sprintf("REFUND-%s", allocationID)
}

// PayoutReference builds the idempotency reference for a round payout.
// It is keyed by round only: a round pays out at most once.
func PayoutReference(roundID uuid.UUID) string {
	return fmt.Sprintf("WIN-%s", roundID)
}
