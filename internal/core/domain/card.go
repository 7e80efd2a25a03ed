package domain

import "github.com/google/uuid"

// Standard 5x5 bingo card layout. Column c draws from a disjoint range
// of width 15: B 1-15, I 16-30, N 31-45, G 46-60, O 61-75. The center
// cell is free and holds FreeCell.
const (
	GridSize     = 5
	ColumnRange  = 15
	MaxDrawValue = GridSize * ColumnRange // 75
	FreeCell     = 0
)

// CardGrid holds the numbers of one bingo card, column-major per the
// B/I/N/G/O convention: Cells[row][col].
type CardGrid [GridSize][GridSize]int

// Contains reports whether n appears on the card.
func (g CardGrid) Contains(n int) bool {
	if n == FreeCell {
		return false
	}
	// Each column covers a disjoint 15-wide range, so only one column
	// can hold n.
	col := (n - 1) / ColumnRange
	if col < 0 || col >= GridSize {
		return false
	}
	for row := 0; row < GridSize; row++ {
		if g[row][col] == n {
			return true
		}
	}
	return false
}

// Numbers returns all non-free cell values on the card.
func (g CardGrid) Numbers() []int {
	out := make([]int, 0, GridSize*GridSize-1)
	for row := 0; row < GridSize; row++ {
		for col := 0; col < GridSize; col++ {
			if g[row][col] != FreeCell {
				out = append(out, g[row][col])
			}
		}
	}
	return out
}

// CardAllocation binds a card number to a user within one round.
// Mutated only by the owning round actor. ID identifies this specific
// allocation event; re-selling the card number after a cancel produces
// a new allocation with a new ID.
type CardAllocation struct {
	ID          uuid.UUID `json:"id"`
	RoundID     uuid.UUID `json:"round_id"`
	UserID      uuid.UUID `json:"user_id"`
	CardNumber  int       `json:"card_number"`
	Grid        CardGrid  `json:"grid"`
	IsBlocked   bool      `json:"is_blocked"` // permanently excluded after a false claim
	IsWinner    bool      `json:"is_winner"`
	PurchaseRef string    `json:"-"` // ledger reference of the paired purchase entry
}
