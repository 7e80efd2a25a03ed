// Package engine implements the bingo round orchestration core: card
// grid generation, card allocation, the timed draw scheduler, win
// validation, the per-round actor state machine, and the registry that
// maps stake tiers to open rounds.
package engine

import (
	"math/rand"

	"live-bingo-engine/internal/core/domain"
)

// NewCardGrid generates a standard 5x5 bingo card. Column c holds five
// distinct numbers from its 15-wide range (B 1-15, I 16-30, N 31-45,
// G 46-60, O 61-75); the center cell is free. Column ranges are
// disjoint, so distinctness per column gives distinctness card-wide.
func NewCardGrid(rng *rand.Rand) domain.CardGrid {
	var grid domain.CardGrid
	for col := 0; col < domain.GridSize; col++ {
		base := col * domain.ColumnRange
		pool := make([]int, domain.ColumnRange)
		for i := range pool {
			pool[i] = base + i + 1
		}
		rng.Shuffle(len(pool), func(i, j int) {
			pool[i], pool[j] = pool[j], pool[i]
		})
		for row := 0; row < domain.GridSize; row++ {
			grid[row][col] = pool[row]
		}
	}
	grid[domain.GridSize/2][domain.GridSize/2] = domain.FreeCell
	return grid
}

// NewDrawSequence returns a random permutation of 1..MaxDrawValue. The
// sequence is fixed at round lock time and never mutated afterwards.
func NewDrawSequence(rng *rand.Rand) []int {
	seq := make([]int, domain.MaxDrawValue)
	for i := range seq {
		seq[i] = i + 1
	}
	rng.Shuffle(len(seq), func(i, j int) {
		seq[i], seq[j] = seq[j], seq[i]
	})
	return seq
}
