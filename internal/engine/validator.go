package engine

import "live-bingo-engine/internal/core/domain"

// IsWinningCard reports the first pattern from patterns (already in
// canonical priority order) satisfied by the card given the drawn
// numbers. The free cell always counts as marked. Pure function; the
// actor calls it with the drawn set at the moment the claim is
// processed.
func IsWinningCard(grid domain.CardGrid, drawn map[int]bool, patterns []domain.Pattern) (domain.Pattern, bool) {
	var marks [domain.GridSize][domain.GridSize]bool
	for row := 0; row < domain.GridSize; row++ {
		for col := 0; col < domain.GridSize; col++ {
			n := grid[row][col]
			marks[row][col] = n == domain.FreeCell || drawn[n]
		}
	}

	for _, p := range patterns {
		if patternSatisfied(marks, p) {
			return p, true
		}
	}
	return "", false
}

func patternSatisfied(marks [domain.GridSize][domain.GridSize]bool, p domain.Pattern) bool {
	switch p {
	case domain.PatternRow:
		for row := 0; row < domain.GridSize; row++ {
			if lineMarked(marks, row, 0, 0, 1) {
				return true
			}
		}
	case domain.PatternColumn:
		for col := 0; col < domain.GridSize; col++ {
			if lineMarked(marks, 0, col, 1, 0) {
				return true
			}
		}
	case domain.PatternDiagonal:
		if lineMarked(marks, 0, 0, 1, 1) {
			return true
		}
		return lineMarked(marks, 0, domain.GridSize-1, 1, -1)
	case domain.PatternCorners:
		last := domain.GridSize - 1
		return marks[0][0] && marks[0][last] && marks[last][0] && marks[last][last]
	case domain.PatternFullCard:
		for row := 0; row < domain.GridSize; row++ {
			for col := 0; col < domain.GridSize; col++ {
				if !marks[row][col] {
					return false
				}
			}
		}
		return true
	}
	return false
}

// lineMarked walks GridSize cells from (row, col) stepping by
// (dRow, dCol) and reports whether all are marked.
func lineMarked(marks [domain.GridSize][domain.GridSize]bool, row, col, dRow, dCol int) bool {
	for i := 0; i < domain.GridSize; i++ {
		if !marks[row][col] {
			return false
		}
		row += dRow
		col += dCol
	}
	return true
}
