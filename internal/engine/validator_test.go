package engine

import (
	"testing"

	"live-bingo-engine/internal/core/domain"

	"github.com/stretchr/testify/assert"
)

// testGrid returns a fixed, valid card layout used across the
// validator tests. Row-major; center is the free cell.
func testGrid() domain.CardGrid {
	return domain.CardGrid{
		{1, 16, 31, 46, 61},
		{2, 17, 32, 47, 62},
		{3, 18, domain.FreeCell, 48, 63},
		{4, 19, 34, 49, 64},
		{5, 20, 35, 50, 65},
	}
}

func drawnSet(nums ...int) map[int]bool {
	out := make(map[int]bool, len(nums))
	for _, n := range nums {
		out[n] = true
	}
	return out
}

var allPatterns = []domain.Pattern{
	domain.PatternRow,
	domain.PatternColumn,
	domain.PatternDiagonal,
	domain.PatternCorners,
	domain.PatternFullCard,
}

func TestIsWinningCard_Row(t *testing.T) {
	p, ok := IsWinningCard(testGrid(), drawnSet(1, 16, 31, 46, 61), allPatterns)
	assert.True(t, ok)
	assert.Equal(t, domain.PatternRow, p)
}

func TestIsWinningCard_RowThroughFreeCell(t *testing.T) {
	// Middle row needs only four numbers; the free cell is always marked.
	p, ok := IsWinningCard(testGrid(), drawnSet(3, 18, 48, 63), allPatterns)
	assert.True(t, ok)
	assert.Equal(t, domain.PatternRow, p)
}

func TestIsWinningCard_Column(t *testing.T) {
	p, ok := IsWinningCard(testGrid(), drawnSet(16, 17, 18, 19, 20), allPatterns)
	assert.True(t, ok)
	assert.Equal(t, domain.PatternColumn, p)
}

func TestIsWinningCard_Diagonals(t *testing.T) {
	p, ok := IsWinningCard(testGrid(), drawnSet(1, 17, 49, 65), allPatterns)
	assert.True(t, ok)
	assert.Equal(t, domain.PatternDiagonal, p)

	p, ok = IsWinningCard(testGrid(), drawnSet(61, 47, 19, 5), allPatterns)
	assert.True(t, ok)
	assert.Equal(t, domain.PatternDiagonal, p)
}

func TestIsWinningCard_Corners(t *testing.T) {
	p, ok := IsWinningCard(testGrid(), drawnSet(1, 61, 5, 65), allPatterns)
	assert.True(t, ok)
	assert.Equal(t, domain.PatternCorners, p)
}

func TestIsWinningCard_FullCard(t *testing.T) {
	grid := testGrid()
	p, ok := IsWinningCard(grid, drawnSet(grid.Numbers()...), allPatterns)
	assert.True(t, ok)
	// Full card also satisfies rows; priority order returns row first.
	assert.Equal(t, domain.PatternRow, p)

	p, ok = IsWinningCard(grid, drawnSet(grid.Numbers()...), []domain.Pattern{domain.PatternFullCard})
	assert.True(t, ok)
	assert.Equal(t, domain.PatternFullCard, p)
}

func TestIsWinningCard_NoPattern(t *testing.T) {
	_, ok := IsWinningCard(testGrid(), drawnSet(1, 17, 48), allPatterns)
	assert.False(t, ok)
}

func TestIsWinningCard_MissingOneNumber(t *testing.T) {
	_, ok := IsWinningCard(testGrid(), drawnSet(1, 16, 31, 46), allPatterns)
	assert.False(t, ok)
}

func TestIsWinningCard_DisabledPatternDoesNotMatch(t *testing.T) {
	// A complete row does not win when only corners are recognized.
	_, ok := IsWinningCard(testGrid(), drawnSet(1, 16, 31, 46, 61), []domain.Pattern{domain.PatternCorners})
	assert.False(t, ok)
}

func TestIsWinningCard_PriorityOrder(t *testing.T) {
	// Drawn set satisfies both corners and the middle row; row is
	// checked first.
	p, ok := IsWinningCard(testGrid(), drawnSet(1, 61, 5, 65, 3, 18, 48, 63), allPatterns)
	assert.True(t, ok)
	assert.Equal(t, domain.PatternRow, p)
}
