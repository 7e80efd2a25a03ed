package domain

import "fmt"

// Pattern names a recognized win shape on a 5x5 card.
type Pattern string

const (
	PatternRow      Pattern = "row"
	PatternColumn   Pattern = "column"
	PatternDiagonal Pattern = "diagonal"
	PatternCorners  Pattern = "corners"
	PatternFullCard Pattern = "full_card"
)

// patternPriority is the fixed order in which patterns are checked.
// The first satisfied pattern wins regardless of configuration order.
var patternPriority = []Pattern{
	PatternRow,
	PatternColumn,
	PatternDiagonal,
	PatternCorners,
	PatternFullCard,
}

// ParsePatterns validates a configured pattern list and returns it in
// canonical priority order, deduplicated.
func ParsePatterns(names []string) ([]Pattern, error) {
	enabled := make(map[Pattern]bool, len(names))
	for _, n := range names {
		p := Pattern(n)
		switch p {
		case PatternRow, PatternColumn, PatternDiagonal, PatternCorners, PatternFullCard:
			enabled[p] = true
		default:
			return nil, fmt.Errorf("unknown win pattern: %q", n)
		}
	}
	if len(enabled) == 0 {
		return nil, fmt.Errorf("at least one win pattern must be configured")
	}
	out := make([]Pattern, 0, len(enabled))
	for _, p := range patternPriority {
		if enabled[p] {
			out = append(out, p)
		}
	}
	return out, nil
}
