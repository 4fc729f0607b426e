package aadhaar

// FlagSkipStrategy positions the cursor past the "has email / has mobile"
// flag region that precedes the length-prefixed fields. The region is not
// publicly documented, so the strategy is swappable.
type FlagSkipStrategy interface {
	SkipFlags(buf []byte, cursor int) int
}

// HeuristicFlagSkip skips two bytes when the next byte looks like a flag
// value (0 to 3). Unverified against cards beyond the sample corpus.
type HeuristicFlagSkip struct{}

const flagRegionLength = 2

func (HeuristicFlagSkip) SkipFlags(buf []byte, cursor int) int {
	if cursor < len(buf) && buf[cursor] <= 3 {
		return min(cursor+flagRegionLength, len(buf))
	}
	return cursor
}

// NoFlagSkip assumes the fields start right after the version marker.
type NoFlagSkip struct{}

func (NoFlagSkip) SkipFlags(_ []byte, cursor int) int {
	return cursor
}

// FlagSkipStrategyByName resolves the names accepted in configuration.
func FlagSkipStrategyByName(name string) (FlagSkipStrategy, bool) {
	switch name {
	case "", "heuristic":
		return HeuristicFlagSkip{}, true
	case "none":
		return NoFlagSkip{}, true
	default:
		return nil, false
	}
}
