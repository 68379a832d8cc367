package domain

// Board geometry constants shared by the rule engine and any display
// code that needs to reason about cell numbering.
const (
	TotalPathLength  = 52
	HomeStretchLen   = 6
	FinishStart      = 100
	FinishPosition   = FinishStart + HomeStretchLen - 1 // 105
	HomePosition     = -1
	MaxInactiveTurns = 5
	PityThreshold    = 4 // rollsWithoutSixWhenAllHome >= 4 forces a six
	ThreeSixesLimit  = 3
	TurnLimitSeconds = 30
)

// Start cell (entry point onto the main path) per color.
var Start = map[Color]int{
	ColorGreen:  1,
	ColorRed:    14,
	ColorBlue:   27,
	ColorYellow: 40,
}

// PreHome is the cell a piece must pass, or land on, before diverting
// into its home stretch on the next forward step.
var PreHome = map[Color]int{
	ColorGreen:  51,
	ColorRed:    12,
	ColorBlue:   25,
	ColorYellow: 38,
}

// Safe cells forbid captures; opposing pieces may stack there.
var Safe = map[int]bool{
	1:  true,
	9:  true,
	14: true,
	22: true,
	27: true,
	35: true,
	40: true,
	48: true,
}

// IsSafe reports whether a main-path cell is a safe spot.
func IsSafe(cell int) bool {
	return Safe[cell]
}
