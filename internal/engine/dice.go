package engine

import (
	"ludo/internal/domain"
	"ludo/internal/ports"
)

// InitiateRoll sets IsRolling, per spec §4.1 "Dice": only the current
// player may start a roll, and only when no dice value is pending.
// Returns whether the roll was actually initiated.
func InitiateRoll(game *domain.Game, playerID string) bool {
	current := game.Current()
	if current == nil || current.ID != playerID {
		return false
	}
	if game.Status != domain.StatusPlaying {
		return false
	}
	if game.Dice != nil || game.IsRolling {
		return false
	}
	game.IsRolling = true
	return true
}

// RollOutcome describes what CompleteRoll produced, for the Turn
// Controller to decide on further delayed follow-ups (spec §4.2).
type RollOutcome struct {
	Value           int
	ThreeSixesForfeit bool
	NoLegalMove     bool
}

// CompleteRoll consumes IsRolling and produces a dice value via rng,
// applying the pity-six and three-sixes rules (spec §4.1 "Dice").
// It does not advance the seat; that is the caller's responsibility
// once the Turn Controller's display delay has elapsed.
func CompleteRoll(game *domain.Game, rng ports.Random) RollOutcome {
	current := game.Current()
	game.IsRolling = false

	value := rollValue(current, rng)

	updatePityCounter(current, value)

	if updateConsecutiveSixes(current, value) {
		// Third consecutive six: forfeit the roll entirely.
		game.Dice = nil
		game.Movable = nil
		return RollOutcome{Value: value, ThreeSixesForfeit: true}
	}

	game.Dice = &value
	game.Movable = engineMovableIDs(current, value)

	if len(game.Movable) == 0 {
		return RollOutcome{Value: value, NoLegalMove: true}
	}
	return RollOutcome{Value: value}
}

func rollValue(current *domain.Player, rng ports.Random) int {
	if current.AllPiecesHome() && current.RollsWithoutSixWhenAllHome >= domain.PityThreshold {
		return 6
	}
	return rng.IntInRange(1, 6)
}

func updatePityCounter(current *domain.Player, value int) {
	if value == 6 {
		current.RollsWithoutSixWhenAllHome = 0
		return
	}
	if current.AllPiecesHome() {
		current.RollsWithoutSixWhenAllHome++
	}
}

// updateConsecutiveSixes advances the consecutive-sixes counter and
// reports whether this roll is the third consecutive six.
func updateConsecutiveSixes(current *domain.Player, value int) bool {
	if value != 6 {
		current.ConsecutiveSixes = 0
		return false
	}
	current.ConsecutiveSixes++
	return current.ConsecutiveSixes >= domain.ThreeSixesLimit
}

func engineMovableIDs(current *domain.Player, value int) []int {
	ids := MovableIDs(current, value)
	if ids == nil {
		return []int{}
	}
	return ids
}
