package engine

import "ludo/internal/domain"

// MoveOutcome reports what MovePiece did, for the Room Actor to shape
// broadcasts and turn-log entries around.
type MoveOutcome struct {
	Applied  bool
	Captured bool
	Finished bool
	BonusTurn bool
	GameWon  bool
}

// MovePiece applies a move of pieceID for playerID using the current
// dice value, then runs post-move turn arbitration (spec §4.1
// "Post-move turn arbitration"). If pieceID is not in game.Movable,
// or it is not playerID's turn, this is a no-op (spec §7).
func MovePiece(game *domain.Game, playerID string, pieceID int) MoveOutcome {
	current := game.Current()
	if current == nil || current.ID != playerID {
		return MoveOutcome{}
	}
	if game.Dice == nil {
		return MoveOutcome{}
	}
	if !containsID(game.Movable, pieceID) {
		return MoveOutcome{}
	}

	piece := current.Piece(pieceID)
	if piece == nil {
		return MoveOutcome{}
	}

	dice := *game.Dice
	newPos, newState, ok := computeTarget(current.Color, *piece, dice)
	if !ok {
		return MoveOutcome{}
	}

	piece.Position = newPos
	piece.State = newState

	captured := applyCapture(game, current, newPos)
	finished := newState == domain.PieceFinished

	outcome := MoveOutcome{Applied: true, Captured: captured, Finished: finished}

	if finished && current.AllPiecesFinished() {
		current.HasFinished = true
		declareWinner(game, current.ID)
		outcome.GameWon = true
		return outcome
	}

	if dice == 6 || captured || finished {
		game.ClearRoll()
		game.TurnSecondsLeft = domain.TurnLimitSeconds
		outcome.BonusTurn = true
		return outcome
	}

	AdvanceSeat(game)
	return outcome
}

func containsID(ids []int, target int) bool {
	for _, id := range ids {
		if id == target {
			return true
		}
	}
	return false
}

// AdvanceSeat moves CurrentSeat to the next player still in play,
// resetting that seat's per-turn counters (spec §4.1 "Advance seat").
// If no player remains in play, the game is declared Finished with no
// winner.
func AdvanceSeat(game *domain.Game) {
	n := len(game.Players)
	if n == 0 {
		return
	}

	for step := 1; step <= n; step++ {
		next := (game.CurrentSeat + step) % n
		player := game.Players[next]
		if player.InPlay() {
			game.CurrentSeat = next
			player.ConsecutiveSixes = 0
			game.ClearRoll()
			game.TurnSecondsLeft = domain.TurnLimitSeconds
			return
		}
	}

	game.Status = domain.StatusFinished
	game.ClearRoll()
}

// declareWinner marks the game Finished with the given winner.
func declareWinner(game *domain.Game, winnerID string) {
	game.Winner = winnerID
	game.Status = domain.StatusFinished
	game.ClearRoll()
}

// RemovePlayer marks a player removed (used by Leave and by
// inactivity forfeiture) and applies the win-by-attrition rule: if
// exactly one in-play player remains, they win immediately (spec
// §4.1 "Win-by-attrition").
func RemovePlayer(game *domain.Game, playerID string) {
	seat := game.SeatOf(playerID)
	if seat < 0 {
		return
	}
	player := game.Players[seat]
	if player.IsRemoved {
		return // idempotent: a second LEAVE is a no-op (spec §8)
	}
	player.IsRemoved = true

	if game.Status != domain.StatusPlaying {
		return
	}

	remaining := game.ActivePlayers()
	if len(remaining) == 1 {
		declareWinner(game, remaining[0].ID)
		return
	}
	if len(remaining) == 0 {
		game.Status = domain.StatusFinished
		game.ClearRoll()
		return
	}

	if game.CurrentSeat == seat {
		AdvanceSeat(game)
	}
}

// HandleMissedTurn is invoked by the Turn Controller when the
// countdown reaches zero (spec §4.2). It increments the current
// player's inactivity counter; at MaxInactiveTurns the seat is
// forfeited as-if LEAVE, otherwise the seat simply advances.
// Returns whether the player was forfeited.
func HandleMissedTurn(game *domain.Game) (forfeited bool) {
	current := game.Current()
	if current == nil {
		return false
	}

	current.InactiveTurns++
	if current.InactiveTurns >= domain.MaxInactiveTurns {
		RemovePlayer(game, current.ID)
		return true
	}

	AdvanceSeat(game)
	return false
}
