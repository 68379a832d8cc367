package engine

import "ludo/internal/domain"

// AddPlayer seats a new player during Setup, assigning the next color
// in join order (spec §3 "players: ordered sequence ... seat index
// fixes color"). Returns false if the room is full or already
// playing.
func AddPlayer(game *domain.Game, playerID, name string) bool {
	if game.Status != domain.StatusSetup {
		return false
	}
	if len(game.Players) >= game.MaxPlayers {
		return false
	}

	colors := domain.ColorsForSize(game.MaxPlayers)
	seatIndex := len(game.Players)
	color := colors[seatIndex%len(colors)]

	isHost := seatIndex == 0
	player := domain.NewPlayer(playerID, name, color, isHost)
	if isHost {
		game.HostID = playerID
	}
	game.Players = append(game.Players, player)
	return true
}

// StartGame transitions Setup -> Playing, fixing PlayerOrder and the
// first current seat (spec §3 "Lifecycle"). A game needs at least two
// seated players.
func StartGame(game *domain.Game) bool {
	if game.Status != domain.StatusSetup {
		return false
	}
	if len(game.Players) < 2 {
		return false
	}

	order := make([]domain.Color, len(game.Players))
	for i, p := range game.Players {
		order[i] = p.Color
	}
	game.PlayerOrder = order
	game.CurrentSeat = 0
	game.Status = domain.StatusPlaying
	game.TurnSecondsLeft = domain.TurnLimitSeconds
	return true
}
