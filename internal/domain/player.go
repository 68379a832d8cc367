package domain

// Player is one seat in a Game.
type Player struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color Color  `json:"color"`

	Pieces [4]Piece `json:"pieces"`

	IsHost       bool `json:"isHost"`
	HasFinished  bool `json:"hasFinished"`
	IsRemoved    bool `json:"isRemoved"`
	Disconnected bool `json:"disconnected"`

	InactiveTurns             int `json:"inactiveTurns"`
	ConsecutiveSixes          int `json:"consecutiveSixes"`
	RollsWithoutSixWhenAllHome int `json:"rollsWithoutSixWhenAllHome"`
}

// NewPlayer creates a seated player with four Home pieces, numbered
// from color's canonical index rather than seating order.
func NewPlayer(id, name string, color Color, isHost bool) *Player {
	return &Player{
		ID:     id,
		Name:   name,
		Color:  color,
		Pieces: NewPieces(ColorIndex(color)),
		IsHost: isHost,
	}
}

// AllPiecesHome reports whether every piece is still at Home.
func (p *Player) AllPiecesHome() bool {
	for _, piece := range p.Pieces {
		if piece.State != PieceHome {
			return false
		}
	}
	return true
}

// AllPiecesFinished reports whether every piece has reached Finished.
func (p *Player) AllPiecesFinished() bool {
	for _, piece := range p.Pieces {
		if piece.State != PieceFinished {
			return false
		}
	}
	return true
}

// Piece returns a pointer to the piece with the given id, or nil.
func (p *Player) Piece(id int) *Piece {
	for i := range p.Pieces {
		if p.Pieces[i].ID == id {
			return &p.Pieces[i]
		}
	}
	return nil
}

// InPlay reports whether the player can still take a turn.
func (p *Player) InPlay() bool {
	return !p.HasFinished && !p.IsRemoved
}
