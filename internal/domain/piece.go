package domain

// PieceState is the lifecycle stage of a single piece.
type PieceState string

const (
	PieceHome     PieceState = "home"
	PieceActive   PieceState = "active"
	PieceFinished PieceState = "finished"
)

// Piece is one of a player's four tokens. Position encodes either a
// main-path cell (1..52), a home-stretch cell (100..105), or -1 when
// the piece sits at Home.
type Piece struct {
	ID       int        `json:"id"`
	State    PieceState `json:"state"`
	Position int        `json:"position"`
}

// NewPieces builds the four starting pieces for a color. Ids are
// color-index * 4 + slot, unique within the game per spec §3, where
// colorIndex is the color's fixed canonical index (see ColorIndex),
// not the player's seat or join order.
func NewPieces(colorIndex int) [4]Piece {
	var pieces [4]Piece
	for slot := 0; slot < 4; slot++ {
		pieces[slot] = Piece{
			ID:       colorIndex*4 + slot,
			State:    PieceHome,
			Position: HomePosition,
		}
	}
	return pieces
}
