package entity

// Cell is the content of a single board square.
type Cell string

const (
	EmptyCell Cell = ""
	PlayerA   Cell = "sun"
	PlayerB   Cell = "moon"
)

// IsPlayer reports whether the cell holds one of the two player marks.
func (that Cell) IsPlayer() bool {
	return that == PlayerA || that == PlayerB
}

// Opponent returns the other player mark. Empty has no opponent.
func (that Cell) Opponent() Cell {
	switch that {
	case PlayerA:
		return PlayerB
	case PlayerB:
		return PlayerA
	default:
		return EmptyCell
	}
}
