package entity

const BoardSize = 9

const (
	StatusInProgress = "in_progress"
	StatusWon        = "won"
	StatusDraw       = "draw"
)

// Board is addressed by index 0-8 in row-major order.
type Board [BoardSize]Cell

// IsFull reports whether no empty cell is left.
func (that Board) IsFull() bool {
	for _, cell := range that {
		if cell == EmptyCell {
			return false
		}
	}

	return true
}

type Scores struct {
	PlayerA int `json:"sun"`
	PlayerB int `json:"moon"`
	Draws   int `json:"draws"`
}

// Session is the whole state of one hot-seat game between Sun and Moon.
type Session struct {
	ID             string `json:"id"`
	Board          Board  `json:"board"`
	Active         Cell   `json:"active"`
	StartingPlayer Cell   `json:"starting_player"`
	Round          int    `json:"round"`
	Scores         Scores `json:"scores"`
	ResultPending  bool   `json:"result_pending"`
}

func NewSession(id string) Session {
	return Session{
		ID:             id,
		Active:         PlayerA,
		StartingPlayer: PlayerA,
		Round:          1,
	}
}

// Outcome is computed from a board, never stored.
type Outcome struct {
	Status string `json:"status"`
	Winner Cell   `json:"winner,omitempty"`
	Line   []int  `json:"line,omitempty"`
}

func (that Outcome) IsInProgress() bool {
	return that.Status == StatusInProgress
}

func (that Outcome) IsFinished() bool {
	return that.Status == StatusWon || that.Status == StatusDraw
}

// Snapshot is what the presentation layer renders.
type Snapshot struct {
	ID             string  `json:"id"`
	Board          Board   `json:"board"`
	Active         Cell    `json:"active"`
	StartingPlayer Cell    `json:"starting_player"`
	Outcome        Outcome `json:"outcome"`
	Scores         Scores  `json:"scores"`
	Round          int     `json:"round"`
	ResultPending  bool    `json:"result_pending"`
}
