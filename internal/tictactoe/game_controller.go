// Package tictactoe holds the Sun vs Moon rules. Every function takes and
// returns values: a session is never mutated in place.
package tictactoe

import (
	"github.com/rocketscienceinc/sunmoon/internal/entity"
)

// WinCombos are checked in this order; the first full line is reported.
var WinCombos = [][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

// ApplyMove places player on cell. An occupied or out-of-range cell, a
// finished board or an unknown player leaves the board unchanged.
func ApplyMove(board entity.Board, cell int, player entity.Cell) entity.Board {
	if !player.IsPlayer() {
		return board
	}

	if cell < 0 || cell >= len(board) {
		return board
	}

	if board[cell] != entity.EmptyCell {
		return board
	}

	if !EvaluateOutcome(board).IsInProgress() {
		return board
	}

	board[cell] = player

	return board
}

// EvaluateOutcome computes the state of the board.
func EvaluateOutcome(board entity.Board) entity.Outcome {
	for _, combo := range WinCombos {
		a, b, c := board[combo[0]], board[combo[1]], board[combo[2]]
		if a != entity.EmptyCell && a == b && b == c {
			return entity.Outcome{
				Status: entity.StatusWon,
				Winner: a,
				Line:   []int{combo[0], combo[1], combo[2]},
			}
		}
	}

	// the game will continue until all the squares are full
	if !board.IsFull() {
		return entity.Outcome{Status: entity.StatusInProgress}
	}

	return entity.Outcome{Status: entity.StatusDraw}
}

// OnRoundComplete books a finished round: the score, the next starting
// player, the round counter and the pending result. An in-progress outcome
// changes nothing.
func OnRoundComplete(session entity.Session, outcome entity.Outcome) entity.Session {
	switch outcome.Status {
	case entity.StatusWon:
		switch outcome.Winner {
		case entity.PlayerA:
			session.Scores.PlayerA++
		case entity.PlayerB:
			session.Scores.PlayerB++
		default:
			return session
		}
	case entity.StatusDraw:
		session.Scores.Draws++
	default:
		return session
	}

	session.StartingPlayer = session.StartingPlayer.Opponent()
	session.Round++
	session.ResultPending = true

	return session
}

// NewGame clears the board for the next round. Scores and round are kept.
func NewGame(session entity.Session) entity.Session {
	session.Board = entity.Board{}
	session.Active = session.StartingPlayer

	return session
}

// ResetAll is NewGame plus zeroed scores and round 1. The starting player
// alternation is kept.
func ResetAll(session entity.Session) entity.Session {
	session = NewGame(session)
	session.Scores = entity.Scores{}
	session.Round = 1

	return session
}

// SelectCell plays the active player on cell. A finished round books
// itself exactly once; otherwise the turn passes to the other player.
func SelectCell(session entity.Session, cell int) entity.Session {
	if !EvaluateOutcome(session.Board).IsInProgress() {
		return session
	}

	board := ApplyMove(session.Board, cell, session.Active)
	if board == session.Board {
		return session
	}

	session.Board = board

	outcome := EvaluateOutcome(board)
	if outcome.IsFinished() {
		return OnRoundComplete(session, outcome)
	}

	session.Active = session.Active.Opponent()

	return session
}

// Reset starts a new round, or wipes scores and rounds as well when full.
func Reset(session entity.Session, full bool) entity.Session {
	if full {
		return ResetAll(session)
	}

	return NewGame(session)
}

// DismissResult marks the pending result as shown.
func DismissResult(session entity.Session) entity.Session {
	session.ResultPending = false

	return session
}

func Describe(session entity.Session) entity.Snapshot {
	return entity.Snapshot{
		ID:             session.ID,
		Board:          session.Board,
		Active:         session.Active,
		StartingPlayer: session.StartingPlayer,
		Outcome:        EvaluateOutcome(session.Board),
		Scores:         session.Scores,
		Round:          session.Round,
		ResultPending:  session.ResultPending,
	}
}
