package usecase

import (
	"github.com/rocketscienceinc/sunmoon/internal/entity"
	"github.com/rocketscienceinc/sunmoon/internal/tictactoe"
)

// Command is one transition of a session, applied by SessionManager.
type Command struct {
	name       string
	transition func(entity.Session) entity.Session
}

func SelectCellCommand(cell int) Command {
	return Command{
		name: "select_cell",
		transition: func(session entity.Session) entity.Session {
			return tictactoe.SelectCell(session, cell)
		},
	}
}

// ResetCommand starts a new round, or a fresh score board when full is set.
func ResetCommand(full bool) Command {
	return Command{
		name: "reset",
		transition: func(session entity.Session) entity.Session {
			return tictactoe.Reset(session, full)
		},
	}
}

func DismissResultCommand() Command {
	return Command{name: "dismiss_result", transition: tictactoe.DismissResult}
}

// PlayAgainCommand dismisses the result and starts the next round.
func PlayAgainCommand() Command {
	return Command{
		name: "play_again",
		transition: func(session entity.Session) entity.Session {
			return tictactoe.NewGame(tictactoe.DismissResult(session))
		},
	}
}
