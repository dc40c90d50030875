package terminal

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/muesli/termenv"

	"github.com/rocketscienceinc/sunmoon/internal/entity"
)

const (
	sunColor   = "#EAB308"
	moonColor  = "#3B82F6"
	mutedColor = "#6B7280"

	rowSeparator = "---+---+---"
)

// Renderer draws snapshots with the Sun and Moon theme. Colors degrade to
// plain text when the output profile is Ascii.
type Renderer struct {
	out *termenv.Output
}

func NewRenderer(out *termenv.Output) *Renderer {
	return &Renderer{out: out}
}

// Render returns the full screen for snapshot.
func (that *Renderer) Render(snapshot entity.Snapshot) string {
	var sb strings.Builder

	sb.WriteString(that.muted(fmt.Sprintf("Round %d", snapshot.Round)))
	sb.WriteString("\n\n")
	sb.WriteString(that.board(snapshot))
	sb.WriteString("\n")
	sb.WriteString(that.status(snapshot))
	sb.WriteString("\n\n")
	sb.WriteString(that.scoreBoard(snapshot.Scores))
	sb.WriteString("\n")

	if snapshot.ResultPending {
		sb.WriteString("\n")
		sb.WriteString(that.resultDialog(snapshot.Outcome))
		sb.WriteString("\n")
	}

	return sb.String()
}

func (that *Renderer) board(snapshot entity.Snapshot) string {
	var sb strings.Builder

	for row := range 3 {
		cells := make([]string, 0, 3)
		for col := range 3 {
			index := row*3 + col
			cells = append(cells, " "+that.cell(snapshot, index)+" ")
		}

		sb.WriteString(strings.Join(cells, "|"))
		sb.WriteString("\n")

		if row < 2 {
			sb.WriteString(rowSeparator)
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

func (that *Renderer) cell(snapshot entity.Snapshot, index int) string {
	mark := snapshot.Board[index]
	if !mark.IsPlayer() {
		return that.muted(strconv.Itoa(index + 1))
	}

	style := that.out.String(markSymbol(mark)).Foreground(that.out.Color(markColor(mark)))
	if slices.Contains(snapshot.Outcome.Line, index) {
		style = style.Bold().Underline()
	}

	return style.String()
}

func (that *Renderer) status(snapshot entity.Snapshot) string {
	switch snapshot.Outcome.Status {
	case entity.StatusWon:
		return "Winner: " + that.player(snapshot.Outcome.Winner)
	case entity.StatusDraw:
		return "Draw!"
	default:
		return that.player(snapshot.Active) + "'s turn"
	}
}

func (that *Renderer) scoreBoard(scores entity.Scores) string {
	return fmt.Sprintf("Score Board  %s %d  %s %d  %s %d",
		that.player(entity.PlayerA), scores.PlayerA,
		that.muted("Draws"), scores.Draws,
		that.player(entity.PlayerB), scores.PlayerB,
	)
}

func (that *Renderer) resultDialog(outcome entity.Outcome) string {
	var title, subtitle string

	switch outcome.Status {
	case entity.StatusWon:
		title = that.out.String("Winner!").Bold().Foreground(that.out.Color(markColor(outcome.Winner))).String()
		subtitle = winnerMessage(outcome.Winner)
	case entity.StatusDraw:
		title = that.out.String("It's a Draw!").Bold().String()
		subtitle = "Nobody wins, try again!"
	default:
		return ""
	}

	return title + "\n" + subtitle + "\n" + that.muted("Press enter to play again")
}

func (that *Renderer) player(mark entity.Cell) string {
	return that.out.String(playerName(mark)).Foreground(that.out.Color(markColor(mark))).String()
}

func (that *Renderer) muted(s string) string {
	return that.out.String(s).Foreground(that.out.Color(mutedColor)).String()
}

func playerName(mark entity.Cell) string {
	if mark == entity.PlayerB {
		return "Moon"
	}

	return "Sun"
}

func markSymbol(mark entity.Cell) string {
	if mark == entity.PlayerB {
		return "M"
	}

	return "S"
}

func markColor(mark entity.Cell) string {
	if mark == entity.PlayerB {
		return moonColor
	}

	return sunColor
}

func winnerMessage(mark entity.Cell) string {
	if mark == entity.PlayerB {
		return "Moon takes over!"
	}

	return "Sun shines bright!"
}
