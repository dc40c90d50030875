// Package terminal runs a hot-seat Sun vs Moon game on a line-oriented
// terminal.
package terminal

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/rocketscienceinc/sunmoon/internal/entity"
)

const helpText = "1-9 select a cell, n new game, r reset all, q quit"

type sessionUseCase interface {
	GetOrCreateSession(ctx context.Context, id string) (entity.Snapshot, error)
	SelectCell(ctx context.Context, id string, cell int) (entity.Snapshot, error)
	Reset(ctx context.Context, id string, full bool) (entity.Snapshot, error)
	PlayAgain(ctx context.Context, id string) (entity.Snapshot, error)
	EndSession(ctx context.Context, id string) error
}

type Game struct {
	logger   *slog.Logger
	sessions sessionUseCase
	in       io.Reader
	out      *termenv.Output
	renderer *Renderer

	// interactive enables prompts and screen clearing.
	interactive bool
}

func New(logger *slog.Logger, sessions sessionUseCase, in io.Reader, out *termenv.Output) *Game {
	return &Game{
		logger:      logger.With("component", "terminal"),
		sessions:    sessions,
		in:          in,
		out:         out,
		renderer:    NewRenderer(out),
		interactive: isTerminal(in) && isTerminal(out.Writer()),
	}
}

// Run plays until q is entered, the input ends or ctx is done.
func (that *Game) Run(ctx context.Context) error {
	log := that.logger.With("method", "Run")

	snapshot, err := that.sessions.GetOrCreateSession(ctx, "")
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}

	defer func() {
		if err := that.sessions.EndSession(context.WithoutCancel(ctx), snapshot.ID); err != nil {
			log.Warn("failed to end session", "error", err)
		}
	}()

	that.draw(snapshot, "")

	readCtx, stopReading := context.WithCancel(ctx)
	defer stopReading()

	lines := make(chan string)
	go that.readLines(readCtx, lines)

	for {
		that.prompt()

		var (
			line string
			ok   bool
		)

		select {
		case <-ctx.Done():
			return nil
		case line, ok = <-lines:
		}

		if !ok {
			return nil
		}

		next, notice, quit, err := that.handle(ctx, snapshot, strings.TrimSpace(line))
		if err != nil {
			return err
		}
		if quit {
			return nil
		}

		snapshot = next
		that.draw(snapshot, notice)
	}
}

// handle applies one input line. A pending result swallows the input and
// starts the next round.
func (that *Game) handle(ctx context.Context, snapshot entity.Snapshot, input string) (entity.Snapshot, string, bool, error) {
	if snapshot.ResultPending {
		next, err := that.sessions.PlayAgain(ctx, snapshot.ID)
		return next, "", false, err
	}

	switch input {
	case "q":
		return snapshot, "", true, nil
	case "n":
		next, err := that.sessions.Reset(ctx, snapshot.ID, false)
		return next, "", false, err
	case "r":
		next, err := that.sessions.Reset(ctx, snapshot.ID, true)
		return next, "", false, err
	}

	position, err := strconv.Atoi(input)
	if err != nil || position < 1 || position > entity.BoardSize {
		return snapshot, "unknown command, " + helpText, false, nil
	}

	next, err := that.sessions.SelectCell(ctx, snapshot.ID, position-1)
	if err != nil {
		return snapshot, "", false, err
	}

	if next.Board == snapshot.Board {
		return next, "cell " + input + " is not available", false, nil
	}

	return next, "", false, nil
}

func (that *Game) readLines(ctx context.Context, lines chan<- string) {
	defer close(lines)

	scanner := bufio.NewScanner(that.in)
	for scanner.Scan() {
		select {
		case lines <- scanner.Text():
		case <-ctx.Done():
			return
		}
	}

	if err := scanner.Err(); err != nil {
		that.logger.Error("failed to read input", "error", err)
	}
}

func (that *Game) draw(snapshot entity.Snapshot, notice string) {
	if that.interactive {
		that.out.ClearScreen()
	}

	fmt.Fprint(that.out, that.renderer.Render(snapshot))

	if notice != "" {
		fmt.Fprintln(that.out, notice)
	}
}

func (that *Game) prompt() {
	if that.interactive {
		fmt.Fprint(that.out, "> ")
	}
}

func isTerminal(v any) bool {
	f, ok := v.(interface{ Fd() uintptr })
	if !ok {
		return false
	}

	return term.IsTerminal(int(f.Fd()))
}
