package terminal

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/sunmoon/internal/apperror"
	"github.com/rocketscienceinc/sunmoon/internal/entity"
	"github.com/rocketscienceinc/sunmoon/internal/repository"
	"github.com/rocketscienceinc/sunmoon/internal/usecase"
)

type recordingRepo struct {
	repository.SessionRepository

	lastID string
}

func (that *recordingRepo) CreateOrUpdate(ctx context.Context, session entity.Session) error {
	that.lastID = session.ID
	return that.SessionRepository.CreateOrUpdate(ctx, session)
}

func play(t *testing.T, input string) (string, *recordingRepo) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := &recordingRepo{SessionRepository: repository.NewMemorySessionRepository(time.Hour)}
	manager := usecase.NewSessionManager(logger, repo)

	var buf bytes.Buffer
	out := termenv.NewOutput(&buf, termenv.WithProfile(termenv.Ascii))

	game := New(logger, manager, strings.NewReader(input), out)
	require.NoError(t, game.Run(context.Background()))

	return buf.String(), repo
}

func TestRunWinAndPlayAgain(t *testing.T) {
	// Given: Sun takes the top row, then any key, then quit
	screen, _ := play(t, "1\n4\n2\n5\n3\n\nq\n")

	// Then: the result dialog was shown and Moon opens round two
	assert.Contains(t, screen, "Sun shines bright!")
	assert.Contains(t, screen, "Round 2\n\n 1 | 2 | 3 ")
	assert.True(t, strings.HasSuffix(screen, "Moon's turn\n\nScore Board  Sun 1  Draws 0  Moon 0\n"), screen)
}

func TestRunPendingResultSwallowsInput(t *testing.T) {
	// Given: a finished round followed by "q"
	screen, _ := play(t, "1\n4\n2\n5\n3\nq\n")

	// Then: "q" only dismissed the result and the game ended with the input
	assert.True(t, strings.HasSuffix(screen, "Moon's turn\n\nScore Board  Sun 1  Draws 0  Moon 0\n"), screen)
}

func TestRunCommands(t *testing.T) {
	t.Run("Unknown command prints help", func(t *testing.T) {
		screen, _ := play(t, "center\nq\n")

		assert.Contains(t, screen, "unknown command, "+helpText)
	})

	t.Run("Out of range position prints help", func(t *testing.T) {
		screen, _ := play(t, "0\n10\nq\n")

		assert.Equal(t, 2, strings.Count(screen, "unknown command"))
	})

	t.Run("Taken cell is reported", func(t *testing.T) {
		screen, _ := play(t, "5\n5\nq\n")

		assert.Contains(t, screen, "cell 5 is not available")
	})

	t.Run("New game keeps the score board", func(t *testing.T) {
		screen, _ := play(t, "1\n4\n2\n5\n3\n\n1\nn\nq\n")

		assert.True(t, strings.HasSuffix(screen, "Moon's turn\n\nScore Board  Sun 1  Draws 0  Moon 0\n"), screen)
	})

	t.Run("Reset all clears the score board", func(t *testing.T) {
		screen, _ := play(t, "1\n4\n2\n5\n3\n\nr\nq\n")

		assert.True(t, strings.HasSuffix(screen, "Score Board  Sun 0  Draws 0  Moon 0\n"), screen)
		assert.Contains(t, screen[strings.LastIndex(screen, "Round"):], "Round 1")
	})
}

func TestRunEndsSession(t *testing.T) {
	_, repo := play(t, "q\n")

	_, err := repo.GetByID(context.Background(), repo.lastID)

	assert.ErrorIs(t, err, apperror.ErrSessionNotFound)
}

func TestRunEndOfInput(t *testing.T) {
	screen, _ := play(t, "1\n")

	assert.Contains(t, screen, "Moon's turn")
}

type failingSessions struct {
	sessionUseCase
}

func (failingSessions) GetOrCreateSession(context.Context, string) (entity.Snapshot, error) {
	return entity.Snapshot{}, errors.New("storage down")
}

func TestRunStorageFailure(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	out := termenv.NewOutput(io.Discard, termenv.WithProfile(termenv.Ascii))

	err := New(logger, failingSessions{}, strings.NewReader("q\n"), out).Run(context.Background())

	assert.Error(t, err)
}
