package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rocketscienceinc/sunmoon/internal/apperror"
	"github.com/rocketscienceinc/sunmoon/internal/entity"
	"github.com/rocketscienceinc/sunmoon/internal/pkg"
	"github.com/rocketscienceinc/sunmoon/internal/tictactoe"
)

type sessionRepo interface {
	CreateOrUpdate(ctx context.Context, session entity.Session) error
	GetByID(ctx context.Context, id string) (entity.Session, error)
	DeleteByID(ctx context.Context, id string) error
}

// SessionManager applies presentation commands to stored sessions. All
// commands go through one mutex so they are applied in arrival order.
type SessionManager struct {
	logger      *slog.Logger
	sessionRepo sessionRepo
	generateID  func() string

	mu sync.Mutex
}

func NewSessionManager(logger *slog.Logger, sessionRepo sessionRepo) *SessionManager {
	return &SessionManager{
		logger:      logger.With("component", "session_manager"),
		sessionRepo: sessionRepo,
		generateID:  pkg.GenerateNewSessionID,
	}
}

// GetOrCreateSession returns the snapshot of an existing session, or starts
// a new one when id is empty or unknown.
func (that *SessionManager) GetOrCreateSession(ctx context.Context, id string) (entity.Snapshot, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	session, err := that.getOrCreate(ctx, id)
	if err != nil {
		return entity.Snapshot{}, err
	}

	return tictactoe.Describe(session), nil
}

// SelectCell plays the active player on cell.
func (that *SessionManager) SelectCell(ctx context.Context, id string, cell int) (entity.Snapshot, error) {
	return that.apply(ctx, id, false, SelectCellCommand(cell))
}

// Reset starts a new round, or a fresh score board when full is set.
func (that *SessionManager) Reset(ctx context.Context, id string, full bool) (entity.Snapshot, error) {
	return that.apply(ctx, id, false, ResetCommand(full))
}

// DismissResult clears the pending result flag after the presentation
// layer has shown it.
func (that *SessionManager) DismissResult(ctx context.Context, id string) (entity.Snapshot, error) {
	return that.apply(ctx, id, false, DismissResultCommand())
}

// PlayAgain dismisses the result and starts the next round.
func (that *SessionManager) PlayAgain(ctx context.Context, id string) (entity.Snapshot, error) {
	return that.apply(ctx, id, false, PlayAgainCommand())
}

// Execute applies cmd to the session with id, starting a new session first
// when id is empty or unknown. Lookup and transition share one critical
// section, so a session that disappears concurrently yields a fresh session
// instead of ErrSessionNotFound.
func (that *SessionManager) Execute(ctx context.Context, id string, cmd Command) (entity.Snapshot, error) {
	return that.apply(ctx, id, true, cmd)
}

// EndSession drops the stored session.
func (that *SessionManager) EndSession(ctx context.Context, id string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if err := that.sessionRepo.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	return nil
}

func (that *SessionManager) apply(ctx context.Context, id string, create bool, cmd Command) (entity.Snapshot, error) {
	log := that.logger.With("method", "apply", "command", cmd.name, "sessionID", id)

	that.mu.Lock()
	defer that.mu.Unlock()

	var (
		session entity.Session
		err     error
	)

	if create {
		session, err = that.getOrCreate(ctx, id)
	} else {
		session, err = that.getSessionByID(ctx, id)
	}
	if err != nil {
		return entity.Snapshot{}, err
	}

	next := cmd.transition(session)

	switch {
	case next == session:
		log.Debug("command ignored")
		return tictactoe.Describe(next), nil
	case next.ResultPending && !session.ResultPending:
		log.Info("round complete", "outcome", tictactoe.EvaluateOutcome(next.Board).Status, "round", session.Round)
	}

	if err = that.updateSession(ctx, next); err != nil {
		return entity.Snapshot{}, err
	}

	return tictactoe.Describe(next), nil
}

func (that *SessionManager) getOrCreate(ctx context.Context, id string) (entity.Session, error) {
	if id == "" {
		return that.createSession(ctx)
	}

	session, err := that.sessionRepo.GetByID(ctx, id)
	if errors.Is(err, apperror.ErrSessionNotFound) {
		return that.createSession(ctx)
	}

	if err != nil {
		return entity.Session{}, fmt.Errorf("failed to get session: %w", err)
	}

	return session, nil
}

func (that *SessionManager) createSession(ctx context.Context) (entity.Session, error) {
	session := entity.NewSession(that.generateID())

	if err := that.sessionRepo.CreateOrUpdate(ctx, session); err != nil {
		return entity.Session{}, fmt.Errorf("failed to create session: %w", err)
	}

	that.logger.Info("session created", "sessionID", session.ID)

	return session, nil
}

func (that *SessionManager) getSessionByID(ctx context.Context, id string) (entity.Session, error) {
	session, err := that.sessionRepo.GetByID(ctx, id)
	if err != nil {
		return entity.Session{}, fmt.Errorf("failed to get session: %w", err)
	}

	return session, nil
}

func (that *SessionManager) updateSession(ctx context.Context, session entity.Session) error {
	if err := that.sessionRepo.CreateOrUpdate(ctx, session); err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	return nil
}
