package websocket

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rocketscienceinc/sunmoon/internal/apperror"
	"github.com/rocketscienceinc/sunmoon/internal/entity"
	"github.com/rocketscienceinc/sunmoon/internal/usecase"
)

// commandFor builds the session command a request asks for.
type commandFor func(req Payload) (usecase.Command, error)

// handleConnect - binds the connection to a session and sends it the current snapshot.
func (that *Server) handleConnect(ctx context.Context, message *Message, conn *connection) error {
	req, ok := that.decodePayload(message, conn)
	if !ok {
		return nil
	}

	snapshot, err := that.bind(ctx, conn, req.SessionID)
	if err != nil {
		that.reply(conn, message.Action, "failed to load session")
		return err
	}

	if err = conn.sendSnapshot(message.Action, snapshot); err != nil {
		return fmt.Errorf("failed to send snapshot: %w", err)
	}

	return nil
}

func (that *Server) handleSelectCell(ctx context.Context, message *Message, conn *connection) error {
	return that.applyCommand(ctx, message, conn, func(req Payload) (usecase.Command, error) {
		if req.Cell == nil {
			return usecase.Command{}, apperror.ErrInvalidCell
		}

		return usecase.SelectCellCommand(*req.Cell), nil
	})
}

func (that *Server) handleReset(ctx context.Context, message *Message, conn *connection) error {
	return that.applyCommand(ctx, message, conn, func(req Payload) (usecase.Command, error) {
		return usecase.ResetCommand(req.Full), nil
	})
}

func (that *Server) handleDismissResult(ctx context.Context, message *Message, conn *connection) error {
	return that.applyCommand(ctx, message, conn, func(Payload) (usecase.Command, error) {
		return usecase.DismissResultCommand(), nil
	})
}

func (that *Server) handlePlayAgain(ctx context.Context, message *Message, conn *connection) error {
	return that.applyCommand(ctx, message, conn, func(Payload) (usecase.Command, error) {
		return usecase.PlayAgainCommand(), nil
	})
}

// applyCommand runs the requested command against the connection's session
// and broadcasts the resulting snapshot to every connection showing that
// session. A missing session is replaced inside the same command.
func (that *Server) applyCommand(ctx context.Context, message *Message, conn *connection, build commandFor) error {
	req, ok := that.decodePayload(message, conn)
	if !ok {
		return nil
	}

	cmd, err := build(req)
	if err != nil {
		that.reply(conn, message.Action, err.Error())
		return nil
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = that.boundSessionID(conn)
	}

	snapshot, err := that.sessions.Execute(ctx, sessionID, cmd)
	if err != nil {
		that.reply(conn, message.Action, "failed to apply command")
		return err
	}

	that.register(conn, snapshot.ID)
	that.broadcast(message.Action, snapshot)

	return nil
}

// bind resolves the session for sessionID, falling back to the one the
// connection is already bound to, and registers the connection under it.
func (that *Server) bind(ctx context.Context, conn *connection, sessionID string) (entity.Snapshot, error) {
	if sessionID == "" {
		sessionID = that.boundSessionID(conn)
	}

	snapshot, err := that.sessions.GetOrCreateSession(ctx, sessionID)
	if err != nil {
		return entity.Snapshot{}, fmt.Errorf("failed to get session: %w", err)
	}

	that.register(conn, snapshot.ID)

	return snapshot, nil
}

func (that *Server) broadcast(action string, snapshot entity.Snapshot) {
	log := that.logger.With("method", "broadcast")

	for _, conn := range that.sessionConnections(snapshot.ID) {
		if err := conn.sendSnapshot(action, snapshot); err != nil {
			log.Warn("failed to send snapshot", "session_id", snapshot.ID, "error", err)
		}
	}
}

func (that *Server) decodePayload(message *Message, conn *connection) (Payload, bool) {
	var req Payload
	if len(message.Payload) == 0 {
		return req, true
	}

	if err := json.Unmarshal(message.Payload, &req); err != nil {
		that.reply(conn, message.Action, apperror.ErrInvalidPayload.Error())
		return Payload{}, false
	}

	return req, true
}
