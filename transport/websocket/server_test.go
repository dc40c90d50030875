package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/sunmoon/internal/apperror"
	"github.com/rocketscienceinc/sunmoon/internal/entity"
	"github.com/rocketscienceinc/sunmoon/internal/pkg"
	"github.com/rocketscienceinc/sunmoon/internal/repository"
	"github.com/rocketscienceinc/sunmoon/internal/usecase"
)

type response struct {
	Action  string  `json:"action"`
	Payload Payload `json:"payload"`
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	srv, _, _ := newTestServerWithState(t)

	return srv
}

func newTestServerWithState(t *testing.T) (*httptest.Server, *Server, *usecase.SessionManager) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	manager := usecase.NewSessionManager(logger, repository.NewMemorySessionRepository(time.Hour))
	server := New(logger, manager)

	srv := httptest.NewServer(server)
	t.Cleanup(srv.Close)

	return srv, server, manager
}

func dial(t *testing.T, srv *httptest.Server, header http.Header) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

func send(t *testing.T, conn *websocket.Conn, action string, payload any) {
	t.Helper()

	message := map[string]any{"action": action}
	if payload != nil {
		message["payload"] = payload
	}

	require.NoError(t, conn.WriteJSON(message))
}

func receive(t *testing.T, conn *websocket.Conn) response {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var resp response
	require.NoError(t, conn.ReadJSON(&resp))

	return resp
}

func connect(t *testing.T, conn *websocket.Conn, sessionID string) entity.Snapshot {
	t.Helper()

	var payload any
	if sessionID != "" {
		payload = map[string]any{"session_id": sessionID}
	}
	send(t, conn, ActionConnect, payload)

	resp := receive(t, conn)
	require.Equal(t, ActionConnect, resp.Action)
	require.Empty(t, resp.Payload.Error)
	require.NotNil(t, resp.Payload.Snapshot)

	return *resp.Payload.Snapshot
}

func TestConnect(t *testing.T) {
	t.Run("Creates a session without an id", func(t *testing.T) {
		srv := newTestServer(t)
		conn := dial(t, srv, nil)

		snapshot := connect(t, conn, "")

		assert.NotEmpty(t, snapshot.ID)
		assert.Equal(t, 1, snapshot.Round)
		assert.Equal(t, entity.PlayerA, snapshot.Active)
	})

	t.Run("Unknown id starts a fresh session", func(t *testing.T) {
		srv := newTestServer(t)
		conn := dial(t, srv, nil)

		snapshot := connect(t, conn, "missing")

		assert.NotEqual(t, "missing", snapshot.ID)
	})

	t.Run("Uses the session cookie of the upgrade request", func(t *testing.T) {
		srv := newTestServer(t)
		first := connect(t, dial(t, srv, nil), "")

		// Given: a second tab that only carries the cookie
		header := http.Header{}
		header.Add("Cookie", pkg.SessionCookieName+"="+first.ID)
		conn := dial(t, srv, header)

		// When: it connects without an explicit id
		snapshot := connect(t, conn, "")

		// Then: it joins the cookie's session
		assert.Equal(t, first.ID, snapshot.ID)
	})
}

func TestSelectCellBroadcast(t *testing.T) {
	srv := newTestServer(t)

	// Given: two tabs showing the same session
	first := dial(t, srv, nil)
	second := dial(t, srv, nil)
	snapshot := connect(t, first, "")
	connect(t, second, snapshot.ID)

	// When: the first tab plays the center cell
	send(t, first, ActionSelectCell, map[string]any{"session_id": snapshot.ID, "cell": 4})

	// Then: both tabs receive the new board
	for _, conn := range []*websocket.Conn{first, second} {
		resp := receive(t, conn)
		require.Equal(t, ActionSelectCell, resp.Action)
		require.NotNil(t, resp.Payload.Snapshot)
		assert.Equal(t, entity.PlayerA, resp.Payload.Snapshot.Board[4])
		assert.Equal(t, entity.PlayerB, resp.Payload.Snapshot.Active)
	}
}

func TestRoundOverSocket(t *testing.T) {
	srv := newTestServer(t)
	conn := dial(t, srv, nil)
	connect(t, conn, "")

	// Given: Sun wins the left column
	var resp response
	for _, cell := range []int{0, 1, 3, 4, 6} {
		send(t, conn, ActionSelectCell, map[string]any{"cell": cell})
		resp = receive(t, conn)
	}

	require.NotNil(t, resp.Payload.Snapshot)
	assert.Equal(t, entity.StatusWon, resp.Payload.Snapshot.Outcome.Status)
	assert.Equal(t, []int{0, 3, 6}, resp.Payload.Snapshot.Outcome.Line)
	assert.True(t, resp.Payload.Snapshot.ResultPending)

	// When: the dialog is dismissed
	send(t, conn, ActionDismissResult, nil)
	resp = receive(t, conn)

	// Then: the board stays finished but the result is no longer pending
	require.NotNil(t, resp.Payload.Snapshot)
	assert.False(t, resp.Payload.Snapshot.ResultPending)
	assert.Equal(t, entity.StatusWon, resp.Payload.Snapshot.Outcome.Status)

	// When: a new game is requested
	send(t, conn, ActionReset, map[string]any{"full": false})
	resp = receive(t, conn)

	// Then: Moon opens round two
	require.NotNil(t, resp.Payload.Snapshot)
	assert.Equal(t, entity.Board{}, resp.Payload.Snapshot.Board)
	assert.Equal(t, entity.PlayerB, resp.Payload.Snapshot.Active)
	assert.Equal(t, 2, resp.Payload.Snapshot.Round)
	assert.Equal(t, 1, resp.Payload.Snapshot.Scores.PlayerA)
}

func TestPlayAgainOverSocket(t *testing.T) {
	srv := newTestServer(t)
	conn := dial(t, srv, nil)
	connect(t, conn, "")

	for _, cell := range []int{0, 1, 3, 4, 6} {
		send(t, conn, ActionSelectCell, map[string]any{"cell": cell})
		receive(t, conn)
	}

	send(t, conn, ActionPlayAgain, nil)
	resp := receive(t, conn)

	require.NotNil(t, resp.Payload.Snapshot)
	assert.False(t, resp.Payload.Snapshot.ResultPending)
	assert.Equal(t, entity.Board{}, resp.Payload.Snapshot.Board)
	assert.Equal(t, 2, resp.Payload.Snapshot.Round)
}

func TestInvalidMessages(t *testing.T) {
	t.Run("Unknown action", func(t *testing.T) {
		srv := newTestServer(t)
		conn := dial(t, srv, nil)

		send(t, conn, "game:join", nil)
		resp := receive(t, conn)

		assert.Equal(t, ActionError, resp.Action)
		assert.Equal(t, apperror.ErrUnknownAction.Error(), resp.Payload.Error)
	})

	t.Run("Malformed JSON keeps the connection open", func(t *testing.T) {
		srv := newTestServer(t)
		conn := dial(t, srv, nil)

		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
		resp := receive(t, conn)
		assert.Equal(t, ActionError, resp.Action)

		// the next valid message is still served
		connect(t, conn, "")
	})

	t.Run("Missing cell", func(t *testing.T) {
		srv := newTestServer(t)
		conn := dial(t, srv, nil)

		send(t, conn, ActionSelectCell, map[string]any{})
		resp := receive(t, conn)

		assert.Equal(t, ActionSelectCell, resp.Action)
		assert.Equal(t, apperror.ErrInvalidCell.Error(), resp.Payload.Error)
	})

	t.Run("Wrong payload type", func(t *testing.T) {
		srv := newTestServer(t)
		conn := dial(t, srv, nil)

		send(t, conn, ActionSelectCell, map[string]any{"cell": "center"})
		resp := receive(t, conn)

		assert.Equal(t, apperror.ErrInvalidPayload.Error(), resp.Payload.Error)
	})
}

func TestCommandOnVanishedSession(t *testing.T) {
	srv, _, manager := newTestServerWithState(t)
	conn := dial(t, srv, nil)
	first := connect(t, conn, "")

	// Given: the session behind the connection is gone
	require.NoError(t, manager.EndSession(context.Background(), first.ID))

	// When: a move is sent for it
	send(t, conn, ActionSelectCell, map[string]any{"session_id": first.ID, "cell": 2})
	resp := receive(t, conn)

	// Then: the move lands on a fresh session the connection is now bound to
	require.Empty(t, resp.Payload.Error)
	require.NotNil(t, resp.Payload.Snapshot)
	assert.NotEqual(t, first.ID, resp.Payload.Snapshot.ID)
	assert.Equal(t, entity.PlayerA, resp.Payload.Snapshot.Board[2])

	send(t, conn, ActionSelectCell, map[string]any{"cell": 4})
	resp = receive(t, conn)
	require.NotNil(t, resp.Payload.Snapshot)
	assert.Equal(t, entity.PlayerB, resp.Payload.Snapshot.Board[4])
}

func TestCloseAllClosesIdleConnections(t *testing.T) {
	srv, server, _ := newTestServerWithState(t)

	// Given: a socket that upgraded but never sent a message
	conn := dial(t, srv, nil)
	require.Eventually(t, func() bool { return server.connectionCount() == 1 }, time.Second, 10*time.Millisecond)

	// When: the server shuts its connections down
	server.closeAll()

	// Then: the client sees the connection end and the server forgets it
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.False(t, errors.Is(err, os.ErrDeadlineExceeded), "connection was left open")

	assert.Eventually(t, func() bool { return server.connectionCount() == 0 }, time.Second, 10*time.Millisecond)
}

func TestPayloadJSON(t *testing.T) {
	cell := 0
	data, err := json.Marshal(Payload{SessionID: "id", Cell: &cell})
	require.NoError(t, err)

	// a zero cell index must survive encoding
	assert.JSONEq(t, `{"session_id": "id", "cell": 0}`, string(data))
}
