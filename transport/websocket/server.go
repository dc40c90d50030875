package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rocketscienceinc/sunmoon/internal/apperror"
	"github.com/rocketscienceinc/sunmoon/internal/entity"
	"github.com/rocketscienceinc/sunmoon/internal/pkg"
	"github.com/rocketscienceinc/sunmoon/internal/usecase"
)

const (
	writeWait       = 10 * time.Second
	pongWait        = 60 * time.Second
	pingPeriod      = (pongWait * 9) / 10
	maxMessageSize  = 512
	shutdownTimeout = 5 * time.Second
)

const (
	ActionConnect       = "session:connect"
	ActionSelectCell    = "cell:select"
	ActionReset         = "session:reset"
	ActionDismissResult = "result:dismiss"
	ActionPlayAgain     = "session:play-again"
	ActionError         = "error"
)

type sessionUseCase interface {
	GetOrCreateSession(ctx context.Context, id string) (entity.Snapshot, error)
	Execute(ctx context.Context, id string, cmd usecase.Command) (entity.Snapshot, error)
}

type connection struct {
	ws        *websocket.Conn
	writeMu   sync.Mutex
	sessionID string
}

type Server struct {
	logger   *slog.Logger
	sessions sessionUseCase
	upgrader websocket.Upgrader

	handlers map[string]func(ctx context.Context, message *Message, conn *connection) error

	// every upgraded connection, and the tabs that show a session by
	// session id.
	clients          map[*connection]struct{}
	connections      map[string]map[*connection]struct{}
	connectionsMutex sync.RWMutex
}

func New(logger *slog.Logger, sessions sessionUseCase) *Server {
	server := &Server{
		logger:   logger.With("component", "websocket"),
		sessions: sessions,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// the page may be served from another origin than the socket port
			CheckOrigin: func(*http.Request) bool { return true },
		},

		handlers:    make(map[string]func(context.Context, *Message, *connection) error),
		clients:     make(map[*connection]struct{}),
		connections: make(map[string]map[*connection]struct{}),
	}

	server.handlers[ActionConnect] = server.handleConnect
	server.handlers[ActionSelectCell] = server.handleSelectCell
	server.handlers[ActionReset] = server.handleReset
	server.handlers[ActionDismissResult] = server.handleDismissResult
	server.handlers[ActionPlayAgain] = server.handlePlayAgain

	return server
}

// Start - starts WebSocket server.
func (that *Server) Start(ctx context.Context, port string) error {
	mux := http.NewServeMux()
	mux.Handle("/ws", that)

	srv := &http.Server{
		Addr:        ":" + port,
		Handler:     mux,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			that.logger.Error("failed to shutdown server", "error", err)
		}

		that.closeAll()
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// ServeHTTP upgrades the connection and serves its messages until it closes.
func (that *Server) ServeHTTP(writer http.ResponseWriter, req *http.Request) {
	log := that.logger.With("method", "ServeHTTP")

	ws, err := that.upgrader.Upgrade(writer, req, nil)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}

	conn := &connection{
		ws:        ws,
		sessionID: pkg.SessionIDFromRequest(req),
	}

	that.track(conn)

	log.Info("WebSocket connection established")

	done := make(chan struct{})
	go that.keepAlive(conn, done)

	that.handleMessages(req.Context(), conn)

	close(done)
	that.unregister(conn)
	_ = ws.Close()
}

// handleMessages - processes messages from the client.
func (that *Server) handleMessages(ctx context.Context, conn *connection) {
	log := that.logger.With("method", "handleMessages")

	conn.ws.SetReadLimit(maxMessageSize)
	_ = conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	conn.ws.SetPongHandler(func(string) error {
		return conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, reqBody, err := conn.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Error("error reading message", "error", err)
			}
			return
		}

		var message Message
		if err = json.Unmarshal(reqBody, &message); err != nil {
			log.Warn("failed to unmarshal message", "error", err)
			that.reply(conn, ActionError, apperror.ErrInvalidPayload.Error())
			continue
		}

		handler, ok := that.handlers[message.Action]
		if !ok {
			log.Warn("unknown action", "action", message.Action)
			that.reply(conn, ActionError, apperror.ErrUnknownAction.Error())
			continue
		}

		if err = handler(ctx, &message, conn); err != nil {
			log.Error("error processing message", "action", message.Action, "error", err)
		}
	}
}

func (that *Server) keepAlive(conn *connection, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// register binds conn to sessionID, moving it away from a previous session.
func (that *Server) register(conn *connection, sessionID string) {
	that.connectionsMutex.Lock()
	defer that.connectionsMutex.Unlock()

	that.detach(conn)

	conn.sessionID = sessionID
	if that.connections[sessionID] == nil {
		that.connections[sessionID] = make(map[*connection]struct{})
	}
	that.connections[sessionID][conn] = struct{}{}
}

func (that *Server) track(conn *connection) {
	that.connectionsMutex.Lock()
	defer that.connectionsMutex.Unlock()

	that.clients[conn] = struct{}{}
}

func (that *Server) unregister(conn *connection) {
	that.connectionsMutex.Lock()
	defer that.connectionsMutex.Unlock()

	delete(that.clients, conn)
	that.detach(conn)
}

// detach must be called with connectionsMutex held.
func (that *Server) detach(conn *connection) {
	clients, ok := that.connections[conn.sessionID]
	if !ok {
		return
	}

	delete(clients, conn)
	if len(clients) == 0 {
		delete(that.connections, conn.sessionID)
	}
}

func (that *Server) boundSessionID(conn *connection) string {
	that.connectionsMutex.RLock()
	defer that.connectionsMutex.RUnlock()

	return conn.sessionID
}

func (that *Server) sessionConnections(sessionID string) []*connection {
	that.connectionsMutex.RLock()
	defer that.connectionsMutex.RUnlock()

	conns := make([]*connection, 0, len(that.connections[sessionID]))
	for conn := range that.connections[sessionID] {
		conns = append(conns, conn)
	}

	return conns
}

func (that *Server) connectionCount() int {
	that.connectionsMutex.RLock()
	defer that.connectionsMutex.RUnlock()

	return len(that.clients)
}

// closeAll closes every upgraded connection, bound to a session or not.
func (that *Server) closeAll() {
	that.connectionsMutex.Lock()
	defer that.connectionsMutex.Unlock()

	for conn := range that.clients {
		_ = conn.ws.Close()
	}
}

func (that *Server) reply(conn *connection, action, errorMsg string) {
	if err := conn.sendErrorResponse(action, errorMsg); err != nil {
		that.logger.Error("failed to send error response", "error", err)
	}
}
