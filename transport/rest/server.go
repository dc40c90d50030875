package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rocketscienceinc/sunmoon/internal/entity"
	"github.com/rocketscienceinc/sunmoon/internal/usecase"
)

const shutdownTimeout = 5 * time.Second

type sessionUseCase interface {
	GetOrCreateSession(ctx context.Context, id string) (entity.Snapshot, error)
	Execute(ctx context.Context, id string, cmd usecase.Command) (entity.Snapshot, error)
	EndSession(ctx context.Context, id string) error
}

type Server struct {
	logger    *slog.Logger
	sessions  sessionUseCase
	router    *mux.Router
	cookieTTL time.Duration
}

// New - builds the REST server. sessionTTL is the lifetime of stored
// sessions and bounds the session cookie.
func New(logger *slog.Logger, sessions sessionUseCase, sessionTTL time.Duration) *Server {
	server := &Server{
		logger:    logger.With("component", "rest"),
		sessions:  sessions,
		router:    mux.NewRouter(),
		cookieTTL: sessionTTL,
	}

	server.setupRoutes()

	return server
}

func (that *Server) setupRoutes() {
	that.router.HandleFunc("/ping", pingHandler).Methods(http.MethodGet)

	// full paths on the root router so a method mismatch answers 405
	that.router.HandleFunc("/api/session", that.handleGetSession).Methods(http.MethodGet)
	that.router.HandleFunc("/api/session", that.handleEndSession).Methods(http.MethodDelete)
	that.router.HandleFunc("/api/session/cells/{index}", that.handleSelectCell).Methods(http.MethodPost)
	that.router.HandleFunc("/api/session/reset", that.handleReset).Methods(http.MethodPost)
	that.router.HandleFunc("/api/session/result/dismiss", that.handleDismissResult).Methods(http.MethodPost)
	that.router.HandleFunc("/api/session/play-again", that.handlePlayAgain).Methods(http.MethodPost)
}

// ServeHTTP implements http.Handler.
func (that *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	that.router.ServeHTTP(w, r)
}

// Start - serves the REST API until ctx is canceled.
func (that *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      that,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			that.logger.Error("failed to shutdown server", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}
