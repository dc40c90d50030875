package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rocketscienceinc/sunmoon/internal/apperror"
	"github.com/rocketscienceinc/sunmoon/internal/entity"
	"github.com/rocketscienceinc/sunmoon/internal/pkg"
	"github.com/rocketscienceinc/sunmoon/internal/usecase"
)

type errorResponse struct {
	Error string `json:"error"`
}

func (that *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	snapshot, err := that.resolveSession(w, r)
	if err != nil {
		that.respondError(w, "handleGetSession", err)
		return
	}

	respondJSON(w, http.StatusOK, snapshot)
}

func (that *Server) handleSelectCell(w http.ResponseWriter, r *http.Request) {
	cell, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		that.respondError(w, "handleSelectCell", apperror.ErrInvalidCell)
		return
	}

	that.applyCommand(w, r, "handleSelectCell", usecase.SelectCellCommand(cell))
}

func (that *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	full := false

	if value := r.URL.Query().Get("full"); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			that.respondError(w, "handleReset", apperror.ErrInvalidPayload)
			return
		}
		full = parsed
	}

	that.applyCommand(w, r, "handleReset", usecase.ResetCommand(full))
}

func (that *Server) handleDismissResult(w http.ResponseWriter, r *http.Request) {
	that.applyCommand(w, r, "handleDismissResult", usecase.DismissResultCommand())
}

func (that *Server) handlePlayAgain(w http.ResponseWriter, r *http.Request) {
	that.applyCommand(w, r, "handlePlayAgain", usecase.PlayAgainCommand())
}

func (that *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	id := pkg.SessionIDFromRequest(r)

	http.SetCookie(w, pkg.ExpiredSessionCookie())

	if id != "" {
		if err := that.sessions.EndSession(r.Context(), id); err != nil && !errors.Is(err, apperror.ErrSessionNotFound) {
			that.respondError(w, "handleEndSession", err)
			return
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

// applyCommand runs cmd on the caller's session. A browser without a live
// session lands on a fresh one and gets its cookie.
func (that *Server) applyCommand(w http.ResponseWriter, r *http.Request, method string, cmd usecase.Command) {
	id := pkg.SessionIDFromRequest(r)

	snapshot, err := that.sessions.Execute(r.Context(), id, cmd)
	if err != nil {
		that.respondError(w, method, err)
		return
	}

	that.refreshCookie(w, id, snapshot.ID)
	respondJSON(w, http.StatusOK, snapshot)
}

func (that *Server) resolveSession(w http.ResponseWriter, r *http.Request) (entity.Snapshot, error) {
	id := pkg.SessionIDFromRequest(r)

	snapshot, err := that.sessions.GetOrCreateSession(r.Context(), id)
	if err != nil {
		return entity.Snapshot{}, err
	}

	that.refreshCookie(w, id, snapshot.ID)

	return snapshot, nil
}

func (that *Server) refreshCookie(w http.ResponseWriter, requested, actual string) {
	if requested != actual {
		http.SetCookie(w, pkg.NewSessionCookie(actual, that.cookieTTL))
	}
}

func (that *Server) respondError(w http.ResponseWriter, method string, err error) {
	switch {
	case errors.Is(err, apperror.ErrInvalidCell), errors.Is(err, apperror.ErrInvalidPayload):
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, apperror.ErrSessionNotFound):
		respondJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	default:
		that.logger.Error("request failed", "method", method, "error", err)
		respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal Server Error"})
	}
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
