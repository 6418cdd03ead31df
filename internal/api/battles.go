package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/meur/eloforge/internal/battle"
	"github.com/meur/eloforge/internal/models"
)

type choiceResponse struct {
	Outcome *models.Outcome `json:"outcome"`
	Session battle.View     `json:"session"`
}

// handleStartBattle opens a battle session over a list the caller owns
func (s *Server) handleStartBattle(w http.ResponseWriter, r *http.Request) {
	list, ok := s.ownedList(w, r)
	if !ok {
		return
	}

	session, err := s.battles.Start(r.Context(), list.ID, UserID(r.Context()))
	if err != nil {
		s.respondBattleError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, session.View())
}

// handleGetBattle returns the current matchup of a session
func (s *Server) handleGetBattle(w http.ResponseWriter, r *http.Request) {
	session, ok := s.callerSession(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, session.View())
}

// handleChoose records the caller's pick for the current matchup
func (s *Server) handleChoose(w http.ResponseWriter, r *http.Request) {
	session, ok := s.callerSession(w, r)
	if !ok {
		return
	}

	var req models.ChooseRequest
	if err := decodeJSON(r, &req); err != nil || req.WinnerID == "" {
		respondError(w, http.StatusBadRequest, "winner_id is required")
		return
	}

	outcome, err := session.Choose(r.Context(), req.WinnerID)
	if err != nil {
		s.respondBattleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, choiceResponse{Outcome: outcome, Session: session.View()})
}

// handleEndBattle discards a session
func (s *Server) handleEndBattle(w http.ResponseWriter, r *http.Request) {
	session, ok := s.callerSession(w, r)
	if !ok {
		return
	}
	if err := s.battles.End(session.ID); err != nil {
		s.respondBattleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// callerSession loads {sessionID}; sessions of other users are reported as missing
func (s *Server) callerSession(w http.ResponseWriter, r *http.Request) (*battle.Session, bool) {
	session, err := s.battles.Get(chi.URLParam(r, "sessionID"))
	if err != nil || session.UserID != UserID(r.Context()) {
		respondError(w, http.StatusNotFound, battle.ErrSessionNotFound.Error())
		return nil, false
	}
	return session, true
}

func (s *Server) respondBattleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, battle.ErrInsufficientItems):
		respondError(w, http.StatusUnprocessableEntity, "A list needs at least two items to battle")
	case errors.Is(err, battle.ErrBusy):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, battle.ErrNotInMatchup):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, battle.ErrSessionNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, battle.ErrManagerClosed):
		respondError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.logger.Error("Battle request failed", "error", err)
		respondError(w, http.StatusInternalServerError, "Battle request failed")
	}
}
