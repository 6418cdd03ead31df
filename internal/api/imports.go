package api

import (
	"errors"
	"net/http"

	"github.com/meur/eloforge/internal/letterboxd"
	"github.com/meur/eloforge/internal/models"
)

// handleImportLetterboxd creates a list from a Letterboxd member's feed
func (s *Server) handleImportLetterboxd(w http.ResponseWriter, r *http.Request) {
	if s.importer == nil {
		respondError(w, http.StatusServiceUnavailable, "Letterboxd import is not configured")
		return
	}

	var req models.ImportRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := s.importer.Import(r.Context(), s.store, UserID(r.Context()), req.Username)
	switch {
	case errors.Is(err, letterboxd.ErrInvalidUsername):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, letterboxd.ErrUserNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, letterboxd.ErrEmptyFeed):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	case err != nil:
		s.logger.Error("Letterboxd import failed", "username", req.Username, "error", err)
		respondError(w, http.StatusBadGateway, "Failed to import from Letterboxd")
	default:
		respondJSON(w, http.StatusCreated, res)
	}
}
