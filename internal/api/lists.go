package api

import (
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/meur/eloforge/internal/models"
)

// handleGetLists returns the caller's lists
func (s *Server) handleGetLists(w http.ResponseWriter, r *http.Request) {
	lists, err := s.store.GetListsByUser(r.Context(), UserID(r.Context()))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch lists")
		return
	}
	respondJSON(w, http.StatusOK, lists)
}

// handleCreateList creates a new list owned by the caller
func (s *Server) handleCreateList(w http.ResponseWriter, r *http.Request) {
	var req models.ListCreate
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		respondError(w, http.StatusBadRequest, "title is required")
		return
	}
	if req.Category == "" {
		req.Category = models.CategoryMovies
	}
	if msg := validateListFields(&req.Description, &req.Category); msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}

	list, err := s.store.CreateList(r.Context(), UserID(r.Context()), &req)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to create list")
		return
	}

	respondJSON(w, http.StatusCreated, list)
}

// handleGetList returns a list the caller may read
func (s *Server) handleGetList(w http.ResponseWriter, r *http.Request) {
	list, ok := s.readableList(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, list)
}

// handleUpdateList updates a list owned by the caller
func (s *Server) handleUpdateList(w http.ResponseWriter, r *http.Request) {
	list, ok := s.ownedList(w, r)
	if !ok {
		return
	}

	var update models.ListUpdate
	if err := decodeJSON(r, &update); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if update.Title != nil {
		title := strings.TrimSpace(*update.Title)
		if title == "" {
			respondError(w, http.StatusBadRequest, "title must not be empty")
			return
		}
		update.Title = &title
	}
	if msg := validateListFields(update.Description, update.Category); msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}

	if err := s.store.UpdateList(r.Context(), list.ID, &update); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to update list")
		return
	}

	// Return updated list
	updated, err := s.store.GetList(r.Context(), list.ID)
	if err != nil || updated == nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch list")
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

// handleDeleteList deletes a list and its items
func (s *Server) handleDeleteList(w http.ResponseWriter, r *http.Request) {
	list, ok := s.ownedList(w, r)
	if !ok {
		return
	}

	if err := s.store.DeleteList(r.Context(), list.ID); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to delete list")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// readableList loads {listID} and writes a 404 unless the caller may see it.
// Private lists of other users are reported as missing.
func (s *Server) readableList(w http.ResponseWriter, r *http.Request) (*models.List, bool) {
	list, err := s.store.GetList(r.Context(), chi.URLParam(r, "listID"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch list")
		return nil, false
	}
	if list == nil || !list.CanRead(UserID(r.Context())) {
		respondError(w, http.StatusNotFound, "List not found")
		return nil, false
	}
	return list, true
}

// ownedList is readableList plus a 403 for readers who are not the owner
func (s *Server) ownedList(w http.ResponseWriter, r *http.Request) (*models.List, bool) {
	list, ok := s.readableList(w, r)
	if !ok {
		return nil, false
	}
	if list.UserID != UserID(r.Context()) {
		respondError(w, http.StatusForbidden, "Only the owner can modify this list")
		return nil, false
	}
	return list, true
}

func validateListFields(description, category *string) string {
	if description != nil && utf8.RuneCountInString(*description) > models.MaxDescriptionLength {
		return "description must be at most 100 characters"
	}
	if category != nil && !models.ValidCategory(*category) {
		return "category must be one of MOVIES, MUSIC, CUSTOM"
	}
	return ""
}
