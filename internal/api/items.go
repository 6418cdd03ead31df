package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/meur/eloforge/internal/export"
	"github.com/meur/eloforge/internal/models"
	"github.com/meur/eloforge/internal/tmdb"
)

// handleGetItems returns a list's items, newest first or ranked by rating
func (s *Server) handleGetItems(w http.ResponseWriter, r *http.Request) {
	list, ok := s.readableList(w, r)
	if !ok {
		return
	}

	switch r.URL.Query().Get("sort") {
	case "", "added":
		items, err := s.store.ListItems(r.Context(), list.ID)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to fetch items")
			return
		}
		respondJSON(w, http.StatusOK, models.ItemList{Items: items, TotalCount: len(items)})
	case "rating":
		ranking, err := s.store.Ranking(r.Context(), list.ID)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to fetch items")
			return
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"items":       ranking,
			"total_count": len(ranking),
		})
	default:
		respondError(w, http.StatusBadRequest, "sort must be added or rating")
	}
}

// handleAddItem adds an item to a list. Movies given only by TMDB id are
// completed from the catalog.
func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	list, ok := s.ownedList(w, r)
	if !ok {
		return
	}

	var req models.ItemCreate
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	// Every new item starts at the default rating.
	req.Rating = nil
	req.Title = strings.TrimSpace(req.Title)

	if req.TMDBID > 0 && req.Title == "" && s.movies != nil {
		movie, err := s.movies.MovieDetails(r.Context(), req.TMDBID)
		if err != nil {
			s.logger.Warn("Movie lookup failed", "tmdb_id", req.TMDBID, "error", err)
			respondError(w, http.StatusBadGateway, "Failed to look up movie")
			return
		}
		req.Title = movie.Title
		if req.ImageRef == "" {
			req.ImageRef = movie.PosterPath
		}
	}
	if req.Title == "" {
		respondError(w, http.StatusBadRequest, "title or tmdb_id is required")
		return
	}

	item, err := s.store.CreateItem(r.Context(), list.ID, &req)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to add item")
		return
	}
	respondJSON(w, http.StatusCreated, item)
}

// handleDeleteItem removes an item from a list
func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	list, ok := s.ownedList(w, r)
	if !ok {
		return
	}

	item, err := s.store.GetItem(r.Context(), chi.URLParam(r, "itemID"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch item")
		return
	}
	if item == nil || item.ListID != list.ID {
		respondError(w, http.StatusNotFound, "Item not found")
		return
	}

	if err := s.store.DeleteItem(r.Context(), item.ID); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to delete item")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// handleExportList downloads the ranking as a spreadsheet
func (s *Server) handleExportList(w http.ResponseWriter, r *http.Request) {
	list, ok := s.readableList(w, r)
	if !ok {
		return
	}

	ranking, err := s.store.Ranking(r.Context(), list.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch items")
		return
	}

	var buf bytes.Buffer
	if err := export.WriteRanking(&buf, list, ranking, s.imageURL); err != nil {
		s.logger.Error("Export failed", "list_id", list.ID, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to export list")
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.xlsx"`, export.SheetName(list.Title)))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (s *Server) imageURL(path string) string {
	if s.movies != nil {
		return s.movies.ImageURL(path, tmdb.DefaultImageSize)
	}
	return tmdb.ImageURL(tmdb.DefaultImageBaseURL, path, tmdb.DefaultImageSize)
}
