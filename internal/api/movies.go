package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/meur/eloforge/internal/tmdb"
)

// handleSearchMovies proxies a title search to the movie catalog
func (s *Server) handleSearchMovies(w http.ResponseWriter, r *http.Request) {
	if s.movies == nil {
		respondError(w, http.StatusServiceUnavailable, "Movie search is not configured")
		return
	}

	page := 1
	if p := r.URL.Query().Get("page"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, "page must be a positive integer")
			return
		}
		page = n
	}

	res, err := s.movies.SearchMovies(r.Context(), r.URL.Query().Get("q"), page)
	if err != nil {
		s.logger.Error("Movie search failed", "error", err)
		respondError(w, http.StatusBadGateway, "Failed to search movies. Please try again.")
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// handleGetMovie returns catalog details for one movie
func (s *Server) handleGetMovie(w http.ResponseWriter, r *http.Request) {
	if s.movies == nil {
		respondError(w, http.StatusServiceUnavailable, "Movie search is not configured")
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "tmdbID"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "Invalid movie id")
		return
	}

	movie, err := s.movies.MovieDetails(r.Context(), id)
	if errors.Is(err, tmdb.ErrNotFound) {
		respondError(w, http.StatusNotFound, "Movie not found")
		return
	}
	if err != nil {
		s.logger.Error("Movie lookup failed", "tmdb_id", id, "error", err)
		respondError(w, http.StatusBadGateway, "Failed to fetch movie")
		return
	}
	respondJSON(w, http.StatusOK, movie)
}
