package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"github.com/meur/eloforge/internal/battle"
	"github.com/meur/eloforge/internal/letterboxd"
	"github.com/meur/eloforge/internal/metrics"
	"github.com/meur/eloforge/internal/storage"
	"github.com/meur/eloforge/internal/tmdb"
)

// MovieCatalog looks up movie metadata
type MovieCatalog interface {
	SearchMovies(ctx context.Context, query string, page int) (*tmdb.SearchResult, error)
	MovieDetails(ctx context.Context, id int64) (*tmdb.Movie, error)
	ImageURL(path, size string) string
}

// Options holds the optional collaborators of a Server
type Options struct {
	Movies         MovieCatalog
	Importer       *letterboxd.Importer
	JWTSecret      string
	AllowedOrigins []string
	RateLimitRPS   float64
	RateLimitBurst int
	Metrics        *metrics.Metrics
	Logger         *slog.Logger
}

// Server holds the HTTP server dependencies
type Server struct {
	store    *storage.Store
	battles  *battle.Manager
	movies   MovieCatalog
	importer *letterboxd.Importer
	auth     *Authenticator
	limiter  *IPRateLimiter
	metrics  *metrics.Metrics
	logger   *slog.Logger
	origins  []string
	router   chi.Router
}

// New creates a new API server
func New(store *storage.Store, battles *battle.Manager, opts Options) *Server {
	s := &Server{
		store:    store,
		battles:  battles,
		movies:   opts.Movies,
		importer: opts.Importer,
		auth:     NewAuthenticator(opts.JWTSecret),
		metrics:  opts.Metrics,
		logger:   opts.Logger,
		origins:  opts.AllowedOrigins,
		router:   chi.NewRouter(),
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if len(s.origins) == 0 {
		s.origins = []string{"http://localhost:*"}
	}
	if opts.RateLimitRPS > 0 {
		burst := opts.RateLimitBurst
		if burst <= 0 {
			burst = int(opts.RateLimitRPS)
		}
		s.limiter = NewIPRateLimiter(rate.Limit(opts.RateLimitRPS), burst)
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Router exposes the router so binaries can mount extra handlers
func (s *Server) Router() chi.Router {
	return s.router
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Route("/api", func(r chi.Router) {
		if s.limiter != nil {
			r.Use(RateLimit(s.limiter))
		}
		r.Use(s.auth.Authenticate)

		// Movie metadata
		r.Get("/search/movies", s.handleSearchMovies)
		r.Get("/movies/{tmdbID}", s.handleGetMovie)

		// Lists
		r.Route("/lists", func(r chi.Router) {
			r.With(RequireUser).Get("/", s.handleGetLists)
			r.With(RequireUser).Post("/", s.handleCreateList)

			r.Route("/{listID}", func(r chi.Router) {
				r.Get("/", s.handleGetList)
				r.Get("/items", s.handleGetItems)
				r.Get("/export.xlsx", s.handleExportList)

				r.Group(func(r chi.Router) {
					r.Use(RequireUser)
					r.Put("/", s.handleUpdateList)
					r.Delete("/", s.handleDeleteList)
					r.Post("/items", s.handleAddItem)
					r.Delete("/items/{itemID}", s.handleDeleteItem)
					r.Post("/battles", s.handleStartBattle)
				})
			})
		})

		// Imports
		r.With(RequireUser).Post("/import/letterboxd", s.handleImportLetterboxd)

		// Battles
		r.Route("/battles/{sessionID}", func(r chi.Router) {
			r.Use(RequireUser)
			r.Get("/", s.handleGetBattle)
			r.Post("/choose", s.handleChoose)
			r.Delete("/", s.handleEndBattle)
		})
	})

	if s.metrics != nil {
		s.router.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	// Health check
	s.router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := s.store.Ping(r.Context()); err != nil {
			respondError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

// --- Response helpers ---

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func decodeJSON(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}
