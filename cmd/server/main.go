package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"github.com/meur/eloforge/internal/api"
	"github.com/meur/eloforge/internal/battle"
	"github.com/meur/eloforge/internal/config"
	"github.com/meur/eloforge/internal/letterboxd"
	"github.com/meur/eloforge/internal/metrics"
	"github.com/meur/eloforge/internal/rating"
	"github.com/meur/eloforge/internal/storage"
	"github.com/meur/eloforge/internal/tmdb"
)

func main() {
	// Load .env if present; real environment variables win
	_ = godotenv.Load()

	configPath := flag.String("config", getEnv("CONFIG_PATH", "config.yaml"), "Path to YAML config")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := cfg.Log.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	// Initialize storage
	store, err := storage.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()

	m := metrics.New()
	selector := rating.NewSelector(nil,
		rating.WithBucketWidth(cfg.Rating.BucketWidth),
		rating.WithMaxRetries(cfg.Rating.MaxRetries),
	)
	battles := battle.NewManager(store, store, battle.Config{
		BaseK:           cfg.Rating.BaseK,
		StreakWeight:    cfg.Rating.StreakWeight,
		DisableStreaks:  cfg.Rating.StreakWeight == 0,
		TransitionDelay: cfg.Battle.TransitionDelay,
		SessionTTL:      cfg.Battle.SessionTTL,
		Selector:        selector,
		Recorder:        m,
		Logger:          logger.With("component", "battle"),
	})

	opts := api.Options{
		Importer:       letterboxd.NewImporter(cfg.Letterboxd.BaseURL, cfg.Letterboxd.Timeout, logger.With("component", "letterboxd")),
		JWTSecret:      cfg.Auth.JWTSecret,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RateLimitRPS:   cfg.Server.RateLimitRPS,
		RateLimitBurst: cfg.Server.RateLimitBurst,
		Metrics:        m,
		Logger:         logger,
	}
	if cfg.TMDB.APIKey != "" {
		opts.Movies = tmdb.NewClient(cfg.TMDB.APIKey,
			tmdb.WithBaseURL(cfg.TMDB.BaseURL),
			tmdb.WithImageBaseURL(cfg.TMDB.ImageBaseURL),
			tmdb.WithTimeout(cfg.TMDB.Timeout),
			tmdb.WithRateLimit(cfg.TMDB.RequestsPerSecond),
		)
	} else {
		logger.Warn("TMDB_API_KEY not set, movie search disabled")
	}
	if cfg.Auth.JWTSecret == "" {
		logger.Warn("JWT_SECRET not set, authenticated routes will reject every request")
	}

	srv := api.New(store, battles, opts)

	// Serve frontend static files (for production deployment)
	if cfg.Server.StaticDir != "" {
		FileServer(srv.Router(), "/", http.Dir(cfg.Server.StaticDir))
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go pruneSessions(ctx, battles, time.Minute)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("EloForge API starting",
			"addr", fmt.Sprintf("http://localhost:%d", cfg.Server.Port),
			"database", cfg.Database.Path,
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown failed", "error", err)
	}
	if err := battles.Shutdown(shutdownCtx); err != nil {
		logger.Error("Pending rating writes did not finish", "error", err)
	}
	return nil
}

func pruneSessions(ctx context.Context, battles *battle.Manager, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			battles.Prune()
		}
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// FileServer conveniently sets up a http.FileServer handler to serve
// static files from a http.FileSystem.
func FileServer(r chi.Router, path string, root http.FileSystem) {
	if strings.ContainsAny(path, "{}*") {
		panic("FileServer does not permit URL parameters.")
	}

	if path != "/" && path[len(path)-1] != '/' {
		r.Get(path, http.RedirectHandler(path+"/", http.StatusMovedPermanently).ServeHTTP)
		path += "/"
	}
	path += "*"

	r.Get(path, func(w http.ResponseWriter, req *http.Request) {
		rctx := chi.RouteContext(req.Context())
		pathPrefix := strings.TrimSuffix(rctx.RoutePattern(), "/*")
		fs := http.StripPrefix(pathPrefix, http.FileServer(root))
		fs.ServeHTTP(w, req)
	})
}
