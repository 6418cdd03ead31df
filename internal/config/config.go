package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/meur/eloforge/internal/rating"
)

// Config struct to hold the configuration settings
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Auth       AuthConfig       `yaml:"auth"`
	TMDB       TMDBConfig       `yaml:"tmdb"`
	Letterboxd LetterboxdConfig `yaml:"letterboxd"`
	Rating     RatingConfig     `yaml:"rating"`
	Battle     BattleConfig     `yaml:"battle"`
	Log        LogConfig        `yaml:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	RateLimitRPS   float64  `yaml:"rate_limit_rps"`
	RateLimitBurst int      `yaml:"rate_limit_burst"`
	StaticDir      string   `yaml:"static_dir"`
}

// DatabaseConfig holds SQLite configuration.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// AuthConfig holds the shared secret used to verify bearer tokens.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

// TMDBConfig holds movie metadata API configuration.
type TMDBConfig struct {
	APIKey            string        `yaml:"api_key"`
	BaseURL           string        `yaml:"base_url"`
	ImageBaseURL      string        `yaml:"image_base_url"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
}

// LetterboxdConfig holds feed import configuration.
type LetterboxdConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// RatingConfig holds the rating engine tunables.
type RatingConfig struct {
	BaseK        float64 `yaml:"base_k"`
	StreakWeight float64 `yaml:"streak_weight"`
	BucketWidth  float64 `yaml:"bucket_width"`
	MaxRetries   int     `yaml:"max_retries"`
}

// BattleConfig holds battle session settings.
type BattleConfig struct {
	TransitionDelay time.Duration `yaml:"transition_delay"`
	SessionTTL      time.Duration `yaml:"session_ttl"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text|json
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           8080,
			AllowedOrigins: []string{"http://localhost:*"},
			RateLimitRPS:   20,
			RateLimitBurst: 40,
		},
		Database: DatabaseConfig{Path: "./eloforge.db"},
		TMDB: TMDBConfig{
			BaseURL:           "https://api.themoviedb.org/3",
			ImageBaseURL:      "https://image.tmdb.org/t/p",
			Timeout:           10 * time.Second,
			RequestsPerSecond: 20,
		},
		Letterboxd: LetterboxdConfig{
			BaseURL: "https://letterboxd.com",
			Timeout: 15 * time.Second,
		},
		Rating: RatingConfig{
			BaseK:        rating.DefaultK,
			StreakWeight: rating.DefaultStreakWeight,
			BucketWidth:  rating.DefaultBucketWidth,
			MaxRetries:   rating.DefaultMaxRetries,
		},
		Battle: BattleConfig{
			SessionTTL: 2 * time.Hour,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// LoadConfig loads the configuration from a YAML file. A missing file is not
// an error: defaults plus environment variables are used instead.
func LoadConfig(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// --- OVERRIDE WITH ENV VARS IF PRESENT ---
func (c *Config) applyEnv() error {
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return errors.New("invalid PORT env variable")
		}
		c.Server.Port = port
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		c.Server.AllowedOrigins = strings.Split(v, ",")
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("TMDB_API_KEY"); v != "" {
		c.TMDB.APIKey = v
	}
	if v := os.Getenv("TMDB_BASE_URL"); v != "" {
		c.TMDB.BaseURL = v
	}
	if v := os.Getenv("BATTLE_TRANSITION_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid BATTLE_TRANSITION_DELAY: %w", err)
		}
		c.Battle.TransitionDelay = d
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	return nil
}

// Validate checks the configuration for values the service cannot run with
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return errors.New("database.path is required")
	}
	if c.Rating.BaseK <= 0 {
		return fmt.Errorf("rating.base_k must be positive, got %v", c.Rating.BaseK)
	}
	if c.Rating.StreakWeight < 0 {
		return fmt.Errorf("rating.streak_weight must not be negative, got %v", c.Rating.StreakWeight)
	}
	if c.Rating.BucketWidth <= 0 {
		return fmt.Errorf("rating.bucket_width must be positive, got %v", c.Rating.BucketWidth)
	}
	if c.Rating.MaxRetries < 0 {
		return fmt.Errorf("rating.max_retries must not be negative, got %d", c.Rating.MaxRetries)
	}
	if c.Battle.TransitionDelay < 0 {
		return errors.New("battle.transition_delay must not be negative")
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// NewLogger builds the service logger described by the log section
func (c LogConfig) NewLogger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log.level %q", s)
	}
	return level, nil
}
