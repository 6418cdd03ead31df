package letterboxd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/meur/eloforge/internal/models"
)

const DefaultBaseURL = "https://letterboxd.com"

var (
	// ErrInvalidUsername is returned for names Letterboxd would not accept
	ErrInvalidUsername = errors.New("invalid letterboxd username")
	// ErrEmptyFeed is returned when the feed has no entries
	ErrEmptyFeed = errors.New("no movies found in the feed")
	// ErrUserNotFound is returned when the feed does not exist
	ErrUserNotFound = errors.New("letterboxd user not found")
)

var usernameRegex = regexp.MustCompile(`^[A-Za-z0-9_]{1,64}$`)

// Store is the persistence the importer writes to
type Store interface {
	CreateList(ctx context.Context, userID string, req *models.ListCreate) (*models.List, error)
	CreateItem(ctx context.Context, listID string, req *models.ItemCreate) (*models.Item, error)
}

// Result summarises an import
type Result struct {
	List     *models.List `json:"list"`
	Imported int          `json:"imported"`
	Skipped  int          `json:"skipped"`
	Failed   int          `json:"failed"`
}

// Importer fetches feeds and turns them into lists
type Importer struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewImporter creates an importer against baseURL ("" = letterboxd.com)
func NewImporter(baseURL string, timeout time.Duration, logger *slog.Logger) *Importer {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Importer{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger,
	}
}

// FeedURL returns the RSS URL for username
func (im *Importer) FeedURL(username string) string {
	return fmt.Sprintf("%s/%s/rss/", im.baseURL, username)
}

// Fetch downloads and parses a member's feed
func (im *Importer) Fetch(ctx context.Context, username string) (*Feed, error) {
	username = strings.TrimSpace(username)
	if !usernameRegex.MatchString(username) {
		return nil, ErrInvalidUsername
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, im.FeedURL(username), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/rss+xml, application/xml")

	resp, err := im.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch RSS feed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrUserNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("failed to fetch RSS feed: %s", resp.Status)
	}

	feed, err := ParseFeed(resp.Body)
	if err != nil {
		return nil, err
	}
	if feed.Entries == 0 {
		return nil, ErrEmptyFeed
	}
	for _, title := range feed.Skipped {
		im.logger.Warn("No TMDB ID found for movie", "username", username, "title", title)
	}
	return feed, nil
}

// Import creates "Letterboxd Import - {username}" for userID and adds every
// film from the feed. Item failures are logged and counted, not returned.
func (im *Importer) Import(ctx context.Context, store Store, userID, username string) (*Result, error) {
	username = strings.TrimSpace(username)
	feed, err := im.Fetch(ctx, username)
	if err != nil {
		return nil, err
	}

	list, err := store.CreateList(ctx, userID, &models.ListCreate{
		Title:       "Letterboxd Import - " + username,
		Description: "Movies imported from Letterboxd",
		Category:    models.CategoryMovies,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create list: %w", err)
	}

	res := &Result{List: list, Skipped: len(feed.Skipped)}
	for _, film := range feed.Films {
		_, err := store.CreateItem(ctx, list.ID, &models.ItemCreate{
			TMDBID:   film.TMDBID,
			Title:    film.Title,
			ImageRef: film.PosterURL,
		})
		if err != nil {
			res.Failed++
			im.logger.Error("Failed to import movie",
				"list_id", list.ID,
				"title", film.Title,
				"tmdb_id", film.TMDBID,
				"error", err,
			)
			continue
		}
		res.Imported++
	}

	im.logger.Info("Letterboxd import complete",
		"username", username,
		"list_id", list.ID,
		"imported", res.Imported,
		"skipped", res.Skipped,
		"failed", res.Failed,
	)
	return res, nil
}
