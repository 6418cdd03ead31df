package battle

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/meur/eloforge/internal/models"
	"github.com/meur/eloforge/internal/rating"
)

var tracer = otel.Tracer("github.com/meur/eloforge/internal/battle")

var (
	// ErrInsufficientItems is returned when a list has fewer than two items
	ErrInsufficientItems = rating.ErrInsufficientItems
	// ErrBusy is returned while the previous comparison is still transitioning
	ErrBusy = errors.New("a comparison is already in progress")
	// ErrNotInMatchup is returned when the chosen winner is not on screen
	ErrNotInMatchup = errors.New("item is not part of the current matchup")
	// ErrSessionNotFound is returned for unknown or expired sessions
	ErrSessionNotFound = errors.New("battle session not found")
	// ErrManagerClosed is returned once the manager is shutting down
	ErrManagerClosed = errors.New("battle manager is shut down")
)

// Session is one run of sequential comparisons over a fixed item set.
// All methods are safe for concurrent use; calls are serialised.
type Session struct {
	ID     string
	ListID string
	UserID string

	mu          sync.Mutex
	items       []models.Item
	index       map[string]int
	current     rating.Pair
	next        rating.Pair
	streaks     *rating.Streaks
	busy        bool
	comparisons int
	lastActive  time.Time

	selector *rating.Selector
	writer   RatingWriter
	recorder Recorder
	logger   *slog.Logger
	delay    time.Duration
	writes   *writeGroup
	now      func() time.Time

	queue    []writeBatch
	draining bool
}

// View is the client-facing state of a session
type View struct {
	ID          string         `json:"id"`
	ListID      string         `json:"list_id"`
	Current     []models.Item  `json:"current"`
	Next        []models.Item  `json:"next"`
	Busy        bool           `json:"busy"`
	Comparisons int            `json:"comparisons"`
	Streaks     map[string]int `json:"streaks"`
}

// start picks the opening pair and the look-ahead pair
func (s *Session) start() error {
	first, err := s.selector.Select(s.items, rating.Pair{})
	if err != nil {
		return err
	}
	s.recorder.PairSelected(first.Fallback, first.Repeat)
	s.current = first.Pair

	second, err := s.selector.Select(s.items, s.current)
	if err != nil {
		return err
	}
	s.recorder.PairSelected(second.Fallback, second.Repeat)
	s.next = second.Pair
	return nil
}

// Choose records winnerID beating the other item of the current pair
func (s *Session) Choose(ctx context.Context, winnerID string) (*models.Outcome, error) {
	ctx, span := tracer.Start(ctx, "battle.Choose", trace.WithAttributes(
		attribute.String("session.id", s.ID),
		attribute.String("winner.id", winnerID),
	))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.busy {
		span.SetStatus(codes.Error, ErrBusy.Error())
		return nil, ErrBusy
	}
	loser, ok := s.current.Opponent(winnerID)
	if !ok {
		span.SetStatus(codes.Error, ErrNotInMatchup.Error())
		return nil, ErrNotInMatchup
	}
	if !s.writes.add() {
		span.SetStatus(codes.Error, ErrManagerClosed.Error())
		return nil, ErrManagerClosed
	}

	w := &s.items[s.index[winnerID]]
	l := &s.items[s.index[loser.ID]]

	k := s.streaks.Record(w.ID, l.ID)
	newWinner, newLoser := rating.Calculate(w.Rating, l.Rating, k)

	outcome := &models.Outcome{
		WinnerID:        w.ID,
		LoserID:         l.ID,
		K:               k,
		OldWinnerRating: w.Rating,
		OldLoserRating:  l.Rating,
		NewWinnerRating: newWinner,
		NewLoserRating:  newLoser,
		WinnerStreak:    s.streaks.Get(w.ID),
	}
	w.Rating = newWinner
	l.Rating = newLoser
	s.comparisons++
	s.lastActive = s.now()
	s.recorder.ComparisonRecorded()

	s.logger.Debug("Comparison recorded",
		"session_id", s.ID,
		"winner_id", w.ID,
		"loser_id", l.ID,
		"k", k,
		"winner_rating", newWinner,
		"loser_rating", newLoser,
	)

	if s.delay > 0 {
		s.busy = true
		time.AfterFunc(s.delay, func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.advance()
			s.busy = false
		})
	} else {
		s.advance()
	}

	// Writes are best-effort and applied in comparison order; local state is authoritative.
	s.enqueue(writeBatch{
		ctx: context.WithoutCancel(ctx),
		updates: []ratingUpdate{
			{itemID: w.ID, rating: newWinner},
			{itemID: l.ID, rating: newLoser},
		},
	})

	return outcome, nil
}

// advance moves to the look-ahead pair and selects the one after it.
// Callers hold s.mu.
func (s *Session) advance() {
	s.current = s.fresh(s.next)

	sel, err := s.selector.Select(s.items, s.current)
	if err != nil {
		s.logger.Error("Failed to select next matchup", "session_id", s.ID, "error", err)
		return
	}
	s.recorder.PairSelected(sel.Fallback, sel.Repeat)
	s.next = sel.Pair
}

func (s *Session) persist(ctx context.Context, itemID string, r float64) {
	ctx, span := tracer.Start(ctx, "battle.PersistRating", trace.WithAttributes(
		attribute.String("item.id", itemID),
		attribute.Float64("item.rating", r),
	))
	defer span.End()

	err := s.writer.UpdateRating(ctx, itemID, r)
	s.recorder.RatingWritten(err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "rating write failed")
		s.logger.Error("Failed to persist rating",
			"session_id", s.ID,
			"item_id", itemID,
			"rating", r,
			"error", err,
		)
	}
}

// fresh replaces pair snapshots with the session's current ratings
func (s *Session) fresh(p rating.Pair) rating.Pair {
	for i := range p {
		if idx, ok := s.index[p[i].ID]; ok {
			p[i] = s.items[idx]
		}
	}
	return p
}

// Current returns the pair on screen
func (s *Session) Current() rating.Pair {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fresh(s.current)
}

// Busy reports whether a transition is in flight
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Streak returns an item's consecutive wins in this session
func (s *Session) Streak(itemID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streaks.Get(itemID)
}

// View snapshots the session for clients
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, next := s.fresh(s.current), s.fresh(s.next)
	return View{
		ID:          s.ID,
		ListID:      s.ListID,
		Current:     cur[:],
		Next:        next[:],
		Busy:        s.busy,
		Comparisons: s.comparisons,
		Streaks:     s.streaks.Snapshot(),
	}
}

// Standings returns the session's items ranked by their in-memory rating
func (s *Session) Standings() []models.RankedItem {
	s.mu.Lock()
	items := slices.Clone(s.items)
	s.mu.Unlock()

	slices.SortStableFunc(items, func(a, b models.Item) int {
		switch {
		case a.Rating > b.Rating:
			return -1
		case a.Rating < b.Rating:
			return 1
		}
		return 0
	})

	ranked := make([]models.RankedItem, len(items))
	for i, item := range items {
		ranked[i] = models.RankedItem{Rank: i + 1, Item: item}
	}
	return ranked
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}
