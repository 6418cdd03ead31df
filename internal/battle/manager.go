package battle

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/meur/eloforge/internal/models"
	"github.com/meur/eloforge/internal/rating"
)

// ItemSource loads the items a session ranks
type ItemSource interface {
	ListItems(ctx context.Context, listID string) ([]models.Item, error)
}

// RatingWriter persists a single item's rating
type RatingWriter interface {
	UpdateRating(ctx context.Context, itemID string, rating float64) error
}

// Recorder receives battle events, typically for metrics
type Recorder interface {
	ComparisonRecorded()
	RatingWritten(err error)
	PairSelected(fallback, repeat bool)
	SessionStarted()
	SessionsActive(n int)
}

type nopRecorder struct{}

func (nopRecorder) ComparisonRecorded()     {}
func (nopRecorder) RatingWritten(error)     {}
func (nopRecorder) PairSelected(bool, bool) {}
func (nopRecorder) SessionStarted()         {}
func (nopRecorder) SessionsActive(int)      {}

// Config tunes a Manager. Zero values fall back to package defaults.
type Config struct {
	BaseK        float64
	StreakWeight float64
	// DisableStreaks keeps K at BaseK regardless of win streaks.
	DisableStreaks  bool
	TransitionDelay time.Duration
	// SessionTTL evicts sessions idle for longer; zero keeps them forever.
	SessionTTL time.Duration
	Selector   *rating.Selector
	Recorder   Recorder
	Logger     *slog.Logger
}

// Manager owns the live battle sessions
type Manager struct {
	source ItemSource
	writer RatingWriter
	cfg    Config

	mu       sync.Mutex
	sessions map[string]*Session
	writes   writeGroup
	now      func() time.Time
}

// NewManager creates a session manager
func NewManager(source ItemSource, writer RatingWriter, cfg Config) *Manager {
	if cfg.BaseK <= 0 {
		cfg.BaseK = rating.DefaultK
	}
	switch {
	case cfg.DisableStreaks:
		cfg.StreakWeight = 0
	case cfg.StreakWeight <= 0:
		cfg.StreakWeight = rating.DefaultStreakWeight
	}
	if cfg.Selector == nil {
		cfg.Selector = rating.NewSelector(nil)
	}
	if cfg.Recorder == nil {
		cfg.Recorder = nopRecorder{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Manager{
		source:   source,
		writer:   writer,
		cfg:      cfg,
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Start loads a list's items and opens a new session over them
func (m *Manager) Start(ctx context.Context, listID, userID string) (*Session, error) {
	ctx, span := tracer.Start(ctx, "battle.Start", trace.WithAttributes(
		attribute.String("list.id", listID),
	))
	defer span.End()

	if m.writes.isClosed() {
		return nil, ErrManagerClosed
	}

	items, err := m.source.ListItems(ctx, listID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to load items: %w", err)
	}
	if len(items) < 2 {
		return nil, ErrInsufficientItems
	}
	items = slices.Clone(items)

	index := make(map[string]int, len(items))
	for i, item := range items {
		index[item.ID] = i
	}

	s := &Session{
		ID:         uuid.New().String(),
		ListID:     listID,
		UserID:     userID,
		items:      items,
		index:      index,
		streaks:    rating.NewStreaks(m.cfg.BaseK, m.cfg.StreakWeight),
		lastActive: m.now(),
		selector:   m.cfg.Selector,
		writer:     m.writer,
		recorder:   m.cfg.Recorder,
		logger:     m.cfg.Logger,
		delay:      m.cfg.TransitionDelay,
		writes:     &m.writes,
		now:        m.now,
	}
	if err := s.start(); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("session.id", s.ID), attribute.Int("items", len(items)))

	m.mu.Lock()
	m.pruneLocked()
	m.sessions[s.ID] = s
	active := len(m.sessions)
	m.mu.Unlock()

	m.cfg.Recorder.SessionStarted()
	m.cfg.Recorder.SessionsActive(active)
	m.cfg.Logger.Info("Battle session started",
		"session_id", s.ID,
		"list_id", listID,
		"items", len(items),
	)
	return s, nil
}

// Get returns a live session
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if m.expired(s) {
		delete(m.sessions, id)
		m.cfg.Recorder.SessionsActive(len(m.sessions))
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// End discards a session. Writes already issued still complete.
func (m *Manager) End(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(m.sessions, id)
	m.cfg.Recorder.SessionsActive(len(m.sessions))
	return nil
}

// Len returns the number of live sessions
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Prune drops idle sessions and returns how many were removed
func (m *Manager) Prune() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pruneLocked()
}

func (m *Manager) pruneLocked() int {
	removed := 0
	for id, s := range m.sessions {
		if m.expired(s) {
			delete(m.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		m.cfg.Recorder.SessionsActive(len(m.sessions))
		m.cfg.Logger.Debug("Pruned idle battle sessions", "removed", removed)
	}
	return removed
}

func (m *Manager) expired(s *Session) bool {
	if m.cfg.SessionTTL <= 0 {
		return false
	}
	return m.now().Sub(s.idleSince()) > m.cfg.SessionTTL
}

// Wait blocks until every background rating write has finished
func (m *Manager) Wait() {
	m.writes.wait()
}

// Shutdown stops accepting comparisons, then waits for pending writes or until ctx is done
func (m *Manager) Shutdown(ctx context.Context) error {
	m.writes.close()

	done := make(chan struct{})
	go func() {
		m.writes.wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
