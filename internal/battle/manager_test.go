package battle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meur/eloforge/internal/models"
)

func TestManager_StartRequiresTwoItems(t *testing.T) {
	tests := []struct {
		name  string
		items []models.Item
	}{
		{name: "empty list", items: nil},
		{name: "single item", items: makeItems(1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestManager(NewFakeStore(tt.items), Config{})

			_, err := m.Start(context.Background(), "list-1", "user-1")
			assert.ErrorIs(t, err, ErrInsufficientItems)
			assert.Zero(t, m.Len())
		})
	}
}

func TestManager_StartPropagatesLoadError(t *testing.T) {
	store := NewFakeStore(nil)
	boom := errors.New("disk I/O error")
	store.ListItemsFunc = func(ctx context.Context, listID string) ([]models.Item, error) {
		return nil, boom
	}
	m := newTestManager(store, Config{})

	_, err := m.Start(context.Background(), "list-1", "user-1")
	assert.ErrorIs(t, err, boom)
}

func TestManager_StartGetEnd(t *testing.T) {
	store := NewFakeStore(makeItems(4))
	rec := &FakeRecorder{}
	m := newTestManager(store, Config{Recorder: rec})

	s, err := m.Start(context.Background(), "list-1", "user-1")
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, "list-1", s.ListID)
	assert.Equal(t, "user-1", s.UserID)
	assert.Equal(t, []string{"ListItems"}, store.Trace())

	got, err := m.Get(s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)

	require.NoError(t, m.End(s.ID))
	_, err = m.Get(s.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, m.End(s.ID), ErrSessionNotFound)

	assert.Equal(t, 1, rec.Started)
	assert.Equal(t, []int{1, 0}, rec.ActiveReports)
	assert.Equal(t, 2, rec.Selections, "opening pair plus look-ahead")
}

func TestManager_SessionsDoNotShareItems(t *testing.T) {
	store := NewFakeStore(makeItems(2))
	m := newTestManager(store, Config{})

	a, err := m.Start(context.Background(), "list-1", "user-1")
	require.NoError(t, err)
	b, err := m.Start(context.Background(), "list-1", "user-1")
	require.NoError(t, err)

	_, err = a.Choose(context.Background(), a.Current()[0].ID)
	require.NoError(t, err)
	m.Wait()

	for _, item := range b.Standings() {
		assert.Equal(t, models.DefaultRating, item.Rating)
	}
}

func TestManager_ExpiresIdleSessions(t *testing.T) {
	store := NewFakeStore(makeItems(3))
	m := newTestManager(store, Config{SessionTTL: time.Hour})

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	stale, err := m.Start(context.Background(), "list-1", "user-1")
	require.NoError(t, err)

	now = now.Add(30 * time.Minute)
	fresh, err := m.Start(context.Background(), "list-1", "user-2")
	require.NoError(t, err)

	now = now.Add(45 * time.Minute)
	_, err = m.Get(stale.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = m.Get(fresh.ID)
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	assert.Equal(t, 1, m.Prune())
	assert.Zero(t, m.Len())
}

func TestManager_ShutdownHonoursContext(t *testing.T) {
	store := NewFakeStore(makeItems(2))
	release := make(chan struct{})
	store.UpdateRatingFunc = func(ctx context.Context, itemID string, rating float64) error {
		<-release
		return nil
	}
	m := newTestManager(store, Config{})

	s, err := m.Start(context.Background(), "list-1", "user-1")
	require.NoError(t, err)
	_, err = s.Choose(context.Background(), s.Current()[0].ID)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, m.Shutdown(ctx), context.DeadlineExceeded)

	close(release)
	assert.NoError(t, m.Shutdown(context.Background()))
	assert.Len(t, store.Written(), 2)
}

func TestManager_ShutdownRejectsNewWork(t *testing.T) {
	store := NewFakeStore(makeItems(4))
	m := newTestManager(store, Config{})

	s, err := m.Start(context.Background(), "list-1", "user-1")
	require.NoError(t, err)
	require.NoError(t, m.Shutdown(context.Background()))

	_, err = s.Choose(context.Background(), s.Current()[0].ID)
	assert.ErrorIs(t, err, ErrManagerClosed)
	assert.Zero(t, s.View().Comparisons)
	assert.Empty(t, s.View().Streaks)

	_, err = m.Start(context.Background(), "list-1", "user-1")
	assert.ErrorIs(t, err, ErrManagerClosed)
	assert.Empty(t, store.Written())
}
