package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meur/eloforge/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "eloforge.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_Lists(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	l, err := s.CreateList(ctx, "user-1", &models.ListCreate{Title: "Best of 2024", Description: "films"})
	require.NoError(t, err)
	assert.Equal(t, models.CategoryMovies, l.Category, "category defaults to MOVIES")

	got, err := s.GetList(ctx, l.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Best of 2024", got.Title)
	assert.Equal(t, "user-1", got.UserID)
	assert.False(t, got.IsPublic)

	missing, err := s.GetList(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	title, public := "Best of all time", true
	require.NoError(t, s.UpdateList(ctx, l.ID, &models.ListUpdate{Title: &title, IsPublic: &public}))
	got, err = s.GetList(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, title, got.Title)
	assert.True(t, got.IsPublic)
	assert.Equal(t, "films", got.Description)

	assert.ErrorIs(t, s.UpdateList(ctx, "nope", &models.ListUpdate{Title: &title}), ErrNotFound)

	summaries, err := s.GetListsByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, 0, summaries[0].ItemCount)

	others, err := s.GetListsByUser(ctx, "user-2")
	require.NoError(t, err)
	assert.Empty(t, others)
}

func TestStore_Items(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	faker := gofakeit.New(1)

	l, err := s.CreateList(ctx, "user-1", &models.ListCreate{Title: "Movies"})
	require.NoError(t, err)

	var ids []string
	for i := 0; i < 3; i++ {
		item, err := s.CreateItem(ctx, l.ID, &models.ItemCreate{
			TMDBID:   int64(100 + i),
			Title:    faker.MovieName(),
			ImageRef: "/poster.jpg",
		})
		require.NoError(t, err)
		assert.Equal(t, models.DefaultRating, item.Rating)
		ids = append(ids, item.ID)
		time.Sleep(5 * time.Millisecond)
	}

	items, err := s.ListItems(ctx, l.ID)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, ids[2], items[0].ID, "newest first")

	require.NoError(t, s.UpdateRating(ctx, ids[0], 1620))
	require.NoError(t, s.UpdateRating(ctx, ids[1], 1380))
	assert.ErrorIs(t, s.UpdateRating(ctx, "nope", 1500), ErrNotFound)

	ranking, err := s.Ranking(ctx, l.ID)
	require.NoError(t, err)
	require.Len(t, ranking, 3)
	assert.Equal(t, 1, ranking[0].Rank)
	assert.Equal(t, ids[0], ranking[0].ID)
	assert.Equal(t, 1620.0, ranking[0].Rating)
	assert.Equal(t, ids[1], ranking[2].ID)

	summaries, err := s.GetListsByUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 3, summaries[0].ItemCount)

	require.NoError(t, s.DeleteItem(ctx, ids[2]))
	gone, err := s.GetItem(ctx, ids[2])
	require.NoError(t, err)
	assert.Nil(t, gone)
	assert.ErrorIs(t, s.DeleteItem(ctx, ids[2]), ErrNotFound)
}

func TestStore_ExplicitRatingAndImages(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	l, err := s.CreateList(ctx, "user-1", &models.ListCreate{Title: "Imported", Category: models.CategoryMovies})
	require.NoError(t, err)

	r := 1000.0
	custom, err := s.CreateItem(ctx, l.ID, &models.ItemCreate{Title: "Custom", Rating: &r})
	require.NoError(t, err)
	assert.Equal(t, 1000.0, custom.Rating)

	bare, err := s.CreateItem(ctx, l.ID, &models.ItemCreate{TMDBID: 603, Title: "The Matrix"})
	require.NoError(t, err)

	missing, err := s.ItemsWithoutImage(ctx, l.ID)
	require.NoError(t, err)
	require.Len(t, missing, 1, "items without a TMDB id are not candidates")
	assert.Equal(t, bare.ID, missing[0].ID)

	require.NoError(t, s.UpdateItemImage(ctx, bare.ID, "/matrix.jpg"))
	got, err := s.GetItem(ctx, bare.ID)
	require.NoError(t, err)
	assert.Equal(t, "/matrix.jpg", got.ImageRef)
}

func TestStore_BulkCreateAndCascade(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	l, err := s.CreateList(ctx, "user-1", &models.ListCreate{Title: "Seeded"})
	require.NoError(t, err)

	require.NoError(t, s.BulkCreateItems(ctx, []models.Item{
		{ListID: l.ID, Title: "A", Rating: 1500},
		{ListID: l.ID, Title: "B", Rating: 1550},
	}))

	items, err := s.ListItems(ctx, l.ID)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	require.NoError(t, s.DeleteList(ctx, l.ID))
	items, err = s.ListItems(ctx, l.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.ErrorIs(t, s.DeleteList(ctx, l.ID), ErrNotFound)
}
