package letterboxd

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meur/eloforge/internal/models"
)

const sampleFeed = `<?xml version="1.0" encoding="utf-8"?>
<rss version="2.0" xmlns:dc="http://purl.org/dc/elements/1.1/"
     xmlns:letterboxd="https://letterboxd.com" xmlns:tmdb="https://themoviedb.org">
  <channel>
    <title>Letterboxd - cinephile</title>
    <item>
      <title>Heat, 1995 - ★★★★½</title>
      <letterboxd:filmTitle>Heat</letterboxd:filmTitle>
      <letterboxd:filmYear>1995</letterboxd:filmYear>
      <tmdb:movieId>949</tmdb:movieId>
      <description><![CDATA[ <p><img src="https://a.ltrbxd.com/heat.jpg"/></p> <p>Watched on Friday.</p> ]]></description>
    </item>
    <item>
      <title>A list: favourites</title>
      <description><![CDATA[ <p>No film here</p> ]]></description>
    </item>
    <item>
      <title>Arrival, 2016</title>
      <tmdb:movieId>329865</tmdb:movieId>
      <description><![CDATA[ <p>No poster</p> ]]></description>
    </item>
    <item>
      <title>Heat, 1995 - ★★★★★</title>
      <letterboxd:filmTitle>Heat</letterboxd:filmTitle>
      <tmdb:movieId>949</tmdb:movieId>
      <description><![CDATA[ <p><img src="https://a.ltrbxd.com/heat-2.jpg"/></p> ]]></description>
    </item>
  </channel>
</rss>`

func TestParseFeed(t *testing.T) {
	feed, err := ParseFeed(strings.NewReader(sampleFeed))
	require.NoError(t, err)

	want := []Film{
		{TMDBID: 949, Title: "Heat", Year: 1995, PosterURL: "https://a.ltrbxd.com/heat.jpg"},
		{TMDBID: 329865, Title: "Arrival, 2016"},
	}
	if diff := cmp.Diff(want, feed.Films); diff != "" {
		t.Errorf("films mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 4, feed.Entries)
	assert.Equal(t, []string{"A list: favourites"}, feed.Skipped)
}

func TestParseFeed_Malformed(t *testing.T) {
	_, err := ParseFeed(strings.NewReader("<rss><channel><item>"))
	assert.Error(t, err)
}

type fakeStore struct {
	lists   []models.ListCreate
	items   []models.ItemCreate
	failFor int64
}

func (f *fakeStore) CreateList(ctx context.Context, userID string, req *models.ListCreate) (*models.List, error) {
	f.lists = append(f.lists, *req)
	return &models.List{ID: "list-1", UserID: userID, Title: req.Title, Category: req.Category}, nil
}

func (f *fakeStore) CreateItem(ctx context.Context, listID string, req *models.ItemCreate) (*models.Item, error) {
	if req.TMDBID == f.failFor {
		return nil, errors.New("constraint failed")
	}
	f.items = append(f.items, *req)
	return &models.Item{ID: "item", ListID: listID, TMDBID: req.TMDBID}, nil
}

func feedServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/cinephile/rss/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestImporter_Import(t *testing.T) {
	srv := feedServer(t, sampleFeed)
	im := NewImporter(srv.URL, 0, nil)
	store := &fakeStore{}

	res, err := im.Import(context.Background(), store, "user-1", " cinephile ")
	require.NoError(t, err)

	require.Len(t, store.lists, 1)
	assert.Equal(t, models.ListCreate{
		Title:       "Letterboxd Import - cinephile",
		Description: "Movies imported from Letterboxd",
		Category:    models.CategoryMovies,
	}, store.lists[0])

	assert.Equal(t, 2, res.Imported)
	assert.Equal(t, 1, res.Skipped)
	assert.Zero(t, res.Failed)
	assert.Equal(t, "list-1", res.List.ID)

	require.Len(t, store.items, 2)
	assert.Equal(t, "https://a.ltrbxd.com/heat.jpg", store.items[0].ImageRef)
	assert.Nil(t, store.items[0].Rating, "imported items take the default rating")
}

func TestImporter_ItemFailureDoesNotAbort(t *testing.T) {
	srv := feedServer(t, sampleFeed)
	im := NewImporter(srv.URL, 0, nil)
	store := &fakeStore{failFor: 949}

	res, err := im.Import(context.Background(), store, "user-1", "cinephile")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Imported)
	assert.Equal(t, 1, res.Failed)
}

func TestImporter_Errors(t *testing.T) {
	empty := `<rss><channel><title>x</title></channel></rss>`

	tests := []struct {
		name     string
		body     string
		username string
		want     error
	}{
		{name: "empty feed", body: empty, username: "cinephile", want: ErrEmptyFeed},
		{name: "unknown user", body: sampleFeed, username: "nobody", want: ErrUserNotFound},
		{name: "path injection", body: sampleFeed, username: "../admin", want: ErrInvalidUsername},
		{name: "blank", body: sampleFeed, username: "  ", want: ErrInvalidUsername},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := feedServer(t, tt.body)
			store := &fakeStore{}

			_, err := NewImporter(srv.URL, 0, nil).Import(context.Background(), store, "user-1", tt.username)
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, store.lists, "no list is created on failure")
		})
	}
}

func TestPosterFromDescription(t *testing.T) {
	assert.Equal(t, "", posterFromDescription(""))
	assert.Equal(t, "", posterFromDescription("<p>text only</p>"))
	assert.Equal(t, "https://x/y.jpg", posterFromDescription(`<div><img alt="a"><img src="https://x/y.jpg"></div>`))
}
