package tmdb

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient("test-key", WithBaseURL(srv.URL), WithRateLimit(0))
}

func TestSearchMovies(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/movie", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "test-key", q.Get("api_key"))
		assert.Equal(t, "heat", q.Get("query"))
		assert.Equal(t, "2", q.Get("page"))
		assert.Equal(t, "false", q.Get("include_adult"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"page": 2,
			"total_results": 21,
			"total_pages": 2,
			"results": [{
				"id": 949,
				"title": "Heat",
				"release_date": "1995-12-15",
				"poster_path": "/heat.jpg",
				"overview": "Obsessive master thief.",
				"vote_average": 7.9,
				"popularity": 40.1
			}]
		}`))
	})

	res, err := c.SearchMovies(context.Background(), "  heat ", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Page)
	assert.Equal(t, 21, res.TotalResults)
	require.Len(t, res.Results, 1)
	assert.Equal(t, Movie{
		ID:          949,
		Title:       "Heat",
		ReleaseDate: "1995-12-15",
		PosterPath:  "/heat.jpg",
		Overview:    "Obsessive master thief.",
		VoteAverage: 7.9,
	}, res.Results[0])
}

func TestSearchMovies_BlankQuerySkipsRequest(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})

	res, err := c.SearchMovies(context.Background(), "   ", 1)
	require.NoError(t, err)
	assert.Empty(t, res.Results)
	assert.NotNil(t, res.Results)
	assert.Zero(t, calls.Load())
}

func TestSearchMovies_APIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"status_code":7,"status_message":"Invalid API key"}`))
	})

	_, err := c.SearchMovies(context.Background(), "heat", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid API key")
}

func TestMovieDetails(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/movie/949" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`{"id":949,"title":"Heat","poster_path":"/heat.jpg","vote_average":7.9}`))
	})

	m, err := c.MovieDetails(context.Background(), 949)
	require.NoError(t, err)
	assert.Equal(t, "Heat", m.Title)
	assert.Equal(t, "/heat.jpg", m.PosterPath)

	_, err = c.MovieDetails(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestImageURL(t *testing.T) {
	c := NewClient("k")

	tests := []struct {
		name string
		path string
		size string
		want string
	}{
		{name: "empty path", path: "", want: ""},
		{name: "default size", path: "/abc.jpg", want: "https://image.tmdb.org/t/p/w500/abc.jpg"},
		{name: "explicit size", path: "/abc.jpg", size: "w185", want: "https://image.tmdb.org/t/p/w185/abc.jpg"},
		{name: "missing slash", path: "abc.jpg", want: "https://image.tmdb.org/t/p/w500/abc.jpg"},
		{name: "absolute url", path: "https://a.ltrbxd.com/poster.jpg", size: "w185", want: "https://a.ltrbxd.com/poster.jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.ImageURL(tt.path, tt.size))
		})
	}
}

func TestClient_RateLimitHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":1}`))
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL), WithRateLimit(0.001))

	_, err := c.MovieDetails(context.Background(), 1)
	require.NoError(t, err, "first request uses the burst token")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.MovieDetails(ctx, 1)
	assert.Error(t, err)
}
