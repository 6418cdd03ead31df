package models

import "time"

// DefaultRating is assigned to every newly added item, whatever the entry path
const DefaultRating = 1500.0

// Item is a rated entry in a list
type Item struct {
	ID        string    `json:"id"`
	ListID    string    `json:"list_id"`
	TMDBID    int64     `json:"tmdb_id"`
	Title     string    `json:"title"`
	ImageRef  string    `json:"poster_path"`
	Rating    float64   `json:"elo_rating"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"added_at"`
}

// ItemCreate is the request body for adding an item to a list
type ItemCreate struct {
	TMDBID   int64    `json:"tmdb_id"`
	Title    string   `json:"title"`
	ImageRef string   `json:"poster_path"`
	Rating   *float64 `json:"elo_rating,omitempty"` // nil = DefaultRating
}

// RankedItem is an item with its 1-based position in the ranking
type RankedItem struct {
	Rank int `json:"rank"`
	Item
}

// ItemList is a collection of items
type ItemList struct {
	Items      []Item `json:"items"`
	TotalCount int    `json:"total_count"`
}

// Outcome is the result of one item beating another
type Outcome struct {
	WinnerID        string  `json:"winner_id"`
	LoserID         string  `json:"loser_id"`
	K               float64 `json:"k"`
	OldWinnerRating float64 `json:"old_winner_rating"`
	OldLoserRating  float64 `json:"old_loser_rating"`
	NewWinnerRating float64 `json:"new_winner_rating"`
	NewLoserRating  float64 `json:"new_loser_rating"`
	WinnerStreak    int     `json:"winner_streak"`
}
