package models

import (
	"time"
)

// List categories
const (
	CategoryMovies = "MOVIES"
	CategoryMusic  = "MUSIC"
	CategoryCustom = "CUSTOM"
)

// MaxDescriptionLength caps list descriptions
const MaxDescriptionLength = 100

// List represents a user's ranked list
type List struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	IsPublic    bool      `json:"is_public"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ListCreate is the request body for creating a list
type ListCreate struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	IsPublic    bool   `json:"is_public"`
}

// ListUpdate is the request body for updating a list
type ListUpdate struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Category    *string `json:"category,omitempty"`
	IsPublic    *bool   `json:"is_public,omitempty"`
}

// ListSummary is a lightweight version for listings
type ListSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Category  string    `json:"category"`
	IsPublic  bool      `json:"is_public"`
	ItemCount int       `json:"item_count"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ValidCategory reports whether c is a known list category
func ValidCategory(c string) bool {
	switch c {
	case CategoryMovies, CategoryMusic, CategoryCustom:
		return true
	}
	return false
}

// CanRead reports whether userID may view the list
func (l *List) CanRead(userID string) bool {
	return l.IsPublic || (userID != "" && l.UserID == userID)
}
