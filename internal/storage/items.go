package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/meur/eloforge/internal/models"
)

const itemColumns = `id, list_id, tmdb_id, title, poster_path, elo_rating, position, added_at`

func scanItem(row interface{ Scan(...any) error }) (*models.Item, error) {
	var item models.Item
	err := row.Scan(&item.ID, &item.ListID, &item.TMDBID, &item.Title,
		&item.ImageRef, &item.Rating, &item.Position, &item.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) queryItems(ctx context.Context, query string, args ...any) ([]models.Item, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// ListItems returns a list's items, most recently added first
func (s *Store) ListItems(ctx context.Context, listID string) ([]models.Item, error) {
	return s.queryItems(ctx, `
		SELECT `+itemColumns+` FROM list_items
		WHERE list_id = ? ORDER BY added_at DESC, id
	`, listID)
}

// Ranking returns a list's items ordered by rating, best first
func (s *Store) Ranking(ctx context.Context, listID string) ([]models.RankedItem, error) {
	items, err := s.queryItems(ctx, `
		SELECT `+itemColumns+` FROM list_items
		WHERE list_id = ? ORDER BY elo_rating DESC, title
	`, listID)
	if err != nil {
		return nil, err
	}

	ranked := make([]models.RankedItem, len(items))
	for i, item := range items {
		ranked[i] = models.RankedItem{Rank: i + 1, Item: item}
	}
	return ranked, nil
}

// ItemsWithoutImage returns movie items that still lack a poster
func (s *Store) ItemsWithoutImage(ctx context.Context, listID string) ([]models.Item, error) {
	return s.queryItems(ctx, `
		SELECT `+itemColumns+` FROM list_items
		WHERE list_id = ? AND poster_path = '' AND tmdb_id > 0 ORDER BY title
	`, listID)
}

// GetItem returns an item by ID
func (s *Store) GetItem(ctx context.Context, id string) (*models.Item, error) {
	item, err := scanItem(s.db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM list_items WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

// CreateItem adds an item to a list with the default rating unless one is given
func (s *Store) CreateItem(ctx context.Context, listID string, req *models.ItemCreate) (*models.Item, error) {
	rating := models.DefaultRating
	if req.Rating != nil {
		rating = *req.Rating
	}
	item := &models.Item{
		ID:        uuid.New().String(),
		ListID:    listID,
		TMDBID:    req.TMDBID,
		Title:     req.Title,
		ImageRef:  req.ImageRef,
		Rating:    rating,
		CreatedAt: time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO list_items (id, list_id, tmdb_id, title, poster_path, elo_rating, position, added_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, item.ID, item.ListID, item.TMDBID, item.Title, item.ImageRef, item.Rating, item.Position, item.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := s.touchList(ctx, listID); err != nil {
		return nil, err
	}
	return item, nil
}

// BulkCreateItems creates multiple items in a transaction
func (s *Store) BulkCreateItems(ctx context.Context, items []models.Item) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO list_items (id, list_id, tmdb_id, title, poster_path, elo_rating, position, added_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, item := range items {
		if item.ID == "" {
			item.ID = uuid.New().String()
		}
		if item.CreatedAt.IsZero() {
			item.CreatedAt = now
		}
		_, err := stmt.ExecContext(ctx, item.ID, item.ListID, item.TMDBID, item.Title,
			item.ImageRef, item.Rating, item.Position, item.CreatedAt)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// UpdateRating stores a new rating for an item
func (s *Store) UpdateRating(ctx context.Context, itemID string, rating float64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE list_items SET elo_rating = ? WHERE id = ?`, rating, itemID)
	if err != nil {
		return err
	}
	return affectedOne(res)
}

// UpdateItemImage replaces an item's poster reference
func (s *Store) UpdateItemImage(ctx context.Context, itemID, imageRef string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE list_items SET poster_path = ? WHERE id = ?`, imageRef, itemID)
	if err != nil {
		return err
	}
	return affectedOne(res)
}

// DeleteItem removes an item immediately
func (s *Store) DeleteItem(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM list_items WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return affectedOne(res)
}
