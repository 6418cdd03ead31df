package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/meur/eloforge/internal/models"
)

const listColumns = `id, user_id, title, description, category, is_public, created_at, updated_at`

func scanList(row interface{ Scan(...any) error }) (*models.List, error) {
	var l models.List
	err := row.Scan(&l.ID, &l.UserID, &l.Title, &l.Description, &l.Category,
		&l.IsPublic, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// CreateList creates a new list owned by userID
func (s *Store) CreateList(ctx context.Context, userID string, req *models.ListCreate) (*models.List, error) {
	category := req.Category
	if category == "" {
		category = models.CategoryMovies
	}
	now := time.Now().UTC()
	l := &models.List{
		ID:          uuid.New().String(),
		UserID:      userID,
		Title:       req.Title,
		Description: req.Description,
		Category:    category,
		IsPublic:    req.IsPublic,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO lists (id, user_id, title, description, category, is_public, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, l.ID, l.UserID, l.Title, l.Description, l.Category, l.IsPublic, l.CreatedAt, l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return l, nil
}

// GetList returns a list by ID
func (s *Store) GetList(ctx context.Context, id string) (*models.List, error) {
	l, err := scanList(s.db.QueryRowContext(ctx,
		`SELECT `+listColumns+` FROM lists WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}

// GetListsByUser returns summaries of a user's lists, most recently updated first
func (s *Store) GetListsByUser(ctx context.Context, userID string) ([]models.ListSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT l.id, l.title, l.category, l.is_public, l.updated_at, COUNT(i.id)
		FROM lists l
		LEFT JOIN list_items i ON i.list_id = l.id
		WHERE l.user_id = ?
		GROUP BY l.id
		ORDER BY l.updated_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := []models.ListSummary{}
	for rows.Next() {
		var ls models.ListSummary
		if err := rows.Scan(&ls.ID, &ls.Title, &ls.Category, &ls.IsPublic, &ls.UpdatedAt, &ls.ItemCount); err != nil {
			return nil, err
		}
		summaries = append(summaries, ls)
	}
	return summaries, rows.Err()
}

// UpdateList updates an existing list
func (s *Store) UpdateList(ctx context.Context, id string, update *models.ListUpdate) error {
	// Build dynamic update query
	sets := []string{"updated_at = ?"}
	args := []any{time.Now().UTC()}

	if update.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *update.Title)
	}
	if update.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *update.Description)
	}
	if update.Category != nil {
		sets = append(sets, "category = ?")
		args = append(args, *update.Category)
	}
	if update.IsPublic != nil {
		sets = append(sets, "is_public = ?")
		args = append(args, *update.IsPublic)
	}

	args = append(args, id)
	query := fmt.Sprintf("UPDATE lists SET %s WHERE id = ?", strings.Join(sets, ", "))

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	return affectedOne(res)
}

// DeleteList deletes a list and, through the foreign key, its items
func (s *Store) DeleteList(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM lists WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return affectedOne(res)
}

// touchList bumps a list's updated_at
func (s *Store) touchList(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE lists SET updated_at = ? WHERE id = ?`, time.Now().UTC(), id)
	return err
}
