package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/carelink/carelink/internal/database/models"
)

// photoRepo implements PhotoRepository.
type photoRepo struct {
	db *DB
	q  DBTX
}

const photoColumns = `id, image_url, title, description, category,
	 active, created_at`

// Create inserts a new gallery photo.
func (r *photoRepo) Create(ctx context.Context, p *models.Photo) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	err := r.q.QueryRowContext(ctx, r.db.rebind(
		`INSERT INTO photos (image_url, title, description, category,
		 active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?) RETURNING id`),
		p.ImageURL, p.Title, p.Description, p.Category,
		p.Active, p.CreatedAt,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("inserting photo: %w", err)
	}
	return nil
}

// GetByID returns a photo by ID.
func (r *photoRepo) GetByID(ctx context.Context, id int64) (*models.Photo, error) {
	row := r.q.QueryRowContext(ctx, r.db.rebind(
		`SELECT `+photoColumns+` FROM photos WHERE id = ?`), id)

	var p models.Photo
	err := row.Scan(&p.ID, &p.ImageURL, &p.Title, &p.Description,
		&p.Category, &p.Active, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanning photo: %w", err)
	}
	return &p, nil
}

// List returns photos newest first, optionally filtered by category.
func (r *photoRepo) List(ctx context.Context, category string) ([]models.Photo, error) {
	query := `SELECT ` + photoColumns + ` FROM photos`
	var args []any
	if category != "" {
		query += ` WHERE category = ?`
		args = append(args, category)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.q.QueryContext(ctx, r.db.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("querying photos: %w", err)
	}
	defer rows.Close()

	var photos []models.Photo
	for rows.Next() {
		var p models.Photo
		if err := rows.Scan(&p.ID, &p.ImageURL, &p.Title, &p.Description,
			&p.Category, &p.Active, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning photo: %w", err)
		}
		photos = append(photos, p)
	}
	return photos, rows.Err()
}

// Update modifies an existing gallery photo.
func (r *photoRepo) Update(ctx context.Context, p *models.Photo) error {
	_, err := r.q.ExecContext(ctx, r.db.rebind(
		`UPDATE photos SET image_url = ?, title = ?, description = ?,
		 category = ?, active = ? WHERE id = ?`),
		p.ImageURL, p.Title, p.Description, p.Category, p.Active, p.ID,
	)
	if err != nil {
		return fmt.Errorf("updating photo: %w", err)
	}
	return nil
}

// Delete removes a gallery photo.
func (r *photoRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, r.db.rebind(`DELETE FROM photos WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("deleting photo: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
