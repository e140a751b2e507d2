package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/carelink/carelink/internal/database/models"
)

// founderRepo implements FounderRepository.
type founderRepo struct {
	db *DB
	q  DBTX
}

const founderColumns = `id, full_name, title, bio, image_url,
	 display_order, active, created_at`

// Create inserts a new founder profile.
func (r *founderRepo) Create(ctx context.Context, f *models.Founder) error {
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}
	err := r.q.QueryRowContext(ctx, r.db.rebind(
		`INSERT INTO founders (full_name, title, bio, image_url,
		 display_order, active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`),
		f.FullName, f.Title, f.Bio, f.ImageURL,
		f.DisplayOrder, f.Active, f.CreatedAt,
	).Scan(&f.ID)
	if err != nil {
		return fmt.Errorf("inserting founder: %w", err)
	}
	return nil
}

// GetByID returns a founder by ID.
func (r *founderRepo) GetByID(ctx context.Context, id int64) (*models.Founder, error) {
	row := r.q.QueryRowContext(ctx, r.db.rebind(
		`SELECT `+founderColumns+` FROM founders WHERE id = ?`), id)

	var f models.Founder
	err := row.Scan(&f.ID, &f.FullName, &f.Title, &f.Bio, &f.ImageURL,
		&f.DisplayOrder, &f.Active, &f.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanning founder: %w", err)
	}
	return &f, nil
}

// List returns all founders in display order.
func (r *founderRepo) List(ctx context.Context) ([]models.Founder, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+founderColumns+` FROM founders ORDER BY display_order ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying founders: %w", err)
	}
	defer rows.Close()

	var founders []models.Founder
	for rows.Next() {
		var f models.Founder
		if err := rows.Scan(&f.ID, &f.FullName, &f.Title, &f.Bio, &f.ImageURL,
			&f.DisplayOrder, &f.Active, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning founder: %w", err)
		}
		founders = append(founders, f)
	}
	return founders, rows.Err()
}

// Update modifies an existing founder profile.
func (r *founderRepo) Update(ctx context.Context, f *models.Founder) error {
	_, err := r.q.ExecContext(ctx, r.db.rebind(
		`UPDATE founders SET full_name = ?, title = ?, bio = ?, image_url = ?,
		 display_order = ?, active = ? WHERE id = ?`),
		f.FullName, f.Title, f.Bio, f.ImageURL,
		f.DisplayOrder, f.Active, f.ID,
	)
	if err != nil {
		return fmt.Errorf("updating founder: %w", err)
	}
	return nil
}

// Delete removes a founder profile.
func (r *founderRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, r.db.rebind(`DELETE FROM founders WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("deleting founder: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
