package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/carelink/carelink/internal/database/models"
)

// partnerRepo implements PartnerRepository.
type partnerRepo struct {
	db *DB
	q  DBTX
}

const partnerColumns = `id, full_name, title, bio, image_url,
	 display_order, active, created_at`

// Create inserts a new partner profile.
func (r *partnerRepo) Create(ctx context.Context, p *models.Partner) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	err := r.q.QueryRowContext(ctx, r.db.rebind(
		`INSERT INTO partners (full_name, title, bio, image_url,
		 display_order, active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`),
		p.FullName, p.Title, p.Bio, p.ImageURL,
		p.DisplayOrder, p.Active, p.CreatedAt,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("inserting partner: %w", err)
	}
	return nil
}

// GetByID returns a partner by ID.
func (r *partnerRepo) GetByID(ctx context.Context, id int64) (*models.Partner, error) {
	row := r.q.QueryRowContext(ctx, r.db.rebind(
		`SELECT `+partnerColumns+` FROM partners WHERE id = ?`), id)

	var p models.Partner
	err := row.Scan(&p.ID, &p.FullName, &p.Title, &p.Bio, &p.ImageURL,
		&p.DisplayOrder, &p.Active, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanning partner: %w", err)
	}
	return &p, nil
}

// List returns all partners in display order.
func (r *partnerRepo) List(ctx context.Context) ([]models.Partner, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+partnerColumns+` FROM partners ORDER BY display_order ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying partners: %w", err)
	}
	defer rows.Close()

	var partners []models.Partner
	for rows.Next() {
		var p models.Partner
		if err := rows.Scan(&p.ID, &p.FullName, &p.Title, &p.Bio, &p.ImageURL,
			&p.DisplayOrder, &p.Active, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning partner: %w", err)
		}
		partners = append(partners, p)
	}
	return partners, rows.Err()
}

// Update modifies an existing partner profile.
func (r *partnerRepo) Update(ctx context.Context, p *models.Partner) error {
	_, err := r.q.ExecContext(ctx, r.db.rebind(
		`UPDATE partners SET full_name = ?, title = ?, bio = ?, image_url = ?,
		 display_order = ?, active = ? WHERE id = ?`),
		p.FullName, p.Title, p.Bio, p.ImageURL,
		p.DisplayOrder, p.Active, p.ID,
	)
	if err != nil {
		return fmt.Errorf("updating partner: %w", err)
	}
	return nil
}

// Delete removes a partner profile.
func (r *partnerRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, r.db.rebind(`DELETE FROM partners WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("deleting partner: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
