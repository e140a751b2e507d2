package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/carelink/carelink/internal/database/models"
)

// doctorRepo implements DoctorRepository.
type doctorRepo struct {
	db *DB
	q  DBTX
}

const doctorColumns = `id, first_name, last_name, specialization, bio,
	 image_url, active, created_at`

// Create inserts a new doctor profile.
func (r *doctorRepo) Create(ctx context.Context, doc *models.Doctor) error {
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	err := r.q.QueryRowContext(ctx, r.db.rebind(
		`INSERT INTO doctors (first_name, last_name, specialization, bio,
		 image_url, active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`),
		doc.FirstName, doc.LastName, doc.Specialization, doc.Bio,
		doc.ImageURL, doc.Active, doc.CreatedAt,
	).Scan(&doc.ID)
	if err != nil {
		return fmt.Errorf("inserting doctor: %w", err)
	}
	return nil
}

// GetByID returns a doctor by ID.
func (r *doctorRepo) GetByID(ctx context.Context, id int64) (*models.Doctor, error) {
	row := r.q.QueryRowContext(ctx, r.db.rebind(
		`SELECT `+doctorColumns+` FROM doctors WHERE id = ?`), id)

	var d models.Doctor
	err := row.Scan(&d.ID, &d.FirstName, &d.LastName, &d.Specialization,
		&d.Bio, &d.ImageURL, &d.Active, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanning doctor: %w", err)
	}
	return &d, nil
}

// List returns all doctors in name order.
func (r *doctorRepo) List(ctx context.Context) ([]models.Doctor, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+doctorColumns+` FROM doctors ORDER BY last_name ASC, first_name ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying doctors: %w", err)
	}
	defer rows.Close()

	var docs []models.Doctor
	for rows.Next() {
		var d models.Doctor
		if err := rows.Scan(&d.ID, &d.FirstName, &d.LastName,
			&d.Specialization, &d.Bio, &d.ImageURL, &d.Active, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning doctor: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// Update modifies an existing doctor profile.
func (r *doctorRepo) Update(ctx context.Context, doc *models.Doctor) error {
	_, err := r.q.ExecContext(ctx, r.db.rebind(
		`UPDATE doctors SET first_name = ?, last_name = ?, specialization = ?,
		 bio = ?, image_url = ?, active = ? WHERE id = ?`),
		doc.FirstName, doc.LastName, doc.Specialization, doc.Bio,
		doc.ImageURL, doc.Active, doc.ID,
	)
	if err != nil {
		return fmt.Errorf("updating doctor: %w", err)
	}
	return nil
}

// Delete removes a doctor profile.
func (r *doctorRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, r.db.rebind(`DELETE FROM doctors WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("deleting doctor: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
