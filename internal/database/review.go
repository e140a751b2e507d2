package database

import (
	"context"
	"fmt"
	"time"

	"github.com/carelink/carelink/internal/database/models"
)

// reviewRepo implements ReviewRepository.
type reviewRepo struct {
	db *DB
	q  DBTX
}

const reviewColumns = `id, patient_name, rating, content, approved, created_at`

// Create inserts a patient review. New reviews start unapproved.
func (r *reviewRepo) Create(ctx context.Context, rev *models.Review) error {
	if rev.CreatedAt.IsZero() {
		rev.CreatedAt = time.Now().UTC()
	}
	err := r.q.QueryRowContext(ctx, r.db.rebind(
		`INSERT INTO reviews (patient_name, rating, content, approved, created_at)
		 VALUES (?, ?, ?, ?, ?) RETURNING id`),
		rev.PatientName, rev.Rating, rev.Content, rev.Approved, rev.CreatedAt,
	).Scan(&rev.ID)
	if err != nil {
		return fmt.Errorf("inserting review: %w", err)
	}
	return nil
}

// List returns reviews newest first. When approvedOnly is set only reviews
// that passed moderation are returned.
func (r *reviewRepo) List(ctx context.Context, approvedOnly bool, limit int) ([]models.Review, error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews`
	var args []any
	if approvedOnly {
		query += ` WHERE approved = ?`
		args = append(args, true)
	}
	query += ` ORDER BY created_at DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.q.QueryContext(ctx, r.db.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("querying reviews: %w", err)
	}
	defer rows.Close()

	var reviews []models.Review
	for rows.Next() {
		var rev models.Review
		if err := rows.Scan(&rev.ID, &rev.PatientName, &rev.Rating,
			&rev.Content, &rev.Approved, &rev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning review: %w", err)
		}
		reviews = append(reviews, rev)
	}
	return reviews, rows.Err()
}

// SetApproved toggles moderation state on a review.
func (r *reviewRepo) SetApproved(ctx context.Context, id int64, approved bool) error {
	res, err := r.q.ExecContext(ctx, r.db.rebind(
		`UPDATE reviews SET approved = ? WHERE id = ?`), approved, id)
	if err != nil {
		return fmt.Errorf("updating review: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating review: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// RatingStats returns the average rating and total count over approved
// reviews.
func (r *reviewRepo) RatingStats(ctx context.Context) (avg float64, count int, err error) {
	row := r.q.QueryRowContext(ctx, r.db.rebind(
		`SELECT COALESCE(AVG(rating), 0), COUNT(*) FROM reviews WHERE approved = ?`), true)
	if err := row.Scan(&avg, &count); err != nil {
		return 0, 0, fmt.Errorf("scanning review stats: %w", err)
	}
	return avg, count, nil
}

// Delete removes a review.
func (r *reviewRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, r.db.rebind(`DELETE FROM reviews WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("deleting review: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
