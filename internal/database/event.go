package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/carelink/carelink/internal/database/models"
)

// eventRepo implements EventRepository.
type eventRepo struct {
	db *DB
	q  DBTX
}

const eventColumns = `id, title, description, event_date, location,
	 image_url, event_type, status, created_at, updated_at`

// Rows with a completed status count as past regardless of their date,
// matching how the public events page splits the two lists.
const (
	pastEventFilter     = `(event_date < ? OR LOWER(status) = 'completed')`
	upcomingEventFilter = `(event_date > ? AND LOWER(status) != 'completed')`
)

// Create inserts a new event.
func (r *eventRepo) Create(ctx context.Context, event *models.Event) error {
	now := time.Now().UTC()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = now
	}
	event.UpdatedAt = now

	err := r.q.QueryRowContext(ctx, r.db.rebind(
		`INSERT INTO events (title, description, event_date, location,
		 image_url, event_type, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`),
		event.Title, event.Description, event.EventDate, event.Location,
		event.ImageURL, event.EventType, event.Status,
		event.CreatedAt, event.UpdatedAt,
	).Scan(&event.ID)
	if err != nil {
		return fmt.Errorf("inserting event: %w", err)
	}
	return nil
}

// GetByID returns an event by ID.
func (r *eventRepo) GetByID(ctx context.Context, id int64) (*models.Event, error) {
	row := r.q.QueryRowContext(ctx, r.db.rebind(
		`SELECT `+eventColumns+` FROM events WHERE id = ?`), id)

	e, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanning event: %w", err)
	}
	return e, nil
}

// ListUpcoming returns future non-completed events in date order.
func (r *eventRepo) ListUpcoming(ctx context.Context, eventType string, now time.Time) ([]models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE ` + upcomingEventFilter
	args := []any{now}
	if eventType != "" {
		query += ` AND event_type = ?`
		args = append(args, eventType)
	}
	query += ` ORDER BY event_date ASC`

	return r.list(ctx, query, args)
}

// ListPast returns past or completed events newest first with the total count.
func (r *eventRepo) ListPast(ctx context.Context, eventType string, now time.Time, limit, offset int) ([]models.Event, int, error) {
	filter := ` FROM events WHERE ` + pastEventFilter
	args := []any{now}
	if eventType != "" {
		filter += ` AND event_type = ?`
		args = append(args, eventType)
	}

	var total int
	if err := r.q.QueryRowContext(ctx, r.db.rebind(
		`SELECT COUNT(*)`+filter), args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting past events: %w", err)
	}

	query := `SELECT ` + eventColumns + filter +
		` ORDER BY event_date DESC, created_at DESC LIMIT ? OFFSET ?`
	events, err := r.list(ctx, query, append(args, limit, offset))
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

func (r *eventRepo) list(ctx context.Context, query string, args []any) ([]models.Event, error) {
	rows, err := r.q.QueryContext(ctx, r.db.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

// Update modifies an existing event.
func (r *eventRepo) Update(ctx context.Context, event *models.Event) error {
	event.UpdatedAt = time.Now().UTC()
	_, err := r.q.ExecContext(ctx, r.db.rebind(
		`UPDATE events SET title = ?, description = ?, event_date = ?,
		 location = ?, image_url = ?, event_type = ?, status = ?,
		 updated_at = ? WHERE id = ?`),
		event.Title, event.Description, event.EventDate, event.Location,
		event.ImageURL, event.EventType, event.Status, event.UpdatedAt,
		event.ID,
	)
	if err != nil {
		return fmt.Errorf("updating event: %w", err)
	}
	return nil
}

// Delete removes an event.
func (r *eventRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, r.db.rebind(`DELETE FROM events WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("deleting event: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*models.Event, error) {
	var e models.Event
	err := row.Scan(&e.ID, &e.Title, &e.Description, &e.EventDate,
		&e.Location, &e.ImageURL, &e.EventType, &e.Status,
		&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
