package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/carelink/carelink/internal/database/models"
)

// callRepo implements CallRepository.
type callRepo struct {
	db *DB
	q  DBTX
}

const callColumns = `id, call_id, caller_name, caller_phone, kind, status,
	 created_at, answered_at, ended_at, duration, agent_id, room_name,
	 hold_requested_at, last_error`

// answerableStatuses are the statuses from which a call may transition to
// connected. Kept in SQL form for the atomic answer guard.
const answerableStatuses = `'initiated', 'dialing', 'ringing', 'busy', 'on_hold'`

// Create inserts a new call ledger row.
func (r *callRepo) Create(ctx context.Context, call *models.Call) error {
	if call.CreatedAt.IsZero() {
		call.CreatedAt = time.Now().UTC()
	}
	err := r.q.QueryRowContext(ctx, r.db.rebind(
		`INSERT INTO calls (call_id, caller_name, caller_phone, kind, status,
		 created_at, answered_at, ended_at, duration, agent_id, room_name,
		 hold_requested_at, last_error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`),
		call.CallID, call.CallerName, call.CallerPhone, call.Kind, call.Status,
		call.CreatedAt, nullTime(call.AnsweredAt), nullTime(call.EndedAt),
		call.Duration, nullInt(call.AgentID), call.RoomName,
		nullTime(call.HoldRequestedAt), call.LastError,
	).Scan(&call.ID)
	if err != nil {
		return fmt.Errorf("inserting call: %w", err)
	}
	return nil
}

// GetByCallID returns a call by its opaque call token.
func (r *callRepo) GetByCallID(ctx context.Context, callID string) (*models.Call, error) {
	return r.scanOne(r.q.QueryRowContext(ctx, r.db.rebind(
		`SELECT `+callColumns+` FROM calls WHERE call_id = ?`), callID))
}

// Update persists every mutable field of an existing call row.
func (r *callRepo) Update(ctx context.Context, call *models.Call) error {
	_, err := r.q.ExecContext(ctx, r.db.rebind(
		`UPDATE calls SET caller_name = ?, caller_phone = ?, kind = ?,
		 status = ?, answered_at = ?, ended_at = ?, duration = ?, agent_id = ?,
		 room_name = ?, hold_requested_at = ?, last_error = ?
		 WHERE call_id = ?`),
		call.CallerName, call.CallerPhone, call.Kind, call.Status,
		nullTime(call.AnsweredAt), nullTime(call.EndedAt), call.Duration,
		nullInt(call.AgentID), call.RoomName, nullTime(call.HoldRequestedAt),
		call.LastError, call.CallID,
	)
	if err != nil {
		return fmt.Errorf("updating call: %w", err)
	}
	return nil
}

// Answer atomically transitions a call to connected for the given agent. The
// status guard makes concurrent answer attempts race safely: exactly one
// UPDATE matches, the rest observe ErrNotFound.
func (r *callRepo) Answer(ctx context.Context, callID string, agentID int64, answeredAt time.Time) (*models.Call, error) {
	res, err := r.q.ExecContext(ctx, r.db.rebind(
		`UPDATE calls SET status = 'connected', agent_id = ?,
		 answered_at = COALESCE(answered_at, ?)
		 WHERE call_id = ? AND status IN (`+answerableStatuses+`)`),
		agentID, answeredAt, callID,
	)
	if err != nil {
		return nil, fmt.Errorf("answering call: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("answering call: %w", err)
	}
	if affected == 0 {
		return nil, ErrNotFound
	}
	return r.GetByCallID(ctx, callID)
}

// ListOpenByAgent returns the agent's calls in non-terminal statuses.
func (r *callRepo) ListOpenByAgent(ctx context.Context, agentID int64, excludeCallID string) ([]models.Call, error) {
	query := `SELECT ` + callColumns + ` FROM calls
		 WHERE agent_id = ?
		 AND kind IN ('customer_care', 'emergency')
		 AND status IN ('initiated', 'dialing', 'ringing', 'busy', 'connected', 'on_hold')`
	args := []any{agentID}
	if excludeCallID != "" {
		query += ` AND call_id != ?`
		args = append(args, excludeCallID)
	}
	return r.list(ctx, query, args...)
}

// ListRecent returns the most recently created calls, newest first.
func (r *callRepo) ListRecent(ctx context.Context, limit int) ([]models.Call, error) {
	return r.list(ctx,
		`SELECT `+callColumns+` FROM calls ORDER BY created_at DESC LIMIT ?`, limit)
}

// CountByStatus returns call counts grouped by lifecycle status.
func (r *callRepo) CountByStatus(ctx context.Context) (map[string]int64, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT status, COUNT(*) FROM calls GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("counting calls: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scanning call count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func (r *callRepo) list(ctx context.Context, query string, args ...any) ([]models.Call, error) {
	rows, err := r.q.QueryContext(ctx, r.db.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("querying calls: %w", err)
	}
	defer rows.Close()

	var calls []models.Call
	for rows.Next() {
		var c models.Call
		if err := scanCall(rows.Scan, &c); err != nil {
			return nil, fmt.Errorf("scanning call: %w", err)
		}
		calls = append(calls, c)
	}
	return calls, rows.Err()
}

func (r *callRepo) scanOne(row *sql.Row) (*models.Call, error) {
	var c models.Call
	if err := scanCall(row.Scan, &c); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanning call: %w", err)
	}
	return &c, nil
}

func scanCall(scan func(dest ...any) error, c *models.Call) error {
	var answeredAt, endedAt, holdAt sql.NullTime
	var agentID sql.NullInt64
	err := scan(&c.ID, &c.CallID, &c.CallerName, &c.CallerPhone, &c.Kind,
		&c.Status, &c.CreatedAt, &answeredAt, &endedAt, &c.Duration,
		&agentID, &c.RoomName, &holdAt, &c.LastError)
	if err != nil {
		return err
	}
	c.AnsweredAt = timePtr(answeredAt)
	c.EndedAt = timePtr(endedAt)
	c.HoldRequestedAt = timePtr(holdAt)
	if agentID.Valid {
		c.AgentID = &agentID.Int64
	}
	return nil
}

// nullTime converts a *time.Time to a sql bind value.
func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

// nullInt converts a *int64 to a sql bind value.
func nullInt(n *int64) any {
	if n == nil {
		return nil
	}
	return *n
}

// timePtr converts a scanned NullTime to a *time.Time.
func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
