package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/carelink/carelink/internal/database/models"
)

// notificationRepo implements NotificationRepository.
type notificationRepo struct {
	db *DB
	q  DBTX
}

// Create inserts a new dashboard notification.
func (r *notificationRepo) Create(ctx context.Context, n *models.Notification) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	err := r.q.QueryRowContext(ctx, r.db.rebind(
		`INSERT INTO notifications (agent_id, communication_id, appointment_id,
		 kind, title, message, is_read, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`),
		n.AgentID, nullInt(n.CommunicationID), nullInt(n.AppointmentID),
		n.Kind, n.Title, n.Message, n.IsRead, n.CreatedAt,
	).Scan(&n.ID)
	if err != nil {
		return fmt.Errorf("inserting notification: %w", err)
	}
	return nil
}

// ListUnreadByAgent returns unread notifications for an agent, newest first.
func (r *notificationRepo) ListUnreadByAgent(ctx context.Context, agentID int64, limit int) ([]models.Notification, error) {
	rows, err := r.q.QueryContext(ctx, r.db.rebind(
		`SELECT id, agent_id, communication_id, appointment_id, kind, title,
		 message, is_read, created_at FROM notifications
		 WHERE agent_id = ? AND is_read = ?
		 ORDER BY created_at DESC LIMIT ?`), agentID, false, limit)
	if err != nil {
		return nil, fmt.Errorf("querying notifications: %w", err)
	}
	defer rows.Close()

	var notifs []models.Notification
	for rows.Next() {
		var n models.Notification
		var commID, apptID sql.NullInt64
		if err := rows.Scan(&n.ID, &n.AgentID, &commID, &apptID, &n.Kind,
			&n.Title, &n.Message, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning notification: %w", err)
		}
		if commID.Valid {
			n.CommunicationID = &commID.Int64
		}
		if apptID.Valid {
			n.AppointmentID = &apptID.Int64
		}
		notifs = append(notifs, n)
	}
	return notifs, rows.Err()
}

// MarkRead flags a notification as read. The agent scope prevents one agent
// from acknowledging another agent's alerts.
func (r *notificationRepo) MarkRead(ctx context.Context, id, agentID int64) error {
	res, err := r.q.ExecContext(ctx, r.db.rebind(
		`UPDATE notifications SET is_read = ? WHERE id = ? AND agent_id = ?`),
		true, id, agentID)
	if err != nil {
		return fmt.Errorf("marking notification read: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("marking notification read: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
