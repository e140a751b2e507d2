package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/carelink/carelink/internal/database/models"
)

// communicationRepo implements CommunicationRepository.
type communicationRepo struct {
	db *DB
	q  DBTX
}

const communicationColumns = `id, patient_name, patient_email, patient_phone,
	 agent_id, message_type, content, public_token, is_read, is_resolved,
	 priority, created_at, updated_at`

// Create inserts a new patient message thread root.
func (r *communicationRepo) Create(ctx context.Context, comm *models.Communication) error {
	now := time.Now().UTC()
	if comm.CreatedAt.IsZero() {
		comm.CreatedAt = now
	}
	comm.UpdatedAt = now
	err := r.q.QueryRowContext(ctx, r.db.rebind(
		`INSERT INTO communications (patient_name, patient_email, patient_phone,
		 agent_id, message_type, content, public_token, is_read, is_resolved,
		 priority, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`),
		comm.PatientName, comm.PatientEmail, comm.PatientPhone,
		nullInt(comm.AgentID), comm.MessageType, comm.Content, comm.PublicToken,
		comm.IsRead, comm.IsResolved, comm.Priority, comm.CreatedAt, comm.UpdatedAt,
	).Scan(&comm.ID)
	if err != nil {
		return fmt.Errorf("inserting communication: %w", err)
	}
	return nil
}

// GetByID returns a communication by ID.
func (r *communicationRepo) GetByID(ctx context.Context, id int64) (*models.Communication, error) {
	row := r.q.QueryRowContext(ctx, r.db.rebind(
		`SELECT `+communicationColumns+` FROM communications WHERE id = ?`), id)

	var c models.Communication
	if err := scanCommunication(row.Scan, &c); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanning communication: %w", err)
	}
	return &c, nil
}

// GetByPublicToken returns a communication by its public thread token.
func (r *communicationRepo) GetByPublicToken(ctx context.Context, token string) (*models.Communication, error) {
	row := r.q.QueryRowContext(ctx, r.db.rebind(
		`SELECT `+communicationColumns+` FROM communications WHERE public_token = ?`), token)

	var c models.Communication
	if err := scanCommunication(row.Scan, &c); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanning communication: %w", err)
	}
	return &c, nil
}

// List returns communications newest first, with the total count.
func (r *communicationRepo) List(ctx context.Context, limit, offset int) ([]models.Communication, int, error) {
	var total int
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM communications`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting communications: %w", err)
	}

	rows, err := r.q.QueryContext(ctx, r.db.rebind(
		`SELECT `+communicationColumns+` FROM communications
		 ORDER BY created_at DESC LIMIT ? OFFSET ?`), limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("querying communications: %w", err)
	}
	defer rows.Close()

	var comms []models.Communication
	for rows.Next() {
		var c models.Communication
		if err := scanCommunication(rows.Scan, &c); err != nil {
			return nil, 0, fmt.Errorf("scanning communication: %w", err)
		}
		comms = append(comms, c)
	}
	return comms, total, rows.Err()
}

// Update modifies an existing communication.
func (r *communicationRepo) Update(ctx context.Context, comm *models.Communication) error {
	comm.UpdatedAt = time.Now().UTC()
	_, err := r.q.ExecContext(ctx, r.db.rebind(
		`UPDATE communications SET patient_name = ?, patient_email = ?,
		 patient_phone = ?, agent_id = ?, message_type = ?, content = ?,
		 is_read = ?, is_resolved = ?, priority = ?, updated_at = ?
		 WHERE id = ?`),
		comm.PatientName, comm.PatientEmail, comm.PatientPhone,
		nullInt(comm.AgentID), comm.MessageType, comm.Content,
		comm.IsRead, comm.IsResolved, comm.Priority, comm.UpdatedAt, comm.ID,
	)
	if err != nil {
		return fmt.Errorf("updating communication: %w", err)
	}
	return nil
}

// AddMessage appends an entry to a communication's conversation thread.
func (r *communicationRepo) AddMessage(ctx context.Context, msg *models.CommunicationMessage) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	err := r.q.QueryRowContext(ctx, r.db.rebind(
		`INSERT INTO communication_messages (communication_id, sender_type,
		 sender_name, sender_email, content, created_at)
		 VALUES (?, ?, ?, ?, ?, ?) RETURNING id`),
		msg.CommunicationID, msg.SenderType, msg.SenderName, msg.SenderEmail,
		msg.Content, msg.CreatedAt,
	).Scan(&msg.ID)
	if err != nil {
		return fmt.Errorf("inserting communication message: %w", err)
	}
	return nil
}

// Thread returns the conversation entries for a communication, oldest first.
func (r *communicationRepo) Thread(ctx context.Context, communicationID int64) ([]models.CommunicationMessage, error) {
	rows, err := r.q.QueryContext(ctx, r.db.rebind(
		`SELECT id, communication_id, sender_type, sender_name, sender_email,
		 content, created_at FROM communication_messages
		 WHERE communication_id = ? ORDER BY created_at ASC, id ASC`), communicationID)
	if err != nil {
		return nil, fmt.Errorf("querying thread: %w", err)
	}
	defer rows.Close()

	var msgs []models.CommunicationMessage
	for rows.Next() {
		var m models.CommunicationMessage
		if err := rows.Scan(&m.ID, &m.CommunicationID, &m.SenderType,
			&m.SenderName, &m.SenderEmail, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning thread message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func scanCommunication(scan func(dest ...any) error, c *models.Communication) error {
	var agentID sql.NullInt64
	err := scan(&c.ID, &c.PatientName, &c.PatientEmail, &c.PatientPhone,
		&agentID, &c.MessageType, &c.Content, &c.PublicToken, &c.IsRead,
		&c.IsResolved, &c.Priority, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return err
	}
	if agentID.Valid {
		c.AgentID = &agentID.Int64
	}
	return nil
}
