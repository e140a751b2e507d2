package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/carelink/carelink/internal/database/models"
)

// appointmentRepo implements AppointmentRepository.
type appointmentRepo struct {
	db *DB
	q  DBTX
}

const appointmentColumns = `id, patient_name, patient_email, patient_phone,
	 doctor_id, scheduled_at, reason, status, notes, agent_id, created_at,
	 updated_at`

// Create inserts a new appointment request.
func (r *appointmentRepo) Create(ctx context.Context, appt *models.Appointment) error {
	now := time.Now().UTC()
	if appt.CreatedAt.IsZero() {
		appt.CreatedAt = now
	}
	appt.UpdatedAt = now
	if appt.Status == "" {
		appt.Status = "pending"
	}
	err := r.q.QueryRowContext(ctx, r.db.rebind(
		`INSERT INTO appointments (patient_name, patient_email, patient_phone,
		 doctor_id, scheduled_at, reason, status, notes, agent_id, created_at,
		 updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`),
		appt.PatientName, appt.PatientEmail, appt.PatientPhone,
		nullInt(appt.DoctorID), appt.ScheduledAt, appt.Reason, appt.Status,
		appt.Notes, nullInt(appt.AgentID), appt.CreatedAt, appt.UpdatedAt,
	).Scan(&appt.ID)
	if err != nil {
		return fmt.Errorf("inserting appointment: %w", err)
	}
	return nil
}

// GetByID returns an appointment by ID.
func (r *appointmentRepo) GetByID(ctx context.Context, id int64) (*models.Appointment, error) {
	row := r.q.QueryRowContext(ctx, r.db.rebind(
		`SELECT `+appointmentColumns+` FROM appointments WHERE id = ?`), id)

	var a models.Appointment
	if err := scanAppointment(row.Scan, &a); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanning appointment: %w", err)
	}
	return &a, nil
}

// List returns appointments newest first, with the total count.
func (r *appointmentRepo) List(ctx context.Context, limit, offset int) ([]models.Appointment, int, error) {
	var total int
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM appointments`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting appointments: %w", err)
	}

	rows, err := r.q.QueryContext(ctx, r.db.rebind(
		`SELECT `+appointmentColumns+` FROM appointments
		 ORDER BY scheduled_at DESC LIMIT ? OFFSET ?`), limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("querying appointments: %w", err)
	}
	defer rows.Close()

	var appts []models.Appointment
	for rows.Next() {
		var a models.Appointment
		if err := scanAppointment(rows.Scan, &a); err != nil {
			return nil, 0, fmt.Errorf("scanning appointment: %w", err)
		}
		appts = append(appts, a)
	}
	return appts, total, rows.Err()
}

// Update modifies an existing appointment.
func (r *appointmentRepo) Update(ctx context.Context, appt *models.Appointment) error {
	appt.UpdatedAt = time.Now().UTC()
	_, err := r.q.ExecContext(ctx, r.db.rebind(
		`UPDATE appointments SET patient_name = ?, patient_email = ?,
		 patient_phone = ?, doctor_id = ?, scheduled_at = ?, reason = ?,
		 status = ?, notes = ?, agent_id = ?, updated_at = ?
		 WHERE id = ?`),
		appt.PatientName, appt.PatientEmail, appt.PatientPhone,
		nullInt(appt.DoctorID), appt.ScheduledAt, appt.Reason, appt.Status,
		appt.Notes, nullInt(appt.AgentID), appt.UpdatedAt, appt.ID,
	)
	if err != nil {
		return fmt.Errorf("updating appointment: %w", err)
	}
	return nil
}

func scanAppointment(scan func(dest ...any) error, a *models.Appointment) error {
	var doctorID, agentID sql.NullInt64
	err := scan(&a.ID, &a.PatientName, &a.PatientEmail, &a.PatientPhone,
		&doctorID, &a.ScheduledAt, &a.Reason, &a.Status, &a.Notes, &agentID,
		&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return err
	}
	if doctorID.Valid {
		a.DoctorID = &doctorID.Int64
	}
	if agentID.Valid {
		a.AgentID = &agentID.Int64
	}
	return nil
}
