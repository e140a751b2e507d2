package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	mw "github.com/carelink/carelink/internal/api/middleware"
	"github.com/carelink/carelink/internal/database"
	"github.com/carelink/carelink/internal/database/models"
)

// Appointment lifecycle statuses.
var appointmentStatuses = map[string]bool{
	"pending":   true,
	"confirmed": true,
	"completed": true,
	"cancelled": true,
}

type appointmentResponse struct {
	ID           int64  `json:"id"`
	PatientName  string `json:"patient_name"`
	PatientEmail string `json:"patient_email,omitempty"`
	PatientPhone string `json:"patient_phone,omitempty"`
	DoctorID     *int64 `json:"doctor_id,omitempty"`
	ScheduledAt  string `json:"scheduled_at"`
	Reason       string `json:"reason"`
	Status       string `json:"status"`
	Notes        string `json:"notes,omitempty"`
	AgentID      *int64 `json:"agent_id,omitempty"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

func toAppointmentResponse(a *models.Appointment) appointmentResponse {
	return appointmentResponse{
		ID:           a.ID,
		PatientName:  a.PatientName,
		PatientEmail: a.PatientEmail,
		PatientPhone: a.PatientPhone,
		DoctorID:     a.DoctorID,
		ScheduledAt:  a.ScheduledAt.UTC().Format(time.RFC3339),
		Reason:       a.Reason,
		Status:       a.Status,
		Notes:        a.Notes,
		AgentID:      a.AgentID,
		CreatedAt:    a.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:    a.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

type createAppointmentRequest struct {
	PatientName  string `json:"patient_name"`
	PatientEmail string `json:"patient_email"`
	PatientPhone string `json:"patient_phone"`
	DoctorID     *int64 `json:"doctor_id"`
	ScheduledAt  string `json:"scheduled_at"` // RFC 3339
	Reason       string `json:"reason"`
}

// handleCreateAppointment accepts a public booking request. The appointment
// starts pending; reception confirms it from the dashboard.
func (s *Server) handleCreateAppointment(w http.ResponseWriter, r *http.Request) {
	var req createAppointmentRequest
	if errMsg := readJSON(r, &req); errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}

	for _, errMsg := range []string{
		validateRequiredStringLen("patient_name", req.PatientName, maxNameLen),
		validateRequiredStringLen("patient_phone", req.PatientPhone, maxPhoneLen),
		validateEmail("patient_email", req.PatientEmail),
		validateStringLen("reason", req.Reason, maxMessageLen),
		validateNoControlChars("patient_name", req.PatientName),
	} {
		if errMsg != "" {
			writeError(w, http.StatusBadRequest, errMsg)
			return
		}
	}

	scheduledAt, err := time.Parse(time.RFC3339, req.ScheduledAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "scheduled_at must be an RFC 3339 timestamp")
		return
	}
	if scheduledAt.Before(time.Now()) {
		writeError(w, http.StatusBadRequest, "scheduled_at must be in the future")
		return
	}

	if req.DoctorID != nil {
		if _, err := s.store.Doctors.GetByID(r.Context(), *req.DoctorID); err != nil {
			if errors.Is(err, database.ErrNotFound) {
				writeError(w, http.StatusBadRequest, "doctor not found")
				return
			}
			s.logger.Error("appointment doctor lookup failed", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
	}

	appt := &models.Appointment{
		PatientName:  strings.TrimSpace(req.PatientName),
		PatientEmail: strings.TrimSpace(req.PatientEmail),
		PatientPhone: strings.TrimSpace(req.PatientPhone),
		DoctorID:     req.DoctorID,
		ScheduledAt:  scheduledAt.UTC(),
		Reason:       req.Reason,
		Status:       "pending",
	}

	err = s.store.InTx(r.Context(), func(tx *database.Store) error {
		if err := tx.Appointments.Create(r.Context(), appt); err != nil {
			return err
		}
		return s.notifyActiveAgents(r.Context(), tx, &models.Notification{
			AppointmentID: &appt.ID,
			Kind:          "appointment",
			Title:         fmt.Sprintf("New appointment request from %s", appt.PatientName),
			Message: fmt.Sprintf("Requested for %s.",
				appt.ScheduledAt.Format("Jan 2, 2006 at 3:04 PM")),
		})
	})
	if err != nil {
		s.logger.Error("create appointment failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
}

func (s *Server) handleListAppointments(w http.ResponseWriter, r *http.Request) {
	page, errMsg := parsePagination(r)
	if errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}

	appts, total, err := s.store.Appointments.List(r.Context(), page.Limit, page.Offset)
	if err != nil {
		s.logger.Error("list appointments failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	items := make([]appointmentResponse, 0, len(appts))
	for i := range appts {
		items = append(items, toAppointmentResponse(&appts[i]))
	}
	writeJSON(w, http.StatusOK, PaginatedResponse{
		Items:  items,
		Total:  total,
		Limit:  page.Limit,
		Offset: page.Offset,
	})
}

type updateAppointmentRequest struct {
	Status      string  `json:"status"`
	Notes       *string `json:"notes"`
	DoctorID    *int64  `json:"doctor_id"`
	ScheduledAt string  `json:"scheduled_at"`
}

// handleUpdateAppointment lets reception move an appointment through its
// lifecycle and attach notes. The handling agent is recorded on first update.
func (s *Server) handleUpdateAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid appointment id")
		return
	}

	var req updateAppointmentRequest
	if errMsg := readJSON(r, &req); errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}

	appt, err := s.store.Appointments.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusNotFound, "appointment not found")
			return
		}
		s.logger.Error("get appointment failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if req.Status != "" {
		status := strings.ToLower(strings.TrimSpace(req.Status))
		if !appointmentStatuses[status] {
			writeError(w, http.StatusBadRequest, "status must be one of pending, confirmed, completed, cancelled")
			return
		}
		appt.Status = status
	}
	if req.Notes != nil {
		if errMsg := validateStringLen("notes", *req.Notes, maxMessageLen); errMsg != "" {
			writeError(w, http.StatusBadRequest, errMsg)
			return
		}
		appt.Notes = *req.Notes
	}
	if req.DoctorID != nil {
		appt.DoctorID = req.DoctorID
	}
	if req.ScheduledAt != "" {
		scheduledAt, err := time.Parse(time.RFC3339, req.ScheduledAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "scheduled_at must be an RFC 3339 timestamp")
			return
		}
		appt.ScheduledAt = scheduledAt.UTC()
	}

	if staff := mw.StaffUserFromContext(r.Context()); staff != nil &&
		staff.Role == mw.RoleReception && appt.AgentID == nil {
		appt.AgentID = &staff.ID
	}

	if err := s.store.Appointments.Update(r.Context(), appt); err != nil {
		s.logger.Error("update appointment failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}
