package api

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"
)

func bookAppointment(t *testing.T, env *testEnv) appointmentResponse {
	t.Helper()
	w := env.do(t, http.MethodPost, "/api/v1/appointments", map[string]any{
		"patient_name":  "John Doe",
		"patient_phone": "555-0101",
		"patient_email": "john@example.com",
		"scheduled_at":  time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339),
		"reason":        "Annual checkup",
	}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("failed to book appointment: status %d: %s", w.Code, w.Body.String())
	}
	var appt appointmentResponse
	decodeData(t, w, &appt)
	return appt
}

func TestCreateAppointment(t *testing.T) {
	env := newTestEnv(t)
	agent := env.seedAgent(t, "maria", "pass")

	appt := bookAppointment(t, env)
	if appt.Status != "pending" {
		t.Errorf("expected status pending, got %q", appt.Status)
	}

	// Booking alerts every active agent.
	notifs, err := env.store.Notifications.ListUnreadByAgent(context.Background(), agent.ID, 10)
	if err != nil {
		t.Fatalf("failed to list notifications: %v", err)
	}
	if len(notifs) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notifs))
	}
	if notifs[0].Kind != "appointment" {
		t.Errorf("expected appointment notification, got %q", notifs[0].Kind)
	}
	if notifs[0].AppointmentID == nil || *notifs[0].AppointmentID != appt.ID {
		t.Errorf("notification does not reference appointment %d: %+v", appt.ID, notifs[0])
	}
}

func TestCreateAppointment_PastTimeRejected(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/appointments", map[string]any{
		"patient_name":  "John Doe",
		"patient_phone": "555-0101",
		"scheduled_at":  time.Now().Add(-time.Hour).UTC().Format(time.RFC3339),
	}, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestCreateAppointment_WithDoctor(t *testing.T) {
	env := newTestEnv(t)
	doc := seedDoctor(t, env, true)

	w := env.do(t, http.MethodPost, "/api/v1/appointments", map[string]any{
		"patient_name":  "John Doe",
		"patient_phone": "555-0101",
		"doctor_id":     doc.ID,
		"scheduled_at":  time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339),
	}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var appt appointmentResponse
	decodeData(t, w, &appt)
	if appt.DoctorID == nil || *appt.DoctorID != doc.ID {
		t.Errorf("expected doctor %d on appointment, got %v", doc.ID, appt.DoctorID)
	}
}

func TestCreateAppointment_UnknownDoctorRejected(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/appointments", map[string]any{
		"patient_name":  "John Doe",
		"patient_phone": "555-0101",
		"doctor_id":     999,
		"scheduled_at":  time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339),
	}, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestListAppointments_RequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/appointments", nil, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", w.Code)
	}
}

func TestListAppointments(t *testing.T) {
	env := newTestEnv(t)
	env.seedAgent(t, "maria", "pass")
	sess := env.login(t, "maria", "pass")
	bookAppointment(t, env)

	w := env.do(t, http.MethodGet, "/api/v1/appointments", nil, &sess)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var page struct {
		Items []appointmentResponse `json:"items"`
		Total int                   `json:"total"`
	}
	decodeData(t, w, &page)
	if page.Total != 1 || len(page.Items) != 1 {
		t.Errorf("expected 1 appointment, got total=%d items=%d", page.Total, len(page.Items))
	}
}

func TestUpdateAppointment_ConfirmRecordsAgent(t *testing.T) {
	env := newTestEnv(t)
	agent := env.seedAgent(t, "maria", "pass")
	sess := env.login(t, "maria", "pass")
	appt := bookAppointment(t, env)

	w := env.do(t, http.MethodPut,
		fmt.Sprintf("/api/v1/appointments/%d", appt.ID), map[string]any{
			"status": "confirmed",
			"notes":  "Room 4, bring previous records.",
		}, &sess)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var updated appointmentResponse
	decodeData(t, w, &updated)
	if updated.Status != "confirmed" {
		t.Errorf("expected status confirmed, got %q", updated.Status)
	}
	if updated.AgentID == nil || *updated.AgentID != agent.ID {
		t.Errorf("expected handling agent %d recorded, got %v", agent.ID, updated.AgentID)
	}
}

func TestUpdateAppointment_InvalidStatus(t *testing.T) {
	env := newTestEnv(t)
	env.seedAgent(t, "maria", "pass")
	sess := env.login(t, "maria", "pass")
	appt := bookAppointment(t, env)

	w := env.do(t, http.MethodPut,
		fmt.Sprintf("/api/v1/appointments/%d", appt.ID),
		map[string]string{"status": "postponed"}, &sess)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
}
