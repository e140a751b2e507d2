package api

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/carelink/carelink/internal/database/models"
)

func adminSession(t *testing.T, env *testEnv) session {
	t.Helper()
	env.seedAdmin(t, "admin", "correct-horse")
	return env.login(t, "admin", "correct-horse")
}

func TestCreateDoctor_RequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	env.seedAgent(t, "maria", "pass")
	sess := env.login(t, "maria", "pass")

	body := map[string]string{"first_name": "Jane", "last_name": "Smith"}

	w := env.do(t, http.MethodPost, "/api/v1/doctors", body, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("anonymous: expected status 401, got %d", w.Code)
	}

	w = env.do(t, http.MethodPost, "/api/v1/doctors", body, &sess)
	if w.Code != http.StatusForbidden {
		t.Errorf("reception: expected status 403, got %d", w.Code)
	}
}

func TestDoctorCRUD(t *testing.T) {
	env := newTestEnv(t)
	sess := adminSession(t, env)

	w := env.do(t, http.MethodPost, "/api/v1/doctors", map[string]string{
		"first_name":     "Jane",
		"last_name":      "Smith",
		"specialization": "Cardiology",
	}, &sess)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var created doctorResponse
	decodeData(t, w, &created)
	if created.FullName != "Jane Smith" {
		t.Errorf("expected full name 'Jane Smith', got %q", created.FullName)
	}
	if !created.Active {
		t.Error("new doctor should default to active")
	}

	path := fmt.Sprintf("/api/v1/doctors/%d", created.ID)

	// Public fetch works without a session.
	w = env.do(t, http.MethodGet, path, nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get: expected status 200, got %d", w.Code)
	}

	w = env.do(t, http.MethodPut, path, map[string]any{
		"first_name":     "Jane",
		"last_name":      "Smith",
		"specialization": "Neurology",
		"active":         false,
	}, &sess)
	if w.Code != http.StatusOK {
		t.Fatalf("update: expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	var updated doctorResponse
	decodeData(t, w, &updated)
	if updated.Specialization != "Neurology" || updated.Active {
		t.Errorf("unexpected updated doctor: %+v", updated)
	}

	// Inactive doctors are hidden from the public list.
	w = env.do(t, http.MethodGet, "/api/v1/doctors", nil, nil)
	var listed []doctorResponse
	decodeData(t, w, &listed)
	if len(listed) != 0 {
		t.Errorf("expected inactive doctor hidden from public list, got %d entries", len(listed))
	}

	w = env.do(t, http.MethodDelete, path, nil, &sess)
	if w.Code != http.StatusOK {
		t.Fatalf("delete: expected status 200, got %d", w.Code)
	}

	w = env.do(t, http.MethodGet, path, nil, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404 after delete, got %d", w.Code)
	}
}

func TestDeleteDoctor_NotFound(t *testing.T) {
	env := newTestEnv(t)
	sess := adminSession(t, env)

	w := env.do(t, http.MethodDelete, "/api/v1/doctors/999", nil, &sess)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
}

func seedDoctor(t *testing.T, env *testEnv, active bool) *models.Doctor {
	t.Helper()
	doc := &models.Doctor{FirstName: "Jane", LastName: "Smith", Active: active}
	if err := env.store.Doctors.Create(context.Background(), doc); err != nil {
		t.Fatalf("failed to create doctor: %v", err)
	}
	return doc
}
