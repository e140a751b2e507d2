package api

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/carelink/carelink/internal/database/models"
)

func TestFounderCRUD(t *testing.T) {
	env := newTestEnv(t)
	sess := adminSession(t, env)

	w := env.do(t, http.MethodPost, "/api/v1/founders", map[string]any{
		"full_name":     "Dr. Amina Rahman",
		"title":         "Founder & Chief Medical Officer",
		"display_order": 1,
	}, &sess)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	var created profileResponse
	decodeData(t, w, &created)
	if !created.Active {
		t.Error("new founder should default to active")
	}

	path := fmt.Sprintf("/api/v1/founders/%d", created.ID)
	w = env.do(t, http.MethodPut, path, map[string]any{
		"full_name": "Dr. Amina Rahman",
		"title":     "Founder & Chief Medical Officer",
		"active":    false,
	}, &sess)
	if w.Code != http.StatusOK {
		t.Fatalf("update: expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	// Inactive founders disappear from the public list.
	w = env.do(t, http.MethodGet, "/api/v1/founders", nil, nil)
	var listed []profileResponse
	decodeData(t, w, &listed)
	if len(listed) != 0 {
		t.Errorf("expected inactive founder hidden, got %d entries", len(listed))
	}

	w = env.do(t, http.MethodDelete, path, nil, &sess)
	if w.Code != http.StatusOK {
		t.Fatalf("delete: expected status 200, got %d", w.Code)
	}
	w = env.do(t, http.MethodDelete, path, nil, &sess)
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete: expected status 404, got %d", w.Code)
	}
}

func TestListPartners_DisplayOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for _, p := range []models.Partner{
		{FullName: "City Diagnostics", Title: "Lab Partner", DisplayOrder: 2, Active: true},
		{FullName: "Red Crescent", Title: "Blood Bank Partner", DisplayOrder: 1, Active: true},
		{FullName: "Former Partner", Title: "Retired", DisplayOrder: 0, Active: false},
	} {
		partner := p
		if err := env.store.Partners.Create(ctx, &partner); err != nil {
			t.Fatalf("failed to create partner: %v", err)
		}
	}

	w := env.do(t, http.MethodGet, "/api/v1/partners", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var listed []profileResponse
	decodeData(t, w, &listed)
	if len(listed) != 2 {
		t.Fatalf("expected 2 active partners, got %d", len(listed))
	}
	if listed[0].FullName != "Red Crescent" || listed[1].FullName != "City Diagnostics" {
		t.Errorf("unexpected ordering: %q, %q", listed[0].FullName, listed[1].FullName)
	}
}

func TestCreatePartner_RequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	env.seedAgent(t, "maria", "pass")
	sess := env.login(t, "maria", "pass")

	w := env.do(t, http.MethodPost, "/api/v1/partners", map[string]string{
		"full_name": "City Diagnostics",
		"title":     "Lab Partner",
	}, &sess)
	if w.Code != http.StatusForbidden {
		t.Errorf("reception: expected status 403, got %d", w.Code)
	}
}

func TestPhotoGallery(t *testing.T) {
	env := newTestEnv(t)
	sess := adminSession(t, env)

	for _, p := range []map[string]any{
		{"image_url": "https://cdn.example/facility1.jpg", "title": "Reception area", "category": "facility"},
		{"image_url": "https://cdn.example/team1.jpg", "title": "Nursing team", "category": "team"},
	} {
		w := env.do(t, http.MethodPost, "/api/v1/photos", p, &sess)
		if w.Code != http.StatusCreated {
			t.Fatalf("create: expected status 201, got %d: %s", w.Code, w.Body.String())
		}
	}

	w := env.do(t, http.MethodGet, "/api/v1/photos", nil, nil)
	var listed []photoResponse
	decodeData(t, w, &listed)
	if len(listed) != 2 {
		t.Fatalf("expected 2 photos, got %d", len(listed))
	}

	w = env.do(t, http.MethodGet, "/api/v1/photos?category=facility", nil, nil)
	decodeData(t, w, &listed)
	if len(listed) != 1 || listed[0].Category != "facility" {
		t.Errorf("category filter returned %+v, want only the facility photo", listed)
	}

	// Deactivating hides the photo from the gallery.
	path := fmt.Sprintf("/api/v1/photos/%d", listed[0].ID)
	w = env.do(t, http.MethodPut, path, map[string]any{
		"image_url": "https://cdn.example/facility1.jpg",
		"title":     "Reception area",
		"category":  "facility",
		"active":    false,
	}, &sess)
	if w.Code != http.StatusOK {
		t.Fatalf("update: expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	w = env.do(t, http.MethodGet, "/api/v1/photos?category=facility", nil, nil)
	decodeData(t, w, &listed)
	if len(listed) != 0 {
		t.Errorf("expected deactivated photo hidden, got %d entries", len(listed))
	}
}

func TestCreatePhoto_RequiresImageURL(t *testing.T) {
	env := newTestEnv(t)
	sess := adminSession(t, env)

	w := env.do(t, http.MethodPost, "/api/v1/photos", map[string]string{
		"title": "No image",
	}, &sess)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d: %s", w.Code, w.Body.String())
	}
}
