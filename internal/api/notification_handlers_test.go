package api

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/carelink/carelink/internal/database/models"
)

func seedNotification(t *testing.T, env *testEnv, agentID int64) *models.Notification {
	t.Helper()
	n := &models.Notification{
		AgentID: agentID,
		Kind:    "message",
		Title:   "New message from John Doe",
		Message: "When are visiting hours?",
	}
	if err := env.store.Notifications.Create(context.Background(), n); err != nil {
		t.Fatalf("failed to create notification: %v", err)
	}
	return n
}

func TestListNotifications(t *testing.T) {
	env := newTestEnv(t)
	agent := env.seedAgent(t, "maria", "pass")
	sess := env.login(t, "maria", "pass")
	seedNotification(t, env, agent.ID)

	w := env.do(t, http.MethodGet, "/api/v1/notifications", nil, &sess)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var items []notificationResponse
	decodeData(t, w, &items)
	if len(items) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(items))
	}
	if items[0].Title != "New message from John Doe" {
		t.Errorf("unexpected title %q", items[0].Title)
	}
}

func TestListNotifications_AdminGetsEmptyList(t *testing.T) {
	env := newTestEnv(t)
	sess := adminSession(t, env)

	w := env.do(t, http.MethodGet, "/api/v1/notifications", nil, &sess)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var items []notificationResponse
	decodeData(t, w, &items)
	if len(items) != 0 {
		t.Errorf("expected empty list for admin, got %d", len(items))
	}
}

func TestMarkNotificationRead(t *testing.T) {
	env := newTestEnv(t)
	agent := env.seedAgent(t, "maria", "pass")
	sess := env.login(t, "maria", "pass")
	n := seedNotification(t, env, agent.ID)

	w := env.do(t, http.MethodPut,
		fmt.Sprintf("/api/v1/notifications/%d/read", n.ID), nil, &sess)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	// The alert no longer appears in the unread list.
	w = env.do(t, http.MethodGet, "/api/v1/notifications", nil, &sess)
	var items []notificationResponse
	decodeData(t, w, &items)
	if len(items) != 0 {
		t.Errorf("expected empty unread list, got %d", len(items))
	}
}

func TestMarkNotificationRead_OtherAgentsAlert(t *testing.T) {
	env := newTestEnv(t)
	owner := env.seedAgent(t, "maria", "pass")
	env.seedAgent(t, "james", "pass")
	sess := env.login(t, "james", "pass")
	n := seedNotification(t, env, owner.ID)

	w := env.do(t, http.MethodPut,
		fmt.Sprintf("/api/v1/notifications/%d/read", n.ID), nil, &sess)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404 for another agent's alert, got %d", w.Code)
	}
}
