package api

import (
	"context"
	"fmt"
	"net/http"
	"testing"
)

// sendContactMessage submits a public contact-form message and returns the
// communication ID and public thread token.
func sendContactMessage(t *testing.T, env *testEnv) (int64, string) {
	t.Helper()
	w := env.do(t, http.MethodPost, "/api/v1/communications", map[string]string{
		"patient_name":  "John Doe",
		"patient_email": "john@example.com",
		"message":       "When are visiting hours?",
	}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("failed to send message: status %d: %s", w.Code, w.Body.String())
	}
	var data struct {
		ID          int64  `json:"id"`
		PublicToken string `json:"public_token"`
	}
	decodeData(t, w, &data)
	if data.PublicToken == "" {
		t.Fatal("expected a public thread token")
	}
	return data.ID, data.PublicToken
}

func TestCreateCommunication_NotifiesActiveAgents(t *testing.T) {
	env := newTestEnv(t)
	agent := env.seedAgent(t, "maria", "pass")
	commID, _ := sendContactMessage(t, env)

	notifs, err := env.store.Notifications.ListUnreadByAgent(context.Background(), agent.ID, 10)
	if err != nil {
		t.Fatalf("failed to list notifications: %v", err)
	}
	if len(notifs) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notifs))
	}
	if notifs[0].CommunicationID == nil || *notifs[0].CommunicationID != commID {
		t.Errorf("notification does not reference communication %d", commID)
	}
}

func TestCreateCommunication_InvalidPriority(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/communications", map[string]string{
		"patient_name": "John Doe",
		"message":      "Hello",
		"priority":     "critical",
	}, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
}

func TestPublicThread(t *testing.T) {
	env := newTestEnv(t)
	_, token := sendContactMessage(t, env)

	w := env.do(t, http.MethodGet, "/api/v1/communications/thread/"+token, nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var data struct {
		PatientName string            `json:"patient_name"`
		Thread      []messageResponse `json:"thread"`
	}
	decodeData(t, w, &data)
	if data.PatientName != "John Doe" {
		t.Errorf("expected patient John Doe, got %q", data.PatientName)
	}
	if len(data.Thread) != 1 || data.Thread[0].SenderType != "patient" {
		t.Errorf("unexpected thread: %+v", data.Thread)
	}
}

func TestPublicThread_UnknownToken(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/communications/thread/nosuchtoken", nil, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
}

func TestReplyCommunication_AppendsToThread(t *testing.T) {
	env := newTestEnv(t)
	agent := env.seedAgent(t, "maria", "pass")
	sess := env.login(t, "maria", "pass")
	commID, token := sendContactMessage(t, env)

	w := env.do(t, http.MethodPost,
		fmt.Sprintf("/api/v1/communications/%d/reply", commID),
		map[string]string{"message": "Visiting hours are 9am to 8pm."}, &sess)
	if w.Code != http.StatusCreated {
		t.Fatalf("reply: expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	// The reply shows up on the patient's public thread.
	w = env.do(t, http.MethodGet, "/api/v1/communications/thread/"+token, nil, nil)
	var data struct {
		Thread []messageResponse `json:"thread"`
	}
	decodeData(t, w, &data)
	if len(data.Thread) != 2 {
		t.Fatalf("expected 2 thread entries, got %d", len(data.Thread))
	}
	if data.Thread[1].SenderType != "reception" {
		t.Errorf("expected reception reply, got %q", data.Thread[1].SenderType)
	}

	// Replying claims the thread for the agent.
	comm, err := env.store.Communications.GetByID(context.Background(), commID)
	if err != nil {
		t.Fatalf("failed to load communication: %v", err)
	}
	if comm.AgentID == nil || *comm.AgentID != agent.ID {
		t.Errorf("expected thread claimed by agent %d, got %v", agent.ID, comm.AgentID)
	}
}

func TestResolveCommunication(t *testing.T) {
	env := newTestEnv(t)
	env.seedAgent(t, "maria", "pass")
	sess := env.login(t, "maria", "pass")
	commID, _ := sendContactMessage(t, env)

	w := env.do(t, http.MethodPut,
		fmt.Sprintf("/api/v1/communications/%d/resolve", commID), nil, &sess)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var data communicationResponse
	decodeData(t, w, &data)
	if !data.IsResolved {
		t.Error("expected communication to be resolved")
	}
}

func TestListCommunications(t *testing.T) {
	env := newTestEnv(t)
	env.seedAgent(t, "maria", "pass")
	sess := env.login(t, "maria", "pass")
	sendContactMessage(t, env)
	sendContactMessage(t, env)

	w := env.do(t, http.MethodGet, "/api/v1/communications?limit=1", nil, &sess)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var page struct {
		Items []communicationResponse `json:"items"`
		Total int                     `json:"total"`
		Limit int                     `json:"limit"`
	}
	decodeData(t, w, &page)
	if page.Total != 2 || len(page.Items) != 1 || page.Limit != 1 {
		t.Errorf("unexpected page: total=%d items=%d limit=%d",
			page.Total, len(page.Items), page.Limit)
	}
}

func TestGetCommunication_MarksRead(t *testing.T) {
	env := newTestEnv(t)
	env.seedAgent(t, "maria", "pass")
	sess := env.login(t, "maria", "pass")
	commID, _ := sendContactMessage(t, env)

	w := env.do(t, http.MethodGet,
		fmt.Sprintf("/api/v1/communications/%d", commID), nil, &sess)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var data communicationResponse
	decodeData(t, w, &data)
	if len(data.Thread) != 1 {
		t.Errorf("expected thread included, got %d entries", len(data.Thread))
	}

	comm, err := env.store.Communications.GetByID(context.Background(), commID)
	if err != nil {
		t.Fatalf("failed to load communication: %v", err)
	}
	if !comm.IsRead {
		t.Error("expected communication marked read after staff view")
	}
}
