package api

import (
	"net/http"
	"strings"
	"testing"

	mw "github.com/carelink/carelink/internal/api/middleware"
	"github.com/carelink/carelink/internal/call"
)

// agentSession builds a bearer-only session for the given agent.
func agentSession(t *testing.T, agentID int64, username string) *session {
	t.Helper()
	token, _, err := mw.GenerateAgentToken(testJWTSecret, agentID, username)
	if err != nil {
		t.Fatalf("failed to generate agent token: %v", err)
	}
	return &session{token: token}
}

func TestInitiateCall_NoCapableAgent(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/calls", nil, nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d: %s", w.Code, w.Body.String())
	}
}

func TestInitiateCall_AgentOffline(t *testing.T) {
	env := newTestEnv(t)
	env.seedAgent(t, "maria", "pass")

	w := env.do(t, http.MethodPost, "/api/v1/calls", nil, nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "online") {
		t.Errorf("expected offline message, got %s", w.Body.String())
	}
}

func TestInitiateCall_RoutesToOnlineAgent(t *testing.T) {
	env := newTestEnv(t)
	agent := env.seedAgent(t, "maria", "pass")
	env.controller.Presence().Register(agent.ID, "sess-1")

	w := env.do(t, http.MethodPost, "/api/v1/calls",
		map[string]string{"caller_name": "John Doe", "caller_phone": "555-0101"}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var data struct {
		Call struct {
			CallID   string `json:"call_id"`
			Status   string `json:"status"`
			RoomName string `json:"room_name"`
			AgentID  *int64 `json:"agent_id"`
		} `json:"call"`
		Busy bool `json:"busy"`
	}
	decodeData(t, w, &data)
	if data.Call.Status != string(call.StatusRinging) {
		t.Errorf("expected status ringing, got %q", data.Call.Status)
	}
	if data.Call.RoomName == "" {
		t.Error("expected a room name")
	}
	if data.Call.AgentID == nil || *data.Call.AgentID != agent.ID {
		t.Errorf("expected call assigned to agent %d, got %v", agent.ID, data.Call.AgentID)
	}
	if data.Busy {
		t.Error("expected busy=false for an idle agent")
	}
}

func TestEmergencyCall_OverridesCallerIdentity(t *testing.T) {
	env := newTestEnv(t)
	agent := env.seedAgent(t, "maria", "pass")
	env.controller.Presence().Register(agent.ID, "sess-1")

	w := env.do(t, http.MethodPost, "/api/v1/calls/emergency", nil, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var data struct {
		Call struct {
			CallerName  string `json:"caller_name"`
			CallerPhone string `json:"caller_phone"`
			Kind        string `json:"kind"`
		} `json:"call"`
	}
	decodeData(t, w, &data)
	if data.Call.Kind != "emergency" {
		t.Errorf("expected kind emergency, got %q", data.Call.Kind)
	}
	if data.Call.CallerPhone != "SYSTEM" {
		t.Errorf("expected SYSTEM caller phone, got %q", data.Call.CallerPhone)
	}
}

// initiateCall is a test helper that places a call and returns its ID.
func initiateCall(t *testing.T, env *testEnv) string {
	t.Helper()
	w := env.do(t, http.MethodPost, "/api/v1/calls",
		map[string]string{"caller_name": "John Doe"}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("failed to initiate call: status %d: %s", w.Code, w.Body.String())
	}
	var data struct {
		Call struct {
			CallID string `json:"call_id"`
		} `json:"call"`
	}
	decodeData(t, w, &data)
	return data.Call.CallID
}

func TestAnswerCall(t *testing.T) {
	env := newTestEnv(t)
	agent := env.seedAgent(t, "maria", "pass")
	env.controller.Presence().Register(agent.ID, "sess-1")
	callID := initiateCall(t, env)

	sess := agentSession(t, agent.ID, agent.Username)
	w := env.do(t, http.MethodPost, "/api/v1/calls/"+callID+"/answer", nil, sess)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var data struct {
		Status     string `json:"status"`
		AnsweredAt string `json:"answered_at"`
	}
	decodeData(t, w, &data)
	if data.Status != string(call.StatusConnected) {
		t.Errorf("expected status connected, got %q", data.Status)
	}
	if data.AnsweredAt == "" {
		t.Error("expected answered_at to be set")
	}
}

func TestAnswerCall_RequiresAgentToken(t *testing.T) {
	env := newTestEnv(t)
	agent := env.seedAgent(t, "maria", "pass")
	env.controller.Presence().Register(agent.ID, "sess-1")
	callID := initiateCall(t, env)

	w := env.do(t, http.MethodPost, "/api/v1/calls/"+callID+"/answer", nil, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401 without token, got %d", w.Code)
	}
}

func TestAnswerCall_WrongAgentForbidden(t *testing.T) {
	env := newTestEnv(t)
	agent := env.seedAgent(t, "maria", "pass")
	other := env.seedAgent(t, "james", "pass")
	env.controller.Presence().Register(agent.ID, "sess-1")
	callID := initiateCall(t, env)

	sess := agentSession(t, other.ID, other.Username)
	w := env.do(t, http.MethodPost, "/api/v1/calls/"+callID+"/answer", nil, sess)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRejectCall(t *testing.T) {
	env := newTestEnv(t)
	agent := env.seedAgent(t, "maria", "pass")
	env.controller.Presence().Register(agent.ID, "sess-1")
	callID := initiateCall(t, env)

	sess := agentSession(t, agent.ID, agent.Username)
	w := env.do(t, http.MethodPost, "/api/v1/calls/"+callID+"/reject",
		map[string]string{"reason": "on break"}, sess)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var data struct {
		Status string `json:"status"`
	}
	decodeData(t, w, &data)
	if data.Status != string(call.StatusRejected) {
		t.Errorf("expected status rejected, got %q", data.Status)
	}
}

func TestEndCall_Idempotent(t *testing.T) {
	env := newTestEnv(t)
	agent := env.seedAgent(t, "maria", "pass")
	env.controller.Presence().Register(agent.ID, "sess-1")
	callID := initiateCall(t, env)

	w := env.do(t, http.MethodPost, "/api/v1/calls/"+callID+"/end", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("first end: expected status 200, got %d", w.Code)
	}
	var first struct {
		AlreadyClosed bool `json:"already_closed"`
	}
	decodeData(t, w, &first)
	if first.AlreadyClosed {
		t.Error("first end should not report already_closed")
	}

	w = env.do(t, http.MethodPost, "/api/v1/calls/"+callID+"/end", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("second end: expected status 200, got %d", w.Code)
	}
	var second struct {
		AlreadyClosed bool `json:"already_closed"`
	}
	decodeData(t, w, &second)
	if !second.AlreadyClosed {
		t.Error("second end should report already_closed")
	}
}

func TestEndCall_UnknownCallSucceeds(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/calls/deadbeef/end", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var data struct {
		AlreadyClosed bool   `json:"already_closed"`
		Duration      string `json:"duration"`
	}
	decodeData(t, w, &data)
	if !data.AlreadyClosed {
		t.Error("expected already_closed for an unknown call")
	}
	if data.Duration != "0:00" {
		t.Errorf("expected duration 0:00, got %q", data.Duration)
	}
}

func TestHoldCall(t *testing.T) {
	env := newTestEnv(t)
	agent := env.seedAgent(t, "maria", "pass")
	env.controller.Presence().Register(agent.ID, "sess-1")
	callID := initiateCall(t, env)

	w := env.do(t, http.MethodPost, "/api/v1/calls/"+callID+"/hold", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var data struct {
		Status string `json:"status"`
	}
	decodeData(t, w, &data)
	if data.Status != string(call.StatusOnHold) {
		t.Errorf("expected status on_hold, got %q", data.Status)
	}
}

func TestCallStatus(t *testing.T) {
	env := newTestEnv(t)
	agent := env.seedAgent(t, "maria", "pass")
	env.controller.Presence().Register(agent.ID, "sess-1")
	callID := initiateCall(t, env)

	w := env.do(t, http.MethodGet, "/api/v1/calls/"+callID, nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var data struct {
		Call struct {
			Status string `json:"status"`
		} `json:"call"`
		Message string `json:"message"`
	}
	decodeData(t, w, &data)
	if data.Call.Status != string(call.StatusRinging) {
		t.Errorf("expected status ringing, got %q", data.Call.Status)
	}
	if data.Message == "" {
		t.Error("expected a caller-facing status message")
	}
}

func TestLeaveMessage(t *testing.T) {
	env := newTestEnv(t)
	agent := env.seedAgent(t, "maria", "pass")
	env.controller.Presence().Register(agent.ID, "sess-1")
	callID := initiateCall(t, env)

	w := env.do(t, http.MethodPost, "/api/v1/calls/"+callID+"/message", map[string]string{
		"caller_name":  "John Doe",
		"caller_email": "john@example.com",
		"message":      "Please call me back about my appointment.",
	}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var data struct {
		Call struct {
			Status string `json:"status"`
		} `json:"call"`
		CommunicationID int64 `json:"communication_id"`
	}
	decodeData(t, w, &data)
	if data.Call.Status != string(call.StatusMessageLeft) {
		t.Errorf("expected status message_left, got %q", data.Call.Status)
	}
	if data.CommunicationID == 0 {
		t.Error("expected a communication id")
	}
}

func TestCallHistory_RequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/calls", nil, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", w.Code)
	}
}

func TestAgentAvailability(t *testing.T) {
	env := newTestEnv(t)
	agent := env.seedAgent(t, "maria", "pass")
	env.seedAgent(t, "james", "pass")
	env.controller.Presence().Register(agent.ID, "sess-1")

	w := env.do(t, http.MethodGet, "/api/v1/agents/availability", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var data struct {
		Agents []struct {
			AgentID int64 `json:"agent_id"`
			Online  bool  `json:"online"`
		} `json:"agents"`
		Summary struct {
			Total   int `json:"total"`
			Offline int `json:"offline"`
		} `json:"summary"`
	}
	decodeData(t, w, &data)
	if len(data.Agents) != 2 {
		t.Fatalf("expected 2 agents, got %d", len(data.Agents))
	}
	if data.Summary.Total != 2 || data.Summary.Offline != 1 {
		t.Errorf("unexpected summary: %+v", data.Summary)
	}
}

func TestWebRTCConfig(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/webrtc-config", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var data struct {
		ICEServers []struct {
			URLs any `json:"urls"`
		} `json:"ice_servers"`
	}
	decodeData(t, w, &data)
	if len(data.ICEServers) == 0 {
		t.Fatal("expected at least one ice server")
	}
}

func TestWebRTCConfig_RelayNotConfigured(t *testing.T) {
	env := newTestEnvWithRelay(t, call.Relay{})

	w := env.do(t, http.MethodGet, "/api/v1/webrtc-config", nil, nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", w.Code)
	}
}
