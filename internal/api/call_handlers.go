package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	mw "github.com/carelink/carelink/internal/api/middleware"
	callpkg "github.com/carelink/carelink/internal/call"
	"github.com/carelink/carelink/internal/database/models"
)

// callResponse is the JSON view of a call ledger entry.
type callResponse struct {
	CallID            string `json:"call_id"`
	CallerName        string `json:"caller_name"`
	CallerPhone       string `json:"caller_phone,omitempty"`
	Kind              string `json:"kind"`
	Status            string `json:"status"`
	RoomName          string `json:"room_name"`
	AgentID           *int64 `json:"agent_id,omitempty"`
	CreatedAt         string `json:"created_at"`
	AnsweredAt        string `json:"answered_at,omitempty"`
	EndedAt           string `json:"ended_at,omitempty"`
	Duration          int    `json:"duration"`
	DurationFormatted string `json:"duration_formatted"`
}

func toCallResponse(c *models.Call) callResponse {
	resp := callResponse{
		CallID:            c.CallID,
		CallerName:        c.CallerName,
		CallerPhone:       c.CallerPhone,
		Kind:              c.Kind,
		Status:            c.Status,
		RoomName:          c.RoomName,
		AgentID:           c.AgentID,
		CreatedAt:         c.CreatedAt.Format(time.RFC3339),
		Duration:          c.Duration,
		DurationFormatted: callpkg.FormatDuration(c.Duration),
	}
	if c.AnsweredAt != nil {
		resp.AnsweredAt = c.AnsweredAt.Format(time.RFC3339)
	}
	if c.EndedAt != nil {
		resp.EndedAt = c.EndedAt.Format(time.RFC3339)
	}
	return resp
}

// mapCallError translates controller sentinels to HTTP statuses.
func (s *Server) mapCallError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, callpkg.ErrCallNotFound):
		writeError(w, http.StatusNotFound, "call not found")
	case errors.Is(err, callpkg.ErrTerminalState):
		writeError(w, http.StatusBadRequest, "this call is no longer active")
	case errors.Is(err, callpkg.ErrNotAssigned):
		writeError(w, http.StatusForbidden, "call is assigned to a different agent")
	case errors.Is(err, callpkg.ErrAgentBusy):
		writeError(w, http.StatusConflict, "you are already on another active call")
	case errors.Is(err, callpkg.ErrCallTaken):
		writeError(w, http.StatusConflict, "call was already answered")
	case errors.Is(err, callpkg.ErrRelayNotConfigured):
		writeError(w, http.StatusServiceUnavailable, "call service is not configured")
	case errors.Is(err, callpkg.ErrNoOnlineAgent):
		writeError(w, http.StatusServiceUnavailable, "no reception agents are online right now")
	case errors.Is(err, callpkg.ErrNoCapableAgent):
		writeError(w, http.StatusServiceUnavailable, "no reception agents are available")
	default:
		s.logger.Error("call operation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// initiateCallRequest is the public call-initiation request body.
type initiateCallRequest struct {
	CallerName       string `json:"caller_name"`
	CallerPhone      string `json:"caller_phone"`
	PreferredAgentID int64  `json:"preferred_agent_id"`
}

// initiateCallResponse includes the routing outcome alongside the call.
type initiateCallResponse struct {
	Call    callResponse `json:"call"`
	Busy    bool         `json:"busy"`
	Reason  string       `json:"reason"`
	Message string       `json:"message"`
}

func (s *Server) handleInitiateCall(w http.ResponseWriter, r *http.Request) {
	s.initiateCall(w, r, models.CallKindCustomerCare)
}

func (s *Server) handleInitiateEmergency(w http.ResponseWriter, r *http.Request) {
	s.initiateCall(w, r, models.CallKindEmergency)
}

func (s *Server) initiateCall(w http.ResponseWriter, r *http.Request, kind string) {
	var req initiateCallRequest
	if r.ContentLength != 0 {
		if errMsg := readJSON(r, &req); errMsg != "" {
			writeError(w, http.StatusBadRequest, errMsg)
			return
		}
	}

	if errMsg := validateStringLen("caller_name", req.CallerName, maxNameLen); errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}
	if errMsg := validateStringLen("caller_phone", req.CallerPhone, maxPhoneLen); errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}
	if errMsg := validateNoControlChars("caller_name", req.CallerName); errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}

	result, err := s.controller.Initiate(r.Context(), callpkg.InitiateRequest{
		CallerName:       req.CallerName,
		CallerPhone:      req.CallerPhone,
		Kind:             kind,
		PreferredAgentID: req.PreferredAgentID,
	})
	if err != nil {
		s.mapCallError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, initiateCallResponse{
		Call:    toCallResponse(result.Call),
		Busy:    result.Busy,
		Reason:  string(result.Reason),
		Message: result.Message,
	})
}

func (s *Server) handleAnswerCall(w http.ResponseWriter, r *http.Request) {
	callID := chi.URLParam(r, "callID")
	agentID := mw.AgentIDFromContext(r.Context())

	rec, err := s.controller.Answer(r.Context(), callID, agentID)
	if err != nil {
		s.mapCallError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toCallResponse(rec))
}

type rejectCallRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) handleRejectCall(w http.ResponseWriter, r *http.Request) {
	callID := chi.URLParam(r, "callID")
	agentID := mw.AgentIDFromContext(r.Context())

	var req rejectCallRequest
	if r.ContentLength != 0 {
		if errMsg := readJSON(r, &req); errMsg != "" {
			writeError(w, http.StatusBadRequest, errMsg)
			return
		}
	}
	if errMsg := validateStringLen("reason", req.Reason, maxNameLen); errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}

	rec, err := s.controller.Reject(r.Context(), callID, agentID, req.Reason)
	if err != nil {
		s.mapCallError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toCallResponse(rec))
}

// endCallResponse reports the ended call; alreadyClosed means the call was
// terminal (or unknown) before the request and nothing changed.
type endCallResponse struct {
	Call          *callResponse `json:"call,omitempty"`
	AlreadyClosed bool          `json:"already_closed"`
	Duration      string        `json:"duration"`
}

// handleEndCall is idempotent: ending a finished or unknown call succeeds
// without side effects so hang-up retries never error on the caller side.
func (s *Server) handleEndCall(w http.ResponseWriter, r *http.Request) {
	callID := chi.URLParam(r, "callID")

	rec, alreadyClosed, err := s.controller.End(r.Context(), callID)
	if err != nil {
		if errors.Is(err, callpkg.ErrCallNotFound) {
			writeJSON(w, http.StatusOK, endCallResponse{
				AlreadyClosed: true,
				Duration:      callpkg.FormatDuration(0),
			})
			return
		}
		s.mapCallError(w, err)
		return
	}

	resp := endCallResponse{
		AlreadyClosed: alreadyClosed,
		Duration:      callpkg.FormatDuration(rec.Duration),
	}
	cr := toCallResponse(rec)
	resp.Call = &cr
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHoldCall(w http.ResponseWriter, r *http.Request) {
	callID := chi.URLParam(r, "callID")

	rec, err := s.controller.Hold(r.Context(), callID)
	if err != nil {
		s.mapCallError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toCallResponse(rec))
}

type leaveMessageRequest struct {
	CallerName  string `json:"caller_name"`
	CallerEmail string `json:"caller_email"`
	CallerPhone string `json:"caller_phone"`
	Message     string `json:"message"`
}

type leaveMessageResponse struct {
	Call            callResponse `json:"call"`
	CommunicationID int64        `json:"communication_id"`
}

func (s *Server) handleLeaveMessage(w http.ResponseWriter, r *http.Request) {
	callID := chi.URLParam(r, "callID")

	var req leaveMessageRequest
	if errMsg := readJSON(r, &req); errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}

	for _, errMsg := range []string{
		validateRequiredStringLen("message", req.Message, maxMessageLen),
		validateStringLen("caller_name", req.CallerName, maxNameLen),
		validateStringLen("caller_phone", req.CallerPhone, maxPhoneLen),
		validateEmail("caller_email", req.CallerEmail),
	} {
		if errMsg != "" {
			writeError(w, http.StatusBadRequest, errMsg)
			return
		}
	}

	rec, commID, err := s.controller.LeaveMessage(r.Context(), callID, callpkg.MessageRequest{
		CallerName:  req.CallerName,
		CallerEmail: req.CallerEmail,
		CallerPhone: req.CallerPhone,
		Message:     req.Message,
	})
	if err != nil {
		s.mapCallError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, leaveMessageResponse{
		Call:            toCallResponse(rec),
		CommunicationID: commID,
	})
}

// callStatusResponse is the caller-side polling payload.
type callStatusResponse struct {
	Call        callResponse `json:"call"`
	Message     string       `json:"message"`
	VoicePrompt string       `json:"voice_prompt,omitempty"`
	Duration    string       `json:"duration"`
}

func (s *Server) handleCallStatus(w http.ResponseWriter, r *http.Request) {
	callID := chi.URLParam(r, "callID")

	st, err := s.controller.Status(r.Context(), callID)
	if err != nil {
		s.mapCallError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, callStatusResponse{
		Call:        toCallResponse(st.Call),
		Message:     st.Message,
		VoicePrompt: st.VoicePrompt,
		Duration:    st.Duration,
	})
}

func (s *Server) handleCallHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, ok := parseIDParam(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = int(v)
	}

	calls, err := s.controller.History(r.Context(), limit)
	if err != nil {
		s.mapCallError(w, err)
		return
	}

	items := make([]callResponse, len(calls))
	for i := range calls {
		items[i] = toCallResponse(&calls[i])
	}
	writeJSON(w, http.StatusOK, items)
}

// agentAvailabilityEntry is one agent's public availability card.
type agentAvailabilityEntry struct {
	AgentID      int64  `json:"agent_id"`
	FullName     string `json:"full_name"`
	Department   string `json:"department"`
	Online       bool   `json:"online"`
	CanReceive   bool   `json:"can_receive"`
	Availability string `json:"availability"`
}

type agentAvailabilityResponse struct {
	Agents  []agentAvailabilityEntry `json:"agents"`
	Summary availabilitySummary      `json:"summary"`
}

type availabilitySummary struct {
	Total     int `json:"total"`
	Available int `json:"available"`
	Busy      int `json:"busy"`
	Offline   int `json:"offline"`
	Away      int `json:"away"`
}

func (s *Server) handleAgentAvailability(w http.ResponseWriter, r *http.Request) {
	cards, summary, err := s.controller.Availability(r.Context())
	if err != nil {
		s.mapCallError(w, err)
		return
	}

	entries := make([]agentAvailabilityEntry, len(cards))
	for i, card := range cards {
		entries[i] = agentAvailabilityEntry{
			AgentID:      card.Agent.ID,
			FullName:     card.Agent.FullName,
			Department:   card.Agent.Department,
			Online:       card.Snapshot.Online,
			CanReceive:   card.Snapshot.CanReceive,
			Availability: card.Snapshot.Availability,
		}
	}

	writeJSON(w, http.StatusOK, agentAvailabilityResponse{
		Agents: entries,
		Summary: availabilitySummary{
			Total:     summary.Total,
			Available: summary.Available,
			Busy:      summary.Busy,
			Offline:   summary.Offline,
			Away:      summary.Away,
		},
	})
}

// handleWebRTCConfig returns the ICE server list for browser calls, or 503
// when the relay is not configured.
func (s *Server) handleWebRTCConfig(w http.ResponseWriter, r *http.Request) {
	relay := s.controller.Relay()
	if !relay.Configured() {
		writeError(w, http.StatusServiceUnavailable, "call service is not configured")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ice_servers": relay.Servers()})
}
