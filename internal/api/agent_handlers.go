package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	mw "github.com/carelink/carelink/internal/api/middleware"
	"github.com/carelink/carelink/internal/database"
	"github.com/carelink/carelink/internal/database/models"
)

// agentRequest is the JSON request body for creating/updating an agent.
type agentRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	Email       string `json:"email"`
	FullName    string `json:"full_name"`
	Phone       string `json:"phone"`
	Department  string `json:"department"`
	Shift       string `json:"shift"`
	Schedulable *bool  `json:"schedulable"`
	Active      *bool  `json:"active"`
}

// agentResponse is the JSON view of an agent. The password hash is never
// returned.
type agentResponse struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	FullName    string `json:"full_name"`
	Phone       string `json:"phone"`
	Department  string `json:"department"`
	Shift       string `json:"shift"`
	Schedulable bool   `json:"schedulable"`
	Active      bool   `json:"active"`
	CreatedAt   string `json:"created_at"`
}

func toAgentResponse(a *models.Agent) agentResponse {
	return agentResponse{
		ID:          a.ID,
		Username:    a.Username,
		Email:       a.Email,
		FullName:    a.FullName,
		Phone:       a.Phone,
		Department:  a.Department,
		Shift:       a.Shift,
		Schedulable: a.Schedulable,
		Active:      a.Active,
		CreatedAt:   a.CreatedAt.Format(time.RFC3339),
	}
}

func validateAgentRequest(req agentRequest, creating bool) string {
	if errMsg := validateRequiredStringLen("username", req.Username, maxNameLen); errMsg != "" {
		return errMsg
	}
	if creating && req.Password == "" {
		return "password is required"
	}
	for _, errMsg := range []string{
		validateStringLen("full_name", req.FullName, maxNameLen),
		validateStringLen("phone", req.Phone, maxPhoneLen),
		validateStringLen("department", req.Department, maxNameLen),
		validateStringLen("shift", req.Shift, maxNameLen),
		validateEmail("email", req.Email),
		validateNoControlChars("username", req.Username),
		validateNoControlChars("full_name", req.FullName),
	} {
		if errMsg != "" {
			return errMsg
		}
	}
	return ""
}

func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := s.store.Agents.List(r.Context())
	if err != nil {
		s.logger.Error("list agents failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	items := make([]agentResponse, len(agents))
	for i := range agents {
		items[i] = toAgentResponse(&agents[i])
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleCreateAgent(w http.ResponseWriter, r *http.Request) {
	var req agentRequest
	if errMsg := readJSON(r, &req); errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}
	if errMsg := validateAgentRequest(req, true); errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}

	hash, err := database.HashPassword(req.Password)
	if err != nil {
		s.logger.Error("create agent: hashing password failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	agent := &models.Agent{
		Username:     req.Username,
		PasswordHash: hash,
		Email:        req.Email,
		FullName:     req.FullName,
		Phone:        req.Phone,
		Department:   req.Department,
		Shift:        req.Shift,
		Schedulable:  req.Schedulable == nil || *req.Schedulable,
		Active:       req.Active == nil || *req.Active,
	}

	if err := s.store.Agents.Create(r.Context(), agent); err != nil {
		s.logger.Error("create agent failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusCreated, toAgentResponse(agent))
}

func (s *Server) handleGetAgent(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid agent id")
		return
	}

	agent, err := s.store.Agents.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusNotFound, "agent not found")
			return
		}
		s.logger.Error("get agent failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, toAgentResponse(agent))
}

func (s *Server) handleUpdateAgent(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid agent id")
		return
	}

	var req agentRequest
	if errMsg := readJSON(r, &req); errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}
	if errMsg := validateAgentRequest(req, false); errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}

	agent, err := s.store.Agents.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusNotFound, "agent not found")
			return
		}
		s.logger.Error("update agent: lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	agent.Username = req.Username
	agent.Email = req.Email
	agent.FullName = req.FullName
	agent.Phone = req.Phone
	agent.Department = req.Department
	agent.Shift = req.Shift
	if req.Schedulable != nil {
		agent.Schedulable = *req.Schedulable
	}
	if req.Active != nil {
		agent.Active = *req.Active
	}
	if req.Password != "" {
		hash, err := database.HashPassword(req.Password)
		if err != nil {
			s.logger.Error("update agent: hashing password failed", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		agent.PasswordHash = hash
	}

	if err := s.store.Agents.Update(r.Context(), agent); err != nil {
		s.logger.Error("update agent failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, toAgentResponse(agent))
}

func (s *Server) handleDeleteAgent(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid agent id")
		return
	}

	if err := s.store.Agents.Delete(r.Context(), id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusNotFound, "agent not found")
			return
		}
		s.logger.Error("delete agent failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type availabilityToggleRequest struct {
	Schedulable bool `json:"schedulable"`
}

// handleSetOwnAvailability lets a reception agent toggle whether routing may
// offer them calls. Presence (socket connected) is tracked separately.
func (s *Server) handleSetOwnAvailability(w http.ResponseWriter, r *http.Request) {
	agentID := mw.AgentIDFromContext(r.Context())

	var req availabilityToggleRequest
	if errMsg := readJSON(r, &req); errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}

	agent, err := s.store.Agents.GetByID(r.Context(), agentID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusNotFound, "agent not found")
			return
		}
		s.logger.Error("availability toggle: lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	agent.Schedulable = req.Schedulable
	if err := s.store.Agents.Update(r.Context(), agent); err != nil {
		s.logger.Error("availability toggle failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, toAgentResponse(agent))
}
