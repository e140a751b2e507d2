package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	mw "github.com/carelink/carelink/internal/api/middleware"
	"github.com/carelink/carelink/internal/database"
	"github.com/carelink/carelink/internal/database/models"
	"github.com/carelink/carelink/internal/email"
)

type communicationResponse struct {
	ID           int64             `json:"id"`
	PatientName  string            `json:"patient_name"`
	PatientEmail string            `json:"patient_email,omitempty"`
	PatientPhone string            `json:"patient_phone,omitempty"`
	AgentID      *int64            `json:"agent_id,omitempty"`
	MessageType  string            `json:"message_type"`
	Content      string            `json:"content"`
	IsRead       bool              `json:"is_read"`
	IsResolved   bool              `json:"is_resolved"`
	Priority     string            `json:"priority"`
	CreatedAt    string            `json:"created_at"`
	UpdatedAt    string            `json:"updated_at"`
	Thread       []messageResponse `json:"thread,omitempty"`
}

type messageResponse struct {
	ID         int64  `json:"id"`
	SenderType string `json:"sender_type"`
	SenderName string `json:"sender_name"`
	Content    string `json:"content"`
	CreatedAt  string `json:"created_at"`
}

func toCommunicationResponse(c *models.Communication) communicationResponse {
	return communicationResponse{
		ID:           c.ID,
		PatientName:  c.PatientName,
		PatientEmail: c.PatientEmail,
		PatientPhone: c.PatientPhone,
		AgentID:      c.AgentID,
		MessageType:  c.MessageType,
		Content:      c.Content,
		IsRead:       c.IsRead,
		IsResolved:   c.IsResolved,
		Priority:     c.Priority,
		CreatedAt:    c.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:    c.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toMessageResponses(msgs []models.CommunicationMessage) []messageResponse {
	out := make([]messageResponse, 0, len(msgs))
	for i := range msgs {
		out = append(out, messageResponse{
			ID:         msgs[i].ID,
			SenderType: msgs[i].SenderType,
			SenderName: msgs[i].SenderName,
			Content:    msgs[i].Content,
			CreatedAt:  msgs[i].CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return out
}

type createCommunicationRequest struct {
	PatientName  string `json:"patient_name"`
	PatientEmail string `json:"patient_email"`
	PatientPhone string `json:"patient_phone"`
	Message      string `json:"message"`
	Priority     string `json:"priority"`
}

// handleCreateCommunication accepts a contact-form message from the public
// site, opens a thread and alerts active reception agents.
func (s *Server) handleCreateCommunication(w http.ResponseWriter, r *http.Request) {
	var req createCommunicationRequest
	if errMsg := readJSON(r, &req); errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}

	for _, errMsg := range []string{
		validateRequiredStringLen("patient_name", req.PatientName, maxNameLen),
		validateRequiredStringLen("message", req.Message, maxMessageLen),
		validateStringLen("patient_phone", req.PatientPhone, maxPhoneLen),
		validateEmail("patient_email", req.PatientEmail),
		validateNoControlChars("patient_name", req.PatientName),
	} {
		if errMsg != "" {
			writeError(w, http.StatusBadRequest, errMsg)
			return
		}
	}

	priority := strings.ToLower(strings.TrimSpace(req.Priority))
	switch priority {
	case "":
		priority = "normal"
	case "low", "normal", "high", "urgent":
	default:
		writeError(w, http.StatusBadRequest, "priority must be one of low, normal, high, urgent")
		return
	}

	comm := &models.Communication{
		PatientName:  strings.TrimSpace(req.PatientName),
		PatientEmail: strings.TrimSpace(req.PatientEmail),
		PatientPhone: strings.TrimSpace(req.PatientPhone),
		MessageType:  "message",
		Content:      req.Message,
		Priority:     priority,
		PublicToken:  strings.ReplaceAll(uuid.NewString(), "-", ""),
	}

	err := s.store.InTx(r.Context(), func(tx *database.Store) error {
		if err := tx.Communications.Create(r.Context(), comm); err != nil {
			return err
		}
		if err := tx.Communications.AddMessage(r.Context(), &models.CommunicationMessage{
			CommunicationID: comm.ID,
			SenderType:      "patient",
			SenderName:      comm.PatientName,
			SenderEmail:     comm.PatientEmail,
			Content:         comm.Content,
		}); err != nil {
			return err
		}
		return s.notifyActiveAgents(r.Context(), tx, &models.Notification{
			CommunicationID: &comm.ID,
			Kind:            "message",
			Title:           fmt.Sprintf("New message from %s", comm.PatientName),
			Message:         truncateMessage(comm.Content, 100),
		})
	})
	if err != nil {
		s.logger.Error("create communication failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":           comm.ID,
		"public_token": comm.PublicToken,
	})
}

// notifyActiveAgents fans one notification out to every active agent. The
// template's AgentID is overwritten per recipient.
func (s *Server) notifyActiveAgents(ctx context.Context, tx *database.Store, template *models.Notification) error {
	agents, err := tx.Agents.ListActive(ctx)
	if err != nil {
		return err
	}
	for i := range agents {
		n := *template
		n.ID = 0
		n.AgentID = agents[i].ID
		if err := tx.Notifications.Create(ctx, &n); err != nil {
			return err
		}
	}
	return nil
}

func truncateMessage(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// handlePublicThread lets a patient read their conversation via the opaque
// token they were given, with no login.
func (s *Server) handlePublicThread(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if token == "" || len(token) > 64 {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}

	comm, err := s.store.Communications.GetByPublicToken(r.Context(), token)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusNotFound, "conversation not found")
			return
		}
		s.logger.Error("public thread lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	msgs, err := s.store.Communications.Thread(r.Context(), comm.ID)
	if err != nil {
		s.logger.Error("public thread load failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	// Patient view omits internal fields.
	writeJSON(w, http.StatusOK, map[string]any{
		"patient_name": comm.PatientName,
		"is_resolved":  comm.IsResolved,
		"created_at":   comm.CreatedAt.UTC().Format(time.RFC3339),
		"thread":       toMessageResponses(msgs),
	})
}

func (s *Server) handleListCommunications(w http.ResponseWriter, r *http.Request) {
	page, errMsg := parsePagination(r)
	if errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}
	comms, total, err := s.store.Communications.List(r.Context(), page.Limit, page.Offset)
	if err != nil {
		s.logger.Error("list communications failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	items := make([]communicationResponse, 0, len(comms))
	for i := range comms {
		items = append(items, toCommunicationResponse(&comms[i]))
	}
	writeJSON(w, http.StatusOK, PaginatedResponse{
		Items:  items,
		Total:  total,
		Limit:  page.Limit,
		Offset: page.Offset,
	})
}

func (s *Server) handleGetCommunication(w http.ResponseWriter, r *http.Request) {
	comm, ok := s.lookupCommunication(w, r)
	if !ok {
		return
	}

	msgs, err := s.store.Communications.Thread(r.Context(), comm.ID)
	if err != nil {
		s.logger.Error("load thread failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if !comm.IsRead {
		comm.IsRead = true
		if err := s.store.Communications.Update(r.Context(), comm); err != nil {
			s.logger.Warn("mark communication read failed", "error", err, "id", comm.ID)
		}
	}

	resp := toCommunicationResponse(comm)
	resp.Thread = toMessageResponses(msgs)
	writeJSON(w, http.StatusOK, resp)
}

type replyRequest struct {
	Message string `json:"message"`
}

// handleReplyCommunication appends a reception reply to the thread and, when
// SMTP is configured and the patient left an email, sends them a notification.
func (s *Server) handleReplyCommunication(w http.ResponseWriter, r *http.Request) {
	comm, ok := s.lookupCommunication(w, r)
	if !ok {
		return
	}

	var req replyRequest
	if errMsg := readJSON(r, &req); errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}
	if errMsg := validateRequiredStringLen("message", req.Message, maxMessageLen); errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}

	staff := mw.StaffUserFromContext(r.Context())
	if staff == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	msg := &models.CommunicationMessage{
		CommunicationID: comm.ID,
		SenderType:      "reception",
		SenderName:      staff.Username,
		Content:         req.Message,
	}
	if err := s.store.Communications.AddMessage(r.Context(), msg); err != nil {
		s.logger.Error("reply failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if staff.Role == mw.RoleReception && comm.AgentID == nil {
		comm.AgentID = &staff.ID
	}
	comm.IsRead = true
	if err := s.store.Communications.Update(r.Context(), comm); err != nil {
		s.logger.Warn("update communication after reply failed", "error", err, "id", comm.ID)
	}

	if s.sender.Configured() && comm.PatientEmail != "" {
		notif := email.ReplyNotification{
			To:          comm.PatientEmail,
			PatientName: comm.PatientName,
			AgentName:   staff.Username,
			Reply:       req.Message,
			ThreadURL:   s.threadURL(comm.PublicToken),
		}
		if err := s.sender.SendReplyNotification(r.Context(), notif); err != nil {
			s.logger.Warn("reply email failed", "error", err, "communication_id", comm.ID)
		}
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":         msg.ID,
		"created_at": msg.CreatedAt.UTC().Format(time.RFC3339),
	})
}

// threadURL builds the public conversation link included in reply emails.
// Empty when no public base URL is configured.
func (s *Server) threadURL(token string) string {
	base := strings.TrimRight(s.cfg.PublicBaseURL, "/")
	if base == "" || token == "" {
		return ""
	}
	return base + "/messages/" + token
}

func (s *Server) handleResolveCommunication(w http.ResponseWriter, r *http.Request) {
	comm, ok := s.lookupCommunication(w, r)
	if !ok {
		return
	}

	comm.IsResolved = true
	comm.IsRead = true
	if err := s.store.Communications.Update(r.Context(), comm); err != nil {
		s.logger.Error("resolve communication failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, toCommunicationResponse(comm))
}

// lookupCommunication parses the {id} param and loads the record, writing the
// error response itself on failure.
func (s *Server) lookupCommunication(w http.ResponseWriter, r *http.Request) (*models.Communication, bool) {
	id, ok := parseIDParam(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid communication id")
		return nil, false
	}

	comm, err := s.store.Communications.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusNotFound, "communication not found")
			return nil, false
		}
		s.logger.Error("get communication failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return nil, false
	}
	return comm, true
}
