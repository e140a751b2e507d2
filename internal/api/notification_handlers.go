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

type notificationResponse struct {
	ID              int64  `json:"id"`
	CommunicationID *int64 `json:"communication_id,omitempty"`
	AppointmentID   *int64 `json:"appointment_id,omitempty"`
	Kind            string `json:"kind"`
	Title           string `json:"title"`
	Message         string `json:"message"`
	CreatedAt       string `json:"created_at"`
}

func toNotificationResponse(n *models.Notification) notificationResponse {
	return notificationResponse{
		ID:              n.ID,
		CommunicationID: n.CommunicationID,
		AppointmentID:   n.AppointmentID,
		Kind:            n.Kind,
		Title:           n.Title,
		Message:         n.Message,
		CreatedAt:       n.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// handleListNotifications returns the logged-in agent's unread dashboard
// alerts, newest first. Admin sessions have no agent inbox and get an empty
// list.
func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	staff := mw.StaffUserFromContext(r.Context())
	if staff == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	if staff.Role != mw.RoleReception {
		writeJSON(w, http.StatusOK, []notificationResponse{})
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, ok := parseIDParam(raw); ok && v <= 200 {
			limit = int(v)
		} else {
			writeError(w, http.StatusBadRequest, "limit must be an integer between 1 and 200")
			return
		}
	}

	notifs, err := s.store.Notifications.ListUnreadByAgent(r.Context(), staff.ID, limit)
	if err != nil {
		s.logger.Error("list notifications failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	items := make([]notificationResponse, 0, len(notifs))
	for i := range notifs {
		items = append(items, toNotificationResponse(&notifs[i]))
	}
	writeJSON(w, http.StatusOK, items)
}

// handleMarkNotificationRead dismisses one of the agent's own alerts. Marking
// another agent's notification is reported as not found.
func (s *Server) handleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	staff := mw.StaffUserFromContext(r.Context())
	if staff == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	id, ok := parseIDParam(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid notification id")
		return
	}

	if err := s.store.Notifications.MarkRead(r.Context(), id, staff.ID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusNotFound, "notification not found")
			return
		}
		s.logger.Error("mark notification read failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "read"})
}
