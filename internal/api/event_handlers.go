package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/carelink/carelink/internal/database"
	"github.com/carelink/carelink/internal/database/models"
)

// eventTypes is the vocabulary of event categories shown on the public
// events page. Unknown query filters fall back to no filter.
var eventTypes = map[string]bool{
	"health_camp": true,
	"seminar":     true,
	"workshop":    true,
	"vaccination": true,
	"general":     true,
}

var eventStatuses = map[string]bool{
	models.EventStatusUpcoming:  true,
	models.EventStatusOngoing:   true,
	models.EventStatusCompleted: true,
}

const (
	defaultPastEventsPageSize = 6
	maxPastEventsPageSize     = 24
)

type eventRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	EventDate   string `json:"event_date"`
	Location    string `json:"location"`
	ImageURL    string `json:"image_url"`
	EventType   string `json:"event_type"`
	Status      string `json:"status"`
}

type eventResponse struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	EventDate   string `json:"event_date"`
	DisplayDate string `json:"display_date"`
	DisplayTime string `json:"display_time"`
	Location    string `json:"location"`
	ImageURL    string `json:"image_url"`
	EventType   string `json:"event_type"`
	TypeLabel   string `json:"event_type_label"`
	Status      string `json:"status"`
	StatusLabel string `json:"status_label"`
}

func toEventResponse(e *models.Event, now time.Time) eventResponse {
	status := e.NormalizedStatus(now)
	return eventResponse{
		ID:          e.ID,
		Title:       e.Title,
		Description: e.Description,
		EventDate:   e.EventDate.UTC().Format(time.RFC3339),
		DisplayDate: e.EventDate.Format("Jan 02, 2006"),
		DisplayTime: e.EventDate.Format("03:04 PM"),
		Location:    e.Location,
		ImageURL:    e.ImageURL,
		EventType:   e.EventType,
		TypeLabel:   eventTypeLabel(e.EventType),
		Status:      status,
		StatusLabel: eventStatusLabel(status),
	}
}

// eventTypeLabel renders an event type for display: "health_camp" becomes
// "Health Camp".
func eventTypeLabel(eventType string) string {
	if eventType == "" {
		eventType = "general"
	}
	words := strings.Split(strings.ReplaceAll(eventType, "_", " "), " ")
	for i, word := range words {
		if word != "" {
			words[i] = strings.ToUpper(word[:1]) + word[1:]
		}
	}
	return strings.Join(words, " ")
}

func eventStatusLabel(status string) string {
	switch status {
	case models.EventStatusOngoing:
		return "Ongoing"
	case models.EventStatusCompleted:
		return "Past"
	default:
		return "Upcoming"
	}
}

// eventTypeFilter normalizes the event_type query parameter. Unknown or
// missing values mean no filter.
func eventTypeFilter(r *http.Request) string {
	raw := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("event_type")))
	if eventTypes[raw] {
		return raw
	}
	return ""
}

// handleListEvents returns upcoming events for the public site, soonest
// first, optionally filtered by event type.
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	events, err := s.store.Events.ListUpcoming(r.Context(), eventTypeFilter(r), now)
	if err != nil {
		s.logger.Error("list events failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	items := make([]eventResponse, 0, len(events))
	for i := range events {
		items = append(items, toEventResponse(&events[i], now))
	}
	writeJSON(w, http.StatusOK, items)
}

// handlePastEvents returns page-numbered past and completed events for the
// public events page, newest first.
func (s *Server) handlePastEvents(w http.ResponseWriter, r *http.Request) {
	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "page must be an integer")
			return
		}
		if v > 1 {
			page = v
		}
	}
	pageSize := defaultPastEventsPageSize
	if raw := r.URL.Query().Get("page_size"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "page_size must be an integer")
			return
		}
		pageSize = min(max(v, 1), maxPastEventsPageSize)
	}

	now := time.Now().UTC()
	events, total, err := s.store.Events.ListPast(r.Context(),
		eventTypeFilter(r), now, pageSize, (page-1)*pageSize)
	if err != nil {
		s.logger.Error("list past events failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	items := make([]eventResponse, 0, len(events))
	for i := range events {
		items = append(items, toEventResponse(&events[i], now))
	}

	hasMore := page*pageSize < total
	resp := map[string]any{
		"events":   items,
		"total":    total,
		"has_more": hasMore,
	}
	if hasMore {
		resp["next_page"] = page + 1
	}
	writeJSON(w, http.StatusOK, resp)
}

// parseEventRequest validates the admin payload and assembles the row.
// Status outside the known set is derived from the event date, so stale
// imports still read sensibly.
func parseEventRequest(req eventRequest) (*models.Event, string) {
	for _, errMsg := range []string{
		validateRequiredStringLen("title", req.Title, maxNameLen),
		validateRequiredStringLen("description", req.Description, maxMessageLen),
		validateStringLen("location", req.Location, maxNameLen),
		validateStringLen("image_url", req.ImageURL, 2048),
		validateNoControlChars("title", req.Title),
	} {
		if errMsg != "" {
			return nil, errMsg
		}
	}

	eventDate, err := time.Parse(time.RFC3339, req.EventDate)
	if err != nil {
		return nil, "event_date must be an RFC 3339 timestamp"
	}

	eventType := strings.ToLower(strings.TrimSpace(req.EventType))
	if eventType == "" {
		eventType = "general"
	}
	if !eventTypes[eventType] {
		return nil, "event_type must be one of health_camp, seminar, workshop, vaccination, general"
	}

	e := &models.Event{
		Title:       req.Title,
		Description: req.Description,
		EventDate:   eventDate.UTC(),
		Location:    req.Location,
		ImageURL:    req.ImageURL,
		EventType:   eventType,
		Status:      strings.ToLower(strings.TrimSpace(req.Status)),
	}
	if !eventStatuses[e.Status] {
		e.Status = e.NormalizedStatus(time.Now().UTC())
	}
	return e, ""
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if errMsg := readJSON(r, &req); errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}
	event, errMsg := parseEventRequest(req)
	if errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}

	if err := s.store.Events.Create(r.Context(), event); err != nil {
		s.logger.Error("create event failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusCreated, toEventResponse(event, time.Now().UTC()))
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid event id")
		return
	}

	var req eventRequest
	if errMsg := readJSON(r, &req); errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}
	event, errMsg := parseEventRequest(req)
	if errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}

	existing, err := s.store.Events.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		s.logger.Error("update event: lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	event.ID = existing.ID
	event.CreatedAt = existing.CreatedAt
	if err := s.store.Events.Update(r.Context(), event); err != nil {
		s.logger.Error("update event failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, toEventResponse(event, time.Now().UTC()))
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid event id")
		return
	}

	if err := s.store.Events.Delete(r.Context(), id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		s.logger.Error("delete event failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
