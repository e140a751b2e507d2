package api

import (
	"errors"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	mw "github.com/carelink/carelink/internal/api/middleware"
	"github.com/carelink/carelink/internal/database"
	"github.com/carelink/carelink/internal/database/models"
)

type reviewResponse struct {
	ID          int64  `json:"id"`
	PatientName string `json:"patient_name"`
	Rating      int    `json:"rating"`
	Content     string `json:"content"`
	Approved    bool   `json:"approved"`
	CreatedAt   string `json:"created_at"`
}

func toReviewResponse(rev *models.Review) reviewResponse {
	return reviewResponse{
		ID:          rev.ID,
		PatientName: rev.PatientName,
		Rating:      rev.Rating,
		Content:     rev.Content,
		Approved:    rev.Approved,
		CreatedAt:   rev.CreatedAt.UTC().Format(time.RFC3339),
	}
}

type createReviewRequest struct {
	PatientName string `json:"patient_name"`
	Rating      int    `json:"rating"`
	Content     string `json:"content"`
}

// handleCreateReview accepts a public review submission. Reviews are held for
// moderation and only shown once an admin approves them.
func (s *Server) handleCreateReview(w http.ResponseWriter, r *http.Request) {
	var req createReviewRequest
	if errMsg := readJSON(r, &req); errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}

	for _, errMsg := range []string{
		validateRequiredStringLen("patient_name", req.PatientName, maxNameLen),
		validateRequiredStringLen("content", req.Content, maxMessageLen),
		validateRating("rating", req.Rating),
		validateNoControlChars("patient_name", req.PatientName),
	} {
		if errMsg != "" {
			writeError(w, http.StatusBadRequest, errMsg)
			return
		}
	}

	rev := &models.Review{
		PatientName: strings.TrimSpace(req.PatientName),
		Rating:      req.Rating,
		Content:     req.Content,
	}
	if err := s.store.Reviews.Create(r.Context(), rev); err != nil {
		s.logger.Error("create review failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusCreated, toReviewResponse(rev))
}

// handleListReviews returns approved reviews for the public site. A logged-in
// admin can pass ?all=true to include pending submissions for moderation.
func (s *Server) handleListReviews(w http.ResponseWriter, r *http.Request) {
	approvedOnly := true
	if r.URL.Query().Get("all") == "true" && s.isAdminRequest(r) {
		approvedOnly = false
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

	reviews, err := s.store.Reviews.List(r.Context(), approvedOnly, limit)
	if err != nil {
		s.logger.Error("list reviews failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	items := make([]reviewResponse, 0, len(reviews))
	for i := range reviews {
		items = append(items, toReviewResponse(&reviews[i]))
	}
	writeJSON(w, http.StatusOK, items)
}

// handleReviewStats returns the approved-review average rating and count.
func (s *Server) handleReviewStats(w http.ResponseWriter, r *http.Request) {
	avg, count, err := s.store.Reviews.RatingStats(r.Context())
	if err != nil {
		s.logger.Error("review stats failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"average_rating": math.Round(avg*10) / 10,
		"review_count":   count,
	})
}

// isAdminRequest reports whether the request carries a valid admin session.
// Used on public routes that reveal extra data to a logged-in admin.
func (s *Server) isAdminRequest(r *http.Request) bool {
	id := mw.SessionIDFromRequest(r)
	if id == "" {
		return false
	}
	sess := s.sessions.Get(id)
	return sess != nil && sess.Role == mw.RoleAdmin
}

type approveReviewRequest struct {
	Approved *bool `json:"approved"`
}

func (s *Server) handleApproveReview(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid review id")
		return
	}

	// Approves by default; {"approved": false} revokes.
	approved := true
	if r.ContentLength != 0 {
		var req approveReviewRequest
		if errMsg := readJSON(r, &req); errMsg != "" {
			writeError(w, http.StatusBadRequest, errMsg)
			return
		}
		if req.Approved != nil {
			approved = *req.Approved
		}
	}

	if err := s.store.Reviews.SetApproved(r.Context(), id, approved); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusNotFound, "review not found")
			return
		}
		s.logger.Error("approve review failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"id": id, "approved": approved})
}

func (s *Server) handleDeleteReview(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid review id")
		return
	}

	if err := s.store.Reviews.Delete(r.Context(), id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusNotFound, "review not found")
			return
		}
		s.logger.Error("delete review failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
