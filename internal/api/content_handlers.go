package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/carelink/carelink/internal/database"
	"github.com/carelink/carelink/internal/database/models"
)

// profileRequest covers founder and partner profiles, which share a shape.
type profileRequest struct {
	FullName     string `json:"full_name"`
	Title        string `json:"title"`
	Bio          string `json:"bio"`
	ImageURL     string `json:"image_url"`
	DisplayOrder int    `json:"display_order"`
	Active       *bool  `json:"active"`
}

type profileResponse struct {
	ID           int64  `json:"id"`
	FullName     string `json:"full_name"`
	Title        string `json:"title"`
	Bio          string `json:"bio"`
	ImageURL     string `json:"image_url"`
	DisplayOrder int    `json:"display_order"`
	Active       bool   `json:"active"`
}

func validateProfileRequest(req profileRequest) string {
	for _, errMsg := range []string{
		validateRequiredStringLen("full_name", req.FullName, maxNameLen),
		validateRequiredStringLen("title", req.Title, maxNameLen),
		validateStringLen("bio", req.Bio, maxMessageLen),
		validateStringLen("image_url", req.ImageURL, 2048),
		validateNoControlChars("full_name", req.FullName),
		validateNoControlChars("title", req.Title),
	} {
		if errMsg != "" {
			return errMsg
		}
	}
	return ""
}

// handleListFounders returns active founder profiles for the public site,
// in display order.
func (s *Server) handleListFounders(w http.ResponseWriter, r *http.Request) {
	founders, err := s.store.Founders.List(r.Context())
	if err != nil {
		s.logger.Error("list founders failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	items := make([]profileResponse, 0, len(founders))
	for i := range founders {
		if !founders[i].Active {
			continue
		}
		f := &founders[i]
		items = append(items, profileResponse{
			ID: f.ID, FullName: f.FullName, Title: f.Title, Bio: f.Bio,
			ImageURL: f.ImageURL, DisplayOrder: f.DisplayOrder, Active: f.Active,
		})
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleCreateFounder(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if errMsg := readJSON(r, &req); errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}
	if errMsg := validateProfileRequest(req); errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}

	f := &models.Founder{
		FullName:     req.FullName,
		Title:        req.Title,
		Bio:          req.Bio,
		ImageURL:     req.ImageURL,
		DisplayOrder: req.DisplayOrder,
		Active:       req.Active == nil || *req.Active,
	}
	if err := s.store.Founders.Create(r.Context(), f); err != nil {
		s.logger.Error("create founder failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusCreated, profileResponse{
		ID: f.ID, FullName: f.FullName, Title: f.Title, Bio: f.Bio,
		ImageURL: f.ImageURL, DisplayOrder: f.DisplayOrder, Active: f.Active,
	})
}

func (s *Server) handleUpdateFounder(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid founder id")
		return
	}

	var req profileRequest
	if errMsg := readJSON(r, &req); errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}
	if errMsg := validateProfileRequest(req); errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}

	f, err := s.store.Founders.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusNotFound, "founder not found")
			return
		}
		s.logger.Error("update founder: lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	f.FullName = req.FullName
	f.Title = req.Title
	f.Bio = req.Bio
	f.ImageURL = req.ImageURL
	f.DisplayOrder = req.DisplayOrder
	if req.Active != nil {
		f.Active = *req.Active
	}

	if err := s.store.Founders.Update(r.Context(), f); err != nil {
		s.logger.Error("update founder failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, profileResponse{
		ID: f.ID, FullName: f.FullName, Title: f.Title, Bio: f.Bio,
		ImageURL: f.ImageURL, DisplayOrder: f.DisplayOrder, Active: f.Active,
	})
}

func (s *Server) handleDeleteFounder(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid founder id")
		return
	}

	if err := s.store.Founders.Delete(r.Context(), id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusNotFound, "founder not found")
			return
		}
		s.logger.Error("delete founder failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// handleListPartners returns active partner profiles for the public site,
// in display order.
func (s *Server) handleListPartners(w http.ResponseWriter, r *http.Request) {
	partners, err := s.store.Partners.List(r.Context())
	if err != nil {
		s.logger.Error("list partners failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	items := make([]profileResponse, 0, len(partners))
	for i := range partners {
		if !partners[i].Active {
			continue
		}
		p := &partners[i]
		items = append(items, profileResponse{
			ID: p.ID, FullName: p.FullName, Title: p.Title, Bio: p.Bio,
			ImageURL: p.ImageURL, DisplayOrder: p.DisplayOrder, Active: p.Active,
		})
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleCreatePartner(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if errMsg := readJSON(r, &req); errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}
	if errMsg := validateProfileRequest(req); errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}

	p := &models.Partner{
		FullName:     req.FullName,
		Title:        req.Title,
		Bio:          req.Bio,
		ImageURL:     req.ImageURL,
		DisplayOrder: req.DisplayOrder,
		Active:       req.Active == nil || *req.Active,
	}
	if err := s.store.Partners.Create(r.Context(), p); err != nil {
		s.logger.Error("create partner failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusCreated, profileResponse{
		ID: p.ID, FullName: p.FullName, Title: p.Title, Bio: p.Bio,
		ImageURL: p.ImageURL, DisplayOrder: p.DisplayOrder, Active: p.Active,
	})
}

func (s *Server) handleUpdatePartner(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid partner id")
		return
	}

	var req profileRequest
	if errMsg := readJSON(r, &req); errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}
	if errMsg := validateProfileRequest(req); errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}

	p, err := s.store.Partners.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusNotFound, "partner not found")
			return
		}
		s.logger.Error("update partner: lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	p.FullName = req.FullName
	p.Title = req.Title
	p.Bio = req.Bio
	p.ImageURL = req.ImageURL
	p.DisplayOrder = req.DisplayOrder
	if req.Active != nil {
		p.Active = *req.Active
	}

	if err := s.store.Partners.Update(r.Context(), p); err != nil {
		s.logger.Error("update partner failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, profileResponse{
		ID: p.ID, FullName: p.FullName, Title: p.Title, Bio: p.Bio,
		ImageURL: p.ImageURL, DisplayOrder: p.DisplayOrder, Active: p.Active,
	})
}

func (s *Server) handleDeletePartner(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid partner id")
		return
	}

	if err := s.store.Partners.Delete(r.Context(), id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusNotFound, "partner not found")
			return
		}
		s.logger.Error("delete partner failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type photoRequest struct {
	ImageURL    string `json:"image_url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Active      *bool  `json:"active"`
}

type photoResponse struct {
	ID          int64  `json:"id"`
	ImageURL    string `json:"image_url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Active      bool   `json:"active"`
}

func toPhotoResponse(p *models.Photo) photoResponse {
	return photoResponse{
		ID:          p.ID,
		ImageURL:    p.ImageURL,
		Title:       p.Title,
		Description: p.Description,
		Category:    p.Category,
		Active:      p.Active,
	}
}

func validatePhotoRequest(req photoRequest) string {
	for _, errMsg := range []string{
		validateRequiredStringLen("image_url", req.ImageURL, 2048),
		validateStringLen("title", req.Title, maxNameLen),
		validateStringLen("description", req.Description, maxMessageLen),
		validateStringLen("category", req.Category, maxNameLen),
	} {
		if errMsg != "" {
			return errMsg
		}
	}
	return ""
}

// handleListPhotos returns active gallery photos, newest first, optionally
// filtered by ?category=.
func (s *Server) handleListPhotos(w http.ResponseWriter, r *http.Request) {
	photos, err := s.store.Photos.List(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		s.logger.Error("list photos failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	items := make([]photoResponse, 0, len(photos))
	for i := range photos {
		if !photos[i].Active {
			continue
		}
		items = append(items, toPhotoResponse(&photos[i]))
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleCreatePhoto(w http.ResponseWriter, r *http.Request) {
	var req photoRequest
	if errMsg := readJSON(r, &req); errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}
	if errMsg := validatePhotoRequest(req); errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}

	p := &models.Photo{
		ImageURL:    req.ImageURL,
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Active:      req.Active == nil || *req.Active,
	}
	if err := s.store.Photos.Create(r.Context(), p); err != nil {
		s.logger.Error("create photo failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusCreated, toPhotoResponse(p))
}

func (s *Server) handleUpdatePhoto(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid photo id")
		return
	}

	var req photoRequest
	if errMsg := readJSON(r, &req); errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}
	if errMsg := validatePhotoRequest(req); errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}

	p, err := s.store.Photos.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusNotFound, "photo not found")
			return
		}
		s.logger.Error("update photo: lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	p.ImageURL = req.ImageURL
	p.Title = req.Title
	p.Description = req.Description
	p.Category = req.Category
	if req.Active != nil {
		p.Active = *req.Active
	}

	if err := s.store.Photos.Update(r.Context(), p); err != nil {
		s.logger.Error("update photo failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, toPhotoResponse(p))
}

func (s *Server) handleDeletePhoto(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid photo id")
		return
	}

	if err := s.store.Photos.Delete(r.Context(), id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusNotFound, "photo not found")
			return
		}
		s.logger.Error("delete photo failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
