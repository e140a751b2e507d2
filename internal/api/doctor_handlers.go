package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/carelink/carelink/internal/database"
	"github.com/carelink/carelink/internal/database/models"
)

type doctorRequest struct {
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Specialization string `json:"specialization"`
	Bio            string `json:"bio"`
	ImageURL       string `json:"image_url"`
	Active         *bool  `json:"active"`
}

type doctorResponse struct {
	ID             int64  `json:"id"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	FullName       string `json:"full_name"`
	Specialization string `json:"specialization"`
	Bio            string `json:"bio"`
	ImageURL       string `json:"image_url"`
	Active         bool   `json:"active"`
}

func toDoctorResponse(d *models.Doctor) doctorResponse {
	return doctorResponse{
		ID:             d.ID,
		FirstName:      d.FirstName,
		LastName:       d.LastName,
		FullName:       d.FullName(),
		Specialization: d.Specialization,
		Bio:            d.Bio,
		ImageURL:       d.ImageURL,
		Active:         d.Active,
	}
}

func validateDoctorRequest(req doctorRequest) string {
	for _, errMsg := range []string{
		validateRequiredStringLen("first_name", req.FirstName, maxNameLen),
		validateRequiredStringLen("last_name", req.LastName, maxNameLen),
		validateStringLen("specialization", req.Specialization, maxNameLen),
		validateStringLen("bio", req.Bio, maxMessageLen),
		validateStringLen("image_url", req.ImageURL, 2048),
		validateNoControlChars("first_name", req.FirstName),
		validateNoControlChars("last_name", req.LastName),
	} {
		if errMsg != "" {
			return errMsg
		}
	}
	return ""
}

// handleListDoctors returns active doctor profiles for the public site.
func (s *Server) handleListDoctors(w http.ResponseWriter, r *http.Request) {
	docs, err := s.store.Doctors.List(r.Context())
	if err != nil {
		s.logger.Error("list doctors failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	items := make([]doctorResponse, 0, len(docs))
	for i := range docs {
		if !docs[i].Active {
			continue
		}
		items = append(items, toDoctorResponse(&docs[i]))
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleGetDoctor(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid doctor id")
		return
	}

	doc, err := s.store.Doctors.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusNotFound, "doctor not found")
			return
		}
		s.logger.Error("get doctor failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, toDoctorResponse(doc))
}

func (s *Server) handleCreateDoctor(w http.ResponseWriter, r *http.Request) {
	var req doctorRequest
	if errMsg := readJSON(r, &req); errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}
	if errMsg := validateDoctorRequest(req); errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}

	doc := &models.Doctor{
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Specialization: req.Specialization,
		Bio:            req.Bio,
		ImageURL:       req.ImageURL,
		Active:         req.Active == nil || *req.Active,
	}

	if err := s.store.Doctors.Create(r.Context(), doc); err != nil {
		s.logger.Error("create doctor failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusCreated, toDoctorResponse(doc))
}

func (s *Server) handleUpdateDoctor(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid doctor id")
		return
	}

	var req doctorRequest
	if errMsg := readJSON(r, &req); errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}
	if errMsg := validateDoctorRequest(req); errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}

	doc, err := s.store.Doctors.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusNotFound, "doctor not found")
			return
		}
		s.logger.Error("update doctor: lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	doc.FirstName = req.FirstName
	doc.LastName = req.LastName
	doc.Specialization = req.Specialization
	doc.Bio = req.Bio
	doc.ImageURL = req.ImageURL
	if req.Active != nil {
		doc.Active = *req.Active
	}

	if err := s.store.Doctors.Update(r.Context(), doc); err != nil {
		s.logger.Error("update doctor failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, toDoctorResponse(doc))
}

func (s *Server) handleDeleteDoctor(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid doctor id")
		return
	}

	if err := s.store.Doctors.Delete(r.Context(), id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusNotFound, "doctor not found")
			return
		}
		s.logger.Error("delete doctor failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
