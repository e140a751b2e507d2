package api

import (
	"errors"
	"net/http"
	"time"

	mw "github.com/carelink/carelink/internal/api/middleware"
	"github.com/carelink/carelink/internal/database"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// loginResponse carries the session identity plus, for reception agents,
// the bearer token used by the call endpoints and the signaling socket.
type loginResponse struct {
	ID             int64  `json:"id"`
	Username       string `json:"username"`
	Role           string `json:"role"`
	CSRFToken      string `json:"csrf_token"`
	Token          string `json:"token,omitempty"`
	TokenExpiresAt string `json:"token_expires_at,omitempty"`
}

// handleLogin authenticates back-office staff. Admin accounts and reception
// agents share the endpoint; reception logins additionally receive an agent
// JWT. Failed attempts count toward a per-username lockout.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if errMsg := readJSON(r, &req); errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	if !s.logins.Allowed(req.Username) {
		writeError(w, http.StatusTooManyRequests, "too many failed login attempts, try again later")
		return
	}

	ctx := r.Context()

	// Admin accounts take precedence over agent accounts with the same name.
	if admin, err := s.store.AdminUsers.GetByUsername(ctx, req.Username); err == nil {
		ok, err := database.CheckPassword(req.Password, admin.PasswordHash)
		if err != nil {
			s.logger.Error("login: admin password check failed", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if ok {
			s.finishLogin(w, admin.ID, admin.Username, mw.RoleAdmin, req.Username)
			return
		}
	} else if !errors.Is(err, database.ErrNotFound) {
		s.logger.Error("login: admin lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	agent, err := s.store.Agents.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			s.failLogin(w, req.Username)
			return
		}
		s.logger.Error("login: agent lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !agent.Active {
		s.failLogin(w, req.Username)
		return
	}

	ok, err := database.CheckPassword(req.Password, agent.PasswordHash)
	if err != nil {
		s.logger.Error("login: agent password check failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !ok {
		s.failLogin(w, req.Username)
		return
	}

	s.finishLogin(w, agent.ID, agent.Username, mw.RoleReception, req.Username)
}

// failLogin records the failure and returns a uniform 401 so username
// probing learns nothing.
func (s *Server) failLogin(w http.ResponseWriter, username string) {
	s.logins.RecordFailure(username)
	writeError(w, http.StatusUnauthorized, "invalid username or password")
}

func (s *Server) finishLogin(w http.ResponseWriter, userID int64, username, role, attemptKey string) {
	s.logins.RecordSuccess(attemptKey)

	sess, err := s.sessions.Create(userID, username, role)
	if err != nil {
		s.logger.Error("login: session create failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	mw.SetSessionCookie(w, sess, s.sessions.TTL(), false)

	resp := loginResponse{
		ID:        userID,
		Username:  username,
		Role:      role,
		CSRFToken: sess.CSRFToken,
	}

	if role == mw.RoleReception {
		token, expiresAt, err := mw.GenerateAgentToken(s.jwtSecret, userID, username)
		if err != nil {
			s.logger.Error("login: token generation failed", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		resp.Token = token
		resp.TokenExpiresAt = expiresAt.Format(time.RFC3339)
	}

	s.logger.Info("staff login", "username", username, "role", role)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if id := mw.SessionIDFromRequest(r); id != "" {
		s.sessions.Delete(id)
	}
	mw.ClearSessionCookie(w, false)
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	u := mw.StaffUserFromContext(r.Context())
	if u == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":       u.ID,
		"username": u.Username,
		"role":     u.Role,
	})
}
