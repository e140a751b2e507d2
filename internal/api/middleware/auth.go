// Package middleware provides HTTP middleware for the CareLink API:
// staff sessions, agent JWT auth, rate limiting, logging, panic recovery,
// security headers, and CORS.
package middleware

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

type contextKey string

const (
	// sessionCookieName is the name of the staff session cookie.
	sessionCookieName = "carelink_session"

	// csrfHeaderName is the header that must contain the CSRF token.
	csrfHeaderName = "X-CSRF-Token"

	// csrfCookieName holds the CSRF token for the browser client to read.
	csrfCookieName = "carelink_csrf"

	// staffUserKey is the context key for the authenticated staff user.
	staffUserKey contextKey = "staff_user"

	// sessionIDKey is the context key for the session ID.
	sessionIDKey contextKey = "session_id"
)

// Staff roles. Admins manage the back office; reception agents take calls.
const (
	RoleAdmin     = "admin"
	RoleReception = "reception"
)

// StaffUser represents the authenticated staff member stored in the request context.
type StaffUser struct {
	ID       int64
	Username string
	Role     string
}

// Session represents an active staff session.
type Session struct {
	ID        string
	UserID    int64
	Username  string
	Role      string
	CSRFToken string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// SessionStore manages in-memory staff sessions.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
}

// NewSessionStore creates an empty session store with the given session lifetime.
func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
	}
}

// TTL returns the configured session lifetime.
func (s *SessionStore) TTL() time.Duration { return s.ttl }

// Create generates a new session for the given staff user and returns it.
func (s *SessionStore) Create(userID int64, username, role string) (*Session, error) {
	sessionID, err := generateToken(32)
	if err != nil {
		return nil, err
	}

	csrfToken, err := generateToken(32)
	if err != nil {
		return nil, err
	}

	sess := &Session{
		ID:        sessionID,
		UserID:    userID,
		Username:  username,
		Role:      role,
		CSRFToken: csrfToken,
		ExpiresAt: time.Now().Add(s.ttl),
		CreatedAt: time.Now(),
	}

	s.mu.Lock()
	s.sessions[sessionID] = sess
	s.mu.Unlock()

	return sess, nil
}

// Get retrieves a session by ID. Returns nil if not found or expired.
func (s *SessionStore) Get(sessionID string) *Session {
	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	s.mu.RUnlock()

	if !ok {
		return nil
	}

	if time.Now().After(sess.ExpiresAt) {
		s.Delete(sessionID)
		return nil
	}

	return sess
}

// Delete removes a session by ID.
func (s *SessionStore) Delete(sessionID string) {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
}

// DeleteByUserID removes all sessions for a given user.
func (s *SessionStore) DeleteByUserID(userID int64) {
	s.mu.Lock()
	for id, sess := range s.sessions {
		if sess.UserID == userID {
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()
}

// CleanExpired removes all expired sessions.
func (s *SessionStore) CleanExpired() int {
	now := time.Now()
	removed := 0

	s.mu.Lock()
	for id, sess := range s.sessions {
		if now.After(sess.ExpiresAt) {
			delete(s.sessions, id)
			removed++
		}
	}
	s.mu.Unlock()

	return removed
}

// RequireAuth returns middleware that validates the session cookie and CSRF
// token on state-changing requests. On success it sets the StaffUser in the
// request context. On failure it writes a 401 JSON error.
func RequireAuth(store *SessionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(sessionCookieName)
			if err != nil || cookie.Value == "" {
				writeAuthError(w, http.StatusUnauthorized, "authentication required")
				return
			}

			sess := store.Get(cookie.Value)
			if sess == nil {
				writeAuthError(w, http.StatusUnauthorized, "session expired or invalid")
				return
			}

			// CSRF validation for state-changing methods.
			if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodDelete || r.Method == http.MethodPatch {
				csrfHeader := r.Header.Get(csrfHeaderName)
				if csrfHeader == "" || csrfHeader != sess.CSRFToken {
					writeAuthError(w, http.StatusForbidden, "invalid or missing CSRF token")
					return
				}
			}

			ctx := context.WithValue(r.Context(), staffUserKey, &StaffUser{
				ID:       sess.UserID,
				Username: sess.Username,
				Role:     sess.Role,
			})
			ctx = context.WithValue(ctx, sessionIDKey, sess.ID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin returns middleware that rejects non-admin staff with 403.
// It must run after RequireAuth.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u := StaffUserFromContext(r.Context())
		if u == nil || u.Role != RoleAdmin {
			writeAuthError(w, http.StatusForbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SetSessionCookie writes the session and CSRF cookies on the response.
func SetSessionCookie(w http.ResponseWriter, sess *Session, ttl time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(ttl.Seconds()),
	})

	// CSRF token in a non-HttpOnly cookie so the browser client can read it.
	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    sess.CSRFToken,
		Path:     "/",
		HttpOnly: false,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(ttl.Seconds()),
	})
}

// ClearSessionCookie removes the session and CSRF cookies.
func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   -1,
	})

	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: false,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   -1,
	})
}

// SessionIDFromRequest extracts the session cookie value from a request.
// Returns "" when no session cookie is present.
func SessionIDFromRequest(r *http.Request) string {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// StaffUserFromContext retrieves the authenticated StaffUser from the context.
// Returns nil if no user is present (unauthenticated request).
func StaffUserFromContext(ctx context.Context) *StaffUser {
	u, _ := ctx.Value(staffUserKey).(*StaffUser)
	return u
}

// SessionIDFromContext retrieves the session ID from the context.
func SessionIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(sessionIDKey).(string)
	return id
}

// StartCleanupTicker runs a goroutine that periodically removes expired sessions.
// It stops when the provided context is cancelled.
func StartCleanupTicker(ctx context.Context, store *SessionStore, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed := store.CleanExpired()
				if removed > 0 {
					slog.Debug("cleaned expired sessions", "removed", removed)
				}
			}
		}
	}()
}

// generateToken creates a cryptographically random hex string of the given byte length.
func generateToken(byteLen int) (string, error) {
	b := make([]byte, byteLen)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// errEnvelope matches the api package's envelope format for error responses.
// Defined here to avoid importing the api package (circular dependency).
type errEnvelope struct {
	Error string `json:"error,omitempty"`
}

func writeAuthError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errEnvelope{Error: msg}) //nolint:errcheck
}
