package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

type agentContextKey string

const agentIDKey agentContextKey = "agent_id"

// agentTokenTTL is the lifetime of a reception agent token. It matches the
// longest staff shift window; tokens are reissued on each login.
const agentTokenTTL = 24 * time.Hour

// AgentClaims holds the JWT claims for reception agent authentication.
// The same token authenticates both the REST API and the websocket (?token=).
type AgentClaims struct {
	AgentID  int64  `json:"agent_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// GenerateAgentToken creates a signed JWT for a reception agent login.
func GenerateAgentToken(secret []byte, agentID int64, username string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(agentTokenTTL)

	claims := AgentClaims{
		AgentID:  agentID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			Issuer:    "carelink",
			Subject:   username,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", time.Time{}, err
	}

	return signed, expiresAt, nil
}

// ParseAgentToken validates a signed agent token and returns its claims.
func ParseAgentToken(secret []byte, tokenString string) (*AgentClaims, error) {
	claims := &AgentClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenUnverifiable
	}
	if claims.AgentID == 0 {
		return nil, fmt.Errorf("token missing agent id")
	}
	return claims, nil
}

// NewTokenVerifier returns a verifier for websocket ?token= authentication.
// It maps a raw token string to the agent ID it was issued for.
func NewTokenVerifier(secret []byte) func(token string) (int64, error) {
	return func(token string) (int64, error) {
		claims, err := ParseAgentToken(secret, token)
		if err != nil {
			return 0, err
		}
		return claims.AgentID, nil
	}
}

// RequireAgentAuth returns middleware that validates JWT bearer tokens for
// reception agent endpoints. On success it stores the agent ID in the request
// context.
func RequireAgentAuth(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeAuthError(w, http.StatusUnauthorized, "authentication required")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				writeAuthError(w, http.StatusUnauthorized, "invalid authorization header")
				return
			}

			claims, err := ParseAgentToken(secret, parts[1])
			if err != nil {
				slog.Debug("agent auth: invalid jwt", "error", err)
				writeAuthError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), agentIDKey, claims.AgentID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AgentIDFromContext retrieves the authenticated agent ID from the request
// context. Returns 0 if not set.
func AgentIDFromContext(ctx context.Context) int64 {
	id, _ := ctx.Value(agentIDKey).(int64)
	return id
}
