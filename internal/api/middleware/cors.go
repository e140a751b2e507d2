package middleware

import (
	"net/http"
	"strings"
)

// CORS returns middleware for the public website and the browser call pages,
// which in production are served from a different origin than the API.
// allowedOrigins lists permitted origins. "*" allows any origin without
// credentials (development only; the call pages carry the agent token in a
// header, not a cookie, so they still work). An empty list disables
// cross-origin access entirely.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	allowAll := false
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		o = normalizeOrigin(o)
		switch {
		case o == "*":
			allowAll = true
		case o != "":
			origins[o] = true
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			allowed := origin != "" && (allowAll || origins[normalizeOrigin(origin)])

			if allowed {
				h := w.Header()
				if allowAll {
					h.Set("Access-Control-Allow-Origin", "*")
				} else {
					h.Set("Access-Control-Allow-Origin", origin)
					h.Set("Access-Control-Allow-Credentials", "true")
					h.Add("Vary", "Origin")
				}
				// The call widget's status poll reads Retry-After to back
				// off when the rate limiter trips.
				h.Set("Access-Control-Expose-Headers", "Retry-After")
			}

			// Preflight requests carry Access-Control-Request-Method; a plain
			// OPTIONS request falls through to the router.
			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				if allowed {
					h := w.Header()
					h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
					h.Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-CSRF-Token")
					h.Set("Access-Control-Max-Age", "300")
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// normalizeOrigin lowercases an origin and strips trailing slashes so
// configured values like "https://Care.example/" still match browser Origin
// headers.
func normalizeOrigin(o string) string {
	return strings.TrimRight(strings.ToLower(strings.TrimSpace(o)), "/")
}

// ParseCORSOrigins splits a comma-separated origins string into a slice.
// Empty input returns nil.
func ParseCORSOrigins(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}
