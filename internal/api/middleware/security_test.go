package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func serveSecurity(t *testing.T, tlsEnabled bool) *httptest.ResponseRecorder {
	t.Helper()
	handler := SecurityHeaders(tlsEnabled)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestSecurityHeadersSetAllHeaders(t *testing.T) {
	rr := serveSecurity(t, false)

	expected := map[string]string{
		"X-Frame-Options":        "DENY",
		"X-Content-Type-Options": "nosniff",
		"X-XSS-Protection":       "0",
		"Referrer-Policy":        "strict-origin-when-cross-origin",
	}
	for header, want := range expected {
		if got := rr.Header().Get(header); got != want {
			t.Errorf("%s: expected %q, got %q", header, want, got)
		}
	}

	csp := rr.Header().Get("Content-Security-Policy")
	if csp == "" {
		t.Fatal("expected Content-Security-Policy header to be set")
	}
	if !strings.Contains(csp, "frame-ancestors 'none'") {
		t.Errorf("expected frame-ancestors 'none' in CSP, got %q", csp)
	}
	if !strings.Contains(csp, "ws:") {
		t.Errorf("expected websocket connect-src in CSP, got %q", csp)
	}

	// Call pages need camera/microphone on the same origin.
	pp := rr.Header().Get("Permissions-Policy")
	if !strings.Contains(pp, "camera=(self)") || !strings.Contains(pp, "microphone=(self)") {
		t.Errorf("expected self camera/microphone permissions, got %q", pp)
	}
}

func TestSecurityHeadersNoHSTSWithoutTLS(t *testing.T) {
	rr := serveSecurity(t, false)
	if got := rr.Header().Get("Strict-Transport-Security"); got != "" {
		t.Fatalf("expected no HSTS header without TLS, got %q", got)
	}
}

func TestSecurityHeadersHSTSWithTLS(t *testing.T) {
	rr := serveSecurity(t, true)
	got := rr.Header().Get("Strict-Transport-Security")
	if got != "max-age=63072000; includeSubDomains" {
		t.Fatalf("unexpected HSTS value: %q", got)
	}
}
