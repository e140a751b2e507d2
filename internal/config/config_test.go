package config

import (
	"log/slog"
	"os"
	"testing"
)

func TestDefaults(t *testing.T) {
	// Clear any env vars that might interfere.
	for _, env := range []string{
		"CARELINK_DATA_DIR", "CARELINK_HTTP_PORT", "CARELINK_DATABASE_URL",
		"CARELINK_LOG_LEVEL", "CARELINK_TURN_SERVER_URLS", "CARELINK_STUN_SERVER_URLS",
	} {
		t.Setenv(env, "")
		os.Unsetenv(env)
	}

	cfg, err := load(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.DataDir != defaultDataDir {
		t.Errorf("DataDir = %q, want %q", cfg.DataDir, defaultDataDir)
	}
	if cfg.HTTPPort != defaultHTTPPort {
		t.Errorf("HTTPPort = %d, want %d", cfg.HTTPPort, defaultHTTPPort)
	}
	if cfg.DatabaseURL != "" {
		t.Errorf("DatabaseURL = %q, want empty", cfg.DatabaseURL)
	}
	if cfg.LogLevel != defaultLogLevel {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, defaultLogLevel)
	}
	if cfg.STUNServerURLs != defaultSTUNServers {
		t.Errorf("STUNServerURLs = %q, want %q", cfg.STUNServerURLs, defaultSTUNServers)
	}
	if cfg.SessionLifetimeHrs != defaultSessionHours {
		t.Errorf("SessionLifetimeHrs = %d, want %d", cfg.SessionLifetimeHrs, defaultSessionHours)
	}
}

func TestEnvVarOverride(t *testing.T) {
	t.Setenv("CARELINK_HTTP_PORT", "9090")
	t.Setenv("CARELINK_DATA_DIR", "/tmp/carelink-test")
	t.Setenv("CARELINK_LOG_LEVEL", "debug")
	t.Setenv("CARELINK_TURN_SERVER_URLS", "turn:relay.example.org:3478")

	cfg, err := load(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.HTTPPort != 9090 {
		t.Errorf("HTTPPort = %d, want 9090", cfg.HTTPPort)
	}
	if cfg.DataDir != "/tmp/carelink-test" {
		t.Errorf("DataDir = %q, want /tmp/carelink-test", cfg.DataDir)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if got := cfg.TURNServers(); len(got) != 1 || got[0] != "turn:relay.example.org:3478" {
		t.Errorf("TURNServers() = %v, want one relay URL", got)
	}
}

func TestCLIFlagsPrecedence(t *testing.T) {
	// CLI flags should override env vars.
	t.Setenv("CARELINK_HTTP_PORT", "9090")
	t.Setenv("CARELINK_LOG_LEVEL", "debug")

	cfg, err := load([]string{"--http-port", "3000", "--log-level", "warn"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.HTTPPort != 3000 {
		t.Errorf("HTTPPort = %d, want 3000", cfg.HTTPPort)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want warn", cfg.LogLevel)
	}
}

func TestLegacyPostgresScheme(t *testing.T) {
	cfg, err := load([]string{"--database-url", "postgres://care:pw@db.internal/carelink"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "postgresql://care:pw@db.internal/carelink"
	if cfg.DatabaseURL != want {
		t.Errorf("DatabaseURL = %q, want %q", cfg.DatabaseURL, want)
	}
}

func TestInvalidValues(t *testing.T) {
	cases := []struct {
		name string
		args []string
	}{
		{"bad port", []string{"--http-port", "0"}},
		{"bad log level", []string{"--log-level", "verbose"}},
		{"bad log format", []string{"--log-format", "xml"}},
		{"bad smtp tls", []string{"--smtp-tls", "ssl3"}},
		{"bad database scheme", []string{"--database-url", "mysql://x"}},
		{"zero lockout failures", []string{"--login-lockout-failures", "0"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := load(tc.args); err == nil {
				t.Errorf("load(%v) succeeded, want error", tc.args)
			}
		})
	}
}

func TestSlogLevel(t *testing.T) {
	cases := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tc := range cases {
		cfg := &Config{LogLevel: tc.level}
		if got := cfg.SlogLevel(); got != tc.want {
			t.Errorf("SlogLevel(%q) = %v, want %v", tc.level, got, tc.want)
		}
	}
}

func TestJWTSecretBytes(t *testing.T) {
	cfg := &Config{}
	key, err := cfg.JWTSecretBytes()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(key) != 32 {
		t.Errorf("generated key length = %d, want 32", len(key))
	}
	if cfg.JWTSecret == "" {
		t.Error("generated secret not stored back on config")
	}

	// A stored secret should round-trip.
	again, err := cfg.JWTSecretBytes()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(again) != string(key) {
		t.Error("secret did not round-trip")
	}

	bad := &Config{JWTSecret: "zzzz"}
	if _, err := bad.JWTSecretBytes(); err == nil {
		t.Error("expected error for invalid hex secret")
	}
}
