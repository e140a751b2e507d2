package config

import (
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Config holds all runtime configuration for the CareLink server.
// Precedence: CLI flags > env vars > defaults.
type Config struct {
	DataDir     string
	HTTPPort    int
	DatabaseURL string // PostgreSQL DSN; when empty an embedded SQLite store is used
	LogLevel    string
	LogFormat   string // log output format: "text" or "json"
	CORSOrigins string

	// PublicBaseURL is the externally reachable site URL, used to build
	// conversation links in outbound email. Links are omitted when empty.
	PublicBaseURL string

	// Relay-server credentials for browser-to-browser calls. TURN is
	// mandatory for call initiation; STUN is optional and defaults to a
	// public resolver.
	TURNServerURLs string // comma-separated turn:/turns: URLs
	TURNUsername   string
	TURNCredential string
	STUNServerURLs string // comma-separated stun: URLs

	// SMTP settings for outbound patient notification email.
	SMTPHost     string
	SMTPPort     string
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string
	SMTPTLS      string // "none", "starttls", "tls"

	JWTSecret            string // hex-encoded 32-byte secret for reception agent tokens
	SessionLifetimeHrs   int    // staff session lifetime in hours
	LoginLockoutWindow   int    // minutes a username stays locked after repeated failures
	LoginLockoutFailures int    // failed attempts before a username is locked
}

// defaults
const (
	defaultDataDir         = "./data"
	defaultHTTPPort        = 8080
	defaultLogLevel        = "info"
	defaultLogFormat       = "text"
	defaultSTUNServers     = "stun:stun.l.google.com:19302"
	defaultSessionHours    = 12
	defaultLockoutWindow   = 15
	defaultLockoutFailures = 5
)

// envPrefix is the prefix for all CareLink environment variables.
const envPrefix = "CARELINK_"

// Load parses configuration from CLI flags and environment variables.
// Precedence: CLI flags > env vars > defaults.
func Load() (*Config, error) {
	return load(os.Args[1:])
}

func load(args []string) (*Config, error) {
	cfg := &Config{}

	fs := flag.NewFlagSet("carelink", flag.ContinueOnError)

	fs.StringVar(&cfg.DataDir, "data-dir", defaultDataDir, "data directory for the embedded database")
	fs.IntVar(&cfg.HTTPPort, "http-port", defaultHTTPPort, "HTTP server listen port")
	fs.StringVar(&cfg.DatabaseURL, "database-url", "", "PostgreSQL DSN (uses embedded SQLite when empty)")
	fs.StringVar(&cfg.LogLevel, "log-level", defaultLogLevel, "log level (debug, info, warn, error)")
	fs.StringVar(&cfg.LogFormat, "log-format", defaultLogFormat, "log output format (text, json)")
	fs.StringVar(&cfg.CORSOrigins, "cors-origins", "", "comma-separated list of allowed CORS origins (use * for all)")
	fs.StringVar(&cfg.PublicBaseURL, "public-base-url", "", "externally reachable site URL used in outbound email links")
	fs.StringVar(&cfg.TURNServerURLs, "turn-server-urls", "", "comma-separated TURN relay URLs for browser calls")
	fs.StringVar(&cfg.TURNUsername, "turn-username", "", "TURN relay username")
	fs.StringVar(&cfg.TURNCredential, "turn-credential", "", "TURN relay credential")
	fs.StringVar(&cfg.STUNServerURLs, "stun-server-urls", defaultSTUNServers, "comma-separated STUN server URLs")
	fs.StringVar(&cfg.SMTPHost, "smtp-host", "", "SMTP server hostname for outbound notification email")
	fs.StringVar(&cfg.SMTPPort, "smtp-port", "587", "SMTP server port")
	fs.StringVar(&cfg.SMTPFrom, "smtp-from", "", "From address for outbound notification email")
	fs.StringVar(&cfg.SMTPUsername, "smtp-username", "", "SMTP auth username")
	fs.StringVar(&cfg.SMTPPassword, "smtp-password", "", "SMTP auth password")
	fs.StringVar(&cfg.SMTPTLS, "smtp-tls", "starttls", "SMTP TLS mode (none, starttls, tls)")
	fs.StringVar(&cfg.JWTSecret, "jwt-secret", "", "hex-encoded 32-byte secret for agent token signing (auto-generated if empty)")
	fs.IntVar(&cfg.SessionLifetimeHrs, "session-hours", defaultSessionHours, "staff session lifetime in hours")
	fs.IntVar(&cfg.LoginLockoutWindow, "login-lockout-minutes", defaultLockoutWindow, "minutes a username stays locked after repeated login failures")
	fs.IntVar(&cfg.LoginLockoutFailures, "login-lockout-failures", defaultLockoutFailures, "failed attempts before a username is locked")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parsing flags: %w", err)
	}

	// Apply env var overrides for any flags not explicitly set on the
	// command line. CLI flags take precedence over env vars.
	applyEnvOverrides(fs, cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides checks environment variables for any flag that was not
// explicitly provided on the command line.
func applyEnvOverrides(fs *flag.FlagSet, cfg *Config) {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})

	envMap := map[string]string{
		"data-dir":               envPrefix + "DATA_DIR",
		"http-port":              envPrefix + "HTTP_PORT",
		"database-url":           envPrefix + "DATABASE_URL",
		"log-level":              envPrefix + "LOG_LEVEL",
		"log-format":             envPrefix + "LOG_FORMAT",
		"cors-origins":           envPrefix + "CORS_ORIGINS",
		"public-base-url":        envPrefix + "PUBLIC_BASE_URL",
		"turn-server-urls":       envPrefix + "TURN_SERVER_URLS",
		"turn-username":          envPrefix + "TURN_USERNAME",
		"turn-credential":        envPrefix + "TURN_CREDENTIAL",
		"stun-server-urls":       envPrefix + "STUN_SERVER_URLS",
		"smtp-host":              envPrefix + "SMTP_HOST",
		"smtp-port":              envPrefix + "SMTP_PORT",
		"smtp-from":              envPrefix + "SMTP_FROM",
		"smtp-username":          envPrefix + "SMTP_USERNAME",
		"smtp-password":          envPrefix + "SMTP_PASSWORD",
		"smtp-tls":               envPrefix + "SMTP_TLS",
		"jwt-secret":             envPrefix + "JWT_SECRET",
		"session-hours":          envPrefix + "SESSION_HOURS",
		"login-lockout-minutes":  envPrefix + "LOGIN_LOCKOUT_MINUTES",
		"login-lockout-failures": envPrefix + "LOGIN_LOCKOUT_FAILURES",
	}

	for flagName, envVar := range envMap {
		if set[flagName] {
			continue
		}
		val, ok := os.LookupEnv(envVar)
		if !ok || val == "" {
			continue
		}
		switch flagName {
		case "data-dir":
			cfg.DataDir = val
		case "http-port":
			if v, err := strconv.Atoi(val); err == nil {
				cfg.HTTPPort = v
			}
		case "database-url":
			cfg.DatabaseURL = val
		case "log-level":
			cfg.LogLevel = val
		case "log-format":
			cfg.LogFormat = val
		case "cors-origins":
			cfg.CORSOrigins = val
		case "public-base-url":
			cfg.PublicBaseURL = val
		case "turn-server-urls":
			cfg.TURNServerURLs = val
		case "turn-username":
			cfg.TURNUsername = val
		case "turn-credential":
			cfg.TURNCredential = val
		case "stun-server-urls":
			cfg.STUNServerURLs = val
		case "smtp-host":
			cfg.SMTPHost = val
		case "smtp-port":
			cfg.SMTPPort = val
		case "smtp-from":
			cfg.SMTPFrom = val
		case "smtp-username":
			cfg.SMTPUsername = val
		case "smtp-password":
			cfg.SMTPPassword = val
		case "smtp-tls":
			cfg.SMTPTLS = val
		case "jwt-secret":
			cfg.JWTSecret = val
		case "session-hours":
			if v, err := strconv.Atoi(val); err == nil {
				cfg.SessionLifetimeHrs = v
			}
		case "login-lockout-minutes":
			if v, err := strconv.Atoi(val); err == nil {
				cfg.LoginLockoutWindow = v
			}
		case "login-lockout-failures":
			if v, err := strconv.Atoi(val); err == nil {
				cfg.LoginLockoutFailures = v
			}
		}
	}
}

// validate checks that the config values are sane.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("http-port must be between 1 and 65535, got %d", c.HTTPPort)
	}

	// Accept the legacy postgres:// scheme some hosting platforms emit.
	if strings.HasPrefix(c.DatabaseURL, "postgres://") {
		c.DatabaseURL = "postgresql://" + strings.TrimPrefix(c.DatabaseURL, "postgres://")
	}
	if c.DatabaseURL != "" && !strings.HasPrefix(c.DatabaseURL, "postgresql://") {
		return fmt.Errorf("database-url must be a postgresql:// DSN, got %q", c.DatabaseURL)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("log-level must be one of debug, info, warn, error; got %q", c.LogLevel)
	}
	c.LogLevel = strings.ToLower(c.LogLevel)

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.LogFormat)] {
		return fmt.Errorf("log-format must be one of text, json; got %q", c.LogFormat)
	}
	c.LogFormat = strings.ToLower(c.LogFormat)

	validTLS := map[string]bool{"none": true, "starttls": true, "tls": true}
	if !validTLS[strings.ToLower(c.SMTPTLS)] {
		return fmt.Errorf("smtp-tls must be one of none, starttls, tls; got %q", c.SMTPTLS)
	}
	c.SMTPTLS = strings.ToLower(c.SMTPTLS)

	if c.SessionLifetimeHrs < 1 {
		return fmt.Errorf("session-hours must be at least 1, got %d", c.SessionLifetimeHrs)
	}
	if c.LoginLockoutFailures < 1 {
		return fmt.Errorf("login-lockout-failures must be at least 1, got %d", c.LoginLockoutFailures)
	}

	return nil
}

// SlogLevel maps the configured log level string to a slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// TURNServers returns the configured TURN relay URLs as a slice.
func (c *Config) TURNServers() []string {
	return splitCSV(c.TURNServerURLs)
}

// STUNServers returns the configured STUN server URLs as a slice.
func (c *Config) STUNServers() []string {
	return splitCSV(c.STUNServerURLs)
}

// JWTSecretBytes returns the decoded 32-byte token signing secret.
// If no secret is configured, it generates a random 32-byte key and stores
// the hex-encoded value back in the config for the process lifetime. Agent
// tokens then do not survive a restart, which is acceptable because presence
// does not survive one either.
func (c *Config) JWTSecretBytes() ([]byte, error) {
	if c.JWTSecret == "" {
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generating jwt secret: %w", err)
		}
		c.JWTSecret = hex.EncodeToString(key)
		return key, nil
	}

	key, err := hex.DecodeString(c.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("decoding jwt secret: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("jwt secret must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}

func splitCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
