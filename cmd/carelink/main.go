package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/carelink/carelink/internal/api"
	"github.com/carelink/carelink/internal/api/middleware"
	"github.com/carelink/carelink/internal/call"
	"github.com/carelink/carelink/internal/config"
	"github.com/carelink/carelink/internal/database"
	"github.com/carelink/carelink/internal/database/models"
	"github.com/carelink/carelink/internal/email"
	sig "github.com/carelink/carelink/internal/signal"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Configure structured logging.
	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)

	slog.Info("starting carelink",
		"http_port", cfg.HTTPPort,
		"data_dir", cfg.DataDir,
		"postgres", cfg.DatabaseURL != "",
	)

	// Open database and run migrations.
	var db *database.DB
	if cfg.DatabaseURL != "" {
		db, err = database.OpenPostgres(cfg.DatabaseURL)
	} else {
		db, err = database.Open(cfg.DataDir)
	}
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	store := database.NewStore(db)

	// Application context for background goroutines.
	appCtx, appCancel := context.WithCancel(context.Background())
	defer appCancel()

	// Seed the first admin account on an empty database.
	if err := seedAdmin(appCtx, store); err != nil {
		slog.Error("failed to seed admin account", "error", err)
		os.Exit(1)
	}

	relay := call.Relay{
		STUNURLs:   cfg.STUNServers(),
		TURNURLs:   cfg.TURNServers(),
		Username:   cfg.TURNUsername,
		Credential: cfg.TURNCredential,
	}
	if !relay.Configured() {
		slog.Warn("no TURN relay configured, call initiation is disabled")
	}

	presence := call.NewPresenceRegistry()
	rooms := call.NewRoomRegistry()
	controller := call.NewController(store, presence, rooms, relay, nil, logger)

	jwtSecret, err := cfg.JWTSecretBytes()
	if err != nil {
		slog.Error("failed to load jwt secret", "error", err)
		os.Exit(1)
	}

	// Signaling hub doubles as the controller's event sink so state
	// transitions reach connected browsers.
	hub := sig.NewHub(controller, middleware.NewTokenVerifier(jwtSecret),
		middleware.ParseCORSOrigins(cfg.CORSOrigins), logger)
	controller.SetEvents(hub)

	// Session store for staff auth.
	sessions := middleware.NewSessionStore(time.Duration(cfg.SessionLifetimeHrs) * time.Hour)
	middleware.StartCleanupTicker(appCtx, sessions, 15*time.Minute)

	sender := email.NewSender(email.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		From:     cfg.SMTPFrom,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		TLS:      cfg.SMTPTLS,
	}, logger)
	if !sender.Configured() {
		slog.Warn("smtp not configured, patient reply email is disabled")
	}

	apiSrv := api.NewServer(db, store, cfg, controller, hub, sessions, jwtSecret, sender, logger)
	defer apiSrv.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      apiSrv,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine.
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for interrupt or server error.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-quit:
		slog.Info("received shutdown signal", "signal", s.String())
	case err := <-errCh:
		slog.Error("http server error", "error", err)
	}

	// Graceful shutdown with timeout.
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("shutting down")
	hub.Shutdown()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("http server shutdown error", "error", err)
		os.Exit(1)
	}

	slog.Info("carelink stopped")
}

// seedAdmin creates the initial admin account when none exists. The generated
// password is printed once to the log so the operator can sign in and change
// it; it is never stored in plaintext.
func seedAdmin(ctx context.Context, store *database.Store) error {
	count, err := store.AdminUsers.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	raw := make([]byte, 12)
	if _, err := rand.Read(raw); err != nil {
		return err
	}
	password := hex.EncodeToString(raw)

	hash, err := database.HashPassword(password)
	if err != nil {
		return err
	}

	admin := &models.AdminUser{
		Username:     "admin",
		PasswordHash: hash,
	}
	if err := store.AdminUsers.Create(ctx, admin); err != nil {
		return err
	}

	slog.Info("created initial admin account", "username", admin.Username, "password", password)
	return nil
}
