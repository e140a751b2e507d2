// Package api implements the CareLink HTTP server: public call and website
// endpoints, staff back-office endpoints, and the signaling socket mount.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	mw "github.com/carelink/carelink/internal/api/middleware"
	"github.com/carelink/carelink/internal/config"
	"github.com/carelink/carelink/internal/database"
	"github.com/carelink/carelink/internal/email"
	"github.com/carelink/carelink/internal/metrics"
	"github.com/carelink/carelink/internal/signal"

	callpkg "github.com/carelink/carelink/internal/call"
)

// Server holds HTTP handler dependencies and the chi router.
type Server struct {
	router     *chi.Mux
	db         *database.DB
	store      *database.Store
	cfg        *config.Config
	controller *callpkg.Controller
	hub        *signal.Hub
	sessions   *mw.SessionStore
	logins     *mw.LoginGuard
	jwtSecret  []byte
	sender     *email.Sender
	logger     *slog.Logger

	apiLimiter  *mw.IPRateLimiter
	authLimiter *mw.IPRateLimiter
	startTime   time.Time
}

// NewServer creates the HTTP handler with all routes mounted.
func NewServer(
	db *database.DB,
	store *database.Store,
	cfg *config.Config,
	controller *callpkg.Controller,
	hub *signal.Hub,
	sessions *mw.SessionStore,
	jwtSecret []byte,
	sender *email.Sender,
	logger *slog.Logger,
) *Server {
	s := &Server{
		router:      chi.NewRouter(),
		db:          db,
		store:       store,
		cfg:         cfg,
		controller:  controller,
		hub:         hub,
		sessions:    sessions,
		logins:      mw.NewLoginGuard(cfg.LoginLockoutFailures, time.Duration(cfg.LoginLockoutWindow)*time.Minute),
		jwtSecret:   jwtSecret,
		sender:      sender,
		logger:      logger.With("component", "api"),
		apiLimiter:  mw.NewIPRateLimiter(mw.DefaultRateLimitConfig(), logger.With("component", "api")),
		authLimiter: mw.NewIPRateLimiter(mw.AuthRateLimitConfig(), logger.With("component", "api")),
		startTime:   time.Now(),
	}

	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close stops background goroutines owned by the server.
func (s *Server) Close() {
	s.apiLimiter.Stop()
	s.authLimiter.Stop()
}

// routes configures all middleware and mounts all route groups.
func (s *Server) routes() {
	r := s.router

	// Global middleware stack.
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(mw.RequestLogger(s.logger))
	r.Use(mw.Recoverer(s.logger))
	r.Use(mw.SecurityHeaders(false))
	r.Use(mw.CORS(mw.ParseCORSOrigins(s.cfg.CORSOrigins)))

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metricsHandler())
	r.Handle("/ws", s.hub)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(mw.RateLimit(s.apiLimiter))

		// Auth: login carries its own stricter limiter.
		r.Group(func(r chi.Router) {
			r.Use(mw.RateLimit(s.authLimiter))
			r.Post("/auth/login", s.handleLogin)
		})
		r.Post("/auth/logout", s.handleLogout)
		r.With(mw.RequireAuth(s.sessions)).Get("/auth/me", s.handleMe)

		// Call lifecycle. Initiation, status, end, hold, and messages are
		// patient-facing; answer/reject require an agent token.
		r.Route("/calls", func(r chi.Router) {
			r.Post("/", s.handleInitiateCall)
			r.Post("/emergency", s.handleInitiateEmergency)
			r.With(mw.RequireAuth(s.sessions)).Get("/", s.handleCallHistory)
			r.Route("/{callID}", func(r chi.Router) {
				r.Get("/", s.handleCallStatus)
				r.Post("/end", s.handleEndCall)
				r.Post("/hold", s.handleHoldCall)
				r.Post("/message", s.handleLeaveMessage)
				r.Group(func(r chi.Router) {
					r.Use(mw.RequireAgentAuth(s.jwtSecret))
					r.Post("/answer", s.handleAnswerCall)
					r.Post("/reject", s.handleRejectCall)
				})
			})
		})

		r.Get("/agents/availability", s.handleAgentAvailability)
		r.Get("/webrtc-config", s.handleWebRTCConfig)

		// Reception agent self-service.
		r.With(mw.RequireAgentAuth(s.jwtSecret)).
			Put("/agents/me/availability", s.handleSetOwnAvailability)

		// Staff back office.
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireAuth(s.sessions))

			r.Get("/notifications", s.handleListNotifications)
			r.Put("/notifications/{id}/read", s.handleMarkNotificationRead)

			r.Get("/communications", s.handleListCommunications)
			r.Get("/communications/{id}", s.handleGetCommunication)
			r.Post("/communications/{id}/reply", s.handleReplyCommunication)
			r.Put("/communications/{id}/resolve", s.handleResolveCommunication)

			r.Get("/appointments", s.handleListAppointments)
			r.Put("/appointments/{id}", s.handleUpdateAppointment)
		})

		// Admin-only management.
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireAuth(s.sessions), mw.RequireAdmin)

			r.Route("/agents", func(r chi.Router) {
				r.Get("/", s.handleListAgents)
				r.Post("/", s.handleCreateAgent)
				r.Get("/{id}", s.handleGetAgent)
				r.Put("/{id}", s.handleUpdateAgent)
				r.Delete("/{id}", s.handleDeleteAgent)
			})

			r.Post("/doctors", s.handleCreateDoctor)
			r.Put("/doctors/{id}", s.handleUpdateDoctor)
			r.Delete("/doctors/{id}", s.handleDeleteDoctor)

			r.Put("/reviews/{id}/approve", s.handleApproveReview)
			r.Delete("/reviews/{id}", s.handleDeleteReview)

			r.Post("/events", s.handleCreateEvent)
			r.Put("/events/{id}", s.handleUpdateEvent)
			r.Delete("/events/{id}", s.handleDeleteEvent)

			r.Post("/founders", s.handleCreateFounder)
			r.Put("/founders/{id}", s.handleUpdateFounder)
			r.Delete("/founders/{id}", s.handleDeleteFounder)

			r.Post("/partners", s.handleCreatePartner)
			r.Put("/partners/{id}", s.handleUpdatePartner)
			r.Delete("/partners/{id}", s.handleDeletePartner)

			r.Post("/photos", s.handleCreatePhoto)
			r.Put("/photos/{id}", s.handleUpdatePhoto)
			r.Delete("/photos/{id}", s.handleDeletePhoto)
		})

		// Public website content.
		r.Get("/doctors", s.handleListDoctors)
		r.Get("/doctors/{id}", s.handleGetDoctor)
		r.Get("/reviews", s.handleListReviews)
		r.Get("/reviews/stats", s.handleReviewStats)
		r.Post("/reviews", s.handleCreateReview)
		r.Post("/appointments", s.handleCreateAppointment)
		r.Post("/communications", s.handleCreateCommunication)
		r.Get("/communications/thread/{token}", s.handlePublicThread)

		r.Get("/events", s.handleListEvents)
		r.Get("/events/past", s.handlePastEvents)
		r.Get("/founders", s.handleListFounders)
		r.Get("/partners", s.handleListPartners)
		r.Get("/photos", s.handleListPhotos)
	})
}

// metricsHandler builds a prometheus registry with the CareLink collector.
func (s *Server) metricsHandler() http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(metrics.NewCollector(
		s.controller.Presence(),
		s.controller.Rooms(),
		s.hub,
		s.store.Calls,
		s.startTime,
	))
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// handleHealth returns liveness plus a database ping. Unauthenticated.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("health: database ping failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
