package database

import (
	"context"
	"time"

	"github.com/carelink/carelink/internal/database/models"
)

// AgentRepository manages reception staff accounts.
type AgentRepository interface {
	Create(ctx context.Context, agent *models.Agent) error
	GetByID(ctx context.Context, id int64) (*models.Agent, error)
	GetByUsername(ctx context.Context, username string) (*models.Agent, error)
	// ListActive returns active agents in stable id order, which the routing
	// selector relies on for deterministic candidate ordering.
	ListActive(ctx context.Context) ([]models.Agent, error)
	List(ctx context.Context) ([]models.Agent, error)
	Update(ctx context.Context, agent *models.Agent) error
	Delete(ctx context.Context, id int64) error
}

// CallRepository is the call ledger. Rows are never deleted.
type CallRepository interface {
	Create(ctx context.Context, call *models.Call) error
	GetByCallID(ctx context.Context, callID string) (*models.Call, error)
	Update(ctx context.Context, call *models.Call) error
	// Answer atomically transitions a call to connected for the given agent,
	// guarded on the call still being answerable. Returns ErrNotFound when
	// the guard fails, which callers translate to an already-answered
	// conflict.
	Answer(ctx context.Context, callID string, agentID int64, answeredAt time.Time) (*models.Call, error)
	// ListOpenByAgent returns the agent's calls in non-terminal statuses,
	// excluding excludeCallID when non-empty. Input to the capacity policy.
	ListOpenByAgent(ctx context.Context, agentID int64, excludeCallID string) ([]models.Call, error)
	ListRecent(ctx context.Context, limit int) ([]models.Call, error)
	CountByStatus(ctx context.Context) (map[string]int64, error)
}

// CommunicationRepository manages patient message threads.
type CommunicationRepository interface {
	Create(ctx context.Context, comm *models.Communication) error
	GetByID(ctx context.Context, id int64) (*models.Communication, error)
	GetByPublicToken(ctx context.Context, token string) (*models.Communication, error)
	List(ctx context.Context, limit, offset int) ([]models.Communication, int, error)
	Update(ctx context.Context, comm *models.Communication) error
	AddMessage(ctx context.Context, msg *models.CommunicationMessage) error
	Thread(ctx context.Context, communicationID int64) ([]models.CommunicationMessage, error)
}

// NotificationRepository manages reception dashboard alerts.
type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	ListUnreadByAgent(ctx context.Context, agentID int64, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, agentID int64) error
}

// AppointmentRepository manages patient bookings.
type AppointmentRepository interface {
	Create(ctx context.Context, appt *models.Appointment) error
	GetByID(ctx context.Context, id int64) (*models.Appointment, error)
	List(ctx context.Context, limit, offset int) ([]models.Appointment, int, error)
	Update(ctx context.Context, appt *models.Appointment) error
}

// DoctorRepository manages public-site doctor profiles.
type DoctorRepository interface {
	Create(ctx context.Context, doc *models.Doctor) error
	GetByID(ctx context.Context, id int64) (*models.Doctor, error)
	List(ctx context.Context) ([]models.Doctor, error)
	Update(ctx context.Context, doc *models.Doctor) error
	Delete(ctx context.Context, id int64) error
}

// ReviewRepository manages public patient reviews.
type ReviewRepository interface {
	Create(ctx context.Context, review *models.Review) error
	List(ctx context.Context, approvedOnly bool, limit int) ([]models.Review, error)
	SetApproved(ctx context.Context, id int64, approved bool) error
	RatingStats(ctx context.Context) (avg float64, count int, err error)
	Delete(ctx context.Context, id int64) error
}

// EventRepository manages public-site hospital events.
type EventRepository interface {
	Create(ctx context.Context, event *models.Event) error
	GetByID(ctx context.Context, id int64) (*models.Event, error)
	// ListUpcoming returns future non-completed events in date order,
	// optionally filtered by event type.
	ListUpcoming(ctx context.Context, eventType string, now time.Time) ([]models.Event, error)
	// ListPast returns past or completed events newest first, with the total
	// matching count for pagination.
	ListPast(ctx context.Context, eventType string, now time.Time, limit, offset int) ([]models.Event, int, error)
	Update(ctx context.Context, event *models.Event) error
	Delete(ctx context.Context, id int64) error
}

// FounderRepository manages public-site leadership profiles.
type FounderRepository interface {
	Create(ctx context.Context, f *models.Founder) error
	GetByID(ctx context.Context, id int64) (*models.Founder, error)
	List(ctx context.Context) ([]models.Founder, error)
	Update(ctx context.Context, f *models.Founder) error
	Delete(ctx context.Context, id int64) error
}

// PartnerRepository manages public-site partnership profiles.
type PartnerRepository interface {
	Create(ctx context.Context, p *models.Partner) error
	GetByID(ctx context.Context, id int64) (*models.Partner, error)
	List(ctx context.Context) ([]models.Partner, error)
	Update(ctx context.Context, p *models.Partner) error
	Delete(ctx context.Context, id int64) error
}

// PhotoRepository manages public-site gallery images.
type PhotoRepository interface {
	Create(ctx context.Context, p *models.Photo) error
	GetByID(ctx context.Context, id int64) (*models.Photo, error)
	// List returns photos newest first, optionally filtered by category.
	List(ctx context.Context, category string) ([]models.Photo, error)
	Update(ctx context.Context, p *models.Photo) error
	Delete(ctx context.Context, id int64) error
}

// AdminUserRepository manages back-office administrator accounts.
type AdminUserRepository interface {
	Create(ctx context.Context, user *models.AdminUser) error
	GetByUsername(ctx context.Context, username string) (*models.AdminUser, error)
	Count(ctx context.Context) (int64, error)
}
