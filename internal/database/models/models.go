// Package models defines the database row structures shared across CareLink.
package models

import "time"

// AdminUser is an administrator account for the back-office panel.
type AdminUser struct {
	ID           int64
	Username     string
	PasswordHash string
	Email        string
	CreatedAt    time.Time
}

// Agent is a reception staff account capable of receiving routed calls.
// Schedulable is the agent-controlled "accepting calls" toggle; Active is
// the administrative enable flag.
type Agent struct {
	ID           int64
	Username     string
	PasswordHash string
	Email        string
	FullName     string
	Phone        string
	Department   string // e.g. "calls", "emails", "appointments"
	Shift        string // e.g. "morning", "evening", "night"
	Schedulable  bool
	Active       bool
	CreatedAt    time.Time
}

// Call kinds.
const (
	CallKindCustomerCare = "customer_care"
	CallKindEmergency    = "emergency"
)

// Call is the call ledger entry for a single patient-reception call.
// Rows are never deleted; terminal calls are retained as history.
type Call struct {
	ID              int64
	CallID          string // opaque short token, unique
	CallerName      string
	CallerPhone     string // optional; "SYSTEM" for system-generated calls
	Kind            string // CallKindCustomerCare or CallKindEmergency
	Status          string // see internal/call.Status
	CreatedAt       time.Time
	AnsweredAt      *time.Time
	EndedAt         *time.Time
	Duration        int // whole seconds, frozen at end time
	AgentID         *int64
	RoomName        string // signaling room, derived from CallID
	HoldRequestedAt *time.Time
	LastError       string
}

// Communication is a patient message thread root handled by reception.
type Communication struct {
	ID           int64
	PatientName  string
	PatientEmail string
	PatientPhone string
	AgentID      *int64
	MessageType  string // "message", "call", "email", "appointment"
	Content      string
	PublicToken  string // opaque token for unauthenticated thread access
	IsRead       bool
	IsResolved   bool
	Priority     string // "low", "normal", "high", "urgent"
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CommunicationMessage is one entry in a threaded patient-reception
// conversation.
type CommunicationMessage struct {
	ID              int64
	CommunicationID int64
	SenderType      string // "patient" or "reception"
	SenderName      string
	SenderEmail     string
	Content         string
	CreatedAt       time.Time
}

// Notification is an alert shown on a reception agent's dashboard.
type Notification struct {
	ID              int64
	AgentID         int64
	CommunicationID *int64
	AppointmentID   *int64
	Kind            string // "message", "appointment", "call", "email"
	Title           string
	Message         string
	IsRead          bool
	CreatedAt       time.Time
}

// Appointment is a patient booking request.
type Appointment struct {
	ID           int64
	PatientName  string
	PatientEmail string
	PatientPhone string
	DoctorID     *int64
	ScheduledAt  time.Time
	Reason       string
	Status       string // "pending", "confirmed", "completed", "cancelled"
	Notes        string
	AgentID      *int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Doctor is a public-site staff profile.
type Doctor struct {
	ID             int64
	FirstName      string
	LastName       string
	Specialization string
	Bio            string
	ImageURL       string // stored by the external upload service
	Active         bool
	CreatedAt      time.Time
}

// Review is a public patient review with a 1-5 rating.
type Review struct {
	ID          int64
	PatientName string
	Rating      int
	Content     string
	Approved    bool
	CreatedAt   time.Time
}

// FullName returns the doctor's display name.
func (d *Doctor) FullName() string {
	return d.FirstName + " " + d.LastName
}

// Event statuses. Rows may carry other values from older imports;
// NormalizedStatus folds those back into the known set.
const (
	EventStatusUpcoming  = "upcoming"
	EventStatusOngoing   = "ongoing"
	EventStatusCompleted = "completed"
)

// Event is a public-site hospital event such as a health camp or seminar.
type Event struct {
	ID          int64
	Title       string
	Description string
	EventDate   time.Time
	Location    string
	ImageURL    string // stored by the external upload service
	EventType   string // "health_camp", "seminar", "workshop", "vaccination", "general"
	Status      string // EventStatusUpcoming, EventStatusOngoing, EventStatusCompleted
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NormalizedStatus returns the event's status folded into the known set.
// Unknown values are derived from the event date: past events read as
// completed, future ones as upcoming.
func (e *Event) NormalizedStatus(now time.Time) string {
	switch e.Status {
	case EventStatusUpcoming, EventStatusOngoing, EventStatusCompleted:
		return e.Status
	}
	if e.EventDate.Before(now) {
		return EventStatusCompleted
	}
	return EventStatusUpcoming
}

// Founder is a leadership profile shown on the public website.
type Founder struct {
	ID           int64
	FullName     string
	Title        string
	Bio          string
	ImageURL     string
	DisplayOrder int
	Active       bool
	CreatedAt    time.Time
}

// Partner is a partnership profile shown on the public website.
type Partner struct {
	ID           int64
	FullName     string
	Title        string
	Bio          string
	ImageURL     string
	DisplayOrder int
	Active       bool
	CreatedAt    time.Time
}

// Photo is a gallery image for the public website.
type Photo struct {
	ID          int64
	ImageURL    string
	Title       string
	Description string
	Category    string // e.g. "facility", "team", "event"
	Active      bool
	CreatedAt   time.Time
}
