package call

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/carelink/carelink/internal/database"
	"github.com/carelink/carelink/internal/database/models"
)

// Sentinel errors returned by lifecycle operations. The API layer maps these
// to HTTP statuses.
var (
	ErrCallNotFound       = errors.New("call not found")
	ErrTerminalState      = errors.New("call is no longer active")
	ErrNotAssigned        = errors.New("call is assigned to a different agent")
	ErrAgentBusy          = errors.New("agent is already on another active call")
	ErrCallTaken          = errors.New("call was already taken")
	ErrNoOnlineAgent      = errors.New("no online call-capable agent")
	ErrNoCapableAgent     = errors.New("no active call-capable agent")
	ErrRelayNotConfigured = errors.New("media relay is not configured")
)

// Events receives lifecycle notifications. The signaling hub implements it
// to push websocket frames; tests use NopEvents.
type Events interface {
	// IncomingCall notifies the assigned agent's sessions of a new or
	// reassigned ringing call.
	IncomingCall(call *models.Call)
	// CallUpdate broadcasts a lifecycle event to the call's signaling room.
	CallUpdate(call *models.Call, event, message string)
}

// NopEvents discards all notifications.
type NopEvents struct{}

func (NopEvents) IncomingCall(*models.Call)               {}
func (NopEvents) CallUpdate(*models.Call, string, string) {}

// Controller orchestrates call lifecycle transitions over the ledger and
// the live registries.
type Controller struct {
	store    *database.Store
	presence *PresenceRegistry
	rooms    *RoomRegistry
	selector *Selector
	relay    Relay
	events   Events
	logger   *slog.Logger
	now      func() time.Time
}

// NewController wires the lifecycle controller.
func NewController(store *database.Store, presence *PresenceRegistry, rooms *RoomRegistry, relay Relay, events Events, logger *slog.Logger) *Controller {
	if events == nil {
		events = NopEvents{}
	}
	c := &Controller{
		store:    store,
		presence: presence,
		rooms:    rooms,
		relay:    relay,
		events:   events,
		logger:   logger,
		now:      time.Now,
	}
	c.selector = NewSelector(store.Agents, store.Calls, presence, rooms)
	return c
}

// SetEvents installs the lifecycle event sink. The signaling hub is built
// after the controller, so wiring happens in two steps.
func (c *Controller) SetEvents(e Events) {
	if e == nil {
		e = NopEvents{}
	}
	c.events = e
}

// Selector exposes the routing selector, shared with the availability
// endpoint and the signaling hub.
func (c *Controller) Selector() *Selector { return c.selector }

// Relay exposes the ICE relay configuration.
func (c *Controller) Relay() Relay { return c.relay }

// Presence exposes the presence registry.
func (c *Controller) Presence() *PresenceRegistry { return c.presence }

// Rooms exposes the room registry.
func (c *Controller) Rooms() *RoomRegistry { return c.rooms }

// InitiateRequest describes a new call from the public website.
type InitiateRequest struct {
	CallerName       string
	CallerPhone      string
	Kind             string // models.CallKindCustomerCare or models.CallKindEmergency
	PreferredAgentID int64  // 0 means no preference
}

// InitiateResult is the outcome of call initiation.
type InitiateResult struct {
	Call    *models.Call
	Agent   *models.Agent
	Busy    bool
	Reason  Reason
	Message string
}

var phoneSpace = regexp.MustCompile(`\s+`)

// normalizePhone collapses whitespace and caps length without enforcing a
// number format.
func normalizePhone(raw string) string {
	s := phoneSpace.ReplaceAllString(strings.TrimSpace(raw), " ")
	if len(s) > 32 {
		s = s[:32]
	}
	return s
}

// Initiate creates a new call, routes it to an agent, and notifies the
// agent when it rings. Requires a configured media relay.
func (c *Controller) Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error) {
	if !c.relay.Configured() {
		return nil, ErrRelayNotConfigured
	}

	emergency := req.Kind == models.CallKindEmergency
	name := strings.TrimSpace(req.CallerName)
	if name == "" {
		if emergency {
			name = "Emergency Alert"
		} else {
			name = "Website Caller"
		}
	}
	phone := normalizePhone(req.CallerPhone)
	if emergency {
		phone = "SYSTEM"
	}

	sel, err := c.selector.Select(ctx, req.PreferredAgentID, "")
	if err != nil {
		return nil, err
	}
	if sel.Agent == nil {
		if sel.Reason == ReasonNoOnline {
			return nil, ErrNoOnlineAgent
		}
		return nil, ErrNoCapableAgent
	}

	callID := NewCallID()
	status := StatusRinging
	if sel.Busy {
		status = StatusBusy
	}
	kind := models.CallKindCustomerCare
	if emergency {
		kind = models.CallKindEmergency
	}
	rec := &models.Call{
		CallID:      callID,
		CallerName:  name,
		CallerPhone: phone,
		Kind:        kind,
		Status:      string(status),
		CreatedAt:   c.now().UTC(),
		RoomName:    RoomName(callID),
	}
	rec.AgentID = &sel.Agent.ID

	err = c.store.InTx(ctx, func(tx *database.Store) error {
		if err := tx.Calls.Create(ctx, rec); err != nil {
			return err
		}
		if sel.Busy {
			return nil
		}
		n := &models.Notification{
			AgentID: sel.Agent.ID,
			Kind:    "call",
			Title:   fmt.Sprintf("Incoming Call from %s", rec.CallerName),
			Message: fmt.Sprintf("%s is waiting for customer care.", rec.CallerName),
		}
		if emergency {
			n.Title = "Emergency System Call"
			n.Message = fmt.Sprintf("Emergency call requested by %s.", rec.CallerName)
		}
		return tx.Notifications.Create(ctx, n)
	})
	if err != nil {
		return nil, fmt.Errorf("creating call: %w", err)
	}

	if !sel.Busy {
		c.events.IncomingCall(rec)
	}

	c.logger.Info("call initiated",
		"call_id", rec.CallID,
		"kind", rec.Kind,
		"status", rec.Status,
		"agent_id", sel.Agent.ID,
		"reason", sel.Reason,
	)

	return &InitiateResult{
		Call:    rec,
		Agent:   sel.Agent,
		Busy:    sel.Busy,
		Reason:  sel.Reason,
		Message: initiateMessage(sel, emergency),
	}, nil
}

func initiateMessage(sel Selection, emergency bool) string {
	if sel.Busy {
		return fmt.Sprintf("%s is currently on another call. You can hold, try again later, or send a message.", sel.Agent.FullName)
	}
	switch {
	case sel.Reason == ReasonRerouted && emergency:
		return fmt.Sprintf("Preferred receptionist is unavailable. Emergency call routed to %s.", sel.Agent.FullName)
	case sel.Reason == ReasonRerouted:
		return fmt.Sprintf("Preferred receptionist is unavailable. Your call has been routed to %s.", sel.Agent.FullName)
	case emergency:
		return "Emergency system call initiated."
	default:
		return "Real-time call initiated. Waiting for customer care to answer."
	}
}

// Answer connects an agent to a ringing or held call. The ledger's
// conditional update resolves concurrent answers: one agent wins, the rest
// get ErrCallTaken.
func (c *Controller) Answer(ctx context.Context, callID string, agentID int64) (*models.Call, error) {
	rec, err := c.getCall(ctx, callID)
	if err != nil {
		return nil, err
	}
	if Status(rec.Status).Terminal() {
		return nil, ErrTerminalState
	}
	if rec.AgentID != nil && *rec.AgentID != agentID {
		return nil, ErrNotAssigned
	}

	busy, err := AgentBusy(ctx, c.store.Calls, c.rooms, agentID, callID, c.now())
	if err != nil {
		return nil, err
	}
	if busy {
		return nil, ErrAgentBusy
	}

	answered, err := c.store.Calls.Answer(ctx, callID, agentID, c.now().UTC())
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrCallTaken
		}
		return nil, err
	}

	c.events.CallUpdate(answered, "call_connected", "Customer care connected.")
	c.logger.Info("call answered", "call_id", callID, "agent_id", agentID)
	return answered, nil
}

// Reject marks a call rejected by its agent.
func (c *Controller) Reject(ctx context.Context, callID string, agentID int64, reason string) (*models.Call, error) {
	rec, err := c.getCall(ctx, callID)
	if err != nil {
		return nil, err
	}
	if Status(rec.Status).Terminal() {
		return nil, ErrTerminalState
	}
	if rec.AgentID != nil && *rec.AgentID != agentID {
		return nil, ErrNotAssigned
	}
	if reason == "" {
		reason = "Not available"
	}

	now := c.now().UTC()
	rec.Status = string(StatusRejected)
	rec.EndedAt = &now
	if rec.AnsweredAt != nil && rec.Duration <= 0 {
		rec.Duration = DurationSeconds(rec.AnsweredAt, now)
	}
	if err := c.store.Calls.Update(ctx, rec); err != nil {
		return nil, fmt.Errorf("rejecting call: %w", err)
	}

	c.events.CallUpdate(rec, "call_rejected", reason)
	c.logger.Info("call rejected", "call_id", callID, "agent_id", agentID, "reason", reason)
	return rec, nil
}

// End terminates a call. Idempotent: ending a terminal or unknown call
// reports success without side effects, since client timers and user
// actions race to end the same call. The bool result reports whether the
// call was already closed.
func (c *Controller) End(ctx context.Context, callID string) (*models.Call, bool, error) {
	rec, err := c.getCall(ctx, callID)
	if err != nil {
		return nil, false, err
	}
	if Status(rec.Status).Terminal() {
		return rec, true, nil
	}

	now := c.now().UTC()
	rec.Status = string(StatusEnded)
	rec.EndedAt = &now
	if rec.AnsweredAt != nil {
		rec.Duration = DurationSeconds(rec.AnsweredAt, now)
	}
	if err := c.store.Calls.Update(ctx, rec); err != nil {
		return nil, false, fmt.Errorf("ending call: %w", err)
	}

	c.events.CallUpdate(rec, "call_ended", "Call ended.")
	c.logger.Info("call ended", "call_id", callID, "duration", rec.Duration)
	return rec, false, nil
}

// Hold parks a call until its agent becomes free. The hold timestamp
// anchors the staleness window; the status poll drives reconnection.
func (c *Controller) Hold(ctx context.Context, callID string) (*models.Call, error) {
	rec, err := c.getCall(ctx, callID)
	if err != nil {
		return nil, err
	}
	if Status(rec.Status).Terminal() {
		return nil, ErrTerminalState
	}

	now := c.now().UTC()
	rec.Status = string(StatusOnHold)
	rec.HoldRequestedAt = &now

	err = c.store.InTx(ctx, func(tx *database.Store) error {
		if err := tx.Calls.Update(ctx, rec); err != nil {
			return err
		}
		if rec.AgentID == nil {
			return nil
		}
		return tx.Notifications.Create(ctx, &models.Notification{
			AgentID: *rec.AgentID,
			Kind:    "call",
			Title:   fmt.Sprintf("Caller on hold: %s", rec.CallerName),
			Message: fmt.Sprintf("%s is waiting on hold.", rec.CallerName),
		})
	})
	if err != nil {
		return nil, fmt.Errorf("holding call: %w", err)
	}

	c.events.CallUpdate(rec, "call_on_hold", "Caller is on hold.")
	c.logger.Info("call on hold", "call_id", callID)
	return rec, nil
}

// MessageRequest carries a message left by a caller who could not connect.
type MessageRequest struct {
	CallerName  string
	CallerEmail string
	CallerPhone string
	Message     string
}

// LeaveMessage converts a waiting call into a message for reception:
// a Communication thread is opened, the agent is notified, and the call
// terminates as message_left. The whole transition is one transaction.
func (c *Controller) LeaveMessage(ctx context.Context, callID string, req MessageRequest) (*models.Call, int64, error) {
	rec, err := c.getCall(ctx, callID)
	if err != nil {
		return nil, 0, err
	}
	if Status(rec.Status).Terminal() {
		return nil, 0, ErrTerminalState
	}

	name := strings.TrimSpace(req.CallerName)
	if name == "" {
		name = rec.CallerName
	}
	if name == "" {
		name = "Website Caller"
	}
	email := strings.TrimSpace(req.CallerEmail)
	if email == "" {
		email = "no-reply@carelink.local"
	}
	phone := normalizePhone(req.CallerPhone)
	if phone == "" {
		phone = rec.CallerPhone
	}

	now := c.now().UTC()
	rec.Status = string(StatusMessageLeft)
	rec.EndedAt = &now
	if rec.AnsweredAt != nil && rec.Duration <= 0 {
		rec.Duration = DurationSeconds(rec.AnsweredAt, now)
	}

	comm := &models.Communication{
		PatientName:  name,
		PatientEmail: email,
		PatientPhone: phone,
		AgentID:      rec.AgentID,
		MessageType:  "call",
		Content:      fmt.Sprintf("Call %s message: %s", rec.CallID, req.Message),
		Priority:     "high",
		PublicToken:  strings.ReplaceAll(uuid.NewString(), "-", ""),
	}

	err = c.store.InTx(ctx, func(tx *database.Store) error {
		if err := tx.Communications.Create(ctx, comm); err != nil {
			return err
		}
		if err := tx.Communications.AddMessage(ctx, &models.CommunicationMessage{
			CommunicationID: comm.ID,
			SenderType:      "patient",
			SenderName:      comm.PatientName,
			SenderEmail:     comm.PatientEmail,
			Content:         comm.Content,
		}); err != nil {
			return err
		}
		if rec.AgentID != nil {
			n := &models.Notification{
				AgentID:         *rec.AgentID,
				CommunicationID: &comm.ID,
				Kind:            "message",
				Title:           fmt.Sprintf("Call message from %s", comm.PatientName),
				Message:         truncate(req.Message, 100),
			}
			if err := tx.Notifications.Create(ctx, n); err != nil {
				return err
			}
		}
		return tx.Calls.Update(ctx, rec)
	})
	if err != nil {
		return nil, 0, fmt.Errorf("leaving call message: %w", err)
	}

	c.events.CallUpdate(rec, "call_message_left", "Caller left a message.")
	c.logger.Info("call message left", "call_id", callID, "communication_id", comm.ID)
	return rec, comm.ID, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// StatusResult is the caller-facing status payload.
type StatusResult struct {
	Call        *models.Call
	Message     string
	VoicePrompt string
	Duration    string
}

// Status returns the call's current state for caller-side polling. For held
// calls it runs the reconnection check: when the assigned agent (or an
// alternate) is online and free, the call transitions back to ringing and
// the agent is re-notified.
func (c *Controller) Status(ctx context.Context, callID string) (*StatusResult, error) {
	rec, err := c.getCall(ctx, callID)
	if err != nil {
		return nil, err
	}

	if Status(rec.Status) == StatusOnHold {
		agentID, ok, err := c.reconnectTarget(ctx, rec)
		if err != nil {
			return nil, err
		}
		if ok {
			rec.AgentID = &agentID
			rec.Status = string(StatusRinging)
			if err := c.store.Calls.Update(ctx, rec); err != nil {
				return nil, fmt.Errorf("reconnecting held call: %w", err)
			}
			c.events.IncomingCall(rec)
			c.logger.Info("held call reconnecting", "call_id", callID, "agent_id", agentID)
		}
	}

	res := &StatusResult{
		Call:     rec,
		Message:  Status(rec.Status).Message(),
		Duration: FormatDuration(rec.Duration),
	}
	if Status(rec.Status) == StatusBusy {
		res.VoicePrompt = BusyPrompt
	}
	return res, nil
}

// reconnectTarget decides whether a held call can ring again and to whom.
// Pure decision over (call, presence, ledger); the caller applies the
// mutation, so a background sweeper could reuse it.
func (c *Controller) reconnectTarget(ctx context.Context, rec *models.Call) (int64, bool, error) {
	if rec.AgentID != nil && c.presence.IsOnline(*rec.AgentID) {
		busy, err := AgentBusy(ctx, c.store.Calls, c.rooms, *rec.AgentID, rec.CallID, c.now())
		if err != nil {
			return 0, false, err
		}
		if !busy {
			return *rec.AgentID, true, nil
		}
	}

	sel, err := c.selector.Select(ctx, 0, rec.CallID)
	if err != nil {
		return 0, false, err
	}
	if sel.Agent != nil && !sel.Busy {
		return sel.Agent.ID, true, nil
	}
	return 0, false, nil
}

// History returns recent calls, newest first. limit is clamped to 1..50.
func (c *Controller) History(ctx context.Context, limit int) ([]models.Call, error) {
	if limit < 1 {
		limit = 10
	}
	if limit > 50 {
		limit = 50
	}
	return c.store.Calls.ListRecent(ctx, limit)
}

// AgentAvailability is one agent's public availability card.
type AgentAvailability struct {
	Agent    *models.Agent
	Snapshot Snapshot
}

// AvailabilitySummary aggregates the availability cards.
type AvailabilitySummary struct {
	Total     int
	Available int
	Busy      int
	Offline   int
	Away      int
}

// Availability builds live availability for every call-capable active agent,
// for caller-side routing UI.
func (c *Controller) Availability(ctx context.Context) ([]AgentAvailability, AvailabilitySummary, error) {
	agents, err := c.store.Agents.ListActive(ctx)
	if err != nil {
		return nil, AvailabilitySummary{}, fmt.Errorf("listing agents: %w", err)
	}

	var cards []AgentAvailability
	var summary AvailabilitySummary
	for i := range agents {
		a := &agents[i]
		if !Capable(a) {
			continue
		}
		snap, err := c.selector.AgentSnapshot(ctx, a, "")
		if err != nil {
			return nil, AvailabilitySummary{}, err
		}
		cards = append(cards, AgentAvailability{Agent: a, Snapshot: snap})
		summary.Total++
		switch snap.Availability {
		case AvailabilityAvailable:
			summary.Available++
		case AvailabilityBusy:
			summary.Busy++
		case AvailabilityOffline:
			summary.Offline++
		case AvailabilityAway:
			summary.Away++
		}
	}
	return cards, summary, nil
}

// Get returns a call by its token.
func (c *Controller) Get(ctx context.Context, callID string) (*models.Call, error) {
	return c.getCall(ctx, callID)
}

func (c *Controller) getCall(ctx context.Context, callID string) (*models.Call, error) {
	rec, err := c.store.Calls.GetByCallID(ctx, callID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrCallNotFound
		}
		return nil, fmt.Errorf("loading call: %w", err)
	}
	return rec, nil
}
