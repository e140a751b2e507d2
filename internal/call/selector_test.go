package call

import (
	"context"
	"testing"

	"github.com/carelink/carelink/internal/database/models"
)

func TestSelectPreferredAgent(t *testing.T) {
	c, store, _ := newTestController(t)
	ctx := context.Background()
	first := addAgent(t, store, "reception1", true)
	preferred := addAgent(t, store, "reception2", true)
	c.presence.Register(first.ID, "sess-1")
	c.presence.Register(preferred.ID, "sess-2")

	sel, err := c.selector.Select(ctx, preferred.ID, "")
	if err != nil {
		t.Fatalf("Select() error: %v", err)
	}
	if sel.Agent == nil || sel.Agent.ID != preferred.ID {
		t.Fatalf("selected agent = %v, want preferred %d", sel.Agent, preferred.ID)
	}
	if sel.Busy || sel.Reason != ReasonAvailable {
		t.Errorf("selection = busy=%v reason=%q, want free/available", sel.Busy, sel.Reason)
	}
}

func TestSelectReroutesFromBusyPreferred(t *testing.T) {
	c, store, _ := newTestController(t)
	ctx := context.Background()
	preferred := addAgent(t, store, "reception1", true)
	alternate := addAgent(t, store, "reception2", true)
	c.presence.Register(preferred.ID, "sess-1")
	c.presence.Register(alternate.ID, "sess-2")

	// Occupy the preferred agent with a ringing call.
	occupy := &models.Call{
		CallID:   NewCallID(),
		Kind:     models.CallKindCustomerCare,
		Status:   string(StatusRinging),
		RoomName: "rtc-call-x",
	}
	occupy.AgentID = &preferred.ID
	if err := store.Calls.Create(ctx, occupy); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	sel, err := c.selector.Select(ctx, preferred.ID, "")
	if err != nil {
		t.Fatalf("Select() error: %v", err)
	}
	if sel.Agent == nil || sel.Agent.ID != alternate.ID {
		t.Fatalf("selected agent = %v, want alternate %d", sel.Agent, alternate.ID)
	}
	if sel.Busy || sel.Reason != ReasonRerouted {
		t.Errorf("selection = busy=%v reason=%q, want free/rerouted", sel.Busy, sel.Reason)
	}
}

func TestSelectBusyFallback(t *testing.T) {
	c, store, _ := newTestController(t)
	ctx := context.Background()
	only := addAgent(t, store, "reception1", true)
	c.presence.Register(only.ID, "sess-1")

	occupy := &models.Call{
		CallID:   NewCallID(),
		Kind:     models.CallKindCustomerCare,
		Status:   string(StatusRinging),
		RoomName: "rtc-call-x",
	}
	occupy.AgentID = &only.ID
	if err := store.Calls.Create(ctx, occupy); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	// Everyone busy: the call still gets assigned, flagged busy.
	sel, err := c.selector.Select(ctx, 0, "")
	if err != nil {
		t.Fatalf("Select() error: %v", err)
	}
	if sel.Agent == nil || sel.Agent.ID != only.ID {
		t.Fatalf("selected agent = %v, want %d", sel.Agent, only.ID)
	}
	if !sel.Busy || sel.Reason != ReasonBusy {
		t.Errorf("selection = busy=%v reason=%q, want busy/busy", sel.Busy, sel.Reason)
	}

	// Excluding the occupying call frees the agent.
	sel, err = c.selector.Select(ctx, 0, occupy.CallID)
	if err != nil {
		t.Fatalf("Select() error: %v", err)
	}
	if sel.Busy || sel.Reason != ReasonAvailable {
		t.Errorf("selection with exclusion = busy=%v reason=%q, want free/available", sel.Busy, sel.Reason)
	}
}

func TestSelectPrefersSchedulableAgents(t *testing.T) {
	c, store, _ := newTestController(t)
	ctx := context.Background()
	paused := addAgent(t, store, "reception1", false)
	accepting := addAgent(t, store, "reception2", true)
	c.presence.Register(paused.ID, "sess-1")
	c.presence.Register(accepting.ID, "sess-2")

	sel, err := c.selector.Select(ctx, 0, "")
	if err != nil {
		t.Fatalf("Select() error: %v", err)
	}
	if sel.Agent == nil || sel.Agent.ID != accepting.ID {
		t.Fatalf("selected agent = %v, want schedulable %d", sel.Agent, accepting.ID)
	}
}

func TestSelectFallsBackToNonSchedulable(t *testing.T) {
	c, store, _ := newTestController(t)
	ctx := context.Background()
	paused := addAgent(t, store, "reception1", false)
	c.presence.Register(paused.ID, "sess-1")

	// A free non-schedulable agent still beats a busy assignment.
	sel, err := c.selector.Select(ctx, 0, "")
	if err != nil {
		t.Fatalf("Select() error: %v", err)
	}
	if sel.Agent == nil || sel.Agent.ID != paused.ID {
		t.Fatalf("selected agent = %v, want %d", sel.Agent, paused.ID)
	}
	if sel.Busy {
		t.Error("free non-schedulable agent should not be flagged busy")
	}
}

func TestSelectNoAgents(t *testing.T) {
	c, store, _ := newTestController(t)
	ctx := context.Background()

	sel, err := c.selector.Select(ctx, 0, "")
	if err != nil {
		t.Fatalf("Select() error: %v", err)
	}
	if sel.Agent != nil || sel.Reason != ReasonNoCapable {
		t.Errorf("selection = %+v, want no agent / no_reception", sel)
	}

	// The reason code is part of the wire vocabulary shared with the
	// dashboard, so pin the literal value too.
	if ReasonNoCapable != "no_reception" {
		t.Errorf("ReasonNoCapable = %q, want no_reception", ReasonNoCapable)
	}

	// Capable but offline.
	addAgent(t, store, "reception1", true)
	sel, err = c.selector.Select(ctx, 0, "")
	if err != nil {
		t.Fatalf("Select() error: %v", err)
	}
	if sel.Agent != nil || sel.Reason != ReasonNoOnline {
		t.Errorf("selection = %+v, want no agent / no_online", sel)
	}
}

func TestCapable(t *testing.T) {
	tests := []struct {
		department string
		want       bool
	}{
		{"", true},
		{"general", true},
		{"calls", true},
		{"customer_care", true},
		{"  Calls  ", true},
		{"pharmacy", false},
		{"appointments", false},
	}
	for _, tt := range tests {
		agent := &models.Agent{Department: tt.department}
		if got := Capable(agent); got != tt.want {
			t.Errorf("Capable(%q) = %v, want %v", tt.department, got, tt.want)
		}
	}
}
