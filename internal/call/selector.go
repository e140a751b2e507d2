package call

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/carelink/carelink/internal/database"
	"github.com/carelink/carelink/internal/database/models"
)

// Reason explains a routing decision.
type Reason string

const (
	// ReasonAvailable: the chosen agent can take the call now.
	ReasonAvailable Reason = "available"
	// ReasonRerouted: the preferred agent could not take the call; another
	// agent was chosen instead.
	ReasonRerouted Reason = "rerouted"
	// ReasonBusy: an online agent was assigned but is on another call.
	ReasonBusy Reason = "busy"
	// ReasonNoOnline: capable agents exist but none is online.
	ReasonNoOnline Reason = "no_online"
	// ReasonNoCapable: no active call-capable agent exists at all.
	ReasonNoCapable Reason = "no_reception"
)

// callCapableDepartments is the allow-list of departments that take live
// calls. Empty means unset legacy rows, which stay routable.
var callCapableDepartments = map[string]bool{
	"":              true,
	"general":       true,
	"calls":         true,
	"customer_care": true,
}

// Capable reports whether the agent's department takes live calls.
func Capable(agent *models.Agent) bool {
	return callCapableDepartments[strings.ToLower(strings.TrimSpace(agent.Department))]
}

// Selection is the outcome of a routing decision.
type Selection struct {
	Agent  *models.Agent // nil when no agent could be assigned
	Busy   bool          // assigned agent is on another call
	Reason Reason
}

// Selector chooses which reception agent receives a new or rerouted call.
type Selector struct {
	agents   database.AgentRepository
	calls    database.CallRepository
	presence *PresenceRegistry
	rooms    *RoomRegistry
	now      func() time.Time
}

// NewSelector wires a selector over the ledger and the live registries.
func NewSelector(agents database.AgentRepository, calls database.CallRepository, presence *PresenceRegistry, rooms *RoomRegistry) *Selector {
	return &Selector{
		agents:   agents,
		calls:    calls,
		presence: presence,
		rooms:    rooms,
		now:      time.Now,
	}
}

// Select picks an agent for a call. preferredID of 0 means no preference;
// excludeCallID excludes the call being routed from the busy check, so a
// held call does not block its own reassignment.
//
// Ordering is deterministic: candidates are walked in ascending ID order,
// schedulable agents before non-schedulable ones, so concurrent initiations
// converge on the same agent and the busy check resolves the contention.
func (s *Selector) Select(ctx context.Context, preferredID int64, excludeCallID string) (Selection, error) {
	active, err := s.agents.ListActive(ctx)
	if err != nil {
		return Selection{}, fmt.Errorf("listing active agents: %w", err)
	}

	var candidates []*models.Agent
	for i := range active {
		if Capable(&active[i]) {
			candidates = append(candidates, &active[i])
		}
	}
	if len(candidates) == 0 {
		return Selection{Busy: true, Reason: ReasonNoCapable}, nil
	}

	var online []*models.Agent
	for _, a := range candidates {
		if s.presence.IsOnline(a.ID) {
			online = append(online, a)
		}
	}
	if len(online) == 0 {
		return Selection{Busy: true, Reason: ReasonNoOnline}, nil
	}

	now := s.now()

	var preferred *models.Agent
	if preferredID != 0 {
		for _, a := range candidates {
			if a.ID == preferredID {
				preferred = a
				break
			}
		}
	}

	if preferred != nil {
		preferredOnline := s.presence.IsOnline(preferred.ID)
		if preferredOnline {
			busy, err := AgentBusy(ctx, s.calls, s.rooms, preferred.ID, excludeCallID, now)
			if err != nil {
				return Selection{}, err
			}
			if !busy {
				return Selection{Agent: preferred, Reason: ReasonAvailable}, nil
			}
		}

		var reroutePool []*models.Agent
		for _, a := range online {
			if a.ID != preferred.ID {
				reroutePool = append(reroutePool, a)
			}
		}
		rerouted, err := s.firstFree(ctx, reroutePool, excludeCallID, now)
		if err != nil {
			return Selection{}, err
		}
		if rerouted != nil {
			return Selection{Agent: rerouted, Reason: ReasonRerouted}, nil
		}

		if preferredOnline {
			return Selection{Agent: preferred, Busy: true, Reason: ReasonBusy}, nil
		}
		return Selection{Agent: online[0], Busy: true, Reason: ReasonBusy}, nil
	}

	selected, err := s.firstFree(ctx, online, excludeCallID, now)
	if err != nil {
		return Selection{}, err
	}
	if selected != nil {
		return Selection{Agent: selected, Reason: ReasonAvailable}, nil
	}
	return Selection{Agent: online[0], Busy: true, Reason: ReasonBusy}, nil
}

// firstFree returns the first non-busy agent in the pool, preferring
// schedulable agents, or nil when every agent in the pool is busy.
func (s *Selector) firstFree(ctx context.Context, pool []*models.Agent, excludeCallID string, now time.Time) (*models.Agent, error) {
	for _, a := range pool {
		if !a.Schedulable {
			continue
		}
		busy, err := AgentBusy(ctx, s.calls, s.rooms, a.ID, excludeCallID, now)
		if err != nil {
			return nil, err
		}
		if !busy {
			return a, nil
		}
	}
	for _, a := range pool {
		busy, err := AgentBusy(ctx, s.calls, s.rooms, a.ID, excludeCallID, now)
		if err != nil {
			return nil, err
		}
		if !busy {
			return a, nil
		}
	}
	return nil, nil
}

// Availability labels for agent snapshots.
const (
	AvailabilityAvailable = "available"
	AvailabilityBusy      = "busy"
	AvailabilityOffline   = "offline"
	AvailabilityAway      = "away"
)

// Snapshot is an agent's live availability, for routing and the public
// status cards.
type Snapshot struct {
	Online       bool
	Busy         bool
	Schedulable  bool
	CanReceive   bool
	Availability string
}

// AgentSnapshot builds the availability snapshot for one agent.
// busy outranks offline outranks away in the label.
func (s *Selector) AgentSnapshot(ctx context.Context, agent *models.Agent, excludeCallID string) (Snapshot, error) {
	online := s.presence.IsOnline(agent.ID)
	busy, err := AgentBusy(ctx, s.calls, s.rooms, agent.ID, excludeCallID, s.now())
	if err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{
		Online:      online,
		Busy:        busy,
		Schedulable: agent.Schedulable,
		CanReceive:  online && agent.Schedulable && !busy,
	}
	switch {
	case snap.CanReceive:
		snap.Availability = AvailabilityAvailable
	case busy:
		snap.Availability = AvailabilityBusy
	case !online:
		snap.Availability = AvailabilityOffline
	default:
		snap.Availability = AvailabilityAway
	}
	return snap, nil
}
