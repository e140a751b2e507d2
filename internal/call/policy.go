package call

import (
	"context"
	"time"

	"github.com/carelink/carelink/internal/database"
	"github.com/carelink/carelink/internal/database/models"
)

// Staleness windows. Abandoned browser calls never send an explicit end, so
// capacity decisions age calls out instead of trusting ledger status alone.
const (
	// RingingStaleAfter bounds how long a pre-answer call (initiated,
	// dialing, ringing, busy) blocks an agent.
	RingingStaleAfter = 6 * time.Minute
	// HoldStaleAfter bounds how long a held call waits for reconnection.
	HoldStaleAfter = 20 * time.Minute
	// ConnectedCeiling is the hard upper bound on any connected call.
	ConnectedCeiling = 2 * time.Hour
	// OrphanGraceAfter ages out connected calls whose signaling room has no
	// live participants on either side.
	OrphanGraceAfter = 2 * time.Minute
)

// ActiveForCapacity reports whether a call still counts toward its agent's
// capacity at the given instant. hasParticipants is the live room check from
// the RoomRegistry; it only matters for connected calls.
//
// The decision is pure: callers supply the clock and the room state.
func ActiveForCapacity(c *models.Call, hasParticipants bool, now time.Time) bool {
	switch Status(c.Status) {
	case StatusConnected:
		if c.EndedAt != nil {
			return false
		}
		anchor := c.AnsweredAt
		if anchor == nil {
			t := c.CreatedAt
			anchor = &t
		}
		if anchor.IsZero() {
			return true
		}
		age := now.Sub(anchor.UTC())
		if age > ConnectedCeiling {
			return false
		}
		if !hasParticipants && age > OrphanGraceAfter {
			return false
		}
		return true

	case StatusInitiated, StatusDialing, StatusRinging, StatusBusy:
		if c.CreatedAt.IsZero() {
			return false
		}
		return now.Sub(c.CreatedAt.UTC()) <= RingingStaleAfter

	case StatusOnHold:
		anchor := c.HoldRequestedAt
		if anchor == nil {
			t := c.CreatedAt
			anchor = &t
		}
		if anchor.IsZero() {
			return false
		}
		return now.Sub(anchor.UTC()) <= HoldStaleAfter
	}

	return false
}

// AgentBusy reports whether the agent has any call that still counts toward
// capacity, skipping excludeCallID when non-empty.
func AgentBusy(ctx context.Context, calls database.CallRepository, rooms *RoomRegistry, agentID int64, excludeCallID string, now time.Time) (bool, error) {
	open, err := calls.ListOpenByAgent(ctx, agentID, excludeCallID)
	if err != nil {
		return false, err
	}
	for i := range open {
		c := &open[i]
		if ActiveForCapacity(c, rooms.HasParticipants(c.CallID), now) {
			return true, nil
		}
	}
	return false, nil
}

// DurationSeconds computes the frozen call duration in whole seconds.
// Never negative, zero when the call was never answered.
func DurationSeconds(answeredAt *time.Time, endedAt time.Time) int {
	if answeredAt == nil || answeredAt.IsZero() {
		return 0
	}
	d := int(endedAt.UTC().Sub(answeredAt.UTC()).Seconds())
	if d < 0 {
		return 0
	}
	return d
}
