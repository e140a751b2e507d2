// Package call implements the call routing and presence-state engine:
// a live presence registry, the call ledger state machine, signaling room
// bookkeeping, the agent selection policy, and the lifecycle controller
// that ties them together.
package call

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Status is a call lifecycle state.
type Status string

const (
	StatusInitiated   Status = "initiated"
	StatusDialing     Status = "dialing"
	StatusRinging     Status = "ringing"
	StatusBusy        Status = "busy"
	StatusConnected   Status = "connected"
	StatusOnHold      Status = "on_hold"
	StatusMessageLeft Status = "message_left"
	StatusEnded       Status = "ended"
	StatusRejected    Status = "rejected"
	StatusFailed      Status = "failed"
)

// ActiveStatuses are the non-terminal states. A call in one of these may
// still count toward agent capacity, subject to the staleness policy.
var ActiveStatuses = []Status{
	StatusInitiated, StatusDialing, StatusRinging,
	StatusBusy, StatusConnected, StatusOnHold,
}

// AllStatuses lists every lifecycle state in rough transition order.
var AllStatuses = []Status{
	StatusInitiated, StatusDialing, StatusRinging,
	StatusBusy, StatusConnected, StatusOnHold,
	StatusMessageLeft, StatusEnded, StatusRejected, StatusFailed,
}

// Terminal reports whether the status is final. Terminal calls accept no
// further transitions.
func (s Status) Terminal() bool {
	switch s {
	case StatusEnded, StatusRejected, StatusMessageLeft, StatusFailed:
		return true
	}
	return false
}

// BusyPrompt is the voice prompt played to callers routed to a busy agent.
const BusyPrompt = "The other user is on another call. Please hold, try again later, or send a message."

// Message returns the caller-facing description of a status, shown on the
// caller's status poll.
func (s Status) Message() string {
	switch s {
	case StatusInitiated:
		return "Preparing call setup."
	case StatusDialing:
		return "Initializing real-time call."
	case StatusRinging:
		return "Calling customer care..."
	case StatusBusy:
		return BusyPrompt
	case StatusConnected:
		return "Connected."
	case StatusOnHold:
		return "You are on hold. We will reconnect you automatically once customer care is free."
	case StatusEnded:
		return "Call has ended."
	case StatusRejected:
		return "Call was rejected."
	case StatusMessageLeft:
		return "Message sent. Customer care will get back to you."
	case StatusFailed:
		return "Call could not be completed. Please try again."
	}
	return "Call status updated."
}

// NewCallID returns a new opaque call token: the first 8 hex characters of
// a random UUID. Short enough to read over the phone, unique enough for a
// small deployment.
func NewCallID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// RoomName returns the deterministic signaling room for a call token.
func RoomName(callID string) string {
	return "rtc-call-" + callID
}

// FormatDuration renders whole seconds as M:SS, or H:MM:SS past an hour.
func FormatDuration(seconds int) string {
	if seconds <= 0 {
		return "0:00"
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, secs)
	}
	return fmt.Sprintf("%d:%02d", minutes, secs)
}
