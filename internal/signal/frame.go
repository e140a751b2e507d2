// Package signal implements the realtime signaling channel: a websocket hub
// that tracks agent presence, brokers call-room membership, relays WebRTC
// handshake frames between peers, and pushes call lifecycle events.
package signal

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/carelink/carelink/internal/call"
	"github.com/carelink/carelink/internal/database/models"
)

// Frame is one JSON message on the wire, client or server originated.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Client-originated events.
const (
	EventJoinCallRoom    = "join_call_room"
	EventLeaveCallRoom   = "leave_call_room"
	EventWebRTCOffer     = "webrtc_offer"
	EventWebRTCAnswer    = "webrtc_answer"
	EventWebRTCCandidate = "webrtc_ice_candidate"
)

// Server-pushed events.
const (
	EventSocketReady       = "socket_ready"
	EventCallRoomJoined    = "call_room_joined"
	EventParticipantJoined = "call_participant_joined"
	EventCallError         = "call_error"
	EventIncomingCall      = "incoming_call"
)

// joinPayload is the client payload for join/leave room events.
type joinPayload struct {
	CallID string `json:"call_id"`
	Role   string `json:"role"`
}

// relayPayload extracts the call id from a webrtc frame; the rest of the
// payload is forwarded verbatim.
type relayPayload struct {
	CallID    string          `json:"call_id"`
	Offer     json.RawMessage `json:"offer,omitempty"`
	Answer    json.RawMessage `json:"answer,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
}

type readyPayload struct {
	Role   string `json:"role"`
	UserID int64  `json:"user_id,omitempty"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type roomJoinedPayload struct {
	CallID     string           `json:"call_id"`
	CallType   string           `json:"call_type"`
	Role       string           `json:"role"`
	Status     string           `json:"status"`
	RoomName   string           `json:"room_name"`
	ICEServers []call.ICEServer `json:"ice_servers"`
}

type participantPayload struct {
	CallID string `json:"call_id"`
	Role   string `json:"role"`
}

type incomingCallPayload struct {
	CallID      string           `json:"call_id"`
	CallType    string           `json:"call_type"`
	Status      string           `json:"status"`
	CallerName  string           `json:"patient_name"`
	CallerPhone string           `json:"patient_phone"`
	RoomName    string           `json:"room_name"`
	ICEServers  []call.ICEServer `json:"ice_servers"`
	CreatedAt   string           `json:"created_at"`
}

type callEventPayload struct {
	CallID     string           `json:"call_id"`
	CallType   string           `json:"call_type"`
	Status     string           `json:"status"`
	Message    string           `json:"message"`
	RoomName   string           `json:"room_name"`
	ICEServers []call.ICEServer `json:"ice_servers,omitempty"`
}

// newFrame marshals a payload into a wire frame.
func newFrame(event string, payload any) (Frame, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, fmt.Errorf("encoding %s payload: %w", event, err)
	}
	return Frame{Event: event, Data: data}, nil
}

func incomingCallFrame(rec *models.Call, servers []call.ICEServer) (Frame, error) {
	created := ""
	if !rec.CreatedAt.IsZero() {
		created = rec.CreatedAt.UTC().Format(time.RFC3339)
	}
	return newFrame(EventIncomingCall, incomingCallPayload{
		CallID:      rec.CallID,
		CallType:    rec.Kind,
		Status:      rec.Status,
		CallerName:  rec.CallerName,
		CallerPhone: rec.CallerPhone,
		RoomName:    rec.RoomName,
		ICEServers:  servers,
		CreatedAt:   created,
	})
}
