package signal

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/carelink/carelink/internal/call"
	"github.com/carelink/carelink/internal/database/models"
)

// TokenVerifier validates a reception agent's realtime token and returns the
// agent ID it was issued to.
type TokenVerifier func(token string) (int64, error)

// client tracks a single websocket connection.
type client struct {
	sessionID string
	agentID   int64 // 0 for patient sockets
	ws        *websocket.Conn
	sendCh    chan Frame // buffered outbound queue
	done      chan struct{}
	closeOnce sync.Once
}

// Hub is the websocket signaling hub. It drives the presence registry from
// connect/disconnect, brokers call-room membership, relays WebRTC frames,
// and implements call.Events for server pushes.
type Hub struct {
	controller *call.Controller
	verify     TokenVerifier
	logger     *slog.Logger

	clients sync.Map // sessionID (string) -> *client
	nextID  atomic.Uint64
	count   atomic.Int64

	origins []string
}

// NewHub creates the signaling hub. origins lists additional allowed
// websocket origins beyond localhost.
func NewHub(controller *call.Controller, verify TokenVerifier, origins []string, logger *slog.Logger) *Hub {
	return &Hub{
		controller: controller,
		verify:     verify,
		origins:    origins,
		logger:     logger,
	}
}

// ConnectionCount returns the number of live websocket connections.
func (h *Hub) ConnectionCount() int64 { return h.count.Load() }

// ServeHTTP upgrades the request to a websocket. Reception agents pass their
// realtime JWT in ?token=; connections without a token are patient sockets.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var agentID int64
	if token := r.URL.Query().Get("token"); token != "" {
		id, err := h.verify(token)
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		agentID = id
	}

	opts := &websocket.AcceptOptions{
		OriginPatterns: append([]string{
			"localhost",
			"localhost:*",
			"127.0.0.1",
			"127.0.0.1:*",
		}, h.origins...),
	}
	ws, err := websocket.Accept(w, r, opts)
	if err != nil {
		h.logger.Warn("websocket accept failed", "error", err)
		return
	}

	c := &client{
		sessionID: "ws-" + strconv.FormatUint(h.nextID.Add(1), 10),
		agentID:   agentID,
		ws:        ws,
		sendCh:    make(chan Frame, 64),
		done:      make(chan struct{}),
	}
	h.clients.Store(c.sessionID, c)
	h.count.Add(1)

	ready := readyPayload{Role: string(call.RolePatient)}
	if agentID != 0 {
		h.controller.Presence().Register(agentID, c.sessionID)
		ready = readyPayload{Role: string(call.RoleReception), UserID: agentID}
	}
	h.send(c, EventSocketReady, ready)

	h.logger.Info("signaling client connected", "session_id", c.sessionID, "agent_id", agentID)

	go h.writeLoop(c)
	h.readLoop(r.Context(), c)

	// Cleanup on disconnect: presence, room sweep, client map.
	c.closeOnce.Do(func() { close(c.done) })
	h.clients.Delete(c.sessionID)
	h.count.Add(-1)
	if agentID != 0 {
		h.controller.Presence().Unregister(agentID, c.sessionID)
	}
	h.controller.Rooms().DropSession(c.sessionID)
	ws.Close(websocket.StatusNormalClosure, "")
	h.logger.Info("signaling client disconnected", "session_id", c.sessionID)
}

func (h *Hub) readLoop(ctx context.Context, c *client) {
	for {
		select {
		case <-c.done:
			return
		default:
		}

		var frame Frame
		if err := wsjson.Read(ctx, c.ws, &frame); err != nil {
			return
		}
		h.dispatch(ctx, c, frame)
	}
}

func (h *Hub) writeLoop(c *client) {
	for {
		select {
		case <-c.done:
			return
		case frame := <-c.sendCh:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := wsjson.Write(ctx, c.ws, frame)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

func (h *Hub) dispatch(ctx context.Context, c *client, frame Frame) {
	switch frame.Event {
	case EventJoinCallRoom:
		h.handleJoin(ctx, c, frame.Data)
	case EventLeaveCallRoom:
		h.handleLeave(ctx, c, frame.Data)
	case EventWebRTCOffer, EventWebRTCAnswer, EventWebRTCCandidate:
		h.handleRelay(ctx, c, frame)
	default:
		h.logger.Debug("unknown signaling event", "event", frame.Event)
	}
}

func (h *Hub) handleJoin(ctx context.Context, c *client, data json.RawMessage) {
	var p joinPayload
	if err := json.Unmarshal(data, &p); err != nil || p.CallID == "" {
		h.sendError(c, "call_id is required")
		return
	}
	role := call.Role(p.Role)
	if p.Role == "" {
		role = call.RolePatient
	}
	if !role.Valid() {
		h.sendError(c, "Invalid role")
		return
	}

	rec, err := h.controller.Get(ctx, p.CallID)
	if err != nil {
		if errors.Is(err, call.ErrCallNotFound) {
			h.sendError(c, "Call not found")
			return
		}
		h.logger.Error("join lookup failed", "call_id", p.CallID, "error", err)
		h.sendError(c, "Call lookup failed")
		return
	}
	if call.Status(rec.Status).Terminal() {
		h.sendError(c, "This call is no longer active")
		return
	}

	if role == call.RoleReception {
		if c.agentID == 0 {
			h.sendError(c, "Reception authentication required")
			return
		}
		if rec.AgentID != nil && *rec.AgentID != c.agentID {
			h.sendError(c, "Unauthorized for this call")
			return
		}
	}

	h.controller.Rooms().Join(rec.CallID, role, c.sessionID)

	h.send(c, EventCallRoomJoined, roomJoinedPayload{
		CallID:     rec.CallID,
		CallType:   rec.Kind,
		Role:       string(role),
		Status:     rec.Status,
		RoomName:   rec.RoomName,
		ICEServers: h.controller.Relay().Servers(),
	})

	h.broadcast(rec.CallID, c.sessionID, EventParticipantJoined, participantPayload{
		CallID: rec.CallID,
		Role:   string(role),
	})
}

func (h *Hub) handleLeave(ctx context.Context, c *client, data json.RawMessage) {
	var p joinPayload
	if err := json.Unmarshal(data, &p); err != nil || p.CallID == "" {
		return
	}
	role := call.Role(p.Role)
	if !role.Valid() {
		role = call.RolePatient
	}
	h.controller.Rooms().Leave(p.CallID, role, c.sessionID)
}

// handleRelay forwards a webrtc handshake frame verbatim to every other
// participant in the call's room. The sender never receives its own frame.
func (h *Hub) handleRelay(ctx context.Context, c *client, frame Frame) {
	var p relayPayload
	if err := json.Unmarshal(frame.Data, &p); err != nil || p.CallID == "" {
		return
	}
	switch frame.Event {
	case EventWebRTCOffer:
		if len(p.Offer) == 0 {
			return
		}
	case EventWebRTCAnswer:
		if len(p.Answer) == 0 {
			return
		}
	case EventWebRTCCandidate:
		if len(p.Candidate) == 0 {
			return
		}
	}
	if _, err := h.controller.Get(ctx, p.CallID); err != nil {
		return
	}
	for _, sessionID := range h.controller.Rooms().Members(p.CallID, c.sessionID) {
		h.sendTo(sessionID, frame)
	}
}

// IncomingCall pushes an incoming_call frame to every session of the
// assigned agent. Implements call.Events.
func (h *Hub) IncomingCall(rec *models.Call) {
	if rec.AgentID == nil {
		return
	}
	frame, err := incomingCallFrame(rec, h.controller.Relay().Servers())
	if err != nil {
		h.logger.Error("encoding incoming_call", "error", err)
		return
	}
	for _, sessionID := range h.controller.Presence().Sessions(*rec.AgentID) {
		h.sendTo(sessionID, frame)
	}
}

// CallUpdate broadcasts a lifecycle event to the call's room. Implements
// call.Events.
func (h *Hub) CallUpdate(rec *models.Call, event, message string) {
	payload := callEventPayload{
		CallID:   rec.CallID,
		CallType: rec.Kind,
		Status:   rec.Status,
		Message:  message,
		RoomName: rec.RoomName,
	}
	// The connect push carries ICE servers so the answering side can start
	// the handshake immediately.
	if event == "call_connected" {
		payload.ICEServers = h.controller.Relay().Servers()
	}
	h.broadcast(rec.CallID, "", event, payload)
}

func (h *Hub) broadcast(callID, excludeSession, event string, payload any) {
	frame, err := newFrame(event, payload)
	if err != nil {
		h.logger.Error("encoding broadcast", "event", event, "error", err)
		return
	}
	for _, sessionID := range h.controller.Rooms().Members(callID, excludeSession) {
		h.sendTo(sessionID, frame)
	}
}

func (h *Hub) send(c *client, event string, payload any) {
	frame, err := newFrame(event, payload)
	if err != nil {
		h.logger.Error("encoding frame", "event", event, "error", err)
		return
	}
	select {
	case c.sendCh <- frame:
	default:
		h.logger.Warn("dropped frame for slow client", "session_id", c.sessionID, "event", event)
	}
}

func (h *Hub) sendError(c *client, message string) {
	h.send(c, EventCallError, errorPayload{Message: message})
}

func (h *Hub) sendTo(sessionID string, frame Frame) {
	v, ok := h.clients.Load(sessionID)
	if !ok {
		return
	}
	c := v.(*client)
	select {
	case c.sendCh <- frame:
	default:
		h.logger.Warn("dropped frame for slow client", "session_id", sessionID, "event", frame.Event)
	}
}

// Shutdown closes every live connection.
func (h *Hub) Shutdown() {
	h.clients.Range(func(key, value any) bool {
		c := value.(*client)
		c.closeOnce.Do(func() { close(c.done) })
		c.ws.Close(websocket.StatusGoingAway, "server shutting down")
		h.clients.Delete(key)
		return true
	})
}

var _ call.Events = (*Hub)(nil)
