package call

import "sync"

// Role identifies which side of a call a session belongs to.
type Role string

const (
	RolePatient   Role = "patient"
	RoleReception Role = "reception"
)

// Valid reports whether the role is one of the two known sides.
func (r Role) Valid() bool {
	return r == RolePatient || r == RoleReception
}

type roomMembers struct {
	patient   map[string]struct{}
	reception map[string]struct{}
}

// RoomRegistry tracks which sessions have joined each call's signaling room,
// split by role. The staleness policy uses it to detect orphaned connected
// calls whose participants all dropped.
type RoomRegistry struct {
	mu    sync.RWMutex
	rooms map[string]*roomMembers
}

// NewRoomRegistry returns an empty registry.
func NewRoomRegistry() *RoomRegistry {
	return &RoomRegistry{rooms: make(map[string]*roomMembers)}
}

// Join adds a session to the call's room under the given role.
func (r *RoomRegistry) Join(callID string, role Role, sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[callID]
	if !ok {
		room = &roomMembers{
			patient:   make(map[string]struct{}),
			reception: make(map[string]struct{}),
		}
		r.rooms[callID] = room
	}
	room.set(role)[sessionID] = struct{}{}
}

// Leave removes a session from the call's room under the given role.
// The room entry is dropped once both sides are empty.
func (r *RoomRegistry) Leave(callID string, role Role, sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[callID]
	if !ok {
		return
	}
	delete(room.set(role), sessionID)
	if len(room.patient) == 0 && len(room.reception) == 0 {
		delete(r.rooms, callID)
	}
}

// DropSession removes the session from every room it joined, regardless of
// role. Called on disconnect, where the role of each membership is unknown.
func (r *RoomRegistry) DropSession(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for callID, room := range r.rooms {
		delete(room.patient, sessionID)
		delete(room.reception, sessionID)
		if len(room.patient) == 0 && len(room.reception) == 0 {
			delete(r.rooms, callID)
		}
	}
}

// HasParticipants reports whether any session, either side, is in the
// call's room.
func (r *RoomRegistry) HasParticipants(callID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[callID]
	if !ok {
		return false
	}
	return len(room.patient) > 0 || len(room.reception) > 0
}

// Members returns the session IDs in the call's room, excluding excludeID.
// Used by the signaling relay, which never echoes a frame to its sender.
func (r *RoomRegistry) Members(callID, excludeID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[callID]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(room.patient)+len(room.reception))
	for id := range room.patient {
		if id != excludeID {
			out = append(out, id)
		}
	}
	for id := range room.reception {
		if id != excludeID && !contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

// RoomCount returns the number of rooms with at least one participant.
func (r *RoomRegistry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

func (m *roomMembers) set(role Role) map[string]struct{} {
	if role == RoleReception {
		return m.reception
	}
	return m.patient
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
