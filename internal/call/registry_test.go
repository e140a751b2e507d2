package call

import "testing"

func TestPresenceRegistry(t *testing.T) {
	p := NewPresenceRegistry()

	if p.IsOnline(1) {
		t.Error("agent should start offline")
	}

	p.Register(1, "sess-a")
	p.Register(1, "sess-b")
	p.Register(2, "sess-c")

	if !p.IsOnline(1) || !p.IsOnline(2) {
		t.Error("registered agents should be online")
	}
	if got := p.OnlineCount(); got != 2 {
		t.Errorf("OnlineCount() = %d, want 2", got)
	}
	if got := len(p.Sessions(1)); got != 2 {
		t.Errorf("Sessions(1) returned %d sessions, want 2", got)
	}

	// Agent stays online while any session remains.
	p.Unregister(1, "sess-a")
	if !p.IsOnline(1) {
		t.Error("agent should remain online with one session left")
	}
	p.Unregister(1, "sess-b")
	if p.IsOnline(1) {
		t.Error("agent should be offline after last session unregisters")
	}

	// Unregistering unknown sessions is a no-op.
	p.Unregister(99, "sess-x")
	p.Unregister(2, "sess-x")
	if !p.IsOnline(2) {
		t.Error("unrelated unregister should not affect agent 2")
	}
}

func TestRoomRegistry(t *testing.T) {
	r := NewRoomRegistry()

	if r.HasParticipants("abcd1234") {
		t.Error("empty registry should have no participants")
	}

	r.Join("abcd1234", RolePatient, "sess-p")
	r.Join("abcd1234", RoleReception, "sess-r")
	r.Join("wxyz9876", RolePatient, "sess-p2")

	if !r.HasParticipants("abcd1234") {
		t.Error("room should have participants after joins")
	}
	if got := r.RoomCount(); got != 2 {
		t.Errorf("RoomCount() = %d, want 2", got)
	}

	members := r.Members("abcd1234", "sess-p")
	if len(members) != 1 || members[0] != "sess-r" {
		t.Errorf("Members() excluding sender = %v, want [sess-r]", members)
	}

	r.Leave("abcd1234", RolePatient, "sess-p")
	if !r.HasParticipants("abcd1234") {
		t.Error("room should keep reception participant")
	}
	r.Leave("abcd1234", RoleReception, "sess-r")
	if r.HasParticipants("abcd1234") {
		t.Error("room should be empty after both sides leave")
	}
	if got := r.RoomCount(); got != 1 {
		t.Errorf("RoomCount() after empty-room cleanup = %d, want 1", got)
	}
}

func TestRoomRegistryDropSession(t *testing.T) {
	r := NewRoomRegistry()
	r.Join("abcd1234", RolePatient, "sess-x")
	r.Join("wxyz9876", RoleReception, "sess-x")
	r.Join("wxyz9876", RolePatient, "sess-y")

	// Disconnect removes the session everywhere, regardless of role.
	r.DropSession("sess-x")

	if r.HasParticipants("abcd1234") {
		t.Error("room abcd1234 should be empty after DropSession")
	}
	if !r.HasParticipants("wxyz9876") {
		t.Error("room wxyz9876 should keep the other session")
	}
}

func TestRoleValid(t *testing.T) {
	if !RolePatient.Valid() || !RoleReception.Valid() {
		t.Error("known roles should be valid")
	}
	if Role("admin").Valid() {
		t.Error("unknown role should be invalid")
	}
}
