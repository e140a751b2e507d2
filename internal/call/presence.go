package call

import "sync"

// PresenceRegistry tracks which reception agents have live realtime
// connections. An agent is online while at least one session is registered;
// multiple tabs register multiple sessions for the same agent.
//
// Presence is deliberately in-memory only: a restart drops all entries and
// agents re-register on reconnect.
type PresenceRegistry struct {
	mu       sync.RWMutex
	sessions map[int64]map[string]struct{}
}

// NewPresenceRegistry returns an empty registry.
func NewPresenceRegistry() *PresenceRegistry {
	return &PresenceRegistry{sessions: make(map[int64]map[string]struct{})}
}

// Register records a live session for the agent.
func (p *PresenceRegistry) Register(agentID int64, sessionID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	set, ok := p.sessions[agentID]
	if !ok {
		set = make(map[string]struct{})
		p.sessions[agentID] = set
	}
	set[sessionID] = struct{}{}
}

// Unregister removes a session. The agent goes offline when its last
// session is removed.
func (p *PresenceRegistry) Unregister(agentID int64, sessionID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	set, ok := p.sessions[agentID]
	if !ok {
		return
	}
	delete(set, sessionID)
	if len(set) == 0 {
		delete(p.sessions, agentID)
	}
}

// IsOnline reports whether the agent has at least one live session.
func (p *PresenceRegistry) IsOnline(agentID int64) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.sessions[agentID]) > 0
}

// Sessions returns the agent's live session IDs. Used by the signaling hub
// to emit server pushes to every tab the agent has open.
func (p *PresenceRegistry) Sessions(agentID int64) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	set := p.sessions[agentID]
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

// OnlineCount returns the number of agents currently online.
func (p *PresenceRegistry) OnlineCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.sessions)
}
