package middleware

import (
	"strings"
	"sync"
	"time"
)

// lockoutEntry tracks failed login attempts for a single username.
type lockoutEntry struct {
	failures    int
	windowStart time.Time
	lockedUntil time.Time
}

// LoginGuard tracks failed login attempts per username and locks a username
// out after too many failures inside the window. It deliberately keys on the
// claimed username rather than IP so distributed guessing against one account
// is also slowed.
type LoginGuard struct {
	mu       sync.Mutex
	entries  map[string]*lockoutEntry
	maxFails int
	window   time.Duration
	now      func() time.Time
}

// NewLoginGuard creates a guard that locks a username for the window duration
// after maxFails failures within that same window.
func NewLoginGuard(maxFails int, window time.Duration) *LoginGuard {
	return &LoginGuard{
		entries:  make(map[string]*lockoutEntry),
		maxFails: maxFails,
		window:   window,
		now:      time.Now,
	}
}

// Allowed reports whether a login attempt for the username may proceed.
func (g *LoginGuard) Allowed(username string) bool {
	key := normalizeUsername(username)

	g.mu.Lock()
	defer g.mu.Unlock()

	entry, ok := g.entries[key]
	if !ok {
		return true
	}

	now := g.now()
	if !entry.lockedUntil.IsZero() {
		if now.Before(entry.lockedUntil) {
			return false
		}
		// Lock expired; start fresh.
		delete(g.entries, key)
		return true
	}

	if now.Sub(entry.windowStart) > g.window {
		delete(g.entries, key)
	}
	return true
}

// RecordFailure registers a failed attempt. Reaching the failure limit locks
// the username for the configured window.
func (g *LoginGuard) RecordFailure(username string) {
	key := normalizeUsername(username)

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	entry, ok := g.entries[key]
	if !ok || now.Sub(entry.windowStart) > g.window {
		entry = &lockoutEntry{windowStart: now}
		g.entries[key] = entry
	}

	entry.failures++
	if entry.failures >= g.maxFails {
		entry.lockedUntil = now.Add(g.window)
	}
}

// RecordSuccess clears the failure history for the username.
func (g *LoginGuard) RecordSuccess(username string) {
	key := normalizeUsername(username)

	g.mu.Lock()
	delete(g.entries, key)
	g.mu.Unlock()
}

func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
