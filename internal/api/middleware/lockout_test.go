package middleware

import (
	"testing"
	"time"
)

func TestLoginGuardLocksAfterFailures(t *testing.T) {
	g := NewLoginGuard(5, 15*time.Minute)
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return now }

	for i := 0; i < 4; i++ {
		if !g.Allowed("desk1") {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
		g.RecordFailure("desk1")
	}

	// Fifth failure trips the lock.
	g.RecordFailure("desk1")
	if g.Allowed("desk1") {
		t.Fatal("expected desk1 to be locked after 5 failures")
	}

	// Other usernames are unaffected.
	if !g.Allowed("desk2") {
		t.Fatal("desk2 should not be locked")
	}

	// Lock expires after the window.
	now = now.Add(16 * time.Minute)
	if !g.Allowed("desk1") {
		t.Fatal("expected lock to expire after the window")
	}
}

func TestLoginGuardWindowResets(t *testing.T) {
	g := NewLoginGuard(5, 15*time.Minute)
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return now }

	for i := 0; i < 4; i++ {
		g.RecordFailure("desk1")
	}

	// Failures outside the window start a fresh count.
	now = now.Add(20 * time.Minute)
	g.RecordFailure("desk1")
	if !g.Allowed("desk1") {
		t.Fatal("stale failures should not count toward the lock")
	}
}

func TestLoginGuardSuccessClearsFailures(t *testing.T) {
	g := NewLoginGuard(5, 15*time.Minute)

	for i := 0; i < 4; i++ {
		g.RecordFailure("desk1")
	}
	g.RecordSuccess("desk1")
	g.RecordFailure("desk1")

	if !g.Allowed("desk1") {
		t.Fatal("success should reset the failure count")
	}
}

func TestLoginGuardNormalizesUsername(t *testing.T) {
	g := NewLoginGuard(2, 15*time.Minute)

	g.RecordFailure("Desk1")
	g.RecordFailure("  desk1 ")

	if g.Allowed("desk1") {
		t.Fatal("expected case/whitespace variants to count against the same username")
	}
}
