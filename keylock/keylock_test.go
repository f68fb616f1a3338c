package keylock

import (
	"testing"
	"time"
)

func TestTryAcquireBlocksConcurrentHolder(t *testing.T) {
	l := New()
	now := time.Now()

	if !l.TryAcquire("pin-1", now) {
		t.Fatal("expected first acquire to succeed")
	}
	if l.TryAcquire("pin-1", now.Add(time.Second)) {
		t.Fatal("expected second acquire to fail while first is held")
	}
}

func TestReleaseAllowsReacquire(t *testing.T) {
	l := New()
	now := time.Now()

	l.TryAcquire("pin-1", now)
	l.Release("pin-1")

	if !l.TryAcquire("pin-1", now.Add(time.Millisecond)) {
		t.Fatal("expected acquire to succeed after release")
	}
}

func TestExpiredLockCanBeReacquired(t *testing.T) {
	l := NewWithTTL(5 * time.Second)
	now := time.Now()

	l.TryAcquire("pin-1", now)
	if !l.TryAcquire("pin-1", now.Add(10*time.Second)) {
		t.Fatal("expected acquire to succeed once the prior hold expired")
	}
}

func TestHeldReportsExpiry(t *testing.T) {
	l := NewWithTTL(time.Second)
	now := time.Now()
	l.TryAcquire("k", now)

	if !l.Held("k", now) {
		t.Fatal("expected key to be held immediately after acquire")
	}
	if l.Held("k", now.Add(2*time.Second)) {
		t.Fatal("expected key to no longer be held after TTL elapses")
	}
}

func TestReleasePrefixFreesMatchingKeysOnly(t *testing.T) {
	l := New()
	now := time.Now()
	l.TryAcquire("pin1:conn-a", now)
	l.TryAcquire("pin1:conn-b", now)
	l.TryAcquire("pin2:conn-a", now)

	l.ReleasePrefix("pin1:")

	if l.Held("pin1:conn-a", now) || l.Held("pin1:conn-b", now) {
		t.Fatal("expected pin1 locks to be released")
	}
	if !l.Held("pin2:conn-a", now) {
		t.Fatal("expected pin2 lock to remain held")
	}
}

func TestSweepRemovesOnlyExpiredEntries(t *testing.T) {
	l := NewWithTTL(5 * time.Second)
	now := time.Now()
	l.TryAcquire("stale", now)
	l.TryAcquire("fresh", now.Add(8*time.Second))

	removed := l.Sweep(now.Add(10 * time.Second))
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if l.Held("fresh", now.Add(10*time.Second)) == false {
		t.Fatal("expected the fresh lock to survive the sweep")
	}
}
