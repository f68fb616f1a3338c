// Package ratelimit implements the per-connection, per-event fixed-window
// limiter, generalizing the teacher's TokenBucket/RateLimiter pair from
// middleware/ratelimit.go into a keyed map over (connectionId, event)
// with per-event-kind policies instead of a single global bucket.
package ratelimit

import (
	"sync"
	"time"
)

// Policy is the {maxRequests, window} pair for one event kind.
type Policy struct {
	MaxRequests int
	Window      time.Duration
}

// DefaultPolicy applies to any event kind not explicitly listed.
var DefaultPolicy = Policy{MaxRequests: 30, Window: time.Minute}

// Policies holds the non-exhaustive key policy table.
var Policies = map[string]Policy{
	"submit_answer":     {MaxRequests: 5, Window: 10 * time.Second},
	"join_room":         {MaxRequests: 5, Window: time.Minute},
	"create_room":       {MaxRequests: 3, Window: time.Minute},
	"reconnect_player":  {MaxRequests: 5, Window: time.Minute},
	"reconnect_host":    {MaxRequests: 5, Window: time.Minute},
	"reconnect_spectator": {MaxRequests: 5, Window: time.Minute},
	"start_game":        {MaxRequests: 3, Window: time.Minute},
	"start_answering":   {MaxRequests: 10, Window: time.Minute},
	"end_answering":     {MaxRequests: 10, Window: time.Minute},
	"show_leaderboard":  {MaxRequests: 10, Window: time.Minute},
	"next_question":     {MaxRequests: 10, Window: time.Minute},
}

type window struct {
	count     int
	resetAt   time.Time
}

// Limiter tracks a fixed-window counter per (connectionId, event).
type Limiter struct {
	mu       sync.Mutex
	windows  map[string]*window
	policies map[string]Policy
	fallback Policy
}

// New constructs a Limiter using the package-level Policies table.
func New() *Limiter {
	return &Limiter{
		windows:  make(map[string]*window),
		policies: Policies,
		fallback: DefaultPolicy,
	}
}

func key(connectionID, event string) string {
	return connectionID + "\x00" + event
}

func (l *Limiter) policyFor(event string) Policy {
	if p, ok := l.policies[event]; ok {
		return p
	}
	return l.fallback
}

// Allow reports whether the event is permitted for connectionID right
// now. On refusal it returns the number of seconds the caller should
// wait before retrying.
func (l *Limiter) Allow(connectionID, event string, now time.Time) (allowed bool, retryAfterSeconds int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	policy := l.policyFor(event)
	k := key(connectionID, event)
	w, ok := l.windows[k]
	if !ok || now.After(w.resetAt) {
		l.windows[k] = &window{count: 1, resetAt: now.Add(policy.Window)}
		return true, 0
	}
	if w.count >= policy.MaxRequests {
		retryAfter := int(w.resetAt.Sub(now).Seconds())
		if retryAfter < 1 {
			retryAfter = 1
		}
		return false, retryAfter
	}
	w.count++
	return true, 0
}

// DropConnection removes every window belonging to connectionID, called
// when the connection closes.
func (l *Limiter) DropConnection(connectionID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	prefix := connectionID + "\x00"
	for k := range l.windows {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			delete(l.windows, k)
		}
	}
}

// Sweep purges windows that have already reset and returns how many were
// removed; the cleanup service calls it on every sweep pass.
func (l *Limiter) Sweep(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	for k, w := range l.windows {
		if now.After(w.resetAt) {
			delete(l.windows, k)
			removed++
		}
	}
	return removed
}
