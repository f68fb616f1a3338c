// Package gametimer implements the server-authoritative countdown that
// drives each room's answering phase. No client clock is ever trusted:
// elapsed and remaining time are always computed from the timer's own
// start/end timestamps.
package gametimer

import (
	"log"
	"sync"
	"time"

	"quizrealm/domain"
)

// Sync is the payload handed to late joiners and reconnectors so their
// UI can align with the server's countdown.
type Sync struct {
	Active      bool
	ServerTime  time.Time
	StartTime   time.Time
	EndTime     time.Time
	Remaining   time.Duration
	RemainingMs int64
	Duration    time.Duration
}

// Tick is broadcast once a second while a timer is running.
type Tick struct {
	Remaining   time.Duration
	RemainingMs int64
}

type timerState struct {
	startTime time.Time
	endTime   time.Time
	totalMs   int64
	cancel    chan struct{}
}

// Service owns one countdown per room PIN.
type Service struct {
	mu      sync.Mutex
	timers  map[domain.PIN]*timerState
	onTick  func(pin domain.PIN, tick Tick)
	onStart func(pin domain.PIN, sync Sync)
}

// New constructs a Service. onTick is invoked roughly once a second for
// every active timer; onStart is invoked once, synchronously, when a
// timer starts, mirroring the immediate timer_started + initial tick the
// dispatcher must emit.
func New(onTick func(pin domain.PIN, tick Tick), onStart func(pin domain.PIN, sync Sync)) *Service {
	return &Service{
		timers:  make(map[domain.PIN]*timerState),
		onTick:  onTick,
		onStart: onStart,
	}
}

// StartTimer cancels any existing timer for pin and starts a new
// countdown of durationSeconds, invoking onExpire when it elapses (unless
// stopped first). onExpire runs on its own goroutine so it can safely
// re-enter the use-case layer.
func (s *Service) StartTimer(pin domain.PIN, durationSeconds int, onExpire func(pin domain.PIN)) {
	s.mu.Lock()
	s.cancelLocked(pin)

	now := time.Now()
	total := time.Duration(durationSeconds) * time.Second
	state := &timerState{
		startTime: now,
		endTime:   now.Add(total),
		totalMs:   total.Milliseconds(),
		cancel:    make(chan struct{}),
	}
	s.timers[pin] = state
	s.mu.Unlock()

	if s.onStart != nil {
		s.onStart(pin, s.syncFor(state, now))
	}
	if s.onTick != nil {
		s.onTick(pin, Tick{Remaining: total, RemainingMs: total.Milliseconds()})
	}

	go s.run(pin, state, onExpire)
}

func (s *Service) run(pin domain.PIN, state *timerState, onExpire func(pin domain.PIN)) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	deadline := time.NewTimer(time.Until(state.endTime))
	defer deadline.Stop()

	for {
		select {
		case <-state.cancel:
			return
		case <-ticker.C:
			remaining := time.Until(state.endTime)
			if remaining < 0 {
				remaining = 0
			}
			if s.onTick != nil {
				s.onTick(pin, Tick{Remaining: remaining, RemainingMs: remaining.Milliseconds()})
			}
			if remaining <= 0 {
				ticker.Stop()
			}
		case <-deadline.C:
			s.mu.Lock()
			current, ok := s.timers[pin]
			if ok && current == state {
				delete(s.timers, pin)
			}
			s.mu.Unlock()
			if ok && current == state {
				defer func() {
					if r := recover(); r != nil {
						log.Printf("⏱️  gametimer: onExpire panic for pin %s: %v", pin, r)
					}
				}()
				onExpire(pin)
			}
			return
		}
	}
}

// StopTimer cancels the timer for pin, if any. Idempotent.
func (s *Service) StopTimer(pin domain.PIN) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked(pin)
}

func (s *Service) cancelLocked(pin domain.PIN) {
	if existing, ok := s.timers[pin]; ok {
		close(existing.cancel)
		delete(s.timers, pin)
	}
}

// StopAll cancels every active timer, used during graceful shutdown.
func (s *Service) StopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for pin := range s.timers {
		s.cancelLocked(pin)
	}
}

// GetElapsedTime returns the time elapsed since the timer for pin
// started, or false if no timer is active. This is the authoritative
// source fed into submitAnswer; clients never get to set their own
// elapsed time.
func (s *Service) GetElapsedTime(pin domain.PIN) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.timers[pin]
	if !ok {
		return 0, false
	}
	elapsed := time.Since(state.startTime)
	if elapsed > time.Duration(state.totalMs)*time.Millisecond {
		elapsed = time.Duration(state.totalMs) * time.Millisecond
	}
	if elapsed < 0 {
		elapsed = 0
	}
	return elapsed, true
}

// GetRemainingTime returns how long is left on the timer for pin.
func (s *Service) GetRemainingTime(pin domain.PIN) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.timers[pin]
	if !ok {
		return 0
	}
	remaining := time.Until(state.endTime)
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// IsTimerActive reports whether pin currently has a running timer.
func (s *Service) IsTimerActive(pin domain.PIN) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[pin]
	return ok
}

// IsTimeExpired reports whether the timer for pin has elapsed. A missing
// timer counts as expired.
func (s *Service) IsTimeExpired(pin domain.PIN) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.timers[pin]
	if !ok {
		return true
	}
	return !time.Now().Before(state.endTime)
}

// GetTimerSync builds the alignment payload for a late joiner or
// reconnector.
func (s *Service) GetTimerSync(pin domain.PIN) Sync {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.timers[pin]
	if !ok {
		return Sync{Active: false, ServerTime: time.Now()}
	}
	return s.syncFor(state, time.Now())
}

func (s *Service) syncFor(state *timerState, now time.Time) Sync {
	remaining := state.endTime.Sub(now)
	if remaining < 0 {
		remaining = 0
	}
	return Sync{
		Active:      true,
		ServerTime:  now,
		StartTime:   state.startTime,
		EndTime:     state.endTime,
		Remaining:   remaining,
		RemainingMs: remaining.Milliseconds(),
		Duration:    time.Duration(state.totalMs) * time.Millisecond,
	}
}
