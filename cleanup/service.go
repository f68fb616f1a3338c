// Package cleanup implements the background sweep that evicts stale
// players, times out orphaned or idle rooms, and archives interrupted
// games. It replaces the teacher's services/cleanup.go stub, which
// never got past a Start/Stop no-op, with the real periodic sweep the
// teacher's own background-ticker pattern (services/cleanup.go's
// intended shape, and the ticker loop gametimer.Service.run borrows
// from) was left to grow into.
package cleanup

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"quizrealm/domain"
	"quizrealm/gametimer"
	"quizrealm/keylock"
	"quizrealm/ratelimit"
	"quizrealm/registry"
	"quizrealm/usecases"
)

// Config holds the timeouts the sweep enforces, sourced from
// config.Config so a single env-var surface governs both.
type Config struct {
	PlayerGrace      time.Duration
	HostGrace        time.Duration
	EmptyRoomTimeout time.Duration
	IdleRoomTimeout  time.Duration
	Interval         time.Duration
}

// Broadcaster is the narrow slice of the transport layer the sweep
// needs to announce removals and closures; kept as an interface so this
// package never imports transport directly.
type Broadcaster interface {
	BroadcastToRoom(pin domain.PIN, event string, data interface{})
	DropRoomSockets(pin domain.PIN)
}

// Service runs the periodic sweep described for RoomCleanupService.
type Service struct {
	cfg         Config
	registry    *registry.Registry
	game        *usecases.GameUseCases
	timer       *gametimer.Service
	rateLimiter *ratelimit.Limiter
	joinLocks   *keylock.Locker
	broadcaster Broadcaster
	now         func() time.Time

	running int32 // non-reentrancy guard, per spec
	stop    chan struct{}
	wg      sync.WaitGroup
}

// New wires a cleanup Service. All collaborators are shared with the
// rest of the server: there is exactly one registry, one timer service,
// and one rate limiter per process.
func New(cfg Config, reg *registry.Registry, game *usecases.GameUseCases, timer *gametimer.Service, limiter *ratelimit.Limiter, joinLocks *keylock.Locker, broadcaster Broadcaster) *Service {
	return &Service{
		cfg:         cfg,
		registry:    reg,
		game:        game,
		timer:       timer,
		rateLimiter: limiter,
		joinLocks:   joinLocks,
		broadcaster: broadcaster,
		now:         time.Now,
		stop:        make(chan struct{}),
	}
}

// Start begins the periodic sweep on its own goroutine.
func (s *Service) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				s.sweepOnce()
			}
		}
	}()
}

// Stop halts the sweep loop and waits for any in-flight pass to finish.
func (s *Service) Stop() {
	close(s.stop)
	s.wg.Wait()
}

func (s *Service) sweepOnce() {
	if !atomic.CompareAndSwapInt32(&s.running, 0, 1) {
		log.Printf("🧹 cleanup: previous sweep still running, skipping this tick")
		return
	}
	defer atomic.StoreInt32(&s.running, 0)

	now := s.now()
	rooms := s.registry.All()

	for _, room := range rooms {
		s.sweepRoom(room, now)
	}

	removedWindows := s.rateLimiter.Sweep(now)
	removedLocks := s.joinLocks.Sweep(now)
	if removedWindows > 0 || removedLocks > 0 {
		log.Printf("🧹 cleanup: purged %d expired rate-limit windows, %d expired join locks", removedWindows, removedLocks)
	}
}

func (s *Service) sweepRoom(room *domain.Room, now time.Time) {
	pin := room.PIN

	for _, removed := range room.RemoveStaleDisconnectedPlayers(s.cfg.PlayerGrace, now) {
		s.registry.ReindexConnection(room)
		s.broadcaster.BroadcastToRoom(pin, "player_removed", map[string]interface{}{
			"playerId": removed.ID,
			"nickname": string(removed.Nickname),
			"reason":   "disconnect_timeout",
		})
	}

	deleteReason := s.hostGraceReason(room, now)
	if deleteReason == "" {
		deleteReason = s.lifetimeReason(room, now)
	}
	if deleteReason == "" {
		return
	}

	s.closeRoom(room, deleteReason)
}

// hostGraceReason implements step 2: host-disconnect warnings and the
// host/orphan timeout. An orphan room (host gone, zero connected
// players) uses the shorter of the two grace periods.
func (s *Service) hostGraceReason(room *domain.Room, now time.Time) string {
	disconnectedFor, disconnected := room.HostDisconnectedSince(now)
	if !disconnected {
		return ""
	}

	connectedPlayers := room.PlayerCount() - len(room.GetDisconnectedPlayers())
	grace := s.cfg.HostGrace
	reason := "host_timeout"
	if connectedPlayers == 0 {
		if s.cfg.PlayerGrace < grace {
			grace = s.cfg.PlayerGrace
		}
		reason = "orphan_room"
	}

	if disconnectedFor > grace {
		return reason
	}

	remaining := grace - disconnectedFor
	s.broadcaster.BroadcastToRoom(room.PIN, "host_disconnected_warning", map[string]interface{}{
		"remainingSeconds": int(remaining.Seconds()),
	})
	return ""
}

// lifetimeReason implements steps 3 and 4: empty-room and idle-room
// timeouts, with the idle timeout doubled for active-game states.
func (s *Service) lifetimeReason(room *domain.Room, now time.Time) string {
	age := now.Sub(room.CreatedAt)

	if room.PlayerCount() == 0 && !isActiveGameState(room.CurrentState()) && age > s.cfg.EmptyRoomTimeout {
		return "empty_room"
	}

	idleTimeout := s.cfg.IdleRoomTimeout
	reason := "idle_timeout"
	if isActiveGameState(room.CurrentState()) {
		idleTimeout *= 2
		reason = "game_timeout"
	}
	if age > idleTimeout {
		return reason
	}
	return ""
}

func isActiveGameState(state domain.RoomState) bool {
	switch state {
	case domain.QuestionIntro, domain.AnsweringPhase, domain.ShowResults, domain.Leaderboard, domain.Paused:
		return true
	default:
		return false
	}
}

// closeRoom implements step 5: archive as interrupted if a game was in
// progress, announce room_closed, drop the sockets, and delete the
// room. A room already removed by a concurrent path is tolerated.
func (s *Service) closeRoom(room *domain.Room, reason string) {
	pin := room.PIN
	s.timer.StopTimer(pin)

	if room.HasQuizSnapshot() {
		if _, err := s.game.SaveInterruptedGame(context.Background(), pin, reason); err != nil {
			// The room is still live in the registry (SaveInterruptedGame
			// only deletes it on success), so the next sweep retries the
			// archive instead of this path re-announcing a close that
			// never actually happened.
			log.Printf("⚠️  cleanup: failed to archive interrupted game for pin %s, will retry next sweep: %v", pin, err)
			return
		}
	} else {
		s.registry.Delete(pin)
	}

	s.broadcaster.BroadcastToRoom(pin, "room_closed", map[string]interface{}{"reason": reason})
	s.broadcaster.DropRoomSockets(pin)
	log.Printf("🧹 cleanup: closed room %s (%s)", pin, reason)
}
