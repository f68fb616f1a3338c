package cleanup

import (
	"context"
	"sync"
	"testing"
	"time"

	"quizrealm/domain"
	"quizrealm/gametimer"
	"quizrealm/keylock"
	"quizrealm/ratelimit"
	"quizrealm/registry"
	"quizrealm/usecases"
)

type fakeQuizRepo struct{}

func (fakeQuizRepo) FindByID(ctx context.Context, id string) (domain.Quiz, error) {
	return domain.Quiz{}, nil
}
func (fakeQuizRepo) IncrementPlayCount(ctx context.Context, id string) error { return nil }

type fakeSessionRepo struct {
	mu    sync.Mutex
	saved []domain.GameSession
}

func (f *fakeSessionRepo) Save(ctx context.Context, s domain.GameSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, s)
	return nil
}
func (f *fakeSessionRepo) FindByHost(ctx context.Context, hostUserID uint, page, limit int) ([]domain.GameSession, error) {
	return nil, nil
}
func (f *fakeSessionRepo) FindByQuiz(ctx context.Context, quizID string, page, limit int) ([]domain.GameSession, error) {
	return nil, nil
}
func (f *fakeSessionRepo) GetRecent(ctx context.Context, limit int) ([]domain.GameSession, error) {
	return nil, nil
}
func (f *fakeSessionRepo) DeleteByQuiz(ctx context.Context, quizID string) (int, error) { return 0, nil }
func (f *fakeSessionRepo) DeleteByHost(ctx context.Context, hostUserID uint) (int, error) {
	return 0, nil
}

type recordingBroadcaster struct {
	mu       sync.Mutex
	events   []string
	dropped  []domain.PIN
}

func (b *recordingBroadcaster) BroadcastToRoom(pin domain.PIN, event string, data interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *recordingBroadcaster) DropRoomSockets(pin domain.PIN) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dropped = append(b.dropped, pin)
}

func newFixture(cfg Config) (*Service, *registry.Registry, *usecases.GameUseCases, *recordingBroadcaster) {
	reg := registry.New()
	game := usecases.NewGameUseCases(reg, fakeQuizRepo{}, &fakeSessionRepo{})
	timer := gametimer.New(nil, nil)
	limiter := ratelimit.New()
	joinLocks := keylock.New()
	b := &recordingBroadcaster{}
	svc := New(cfg, reg, game, timer, limiter, joinLocks, b)
	return svc, reg, game, b
}

func TestSweepRemovesEmptyRoomPastTimeout(t *testing.T) {
	cfg := Config{PlayerGrace: time.Minute, HostGrace: time.Minute, EmptyRoomTimeout: time.Second, IdleRoomTimeout: time.Hour, Interval: time.Hour}
	svc, reg, _, b := newFixture(cfg)

	room := domain.NewRoom("room-1", domain.PIN("123456"), "conn-host", 1, "host-token", time.Now().Add(-time.Hour))
	reg.Save(room)

	svc.now = func() time.Time { return time.Now() }
	svc.sweepOnce()

	if _, ok := reg.GetByPIN(room.PIN); ok {
		t.Fatal("expected the stale empty room to be removed")
	}
	found := false
	for _, e := range b.events {
		if e == "room_closed" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected a room_closed broadcast")
	}
}

func TestSweepArchivesInterruptedGameOnHostTimeout(t *testing.T) {
	cfg := Config{PlayerGrace: time.Hour, HostGrace: time.Millisecond, EmptyRoomTimeout: time.Hour, IdleRoomTimeout: time.Hour, Interval: time.Hour}
	svc, reg, _, _ := newFixture(cfg)

	room := domain.NewRoom("room-1", domain.PIN("123456"), "conn-host", 1, "host-token", time.Now())
	quiz := domain.Quiz{ID: "quiz-1", Questions: []domain.Question{{
		ID: "q1", Text: "?", Type: domain.TrueFalse, Options: []string{"a", "b"},
		TimeLimitSeconds: 30, Points: 1000,
	}}}
	if err := room.SetQuizSnapshot(quiz, time.Now()); err != nil {
		t.Fatalf("SetQuizSnapshot: %v", err)
	}
	room.SetHostDisconnected(time.Now().Add(-time.Hour))
	reg.Save(room)

	svc.sweepOnce()

	if _, ok := reg.GetByPIN(room.PIN); ok {
		t.Fatal("expected the room to be deleted after interrupted archival")
	}
}

func TestSweepSkipsWhenAlreadyRunning(t *testing.T) {
	cfg := Config{PlayerGrace: time.Hour, HostGrace: time.Hour, EmptyRoomTimeout: time.Hour, IdleRoomTimeout: time.Hour, Interval: time.Hour}
	svc, _, _, _ := newFixture(cfg)
	svc.running = 1
	svc.sweepOnce() // should be a no-op, not a panic or deadlock
}
