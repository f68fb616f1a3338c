package usecases

import (
	"context"
	"sync"
	"testing"
	"time"

	"quizrealm/apperrors"
	"quizrealm/domain"
	"quizrealm/registry"
)

type fakeSessionRepo struct {
	mu    sync.Mutex
	saved []domain.GameSession
}

func (f *fakeSessionRepo) Save(ctx context.Context, session domain.GameSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, session)
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

func newGameFixture(t *testing.T) (*RoomUseCases, *GameUseCases, *domain.Room) {
	t.Helper()
	reg := registry.New()
	quizRepo := &fakeQuizRepo{quiz: testQuizWithQuestions(2)}
	ru := NewRoomUseCases(reg, quizRepo)
	ru.Now = func() time.Time { return fixedNowUC }
	gu := NewGameUseCases(reg, quizRepo, &fakeSessionRepo{})
	gu.Now = func() time.Time { return fixedNowUC }

	room, _, err := ru.CreateRoom(context.Background(), 1, "conn-host", "quiz-1")
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if _, err := ru.JoinRoom(context.Background(), room.PIN, "Alice", "conn-a"); err != nil {
		t.Fatalf("JoinRoom: %v", err)
	}
	return ru, gu, room
}

func TestStartGameInstallsSnapshotAndTransitions(t *testing.T) {
	_, gu, room := newGameFixture(t)

	result, err := gu.StartGame(context.Background(), room.PIN, "conn-host")
	if err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	if result.TotalQuestions != 2 {
		t.Fatalf("TotalQuestions = %d, want 2", result.TotalQuestions)
	}
	if room.CurrentState() != domain.QuestionIntro {
		t.Fatalf("state = %s, want QUESTION_INTRO", room.CurrentState())
	}
}

func TestStartGameRejectsNonHost(t *testing.T) {
	_, gu, room := newGameFixture(t)
	if _, err := gu.StartGame(context.Background(), room.PIN, "conn-a"); !apperrors.Is(err, apperrors.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestSubmitAnswerScoresAndEndsOnAllAnswered(t *testing.T) {
	_, gu, room := newGameFixture(t)
	if _, err := gu.StartGame(context.Background(), room.PIN, "conn-host"); err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	if _, err := gu.StartAnsweringPhase(context.Background(), room.PIN, "conn-host"); err != nil {
		t.Fatalf("StartAnsweringPhase: %v", err)
	}

	correct, awarded, allAnswered, err := gu.SubmitAnswer(context.Background(), room.PIN, "conn-a", 0)
	if err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}
	if !correct {
		t.Fatal("expected the correct option to score")
	}
	if awarded <= 0 {
		t.Fatalf("awarded = %d, want > 0", awarded)
	}
	if !allAnswered {
		t.Fatal("the only connected player answered; expected allAnswered")
	}
	if room.CurrentState() != domain.ShowResults {
		t.Fatalf("state = %s, want SHOW_RESULTS after auto-advance", room.CurrentState())
	}
}

func TestSubmitAnswerRejectsDoubleSubmission(t *testing.T) {
	ru, gu, room := newGameFixture(t)
	// second player so all-answered auto-advance doesn't fire on the first submit
	if _, err := ru.JoinRoom(context.Background(), room.PIN, "Bob", "conn-b"); err != nil {
		t.Fatalf("JoinRoom(Bob): %v", err)
	}
	if _, err := gu.StartGame(context.Background(), room.PIN, "conn-host"); err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	if _, err := gu.StartAnsweringPhase(context.Background(), room.PIN, "conn-host"); err != nil {
		t.Fatalf("StartAnsweringPhase: %v", err)
	}
	if _, _, _, err := gu.SubmitAnswer(context.Background(), room.PIN, "conn-a", 0); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if _, _, _, err := gu.SubmitAnswer(context.Background(), room.PIN, "conn-a", 0); !apperrors.Is(err, apperrors.KindConflict) {
		t.Fatalf("expected conflict on double submission, got %v", err)
	}
}

func TestFullRoundFlowReachesPodium(t *testing.T) {
	_, gu, room := newGameFixture(t)
	if _, err := gu.StartGame(context.Background(), room.PIN, "conn-host"); err != nil {
		t.Fatalf("StartGame: %v", err)
	}

	for i := 0; i < 2; i++ {
		if _, err := gu.StartAnsweringPhase(context.Background(), room.PIN, "conn-host"); err != nil {
			t.Fatalf("StartAnsweringPhase[%d]: %v", i, err)
		}
		if _, _, _, err := gu.SubmitAnswer(context.Background(), room.PIN, "conn-a", 0); err != nil {
			t.Fatalf("SubmitAnswer[%d]: %v", i, err)
		}
		if room.CurrentState() != domain.ShowResults {
			t.Fatalf("round %d: state = %s, want SHOW_RESULTS", i, room.CurrentState())
		}
		if _, err := gu.ShowLeaderboard(context.Background(), room.PIN, "conn-host"); err != nil {
			t.Fatalf("ShowLeaderboard[%d]: %v", i, err)
		}
		next, err := gu.NextQuestion(context.Background(), room.PIN, "conn-host")
		if err != nil {
			t.Fatalf("NextQuestion[%d]: %v", i, err)
		}
		if i == 0 && !next.HasMore {
			t.Fatal("expected a second question to remain")
		}
		if i == 1 && next.HasMore {
			t.Fatal("expected the podium after the final question")
		}
	}
	if room.CurrentState() != domain.Podium {
		t.Fatalf("final state = %s, want PODIUM", room.CurrentState())
	}
}

func TestArchiveGameDeletesRoomAndPersists(t *testing.T) {
	reg := registry.New()
	quizRepo := &fakeQuizRepo{quiz: testQuizWithQuestions(1)}
	ru := NewRoomUseCases(reg, quizRepo)
	sessionRepo := &fakeSessionRepo{}
	gu := NewGameUseCases(reg, quizRepo, sessionRepo)
	gu.Now = func() time.Time { return fixedNowUC }

	room, _, _ := ru.CreateRoom(context.Background(), 1, "conn-host", "quiz-1")
	if _, err := ru.JoinRoom(context.Background(), room.PIN, "Alice", "conn-a"); err != nil {
		t.Fatalf("JoinRoom: %v", err)
	}

	session, err := gu.ArchiveGame(context.Background(), room.PIN)
	if err != nil {
		t.Fatalf("ArchiveGame: %v", err)
	}
	if session.PlayerCount != 1 {
		t.Fatalf("PlayerCount = %d, want 1", session.PlayerCount)
	}
	if len(sessionRepo.saved) != 1 {
		t.Fatalf("expected exactly one archived session, got %d", len(sessionRepo.saved))
	}
	if _, ok := reg.GetByPIN(room.PIN); ok {
		t.Fatal("expected the room to be removed from the registry after archival")
	}
}

func TestArchiveGameToleratesMissingRoom(t *testing.T) {
	reg := registry.New()
	quizRepo := &fakeQuizRepo{quiz: testQuizWithQuestions(1)}
	gu := NewGameUseCases(reg, quizRepo, &fakeSessionRepo{})

	if _, err := gu.ArchiveGame(context.Background(), domain.PIN("000000")); err != nil {
		t.Fatalf("archiving an already-gone room should be a benign no-op, got %v", err)
	}
}
