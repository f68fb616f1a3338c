package usecases

import (
	"context"
	"log"
	"time"

	"quizrealm/apperrors"
	"quizrealm/domain"
	"quizrealm/gametimer"
	"quizrealm/keylock"
	"quizrealm/registry"
)

// ServerPrincipal is the internal caller identity used by timer expiry
// and the auto-end-on-all-answered rule, which are allowed to perform
// the same transition a host's end_answering event would.
const ServerPrincipal = "server"

// GameUseCases orchestrates the question/answer/scoring/archival flow
// atop the Room aggregate and the per-PIN timer service.
type GameUseCases struct {
	Registry        *registry.Registry
	QuizRepo        QuizRepository
	SessionRepo     GameSessionRepository
	UserRepo        UserRepository
	Timer           *gametimer.Service
	PendingAnswers  *keylock.Locker
	PendingArchives *keylock.Locker
	Now             func() time.Time

	// OnAutoAdvance is invoked whenever the timer expires or the last
	// connected player answers, carrying the same results EndAnsweringPhase
	// returns to a host-initiated call, so the dispatcher can broadcast
	// show_results without this package importing the transport layer.
	OnAutoAdvance func(pin domain.PIN, results EndAnsweringResult)
}

// EndAnsweringResult is the payload produced by leaving ANSWERING_PHASE,
// shared between the host-initiated and auto-advance paths.
type EndAnsweringResult struct {
	CorrectAnswerIndex int
	Distribution       []int
	CorrectCount       int
	TotalPlayers       int
}

// NewGameUseCases wires a GameUseCases with real clocks and fresh lock
// tables. The timer's onExpire always re-enters EndAnsweringPhase as the
// server principal, per the design note that timer callbacks re-enter
// the use-case layer rather than mutating rooms directly.
func NewGameUseCases(reg *registry.Registry, quizRepo QuizRepository, sessionRepo GameSessionRepository) *GameUseCases {
	g := &GameUseCases{
		Registry:        reg,
		QuizRepo:        quizRepo,
		SessionRepo:     sessionRepo,
		PendingAnswers:  keylock.New(),
		PendingArchives: keylock.New(),
		Now:             time.Now,
	}
	g.Timer = gametimer.New(nil, nil)
	return g
}

func (g *GameUseCases) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now()
}

// StartGameResult carries what the dispatcher needs to announce
// game_started to both the host and the players.
type StartGameResult struct {
	TotalQuestions int
	HostQuestion   domain.Question
	PublicQuestion domain.PublicQuestion
}

// StartGame loads the quiz, validates via Room.StartGame, installs the
// frozen snapshot, and transitions the room to QUESTION_INTRO.
func (g *GameUseCases) StartGame(ctx context.Context, pin domain.PIN, requesterConnectionID string) (StartGameResult, error) {
	room, ok := g.Registry.GetByPIN(pin)
	if !ok {
		return StartGameResult{}, apperrors.NotFound("room not found")
	}

	quiz, err := g.QuizRepo.FindByID(ctx, room.QuizID)
	if err != nil {
		return StartGameResult{}, err
	}
	if len(quiz.Questions) == 0 {
		return StartGameResult{}, apperrors.Validation("quiz has no questions")
	}

	if err := room.StartGame(requesterConnectionID); err != nil {
		return StartGameResult{}, err
	}
	if err := room.SetQuizSnapshot(quiz, g.now()); err != nil {
		return StartGameResult{}, err
	}
	if err := room.SetState(domain.QuestionIntro); err != nil {
		return StartGameResult{}, err
	}

	go func() {
		if err := g.QuizRepo.IncrementPlayCount(context.Background(), quiz.ID); err != nil {
			log.Printf("⚠️  failed to increment play count for quiz %s: %v", quiz.ID, err)
		}
	}()

	first, err := room.CurrentQuestion()
	if err != nil {
		return StartGameResult{}, err
	}
	return StartGameResult{
		TotalQuestions: room.SnapshotLen(),
		HostQuestion:   first,
		PublicQuestion: first.Public(),
	}, nil
}

// StartAnsweringPhase transitions QUESTION_INTRO to ANSWERING_PHASE,
// clears prior answer attempts and pending-answer locks, and starts the
// per-question countdown. The timer's expiry re-enters EndAnsweringPhase
// as the server principal.
func (g *GameUseCases) StartAnsweringPhase(ctx context.Context, pin domain.PIN, requesterConnectionID string) (domain.Question, error) {
	room, ok := g.Registry.GetByPIN(pin)
	if !ok {
		return domain.Question{}, apperrors.NotFound("room not found")
	}
	if !room.IsHost(requesterConnectionID) {
		return domain.Question{}, apperrors.Forbidden("only the host may start the answering phase")
	}

	q, err := room.CurrentQuestion()
	if err != nil {
		return domain.Question{}, err
	}

	room.ClearAllAnswerAttempts()
	g.PendingAnswers.ReleasePrefix(string(pin) + ":")

	if err := room.SetState(domain.AnsweringPhase); err != nil {
		return domain.Question{}, err
	}

	g.Timer.StartTimer(pin, q.TimeLimitSeconds, func(expiredPIN domain.PIN) {
		results, err := g.EndAnsweringPhase(context.Background(), expiredPIN, ServerPrincipal)
		if err != nil {
			if !apperrors.Is(err, apperrors.KindConflict) && !apperrors.Is(err, apperrors.KindNotFound) {
				log.Printf("⚠️  timer expiry end-answering-phase error for pin %s: %v", expiredPIN, err)
			}
			return
		}
		if g.OnAutoAdvance != nil {
			g.OnAutoAdvance(expiredPIN, results)
		}
	})

	return q, nil
}

// SubmitAnswer runs the four-phase submit-answer transaction described
// in the design: shape validation, per-connection lock acquisition,
// authoritative scoring through the Room aggregate, and lock release.
// elapsedMs always comes from the timer service, never from the client.
func (g *GameUseCases) SubmitAnswer(ctx context.Context, pin domain.PIN, connectionID string, answerIndex int) (correct bool, awarded int, allAnswered bool, err error) {
	if answerIndex < 0 {
		return false, 0, false, apperrors.Validation("answerIndex must be non-negative")
	}

	lockKey := string(pin) + ":" + connectionID
	if !g.PendingAnswers.TryAcquire(lockKey, g.now()) {
		return false, 0, false, apperrors.Conflict("answer submission in progress")
	}
	defer g.PendingAnswers.Release(lockKey)

	room, ok := g.Registry.GetByPIN(pin)
	if !ok {
		return false, 0, false, apperrors.NotFound("room not found")
	}
	player, ok := room.FindPlayerByConnectionID(connectionID)
	if !ok {
		return false, 0, false, apperrors.NotFound("player not in room")
	}

	elapsed, hasTimer := g.Timer.GetElapsedTime(pin)
	if !hasTimer {
		// The timer already expired and EndAnsweringPhase may be mid-flight
		// transitioning the room out of AnsweringPhase: treat this submit as
		// landing at the buzzer (full time elapsed), not instantaneously, so
		// RecordAnswer's scoring floor still applies instead of awarding full
		// points to an answer that only raced the timer-expiry goroutine.
		q, qErr := room.CurrentQuestion()
		if qErr != nil {
			return false, 0, false, qErr
		}
		elapsed = time.Duration(q.TimeLimitSeconds) * time.Second
	}

	correct, awarded, allAnswered, err = room.RecordAnswer(player.ID, room.QuestionIndex(), answerIndex, elapsed.Milliseconds(), g.now())
	if err != nil {
		return false, 0, false, err
	}

	if allAnswered {
		g.Timer.StopTimer(pin)
		results, endErr := g.EndAnsweringPhase(ctx, pin, ServerPrincipal)
		if endErr != nil {
			if !apperrors.Is(endErr, apperrors.KindConflict) {
				log.Printf("⚠️  auto-end-on-all-answered error for pin %s: %v", pin, endErr)
			}
		} else if g.OnAutoAdvance != nil {
			g.OnAutoAdvance(pin, results)
		}
	}
	return correct, awarded, allAnswered, nil
}

// EndAnsweringPhase transitions ANSWERING_PHASE to SHOW_RESULTS. It is
// idempotent with respect to the state machine: calling it when the room
// has already left ANSWERING_PHASE (e.g. the timer firing after
// all-answered already advanced it) returns a benign Conflict error
// the caller is expected to swallow.
func (g *GameUseCases) EndAnsweringPhase(ctx context.Context, pin domain.PIN, requesterPrincipal string) (EndAnsweringResult, error) {
	room, ok := g.Registry.GetByPIN(pin)
	if !ok {
		return EndAnsweringResult{}, apperrors.NotFound("room not found")
	}
	if requesterPrincipal != ServerPrincipal && !room.IsHost(requesterPrincipal) {
		return EndAnsweringResult{}, apperrors.Forbidden("only the host may end the answering phase")
	}
	if room.CurrentState() != domain.AnsweringPhase {
		return EndAnsweringResult{}, apperrors.Conflict("room is not in the answering phase")
	}

	g.Timer.StopTimer(pin)

	q, err := room.CurrentQuestion()
	if err != nil {
		return EndAnsweringResult{}, err
	}
	dist, correctCnt, _ := room.GetAnswerDistribution(len(q.Options), q.IsCorrect)

	if err := room.SetState(domain.ShowResults); err != nil {
		return EndAnsweringResult{}, err
	}
	return EndAnsweringResult{
		CorrectAnswerIndex: q.CorrectAnswerIndex,
		Distribution:       dist,
		CorrectCount:       correctCnt,
		TotalPlayers:       room.PlayerCount(),
	}, nil
}

// ShowLeaderboard transitions SHOW_RESULTS to LEADERBOARD.
func (g *GameUseCases) ShowLeaderboard(ctx context.Context, pin domain.PIN, requesterConnectionID string) ([]domain.Player, error) {
	room, ok := g.Registry.GetByPIN(pin)
	if !ok {
		return nil, apperrors.NotFound("room not found")
	}
	if !room.IsHost(requesterConnectionID) {
		return nil, apperrors.Forbidden("only the host may show the leaderboard")
	}
	if err := room.SetState(domain.Leaderboard); err != nil {
		return nil, err
	}
	return room.GetLeaderboard(), nil
}

// NextQuestionResult distinguishes "advance to another question" from
// "that was the last one, show the podium".
type NextQuestionResult struct {
	HasMore        bool
	HostQuestion   domain.Question
	PublicQuestion domain.PublicQuestion
	Podium         []domain.Player
}

// NextQuestion advances the room from LEADERBOARD to either
// QUESTION_INTRO (with the next question) or PODIUM (with final
// standings).
func (g *GameUseCases) NextQuestion(ctx context.Context, pin domain.PIN, requesterConnectionID string) (NextQuestionResult, error) {
	room, ok := g.Registry.GetByPIN(pin)
	if !ok {
		return NextQuestionResult{}, apperrors.NotFound("room not found")
	}
	hasMore, err := room.NextQuestion(requesterConnectionID, room.SnapshotLen())
	if err != nil {
		return NextQuestionResult{}, err
	}
	if !hasMore {
		return NextQuestionResult{HasMore: false, Podium: room.GetPodium()}, nil
	}
	q, err := room.CurrentQuestion()
	if err != nil {
		return NextQuestionResult{}, err
	}
	return NextQuestionResult{HasMore: true, HostQuestion: q, PublicQuestion: q.Public()}, nil
}

// GetResults returns the current leaderboard, used by get_results-style
// queries outside the normal flow.
func (g *GameUseCases) GetResults(ctx context.Context, pin domain.PIN) ([]domain.Player, error) {
	room, ok := g.Registry.GetByPIN(pin)
	if !ok {
		return nil, apperrors.NotFound("room not found")
	}
	return room.GetLeaderboard(), nil
}

// PauseGame and ResumeGame delegate straight to the Room aggregate.
func (g *GameUseCases) PauseGame(ctx context.Context, pin domain.PIN, requesterConnectionID string) error {
	room, ok := g.Registry.GetByPIN(pin)
	if !ok {
		return apperrors.NotFound("room not found")
	}
	return room.Pause(requesterConnectionID, g.now())
}

func (g *GameUseCases) ResumeGame(ctx context.Context, pin domain.PIN, requesterConnectionID string) error {
	room, ok := g.Registry.GetByPIN(pin)
	if !ok {
		return apperrors.NotFound("room not found")
	}
	return room.Resume(requesterConnectionID)
}

// ArchiveGame builds the final GameSession record from the room's answer
// history and leaderboard, persists it, and deletes the room. A room
// that has already been removed by a concurrent caller is tolerated as a
// benign no-op, matching the design's "a missing room after archive is
// normal" guidance.
func (g *GameUseCases) ArchiveGame(ctx context.Context, pin domain.PIN) (domain.GameSession, error) {
	lockKey := string(pin)
	if !g.PendingArchives.TryAcquire(lockKey, g.now()) {
		return domain.GameSession{}, apperrors.Conflict("archival already in progress")
	}
	defer g.PendingArchives.Release(lockKey)

	room, ok := g.Registry.GetByPIN(pin)
	if !ok {
		return domain.GameSession{}, nil
	}

	session := g.buildSession(ctx, room, domain.StatusCompleted, "")
	if err := g.SessionRepo.Save(ctx, session); err != nil {
		return domain.GameSession{}, err
	}

	g.PendingAnswers.ReleasePrefix(string(pin) + ":")
	g.Registry.Delete(pin)
	return session, nil
}

// SaveInterruptedGame archives an in-progress game as interrupted,
// called by cleanup and graceful shutdown. A room with no quiz snapshot
// never started a game and is simply deleted without an archive.
func (g *GameUseCases) SaveInterruptedGame(ctx context.Context, pin domain.PIN, reason string) (domain.GameSession, error) {
	lockKey := string(pin)
	if !g.PendingArchives.TryAcquire(lockKey, g.now()) {
		return domain.GameSession{}, apperrors.Conflict("archival already in progress")
	}
	defer g.PendingArchives.Release(lockKey)

	room, ok := g.Registry.GetByPIN(pin)
	if !ok {
		return domain.GameSession{}, nil
	}
	if !room.HasQuizSnapshot() {
		g.Registry.Delete(pin)
		return domain.GameSession{}, nil
	}

	session := g.buildSession(ctx, room, domain.StatusInterrupted, reason)
	session.LastQuestionIndex = room.QuestionIndex()
	session.LastState = room.CurrentState()

	if err := g.SessionRepo.Save(ctx, session); err != nil {
		return domain.GameSession{}, err
	}

	g.PendingAnswers.ReleasePrefix(string(pin) + ":")
	g.Registry.Delete(pin)
	return session, nil
}

func (g *GameUseCases) buildSession(ctx context.Context, room *domain.Room, status domain.GameSessionStatus, reason string) domain.GameSession {
	leaderboard := room.GetLeaderboard()
	history := room.AnswerHistorySnapshot()

	type tally struct {
		correct, wrong  int
		elapsedSum      int64
		elapsedCount    int
	}
	tallies := make(map[string]*tally, len(leaderboard))
	for _, rec := range history {
		t, ok := tallies[rec.PlayerID]
		if !ok {
			t = &tally{}
			tallies[rec.PlayerID] = t
		}
		if rec.Correct {
			t.correct++
		} else {
			t.wrong++
		}
		t.elapsedSum += rec.ElapsedMs
		t.elapsedCount++
	}

	results := make([]domain.PlayerResult, len(leaderboard))
	for i, p := range leaderboard {
		t := tallies[p.ID]
		avg := 0
		if t != nil && t.elapsedCount > 0 {
			avg = int(t.elapsedSum / int64(t.elapsedCount))
		}
		correct, wrong := 0, 0
		if t != nil {
			correct, wrong = t.correct, t.wrong
		}
		results[i] = domain.PlayerResult{
			PlayerID:              p.ID,
			Username:              string(p.Nickname),
			Rank:                  i + 1,
			Score:                 int(p.Score),
			CorrectAnswers:        correct,
			WrongAnswers:          wrong,
			AverageResponseTimeMs: avg,
			LongestStreak:         p.LongestStreak,
		}
	}

	answers := make([]domain.AnswerRecordView, len(history))
	for i, rec := range history {
		answers[i] = domain.AnswerRecordView{
			PlayerID:       rec.PlayerID,
			QuestionIndex:  rec.QuestionIndex,
			AnswerIndex:    rec.AnswerIndex,
			Correct:        rec.Correct,
			Score:          rec.Score,
			ResponseTimeMs: int(rec.ElapsedMs),
			SubmittedAt:    rec.SubmittedAt,
		}
	}

	startedAt := room.CreatedAt
	if gameStarted := room.StartedAt(); gameStarted != nil {
		startedAt = *gameStarted
	}

	hostUsername := ""
	if g.UserRepo != nil && room.HostUserID != 0 {
		if u, err := g.UserRepo.FindByID(ctx, room.HostUserID); err != nil {
			log.Printf("⚠️  failed to resolve host username for user %d: %v", room.HostUserID, err)
		} else {
			hostUsername = u.Username
		}
	}

	return domain.GameSession{
		PIN:                room.PIN,
		QuizID:             room.QuizID,
		HostUserID:         room.HostUserID,
		HostUsername:       hostUsername,
		PlayerCount:        len(leaderboard),
		PlayerResults:      results,
		Answers:            answers,
		StartedAt:          startedAt,
		EndedAt:            g.now(),
		Status:             status,
		InterruptionReason: reason,
	}
}
