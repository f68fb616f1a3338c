package domain

import (
	"testing"
	"time"

	"quizrealm/apperrors"
)

var fixedNow = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func testQuiz() Quiz {
	return Quiz{
		ID:    "quiz-1",
		Title: "Sample",
		Questions: []Question{
			{
				ID: "q1", Text: "2+2?", Type: MultipleChoice,
				Options: []string{"3", "4", "5", "6"}, CorrectAnswerIndex: 1,
				TimeLimitSeconds: 30, Points: 1000,
			},
			{
				ID: "q2", Text: "Sky color?", Type: MultipleChoice,
				Options: []string{"Blue", "Green"}, CorrectAnswerIndex: 0,
				TimeLimitSeconds: 30, Points: 1000,
			},
		},
	}
}

func newTestRoom(t *testing.T) *Room {
	t.Helper()
	return NewRoom("room-1", PIN("123456"), "host-conn", 1, Token("host-tok"), fixedNow)
}

func addNPlayers(t *testing.T, r *Room, n int) []*Player {
	t.Helper()
	var players []*Player
	for i := 0; i < n; i++ {
		nick, err := ParseNickname("Player" + string(rune('A'+i)))
		if err != nil {
			t.Fatalf("ParseNickname: %v", err)
		}
		p := NewPlayer("player-"+string(rune('A'+i)), "conn-"+string(rune('A'+i)), nick, r.PIN, Token("tok-"+string(rune('A'+i))), fixedNow)
		if err := r.AddPlayer(p); err != nil {
			t.Fatalf("AddPlayer: %v", err)
		}
		players = append(players, p)
	}
	return players
}

func TestAddPlayerRejectsDuplicateNicknameCaseInsensitive(t *testing.T) {
	r := newTestRoom(t)
	addNPlayers(t, r, 1)

	nick, _ := ParseNickname("playera")
	dup := NewPlayer("dup", "conn-dup", nick, r.PIN, Token("tok-dup"), fixedNow)
	err := r.AddPlayer(dup)
	if !apperrors.Is(err, apperrors.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestAddPlayerRejectsAfterGameStarts(t *testing.T) {
	r := newTestRoom(t)
	addNPlayers(t, r, 1)
	if err := r.SetState(QuestionIntro); err != nil {
		t.Fatalf("SetState: %v", err)
	}

	nick, _ := ParseNickname("Late")
	late := NewPlayer("late", "conn-late", nick, r.PIN, Token("tok-late"), fixedNow)
	err := r.AddPlayer(late)
	if !apperrors.Is(err, apperrors.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRoomStateTransitionTable(t *testing.T) {
	r := newTestRoom(t)
	cases := []struct {
		from, to RoomState
		ok       bool
	}{
		{WaitingPlayers, QuestionIntro, true},
		{WaitingPlayers, AnsweringPhase, false},
		{QuestionIntro, AnsweringPhase, true},
		{AnsweringPhase, ShowResults, true},
		{ShowResults, Leaderboard, true},
		{Leaderboard, QuestionIntro, true},
		{Leaderboard, Podium, true},
		{Leaderboard, Paused, true},
		{Paused, Leaderboard, true},
		{Podium, WaitingPlayers, false},
	}
	for _, c := range cases {
		if got := CanTransition(c.from, c.to); got != c.ok {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", c.from, c.to, got, c.ok)
		}
	}

	r.State = Leaderboard
	if err := r.SetState(Podium); err != nil {
		t.Fatalf("SetState(Podium): %v", err)
	}
	if err := r.SetState(WaitingPlayers); err == nil {
		t.Fatal("expected error leaving terminal PODIUM state")
	}
}

func TestStartGameRequiresHostAndPlayers(t *testing.T) {
	r := newTestRoom(t)
	if err := r.StartGame("host-conn"); err == nil {
		t.Fatal("expected error starting with zero players")
	}
	addNPlayers(t, r, 1)
	if err := r.StartGame("not-the-host"); !apperrors.Is(err, apperrors.KindForbidden) {
		t.Fatalf("expected forbidden for non-host, got %v", err)
	}
	if err := r.StartGame("host-conn"); err != nil {
		t.Fatalf("StartGame: %v", err)
	}
}

func TestSetQuizSnapshotExactlyOnce(t *testing.T) {
	r := newTestRoom(t)
	quiz := testQuiz()
	if err := r.SetQuizSnapshot(quiz, fixedNow); err != nil {
		t.Fatalf("first SetQuizSnapshot: %v", err)
	}
	if err := r.SetQuizSnapshot(quiz, fixedNow); !apperrors.Is(err, apperrors.KindConflict) {
		t.Fatalf("expected conflict on second snapshot, got %v", err)
	}
}

func TestQuizSnapshotIsIndependentOfSource(t *testing.T) {
	r := newTestRoom(t)
	quiz := testQuiz()
	if err := r.SetQuizSnapshot(quiz, fixedNow); err != nil {
		t.Fatalf("SetQuizSnapshot: %v", err)
	}
	quiz.Questions[0].Text = "mutated"
	q, err := r.Snapshot.Question(0)
	if err != nil {
		t.Fatalf("Question: %v", err)
	}
	if q.Text == "mutated" {
		t.Fatal("mutating the source quiz must not be observable through the snapshot")
	}
}

func TestRecordAnswerRejectsDoubleSubmission(t *testing.T) {
	r := newTestRoom(t)
	players := addNPlayers(t, r, 1)
	if err := r.SetQuizSnapshot(testQuiz(), fixedNow); err != nil {
		t.Fatalf("SetQuizSnapshot: %v", err)
	}
	if err := r.SetState(QuestionIntro); err != nil {
		t.Fatalf("SetState: %v", err)
	}
	if err := r.SetState(AnsweringPhase); err != nil {
		t.Fatalf("SetState: %v", err)
	}

	_, _, _, err := r.RecordAnswer(players[0].ID, 0, 1, 1000, fixedNow)
	if err != nil {
		t.Fatalf("first RecordAnswer: %v", err)
	}
	_, _, _, err = r.RecordAnswer(players[0].ID, 0, 1, 1000, fixedNow)
	if !apperrors.Is(err, apperrors.KindConflict) {
		t.Fatalf("expected conflict on double submission, got %v", err)
	}
}

func TestRecordAnswerAllAnsweredOnlyCountsConnectedPlayers(t *testing.T) {
	r := newTestRoom(t)
	players := addNPlayers(t, r, 2)
	if err := r.SetQuizSnapshot(testQuiz(), fixedNow); err != nil {
		t.Fatalf("SetQuizSnapshot: %v", err)
	}
	r.SetState(QuestionIntro)
	r.SetState(AnsweringPhase)

	if err := r.SetPlayerDisconnected(players[1].ConnectionID, fixedNow); err != nil {
		t.Fatalf("SetPlayerDisconnected: %v", err)
	}

	_, _, allAnswered, err := r.RecordAnswer(players[0].ID, 0, 1, 500, fixedNow)
	if err != nil {
		t.Fatalf("RecordAnswer: %v", err)
	}
	if !allAnswered {
		t.Fatal("allAnswered should be true once every connected player has answered")
	}
}

func TestGetAnswerDistributionSkipsOutOfRangeAndNeverSubmitted(t *testing.T) {
	r := newTestRoom(t)
	players := addNPlayers(t, r, 3)
	if err := r.SetQuizSnapshot(testQuiz(), fixedNow); err != nil {
		t.Fatalf("SetQuizSnapshot: %v", err)
	}
	r.SetState(QuestionIntro)
	r.SetState(AnsweringPhase)

	r.RecordAnswer(players[0].ID, 0, 1, 500, fixedNow) // correct
	r.RecordAnswer(players[1].ID, 0, 99, 500, fixedNow) // out of range -> skipped
	// players[2] never submits.

	dist, correctCount, skipped := r.GetAnswerDistribution(4, func(i int) bool { return i == 1 })
	if correctCount != 1 {
		t.Fatalf("correctCount: got %d, want 1", correctCount)
	}
	if skipped != 1 {
		t.Fatalf("skippedCount: got %d, want 1 (only out-of-range submissions count)", skipped)
	}
	sum := 0
	for _, c := range dist {
		sum += c
	}
	if sum != 1 {
		t.Fatalf("distribution sum: got %d, want 1", sum)
	}
}

func TestKickAndBanRequireHost(t *testing.T) {
	r := newTestRoom(t)
	players := addNPlayers(t, r, 1)

	if err := r.KickPlayer(players[0].ID, "not-host"); !apperrors.Is(err, apperrors.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if err := r.BanPlayer(players[0].ID, "host-conn"); err != nil {
		t.Fatalf("BanPlayer: %v", err)
	}

	nick, _ := ParseNickname(string(players[0].Nickname))
	rejoin := NewPlayer("rejoin", "conn-rejoin", nick, r.PIN, Token("tok-rejoin"), fixedNow)
	if err := r.AddPlayer(rejoin); !apperrors.Is(err, apperrors.KindConflict) {
		t.Fatalf("expected banned nickname to be rejected, got %v", err)
	}

	if err := r.UnbanNickname(nick, "host-conn"); err != nil {
		t.Fatalf("UnbanNickname: %v", err)
	}
	if err := r.AddPlayer(rejoin); err != nil {
		t.Fatalf("AddPlayer after unban: %v", err)
	}
}

func TestPauseResumeRestoresPriorState(t *testing.T) {
	r := newTestRoom(t)
	addNPlayers(t, r, 1)
	r.SetState(QuestionIntro)
	r.SetState(AnsweringPhase)
	r.SetState(ShowResults)
	r.SetState(Leaderboard)

	if err := r.Pause("host-conn", fixedNow); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if r.CurrentState() != Paused {
		t.Fatalf("state: got %s, want PAUSED", r.CurrentState())
	}
	if err := r.Resume("host-conn"); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if r.CurrentState() != Leaderboard {
		t.Fatalf("state after resume: got %s, want LEADERBOARD", r.CurrentState())
	}
}

func TestReconnectPlayerRotatesTokenAndRejectsExpiredGrace(t *testing.T) {
	r := newTestRoom(t)
	players := addNPlayers(t, r, 1)
	p := players[0]
	oldToken := p.Token

	disconnectAt := fixedNow
	if err := r.SetPlayerDisconnected(p.ConnectionID, disconnectAt); err != nil {
		t.Fatalf("SetPlayerDisconnected: %v", err)
	}

	newToken := Token("rotated")
	reconnectAt := disconnectAt.Add(10 * time.Second)
	reconnected, err := r.ReconnectPlayer(oldToken, "conn-new", 30*time.Second, newToken, reconnectAt)
	if err != nil {
		t.Fatalf("ReconnectPlayer: %v", err)
	}
	if reconnected.Token != newToken {
		t.Fatal("token must rotate on reconnect")
	}
	if reconnected.IsConnected() != true {
		t.Fatal("player must be connected after reconnect")
	}

	if err := r.SetPlayerDisconnected("conn-new", reconnectAt); err != nil {
		t.Fatalf("SetPlayerDisconnected: %v", err)
	}
	lateAttempt := reconnectAt.Add(time.Minute)
	_, err = r.ReconnectPlayer(newToken, "conn-newer", 30*time.Second, Token("rotated-2"), lateAttempt)
	if !apperrors.Is(err, apperrors.KindForbidden) {
		t.Fatalf("expected grace period expiry to be forbidden, got %v", err)
	}
}

func TestLeaderboardOrdersByScoreDescending(t *testing.T) {
	r := newTestRoom(t)
	players := addNPlayers(t, r, 3)
	players[0].Score = 100
	players[1].Score = 300
	players[2].Score = 200

	lb := r.GetLeaderboard()
	if lb[0].Score != 300 || lb[1].Score != 200 || lb[2].Score != 100 {
		t.Fatalf("leaderboard not sorted descending: %+v", lb)
	}

	podium := r.GetPodium()
	if len(podium) != 3 {
		t.Fatalf("podium size: got %d, want 3", len(podium))
	}
}
