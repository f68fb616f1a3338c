package domain

import "testing"

func newTestPlayer(t *testing.T) *Player {
	t.Helper()
	nick, err := ParseNickname("Alice")
	if err != nil {
		t.Fatalf("ParseNickname: %v", err)
	}
	return NewPlayer("p1", "c1", nick, PIN("123456"), Token("tok"), fixedNow)
}

func TestApplyAnswerStreakScenario(t *testing.T) {
	p := newTestPlayer(t)

	awarded1 := p.ApplyAnswer(true, 983)
	if awarded1 != 983 {
		t.Fatalf("first correct answer: got %d, want 983 (no streak bonus yet)", awarded1)
	}
	if p.Streak != 1 {
		t.Fatalf("streak after first correct: got %d, want 1", p.Streak)
	}

	awarded2 := p.ApplyAnswer(true, 983)
	if awarded2 != 983+100 {
		t.Fatalf("second correct answer: got %d, want %d", awarded2, 983+100)
	}
	if p.Score != Score(awarded1+awarded2) {
		t.Fatalf("score: got %d, want %d", p.Score, awarded1+awarded2)
	}
	if p.Score != 2066 {
		t.Fatalf("cumulative score: got %d, want 2066", p.Score)
	}
}

func TestApplyAnswerWrongResetsStreak(t *testing.T) {
	p := newTestPlayer(t)
	p.ApplyAnswer(true, 500)
	p.ApplyAnswer(true, 500)
	if p.Streak != 2 {
		t.Fatalf("streak: got %d, want 2", p.Streak)
	}

	awarded := p.ApplyAnswer(false, 0)
	if awarded != 0 {
		t.Fatalf("wrong answer awarded: got %d, want 0", awarded)
	}
	if p.Streak != 0 {
		t.Fatalf("streak after wrong answer: got %d, want 0", p.Streak)
	}
	if p.LongestStreak != 2 {
		t.Fatalf("longest streak should be preserved: got %d, want 2", p.LongestStreak)
	}
}

func TestApplyAnswerStreakBonusCapsAt500(t *testing.T) {
	p := newTestPlayer(t)
	for i := 0; i < 10; i++ {
		p.ApplyAnswer(true, 0)
	}
	awarded := p.ApplyAnswer(true, 0)
	if awarded != 500 {
		t.Fatalf("streak bonus: got %d, want capped at 500", awarded)
	}
}

func TestApplyAnswerDoesNotClearAttempt(t *testing.T) {
	p := newTestPlayer(t)
	p.AnswerAttempt = &AnswerAttempt{AnswerIndex: 1}
	p.ApplyAnswer(true, 100)
	if p.AnswerAttempt == nil {
		t.Fatal("AnswerAttempt must survive ApplyAnswer; only ClearAnswerAttempt should remove it")
	}
	if !p.HasAnswered() {
		t.Fatal("HasAnswered must remain true after scoring")
	}
	p.ClearAnswerAttempt()
	if p.HasAnswered() {
		t.Fatal("HasAnswered must be false after ClearAnswerAttempt")
	}
}

func TestScoreNeverGoesNegative(t *testing.T) {
	s := Score(0)
	s = s.Add(-50)
	if s != 0 {
		t.Fatalf("score: got %d, want clamped to 0", s)
	}
}
