package domain

import "testing"

func TestScoreAnswerWrongIsZero(t *testing.T) {
	if got := ScoreAnswer(false, 1000, 30000, 1000); got != 0 {
		t.Fatalf("wrong answer: got %d, want 0", got)
	}
}

func TestScoreAnswerEarlyCorrect(t *testing.T) {
	got := ScoreAnswer(true, 1000, 30000, 1000)
	if got != 983 {
		t.Fatalf("got %d, want 983", got)
	}
}

func TestScoreAnswerAtTimeLimitHitsFloor(t *testing.T) {
	got := ScoreAnswer(true, 30000, 30000, 1000)
	if got != 500 {
		t.Fatalf("got %d, want 500 (ceil(1000/2))", got)
	}
}

func TestScoreAnswerOddPointsFloorIsCeiling(t *testing.T) {
	got := ScoreAnswer(true, 30000, 30000, 101)
	if got != 51 {
		t.Fatalf("got %d, want 51 (ceil(101/2))", got)
	}
}

func TestScoreAnswerClampsLateSubmission(t *testing.T) {
	got := ScoreAnswer(true, 90000, 30000, 1000)
	if got != 500 {
		t.Fatalf("late submission: got %d, want clamped floor 500", got)
	}
}

func TestScoreAnswerClampsNegativeElapsed(t *testing.T) {
	got := ScoreAnswer(true, -500, 30000, 1000)
	if got != 1000 {
		t.Fatalf("negative elapsed: got %d, want full 1000", got)
	}
}

func TestScoreAnswerZeroTimeLimitReturnsFloor(t *testing.T) {
	got := ScoreAnswer(true, 0, 0, 1000)
	if got != 500 {
		t.Fatalf("zero time limit: got %d, want floor 500", got)
	}
}
