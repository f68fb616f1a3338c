package domain

import "time"

// AnswerRecord is an immutable entry appended to a Room's answer history
// when a player submits.
type AnswerRecord struct {
	PlayerID      string
	Username      string
	QuestionIndex int
	AnswerIndex   int
	Correct       bool
	Score         int // points awarded for this answer, including streak bonus
	ElapsedMs     int64
	SubmittedAt   time.Time
}
