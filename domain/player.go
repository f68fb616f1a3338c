package domain

import "time"

// MaxStreak caps both streak and longestStreak.
const MaxStreak = 1000

// AnswerAttempt is a player's in-flight answer for the current question,
// cleared at the start of every answering phase.
type AnswerAttempt struct {
	AnswerIndex int
	ElapsedMs   int64
	SubmittedAt time.Time
}

// Player is a scoring Participant.
type Player struct {
	Participant
	Score               Score
	Streak              int
	CorrectAnswersCount int
	LongestStreak       int
	AnswerAttempt       *AnswerAttempt
}

// NewPlayer constructs a Player in the zero-score state.
func NewPlayer(id, connectionID string, nickname Nickname, pin PIN, token Token, now time.Time) *Player {
	return &Player{
		Participant: Participant{
			ID:             id,
			ConnectionID:   connectionID,
			Nickname:       nickname,
			RoomPIN:        pin,
			Token:          token,
			TokenCreatedAt: now,
			JoinedAt:       now,
		},
	}
}

// HasAnswered reports whether the player has an open attempt for the
// current question.
func (p *Player) HasAnswered() bool { return p.AnswerAttempt != nil }

// ClearAnswerAttempt clears the player's open attempt, called when
// entering ANSWERING_PHASE for a new question.
func (p *Player) ClearAnswerAttempt() { p.AnswerAttempt = nil }

// ApplyAnswer scores an already-recorded AnswerAttempt and mutates Score,
// Streak, LongestStreak and CorrectAnswersCount in place. The attempt
// itself is left set (cleared
// only by ClearAnswerAttempt at the next answering phase) so that
// haveAllPlayersAnswered can still observe it. It returns the points
// awarded for this answer (base + streak bonus, zero when wrong).
func (p *Player) ApplyAnswer(correct bool, basePoints int) int {
	if !correct {
		p.Streak = 0
		return 0
	}

	bonus := p.Streak * 100
	if bonus > 500 {
		bonus = 500
	}
	awarded := basePoints + bonus

	p.Score = p.Score.Add(awarded)
	p.Streak = clampMax(p.Streak+1, MaxStreak)
	if p.Streak > p.LongestStreak {
		p.LongestStreak = p.Streak
	}
	p.LongestStreak = clampMax(p.LongestStreak, MaxStreak)
	p.CorrectAnswersCount++
	return awarded
}
