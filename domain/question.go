package domain

import (
	"strings"

	"quizrealm/apperrors"
)

// QuestionType distinguishes the two supported question shapes.
type QuestionType string

const (
	MultipleChoice QuestionType = "MULTIPLE_CHOICE"
	TrueFalse      QuestionType = "TRUE_FALSE"
)

// Question is immutable once cloned into a Quiz snapshot.
type Question struct {
	ID                 string
	Text               string
	Type               QuestionType
	Options            []string
	CorrectAnswerIndex int
	TimeLimitSeconds   int
	Points             int
	ImageURL           string // empty if absent
}

// Validate enforces the shape and bounds a question must satisfy before it
// can be cloned into a Quiz snapshot.
func (q Question) Validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return apperrors.Validation("question %s: text is required", q.ID)
	}
	switch q.Type {
	case MultipleChoice:
		if len(q.Options) < 2 || len(q.Options) > 4 {
			return apperrors.Validation("question %s: multiple choice requires 2-4 options", q.ID)
		}
	case TrueFalse:
		if len(q.Options) != 2 {
			return apperrors.Validation("question %s: true/false requires exactly 2 options", q.ID)
		}
	default:
		return apperrors.Validation("question %s: unknown question type %q", q.ID, q.Type)
	}
	for i, opt := range q.Options {
		if strings.TrimSpace(opt) == "" {
			return apperrors.Validation("question %s: option %d is empty", q.ID, i)
		}
	}
	if q.CorrectAnswerIndex < 0 || q.CorrectAnswerIndex >= len(q.Options) {
		return apperrors.Validation("question %s: correctAnswerIndex out of range", q.ID)
	}
	if q.TimeLimitSeconds < 5 || q.TimeLimitSeconds > 120 {
		return apperrors.Validation("question %s: timeLimit must be between 5 and 120 seconds", q.ID)
	}
	if q.Points < 100 || q.Points > 10000 {
		return apperrors.Validation("question %s: points must be between 100 and 10000", q.ID)
	}
	if q.ImageURL != "" && !strings.HasPrefix(q.ImageURL, "http://") && !strings.HasPrefix(q.ImageURL, "https://") {
		return apperrors.Validation("question %s: imageUrl must be http or https", q.ID)
	}
	return nil
}

// Clone deep-copies the question so a frozen Quiz snapshot never shares
// backing arrays with the source it was cloned from.
func (q Question) Clone() Question {
	clone := q
	clone.Options = append([]string(nil), q.Options...)
	return clone
}

// IsCorrect reports whether answerIndex matches the correct option.
// Out-of-range indices are never correct.
func (q Question) IsCorrect(answerIndex int) bool {
	return answerIndex >= 0 && answerIndex < len(q.Options) && answerIndex == q.CorrectAnswerIndex
}

// PublicQuestion is a Question without the correct-answer index, for
// broadcast to players before they have answered.
type PublicQuestion struct {
	ID               string
	Text             string
	Type             QuestionType
	Options          []string
	TimeLimitSeconds int
	Points           int
	ImageURL         string
}

func (q Question) Public() PublicQuestion {
	return PublicQuestion{
		ID:               q.ID,
		Text:             q.Text,
		Type:             q.Type,
		Options:          append([]string(nil), q.Options...),
		TimeLimitSeconds: q.TimeLimitSeconds,
		Points:           q.Points,
		ImageURL:         q.ImageURL,
	}
}
