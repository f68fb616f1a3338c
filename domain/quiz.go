package domain

import "quizrealm/apperrors"

// MaxQuestionsPerQuiz bounds the length of a quiz snapshot.
const MaxQuestionsPerQuiz = 50

// Quiz is the read-only source handed to a room when a game starts. It is
// owned by the (external, out-of-scope) quiz-authoring collaborator; the
// core only ever clones it into a frozen Snapshot.
type Quiz struct {
	ID        string
	Title     string
	Questions []Question
}

// Snapshot is a deep-cloned, effectively-immutable copy of a Quiz taken at
// game start. Mutating the source Quiz afterwards must never be observable
// through the Snapshot.
type Snapshot struct {
	QuizID    string
	questions []Question
}

// NewSnapshot deep-clones quiz into a frozen Snapshot, bounded by
// MaxQuestionsPerQuiz.
func NewSnapshot(quiz Quiz) (Snapshot, error) {
	return NewSnapshotWithLimit(quiz, MaxQuestionsPerQuiz)
}

// NewSnapshotWithLimit deep-clones quiz into a frozen Snapshot, bounded by
// a caller-supplied maxQuestions instead of the package default, so a
// room can honor a configured cap.
func NewSnapshotWithLimit(quiz Quiz, maxQuestions int) (Snapshot, error) {
	if len(quiz.Questions) == 0 {
		return Snapshot{}, apperrors.Validation("quiz has no questions")
	}
	if len(quiz.Questions) > maxQuestions {
		return Snapshot{}, apperrors.Validation("quiz exceeds maximum of %d questions", maxQuestions)
	}
	cloned := make([]Question, len(quiz.Questions))
	for i, q := range quiz.Questions {
		if err := q.Validate(); err != nil {
			return Snapshot{}, err
		}
		cloned[i] = q.Clone()
	}
	return Snapshot{QuizID: quiz.ID, questions: cloned}, nil
}

// Len returns the number of questions in the snapshot.
func (s Snapshot) Len() int { return len(s.questions) }

// Question returns a deep copy of the question at index, so callers can
// never mutate the frozen snapshot through the returned value.
func (s Snapshot) Question(index int) (Question, error) {
	if index < 0 || index >= len(s.questions) {
		return Question{}, apperrors.NotFound("question index %d out of range", index)
	}
	return s.questions[index].Clone(), nil
}
