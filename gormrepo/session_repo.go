package gormrepo

import (
	"context"
	"encoding/json"

	"gorm.io/gorm"

	"quizrealm/apperrors"
	"quizrealm/domain"
)

// SessionRepo implements usecases.GameSessionRepository against
// GameSessionRow.
type SessionRepo struct {
	DB *gorm.DB
}

func NewSessionRepo(db *gorm.DB) *SessionRepo {
	return &SessionRepo{DB: db}
}

func (r *SessionRepo) Save(ctx context.Context, s domain.GameSession) error {
	results, err := json.Marshal(s.PlayerResults)
	if err != nil {
		return apperrors.Internal(err, "failed to encode player results")
	}
	answers, err := json.Marshal(s.Answers)
	if err != nil {
		return apperrors.Internal(err, "failed to encode answer history")
	}
	row := GameSessionRow{
		PIN:                string(s.PIN),
		QuizID:             s.QuizID,
		HostUserID:         s.HostUserID,
		HostUsername:       s.HostUsername,
		PlayerCount:        s.PlayerCount,
		PlayerResultsJSON:  string(results),
		AnswersJSON:        string(answers),
		StartedAt:          s.StartedAt,
		EndedAt:            s.EndedAt,
		Status:             string(s.Status),
		InterruptionReason: s.InterruptionReason,
		LastQuestionIndex:  s.LastQuestionIndex,
		LastState:          string(s.LastState),
	}
	return r.DB.WithContext(ctx).Create(&row).Error
}

func (r *SessionRepo) FindByHost(ctx context.Context, hostUserID uint, page, limit int) ([]domain.GameSession, error) {
	var rows []GameSessionRow
	q := r.DB.WithContext(ctx).Where("host_user_id = ?", hostUserID).
		Order("ended_at DESC").Limit(limit).Offset(page * limit)
	if err := q.Find(&rows).Error; err != nil {
		return nil, apperrors.Internal(err, "failed to load sessions for host %d", hostUserID)
	}
	return toSessions(rows)
}

func (r *SessionRepo) FindByQuiz(ctx context.Context, quizID string, page, limit int) ([]domain.GameSession, error) {
	var rows []GameSessionRow
	q := r.DB.WithContext(ctx).Where("quiz_id = ?", quizID).
		Order("ended_at DESC").Limit(limit).Offset(page * limit)
	if err := q.Find(&rows).Error; err != nil {
		return nil, apperrors.Internal(err, "failed to load sessions for quiz %s", quizID)
	}
	return toSessions(rows)
}

func (r *SessionRepo) GetRecent(ctx context.Context, limit int) ([]domain.GameSession, error) {
	var rows []GameSessionRow
	if err := r.DB.WithContext(ctx).Order("ended_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, apperrors.Internal(err, "failed to load recent sessions")
	}
	return toSessions(rows)
}

func (r *SessionRepo) DeleteByQuiz(ctx context.Context, quizID string) (int, error) {
	res := r.DB.WithContext(ctx).Where("quiz_id = ?", quizID).Delete(&GameSessionRow{})
	if res.Error != nil {
		return 0, apperrors.Internal(res.Error, "failed to delete sessions for quiz %s", quizID)
	}
	return int(res.RowsAffected), nil
}

func (r *SessionRepo) DeleteByHost(ctx context.Context, hostUserID uint) (int, error) {
	res := r.DB.WithContext(ctx).Where("host_user_id = ?", hostUserID).Delete(&GameSessionRow{})
	if res.Error != nil {
		return 0, apperrors.Internal(res.Error, "failed to delete sessions for host %d", hostUserID)
	}
	return int(res.RowsAffected), nil
}

func toSessions(rows []GameSessionRow) ([]domain.GameSession, error) {
	sessions := make([]domain.GameSession, len(rows))
	for i, row := range rows {
		var results []domain.PlayerResult
		if err := json.Unmarshal([]byte(row.PlayerResultsJSON), &results); err != nil {
			return nil, apperrors.Internal(err, "corrupt player results for session %d", row.ID)
		}
		var answers []domain.AnswerRecordView
		if err := json.Unmarshal([]byte(row.AnswersJSON), &answers); err != nil {
			return nil, apperrors.Internal(err, "corrupt answer history for session %d", row.ID)
		}
		sessions[i] = domain.GameSession{
			PIN:                domain.PIN(row.PIN),
			QuizID:             row.QuizID,
			HostUserID:         row.HostUserID,
			HostUsername:       row.HostUsername,
			PlayerCount:        row.PlayerCount,
			PlayerResults:      results,
			Answers:            answers,
			StartedAt:          row.StartedAt,
			EndedAt:            row.EndedAt,
			Status:             domain.GameSessionStatus(row.Status),
			InterruptionReason: row.InterruptionReason,
			LastQuestionIndex:  row.LastQuestionIndex,
			LastState:          domain.RoomState(row.LastState),
		}
	}
	return sessions, nil
}
