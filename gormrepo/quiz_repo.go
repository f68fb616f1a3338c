package gormrepo

import (
	"context"
	"encoding/json"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"quizrealm/apperrors"
	"quizrealm/domain"
)

// QuizRepo implements usecases.QuizRepository against QuizRow.
type QuizRepo struct {
	DB *gorm.DB
}

func NewQuizRepo(db *gorm.DB) *QuizRepo {
	return &QuizRepo{DB: db}
}

func (r *QuizRepo) FindByID(ctx context.Context, id string) (domain.Quiz, error) {
	var row QuizRow
	if err := r.DB.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Quiz{}, apperrors.NotFound("quiz %s not found", id)
		}
		return domain.Quiz{}, apperrors.Internal(err, "failed to load quiz %s", id)
	}
	var questions []domain.Question
	if err := json.Unmarshal([]byte(row.QuestionsJSON), &questions); err != nil {
		return domain.Quiz{}, apperrors.Internal(err, "corrupt question data for quiz %s", id)
	}
	return domain.Quiz{ID: row.ID, Title: row.Title, Questions: questions}, nil
}

func (r *QuizRepo) IncrementPlayCount(ctx context.Context, id string) error {
	return r.DB.WithContext(ctx).Model(&QuizRow{}).Where("id = ?", id).
		UpdateColumn("play_count", gorm.Expr("play_count + 1")).Error
}

// Save upserts a quiz row, used by whatever out-of-scope authoring flow
// populates the quiz table the core only ever reads from.
func (r *QuizRepo) Save(ctx context.Context, quiz domain.Quiz) error {
	payload, err := json.Marshal(quiz.Questions)
	if err != nil {
		return apperrors.Internal(err, "failed to encode questions for quiz %s", quiz.ID)
	}
	row := QuizRow{ID: quiz.ID, Title: quiz.Title, QuestionsJSON: string(payload)}
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
}
