package gormrepo

import (
	"context"

	"gorm.io/gorm"

	"quizrealm/apperrors"
	"quizrealm/usecases"
)

// UserRepo implements usecases.UserRepository against UserRow.
type UserRepo struct {
	DB *gorm.DB
}

func NewUserRepo(db *gorm.DB) *UserRepo {
	return &UserRepo{DB: db}
}

func (r *UserRepo) FindByID(ctx context.Context, id uint) (usecases.User, error) {
	var row UserRow
	if err := r.DB.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return usecases.User{}, apperrors.NotFound("user %d not found", id)
		}
		return usecases.User{}, apperrors.Internal(err, "failed to load user %d", id)
	}
	return usecases.User{ID: row.ID, Username: row.Username}, nil
}
