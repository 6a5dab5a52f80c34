package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/GregMSThompson/dashboard-backend/internal/errs"
	"github.com/GregMSThompson/dashboard-backend/internal/models"
)

type userSQLStore struct {
	db *gorm.DB
}

func NewUserSQLStore(db *gorm.DB) *userSQLStore {
	return &userSQLStore{db: db}
}

func (s *userSQLStore) CreateUser(ctx context.Context, user *models.User) error {
	if err := validateUserID(user.UID); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errs.NewAlreadyExistsError(fmt.Sprintf("user %q already registered", user.UID))
		}
		return errs.NewDatabaseError("create", "failed to create user", err)
	}
	return nil
}

func (s *userSQLStore) GetUser(ctx context.Context, uid string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("uid = ?", uid).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NewNotFoundError(fmt.Sprintf("user %q not found", uid))
		}
		return nil, errs.NewDatabaseError("read", "failed to get user", err)
	}
	return &user, nil
}
