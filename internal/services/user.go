package services

import (
	"context"
	"strings"

	"github.com/GregMSThompson/dashboard-backend/internal/errs"
	"github.com/GregMSThompson/dashboard-backend/internal/models"
	"github.com/GregMSThompson/dashboard-backend/pkg/logger"
)

type userUSStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, uid string) (*models.User, error)
}

type userService struct {
	Store userUSStore
}

func NewUserService(store userUSStore) *userService {
	return &userService{
		Store: store,
	}
}

// CreateUser records the profile of an identity the auth provider has already verified.
// Dashboard preferences are not created here; they appear on first read.
func (s *userService) CreateUser(ctx context.Context, uid, email, displayName string) (*models.User, error) {
	// uid and email already ride on the context logger
	log := logger.FromContext(ctx)

	if strings.TrimSpace(email) == "" {
		return nil, errs.NewFieldValidationError("email", "is required")
	}

	user := &models.User{
		UID:         uid,
		Email:       strings.ToLower(strings.TrimSpace(email)),
		DisplayName: strings.TrimSpace(displayName),
	}

	if err := s.Store.CreateUser(ctx, user); err != nil {
		log.Error("failed to create user in store", "error", err)
		return nil, err
	}

	log.Info("user created successfully", "display_name", user.DisplayName)
	return user, nil
}

func (s *userService) GetUser(ctx context.Context, uid string) (*models.User, error) {
	return s.Store.GetUser(ctx, uid)
}
