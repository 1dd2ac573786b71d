package service

import (
	"context"
	"errors"

	apperrors "channel-market-backend/internal/common/errors"
	"channel-market-backend/internal/features/user/models"
	"channel-market-backend/internal/features/user/repository"

	"github.com/shopspring/decimal"
)

type userService struct {
	repo repository.UserRepository
}

func NewUserService(repo repository.UserRepository) UserService {
	return &userService{
		repo: repo,
	}
}

func (s *userService) GetByID(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperrors.NewUserNotFoundError(id)
		}
		return nil, apperrors.NewDatabaseError("get user", err)
	}
	return user, nil
}

func (s *userService) GetProfile(ctx context.Context, id int64) (*models.UserResponse, error) {
	user, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return user.ToResponse(), nil
}

// GetOrCreateByTelegram находит пользователя по Telegram ID или создает нового
// при первом входе через Telegram
func (s *userService) GetOrCreateByTelegram(ctx context.Context, telegramID int64, username string) (*models.User, error) {
	user, err := s.repo.GetByTelegramID(ctx, telegramID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, apperrors.NewDatabaseError("get user by telegram id", err)
	}

	user = &models.User{
		TelegramID: &telegramID,
		Username:   username,
		Role:       models.RoleUser,
		Status:     models.UserStatusActive,
		Balance:    decimal.Zero,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, apperrors.NewDatabaseError("create user", err)
	}

	return user, nil
}

func (s *userService) Block(ctx context.Context, id int64) error {
	return s.setStatus(ctx, id, models.UserStatusBlocked)
}

func (s *userService) Unblock(ctx context.Context, id int64) error {
	return s.setStatus(ctx, id, models.UserStatusActive)
}

func (s *userService) setStatus(ctx context.Context, id int64, status models.UserStatus) error {
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return apperrors.NewUserNotFoundError(id)
		}
		return apperrors.NewDatabaseError("update user status", err)
	}
	return nil
}
