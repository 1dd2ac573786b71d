package service

import (
	"context"

	"channel-market-backend/internal/features/user/models"
)

type UserService interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetProfile(ctx context.Context, id int64) (*models.UserResponse, error)
	GetOrCreateByTelegram(ctx context.Context, telegramID int64, username string) (*models.User, error)
	Block(ctx context.Context, id int64) error
	Unblock(ctx context.Context, id int64) error
}
