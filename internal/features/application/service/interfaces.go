package service

import (
	"context"

	"channel-market-backend/internal/features/application/models"
	channelmodels "channel-market-backend/internal/features/channel/models"
	usermodels "channel-market-backend/internal/features/user/models"
)

// SubmitInput — данные заявки на размещение
type SubmitInput struct {
	ChannelURL  string
	CategoryID  int64
	Type        channelmodels.ChannelType
	Name        string
	Description string
	AvatarURL   string
}

type ApplicationService interface {
	// Submit подает заявку и списывает плату категории. Списание, запись
	// заявки и запись платежа выполняются одной транзакцией.
	Submit(ctx context.Context, applicantID int64, input SubmitInput) (*models.Application, error)

	ListOwn(ctx context.Context, applicantID int64) ([]*models.Application, error)
	ListPending(ctx context.Context, limit, offset int) ([]*models.Application, error)

	// Approve одобряет заявку: апсертит канал по username, начисляет
	// вознаграждение (только роли moderator) и пишет платеж — все одной
	// транзакцией.
	Approve(ctx context.Context, reviewerID int64, reviewerRole usermodels.UserRole, applicationID int64) (*models.Application, error)

	// Reject отклоняет заявку с причиной. Плата за подачу не возвращается.
	Reject(ctx context.Context, reviewerID int64, reviewerRole usermodels.UserRole, applicationID int64, reason string) (*models.Application, error)
}
