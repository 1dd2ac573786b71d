package service

import (
	"context"
	"errors"

	apperrors "channel-market-backend/internal/common/errors"
	"channel-market-backend/internal/common/logger"
	"channel-market-backend/internal/features/notification/models"
	"channel-market-backend/internal/features/notification/repository"
)

type NotificationService interface {
	// Emit создает уведомление best-effort: ошибка логируется и никогда не
	// прерывает вызвавшую операцию.
	Emit(ctx context.Context, userID int64, typ models.NotificationType, title, message string)
	List(ctx context.Context, userID int64, limit int) ([]*models.Notification, error)
	CountUnread(ctx context.Context, userID int64) (int, error)
	MarkRead(ctx context.Context, id, userID int64) error
	MarkAllRead(ctx context.Context, userID int64) error
}

type notificationService struct {
	repo repository.NotificationRepository
}

func NewNotificationService(repo repository.NotificationRepository) NotificationService {
	return &notificationService{repo: repo}
}

func (s *notificationService) Emit(ctx context.Context, userID int64, typ models.NotificationType, title, message string) {
	n := &models.Notification{
		UserID:  userID,
		Type:    typ,
		Title:   title,
		Message: message,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		// Потеря уведомления допустима, откат вызвавшей операции — нет
		logger.Error().Err(err).Int64("user_id", userID).Str("type", string(typ)).
			Msg("Failed to emit notification")
	}
}

func (s *notificationService) List(ctx context.Context, userID int64, limit int) ([]*models.Notification, error) {
	notifications, err := s.repo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list notifications", err)
	}
	return notifications, nil
}

func (s *notificationService) CountUnread(ctx context.Context, userID int64) (int, error) {
	count, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return 0, apperrors.NewDatabaseError("count unread notifications", err)
	}
	return count, nil
}

func (s *notificationService) MarkRead(ctx context.Context, id, userID int64) error {
	if err := s.repo.MarkRead(ctx, id, userID); err != nil {
		if errors.Is(err, repository.ErrNotificationNotFound) {
			return apperrors.NewNotFoundError("notification", id)
		}
		return apperrors.NewDatabaseError("mark notification read", err)
	}
	return nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID int64) error {
	if err := s.repo.MarkAllRead(ctx, userID); err != nil {
		return apperrors.NewDatabaseError("mark all notifications read", err)
	}
	return nil
}
