package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"channel-market-backend/internal/common/cache"
	apperrors "channel-market-backend/internal/common/errors"
	"channel-market-backend/internal/common/validation"
	"channel-market-backend/internal/features/channel/models"
	"channel-market-backend/internal/features/channel/repository"

	"go.uber.org/zap"
)

const (
	catalogCacheTTL        = 2 * time.Minute
	catalogCacheKeyPattern = "catalog:*"
)

type channelService struct {
	repo   repository.ChannelRepository
	cache  *cache.CacheService
	logger *zap.Logger
	now    func() time.Time
}

func NewChannelService(repo repository.ChannelRepository, cacheService *cache.CacheService, logger *zap.Logger) ChannelService {
	return &channelService{
		repo:   repo,
		cache:  cacheService,
		logger: logger,
		now:    time.Now,
	}
}

// ListCatalog возвращает публичную выдачу. Эффективный ULTRA TOP вычисляется
// от expiry на момент чтения: между проходами фоновой очистки колонка-флаг
// может отставать от истины.
func (s *channelService) ListCatalog(ctx context.Context, filter repository.ListFilter) ([]*models.ChannelResponse, error) {
	cacheKey := fmt.Sprintf("catalog:%d:%s:%d:%d", filter.CategoryID, filter.Type, filter.Limit, filter.Offset)

	var cached []*models.ChannelResponse
	if s.cache != nil {
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return cached, nil
		}
	}

	channels, err := s.repo.ListApproved(ctx, filter)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list catalog", err)
	}

	now := s.now()
	response := make([]*models.ChannelResponse, 0, len(channels))
	for _, ch := range channels {
		response = append(response, ch.ToResponse(now))
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, response, catalogCacheTTL); err != nil {
			s.logger.Warn("Failed to cache catalog page", zap.Error(err))
		}
	}

	return response, nil
}

func (s *channelService) GetPublicByUsername(ctx context.Context, username string) (*models.ChannelResponse, error) {
	if err := validation.ValidateChannelUsername(username); err != nil {
		return nil, apperrors.NewValidationError("username", err.Error())
	}

	ch, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrChannelNotFound) {
			return nil, apperrors.NewNotFoundError("channel", username)
		}
		return nil, apperrors.NewDatabaseError("get channel", err)
	}
	if ch.Status != models.ChannelStatusApproved {
		// Неодобренные каналы публично не существуют
		return nil, apperrors.NewNotFoundError("channel", username)
	}

	return ch.ToResponse(s.now()), nil
}

func (s *channelService) ListCategories(ctx context.Context) ([]*models.Category, error) {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list categories", err)
	}
	return categories, nil
}

func (s *channelService) ListOwn(ctx context.Context, ownerID int64) ([]*models.Channel, error) {
	channels, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list own channels", err)
	}
	return channels, nil
}

func (s *channelService) InvalidateCatalogCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeletePattern(ctx, catalogCacheKeyPattern); err != nil {
		s.logger.Warn("Failed to invalidate catalog cache", zap.Error(err))
	}
}
