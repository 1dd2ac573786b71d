package service

import (
	"context"

	"channel-market-backend/internal/features/channel/models"
	"channel-market-backend/internal/features/channel/repository"
)

type ChannelService interface {
	// Публичный каталог
	ListCatalog(ctx context.Context, filter repository.ListFilter) ([]*models.ChannelResponse, error)
	GetPublicByUsername(ctx context.Context, username string) (*models.ChannelResponse, error)
	ListCategories(ctx context.Context) ([]*models.Category, error)

	// Кабинет владельца
	ListOwn(ctx context.Context, ownerID int64) ([]*models.Channel, error)

	// InvalidateCatalogCache сбрасывает кэш выдачи после записей,
	// влияющих на порядок или состав каталога
	InvalidateCatalogCache(ctx context.Context)
}
