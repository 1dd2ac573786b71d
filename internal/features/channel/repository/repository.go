package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"channel-market-backend/internal/features/channel/models"
)

var (
	ErrChannelNotFound  = errors.New("channel not found")
	ErrCategoryNotFound = errors.New("category not found")
)

// ListFilter ограничивает публичную выдачу каталога
type ListFilter struct {
	CategoryID int64
	Type       models.ChannelType
	Limit      int
	Offset     int
}

type ChannelRepository interface {
	Create(ctx context.Context, channel *models.Channel) error
	CreateTx(ctx context.Context, tx *sql.Tx, channel *models.Channel) error
	GetByID(ctx context.Context, id int64) (*models.Channel, error)
	GetByIDForUpdateTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Channel, error)
	GetByUsername(ctx context.Context, username string) (*models.Channel, error)
	GetByUsernameTx(ctx context.Context, tx *sql.Tx, username string) (*models.Channel, error)
	ListApproved(ctx context.Context, filter ListFilter) ([]*models.Channel, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]*models.Channel, error)

	// UpdateListing обновляет отображаемые поля из одобренной заявки и ставит
	// статус approved (кейс повторной подачи той же ссылки)
	UpdateListingTx(ctx context.Context, tx *sql.Tx, channel *models.Channel) error

	// Мутации полей продвижения. Колоночно-ограниченные UPDATE: не трогают
	// ничего, кроме флагов/expiry, чтобы не затирать конкурентные записи.
	SetTopPromotedTx(ctx context.Context, tx *sql.Tx, id int64) error
	SetUltraTopTx(ctx context.Context, tx *sql.Tx, id int64, expiry time.Time) error
	ClearExpiredUltraTop(ctx context.Context, now time.Time) (int64, error)

	// UpdateSubscribers колоночно обновляет счетчик подписчиков
	UpdateSubscribers(ctx context.Context, id int64, subscribers int) error
	ListUsernamesForRefresh(ctx context.Context) ([]*models.Channel, error)

	GetCategoryByID(ctx context.Context, id int64) (*models.Category, error)
	ListCategories(ctx context.Context) ([]*models.Category, error)
}
