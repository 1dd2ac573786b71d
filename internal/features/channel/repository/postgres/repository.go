package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"channel-market-backend/internal/features/channel/models"
	"channel-market-backend/internal/features/channel/repository"

	_ "github.com/lib/pq"
)

type postgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) repository.ChannelRepository {
	return &postgresRepository{db: db}
}

const channelColumns = `id, owner_id, category_id, type, username, name, description, avatar_url,
	subscribers, status, is_top_promoted, is_ultra_top_promoted, ultra_top_promotion_expiry,
	created_at, updated_at`

type rowScanner interface{ Scan(...interface{}) error }

func scanChannel(row rowScanner) (*models.Channel, error) {
	var ch models.Channel
	err := row.Scan(
		&ch.ID, &ch.OwnerID, &ch.CategoryID, &ch.Type, &ch.Username, &ch.Name,
		&ch.Description, &ch.AvatarURL, &ch.Subscribers, &ch.Status,
		&ch.IsTopPromoted, &ch.IsUltraTopPromoted, &ch.UltraTopPromotionExpiry,
		&ch.CreatedAt, &ch.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrChannelNotFound
		}
		return nil, fmt.Errorf("failed to scan channel: %w", err)
	}
	return &ch, nil
}

const insertChannelQuery = `
	INSERT INTO channels (owner_id, category_id, type, username, name, description, avatar_url, status)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	RETURNING id, created_at, updated_at
`

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func insertChannel(ctx context.Context, q queryRower, ch *models.Channel) error {
	err := q.QueryRowContext(ctx, insertChannelQuery,
		ch.OwnerID, ch.CategoryID, ch.Type, ch.Username, ch.Name,
		ch.Description, ch.AvatarURL, ch.Status,
	).Scan(&ch.ID, &ch.CreatedAt, &ch.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create channel: %w", err)
	}
	return nil
}

// Create создает канал
func (r *postgresRepository) Create(ctx context.Context, ch *models.Channel) error {
	return insertChannel(ctx, r.db, ch)
}

// CreateTx создает канал внутри внешней транзакции
func (r *postgresRepository) CreateTx(ctx context.Context, tx *sql.Tx, ch *models.Channel) error {
	return insertChannel(ctx, tx, ch)
}

// GetByID получает канал по ID
func (r *postgresRepository) GetByID(ctx context.Context, id int64) (*models.Channel, error) {
	query := fmt.Sprintf(`SELECT %s FROM channels WHERE id = $1`, channelColumns)
	return scanChannel(r.db.QueryRowContext(ctx, query, id))
}

// GetByIDForUpdateTx получает канал с блокировкой строки: промоушн-движок
// читает текущий expiry и пишет новый под одним замком
func (r *postgresRepository) GetByIDForUpdateTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Channel, error) {
	query := fmt.Sprintf(`SELECT %s FROM channels WHERE id = $1 FOR UPDATE`, channelColumns)
	return scanChannel(tx.QueryRowContext(ctx, query, id))
}

// GetByUsername получает канал по username
func (r *postgresRepository) GetByUsername(ctx context.Context, username string) (*models.Channel, error) {
	query := fmt.Sprintf(`SELECT %s FROM channels WHERE username = $1`, channelColumns)
	return scanChannel(r.db.QueryRowContext(ctx, query, username))
}

// GetByUsernameTx получает канал по username внутри транзакции
func (r *postgresRepository) GetByUsernameTx(ctx context.Context, tx *sql.Tx, username string) (*models.Channel, error) {
	query := fmt.Sprintf(`SELECT %s FROM channels WHERE username = $1`, channelColumns)
	return scanChannel(tx.QueryRowContext(ctx, query, username))
}

// ListApproved возвращает публичную выдачу каталога. Порядок: действующий
// ULTRA TOP (по expiry, а не по флагу), затем TOP, затем по подписчикам.
func (r *postgresRepository) ListApproved(ctx context.Context, filter repository.ListFilter) ([]*models.Channel, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	query := fmt.Sprintf(`
		SELECT %s FROM channels
		WHERE status = 'approved'
		  AND ($1 = 0 OR category_id = $1)
		  AND ($2 = '' OR type = $2)
		ORDER BY
			(is_ultra_top_promoted AND ultra_top_promotion_expiry > NOW()) DESC,
			is_top_promoted DESC,
			subscribers DESC
		LIMIT $3 OFFSET $4
	`, channelColumns)

	rows, err := r.db.QueryContext(ctx, query, filter.CategoryID, string(filter.Type), limit, filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}
	defer rows.Close()

	return collectChannels(rows)
}

// ListByOwner возвращает каналы владельца
func (r *postgresRepository) ListByOwner(ctx context.Context, ownerID int64) ([]*models.Channel, error) {
	query := fmt.Sprintf(`SELECT %s FROM channels WHERE owner_id = $1 ORDER BY created_at DESC`, channelColumns)

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list channels by owner: %w", err)
	}
	defer rows.Close()

	return collectChannels(rows)
}

func collectChannels(rows *sql.Rows) ([]*models.Channel, error) {
	var channels []*models.Channel
	for rows.Next() {
		ch, err := scanChannel(rows)
		if err != nil {
			return nil, err
		}
		channels = append(channels, ch)
	}
	return channels, rows.Err()
}

// UpdateListingTx обновляет отображаемые поля канала из одобренной заявки
func (r *postgresRepository) UpdateListingTx(ctx context.Context, tx *sql.Tx, ch *models.Channel) error {
	query := `
		UPDATE channels
		SET name = $2, description = $3, avatar_url = $4, category_id = $5,
		    type = $6, status = 'approved', updated_at = NOW()
		WHERE id = $1
	`

	result, err := tx.ExecContext(ctx, query,
		ch.ID, ch.Name, ch.Description, ch.AvatarURL, ch.CategoryID, ch.Type)
	if err != nil {
		return fmt.Errorf("failed to update channel listing: %w", err)
	}
	return requireRowAffected(result, repository.ErrChannelNotFound)
}

// SetTopPromotedTx включает бессрочный флаг TOP
func (r *postgresRepository) SetTopPromotedTx(ctx context.Context, tx *sql.Tx, id int64) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE channels SET is_top_promoted = true, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to set top promotion: %w", err)
	}
	return requireRowAffected(result, repository.ErrChannelNotFound)
}

// SetUltraTopTx включает ULTRA TOP до указанного expiry
func (r *postgresRepository) SetUltraTopTx(ctx context.Context, tx *sql.Tx, id int64, expiry time.Time) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE channels
		SET is_ultra_top_promoted = true, ultra_top_promotion_expiry = $2, updated_at = NOW()
		WHERE id = $1
	`, id, expiry)
	if err != nil {
		return fmt.Errorf("failed to set ultra top promotion: %w", err)
	}
	return requireRowAffected(result, repository.ErrChannelNotFound)
}

// ClearExpiredUltraTop снимает истекший ULTRA TOP. Колоночно-ограниченный
// UPDATE: конкурентные записи в другие колонки не затираются.
func (r *postgresRepository) ClearExpiredUltraTop(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE channels
		SET is_ultra_top_promoted = false, ultra_top_promotion_expiry = NULL, updated_at = NOW()
		WHERE is_ultra_top_promoted AND ultra_top_promotion_expiry < $1
	`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to clear expired promotions: %w", err)
	}
	return result.RowsAffected()
}

// UpdateSubscribers колоночно обновляет счетчик подписчиков
func (r *postgresRepository) UpdateSubscribers(ctx context.Context, id int64, subscribers int) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE channels SET subscribers = $2, updated_at = NOW() WHERE id = $1`, id, subscribers)
	if err != nil {
		return fmt.Errorf("failed to update subscribers: %w", err)
	}
	return requireRowAffected(result, repository.ErrChannelNotFound)
}

// ListUsernamesForRefresh возвращает каналы для фонового обновления подписчиков
func (r *postgresRepository) ListUsernamesForRefresh(ctx context.Context) ([]*models.Channel, error) {
	query := fmt.Sprintf(`SELECT %s FROM channels WHERE status = 'approved' AND username <> ''`, channelColumns)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list channels for refresh: %w", err)
	}
	defer rows.Close()

	return collectChannels(rows)
}

// GetCategoryByID получает категорию (источник цены подачи заявки)
func (r *postgresRepository) GetCategoryByID(ctx context.Context, id int64) (*models.Category, error) {
	var cat models.Category
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, slug, submission_price, created_at FROM categories WHERE id = $1`, id).
		Scan(&cat.ID, &cat.Name, &cat.Slug, &cat.SubmissionPrice, &cat.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return &cat, nil
}

// ListCategories возвращает справочник категорий
func (r *postgresRepository) ListCategories(ctx context.Context) ([]*models.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, slug, submission_price, created_at FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []*models.Category
	for rows.Next() {
		var cat models.Category
		if err := rows.Scan(&cat.ID, &cat.Name, &cat.Slug, &cat.SubmissionPrice, &cat.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, &cat)
	}
	return categories, rows.Err()
}

func requireRowAffected(result sql.Result, notFound error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return notFound
	}
	return nil
}
