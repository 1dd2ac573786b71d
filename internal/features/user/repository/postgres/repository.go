package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"channel-market-backend/internal/features/user/models"
	"channel-market-backend/internal/features/user/repository"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type postgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) repository.UserRepository {
	return &postgresRepository{db: db}
}

const userColumns = `id, telegram_id, email, password_hash, username, role, status, balance, created_at, updated_at`

func scanUser(row interface{ Scan(...interface{}) error }) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID, &user.TelegramID, &user.Email, &user.PasswordHash,
		&user.Username, &user.Role, &user.Status, &user.Balance,
		&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &user, nil
}

// Create создает нового пользователя
func (r *postgresRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (telegram_id, email, password_hash, username, role, status, balance)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		user.TelegramID, user.Email, user.PasswordHash,
		user.Username, user.Role, user.Status, user.Balance,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByID получает пользователя по ID
func (r *postgresRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

// GetByEmail получает пользователя по email
func (r *postgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE email = $1`, userColumns)
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

// GetByTelegramID получает пользователя по Telegram ID
func (r *postgresRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE telegram_id = $1`, userColumns)
	return scanUser(r.db.QueryRowContext(ctx, query, telegramID))
}

// UpdateStatus меняет статус пользователя (блокировка/разблокировка)
func (r *postgresRepository) UpdateStatus(ctx context.Context, id int64, status models.UserStatus) error {
	query := `UPDATE users SET status = $2, updated_at = NOW() WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("failed to update user status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrUserNotFound
	}

	return nil
}

// Атомарная мутация баланса: одно условное обновление, без read-then-write.
const adjustBalanceQuery = `
	UPDATE users
	SET balance = balance + $2, updated_at = NOW()
	WHERE id = $1
	RETURNING balance
`

// AdjustBalance атомарно изменяет баланс пользователя и возвращает новый баланс
func (r *postgresRepository) AdjustBalance(ctx context.Context, id int64, delta decimal.Decimal) (decimal.Decimal, error) {
	return adjustBalance(ctx, r.db, id, delta)
}

// AdjustBalanceTx — вариант AdjustBalance внутри внешней транзакции
func (r *postgresRepository) AdjustBalanceTx(ctx context.Context, tx *sql.Tx, id int64, delta decimal.Decimal) (decimal.Decimal, error) {
	return adjustBalance(ctx, tx, id, delta)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func adjustBalance(ctx context.Context, q queryRower, id int64, delta decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := q.QueryRowContext(ctx, adjustBalanceQuery, id, delta).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, repository.ErrUserNotFound
		}
		return decimal.Zero, fmt.Errorf("failed to adjust balance: %w", err)
	}
	return balance, nil
}

// GetBalanceForUpdateTx читает баланс с блокировкой строки (SELECT ... FOR UPDATE),
// чтобы проверка средств и последующее списание были сериализованы.
func (r *postgresRepository) GetBalanceForUpdateTx(ctx context.Context, tx *sql.Tx, id int64) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := tx.QueryRowContext(ctx, `SELECT balance FROM users WHERE id = $1 FOR UPDATE`, id).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, repository.ErrUserNotFound
		}
		return decimal.Zero, fmt.Errorf("failed to lock user balance: %w", err)
	}
	return balance, nil
}
