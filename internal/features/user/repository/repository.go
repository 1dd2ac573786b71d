package repository

import (
	"context"
	"database/sql"
	"errors"

	"channel-market-backend/internal/features/user/models"

	"github.com/shopspring/decimal"
)

var (
	ErrUserNotFound = errors.New("user not found")
)

// UserRepository owns the users table, including the balance ledger primitive.
//
// AdjustBalance is the single atomic read-modify-write every credit and debit
// goes through. It does NOT enforce non-negativity: callers representing a
// deliberate spend must hold the row lock (GetBalanceForUpdateTx) and check
// funds before debiting, inside the same transaction.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*models.User, error)
	UpdateStatus(ctx context.Context, id int64, status models.UserStatus) error

	AdjustBalance(ctx context.Context, id int64, delta decimal.Decimal) (decimal.Decimal, error)
	AdjustBalanceTx(ctx context.Context, tx *sql.Tx, id int64, delta decimal.Decimal) (decimal.Decimal, error)
	GetBalanceForUpdateTx(ctx context.Context, tx *sql.Tx, id int64) (decimal.Decimal, error)
}
