package repository

import (
	"context"
	"database/sql"
	"errors"

	"channel-market-backend/internal/features/withdrawal/models"
)

var ErrWithdrawalNotFound = errors.New("withdrawal request not found")

type WithdrawalRepository interface {
	CreateTx(ctx context.Context, tx *sql.Tx, req *models.WithdrawalRequest) error
	GetByID(ctx context.Context, id int64) (*models.WithdrawalRequest, error)

	// GetByIDForUpdateTx блокирует строку заявки: решение админа проверяет
	// и меняет статус под одним замком
	GetByIDForUpdateTx(ctx context.Context, tx *sql.Tx, id int64) (*models.WithdrawalRequest, error)

	ListByUser(ctx context.Context, userID int64) ([]*models.WithdrawalRequest, error)
	ListPending(ctx context.Context, limit, offset int) ([]*models.WithdrawalRequest, error)

	SetStatusTx(ctx context.Context, tx *sql.Tx, id, processedBy int64, status models.WithdrawalStatus) error
}
