package repository

import (
	"context"
	"database/sql"
	"errors"

	"channel-market-backend/internal/features/application/models"
)

var ErrApplicationNotFound = errors.New("application not found")

type ApplicationRepository interface {
	CreateTx(ctx context.Context, tx *sql.Tx, app *models.Application) error
	GetByID(ctx context.Context, id int64) (*models.Application, error)

	// GetByIDForUpdateTx блокирует строку заявки: решение модератора
	// проверяет и меняет статус под одним замком
	GetByIDForUpdateTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Application, error)

	// HasPendingByUsername проверяет, ждет ли та же ссылка решения в другой
	// заявке
	HasPendingByUsername(ctx context.Context, username string) (bool, error)

	ListByApplicant(ctx context.Context, applicantID int64) ([]*models.Application, error)
	ListPending(ctx context.Context, limit, offset int) ([]*models.Application, error)

	SetApprovedTx(ctx context.Context, tx *sql.Tx, id, reviewerID int64) error
	SetRejectedTx(ctx context.Context, tx *sql.Tx, id, reviewerID int64, reason string) error
}
