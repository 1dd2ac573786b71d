package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"channel-market-backend/internal/features/withdrawal/models"
	"channel-market-backend/internal/features/withdrawal/repository"

	_ "github.com/lib/pq"
)

type postgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) repository.WithdrawalRepository {
	return &postgresRepository{db: db}
}

const withdrawalColumns = `id, user_id, amount, method, details, status, processed_by, created_at, updated_at`

type rowScanner interface{ Scan(...interface{}) error }

func scanWithdrawal(row rowScanner) (*models.WithdrawalRequest, error) {
	var w models.WithdrawalRequest
	err := row.Scan(
		&w.ID, &w.UserID, &w.Amount, &w.Method, &w.Details,
		&w.Status, &w.ProcessedBy, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrWithdrawalNotFound
		}
		return nil, fmt.Errorf("failed to scan withdrawal request: %w", err)
	}
	return &w, nil
}

// CreateTx создает заявку внутри транзакции резервирования средств
func (r *postgresRepository) CreateTx(ctx context.Context, tx *sql.Tx, req *models.WithdrawalRequest) error {
	query := `
		INSERT INTO withdrawal_requests (user_id, amount, method, details, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`

	err := tx.QueryRowContext(ctx, query,
		req.UserID, req.Amount, req.Method, req.Details, req.Status,
	).Scan(&req.ID, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create withdrawal request: %w", err)
	}
	return nil
}

// GetByID получает заявку по ID
func (r *postgresRepository) GetByID(ctx context.Context, id int64) (*models.WithdrawalRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM withdrawal_requests WHERE id = $1`, withdrawalColumns)
	return scanWithdrawal(r.db.QueryRowContext(ctx, query, id))
}

// GetByIDForUpdateTx получает заявку с блокировкой строки
func (r *postgresRepository) GetByIDForUpdateTx(ctx context.Context, tx *sql.Tx, id int64) (*models.WithdrawalRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM withdrawal_requests WHERE id = $1 FOR UPDATE`, withdrawalColumns)
	return scanWithdrawal(tx.QueryRowContext(ctx, query, id))
}

// ListByUser возвращает заявки пользователя
func (r *postgresRepository) ListByUser(ctx context.Context, userID int64) ([]*models.WithdrawalRequest, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM withdrawal_requests
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, withdrawalColumns)

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list withdrawal requests: %w", err)
	}
	defer rows.Close()

	return collectWithdrawals(rows)
}

// ListPending возвращает очередь на выплату, старые заявки первыми
func (r *postgresRepository) ListPending(ctx context.Context, limit, offset int) ([]*models.WithdrawalRequest, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	query := fmt.Sprintf(`
		SELECT %s FROM withdrawal_requests
		WHERE status = 'pending'
		ORDER BY created_at ASC
		LIMIT $1 OFFSET $2
	`, withdrawalColumns)

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending withdrawal requests: %w", err)
	}
	defer rows.Close()

	return collectWithdrawals(rows)
}

func collectWithdrawals(rows *sql.Rows) ([]*models.WithdrawalRequest, error) {
	var requests []*models.WithdrawalRequest
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, w)
	}
	return requests, rows.Err()
}

// SetStatusTx переводит pending-заявку в терминальный статус. WHERE по статусу
// гарантирует, что решенная заявка не будет перерешена.
func (r *postgresRepository) SetStatusTx(ctx context.Context, tx *sql.Tx, id, processedBy int64, status models.WithdrawalStatus) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE withdrawal_requests
		SET status = $2, processed_by = $3, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`, id, status, processedBy)
	if err != nil {
		return fmt.Errorf("failed to update withdrawal status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrWithdrawalNotFound
	}
	return nil
}
