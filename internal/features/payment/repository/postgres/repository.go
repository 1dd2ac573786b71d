package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"channel-market-backend/internal/features/payment/models"
	"channel-market-backend/internal/features/payment/repository"

	"github.com/lib/pq"
)

type postgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) repository.PaymentRepository {
	return &postgresRepository{db: db}
}

const paymentColumns = `id, user_id, amount, type, status, invoice_id, transaction_id, created_at, updated_at`

const insertPaymentQuery = `
	INSERT INTO payments (user_id, amount, type, status, invoice_id, transaction_id)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING id, created_at, updated_at
`

type execQueryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Create добавляет запись о платеже
func (r *postgresRepository) Create(ctx context.Context, payment *models.Payment) error {
	return insertPayment(ctx, r.db, payment)
}

// CreateTx добавляет запись о платеже внутри внешней транзакции
func (r *postgresRepository) CreateTx(ctx context.Context, tx *sql.Tx, payment *models.Payment) error {
	return insertPayment(ctx, tx, payment)
}

func insertPayment(ctx context.Context, q execQueryRower, payment *models.Payment) error {
	err := q.QueryRowContext(ctx, insertPaymentQuery,
		payment.UserID, payment.Amount, payment.Type, payment.Status,
		payment.InvoiceID, payment.TransactionID,
	).Scan(&payment.ID, &payment.CreatedAt, &payment.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		// 23505 = unique_violation: дубликат invoice_id
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return repository.ErrDuplicateInvoice
		}
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

func scanPayment(row interface{ Scan(...interface{}) error }) (*models.Payment, error) {
	var p models.Payment
	err := row.Scan(
		&p.ID, &p.UserID, &p.Amount, &p.Type, &p.Status,
		&p.InvoiceID, &p.TransactionID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to scan payment: %w", err)
	}
	return &p, nil
}

// GetByID получает платеж по ID
func (r *postgresRepository) GetByID(ctx context.Context, id int64) (*models.Payment, error) {
	query := fmt.Sprintf(`SELECT %s FROM payments WHERE id = $1`, paymentColumns)
	return scanPayment(r.db.QueryRowContext(ctx, query, id))
}

// GetByInvoiceID получает платеж по идемпотентному ключу шлюза
func (r *postgresRepository) GetByInvoiceID(ctx context.Context, invoiceID string) (*models.Payment, error) {
	query := fmt.Sprintf(`SELECT %s FROM payments WHERE invoice_id = $1`, paymentColumns)
	return scanPayment(r.db.QueryRowContext(ctx, query, invoiceID))
}

// ListByUser возвращает историю платежей пользователя, новые первыми
func (r *postgresRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]*models.Payment, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT %s FROM payments WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`, paymentColumns)

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	var payments []*models.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// MarkCompleted переводит платеж из pending в completed — единственная
// допустимая мутация записи
func (r *postgresRepository) MarkCompleted(ctx context.Context, id int64) error {
	query := `UPDATE payments SET status = 'completed', updated_at = NOW() WHERE id = $1 AND status = 'pending'`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to mark payment completed: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrPaymentNotFound
	}
	return nil
}
