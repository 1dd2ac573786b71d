package repository

import (
	"context"
	"database/sql"
	"errors"

	"channel-market-backend/internal/features/payment/models"
)

var (
	ErrPaymentNotFound = errors.New("payment not found")
	// ErrDuplicateInvoice возвращается при вставке платежа с уже известным
	// invoice_id (уникальный индекс) — защита от повторной обработки
	// уведомлений шлюза на уровне базы.
	ErrDuplicateInvoice = errors.New("payment with this invoice id already exists")
)

// PaymentRepository is the append-only payment record store. GetByInvoiceID is
// the idempotency gate consulted before crediting a gateway notification.
type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	CreateTx(ctx context.Context, tx *sql.Tx, payment *models.Payment) error
	GetByID(ctx context.Context, id int64) (*models.Payment, error)
	GetByInvoiceID(ctx context.Context, invoiceID string) (*models.Payment, error)
	ListByUser(ctx context.Context, userID int64, limit int) ([]*models.Payment, error)
	MarkCompleted(ctx context.Context, id int64) error
}
