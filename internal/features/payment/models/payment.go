package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentType string

const (
	PaymentTypeBalanceTopup      PaymentType = "balance_topup"
	PaymentTypeChannelSubmission PaymentType = "channel_submission"
	PaymentTypeTopPromotion      PaymentType = "top_promotion"
	PaymentTypeUltraTopPromotion PaymentType = "ultra_top_promotion"
	PaymentTypeModeratorEarnings PaymentType = "moderator_earnings"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
)

// Payment — неизменяемая запись события, затронувшего баланс. Сумма хранится
// положительной, направление определяется типом. Единственная допустимая
// мутация — переход статуса pending -> completed.
type Payment struct {
	ID            int64           `json:"id"`
	UserID        int64           `json:"user_id"`
	Amount        decimal.Decimal `json:"amount"`
	Type          PaymentType     `json:"type"`
	Status        PaymentStatus   `json:"status"`
	InvoiceID     *string         `json:"invoice_id,omitempty"`
	TransactionID *string         `json:"transaction_id,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
