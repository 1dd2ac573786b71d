package gateway

import (
	"github.com/shopspring/decimal"
)

// Notification is a verified, terminal-success payment notification from an
// external gateway. Adapters produce it only after the signature and status
// checks pass; the idempotency check against the payment store happens next,
// in the payment service.
type Notification struct {
	Provider      string
	UserID        int64
	Amount        decimal.Decimal
	InvoiceID     string
	TransactionID string
}
