package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type WithdrawalStatus string

const (
	WithdrawalStatusPending  WithdrawalStatus = "pending"
	WithdrawalStatusApproved WithdrawalStatus = "approved"
	WithdrawalStatusRejected WithdrawalStatus = "rejected"
)

type WithdrawalMethod string

const (
	WithdrawalMethodCard   WithdrawalMethod = "card"
	WithdrawalMethodCrypto WithdrawalMethod = "crypto"
)

// MinWithdrawalAmount — минимальная сумма заявки на вывод
var MinWithdrawalAmount = decimal.NewFromInt(100)

// WithdrawalRequest — заявка на вывод средств. Сумма резервируется
// (списывается) в момент создания; отклонение возвращает ее на баланс,
// одобрение фиксирует выплату. pending -> approved | rejected, терминально.
type WithdrawalRequest struct {
	ID          int64            `json:"id"`
	UserID      int64            `json:"user_id"`
	Amount      decimal.Decimal  `json:"amount"`
	Method      WithdrawalMethod `json:"method"`
	Details     string           `json:"details"`
	Status      WithdrawalStatus `json:"status"`
	ProcessedBy *int64           `json:"processed_by,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// IsTerminal reports whether the request has been decided.
func (w *WithdrawalRequest) IsTerminal() bool {
	return w.Status != WithdrawalStatusPending
}
