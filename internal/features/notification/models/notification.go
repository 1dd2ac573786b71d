package models

import "time"

type NotificationType string

const (
	TypeApplicationApproved NotificationType = "application_approved"
	TypeApplicationRejected NotificationType = "application_rejected"
	TypeBalanceTopup        NotificationType = "balance_topup"
	TypePromotionActivated  NotificationType = "promotion_activated"
	TypeWithdrawalApproved  NotificationType = "withdrawal_approved"
	TypeWithdrawalRejected  NotificationType = "withdrawal_rejected"
)

// Notification — пользовательское уведомление. Создается системой,
// пользователь может только отметить его прочитанным.
type Notification struct {
	ID        int64            `json:"id"`
	UserID    int64            `json:"user_id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	IsRead    bool             `json:"is_read"`
	CreatedAt time.Time        `json:"created_at"`
}
