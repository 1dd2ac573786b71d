package service

import (
	"context"

	"channel-market-backend/internal/features/payment/gateway"
	"channel-market-backend/internal/features/payment/models"
)

type PaymentService interface {
	// ProcessGatewayTopup credits a verified gateway notification exactly once.
	// A duplicate invoice id is a successful no-op, not an error.
	ProcessGatewayTopup(ctx context.Context, n *gateway.Notification) error
	History(ctx context.Context, userID int64, limit int) ([]*models.Payment, error)
}
