package service

import (
	"context"
	"database/sql"
	"errors"

	apperrors "channel-market-backend/internal/common/errors"
	"channel-market-backend/internal/common/logger"
	"channel-market-backend/internal/common/metrics"
	"channel-market-backend/internal/features/payment/gateway"
	"channel-market-backend/internal/features/payment/models"
	paymentrepo "channel-market-backend/internal/features/payment/repository"
	"channel-market-backend/internal/platform/db"

	notifmodels "channel-market-backend/internal/features/notification/models"
	notifservice "channel-market-backend/internal/features/notification/service"
	userrepo "channel-market-backend/internal/features/user/repository"
)

type paymentService struct {
	db            *sql.DB
	payments      paymentrepo.PaymentRepository
	users         userrepo.UserRepository
	notifications notifservice.NotificationService
}

func NewPaymentService(
	sqlDB *sql.DB,
	payments paymentrepo.PaymentRepository,
	users userrepo.UserRepository,
	notifications notifservice.NotificationService,
) PaymentService {
	return &paymentService{
		db:            sqlDB,
		payments:      payments,
		users:         users,
		notifications: notifications,
	}
}

// ProcessGatewayTopup зачисляет оплату от платежного шлюза. Шлюзы повторяют
// уведомления, поэтому invoice_id — идемпотентный ключ: повторная доставка
// завершается успешным no-op без повторного зачисления.
func (s *paymentService) ProcessGatewayTopup(ctx context.Context, n *gateway.Notification) error {
	if _, err := s.payments.GetByInvoiceID(ctx, n.InvoiceID); err == nil {
		logger.Info().Str("invoice_id", n.InvoiceID).Str("provider", n.Provider).
			Msg("Duplicate gateway notification ignored")
		metrics.Default().GatewayCallbacks.WithLabelValues(n.Provider, "duplicate").Inc()
		return nil
	} else if !errors.Is(err, paymentrepo.ErrPaymentNotFound) {
		return apperrors.NewDatabaseError("payment idempotency lookup", err)
	}

	err := db.WithinTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := s.users.AdjustBalanceTx(ctx, tx, n.UserID, n.Amount); err != nil {
			if errors.Is(err, userrepo.ErrUserNotFound) {
				return apperrors.NewUserNotFoundError(n.UserID)
			}
			return apperrors.NewDatabaseError("credit balance", err)
		}

		payment := &models.Payment{
			UserID:        n.UserID,
			Amount:        n.Amount,
			Type:          models.PaymentTypeBalanceTopup,
			Status:        models.PaymentStatusCompleted,
			InvoiceID:     &n.InvoiceID,
			TransactionID: &n.TransactionID,
		}
		if err := s.payments.CreateTx(ctx, tx, payment); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		// Две конкурирующие доставки одного уведомления: уникальный индекс
		// по invoice_id гарантирует единственное зачисление, проигравшая
		// доставка тоже отвечает успехом.
		if errors.Is(err, paymentrepo.ErrDuplicateInvoice) {
			metrics.Default().GatewayCallbacks.WithLabelValues(n.Provider, "duplicate").Inc()
			return nil
		}
		metrics.Default().GatewayCallbacks.WithLabelValues(n.Provider, "error").Inc()
		return err
	}

	metrics.Default().GatewayCallbacks.WithLabelValues(n.Provider, "credited").Inc()
	metrics.Default().PaymentsTotal.WithLabelValues(string(models.PaymentTypeBalanceTopup)).Inc()

	s.notifications.Emit(ctx, n.UserID, notifmodels.TypeBalanceTopup,
		"Баланс пополнен", "Ваш баланс пополнен на "+n.Amount.StringFixed(2))

	return nil
}

func (s *paymentService) History(ctx context.Context, userID int64, limit int) ([]*models.Payment, error) {
	payments, err := s.payments.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list payments", err)
	}
	return payments, nil
}
