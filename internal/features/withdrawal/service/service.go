package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	apperrors "channel-market-backend/internal/common/errors"
	"channel-market-backend/internal/common/metrics"
	notifmodels "channel-market-backend/internal/features/notification/models"
	notifservice "channel-market-backend/internal/features/notification/service"
	userrepo "channel-market-backend/internal/features/user/repository"
	"channel-market-backend/internal/features/withdrawal/models"
	"channel-market-backend/internal/features/withdrawal/repository"
	"channel-market-backend/internal/platform/db"

	"github.com/shopspring/decimal"
)

type WithdrawalService interface {
	// Create резервирует сумму: списание с баланса и запись заявки
	// выполняются одной транзакцией.
	Create(ctx context.Context, userID int64, amount decimal.Decimal, method models.WithdrawalMethod, details string) (*models.WithdrawalRequest, error)

	ListOwn(ctx context.Context, userID int64) ([]*models.WithdrawalRequest, error)
	ListPending(ctx context.Context, limit, offset int) ([]*models.WithdrawalRequest, error)

	// Approve фиксирует выплату: средства уже списаны при создании
	Approve(ctx context.Context, adminID, requestID int64) (*models.WithdrawalRequest, error)

	// Reject возвращает зарезервированную сумму на баланс в той же
	// транзакции, что и смена статуса
	Reject(ctx context.Context, adminID, requestID int64) (*models.WithdrawalRequest, error)
}

type withdrawalService struct {
	db            *sql.DB
	withdrawals   repository.WithdrawalRepository
	users         userrepo.UserRepository
	notifications notifservice.NotificationService
}

func NewWithdrawalService(
	sqlDB *sql.DB,
	withdrawals repository.WithdrawalRepository,
	users userrepo.UserRepository,
	notifications notifservice.NotificationService,
) WithdrawalService {
	return &withdrawalService{
		db:            sqlDB,
		withdrawals:   withdrawals,
		users:         users,
		notifications: notifications,
	}
}

func (s *withdrawalService) Create(ctx context.Context, userID int64, amount decimal.Decimal, method models.WithdrawalMethod, details string) (*models.WithdrawalRequest, error) {
	if amount.LessThan(models.MinWithdrawalAmount) {
		return nil, apperrors.NewValidationError("amount",
			fmt.Sprintf("must be at least %s", models.MinWithdrawalAmount.StringFixed(0)))
	}
	switch method {
	case models.WithdrawalMethodCard, models.WithdrawalMethodCrypto:
	default:
		return nil, apperrors.NewValidationError("method", "must be card or crypto")
	}
	if details == "" {
		return nil, apperrors.NewValidationError("details", "payout details are required")
	}

	req := &models.WithdrawalRequest{
		UserID:  userID,
		Amount:  amount,
		Method:  method,
		Details: details,
		Status:  models.WithdrawalStatusPending,
	}

	err := db.WithinTx(ctx, s.db, func(tx *sql.Tx) error {
		balance, err := s.users.GetBalanceForUpdateTx(ctx, tx, userID)
		if err != nil {
			if errors.Is(err, userrepo.ErrUserNotFound) {
				return apperrors.NewUserNotFoundError(userID)
			}
			return apperrors.NewDatabaseError("lock balance", err)
		}
		if balance.LessThan(amount) {
			return apperrors.NewInsufficientFundsError(amount.StringFixed(2), balance.StringFixed(2))
		}
		if _, err := s.users.AdjustBalanceTx(ctx, tx, userID, amount.Neg()); err != nil {
			return apperrors.NewDatabaseError("reserve withdrawal amount", err)
		}
		if err := s.withdrawals.CreateTx(ctx, tx, req); err != nil {
			return apperrors.NewDatabaseError("create withdrawal request", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return req, nil
}

func (s *withdrawalService) ListOwn(ctx context.Context, userID int64) ([]*models.WithdrawalRequest, error) {
	requests, err := s.withdrawals.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list withdrawal requests", err)
	}
	return requests, nil
}

func (s *withdrawalService) ListPending(ctx context.Context, limit, offset int) ([]*models.WithdrawalRequest, error) {
	requests, err := s.withdrawals.ListPending(ctx, limit, offset)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list pending withdrawal requests", err)
	}
	return requests, nil
}

func (s *withdrawalService) Approve(ctx context.Context, adminID, requestID int64) (*models.WithdrawalRequest, error) {
	req, err := s.decide(ctx, adminID, requestID, models.WithdrawalStatusApproved)
	if err != nil {
		return nil, err
	}

	metrics.Default().WithdrawalDecisions.WithLabelValues("approved").Inc()
	s.notifications.Emit(ctx, req.UserID, notifmodels.TypeWithdrawalApproved,
		"Вывод одобрен", fmt.Sprintf("Заявка на вывод %s отправлена в обработку.", req.Amount.StringFixed(2)))
	return req, nil
}

func (s *withdrawalService) Reject(ctx context.Context, adminID, requestID int64) (*models.WithdrawalRequest, error) {
	req, err := s.decide(ctx, adminID, requestID, models.WithdrawalStatusRejected)
	if err != nil {
		return nil, err
	}

	metrics.Default().WithdrawalDecisions.WithLabelValues("rejected").Inc()
	s.notifications.Emit(ctx, req.UserID, notifmodels.TypeWithdrawalRejected,
		"Вывод отклонен", fmt.Sprintf("Заявка на вывод отклонена, %s возвращены на баланс.", req.Amount.StringFixed(2)))
	return req, nil
}

// decide переводит заявку в терминальный статус; при отклонении возврат
// средств идет в той же транзакции
func (s *withdrawalService) decide(ctx context.Context, adminID, requestID int64, status models.WithdrawalStatus) (*models.WithdrawalRequest, error) {
	var req *models.WithdrawalRequest

	err := db.WithinTx(ctx, s.db, func(tx *sql.Tx) error {
		locked, err := s.withdrawals.GetByIDForUpdateTx(ctx, tx, requestID)
		if err != nil {
			if errors.Is(err, repository.ErrWithdrawalNotFound) {
				return apperrors.NewNotFoundError("withdrawal request", requestID)
			}
			return apperrors.NewDatabaseError("lock withdrawal request", err)
		}
		if locked.IsTerminal() {
			return apperrors.NewConflictError("withdrawal request", "already decided").
				WithDetail("request_id", requestID).
				WithDetail("status", string(locked.Status))
		}

		if err := s.withdrawals.SetStatusTx(ctx, tx, requestID, adminID, status); err != nil {
			return apperrors.NewDatabaseError("update withdrawal status", err)
		}
		if status == models.WithdrawalStatusRejected {
			if _, err := s.users.AdjustBalanceTx(ctx, tx, locked.UserID, locked.Amount); err != nil {
				return apperrors.NewDatabaseError("refund withdrawal amount", err)
			}
		}

		locked.Status = status
		locked.ProcessedBy = &adminID
		req = locked
		return nil
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}
