package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	apperrors "channel-market-backend/internal/common/errors"
	"channel-market-backend/internal/common/metrics"
	channelmodels "channel-market-backend/internal/features/channel/models"
	channelrepo "channel-market-backend/internal/features/channel/repository"
	channelservice "channel-market-backend/internal/features/channel/service"
	notifmodels "channel-market-backend/internal/features/notification/models"
	notifservice "channel-market-backend/internal/features/notification/service"
	paymentmodels "channel-market-backend/internal/features/payment/models"
	paymentrepo "channel-market-backend/internal/features/payment/repository"
	"channel-market-backend/internal/features/promotion/models"
	userrepo "channel-market-backend/internal/features/user/repository"
	"channel-market-backend/internal/platform/db"

	"github.com/shopspring/decimal"
)

type promotionService struct {
	db            *sql.DB
	channels      channelrepo.ChannelRepository
	users         userrepo.UserRepository
	payments      paymentrepo.PaymentRepository
	notifications notifservice.NotificationService
	catalog       channelservice.ChannelService
	now           func() time.Time
}

func NewPromotionService(
	sqlDB *sql.DB,
	channels channelrepo.ChannelRepository,
	users userrepo.UserRepository,
	payments paymentrepo.PaymentRepository,
	notifications notifservice.NotificationService,
	catalog channelservice.ChannelService,
) PromotionService {
	return &promotionService{
		db:            sqlDB,
		channels:      channels,
		users:         users,
		payments:      payments,
		notifications: notifications,
		catalog:       catalog,
		now:           time.Now,
	}
}

// PromoteToTop включает бессрочный TOP за фиксированную цену. Повторная
// покупка уже поднятого канала — конфликт без повторного списания:
// бессрочный флаг не дает покупателю ничего нового.
func (s *promotionService) PromoteToTop(ctx context.Context, userID, channelID int64) (*channelmodels.Channel, error) {
	var promoted *channelmodels.Channel

	err := db.WithinTx(ctx, s.db, func(tx *sql.Tx) error {
		ch, err := s.lockOwnedApprovedChannel(ctx, tx, userID, channelID)
		if err != nil {
			return err
		}
		if ch.IsTopPromoted {
			return apperrors.NewConflictError("channel", "already TOP promoted").WithDetail("channel_id", channelID)
		}

		if err := s.debit(ctx, tx, userID, models.TopPromotionFee); err != nil {
			return err
		}
		if err := s.channels.SetTopPromotedTx(ctx, tx, channelID); err != nil {
			return apperrors.NewDatabaseError("set top promotion", err)
		}
		if err := s.payments.CreateTx(ctx, tx, &paymentmodels.Payment{
			UserID: userID,
			Amount: models.TopPromotionFee,
			Type:   paymentmodels.PaymentTypeTopPromotion,
			Status: paymentmodels.PaymentStatusCompleted,
		}); err != nil {
			return apperrors.NewDatabaseError("record top promotion payment", err)
		}

		ch.IsTopPromoted = true
		promoted = ch
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterPurchase(ctx, userID, "top", "Канал поднят в TOP", "Ваш канал закреплен в TOP выдачи.")
	return promoted, nil
}

// PromoteToUltraTop покупает окно ULTRA TOP на days дней. Неистекшее окно
// продлевается от текущего expiry (раннее продление вознаграждается),
// истекшее или отсутствующее начинается от текущего момента.
func (s *promotionService) PromoteToUltraTop(ctx context.Context, userID, channelID int64, days int) (*channelmodels.Channel, error) {
	if days < models.MinUltraTopDays || days > models.MaxUltraTopDays {
		return nil, apperrors.NewValidationError("days", "must be between 1 and 365")
	}

	fee := models.UltraTopFee(days)
	var promoted *channelmodels.Channel

	err := db.WithinTx(ctx, s.db, func(tx *sql.Tx) error {
		ch, err := s.lockOwnedApprovedChannel(ctx, tx, userID, channelID)
		if err != nil {
			return err
		}

		now := s.now()
		expiry := models.NextUltraTopExpiry(ch.UltraTopPromotionExpiry, now, days)

		if err := s.debit(ctx, tx, userID, fee); err != nil {
			return err
		}
		if err := s.channels.SetUltraTopTx(ctx, tx, channelID, expiry); err != nil {
			return apperrors.NewDatabaseError("set ultra top promotion", err)
		}
		if err := s.payments.CreateTx(ctx, tx, &paymentmodels.Payment{
			UserID: userID,
			Amount: fee,
			Type:   paymentmodels.PaymentTypeUltraTopPromotion,
			Status: paymentmodels.PaymentStatusCompleted,
		}); err != nil {
			return apperrors.NewDatabaseError("record ultra top promotion payment", err)
		}

		ch.IsUltraTopPromoted = true
		ch.UltraTopPromotionExpiry = &expiry
		promoted = ch
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterPurchase(ctx, userID, "ultra_top", "Канал поднят в ULTRA TOP",
		"Ваш канал закреплен в ULTRA TOP до "+promoted.UltraTopPromotionExpiry.Format("02.01.2006 15:04")+".")
	return promoted, nil
}

// lockOwnedApprovedChannel блокирует строку канала и проверяет владение и статус
func (s *promotionService) lockOwnedApprovedChannel(ctx context.Context, tx *sql.Tx, userID, channelID int64) (*channelmodels.Channel, error) {
	ch, err := s.channels.GetByIDForUpdateTx(ctx, tx, channelID)
	if err != nil {
		if errors.Is(err, channelrepo.ErrChannelNotFound) {
			return nil, apperrors.NewChannelNotFoundError(channelID)
		}
		return nil, apperrors.NewDatabaseError("lock channel", err)
	}
	if ch.OwnerID != userID {
		return nil, apperrors.NewForbiddenError("only the channel owner can buy promotion")
	}
	if ch.Status != channelmodels.ChannelStatusApproved {
		return nil, apperrors.NewConflictError("channel", "only approved channels can be promoted")
	}
	return ch, nil
}

// debit проверяет средства под замком строки пользователя и списывает их.
// Проверка и списание разделяют один замок, поэтому конкурентная трата
// не может увести баланс в минус.
func (s *promotionService) debit(ctx context.Context, tx *sql.Tx, userID int64, fee decimal.Decimal) error {
	balance, err := s.users.GetBalanceForUpdateTx(ctx, tx, userID)
	if err != nil {
		if errors.Is(err, userrepo.ErrUserNotFound) {
			return apperrors.NewUserNotFoundError(userID)
		}
		return apperrors.NewDatabaseError("lock balance", err)
	}
	if balance.LessThan(fee) {
		return apperrors.NewInsufficientFundsError(fee.StringFixed(2), balance.StringFixed(2))
	}
	if _, err := s.users.AdjustBalanceTx(ctx, tx, userID, fee.Neg()); err != nil {
		return apperrors.NewDatabaseError("debit balance", err)
	}
	return nil
}

func (s *promotionService) afterPurchase(ctx context.Context, userID int64, tier, title, message string) {
	metrics.Default().PromotionsTotal.WithLabelValues(tier).Inc()
	if s.catalog != nil {
		s.catalog.InvalidateCatalogCache(ctx)
	}
	s.notifications.Emit(ctx, userID, notifmodels.TypePromotionActivated, title, message)
}
