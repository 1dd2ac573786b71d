package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	apperrors "channel-market-backend/internal/common/errors"
	"channel-market-backend/internal/common/metrics"
	"channel-market-backend/internal/common/validation"
	"channel-market-backend/internal/features/application/models"
	"channel-market-backend/internal/features/application/repository"
	channelmodels "channel-market-backend/internal/features/channel/models"
	channelrepo "channel-market-backend/internal/features/channel/repository"
	channelservice "channel-market-backend/internal/features/channel/service"
	notifmodels "channel-market-backend/internal/features/notification/models"
	notifservice "channel-market-backend/internal/features/notification/service"
	paymentmodels "channel-market-backend/internal/features/payment/models"
	paymentrepo "channel-market-backend/internal/features/payment/repository"
	usermodels "channel-market-backend/internal/features/user/models"
	userrepo "channel-market-backend/internal/features/user/repository"
	"channel-market-backend/internal/platform/db"

	"github.com/shopspring/decimal"
)

type applicationService struct {
	db            *sql.DB
	applications  repository.ApplicationRepository
	channels      channelrepo.ChannelRepository
	users         userrepo.UserRepository
	payments      paymentrepo.PaymentRepository
	notifications notifservice.NotificationService
	catalog       channelservice.ChannelService
}

func NewApplicationService(
	sqlDB *sql.DB,
	applications repository.ApplicationRepository,
	channels channelrepo.ChannelRepository,
	users userrepo.UserRepository,
	payments paymentrepo.PaymentRepository,
	notifications notifservice.NotificationService,
	catalog channelservice.ChannelService,
) ApplicationService {
	return &applicationService{
		db:            sqlDB,
		applications:  applications,
		channels:      channels,
		users:         users,
		payments:      payments,
		notifications: notifications,
		catalog:       catalog,
	}
}

// Submit подает заявку на размещение. Проверки ссылки и баланса, списание
// платы категории, запись заявки и платежа — последние три одной транзакцией.
func (s *applicationService) Submit(ctx context.Context, applicantID int64, input SubmitInput) (*models.Application, error) {
	if err := validation.ValidateName(input.Name); err != nil {
		return nil, apperrors.NewValidationError("name", err.Error())
	}
	if err := validation.ValidateDescription(input.Description); err != nil {
		return nil, apperrors.NewValidationError("description", err.Error())
	}

	username, err := models.ParseChannelUsername(input.ChannelURL)
	if err != nil {
		return nil, apperrors.NewValidationError("channel_url", err.Error())
	}

	chType := input.Type
	if chType == "" {
		chType = channelmodels.ChannelTypeChannel
	}
	switch chType {
	case channelmodels.ChannelTypeChannel, channelmodels.ChannelTypeBot, channelmodels.ChannelTypeGroup:
	default:
		return nil, apperrors.NewValidationError("type", "must be channel, bot or group")
	}

	category, err := s.channels.GetCategoryByID(ctx, input.CategoryID)
	if err != nil {
		if errors.Is(err, channelrepo.ErrCategoryNotFound) {
			return nil, apperrors.New(apperrors.ErrCodeCategoryNotFound, "Category not found").
				WithDetail("category_id", input.CategoryID)
		}
		return nil, apperrors.NewDatabaseError("get category", err)
	}

	// Ссылка не должна быть занята чужим каналом или нерешенной заявкой.
	// Повторная подача владельцем уже размещенного канала допускается:
	// одобрение обновит листинг.
	existing, err := s.channels.GetByUsername(ctx, username)
	if err != nil && !errors.Is(err, channelrepo.ErrChannelNotFound) {
		return nil, apperrors.NewDatabaseError("check channel claim", err)
	}
	if existing != nil && existing.OwnerID != applicantID {
		return nil, apperrors.New(apperrors.ErrCodeChannelClaimed, "Channel is already claimed by another user").
			WithDetail("username", username)
	}

	pending, err := s.applications.HasPendingByUsername(ctx, username)
	if err != nil {
		return nil, apperrors.NewDatabaseError("check pending applications", err)
	}
	if pending {
		return nil, apperrors.New(apperrors.ErrCodeChannelClaimed, "Channel already has a pending application").
			WithDetail("username", username)
	}

	app := &models.Application{
		ApplicantID: applicantID,
		CategoryID:  category.ID,
		Type:        chType,
		Username:    username,
		Name:        input.Name,
		Description: input.Description,
		AvatarURL:   input.AvatarURL,
		Price:       category.SubmissionPrice,
		Status:      models.ApplicationStatusPending,
	}

	err = db.WithinTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.debit(ctx, tx, applicantID, category.SubmissionPrice); err != nil {
			return err
		}
		if err := s.applications.CreateTx(ctx, tx, app); err != nil {
			return apperrors.NewDatabaseError("create application", err)
		}
		if err := s.payments.CreateTx(ctx, tx, &paymentmodels.Payment{
			UserID: applicantID,
			Amount: category.SubmissionPrice,
			Type:   paymentmodels.PaymentTypeChannelSubmission,
			Status: paymentmodels.PaymentStatusCompleted,
		}); err != nil {
			return apperrors.NewDatabaseError("record submission payment", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.Default().ApplicationsSubmitted.Inc()
	return app, nil
}

func (s *applicationService) ListOwn(ctx context.Context, applicantID int64) ([]*models.Application, error) {
	apps, err := s.applications.ListByApplicant(ctx, applicantID)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list applications", err)
	}
	return apps, nil
}

func (s *applicationService) ListPending(ctx context.Context, limit, offset int) ([]*models.Application, error) {
	apps, err := s.applications.ListPending(ctx, limit, offset)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list pending applications", err)
	}
	return apps, nil
}

// Approve одобряет заявку. Апсерт канала по username, терминальный переход
// статуса и вознаграждение модератора выполняются одной транзакцией;
// уведомление заявителю уходит после коммита.
func (s *applicationService) Approve(ctx context.Context, reviewerID int64, reviewerRole usermodels.UserRole, applicationID int64) (*models.Application, error) {
	var app *models.Application

	err := db.WithinTx(ctx, s.db, func(tx *sql.Tx) error {
		locked, err := s.lockPendingApplication(ctx, tx, applicationID)
		if err != nil {
			return err
		}

		if err := s.upsertChannel(ctx, tx, locked); err != nil {
			return err
		}
		if err := s.applications.SetApprovedTx(ctx, tx, locked.ID, reviewerID); err != nil {
			return apperrors.NewDatabaseError("approve application", err)
		}

		// Вознаграждение начисляется только роли moderator: админы
		// модерируют без оплаты
		if reviewerRole == usermodels.RoleModerator {
			if _, err := s.users.AdjustBalanceTx(ctx, tx, reviewerID, models.ModeratorReward); err != nil {
				return apperrors.NewDatabaseError("credit moderator reward", err)
			}
			if err := s.payments.CreateTx(ctx, tx, &paymentmodels.Payment{
				UserID: reviewerID,
				Amount: models.ModeratorReward,
				Type:   paymentmodels.PaymentTypeModeratorEarnings,
				Status: paymentmodels.PaymentStatusCompleted,
			}); err != nil {
				return apperrors.NewDatabaseError("record moderator reward", err)
			}
		}

		locked.Status = models.ApplicationStatusApproved
		locked.ReviewerID = &reviewerID
		app = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.Default().ModerationDecisions.WithLabelValues("approved").Inc()
	if s.catalog != nil {
		s.catalog.InvalidateCatalogCache(ctx)
	}
	s.notifications.Emit(ctx, app.ApplicantID, notifmodels.TypeApplicationApproved,
		"Заявка одобрена", fmt.Sprintf("Канал @%s размещен в каталоге.", app.Username))

	return app, nil
}

// Reject отклоняет заявку с причиной. Плата за подачу не возвращается;
// баланс заявителя не трогается.
func (s *applicationService) Reject(ctx context.Context, reviewerID int64, reviewerRole usermodels.UserRole, applicationID int64, reason string) (*models.Application, error) {
	if reason == "" {
		return nil, apperrors.NewValidationError("reason", "is required")
	}

	var app *models.Application

	err := db.WithinTx(ctx, s.db, func(tx *sql.Tx) error {
		locked, err := s.lockPendingApplication(ctx, tx, applicationID)
		if err != nil {
			return err
		}
		if err := s.applications.SetRejectedTx(ctx, tx, locked.ID, reviewerID, reason); err != nil {
			return apperrors.NewDatabaseError("reject application", err)
		}

		locked.Status = models.ApplicationStatusRejected
		locked.ReviewerID = &reviewerID
		locked.RejectionReason = &reason
		app = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.Default().ModerationDecisions.WithLabelValues("rejected").Inc()
	s.notifications.Emit(ctx, app.ApplicantID, notifmodels.TypeApplicationRejected,
		"Заявка отклонена", fmt.Sprintf("Канал @%s не прошел модерацию: %s", app.Username, reason))

	return app, nil
}

// lockPendingApplication блокирует строку заявки и гарантирует, что
// терминальная заявка не будет перерешена
func (s *applicationService) lockPendingApplication(ctx context.Context, tx *sql.Tx, id int64) (*models.Application, error) {
	app, err := s.applications.GetByIDForUpdateTx(ctx, tx, id)
	if err != nil {
		if errors.Is(err, repository.ErrApplicationNotFound) {
			return nil, apperrors.NewApplicationNotFoundError(id)
		}
		return nil, apperrors.NewDatabaseError("lock application", err)
	}
	if app.IsTerminal() {
		return nil, apperrors.New(apperrors.ErrCodeApplicationSettled, "Application has already been decided").
			WithDetail("application_id", id).
			WithDetail("status", string(app.Status))
	}
	return app, nil
}

// upsertChannel создает канал из одобренной заявки либо обновляет листинг
// существующего канала с тем же username (повторная подача владельцем)
func (s *applicationService) upsertChannel(ctx context.Context, tx *sql.Tx, app *models.Application) error {
	existing, err := s.channels.GetByUsernameTx(ctx, tx, app.Username)
	if err != nil && !errors.Is(err, channelrepo.ErrChannelNotFound) {
		return apperrors.NewDatabaseError("lookup channel by username", err)
	}

	if existing == nil {
		ch := &channelmodels.Channel{
			OwnerID:     app.ApplicantID,
			CategoryID:  app.CategoryID,
			Type:        app.Type,
			Username:    app.Username,
			Name:        app.Name,
			Description: app.Description,
			AvatarURL:   app.AvatarURL,
			Status:      channelmodels.ChannelStatusApproved,
		}
		if err := s.channels.CreateTx(ctx, tx, ch); err != nil {
			return apperrors.NewDatabaseError("create channel", err)
		}
		return nil
	}

	// Ссылку могли занять между подачей и решением
	if existing.OwnerID != app.ApplicantID {
		return apperrors.New(apperrors.ErrCodeChannelClaimed, "Channel is already claimed by another user").
			WithDetail("username", app.Username)
	}

	existing.Name = app.Name
	existing.Description = app.Description
	existing.AvatarURL = app.AvatarURL
	existing.CategoryID = app.CategoryID
	existing.Type = app.Type
	if err := s.channels.UpdateListingTx(ctx, tx, existing); err != nil {
		return apperrors.NewDatabaseError("update channel listing", err)
	}
	return nil
}

// debit проверяет средства под замком строки пользователя и списывает их
func (s *applicationService) debit(ctx context.Context, tx *sql.Tx, userID int64, price decimal.Decimal) error {
	balance, err := s.users.GetBalanceForUpdateTx(ctx, tx, userID)
	if err != nil {
		if errors.Is(err, userrepo.ErrUserNotFound) {
			return apperrors.NewUserNotFoundError(userID)
		}
		return apperrors.NewDatabaseError("lock balance", err)
	}
	if balance.LessThan(price) {
		return apperrors.NewInsufficientFundsError(price.StringFixed(2), balance.StringFixed(2))
	}
	if _, err := s.users.AdjustBalanceTx(ctx, tx, userID, price.Neg()); err != nil {
		return apperrors.NewDatabaseError("debit submission fee", err)
	}
	return nil
}
