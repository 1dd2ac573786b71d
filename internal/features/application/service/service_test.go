package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "channel-market-backend/internal/common/errors"
	"channel-market-backend/internal/features/application/models"
	"channel-market-backend/internal/features/application/repository"
	channelmodels "channel-market-backend/internal/features/channel/models"
	channelrepo "channel-market-backend/internal/features/channel/repository"
	notifmodels "channel-market-backend/internal/features/notification/models"
	paymentmodels "channel-market-backend/internal/features/payment/models"
	paymentrepo "channel-market-backend/internal/features/payment/repository"
	usermodels "channel-market-backend/internal/features/user/models"
	userrepo "channel-market-backend/internal/features/user/repository"
)

// --- моки ---

type mockApplicationRepo struct {
	createTxFunc             func(ctx context.Context, tx *sql.Tx, app *models.Application) error
	getByIDForUpdateTxFunc   func(ctx context.Context, tx *sql.Tx, id int64) (*models.Application, error)
	hasPendingByUsernameFunc func(ctx context.Context, username string) (bool, error)
	approved                 []int64
	rejected                 []string
}

func (m *mockApplicationRepo) CreateTx(ctx context.Context, tx *sql.Tx, app *models.Application) error {
	if m.createTxFunc != nil {
		return m.createTxFunc(ctx, tx, app)
	}
	app.ID = 1
	return nil
}
func (m *mockApplicationRepo) GetByID(ctx context.Context, id int64) (*models.Application, error) {
	return nil, repository.ErrApplicationNotFound
}
func (m *mockApplicationRepo) GetByIDForUpdateTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Application, error) {
	if m.getByIDForUpdateTxFunc != nil {
		return m.getByIDForUpdateTxFunc(ctx, tx, id)
	}
	return nil, repository.ErrApplicationNotFound
}
func (m *mockApplicationRepo) HasPendingByUsername(ctx context.Context, username string) (bool, error) {
	if m.hasPendingByUsernameFunc != nil {
		return m.hasPendingByUsernameFunc(ctx, username)
	}
	return false, nil
}
func (m *mockApplicationRepo) ListByApplicant(ctx context.Context, applicantID int64) ([]*models.Application, error) {
	return nil, nil
}
func (m *mockApplicationRepo) ListPending(ctx context.Context, limit, offset int) ([]*models.Application, error) {
	return nil, nil
}
func (m *mockApplicationRepo) SetApprovedTx(ctx context.Context, tx *sql.Tx, id, reviewerID int64) error {
	m.approved = append(m.approved, id)
	return nil
}
func (m *mockApplicationRepo) SetRejectedTx(ctx context.Context, tx *sql.Tx, id, reviewerID int64, reason string) error {
	m.rejected = append(m.rejected, reason)
	return nil
}

type mockChannelRepo struct {
	getByUsernameFunc   func(ctx context.Context, username string) (*channelmodels.Channel, error)
	getByUsernameTxFunc func(ctx context.Context, tx *sql.Tx, username string) (*channelmodels.Channel, error)
	category            *channelmodels.Category
	created             []*channelmodels.Channel
	updated             []*channelmodels.Channel
}

func (m *mockChannelRepo) Create(ctx context.Context, ch *channelmodels.Channel) error { return nil }
func (m *mockChannelRepo) CreateTx(ctx context.Context, tx *sql.Tx, ch *channelmodels.Channel) error {
	ch.ID = 100
	m.created = append(m.created, ch)
	return nil
}
func (m *mockChannelRepo) GetByID(ctx context.Context, id int64) (*channelmodels.Channel, error) {
	return nil, channelrepo.ErrChannelNotFound
}
func (m *mockChannelRepo) GetByIDForUpdateTx(ctx context.Context, tx *sql.Tx, id int64) (*channelmodels.Channel, error) {
	return nil, channelrepo.ErrChannelNotFound
}
func (m *mockChannelRepo) GetByUsername(ctx context.Context, username string) (*channelmodels.Channel, error) {
	if m.getByUsernameFunc != nil {
		return m.getByUsernameFunc(ctx, username)
	}
	return nil, channelrepo.ErrChannelNotFound
}
func (m *mockChannelRepo) GetByUsernameTx(ctx context.Context, tx *sql.Tx, username string) (*channelmodels.Channel, error) {
	if m.getByUsernameTxFunc != nil {
		return m.getByUsernameTxFunc(ctx, tx, username)
	}
	return nil, channelrepo.ErrChannelNotFound
}
func (m *mockChannelRepo) ListApproved(ctx context.Context, filter channelrepo.ListFilter) ([]*channelmodels.Channel, error) {
	return nil, nil
}
func (m *mockChannelRepo) ListByOwner(ctx context.Context, ownerID int64) ([]*channelmodels.Channel, error) {
	return nil, nil
}
func (m *mockChannelRepo) UpdateListingTx(ctx context.Context, tx *sql.Tx, ch *channelmodels.Channel) error {
	m.updated = append(m.updated, ch)
	return nil
}
func (m *mockChannelRepo) SetTopPromotedTx(ctx context.Context, tx *sql.Tx, id int64) error {
	return nil
}
func (m *mockChannelRepo) SetUltraTopTx(ctx context.Context, tx *sql.Tx, id int64, expiry time.Time) error {
	return nil
}
func (m *mockChannelRepo) ClearExpiredUltraTop(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}
func (m *mockChannelRepo) UpdateSubscribers(ctx context.Context, id int64, subscribers int) error {
	return nil
}
func (m *mockChannelRepo) ListUsernamesForRefresh(ctx context.Context) ([]*channelmodels.Channel, error) {
	return nil, nil
}
func (m *mockChannelRepo) GetCategoryByID(ctx context.Context, id int64) (*channelmodels.Category, error) {
	if m.category != nil && m.category.ID == id {
		return m.category, nil
	}
	return nil, channelrepo.ErrCategoryNotFound
}
func (m *mockChannelRepo) ListCategories(ctx context.Context) ([]*channelmodels.Category, error) {
	return nil, nil
}

type mockUserRepo struct {
	balances map[int64]decimal.Decimal
	deltas   []decimal.Decimal
}

func (m *mockUserRepo) Create(ctx context.Context, user *usermodels.User) error { return nil }
func (m *mockUserRepo) GetByID(ctx context.Context, id int64) (*usermodels.User, error) {
	return nil, userrepo.ErrUserNotFound
}
func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*usermodels.User, error) {
	return nil, userrepo.ErrUserNotFound
}
func (m *mockUserRepo) GetByTelegramID(ctx context.Context, telegramID int64) (*usermodels.User, error) {
	return nil, userrepo.ErrUserNotFound
}
func (m *mockUserRepo) UpdateStatus(ctx context.Context, id int64, status usermodels.UserStatus) error {
	return nil
}
func (m *mockUserRepo) AdjustBalance(ctx context.Context, id int64, delta decimal.Decimal) (decimal.Decimal, error) {
	return m.AdjustBalanceTx(ctx, nil, id, delta)
}
func (m *mockUserRepo) AdjustBalanceTx(ctx context.Context, tx *sql.Tx, id int64, delta decimal.Decimal) (decimal.Decimal, error) {
	if m.balances == nil {
		m.balances = map[int64]decimal.Decimal{}
	}
	m.deltas = append(m.deltas, delta)
	m.balances[id] = m.balances[id].Add(delta)
	return m.balances[id], nil
}
func (m *mockUserRepo) GetBalanceForUpdateTx(ctx context.Context, tx *sql.Tx, id int64) (decimal.Decimal, error) {
	if m.balances == nil {
		return decimal.Zero, nil
	}
	return m.balances[id], nil
}

type mockPaymentRepo struct {
	recorded []*paymentmodels.Payment
}

func (m *mockPaymentRepo) Create(ctx context.Context, payment *paymentmodels.Payment) error {
	return nil
}
func (m *mockPaymentRepo) CreateTx(ctx context.Context, tx *sql.Tx, payment *paymentmodels.Payment) error {
	m.recorded = append(m.recorded, payment)
	return nil
}
func (m *mockPaymentRepo) GetByID(ctx context.Context, id int64) (*paymentmodels.Payment, error) {
	return nil, paymentrepo.ErrPaymentNotFound
}
func (m *mockPaymentRepo) GetByInvoiceID(ctx context.Context, invoiceID string) (*paymentmodels.Payment, error) {
	return nil, paymentrepo.ErrPaymentNotFound
}
func (m *mockPaymentRepo) ListByUser(ctx context.Context, userID int64, limit int) ([]*paymentmodels.Payment, error) {
	return nil, nil
}
func (m *mockPaymentRepo) MarkCompleted(ctx context.Context, id int64) error { return nil }

type mockNotifications struct {
	emitted  []notifmodels.NotificationType
	messages []string
}

func (m *mockNotifications) Emit(ctx context.Context, userID int64, typ notifmodels.NotificationType, title, message string) {
	m.emitted = append(m.emitted, typ)
	m.messages = append(m.messages, message)
}
func (m *mockNotifications) List(ctx context.Context, userID int64, limit int) ([]*notifmodels.Notification, error) {
	return nil, nil
}
func (m *mockNotifications) CountUnread(ctx context.Context, userID int64) (int, error) {
	return 0, nil
}
func (m *mockNotifications) MarkRead(ctx context.Context, id, userID int64) error { return nil }
func (m *mockNotifications) MarkAllRead(ctx context.Context, userID int64) error  { return nil }

// --- фикстуры ---

type fixture struct {
	svc           ApplicationService
	mock          sqlmock.Sqlmock
	applications  *mockApplicationRepo
	channels      *mockChannelRepo
	users         *mockUserRepo
	payments      *mockPaymentRepo
	notifications *mockNotifications
	close         func()
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	f := &fixture{
		mock: mock,
		applications: &mockApplicationRepo{},
		channels: &mockChannelRepo{
			category: &channelmodels.Category{
				ID:              2,
				Name:            "News",
				Slug:            "news",
				SubmissionPrice: decimal.NewFromInt(30),
			},
		},
		users:         &mockUserRepo{balances: map[int64]decimal.Decimal{}},
		payments:      &mockPaymentRepo{},
		notifications: &mockNotifications{},
		close:         func() { sqlDB.Close() },
	}
	f.svc = NewApplicationService(sqlDB, f.applications, f.channels, f.users, f.payments, f.notifications, nil)
	return f
}

func pendingApplication() *models.Application {
	return &models.Application{
		ID:          10,
		ApplicantID: 42,
		CategoryID:  2,
		Type:        channelmodels.ChannelTypeChannel,
		Username:    "crypto_news",
		Name:        "Crypto News",
		Description: "Daily digests",
		Price:       decimal.NewFromInt(30),
		Status:      models.ApplicationStatusPending,
	}
}

// --- подача ---

func TestSubmit_DebitsFeeAndCreatesPendingApplication(t *testing.T) {
	f := newFixture(t)
	defer f.close()

	f.users.balances[42] = decimal.NewFromInt(1000)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	app, err := f.svc.Submit(context.Background(), 42, SubmitInput{
		ChannelURL:  "https://t.me/crypto_news",
		CategoryID:  2,
		Name:        "Crypto News",
		Description: "Daily digests",
	})
	require.NoError(t, err)

	assert.Equal(t, models.ApplicationStatusPending, app.Status)
	assert.Equal(t, "crypto_news", app.Username)
	assert.True(t, app.Price.Equal(decimal.NewFromInt(30)))

	// 1000 - 30 = 970
	assert.True(t, f.users.balances[42].Equal(decimal.NewFromInt(970)))

	require.Len(t, f.payments.recorded, 1)
	assert.Equal(t, paymentmodels.PaymentTypeChannelSubmission, f.payments.recorded[0].Type)
	assert.True(t, f.payments.recorded[0].Amount.Equal(decimal.NewFromInt(30)))

	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestSubmit_InsufficientFunds(t *testing.T) {
	f := newFixture(t)
	defer f.close()

	f.users.balances[42] = decimal.NewFromInt(10)
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := f.svc.Submit(context.Background(), 42, SubmitInput{
		ChannelURL:  "https://t.me/crypto_news",
		CategoryID:  2,
		Name:        "Crypto News",
		Description: "Daily digests",
	})
	require.Error(t, err)

	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeInsufficientFunds, appErr.Code)

	// Баланс не тронут, платеж не записан
	assert.True(t, f.users.balances[42].Equal(decimal.NewFromInt(10)))
	assert.Empty(t, f.payments.recorded)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestSubmit_ClaimedByAnotherOwner(t *testing.T) {
	f := newFixture(t)
	defer f.close()

	f.channels.getByUsernameFunc = func(ctx context.Context, username string) (*channelmodels.Channel, error) {
		return &channelmodels.Channel{ID: 7, OwnerID: 99, Username: username}, nil
	}

	_, err := f.svc.Submit(context.Background(), 42, SubmitInput{
		ChannelURL:  "https://t.me/crypto_news",
		CategoryID:  2,
		Name:        "Crypto News",
		Description: "Daily digests",
	})
	require.Error(t, err)

	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeChannelClaimed, appErr.Code)
}

func TestSubmit_PendingApplicationBlocks(t *testing.T) {
	f := newFixture(t)
	defer f.close()

	f.applications.hasPendingByUsernameFunc = func(ctx context.Context, username string) (bool, error) {
		return true, nil
	}

	_, err := f.svc.Submit(context.Background(), 42, SubmitInput{
		ChannelURL:  "https://t.me/crypto_news",
		CategoryID:  2,
		Name:        "Crypto News",
		Description: "Daily digests",
	})
	require.Error(t, err)
}

// --- одобрение ---

func TestApprove_CreatesChannelAndPaysModerator(t *testing.T) {
	f := newFixture(t)
	defer f.close()

	f.applications.getByIDForUpdateTxFunc = func(ctx context.Context, tx *sql.Tx, id int64) (*models.Application, error) {
		return pendingApplication(), nil
	}
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	app, err := f.svc.Approve(context.Background(), 7, usermodels.RoleModerator, 10)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusApproved, app.Status)

	// Новый канал создан со статусом approved и владельцем-заявителем
	require.Len(t, f.channels.created, 1)
	created := f.channels.created[0]
	assert.Equal(t, int64(42), created.OwnerID)
	assert.Equal(t, channelmodels.ChannelStatusApproved, created.Status)
	assert.Equal(t, "crypto_news", created.Username)
	assert.Empty(t, f.channels.updated)

	// Модератору начислено ровно 0.25 с записью платежа
	assert.True(t, f.users.balances[7].Equal(decimal.RequireFromString("0.25")))
	require.Len(t, f.payments.recorded, 1)
	assert.Equal(t, paymentmodels.PaymentTypeModeratorEarnings, f.payments.recorded[0].Type)
	assert.True(t, f.payments.recorded[0].Amount.Equal(decimal.RequireFromString("0.25")))

	assert.Equal(t, []notifmodels.NotificationType{notifmodels.TypeApplicationApproved}, f.notifications.emitted)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestApprove_AdminGetsNoReward(t *testing.T) {
	f := newFixture(t)
	defer f.close()

	f.applications.getByIDForUpdateTxFunc = func(ctx context.Context, tx *sql.Tx, id int64) (*models.Application, error) {
		return pendingApplication(), nil
	}
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	_, err := f.svc.Approve(context.Background(), 7, usermodels.RoleAdmin, 10)
	require.NoError(t, err)

	assert.Empty(t, f.users.deltas)
	assert.Empty(t, f.payments.recorded)
}

func TestApprove_ExistingOwnChannelIsUpdatedNotDuplicated(t *testing.T) {
	f := newFixture(t)
	defer f.close()

	f.applications.getByIDForUpdateTxFunc = func(ctx context.Context, tx *sql.Tx, id int64) (*models.Application, error) {
		return pendingApplication(), nil
	}
	f.channels.getByUsernameTxFunc = func(ctx context.Context, tx *sql.Tx, username string) (*channelmodels.Channel, error) {
		return &channelmodels.Channel{
			ID: 7, OwnerID: 42, Username: username,
			Status: channelmodels.ChannelStatusRejected,
		}, nil
	}
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	_, err := f.svc.Approve(context.Background(), 7, usermodels.RoleModerator, 10)
	require.NoError(t, err)

	assert.Empty(t, f.channels.created, "existing channel must be updated, not duplicated")
	require.Len(t, f.channels.updated, 1)
	assert.Equal(t, "Crypto News", f.channels.updated[0].Name)
}

func TestApprove_SettledApplicationConflicts(t *testing.T) {
	f := newFixture(t)
	defer f.close()

	f.applications.getByIDForUpdateTxFunc = func(ctx context.Context, tx *sql.Tx, id int64) (*models.Application, error) {
		app := pendingApplication()
		app.Status = models.ApplicationStatusRejected
		return app, nil
	}
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := f.svc.Approve(context.Background(), 7, usermodels.RoleModerator, 10)
	require.Error(t, err)

	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeApplicationSettled, appErr.Code)
	assert.Empty(t, f.channels.created)
}

// --- отклонение ---

func TestReject_NeverTouchesBalanceAndNotifiesWithReason(t *testing.T) {
	f := newFixture(t)
	defer f.close()

	f.users.balances[42] = decimal.NewFromInt(970)
	f.applications.getByIDForUpdateTxFunc = func(ctx context.Context, tx *sql.Tx, id int64) (*models.Application, error) {
		return pendingApplication(), nil
	}
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	app, err := f.svc.Reject(context.Background(), 7, usermodels.RoleModerator, 10, "not a real channel")
	require.NoError(t, err)

	assert.Equal(t, models.ApplicationStatusRejected, app.Status)
	require.NotNil(t, app.RejectionReason)
	assert.Equal(t, "not a real channel", *app.RejectionReason)

	// Плата за подачу не возвращается
	assert.True(t, f.users.balances[42].Equal(decimal.NewFromInt(970)))
	assert.Empty(t, f.users.deltas)

	require.Len(t, f.notifications.emitted, 1)
	assert.Equal(t, notifmodels.TypeApplicationRejected, f.notifications.emitted[0])
	assert.Contains(t, f.notifications.messages[0], "not a real channel")
}

func TestReject_RequiresReason(t *testing.T) {
	f := newFixture(t)
	defer f.close()

	_, err := f.svc.Reject(context.Background(), 7, usermodels.RoleModerator, 10, "")
	require.Error(t, err)
}
