package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "channel-market-backend/internal/common/errors"
	notifmodels "channel-market-backend/internal/features/notification/models"
	usermodels "channel-market-backend/internal/features/user/models"
	userrepo "channel-market-backend/internal/features/user/repository"
	"channel-market-backend/internal/features/withdrawal/models"
	"channel-market-backend/internal/features/withdrawal/repository"
)

type mockWithdrawalRepo struct {
	getByIDForUpdateTxFunc func(ctx context.Context, tx *sql.Tx, id int64) (*models.WithdrawalRequest, error)
	created                []*models.WithdrawalRequest
	statusChanges          []models.WithdrawalStatus
}

func (m *mockWithdrawalRepo) CreateTx(ctx context.Context, tx *sql.Tx, req *models.WithdrawalRequest) error {
	req.ID = 1
	m.created = append(m.created, req)
	return nil
}
func (m *mockWithdrawalRepo) GetByID(ctx context.Context, id int64) (*models.WithdrawalRequest, error) {
	return nil, repository.ErrWithdrawalNotFound
}
func (m *mockWithdrawalRepo) GetByIDForUpdateTx(ctx context.Context, tx *sql.Tx, id int64) (*models.WithdrawalRequest, error) {
	if m.getByIDForUpdateTxFunc != nil {
		return m.getByIDForUpdateTxFunc(ctx, tx, id)
	}
	return nil, repository.ErrWithdrawalNotFound
}
func (m *mockWithdrawalRepo) ListByUser(ctx context.Context, userID int64) ([]*models.WithdrawalRequest, error) {
	return nil, nil
}
func (m *mockWithdrawalRepo) ListPending(ctx context.Context, limit, offset int) ([]*models.WithdrawalRequest, error) {
	return nil, nil
}
func (m *mockWithdrawalRepo) SetStatusTx(ctx context.Context, tx *sql.Tx, id, processedBy int64, status models.WithdrawalStatus) error {
	m.statusChanges = append(m.statusChanges, status)
	return nil
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

type mockNotifications struct {
	emitted []notifmodels.NotificationType
}

func (m *mockNotifications) Emit(ctx context.Context, userID int64, typ notifmodels.NotificationType, title, message string) {
	m.emitted = append(m.emitted, typ)
}
func (m *mockNotifications) List(ctx context.Context, userID int64, limit int) ([]*notifmodels.Notification, error) {
	return nil, nil
}
func (m *mockNotifications) CountUnread(ctx context.Context, userID int64) (int, error) {
	return 0, nil
}
func (m *mockNotifications) MarkRead(ctx context.Context, id, userID int64) error { return nil }
func (m *mockNotifications) MarkAllRead(ctx context.Context, userID int64) error  { return nil }

func pendingWithdrawal(amount int64) *models.WithdrawalRequest {
	return &models.WithdrawalRequest{
		ID:      5,
		UserID:  42,
		Amount:  decimal.NewFromInt(amount),
		Method:  models.WithdrawalMethodCard,
		Details: "4276 **** **** 1234",
		Status:  models.WithdrawalStatusPending,
	}
}

func TestCreate_ReservesAmount(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	mock.ExpectBegin()
	mock.ExpectCommit()

	withdrawals := &mockWithdrawalRepo{}
	users := &mockUserRepo{balances: map[int64]decimal.Decimal{42: decimal.NewFromInt(500)}}

	svc := NewWithdrawalService(sqlDB, withdrawals, users, &mockNotifications{})
	req, err := svc.Create(context.Background(), 42, decimal.NewFromInt(200), models.WithdrawalMethodCard, "4276 **** **** 1234")
	require.NoError(t, err)

	assert.Equal(t, models.WithdrawalStatusPending, req.Status)
	// Сумма зарезервирована сразу при создании
	assert.True(t, users.balances[42].Equal(decimal.NewFromInt(300)))
	require.Len(t, withdrawals.created, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_InsufficientFunds(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	withdrawals := &mockWithdrawalRepo{}
	users := &mockUserRepo{balances: map[int64]decimal.Decimal{42: decimal.NewFromInt(150)}}

	svc := NewWithdrawalService(sqlDB, withdrawals, users, &mockNotifications{})
	_, err = svc.Create(context.Background(), 42, decimal.NewFromInt(200), models.WithdrawalMethodCard, "4276 **** **** 1234")
	require.Error(t, err)

	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeInsufficientFunds, appErr.Code)

	assert.True(t, users.balances[42].Equal(decimal.NewFromInt(150)))
	assert.Empty(t, withdrawals.created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_BelowMinimum(t *testing.T) {
	sqlDB, _, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	svc := NewWithdrawalService(sqlDB, &mockWithdrawalRepo{}, &mockUserRepo{}, &mockNotifications{})
	_, err = svc.Create(context.Background(), 42, decimal.NewFromInt(99), models.WithdrawalMethodCard, "4276 **** **** 1234")
	assert.Error(t, err)
}

func TestReject_RefundsReservedAmount(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	mock.ExpectBegin()
	mock.ExpectCommit()

	withdrawals := &mockWithdrawalRepo{
		getByIDForUpdateTxFunc: func(ctx context.Context, tx *sql.Tx, id int64) (*models.WithdrawalRequest, error) {
			return pendingWithdrawal(200), nil
		},
	}
	users := &mockUserRepo{balances: map[int64]decimal.Decimal{42: decimal.NewFromInt(300)}}
	notifications := &mockNotifications{}

	svc := NewWithdrawalService(sqlDB, withdrawals, users, notifications)
	req, err := svc.Reject(context.Background(), 1, 5)
	require.NoError(t, err)

	assert.Equal(t, models.WithdrawalStatusRejected, req.Status)
	// Резерв вернулся на баланс
	assert.True(t, users.balances[42].Equal(decimal.NewFromInt(500)))
	assert.Equal(t, []notifmodels.NotificationType{notifmodels.TypeWithdrawalRejected}, notifications.emitted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApprove_DoesNotTouchBalance(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	mock.ExpectBegin()
	mock.ExpectCommit()

	withdrawals := &mockWithdrawalRepo{
		getByIDForUpdateTxFunc: func(ctx context.Context, tx *sql.Tx, id int64) (*models.WithdrawalRequest, error) {
			return pendingWithdrawal(200), nil
		},
	}
	users := &mockUserRepo{balances: map[int64]decimal.Decimal{42: decimal.NewFromInt(300)}}
	notifications := &mockNotifications{}

	svc := NewWithdrawalService(sqlDB, withdrawals, users, notifications)
	req, err := svc.Approve(context.Background(), 1, 5)
	require.NoError(t, err)

	assert.Equal(t, models.WithdrawalStatusApproved, req.Status)
	// Средства были списаны при создании, повторных движений нет
	assert.Empty(t, users.deltas)
	assert.Equal(t, []notifmodels.NotificationType{notifmodels.TypeWithdrawalApproved}, notifications.emitted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDecide_SettledRequestConflicts(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	withdrawals := &mockWithdrawalRepo{
		getByIDForUpdateTxFunc: func(ctx context.Context, tx *sql.Tx, id int64) (*models.WithdrawalRequest, error) {
			req := pendingWithdrawal(200)
			req.Status = models.WithdrawalStatusApproved
			return req, nil
		},
	}
	users := &mockUserRepo{balances: map[int64]decimal.Decimal{42: decimal.NewFromInt(300)}}

	svc := NewWithdrawalService(sqlDB, withdrawals, users, &mockNotifications{})
	_, err = svc.Reject(context.Background(), 1, 5)
	require.Error(t, err)

	// Повторное решение не трогает баланс
	assert.Empty(t, users.deltas)
	assert.NoError(t, mock.ExpectationsWereMet())
}
