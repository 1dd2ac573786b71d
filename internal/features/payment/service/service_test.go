package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	notifmodels "channel-market-backend/internal/features/notification/models"
	"channel-market-backend/internal/features/payment/gateway"
	"channel-market-backend/internal/features/payment/models"
	paymentrepo "channel-market-backend/internal/features/payment/repository"
	usermodels "channel-market-backend/internal/features/user/models"
	userrepo "channel-market-backend/internal/features/user/repository"
)

type mockPaymentRepo struct {
	getByInvoiceIDFunc func(ctx context.Context, invoiceID string) (*models.Payment, error)
	createTxFunc       func(ctx context.Context, tx *sql.Tx, payment *models.Payment) error
}

func (m *mockPaymentRepo) Create(ctx context.Context, payment *models.Payment) error { return nil }
func (m *mockPaymentRepo) CreateTx(ctx context.Context, tx *sql.Tx, payment *models.Payment) error {
	if m.createTxFunc != nil {
		return m.createTxFunc(ctx, tx, payment)
	}
	return nil
}
func (m *mockPaymentRepo) GetByID(ctx context.Context, id int64) (*models.Payment, error) {
	return nil, paymentrepo.ErrPaymentNotFound
}
func (m *mockPaymentRepo) GetByInvoiceID(ctx context.Context, invoiceID string) (*models.Payment, error) {
	if m.getByInvoiceIDFunc != nil {
		return m.getByInvoiceIDFunc(ctx, invoiceID)
	}
	return nil, paymentrepo.ErrPaymentNotFound
}
func (m *mockPaymentRepo) ListByUser(ctx context.Context, userID int64, limit int) ([]*models.Payment, error) {
	return nil, nil
}
func (m *mockPaymentRepo) MarkCompleted(ctx context.Context, id int64) error { return nil }

type mockUserRepo struct {
	adjustBalanceTxFunc func(ctx context.Context, tx *sql.Tx, id int64, delta decimal.Decimal) (decimal.Decimal, error)
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
	return decimal.Zero, nil
}
func (m *mockUserRepo) AdjustBalanceTx(ctx context.Context, tx *sql.Tx, id int64, delta decimal.Decimal) (decimal.Decimal, error) {
	if m.adjustBalanceTxFunc != nil {
		return m.adjustBalanceTxFunc(ctx, tx, id, delta)
	}
	return delta, nil
}
func (m *mockUserRepo) GetBalanceForUpdateTx(ctx context.Context, tx *sql.Tx, id int64) (decimal.Decimal, error) {
	return decimal.Zero, nil
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

func topupNotification() *gateway.Notification {
	return &gateway.Notification{
		Provider:      gateway.ProviderFreeKassa,
		UserID:        42,
		Amount:        decimal.NewFromInt(150),
		InvoiceID:     "freekassa:order-17",
		TransactionID: "987654",
	}
}

func TestProcessGatewayTopup_CreditsOnce(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	mock.ExpectBegin()
	mock.ExpectCommit()

	var credited []decimal.Decimal
	users := &mockUserRepo{
		adjustBalanceTxFunc: func(ctx context.Context, tx *sql.Tx, id int64, delta decimal.Decimal) (decimal.Decimal, error) {
			credited = append(credited, delta)
			return delta, nil
		},
	}
	var recorded []*models.Payment
	payments := &mockPaymentRepo{
		createTxFunc: func(ctx context.Context, tx *sql.Tx, payment *models.Payment) error {
			recorded = append(recorded, payment)
			return nil
		},
	}
	notifications := &mockNotifications{}

	svc := NewPaymentService(sqlDB, payments, users, notifications)
	require.NoError(t, svc.ProcessGatewayTopup(context.Background(), topupNotification()))

	require.Len(t, credited, 1)
	assert.True(t, credited[0].Equal(decimal.NewFromInt(150)))

	require.Len(t, recorded, 1)
	assert.Equal(t, models.PaymentTypeBalanceTopup, recorded[0].Type)
	assert.Equal(t, models.PaymentStatusCompleted, recorded[0].Status)
	require.NotNil(t, recorded[0].InvoiceID)
	assert.Equal(t, "freekassa:order-17", *recorded[0].InvoiceID)

	assert.Equal(t, []notifmodels.NotificationType{notifmodels.TypeBalanceTopup}, notifications.emitted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessGatewayTopup_DuplicateInvoiceIsNoop(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	// Повторная доставка: платеж уже есть, транзакция не открывается
	payments := &mockPaymentRepo{
		getByInvoiceIDFunc: func(ctx context.Context, invoiceID string) (*models.Payment, error) {
			return &models.Payment{ID: 1, InvoiceID: &invoiceID}, nil
		},
	}

	var credited int
	users := &mockUserRepo{
		adjustBalanceTxFunc: func(ctx context.Context, tx *sql.Tx, id int64, delta decimal.Decimal) (decimal.Decimal, error) {
			credited++
			return delta, nil
		},
	}

	svc := NewPaymentService(sqlDB, payments, users, &mockNotifications{})
	require.NoError(t, svc.ProcessGatewayTopup(context.Background(), topupNotification()))

	assert.Zero(t, credited, "duplicate delivery must not credit again")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessGatewayTopup_RaceLoserResolvesToSuccess(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	// Обе доставки прошли pre-check, проигравшая упирается в уникальный
	// индекс по invoice_id и все равно отвечает успехом
	mock.ExpectBegin()
	mock.ExpectRollback()

	payments := &mockPaymentRepo{
		createTxFunc: func(ctx context.Context, tx *sql.Tx, payment *models.Payment) error {
			return paymentrepo.ErrDuplicateInvoice
		},
	}

	svc := NewPaymentService(sqlDB, payments, &mockUserRepo{}, &mockNotifications{})
	assert.NoError(t, svc.ProcessGatewayTopup(context.Background(), topupNotification()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessGatewayTopup_UnknownUserRollsBack(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	users := &mockUserRepo{
		adjustBalanceTxFunc: func(ctx context.Context, tx *sql.Tx, id int64, delta decimal.Decimal) (decimal.Decimal, error) {
			return decimal.Zero, userrepo.ErrUserNotFound
		},
	}

	svc := NewPaymentService(sqlDB, &mockPaymentRepo{}, users, &mockNotifications{})
	assert.Error(t, svc.ProcessGatewayTopup(context.Background(), topupNotification()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
