package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/odd2/internal/models"
	"github.com/yourusername/odd2/internal/payment"
)

// MockPaymentRepository mocks payment persistence
type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) Create(ctx context.Context, p *models.Payment) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockPaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func (m *MockPaymentRepository) GetByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func (m *MockPaymentRepository) Update(ctx context.Context, p *models.Payment) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

// MockSessionRepository mocks session persistence
type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) Create(ctx context.Context, s *models.UserSession) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockSessionRepository) GetByToken(ctx context.Context, token string) (*models.UserSession, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserSession), args.Error(1)
}

func (m *MockSessionRepository) GetLatestForPrediction(ctx context.Context, predictionID uuid.UUID) (*models.UserSession, error) {
	args := m.Called(ctx, predictionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserSession), args.Error(1)
}

func (m *MockSessionRepository) Update(ctx context.Context, s *models.UserSession) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockSessionRepository) ExpireAll(ctx context.Context, at time.Time) (int64, error) {
	args := m.Called(ctx, at)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSessionRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

// MockPredictionRepository mocks prediction persistence
type MockPredictionRepository struct {
	mock.Mock
}

func (m *MockPredictionRepository) CreateWithTx(ctx context.Context, tx pgx.Tx, p *models.Prediction) error {
	args := m.Called(ctx, tx, p)
	return args.Error(0)
}

func (m *MockPredictionRepository) ExpirePendingWithTx(ctx context.Context, tx pgx.Tx) (int64, error) {
	args := m.Called(ctx, tx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPredictionRepository) GetCurrent(ctx context.Context, predictionType models.PredictionType) (*models.Prediction, error) {
	args := m.Called(ctx, predictionType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Prediction), args.Error(1)
}

func (m *MockPredictionRepository) GetPending(ctx context.Context) ([]*models.Prediction, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Prediction), args.Error(1)
}

func (m *MockPredictionRepository) GetHistory(ctx context.Context, predictionType models.PredictionType, since time.Time, limit int) ([]*models.Prediction, error) {
	args := m.Called(ctx, predictionType, since, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Prediction), args.Error(1)
}

func (m *MockPredictionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.PredictionStatus, completedAt *time.Time) error {
	args := m.Called(ctx, id, status, completedAt)
	return args.Error(0)
}

func (m *MockPredictionRepository) UpdateMatchResult(ctx context.Context, match *models.PredictionMatch) error {
	args := m.Called(ctx, match)
	return args.Error(0)
}

func (m *MockPredictionRepository) CountByStatus(ctx context.Context) (map[models.PredictionStatus]int, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[models.PredictionStatus]int), args.Error(1)
}

// MockPaymentProvider mocks the Relworx client
type MockPaymentProvider struct {
	mock.Mock
}

func (m *MockPaymentProvider) InitiatePayment(ctx context.Context, req *payment.InitiateRequest) (*payment.InitiateResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.InitiateResponse), args.Error(1)
}

func (m *MockPaymentProvider) CheckStatus(ctx context.Context, transactionID string) (string, error) {
	args := m.Called(ctx, transactionID)
	return args.String(0), args.Error(1)
}

func (m *MockPaymentProvider) VerifyWebhook(signature string, body []byte) bool {
	args := m.Called(signature, body)
	return args.Bool(0)
}

// mockRateStore always misses, forcing the fallback rate table
type mockRateStore struct{}

func (mockRateStore) GetRate(ctx context.Context, base, target string) (*models.ExchangeRate, error) {
	return nil, models.ErrNotFound
}

func (mockRateStore) Upsert(ctx context.Context, rate *models.ExchangeRate) error {
	return nil
}

type accessFixture struct {
	payments    *MockPaymentRepository
	sessions    *MockSessionRepository
	predictions *MockPredictionRepository
	provider    *MockPaymentProvider
	service     *AccessService
}

func newAccessFixture(t *testing.T) *accessFixture {
	t.Helper()

	f := &accessFixture{
		payments:    new(MockPaymentRepository),
		sessions:    new(MockSessionRepository),
		predictions: new(MockPredictionRepository),
		provider:    new(MockPaymentProvider),
	}

	converter := payment.NewCurrencyConverter(mockRateStore{}, "UGX", quietLogger())
	f.service = NewAccessService(
		f.payments,
		f.sessions,
		f.predictions,
		f.provider,
		converter,
		5000,
		kampala(t),
		quietLogger(),
	)
	return f
}

func pendingVIP() *models.Prediction {
	return &models.Prediction{
		ID:     uuid.New(),
		Type:   models.PredictionTypeVIP,
		Status: models.PredictionStatusPending,
	}
}

func TestStartPurchaseInitiatesCollection(t *testing.T) {
	f := newAccessFixture(t)
	vip := pendingVIP()

	f.predictions.On("GetCurrent", mock.Anything, models.PredictionTypeVIP).Return(vip, nil)
	f.payments.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.provider.On("InitiatePayment", mock.Anything, mock.MatchedBy(func(req *payment.InitiateRequest) bool {
		return req.Currency == "KES" && req.PhoneNumber == "+254700000001" && req.Amount == 180
	})).Return(&payment.InitiateResponse{TransactionID: "TX-1", Status: "pending"}, nil)
	f.payments.On("Update", mock.Anything, mock.Anything).Return(nil)

	result, err := f.service.StartPurchase(context.Background(), "+254700000001", "KES")
	require.NoError(t, err)

	assert.Equal(t, "TX-1", result.TransactionID)
	assert.Equal(t, vip.ID, result.Payment.PredictionID)
	// 5000 UGX at the 0.035 fallback rate, rounded to the nearest 10
	assert.Equal(t, 180.0, result.Payment.Amount)
	assert.Equal(t, "KES", result.Payment.Currency)
	f.payments.AssertExpectations(t)
	f.provider.AssertExpectations(t)
}

func TestStartPurchaseMarksFailureWhenProviderErrors(t *testing.T) {
	f := newAccessFixture(t)

	f.predictions.On("GetCurrent", mock.Anything, models.PredictionTypeVIP).Return(pendingVIP(), nil)
	f.payments.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.provider.On("InitiatePayment", mock.Anything, mock.Anything).Return(nil, assertableError("provider down"))
	f.payments.On("Update", mock.Anything, mock.MatchedBy(func(p *models.Payment) bool {
		return p.Status == models.PaymentStatusFailed
	})).Return(nil)

	_, err := f.service.StartPurchase(context.Background(), "+256700000001", "UGX")
	assert.Error(t, err)
	f.payments.AssertExpectations(t)
}

func TestHandleCallbackCompletedMintsSession(t *testing.T) {
	f := newAccessFixture(t)
	predictionID := uuid.New()
	txID := "TX-9"

	record := &models.Payment{
		ID:            uuid.New(),
		PredictionID:  predictionID,
		TransactionID: &txID,
		Status:        models.PaymentStatusPending,
	}

	f.payments.On("GetByTransactionID", mock.Anything, txID).Return(record, nil)
	f.payments.On("Update", mock.Anything, record).Return(nil)
	f.sessions.On("GetLatestForPrediction", mock.Anything, predictionID).Return(nil, models.ErrNotFound)
	f.sessions.On("Create", mock.Anything, mock.Anything).Return(nil)

	session, err := f.service.HandleCallback(context.Background(), txID, "completed")
	require.NoError(t, err)
	require.NotNil(t, session)

	assert.NotEmpty(t, session.Token)
	require.NotNil(t, session.AccessExpiresAt)
	assert.True(t, session.AccessExpiresAt.After(time.Now()))
	assert.Equal(t, predictionID, *session.VIPPredictionID)
	assert.Equal(t, models.PaymentStatusCompleted, record.Status)
}

func TestHandleCallbackExtendsExistingSession(t *testing.T) {
	f := newAccessFixture(t)
	predictionID := uuid.New()
	txID := "TX-10"

	record := &models.Payment{ID: uuid.New(), PredictionID: predictionID, TransactionID: &txID}
	past := time.Now().Add(-time.Hour)
	existing := &models.UserSession{
		ID:              uuid.New(),
		Token:           "existing-token",
		VIPPredictionID: &predictionID,
		AccessExpiresAt: &past,
	}

	f.payments.On("GetByTransactionID", mock.Anything, txID).Return(record, nil)
	f.payments.On("Update", mock.Anything, record).Return(nil)
	f.sessions.On("GetLatestForPrediction", mock.Anything, predictionID).Return(existing, nil)
	f.sessions.On("Update", mock.Anything, existing).Return(nil)

	session, err := f.service.HandleCallback(context.Background(), txID, "success")
	require.NoError(t, err)
	require.NotNil(t, session)

	assert.Equal(t, "existing-token", session.Token)
	assert.True(t, session.AccessExpiresAt.After(time.Now()))
}

func TestHandleCallbackFailedPaymentMintsNothing(t *testing.T) {
	f := newAccessFixture(t)
	txID := "TX-11"
	record := &models.Payment{ID: uuid.New(), PredictionID: uuid.New(), TransactionID: &txID}

	f.payments.On("GetByTransactionID", mock.Anything, txID).Return(record, nil)
	f.payments.On("Update", mock.Anything, record).Return(nil)

	session, err := f.service.HandleCallback(context.Background(), txID, "failed")
	require.NoError(t, err)

	assert.Nil(t, session)
	assert.Equal(t, models.PaymentStatusFailed, record.Status)
	f.sessions.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestValidateSessionExpired(t *testing.T) {
	f := newAccessFixture(t)
	past := time.Now().Add(-time.Minute)
	expired := &models.UserSession{Token: "tok", AccessExpiresAt: &past}

	f.sessions.On("GetByToken", mock.Anything, "tok").Return(expired, nil)

	_, err := f.service.ValidateSession(context.Background(), "tok")
	assert.ErrorIs(t, err, models.ErrSessionExpired)
}

func TestValidateSessionActive(t *testing.T) {
	f := newAccessFixture(t)
	future := time.Now().Add(time.Hour)
	active := &models.UserSession{Token: "tok", AccessExpiresAt: &future}

	f.sessions.On("GetByToken", mock.Anything, "tok").Return(active, nil)

	session, err := f.service.ValidateSession(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, active, session)
}

// assertableError is a trivial error for mock returns
type assertableError string

func (e assertableError) Error() string { return string(e) }
