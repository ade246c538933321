package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/odd2/internal/metrics"
	"github.com/yourusername/odd2/internal/models"
	"github.com/yourusername/odd2/internal/payment"
	"github.com/yourusername/odd2/internal/repository"
)

// PaymentProvider is the slice of the payment client the access service needs
type PaymentProvider interface {
	InitiatePayment(ctx context.Context, req *payment.InitiateRequest) (*payment.InitiateResponse, error)
	CheckStatus(ctx context.Context, transactionID string) (string, error)
	VerifyWebhook(signature string, body []byte) bool
}

// PurchaseResult is the outcome of starting a VIP purchase
type PurchaseResult struct {
	Payment       *models.Payment `json:"payment"`
	TransactionID string          `json:"transaction_id"`
	Message       string          `json:"message"`
}

// AccessService sells and validates VIP access. A completed mobile money
// payment mints a session token whose access runs until the next prediction
// refresh.
type AccessService struct {
	payments    repository.PaymentRepository
	sessions    repository.SessionRepository
	predictions repository.PredictionRepository
	provider    PaymentProvider
	converter   *payment.CurrencyConverter
	vipPriceUGX int64
	location    *time.Location
	logger      *logrus.Logger
}

// NewAccessService creates the access service
func NewAccessService(
	payments repository.PaymentRepository,
	sessions repository.SessionRepository,
	predictions repository.PredictionRepository,
	provider PaymentProvider,
	converter *payment.CurrencyConverter,
	vipPriceUGX int64,
	location *time.Location,
	logger *logrus.Logger,
) *AccessService {
	return &AccessService{
		payments:    payments,
		sessions:    sessions,
		predictions: predictions,
		provider:    provider,
		converter:   converter,
		vipPriceUGX: vipPriceUGX,
		location:    location,
		logger:      logger,
	}
}

// LocalizedPrice returns the VIP price in the visitor's currency
func (s *AccessService) LocalizedPrice(ctx context.Context, currency string) payment.Price {
	return s.converter.VIPPrice(ctx, s.vipPriceUGX, currency)
}

// VerifyWebhook checks a webhook signature against the raw body
func (s *AccessService) VerifyWebhook(signature string, body []byte) bool {
	return s.provider.VerifyWebhook(signature, body)
}

// StartPurchase creates a pending payment for the current VIP prediction and
// initiates the mobile money collection. The customer completes the charge
// on their phone; the webhook or a status poll finishes the flow.
func (s *AccessService) StartPurchase(ctx context.Context, phoneNumber, currency string) (*PurchaseResult, error) {
	current, err := s.predictions.GetCurrent(ctx, models.PredictionTypeVIP)
	if err != nil {
		return nil, fmt.Errorf("no VIP prediction available: %w", err)
	}

	price := s.converter.VIPPrice(ctx, s.vipPriceUGX, currency)

	record := &models.Payment{
		ID:           uuid.New(),
		PredictionID: current.ID,
		Amount:       float64(price.Amount),
		Currency:     price.Currency,
		Status:       models.PaymentStatusPending,
		PhoneNumber:  &phoneNumber,
		PaidAt:       time.Now().UTC(),
	}
	if err := s.payments.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to create payment record: %w", err)
	}

	resp, err := s.provider.InitiatePayment(ctx, &payment.InitiateRequest{
		Amount:      price.Amount,
		Currency:    price.Currency,
		PhoneNumber: phoneNumber,
		Reference:   record.ID.String(),
	})
	if err != nil {
		record.Status = models.PaymentStatusFailed
		if updateErr := s.payments.Update(ctx, record); updateErr != nil {
			s.logger.WithError(updateErr).Warn("Failed to mark payment failed")
		}
		return nil, fmt.Errorf("payment initiation failed: %w", err)
	}

	record.TransactionID = &resp.TransactionID
	if err := s.payments.Update(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to store transaction reference: %w", err)
	}

	metrics.RecordPaymentInitiated(price.Currency)
	return &PurchaseResult{
		Payment:       record,
		TransactionID: resp.TransactionID,
		Message:       "Payment initiated. Please complete on your phone.",
	}, nil
}

// HandleCallback processes a provider webhook: it records the final payment
// status and, on completion, mints or extends the VIP session for the paid
// prediction. Returns the session only for completed payments.
func (s *AccessService) HandleCallback(ctx context.Context, transactionID, status string) (*models.UserSession, error) {
	record, err := s.payments.GetByTransactionID(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("payment %s not found: %w", transactionID, err)
	}

	switch status {
	case "completed", "success":
		record.Status = models.PaymentStatusCompleted
	case "failed", "cancelled":
		record.Status = models.PaymentStatusFailed
	default:
		record.Status = models.PaymentStatusPending
	}

	if err := s.payments.Update(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to update payment: %w", err)
	}

	if !record.IsCompleted() {
		s.logger.WithFields(logrus.Fields{
			"transaction_id": transactionID,
			"status":         record.Status,
		}).Info("Payment not completed")
		return nil, nil
	}

	metrics.PaymentsCompletedTotal.Inc()
	s.logger.WithField("transaction_id", transactionID).Info("Payment completed")

	return s.grantAccess(ctx, record.PredictionID)
}

// SyncPaymentStatus polls the provider for a transaction and applies the
// result exactly as a webhook would
func (s *AccessService) SyncPaymentStatus(ctx context.Context, transactionID string) (*models.Payment, *models.UserSession, error) {
	status, err := s.provider.CheckStatus(ctx, transactionID)
	if err != nil {
		return nil, nil, fmt.Errorf("status check failed: %w", err)
	}

	session, err := s.HandleCallback(ctx, transactionID, status)
	if err != nil {
		return nil, nil, err
	}

	record, err := s.payments.GetByTransactionID(ctx, transactionID)
	if err != nil {
		return nil, nil, err
	}
	return record, session, nil
}

// ValidateSession checks a session token and returns the session when it
// still grants access
func (s *AccessService) ValidateSession(ctx context.Context, token string) (*models.UserSession, error) {
	session, err := s.sessions.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	if !session.IsValid(time.Now().UTC()) {
		return nil, models.ErrSessionExpired
	}
	return session, nil
}

// CreateDemoAccess mints a VIP session without a real payment. Development
// only; the handler gates it on the environment.
func (s *AccessService) CreateDemoAccess(ctx context.Context) (*models.UserSession, error) {
	current, err := s.predictions.GetCurrent(ctx, models.PredictionTypeVIP)
	if err != nil {
		return nil, fmt.Errorf("no VIP prediction available: %w", err)
	}

	transactionID := fmt.Sprintf("DEMO-%d", time.Now().UnixNano())
	record := &models.Payment{
		ID:            uuid.New(),
		PredictionID:  current.ID,
		Amount:        float64(s.vipPriceUGX),
		Currency:      "UGX",
		TransactionID: &transactionID,
		Status:        models.PaymentStatusCompleted,
		PaidAt:        time.Now().UTC(),
	}
	if err := s.payments.Create(ctx, record); err != nil {
		return nil, err
	}

	return s.grantAccess(ctx, current.ID)
}

// grantAccess mints a session for the prediction, or extends the existing
// one to the next refresh time
func (s *AccessService) grantAccess(ctx context.Context, predictionID uuid.UUID) (*models.UserSession, error) {
	expiresAt := NextUpdateTime(time.Now(), s.location)

	existing, err := s.sessions.GetLatestForPrediction(ctx, predictionID)
	if err == nil {
		existing.AccessExpiresAt = &expiresAt
		if err := s.sessions.Update(ctx, existing); err != nil {
			return nil, fmt.Errorf("failed to extend session: %w", err)
		}
		return existing, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	token, err := generateSessionToken()
	if err != nil {
		return nil, err
	}

	session := &models.UserSession{
		ID:              uuid.New(),
		Token:           token,
		VIPPredictionID: &predictionID,
		AccessExpiresAt: &expiresAt,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"prediction_id": predictionID,
		"expires_at":    expiresAt,
	}).Info("VIP access granted")

	return session, nil
}

// generateSessionToken returns a URL-safe random token
func generateSessionToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
