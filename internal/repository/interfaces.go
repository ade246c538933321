package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/yourusername/odd2/internal/models"
)

// PredictionRepository defines the interface for prediction data access
type PredictionRepository interface {
	// CreateWithTx inserts a prediction and its matches inside the given transaction
	CreateWithTx(ctx context.Context, tx pgx.Tx, prediction *models.Prediction) error
	// ExpirePendingWithTx marks every pending prediction expired inside the given transaction
	ExpirePendingWithTx(ctx context.Context, tx pgx.Tx) (int64, error)
	// GetCurrent returns the most recent pending prediction of the given type
	GetCurrent(ctx context.Context, predictionType models.PredictionType) (*models.Prediction, error)
	// GetPending returns all pending predictions with their matches
	GetPending(ctx context.Context) ([]*models.Prediction, error)
	// GetHistory returns settled predictions of a type created after since
	GetHistory(ctx context.Context, predictionType models.PredictionType, since time.Time, limit int) ([]*models.Prediction, error)
	// UpdateStatus transitions a prediction's lifecycle status
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.PredictionStatus, completedAt *time.Time) error
	// UpdateMatchResult stores a settled leg's result and actual goals
	UpdateMatchResult(ctx context.Context, match *models.PredictionMatch) error
	// CountByStatus returns prediction counts keyed by status
	CountByStatus(ctx context.Context) (map[models.PredictionStatus]int, error)
}

// PaymentRepository defines the interface for payment data access
type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	GetByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error)
	Update(ctx context.Context, payment *models.Payment) error
}

// SessionRepository defines the interface for user session data access
type SessionRepository interface {
	Create(ctx context.Context, session *models.UserSession) error
	GetByToken(ctx context.Context, token string) (*models.UserSession, error)
	GetLatestForPrediction(ctx context.Context, predictionID uuid.UUID) (*models.UserSession, error)
	Update(ctx context.Context, session *models.UserSession) error
	// ExpireAll caps every remaining access grant at the given time
	ExpireAll(ctx context.Context, at time.Time) (int64, error)
	// DeleteOlderThan removes sessions created before the cutoff
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// ExchangeRateRepository defines the interface for exchange rate data access
type ExchangeRateRepository interface {
	Upsert(ctx context.Context, rate *models.ExchangeRate) error
	GetRate(ctx context.Context, base, target string) (*models.ExchangeRate, error)
	GetAll(ctx context.Context, base string) ([]*models.ExchangeRate, error)
}
