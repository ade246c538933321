package repository

import (
	"fmt"

	"github.com/yourusername/odd2/internal/database"
)

// Repositories holds all repository implementations
type Repositories struct {
	Prediction   PredictionRepository
	Payment      PaymentRepository
	Session      SessionRepository
	ExchangeRate ExchangeRateRepository
}

// NewRepositories creates and returns all repository implementations
func NewRepositories(db *database.DB) (*Repositories, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	return &Repositories{
		Prediction:   NewPostgresPredictionRepository(db),
		Payment:      NewPostgresPaymentRepository(db),
		Session:      NewPostgresSessionRepository(db),
		ExchangeRate: NewPostgresExchangeRateRepository(db),
	}, nil
}
