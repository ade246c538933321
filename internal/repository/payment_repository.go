package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/yourusername/odd2/internal/database"
	"github.com/yourusername/odd2/internal/models"
)

// PostgresPaymentRepository implements PaymentRepository for PostgreSQL
type PostgresPaymentRepository struct {
	db *database.DB
}

// NewPostgresPaymentRepository creates a new payment repository
func NewPostgresPaymentRepository(db *database.DB) PaymentRepository {
	return &PostgresPaymentRepository{db: db}
}

// Create inserts a new payment
func (r *PostgresPaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	query := `
		INSERT INTO payments (id, prediction_id, amount, currency, transaction_id, payment_status, phone_number, paid_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.GetPool().Exec(ctx, query,
		payment.ID, payment.PredictionID, payment.Amount, payment.Currency,
		payment.TransactionID, payment.Status, payment.PhoneNumber, payment.PaidAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}

	return nil
}

// GetByID retrieves a payment by ID
func (r *PostgresPaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	query := `
		SELECT id, prediction_id, amount, currency, transaction_id, payment_status, phone_number, paid_at
		FROM payments WHERE id = $1
	`
	return r.scanOne(r.db.GetPool().QueryRow(ctx, query, id))
}

// GetByTransactionID retrieves a payment by the provider's transaction ID
func (r *PostgresPaymentRepository) GetByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error) {
	query := `
		SELECT id, prediction_id, amount, currency, transaction_id, payment_status, phone_number, paid_at
		FROM payments WHERE transaction_id = $1
		ORDER BY paid_at DESC
		LIMIT 1
	`
	return r.scanOne(r.db.GetPool().QueryRow(ctx, query, transactionID))
}

// Update updates an existing payment
func (r *PostgresPaymentRepository) Update(ctx context.Context, payment *models.Payment) error {
	query := `
		UPDATE payments SET transaction_id = $2, payment_status = $3 WHERE id = $1
	`

	commandTag, err := r.db.GetPool().Exec(ctx, query, payment.ID, payment.TransactionID, payment.Status)
	if err != nil {
		return fmt.Errorf("failed to update payment: %w", err)
	}
	if commandTag.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

func (r *PostgresPaymentRepository) scanOne(row pgx.Row) (*models.Payment, error) {
	payment := &models.Payment{}
	err := row.Scan(
		&payment.ID, &payment.PredictionID, &payment.Amount, &payment.Currency,
		&payment.TransactionID, &payment.Status, &payment.PhoneNumber, &payment.PaidAt,
	)
	if err == pgx.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan payment: %w", err)
	}
	return payment, nil
}
