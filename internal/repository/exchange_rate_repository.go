package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/yourusername/odd2/internal/database"
	"github.com/yourusername/odd2/internal/models"
)

// PostgresExchangeRateRepository implements ExchangeRateRepository for PostgreSQL
type PostgresExchangeRateRepository struct {
	db *database.DB
}

// NewPostgresExchangeRateRepository creates a new exchange rate repository
func NewPostgresExchangeRateRepository(db *database.DB) ExchangeRateRepository {
	return &PostgresExchangeRateRepository{db: db}
}

// Upsert inserts or refreshes the rate for a currency pair in place
func (r *PostgresExchangeRateRepository) Upsert(ctx context.Context, rate *models.ExchangeRate) error {
	if rate.ID == uuid.Nil {
		rate.ID = uuid.New()
	}

	query := `
		INSERT INTO exchange_rates (id, base_currency, target_currency, rate, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (base_currency, target_currency)
		DO UPDATE SET rate = EXCLUDED.rate, updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.GetPool().Exec(ctx, query,
		rate.ID, rate.BaseCurrency, rate.TargetCurrency, rate.Rate, rate.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert exchange rate: %w", err)
	}

	return nil
}

// GetRate retrieves the rate for a currency pair
func (r *PostgresExchangeRateRepository) GetRate(ctx context.Context, base, target string) (*models.ExchangeRate, error) {
	query := `
		SELECT id, base_currency, target_currency, rate, updated_at
		FROM exchange_rates WHERE base_currency = $1 AND target_currency = $2
	`

	rate := &models.ExchangeRate{}
	err := r.db.GetPool().QueryRow(ctx, query, base, target).Scan(
		&rate.ID, &rate.BaseCurrency, &rate.TargetCurrency, &rate.Rate, &rate.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan exchange rate: %w", err)
	}

	return rate, nil
}

// GetAll retrieves every stored rate for a base currency
func (r *PostgresExchangeRateRepository) GetAll(ctx context.Context, base string) ([]*models.ExchangeRate, error) {
	query := `
		SELECT id, base_currency, target_currency, rate, updated_at
		FROM exchange_rates WHERE base_currency = $1
		ORDER BY target_currency ASC
	`

	rows, err := r.db.GetPool().Query(ctx, query, base)
	if err != nil {
		return nil, fmt.Errorf("failed to query exchange rates: %w", err)
	}
	defer rows.Close()

	var rates []*models.ExchangeRate
	for rows.Next() {
		rate := &models.ExchangeRate{}
		err := rows.Scan(&rate.ID, &rate.BaseCurrency, &rate.TargetCurrency, &rate.Rate, &rate.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan exchange rate: %w", err)
		}
		rates = append(rates, rate)
	}

	return rates, rows.Err()
}
