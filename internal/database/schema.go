package database

import (
	"context"
	"fmt"
)

// Schema DDL, applied idempotently at startup. The uniqueness of one pending
// prediction per type is maintained by the expire-then-insert transaction in
// the generator, not by a constraint here.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS predictions (
		id UUID PRIMARY KEY,
		prediction_type VARCHAR(10) NOT NULL,
		total_odds DOUBLE PRECISION NOT NULL,
		success_probability DOUBLE PRECISION NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'pending',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		completed_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_predictions_type_status
		ON predictions (prediction_type, status, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS prediction_matches (
		id UUID PRIMARY KEY,
		prediction_id UUID NOT NULL REFERENCES predictions(id) ON DELETE CASCADE,
		source_id BIGINT,
		home_team VARCHAR(100) NOT NULL,
		away_team VARCHAR(100) NOT NULL,
		league VARCHAR(100) NOT NULL,
		kickoff_time TIMESTAMPTZ NOT NULL,
		bet_label VARCHAR(20) NOT NULL,
		odds DOUBLE PRECISION NOT NULL,
		result VARCHAR(10),
		actual_goals INTEGER
	)`,
	`CREATE INDEX IF NOT EXISTS idx_prediction_matches_prediction
		ON prediction_matches (prediction_id)`,
	`CREATE TABLE IF NOT EXISTS payments (
		id UUID PRIMARY KEY,
		prediction_id UUID NOT NULL REFERENCES predictions(id),
		amount DOUBLE PRECISION NOT NULL,
		currency VARCHAR(5) NOT NULL,
		transaction_id VARCHAR(100),
		payment_status VARCHAR(20) NOT NULL DEFAULT 'pending',
		phone_number VARCHAR(20),
		paid_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_payments_transaction
		ON payments (transaction_id)`,
	`CREATE TABLE IF NOT EXISTS user_sessions (
		id UUID PRIMARY KEY,
		session_token VARCHAR(100) NOT NULL UNIQUE,
		vip_prediction_id UUID REFERENCES predictions(id),
		access_expires_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS exchange_rates (
		id UUID PRIMARY KEY,
		base_currency VARCHAR(5) NOT NULL,
		target_currency VARCHAR(5) NOT NULL,
		rate DOUBLE PRECISION NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (base_currency, target_currency)
	)`,
}

// InitSchema creates the tables and indexes if they do not exist
func (db *DB) InitSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	return nil
}
