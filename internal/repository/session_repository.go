package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/yourusername/odd2/internal/database"
	"github.com/yourusername/odd2/internal/models"
)

// PostgresSessionRepository implements SessionRepository for PostgreSQL
type PostgresSessionRepository struct {
	db *database.DB
}

// NewPostgresSessionRepository creates a new session repository
func NewPostgresSessionRepository(db *database.DB) SessionRepository {
	return &PostgresSessionRepository{db: db}
}

// Create inserts a new user session
func (r *PostgresSessionRepository) Create(ctx context.Context, session *models.UserSession) error {
	query := `
		INSERT INTO user_sessions (id, session_token, vip_prediction_id, access_expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.GetPool().Exec(ctx, query,
		session.ID, session.Token, session.VIPPredictionID, session.AccessExpiresAt, session.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

// GetByToken retrieves a session by its bearer token
func (r *PostgresSessionRepository) GetByToken(ctx context.Context, token string) (*models.UserSession, error) {
	query := `
		SELECT id, session_token, vip_prediction_id, access_expires_at, created_at
		FROM user_sessions WHERE session_token = $1
	`
	return r.scanOne(r.db.GetPool().QueryRow(ctx, query, token))
}

// GetLatestForPrediction retrieves the newest session granting access to a prediction
func (r *PostgresSessionRepository) GetLatestForPrediction(ctx context.Context, predictionID uuid.UUID) (*models.UserSession, error) {
	query := `
		SELECT id, session_token, vip_prediction_id, access_expires_at, created_at
		FROM user_sessions
		WHERE vip_prediction_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	return r.scanOne(r.db.GetPool().QueryRow(ctx, query, predictionID))
}

// Update updates an existing session
func (r *PostgresSessionRepository) Update(ctx context.Context, session *models.UserSession) error {
	query := `
		UPDATE user_sessions SET vip_prediction_id = $2, access_expires_at = $3 WHERE id = $1
	`

	commandTag, err := r.db.GetPool().Exec(ctx, query,
		session.ID, session.VIPPredictionID, session.AccessExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	if commandTag.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// ExpireAll caps every remaining access grant at the given time
func (r *PostgresSessionRepository) ExpireAll(ctx context.Context, at time.Time) (int64, error) {
	commandTag, err := r.db.GetPool().Exec(ctx,
		`UPDATE user_sessions SET access_expires_at = $1 WHERE access_expires_at IS NOT NULL AND access_expires_at > $1`,
		at,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to expire sessions: %w", err)
	}
	return commandTag.RowsAffected(), nil
}

// DeleteOlderThan removes sessions created before the cutoff
func (r *PostgresSessionRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	commandTag, err := r.db.GetPool().Exec(ctx,
		`DELETE FROM user_sessions WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old sessions: %w", err)
	}
	return commandTag.RowsAffected(), nil
}

func (r *PostgresSessionRepository) scanOne(row pgx.Row) (*models.UserSession, error) {
	session := &models.UserSession{}
	err := row.Scan(
		&session.ID, &session.Token, &session.VIPPredictionID,
		&session.AccessExpiresAt, &session.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}
	return session, nil
}
