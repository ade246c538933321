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

const errScanPrediction = "failed to scan prediction: %w"

const predictionColumns = `id, prediction_type, total_odds, success_probability, status, created_at, completed_at`

// PostgresPredictionRepository implements PredictionRepository for PostgreSQL
type PostgresPredictionRepository struct {
	db *database.DB
}

// NewPostgresPredictionRepository creates a new prediction repository
func NewPostgresPredictionRepository(db *database.DB) PredictionRepository {
	return &PostgresPredictionRepository{db: db}
}

// CreateWithTx inserts a prediction and its matches inside the given transaction
func (r *PostgresPredictionRepository) CreateWithTx(ctx context.Context, tx pgx.Tx, prediction *models.Prediction) error {
	query := `
		INSERT INTO predictions (id, prediction_type, total_odds, success_probability, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := tx.Exec(ctx, query,
		prediction.ID, prediction.Type, prediction.TotalOdds,
		prediction.SuccessProbability, prediction.Status, prediction.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create prediction: %w", err)
	}

	matchQuery := `
		INSERT INTO prediction_matches (id, prediction_id, source_id, home_team, away_team, league, kickoff_time, bet_label, odds)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	for _, m := range prediction.Matches {
		_, err := tx.Exec(ctx, matchQuery,
			m.ID, prediction.ID, m.SourceID, m.HomeTeam, m.AwayTeam,
			m.League, m.KickoffTime, m.BetLabel, m.Odds,
		)
		if err != nil {
			return fmt.Errorf("failed to create prediction match: %w", err)
		}
	}

	return nil
}

// ExpirePendingWithTx marks every pending prediction expired inside the given transaction
func (r *PostgresPredictionRepository) ExpirePendingWithTx(ctx context.Context, tx pgx.Tx) (int64, error) {
	commandTag, err := tx.Exec(ctx,
		`UPDATE predictions SET status = $1 WHERE status = $2`,
		models.PredictionStatusExpired, models.PredictionStatusPending,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to expire pending predictions: %w", err)
	}
	return commandTag.RowsAffected(), nil
}

// GetCurrent returns the most recent pending prediction of the given type
func (r *PostgresPredictionRepository) GetCurrent(ctx context.Context, predictionType models.PredictionType) (*models.Prediction, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM predictions
		WHERE prediction_type = $1 AND status = $2
		ORDER BY created_at DESC
		LIMIT 1
	`, predictionColumns)

	prediction, err := r.scanOne(ctx, r.db.GetPool().QueryRow(ctx, query, predictionType, models.PredictionStatusPending))
	if err != nil {
		return nil, err
	}

	if err := r.loadMatches(ctx, prediction); err != nil {
		return nil, err
	}

	return prediction, nil
}

// GetPending returns all pending predictions with their matches
func (r *PostgresPredictionRepository) GetPending(ctx context.Context) ([]*models.Prediction, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM predictions
		WHERE status = $1
		ORDER BY created_at DESC
	`, predictionColumns)

	rows, err := r.db.GetPool().Query(ctx, query, models.PredictionStatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending predictions: %w", err)
	}
	defer rows.Close()

	predictions, err := r.scanAll(rows)
	if err != nil {
		return nil, err
	}

	for _, p := range predictions {
		if err := r.loadMatches(ctx, p); err != nil {
			return nil, err
		}
	}

	return predictions, nil
}

// GetHistory returns settled predictions of a type created after since
func (r *PostgresPredictionRepository) GetHistory(ctx context.Context, predictionType models.PredictionType, since time.Time, limit int) ([]*models.Prediction, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM predictions
		WHERE prediction_type = $1 AND status IN ($2, $3) AND created_at >= $4
		ORDER BY created_at DESC
		LIMIT $5
	`, predictionColumns)

	rows, err := r.db.GetPool().Query(ctx, query,
		predictionType, models.PredictionStatusWon, models.PredictionStatusLost, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query prediction history: %w", err)
	}
	defer rows.Close()

	predictions, err := r.scanAll(rows)
	if err != nil {
		return nil, err
	}

	for _, p := range predictions {
		if err := r.loadMatches(ctx, p); err != nil {
			return nil, err
		}
	}

	return predictions, nil
}

// UpdateStatus transitions a prediction's lifecycle status
func (r *PostgresPredictionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.PredictionStatus, completedAt *time.Time) error {
	commandTag, err := r.db.GetPool().Exec(ctx,
		`UPDATE predictions SET status = $2, completed_at = $3 WHERE id = $1`,
		id, status, completedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update prediction status: %w", err)
	}
	if commandTag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// UpdateMatchResult stores a settled leg's result and actual goals
func (r *PostgresPredictionRepository) UpdateMatchResult(ctx context.Context, match *models.PredictionMatch) error {
	commandTag, err := r.db.GetPool().Exec(ctx,
		`UPDATE prediction_matches SET result = $2, actual_goals = $3 WHERE id = $1`,
		match.ID, match.Result, match.ActualGoals,
	)
	if err != nil {
		return fmt.Errorf("failed to update match result: %w", err)
	}
	if commandTag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// CountByStatus returns prediction counts keyed by status
func (r *PostgresPredictionRepository) CountByStatus(ctx context.Context) (map[models.PredictionStatus]int, error) {
	rows, err := r.db.GetPool().Query(ctx, `SELECT status, COUNT(*) FROM predictions GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count predictions: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.PredictionStatus]int)
	for rows.Next() {
		var status models.PredictionStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan prediction count: %w", err)
		}
		counts[status] = count
	}

	return counts, rows.Err()
}

func (r *PostgresPredictionRepository) scanOne(ctx context.Context, row pgx.Row) (*models.Prediction, error) {
	prediction := &models.Prediction{}
	err := row.Scan(
		&prediction.ID, &prediction.Type, &prediction.TotalOdds, &prediction.SuccessProbability,
		&prediction.Status, &prediction.CreatedAt, &prediction.CompletedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf(errScanPrediction, err)
	}
	return prediction, nil
}

func (r *PostgresPredictionRepository) scanAll(rows pgx.Rows) ([]*models.Prediction, error) {
	var predictions []*models.Prediction
	for rows.Next() {
		prediction := &models.Prediction{}
		err := rows.Scan(
			&prediction.ID, &prediction.Type, &prediction.TotalOdds, &prediction.SuccessProbability,
			&prediction.Status, &prediction.CreatedAt, &prediction.CompletedAt,
		)
		if err != nil {
			return nil, fmt.Errorf(errScanPrediction, err)
		}
		predictions = append(predictions, prediction)
	}
	return predictions, rows.Err()
}

func (r *PostgresPredictionRepository) loadMatches(ctx context.Context, prediction *models.Prediction) error {
	query := `
		SELECT id, prediction_id, source_id, home_team, away_team, league, kickoff_time, bet_label, odds, result, actual_goals
		FROM prediction_matches
		WHERE prediction_id = $1
		ORDER BY kickoff_time ASC
	`

	rows, err := r.db.GetPool().Query(ctx, query, prediction.ID)
	if err != nil {
		return fmt.Errorf("failed to query prediction matches: %w", err)
	}
	defer rows.Close()

	var matches []*models.PredictionMatch
	for rows.Next() {
		m := &models.PredictionMatch{}
		err := rows.Scan(
			&m.ID, &m.PredictionID, &m.SourceID, &m.HomeTeam, &m.AwayTeam,
			&m.League, &m.KickoffTime, &m.BetLabel, &m.Odds, &m.Result, &m.ActualGoals,
		)
		if err != nil {
			return fmt.Errorf("failed to scan prediction match: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	prediction.Matches = matches
	return nil
}
