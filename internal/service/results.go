package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/odd2/internal/datasource"
	"github.com/yourusername/odd2/internal/metrics"
	"github.com/yourusername/odd2/internal/models"
	"github.com/yourusername/odd2/internal/repository"
)

// resultGracePeriod is how long after kickoff a match is assumed to still be
// in play. Results are only fetched once this window has passed.
const resultGracePeriod = 3 * time.Hour

// ResultsChecker settles pending predictions as their matches finish
type ResultsChecker struct {
	source      datasource.MatchSource
	predictions repository.PredictionRepository
	logger      *logrus.Logger
}

// NewResultsChecker creates a checker wired to the data source and store
func NewResultsChecker(source datasource.MatchSource, predictions repository.PredictionRepository, logger *logrus.Logger) *ResultsChecker {
	return &ResultsChecker{
		source:      source,
		predictions: predictions,
		logger:      logger,
	}
}

// CheckPending walks every pending prediction, fetches results for legs whose
// grace period has passed, and settles predictions once every leg has a
// result. Legs without a provider ID (demo picks) never settle; their
// predictions expire at the next generation run instead.
func (c *ResultsChecker) CheckPending(ctx context.Context) error {
	started := time.Now()
	defer func() {
		metrics.ResultsCheckDuration.Observe(time.Since(started).Seconds())
	}()

	pending, err := c.predictions.GetPending(ctx)
	if err != nil {
		return err
	}

	c.logger.WithField("count", len(pending)).Debug("Checking pending predictions")

	now := time.Now().UTC()
	for _, pred := range pending {
		if err := c.checkPrediction(ctx, pred, now); err != nil {
			c.logger.WithError(err).WithField("prediction_id", pred.ID).Warn("Failed to check prediction")
		}
	}

	return nil
}

// checkPrediction settles as many legs as possible and finalizes the
// prediction when every leg has a result
func (c *ResultsChecker) checkPrediction(ctx context.Context, pred *models.Prediction, now time.Time) error {
	for _, match := range pred.Matches {
		if match.Result != nil {
			continue
		}
		if match.SourceID == nil {
			continue
		}
		if now.Before(match.KickoffTime.Add(resultGracePeriod)) {
			continue
		}

		score, err := c.source.FetchResult(ctx, *match.SourceID)
		if err != nil {
			c.logger.WithError(err).WithField("match", match.Fixture()).Debug("Result fetch failed")
			continue
		}
		if score == nil {
			continue
		}

		result := match.CheckResult(score.TotalGoals)
		if err := c.predictions.UpdateMatchResult(ctx, match); err != nil {
			return err
		}

		c.logger.WithFields(logrus.Fields{
			"match":  match.Fixture(),
			"bet":    match.BetLabel,
			"goals":  score.TotalGoals,
			"result": result,
		}).Info("Match result recorded")
	}

	if pred.Settle(now) {
		if err := c.predictions.UpdateStatus(ctx, pred.ID, pred.Status, pred.CompletedAt); err != nil {
			return err
		}
		metrics.RecordPredictionSettled(string(pred.Status))
		c.logger.WithFields(logrus.Fields{
			"prediction_id": pred.ID,
			"type":          pred.Type,
			"status":        pred.Status,
		}).Info("Prediction settled")
	}

	return nil
}
