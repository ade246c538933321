package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/odd2/internal/datasource"
	"github.com/yourusername/odd2/internal/metrics"
	"github.com/yourusername/odd2/internal/models"
	"github.com/yourusername/odd2/internal/prediction"
	"github.com/yourusername/odd2/internal/repository"
)

// GenerationResult summarizes one generation run
type GenerationResult struct {
	VIP             *models.Prediction
	Free            *models.Prediction
	MatchesFetched  int
	MatchesAnalyzed int
	Combinations    int
	UsedDemoData    bool
}

// TransactionRunner runs a function inside a database transaction. Satisfied
// by *database.DB.
type TransactionRunner interface {
	WithTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// Generator runs the prediction pipeline: fetch upcoming fixtures, analyze
// them, search for valid combinations and publish the top two picks
type Generator struct {
	source      datasource.MatchSource
	analyzer    *prediction.Analyzer
	estimator   *prediction.Estimator
	cfg         prediction.Config
	db          TransactionRunner
	predictions repository.PredictionRepository
	logger      *logrus.Logger
}

// NewGenerator creates a generator wired to a data source and the store
func NewGenerator(
	source datasource.MatchSource,
	analyzer *prediction.Analyzer,
	estimator *prediction.Estimator,
	cfg prediction.Config,
	db TransactionRunner,
	predictions repository.PredictionRepository,
	logger *logrus.Logger,
) *Generator {
	return &Generator{
		source:      source,
		analyzer:    analyzer,
		estimator:   estimator,
		cfg:         cfg,
		db:          db,
		predictions: predictions,
		logger:      logger,
	}
}

// GenerateAndPersist runs the full pipeline and atomically replaces the
// published picks: old pending predictions expire and the new VIP and Free
// predictions are inserted in the same transaction. When live data cannot
// produce a valid pair the demo picks are published instead, so the run
// always ends with exactly one pending prediction per type.
func (g *Generator) GenerateAndPersist(ctx context.Context) (*GenerationResult, error) {
	started := time.Now()
	defer func() {
		metrics.GenerationDuration.Observe(time.Since(started).Seconds())
	}()

	g.logger.Info("Starting prediction generation")

	result := g.generate(ctx)

	if result.UsedDemoData {
		metrics.DemoFallbacksTotal.Inc()
	}
	metrics.MatchesAnalyzed.Set(float64(result.MatchesAnalyzed))
	metrics.CombinationsFound.Set(float64(result.Combinations))

	if err := g.persist(ctx, result); err != nil {
		metrics.RecordGenerationRun("error")
		return nil, fmt.Errorf("failed to persist predictions: %w", err)
	}
	metrics.RecordGenerationRun("success")

	g.logger.WithFields(logrus.Fields{
		"vip_matches":  len(result.VIP.Matches),
		"vip_odds":     result.VIP.TotalOdds,
		"free_matches": len(result.Free.Matches),
		"free_odds":    result.Free.TotalOdds,
		"demo":         result.UsedDemoData,
	}).Info("Prediction generation completed")

	return result, nil
}

// generate runs the pipeline up to the ranked picks, without persistence
func (g *Generator) generate(ctx context.Context) *GenerationResult {
	result := &GenerationResult{}

	candidates, err := g.source.FetchUpcoming(ctx, g.cfg.LookaheadDays)
	if err != nil {
		g.logger.WithError(err).Warn("Failed to fetch upcoming matches, using demo predictions")
		return g.demoResult(result)
	}
	result.MatchesFetched = len(candidates)
	g.logger.WithField("count", len(candidates)).Info("Fetched upcoming matches")

	if len(candidates) == 0 {
		return g.demoResult(result)
	}

	if len(candidates) > g.cfg.MaxMatches {
		candidates = candidates[:g.cfg.MaxMatches]
	}

	analyzed := g.analyzeCandidates(ctx, candidates)
	result.MatchesAnalyzed = len(analyzed)
	g.logger.WithField("count", len(analyzed)).Info("Analyzed matches")

	if len(analyzed) < g.cfg.MinCombinationSize {
		g.logger.Warn("Not enough analyzed matches for combinations, using demo predictions")
		return g.demoResult(result)
	}

	combos := prediction.Search(analyzed, g.cfg)
	result.Combinations = len(combos)
	g.logger.WithField("count", len(combos)).Info("Found valid combinations")

	if len(combos) == 0 {
		g.logger.Warn("No valid combinations found, using demo predictions")
		return g.demoResult(result)
	}

	prediction.Rank(combos)

	vip := combos[0]
	free := vip
	if len(combos) > 1 {
		free = combos[1]
	}

	result.VIP = buildPrediction(models.PredictionTypeVIP, vip)
	result.Free = buildPrediction(models.PredictionTypeFree, free)
	return result
}

// analyzeCandidates scores each fixture and keeps the ones with a worthwhile
// bet. A fixture that cannot be analyzed is skipped, never fatal.
func (g *Generator) analyzeCandidates(ctx context.Context, candidates []datasource.MatchCandidate) []prediction.AnalyzedMatch {
	analyzed := make([]prediction.AnalyzedMatch, 0, len(candidates))

	for _, candidate := range candidates {
		predictions, err := g.analyzer.Analyze(ctx, candidate)
		if err != nil {
			g.logger.WithError(err).WithField("match", candidate.SourceID).Debug("Skipping match")
			continue
		}

		best := g.analyzer.SelectBestBet(predictions, g.cfg.MinProbability)
		if best == nil {
			continue
		}

		odds := g.estimator.Estimate(best.Threshold, best.Probability)
		if odds < g.cfg.MinLegOdds {
			continue
		}

		sourceID := candidate.SourceID
		analyzed = append(analyzed, prediction.AnalyzedMatch{
			SourceID:    &sourceID,
			HomeTeamID:  candidate.HomeTeamID,
			AwayTeamID:  candidate.AwayTeamID,
			HomeTeam:    candidate.HomeTeam,
			AwayTeam:    candidate.AwayTeam,
			League:      candidate.Competition,
			KickoffTime: candidate.KickoffTime,
			BetLabel:    best.BetLabel,
			Odds:        odds,
			Probability: best.Probability,
		})
	}

	return analyzed
}

// demoResult fills the result with the canned fallback picks
func (g *Generator) demoResult(result *GenerationResult) *GenerationResult {
	vip, free := demoPredictions(time.Now().UTC())
	result.VIP = buildPrediction(models.PredictionTypeVIP, vip)
	result.Free = buildPrediction(models.PredictionTypeFree, free)
	result.UsedDemoData = true
	return result
}

// persist expires old pending predictions and inserts the new pair atomically
func (g *Generator) persist(ctx context.Context, result *GenerationResult) error {
	return g.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		expired, err := g.predictions.ExpirePendingWithTx(ctx, tx)
		if err != nil {
			return err
		}
		if expired > 0 {
			g.logger.WithField("count", expired).Info("Expired old pending predictions")
		}

		if err := g.predictions.CreateWithTx(ctx, tx, result.VIP); err != nil {
			return err
		}
		return g.predictions.CreateWithTx(ctx, tx, result.Free)
	})
}

// buildPrediction converts a ranked combination into a persistable prediction
func buildPrediction(predictionType models.PredictionType, combo prediction.Combination) *models.Prediction {
	p := &models.Prediction{
		ID:                 uuid.New(),
		Type:               predictionType,
		TotalOdds:          combo.TotalOdds,
		SuccessProbability: combo.SuccessProbability,
		Status:             models.PredictionStatusPending,
		CreatedAt:          time.Now().UTC(),
	}

	for _, m := range combo.Matches {
		p.Matches = append(p.Matches, &models.PredictionMatch{
			ID:           uuid.New(),
			PredictionID: p.ID,
			SourceID:     m.SourceID,
			HomeTeam:     m.HomeTeam,
			AwayTeam:     m.AwayTeam,
			League:       m.League,
			KickoffTime:  m.KickoffTime,
			BetLabel:     m.BetLabel,
			Odds:         m.Odds,
		})
	}

	return p
}
