package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/odd2/internal/datasource"
	"github.com/yourusername/odd2/internal/models"
)

func pendingLeg(sourceID int64, kickoff time.Time, betLabel string) *models.PredictionMatch {
	return &models.PredictionMatch{
		ID:          uuid.New(),
		SourceID:    &sourceID,
		HomeTeam:    "Home",
		AwayTeam:    "Away",
		League:      "Test League",
		KickoffTime: kickoff,
		BetLabel:    betLabel,
		Odds:        1.60,
	}
}

func TestCheckPendingSettlesWonPrediction(t *testing.T) {
	source := new(MockMatchSource)
	repo := new(MockPredictionRepository)
	checker := NewResultsChecker(source, repo, quietLogger())

	kickoff := time.Now().UTC().Add(-4 * time.Hour)
	leg := pendingLeg(101, kickoff, "Over 2.5")
	pred := &models.Prediction{
		ID:      uuid.New(),
		Type:    models.PredictionTypeVIP,
		Status:  models.PredictionStatusPending,
		Matches: []*models.PredictionMatch{leg},
	}

	repo.On("GetPending", mock.Anything).Return([]*models.Prediction{pred}, nil)
	source.On("FetchResult", mock.Anything, int64(101)).
		Return(&datasource.MatchScore{SourceID: 101, HomeGoals: 2, AwayGoals: 1, TotalGoals: 3}, nil)
	repo.On("UpdateMatchResult", mock.Anything, leg).Return(nil)
	repo.On("UpdateStatus", mock.Anything, pred.ID, models.PredictionStatusWon, mock.Anything).Return(nil)

	require.NoError(t, checker.CheckPending(context.Background()))

	require.NotNil(t, leg.Result)
	assert.Equal(t, models.MatchResultWon, *leg.Result)
	require.NotNil(t, leg.ActualGoals)
	assert.Equal(t, 3, *leg.ActualGoals)
	assert.Equal(t, models.PredictionStatusWon, pred.Status)
	assert.NotNil(t, pred.CompletedAt)
	repo.AssertExpectations(t)
}

func TestCheckPendingOneLostLegLosesPrediction(t *testing.T) {
	source := new(MockMatchSource)
	repo := new(MockPredictionRepository)
	checker := NewResultsChecker(source, repo, quietLogger())

	kickoff := time.Now().UTC().Add(-5 * time.Hour)
	won := pendingLeg(201, kickoff, "Over 1.5")
	lost := pendingLeg(202, kickoff, "Over 2.5")
	pred := &models.Prediction{
		ID:      uuid.New(),
		Status:  models.PredictionStatusPending,
		Matches: []*models.PredictionMatch{won, lost},
	}

	repo.On("GetPending", mock.Anything).Return([]*models.Prediction{pred}, nil)
	source.On("FetchResult", mock.Anything, int64(201)).
		Return(&datasource.MatchScore{TotalGoals: 2}, nil)
	source.On("FetchResult", mock.Anything, int64(202)).
		Return(&datasource.MatchScore{TotalGoals: 2}, nil)
	repo.On("UpdateMatchResult", mock.Anything, mock.Anything).Return(nil).Twice()
	repo.On("UpdateStatus", mock.Anything, pred.ID, models.PredictionStatusLost, mock.Anything).Return(nil)

	require.NoError(t, checker.CheckPending(context.Background()))

	assert.Equal(t, models.MatchResultWon, *won.Result)
	assert.Equal(t, models.MatchResultLost, *lost.Result)
	assert.Equal(t, models.PredictionStatusLost, pred.Status)
	repo.AssertExpectations(t)
}

func TestCheckPendingRespectsGracePeriod(t *testing.T) {
	source := new(MockMatchSource)
	repo := new(MockPredictionRepository)
	checker := NewResultsChecker(source, repo, quietLogger())

	// kicked off one hour ago, still inside the in-play window
	leg := pendingLeg(301, time.Now().UTC().Add(-time.Hour), "Over 2.5")
	pred := &models.Prediction{
		ID:      uuid.New(),
		Status:  models.PredictionStatusPending,
		Matches: []*models.PredictionMatch{leg},
	}

	repo.On("GetPending", mock.Anything).Return([]*models.Prediction{pred}, nil)

	require.NoError(t, checker.CheckPending(context.Background()))

	assert.Nil(t, leg.Result)
	assert.Equal(t, models.PredictionStatusPending, pred.Status)
	source.AssertNotCalled(t, "FetchResult", mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCheckPendingSkipsDemoLegs(t *testing.T) {
	source := new(MockMatchSource)
	repo := new(MockPredictionRepository)
	checker := NewResultsChecker(source, repo, quietLogger())

	leg := pendingLeg(0, time.Now().UTC().Add(-6*time.Hour), "Over 2.5")
	leg.SourceID = nil
	pred := &models.Prediction{
		ID:      uuid.New(),
		Status:  models.PredictionStatusPending,
		Matches: []*models.PredictionMatch{leg},
	}

	repo.On("GetPending", mock.Anything).Return([]*models.Prediction{pred}, nil)

	require.NoError(t, checker.CheckPending(context.Background()))

	assert.Nil(t, leg.Result)
	assert.Equal(t, models.PredictionStatusPending, pred.Status)
	source.AssertNotCalled(t, "FetchResult", mock.Anything, mock.Anything)
}

func TestCheckPendingUnfinishedMatchLeavesLegOpen(t *testing.T) {
	source := new(MockMatchSource)
	repo := new(MockPredictionRepository)
	checker := NewResultsChecker(source, repo, quietLogger())

	leg := pendingLeg(401, time.Now().UTC().Add(-4*time.Hour), "Over 1.5")
	pred := &models.Prediction{
		ID:      uuid.New(),
		Status:  models.PredictionStatusPending,
		Matches: []*models.PredictionMatch{leg},
	}

	repo.On("GetPending", mock.Anything).Return([]*models.Prediction{pred}, nil)
	source.On("FetchResult", mock.Anything, int64(401)).Return(nil, nil)

	require.NoError(t, checker.CheckPending(context.Background()))

	assert.Nil(t, leg.Result)
	assert.Equal(t, models.PredictionStatusPending, pred.Status)
	repo.AssertNotCalled(t, "UpdateMatchResult", mock.Anything, mock.Anything)
}

func TestCheckPendingFetchErrorDoesNotAbortRun(t *testing.T) {
	source := new(MockMatchSource)
	repo := new(MockPredictionRepository)
	checker := NewResultsChecker(source, repo, quietLogger())

	kickoff := time.Now().UTC().Add(-4 * time.Hour)
	broken := pendingLeg(501, kickoff, "Over 2.5")
	fine := pendingLeg(502, kickoff, "Over 1.5")
	pred := &models.Prediction{
		ID:      uuid.New(),
		Status:  models.PredictionStatusPending,
		Matches: []*models.PredictionMatch{broken, fine},
	}

	repo.On("GetPending", mock.Anything).Return([]*models.Prediction{pred}, nil)
	source.On("FetchResult", mock.Anything, int64(501)).Return(nil, assertableError("provider timeout"))
	source.On("FetchResult", mock.Anything, int64(502)).
		Return(&datasource.MatchScore{TotalGoals: 4}, nil)
	repo.On("UpdateMatchResult", mock.Anything, fine).Return(nil)

	require.NoError(t, checker.CheckPending(context.Background()))

	assert.Nil(t, broken.Result)
	require.NotNil(t, fine.Result)
	assert.Equal(t, models.MatchResultWon, *fine.Result)
	// prediction stays pending until the broken leg resolves
	assert.Equal(t, models.PredictionStatusPending, pred.Status)
}

func TestOverThresholdParsing(t *testing.T) {
	leg := &models.PredictionMatch{BetLabel: "Over 3.5"}
	assert.Equal(t, 3.5, leg.OverThreshold())

	leg.BetLabel = "not a bet"
	assert.Equal(t, 0.5, leg.OverThreshold())
}

func TestCheckResultBoundary(t *testing.T) {
	leg := &models.PredictionMatch{BetLabel: "Over 2.5"}

	assert.Equal(t, models.MatchResultLost, leg.CheckResult(2))
	assert.Equal(t, models.MatchResultWon, leg.CheckResult(3))
}
