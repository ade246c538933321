package service

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/odd2/internal/datasource"
	"github.com/yourusername/odd2/internal/models"
	"github.com/yourusername/odd2/internal/prediction"
	"github.com/yourusername/odd2/internal/repository"
)

// MockMatchSource mocks the football data source
type MockMatchSource struct {
	mock.Mock
}

func (m *MockMatchSource) FetchUpcoming(ctx context.Context, lookaheadDays int) ([]datasource.MatchCandidate, error) {
	args := m.Called(ctx, lookaheadDays)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]datasource.MatchCandidate), args.Error(1)
}

func (m *MockMatchSource) FetchRecentForm(ctx context.Context, teamID int64, limit int) ([]datasource.FormSample, error) {
	args := m.Called(ctx, teamID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]datasource.FormSample), args.Error(1)
}

func (m *MockMatchSource) FetchHeadToHead(ctx context.Context, matchID int64) (*datasource.HeadToHead, error) {
	args := m.Called(ctx, matchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*datasource.HeadToHead), args.Error(1)
}

func (m *MockMatchSource) FetchResult(ctx context.Context, matchID int64) (*datasource.MatchScore, error) {
	args := m.Called(ctx, matchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*datasource.MatchScore), args.Error(1)
}

func (m *MockMatchSource) FetchStandings(ctx context.Context, competitionCode string) ([]datasource.StandingEntry, error) {
	args := m.Called(ctx, competitionCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]datasource.StandingEntry), args.Error(1)
}

func (m *MockMatchSource) Name() string {
	return "mock"
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestGenerator(source *MockMatchSource) *Generator {
	cfg := prediction.DefaultConfig()
	analyzer := prediction.NewAnalyzer(source, cfg)
	estimator := prediction.NewEstimator(cfg)
	return NewGenerator(source, analyzer, estimator, cfg, nil, nil, quietLogger())
}

func TestGenerateFallsBackToDemoOnEmptyFetch(t *testing.T) {
	source := new(MockMatchSource)
	source.On("FetchUpcoming", mock.Anything, mock.Anything).Return([]datasource.MatchCandidate{}, nil)

	g := newTestGenerator(source)
	result := g.generate(context.Background())

	assert.True(t, result.UsedDemoData)
	require.NotNil(t, result.VIP)
	require.NotNil(t, result.Free)
	assert.Equal(t, models.PredictionTypeVIP, result.VIP.Type)
	assert.Equal(t, models.PredictionTypeFree, result.Free.Type)
	assert.NotEmpty(t, result.VIP.Matches)
	assert.NotEmpty(t, result.Free.Matches)
}

func TestGenerateFallsBackToDemoOnFetchError(t *testing.T) {
	source := new(MockMatchSource)
	source.On("FetchUpcoming", mock.Anything, mock.Anything).Return(nil, errors.New("api down"))

	g := newTestGenerator(source)
	result := g.generate(context.Background())

	assert.True(t, result.UsedDemoData)
	assert.NotNil(t, result.VIP)
	assert.NotNil(t, result.Free)
}

func TestGenerateFallsBackWithTooFewMatches(t *testing.T) {
	source := new(MockMatchSource)
	source.On("FetchUpcoming", mock.Anything, mock.Anything).Return([]datasource.MatchCandidate{
		{SourceID: 1, HomeTeamID: 10, AwayTeamID: 11, HomeTeam: "Arsenal", AwayTeam: "Chelsea", Competition: "Premier League", KickoffTime: time.Now().Add(time.Hour)},
	}, nil)
	source.On("FetchRecentForm", mock.Anything, mock.Anything, mock.Anything).Return([]datasource.FormSample{}, nil)
	source.On("FetchHeadToHead", mock.Anything, mock.Anything).Return(&datasource.HeadToHead{AvgGoals: 2.5}, nil)

	g := newTestGenerator(source)
	result := g.generate(context.Background())

	// one analyzable match cannot form a combination
	assert.True(t, result.UsedDemoData)
}

func TestGeneratePublishesLiveCombinations(t *testing.T) {
	source := new(MockMatchSource)

	candidates := []datasource.MatchCandidate{
		{SourceID: 1, HomeTeamID: 10, AwayTeamID: 11, HomeTeam: "Arsenal", AwayTeam: "Chelsea", Competition: "Premier League", KickoffTime: time.Now().Add(time.Hour)},
		{SourceID: 2, HomeTeamID: 12, AwayTeamID: 13, HomeTeam: "Bayern Munich", AwayTeam: "Dortmund", Competition: "Bundesliga", KickoffTime: time.Now().Add(2 * time.Hour)},
		{SourceID: 3, HomeTeamID: 14, AwayTeamID: 15, HomeTeam: "Inter Milan", AwayTeam: "AC Milan", Competition: "Serie A", KickoffTime: time.Now().Add(3 * time.Hour)},
	}
	source.On("FetchUpcoming", mock.Anything, mock.Anything).Return(candidates, nil)

	// tight, low-scoring form drags Over 1.5 to its high band (1.60),
	// so pairs clear the 2.0 total odds floor
	form := []datasource.FormSample{
		{GoalsFor: 0, GoalsAgainst: 0, TotalGoals: 0},
		{GoalsFor: 0, GoalsAgainst: 0, TotalGoals: 0},
		{GoalsFor: 0, GoalsAgainst: 0, TotalGoals: 0},
	}
	source.On("FetchRecentForm", mock.Anything, mock.Anything, mock.Anything).Return(form, nil)
	source.On("FetchHeadToHead", mock.Anything, mock.Anything).Return(&datasource.HeadToHead{AvgGoals: 1.5, MatchCount: 5}, nil)

	g := newTestGenerator(source)
	result := g.generate(context.Background())

	assert.False(t, result.UsedDemoData)
	assert.Equal(t, 3, result.MatchesAnalyzed)
	assert.Equal(t, 4, result.Combinations)

	require.NotNil(t, result.VIP)
	require.NotNil(t, result.Free)
	assert.GreaterOrEqual(t, result.VIP.TotalOdds, 2.0)
	assert.GreaterOrEqual(t, result.Free.TotalOdds, 2.0)

	// VIP carries the highest success probability
	assert.GreaterOrEqual(t, result.VIP.SuccessProbability, result.Free.SuccessProbability)

	for _, m := range result.VIP.Matches {
		assert.NotNil(t, m.SourceID)
		assert.Equal(t, result.VIP.ID, m.PredictionID)
		assert.NotEmpty(t, m.BetLabel)
	}
}

func TestBuildPredictionLinksMatches(t *testing.T) {
	vip, _ := demoPredictions(time.Now().UTC())
	p := buildPrediction(models.PredictionTypeVIP, vip)

	assert.Equal(t, models.PredictionStatusPending, p.Status)
	assert.Len(t, p.Matches, 2)
	for _, m := range p.Matches {
		assert.Equal(t, p.ID, m.PredictionID)
		assert.Nil(t, m.SourceID)
		assert.Nil(t, m.Result)
	}
}

func TestDemoPredictionsProductLaws(t *testing.T) {
	vip, free := demoPredictions(time.Now().UTC())

	assert.InDelta(t, 1.65*1.55, vip.TotalOdds, 0.005)
	assert.InDelta(t, 0.62*0.65, vip.SuccessProbability, 1e-9)
	assert.InDelta(t, 1.35*1.75, free.TotalOdds, 0.005)
	assert.InDelta(t, 0.72*0.58, free.SuccessProbability, 1e-9)

	// the two picks never share a fixture
	for _, v := range vip.Matches {
		for _, f := range free.Matches {
			assert.NotEqual(t, v.HomeTeam, f.HomeTeam)
		}
	}
}

// fakeTxRunner runs the transaction body directly, counting invocations.
type fakeTxRunner struct {
	calls int
}

func (r *fakeTxRunner) WithTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error {
	r.calls++
	return fn(nil)
}

// memoryPredictionStore keeps the published pair in memory so a run's
// expire-then-insert effect can be observed across invocations. The embedded
// interface covers the methods a generation run never touches.
type memoryPredictionStore struct {
	repository.PredictionRepository
	pending []*models.Prediction
	expired []*models.Prediction
	failOn  models.PredictionType
}

func (s *memoryPredictionStore) ExpirePendingWithTx(ctx context.Context, tx pgx.Tx) (int64, error) {
	n := int64(len(s.pending))
	for _, p := range s.pending {
		p.Status = models.PredictionStatusExpired
	}
	s.expired = append(s.expired, s.pending...)
	s.pending = nil
	return n, nil
}

func (s *memoryPredictionStore) CreateWithTx(ctx context.Context, tx pgx.Tx, p *models.Prediction) error {
	if s.failOn != "" && p.Type == s.failOn {
		return errors.New("insert failed")
	}
	s.pending = append(s.pending, p)
	return nil
}

func (s *memoryPredictionStore) countPending(predictionType models.PredictionType) int {
	count := 0
	for _, p := range s.pending {
		if p.Type == predictionType {
			count++
		}
	}
	return count
}

func newPersistFixture(store *memoryPredictionStore) (*Generator, *MockMatchSource, *fakeTxRunner) {
	source := new(MockMatchSource)
	tx := &fakeTxRunner{}
	cfg := prediction.DefaultConfig()
	analyzer := prediction.NewAnalyzer(source, cfg)
	estimator := prediction.NewEstimator(cfg)
	gen := NewGenerator(source, analyzer, estimator, cfg, tx, store, quietLogger())
	return gen, source, tx
}

func TestGenerateAndPersistPublishesOnePairPerRun(t *testing.T) {
	store := &memoryPredictionStore{}
	gen, source, tx := newPersistFixture(store)

	source.On("FetchUpcoming", mock.Anything, mock.Anything).Return(nil, errors.New("api down"))

	result, err := gen.GenerateAndPersist(context.Background())
	require.NoError(t, err)
	assert.True(t, result.UsedDemoData)

	assert.Equal(t, 1, tx.calls)
	assert.Equal(t, 1, store.countPending(models.PredictionTypeVIP))
	assert.Equal(t, 1, store.countPending(models.PredictionTypeFree))
	assert.Empty(t, store.expired)
	for _, p := range store.pending {
		assert.Equal(t, models.PredictionStatusPending, p.Status)
		assert.NotEmpty(t, p.Matches)
	}
}

func TestGenerateAndPersistExpiresPreviousRun(t *testing.T) {
	store := &memoryPredictionStore{}
	gen, source, _ := newPersistFixture(store)

	source.On("FetchUpcoming", mock.Anything, mock.Anything).Return(nil, errors.New("api down"))

	first, err := gen.GenerateAndPersist(context.Background())
	require.NoError(t, err)
	second, err := gen.GenerateAndPersist(context.Background())
	require.NoError(t, err)

	// exactly one pending per type, both from the second run
	require.Equal(t, 1, store.countPending(models.PredictionTypeVIP))
	require.Equal(t, 1, store.countPending(models.PredictionTypeFree))
	for _, p := range store.pending {
		assert.NotEqual(t, first.VIP.ID, p.ID)
		assert.NotEqual(t, first.Free.ID, p.ID)
	}
	assert.Equal(t, second.VIP.ID, store.pending[0].ID)

	// the first run's pair is expired, never deleted
	require.Len(t, store.expired, 2)
	for _, p := range store.expired {
		assert.Equal(t, models.PredictionStatusExpired, p.Status)
	}
}

func TestGenerateAndPersistPropagatesStoreFailure(t *testing.T) {
	store := &memoryPredictionStore{failOn: models.PredictionTypeFree}
	gen, source, _ := newPersistFixture(store)

	source.On("FetchUpcoming", mock.Anything, mock.Anything).Return(nil, errors.New("api down"))

	_, err := gen.GenerateAndPersist(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to persist predictions")
}
