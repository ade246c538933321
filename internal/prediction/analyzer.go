package prediction

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/yourusername/odd2/internal/datasource"
)

// Confidence labels attached to threshold predictions. Informational only;
// ranking downstream uses probability.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// formBaseline is the long-run average goals scored (and conceded) per team
// per match that form deviations are measured against.
const formBaseline = 1.3

// StatsSource is the subset of the data source the analyzer needs
type StatsSource interface {
	FetchRecentForm(ctx context.Context, teamID int64, limit int) ([]datasource.FormSample, error)
	FetchHeadToHead(ctx context.Context, matchID int64) (*datasource.HeadToHead, error)
}

// FactorVector holds the six heuristic signals, each clamped to [-0.5, 0.5]
type FactorVector struct {
	ScoringForm      float64
	ConcedingForm    float64
	HeadToHead       float64
	// LeaguePosition is always 0 for now. MatchSource.FetchStandings is the
	// reserved feed for it; the fixture payload does not carry the
	// competition code needed to join a standings table to a match.
	LeaguePosition float64
	HomeAdvantage    float64
	RecentGoalsTrend float64
}

// clamp limits every component to [-0.5, 0.5]
func (f *FactorVector) clamp() {
	f.ScoringForm = clampFactor(f.ScoringForm)
	f.ConcedingForm = clampFactor(f.ConcedingForm)
	f.HeadToHead = clampFactor(f.HeadToHead)
	f.LeaguePosition = clampFactor(f.LeaguePosition)
	f.HomeAdvantage = clampFactor(f.HomeAdvantage)
	f.RecentGoalsTrend = clampFactor(f.RecentGoalsTrend)
}

// WeightedSum applies the factor weights
func (f FactorVector) WeightedSum(w FactorWeights) float64 {
	return f.ScoringForm*w.ScoringForm +
		f.ConcedingForm*w.ConcedingForm +
		f.HeadToHead*w.HeadToHead +
		f.LeaguePosition*w.LeaguePosition +
		f.HomeAdvantage*w.HomeAdvantage +
		f.RecentGoalsTrend*w.RecentGoalsTrend
}

// StrongSignals counts factors whose magnitude exceeds 0.2
func (f FactorVector) StrongSignals() int {
	count := 0
	for _, v := range []float64{f.ScoringForm, f.ConcedingForm, f.HeadToHead, f.LeaguePosition, f.HomeAdvantage, f.RecentGoalsTrend} {
		if math.Abs(v) > 0.2 {
			count++
		}
	}
	return count
}

func clampFactor(v float64) float64 {
	return math.Max(-0.5, math.Min(0.5, v))
}

// ThresholdPrediction is the adjusted hit probability for one over-goals market
type ThresholdPrediction struct {
	Probability float64
	BetLabel    string
	Confidence  string
}

// ThresholdPredictions maps goal threshold to its prediction
type ThresholdPredictions map[float64]ThresholdPrediction

// BestBet is the bet chosen for a match by the selection policy
type BestBet struct {
	BetLabel    string
	Probability float64
	Threshold   float64
}

// AnalyzedMatch is an upcoming fixture enriched with its chosen bet,
// estimated odds and win probability. Lifetime: one generation run.
type AnalyzedMatch struct {
	SourceID    *int64
	HomeTeamID  int64
	AwayTeamID  int64
	HomeTeam    string
	AwayTeam    string
	League      string
	KickoffTime time.Time
	BetLabel    string
	Odds        float64
	Probability float64
}

// Analyzer estimates goal probabilities for upcoming matches from recent-form
// statistics and head-to-head history
type Analyzer struct {
	stats StatsSource
	cfg   Config
}

// NewAnalyzer creates an analyzer backed by the given stats source
func NewAnalyzer(stats StatsSource, cfg Config) *Analyzer {
	return &Analyzer{stats: stats, cfg: cfg}
}

// Analyze predicts hit probabilities for every configured threshold of one
// match. A team whose form cannot be fetched counts as having no samples; a
// missing head-to-head record defaults to the league-average 2.5 goals.
// Analyze itself fails only on impossible input, never on upstream outages.
func (a *Analyzer) Analyze(ctx context.Context, match datasource.MatchCandidate) (ThresholdPredictions, error) {
	if match.HomeTeam == "" || match.AwayTeam == "" {
		return nil, fmt.Errorf("match %d has unnamed teams", match.SourceID)
	}

	homeForm := a.fetchForm(ctx, match.HomeTeamID)
	awayForm := a.fetchForm(ctx, match.AwayTeamID)
	h2h := a.fetchHeadToHead(ctx, match.SourceID)

	factors := ComputeFactors(homeForm, awayForm, h2h)

	predictions := make(ThresholdPredictions, len(a.cfg.BaseProbabilities))
	for threshold, baseProb := range a.cfg.BaseProbabilities {
		adjusted := a.adjustProbability(baseProb, factors, threshold)
		predictions[threshold] = ThresholdPrediction{
			Probability: math.Min(0.95, math.Max(0.05, adjusted)),
			BetLabel:    fmt.Sprintf("Over %.1f", threshold),
			Confidence:  confidenceLabel(factors),
		}
	}

	return predictions, nil
}

func (a *Analyzer) fetchForm(ctx context.Context, teamID int64) []datasource.FormSample {
	if teamID == 0 {
		return nil
	}
	samples, err := a.stats.FetchRecentForm(ctx, teamID, 10)
	if err != nil {
		return nil
	}
	return samples
}

func (a *Analyzer) fetchHeadToHead(ctx context.Context, matchID int64) *datasource.HeadToHead {
	if matchID == 0 {
		return &datasource.HeadToHead{AvgGoals: 2.5}
	}
	h2h, err := a.stats.FetchHeadToHead(ctx, matchID)
	if err != nil || h2h == nil {
		return &datasource.HeadToHead{AvgGoals: 2.5}
	}
	return h2h
}

// ComputeFactors derives the six-factor vector from both teams' recent form
// and the head-to-head aggregate
func ComputeFactors(homeForm, awayForm []datasource.FormSample, h2h *datasource.HeadToHead) FactorVector {
	factors := FactorVector{HomeAdvantage: 0.1}

	if len(homeForm) > 0 {
		factors.ScoringForm += (avgGoalsFor(homeForm) - formBaseline) / 2
		factors.ConcedingForm += (avgGoalsAgainst(homeForm) - formBaseline) / 2
	}
	if len(awayForm) > 0 {
		factors.ScoringForm += (avgGoalsFor(awayForm) - formBaseline) / 2
		factors.ConcedingForm += (avgGoalsAgainst(awayForm) - formBaseline) / 2
	}

	avgH2H := 2.5
	if h2h != nil {
		avgH2H = h2h.AvgGoals
	}
	factors.HeadToHead = (avgH2H - 2.5) / 3

	// Pool the five most recent results from each side
	recent := make([]datasource.FormSample, 0, 10)
	recent = append(recent, headSamples(homeForm, 5)...)
	recent = append(recent, headSamples(awayForm, 5)...)
	if len(recent) > 0 {
		total := 0
		for _, s := range recent {
			total += s.TotalGoals
		}
		factors.RecentGoalsTrend = (float64(total)/float64(len(recent)) - 2.5) / 2
	}

	factors.clamp()
	return factors
}

func (a *Analyzer) adjustProbability(baseProb float64, factors FactorVector, threshold float64) float64 {
	adjusted := baseProb + factors.WeightedSum(a.cfg.Weights)

	// Low thresholds track scoring form, high thresholds need a goals trend
	if threshold <= 1.5 {
		adjusted += factors.ScoringForm * 0.1
	} else if threshold >= 3.5 {
		adjusted += factors.RecentGoalsTrend * 0.15
	}

	return adjusted
}

func confidenceLabel(factors FactorVector) string {
	switch signals := factors.StrongSignals(); {
	case signals >= 3:
		return ConfidenceHigh
	case signals >= 1:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// SelectBestBet picks one bet for a match. Thresholds are tried in the
// configured priority order against minProbability, then against each relaxed
// cutoff; if nothing clears a cutoff the highest-probability threshold wins
// unconditionally, so a pick is always produced.
func (a *Analyzer) SelectBestBet(predictions ThresholdPredictions, minProbability float64) *BestBet {
	if len(predictions) == 0 {
		return nil
	}

	cutoffs := append([]float64{minProbability}, a.cfg.RelaxedCutoffs...)
	for _, cutoff := range cutoffs {
		for _, threshold := range a.cfg.PriorityOrder {
			pred, ok := predictions[threshold]
			if !ok {
				continue
			}
			if pred.Probability >= cutoff {
				return &BestBet{BetLabel: pred.BetLabel, Probability: pred.Probability, Threshold: threshold}
			}
		}
	}

	var best *BestBet
	for threshold, pred := range predictions {
		if best == nil || pred.Probability > best.Probability {
			best = &BestBet{BetLabel: pred.BetLabel, Probability: pred.Probability, Threshold: threshold}
		}
	}
	return best
}

// CombinedProbability multiplies the win probability of every leg. All legs
// must win for the accumulator to win. Empty input yields 0.
func CombinedProbability(matches []AnalyzedMatch) float64 {
	if len(matches) == 0 {
		return 0.0
	}
	combined := 1.0
	for _, m := range matches {
		combined *= m.Probability
	}
	return combined
}

// CombinedOdds multiplies the decimal odds of every leg, rounded to 2
// decimals. Empty input yields 0.
func CombinedOdds(matches []AnalyzedMatch) float64 {
	if len(matches) == 0 {
		return 0.0
	}
	combined := 1.0
	for _, m := range matches {
		combined *= m.Odds
	}
	return round2(combined)
}

func avgGoalsFor(samples []datasource.FormSample) float64 {
	total := 0
	for _, s := range samples {
		total += s.GoalsFor
	}
	return float64(total) / float64(len(samples))
}

func avgGoalsAgainst(samples []datasource.FormSample) float64 {
	total := 0
	for _, s := range samples {
		total += s.GoalsAgainst
	}
	return float64(total) / float64(len(samples))
}

func headSamples(samples []datasource.FormSample, n int) []datasource.FormSample {
	if len(samples) <= n {
		return samples
	}
	return samples[:n]
}
