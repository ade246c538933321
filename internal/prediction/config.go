// Package prediction implements the over-goals prediction pipeline: heuristic
// match analysis, odds estimation and accumulator combination search.
package prediction

// FactorWeights weights the six analysis factors in the probability adjustment
type FactorWeights struct {
	ScoringForm      float64
	ConcedingForm    float64
	HeadToHead       float64
	LeaguePosition   float64
	HomeAdvantage    float64
	RecentGoalsTrend float64
}

// OddsBand holds the three market prices quoted for one goal threshold
type OddsBand struct {
	Low  float64
	Mid  float64
	High float64
}

// Config carries the tuned weight, probability and odds tables. It is built
// once and passed to each component at construction so tests can substitute
// alternate tables.
type Config struct {
	Weights FactorWeights

	// Base hit probabilities per over-goals threshold before adjustment
	BaseProbabilities map[float64]float64

	// Market odds bands per threshold
	MarketOdds map[float64]OddsBand

	// Bet selection: thresholds tried in order of preference, then the
	// acceptance cutoff is relaxed through RelaxedCutoffs
	PriorityOrder  []float64
	MinProbability float64
	RelaxedCutoffs []float64

	// Per-leg minimum odds for a match to be worth including
	MinLegOdds float64

	// Combination search bounds
	MinTotalOdds       float64
	MinCombinationSize int
	MaxCombinationSize int

	// Cap on matches analyzed per generation run
	MaxMatches int

	// Lookahead window for upcoming fixtures, in days
	LookaheadDays int
}

// DefaultConfig returns the production tuning.
//
// The selection policy is the safety-first variant: prefer low thresholds in
// the order 1.5, 2.5, 0.5, 3.5 and relax the acceptance cutoff through 0.75
// and 0.65 before falling back to the highest-probability threshold.
func DefaultConfig() Config {
	return Config{
		Weights: FactorWeights{
			ScoringForm:      0.25,
			ConcedingForm:    0.20,
			HeadToHead:       0.15,
			LeaguePosition:   0.10,
			HomeAdvantage:    0.10,
			RecentGoalsTrend: 0.20,
		},
		BaseProbabilities: map[float64]float64{
			0.5: 0.95,
			1.5: 0.92,
			2.5: 0.72,
			3.5: 0.48,
			4.5: 0.28,
		},
		MarketOdds: map[float64]OddsBand{
			0.5: {Low: 1.03, Mid: 1.07, High: 1.12},
			1.5: {Low: 1.25, Mid: 1.40, High: 1.60},
			2.5: {Low: 1.70, Mid: 1.85, High: 1.95},
			3.5: {Low: 2.30, Mid: 2.65, High: 3.10},
			4.5: {Low: 3.50, Mid: 4.50, High: 5.50},
			5.5: {Low: 6.00, Mid: 8.00, High: 11.00},
		},
		PriorityOrder:      []float64{1.5, 2.5, 0.5, 3.5},
		MinProbability:     0.50,
		RelaxedCutoffs:     []float64{0.75, 0.65},
		MinLegOdds:         1.15,
		MinTotalOdds:       2.0,
		MinCombinationSize: 2,
		MaxCombinationSize: 5,
		MaxMatches:         20,
		LookaheadDays:      2,
	}
}
