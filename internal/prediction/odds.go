package prediction

import (
	"math"
	"math/rand"
)

// Estimator maps a goal threshold and predicted probability to a plausible
// decimal market price using static odds bands. With a random source attached
// it adds uniform jitter of up to 5% either way, the way real books shade
// their prices.
type Estimator struct {
	bands map[float64]OddsBand
	rng   *rand.Rand
}

// NewEstimator creates an estimator without jitter. Output is deterministic.
func NewEstimator(cfg Config) *Estimator {
	return &Estimator{bands: cfg.MarketOdds}
}

// NewJitteredEstimator creates an estimator that jitters the band price with
// the provided random source. Pass a seeded source in tests.
func NewJitteredEstimator(cfg Config, rng *rand.Rand) *Estimator {
	return &Estimator{bands: cfg.MarketOdds, rng: rng}
}

// Estimate returns the decimal odds for an over-goals market. Higher
// probability selects a cheaper band. The result is never below 1.01.
func (e *Estimator) Estimate(threshold, probability float64) float64 {
	band, ok := e.bands[threshold]
	if !ok {
		return math.Max(1.01, round2(1.0/math.Max(0.1, probability)))
	}

	var odds float64
	switch {
	case probability >= 0.70:
		odds = band.Low
	case probability >= 0.55:
		odds = band.Mid
	default:
		odds = band.High
	}

	if e.rng != nil {
		variance := (e.rng.Float64() - 0.5) * 0.1 // uniform in [-0.05, 0.05)
		odds = round2(math.Max(1.01, odds*(1+variance)))
	}

	return odds
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
