package service

import (
	"time"

	"github.com/yourusername/odd2/internal/prediction"
)

// demoMatches returns the canned fixtures used when no live data is
// available. Kickoff times are offset from now so the picks always look
// upcoming; the teams and numbers are fixed.
func demoMatches(now time.Time) []prediction.AnalyzedMatch {
	return []prediction.AnalyzedMatch{
		{
			HomeTeam:    "Manchester City",
			AwayTeam:    "Liverpool",
			League:      "Premier League",
			KickoffTime: now.Add(3 * time.Hour),
			BetLabel:    "Over 2.5",
			Odds:        1.65,
			Probability: 0.62,
		},
		{
			HomeTeam:    "Bayern Munich",
			AwayTeam:    "Borussia Dortmund",
			League:      "Bundesliga",
			KickoffTime: now.Add(5 * time.Hour),
			BetLabel:    "Over 2.5",
			Odds:        1.55,
			Probability: 0.65,
		},
		{
			HomeTeam:    "Real Madrid",
			AwayTeam:    "Barcelona",
			League:      "La Liga",
			KickoffTime: now.Add(7 * time.Hour),
			BetLabel:    "Over 1.5",
			Odds:        1.35,
			Probability: 0.72,
		},
		{
			HomeTeam:    "Inter Milan",
			AwayTeam:    "AC Milan",
			League:      "Serie A",
			KickoffTime: now.Add(8 * time.Hour),
			BetLabel:    "Over 2.5",
			Odds:        1.75,
			Probability: 0.58,
		},
		{
			HomeTeam:    "PSG",
			AwayTeam:    "Marseille",
			League:      "Ligue 1",
			KickoffTime: now.Add(9 * time.Hour),
			BetLabel:    "Over 2.5",
			Odds:        1.60,
			Probability: 0.63,
		},
	}
}

// demoPredictions builds the fallback VIP and Free picks from the canned
// fixtures: the first two matches for VIP, the next two for Free
func demoPredictions(now time.Time) (vip, free prediction.Combination) {
	matches := demoMatches(now)

	vipMatches := matches[:2]
	vip = prediction.Combination{
		Matches:            vipMatches,
		TotalOdds:          prediction.CombinedOdds(vipMatches),
		SuccessProbability: prediction.CombinedProbability(vipMatches),
	}

	freeMatches := matches[2:4]
	free = prediction.Combination{
		Matches:            freeMatches,
		TotalOdds:          prediction.CombinedOdds(freeMatches),
		SuccessProbability: prediction.CombinedProbability(freeMatches),
	}

	return vip, free
}
