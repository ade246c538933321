package prediction

import "sort"

// Combination is a set of 2-5 analyzed matches bet together as an accumulator
type Combination struct {
	Matches            []AnalyzedMatch
	TotalOdds          float64
	SuccessProbability float64
}

// Search enumerates every subset of the analyzed matches with size in
// [cfg.MinCombinationSize, cfg.MaxCombinationSize] whose multiplied odds
// reach cfg.MinTotalOdds. Brute force: input is capped at cfg.MaxMatches
// fixtures per run, so the subset count stays small.
func Search(matches []AnalyzedMatch, cfg Config) []Combination {
	var valid []Combination

	maxSize := cfg.MaxCombinationSize
	if maxSize > len(matches) {
		maxSize = len(matches)
	}

	for size := cfg.MinCombinationSize; size <= maxSize; size++ {
		forEachSubset(len(matches), size, func(indexes []int) {
			totalOdds := 1.0
			for _, i := range indexes {
				totalOdds *= matches[i].Odds
			}
			if totalOdds < cfg.MinTotalOdds {
				return
			}

			combo := make([]AnalyzedMatch, len(indexes))
			for j, i := range indexes {
				combo[j] = matches[i]
			}
			valid = append(valid, Combination{
				Matches:            combo,
				TotalOdds:          round2(totalOdds),
				SuccessProbability: CombinedProbability(combo),
			})
		})
	}

	return valid
}

// Rank sorts combinations by success probability, highest first. Sorting is
// stable so enumeration order breaks ties deterministically.
func Rank(combinations []Combination) {
	sort.SliceStable(combinations, func(i, j int) bool {
		return combinations[i].SuccessProbability > combinations[j].SuccessProbability
	})
}

// forEachSubset calls fn with every k-element index subset of [0, n) in
// lexicographic order. The slice passed to fn is reused between calls.
func forEachSubset(n, k int, fn func(indexes []int)) {
	if k <= 0 || k > n {
		return
	}

	indexes := make([]int, k)
	for i := range indexes {
		indexes[i] = i
	}

	for {
		fn(indexes)

		// Advance to the next combination
		i := k - 1
		for i >= 0 && indexes[i] == n-k+i {
			i--
		}
		if i < 0 {
			return
		}
		indexes[i]++
		for j := i + 1; j < k; j++ {
			indexes[j] = indexes[j-1] + 1
		}
	}
}
