package classify

import (
	"math"
	"sort"

	"github.com/Veraticus/autofiler/internal/model"
)

// Score computes weighted scores for every candidate:
// score(type) = sum of weight(signal kind) over that type's matched kinds.
func Score(result *model.ClassificationResult, rules *model.ClassificationRules) map[string]*model.ScoredCandidate {
	scored := make(map[string]*model.ScoredCandidate, len(result.Candidates))

	for name, candidate := range result.Candidates {
		breakdown := make(map[model.SignalKind]float64, len(candidate.MatchedSignals))
		total := 0.0
		for _, signal := range candidate.MatchedSignals {
			weight := rules.SignalWeights[signal]
			breakdown[signal] = weight
			total += weight
		}
		scored[name] = &model.ScoredCandidate{
			Score:           round4(total),
			MatchedSignals:  candidate.MatchedSignals,
			SignalBreakdown: breakdown,
		}
	}

	return scored
}

// SelectBest returns the highest-scoring candidate with at least
// minSignals matched signal kinds, or ("", nil) when none qualifies.
// Equal scores break lexicographically by type name so selection stays
// deterministic across runs.
func SelectBest(scored map[string]*model.ScoredCandidate, minSignals int) (string, *model.ScoredCandidate) {
	names := make([]string, 0, len(scored))
	for name := range scored {
		names = append(names, name)
	}
	sort.Strings(names)

	bestName := ""
	var best *model.ScoredCandidate
	for _, name := range names {
		candidate := scored[name]
		if len(candidate.MatchedSignals) < minSignals {
			continue
		}
		if best == nil || candidate.Score > best.Score {
			bestName = name
			best = candidate
		}
	}
	return bestName, best
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
