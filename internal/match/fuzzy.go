// Package match provides the fuzzy string matching shared by entity
// resolution and cross-referencing.
package match

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/Veraticus/autofiler/internal/model"
)

// Default thresholds for the three matching modes.
const (
	DefaultThreshold        = 0.80
	DefaultSupportThreshold = 0.90
	DefaultScanThreshold    = 0.95
)

// Ratio returns a symmetric similarity in [0, 1] between two strings.
// Both sides are lowercased and trimmed first; identical normalized
// strings short-circuit to 1.0, otherwise the ratio is edit-distance
// based.
func Ratio(a, b string) float64 {
	an := normalize(a)
	bn := normalize(b)
	if an == bn {
		return 1.0
	}
	if an == "" || bn == "" {
		return 0.0
	}

	dist := levenshtein.ComputeDistance(an, bn)
	longest := len([]rune(an))
	if l := len([]rune(bn)); l > longest {
		longest = l
	}
	return 1.0 - float64(dist)/float64(longest)
}

// Match finds the entity whose name or any alias is most similar to the
// query. Returns the entity key and ratio when the best ratio meets the
// threshold; otherwise ("", best ratio found).
func Match(query string, entities model.ReferenceEntities, threshold float64) (string, float64) {
	key, ratio, _ := bestCandidate(query, entities)
	if key != "" && ratio >= threshold {
		return key, ratio
	}
	return "", ratio
}

// MatchWithSupport is Match at a stricter threshold plus a confirmation
// rule: when supporting values are supplied, at least one must equal
// (case-insensitively) the matched entity's same-named attribute. An
// exact name/alias match always wins regardless of supporting values.
func MatchWithSupport(query string, entities model.ReferenceEntities, threshold float64, supporting map[string]string) (string, float64) {
	key, ratio, exact := bestCandidate(query, entities)
	if key == "" || ratio < threshold {
		return "", ratio
	}
	if exact || len(supporting) == 0 {
		return key, ratio
	}

	entity := entities[key]
	for name, value := range supporting {
		if stored, ok := entity.Attributes[name]; ok && normalize(stored) == normalize(value) {
			return key, ratio
		}
	}
	return "", ratio
}

// ScanText looks for known entities inside free text. Pass 1 is a
// case-insensitive substring search over names and aliases; the first hit
// (in deterministic key order) wins with ratio 1.0. Pass 2 fuzzy-matches
// each non-blank line at the scan threshold, keeping the single best
// ratio across all lines. Returns (key, canonical name, ratio).
func ScanText(text string, entities model.ReferenceEntities, threshold float64, role string) (string, string, float64) {
	filtered := entities.FilterByRole(role)
	if text == "" || len(filtered) == 0 {
		return "", "", 0.0
	}

	textLower := strings.ToLower(text)
	for _, key := range sortedKeys(filtered) {
		entity := filtered[key]
		for _, candidate := range entity.Candidates() {
			if candidate == "" {
				continue
			}
			if strings.Contains(textLower, strings.ToLower(candidate)) {
				return key, entity.Name, 1.0
			}
		}
	}

	bestKey := ""
	bestRatio := 0.0
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key, ratio := Match(line, filtered, threshold)
		if key != "" && ratio > bestRatio {
			bestKey = key
			bestRatio = ratio
		}
	}
	if bestKey == "" {
		return "", "", 0.0
	}
	return bestKey, filtered[bestKey].Name, bestRatio
}

// bestCandidate scans every entity's name and aliases for the best ratio
// against the query. Keys are visited in sorted order so ties resolve the
// same way on every run. The third return reports an exact normalized
// match.
func bestCandidate(query string, entities model.ReferenceEntities) (string, float64, bool) {
	queryNorm := normalize(query)
	if queryNorm == "" {
		return "", 0.0, false
	}

	bestKey := ""
	bestRatio := 0.0
	for _, key := range sortedKeys(entities) {
		entity := entities[key]
		for _, candidate := range entity.Candidates() {
			candidateNorm := normalize(candidate)
			if candidateNorm == "" {
				continue
			}
			if queryNorm == candidateNorm {
				return key, 1.0, true
			}
			if ratio := Ratio(query, candidate); ratio > bestRatio {
				bestRatio = ratio
				bestKey = key
			}
		}
	}
	return bestKey, bestRatio, false
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func sortedKeys(entities model.ReferenceEntities) []string {
	keys := make([]string, 0, len(entities))
	for key := range entities {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
