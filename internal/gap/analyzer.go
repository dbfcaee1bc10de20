// Package gap diagnoses classification and extraction misses, proposing
// new keywords, patterns, and field candidates from unmatched text. All
// analysis is deterministic: identical input text yields identical
// suggestion sets and ordering.
package gap

import (
	"strings"

	"github.com/Veraticus/autofiler/internal/common"
	"github.com/Veraticus/autofiler/internal/model"
)

// ClassificationGap reports which classification signals for a type
// matched the text, which missed, and what new signals look promising.
type ClassificationGap struct {
	MatchedKeywords   []string `json:"matched_keywords"`
	MissedKeywords    []string `json:"missed_keywords"`
	SuggestedKeywords []string `json:"suggested_keywords"`
	MatchedPatterns   []string `json:"matched_patterns"`
	MissedPatterns    []string `json:"missed_patterns"`
	SuggestedPatterns []string `json:"suggested_patterns"`
}

// PatternProbe is the result of testing one configured pattern against
// the text.
type PatternProbe struct {
	Pattern   string `json:"pattern"`
	MatchText string `json:"match_text,omitempty"`
	Matched   bool   `json:"matched"`
}

// CandidateValue is a plausible value for a missing field, found by
// field-name heuristics, with a regex suggestion anchored to its label.
type CandidateValue struct {
	Snippet          string `json:"text_snippet"`
	SuggestedPattern string `json:"suggested_pattern"`
	LineNumber       int    `json:"line_number"`
}

// FieldGap diagnoses one missing required field.
type FieldGap struct {
	ExistingPatterns []string         `json:"existing_patterns"`
	PatternResults   []PatternProbe   `json:"pattern_results"`
	CandidateValues  []CandidateValue `json:"candidate_values"`
}

// FieldCandidate is a label:value pair detected in text that could become
// a new extraction field.
type FieldCandidate struct {
	Label            string          `json:"label"`
	Value            string          `json:"value"`
	FieldName        string          `json:"field_name"`
	FieldType        model.FieldType `json:"field_type"`
	SuggestedPattern string          `json:"suggested_pattern"`
	LineNumber       int             `json:"line_number"`
}

// NewTypeAnalysis suggests the makings of a brand-new type definition.
type NewTypeAnalysis struct {
	SuggestedKeywords []string         `json:"suggested_keywords"`
	SuggestedPatterns []string         `json:"suggested_patterns"`
	DetectedFields    []FieldCandidate `json:"detected_fields"`
}

// AnalyzeClassification compares the text against the assigned type's
// classification signals and proposes new keywords and patterns.
func AnalyzeClassification(text string, def *model.TypeDefinition) *ClassificationGap {
	textLower := strings.ToLower(text)
	g := &ClassificationGap{}

	for _, kw := range def.ContentKeywords {
		if strings.Contains(textLower, strings.ToLower(kw)) {
			g.MatchedKeywords = append(g.MatchedKeywords, kw)
		} else {
			g.MissedKeywords = append(g.MissedKeywords, kw)
		}
	}
	g.SuggestedKeywords = suggestKeywords(text, def.ContentKeywords)

	for _, pattern := range def.ContentPatterns {
		re, err := common.CompileContentPattern(pattern)
		if err != nil || !re.MatchString(text) {
			g.MissedPatterns = append(g.MissedPatterns, pattern)
		} else {
			g.MatchedPatterns = append(g.MatchedPatterns, pattern)
		}
	}
	g.SuggestedPatterns = suggestPatterns(text, def.ContentPatterns)

	return g
}

// AnalyzeExtraction probes every missing field: which configured patterns
// fail against the text, and what candidate values the heuristics find.
func AnalyzeExtraction(text string, def *model.TypeDefinition, missing []string) map[string]*FieldGap {
	result := make(map[string]*FieldGap, len(missing))

	for _, fieldName := range missing {
		spec := def.ExtractionFields[fieldName]
		var patterns []string
		if spec != nil {
			patterns = spec.Patterns
		}

		fg := &FieldGap{ExistingPatterns: patterns}
		for _, pattern := range patterns {
			probe := PatternProbe{Pattern: pattern}
			if re, err := common.CompileFieldPattern(pattern); err == nil {
				if m := re.FindStringSubmatch(text); len(m) > 1 {
					probe.Matched = true
					probe.MatchText = strings.TrimSpace(m[1])
				}
			}
			fg.PatternResults = append(fg.PatternResults, probe)
		}
		fg.CandidateValues = findCandidateValues(text, fieldName)

		result[fieldName] = fg
	}

	return result
}

// AnalyzeNewType suggests keywords, patterns, and extraction fields for
// defining a type from scratch.
func AnalyzeNewType(text string) *NewTypeAnalysis {
	return &NewTypeAnalysis{
		SuggestedKeywords: suggestKeywords(text, nil),
		SuggestedPatterns: suggestPatterns(text, nil),
		DetectedFields:    detectFieldCandidates(text),
	}
}
