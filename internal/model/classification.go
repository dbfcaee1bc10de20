package model

import "time"

// SignalKind is one independent piece of classification evidence.
type SignalKind string

// Signal kind constants. Extension and MIME evidence collapse into the
// single format signal.
const (
	SignalFormat    SignalKind = "format_match"
	SignalKeyword   SignalKind = "keyword_match"
	SignalPattern   SignalKind = "pattern_match"
	SignalReference SignalKind = "reference_match"
)

// FileMetadata captures basic filesystem facts about the classified file.
type FileMetadata struct {
	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`
	Size     int64     `json:"file_size"`
}

// Candidate holds the signal kinds matched for one type.
type Candidate struct {
	MatchedSignals []SignalKind `json:"matched_signals"`
}

// ClassificationResult is the full signal picture for one file.
type ClassificationResult struct {
	KeywordMatches map[string]int        `json:"keyword_matches"`
	PatternMatches map[string]int        `json:"pattern_matches"`
	Candidates     map[string]*Candidate `json:"candidates"`
	FilePath       string                `json:"file_path"`
	Extension      string                `json:"extension"`
	MimeType       string                `json:"mime_type"`
	ExtractedText  string                `json:"extracted_text"`
	FormatMatches  []string              `json:"format_matches"`
	Metadata       FileMetadata          `json:"metadata"`
}

// ScoredCandidate is the weighted score for one candidate type.
// Recomputed on every run, never persisted.
type ScoredCandidate struct {
	SignalBreakdown map[SignalKind]float64 `json:"signal_breakdown"`
	MatchedSignals  []SignalKind           `json:"matched_signals"`
	Score           float64                `json:"score"`
}

// ClassificationRules holds the signal weight table and the minimum
// number of matched signal kinds a type needs to be selectable.
type ClassificationRules struct {
	SignalWeights      map[SignalKind]float64 `json:"signal_weights"`
	MinSignalsRequired int                    `json:"min_signals_required"`
}

// ApplyDefaults fills zero values with their documented defaults.
func (r *ClassificationRules) ApplyDefaults() {
	if r.MinSignalsRequired < 1 {
		r.MinSignalsRequired = 1
	}
	if r.SignalWeights == nil {
		r.SignalWeights = map[SignalKind]float64{
			SignalFormat:    0.10,
			SignalKeyword:   0.50,
			SignalPattern:   0.30,
			SignalReference: 0.10,
		}
	}
}
