package model

// ResolutionMethod records how a name field was resolved.
type ResolutionMethod string

// Resolution method constants.
const (
	ResolutionFuzzyMatch  ResolutionMethod = "fuzzy_match"
	ResolutionAutoCreated ResolutionMethod = "auto_created"
	ResolutionTextScan    ResolutionMethod = "text_scan"
	ResolutionUnresolved  ResolutionMethod = "unresolved"
)

// FieldResolution is the per-field provenance of entity resolution.
type FieldResolution struct {
	Method        ResolutionMethod `json:"method"`
	RawValue      string           `json:"raw_value,omitempty"`
	ResolvedValue string           `json:"resolved_value,omitempty"`
	EntityKey     string           `json:"entity_key,omitempty"`
	Ratio         float64          `json:"ratio"`
}

// ExtractionResult holds the structured fields pulled from a document.
type ExtractionResult struct {
	ExtractedFields map[string]string           `json:"extracted_fields"`
	ResolutionInfo  map[string]*FieldResolution `json:"resolution_info,omitempty"`
	MissingFields   []string                    `json:"missing_fields,omitempty"`
}

// Complete reports whether no required fields are missing.
func (r *ExtractionResult) Complete() bool {
	return len(r.MissingFields) == 0
}

// Missing reports whether field is still listed as missing.
func (r *ExtractionResult) Missing(field string) bool {
	for _, f := range r.MissingFields {
		if f == field {
			return true
		}
	}
	return false
}

// ClearMissing removes field from the missing list, keeping order.
func (r *ExtractionResult) ClearMissing(field string) {
	out := r.MissingFields[:0]
	for _, f := range r.MissingFields {
		if f != field {
			out = append(out, f)
		}
	}
	r.MissingFields = out
}
