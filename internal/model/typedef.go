// Package model defines the core domain models used throughout the application.
package model

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// UnknownTypeCode is the reserved code for documents that cannot be typed.
const UnknownTypeCode = "000"

// FieldType describes the kind of value an extraction field captures.
type FieldType string

// Extraction field type constants.
const (
	FieldTypeText       FieldType = "text"
	FieldTypeDate       FieldType = "date"
	FieldTypeAmount     FieldType = "amount"
	FieldTypeReference  FieldType = "reference"
	FieldTypeName       FieldType = "name"
	FieldTypeAddress    FieldType = "address"
	FieldTypePhone      FieldType = "phone"
	FieldTypeEmail      FieldType = "email"
	FieldTypePercentage FieldType = "percentage"
	FieldTypeURL        FieldType = "url"
)

// StagingSlot names a position in the coded staging filename.
type StagingSlot string

// Staging slot constants.
const (
	SlotVendor    StagingSlot = "vendor"
	SlotCustomer  StagingSlot = "customer"
	SlotDate      StagingSlot = "date"
	SlotReference StagingSlot = "reference"
	SlotAmount    StagingSlot = "amount"
)

// ReferenceLookup configures per-field entity resolution against the
// shared entity reference document.
type ReferenceLookup struct {
	Role string `json:"role"`
}

// CrossReference configures generic resolution of a field against an
// arbitrary reference document.
type CrossReference struct {
	ReferencePath    string   `json:"reference_path"`
	ReferenceKey     string   `json:"reference_key,omitempty"`
	SupportingFields []string `json:"supporting_fields,omitempty"`
	CreateIfMissing  bool     `json:"create_if_missing,omitempty"`
}

// FieldSpec defines how one structured field is pulled out of document text.
type FieldSpec struct {
	Patterns        []string         `json:"patterns"`
	FieldType       FieldType        `json:"field_type,omitempty"`
	Required        bool             `json:"required,omitempty"`
	ReferenceLookup *ReferenceLookup `json:"reference_lookup,omitempty"`
	CrossReference  *CrossReference  `json:"cross_reference,omitempty"`
}

// TypeDefinition describes one document type: the signals that identify it,
// the fields extracted from it, and how its staged copy is named and filed.
type TypeDefinition struct {
	Code                 string                     `json:"code"`
	ContainerFormats     []string                   `json:"container_formats,omitempty"`
	MimeTypes            []string                   `json:"mime_types,omitempty"`
	ContentKeywords      []string                   `json:"content_keywords,omitempty"`
	KeywordThreshold     int                        `json:"keyword_threshold,omitempty"`
	ContentPatterns      []string                   `json:"content_patterns,omitempty"`
	ExtractionFields     map[string]*FieldSpec      `json:"extraction_fields,omitempty"`
	FieldOrder           []string                   `json:"field_order,omitempty"`
	StagingFields        map[StagingSlot]string     `json:"staging_fields,omitempty"`
	DestinationSubfolder string                     `json:"destination_subfolder,omitempty"`
	NamingPattern        string                     `json:"naming_pattern,omitempty"`
}

// TypeDefinitions is the full document-type configuration.
type TypeDefinitions struct {
	Types map[string]*TypeDefinition `json:"types"`
}

// ApplyDefaults fills zero values with their documented defaults.
func (t *TypeDefinition) ApplyDefaults() {
	if t.Code == "" {
		t.Code = UnknownTypeCode
	}
	if t.KeywordThreshold < 1 {
		t.KeywordThreshold = 1
	}
	for _, spec := range t.ExtractionFields {
		if spec.FieldType == "" {
			spec.FieldType = FieldTypeText
		}
	}
}

// Validate checks structural invariants: a 3-digit code, compilable
// content and extraction patterns, and staging slots that point at
// configured extraction fields.
func (t *TypeDefinition) Validate(name string) error {
	if !codeRe.MatchString(t.Code) {
		return fmt.Errorf("type %q: code %q is not a 3-digit code", name, t.Code)
	}
	for _, p := range t.ContentPatterns {
		if _, err := regexp.Compile("(?i)" + p); err != nil {
			return fmt.Errorf("type %q: content pattern %q: %w", name, p, err)
		}
	}
	for fieldName, spec := range t.ExtractionFields {
		for _, p := range spec.Patterns {
			if _, err := regexp.Compile("(?im)" + p); err != nil {
				return fmt.Errorf("type %q field %q: pattern %q: %w", name, fieldName, p, err)
			}
		}
	}
	for slot, fieldName := range t.StagingFields {
		if _, ok := t.ExtractionFields[fieldName]; !ok {
			return fmt.Errorf("type %q: staging slot %q maps to unknown field %q", name, slot, fieldName)
		}
	}
	return nil
}

// FieldNames returns the extraction field names in declaration order.
// FieldOrder is written by the config store on save; any field missing
// from it is appended in sorted order so extraction stays deterministic.
func (t *TypeDefinition) FieldNames() []string {
	names := make([]string, 0, len(t.ExtractionFields))
	seen := make(map[string]bool, len(t.ExtractionFields))
	for _, name := range t.FieldOrder {
		if _, ok := t.ExtractionFields[name]; ok && !seen[name] {
			names = append(names, name)
			seen[name] = true
		}
	}
	rest := make([]string, 0, len(t.ExtractionFields))
	for name := range t.ExtractionFields {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(names, rest...)
}

// HasContainerFormat reports whether ext (lowercase, with dot) is a
// configured container format for this type.
func (t *TypeDefinition) HasContainerFormat(ext string) bool {
	for _, f := range t.ContainerFormats {
		if strings.EqualFold(f, ext) {
			return true
		}
	}
	return false
}

// HasMimeType reports whether mime is a configured MIME type for this type.
func (t *TypeDefinition) HasMimeType(mime string) bool {
	for _, m := range t.MimeTypes {
		if m == mime {
			return true
		}
	}
	return false
}

var codeRe = regexp.MustCompile(`^\d{3}$`)
