package model

// SidecarSchemaVersion identifies the sidecar JSON layout. Changes to the
// sidecar are additive only; the version bumps when new keys appear.
const SidecarSchemaVersion = "1.2"

// ReviewProvenance records what the review workflow did to a file before
// it was staged.
type ReviewProvenance struct {
	ReviewType      string            `json:"review_type"`
	OriginalReason  string            `json:"original_reason,omitempty"`
	LearningApplied []string          `json:"learning_applied,omitempty"`
	ManualOverrides map[string]string `json:"manual_overrides,omitempty"`
}

// Sidecar is the structured JSON record of everything the pipeline did to
// one file. It is written next to the staged copy, once, on success.
type Sidecar struct {
	ExtractedFields     map[string]string           `json:"extracted_fields"`
	ModifiedFields      map[StagingSlot]string      `json:"modified_fields"`
	ResolutionInfo      map[string]*FieldResolution `json:"resolution_info"`
	ConfidenceScore     *float64                    `json:"confidence_score"`
	ReviewInfo          *ReviewProvenance           `json:"review_info,omitempty"`
	SchemaVersion       string                      `json:"schema_version"`
	ProcessingTimestamp string                      `json:"processing_timestamp"`
	SourceFile          string                      `json:"source_file"`
	SourceHash          string                      `json:"source_hash"`
	VaultFile           string                      `json:"vault_file"`
	DocumentType        string                      `json:"document_type"`
	DocTypeCode         string                      `json:"doc_type_code"`
	StagingFilename     string                      `json:"staging_filename"`
	OCRText             string                      `json:"ocr_text"`
}

// StagingRecord is the 1:1:1 result of staging one file: the write-once
// vault copy, the renamed working copy, and the sidecar beside it.
type StagingRecord struct {
	StagingFilename string `json:"staging_filename"`
	StagedPath      string `json:"staged_path"`
	VaultPath       string `json:"vault_path"`
	SidecarPath     string `json:"sidecar_path"`
}
