package model

import "time"

// ReviewStatus tracks a file's position in the review queue.
type ReviewStatus string

// Review status constants.
const (
	ReviewPending  ReviewStatus = "pending"
	ReviewInReview ReviewStatus = "in_review"
	ReviewResolved ReviewStatus = "resolved"
)

// ReviewPhase distinguishes classification review (A) from extraction
// review (B).
type ReviewPhase string

// Review phase constants.
const (
	PhaseA ReviewPhase = "A"
	PhaseB ReviewPhase = "B"
)

// ReviewQueueEntry is the persisted state of one file in the review area,
// keyed by filename within the review directory.
type ReviewQueueEntry struct {
	AddedAt    time.Time    `json:"added_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
	ResolvedAt *time.Time   `json:"resolved_at,omitempty"`
	FileKey    string       `json:"file_key"`
	Status     ReviewStatus `json:"status"`
	Phase      ReviewPhase  `json:"phase"`
	Reason     string       `json:"reason,omitempty"`
	ResolvedAs string       `json:"resolved_as,omitempty"`
}

// RoutingDecision is the router's verdict for one classified file.
// It is an outcome, not an error: one is always produced.
type RoutingDecision struct {
	Score      *float64 `json:"score"`
	Decision   string   `json:"decision"`
	Reason     string   `json:"reason"`
	TypeName   string   `json:"type_name,omitempty"`
	ReviewPath string   `json:"review_path,omitempty"`
}

// Routing decision constants.
const (
	DecisionAutoFile = "auto_file"
	DecisionReview   = "review"
)
