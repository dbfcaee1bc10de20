// Package route decides whether a classified file is auto-filed or sent
// to human review.
package route

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Veraticus/autofiler/internal/model"
)

// Router applies the confidence threshold and moves review-bound files
// into the review area.
type Router struct {
	ReviewDir string
	Threshold float64
}

// NewRouter creates a router that moves low-confidence files to reviewDir.
func NewRouter(reviewDir string, threshold float64) *Router {
	return &Router{ReviewDir: reviewDir, Threshold: threshold}
}

// Route produces the routing decision for a scored file. A review
// decision also moves the file into the review directory, resolving name
// collisions with a numeric suffix. Routing always yields an outcome.
func (r *Router) Route(path, bestType string, score *float64) (*model.RoutingDecision, error) {
	if bestType == "" || score == nil {
		moved, err := r.moveToReview(path)
		if err != nil {
			return nil, err
		}
		return &model.RoutingDecision{
			Decision:   model.DecisionReview,
			Reason:     "no_candidate",
			ReviewPath: moved,
		}, nil
	}

	if *score < r.Threshold {
		moved, err := r.moveToReview(path)
		if err != nil {
			return nil, err
		}
		return &model.RoutingDecision{
			Decision:   model.DecisionReview,
			Reason:     fmt.Sprintf("score_%s_below_threshold_%s", formatScore(*score), formatScore(r.Threshold)),
			TypeName:   bestType,
			Score:      score,
			ReviewPath: moved,
		}, nil
	}

	return &model.RoutingDecision{
		Decision: model.DecisionAutoFile,
		Reason:   fmt.Sprintf("score_%s_meets_threshold_%s", formatScore(*score), formatScore(r.Threshold)),
		TypeName: bestType,
		Score:    score,
	}, nil
}

// MoveToReview moves a file into the review area outside of a routing
// decision, for callers that discover mid-pipeline the file needs a
// human (e.g. incomplete extraction on the automatic path). Returns the
// review-area path.
func (r *Router) MoveToReview(path string) (string, error) {
	return r.moveToReview(path)
}

func (r *Router) moveToReview(path string) (string, error) {
	if err := os.MkdirAll(r.ReviewDir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create review directory: %w", err)
	}

	name := filepath.Base(path)
	target := filepath.Join(r.ReviewDir, name)

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for counter := 1; exists(target); counter++ {
		target = filepath.Join(r.ReviewDir, fmt.Sprintf("%s_%d%s", stem, counter, ext))
	}

	if err := os.Rename(path, target); err != nil {
		return "", fmt.Errorf("failed to move %s to review: %w", path, err)
	}
	return target, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
