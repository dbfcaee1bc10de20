// Package pipeline runs the automatic processing path for one file:
// guard, classify, score, route, and on auto_file extract, resolve, and
// stage. Review-routed files are handed to the review queue.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Veraticus/autofiler/internal/classify"
	"github.com/Veraticus/autofiler/internal/common"
	"github.com/Veraticus/autofiler/internal/config"
	"github.com/Veraticus/autofiler/internal/extract"
	"github.com/Veraticus/autofiler/internal/model"
	"github.com/Veraticus/autofiler/internal/resolve"
	"github.com/Veraticus/autofiler/internal/review"
	"github.com/Veraticus/autofiler/internal/route"
	"github.com/Veraticus/autofiler/internal/staging"
)

// Outcome is the final disposition of one file run through the pipeline.
type Outcome struct {
	Decision *model.RoutingDecision
	Staged   *model.StagingRecord
	Guarded  *common.GuardError
	Path     string
}

// Pipeline wires the automatic stages together.
type Pipeline struct {
	store      *config.Store
	classifier *classify.Engine
	router     *route.Router
	resolver   *resolve.Resolver
	stager     *staging.Stager
	queue      *review.Store
	guard      func(string) error
}

// New assembles a pipeline from its stage components.
func New(store *config.Store, classifier *classify.Engine, router *route.Router, resolver *resolve.Resolver, stager *staging.Stager, queue *review.Store, guardFn func(string) error) *Pipeline {
	return &Pipeline{
		store:      store,
		classifier: classifier,
		router:     router,
		resolver:   resolver,
		stager:     stager,
		queue:      queue,
		guard:      guardFn,
	}
}

// Process runs one file through the full automatic path. Guard
// rejections are terminal and reported in the outcome, not as errors.
// Any other failure is logged with the file it concerns and returned so
// the caller never loses track of a file silently.
func (p *Pipeline) Process(ctx context.Context, path string) (*Outcome, error) {
	outcome := &Outcome{Path: path}

	if err := p.guard(path); err != nil {
		var guardErr *common.GuardError
		if errors.As(err, &guardErr) {
			common.LogInfo("file rejected by guard", common.Fields{
				"file":   path,
				"reason": string(guardErr.Reason),
			})
			outcome.Guarded = guardErr
			return outcome, nil
		}
		return nil, p.fail(path, "guard", err)
	}

	result, err := p.classifier.Classify(path)
	if err != nil {
		return nil, p.fail(path, "classification", err)
	}
	rules, err := p.store.ClassificationRules()
	if err != nil {
		return nil, p.fail(path, "classification", err)
	}
	scored := classify.Score(result, rules)
	bestType, best := classify.SelectBest(scored, rules.MinSignalsRequired)

	var score *float64
	if best != nil {
		score = &best.Score
	}
	decision, err := p.router.Route(path, bestType, score)
	if err != nil {
		return nil, p.fail(path, "routing", err)
	}
	outcome.Decision = decision

	if decision.Decision == model.DecisionReview {
		fileKey := filepath.Base(decision.ReviewPath)
		if err := p.queue.Register(ctx, fileKey, decision.Reason); err != nil {
			return nil, p.fail(path, "queue", err)
		}
		common.LogInfo("file routed to review", common.Fields{
			"file":   path,
			"reason": decision.Reason,
		})
		return outcome, nil
	}

	staged, missing, err := p.autoFile(ctx, path, bestType, result, score)
	if err != nil {
		return nil, p.fail(path, "staging", err)
	}
	if staged == nil {
		// Extraction left required fields empty; the file went to
		// review instead of staging.
		reason := "missing_fields:" + strings.Join(missing, ",")
		outcome.Decision = &model.RoutingDecision{
			Decision: model.DecisionReview,
			Reason:   reason,
			TypeName: bestType,
			Score:    score,
		}
		common.LogInfo("file routed to review", common.Fields{
			"file":   path,
			"reason": reason,
		})
		return outcome, nil
	}
	outcome.Staged = staged
	common.LogInfo("file auto-filed", common.Fields{
		"file":   path,
		"type":   bestType,
		"staged": staged.StagedPath,
	})
	return outcome, nil
}

func (p *Pipeline) autoFile(ctx context.Context, path, typeName string, classification *model.ClassificationResult, score *float64) (*model.StagingRecord, []string, error) {
	defs, err := p.store.TypeDefinitions()
	if err != nil {
		return nil, nil, err
	}
	def, ok := defs.Types[typeName]
	if !ok {
		return nil, nil, fmt.Errorf("type %q: %w", typeName, common.ErrNotFound)
	}

	extraction := extract.Fields(classification.ExtractedText, def)
	if err := p.resolver.ResolveFields(extraction, classification.ExtractedText, def); err != nil {
		return nil, nil, err
	}
	if _, err := p.resolver.CrossReference(extraction, def); err != nil {
		return nil, nil, err
	}

	if !extraction.Complete() {
		missing := append([]string(nil), extraction.MissingFields...)
		sort.Strings(missing)
		moved, err := p.router.MoveToReview(path)
		if err != nil {
			return nil, nil, err
		}
		fileKey := filepath.Base(moved)
		reason := "missing_fields:" + strings.Join(missing, ",")
		if err := p.queue.Register(ctx, fileKey, reason); err != nil {
			return nil, nil, err
		}
		if err := p.queue.SetPhase(ctx, fileKey, model.PhaseB, reason); err != nil {
			return nil, nil, err
		}
		return nil, missing, nil
	}

	record, err := p.stager.Stage(staging.Request{
		Path:            path,
		TypeName:        typeName,
		Def:             def,
		ExtractedFields: extraction.ExtractedFields,
		ResolutionInfo:  extraction.ResolutionInfo,
		Confidence:      score,
		OCRText:         classification.ExtractedText,
	})
	if err != nil {
		return nil, nil, err
	}
	return record, nil, nil
}

func (p *Pipeline) fail(path, stage string, err error) error {
	common.LogError(err, "pipeline stage failed", common.Fields{
		"file":  path,
		"stage": stage,
	})
	return fmt.Errorf("%s: %s: %w", path, stage, err)
}
