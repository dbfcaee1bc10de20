package review

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/Veraticus/autofiler/internal/classify"
	"github.com/Veraticus/autofiler/internal/common"
	"github.com/Veraticus/autofiler/internal/config"
	"github.com/Veraticus/autofiler/internal/extract"
	"github.com/Veraticus/autofiler/internal/gap"
	"github.com/Veraticus/autofiler/internal/learn"
	"github.com/Veraticus/autofiler/internal/model"
	"github.com/Veraticus/autofiler/internal/resolve"
	"github.com/Veraticus/autofiler/internal/staging"
)

// State is one step of the review workflow for a single file.
type State string

// Workflow states, in allowed transition order.
const (
	StateIdle         State = "IDLE"
	StateClassifying  State = "CLASSIFYING"
	StatePhaseA       State = "PHASE_A"
	StateDiagnosingA  State = "DIAGNOSING_A"
	StateLearningA    State = "LEARNING_A"
	StateExtracting   State = "EXTRACTING"
	StatePhaseB       State = "PHASE_B"
	StateDiagnosingB  State = "DIAGNOSING_B"
	StateLearningB    State = "LEARNING_B"
	StateReextracting State = "RE_EXTRACTING"
	StateManualEntry  State = "MANUAL_ENTRY"
	StateStaging      State = "STAGING"
	StateDone         State = "DONE"
)

// transitions is the allowed successor set per state.
var transitions = map[State][]State{
	StateIdle:         {StateClassifying},
	StateClassifying:  {StatePhaseA, StateIdle},
	StatePhaseA:       {StateDiagnosingA, StateIdle},
	StateDiagnosingA:  {StateLearningA, StateIdle},
	StateLearningA:    {StateExtracting, StateIdle},
	StateExtracting:   {StateStaging, StatePhaseB, StateIdle},
	StatePhaseB:       {StateDiagnosingB, StateIdle},
	StateDiagnosingB:  {StateLearningB, StateIdle},
	StateLearningB:    {StateReextracting, StateIdle},
	StateReextracting: {StateStaging, StateManualEntry, StateIdle},
	StateManualEntry:  {StateStaging, StateIdle},
	StateStaging:      {StateDone, StateIdle},
	StateDone:         {StateIdle, StateClassifying},
}

// Suggestion is the classifier's verdict presented to the reviewer.
type Suggestion struct {
	Scored   map[string]*model.ScoredCandidate
	BestType string
	Best     *model.ScoredCandidate
}

// ClassificationApproval carries the reviewer-approved corrections from
// phase-A diagnosis.
type ClassificationApproval struct {
	Keywords []string
	Patterns []string
	Entities []EntityApproval
}

// EntityApproval registers one approved name phrase as a reference entity.
type EntityApproval struct {
	Name string
	Role string
}

// Session drives one file at a time through the review workflow. It is
// single-threaded per file: callers must not run two operations
// concurrently. A different file may not be selected while one is
// mid-review.
type Session struct {
	store      *config.Store
	queue      *Store
	classifier *classify.Engine
	resolver   *resolve.Resolver
	learner    *learn.Service
	stager     *staging.Stager
	reviewDir  string

	state   State
	fileKey string
	entry   *model.ReviewQueueEntry

	classification *model.ClassificationResult
	suggestion     *Suggestion
	typeName       string
	def            *model.TypeDefinition
	extraction     *model.ExtractionResult
	learningLog    []string
	overrides      map[string]string
}

// NewSession creates an idle review session.
func NewSession(store *config.Store, queue *Store, classifier *classify.Engine, resolver *resolve.Resolver, learner *learn.Service, stager *staging.Stager, reviewDir string) *Session {
	return &Session{
		store:      store,
		queue:      queue,
		classifier: classifier,
		resolver:   resolver,
		learner:    learner,
		stager:     stager,
		reviewDir:  reviewDir,
		state:      StateIdle,
	}
}

// State returns the current workflow state.
func (s *Session) State() State {
	return s.state
}

// FileKey returns the file currently under review, if any.
func (s *Session) FileKey() string {
	return s.fileKey
}

// filePath is the review-area path of the current file.
func (s *Session) filePath() string {
	return filepath.Join(s.reviewDir, s.fileKey)
}

func (s *Session) advance(to State) error {
	for _, allowed := range transitions[s.state] {
		if allowed == to {
			s.state = to
			return nil
		}
	}
	return fmt.Errorf("%s -> %s: %w", s.state, to, common.ErrInvalidTransition)
}

func (s *Session) require(states ...State) error {
	for _, st := range states {
		if s.state == st {
			return nil
		}
	}
	return fmt.Errorf("operation not allowed in %s: %w", s.state, common.ErrInvalidTransition)
}

// Select opens a queued file for review. Selecting a different file while
// one is mid-review is rejected; re-selecting the current file is a no-op.
func (s *Session) Select(ctx context.Context, fileKey string) error {
	if s.state != StateIdle && s.state != StateDone {
		if fileKey == s.fileKey {
			return nil
		}
		return fmt.Errorf("cannot switch to %s while reviewing %s: %w", fileKey, s.fileKey, common.ErrReviewInProgress)
	}

	entry, err := s.queue.Get(ctx, fileKey)
	if err != nil {
		return fmt.Errorf("failed to load queue entry %s: %w", fileKey, err)
	}
	if err := s.queue.MarkInReview(ctx, fileKey); err != nil {
		return err
	}

	s.reset()
	s.fileKey = fileKey
	s.entry = entry
	return s.advance(StateClassifying)
}

// Classify runs signal classification and seeds the suggested type.
func (s *Session) Classify(ctx context.Context) (*Suggestion, error) {
	if err := s.require(StateClassifying); err != nil {
		return nil, err
	}
	_ = ctx

	result, err := s.classifier.Classify(s.filePath())
	if err != nil {
		return nil, err
	}
	rules, err := s.store.ClassificationRules()
	if err != nil {
		return nil, err
	}

	scored := classify.Score(result, rules)
	bestType, best := classify.SelectBest(scored, rules.MinSignalsRequired)

	s.classification = result
	s.suggestion = &Suggestion{Scored: scored, BestType: bestType, Best: best}
	if err := s.advance(StatePhaseA); err != nil {
		return nil, err
	}
	return s.suggestion, nil
}

// Suggestion returns the current classification suggestion, if any.
func (s *Session) Suggestion() *Suggestion {
	return s.suggestion
}

// AnalyzeNewType surveys the document for a type-definition draft. It is
// a side query during phase A and does not advance the workflow.
func (s *Session) AnalyzeNewType() (*gap.NewTypeAnalysis, error) {
	if err := s.require(StatePhaseA); err != nil {
		return nil, err
	}
	return gap.AnalyzeNewType(s.classification.ExtractedText), nil
}

// CreateType registers a new document type during phase A, seeded with
// the current file's extension as a container format when none is given.
// The session stays in phase A so the new type can be confirmed.
func (s *Session) CreateType(name string, def *model.TypeDefinition) error {
	if err := s.require(StatePhaseA); err != nil {
		return err
	}
	if def != nil && len(def.ContainerFormats) == 0 && s.classification.Extension != "" {
		def.ContainerFormats = []string{s.classification.Extension}
	}
	return s.learner.CreateType(name, def)
}

// ConfirmType fixes the document type for the rest of the workflow,
// either accepting the suggestion or overriding it.
func (s *Session) ConfirmType(typeName string) error {
	if err := s.require(StatePhaseA); err != nil {
		return err
	}
	defs, err := s.store.TypeDefinitions()
	if err != nil {
		return err
	}
	def, ok := defs.Types[typeName]
	if !ok {
		return fmt.Errorf("type %q: %w", typeName, common.ErrNotFound)
	}
	s.typeName = typeName
	s.def = def
	return s.advance(StateDiagnosingA)
}

// DiagnoseClassification explains why the confirmed type did not win on
// its own: matched vs missing signals and suggested keywords/patterns.
func (s *Session) DiagnoseClassification() (*gap.ClassificationGap, error) {
	if err := s.require(StateDiagnosingA); err != nil {
		return nil, err
	}
	diagnosis := gap.AnalyzeClassification(s.classification.ExtractedText, s.def)
	if err := s.advance(StateLearningA); err != nil {
		return nil, err
	}
	return diagnosis, nil
}

// ApplyLearning persists the reviewer-approved classification
// corrections. An empty approval simply moves on to extraction.
func (s *Session) ApplyLearning(approval ClassificationApproval) error {
	if err := s.require(StateLearningA); err != nil {
		return err
	}

	if len(approval.Keywords) > 0 {
		added, err := s.learner.AddKeywords(s.typeName, approval.Keywords)
		if err != nil {
			return err
		}
		if added > 0 {
			s.learningLog = append(s.learningLog, fmt.Sprintf("added %d keywords to %s", added, s.typeName))
		}
	}
	if len(approval.Patterns) > 0 {
		added, err := s.learner.AddPatterns(s.typeName, approval.Patterns)
		if err != nil {
			return err
		}
		if added > 0 {
			s.learningLog = append(s.learningLog, fmt.Sprintf("added %d patterns to %s", added, s.typeName))
		}
	}
	for _, ent := range approval.Entities {
		key, err := s.learner.AddEntity(config.EntityReferencePath, ent.Name, ent.Role, s.def.Code)
		if err != nil {
			return err
		}
		s.learningLog = append(s.learningLog, fmt.Sprintf("registered entity %s", key))
	}

	return s.advance(StateExtracting)
}

// Extract runs field extraction and entity resolution against the
// confirmed type. On complete extraction the workflow proceeds straight
// to staging; on missing required fields the file enters phase B with the
// missing-field list as reason.
func (s *Session) Extract(ctx context.Context) (*model.ExtractionResult, error) {
	if err := s.require(StateExtracting); err != nil {
		return nil, err
	}
	result, err := s.runExtraction()
	if err != nil {
		return nil, err
	}
	if result.Complete() {
		return result, s.advance(StateStaging)
	}
	reason := "missing_fields:" + joinSorted(result.MissingFields)
	if err := s.queue.SetPhase(ctx, s.fileKey, model.PhaseB, reason); err != nil {
		return nil, err
	}
	// Keep the in-memory entry in step with the queue so provenance
	// reflects the phase the file actually finished in.
	s.entry.Phase = model.PhaseB
	return result, s.advance(StatePhaseB)
}

// DiagnoseExtraction runs the extraction half of the gap analyzer for
// the still-missing fields.
func (s *Session) DiagnoseExtraction() (map[string]*gap.FieldGap, error) {
	if err := s.require(StatePhaseB); err != nil {
		return nil, err
	}
	if err := s.advance(StateDiagnosingB); err != nil {
		return nil, err
	}
	diagnosis := gap.AnalyzeExtraction(s.classification.ExtractedText, s.def, s.extraction.MissingFields)
	if err := s.advance(StateLearningB); err != nil {
		return nil, err
	}
	return diagnosis, nil
}

// ApplyExtractionLearning persists approved extraction patterns per
// field, then hands over to re-extraction.
func (s *Session) ApplyExtractionLearning(fieldPatterns map[string][]string) error {
	if err := s.require(StateLearningB); err != nil {
		return err
	}
	fields := make([]string, 0, len(fieldPatterns))
	for field := range fieldPatterns {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		patterns := fieldPatterns[field]
		if len(patterns) == 0 {
			continue
		}
		added, err := s.learner.AddExtractionPatterns(s.typeName, field, patterns)
		if err != nil {
			return err
		}
		if added > 0 {
			s.learningLog = append(s.learningLog, fmt.Sprintf("added %d extraction patterns to %s.%s", added, s.typeName, field))
		}
	}
	return s.advance(StateReextracting)
}

// Reextract retries extraction once with the learned patterns. A second
// incomplete result falls through to manual entry.
func (s *Session) Reextract(ctx context.Context) (*model.ExtractionResult, error) {
	if err := s.require(StateReextracting); err != nil {
		return nil, err
	}
	_ = ctx
	// Reload the type so freshly learned patterns apply.
	defs, err := s.store.TypeDefinitions()
	if err != nil {
		return nil, err
	}
	def, ok := defs.Types[s.typeName]
	if !ok {
		return nil, fmt.Errorf("type %q: %w", s.typeName, common.ErrNotFound)
	}
	s.def = def

	result, err := s.runExtraction()
	if err != nil {
		return nil, err
	}
	if result.Complete() {
		return result, s.advance(StateStaging)
	}
	return result, s.advance(StateManualEntry)
}

// ManualEntry fills the remaining fields by hand. Values for
// reference-lookup fields are auto-registered as new entities. All
// missing required fields must be supplied.
func (s *Session) ManualEntry(values map[string]string) error {
	if err := s.require(StateManualEntry); err != nil {
		return err
	}
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		value := values[name]
		if value == "" {
			continue
		}
		spec := s.def.ExtractionFields[name]
		if spec != nil && spec.ReferenceLookup != nil {
			if s.extraction.ResolutionInfo == nil {
				s.extraction.ResolutionInfo = make(map[string]*model.FieldResolution)
			}
			key, err := s.learner.AddEntity(config.EntityReferencePath, value, spec.ReferenceLookup.Role, s.def.Code)
			if err != nil {
				return err
			}
			s.extraction.ResolutionInfo[name] = &model.FieldResolution{
				Method:        model.ResolutionAutoCreated,
				RawValue:      value,
				ResolvedValue: value,
				EntityKey:     key,
				Ratio:         1.0,
			}
		}
		s.extraction.ExtractedFields[name] = value
		s.extraction.ClearMissing(name)
		if s.overrides == nil {
			s.overrides = make(map[string]string)
		}
		s.overrides[name] = value
	}

	if !s.extraction.Complete() {
		return fmt.Errorf("required fields still missing: %v", s.extraction.MissingFields)
	}
	return s.advance(StateStaging)
}

// Stage archives, renames, and documents the file, then resolves its
// queue entry. Review-staged files carry no confidence score.
func (s *Session) Stage(ctx context.Context) (*model.StagingRecord, error) {
	if err := s.require(StateStaging); err != nil {
		return nil, err
	}

	reviewType := "classification"
	if s.entry != nil && s.entry.Phase == model.PhaseB {
		reviewType = "extraction"
	}
	if len(s.overrides) > 0 {
		reviewType = "manual"
	}
	provenance := &model.ReviewProvenance{
		ReviewType:      reviewType,
		LearningApplied: s.learningLog,
		ManualOverrides: s.overrides,
	}
	if s.entry != nil {
		provenance.OriginalReason = s.entry.Reason
	}

	record, err := s.stager.Stage(staging.Request{
		Path:            s.filePath(),
		TypeName:        s.typeName,
		Def:             s.def,
		ExtractedFields: s.extraction.ExtractedFields,
		ResolutionInfo:  s.extraction.ResolutionInfo,
		Confidence:      nil,
		ReviewInfo:      provenance,
		OCRText:         s.classification.ExtractedText,
	})
	if err != nil {
		return nil, err
	}
	if err := s.queue.MarkResolved(ctx, s.fileKey, s.typeName); err != nil {
		return nil, err
	}
	return record, s.advance(StateDone)
}

// NextFile returns the session to idle, ready for the next selection.
func (s *Session) NextFile() error {
	if err := s.require(StateDone); err != nil {
		return err
	}
	s.reset()
	return nil
}

// Skip abandons the current review and returns the file to pending. The
// only cancellation the workflow offers.
func (s *Session) Skip(ctx context.Context) error {
	if s.state == StateIdle {
		return nil
	}
	if s.fileKey != "" && s.state != StateDone {
		if err := s.queue.MarkPending(ctx, s.fileKey); err != nil {
			return err
		}
	}
	s.reset()
	return nil
}

func (s *Session) runExtraction() (*model.ExtractionResult, error) {
	text := s.classification.ExtractedText
	result := extract.Fields(text, s.def)
	if err := s.resolver.ResolveFields(result, text, s.def); err != nil {
		return nil, err
	}
	if _, err := s.resolver.CrossReference(result, s.def); err != nil {
		return nil, err
	}
	s.extraction = result
	return result, nil
}

func (s *Session) reset() {
	s.state = StateIdle
	s.fileKey = ""
	s.entry = nil
	s.classification = nil
	s.suggestion = nil
	s.typeName = ""
	s.def = nil
	s.extraction = nil
	s.learningLog = nil
	s.overrides = nil
}

func joinSorted(fields []string) string {
	sorted := append([]string(nil), fields...)
	sort.Strings(sorted)
	out := ""
	for i, f := range sorted {
		if i > 0 {
			out += ","
		}
		out += f
	}
	return out
}
