package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/Veraticus/autofiler/internal/gap"
	"github.com/Veraticus/autofiler/internal/model"
	"github.com/Veraticus/autofiler/internal/review"
)

// Console is the interactive review loop: it walks the pending queue and
// drives one file at a time through the review workflow.
type Console struct {
	reader  *bufio.Reader
	writer  io.Writer
	session *review.Session
	queue   *review.Store
}

// NewConsole creates a review console over the given streams.
func NewConsole(reader io.Reader, writer io.Writer, session *review.Session, queue *review.Store) *Console {
	if reader == nil {
		reader = os.Stdin
	}
	if writer == nil {
		writer = os.Stdout
	}
	return &Console{
		reader:  bufio.NewReader(reader),
		writer:  writer,
		session: session,
		queue:   queue,
	}
}

// reviewVerdict is how one file's review ended.
type reviewVerdict int

const (
	verdictStaged reviewVerdict = iota
	verdictSkipped
	verdictQuit
)

// Run processes pending queue entries until the queue is empty, the user
// quits, or the context is canceled. Skipped files stay pending but are
// not re-presented within this run.
func (c *Console) Run(ctx context.Context, reviewDir string) error {
	skipped := make(map[string]bool)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		pending, err := c.queue.Scan(ctx, reviewDir)
		if err != nil {
			return err
		}

		var entry *model.ReviewQueueEntry
		for i := range pending {
			if !skipped[pending[i].FileKey] {
				entry = &pending[i]
				break
			}
		}
		if entry == nil {
			if len(pending) > 0 {
				c.println(FormatInfo(fmt.Sprintf("%d skipped files remain pending.", len(pending))))
			} else {
				c.println(FormatSuccess("Review queue is empty."))
			}
			return nil
		}

		c.println(FormatTitle(fmt.Sprintf("Reviewing %s (%d pending)", entry.FileKey, len(pending))))
		if entry.Reason != "" {
			c.println(SubtleStyle.Render("queued because: " + entry.Reason))
		}

		verdict, err := c.reviewOne(ctx, entry.FileKey)
		if err != nil {
			return err
		}
		switch verdict {
		case verdictQuit:
			return nil
		case verdictSkipped:
			skipped[entry.FileKey] = true
		case verdictStaged:
		}
	}
}

// reviewOne runs one file through the workflow.
func (c *Console) reviewOne(ctx context.Context, fileKey string) (reviewVerdict, error) {
	if err := c.session.Select(ctx, fileKey); err != nil {
		return verdictQuit, err
	}

	suggestion, err := c.session.Classify(ctx)
	if err != nil {
		return verdictQuit, err
	}
	c.println(RenderBox("Classification", c.formatSuggestion(suggestion)))

	typeName, verdict, err := c.confirmType(ctx, suggestion)
	if err != nil || verdict != verdictStaged {
		return verdict, err
	}
	if err := c.session.ConfirmType(typeName); err != nil {
		return verdictQuit, err
	}

	diagnosis, err := c.session.DiagnoseClassification()
	if err != nil {
		return verdictQuit, err
	}
	approval, err := c.approveClassificationLearning(ctx, diagnosis)
	if err != nil {
		return verdictQuit, err
	}
	if err := c.session.ApplyLearning(approval); err != nil {
		return verdictQuit, err
	}

	result, err := c.session.Extract(ctx)
	if err != nil {
		return verdictQuit, err
	}
	if !result.Complete() {
		result, err = c.phaseB(ctx, result)
		if err != nil {
			return verdictQuit, err
		}
	}
	c.println(RenderBox("Extracted Fields", c.formatFields(result)))

	record, err := c.session.Stage(ctx)
	if err != nil {
		return verdictQuit, err
	}
	c.println(FormatSuccess("Staged as " + record.StagingFilename))
	c.println(SubtleStyle.Render("vault copy: " + record.VaultPath))

	return verdictStaged, c.session.NextFile()
}

// confirmType presents the suggestion and reads the reviewer's verdict.
// A verdictStaged return means the named type was confirmed and the
// review continues.
func (c *Console) confirmType(ctx context.Context, suggestion *review.Suggestion) (string, reviewVerdict, error) {
	if suggestion.BestType != "" {
		c.printf("  [a] Accept suggested type: %s\n", SuccessStyle.Render(suggestion.BestType))
	}
	c.println("  [o] Enter a different type")
	c.println("  [n] Define a new type from this document")
	c.println("  [s] Skip this file")
	c.println("  [q] Quit review")

	valid := []string{"o", "n", "s", "q"}
	if suggestion.BestType != "" {
		valid = append([]string{"a"}, valid...)
	}

	for {
		choice, err := c.promptChoice(ctx, "Type", valid)
		if err != nil {
			return "", verdictQuit, err
		}
		switch choice {
		case "a":
			return suggestion.BestType, verdictStaged, nil
		case "o":
			name, err := c.promptLine(ctx, "Type name")
			if err != nil {
				return "", verdictQuit, err
			}
			if name != "" {
				return name, verdictStaged, nil
			}
		case "n":
			name, created, err := c.defineNewType(ctx)
			if err != nil {
				c.println(FormatError(err.Error()))
				continue
			}
			if created {
				return name, verdictStaged, nil
			}
		case "s":
			return "", verdictSkipped, c.session.Skip(ctx)
		case "q":
			if err := c.session.Skip(ctx); err != nil {
				return "", verdictQuit, err
			}
			return "", verdictQuit, nil
		}
	}
}

// defineNewType runs new-type analysis on the current document and walks
// the reviewer through naming the type and approving its suggested
// signals and fields. Returns created=false when the reviewer backs out.
func (c *Console) defineNewType(ctx context.Context) (string, bool, error) {
	analysis, err := c.session.AnalyzeNewType()
	if err != nil {
		return "", false, err
	}
	c.println(RenderBox("New Type Analysis", c.formatNewTypeAnalysis(analysis)))

	name, err := c.promptLine(ctx, "New type name (empty to cancel)")
	if err != nil {
		return "", false, err
	}
	if name == "" {
		return "", false, nil
	}
	code, err := c.promptLine(ctx, "3-digit type code")
	if err != nil {
		return "", false, err
	}

	keywords, err := c.pickStrings(ctx, "Keywords to adopt", analysis.SuggestedKeywords)
	if err != nil {
		return "", false, err
	}
	patterns, err := c.pickStrings(ctx, "Patterns to adopt", analysis.SuggestedPatterns)
	if err != nil {
		return "", false, err
	}

	fieldLabels := make([]string, 0, len(analysis.DetectedFields))
	for _, fc := range analysis.DetectedFields {
		fieldLabels = append(fieldLabels, fmt.Sprintf("%s (%s)  %q", fc.FieldName, fc.FieldType, fc.Value))
	}
	picked, err := c.pickIndices(ctx, "Extraction fields to adopt", fieldLabels)
	if err != nil {
		return "", false, err
	}

	def := &model.TypeDefinition{
		Code:            code,
		ContentKeywords: keywords,
		ContentPatterns: patterns,
	}
	for _, idx := range picked {
		fc := analysis.DetectedFields[idx]
		if def.ExtractionFields == nil {
			def.ExtractionFields = make(map[string]*model.FieldSpec)
		}
		def.ExtractionFields[fc.FieldName] = &model.FieldSpec{
			Patterns:  []string{fc.SuggestedPattern},
			FieldType: fc.FieldType,
		}
	}

	if err := c.session.CreateType(name, def); err != nil {
		return "", false, err
	}
	c.println(FormatSuccess(fmt.Sprintf("Created type %s (code %s)", name, def.Code)))
	return name, true, nil
}

func (c *Console) formatNewTypeAnalysis(a *gap.NewTypeAnalysis) string {
	var sb strings.Builder
	sb.WriteString(BoldStyle.Render("suggested keywords: "))
	sb.WriteString(strings.Join(a.SuggestedKeywords, ", ") + "\n")
	sb.WriteString(BoldStyle.Render("suggested patterns: "))
	sb.WriteString(strings.Join(a.SuggestedPatterns, ", ") + "\n")
	sb.WriteString(BoldStyle.Render("detected fields:") + "\n")
	for _, fc := range a.DetectedFields {
		sb.WriteString(fmt.Sprintf("  %-20s %-10s %q\n", fc.FieldName, fc.FieldType, fc.Value))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// approveClassificationLearning shows the gap diagnosis and collects
// which suggested keywords/patterns the reviewer wants persisted.
func (c *Console) approveClassificationLearning(ctx context.Context, diagnosis *gap.ClassificationGap) (review.ClassificationApproval, error) {
	approval := review.ClassificationApproval{}

	if len(diagnosis.MissedKeywords) > 0 {
		c.println(FormatWarning(fmt.Sprintf("%d configured keywords did not match", len(diagnosis.MissedKeywords))))
	}

	keywords, err := c.pickStrings(ctx, "Suggested keywords", diagnosis.SuggestedKeywords)
	if err != nil {
		return approval, err
	}
	approval.Keywords = keywords

	patterns, err := c.pickStrings(ctx, "Suggested patterns", diagnosis.SuggestedPatterns)
	if err != nil {
		return approval, err
	}
	approval.Patterns = patterns

	return approval, nil
}

// phaseB walks the extraction-repair cycle: diagnosis, pattern learning,
// one retry, then manual entry for whatever is still missing.
func (c *Console) phaseB(ctx context.Context, result *model.ExtractionResult) (*model.ExtractionResult, error) {
	c.println(FormatWarning("Missing required fields: " + strings.Join(result.MissingFields, ", ")))

	gaps, err := c.session.DiagnoseExtraction()
	if err != nil {
		return nil, err
	}

	fieldPatterns := make(map[string][]string)
	fields := make([]string, 0, len(gaps))
	for field := range gaps {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		fg := gaps[field]
		suggestions := make([]string, 0, len(fg.CandidateValues))
		for _, cand := range fg.CandidateValues {
			suggestions = append(suggestions, fmt.Sprintf("%s  (matches %q)", cand.SuggestedPattern, cand.Snippet))
		}
		picked, err := c.pickIndices(ctx, "Patterns for "+field, suggestions)
		if err != nil {
			return nil, err
		}
		for _, idx := range picked {
			fieldPatterns[field] = append(fieldPatterns[field], fg.CandidateValues[idx].SuggestedPattern)
		}
	}

	if err := c.session.ApplyExtractionLearning(fieldPatterns); err != nil {
		return nil, err
	}
	retried, err := c.session.Reextract(ctx)
	if err != nil {
		return nil, err
	}
	if retried.Complete() {
		return retried, nil
	}

	c.println(FormatWarning("Still missing after retry: " + strings.Join(retried.MissingFields, ", ")))
	values := make(map[string]string)
	for _, field := range retried.MissingFields {
		value, err := c.promptLine(ctx, "Value for "+field)
		if err != nil {
			return nil, err
		}
		values[field] = value
	}
	if err := c.session.ManualEntry(values); err != nil {
		return nil, err
	}
	return retried, nil
}

// pickStrings numbers the options and returns the ones the reviewer
// selected.
func (c *Console) pickStrings(ctx context.Context, title string, options []string) ([]string, error) {
	picked, err := c.pickIndices(ctx, title, options)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(picked))
	for _, idx := range picked {
		out = append(out, options[idx])
	}
	return out, nil
}

// pickIndices displays numbered options and reads a selection: "all",
// empty for none, or comma-separated numbers.
func (c *Console) pickIndices(ctx context.Context, title string, options []string) ([]int, error) {
	if len(options) == 0 {
		return nil, nil
	}
	c.println(BoldStyle.Render(title + ":"))
	for i, opt := range options {
		c.printf("  [%d] %s\n", i+1, opt)
	}

	line, err := c.promptLine(ctx, "Approve (numbers, 'all', or empty)")
	if err != nil {
		return nil, err
	}
	line = strings.ToLower(strings.TrimSpace(line))
	if line == "" {
		return nil, nil
	}
	if line == "all" || line == "a" {
		all := make([]int, len(options))
		for i := range options {
			all[i] = i
		}
		return all, nil
	}

	var picked []int
	for _, part := range strings.Split(line, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 1 || n > len(options) {
			continue
		}
		picked = append(picked, n-1)
	}
	return picked, nil
}

// promptChoice reads a single choice from the valid set, reprompting on
// anything else.
func (c *Console) promptChoice(ctx context.Context, prompt string, valid []string) (string, error) {
	for {
		line, err := c.promptLine(ctx, fmt.Sprintf("%s [%s]", prompt, strings.Join(valid, "/")))
		if err != nil {
			return "", err
		}
		choice := strings.ToLower(strings.TrimSpace(line))
		for _, v := range valid {
			if choice == v {
				return choice, nil
			}
		}
		c.println(ErrorStyle.Render("Please choose one of: " + strings.Join(valid, ", ")))
	}
}

// promptLine reads one line, honoring context cancellation.
func (c *Console) promptLine(ctx context.Context, prompt string) (string, error) {
	if _, err := fmt.Fprint(c.writer, FormatPrompt(prompt)); err != nil {
		return "", fmt.Errorf("failed to write prompt: %w", err)
	}

	type result struct {
		err  error
		line string
	}
	resultCh := make(chan result, 1)
	go func() {
		line, err := c.reader.ReadString('\n')
		resultCh <- result{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-resultCh:
		if res.err != nil {
			return "", fmt.Errorf("failed to read input: %w", res.err)
		}
		return strings.TrimSpace(res.line), nil
	}
}

func (c *Console) formatSuggestion(s *review.Suggestion) string {
	if len(s.Scored) == 0 {
		return SubtleStyle.Render("No candidate types matched.")
	}

	names := make([]string, 0, len(s.Scored))
	for name := range s.Scored {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := s.Scored[names[i]], s.Scored[names[j]]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return names[i] < names[j]
	})

	var sb strings.Builder
	for _, name := range names {
		cand := s.Scored[name]
		signals := make([]string, 0, len(cand.MatchedSignals))
		for _, sig := range cand.MatchedSignals {
			signals = append(signals, string(sig))
		}
		line := fmt.Sprintf("%-20s %.4f  %s", name, cand.Score, strings.Join(signals, ", "))
		if name == s.BestType {
			line = SuccessStyle.Render(line + "  " + SuccessIcon)
		}
		sb.WriteString(line + "\n")
	}
	if s.BestType == "" {
		sb.WriteString(SubtleStyle.Render("no type met the minimum signal requirement\n"))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (c *Console) formatFields(result *model.ExtractionResult) string {
	names := make([]string, 0, len(result.ExtractedFields))
	for name := range result.ExtractedFields {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	for _, name := range names {
		sb.WriteString(fmt.Sprintf("%-20s %s\n", name, result.ExtractedFields[name]))
		if res, ok := result.ResolutionInfo[name]; ok && res != nil {
			sb.WriteString(SubtleStyle.Render(fmt.Sprintf("%-20s via %s (%.2f)\n", "", res.Method, res.Ratio)))
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (c *Console) println(args ...any) {
	_, _ = fmt.Fprintln(c.writer, args...)
}

func (c *Console) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(c.writer, format, args...)
}
