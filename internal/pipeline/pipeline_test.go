package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/autofiler/internal/classify"
	"github.com/Veraticus/autofiler/internal/common"
	"github.com/Veraticus/autofiler/internal/config"
	"github.com/Veraticus/autofiler/internal/guard"
	"github.com/Veraticus/autofiler/internal/model"
	"github.com/Veraticus/autofiler/internal/resolve"
	"github.com/Veraticus/autofiler/internal/review"
	"github.com/Veraticus/autofiler/internal/route"
	"github.com/Veraticus/autofiler/internal/staging"
	"github.com/Veraticus/autofiler/internal/textextract"
)

type pipelineFixture struct {
	pipeline  *Pipeline
	queue     *review.Store
	inboxDir  string
	reviewDir string
}

// newPipelineFixture wires a full pipeline against temp directories with
// one invoice type: a .txt format signal (0.10) plus an "invoice" keyword
// signal (0.50) scores 0.6.
func newPipelineFixture(t *testing.T, threshold float64) *pipelineFixture {
	t.Helper()
	root := t.TempDir()
	inboxDir := filepath.Join(root, "inbox")
	reviewDir := filepath.Join(root, "review")
	require.NoError(t, os.MkdirAll(inboxDir, 0o750))

	store := config.NewStore(filepath.Join(root, "config"))
	defs := &model.TypeDefinitions{
		Types: map[string]*model.TypeDefinition{
			"invoice": {
				Code:             "100",
				ContainerFormats: []string{".txt"},
				ContentKeywords:  []string{"invoice"},
				ExtractionFields: map[string]*model.FieldSpec{
					"invoice_number": {
						Patterns: []string{`Invoice\s*#\s*(\S+)`},
						Required: true,
					},
				},
			},
		},
	}
	require.NoError(t, store.SaveTypeDefinitions(defs))

	queue, err := review.NewStore(filepath.Join(root, "queue.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = queue.Close() })

	pipeline := New(
		store,
		classify.NewEngine(store, textextract.NewService()),
		route.NewRouter(reviewDir, threshold),
		resolve.NewResolver(store, 0.80),
		staging.NewStager(filepath.Join(root, "staging"), filepath.Join(root, "vault")),
		queue,
		guard.Check,
	)
	return &pipelineFixture{
		pipeline:  pipeline,
		queue:     queue,
		inboxDir:  inboxDir,
		reviewDir: reviewDir,
	}
}

func (f *pipelineFixture) addFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(f.inboxDir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestPipeline_AutoFilesAboveThreshold(t *testing.T) {
	f := newPipelineFixture(t, 0.55)
	path := f.addFile(t, "acme.txt", "invoice\nInvoice # INV-42\n")

	outcome, err := f.pipeline.Process(context.Background(), path)
	require.NoError(t, err)

	require.NotNil(t, outcome.Decision)
	assert.Equal(t, model.DecisionAutoFile, outcome.Decision.Decision)
	assert.Equal(t, "invoice", outcome.Decision.TypeName)
	require.NotNil(t, outcome.Decision.Score)
	assert.InDelta(t, 0.60, *outcome.Decision.Score, 0.0001)

	require.NotNil(t, outcome.Staged)
	assert.FileExists(t, outcome.Staged.StagedPath)
	assert.FileExists(t, outcome.Staged.VaultPath)
	assert.FileExists(t, outcome.Staged.SidecarPath)
	assert.NoFileExists(t, path)

	pending, err := f.queue.Pending(context.Background())
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestPipeline_RoutesBelowThresholdToReview(t *testing.T) {
	f := newPipelineFixture(t, 0.70)
	path := f.addFile(t, "acme.txt", "invoice\nInvoice # INV-42\n")

	outcome, err := f.pipeline.Process(context.Background(), path)
	require.NoError(t, err)

	require.NotNil(t, outcome.Decision)
	assert.Equal(t, model.DecisionReview, outcome.Decision.Decision)
	assert.Equal(t, "score_0.6_below_threshold_0.7", outcome.Decision.Reason)
	assert.Nil(t, outcome.Staged)
	assert.NoFileExists(t, path)
	assert.FileExists(t, filepath.Join(f.reviewDir, "acme.txt"))

	entry, err := f.queue.Get(context.Background(), "acme.txt")
	require.NoError(t, err)
	assert.Equal(t, model.ReviewPending, entry.Status)
	assert.Equal(t, "score_0.6_below_threshold_0.7", entry.Reason)
	assert.Equal(t, model.PhaseA, entry.Phase)
}

func TestPipeline_RoutesUnclassifiableToReview(t *testing.T) {
	f := newPipelineFixture(t, 0.55)
	path := f.addFile(t, "mystery.png", "not really an image\n")

	outcome, err := f.pipeline.Process(context.Background(), path)
	require.NoError(t, err)

	require.NotNil(t, outcome.Decision)
	assert.Equal(t, model.DecisionReview, outcome.Decision.Decision)
	assert.Equal(t, "no_candidate", outcome.Decision.Reason)
	assert.FileExists(t, filepath.Join(f.reviewDir, "mystery.png"))

	entry, err := f.queue.Get(context.Background(), "mystery.png")
	require.NoError(t, err)
	assert.Equal(t, "no_candidate", entry.Reason)
}

func TestPipeline_IncompleteExtractionDivertsToReview(t *testing.T) {
	f := newPipelineFixture(t, 0.55)
	// Classifies cleanly but carries no invoice number to extract.
	path := f.addFile(t, "bare.txt", "invoice with no number anywhere\n")

	outcome, err := f.pipeline.Process(context.Background(), path)
	require.NoError(t, err)

	assert.Nil(t, outcome.Staged)
	require.NotNil(t, outcome.Decision)
	assert.Equal(t, model.DecisionReview, outcome.Decision.Decision)
	assert.Equal(t, "missing_fields:invoice_number", outcome.Decision.Reason)
	assert.FileExists(t, filepath.Join(f.reviewDir, "bare.txt"))

	entry, err := f.queue.Get(context.Background(), "bare.txt")
	require.NoError(t, err)
	assert.Equal(t, model.PhaseB, entry.Phase)
	assert.Equal(t, "missing_fields:invoice_number", entry.Reason)
}

func TestPipeline_GuardRejectionIsTerminalNotAnError(t *testing.T) {
	f := newPipelineFixture(t, 0.55)
	path := f.addFile(t, ".hidden.txt", "invoice\n")

	outcome, err := f.pipeline.Process(context.Background(), path)
	require.NoError(t, err)

	require.NotNil(t, outcome.Guarded)
	assert.Equal(t, common.ReasonTempOrHiddenFile, outcome.Guarded.Reason)
	assert.Nil(t, outcome.Decision)
	assert.Nil(t, outcome.Staged)
	// Guard rejections leave the file where it is.
	assert.FileExists(t, path)
}
