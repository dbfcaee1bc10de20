package classify

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/autofiler/internal/config"
	"github.com/Veraticus/autofiler/internal/model"
	"github.com/Veraticus/autofiler/internal/textextract"
)

func newTestStore(t *testing.T) *config.Store {
	t.Helper()
	store := config.NewStore(t.TempDir())

	defs := &model.TypeDefinitions{
		Types: map[string]*model.TypeDefinition{
			"invoice": {
				Code:             "100",
				ContainerFormats: []string{".txt", ".pdf"},
				ContentKeywords:  []string{"invoice", "amount due"},
				KeywordThreshold: 2,
				ContentPatterns:  []string{`INV-\d+`},
			},
			"receipt": {
				Code:             "200",
				ContainerFormats: []string{".jpg"},
				ContentKeywords:  []string{"receipt"},
				KeywordThreshold: 1,
			},
		},
	}
	require.NoError(t, store.SaveTypeDefinitions(defs))
	return store
}

func writeTestFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestEngine_Classify(t *testing.T) {
	store := newTestStore(t)
	engine := NewEngine(store, textextract.NewService())

	t.Run("format keyword and pattern signals", func(t *testing.T) {
		path := writeTestFile(t, "inv.txt", "Invoice INV-4411\nAmount Due: $120.00\n")

		result, err := engine.Classify(path)
		require.NoError(t, err)

		cand, ok := result.Candidates["invoice"]
		require.True(t, ok)
		assert.ElementsMatch(t, []model.SignalKind{
			model.SignalFormat,
			model.SignalKeyword,
			model.SignalPattern,
		}, cand.MatchedSignals)
		assert.Equal(t, 2, result.KeywordMatches["invoice"])
		assert.Equal(t, 1, result.PatternMatches["invoice"])
	})

	t.Run("keyword threshold gates the keyword signal", func(t *testing.T) {
		// Only one of the two required keywords appears.
		path := writeTestFile(t, "partial.txt", "This invoice has no total line.\n")

		result, err := engine.Classify(path)
		require.NoError(t, err)

		cand, ok := result.Candidates["invoice"]
		require.True(t, ok)
		assert.NotContains(t, cand.MatchedSignals, model.SignalKeyword)
		assert.Contains(t, cand.MatchedSignals, model.SignalFormat)
	})

	t.Run("no signals means no candidate", func(t *testing.T) {
		path := writeTestFile(t, "photo.bin", "unrelated bytes")

		result, err := engine.Classify(path)
		require.NoError(t, err)
		assert.NotContains(t, result.Candidates, "receipt")
	})

	t.Run("reference signal needs another signal first", func(t *testing.T) {
		require.NoError(t, store.Save(config.FolderMappingsPath, map[string]string{"receipt": "Receipts"}))
		require.NoError(t, store.Save(config.NamingConventionsPath, &config.NamingConventions{
			Patterns: map[string]string{"receipt": "{code}_{date}"},
		}))

		// No format/keyword/pattern hit for receipt: reference alone
		// must not create a candidate.
		path := writeTestFile(t, "nothing.bin", "plain bytes")
		result, err := engine.Classify(path)
		require.NoError(t, err)
		assert.NotContains(t, result.Candidates, "receipt")

		// With a keyword hit the reference signal is added on top.
		path = writeTestFile(t, "r.txt", "thanks for shopping, here is your receipt")
		result, err = engine.Classify(path)
		require.NoError(t, err)
		cand, ok := result.Candidates["receipt"]
		require.True(t, ok)
		assert.Contains(t, cand.MatchedSignals, model.SignalReference)
	})
}
