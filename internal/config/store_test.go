package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/autofiler/internal/model"
)

func seedDefs() *model.TypeDefinitions {
	return &model.TypeDefinitions{
		Types: map[string]*model.TypeDefinition{
			"invoice": {
				Code:             "100",
				ContainerFormats: []string{".pdf"},
				ContentKeywords:  []string{"invoice"},
				ExtractionFields: map[string]*model.FieldSpec{
					"total": {Patterns: []string{`Total:\s*(\S+)`}},
				},
			},
		},
	}
}

func TestStore_TypeDefinitionsRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir())
	require.NoError(t, store.SaveTypeDefinitions(seedDefs()))

	defs, err := store.TypeDefinitions()
	require.NoError(t, err)
	def := defs.Types["invoice"]
	require.NotNil(t, def)
	assert.Equal(t, "100", def.Code)
	// Defaults applied on load.
	assert.Equal(t, 1, def.KeywordThreshold)
	assert.Equal(t, model.FieldTypeText, def.ExtractionFields["total"].FieldType)
}

func TestStore_SaveInvalidatesCache(t *testing.T) {
	store := NewStore(t.TempDir())
	require.NoError(t, store.SaveTypeDefinitions(seedDefs()))

	// Prime the cache.
	_, err := store.TypeDefinitions()
	require.NoError(t, err)

	// Mutate and save; the next read must observe the change, not the
	// cached copy.
	err = store.Mutate(func() error {
		defs, err := store.TypeDefinitions()
		if err != nil {
			return err
		}
		defs.Types["invoice"].ContentKeywords = append(defs.Types["invoice"].ContentKeywords, "amount due")
		return store.SaveTypeDefinitions(defs)
	})
	require.NoError(t, err)

	defs, err := store.TypeDefinitions()
	require.NoError(t, err)
	assert.Contains(t, defs.Types["invoice"].ContentKeywords, "amount due")
}

func TestStore_InvalidateRereadsDisk(t *testing.T) {
	root := t.TempDir()
	store := NewStore(root)
	require.NoError(t, store.Save("doc.json", map[string]string{"k": "v1"}))

	// Overwrite the file behind the store's back.
	require.NoError(t, os.WriteFile(filepath.Join(root, "doc.json"), []byte(`{"k":"v2"}`), 0o600))

	// Cached copy still wins until invalidated.
	var out map[string]string
	require.NoError(t, store.Load("doc.json", &out))
	assert.Equal(t, "v1", out["k"])

	store.Invalidate("doc.json")
	require.NoError(t, store.Load("doc.json", &out))
	assert.Equal(t, "v2", out["k"])
}

func TestStore_DuplicateCodesRejected(t *testing.T) {
	store := NewStore(t.TempDir())
	defs := seedDefs()
	defs.Types["receipt"] = &model.TypeDefinition{Code: "100"}

	err := store.SaveTypeDefinitions(defs)
	require.Error(t, err)
}

func TestStore_ReservedCodeRejected(t *testing.T) {
	store := NewStore(t.TempDir())
	defs := seedDefs()
	defs.Types["mystery"] = &model.TypeDefinition{Code: "000"}

	err := store.SaveTypeDefinitions(defs)
	require.Error(t, err)
}

func TestStore_MissingOptionalDocuments(t *testing.T) {
	store := NewStore(t.TempDir())

	rules, err := store.ClassificationRules()
	require.NoError(t, err)
	assert.Equal(t, 1, rules.MinSignalsRequired)
	assert.Equal(t, 0.50, rules.SignalWeights[model.SignalKeyword])

	mappings, err := store.FolderMappings()
	require.NoError(t, err)
	assert.Empty(t, mappings)

	entities, err := store.Reference(EntityReferencePath)
	require.NoError(t, err)
	assert.Empty(t, entities)

	nc, err := store.NamingConventions()
	require.NoError(t, err)
	assert.Equal(t, "_", nc.Separator)
}

func TestStore_FieldOrderSurvivesSave(t *testing.T) {
	store := NewStore(t.TempDir())
	defs := seedDefs()
	defs.Types["invoice"].ExtractionFields["vendor_name"] = &model.FieldSpec{Patterns: []string{`From:\s*(.+)`}}
	defs.Types["invoice"].FieldOrder = []string{"vendor_name", "total"}
	require.NoError(t, store.SaveTypeDefinitions(defs))

	loaded, err := store.TypeDefinitions()
	require.NoError(t, err)
	assert.Equal(t, []string{"vendor_name", "total"}, loaded.Types["invoice"].FieldNames())
}
