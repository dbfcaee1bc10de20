package staging

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/autofiler/internal/model"
)

func TestStager_Stage(t *testing.T) {
	root := t.TempDir()
	stagingDir := filepath.Join(root, "staging")
	vaultDir := filepath.Join(root, "vault")

	content := []byte("Invoice # INV-42\nTotal: 120.50\n")
	source := filepath.Join(root, "incoming.txt")
	require.NoError(t, os.WriteFile(source, content, 0o600))

	score := 0.60
	stager := NewStager(stagingDir, vaultDir)
	record, err := stager.Stage(Request{
		Path:     source,
		TypeName: "invoice",
		Def:      invoiceDef(),
		ExtractedFields: map[string]string{
			"vendor_name":    "Acme Corp",
			"invoice_date":   "3/15/2024",
			"invoice_number": "INV-42",
			"total":          "120.50",
		},
		Confidence: &score,
		OCRText:    string(content),
	})
	require.NoError(t, err)

	// Original is moved, not left behind.
	_, statErr := os.Stat(source)
	assert.True(t, os.IsNotExist(statErr))

	// Staged copy carries the coded name.
	assert.Equal(t, "100_Acme Corp_000_20240315_INV-42_120.50.txt", record.StagingFilename)
	staged, err := os.ReadFile(record.StagedPath)
	require.NoError(t, err)
	assert.Equal(t, content, staged)

	// Vault copy is byte-identical under {code}{placeholder}{name}.
	assert.Equal(t, filepath.Join(vaultDir, "1000incoming.txt"), record.VaultPath)
	vaulted, err := os.ReadFile(record.VaultPath)
	require.NoError(t, err)
	assert.Equal(t, content, vaulted)

	// Sidecar hash equals the SHA-256 of the original bytes.
	raw, err := os.ReadFile(record.SidecarPath)
	require.NoError(t, err)
	var sidecar model.Sidecar
	require.NoError(t, json.Unmarshal(raw, &sidecar))

	sum := sha256.Sum256(content)
	assert.Equal(t, hex.EncodeToString(sum[:]), sidecar.SourceHash)
	assert.Equal(t, model.SidecarSchemaVersion, sidecar.SchemaVersion)
	assert.Equal(t, "invoice", sidecar.DocumentType)
	assert.Equal(t, "100", sidecar.DocTypeCode)
	assert.Equal(t, "100_Acme Corp_000_20240315_INV-42_120.50", sidecar.StagingFilename)
	require.NotNil(t, sidecar.ConfidenceScore)
	assert.Equal(t, 0.60, *sidecar.ConfidenceScore)
}

func TestStager_SidecarFailureRollsBackMove(t *testing.T) {
	root := t.TempDir()
	stagingDir := filepath.Join(root, "staging")

	source := filepath.Join(root, "doc.txt")
	require.NoError(t, os.WriteFile(source, []byte("x"), 0o600))

	// Pre-create the sidecar path as a directory so the write fails
	// after the staged move already happened.
	def := invoiceDef()
	stem, _ := StagingStem(def, nil, source)
	require.NoError(t, os.MkdirAll(filepath.Join(stagingDir, stem+".json"), 0o750))

	stager := NewStager(stagingDir, filepath.Join(root, "vault"))
	_, err := stager.Stage(Request{Path: source, TypeName: "invoice", Def: def})
	require.Error(t, err)

	// The source is back where it started; no staged file without a
	// sidecar beside it.
	_, statErr := os.Stat(source)
	assert.NoError(t, statErr)
	_, statErr = os.Stat(filepath.Join(stagingDir, stem+".txt"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestStager_StemCollisionNeverOverwrites(t *testing.T) {
	root := t.TempDir()
	stagingDir := filepath.Join(root, "staging")
	stager := NewStager(stagingDir, filepath.Join(root, "vault"))
	stager.now = func() time.Time {
		return time.Date(2026, 8, 31, 10, 30, 0, 0, time.UTC)
	}

	// No extracted fields: every document resolves to the all-placeholder
	// stem, so each stage after the first collides.
	stage := func(name, content string) *model.StagingRecord {
		source := filepath.Join(root, name)
		require.NoError(t, os.WriteFile(source, []byte(content), 0o600))
		record, err := stager.Stage(Request{Path: source, TypeName: "invoice", Def: invoiceDef()})
		require.NoError(t, err)
		return record
	}

	now := time.Now()
	mtime := now.Format("20060102")
	first := stage("a.txt", "first document")
	second := stage("b.txt", "second document")
	third := stage("c.txt", "third document")

	assert.Equal(t, "100_000_000_"+mtime+"_000_000.txt", first.StagingFilename)
	assert.Equal(t, "100_000_000_"+mtime+"_000_000_20260831_103000.txt", second.StagingFilename)
	assert.Equal(t, "100_000_000_"+mtime+"_000_000_20260831_103000_1.txt", third.StagingFilename)

	data, err := os.ReadFile(first.StagedPath)
	require.NoError(t, err)
	assert.Equal(t, []byte("first document"), data)
	data, err = os.ReadFile(second.StagedPath)
	require.NoError(t, err)
	assert.Equal(t, []byte("second document"), data)

	// Each staged file keeps its own sidecar.
	assert.NotEqual(t, first.SidecarPath, second.SidecarPath)
	assert.NotEqual(t, second.SidecarPath, third.SidecarPath)
	_, statErr := os.Stat(first.SidecarPath)
	assert.NoError(t, statErr)
}

func TestStager_DestinationSubfolder(t *testing.T) {
	root := t.TempDir()
	stagingDir := filepath.Join(root, "staging")

	source := filepath.Join(root, "invoice.txt")
	require.NoError(t, os.WriteFile(source, []byte("x"), 0o600))

	def := invoiceDef()
	def.DestinationSubfolder = "Invoices/{vendor_name}"

	stager := NewStager(stagingDir, filepath.Join(root, "vault"))
	record, err := stager.Stage(Request{
		Path:            source,
		TypeName:        "invoice",
		Def:             def,
		ExtractedFields: map[string]string{"vendor_name": "Acme Corp"},
	})
	require.NoError(t, err)

	wantDir := filepath.Join(stagingDir, "Invoices", "Acme Corp")
	assert.Equal(t, wantDir, filepath.Dir(record.StagedPath))
	assert.Equal(t, wantDir, filepath.Dir(record.SidecarPath))
}

func TestDestinationDir(t *testing.T) {
	tests := []struct {
		name      string
		subfolder string
		extracted map[string]string
		want      string
	}{
		{
			name:      "empty subfolder files flat",
			subfolder: "",
			want:      "root",
		},
		{
			name:      "plain subfolder",
			subfolder: "Receipts",
			want:      filepath.Join("root", "Receipts"),
		},
		{
			name:      "placeholder substituted and sanitized",
			subfolder: "Invoices/{vendor_name}",
			extracted: map[string]string{"vendor_name": `Acme <LLC>`},
			want:      filepath.Join("root", "Invoices", "Acme LLC"),
		},
		{
			name:      "unextracted placeholder stays literal",
			subfolder: "Invoices/{vendor_name}",
			want:      filepath.Join("root", "Invoices", "{vendor_name}"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DestinationDir("root", tt.subfolder, tt.extracted))
		})
	}
}

func TestArchiveToVault_CollisionSuffix(t *testing.T) {
	root := t.TempDir()
	vaultDir := filepath.Join(root, "vault")

	first := filepath.Join(root, "same.txt")
	require.NoError(t, os.WriteFile(first, []byte("one"), 0o600))

	path1, err := ArchiveToVault(first, "100", vaultDir)
	require.NoError(t, err)

	// Same original name again collides and gets a timestamp suffix.
	require.NoError(t, os.WriteFile(first, []byte("two"), 0o600))
	path2, err := ArchiveToVault(first, "100", vaultDir)
	require.NoError(t, err)

	assert.NotEqual(t, path1, path2)
	assert.Contains(t, filepath.Base(path2), "1000same_")

	// First copy is untouched.
	data, err := os.ReadFile(path1)
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), data)
}
