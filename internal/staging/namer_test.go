package staging

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/autofiler/internal/model"
)

func invoiceDef() *model.TypeDefinition {
	return &model.TypeDefinition{
		Code: "100",
		ExtractionFields: map[string]*model.FieldSpec{
			"vendor_name":    {Patterns: []string{`From:\s*(.+)`}},
			"customer_name":  {Patterns: []string{`To:\s*(.+)`}},
			"invoice_date":   {Patterns: []string{`Date:\s*(.+)`}},
			"invoice_number": {Patterns: []string{`#\s*(\S+)`}},
			"total":          {Patterns: []string{`Total:\s*(\S+)`}},
		},
		StagingFields: map[model.StagingSlot]string{
			model.SlotVendor:    "vendor_name",
			model.SlotCustomer:  "customer_name",
			model.SlotDate:      "invoice_date",
			model.SlotReference: "invoice_number",
			model.SlotAmount:    "total",
		},
	}
}

func TestStagingStem(t *testing.T) {
	def := invoiceDef()

	t.Run("all slots resolved", func(t *testing.T) {
		extracted := map[string]string{
			"vendor_name":    "Acme Corp",
			"customer_name":  "Bolt Supply",
			"invoice_date":   "3/15/2024",
			"invoice_number": "INV-42",
			"total":          "120.50",
		}
		stem, modified := StagingStem(def, extracted, "")
		assert.Equal(t, "100_Acme Corp_Bolt Supply_20240315_INV-42_120.50", stem)
		assert.Equal(t, "20240315", modified[model.SlotDate])
	})

	t.Run("vendor truncated from the left to 15", func(t *testing.T) {
		extracted := map[string]string{"vendor_name": "Consolidated Amalgamated Industries"}
		_, modified := StagingStem(def, extracted, "")
		assert.Equal(t, "Consolidated Am", modified[model.SlotVendor])
		assert.Len(t, modified[model.SlotVendor], 15)
	})

	t.Run("reference keeps the last 15", func(t *testing.T) {
		extracted := map[string]string{"invoice_number": "REF-2024-000012345678"}
		_, modified := StagingStem(def, extracted, "")
		assert.Equal(t, "24-000012345678", modified[model.SlotReference])
		assert.Len(t, modified[model.SlotReference], 15)
	})

	t.Run("amount keeps the last 9", func(t *testing.T) {
		extracted := map[string]string{"total": "1234567890.55"}
		_, modified := StagingStem(def, extracted, "")
		assert.Equal(t, "567890.55", modified[model.SlotAmount])
	})

	t.Run("empty slots use the placeholder", func(t *testing.T) {
		stem, _ := StagingStem(def, map[string]string{}, "")
		assert.Equal(t, "100_000_000_000_000_000", stem)
	})

	t.Run("illegal filename characters stripped", func(t *testing.T) {
		extracted := map[string]string{"vendor_name": `Acme <LLC>`}
		stem, _ := StagingStem(def, extracted, "")
		assert.NotContains(t, stem, "<")
		assert.NotContains(t, stem, ">")
	})
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "slash month first", raw: "3/15/2024", want: "20240315"},
		{name: "padded slash", raw: "03/15/2024", want: "20240315"},
		{name: "dashes", raw: "3-15-2024", want: "20240315"},
		{name: "two digit year", raw: "3/15/24", want: "20240315"},
		{name: "iso", raw: "2024-03-15", want: "20240315"},
		{name: "day first when month impossible", raw: "25/3/2024", want: "20240325"},
		{name: "long month name", raw: "March 15, 2024", want: "20240315"},
		{name: "short month name", raw: "Mar 15, 2024", want: "20240315"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseDate(tt.raw, ""))
		})
	}
}

func TestParseDate_Fallbacks(t *testing.T) {
	t.Run("invalid date falls back to file mtime", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "doc.txt")
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
		mtime := time.Date(2023, 7, 4, 12, 0, 0, 0, time.Local)
		require.NoError(t, os.Chtimes(path, mtime, mtime))

		assert.Equal(t, "20230704", ParseDate("13/40/2024", path))
	})

	t.Run("no date and no file yields placeholder", func(t *testing.T) {
		assert.Equal(t, "000", ParseDate("not a date", filepath.Join(t.TempDir(), "missing.txt")))
	})

	t.Run("empty raw with real file uses mtime", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "doc.txt")
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
		assert.Len(t, ParseDate("", path), 8)
	})
}
