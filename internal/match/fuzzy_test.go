package match

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Veraticus/autofiler/internal/model"
)

func TestRatio(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		want float64
	}{
		{name: "identical", a: "Acme Corp", b: "Acme Corp", want: 1.0},
		{name: "case and whitespace insensitive", a: "  ACME Corp ", b: "acme corp", want: 1.0},
		{name: "both empty", a: "", b: "", want: 1.0},
		{name: "one empty", a: "acme", b: "", want: 0.0},
		{name: "single substitution", a: "acme", b: "acne", want: 0.75},
		{name: "disjoint", a: "abcd", b: "wxyz", want: 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Ratio(tt.a, tt.b), 1e-9)
		})
	}
}

func TestMatch_Reflexive(t *testing.T) {
	// An exact name must match with ratio 1.0 at any threshold up to 1.0.
	entities := model.ReferenceEntities{
		"acme_corp": {Name: "Acme Corp"},
	}

	for _, threshold := range []float64{0.0, 0.5, 0.80, 0.95, 1.0} {
		key, ratio := Match("Acme Corp", entities, threshold)
		assert.Equal(t, "acme_corp", key, "threshold %v", threshold)
		assert.Equal(t, 1.0, ratio, "threshold %v", threshold)
	}
}

func TestMatch_ThresholdMonotonic(t *testing.T) {
	entities := model.ReferenceEntities{
		"acme_corporation": {Name: "Acme Corporation"},
	}

	lowKey, lowRatio := Match("Acme Corporat", entities, 0.50)
	assert.Equal(t, "acme_corporation", lowKey)
	assert.Greater(t, lowRatio, 0.50)

	// Raising the threshold above the achieved ratio turns the accepted
	// match into a rejection, never the reverse.
	highKey, _ := Match("Acme Corporat", entities, lowRatio+0.01)
	assert.Empty(t, highKey)
}

func TestMatch_Aliases(t *testing.T) {
	entities := model.ReferenceEntities{
		"acme_corp": {
			Name:    "Acme Corporation",
			Aliases: []string{"ACME", "Acme Inc"},
		},
	}

	key, ratio := Match("acme inc", entities, 0.80)
	assert.Equal(t, "acme_corp", key)
	assert.Equal(t, 1.0, ratio)
}

func TestMatchWithSupport(t *testing.T) {
	entities := model.ReferenceEntities{
		"acme_corp": {
			Name: "Acme Corporation",
			Attributes: map[string]string{
				"account_number": "ACC-1001",
			},
		},
	}

	tests := []struct {
		supporting map[string]string
		name       string
		query      string
		wantKey    string
	}{
		{
			name:       "fuzzy hit with agreeing support",
			query:      "Acme Corporatio",
			supporting: map[string]string{"account_number": "acc-1001"},
			wantKey:    "acme_corp",
		},
		{
			name:       "fuzzy hit with contradicting support",
			query:      "Acme Corporatio",
			supporting: map[string]string{"account_number": "ACC-9999"},
			wantKey:    "",
		},
		{
			name:       "exact match bypasses support check",
			query:      "Acme Corporation",
			supporting: map[string]string{"account_number": "ACC-9999"},
			wantKey:    "acme_corp",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, _ := MatchWithSupport(tt.query, entities, DefaultSupportThreshold, tt.supporting)
			assert.Equal(t, tt.wantKey, key)
		})
	}
}

func TestScanText(t *testing.T) {
	entities := model.ReferenceEntities{
		"acme_corp": {
			Name:  "Acme Corporation",
			Roles: []string{"vendor"},
		},
		"bolt_supply": {
			Name:  "Bolt Supply",
			Roles: []string{"customer"},
		},
	}

	t.Run("substring pass finds embedded name", func(t *testing.T) {
		text := "Invoice issued by Acme Corporation on behalf of the buyer."
		key, name, ratio := ScanText(text, entities, DefaultScanThreshold, "vendor")
		assert.Equal(t, "acme_corp", key)
		assert.Equal(t, "Acme Corporation", name)
		assert.Equal(t, 1.0, ratio)
	})

	t.Run("role filter excludes other roles", func(t *testing.T) {
		text := "Deliver to Bolt Supply"
		key, _, _ := ScanText(text, entities, DefaultScanThreshold, "vendor")
		assert.Empty(t, key)
	})

	t.Run("line pass catches near match", func(t *testing.T) {
		text := "From:\nAcme Corporatiom\nPO Box 7"
		key, _, ratio := ScanText(text, entities, 0.90, "vendor")
		assert.Equal(t, "acme_corp", key)
		assert.GreaterOrEqual(t, ratio, 0.90)
	})

	t.Run("no match below threshold", func(t *testing.T) {
		key, _, _ := ScanText("completely unrelated text", entities, DefaultScanThreshold, "vendor")
		assert.Empty(t, key)
	})
}
