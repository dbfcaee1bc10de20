package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEntityKey(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "simple name",
			in:   "Acme Corporation",
			want: "acme_corporation",
		},
		{
			name: "punctuation collapses",
			in:   "William Kruse & Company LLC",
			want: "william_kruse_company_llc",
		},
		{
			name: "leading and trailing symbols trimmed",
			in:   "  (Acme) ",
			want: "acme",
		},
		{
			name: "digits survive",
			in:   "7-Eleven #204",
			want: "7_eleven_204",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EntityKey(tt.in))
		})
	}
}

func TestReferenceEntityCandidates(t *testing.T) {
	e := &ReferenceEntity{Name: "Acme Corporation", Aliases: []string{"ACME", "Acme Corp"}}
	assert.Equal(t, []string{"Acme Corporation", "ACME", "Acme Corp"}, e.Candidates())
}

func TestFilterByRole(t *testing.T) {
	entities := ReferenceEntities{
		"acme":  {Name: "Acme", Roles: []string{"vendor"}},
		"bolt":  {Name: "Bolt", Roles: []string{"customer"}},
		"mixed": {Name: "Mixed", Roles: []string{"vendor", "customer"}},
	}

	vendors := entities.FilterByRole("vendor")
	assert.Len(t, vendors, 2)
	assert.Contains(t, vendors, "acme")
	assert.Contains(t, vendors, "mixed")

	assert.Len(t, entities.FilterByRole(""), 3)
}
