package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "exportcheck/internal/errors"
)

func selectorFor(include ...string) *ColumnSelector {
	return NewColumnSelector([]ColumnPolicy{{Kind: "claims", Include: names(include...)}}, DefaultSensitiveColumns)
}

func TestColumnSelector_Resolve(t *testing.T) {
	tests := []struct {
		name        string
		include     []string
		headers     []string
		wantIndices []int
		wantMissing []string
	}{
		{
			name:        "duplicate header resolves to first occurrence",
			include:     []string{"a"},
			headers:     []string{"A", "B", "A"},
			wantIndices: []int{0},
		},
		{
			name:        "exact match beats substring match",
			include:     []string{"Note"},
			headers:     []string{"Latest Note", "Note"},
			wantIndices: []int{1},
		},
		{
			name:        "substring match when no exact header",
			include:     []string{"Encounter Datetime"},
			headers:     []string{"Member", "Encounter Datetime (UTC)"},
			wantIndices: []int{1},
		},
		{
			name:        "header contained in the desired name",
			include:     []string{"Created by"},
			headers:     []string{"Created"},
			wantIndices: []int{0},
		},
		{
			name:        "whitespace and case are ignored",
			include:     []string{"health   plan"},
			headers:     []string{" Health Plan "},
			wantIndices: []int{0},
		},
		{
			name:        "empty headers never match by substring",
			include:     []string{"Route", "Campaign"},
			headers:     []string{"", "Route"},
			wantIndices: []int{1},
			wantMissing: []string{"Campaign"},
		},
		{
			name:        "display order follows the include-list",
			include:     []string{"PCP", "Route"},
			headers:     []string{"Route", "PCP"},
			wantIndices: []int{1, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel := selectorFor(tt.include...).Resolve(tt.headers, "claims", nil)
			assert.Equal(t, tt.wantIndices, sel.Indices)
			assert.Equal(t, tt.wantMissing, sel.Missing)
			assert.False(t, sel.Fallback)
		})
	}
}

func TestColumnSelector_SensitiveHeadersNeverSelected(t *testing.T) {
	log := NewLogCollector(nil)
	headers := []string{"DOB", "Route", "Patient", "Gender"}

	sel := selectorFor("DOB", "Route", "Patient Name").Resolve(headers, "claims", log)

	assert.Equal(t, []int{1}, sel.Indices)
	assert.Equal(t, []string{"Route"}, sel.Names)
	assert.Equal(t, 1, entriesContaining(log, LevelNotice, "'DOB' is a sensitive column"))
	assert.Equal(t, 1, entriesContaining(log, LevelNotice, "'Patient' is a sensitive column"))
}

func TestColumnSelector_SensitiveVariantsNeverSelected(t *testing.T) {
	log := NewLogCollector(nil)

	sel := selectorFor("dob", "Created").Resolve([]string{"Created", "Patient DOB"}, "claims", log)

	assert.Equal(t, []int{0}, sel.Indices)
	assert.Equal(t, []string{"Created"}, sel.Names)
	assert.Empty(t, sel.Missing)
	assert.Equal(t, 1, entriesContaining(log, LevelNotice, "'Patient DOB' is a sensitive column"))
}

func TestColumnSelector_FallbackSkipsSensitiveVariants(t *testing.T) {
	headers := []string{"Created", "DOB (MM/DD/YYYY)", "Patient Name", "Member Phone", "PCP", "Date of Birth", "Sex"}

	sel := DefaultColumnSelector().Resolve(headers, "claims", nil)

	assert.True(t, sel.Fallback)
	assert.Equal(t, []int{0, 4}, sel.Indices)
	assert.Equal(t, []string{"Created", "PCP"}, sel.Names)
}

func TestColumnSelector_SticketExportHeaders(t *testing.T) {
	log := NewLogCollector(nil)
	headers := []string{"Patient", "DOB", "Created", "PCP", "Health Plan"}

	sel := DefaultColumnSelector().Resolve(headers, KindSticket, log)

	assert.Equal(t, []int{2, 3, 4}, sel.Indices)
	assert.Equal(t, []string{"Created", "PCP", "Health Plan"}, sel.Names)
	assert.Equal(t, []string{"Last Updated", "Last Updated by", "Latest Note"}, sel.Missing)
	assert.Equal(t, 3, entriesContaining(log, LevelNotice, "not found in CSV headers"))

	notFound := sel.NotFound()
	require.Len(t, notFound, 3)
	for _, e := range notFound {
		assert.Equal(t, apperrors.ErrTypeHeaderNotFound, e.Type)
	}
}

func TestColumnSelector_Aliases(t *testing.T) {
	s := NewColumnSelector([]ColumnPolicy{{
		Kind:    "claims",
		Include: []ColumnSpec{{Name: "PCP", Aliases: []string{"Primary Care Provider"}}},
	}}, nil)

	sel := s.Resolve([]string{"Route", "Primary Care Provider"}, "claims", nil)

	assert.Equal(t, []int{1}, sel.Indices)
	assert.Empty(t, sel.Missing)
}

func TestColumnSelector_FallbackWithoutPolicy(t *testing.T) {
	log := NewLogCollector(nil)

	sel := DefaultColumnSelector().Resolve([]string{"Patient", "Route", "Gender", "Note"}, "claims", log)

	assert.True(t, sel.Fallback)
	assert.Equal(t, []int{1, 3}, sel.Indices)
	assert.Equal(t, 1, entriesContaining(log, LevelNotice, "No include-list found for 'claims'"))
	assert.Zero(t, entriesContaining(log, LevelNotice, "sensitive column"))
}

func TestColumnSelector_Policy(t *testing.T) {
	s := DefaultColumnSelector()

	p, ok := s.Policy("Sticket Export")
	require.True(t, ok)
	assert.Equal(t, KindSticket, p.Kind)
	assert.True(t, p.SecondSource)

	p, ok = s.Policy("CONTACT")
	require.True(t, ok)
	assert.Equal(t, KindContact, p.Kind)
	assert.False(t, p.SecondSource)

	_, ok = s.Policy("claims")
	assert.False(t, ok)

	assert.Equal(t, []ExportKind{KindContact, KindSticket}, s.Kinds())
}

func TestColumnSelector_IsExcluded(t *testing.T) {
	s := DefaultColumnSelector()

	assert.True(t, s.IsExcluded("Member Phone #"))
	assert.True(t, s.IsExcluded("  dob "))
	assert.True(t, s.IsExcluded("Patient DOB"))
	assert.True(t, s.IsExcluded("Member Phone"))
	assert.True(t, s.IsExcluded("Searchable Member ID"))
	assert.False(t, s.IsExcluded("Route"))
	assert.False(t, s.IsExcluded("Member CozevaID"))
	assert.False(t, s.IsExcluded(""))
	assert.False(t, s.IsExcluded("a"))
	assert.False(t, s.IsExcluded("Sussex Clinic"))
}
