package validation

import (
	"sort"
	"strings"
	"unicode"

	apperrors "exportcheck/internal/errors"
)

// ExportKind names an export flavour offered by the remote application
type ExportKind string

const (
	KindContact ExportKind = "contact"
	KindSticket ExportKind = "sticket"
)

// ColumnSpec is a desired column and the alternative header names it may carry
type ColumnSpec struct {
	Name    string   `json:"name" yaml:"name"`
	Aliases []string `json:"aliases,omitempty" yaml:"aliases"`
}

func (s ColumnSpec) candidates() []string {
	out := make([]string, 0, len(s.Aliases)+1)
	out = append(out, normalizeHeader(s.Name))
	for _, a := range s.Aliases {
		out = append(out, normalizeHeader(a))
	}
	return out
}

// ColumnPolicy is the ordered include-list of an export kind
type ColumnPolicy struct {
	Kind    ExportKind   `json:"kind" yaml:"kind"`
	Include []ColumnSpec `json:"include" yaml:"include"`
	// SecondSource enables reconciliation against the rendered log page
	SecondSource bool `json:"second_source" yaml:"second_source"`
}

func names(ns ...string) []ColumnSpec {
	specs := make([]ColumnSpec, len(ns))
	for i, n := range ns {
		specs[i] = ColumnSpec{Name: n}
	}
	return specs
}

// DefaultPolicies returns the include-lists of the contact and sticket exports
func DefaultPolicies() []ColumnPolicy {
	return []ColumnPolicy{
		{
			Kind: KindContact,
			Include: names(
				"Member CozevaID", "Measure Details", "Encounter Datetime", "Route",
				"Encounter Details", "Encounter Note", "With Whom", "Submitter", "PCP",
				"Practice", "Health Plan", "Campaign", "Data Source",
			),
		},
		{
			Kind: KindSticket,
			Include: names(
				"Created", "Last Updated", "Created by", "Last Updated by",
				"PCP", "Latest Note", "Health Plan",
			),
			SecondSource: true,
		},
	}
}

// DefaultSensitiveColumns are never selected, whatever the policy asks for.
// A header is sensitive when a name or alias appears in it as whole words,
// so "Patient DOB" and "DOB (MM/DD/YYYY)" are both DOB.
var DefaultSensitiveColumns = []ColumnSpec{
	{Name: "Patient", Aliases: []string{"Patient Name", "Member Name"}},
	{Name: "DOB", Aliases: []string{"Date of Birth", "Birth Date", "Birthdate"}},
	{Name: "Member ID", Aliases: []string{"Searchable Member ID", "Member UID"}},
	{Name: "Member Phone #", Aliases: []string{"Member Phone"}},
	{Name: "Member FName", Aliases: []string{"Member First Name", "First Name"}},
	{Name: "Member LName", Aliases: []string{"Member Last Name", "Last Name"}},
	{Name: "Gender", Aliases: []string{"Sex"}},
}

// Selection is the outcome of resolving a header row
type Selection struct {
	Indices []int    `json:"indices"`
	Names   []string `json:"names"`
	// Missing lists desired names that matched no header
	Missing []string `json:"missing,omitempty"`
	// Fallback is set when the kind had no policy
	Fallback bool `json:"fallback"`
}

// NotFound returns one soft HEADER_NOT_FOUND error per missing name
func (s Selection) NotFound() []*apperrors.AppError {
	out := make([]*apperrors.AppError, 0, len(s.Missing))
	for _, n := range s.Missing {
		out = append(out, apperrors.NewHeaderNotFoundError(n))
	}
	return out
}

// ColumnSelector resolves which header indices an export kind displays
type ColumnSelector struct {
	policies  []ColumnPolicy
	sensitive [][]string
}

// NewColumnSelector builds a selector from policies and the sensitive columns
func NewColumnSelector(policies []ColumnPolicy, sensitive []ColumnSpec) *ColumnSelector {
	s := &ColumnSelector{
		policies:  append([]ColumnPolicy(nil), policies...),
		sensitive: make([][]string, 0, len(sensitive)),
	}
	for _, spec := range sensitive {
		var keys []string
		for _, n := range append([]string{spec.Name}, spec.Aliases...) {
			if k := wordKey(n); k != "" {
				keys = append(keys, k)
			}
		}
		s.sensitive = append(s.sensitive, keys)
	}
	// Longest kind name first.
	sort.SliceStable(s.policies, func(i, j int) bool {
		return len(s.policies[i].Kind) > len(s.policies[j].Kind)
	})
	return s
}

// DefaultColumnSelector uses DefaultPolicies and DefaultSensitiveColumns
func DefaultColumnSelector() *ColumnSelector {
	return NewColumnSelector(DefaultPolicies(), DefaultSensitiveColumns)
}

// Policy finds the policy whose kind name occurs in kind, so "Sticket Export"
// resolves to the sticket policy.
func (s *ColumnSelector) Policy(kind ExportKind) (ColumnPolicy, bool) {
	k := normalizeHeader(string(kind))
	for _, p := range s.policies {
		if p.Kind != "" && strings.Contains(k, normalizeHeader(string(p.Kind))) {
			return p, true
		}
	}
	return ColumnPolicy{}, false
}

// Kinds lists the export kinds with a registered policy
func (s *ColumnSelector) Kinds() []ExportKind {
	out := make([]ExportKind, 0, len(s.policies))
	for _, p := range s.policies {
		out = append(out, p.Kind)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// IsExcluded reports whether header is, or contains, a sensitive column
func (s *ColumnSelector) IsExcluded(header string) bool {
	key := wordKey(header)
	if key == "" {
		return false
	}
	for _, keys := range s.sensitive {
		for _, k := range keys {
			if strings.Contains(key, k) {
				return true
			}
		}
	}
	return false
}

// Resolve selects the header indices for kind. Exact matches win over
// substring matches, a sensitive header is never returned, and each index
// appears once in first-match order.
func (s *ColumnSelector) Resolve(headers []string, kind ExportKind, log *LogCollector) Selection {
	if log == nil {
		log = NewLogCollector(nil)
	}
	norm := make([]string, len(headers))
	for i, h := range headers {
		norm[i] = normalizeHeader(h)
	}

	var sel Selection
	var picked []int

	policy, ok := s.Policy(kind)
	if !ok {
		log.Notice("No include-list found for '%s'. Capturing all non-excluded headers.", kind)
		sel.Fallback = true
		for i := range norm {
			picked = append(picked, i)
		}
	} else {
		for _, spec := range policy.Include {
			idx := matchHeader(norm, spec.candidates())
			if idx < 0 {
				log.Notice("Desired header '%s' not found in CSV headers.", spec.Name)
				sel.Missing = append(sel.Missing, spec.Name)
				continue
			}
			picked = append(picked, idx)
		}
	}

	seen := make(map[int]struct{}, len(picked))
	for _, idx := range picked {
		if _, dup := seen[idx]; dup {
			continue
		}
		seen[idx] = struct{}{}
		if s.IsExcluded(headers[idx]) {
			if !sel.Fallback {
				log.Notice("Header '%s' is a sensitive column and was left out.", headers[idx])
			}
			continue
		}
		sel.Indices = append(sel.Indices, idx)
		sel.Names = append(sel.Names, headers[idx])
	}
	return sel
}

// matchHeader returns the first exact match of any candidate, then the first
// bidirectional substring match, or -1.
func matchHeader(norm, candidates []string) int {
	for _, want := range candidates {
		for i, h := range norm {
			if h == want {
				return i
			}
		}
	}
	for _, want := range candidates {
		if want == "" {
			continue
		}
		for i, h := range norm {
			if h == "" {
				continue
			}
			if strings.Contains(h, want) || strings.Contains(want, h) {
				return i
			}
		}
	}
	return -1
}

// wordKey lower-cases s and keeps only its letter and digit runs, padded with
// spaces so containment only matches whole words.
func wordKey(s string) string {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(words) == 0 {
		return ""
	}
	return " " + strings.Join(words, " ") + " "
}

// normalizeHeader lower-cases, trims and collapses internal whitespace
func normalizeHeader(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
