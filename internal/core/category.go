package core

import (
	"fmt"
	"strings"
)

const (
	Uncategorized Category = iota
	Condolence
	Wreath
	Operating
	Savings
)

const (
	MatchExact    MatchMode = "exact"
	MatchContains MatchMode = "contains"
)

type (
	// Category is the normalised classification of a ledger row.
	Category int

	// MatchMode controls how free-text labels are compared to the taxonomy.
	MatchMode string

	// Taxonomy maps the free-text category labels used in a sheet onto
	// Category values.
	Taxonomy struct {
		Mode   MatchMode
		Labels map[Category][]string
	}
)

// KnownCategories lists every category that owns a bucket, in display order.
var KnownCategories = []Category{Condolence, Wreath, Operating, Savings}

func (c Category) String() string {
	switch c {
	case Condolence:
		return "condolence"
	case Wreath:
		return "wreath"
	case Operating:
		return "operating"
	case Savings:
		return "savings"
	default:
		return "uncategorized"
	}
}

func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// ParseCategory accepts the canonical names produced by String.
func ParseCategory(s string) (Category, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, c := range KnownCategories {
		if c.String() == s {
			return c, nil
		}
	}
	if s == Uncategorized.String() {
		return Uncategorized, nil
	}
	return Uncategorized, fmt.Errorf("unknown category %q", s)
}

func (m MatchMode) IsValid() bool {
	return m == MatchExact || m == MatchContains
}

// Classify maps a sheet label onto a Category.
//
// Exact mode compares trimmed labels for equality. Contains mode first tries
// exact equality and then falls back to substring containment, checking
// categories in KnownCategories order. Blank or unknown labels are
// Uncategorized.
func (t Taxonomy) Classify(label string) Category {
	label = strings.TrimSpace(label)
	if label == "" {
		return Uncategorized
	}
	for _, c := range KnownCategories {
		for _, l := range t.Labels[c] {
			if strings.TrimSpace(l) == label {
				return c
			}
		}
	}
	if t.Mode != MatchContains {
		return Uncategorized
	}
	for _, c := range KnownCategories {
		for _, l := range t.Labels[c] {
			if l = strings.TrimSpace(l); l != "" && strings.Contains(label, l) {
				return c
			}
		}
	}
	return Uncategorized
}
