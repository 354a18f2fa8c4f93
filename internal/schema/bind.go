package schema

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Binding holds the column index of every mapped field found in a header row.
type Binding struct {
	index map[string]int
}

// Bind locates the table's columns in a header row. Header cells are compared
// after trimming; a required field whose column is absent is an error.
func (t Table) Bind(header []string) (Binding, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if _, dup := pos[h]; h != "" && !dup {
			pos[h] = i
		}
	}

	b := Binding{index: make(map[string]int, len(t.Columns))}
	for field, col := range t.Columns {
		if i, ok := pos[strings.TrimSpace(col)]; ok {
			b.index[field] = i
		}
	}

	var missing []string
	for _, f := range t.Required {
		if _, ok := b.index[f]; !ok {
			missing = append(missing, fmt.Sprintf("%s (%q)", f, t.Columns[f]))
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return Binding{}, fmt.Errorf("%w: missing %s; got headers=%v", ErrSchemaMismatch, strings.Join(missing, ", "), header)
	}
	return b, nil
}

// Has reports whether the field was found in the header.
func (b Binding) Has(field string) bool {
	_, ok := b.index[field]
	return ok
}

// Get returns the trimmed cell for field, or "" when the row is short or the
// field is unmapped.
func (b Binding) Get(row []string, field string) string {
	i, ok := b.index[field]
	if !ok || i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// ParseTime tries each configured layout in order. Unparseable or blank
// values give the zero time; timestamps are display-only.
func (l Ledger) ParseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range l.DateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}
