// Package dataset provides the statically-shaped feature tables consumed by
// the classifier selection pipeline.
//
// A Table fixes its ordered list of feature names when it is built and every
// row is validated against that shape. Each column also carries a Polarity
// tag telling downstream code whether a high score means good or bad quality.
package dataset

import (
	"fmt"
	"strings"
)

// Polarity tells which direction of a quality score is better.
type Polarity int

const (
	// HigherIsBetter marks scores where larger values indicate cleaner pairs.
	HigherIsBetter Polarity = iota
	// LowerIsBetter marks scores such as cross-entropy where smaller is cleaner.
	LowerIsBetter
)

func (p Polarity) String() string {
	switch p {
	case HigherIsBetter:
		return "higher-is-better"
	case LowerIsBetter:
		return "lower-is-better"
	default:
		return fmt.Sprintf("Polarity(%d)", int(p))
	}
}

// PolarityRule assigns a polarity to a feature name when a table is built.
type PolarityRule func(name string) Polarity

// MarkerRule tags every feature whose name contains one of the markers as
// LowerIsBetter and everything else as HigherIsBetter.
func MarkerRule(markers ...string) PolarityRule {
	return func(name string) Polarity {
		for _, m := range markers {
			if m != "" && strings.Contains(name, m) {
				return LowerIsBetter
			}
		}
		return HigherIsBetter
	}
}

// Table is an ordered sequence of rows sharing one set of feature names.
// Tables are treated as read-only once built.
type Table struct {
	Names    []string
	Polarity []Polarity
	Rows     [][]float64
}

// NewTable builds a table, checking every row against the column count.
// A nil rule tags every column HigherIsBetter.
func NewTable(names []string, rows [][]float64, rule PolarityRule) (*Table, error) {
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		if _, dup := seen[n]; dup {
			return nil, fmt.Errorf("duplicate feature name %q", n)
		}
		seen[n] = struct{}{}
	}

	for i, row := range rows {
		if len(row) != len(names) {
			return nil, fmt.Errorf("row %d has %d values, expected %d", i, len(row), len(names))
		}
	}

	polarity := make([]Polarity, len(names))
	if rule != nil {
		for j, n := range names {
			polarity[j] = rule(n)
		}
	}

	return &Table{
		Names:    append([]string(nil), names...),
		Polarity: polarity,
		Rows:     rows,
	}, nil
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// NumFeatures returns the number of columns.
func (t *Table) NumFeatures() int {
	return len(t.Names)
}

// Index returns the column position of a feature.
func (t *Table) Index(name string) (int, bool) {
	for j, n := range t.Names {
		if n == name {
			return j, true
		}
	}
	return -1, false
}

// Column returns a copy of the values of column j.
func (t *Table) Column(j int) []float64 {
	col := make([]float64, len(t.Rows))
	for i, row := range t.Rows {
		col[i] = row[j]
	}
	return col
}

// SameShape reports whether names matches the table's column order exactly.
func (t *Table) SameShape(names []string) bool {
	if len(names) != len(t.Names) {
		return false
	}
	for j, n := range names {
		if t.Names[j] != n {
			return false
		}
	}
	return true
}

// Reorder returns a table whose columns follow names. Row order is kept.
// It fails with ErrFeatureMismatch when the feature sets differ.
func (t *Table) Reorder(names []string) (*Table, error) {
	if t.SameShape(names) {
		return t, nil
	}
	if len(names) != len(t.Names) {
		return nil, fmt.Errorf("%w: have %d features, want %d", ErrFeatureMismatch, len(t.Names), len(names))
	}

	perm := make([]int, len(names))
	for j, n := range names {
		idx, ok := t.Index(n)
		if !ok {
			return nil, fmt.Errorf("%w: feature %q not present", ErrFeatureMismatch, n)
		}
		perm[j] = idx
	}

	rows := make([][]float64, len(t.Rows))
	for i, row := range t.Rows {
		out := make([]float64, len(perm))
		for j, src := range perm {
			out[j] = row[src]
		}
		rows[i] = out
	}

	polarity := make([]Polarity, len(perm))
	for j, src := range perm {
		polarity[j] = t.Polarity[src]
	}

	return &Table{
		Names:    append([]string(nil), names...),
		Polarity: polarity,
		Rows:     rows,
	}, nil
}
