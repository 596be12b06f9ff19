// Package engine provides the relational operators the reports are built
// from: Filter, GroupBy, WithColumn, OrderBy and Limit.
//
// Operators take and return *table.Table and never modify their input.
// Column references are resolved once against the input schema, so an
// unknown column fails before any row is touched. NULL handling follows SQL:
// a comparison with NULL is not true, and GroupBy puts all NULL keys in one
// group.
package engine

import (
	"fmt"

	"reviewetl/internal/table"
)

// Predicate is an unbound row condition. Bind resolves it against a schema.
type Predicate interface {
	Bind(t *table.Table) (func(table.Row) bool, error)
}

// PredicateFunc adapts a binder function to Predicate.
type PredicateFunc func(t *table.Table) (func(table.Row) bool, error)

// Bind implements Predicate.
func (f PredicateFunc) Bind(t *table.Table) (func(table.Row) bool, error) { return f(t) }

// NotNull keeps rows where col is not NULL.
func NotNull(col string) Predicate {
	return column(col, func(v any) bool { return v != nil })
}

// NotEqual keeps rows where col is not NULL and differs from lit.
func NotEqual(col string, lit any) Predicate {
	return column(col, func(v any) bool { return v != nil && table.Compare(v, lit) != 0 })
}

// Between keeps rows where lo <= col <= hi; NULL never matches.
func Between(col string, lo, hi any) Predicate {
	return column(col, func(v any) bool {
		return v != nil && table.Compare(v, lo) >= 0 && table.Compare(v, hi) <= 0
	})
}

func column(col string, test func(any) bool) Predicate {
	return PredicateFunc(func(t *table.Table) (func(table.Row) bool, error) {
		i, err := t.Lookup(col)
		if err != nil {
			return nil, err
		}
		return func(r table.Row) bool { return test(r[i]) }, nil
	})
}

// Filter returns the rows of t matching p, in their original order.
func Filter(t *table.Table, p Predicate) (*table.Table, error) {
	keep, err := p.Bind(t)
	if err != nil {
		return nil, fmt.Errorf("filter: %w", err)
	}
	var rows []table.Row
	for _, r := range t.Rows() {
		if keep(r) {
			rows = append(rows, r)
		}
	}
	return table.New(t.Columns(), rows)
}

// WithColumn returns t with column name set to fn(row). An existing column
// of that name is replaced in place; otherwise the column is appended.
func WithColumn(t *table.Table, name string, kind table.Kind, fn func(table.Row) any) (*table.Table, error) {
	cols := t.Columns()
	pos, exists := t.Index(name)
	if exists {
		cols[pos].Kind = kind
	} else {
		cols = append(cols, table.Column{Name: name, Kind: kind})
		pos = len(cols) - 1
	}

	rows := make([]table.Row, t.Len())
	for i, r := range t.Rows() {
		out := make(table.Row, len(cols))
		copy(out, r)
		out[pos] = fn(r)
		rows[i] = out
	}
	return table.New(cols, rows)
}

// Limit returns the first n rows of t.
func Limit(t *table.Table, n int) *table.Table {
	if n < 0 || n >= t.Len() {
		return t
	}
	return table.MustNew(t.Columns(), t.Rows()[:n])
}
