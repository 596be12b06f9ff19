// Package table defines the immutable, typed tabular dataset that flows
// between the loader, the normalizer, the aggregation engine and the sinks.
//
// A Table is a schema (ordered, uniquely named columns with a Kind) plus a
// slice of rows aligned to that schema. Values are one of:
//
//	nil          SQL NULL
//	string       Kind String
//	int64        Kind Int
//	float64      Kind Float
//	bool         Kind Bool
//	civil.Date   Kind Date
//
// Tables are never mutated after construction. Row and Rows expose the
// backing storage without copying; callers must treat them as read-only.
package table

import (
	"errors"
	"fmt"
)

// ErrUnknownColumn is returned (wrapped) when a column name does not exist in
// a table's schema.
var ErrUnknownColumn = errors.New("unknown column")

// Kind is the logical type of a column.
type Kind uint8

const (
	String Kind = iota
	Int
	Float
	Bool
	Date
)

func (k Kind) String() string {
	switch k {
	case String:
		return "string"
	case Int:
		return "int"
	case Float:
		return "float"
	case Bool:
		return "bool"
	case Date:
		return "date"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Column is a named, typed schema entry.
type Column struct {
	Name string
	Kind Kind
}

// Row is one record aligned to the owning table's columns.
type Row []any

// Table is an immutable collection of rows sharing a schema.
type Table struct {
	cols  []Column
	rows  []Row
	index map[string]int
}

// New builds a Table, checking that column names are unique and non-empty
// and that every row has exactly len(cols) values. The slices are retained;
// the caller must not modify them afterwards.
func New(cols []Column, rows []Row) (*Table, error) {
	index := make(map[string]int, len(cols))
	for i, c := range cols {
		if c.Name == "" {
			return nil, fmt.Errorf("table: column %d has an empty name", i)
		}
		if _, dup := index[c.Name]; dup {
			return nil, fmt.Errorf("table: duplicate column %q", c.Name)
		}
		index[c.Name] = i
	}
	for i, r := range rows {
		if len(r) != len(cols) {
			return nil, fmt.Errorf("table: row %d has %d values, want %d", i, len(r), len(cols))
		}
	}
	return &Table{cols: cols, rows: rows, index: index}, nil
}

// MustNew is like New but panics on error. It is meant for operators whose
// output shape is correct by construction, and for tests.
func MustNew(cols []Column, rows []Row) *Table {
	t, err := New(cols, rows)
	if err != nil {
		panic(err)
	}
	return t
}

// Columns returns a copy of the schema.
func (t *Table) Columns() []Column {
	out := make([]Column, len(t.cols))
	copy(out, t.cols)
	return out
}

// Names returns the column names in schema order.
func (t *Table) Names() []string {
	out := make([]string, len(t.cols))
	for i, c := range t.cols {
		out[i] = c.Name
	}
	return out
}

// Width is the number of columns.
func (t *Table) Width() int { return len(t.cols) }

// Len is the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Row returns row i. The result must not be modified.
func (t *Table) Row(i int) Row { return t.rows[i] }

// Rows returns all rows. The result must not be modified.
func (t *Table) Rows() []Row { return t.rows }

// Index reports the position of the named column.
func (t *Table) Index(name string) (int, bool) {
	i, ok := t.index[name]
	return i, ok
}

// Lookup is Index with an error wrapping ErrUnknownColumn.
func (t *Table) Lookup(name string) (int, error) {
	i, ok := t.index[name]
	if !ok {
		return -1, fmt.Errorf("%w %q", ErrUnknownColumn, name)
	}
	return i, nil
}

// Column returns the schema entry for name.
func (t *Table) Column(name string) (Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return Column{}, false
	}
	return t.cols[i], true
}

// Value returns the value of column name in row i, or nil when the column
// does not exist.
func (t *Table) Value(i int, name string) any {
	j, ok := t.index[name]
	if !ok {
		return nil
	}
	return t.rows[i][j]
}
