package csvio

import (
	"fmt"
	"strconv"
	"strings"

	"reviewetl/internal/table"
)

// ToTable converts raw records into a Table. With infer set, each column is
// typed by scanning every non-null value and picking the narrowest of
// int, float, bool that fits all of them, falling back to string. Columns
// that are entirely NULL stay strings. Without infer every column is a
// string column.
func ToTable(raw *Raw, infer bool) (*table.Table, error) {
	cols := make([]table.Column, len(raw.Header))
	for i, name := range raw.Header {
		cols[i] = table.Column{Name: name, Kind: table.String}
	}
	rows := make([]table.Row, len(raw.Records))
	for i, r := range raw.Records {
		rows[i] = table.Row(r)
	}
	if !infer || len(rows) == 0 {
		return table.New(cols, rows)
	}

	for j := range cols {
		cols[j].Kind = inferColumn(rows, j)
	}

	typed := make([]table.Row, len(rows))
	for i, r := range rows {
		out := make(table.Row, len(r))
		for j, v := range r {
			s, ok := v.(string)
			if !ok {
				continue
			}
			cv, err := convert(s, cols[j].Kind)
			if err != nil {
				return nil, fmt.Errorf("row %d column %q: %w", i, cols[j].Name, err)
			}
			out[j] = cv
		}
		typed[i] = out
	}
	return table.New(cols, typed)
}

// inferColumn types each non-null value on its own and merges the results:
// int and float widen to float, any other disagreement yields string.
func inferColumn(rows []table.Row, j int) table.Kind {
	var (
		kind table.Kind
		seen bool
	)
	for _, r := range rows {
		s, ok := r[j].(string)
		if !ok {
			continue
		}
		vk := valueKind(s)
		if !seen {
			kind, seen = vk, true
		} else {
			kind = merge(kind, vk)
		}
		if kind == table.String {
			return kind
		}
	}
	if !seen {
		return table.String
	}
	return kind
}

func valueKind(s string) table.Kind {
	if _, err := strconv.ParseInt(s, 10, 64); err == nil {
		return table.Int
	}
	if isFloat(s) {
		return table.Float
	}
	if isBool(s) {
		return table.Bool
	}
	return table.String
}

func merge(a, b table.Kind) table.Kind {
	switch {
	case a == b:
		return a
	case (a == table.Int && b == table.Float) || (a == table.Float && b == table.Int):
		return table.Float
	default:
		return table.String
	}
}

func isFloat(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

func isBool(s string) bool {
	return strings.EqualFold(s, "true") || strings.EqualFold(s, "false")
}

func convert(s string, k table.Kind) (any, error) {
	switch k {
	case table.Int:
		return strconv.ParseInt(s, 10, 64)
	case table.Float:
		return strconv.ParseFloat(s, 64)
	case table.Bool:
		return strings.EqualFold(s, "true"), nil
	default:
		return s, nil
	}
}
