package engine

import (
	"fmt"
	"slices"

	"reviewetl/internal/table"
)

// SortKey orders by one column. NULLs sort first ascending and last
// descending.
type SortKey struct {
	Col  string
	Desc bool
}

// Asc is an ascending key.
func Asc(col string) SortKey { return SortKey{Col: col} }

// Desc is a descending key.
func Desc(col string) SortKey { return SortKey{Col: col, Desc: true} }

// OrderBy returns t sorted by keys. The sort is stable: rows equal on every
// key keep their input order.
func OrderBy(t *table.Table, keys ...SortKey) (*table.Table, error) {
	type bound struct {
		idx        int
		desc       bool
		nullsFirst bool
	}
	bs := make([]bound, len(keys))
	for i, k := range keys {
		idx, err := t.Lookup(k.Col)
		if err != nil {
			return nil, fmt.Errorf("order by: %w", err)
		}
		bs[i] = bound{idx: idx, desc: k.Desc, nullsFirst: !k.Desc}
	}

	rows := slices.Clone(t.Rows())
	slices.SortStableFunc(rows, func(a, b table.Row) int {
		for _, k := range bs {
			av, bv := a[k.idx], b[k.idx]
			var c int
			switch {
			case av == nil && bv == nil:
				continue
			case av == nil:
				c = 1
				if k.nullsFirst {
					c = -1
				}
				return c
			case bv == nil:
				c = -1
				if k.nullsFirst {
					c = 1
				}
				return c
			}
			c = table.Compare(av, bv)
			if k.desc {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return 0
	})
	return table.New(t.Columns(), rows)
}
