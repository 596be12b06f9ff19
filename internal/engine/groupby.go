package engine

import (
	"fmt"
	"math"
	"slices"

	"github.com/zeebo/xxh3"
	"golang.org/x/sync/errgroup"

	"reviewetl/internal/table"
)

type aggOp uint8

const (
	opCount aggOp = iota
	opAvg
)

// Agg is an aggregate output column of GroupBy.
type Agg struct {
	Name string
	op   aggOp
	col  string
}

// Count counts the rows of each group (COUNT(*)).
func Count(as string) Agg { return Agg{Name: as, op: opCount} }

// Avg averages the non-NULL numeric values of col; a group with none yields
// NULL. Integer inputs are summed exactly before the division.
func Avg(col, as string) Agg { return Agg{Name: as, op: opAvg, col: col} }

// GroupOptions tunes GroupBy parallelism. Output never depends on it.
type GroupOptions struct {
	// Workers is the number of hash shards aggregated concurrently. Values
	// <= 1 aggregate sequentially.
	Workers int
}

// boundAgg is an Agg resolved against the input schema.
type boundAgg struct {
	op    aggOp
	idx   int
	isInt bool
}

// group accumulates one key. ints/floats/ns hold one slot per aggregate.
type group struct {
	key    any
	first  int
	count  int64
	ints   []int64
	floats []float64
	ns     []int64
}

// GroupBy groups t by the key column and computes aggs per group. The
// result has the key column followed by one column per aggregate, with
// groups in order of first appearance in t.
//
// With Workers > 1 rows are hash-partitioned on the key (xxh3) and each
// shard is aggregated by its own goroutine. Shards own disjoint key sets, so
// merging them is a concatenation ordered by first appearance.
func GroupBy(t *table.Table, key string, aggs []Agg, opt GroupOptions) (*table.Table, error) {
	keyIdx, err := t.Lookup(key)
	if err != nil {
		return nil, fmt.Errorf("group by: %w", err)
	}
	keyCol, _ := t.Column(key)

	cols := []table.Column{keyCol}
	bound := make([]boundAgg, len(aggs))
	for i, a := range aggs {
		b := boundAgg{op: a.op}
		kind := table.Int
		if a.op != opCount {
			idx, err := t.Lookup(a.col)
			if err != nil {
				return nil, fmt.Errorf("group by: aggregate %s: %w", a.Name, err)
			}
			c := t.Columns()[idx]
			if c.Kind != table.Int && c.Kind != table.Float {
				return nil, fmt.Errorf("group by: aggregate %s: column %q is %s, want numeric", a.Name, a.col, c.Kind)
			}
			b.idx, b.isInt = idx, c.Kind == table.Int
			kind = table.Float
		}
		bound[i] = b
		cols = append(cols, table.Column{Name: a.Name, Kind: kind})
	}

	rows := t.Rows()
	var groups []*group
	if opt.Workers <= 1 || len(rows) < 2*opt.Workers {
		groups = aggregate(rows, keyIdx, bound, nil, 0)
	} else {
		groups, err = aggregateSharded(rows, keyIdx, bound, opt.Workers)
		if err != nil {
			return nil, err
		}
	}

	out := make([]table.Row, len(groups))
	for i, g := range groups {
		out[i] = g.row(bound)
	}
	return table.New(cols, out)
}

func aggregateSharded(rows []table.Row, keyIdx int, aggs []boundAgg, workers int) ([]*group, error) {
	shardOf := make([]uint32, len(rows))
	chunk := (len(rows) + workers - 1) / workers

	var hashing errgroup.Group
	for lo := 0; lo < len(rows); lo += chunk {
		lo, hi := lo, min(lo+chunk, len(rows))
		hashing.Go(func() error {
			for i := lo; i < hi; i++ {
				shardOf[i] = uint32(hashKey(rows[i][keyIdx]) % uint64(workers))
			}
			return nil
		})
	}
	if err := hashing.Wait(); err != nil {
		return nil, err
	}

	shards := make([][]*group, workers)
	var g errgroup.Group
	for s := 0; s < workers; s++ {
		s := s
		g.Go(func() error {
			shards[s] = aggregate(rows, keyIdx, aggs, shardOf, uint32(s))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var merged []*group
	for _, sh := range shards {
		merged = append(merged, sh...)
	}
	slices.SortFunc(merged, func(a, b *group) int { return a.first - b.first })
	return merged, nil
}

// aggregate folds the rows whose shard is s (all rows when shardOf is nil).
// Groups are returned in order of first appearance.
func aggregate(rows []table.Row, keyIdx int, aggs []boundAgg, shardOf []uint32, s uint32) []*group {
	byKey := make(map[any]*group)
	var order []*group
	for i, r := range rows {
		if shardOf != nil && shardOf[i] != s {
			continue
		}
		k := canonicalKey(r[keyIdx])
		g, ok := byKey[k]
		if !ok {
			g = &group{
				key:    r[keyIdx],
				first:  i,
				ints:   make([]int64, len(aggs)),
				floats: make([]float64, len(aggs)),
				ns:     make([]int64, len(aggs)),
			}
			byKey[k] = g
			order = append(order, g)
		}
		g.count++
		for j, a := range aggs {
			if a.op == opCount {
				continue
			}
			switch v := r[a.idx].(type) {
			case int64:
				g.ints[j] += v
				g.ns[j]++
			case float64:
				g.floats[j] += v
				g.ns[j]++
			}
		}
	}
	return order
}

func (g *group) row(aggs []boundAgg) table.Row {
	out := make(table.Row, 1+len(aggs))
	out[0] = g.key
	for j, a := range aggs {
		var v any
		switch {
		case a.op == opCount:
			v = g.count
		case g.ns[j] == 0:
			v = nil
		case a.isInt:
			v = float64(g.ints[j]) / float64(g.ns[j])
		default:
			v = g.floats[j] / float64(g.ns[j])
		}
		out[1+j] = v
	}
	return out
}

// nanKey stands in for every NaN so NaN keys form a single group.
type nanKey struct{}

// canonicalKey maps values that compare equal to one map key.
func canonicalKey(v any) any {
	if f, ok := v.(float64); ok {
		switch {
		case math.IsNaN(f):
			return nanKey{}
		case f == 0:
			return 0.0
		}
	}
	return v
}

// hashKey hashes the canonical key; equal keys always land in one shard.
func hashKey(v any) uint64 {
	switch k := canonicalKey(v).(type) {
	case nil:
		return 0
	case nanKey:
		return 1
	case string:
		return xxh3.HashString(k)
	default:
		return xxh3.HashString(table.Format(k))
	}
}
