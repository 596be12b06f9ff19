// Package normalize turns a raw review table into the cleaned table.
//
// The rules run in a fixed order and never drop or fail a row:
//
//  1. rating is cast to a 32-bit integer; anything that does not cast
//     becomes 0.
//  2. review_date is parsed as yyyy-MM-dd; anything that does not parse
//     becomes NULL.
//  3. review_text NULL becomes "No review text".
//  4. product_id_upper is derived as the Unicode uppercase of product_id.
//
// Every other column passes through unchanged and in place.
package normalize

import (
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"reviewetl/internal/table"
)

// Column names read or produced by Normalize.
const (
	ColProductID      = "product_id"
	ColRating         = "rating"
	ColReviewDate     = "review_date"
	ColReviewText     = "review_text"
	ColCustomerID     = "customer_id"
	ColProductIDUpper = "product_id_upper"
)

// DefaultReviewText replaces a missing review_text.
const DefaultReviewText = "No review text"

// ErrMissingColumn is returned when the raw table lacks a column the rules
// read.
var ErrMissingColumn = errors.New("missing required column")

// Required lists the raw columns Normalize reads.
var Required = []string{ColProductID, ColRating, ColReviewDate, ColReviewText}

// Options tunes parallelism. Output never depends on it.
type Options struct {
	// Workers is the number of goroutines; <= 0 means GOMAXPROCS.
	Workers int
	// ChunkSize is the number of contiguous rows per task; <= 0 means 4096.
	ChunkSize int
}

// Normalize applies the cleaning rules to every row of raw. It does not
// modify raw.
func Normalize(raw *table.Table, opt Options) (*table.Table, error) {
	p, err := compile(raw)
	if err != nil {
		return nil, err
	}

	workers := opt.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	chunk := opt.ChunkSize
	if chunk <= 0 {
		chunk = 4096
	}

	n := raw.Len()
	rows := make([]table.Row, n)

	var g errgroup.Group
	g.SetLimit(workers)
	for lo := 0; lo < n; lo += chunk {
		lo, hi := lo, min(lo+chunk, n)
		g.Go(func() error {
			// cases.Caser keeps state; one per task.
			up := newUpper()
			for i := lo; i < hi; i++ {
				rows[i] = p.apply(raw.Row(i), up)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return table.New(p.cols, rows)
}

// plan is the per-column rule set bound to one raw schema.
type plan struct {
	cols    []table.Column
	rules   []func(any) any // indexed by raw column; nil = pass through
	src     int             // product_id position
	dst     int             // product_id_upper position in the output
	appends bool            // dst is a new trailing column
}

func compile(raw *table.Table) (*plan, error) {
	for _, name := range Required {
		if _, ok := raw.Index(name); !ok {
			return nil, fmt.Errorf("normalize: %w %q (have %v)", ErrMissingColumn, name, raw.Names())
		}
	}

	cols := raw.Columns()
	p := &plan{rules: make([]func(any) any, len(cols))}
	for i, c := range cols {
		switch c.Name {
		case ColRating:
			cols[i].Kind = table.Int
			p.rules[i] = cleanRating
		case ColReviewDate:
			cols[i].Kind = table.Date
			p.rules[i] = cleanDate
		case ColReviewText:
			cols[i].Kind = table.String
			p.rules[i] = cleanText
		}
	}

	p.src, _ = raw.Index(ColProductID)
	if i, ok := raw.Index(ColProductIDUpper); ok {
		// Re-running over already cleaned data replaces the column in place.
		cols[i].Kind = table.String
		p.dst = i
	} else {
		cols = append(cols, table.Column{Name: ColProductIDUpper, Kind: table.String})
		p.dst = len(cols) - 1
		p.appends = true
	}
	p.cols = cols
	return p, nil
}

func (p *plan) apply(in table.Row, up *upper) table.Row {
	width := len(in)
	if p.appends {
		width++
	}
	out := make(table.Row, width)
	for i, v := range in {
		if r := p.rules[i]; r != nil {
			out[i] = r(v)
		} else {
			out[i] = v
		}
	}
	out[p.dst] = up.of(in[p.src])
	return out
}

func cleanRating(v any) any {
	n, ok := castInt(v)
	if !ok {
		return int64(0)
	}
	return n
}

func cleanDate(v any) any {
	d, ok := parseDate(v)
	if !ok {
		return nil
	}
	return d
}

func cleanText(v any) any {
	switch x := v.(type) {
	case nil:
		return DefaultReviewText
	case string:
		return x
	default:
		return table.Format(x)
	}
}
