// Package csvio reads delimited text into raw string records and writes
// tables back out as CSV.
//
// Reading follows the permissive behavior of Spark's CSV source: quoting is
// lenient, short rows are padded with NULLs, long rows are truncated and
// empty cells become NULL. No row is ever dropped; a record the csv reader
// cannot tokenize at all is a fatal error for the file.
package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// utf8BOM is stripped from the first header cell if present.
const utf8BOM = "\uFEFF"

// ReadOptions configures Read. The zero value reads comma separated input
// without a header row.
type ReadOptions struct {
	// HasHeader indicates whether the first row contains column headers.
	HasHeader bool

	// Comma specifies the field delimiter. When zero, ',' is used.
	Comma rune

	// TrimSpace trims leading/trailing whitespace from each field value.
	TrimSpace bool

	// CanonicalHeaders rewrites header names to lower snake_case ASCII
	// ("Review Date" -> "review_date", "Kód" -> "kod").
	CanonicalHeaders bool

	// HeaderMap maps source header names (after trimming) to column names.
	// Applied before canonicalization; mapped names are used verbatim.
	HeaderMap map[string]string
}

// Raw is the untyped content of one CSV input: a header and records whose
// values are either nil (empty cell) or string.
type Raw struct {
	Header  []string
	Records [][]any
}

// Read consumes all records from r.
func Read(r io.Reader, opt ReadOptions) (*Raw, error) {
	cr := csv.NewReader(r)
	if opt.Comma != 0 {
		cr.Comma = opt.Comma
	}
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	out := &Raw{}
	if opt.HasHeader {
		h, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read csv header: %w", err)
		}
		out.Header = normalizeHeaders(h, opt)
	}

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}

		if out.Header == nil {
			// Headerless input: the first record fixes the width.
			out.Header = positionalHeaders(len(rec))
		}

		row := make([]any, len(out.Header))
		for i := range row {
			if i >= len(rec) {
				break
			}
			v := rec[i]
			if opt.TrimSpace {
				v = strings.TrimSpace(v)
			}
			row[i] = emptyToNil(v)
		}
		out.Records = append(out.Records, row)
	}
	return out, nil
}

// positionalHeaders synthesizes Spark-style names _c0, _c1, ...
func positionalHeaders(n int) []string {
	h := make([]string, n)
	for i := range h {
		h[i] = fmt.Sprintf("_c%d", i)
	}
	return h
}

// emptyToNil converts an empty string to nil; all other values are returned as-is.
func emptyToNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// normalizeHeaders trims header cells, strips a UTF-8 BOM from the first one,
// applies HeaderMap and optionally canonicalizes the names. Blank or
// duplicate names are replaced by their positional name so the schema stays
// unique.
func normalizeHeaders(h []string, opt ReadOptions) []string {
	res := make([]string, len(h))
	seen := make(map[string]struct{}, len(h))
	for i, col := range h {
		c := col
		if i == 0 {
			c = strings.TrimPrefix(c, utf8BOM)
		}
		c = strings.TrimSpace(c)

		if m, ok := opt.HeaderMap[c]; ok && m != "" {
			c = m
		} else if opt.CanonicalHeaders {
			c = canonicalName(c)
		}

		if _, dup := seen[c]; c == "" || dup {
			c = fmt.Sprintf("_c%d", i)
		}
		seen[c] = struct{}{}
		res[i] = c
	}
	return res
}

// canonicalName lowercases s, removes diacritics and collapses every run of
// non [a-z0-9] characters into a single underscore.
func canonicalName(s string) string {
	t := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		norm.NFC,
	)
	ascii, _, _ := transform.String(t, strings.ToLower(s))

	var b strings.Builder
	prevUnderscore := false
	for _, r := range ascii {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prevUnderscore = false
		default:
			if !prevUnderscore && b.Len() > 0 {
				b.WriteByte('_')
				prevUnderscore = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}
