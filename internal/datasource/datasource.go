// Package datasource loads tabular input for the pipeline.
//
// A Store knows how to enumerate and open raw objects (local files, S3
// objects, HTTP resources). The Loader turns the objects under a set of
// locations into a single table.Table.
package datasource

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"

	"reviewetl/internal/table"
)

var (
	// ErrSchemaMismatch is returned when input files disagree on their header.
	ErrSchemaMismatch = errors.New("schema mismatch")

	// ErrUnsupportedFormat is returned for any format other than csv.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrNoInput is returned when the locations contain no data files.
	ErrNoInput = errors.New("no input files")
)

// LoadOptions controls how raw objects are decoded.
type LoadOptions struct {
	Format           string // "csv" (default)
	HeaderPresent    bool
	InferTypes       bool
	Comma            rune
	CanonicalHeaders bool
	HeaderMap        map[string]string
	TrimSpace        bool // trim surrounding whitespace from every field
}

// Source produces a table from a list of locations.
type Source interface {
	Load(ctx context.Context, locations []string, opt LoadOptions) (*table.Table, error)
}

// Store enumerates and opens raw objects.
type Store interface {
	// List returns the data objects under location, recursively. A location
	// naming a single object returns just that object. A location that does
	// not exist is an error.
	List(ctx context.Context, location string) ([]string, error)

	// Open returns the content of an object returned by List.
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// Hidden reports whether a file or directory name is skipped during
// discovery: names starting with "_" (e.g. _SUCCESS) or ".".
func Hidden(name string) bool {
	base := path.Base(strings.TrimSuffix(name, "/"))
	return strings.HasPrefix(base, "_") || strings.HasPrefix(base, ".")
}
