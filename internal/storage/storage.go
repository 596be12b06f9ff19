// Package storage defines the tabular Sink contract and the factory that
// constructs sinks by kind.
//
// Backends live in sub-packages and register themselves from init; import
// reviewetl/internal/storage/all to enable every built-in kind.
//
// Every Save fully replaces what is stored at the destination. File-like
// sinks (file, s3) write exactly one CSV part file per destination when
// SingleFile is set. Database sinks map the destination to a table name and
// replace that table.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"reviewetl/internal/s3util"
	"reviewetl/internal/table"
)

// ErrUnsupportedFormat is returned by file-like sinks for formats other than
// csv.
var ErrUnsupportedFormat = errors.New("unsupported format")

// SaveOptions describe how a table is encoded at its destination.
type SaveOptions struct {
	Format     string // "csv" (default)
	SingleFile bool
}

// Sink persists tables.
type Sink interface {
	Save(ctx context.Context, t *table.Table, destination string, opt SaveOptions) error
	Close() error
}

// Config selects and configures a sink backend.
type Config struct {
	Kind string
	// DSN is the connection string for database kinds.
	DSN string
	// S3 configures the s3 kind.
	S3 s3util.Config
	// BatchSize bounds rows per insert batch for database kinds; <= 0 means
	// DefaultBatchSize.
	BatchSize int
	// Logger receives progress lines; nil disables them.
	Logger *zap.Logger
}

// CheckFormat validates opt.Format for file-like sinks.
func CheckFormat(opt SaveOptions) error {
	if f := strings.ToLower(opt.Format); f != "" && f != "csv" {
		return fmt.Errorf("%w %q", ErrUnsupportedFormat, opt.Format)
	}
	return nil
}

// TableName derives a SQL table name from a destination path:
// "out/analytics/daily_review_trends/" -> "out_analytics_daily_review_trends".
// Any URI scheme is dropped, every run of characters outside [a-z0-9_] becomes
// one underscore, and a leading digit is prefixed with "t_".
func TableName(destination string) (string, error) {
	d := destination
	if i := strings.Index(d, "://"); i >= 0 {
		d = d[i+3:]
	}
	d = strings.ToLower(strings.Trim(d, "/"))

	var b strings.Builder
	pending := false
	for _, r := range d {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_') {
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		pending = true
	}
	name := b.String()
	if name == "" {
		return "", fmt.Errorf("destination %q does not yield a table name", destination)
	}
	if name[0] >= '0' && name[0] <= '9' {
		name = "t_" + name
	}
	return name, nil
}
