// Package output writes the cleaned table and the report tables through a
// storage sink, one artifact per destination, and records what it wrote.
package output

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/zeebo/xxh3"
	"go.uber.org/zap"

	"reviewetl/internal/csvio"
	"reviewetl/internal/storage"
	"reviewetl/internal/table"
)

// CleanedName is the artifact name of the cleaned table.
const CleanedName = "cleaned"

// Artifact describes one saved table. Checksum is the xxh3-64 of the table's
// CSV encoding, so it is the same whichever sink stored it.
type Artifact struct {
	Name        string   `yaml:"name"`
	Destination string   `yaml:"destination"`
	Rows        int      `yaml:"rows"`
	Columns     []string `yaml:"columns"`
	Bytes       int64    `yaml:"bytes"`
	Checksum    string   `yaml:"checksum"`
}

// Writer saves tables to their configured destinations.
type Writer struct {
	sink   storage.Sink
	dest   Destinations
	logger *zap.Logger
}

// NewWriter returns a Writer. A nil logger disables logging.
func NewWriter(sink storage.Sink, dest Destinations, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{sink: sink, dest: dest, logger: logger}
}

// saveOptions request a single CSV artifact per destination.
var saveOptions = storage.SaveOptions{Format: "csv", SingleFile: true}

// Write saves the named report. Failures are returned as *StageError.
func (w *Writer) Write(ctx context.Context, name string, t *table.Table) (Artifact, error) {
	dest, err := w.dest.For(name)
	if err != nil {
		return Artifact{}, &StageError{Stage: StageWrite, Err: err}
	}
	return w.save(ctx, name, dest, t)
}

// WriteCleaned saves the cleaned table.
func (w *Writer) WriteCleaned(ctx context.Context, t *table.Table) (Artifact, error) {
	if w.dest.Cleaned == "" {
		return Artifact{}, &StageError{Stage: StageWrite, Err: fmt.Errorf("no destination for the cleaned table")}
	}
	return w.save(ctx, CleanedName, w.dest.Cleaned, t)
}

func (w *Writer) save(ctx context.Context, name, dest string, t *table.Table) (Artifact, error) {
	w.logger.Info("writing artifact", zap.String("artifact", name), zap.String("destination", dest))

	start := time.Now()
	if err := w.sink.Save(ctx, t, dest, saveOptions); err != nil {
		return Artifact{}, &StageError{Stage: StageWrite, Destination: dest, Err: err}
	}
	a, err := Fingerprint(t)
	if err != nil {
		return Artifact{}, &StageError{Stage: StageWrite, Destination: dest, Err: err}
	}
	a.Name, a.Destination = name, dest

	w.logger.Info("artifact written",
		zap.String("artifact", name),
		zap.String("destination", dest),
		zap.Int("rows", a.Rows),
		zap.String("checksum", a.Checksum),
		zap.Duration("elapsed", time.Since(start)),
	)
	return a, nil
}

// Fingerprint encodes t as CSV and returns its size and checksum.
func Fingerprint(t *table.Table) (Artifact, error) {
	h := xxh3.New()
	cw := &countingWriter{w: h}
	if err := csvio.Write(cw, t); err != nil {
		return Artifact{}, err
	}
	return Artifact{
		Rows:     t.Len(),
		Columns:  t.Names(),
		Bytes:    cw.n,
		Checksum: fmt.Sprintf("%016x", h.Sum64()),
	}, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// String renders a short human form, used by the CLI summary.
func (a Artifact) String() string {
	return fmt.Sprintf("%s -> %s (%d rows, xxh3 %s)", a.Name, a.Destination, a.Rows, a.Checksum)
}
