// Package file registers the "file" sink kind: every destination is a local
// directory holding exactly one CSV part file.
package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"reviewetl/internal/csvio"
	"reviewetl/internal/storage"
	"reviewetl/internal/table"
)

// PartPrefix starts the name of every data file a sink writes.
const PartPrefix = "part-"

func init() {
	storage.Register("file", func(_ context.Context, cfg storage.Config) (storage.Sink, error) {
		return New(cfg.Logger), nil
	})
}

// Sink writes CSV part files to local directories.
type Sink struct {
	logger *zap.Logger
	newID  func() string
}

var _ storage.Sink = (*Sink)(nil)

// New returns a file sink. A nil logger disables logging.
func New(logger *zap.Logger) *Sink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sink{logger: logger, newID: uuid.NewString}
}

// PartName returns the file name used for a part written with id.
func PartName(id string) string { return PartPrefix + "00000-" + id + ".csv" }

// Save writes t as the only part file in the directory destination. The new
// file is complete before older part files are removed; sub-directories and
// other files are left alone.
func (s *Sink) Save(ctx context.Context, t *table.Table, destination string, opt storage.SaveOptions) error {
	if err := storage.CheckFormat(opt); err != nil {
		return err
	}
	dir := strings.TrimPrefix(destination, "file://")
	if dir == "" {
		return fmt.Errorf("file sink: empty destination")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}

	name := PartName(s.newID())
	if err := writeAtomic(dir, name, t); err != nil {
		return err
	}
	removed, err := removeParts(dir, name)
	if err != nil {
		return err
	}
	s.logger.Debug("part file written",
		zap.String("path", filepath.Join(dir, name)),
		zap.Int("rows", t.Len()),
		zap.Int("replaced", removed),
	)
	return nil
}

// Close is a no-op.
func (s *Sink) Close() error { return nil }

func writeAtomic(dir, name string, t *table.Table) (err error) {
	tmp, err := os.CreateTemp(dir, ".tmp-"+name+"-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = csvio.Write(tmp, t); err != nil {
		return fmt.Errorf("encode csv: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", tmp.Name(), err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err = os.Rename(tmp.Name(), filepath.Join(dir, name)); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

// removeParts deletes regular part files in dir other than keep.
func removeParts(dir, keep string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read dir %s: %w", dir, err)
	}
	n := 0
	for _, e := range entries {
		if e.IsDir() || e.Name() == keep || !strings.HasPrefix(e.Name(), PartPrefix) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
			return n, fmt.Errorf("remove stale part: %w", err)
		}
		n++
	}
	return n, nil
}
