package datasource

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"

	"reviewetl/internal/csvio"
	"reviewetl/internal/table"
)

// Loader is a Source backed by a Store.
type Loader struct {
	store  Store
	logger *zap.Logger
}

// NewLoader returns a Loader reading through store. A nil logger disables
// logging.
func NewLoader(store Store, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{store: store, logger: logger}
}

// Load discovers every data file under locations, decodes them with the same
// options and concatenates their records. All files must share the first
// file's header (or column count for headerless input).
func (l *Loader) Load(ctx context.Context, locations []string, opt LoadOptions) (*table.Table, error) {
	if f := strings.ToLower(opt.Format); f != "" && f != "csv" {
		return nil, fmt.Errorf("%w %q", ErrUnsupportedFormat, opt.Format)
	}
	if len(locations) == 0 {
		return nil, fmt.Errorf("load: %w: no locations", ErrNoInput)
	}

	var files []string
	for _, loc := range locations {
		names, err := l.store.List(ctx, loc)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", loc, err)
		}
		names = slices.DeleteFunc(names, Hidden)
		slices.Sort(names)
		files = append(files, names...)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("load %v: %w", locations, ErrNoInput)
	}

	ropt := csvio.ReadOptions{
		HasHeader:        opt.HeaderPresent,
		Comma:            opt.Comma,
		CanonicalHeaders: opt.CanonicalHeaders,
		HeaderMap:        opt.HeaderMap,
		TrimSpace:        opt.TrimSpace,
	}

	merged := &csvio.Raw{}
	for _, name := range files {
		raw, err := l.readOne(ctx, name, ropt)
		if err != nil {
			return nil, err
		}
		l.logger.Debug("input file read",
			zap.String("file", name),
			zap.Int("rows", len(raw.Records)),
		)
		if raw.Header == nil {
			// Empty file: contributes nothing and fixes nothing.
			continue
		}
		if merged.Header == nil {
			merged.Header = raw.Header
		} else if !slices.Equal(merged.Header, raw.Header) {
			return nil, fmt.Errorf("%s: %w: header %v, want %v", name, ErrSchemaMismatch, raw.Header, merged.Header)
		}
		merged.Records = append(merged.Records, raw.Records...)
	}
	if merged.Header == nil {
		return nil, fmt.Errorf("load %v: %w: all files empty", locations, ErrNoInput)
	}

	t, err := csvio.ToTable(merged, opt.InferTypes)
	if err != nil {
		return nil, fmt.Errorf("build table: %w", err)
	}
	l.logger.Info("input loaded",
		zap.Int("files", len(files)),
		zap.Int("rows", t.Len()),
		zap.Strings("columns", t.Names()),
	)
	return t, nil
}

func (l *Loader) readOne(ctx context.Context, name string, opt csvio.ReadOptions) (*csvio.Raw, error) {
	rc, err := l.store.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var r io.Reader = rc
	if strings.HasSuffix(strings.ToLower(name), ".gz") {
		zr, err := gzip.NewReader(rc)
		if err != nil {
			return nil, fmt.Errorf("gunzip %s: %w", name, err)
		}
		defer zr.Close()
		r = zr
	}

	raw, err := csvio.Read(r, opt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return raw, nil
}
