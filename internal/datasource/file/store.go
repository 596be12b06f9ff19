// Package file implements the local filesystem Store.
package file

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"reviewetl/internal/datasource"
)

// Store is a datasource.Store over the local filesystem.
type Store struct{}

var _ datasource.Store = Store{}

// NewStore returns a local filesystem store.
func NewStore() Store { return Store{} }

// List returns location itself when it is a file, or every regular file
// below it when it is a directory. Hidden directories are not descended.
// A location containing glob metacharacters is expanded with filepath.Glob
// and each match is listed the same way; a pattern matching nothing is an
// fs.ErrNotExist error.
func (Store) List(ctx context.Context, location string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !strings.ContainsAny(location, "*?[") {
		return listPath(location)
	}

	matches, err := filepath.Glob(location)
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", location, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("glob %s: %w", location, fs.ErrNotExist)
	}
	var out []string
	for _, m := range matches {
		names, err := listPath(m)
		if err != nil {
			return nil, err
		}
		out = append(out, names...)
	}
	return out, nil
}

func listPath(location string) ([]string, error) {
	fi, err := os.Stat(location)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", location, err)
	}
	if !fi.IsDir() {
		return []string{location}, nil
	}

	var out []string
	err = filepath.WalkDir(location, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == location {
			return nil
		}
		if datasource.Hidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			out = append(out, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", location, err)
	}
	return out, nil
}

// Open opens a file returned by List. A context that is already done
// short-circuits without touching the filesystem. Errors carry the path and
// still satisfy errors.Is(err, fs.ErrNotExist).
func (Store) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	adviseSequential(f)
	return f, nil
}
