package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"reviewetl/internal/storage"
	"reviewetl/internal/table"
)

func counts(n int64) *table.Table {
	return table.MustNew([]table.Column{
		{Name: "customer_id", Kind: table.String},
		{Name: "total_reviews_submitted", Kind: table.Int},
	}, []table.Row{{"c1", n}})
}

func parts(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), PartPrefix) {
			out = append(out, e.Name())
		}
	}
	return out
}

func TestSave_ReplacesPartKeepsSubdirs(t *testing.T) {
	t.Parallel()

	root := filepath.Join(t.TempDir(), "analytics")
	sub := filepath.Join(root, "daily_review_trends")
	s := New(nil)
	ctx := context.Background()

	if err := s.Save(ctx, counts(1), sub, storage.SaveOptions{SingleFile: true}); err != nil {
		t.Fatalf("Save sub: %v", err)
	}
	if err := s.Save(ctx, counts(1), root, storage.SaveOptions{SingleFile: true}); err != nil {
		t.Fatalf("Save root #1: %v", err)
	}
	if err := s.Save(ctx, counts(7), root, storage.SaveOptions{SingleFile: true}); err != nil {
		t.Fatalf("Save root #2: %v", err)
	}

	got := parts(t, root)
	if len(got) != 1 {
		t.Fatalf("root parts = %v, want exactly one", got)
	}
	b, err := os.ReadFile(filepath.Join(root, got[0]))
	if err != nil {
		t.Fatal(err)
	}
	if want := "customer_id,total_reviews_submitted\nc1,7\n"; string(b) != want {
		t.Fatalf("content = %q, want %q", b, want)
	}
	if len(parts(t, sub)) != 1 {
		t.Fatal("sub-directory part was removed")
	}
}

func TestSave_PartNameAndNoTempLeftovers(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s := New(nil)
	s.newID = func() string { return "fixed" }

	if err := s.Save(context.Background(), counts(2), "file://"+dir, storage.SaveOptions{}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 || entries[0].Name() != "part-00000-fixed.csv" {
		t.Fatalf("entries = %v, want only part-00000-fixed.csv", entries)
	}
}

func TestSave_Errors(t *testing.T) {
	t.Parallel()

	s := New(nil)
	if err := s.Save(context.Background(), counts(1), t.TempDir(), storage.SaveOptions{Format: "parquet"}); !errors.Is(err, storage.ErrUnsupportedFormat) {
		t.Fatalf("format err = %v", err)
	}
	if err := s.Save(context.Background(), counts(1), "", storage.SaveOptions{}); err == nil {
		t.Fatal("expected error for empty destination")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Save(ctx, counts(1), t.TempDir(), storage.SaveOptions{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("canceled err = %v", err)
	}
}

func TestRegistered(t *testing.T) {
	t.Parallel()

	s, err := storage.New(context.Background(), storage.Config{Kind: "file"})
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	if _, ok := s.(*Sink); !ok {
		t.Fatalf("got %T, want *file.Sink", s)
	}
}
