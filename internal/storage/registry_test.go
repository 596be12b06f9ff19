package storage

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"reviewetl/internal/table"
)

// fakeSink records saved destinations.
type fakeSink struct {
	saved  []string
	closed bool
}

func (f *fakeSink) Save(_ context.Context, _ *table.Table, dest string, _ SaveOptions) error {
	f.saved = append(f.saved, dest)
	return nil
}

func (f *fakeSink) Close() error { f.closed = true; return nil }

func TestRegisterAndNew(t *testing.T) {
	t.Parallel()

	Register("Fake", func(context.Context, Config) (Sink, error) { return &fakeSink{}, nil })

	s, err := New(context.Background(), Config{Kind: "fake"})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if _, ok := s.(*fakeSink); !ok {
		t.Fatalf("New returned %T, want *fakeSink", s)
	}
	if !slices.Contains(ListKinds(), "fake") {
		t.Fatalf("ListKinds %v missing fake", ListKinds())
	}
}

func TestNew_Unsupported(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), Config{Kind: "does-not-exist"})
	if err == nil || !strings.Contains(err.Error(), `unsupported sink.kind="does-not-exist"`) {
		t.Fatalf("err = %v", err)
	}
}

func TestRegister_OverrideAndErrors(t *testing.T) {
	t.Parallel()

	calls := 0
	Register("override", func(context.Context, Config) (Sink, error) { calls++; return &fakeSink{}, nil })
	Register("override", func(context.Context, Config) (Sink, error) { calls += 10; return &fakeSink{}, nil })
	if _, err := New(context.Background(), Config{Kind: "override"}); err != nil {
		t.Fatalf("New error: %v", err)
	}
	if calls != 10 {
		t.Fatalf("factory calls = %d, want 10", calls)
	}

	want := errors.New("boom")
	Register("errkind", func(context.Context, Config) (Sink, error) { return nil, want })
	if _, err := New(context.Background(), Config{Kind: "errkind"}); !errors.Is(err, want) {
		t.Fatalf("want %v, got %v", want, err)
	}
}

func TestTableName(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"cleaned", "cleaned"},
		{"out/analytics/", "out_analytics"},
		{"out/analytics/daily_review_trends/", "out_analytics_daily_review_trends"},
		{"s3://bucket/Processed Reviews/", "bucket_processed_reviews"},
		{"/abs//path/", "abs_path"},
		{"2024/out", "t_2024_out"},
	}
	for _, c := range cases {
		got, err := TableName(c.in)
		if err != nil {
			t.Fatalf("TableName(%q): %v", c.in, err)
		}
		if got != c.want {
			t.Errorf("TableName(%q) = %q, want %q", c.in, got, c.want)
		}
	}

	if _, err := TableName("s3:///"); err == nil {
		t.Fatal(`TableName("s3:///") = nil error`)
	}
}

func TestCheckFormat(t *testing.T) {
	t.Parallel()

	for _, f := range []string{"", "csv", "CSV"} {
		if err := CheckFormat(SaveOptions{Format: f}); err != nil {
			t.Errorf("CheckFormat(%q) = %v", f, err)
		}
	}
	if err := CheckFormat(SaveOptions{Format: "parquet"}); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("CheckFormat(parquet) = %v", err)
	}
}
