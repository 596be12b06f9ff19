package postgres

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/golang-sql/civil"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"reviewetl/internal/storage"
	"reviewetl/internal/table"
)

func summary() *table.Table {
	return table.MustNew([]table.Column{
		{Name: "product_id_upper", Kind: table.String},
		{Name: "average_rating", Kind: table.Float},
		{Name: "review_count", Kind: table.Int},
		{Name: "first_seen", Kind: table.Date},
	}, []table.Row{
		{"ABC", 2.5, int64(2), civil.Date{Year: 2024, Month: 1, Day: 1}},
		{nil, 1.0, int64(1), nil},
	})
}

func TestReplaceStatements(t *testing.T) {
	t.Parallel()

	got, err := replaceStatements("analytics", summary())
	if err != nil {
		t.Fatalf("replaceStatements: %v", err)
	}
	want := []string{
		`DROP TABLE IF EXISTS "analytics"`,
		"CREATE TABLE \"analytics\" (\n  \"product_id_upper\" TEXT,\n  \"average_rating\" DOUBLE PRECISION,\n  \"review_count\" BIGINT,\n  \"first_seen\" DATE\n)",
	}
	if len(got) != len(want) {
		t.Fatalf("got %d statements, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("statement %d:\n got: %q\nwant: %q", i, got[i], want[i])
		}
	}
}

func TestPgError(t *testing.T) {
	t.Parallel()

	base := &pgconn.PgError{Code: "23502", Message: "null value", Detail: "Failing row contains (null)."}
	err := pgError(base)
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		t.Fatalf("pgError lost the *PgError: %v", err)
	}
	if got := err.Error(); got == base.Error() {
		t.Fatalf("detail not appended: %q", got)
	}

	plain := errors.New("boom")
	if pgError(plain) != plain {
		t.Fatal("plain errors must pass through unchanged")
	}
}

func TestRegistration_UsesPoolHook(t *testing.T) {
	orig := newPool
	defer func() { newPool = orig }()

	want := errors.New("refused")
	var gotDSN string
	newPool = func(_ context.Context, dsn string) (*pgxpool.Pool, error) {
		gotDSN = dsn
		return nil, want
	}

	dsn := "postgresql://u:p@localhost:5432/db?sslmode=disable"
	_, err := storage.New(context.Background(), storage.Config{Kind: "postgres", DSN: dsn})
	if !errors.Is(err, want) {
		t.Fatalf("err = %v, want %v", err, want)
	}
	if gotDSN != dsn {
		t.Fatalf("dsn = %q, want %q", gotDSN, dsn)
	}
}

// TestSave_Integration runs against a real server when
// REVIEWETL_TEST_POSTGRES_DSN is set.
func TestSave_Integration(t *testing.T) {
	dsn := os.Getenv("REVIEWETL_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("REVIEWETL_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()

	s, err := storage.New(ctx, storage.Config{Kind: "postgres", DSN: dsn, BatchSize: 1})
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	defer s.Close()

	for i := 0; i < 2; i++ {
		if err := s.Save(ctx, summary(), "reviewetl_it/product_rating_summary", storage.SaveOptions{}); err != nil {
			t.Fatalf("Save #%d: %v", i+1, err)
		}
	}

	var n int
	pool := s.(*Sink).pool
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM "reviewetl_it_product_rating_summary"`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Fatalf("rows = %d, want 2", n)
	}
	_, _ = pool.Exec(ctx, `DROP TABLE "reviewetl_it_product_rating_summary"`)
}
