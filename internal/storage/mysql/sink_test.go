package mysql

import (
	"context"
	"errors"
	"os"
	"reflect"
	"testing"

	"github.com/jmoiron/sqlx"

	"reviewetl/internal/ddl"
	"reviewetl/internal/storage"
	"reviewetl/internal/table"
)

func TestSwapStatements(t *testing.T) {
	t.Parallel()

	got := swapStatements(ddl.MySQL, "daily", "daily__staging")
	want := []string{
		"CREATE TABLE IF NOT EXISTS `daily` LIKE `daily__staging`",
		"DROP TABLE IF EXISTS `daily__old`",
		"RENAME TABLE `daily` TO `daily__old`, `daily__staging` TO `daily`",
		"DROP TABLE IF EXISTS `daily__old`",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("swapStatements:\n got: %q\nwant: %q", got, want)
	}
}

func TestOpen_RejectsBadDSN(t *testing.T) {
	t.Parallel()

	if _, err := Open(context.Background(), "not a dsn"); err == nil {
		t.Fatal("expected DSN error")
	}
}

func TestRegistration_UsesOpenHook(t *testing.T) {
	orig := open
	defer func() { open = orig }()

	want := errors.New("access denied")
	open = func(context.Context, string) (*sqlx.DB, error) { return nil, want }

	_, err := storage.New(context.Background(), storage.Config{Kind: "mysql", DSN: "u:p@tcp(localhost:3306)/db"})
	if !errors.Is(err, want) {
		t.Fatalf("err = %v, want %v", err, want)
	}
}

// TestSave_Integration runs against a real server when
// REVIEWETL_TEST_MYSQL_DSN is set.
func TestSave_Integration(t *testing.T) {
	dsn := os.Getenv("REVIEWETL_TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("REVIEWETL_TEST_MYSQL_DSN not set")
	}
	ctx := context.Background()

	db, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	s := New(db, storage.Config{})
	defer s.Close()

	tbl := table.MustNew([]table.Column{
		{Name: "rating", Kind: table.Int},
		{Name: "rating_count", Kind: table.Int},
		{Name: "percentage", Kind: table.Float},
	}, []table.Row{{int64(4), int64(1), 50.0}, {int64(5), int64(1), 50.0}})

	for i := 0; i < 2; i++ {
		if err := s.Save(ctx, tbl, "reviewetl_it_rating_distribution", storage.SaveOptions{}); err != nil {
			t.Fatalf("Save #%d: %v", i+1, err)
		}
	}
	var n int
	if err := s.DB().GetContext(ctx, &n, "SELECT COUNT(*) FROM `reviewetl_it_rating_distribution`"); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Fatalf("rows = %d, want 2", n)
	}
	_, _ = s.DB().ExecContext(ctx, "DROP TABLE `reviewetl_it_rating_distribution`")
}
