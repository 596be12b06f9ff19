// Package sqlite registers the "sqlite" sink kind: every destination becomes
// a table in one SQLite database file, replaced inside a transaction.
package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"reviewetl/internal/ddl"
	"reviewetl/internal/storage"
)

// DriverName is the database/sql driver registered by modernc.org/sqlite.
const DriverName = "sqlite"

// open is a test hook.
var open = Open

func init() {
	sqlx.BindDriver(DriverName, sqlx.QUESTION)

	storage.Register("sqlite", func(ctx context.Context, cfg storage.Config) (storage.Sink, error) {
		db, err := open(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return New(db, cfg), nil
	})
}

// Open connects to the database at dsn and checks it with a ping. A DSN is a
// file path or a "file:" URI, e.g. "file:reviews.db?_pragma=busy_timeout(5000)".
func Open(ctx context.Context, dsn string) (*sqlx.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("sqlite: DSN must not be empty")
	}
	db, err := sqlx.Open(DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	// One writer at a time; also keeps ":memory:" on a single connection.
	db.SetMaxOpenConns(1)
	return db, nil
}

// New wraps an open database as a sink.
func New(db *sqlx.DB, cfg storage.Config) *storage.SQLSink {
	return storage.NewSQLSink(db, storage.SQLOptions{
		Dialect:   ddl.SQLite,
		Value:     storage.TextDateValue,
		BatchSize: cfg.BatchSize,
		Logger:    cfg.Logger,
	})
}
