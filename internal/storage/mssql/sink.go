// Package mssql registers the "mssql" sink kind. Tables are replaced inside
// one transaction and filled through the TDS bulk-copy protocol.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	mssql "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"

	"reviewetl/internal/ddl"
	"reviewetl/internal/storage"
)

// DriverName is the database/sql driver registered by go-mssqldb.
const DriverName = "sqlserver"

// open is a test hook.
var open = Open

func init() {
	storage.Register("mssql", func(ctx context.Context, cfg storage.Config) (storage.Sink, error) {
		db, err := open(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return New(db, cfg), nil
	})
}

// Open validates dsn, connects and pings.
func Open(ctx context.Context, dsn string) (*sqlx.DB, error) {
	if _, err := msdsn.Parse(dsn); err != nil {
		return nil, fmt.Errorf("mssql dsn: %w", err)
	}
	db, err := sqlx.Open(DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("mssql: open: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("mssql: ping: %w", err)
	}
	return db, nil
}

// New wraps an open database as a sink.
func New(db *sqlx.DB, cfg storage.Config) *storage.SQLSink {
	return storage.NewSQLSink(db, storage.SQLOptions{
		Dialect:   ddl.MSSQL,
		Copier:    bulkCopier,
		BatchSize: cfg.BatchSize,
		Logger:    cfg.Logger,
	})
}

// bulkCopier streams rows into a CopyIn statement. Rows are buffered by the
// driver and sent when done runs the final argument-less Exec.
func bulkCopier(ctx context.Context, tx *sqlx.Tx, fqn string, columns []string) (storage.CopyFn, func() error, error) {
	stmt, err := tx.PrepareContext(ctx, mssql.CopyIn(ddl.MSSQL.QuoteFQN(fqn), mssql.BulkOptions{Tablock: true}, columns...))
	if err != nil {
		return nil, nil, err
	}
	copyFn := func(ctx context.Context, _ []string, rows [][]any) (int64, error) {
		for i := range rows {
			if _, err := stmt.ExecContext(ctx, rows[i]...); err != nil {
				return int64(i), fmt.Errorf("bulk row %d: %w", i, err)
			}
		}
		return int64(len(rows)), nil
	}
	done := func() error { return finalize(ctx, stmt) }
	return copyFn, done, nil
}

func finalize(ctx context.Context, stmt *sql.Stmt) error {
	_, err := stmt.ExecContext(ctx)
	if cerr := stmt.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("bulk finalize: %w", err)
	}
	return nil
}
