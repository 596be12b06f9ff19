// Package mysql registers the "mysql" sink kind. MySQL commits DDL
// implicitly, so each table is built under a staging name and then renamed
// into place atomically.
package mysql

import (
	"context"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"reviewetl/internal/ddl"
	"reviewetl/internal/storage"
)

// DriverName is the database/sql driver registered by go-sql-driver/mysql.
const DriverName = "mysql"

// open is a test hook.
var open = Open

func init() {
	storage.Register("mysql", func(ctx context.Context, cfg storage.Config) (storage.Sink, error) {
		db, err := open(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return New(db, cfg), nil
	})
}

// Open parses dsn, connects and pings. The DSN uses the driver's format,
// e.g. "user:pass@tcp(localhost:3306)/reviews".
func Open(ctx context.Context, dsn string) (*sqlx.DB, error) {
	c, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("mysql dsn: %w", err)
	}
	c.ParseTime = true
	c.Loc = time.UTC

	db, err := sqlx.Open(DriverName, c.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("mysql: open: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("mysql: ping: %w", err)
	}
	return db, nil
}

// New wraps an open database as a sink.
func New(db *sqlx.DB, cfg storage.Config) *storage.SQLSink {
	return storage.NewSQLSink(db, storage.SQLOptions{
		Dialect:   ddl.MySQL,
		Swap:      swapStatements,
		BatchSize: cfg.BatchSize,
		Logger:    cfg.Logger,
	})
}

// swapStatements moves staging into target with a single RENAME TABLE,
// creating an empty target first so the rename also works on the first run.
func swapStatements(d ddl.Dialect, target, staging string) []string {
	old := target + "__old"
	return []string{
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s LIKE %s", d.QuoteFQN(target), d.QuoteFQN(staging)),
		ddl.DropTableSQL(old, d),
		fmt.Sprintf("RENAME TABLE %s TO %s, %s TO %s",
			d.QuoteFQN(target), d.QuoteFQN(old), d.QuoteFQN(staging), d.QuoteFQN(target)),
		ddl.DropTableSQL(old, d),
	}
}
