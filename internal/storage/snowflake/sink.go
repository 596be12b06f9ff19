// Package snowflake registers the "snowflake" sink kind. Snowflake commits
// DDL implicitly, so each table is filled under a staging name and then
// exchanged with the target using ALTER TABLE ... SWAP WITH.
package snowflake

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	sf "github.com/snowflakedb/gosnowflake"

	"reviewetl/internal/ddl"
	"reviewetl/internal/storage"
)

// DriverName is the database/sql driver registered by gosnowflake.
const DriverName = "snowflake"

// open is a test hook.
var open = Open

func init() {
	sqlx.BindDriver(DriverName, sqlx.QUESTION)

	storage.Register("snowflake", func(ctx context.Context, cfg storage.Config) (storage.Sink, error) {
		db, err := open(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return New(db, cfg), nil
	})
}

// Open validates dsn, e.g. "user:pass@account/db/schema?warehouse=wh",
// connects and pings.
func Open(ctx context.Context, dsn string) (*sqlx.DB, error) {
	c, err := sf.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("snowflake dsn: %w", err)
	}
	if c.Database == "" || c.Schema == "" {
		return nil, fmt.Errorf("snowflake dsn: database and schema are required")
	}
	db, err := sqlx.Open(DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("snowflake: open: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("snowflake: ping: %w", err)
	}
	return db, nil
}

// New wraps an open database as a sink. Dates are bound as text and cast by
// the server.
func New(db *sqlx.DB, cfg storage.Config) *storage.SQLSink {
	return storage.NewSQLSink(db, storage.SQLOptions{
		Dialect:   ddl.Snowflake,
		Swap:      swapStatements,
		Value:     storage.TextDateValue,
		BatchSize: cfg.BatchSize,
		Logger:    cfg.Logger,
	})
}

func swapStatements(d ddl.Dialect, target, staging string) []string {
	return []string{
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s LIKE %s", d.QuoteFQN(target), d.QuoteFQN(staging)),
		fmt.Sprintf("ALTER TABLE %s SWAP WITH %s", d.QuoteFQN(staging), d.QuoteFQN(target)),
		ddl.DropTableSQL(staging, d),
	}
}
