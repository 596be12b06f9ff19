// Package postgres registers the "postgres" sink kind. A destination maps to
// a table that is dropped, recreated and filled with COPY inside one
// transaction, so concurrent readers see either the old or the new table.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"reviewetl/internal/ddl"
	"reviewetl/internal/storage"
	"reviewetl/internal/table"
)

// newPool is a test hook.
var newPool = pgxpool.New

func init() {
	storage.Register("postgres", func(ctx context.Context, cfg storage.Config) (storage.Sink, error) {
		pool, err := newPool(ctx, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("pgxpool: %w", err)
		}
		return New(pool, cfg), nil
	})
}

// Sink writes tables to Postgres.
type Sink struct {
	pool      *pgxpool.Pool
	batchSize int
	logger    *zap.Logger
}

var _ storage.Sink = (*Sink)(nil)

// New wraps a pool. The sink closes the pool on Close.
func New(pool *pgxpool.Pool, cfg storage.Config) *Sink {
	s := &Sink{pool: pool, batchSize: cfg.BatchSize, logger: cfg.Logger}
	if s.batchSize <= 0 {
		s.batchSize = storage.DefaultBatchSize
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// Close closes the pool.
func (s *Sink) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// Save replaces the table named after destination.
func (s *Sink) Save(ctx context.Context, t *table.Table, destination string, _ storage.SaveOptions) error {
	name, err := storage.TableName(destination)
	if err != nil {
		return err
	}
	stmts, err := replaceStatements(name, t)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, q := range stmts {
		if _, err := tx.Exec(ctx, q); err != nil {
			return fmt.Errorf("postgres: %s: %w", name, pgError(err))
		}
	}

	copyFn := func(ctx context.Context, columns []string, rows [][]any) (int64, error) {
		return tx.CopyFrom(ctx, pgx.Identifier{name}, columns, pgx.CopyFromRows(rows))
	}
	n, err := storage.LoadBatches(ctx, s.logger, t.Names(), driverRows(t), s.batchSize, copyFn)
	if err != nil {
		return fmt.Errorf("postgres: copy into %s: %w", name, pgError(err))
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	s.logger.Debug("table replaced", zap.String("backend", "postgres"), zap.String("table", name), zap.Int64("rows", n))
	return nil
}

// replaceStatements returns the DROP and CREATE statements for name.
func replaceStatements(name string, t *table.Table) ([]string, error) {
	def, err := ddl.FromTable(name, t, ddl.Postgres)
	if err != nil {
		return nil, err
	}
	create, err := ddl.BuildCreateTableSQL(def, ddl.Postgres)
	if err != nil {
		return nil, err
	}
	return []string{ddl.DropTableSQL(name, ddl.Postgres), create}, nil
}

func driverRows(t *table.Table) []table.Row {
	out := make([]table.Row, t.Len())
	for i, r := range t.Rows() {
		c := make(table.Row, len(r))
		for j, v := range r {
			c[j] = storage.DriverValue(v)
		}
		out[i] = c
	}
	return out
}

// pgError surfaces the server's detail text when there is one.
func pgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Detail != "" {
		return fmt.Errorf("%w (%s: %s)", err, pgErr.SQLState(), pgErr.Detail)
	}
	return err
}
