package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-sql/civil"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"reviewetl/internal/ddl"
	"reviewetl/internal/table"
)

// TxCopier bulk-inserts into fqn inside tx. The default prepares a
// single-row INSERT and executes it per row.
type TxCopier func(ctx context.Context, tx *sqlx.Tx, fqn string, columns []string) (CopyFn, func() error, error)

// SQLOptions customize a SQLSink for one backend.
type SQLOptions struct {
	Dialect ddl.Dialect
	// Swap, when set, replaces tables through a staging table because the
	// database commits DDL implicitly. It returns the statements that move
	// staging into place and drop whatever is left over.
	Swap func(d ddl.Dialect, target, staging string) []string
	// Copier overrides the row insert strategy.
	Copier TxCopier
	// Value converts a table value to a driver argument. Defaults to
	// DriverValue.
	Value     func(any) any
	BatchSize int
	Logger    *zap.Logger
}

// SQLSink replaces one table per destination in a database/sql database.
type SQLSink struct {
	db  *sqlx.DB
	opt SQLOptions
}

var _ Sink = (*SQLSink)(nil)

// NewSQLSink wraps db. The sink owns db and closes it on Close.
func NewSQLSink(db *sqlx.DB, opt SQLOptions) *SQLSink {
	if opt.BatchSize <= 0 {
		opt.BatchSize = DefaultBatchSize
	}
	if opt.Logger == nil {
		opt.Logger = zap.NewNop()
	}
	if opt.Value == nil {
		opt.Value = DriverValue
	}
	if opt.Copier == nil {
		opt.Copier = insertCopier(opt.Dialect)
	}
	return &SQLSink{db: db, opt: opt}
}

// DB exposes the underlying handle, mainly for tests.
func (s *SQLSink) DB() *sqlx.DB { return s.db }

// Close closes the database handle.
func (s *SQLSink) Close() error { return s.db.Close() }

// Save replaces the table named after destination with the contents of t.
// Readers see either the previous contents or the new ones.
func (s *SQLSink) Save(ctx context.Context, t *table.Table, destination string, _ SaveOptions) error {
	name, err := TableName(destination)
	if err != nil {
		return err
	}
	if s.opt.Swap == nil {
		return s.replaceInTx(ctx, t, name)
	}
	return s.replaceViaStaging(ctx, t, name)
}

func (s *SQLSink) replaceInTx(ctx context.Context, t *table.Table, name string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin tx: %w", s.opt.Dialect.Name, err)
	}
	if err := s.createAndFill(ctx, tx, t, name); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", s.opt.Dialect.Name, err)
	}
	return nil
}

func (s *SQLSink) replaceViaStaging(ctx context.Context, t *table.Table, name string) error {
	staging := name + "__staging"
	if err := s.replaceInTx(ctx, t, staging); err != nil {
		return err
	}
	for _, stmt := range s.opt.Swap(s.opt.Dialect, name, staging) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%s: swap %s: %w", s.opt.Dialect.Name, name, err)
		}
	}
	return nil
}

func (s *SQLSink) createAndFill(ctx context.Context, tx *sqlx.Tx, t *table.Table, name string) error {
	d := s.opt.Dialect
	def, err := ddl.FromTable(name, t, d)
	if err != nil {
		return err
	}
	create, err := ddl.BuildCreateTableSQL(def, d)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, ddl.DropTableSQL(name, d)); err != nil {
		return fmt.Errorf("%s: drop %s: %w", d.Name, name, err)
	}
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("%s: create %s: %w", d.Name, name, err)
	}

	copyFn, done, err := s.opt.Copier(ctx, tx, name, t.Names())
	if err != nil {
		return fmt.Errorf("%s: prepare insert into %s: %w", d.Name, name, err)
	}
	start := time.Now()
	n, err := LoadBatches(ctx, s.opt.Logger, t.Names(), convertRows(t.Rows(), s.opt.Value), s.opt.BatchSize, copyFn)
	if derr := done(); err == nil {
		err = derr
	}
	if err != nil {
		return fmt.Errorf("%s: insert into %s: %w", d.Name, name, err)
	}
	s.opt.Logger.Debug("table replaced",
		zap.String("backend", d.Name),
		zap.String("table", name),
		zap.Int64("rows", n),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

func insertCopier(d ddl.Dialect) TxCopier {
	return func(ctx context.Context, tx *sqlx.Tx, fqn string, columns []string) (CopyFn, func() error, error) {
		stmt, err := tx.PreparexContext(ctx, tx.Rebind(ddl.InsertSQL(fqn, columns, d)))
		if err != nil {
			return nil, nil, err
		}
		copyFn := func(ctx context.Context, _ []string, rows [][]any) (int64, error) {
			var n int64
			for _, r := range rows {
				if _, err := stmt.ExecContext(ctx, r...); err != nil {
					return n, err
				}
				n++
			}
			return n, nil
		}
		return copyFn, stmt.Close, nil
	}
}

func convertRows(rows []table.Row, conv func(any) any) []table.Row {
	out := make([]table.Row, len(rows))
	for i, r := range rows {
		c := make(table.Row, len(r))
		for j, v := range r {
			c[j] = conv(v)
		}
		out[i] = c
	}
	return out
}

// DriverValue maps table values to types every database/sql driver accepts:
// dates become midnight UTC time.Time.
func DriverValue(v any) any {
	if d, ok := v.(civil.Date); ok {
		return d.In(time.UTC)
	}
	return v
}

// TextDateValue renders dates as yyyy-MM-dd text, for databases without a
// DATE type.
func TextDateValue(v any) any {
	if d, ok := v.(civil.Date); ok {
		return d.String()
	}
	return v
}
