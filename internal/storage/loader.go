package storage

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"reviewetl/internal/table"
)

// CopyFn abstracts a backend's bulk insert. Implementations insert rows
// (aligned to columns) and return the number of rows inserted.
type CopyFn func(ctx context.Context, columns []string, rows [][]any) (int64, error)

// DefaultBatchSize is used when Config.BatchSize is unset.
const DefaultBatchSize = 5000

// LoadBatches feeds rows to copyFn in batches of batchSize and returns the
// total reported by copyFn. It stops at the first error or when ctx is done.
// Progress is logged at debug level after every batch.
func LoadBatches(
	ctx context.Context,
	logger *zap.Logger,
	columns []string,
	rows []table.Row,
	batchSize int,
	copyFn CopyFn,
) (int64, error) {
	if batchSize <= 0 {
		return 0, fmt.Errorf("batchSize must be > 0")
	}
	if copyFn == nil {
		return 0, fmt.Errorf("copyFn must not be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		total   int64
		batches int
		start   = time.Now()
		slab    = make([][]any, 0, min(batchSize, len(rows)))
	)
	for lo := 0; lo < len(rows); lo += batchSize {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		slab = slab[:0]
		for _, r := range rows[lo:min(lo+batchSize, len(rows))] {
			slab = append(slab, r)
		}

		n, err := copyFn(ctx, columns, slab)
		total += n
		if err != nil {
			logger.Warn("batch insert failed",
				zap.Int("batch", batches+1),
				zap.Int64("total_inserted", total),
				zap.Error(err),
			)
			return total, err
		}
		batches++

		elapsed := time.Since(start)
		rps := 0.0
		if elapsed > 0 {
			rps = float64(total) / elapsed.Seconds()
		}
		logger.Debug("batch inserted",
			zap.Int("batch", batches),
			zap.Int64("inserted", n),
			zap.Int64("total_inserted", total),
			zap.Float64("rps", rps),
			zap.Duration("elapsed", elapsed.Truncate(time.Millisecond)),
		)
	}
	return total, nil
}
