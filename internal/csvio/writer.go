package csvio

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"

	"reviewetl/internal/table"
)

// Write renders t as CSV with a header row. Values are formatted with
// table.Format, so NULL becomes an empty cell.
func Write(w io.Writer, t *table.Table) error {
	bw := bufio.NewWriterSize(w, 64<<10)
	cw := csv.NewWriter(bw)

	if err := cw.Write(t.Names()); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	rec := make([]string, t.Width())
	for i := 0; i < t.Len(); i++ {
		for j, v := range t.Row(i) {
			rec[j] = table.Format(v)
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write csv row %d: %w", i, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return bw.Flush()
}
