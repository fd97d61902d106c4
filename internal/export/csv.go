package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/JonMunkholm/prism/internal/table"
)

// WriteCSV writes t as UTF-8 CSV with a header row. Missing cells are
// written as empty fields.
func WriteCSV(w io.Writer, t *table.Table, opts Options) error {
	cw := csv.NewWriter(w)

	header := t.Names()
	if opts.IncludeIndex {
		header = append([]string{IndexColumn}, header...)
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	index := t.Index()
	record := make([]string, len(header))
	for i := 0; i < t.NumRows(); i++ {
		record = record[:0]
		if opts.IncludeIndex {
			record = append(record, strconv.Itoa(index[i]))
		}
		for _, c := range t.Row(i) {
			record = append(record, c.String())
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row %d: %w", i, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}
