package ingest

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/prism/internal/table"
)

// readXLSX reads one sheet with its first row as the header. Cells arrive
// as their formatted text and are typed like CSV fields.
func readXLSX(ctx context.Context, r io.Reader, opts Options) (*table.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := opts.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, ErrEmptyFile
		}
		sheet = sheets[0]
	}
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, fmt.Errorf("%w: %q", ErrSheetNotFound, sheet)
	}

	rows, err := f.Rows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	defer rows.Close()

	var header []string
	var records [][]string
	width := 0
	for rows.Next() {
		if len(records)%ContextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("read cancelled after %d rows: %w", len(records), err)
			}
		}
		cols, err := rows.Columns()
		if err != nil {
			return nil, fmt.Errorf("read sheet %q row %d: %w", sheet, len(records)+1, err)
		}
		if header == nil {
			header = cols
			if header == nil {
				header = []string{}
			}
			continue
		}
		records = append(records, cols)
		width = max(width, len(cols))
		if err := checkRows(len(records), opts); err != nil {
			return nil, err
		}
	}
	if err := rows.Error(); err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(header) == 0 {
		return nil, ErrEmptyFile
	}

	// Stray cells right of the header become unnamed columns.
	for len(header) < width {
		header = append(header, "")
	}
	return fromRecords(ctx, header, records)
}
