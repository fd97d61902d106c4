// Package ingest reads uploaded files into tables.
//
// Delimited text is sniffed for its separator, cleaned of a leading BOM and
// invalid UTF-8, and typed column by column. Spreadsheets and Parquet files
// are read through their own decoders and typed the same way where their
// cells arrive as strings.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/prism/internal/table"
)

var (
	ErrEmptyFile         = errors.New("file is empty")
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrTooManyRows       = errors.New("file has too many rows")
	ErrFileTooLarge      = errors.New("file is too large")
	ErrRaggedRow         = errors.New("row has more fields than the header")
	ErrSheetNotFound     = errors.New("sheet not found")
)

// Format is an input file format.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatTSV     Format = "tsv"
	FormatXLSX    Format = "xlsx"
	FormatParquet Format = "parquet"
)

// ContextCheckInterval is how often (in rows) readers check for cancellation.
var ContextCheckInterval = 1000

// DetectFormat picks the format from a file name's extension.
func DetectFormat(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt":
		return FormatCSV, nil
	case ".tsv", ".tab":
		return FormatTSV, nil
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	case ".parquet", ".pq":
		return FormatParquet, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(name))
}

// Options bounds and tunes reading. Zero values mean no limit and defaults.
type Options struct {
	MaxRows   int
	MaxBytes  int64
	Sheet     string // xlsx sheet; defaults to the first
	Delimiter rune   // forces the CSV separator instead of sniffing
}

// Read parses r according to the format implied by name.
func Read(ctx context.Context, name string, r io.Reader, opts Options) (*table.Table, error) {
	format, err := DetectFormat(name)
	if err != nil {
		return nil, err
	}
	return ReadFormat(ctx, format, r, opts)
}

// ReadFormat parses r as the given format.
func ReadFormat(ctx context.Context, format Format, r io.Reader, opts Options) (*table.Table, error) {
	if opts.MaxBytes > 0 {
		r = newLimitReader(r, opts.MaxBytes)
	}

	switch format {
	case FormatCSV:
		return readDelimited(ctx, r, opts)
	case FormatTSV:
		if opts.Delimiter == 0 {
			opts.Delimiter = '\t'
		}
		return readDelimited(ctx, r, opts)
	case FormatXLSX:
		return readXLSX(ctx, r, opts)
	case FormatParquet:
		return readParquet(ctx, r, opts)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, string(format))
}

// fromRecords builds a typed table from a header and string records.
// Records shorter than the header are padded with missing cells.
func fromRecords(ctx context.Context, header []string, records [][]string) (*table.Table, error) {
	names := UniqueNames(header)
	cols := make([]*table.Column, len(names))
	raw := make([]string, len(records))
	for j, name := range names {
		if j%ContextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		for i, rec := range records {
			if j < len(rec) {
				raw[i] = rec[j]
			} else {
				raw[i] = ""
			}
		}
		cols[j] = InferColumn(name, raw)
	}
	return table.New(cols...)
}

func checkRows(n int, opts Options) error {
	if opts.MaxRows > 0 && n > opts.MaxRows {
		return fmt.Errorf("%w: more than %d", ErrTooManyRows, opts.MaxRows)
	}
	return nil
}
