// Package export encodes tables for download: CSV, JSON and Parquet, plus a
// Postgres sink that copies a table into a database.
package export

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/JonMunkholm/prism/internal/table"
)

// Format is an export encoding.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatJSON    Format = "json"
	FormatParquet Format = "parquet"
)

// DefaultBaseName is the file name offered for downloads, without extension.
const DefaultBaseName = "cleaned_dataset"

var ErrUnsupportedFormat = errors.New("unsupported export format")

// Formats lists the supported formats in display order.
func Formats() []Format { return []Format{FormatCSV, FormatJSON, FormatParquet} }

// ParseFormat resolves a format name. The empty string means CSV.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatParquet, "pq":
		return FormatParquet, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// ContentType is the MIME type of the format.
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatParquet:
		return "application/vnd.apache.parquet"
	default:
		return "text/csv"
	}
}

// FileName is the download name for the format, e.g. cleaned_dataset.csv.
func (f Format) FileName() string {
	return DefaultBaseName + "." + string(f)
}

// Options tunes encoding.
type Options struct {
	// IncludeIndex writes the row labels as a leading "index" column.
	IncludeIndex bool
}

// Write encodes t to w in format f.
func Write(w io.Writer, t *table.Table, f Format, opts Options) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, t, opts)
	case FormatJSON:
		return WriteJSON(w, t, opts)
	case FormatParquet:
		return WriteParquet(w, t, opts)
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, string(f))
}

// IndexColumn is the name of the row-label column written by IncludeIndex.
const IndexColumn = "index"
