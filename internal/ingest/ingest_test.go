package ingest

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/prism/internal/export"
	"github.com/JonMunkholm/prism/internal/table"
)

func columnStrings(t *table.Table, name string) []string {
	col, ok := t.Column(name)
	if !ok {
		return nil
	}
	out := make([]string, len(col.Cells))
	for i, c := range col.Cells {
		if c.IsMissing() {
			out[i] = "<missing>"
		} else {
			out[i] = c.String()
		}
	}
	return out
}

func kinds(t *table.Table) []table.Kind {
	var out []table.Kind
	for _, c := range t.Columns() {
		out = append(out, c.Kind)
	}
	return out
}

// ----------------------------------------------------------------------------
// Reader Tests
// ----------------------------------------------------------------------------

func TestSkipBOM(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  string
	}{
		{"with BOM", append([]byte{0xEF, 0xBB, 0xBF}, "a,b"...), "a,b"},
		{"without BOM", []byte("a,b"), "a,b"},
		{"empty", []byte{}, ""},
		{"only BOM", []byte{0xEF, 0xBB, 0xBF}, ""},
		{"partial BOM", []byte{0xEF, 0xBB, 'x'}, string([]byte{0xEF, 0xBB, 'x'})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := io.ReadAll(SkipBOM(bytes.NewReader(tt.input)))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSanitizer(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  string
	}{
		{"ascii", []byte("hello"), "hello"},
		{"valid multibyte", []byte("café 日本"), "café 日本"},
		{"invalid byte", []byte{'a', 0xFF, 'b'}, "a?b"},
		{"truncated rune at end", []byte{'a', 0xE6, 0x97}, "a??"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := io.ReadAll(NewSanitizer(bytes.NewReader(tt.input)))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSanitizer_RuneSplitAcrossReads(t *testing.T) {
	// OneByteReader forces every multi-byte rune to straddle reads.
	in := "naïve, 日本語"
	got, err := io.ReadAll(NewSanitizer(iotest.OneByteReader(strings.NewReader(in))))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != in {
		t.Errorf("got %q, want %q", got, in)
	}
}

// ----------------------------------------------------------------------------
// Detection Tests
// ----------------------------------------------------------------------------

func TestDetectFormat(t *testing.T) {
	tests := map[string]Format{
		"data.csv":     FormatCSV,
		"notes.TXT":    FormatCSV,
		"x.tsv":        FormatTSV,
		"book.xlsx":    FormatXLSX,
		"cols.parquet": FormatParquet,
		"dir/a.b.csv":  FormatCSV,
	}
	for name, want := range tests {
		if got, err := DetectFormat(name); err != nil || got != want {
			t.Errorf("DetectFormat(%q) = (%q, %v), want %q", name, got, err, want)
		}
	}
	if _, err := DetectFormat("image.png"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("png error = %v", err)
	}
}

func TestSniffDelimiter(t *testing.T) {
	tests := []struct {
		head string
		want rune
	}{
		{"a,b,c\n1,2,3", ','},
		{"a;b;c\n1;2;3", ';'},
		{"a\tb\n", '\t'},
		{"a|b|c", '|'},
		{`"x;y",b` + "\n", ','},
		{"single", ','},
	}
	for _, tt := range tests {
		if got := SniffDelimiter([]byte(tt.head)); got != tt.want {
			t.Errorf("SniffDelimiter(%q) = %q, want %q", tt.head, got, tt.want)
		}
	}
}

// ----------------------------------------------------------------------------
// Inference Tests
// ----------------------------------------------------------------------------

func TestUniqueNames(t *testing.T) {
	got := UniqueNames([]string{"a", " a ", "", "a", "a.1"})
	want := []string{"a", "a.1", "Unnamed: 2", "a.2", "a.1.1"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("UniqueNames (-want +got):\n%s", diff)
	}
}

func TestInferColumn(t *testing.T) {
	tests := []struct {
		name string
		raw  []string
		want table.Kind
	}{
		{"integers", []string{"1", " -2 ", "NA"}, table.KindInteger},
		{"floats", []string{"1", "2.5", ""}, table.KindFloat},
		{"booleans", []string{"True", "false", "null"}, table.KindBoolean},
		{"text", []string{"1", "x"}, table.KindText},
		{"dates stay text", []string{"2024-01-01"}, table.KindText},
		{"yes/no stays text", []string{"yes", "no"}, table.KindText},
		{"all missing", []string{"", "NaN"}, table.KindFloat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			col := InferColumn("c", tt.raw)
			if col.Kind != tt.want {
				t.Errorf("kind = %s, want %s", col.Kind, tt.want)
			}
			if col.Len() != len(tt.raw) {
				t.Errorf("len = %d, want %d", col.Len(), len(tt.raw))
			}
		})
	}

	text := InferColumn("c", []string{" Ann ", "N/A"})
	if text.Cells[0].String() != " Ann " || !text.Cells[1].IsMissing() {
		t.Errorf("text cells = %v", text.Cells)
	}
}

// ----------------------------------------------------------------------------
// CSV Tests
// ----------------------------------------------------------------------------

func TestRead_CSV(t *testing.T) {
	src := "\xEF\xBB\xBFid;price;name;name;ok\n" +
		"1;2.5;Ann;x;True\n" +
		"2;;\"Bob; Jr\";y;False\n" +
		"3;4\n"
	tbl, err := Read(context.Background(), "in.csv", strings.NewReader(src), Options{})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if diff := cmp.Diff([]string{"id", "price", "name", "name.1", "ok"}, tbl.Names()); diff != "" {
		t.Errorf("names (-want +got):\n%s", diff)
	}
	wantKinds := []table.Kind{table.KindInteger, table.KindFloat, table.KindText, table.KindText, table.KindBoolean}
	if diff := cmp.Diff(wantKinds, kinds(tbl)); diff != "" {
		t.Errorf("kinds (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"2.5", "<missing>", "4.0"}, columnStrings(tbl, "price")); diff != "" {
		t.Errorf("price (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Ann", "Bob; Jr", "<missing>"}, columnStrings(tbl, "name")); diff != "" {
		t.Errorf("name (-want +got):\n%s", diff)
	}
}

func TestRead_TSVForcesTab(t *testing.T) {
	tbl, err := Read(context.Background(), "in.tsv", strings.NewReader("a,b\tc\n1,2\t3\n"), Options{})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if diff := cmp.Diff([]string{"a,b", "c"}, tbl.Names()); diff != "" {
		t.Errorf("names (-want +got):\n%s", diff)
	}
}

func TestRead_CSVErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		opts Options
		want error
	}{
		{"empty", "", Options{}, ErrEmptyFile},
		{"ragged", "a,b\n1,2,3\n", Options{}, ErrRaggedRow},
		{"too many rows", "a\n1\n2\n3\n", Options{MaxRows: 2}, ErrTooManyRows},
		{"too large", "a\n" + strings.Repeat("1\n", 100), Options{MaxBytes: 16}, ErrFileTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(context.Background(), "in.csv", strings.NewReader(tt.src), tt.opts)
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRead_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Read(ctx, "in.csv", strings.NewReader("a\n1\n"), Options{}); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

// ----------------------------------------------------------------------------
// XLSX Tests
// ----------------------------------------------------------------------------

func workbook(t *testing.T, rows ...[]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatal(err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf
}

func TestRead_XLSX(t *testing.T) {
	buf := workbook(t,
		[]any{"id", "score", "city"},
		[]any{1, 2.5, "Oslo"},
		[]any{2, nil, "Bergen", "stray"},
	)
	tbl, err := Read(context.Background(), "book.xlsx", buf, Options{})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if diff := cmp.Diff([]string{"id", "score", "city", "Unnamed: 3"}, tbl.Names()); diff != "" {
		t.Errorf("names (-want +got):\n%s", diff)
	}
	wantKinds := []table.Kind{table.KindInteger, table.KindFloat, table.KindText, table.KindText}
	if diff := cmp.Diff(wantKinds, kinds(tbl)); diff != "" {
		t.Errorf("kinds (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"2.5", "<missing>"}, columnStrings(tbl, "score")); diff != "" {
		t.Errorf("score (-want +got):\n%s", diff)
	}
}

func TestRead_XLSXMissingSheet(t *testing.T) {
	buf := workbook(t, []any{"a"}, []any{1})
	_, err := Read(context.Background(), "book.xlsx", buf, Options{Sheet: "Nope"})
	if !errors.Is(err, ErrSheetNotFound) {
		t.Errorf("error = %v, want ErrSheetNotFound", err)
	}
}

// ----------------------------------------------------------------------------
// Parquet Tests
// ----------------------------------------------------------------------------

func TestRead_ParquetRoundTrip(t *testing.T) {
	when := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	in := table.MustNew(
		table.NewColumn("id", table.KindInteger, []table.Cell{table.Int(1), table.Missing()}),
		table.NewColumn("f", table.KindFloat, []table.Cell{table.Float(0.5), table.Float(-1)}),
		table.NewColumn("s", table.KindText, []table.Cell{table.Text("a"), table.Missing()}),
		table.NewColumn("b", table.KindBoolean, []table.Cell{table.Bool(true), table.Bool(false)}),
		table.NewColumn("t", table.KindDatetime, []table.Cell{table.Time(when), table.Missing()}),
	)

	var buf bytes.Buffer
	if err := export.WriteParquet(&buf, in, export.Options{}); err != nil {
		t.Fatalf("WriteParquet: %v", err)
	}
	out, err := Read(context.Background(), "x.parquet", &buf, Options{})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if diff := cmp.Diff(kinds(in), kinds(out)); diff != "" {
		t.Errorf("kinds (-want +got):\n%s", diff)
	}
	for _, name := range in.Names() {
		if diff := cmp.Diff(columnStrings(in, name), columnStrings(out, name)); diff != "" {
			t.Errorf("column %s (-want +got):\n%s", name, diff)
		}
	}
}

func TestRead_ParquetEmpty(t *testing.T) {
	if _, err := Read(context.Background(), "x.parquet", strings.NewReader(""), Options{}); !errors.Is(err, ErrEmptyFile) {
		t.Errorf("error = %v, want ErrEmptyFile", err)
	}
}
