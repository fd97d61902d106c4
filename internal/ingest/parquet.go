package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/JonMunkholm/prism/internal/table"
)

// readParquet loads a Parquet file through its arrow schema. Parquet needs
// random access, so the input is buffered in memory first.
func readParquet(ctx context.Context, r io.Reader, opts Options) (*table.Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read parquet: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}

	pf, err := file.NewParquetReader(bytes.NewReader(data), file.WithReadProps(&parquet.ReaderProperties{}))
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet reader: %w", err)
	}
	defer pf.Close()

	if err := checkRows(int(pf.NumRows()), opts); err != nil {
		return nil, err
	}

	fr, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{}, memory.NewGoAllocator())
	if err != nil {
		return nil, fmt.Errorf("failed to create arrow reader: %w", err)
	}
	tbl, err := fr.ReadTable(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read parquet data: %w", err)
	}
	defer tbl.Release()

	return FromArrow(tbl)
}

// FromArrow converts an arrow table. Integer, float, string, boolean and
// timestamp or date columns keep their type; anything else becomes text.
func FromArrow(tbl arrow.Table) (*table.Table, error) {
	names := make([]string, tbl.NumCols())
	for i := range names {
		names[i] = tbl.Schema().Field(i).Name
	}
	names = UniqueNames(names)

	cols := make([]*table.Column, tbl.NumCols())
	for i := range cols {
		field := tbl.Schema().Field(i)
		kind := kindOf(field.Type)
		cells := make([]table.Cell, 0, tbl.NumRows())
		for _, chunk := range tbl.Column(i).Data().Chunks() {
			for pos := 0; pos < chunk.Len(); pos++ {
				cells = append(cells, arrowCell(chunk, pos))
			}
		}
		cols[i] = table.NewColumn(names[i], kind, cells)
	}
	return table.New(cols...)
}

func kindOf(dt arrow.DataType) table.Kind {
	switch dt.ID() {
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64:
		return table.KindInteger
	case arrow.FLOAT32, arrow.FLOAT64:
		return table.KindFloat
	case arrow.BOOL:
		return table.KindBoolean
	case arrow.TIMESTAMP, arrow.DATE32, arrow.DATE64:
		return table.KindDatetime
	}
	return table.KindText
}

// arrowCell reads one value as a cell of the kind kindOf gives its type.
func arrowCell(col arrow.Array, pos int) table.Cell {
	if col.IsNull(pos) {
		return table.Missing()
	}

	switch a := col.(type) {
	case *array.Int8:
		return table.Int(int64(a.Value(pos)))
	case *array.Int16:
		return table.Int(int64(a.Value(pos)))
	case *array.Int32:
		return table.Int(int64(a.Value(pos)))
	case *array.Int64:
		return table.Int(a.Value(pos))
	case *array.Uint8:
		return table.Int(int64(a.Value(pos)))
	case *array.Uint16:
		return table.Int(int64(a.Value(pos)))
	case *array.Uint32:
		return table.Int(int64(a.Value(pos)))
	case *array.Uint64:
		return table.Int(int64(a.Value(pos)))
	case *array.Float32:
		return table.Float(float64(a.Value(pos)))
	case *array.Float64:
		return table.Float(a.Value(pos))
	case *array.Boolean:
		return table.Bool(a.Value(pos))
	case *array.String:
		return table.Text(a.Value(pos))
	case *array.LargeString:
		return table.Text(a.Value(pos))
	case *array.Timestamp:
		unit := a.DataType().(*arrow.TimestampType).Unit
		return table.Time(a.Value(pos).ToTime(unit).UTC())
	case *array.Date32:
		return table.Time(a.Value(pos).ToTime().UTC())
	case *array.Date64:
		return table.Time(a.Value(pos).ToTime().UTC())
	}
	return table.Text(col.ValueStr(pos))
}
