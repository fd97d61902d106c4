package export

import (
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/JonMunkholm/prism/internal/table"
)

// ArrowType maps a column kind to its arrow type. Object columns are
// written as strings.
func ArrowType(k table.Kind) arrow.DataType {
	switch k {
	case table.KindInteger:
		return arrow.PrimitiveTypes.Int64
	case table.KindFloat:
		return arrow.PrimitiveTypes.Float64
	case table.KindBoolean:
		return arrow.FixedWidthTypes.Boolean
	case table.KindDatetime:
		return arrow.FixedWidthTypes.Timestamp_us
	default:
		return arrow.BinaryTypes.String
	}
}

// ToArrow builds an arrow table from t, one chunk per column. The caller
// must Release the result.
func ToArrow(t *table.Table, mem memory.Allocator, opts Options) (arrow.Table, error) {
	var fields []arrow.Field
	var columns []arrow.Column

	if opts.IncludeIndex {
		field := arrow.Field{Name: IndexColumn, Type: arrow.PrimitiveTypes.Int64}
		b := array.NewInt64Builder(mem)
		for _, label := range t.Index() {
			b.Append(int64(label))
		}
		col, err := finishColumn(field, b)
		if err != nil {
			return nil, err
		}
		fields = append(fields, field)
		columns = append(columns, col)
	}

	for _, c := range t.Columns() {
		field := arrow.Field{Name: c.Name, Type: ArrowType(c.Kind), Nullable: true}
		b := array.NewBuilder(mem, field.Type)
		for i, cell := range c.Cells {
			if err := appendCell(b, c.Kind, cell); err != nil {
				b.Release()
				return nil, fmt.Errorf("column %q row %d: %w", c.Name, i, err)
			}
		}
		col, err := finishColumn(field, b)
		if err != nil {
			return nil, err
		}
		fields = append(fields, field)
		columns = append(columns, col)
	}

	schema := arrow.NewSchema(fields, nil)
	tbl := array.NewTable(schema, columns, int64(t.NumRows()))
	for i := range columns {
		columns[i].Release()
	}
	return tbl, nil
}

func finishColumn(field arrow.Field, b array.Builder) (arrow.Column, error) {
	defer b.Release()
	arr := b.NewArray()
	defer arr.Release()

	chunked := arrow.NewChunked(field.Type, []arrow.Array{arr})
	defer chunked.Release()
	col := arrow.NewColumn(field, chunked)
	return *col, nil
}

// appendCell appends one cell to a builder created for kind.
func appendCell(b array.Builder, kind table.Kind, c table.Cell) error {
	if c.IsMissing() {
		b.AppendNull()
		return nil
	}
	switch kind {
	case table.KindInteger:
		v, ok := c.Integer()
		if !ok {
			return fmt.Errorf("expected integer, got %s", c.Kind())
		}
		b.(*array.Int64Builder).Append(v)
	case table.KindFloat:
		v, ok := c.Number()
		if !ok {
			return fmt.Errorf("expected number, got %s", c.Kind())
		}
		b.(*array.Float64Builder).Append(v)
	case table.KindBoolean:
		v, ok := c.BoolValue()
		if !ok {
			return fmt.Errorf("expected boolean, got %s", c.Kind())
		}
		b.(*array.BooleanBuilder).Append(v)
	case table.KindDatetime:
		v, ok := c.TimeValue()
		if !ok {
			return fmt.Errorf("expected datetime, got %s", c.Kind())
		}
		b.(*array.TimestampBuilder).Append(arrow.Timestamp(v.UTC().UnixMicro()))
	default:
		b.(*array.StringBuilder).Append(c.String())
	}
	return nil
}

// WriteParquet writes t as a snappy-compressed Parquet file with the arrow
// schema stored in the metadata.
func WriteParquet(w io.Writer, t *table.Table, opts Options) error {
	tbl, err := ToArrow(t, memory.NewGoAllocator(), opts)
	if err != nil {
		return fmt.Errorf("build arrow table: %w", err)
	}
	defer tbl.Release()

	props := parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy))
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema())

	writer, err := pqarrow.NewFileWriter(tbl.Schema(), w, props, arrowProps)
	if err != nil {
		return fmt.Errorf("create parquet writer: %w", err)
	}

	chunk := tbl.NumRows()
	if chunk == 0 {
		chunk = 1
	}
	if err := writer.WriteTable(tbl, chunk); err != nil {
		writer.Close()
		return fmt.Errorf("write parquet: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return nil
}
