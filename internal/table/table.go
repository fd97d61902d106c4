// Package table provides the in-memory tabular data model: typed columns of
// tagged-union cells, with row labels and the invariants every pipeline stage
// relies on.
//
// A Table is a value. Methods that change shape or content return a new
// Table and never modify the receiver; unchanged columns are shared.
//
// Invariants (checked by New and Validate):
//   - every column has the same number of cells
//   - column names are non-empty and unique
//   - cells agree with their column's declared kind (missing is always allowed)
package table

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrColumnNotFound  = errors.New("column not found")
	ErrDuplicateColumn = errors.New("duplicate column name")
	ErrEmptyColumnName = errors.New("empty column name")
	ErrLengthMismatch  = errors.New("column length mismatch")
	ErrKindMismatch    = errors.New("cell does not match column type")
	ErrNoColumns       = errors.New("table would have no columns")
)

// Table is an ordered set of equal-length columns plus external row labels.
type Table struct {
	columns []*Column
	byName  map[string]int
	index   []int
}

// New builds a table from columns and assigns row labels 0..n-1.
func New(cols ...*Column) (*Table, error) {
	rows := 0
	if len(cols) > 0 {
		rows = cols[0].Len()
	}
	return build(cols, sequence(rows))
}

// MustNew is New for fixed inputs such as tests and examples.
func MustNew(cols ...*Column) *Table {
	t, err := New(cols...)
	if err != nil {
		panic(err)
	}
	return t
}

func build(cols []*Column, index []int) (*Table, error) {
	t := &Table{
		columns: cols,
		byName:  make(map[string]int, len(cols)),
		index:   index,
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func sequence(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

// Validate checks the table invariants and rebuilds the name lookup.
func (t *Table) Validate() error {
	t.byName = make(map[string]int, len(t.columns))
	for i, col := range t.columns {
		if strings.TrimSpace(col.Name) == "" {
			return fmt.Errorf("column %d: %w", i, ErrEmptyColumnName)
		}
		if _, exists := t.byName[col.Name]; exists {
			return fmt.Errorf("%w: %q", ErrDuplicateColumn, col.Name)
		}
		t.byName[col.Name] = i

		if col.Len() != len(t.index) {
			return fmt.Errorf("%w: column %q has %d rows, want %d", ErrLengthMismatch, col.Name, col.Len(), len(t.index))
		}
		if row, ok := col.validKind(); !ok {
			return fmt.Errorf("%w: column %q (%s) row %d holds %s %q",
				ErrKindMismatch, col.Name, col.Kind, row, col.Cells[row].Kind(), col.Cells[row].String())
		}
	}
	return nil
}

// NumRows returns the row count.
func (t *Table) NumRows() int { return len(t.index) }

// NumCols returns the column count.
func (t *Table) NumCols() int { return len(t.columns) }

// Columns returns the columns in order. The slice is a copy; the columns
// themselves must not be modified.
func (t *Table) Columns() []*Column {
	out := make([]*Column, len(t.columns))
	copy(out, t.columns)
	return out
}

// ColumnAt returns the i-th column.
func (t *Table) ColumnAt(i int) *Column { return t.columns[i] }

// Column looks up a column by name.
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.byName[name]
	if !ok {
		return nil, false
	}
	return t.columns[i], true
}

// Lookup is Column with an error naming the missing column.
func (t *Table) Lookup(name string) (*Column, error) {
	col, ok := t.Column(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
	}
	return col, nil
}

// Has reports whether a column with this name exists.
func (t *Table) Has(name string) bool {
	_, ok := t.byName[name]
	return ok
}

// Names returns the column names in order.
func (t *Table) Names() []string {
	names := make([]string, len(t.columns))
	for i, col := range t.columns {
		names[i] = col.Name
	}
	return names
}

// Index returns a copy of the row labels.
func (t *Table) Index() []int {
	out := make([]int, len(t.index))
	copy(out, t.index)
	return out
}

// Row returns the cells of row i in column order.
func (t *Table) Row(i int) []Cell {
	row := make([]Cell, len(t.columns))
	for j, col := range t.columns {
		row[j] = col.Cells[i]
	}
	return row
}

// RowKey returns a string identical for rows whose cells are pairwise Equal.
// cols limits the key to a subset of column positions; nil means all.
func (t *Table) RowKey(i int, cols []int) string {
	var b strings.Builder
	if cols == nil {
		for _, col := range t.columns {
			b.WriteString(col.Cells[i].key())
			b.WriteByte(0x1f)
		}
		return b.String()
	}
	for _, j := range cols {
		b.WriteString(t.columns[j].Cells[i].key())
		b.WriteByte(0x1f)
	}
	return b.String()
}

// WithColumns returns a table with the same row labels and new columns.
func (t *Table) WithColumns(cols []*Column) (*Table, error) {
	return build(cols, t.Index())
}

// ReplaceColumn swaps the column with the given name for col, keeping its position.
func (t *Table) ReplaceColumn(name string, col *Column) (*Table, error) {
	i, ok := t.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
	}
	cols := t.Columns()
	cols[i] = col
	return t.WithColumns(cols)
}

// AppendColumns adds columns after the existing ones.
func (t *Table) AppendColumns(cols ...*Column) (*Table, error) {
	all := append(t.Columns(), cols...)
	return t.WithColumns(all)
}

// DropColumns removes the named columns. Every name must exist and at least
// one column must remain.
func (t *Table) DropColumns(names ...string) (*Table, error) {
	drop := make(map[string]bool, len(names))
	for _, name := range names {
		if !t.Has(name) {
			return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
		}
		drop[name] = true
	}
	kept := make([]*Column, 0, len(t.columns))
	for _, col := range t.columns {
		if !drop[col.Name] {
			kept = append(kept, col)
		}
	}
	if len(kept) == 0 {
		return nil, ErrNoColumns
	}
	return t.WithColumns(kept)
}

// Rename replaces column names positionally. len(names) must equal NumCols
// and the result must satisfy the uniqueness invariant.
func (t *Table) Rename(names []string) (*Table, error) {
	if len(names) != len(t.columns) {
		return nil, fmt.Errorf("%w: got %d names for %d columns", ErrLengthMismatch, len(names), len(t.columns))
	}
	cols := make([]*Column, len(t.columns))
	for i, col := range t.columns {
		cols[i] = &Column{Name: names[i], Kind: col.Kind, Cells: col.Cells}
	}
	return t.WithColumns(cols)
}

// SelectRows keeps the given row positions, in the given order. Row labels
// travel with their rows.
func (t *Table) SelectRows(rows []int) *Table {
	cols := make([]*Column, len(t.columns))
	for j, col := range t.columns {
		cells := make([]Cell, len(rows))
		for k, r := range rows {
			cells[k] = col.Cells[r]
		}
		cols[j] = &Column{Name: col.Name, Kind: col.Kind, Cells: cells}
	}
	index := make([]int, len(rows))
	for k, r := range rows {
		index[k] = t.index[r]
	}
	return &Table{columns: cols, byName: t.copyNames(), index: index}
}

// Filter keeps the rows for which keep returns true.
func (t *Table) Filter(keep func(row int) bool) *Table {
	rows := make([]int, 0, len(t.index))
	for i := range t.index {
		if keep(i) {
			rows = append(rows, i)
		}
	}
	return t.SelectRows(rows)
}

// ResetIndex relabels rows 0..n-1. Data is untouched.
func (t *Table) ResetIndex() *Table {
	return &Table{columns: t.Columns(), byName: t.copyNames(), index: sequence(len(t.index))}
}

// Head returns the first n rows (or all rows if there are fewer).
func (t *Table) Head(n int) *Table {
	if n < 0 || n > len(t.index) {
		n = len(t.index)
	}
	return t.SelectRows(sequence(n))
}

func (t *Table) copyNames() map[string]int {
	m := make(map[string]int, len(t.byName))
	for k, v := range t.byName {
		m[k] = v
	}
	return m
}
