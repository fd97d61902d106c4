package table

import "sort"

// Column is a named, typed sequence of cells.
//
// Columns are treated as immutable once they are attached to a Table: an
// operation that changes values builds a new Column and a new Table, so
// unchanged columns can be shared between table versions.
type Column struct {
	Name  string
	Kind  Kind
	Cells []Cell
}

// NewColumn creates a column. The cells slice is owned by the column.
func NewColumn(name string, kind Kind, cells []Cell) *Column {
	return &Column{Name: name, Kind: kind, Cells: cells}
}

// Len returns the number of cells.
func (c *Column) Len() int { return len(c.Cells) }

// Clone returns a copy with its own cells slice.
func (c *Column) Clone() *Column {
	cells := make([]Cell, len(c.Cells))
	copy(cells, c.Cells)
	return &Column{Name: c.Name, Kind: c.Kind, Cells: cells}
}

// WithCells returns a column with the same name and the given kind and cells.
func (c *Column) WithCells(kind Kind, cells []Cell) *Column {
	return &Column{Name: c.Name, Kind: kind, Cells: cells}
}

// IsNumeric reports whether the column is declared integer or float.
func (c *Column) IsNumeric() bool { return c.Kind.Numeric() }

// MissingCount returns the number of missing cells.
func (c *Column) MissingCount() int {
	n := 0
	for _, cell := range c.Cells {
		if cell.IsMissing() {
			n++
		}
	}
	return n
}

// Numbers returns the non-missing numeric values in row order.
func (c *Column) Numbers() []float64 {
	out := make([]float64, 0, len(c.Cells))
	for _, cell := range c.Cells {
		if f, ok := cell.Number(); ok {
			out = append(out, f)
		}
	}
	return out
}

// SortedNumbers returns the non-missing numeric values sorted ascending.
func (c *Column) SortedNumbers() []float64 {
	out := c.Numbers()
	sort.Float64s(out)
	return out
}

// validKind reports whether every cell agrees with the declared kind.
// Object columns accept anything; float columns accept integers.
func (c *Column) validKind() (int, bool) {
	if c.Kind == KindObject {
		return 0, true
	}
	for i, cell := range c.Cells {
		if cell.IsMissing() {
			continue
		}
		k := cell.Kind()
		if k == c.Kind || (c.Kind == KindFloat && k == KindInteger) {
			continue
		}
		return i, false
	}
	return 0, true
}
