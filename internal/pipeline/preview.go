package pipeline

import (
	"strconv"
	"strings"

	"github.com/JonMunkholm/prism/internal/table"
)

// MissingToken is how previews display missing cells.
const MissingToken = "<NA>"

// PreviewColumn names and types one preview column.
type PreviewColumn struct {
	Name string     `json:"name"`
	Kind table.Kind `json:"kind"`
}

// Preview is the first rows of a table rendered as strings, for reports.
// Missing cells are nil.
type Preview struct {
	Columns   []PreviewColumn `json:"columns"`
	Index     []int           `json:"index"`
	Rows      [][]*string     `json:"rows"`
	TotalRows int             `json:"totalRows"`
}

// NewPreview renders the first n rows of t.
func NewPreview(t *table.Table, n int) *Preview {
	head := t.Head(n)
	p := &Preview{
		Columns:   make([]PreviewColumn, head.NumCols()),
		Index:     head.Index(),
		Rows:      make([][]*string, head.NumRows()),
		TotalRows: t.NumRows(),
	}
	for j, col := range head.Columns() {
		p.Columns[j] = PreviewColumn{Name: col.Name, Kind: col.Kind}
	}
	for i := range p.Rows {
		row := head.Row(i)
		out := make([]*string, len(row))
		for j, c := range row {
			if !c.IsMissing() {
				s := c.String()
				out[j] = &s
			}
		}
		p.Rows[i] = out
	}
	return p
}

// Cell returns the display text of a preview cell.
func (p *Preview) Cell(row, col int) string {
	if v := p.Rows[row][col]; v != nil {
		return *v
	}
	return MissingToken
}

// Text renders the preview one line per row, tab-separated, header first.
// Row labels lead each line so that relabeling shows up in diffs.
func (p *Preview) Text() string {
	var b strings.Builder
	b.WriteString("#")
	for _, c := range p.Columns {
		b.WriteString("\t")
		b.WriteString(c.Name)
		b.WriteString(":")
		b.WriteString(c.Kind.String())
	}
	b.WriteString("\n")
	for i := range p.Rows {
		b.WriteString(strconv.Itoa(p.Index[i]))
		for j := range p.Columns {
			b.WriteString("\t")
			b.WriteString(p.Cell(i, j))
		}
		b.WriteString("\n")
	}
	return b.String()
}
