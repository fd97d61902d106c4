package ops

import (
	"context"
	"fmt"
	"strings"

	"github.com/JonMunkholm/prism/internal/table"
)

// Split bounds.
const (
	MinSplitParts = 2
	MaxSplitParts = 10
)

// Split appends Parts text columns named <column>_1 .. <column>_k holding
// the first k pieces of each cell split on Delimiter. The source column is
// kept.
type Split struct {
	Column    string `json:"column" yaml:"column"`
	Delimiter string `json:"delimiter" yaml:"delimiter"`
	Parts     int    `json:"parts" yaml:"parts"`
}

func (Split) Name() string { return "split" }

func (p Split) Validate() error {
	if p.Column == "" {
		return invalid("column", "a column is required")
	}
	if p.Delimiter == "" {
		return invalid("delimiter", "delimiter must not be empty")
	}
	if p.Parts < MinSplitParts || p.Parts > MaxSplitParts {
		return invalid("parts", "must be between %d and %d, got %d", MinSplitParts, MaxSplitParts, p.Parts)
	}
	return nil
}

// SplitNames returns the generated column names.
func (p Split) SplitNames() []string {
	names := make([]string, p.Parts)
	for i := range names {
		names[i] = fmt.Sprintf("%s_%d", p.Column, i+1)
	}
	return names
}

func (p Split) Apply(ctx context.Context, t *table.Table) (*table.Table, []Diagnostic, error) {
	if err := p.Validate(); err != nil {
		return nil, nil, err
	}
	col, err := requireColumn(t, "column", p.Column)
	if err != nil {
		return nil, nil, err
	}
	names := p.SplitNames()
	for _, name := range names {
		if t.Has(name) {
			return nil, nil, &ValidationError{Field: "column", Value: name, Message: "split would overwrite an existing column", Code: CodeNameCollision}
		}
	}

	parts := make([][]table.Cell, p.Parts)
	for i := range parts {
		parts[i] = make([]table.Cell, col.Len())
	}
	for row, c := range col.Cells {
		if err := checkContext(ctx, row); err != nil {
			return nil, nil, err
		}
		if c.IsMissing() {
			continue
		}
		pieces := strings.SplitN(c.String(), p.Delimiter, p.Parts+1)
		for i := 0; i < p.Parts && i < len(pieces); i++ {
			parts[i][row] = table.Text(pieces[i])
		}
	}

	added := make([]*table.Column, p.Parts)
	for i, name := range names {
		added[i] = table.NewColumn(name, table.KindText, parts[i])
	}
	out, err := t.AppendColumns(added...)
	if err != nil {
		return nil, nil, err
	}
	return out, []Diagnostic{infof(col.Name, "split %q into %s", col.Name, strings.Join(names, ", "))}, nil
}

// Merge appends a text column joining the string forms of Columns with
// Separator. Missing cells join as the empty string.
type Merge struct {
	Columns   NameList `json:"columns" yaml:"columns"`
	Separator string   `json:"separator" yaml:"separator"`
	Into      string   `json:"name" yaml:"name"`
}

func (Merge) Name() string { return "merge" }

func (p Merge) Validate() error {
	if len(p.Columns) < 2 {
		return invalid("columns", "select at least two columns")
	}
	seen := make(map[string]bool, len(p.Columns))
	for _, c := range p.Columns {
		if seen[c] {
			return &ValidationError{Field: "columns", Value: c, Message: "column selected twice", Code: CodeInvalidParam}
		}
		seen[c] = true
	}
	if strings.TrimSpace(p.Into) == "" {
		return invalid("name", "a name for the merged column is required")
	}
	return nil
}

func (p Merge) Apply(ctx context.Context, t *table.Table) (*table.Table, []Diagnostic, error) {
	if err := p.Validate(); err != nil {
		return nil, nil, err
	}
	cols := make([]*table.Column, len(p.Columns))
	for i, name := range p.Columns {
		col, err := requireColumn(t, "columns", name)
		if err != nil {
			return nil, nil, err
		}
		cols[i] = col
	}
	if t.Has(p.Into) {
		return nil, nil, &ValidationError{Field: "name", Value: p.Into, Message: "a column with this name already exists", Code: CodeNameCollision}
	}

	cells := make([]table.Cell, t.NumRows())
	parts := make([]string, len(cols))
	for row := range cells {
		if err := checkContext(ctx, row); err != nil {
			return nil, nil, err
		}
		for i, col := range cols {
			parts[i] = col.Cells[row].String()
		}
		cells[row] = table.Text(strings.Join(parts, p.Separator))
	}

	out, err := t.AppendColumns(table.NewColumn(p.Into, table.KindText, cells))
	if err != nil {
		return nil, nil, err
	}
	return out, []Diagnostic{infof(p.Into, "merged %s into %q", strings.Join(p.Columns, ", "), p.Into)}, nil
}
