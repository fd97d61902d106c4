package ops

import (
	"context"
	"strings"

	"github.com/JonMunkholm/prism/internal/table"
)

// Replace swaps every cell equal to Old for New. Old is compared as a
// value of the column's kind when it parses as one, otherwise by string
// form.
type Replace struct {
	Column string `json:"column" yaml:"column"`
	Old    string `json:"old" yaml:"old"`
	New    string `json:"new" yaml:"new"`
}

func (Replace) Name() string { return "replace" }

func (p Replace) Validate() error {
	if p.Column == "" {
		return invalid("column", "a column is required")
	}
	return nil
}

func (p Replace) Apply(ctx context.Context, t *table.Table) (*table.Table, []Diagnostic, error) {
	if err := p.Validate(); err != nil {
		return nil, nil, err
	}
	col, err := requireColumn(t, "column", p.Column)
	if err != nil {
		return nil, nil, err
	}

	match := func(c table.Cell) bool {
		return !c.IsMissing() && c.String() == p.Old
	}
	if col.IsNumeric() {
		if f, ok := table.ParseNumber(p.Old); ok {
			match = table.Float(f).Equal
		}
	} else if col.Kind != table.KindObject {
		if old, err := table.ParseAs(p.Old, col.Kind); err == nil && !old.IsMissing() {
			match = old.Equal
		}
	}

	kind := col.Kind
	repl, err := table.ParseAs(p.New, col.Kind)
	if err != nil {
		kind = table.KindObject
		repl = table.Text(p.New)
	}

	n := 0
	cells, err := mapCells(ctx, col, func(_ int, c table.Cell) (table.Cell, error) {
		if !match(c) {
			return c, nil
		}
		n++
		return repl, nil
	})
	if err != nil {
		return nil, nil, err
	}
	if n == 0 {
		return t, []Diagnostic{infof(col.Name, "no cells in %q equal %q", col.Name, p.Old)}, nil
	}

	diags := []Diagnostic{infof(col.Name, "replaced %d cells in %q", n, col.Name)}
	if kind != col.Kind {
		diags = append(diags, infof(col.Name, "%q does not fit %s column %q; column becomes object", p.New, col.Kind, col.Name))
	}
	out, err := t.ReplaceColumn(col.Name, col.WithCells(kind, cells))
	if err != nil {
		return nil, nil, err
	}
	return out, diags, nil
}

// RemoveValues drops rows whose cell string form equals any listed value.
type RemoveValues struct {
	Column string   `json:"column" yaml:"column"`
	Values NameList `json:"values" yaml:"values"`
}

func (RemoveValues) Name() string { return "remove_values" }

func (p RemoveValues) Validate() error {
	if p.Column == "" {
		return invalid("column", "a column is required")
	}
	if len(p.Values) == 0 {
		return invalid("values", "at least one value is required")
	}
	return nil
}

func (p RemoveValues) Apply(_ context.Context, t *table.Table) (*table.Table, []Diagnostic, error) {
	if err := p.Validate(); err != nil {
		return nil, nil, err
	}
	col, err := requireColumn(t, "column", p.Column)
	if err != nil {
		return nil, nil, err
	}

	drop := make(map[string]bool, len(p.Values))
	for _, v := range p.Values {
		drop[v] = true
	}
	out := t.Filter(func(row int) bool {
		c := col.Cells[row]
		return c.IsMissing() || !drop[c.String()]
	})
	return out, []Diagnostic{infof(col.Name, "removed %d rows where %q is one of %s",
		t.NumRows()-out.NumRows(), col.Name, strings.Join(p.Values, ", "))}, nil
}
