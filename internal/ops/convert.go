package ops

import (
	"context"

	"github.com/JonMunkholm/prism/internal/table"
)

// Convert coerces every non-missing cell of a column to a target kind.
// A single failing cell aborts the whole conversion.
type Convert struct {
	Column string `json:"column" yaml:"column"`
	To     string `json:"to" yaml:"to"`
}

func (Convert) Name() string { return "convert" }

func (p Convert) target() (table.Kind, error) {
	if p.To == "" {
		return table.KindObject, invalid("to", "a target type is required")
	}
	k, err := table.ParseKind(p.To)
	if err != nil {
		return table.KindObject, &ValidationError{Field: "to", Value: p.To, Message: err.Error(), Code: CodeInvalidParam}
	}
	if k == table.KindObject {
		return table.KindObject, &ValidationError{Field: "to", Value: p.To, Message: "cannot convert to object", Code: CodeInvalidParam}
	}
	return k, nil
}

func (p Convert) Validate() error {
	if p.Column == "" {
		return invalid("column", "a column is required")
	}
	_, err := p.target()
	return err
}

func (p Convert) Apply(ctx context.Context, t *table.Table) (*table.Table, []Diagnostic, error) {
	if err := p.Validate(); err != nil {
		return nil, nil, err
	}
	target, _ := p.target()
	col, err := requireColumn(t, "column", p.Column)
	if err != nil {
		return nil, nil, err
	}

	cells, err := mapCells(ctx, col, func(row int, c table.Cell) (table.Cell, error) {
		v, err := table.Coerce(c, target)
		if err != nil {
			return table.Cell{}, &CoercionError{Column: col.Name, Row: row, Value: c.String(), Target: target, Err: err}
		}
		return v, nil
	})
	if err != nil {
		return nil, nil, err
	}

	out, err := t.ReplaceColumn(col.Name, col.WithCells(target, cells))
	if err != nil {
		return nil, nil, err
	}
	return out, []Diagnostic{infof(col.Name, "converted %q from %s to %s", col.Name, col.Kind, target)}, nil
}
