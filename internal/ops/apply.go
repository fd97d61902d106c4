package ops

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/JonMunkholm/prism/internal/expr"
	"github.com/JonMunkholm/prism/internal/table"
)

// DefaultCompileTimeout bounds the compilation of a custom expression when
// the context carries no other limit.
const DefaultCompileTimeout = 2 * time.Second

type compileTimeoutKey struct{}

// WithCompileTimeout returns a context under which ApplyExpr bounds
// compilation by d. Non-positive values keep the default.
func WithCompileTimeout(ctx context.Context, d time.Duration) context.Context {
	if d <= 0 {
		return ctx
	}
	return context.WithValue(ctx, compileTimeoutKey{}, d)
}

func compileTimeout(ctx context.Context) time.Duration {
	if d, ok := ctx.Value(compileTimeoutKey{}).(time.Duration); ok {
		return d
	}
	return DefaultCompileTimeout
}

// ApplyExpr evaluates an expression over every non-missing cell of a column
// and replaces the column with the results. If any cell fails the column is
// left unchanged.
type ApplyExpr struct {
	Column     string `json:"column" yaml:"column"`
	Expression string `json:"expression" yaml:"expression"`
}

func (ApplyExpr) Name() string { return "apply" }

func (p ApplyExpr) Validate() error {
	if p.Column == "" {
		return invalid("column", "a column is required")
	}
	if _, err := expr.Check(p.Expression); err != nil {
		return &UserCodeError{Expression: p.Expression, Row: -1, Err: err}
	}
	return nil
}

func (p ApplyExpr) Apply(ctx context.Context, t *table.Table) (*table.Table, []Diagnostic, error) {
	if p.Column == "" {
		return nil, nil, invalid("column", "a column is required")
	}
	col, err := requireColumn(t, "column", p.Column)
	if err != nil {
		return nil, nil, err
	}

	input := expr.StringInput
	if col.IsNumeric() {
		input = expr.NumberInput
	}
	cctx, cancel := context.WithTimeout(ctx, compileTimeout(ctx))
	prog, err := expr.Compile(cctx, p.Expression, input)
	cancel()
	if err != nil {
		return nil, nil, &UserCodeError{Column: col.Name, Expression: p.Expression, Row: -1, Err: err}
	}

	cells, err := mapCells(ctx, col, func(row int, c table.Cell) (table.Cell, error) {
		if c.IsMissing() {
			return c, nil
		}
		var arg any
		if input == expr.NumberInput {
			arg, _ = c.Number()
		} else {
			arg = c.String()
		}
		v, err := prog.Eval(arg)
		if err == nil {
			var cell table.Cell
			if cell, err = resultCell(v); err == nil {
				return cell, nil
			}
		}
		return table.Cell{}, &UserCodeError{Column: col.Name, Expression: p.Expression, Row: row, Value: c.String(), Err: err}
	})
	if err != nil {
		return nil, nil, err
	}

	kind := unifyKind(cells, col.Kind)
	if kind == table.KindFloat && col.Kind == table.KindInteger {
		if ints, ok := integral(cells); ok {
			cells, kind = ints, table.KindInteger
		}
	}

	out, err := t.ReplaceColumn(col.Name, col.WithCells(kind, cells))
	if err != nil {
		return nil, nil, err
	}
	return out, []Diagnostic{infof(col.Name, "applied %s to %q (result type %s)", prog.Source, col.Name, kind)}, nil
}

func resultCell(v interface{}) (table.Cell, error) {
	switch v := v.(type) {
	case float64:
		return table.Float(v), nil
	case int:
		return table.Float(float64(v)), nil
	case string:
		return table.Text(v), nil
	case bool:
		return table.Bool(v), nil
	case nil:
		return table.Missing(), nil
	}
	return table.Cell{}, fmt.Errorf("unsupported result type %T", v)
}

// integral converts float cells back to integers when every value is whole.
func integral(cells []table.Cell) ([]table.Cell, bool) {
	out := make([]table.Cell, len(cells))
	for i, c := range cells {
		f, ok := c.Number()
		if !ok {
			out[i] = c
			continue
		}
		if f != math.Trunc(f) || math.IsInf(f, 0) || math.Abs(f) >= 1<<53 {
			return nil, false
		}
		out[i] = table.Int(int64(f))
	}
	return out, true
}
