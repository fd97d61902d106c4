package ops

import (
	"context"
	"errors"

	"github.com/JonMunkholm/prism/internal/table"
)

// OutlierMethod is what happens to values outside the percentile range.
type OutlierMethod string

const (
	OutlierRemove OutlierMethod = "remove"
	OutlierCap    OutlierMethod = "cap"
)

// Default percentile thresholds.
const (
	DefaultOutlierLower = 0.05
	DefaultOutlierUpper = 0.95
)

// Outliers removes or caps values of a numeric column that fall outside the
// [Lower, Upper] percentile range of its non-missing values.
type Outliers struct {
	Column string        `json:"column" yaml:"column"`
	Method OutlierMethod `json:"method" yaml:"method"`
	Lower  *float64      `json:"lower,omitempty" yaml:"lower,omitempty"`
	Upper  *float64      `json:"upper,omitempty" yaml:"upper,omitempty"`
}

func (Outliers) Name() string { return "outliers" }

func (p Outliers) bounds() (float64, float64) {
	lo, hi := DefaultOutlierLower, DefaultOutlierUpper
	if p.Lower != nil {
		lo = *p.Lower
	}
	if p.Upper != nil {
		hi = *p.Upper
	}
	return lo, hi
}

func (p Outliers) Validate() error {
	if p.Column == "" {
		return invalid("column", "a column is required")
	}
	switch p.Method {
	case OutlierRemove, OutlierCap:
	case "":
		return invalid("method", "a method is required")
	default:
		return &ValidationError{Field: "method", Value: string(p.Method), Message: "must be remove or cap", Code: CodeInvalidParam}
	}
	lo, hi := p.bounds()
	// Written so NaN fails every comparison.
	if !(lo >= 0 && lo <= 1) || !(hi >= 0 && hi <= 1) {
		return invalid("lower", "percentiles must be within [0, 1]")
	}
	if !(lo < hi) {
		return invalid("lower", "lower percentile %g must be below upper percentile %g", lo, hi)
	}
	return nil
}

func (p Outliers) Apply(ctx context.Context, t *table.Table) (*table.Table, []Diagnostic, error) {
	if err := p.Validate(); err != nil {
		return nil, nil, err
	}
	col, err := requireColumn(t, "column", p.Column)
	if err != nil {
		return nil, nil, err
	}
	if !col.IsNumeric() {
		return nil, nil, &ValidationError{Field: "column", Value: col.Name, Message: "outlier handling needs a numeric column", Code: CodeColumnType}
	}

	lo, hi := p.bounds()
	sorted := col.SortedNumbers()
	loV, err := table.Percentile(sorted, lo)
	if errors.Is(err, table.ErrNoValues) {
		return t, []Diagnostic{warnf(CodeUndefinedStat, col.Name, "%q has no values; percentiles are undefined", col.Name)}, nil
	}
	if err != nil {
		return nil, nil, err
	}
	hiV, _ := table.Percentile(sorted, hi)

	diags := []Diagnostic{infof(col.Name, "outlier range for %q: [%s, %s]", col.Name, table.FormatFloat(loV), table.FormatFloat(hiV))}

	if p.Method == OutlierRemove {
		out := t.Filter(func(row int) bool {
			v, ok := col.Cells[row].Number()
			return ok && v >= loV && v <= hiV
		})
		diags = append(diags, infof(col.Name, "removed %d rows outside the range", t.NumRows()-out.NumRows()))
		return out, diags, nil
	}

	kind := col.Kind
	capped := 0
	cells, err := mapCells(ctx, col, func(_ int, c table.Cell) (table.Cell, error) {
		v, ok := c.Number()
		if !ok {
			return c, nil
		}
		var bound float64
		switch {
		case v < loV:
			bound = loV
		case v > hiV:
			bound = hiV
		default:
			return c, nil
		}
		capped++
		fill, k := numericFill(col.Kind, bound)
		if k == table.KindFloat {
			kind = table.KindFloat
		}
		return fill, nil
	})
	if err != nil {
		return nil, nil, err
	}

	out, err := t.ReplaceColumn(col.Name, col.WithCells(kind, cells))
	if err != nil {
		return nil, nil, err
	}
	diags = append(diags, infof(col.Name, "capped %d values", capped))
	return out, diags, nil
}
