package ops

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/JonMunkholm/prism/internal/table"
)

// MissingStrategy selects how HandleMissing treats missing cells.
type MissingStrategy string

const (
	DropMissingRows MissingStrategy = "drop-rows"
	FillMean        MissingStrategy = "fill-mean"
	FillMedian      MissingStrategy = "fill-median"
	FillMode        MissingStrategy = "fill-mode"
	FillCustom      MissingStrategy = "fill-custom"
)

// HandleMissing drops rows with missing cells or fills missing cells with a
// per-column statistic or a literal.
type HandleMissing struct {
	Strategy MissingStrategy `json:"strategy" yaml:"strategy"`
	Value    string          `json:"value,omitempty" yaml:"value,omitempty"`
}

func (HandleMissing) Name() string { return "missing" }

func (p HandleMissing) Validate() error {
	switch p.Strategy {
	case DropMissingRows, FillMean, FillMedian, FillMode:
		return nil
	case FillCustom:
		if p.Value == "" {
			return invalid("value", "fill-custom needs a value")
		}
		return nil
	case "":
		return invalid("strategy", "a strategy is required")
	}
	return &ValidationError{
		Field:   "strategy",
		Value:   string(p.Strategy),
		Message: "must be one of drop-rows, fill-mean, fill-median, fill-mode, fill-custom",
		Code:    CodeInvalidParam,
	}
}

func (p HandleMissing) Apply(ctx context.Context, t *table.Table) (*table.Table, []Diagnostic, error) {
	if err := p.Validate(); err != nil {
		return nil, nil, err
	}

	diags := []Diagnostic{missingSummary(t)}

	if p.Strategy == DropMissingRows {
		cols := t.Columns()
		out := t.Filter(func(row int) bool {
			for _, col := range cols {
				if col.Cells[row].IsMissing() {
					return false
				}
			}
			return true
		})
		diags = append(diags, infof("", "dropped %d rows with missing values", t.NumRows()-out.NumRows()))
		return out, diags, nil
	}

	cols := t.Columns()
	for i, col := range cols {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		missing := col.MissingCount()
		if missing == 0 {
			continue
		}

		filled, diag, err := p.fillColumn(col)
		if err != nil {
			return nil, nil, err
		}
		if diag != nil {
			diags = append(diags, *diag)
		}
		if filled != nil {
			cols[i] = filled
			diags = append(diags, infof(col.Name, "filled %d missing cells in %q", missing, col.Name))
		}
	}

	out, err := t.WithColumns(cols)
	if err != nil {
		return nil, nil, err
	}
	return out, diags, nil
}

// fillColumn returns the filled column, or nil when the column is left as is.
func (p HandleMissing) fillColumn(col *table.Column) (*table.Column, *Diagnostic, error) {
	switch p.Strategy {
	case FillMean, FillMedian:
		if !col.IsNumeric() {
			return nil, nil, nil
		}
		stat := table.Mean
		label := "mean"
		if p.Strategy == FillMedian {
			stat = table.Median
			label = "median"
		}
		v, err := stat(col)
		if errors.Is(err, table.ErrNoValues) {
			d := warnf(CodeUndefinedStat, col.Name, "%s of %q is undefined (no values); column left unchanged", label, col.Name)
			return nil, &d, nil
		}
		if err != nil {
			return nil, nil, err
		}
		fill, kind := numericFill(col.Kind, v)
		return fillWith(col, kind, fill), nil, nil

	case FillMode:
		v, err := table.Mode(col)
		if errors.Is(err, table.ErrNoValues) {
			d := warnf(CodeUndefinedStat, col.Name, "mode of %q is undefined (no values); column left unchanged", col.Name)
			return nil, &d, nil
		}
		if err != nil {
			return nil, nil, err
		}
		return fillWith(col, col.Kind, v), nil, nil

	case FillCustom:
		v, err := table.ParseAs(p.Value, col.Kind)
		if err != nil {
			d := infof(col.Name, "%q does not fit %s column %q; column becomes object", p.Value, col.Kind, col.Name)
			return fillWith(col, table.KindObject, table.Text(p.Value)), &d, nil
		}
		return fillWith(col, col.Kind, v), nil, nil
	}
	return nil, nil, fmt.Errorf("unhandled strategy %q", p.Strategy)
}

// numericFill keeps integer columns integer when the statistic is whole.
func numericFill(kind table.Kind, v float64) (table.Cell, table.Kind) {
	if kind == table.KindInteger && v == math.Trunc(v) && math.Abs(v) < 1<<53 {
		return table.Int(int64(v)), table.KindInteger
	}
	return table.Float(v), table.KindFloat
}

func fillWith(col *table.Column, kind table.Kind, v table.Cell) *table.Column {
	cells := make([]table.Cell, col.Len())
	for i, c := range col.Cells {
		if c.IsMissing() {
			cells[i] = v
		} else {
			cells[i] = c
		}
	}
	return col.WithCells(kind, cells)
}

// missingSummary lists missing counts per column before any change.
func missingSummary(t *table.Table) Diagnostic {
	counts := table.MissingCounts(t)
	var parts []string
	for _, name := range t.Names() {
		if n := counts[name]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", name, n))
		}
	}
	if len(parts) == 0 {
		return infof("", "no missing values")
	}
	return infof("", "missing values per column: %s", strings.Join(parts, ", "))
}
