package ops

import (
	"context"
	"errors"
	"math"
	"strings"

	"github.com/JonMunkholm/prism/internal/table"
)

// Filter keeps rows by an inclusive numeric range or, for non-numeric
// columns, by a case-insensitive substring.
//
// Min and Max default to the column's smallest and largest value.
type Filter struct {
	Column   string   `json:"column" yaml:"column"`
	Min      *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max      *float64 `json:"max,omitempty" yaml:"max,omitempty"`
	Contains string   `json:"contains,omitempty" yaml:"contains,omitempty"`
}

func (Filter) Name() string { return "filter" }

func (p Filter) Validate() error {
	if p.Column == "" {
		return invalid("column", "a column is required")
	}
	if p.Min != nil && math.IsNaN(*p.Min) {
		return invalid("min", "min must be a number")
	}
	if p.Max != nil && math.IsNaN(*p.Max) {
		return invalid("max", "max must be a number")
	}
	if p.Min != nil && p.Max != nil && *p.Min > *p.Max {
		return invalid("min", "min %g is greater than max %g", *p.Min, *p.Max)
	}
	return nil
}

func (p Filter) Apply(_ context.Context, t *table.Table) (*table.Table, []Diagnostic, error) {
	if err := p.Validate(); err != nil {
		return nil, nil, err
	}
	col, err := requireColumn(t, "column", p.Column)
	if err != nil {
		return nil, nil, err
	}

	var out *table.Table
	var diag Diagnostic
	if col.IsNumeric() {
		lo, hi, err := table.MinMax(col)
		if errors.Is(err, table.ErrNoValues) && (p.Min == nil || p.Max == nil) {
			return t, []Diagnostic{warnf(CodeUndefinedStat, col.Name, "%q has no values; range filter skipped", col.Name)}, nil
		}
		if p.Min != nil {
			lo = *p.Min
		}
		if p.Max != nil {
			hi = *p.Max
		}
		out = t.Filter(func(row int) bool {
			v, ok := col.Cells[row].Number()
			return ok && v >= lo && v <= hi
		})
		diag = infof(col.Name, "kept rows with %q in [%s, %s]", col.Name, table.FormatFloat(lo), table.FormatFloat(hi))
	} else {
		needle := strings.ToLower(p.Contains)
		out = t.Filter(func(row int) bool {
			return strings.Contains(strings.ToLower(col.Cells[row].String()), needle)
		})
		diag = infof(col.Name, "kept rows with %q containing %q", col.Name, p.Contains)
	}

	return out, []Diagnostic{diag, infof("", "%d of %d rows kept", out.NumRows(), t.NumRows())}, nil
}

// Condition is a DropRows predicate.
type Condition string

const (
	GreaterThan Condition = "gt"
	LessThan    Condition = "lt"
	EqualTo     Condition = "eq"
	ContainsStr Condition = "contains"
)

func (c Condition) normalize() Condition {
	switch strings.ToLower(strings.TrimSpace(string(c))) {
	case "gt", ">", "greater-than", "greater than":
		return GreaterThan
	case "lt", "<", "less-than", "less than":
		return LessThan
	case "eq", "=", "==", "equal-to", "equal to":
		return EqualTo
	case "contains":
		return ContainsStr
	}
	return c
}

// DropRows keeps only the rows that satisfy a condition on one column.
// Threshold is used by the numeric conditions, Value by contains, which
// ignores case like Filter.
type DropRows struct {
	Column    string    `json:"column" yaml:"column"`
	Condition Condition `json:"condition" yaml:"condition"`
	Threshold *float64  `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	Value     string    `json:"value,omitempty" yaml:"value,omitempty"`
}

func (DropRows) Name() string { return "drop_rows" }

func (p DropRows) Validate() error {
	if p.Column == "" {
		return invalid("column", "a column is required")
	}
	switch p.Condition.normalize() {
	case GreaterThan, LessThan, EqualTo:
		if p.Threshold == nil {
			return invalid("threshold", "a numeric threshold is required for %s", p.Condition)
		}
		if math.IsNaN(*p.Threshold) {
			return invalid("threshold", "threshold must be a number")
		}
	case ContainsStr:
	case "":
		return invalid("condition", "a condition is required")
	default:
		return &ValidationError{Field: "condition", Value: string(p.Condition), Message: "must be one of gt, lt, eq, contains", Code: CodeInvalidParam}
	}
	return nil
}

func (p DropRows) Apply(_ context.Context, t *table.Table) (*table.Table, []Diagnostic, error) {
	if err := p.Validate(); err != nil {
		return nil, nil, err
	}
	col, err := requireColumn(t, "column", p.Column)
	if err != nil {
		return nil, nil, err
	}

	cond := p.Condition.normalize()
	var keep func(row int) bool
	if cond == ContainsStr {
		needle := strings.ToLower(p.Value)
		keep = func(row int) bool {
			return strings.Contains(strings.ToLower(col.Cells[row].String()), needle)
		}
	} else {
		if !col.IsNumeric() {
			return nil, nil, &ValidationError{Field: "column", Value: col.Name, Message: "numeric conditions need a numeric column", Code: CodeColumnType}
		}
		th := *p.Threshold
		keep = func(row int) bool {
			v, ok := col.Cells[row].Number()
			if !ok {
				return false
			}
			switch cond {
			case GreaterThan:
				return v > th
			case LessThan:
				return v < th
			default:
				return v == th
			}
		}
	}

	out := t.Filter(keep)
	return out, []Diagnostic{infof(col.Name, "removed %d rows not matching %s", t.NumRows()-out.NumRows(), cond)}, nil
}
