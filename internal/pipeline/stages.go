package pipeline

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/prism/internal/expr"
	"github.com/JonMunkholm/prism/internal/ops"
)

func init() {
	registerStages()
}

// registerStages installs the fixed catalog. Order is the pipeline order.
func registerStages() {
	Register(StageDef{
		Key:         "missing",
		Label:       "Handle missing values",
		Description: "Drop rows with missing cells, or fill them with the column mean, median, mode or a literal.",
		Order:       10,
		Params: []ParamDoc{
			{Name: "strategy", Type: "drop-rows|fill-mean|fill-median|fill-mode|fill-custom", Required: true},
			{Name: "value", Type: "string", Description: "Literal for fill-custom, converted per column where possible."},
		},
		New: func() ops.Operation { return &ops.HandleMissing{} },
	})
	Register(StageDef{
		Key:         "dedupe",
		Label:       "Remove duplicates",
		Description: "Drop rows that repeat an earlier row, keeping the first.",
		Order:       20,
		Params: []ParamDoc{
			{Name: "columns", Type: "list", Description: "Compare only these columns. Defaults to all."},
		},
		New: func() ops.Operation { return &ops.Dedupe{} },
	})
	Register(StageDef{
		Key:         "rename",
		Label:       "Rename columns",
		Description: "Replace every column name, in order.",
		Order:       30,
		Params: []ParamDoc{
			{Name: "names", Type: "list", Required: true, Description: "One name per column, or a comma-separated string."},
		},
		New: func() ops.Operation { return &ops.Rename{} },
	})
	Register(StageDef{
		Key:         "drop_columns",
		Label:       "Drop columns",
		Description: "Remove the named columns. At least one column must remain.",
		Order:       40,
		Params: []ParamDoc{
			{Name: "columns", Type: "list", Required: true},
		},
		New: func() ops.Operation { return &ops.DropColumns{} },
	})
	Register(StageDef{
		Key:         "reset_index",
		Label:       "Reset index",
		Description: "Relabel rows 0..n-1.",
		Order:       50,
		New:         func() ops.Operation { return &ops.ResetIndex{} },
	})
	Register(StageDef{
		Key:         "convert",
		Label:       "Convert type",
		Description: "Convert a column to another type. Any value that does not convert aborts the stage.",
		Order:       60,
		Params: []ParamDoc{
			{Name: "column", Type: "column", Required: true},
			{Name: "to", Type: "integer|float|text|boolean|datetime", Required: true},
		},
		New: func() ops.Operation { return &ops.Convert{} },
	})
	Register(StageDef{
		Key:         "outliers",
		Label:       "Handle outliers",
		Description: "Remove rows outside, or cap values to, a percentile range of a numeric column.",
		Order:       70,
		Params: []ParamDoc{
			{Name: "column", Type: "column", Required: true},
			{Name: "method", Type: "remove|cap", Required: true},
			{Name: "lower", Type: "number", Description: fmt.Sprintf("Lower percentile in [0,1]. Default %g.", ops.DefaultOutlierLower)},
			{Name: "upper", Type: "number", Description: fmt.Sprintf("Upper percentile in [0,1]. Default %g.", ops.DefaultOutlierUpper)},
		},
		New: func() ops.Operation { return &ops.Outliers{} },
	})
	Register(StageDef{
		Key:         "filter",
		Label:       "Filter rows",
		Description: "Keep rows within a numeric range, or containing a substring for text columns.",
		Order:       80,
		Params: []ParamDoc{
			{Name: "column", Type: "column", Required: true},
			{Name: "min", Type: "number", Description: "Inclusive. Defaults to the column minimum."},
			{Name: "max", Type: "number", Description: "Inclusive. Defaults to the column maximum."},
			{Name: "contains", Type: "string", Description: "Case-insensitive substring for non-numeric columns."},
		},
		New: func() ops.Operation { return &ops.Filter{} },
	})
	Register(StageDef{
		Key:         "text",
		Label:       "Normalize text",
		Description: "Lowercase, strip special characters, trim and capitalize, in that order.",
		Order:       90,
		Params: []ParamDoc{
			{Name: "column", Type: "column", Required: true},
			{Name: "lowercase", Type: "bool"},
			{Name: "strip_special", Type: "bool"},
			{Name: "trim", Type: "bool"},
			{Name: "capitalize", Type: "bool"},
		},
		New: func() ops.Operation { return &ops.Text{} },
	})
	Register(StageDef{
		Key:         "replace",
		Label:       "Replace values",
		Description: "Replace every cell equal to a value.",
		Order:       100,
		Params: []ParamDoc{
			{Name: "column", Type: "column", Required: true},
			{Name: "old", Type: "string", Required: true},
			{Name: "new", Type: "string", Required: true},
		},
		New: func() ops.Operation { return &ops.Replace{} },
	})
	Register(StageDef{
		Key:         "drop_rows",
		Label:       "Drop rows by condition",
		Description: "Keep only rows that satisfy a condition on one column.",
		Order:       110,
		Params: []ParamDoc{
			{Name: "column", Type: "column", Required: true},
			{Name: "condition", Type: "gt|lt|eq|contains", Required: true},
			{Name: "threshold", Type: "number", Description: "For gt, lt and eq."},
			{Name: "value", Type: "string", Description: "For contains."},
		},
		New: func() ops.Operation { return &ops.DropRows{} },
	})
	Register(StageDef{
		Key:         "split",
		Label:       "Split column",
		Description: "Append columns <column>_1..<column>_k with the parts of each cell.",
		Order:       120,
		Params: []ParamDoc{
			{Name: "column", Type: "column", Required: true},
			{Name: "delimiter", Type: "string", Required: true},
			{Name: "parts", Type: "integer", Required: true, Description: fmt.Sprintf("Between %d and %d.", ops.MinSplitParts, ops.MaxSplitParts)},
		},
		New: func() ops.Operation { return &ops.Split{} },
	})
	Register(StageDef{
		Key:         "merge",
		Label:       "Merge columns",
		Description: "Append a text column joining the selected columns. Missing cells join as empty strings.",
		Order:       130,
		Params: []ParamDoc{
			{Name: "columns", Type: "list", Required: true, Description: "Two or more columns, in join order."},
			{Name: "separator", Type: "string"},
			{Name: "name", Type: "string", Required: true},
		},
		New: func() ops.Operation { return &ops.Merge{} },
	})
	Register(StageDef{
		Key:         "remove_values",
		Label:       "Remove rows by value",
		Description: "Drop rows whose cell matches one of the listed values.",
		Order:       140,
		Params: []ParamDoc{
			{Name: "column", Type: "column", Required: true},
			{Name: "values", Type: "list", Required: true},
		},
		New: func() ops.Operation { return &ops.RemoveValues{} },
	})
	Register(StageDef{
		Key:         "apply",
		Label:       "Apply expression",
		Description: "Evaluate an expression over x, the value of each cell.",
		Order:       150,
		Params: []ParamDoc{
			{Name: "column", Type: "column", Required: true},
			{Name: "expression", Type: "string", Required: true,
				Description: "Go expression syntax. Functions: " + strings.Join(expr.Names(), ", ") + "."},
		},
		New: func() ops.Operation { return &ops.ApplyExpr{} },
	})
}
