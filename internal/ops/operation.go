// Package ops implements the catalog of table transformations.
//
// Every operation is a small parameter record with a Validate method and an
// Apply method. Apply never modifies its input table: it returns a new table
// together with informational diagnostics, or an error and no table.
//
// Errors fall into four classes, all discoverable with errors.As:
//
//   - *ValidationError: parameters don't fit the table (no-op)
//   - *CoercionError: a cell could not be converted (whole operation aborted)
//   - *UserCodeError: a custom expression failed (whole operation aborted)
//   - undefined statistics are not errors; they produce a warning diagnostic
//     and the affected column is skipped
package ops

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/prism/internal/table"
)

// ContextCheckInterval is how often (in rows) long-running operations check
// for context cancellation.
var ContextCheckInterval = 1000

// Operation is one configurable transformation from the catalog.
type Operation interface {
	// Name is the catalog key, e.g. "missing" or "split".
	Name() string
	// Validate checks parameters that don't depend on the table.
	Validate() error
	// Apply runs the operation against t.
	Apply(ctx context.Context, t *table.Table) (*table.Table, []Diagnostic, error)
}

// Severity classifies a diagnostic.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Diagnostic is a message attached to a stage result.
type Diagnostic struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code,omitempty"`
	Column   string   `json:"column,omitempty"`
	Message  string   `json:"message"`
}

func (d Diagnostic) String() string {
	if d.Code != "" {
		return fmt.Sprintf("[%s %s] %s", d.Severity, d.Code, d.Message)
	}
	return fmt.Sprintf("[%s] %s", d.Severity, d.Message)
}

func infof(column, format string, args ...any) Diagnostic {
	return Diagnostic{Severity: SeverityInfo, Column: column, Message: fmt.Sprintf(format, args...)}
}

func warnf(code, column, format string, args ...any) Diagnostic {
	return Diagnostic{Severity: SeverityWarning, Code: code, Column: column, Message: fmt.Sprintf(format, args...)}
}

// checkContext returns ctx.Err() every ContextCheckInterval rows.
func checkContext(ctx context.Context, row int) error {
	if row%ContextCheckInterval == 0 {
		return ctx.Err()
	}
	return nil
}

// requireColumn looks up a column or returns a ValidationError naming the
// parameter that referenced it.
func requireColumn(t *table.Table, field, name string) (*table.Column, error) {
	if name == "" {
		return nil, &ValidationError{Field: field, Message: "a column is required", Code: CodeInvalidParam}
	}
	col, ok := t.Column(name)
	if !ok {
		return nil, &ValidationError{Field: field, Value: name, Message: "column not found", Code: CodeColumnNotFound}
	}
	return col, nil
}

// mapCells applies fn to every cell of col, stopping at the first error.
func mapCells(ctx context.Context, col *table.Column, fn func(row int, c table.Cell) (table.Cell, error)) ([]table.Cell, error) {
	out := make([]table.Cell, col.Len())
	for i, c := range col.Cells {
		if err := checkContext(ctx, i); err != nil {
			return nil, err
		}
		v, err := fn(i, c)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// unifyKind returns the narrowest column kind that holds every non-missing
// cell: a shared kind, float for mixed integers and floats, otherwise object.
func unifyKind(cells []table.Cell, fallback table.Kind) table.Kind {
	kind := table.KindObject
	seen := false
	for _, c := range cells {
		if c.IsMissing() {
			continue
		}
		k := c.Kind()
		switch {
		case !seen:
			kind, seen = k, true
		case k == kind:
		case k.Numeric() && kind.Numeric():
			kind = table.KindFloat
		default:
			return table.KindObject
		}
	}
	if !seen {
		return fallback
	}
	return kind
}
