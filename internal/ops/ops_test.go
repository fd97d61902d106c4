package ops

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/JonMunkholm/prism/internal/table"
)

// cellsEqual compares cells by value and kind.
var cellsEqual = cmp.Comparer(func(a, b table.Cell) bool {
	return a.Kind() == b.Kind() && a.Equal(b)
})

func ints(name string, vals ...int64) *table.Column {
	cells := make([]table.Cell, len(vals))
	for i, v := range vals {
		cells[i] = table.Int(v)
	}
	return table.NewColumn(name, table.KindInteger, cells)
}

func floats(name string, vals ...float64) *table.Column {
	cells := make([]table.Cell, len(vals))
	for i, v := range vals {
		cells[i] = table.Float(v)
	}
	return table.NewColumn(name, table.KindFloat, cells)
}

func texts(name string, vals ...string) *table.Column {
	cells := make([]table.Cell, len(vals))
	for i, v := range vals {
		cells[i] = table.Text(v)
	}
	return table.NewColumn(name, table.KindText, cells)
}

// withMissing replaces the given rows of a column with missing cells.
func withMissing(col *table.Column, rows ...int) *table.Column {
	c := col.Clone()
	for _, r := range rows {
		c.Cells[r] = table.Missing()
	}
	return c
}

func mustApply(t *testing.T, op Operation, tbl *table.Table) (*table.Table, []Diagnostic) {
	t.Helper()
	out, diags, err := op.Apply(context.Background(), tbl)
	if err != nil {
		t.Fatalf("%s.Apply: %v", op.Name(), err)
	}
	return out, diags
}

func columnStrings(t *testing.T, tbl *table.Table, name string) []string {
	t.Helper()
	col, ok := tbl.Column(name)
	if !ok {
		t.Fatalf("column %q not found in %v", name, tbl.Names())
	}
	out := make([]string, col.Len())
	for i, c := range col.Cells {
		if c.IsMissing() {
			out[i] = "<missing>"
			continue
		}
		out[i] = c.String()
	}
	return out
}

func sample() *table.Table {
	return table.MustNew(
		ints("id", 1, 2, 3, 4),
		texts("name", "a,b,c", "a", "x,y", "p,q"),
		floats("score", 1.5, 2.5, 3.5, 4.5),
	)
}

func ptr(f float64) *float64 { return &f }

// ----------------------------------------------------------------------------
// Row Count Invariance
// ----------------------------------------------------------------------------

func TestRowCountInvariant(t *testing.T) {
	tests := []Operation{
		Rename{Names: NameList{"a", "b", "c"}},
		Convert{Column: "id", To: "text"},
		Text{Column: "name", Lowercase: true, Trim: true},
		Replace{Column: "id", Old: "2", New: "20"},
		Split{Column: "name", Delimiter: ",", Parts: 2},
		Merge{Columns: NameList{"id", "name"}, Separator: "-", Into: "merged"},
		ResetIndex{},
		ApplyExpr{Column: "score", Expression: "x * 2"},
		Outliers{Column: "score", Method: OutlierCap},
	}

	for _, op := range tests {
		t.Run(op.Name(), func(t *testing.T) {
			in := sample()
			out, _ := mustApply(t, op, in)
			if out.NumRows() != in.NumRows() {
				t.Errorf("rows = %d, want %d", out.NumRows(), in.NumRows())
			}
		})
	}
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	in := sample()
	before := columnStrings(t, in, "name")

	ops := []Operation{
		Text{Column: "name", Capitalize: true},
		Replace{Column: "name", Old: "a", New: "z"},
		HandleMissing{Strategy: FillCustom, Value: "n/a"},
	}
	for _, op := range ops {
		mustApply(t, op, in)
	}

	if diff := cmp.Diff(before, columnStrings(t, in, "name")); diff != "" {
		t.Errorf("input changed (-before +after):\n%s", diff)
	}
}

// ----------------------------------------------------------------------------
// Diagnostic Codes
// ----------------------------------------------------------------------------

func TestDiagnosticFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"validation", invalid("names", "bad"), CodeInvalidParam},
		{"column not found", &ValidationError{Field: "column", Code: CodeColumnNotFound}, CodeColumnNotFound},
		{"coercion", &CoercionError{Column: "a", Value: "abc", Target: table.KindInteger}, CodeCoercion},
		{"user code compile", &UserCodeError{Row: -1, Err: errors.New("x")}, CodeExprRejected},
		{"user code eval", &UserCodeError{Row: 3, Err: errors.New("x")}, CodeExprFailed},
		{"cancelled", fmt.Errorf("stage: %w", context.Canceled), CodeStageCancelled},
		{"duplicate", fmt.Errorf("%w: %q", table.ErrDuplicateColumn, "a"), CodeNameCollision},
		{"other", errors.New("boom"), CodeStageFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := DiagnosticFor(tt.err)
			if d.Code != tt.want {
				t.Errorf("Code = %q, want %q", d.Code, tt.want)
			}
			if d.Severity != SeverityError {
				t.Errorf("Severity = %q, want error", d.Severity)
			}
		})
	}
}
