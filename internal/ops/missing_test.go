package ops

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/JonMunkholm/prism/internal/table"
)

func missingTable() *table.Table {
	return table.MustNew(
		withMissing(ints("a", 1, 2, 0, 4), 2),
		withMissing(texts("b", "x", "y", "y", "z"), 0),
		withMissing(floats("c", 0, 0, 0, 0), 0, 1, 2, 3),
	)
}

func TestHandleMissing_Validate(t *testing.T) {
	tests := []struct {
		name    string
		op      HandleMissing
		wantErr bool
	}{
		{"drop rows", HandleMissing{Strategy: DropMissingRows}, false},
		{"fill custom", HandleMissing{Strategy: FillCustom, Value: "0"}, false},
		{"fill custom without value", HandleMissing{Strategy: FillCustom}, true},
		{"no strategy", HandleMissing{}, true},
		{"unknown strategy", HandleMissing{Strategy: "interpolate"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.op.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			var ve *ValidationError
			if err != nil && !errors.As(err, &ve) {
				t.Errorf("error %T is not a ValidationError", err)
			}
		})
	}
}

func TestHandleMissing_DropRows(t *testing.T) {
	tbl := table.MustNew(
		withMissing(ints("a", 1, 2, 3, 4), 1),
		withMissing(texts("b", "w", "x", "y", "z"), 3),
	)
	out, diags := mustApply(t, HandleMissing{Strategy: DropMissingRows}, tbl)

	if diff := cmp.Diff([]string{"1", "3"}, columnStrings(t, out, "a")); diff != "" {
		t.Errorf("a (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{0, 2}, out.Index()); diff != "" {
		t.Errorf("index (-want +got):\n%s", diff)
	}
	if !strings.Contains(diags[0].Message, "a=1, b=1") {
		t.Errorf("summary = %q, want per-column counts", diags[0].Message)
	}
}

func TestHandleMissing_FillMean(t *testing.T) {
	out, diags := mustApply(t, HandleMissing{Strategy: FillMean}, missingTable())

	a, _ := out.Column("a")
	if a.Kind != table.KindFloat {
		t.Errorf("a kind = %s, want float (mean 7/3 is fractional)", a.Kind)
	}
	if a.MissingCount() != 0 {
		t.Errorf("a still has %d missing cells", a.MissingCount())
	}

	// Text is not numeric: untouched.
	b, _ := out.Column("b")
	if b.MissingCount() != 1 {
		t.Errorf("b missing = %d, want 1", b.MissingCount())
	}

	// All-missing numeric column: skipped with a warning.
	c, _ := out.Column("c")
	if c.MissingCount() != 4 {
		t.Errorf("c missing = %d, want 4", c.MissingCount())
	}
	var warned bool
	for _, d := range diags {
		if d.Code == CodeUndefinedStat && d.Column == "c" && d.Severity == SeverityWarning {
			warned = true
		}
	}
	if !warned {
		t.Errorf("no undefined-statistic warning for c in %v", diags)
	}
}

func TestHandleMissing_FillMedianKeepsIntegers(t *testing.T) {
	tbl := table.MustNew(withMissing(ints("a", 1, 3, 0, 5), 2))
	out, _ := mustApply(t, HandleMissing{Strategy: FillMedian}, tbl)

	a, _ := out.Column("a")
	want := []table.Cell{table.Int(1), table.Int(3), table.Int(3), table.Int(5)}
	if diff := cmp.Diff(want, a.Cells, cellsEqual); diff != "" {
		t.Errorf("a (-want +got):\n%s", diff)
	}
	if a.Kind != table.KindInteger {
		t.Errorf("a kind = %s, want integer", a.Kind)
	}
}

func TestHandleMissing_FillMode(t *testing.T) {
	out, _ := mustApply(t, HandleMissing{Strategy: FillMode}, missingTable())

	if diff := cmp.Diff([]string{"y", "y", "y", "z"}, columnStrings(t, out, "b")); diff != "" {
		t.Errorf("b (-want +got):\n%s", diff)
	}
	// No value repeats in a, so the first one wins.
	if diff := cmp.Diff([]string{"1", "2", "1", "4"}, columnStrings(t, out, "a")); diff != "" {
		t.Errorf("a (-want +got):\n%s", diff)
	}
}

func TestHandleMissing_FillCustom(t *testing.T) {
	t.Run("coerced per column", func(t *testing.T) {
		out, _ := mustApply(t, HandleMissing{Strategy: FillCustom, Value: "7"}, missingTable())

		a, _ := out.Column("a")
		if a.Kind != table.KindInteger || !a.Cells[2].Equal(table.Int(7)) {
			t.Errorf("a = %s %v, want integer with 7", a.Kind, columnStrings(t, out, "a"))
		}
		b, _ := out.Column("b")
		if s, _ := b.Cells[0].TextValue(); s != "7" {
			t.Errorf("b[0] = %v, want text 7", b.Cells[0])
		}
		c, _ := out.Column("c")
		if c.Kind != table.KindFloat || c.MissingCount() != 0 {
			t.Errorf("c = %s with %d missing", c.Kind, c.MissingCount())
		}
	})

	t.Run("uncoercible literal turns column into object", func(t *testing.T) {
		out, _ := mustApply(t, HandleMissing{Strategy: FillCustom, Value: "unknown"}, missingTable())

		a, _ := out.Column("a")
		if a.Kind != table.KindObject {
			t.Errorf("a kind = %s, want object", a.Kind)
		}
		if diff := cmp.Diff([]string{"1", "2", "unknown", "4"}, columnStrings(t, out, "a")); diff != "" {
			t.Errorf("a (-want +got):\n%s", diff)
		}
	})
}

func TestHandleMissing_NoMissing(t *testing.T) {
	in := sample()
	out, diags := mustApply(t, HandleMissing{Strategy: FillMean}, in)
	if out.NumRows() != in.NumRows() {
		t.Errorf("rows = %d, want %d", out.NumRows(), in.NumRows())
	}
	if diags[0].Message != "no missing values" {
		t.Errorf("summary = %q", diags[0].Message)
	}
}
