package table

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func intColumn(name string, vals ...int64) *Column {
	cells := make([]Cell, len(vals))
	for i, v := range vals {
		cells[i] = Int(v)
	}
	return NewColumn(name, KindInteger, cells)
}

func textColumn(name string, vals ...string) *Column {
	cells := make([]Cell, len(vals))
	for i, v := range vals {
		cells[i] = Text(v)
	}
	return NewColumn(name, KindText, cells)
}

// ----------------------------------------------------------------------------
// Cell Tests
// ----------------------------------------------------------------------------

func TestCell_MissingIsDistinct(t *testing.T) {
	if !Missing().IsMissing() {
		t.Fatal("Missing() should be missing")
	}
	if Text("").IsMissing() || Int(0).IsMissing() {
		t.Error("empty string and zero must not be missing")
	}
	if Missing().Equal(Text("")) {
		t.Error("missing must not equal empty string")
	}
	if !Missing().Equal(Missing()) {
		t.Error("missing must equal missing")
	}
	if !Float(math.NaN()).IsMissing() {
		t.Error("NaN floats are missing")
	}
}

func TestCell_String(t *testing.T) {
	tests := []struct {
		cell Cell
		want string
	}{
		{Int(42), "42"},
		{Float(2.5), "2.5"},
		{Float(3), "3.0"},
		{Bool(false), "False"},
		{Text("hi"), "hi"},
		{Missing(), ""},
	}
	for _, tt := range tests {
		if got := tt.cell.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestCell_NumericEquality(t *testing.T) {
	if !Int(1).Equal(Float(1)) {
		t.Error("Int(1) should equal Float(1)")
	}
	if Int(1).Equal(Text("1")) {
		t.Error("Int(1) should not equal Text(\"1\")")
	}
}

// ----------------------------------------------------------------------------
// Table Invariant Tests
// ----------------------------------------------------------------------------

func TestNew_Invariants(t *testing.T) {
	tests := []struct {
		name    string
		cols    []*Column
		wantErr error
	}{
		{
			name: "valid",
			cols: []*Column{intColumn("a", 1, 2), textColumn("b", "x", "y")},
		},
		{
			name:    "length mismatch",
			cols:    []*Column{intColumn("a", 1, 2), textColumn("b", "x")},
			wantErr: ErrLengthMismatch,
		},
		{
			name:    "duplicate names",
			cols:    []*Column{intColumn("a", 1), textColumn("a", "x")},
			wantErr: ErrDuplicateColumn,
		},
		{
			name:    "empty name",
			cols:    []*Column{intColumn(" ", 1)},
			wantErr: ErrEmptyColumnName,
		},
		{
			name:    "text in integer column",
			cols:    []*Column{NewColumn("a", KindInteger, []Cell{Int(1), Text("x")})},
			wantErr: ErrKindMismatch,
		},
		{
			name: "integers allowed in float column",
			cols: []*Column{NewColumn("a", KindFloat, []Cell{Int(1), Float(2.5), Missing()})},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cols...)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("New() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("New() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestTable_DoesNotMutateReceiver(t *testing.T) {
	orig := MustNew(intColumn("a", 1, 2, 3), textColumn("b", "x", "y", "z"))

	renamed, err := orig.Rename([]string{"c", "d"})
	if err != nil {
		t.Fatalf("Rename: %v", err)
	}
	filtered := orig.Filter(func(row int) bool { return row != 1 })
	dropped, err := orig.DropColumns("b")
	if err != nil {
		t.Fatalf("DropColumns: %v", err)
	}

	if diff := cmp.Diff([]string{"a", "b"}, orig.Names()); diff != "" {
		t.Errorf("original names changed (-want +got):\n%s", diff)
	}
	if orig.NumRows() != 3 {
		t.Errorf("original rows = %d, want 3", orig.NumRows())
	}
	if diff := cmp.Diff([]string{"c", "d"}, renamed.Names()); diff != "" {
		t.Errorf("renamed names (-want +got):\n%s", diff)
	}
	if filtered.NumRows() != 2 {
		t.Errorf("filtered rows = %d, want 2", filtered.NumRows())
	}
	if dropped.NumCols() != 1 {
		t.Errorf("dropped cols = %d, want 1", dropped.NumCols())
	}
}

func TestTable_RenameValidation(t *testing.T) {
	tbl := MustNew(intColumn("a", 1), intColumn("b", 2))

	if _, err := tbl.Rename([]string{"x"}); !errors.Is(err, ErrLengthMismatch) {
		t.Errorf("short rename error = %v, want ErrLengthMismatch", err)
	}
	if _, err := tbl.Rename([]string{"x", "x"}); !errors.Is(err, ErrDuplicateColumn) {
		t.Errorf("duplicate rename error = %v, want ErrDuplicateColumn", err)
	}
}

func TestTable_DropColumns(t *testing.T) {
	tbl := MustNew(intColumn("a", 1), intColumn("b", 2))

	if _, err := tbl.DropColumns("a", "b"); !errors.Is(err, ErrNoColumns) {
		t.Errorf("drop all error = %v, want ErrNoColumns", err)
	}
	if _, err := tbl.DropColumns("zzz"); !errors.Is(err, ErrColumnNotFound) {
		t.Errorf("drop unknown error = %v, want ErrColumnNotFound", err)
	}
}

func TestTable_IndexFollowsRows(t *testing.T) {
	tbl := MustNew(intColumn("a", 10, 20, 30, 40))

	filtered := tbl.Filter(func(row int) bool { return row%2 == 1 })
	if diff := cmp.Diff([]int{1, 3}, filtered.Index()); diff != "" {
		t.Errorf("index after filter (-want +got):\n%s", diff)
	}

	reset := filtered.ResetIndex()
	if diff := cmp.Diff([]int{0, 1}, reset.Index()); diff != "" {
		t.Errorf("index after reset (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{1, 3}, filtered.Index()); diff != "" {
		t.Errorf("reset mutated source index (-want +got):\n%s", diff)
	}
}

func TestTable_RowKey(t *testing.T) {
	tbl := MustNew(
		NewColumn("a", KindObject, []Cell{Int(1), Float(1), Missing(), Missing()}),
		textColumn("b", "x", "x", "", ""),
	)
	if tbl.RowKey(0, nil) != tbl.RowKey(1, nil) {
		t.Error("rows 0 and 1 should share a key (1 == 1.0)")
	}
	if tbl.RowKey(2, nil) != tbl.RowKey(3, nil) {
		t.Error("rows 2 and 3 should share a key (missing == missing)")
	}
	if tbl.RowKey(0, nil) == tbl.RowKey(2, nil) {
		t.Error("rows 0 and 2 should differ")
	}
}

func TestTable_RowKey_SeparatorInText(t *testing.T) {
	tbl := MustNew(
		textColumn("a", "x\x1fsy", "x"),
		textColumn("b", "z", "y\x1fsz"),
	)
	if tbl.RowKey(0, nil) == tbl.RowKey(1, nil) {
		t.Errorf("distinct rows share key %q", tbl.RowKey(0, nil))
	}
}
