package ops

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/JonMunkholm/prism/internal/table"
)

func TestApplyExpr_ResultKinds(t *testing.T) {
	in := table.MustNew(
		withMissing(ints("n", 1, 2, 3, 0), 3),
		texts("s", "ab", "cd", "ef", "gh"),
	)

	tests := []struct {
		name     string
		op       ApplyExpr
		column   string
		wantKind table.Kind
		want     []string
	}{
		{"integer stays integer", ApplyExpr{Column: "n", Expression: "x * 2"}, "n",
			table.KindInteger, []string{"2", "4", "6", "<missing>"}},
		{"fractional becomes float", ApplyExpr{Column: "n", Expression: "x / 2"}, "n",
			table.KindFloat, []string{"0.5", "1.0", "1.5", "<missing>"}},
		{"comparison gives boolean", ApplyExpr{Column: "n", Expression: "x >= 2 && x < 3"}, "n",
			table.KindBoolean, []string{"False", "True", "False", "<missing>"}},
		{"bare comparison", ApplyExpr{Column: "n", Expression: "x > 1"}, "n",
			table.KindBoolean, []string{"False", "True", "True", "<missing>"}},
		{"bare negation", ApplyExpr{Column: "n", Expression: "!(x > 1)"}, "n",
			table.KindBoolean, []string{"True", "False", "False", "<missing>"}},
		{"bare equality", ApplyExpr{Column: "s", Expression: `x == "cd"`}, "s",
			table.KindBoolean, []string{"False", "True", "False", "False"}},
		{"string builtins", ApplyExpr{Column: "s", Expression: `upper(x) + "!"`}, "s",
			table.KindText, []string{"AB!", "CD!", "EF!", "GH!"}},
		{"string to number", ApplyExpr{Column: "s", Expression: "length(x)"}, "s",
			table.KindFloat, []string{"2.0", "2.0", "2.0", "2.0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _ := mustApply(t, tt.op, in)
			col, _ := out.Column(tt.column)
			if col.Kind != tt.wantKind {
				t.Errorf("kind = %s, want %s", col.Kind, tt.wantKind)
			}
			if diff := cmp.Diff(tt.want, columnStrings(t, out, tt.column)); diff != "" {
				t.Errorf("%s (-want +got):\n%s", tt.column, diff)
			}
		})
	}
}

func TestApplyExpr_Rejected(t *testing.T) {
	in := table.MustNew(texts("s", "a"))

	tests := []string{
		`os.Exit(1)`,
		`func() int { return 1 }()`,
		`y + 1`,
		`upper(x, x)`,
		``,
		`x + 1`, // type error: x is a string here
	}
	for _, src := range tests {
		t.Run(src, func(t *testing.T) {
			out, _, err := ApplyExpr{Column: "s", Expression: src}.Apply(context.Background(), in)
			if out != nil {
				t.Error("want no table")
			}
			var ue *UserCodeError
			if !errors.As(err, &ue) || ue.Row != -1 {
				t.Fatalf("error = %v, want compile-time UserCodeError", err)
			}
			if d := DiagnosticFor(err); d.Code != CodeExprRejected {
				t.Errorf("code = %s, want %s", d.Code, CodeExprRejected)
			}
		})
	}
}

func TestCompileTimeout_FromContext(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		ctx  context.Context
		want time.Duration
	}{
		{"default", ctx, DefaultCompileTimeout},
		{"set", WithCompileTimeout(ctx, 750*time.Millisecond), 750 * time.Millisecond},
		{"zero keeps default", WithCompileTimeout(ctx, 0), DefaultCompileTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := compileTimeout(tt.ctx); got != tt.want {
				t.Errorf("compileTimeout = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestApplyExpr_CellFailureLeavesColumn(t *testing.T) {
	in := table.MustNew(texts("s", "1", "2", "abc", "4"))

	out, _, err := ApplyExpr{Column: "s", Expression: "num(x) * 10"}.Apply(context.Background(), in)
	if out != nil {
		t.Error("want no table when a cell fails")
	}
	var ue *UserCodeError
	if !errors.As(err, &ue) {
		t.Fatalf("error = %v, want UserCodeError", err)
	}
	if ue.Row != 2 || ue.Value != "abc" {
		t.Errorf("UserCodeError = %+v, want row 2 value abc", ue)
	}
	if d := DiagnosticFor(err); d.Code != CodeExprFailed || d.Column != "s" {
		t.Errorf("diagnostic = %+v", d)
	}
	if diff := cmp.Diff([]string{"1", "2", "abc", "4"}, columnStrings(t, in, "s")); diff != "" {
		t.Errorf("input changed (-want +got):\n%s", diff)
	}
}
