package pipeline

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/JonMunkholm/prism/internal/ops"
	"github.com/JonMunkholm/prism/internal/table"
)

func testTable() *table.Table {
	return table.MustNew(
		table.NewColumn("id", table.KindInteger, []table.Cell{table.Int(1), table.Int(2), table.Int(2), table.Int(3)}),
		table.NewColumn("name", table.KindText, []table.Cell{table.Text(" Ann "), table.Text("bob"), table.Text("bob"), table.Missing()}),
	)
}

func names(tbl *table.Table) []string { return tbl.Names() }

// ----------------------------------------------------------------------------
// Registry Tests
// ----------------------------------------------------------------------------

func TestCatalog_Order(t *testing.T) {
	want := []string{
		"missing", "dedupe", "rename", "drop_columns", "reset_index", "convert", "outliers",
		"filter", "text", "replace", "drop_rows", "split", "merge", "remove_values", "apply",
	}
	if diff := cmp.Diff(want, Keys()); diff != "" {
		t.Errorf("catalog order (-want +got):\n%s", diff)
	}
	for _, def := range Catalog() {
		if def.Label == "" || def.Description == "" {
			t.Errorf("stage %s lacks label or description", def.Key)
		}
	}
}

func TestRegister_PanicsOnDuplicate(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Register should panic on a duplicate key")
		}
	}()
	Register(StageDef{Key: "dedupe", New: func() ops.Operation { return &ops.Dedupe{} }})
}

// ----------------------------------------------------------------------------
// Plan Decoding Tests
// ----------------------------------------------------------------------------

func TestParseJSON(t *testing.T) {
	src := `{"name": "tidy", "steps": [
		{"op": "split", "column": "name", "delimiter": " ", "parts": 2},
		{"op": "dedupe"},
		{"op": "rename", "names": "a, b", "enabled": false}
	]}`
	plan, err := ParseJSON(strings.NewReader(src))
	if err != nil {
		t.Fatalf("ParseJSON: %v", err)
	}
	if plan.Name != "tidy" || len(plan.Steps) != 3 {
		t.Fatalf("plan = %+v", plan)
	}
	split, ok := plan.Steps[0].Op.(*ops.Split)
	if !ok || split.Parts != 2 || split.Delimiter != " " {
		t.Errorf("split step = %#v", plan.Steps[0].Op)
	}
	if !plan.Steps[2].Disabled {
		t.Error("rename should be disabled")
	}

	var keys []string
	for _, s := range plan.Ordered() {
		keys = append(keys, s.Key())
	}
	if diff := cmp.Diff([]string{"dedupe", "split"}, keys); diff != "" {
		t.Errorf("ordered enabled steps (-want +got):\n%s", diff)
	}

	bare, err := ParseJSON(strings.NewReader(`[{"op": "reset_index"}]`))
	if err != nil || len(bare.Steps) != 1 {
		t.Errorf("bare array = (%+v, %v)", bare, err)
	}
}

func TestParseJSON_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want error
	}{
		{"unknown stage", `{"steps": [{"op": "explode"}]}`, ErrUnknownStage},
		{"missing op", `{"steps": [{"column": "a"}]}`, ErrMissingOp},
		{"duplicate", `{"steps": [{"op": "dedupe"}, {"op": "dedupe"}]}`, ErrDuplicateStage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseJSON(strings.NewReader(tt.src))
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRecipeYAML_RoundTrip(t *testing.T) {
	src := `name: cleanup
steps:
  - op: missing
    strategy: fill-custom
    value: "0"
  - op: outliers
    column: price
    method: cap
    lower: 0.1
  - op: merge
    columns: [first, last]
    separator: " "
    name: full
`
	plan, err := ParseYAML(strings.NewReader(src))
	if err != nil {
		t.Fatalf("ParseYAML: %v", err)
	}
	out, ok := plan.Steps[1].Op.(*ops.Outliers)
	if !ok || out.Lower == nil || *out.Lower != 0.1 || out.Upper != nil {
		t.Errorf("outliers step = %#v", plan.Steps[1].Op)
	}

	var buf bytes.Buffer
	if err := EncodeYAML(&buf, plan); err != nil {
		t.Fatalf("EncodeYAML: %v", err)
	}
	again, err := ParseYAML(&buf)
	if err != nil {
		t.Fatalf("re-parse: %v\n%s", err, buf.String())
	}
	if diff := cmp.Diff(plan.Steps[2].Op, again.Steps[2].Op); diff != "" {
		t.Errorf("merge step changed (-before +after):\n%s", diff)
	}

	if _, err := ParseYAML(strings.NewReader("")); err == nil {
		t.Error("empty recipe should fail")
	}
}

// ----------------------------------------------------------------------------
// Orchestrator Tests
// ----------------------------------------------------------------------------

func mustPlan(t *testing.T, src string) Plan {
	t.Helper()
	plan, err := ParseJSON(strings.NewReader(src))
	if err != nil {
		t.Fatalf("ParseJSON: %v", err)
	}
	return plan
}

func TestRun_FoldsInCatalogOrder(t *testing.T) {
	// Listed out of order: dedupe must still run before text.
	plan := mustPlan(t, `[
		{"op": "text", "column": "name", "trim": true, "capitalize": true},
		{"op": "dedupe"}
	]`)

	in := testTable()
	report, err := New(Options{DiffTimeout: DefaultDiffTimeout}).Run(context.Background(), in, plan)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(report.Stages) != 2 || report.Stages[0].Op != "dedupe" || report.Stages[1].Op != "text" {
		t.Fatalf("stages = %+v", report.Stages)
	}
	if report.Stages[0].RowsBefore != 4 || report.Stages[0].RowsAfter != 3 {
		t.Errorf("dedupe rows = %d -> %d", report.Stages[0].RowsBefore, report.Stages[0].RowsAfter)
	}

	name, _ := report.Final.Column("name")
	var got []string
	for _, c := range name.Cells {
		got = append(got, c.String())
	}
	if diff := cmp.Diff([]string{"Ann", "Bob", ""}, got); diff != "" {
		t.Errorf("final name (-want +got):\n%s", diff)
	}

	if report.Stages[1].Diff.Empty() {
		t.Error("text stage should have a diff")
	}
	if in.NumRows() != 4 {
		t.Error("input table changed")
	}
}

func TestRun_FailedStageKeepsTable(t *testing.T) {
	plan := mustPlan(t, `[
		{"op": "rename", "names": ["only_one"]},
		{"op": "convert", "column": "name", "to": "integer"},
		{"op": "reset_index"}
	]`)

	report, err := New(Options{}).Run(context.Background(), testTable(), plan)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Catalog order: rename, reset_index, convert.
	wantStatus := []StageStatus{StatusFailed, StatusApplied, StatusFailed}
	if len(report.Stages) != len(wantStatus) {
		t.Fatalf("stages = %d, want %d", len(report.Stages), len(wantStatus))
	}
	for i, sr := range report.Stages {
		if sr.Status != wantStatus[i] {
			t.Errorf("stage %s status = %s, want %s", sr.Op, sr.Status, wantStatus[i])
		}
	}
	if len(report.Failed()) != 2 {
		t.Errorf("failed = %d, want 2", len(report.Failed()))
	}

	rename := report.Stages[0]
	last := rename.Diagnostics[len(rename.Diagnostics)-1]
	if last.Severity != ops.SeverityError || last.Code != ops.CodeInvalidParam {
		t.Errorf("rename diagnostic = %+v", last)
	}
	if report.Stages[2].Op != "convert" {
		t.Fatalf("stage 2 = %s, want convert", report.Stages[2].Op)
	}
	conv := report.Stages[2].Diagnostics[0]
	if conv.Code != ops.CodeCoercion || !strings.Contains(conv.Message, `" Ann "`) {
		t.Errorf("convert diagnostic = %+v", conv)
	}

	if diff := cmp.Diff([]string{"id", "name"}, names(report.Final)); diff != "" {
		t.Errorf("columns after failures (-want +got):\n%s", diff)
	}
	col, _ := report.Final.Column("name")
	if col.Kind != table.KindText {
		t.Errorf("name kind = %s, want text", col.Kind)
	}
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	plan := mustPlan(t, `[{"op": "dedupe"}, {"op": "reset_index"}]`)
	report, err := New(Options{}).Run(ctx, testTable(), plan)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if !report.Cancelled || report.Final == nil {
		t.Fatalf("report = %+v", report)
	}
	for _, sr := range report.Stages {
		if sr.Status != StatusSkipped || sr.Diagnostics[0].Code != ops.CodeStageCancelled {
			t.Errorf("stage %s = %s %+v", sr.Op, sr.Status, sr.Diagnostics)
		}
	}
}

type panicOp struct{ ops.ResetIndex }

func (panicOp) Apply(context.Context, *table.Table) (*table.Table, []ops.Diagnostic, error) {
	panic("boom")
}

func TestRun_RecoversPanics(t *testing.T) {
	plan := Plan{Steps: []Step{{Op: panicOp{}}}}
	report, err := New(Options{}).Run(context.Background(), testTable(), plan)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Stages[0].Status != StatusFailed {
		t.Errorf("status = %s, want failed", report.Stages[0].Status)
	}
	if report.Final.NumRows() != 4 {
		t.Errorf("rows = %d, want 4", report.Final.NumRows())
	}
}

func TestRun_RejectsBadInput(t *testing.T) {
	if _, err := New(Options{}).Run(context.Background(), nil, Plan{}); !errors.Is(err, ErrNoTable) {
		t.Errorf("nil table error = %v", err)
	}
	dup := Plan{Steps: []Step{{Op: &ops.Dedupe{}}, {Op: &ops.Dedupe{}}}}
	if _, err := New(Options{}).Run(context.Background(), testTable(), dup); !errors.Is(err, ErrDuplicateStage) {
		t.Errorf("duplicate plan error = %v", err)
	}
}

// ----------------------------------------------------------------------------
// Preview / Diff Tests
// ----------------------------------------------------------------------------

func TestPreview(t *testing.T) {
	p := NewPreview(testTable(), 3)
	if p.TotalRows != 4 || len(p.Rows) != 3 {
		t.Fatalf("preview rows = %d of %d", len(p.Rows), p.TotalRows)
	}
	full := NewPreview(testTable(), 10)
	if full.Cell(3, 1) != MissingToken {
		t.Errorf("missing cell = %q", full.Cell(3, 1))
	}
	if !strings.HasPrefix(full.Text(), "#\tid:integer\tname:text\n0\t1\t Ann \n") {
		t.Errorf("Text() = %q", full.Text())
	}
}

func TestLineDiff(t *testing.T) {
	d := LineDiff("a\nb\nc\n", "a\nB\nc\nd\n", time.Second)
	if d.Added != 2 || d.Removed != 1 {
		t.Errorf("diff = +%d -%d, want +2 -1", d.Added, d.Removed)
	}
	if !strings.Contains(d.String(), "- b") || !strings.Contains(d.String(), "+ d") {
		t.Errorf("String() = %q", d.String())
	}
	if !LineDiff("same\n", "same\n", time.Second).Empty() {
		t.Error("identical texts should give an empty diff")
	}
}
