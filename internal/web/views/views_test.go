package views

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/prism/internal/core"
	"github.com/JonMunkholm/prism/internal/ops"
	"github.com/JonMunkholm/prism/internal/pipeline"
	"github.com/JonMunkholm/prism/internal/table"
)

func TestErrorAlert_Escapes(t *testing.T) {
	var b strings.Builder
	if err := ErrorAlert(`bad <script>`, "retry & wait", "X001").Render(context.Background(), &b); err != nil {
		t.Fatal(err)
	}
	got := b.String()
	if strings.Contains(got, "<script>") {
		t.Errorf("unescaped output: %s", got)
	}
	for _, want := range []string{"bad &lt;script&gt;", "retry &amp; wait", "Code: X001"} {
		if !strings.Contains(got, want) {
			t.Errorf("output lacks %q: %s", want, got)
		}
	}
}

func TestRunPage(t *testing.T) {
	tbl := table.MustNew(
		table.NewColumn("name", table.KindText, []table.Cell{table.Text("ann"), table.Missing()}),
	)
	report := &pipeline.Report{
		InitialPreview: pipeline.NewPreview(tbl, 5),
		Stages: []pipeline.StageReport{{
			Op:          "text",
			Label:       "Normalize text",
			Status:      pipeline.StatusFailed,
			Diagnostics: []ops.Diagnostic{{Severity: ops.SeverityError, Code: "VAL002", Message: "column not found"}},
		}},
		Profile: table.Profile(tbl),
		Rows:    2,
		Cols:    1,
		Final:   tbl,
	}
	result := &core.RunResult{ID: "abc", FileName: "in.csv", ExpiresAt: time.Now(), Report: report}

	var b strings.Builder
	if err := RunPage(result, true).Render(context.Background(), &b); err != nil {
		t.Fatal(err)
	}
	got := b.String()
	for _, want := range []string{
		"<title>in.csv | Prism</title>",
		`<td class="na">&lt;NA&gt;</td>`,
		`class="stage failed"`,
		"column not found",
		"/api/runs/abc/export?format=json",
		"/api/runs/abc/sink",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("page lacks %q", want)
		}
	}
}

func TestHome_ListsCatalog(t *testing.T) {
	var b strings.Builder
	if err := Home(pipeline.Catalog()).Render(context.Background(), &b); err != nil {
		t.Fatal(err)
	}
	for _, key := range pipeline.Keys() {
		if !strings.Contains(b.String(), "<code>"+key+"</code>") {
			t.Errorf("home lacks stage %s", key)
		}
	}
}

// ----------------------------------------------------------------------------
// Full pages
// ----------------------------------------------------------------------------

func TestErrorPage_WrapsAlertInLayout(t *testing.T) {
	var b strings.Builder
	if err := ErrorPage("Upload failed", "", "UPL001").Render(context.Background(), &b); err != nil {
		t.Fatal(err)
	}
	got := b.String()
	for _, want := range []string{
		"<!doctype html>",
		"<title>Error | Prism</title>",
		`<main><div class="alert" role="alert"><strong>Upload failed</strong> <small>Code: UPL001</small></div></main>`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("page lacks %q: %s", want, got)
		}
	}
	if strings.Contains(got, "<p></p>") {
		t.Errorf("empty action rendered: %s", got)
	}
}

func TestPreviewTable_TruncationNote(t *testing.T) {
	cells := make([]table.Cell, 8)
	for i := range cells {
		cells[i] = table.Int(int64(i))
	}
	tbl := table.MustNew(table.NewColumn("n", table.KindInteger, cells))

	var b strings.Builder
	if err := previewTable(pipeline.NewPreview(tbl, 3)).Render(context.Background(), &b); err != nil {
		t.Fatal(err)
	}
	if want := "Showing 3 of 8 rows."; !strings.Contains(b.String(), want) {
		t.Errorf("preview lacks %q: %s", want, b.String())
	}

	b.Reset()
	if err := previewTable(nil).Render(context.Background(), &b); err != nil {
		t.Fatal(err)
	}
	if b.Len() != 0 {
		t.Errorf("nil preview rendered %q", b.String())
	}
}

func TestStageShape(t *testing.T) {
	sr := pipeline.StageReport{Status: pipeline.StatusApplied, RowsBefore: 10, ColsBefore: 3, RowsAfter: 8, ColsAfter: 3}
	if got, want := stageShape(sr), "applied, 10×3 → 8×3"; got != want {
		t.Errorf("stageShape = %q, want %q", got, want)
	}
}
