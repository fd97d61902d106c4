// Package views renders the HTML pages of the web UI as templ components.
package views

import (
	"fmt"
	"strings"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/prism/internal/core"
	"github.com/JonMunkholm/prism/internal/export"
	"github.com/JonMunkholm/prism/internal/pipeline"
)

func runSummary(result *core.RunResult) string {
	r := result.Report
	return fmt.Sprintf("%d rows, %d columns after %d stages (%d ms). Expires at %s.",
		r.Rows, r.Cols, len(r.Stages), r.DurationMs, result.ExpiresAt.Format("15:04:05 MST"))
}

func exportURL(id string, f export.Format) templ.SafeURL {
	return templ.URL("/api/runs/" + id + "/export?format=" + string(f))
}

func recipeURL(id string) templ.SafeURL {
	return templ.URL("/api/runs/" + id + "/recipe")
}

// stageShape reads like "applied, 10×3 → 8×3".
func stageShape(sr pipeline.StageReport) string {
	return fmt.Sprintf("%s, %d×%d → %d×%d", sr.Status, sr.RowsBefore, sr.ColsBefore, sr.RowsAfter, sr.ColsAfter)
}

func diffText(d *pipeline.Diff) string {
	var b strings.Builder
	for _, l := range d.Lines {
		b.WriteString(l.Op + " " + l.Text + "\n")
	}
	if d.Truncated {
		b.WriteString("...\n")
	}
	return b.String()
}
