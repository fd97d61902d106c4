package pipeline

import (
	"strings"
	"time"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// MaxDiffLines bounds the changed lines kept in a Diff.
const MaxDiffLines = 40

// DiffLine is one added or removed preview line.
type DiffLine struct {
	Op   string `json:"op"` // "+" or "-"
	Text string `json:"text"`
}

// Diff summarizes how a stage changed the preview of the table.
type Diff struct {
	Added     int        `json:"added"`
	Removed   int        `json:"removed"`
	Lines     []DiffLine `json:"lines,omitempty"`
	Truncated bool       `json:"truncated,omitempty"`
}

// Empty reports whether nothing changed.
func (d *Diff) Empty() bool { return d == nil || d.Added+d.Removed == 0 }

// LineDiff compares two texts line by line. timeout bounds the diff; when
// it runs out the result is coarser but still correct.
func LineDiff(before, after string, timeout time.Duration) *Diff {
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = timeout

	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lines)

	d := &Diff{}
	for _, diff := range diffs {
		var op string
		switch diff.Type {
		case diffmatchpatch.DiffInsert:
			op = "+"
		case diffmatchpatch.DiffDelete:
			op = "-"
		default:
			continue
		}
		for _, line := range strings.SplitAfter(diff.Text, "\n") {
			if line == "" {
				continue
			}
			if op == "+" {
				d.Added++
			} else {
				d.Removed++
			}
			if len(d.Lines) < MaxDiffLines {
				d.Lines = append(d.Lines, DiffLine{Op: op, Text: strings.TrimSuffix(line, "\n")})
			} else {
				d.Truncated = true
			}
		}
	}
	return d
}

// String renders the diff with +/- prefixes, one line each.
func (d *Diff) String() string {
	if d == nil {
		return ""
	}
	var b strings.Builder
	for _, l := range d.Lines {
		b.WriteString(l.Op)
		b.WriteString(" ")
		b.WriteString(l.Text)
		b.WriteString("\n")
	}
	if d.Truncated {
		b.WriteString("...\n")
	}
	return b.String()
}
