package pipeline

import (
	"github.com/JonMunkholm/prism/internal/ops"
	"github.com/JonMunkholm/prism/internal/table"
)

// StageStatus is the outcome of one stage.
type StageStatus string

const (
	StatusApplied StageStatus = "applied"
	StatusFailed  StageStatus = "failed"
	StatusSkipped StageStatus = "skipped"
)

// StageReport is the result of one stage of a run.
type StageReport struct {
	Op          string           `json:"op"`
	Label       string           `json:"label"`
	Status      StageStatus      `json:"status"`
	Diagnostics []ops.Diagnostic `json:"diagnostics"`
	RowsBefore  int              `json:"rowsBefore"`
	RowsAfter   int              `json:"rowsAfter"`
	ColsBefore  int              `json:"colsBefore"`
	ColsAfter   int              `json:"colsAfter"`
	DurationMs  int64            `json:"durationMs"`
	Preview     *Preview         `json:"preview,omitempty"`
	Diff        *Diff            `json:"diff,omitempty"`
}

func newStageReport(op ops.Operation, t *table.Table) StageReport {
	label := op.Name()
	if def, ok := Lookup(op.Name()); ok {
		label = def.Label
	}
	return StageReport{
		Op:         op.Name(),
		Label:      label,
		RowsBefore: t.NumRows(),
		ColsBefore: t.NumCols(),
	}
}

// Report is the result of a whole run.
type Report struct {
	Plan           Plan                  `json:"plan"`
	Initial        []table.ColumnProfile `json:"initial"`
	InitialPreview *Preview              `json:"initialPreview"`
	Stages         []StageReport         `json:"stages"`
	Profile        []table.ColumnProfile `json:"profile"`
	Rows           int                   `json:"rows"`
	Cols           int                   `json:"cols"`
	Cancelled      bool                  `json:"cancelled,omitempty"`
	DurationMs     int64                 `json:"durationMs"`

	// Final is the table after the last stage.
	Final *table.Table `json:"-"`
}

// Failed returns the stages that did not apply.
func (r *Report) Failed() []StageReport {
	var out []StageReport
	for _, s := range r.Stages {
		if s.Status == StatusFailed {
			out = append(out, s)
		}
	}
	return out
}

// Diagnostics returns every diagnostic of the run in stage order.
func (r *Report) Diagnostics() []ops.Diagnostic {
	var out []ops.Diagnostic
	for _, s := range r.Stages {
		out = append(out, s.Diagnostics...)
	}
	return out
}

// LastPreview returns the preview of the final table.
func (r *Report) LastPreview() *Preview {
	for i := len(r.Stages) - 1; i >= 0; i-- {
		if r.Stages[i].Preview != nil {
			return r.Stages[i].Preview
		}
	}
	return r.InitialPreview
}
