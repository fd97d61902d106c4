// Package pipeline runs a plan of catalog stages over a table.
//
// The orchestrator folds the table through the enabled stages in catalog
// order. A stage that fails leaves the table as it was and records an error
// diagnostic; the run always ends with a final table and a report of every
// stage.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/JonMunkholm/prism/internal/logging"
	"github.com/JonMunkholm/prism/internal/ops"
	"github.com/JonMunkholm/prism/internal/table"
)

var ErrNoTable = errors.New("no table to transform")

// Defaults for Options.
const (
	DefaultPreviewRows = 10
	DefaultDiffTimeout = 200 * time.Millisecond
)

// Options configures an Orchestrator.
type Options struct {
	PreviewRows int           // rows kept in each stage preview
	DiffTimeout time.Duration // bound on each preview diff, 0 disables diffs
	ExprTimeout time.Duration // bound on compiling an apply expression, 0 keeps ops.DefaultCompileTimeout
	Logger      *slog.Logger  // defaults to logging.FromContext
}

// Orchestrator applies plans. It holds no per-run state and may be shared.
type Orchestrator struct {
	opts Options
}

// New returns an orchestrator. Zero options take the defaults, except
// DiffTimeout: pass DefaultDiffTimeout to enable diffs.
func New(opts Options) *Orchestrator {
	if opts.PreviewRows <= 0 {
		opts.PreviewRows = DefaultPreviewRows
	}
	return &Orchestrator{opts: opts}
}

// Run applies the enabled steps of plan to t in catalog order.
//
// An invalid plan is rejected before anything runs. Once running, stage
// failures are recorded in the report and never stop the run. If ctx is
// cancelled the remaining stages are skipped, and the report is returned
// together with ctx.Err().
func (o *Orchestrator) Run(ctx context.Context, t *table.Table, plan Plan) (*Report, error) {
	if t == nil {
		return nil, ErrNoTable
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	logger := o.opts.Logger
	if logger == nil {
		logger = logging.FromContext(ctx)
	}
	ctx = ops.WithCompileTimeout(ctx, o.opts.ExprTimeout)

	start := time.Now()
	steps := plan.Ordered()
	report := &Report{
		Plan:           plan,
		Initial:        table.Profile(t),
		InitialPreview: NewPreview(t, o.opts.PreviewRows),
		Stages:         make([]StageReport, 0, len(steps)),
	}

	cur := t
	prev := report.InitialPreview
	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			for _, rest := range steps[i:] {
				report.Stages = append(report.Stages, skipped(rest, cur, err))
			}
			report.Cancelled = true
			break
		}

		sr, next := o.runStage(ctx, step, cur, logger)
		if sr.Status == StatusApplied {
			sr.Preview = NewPreview(next, o.opts.PreviewRows)
			if o.opts.DiffTimeout > 0 {
				sr.Diff = LineDiff(prev.Text(), sr.Preview.Text(), o.opts.DiffTimeout)
			}
			prev = sr.Preview
		}
		report.Stages = append(report.Stages, sr)
		cur = next
	}

	report.Final = cur
	report.Profile = table.Profile(cur)
	report.Rows = cur.NumRows()
	report.Cols = cur.NumCols()
	report.DurationMs = time.Since(start).Milliseconds()

	logger.Info("pipeline finished",
		"stages", len(report.Stages),
		"failed", len(report.Failed()),
		"rows", report.Rows,
		"cols", report.Cols,
		"duration_ms", report.DurationMs,
	)

	if report.Cancelled {
		return report, ctx.Err()
	}
	return report, nil
}

// runStage applies one step and returns its report and the table to carry
// forward: the stage output, or t itself when the stage failed.
func (o *Orchestrator) runStage(ctx context.Context, step Step, t *table.Table, logger *slog.Logger) (StageReport, *table.Table) {
	op := step.Op
	sr := newStageReport(op, t)
	stageLog := logger.With("stage", op.Name())

	start := time.Now()
	out, diags, err := safeApply(ctx, op, t)
	sr.DurationMs = time.Since(start).Milliseconds()
	sr.Diagnostics = diags

	if err == nil {
		if verr := out.Validate(); verr != nil {
			err = fmt.Errorf("stage produced an invalid table: %w", verr)
		}
	}
	if err != nil {
		d := ops.DiagnosticFor(err)
		sr.Status = StatusFailed
		sr.Diagnostics = append(sr.Diagnostics, d)
		sr.RowsAfter, sr.ColsAfter = sr.RowsBefore, sr.ColsBefore
		stageLog.Warn("stage failed", "code", d.Code, "error", err)
		return sr, t
	}

	sr.Status = StatusApplied
	sr.RowsAfter, sr.ColsAfter = out.NumRows(), out.NumCols()
	stageLog.Debug("stage applied",
		"rows_before", sr.RowsBefore,
		"rows_after", sr.RowsAfter,
		"duration_ms", sr.DurationMs,
	)
	return sr, out
}

// safeApply runs op, turning a panic into an error.
func safeApply(ctx context.Context, op ops.Operation, t *table.Table) (out *table.Table, diags []ops.Diagnostic, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, diags = nil, nil
			err = fmt.Errorf("stage %s panicked: %v", op.Name(), r)
		}
	}()
	out, diags, err = op.Apply(ctx, t)
	if err == nil && out == nil {
		err = fmt.Errorf("stage %s returned no table", op.Name())
	}
	return out, diags, err
}

func skipped(step Step, t *table.Table, cause error) StageReport {
	sr := newStageReport(step.Op, t)
	sr.Status = StatusSkipped
	sr.RowsAfter, sr.ColsAfter = sr.RowsBefore, sr.ColsBefore
	sr.Diagnostics = []ops.Diagnostic{ops.DiagnosticFor(cause)}
	return sr
}
