// Command prism applies a cleaning recipe to a dataset from the command line.
//
//	prism -in data.csv -recipe recipe.yaml -out cleaned.parquet
//
// The recipe is the same YAML (or JSON) plan the web API accepts, and the
// one GET /api/runs/{id}/recipe downloads. Stage diagnostics are logged to
// stderr; the cleaned table goes to -out or stdout.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/JonMunkholm/prism/internal/export"
	"github.com/JonMunkholm/prism/internal/ingest"
	"github.com/JonMunkholm/prism/internal/logging"
	"github.com/JonMunkholm/prism/internal/ops"
	"github.com/JonMunkholm/prism/internal/pipeline"
	"github.com/JonMunkholm/prism/internal/table"
)

// errStagesFailed is returned under -strict when any stage failed.
var errStagesFailed = errors.New("one or more stages failed")

func main() {
	// A missing .env file is fine; the CLI only reads the database URL from it.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		slog.Error("prism failed", "error", err)
		os.Exit(1)
	}
}

type options struct {
	in, recipe, out, format, sheet, sink string
	diff, index, replace, strict       bool
	previewRows                        int
	exprTimeout                        time.Duration
	logLevel, logFormat                string
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("prism", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.in, "in", "", "input file (.csv, .tsv, .txt, .xlsx, .parquet)")
	fs.StringVar(&o.recipe, "recipe", "", "recipe file (.yaml or .json); empty runs no stages")
	fs.StringVar(&o.out, "out", "", "output file; stdout when empty")
	fs.StringVar(&o.format, "format", "", "output format: csv, json, parquet (default from -out extension, else csv)")
	fs.StringVar(&o.sheet, "sheet", "", "xlsx sheet to read (default first sheet)")
	fs.StringVar(&o.sink, "sink", "", "also copy the result into this Postgres table (needs EXPORT_DATABASE_URL)")
	fs.BoolVar(&o.replace, "replace", false, "drop the -sink table before copying")
	fs.BoolVar(&o.diff, "diff", false, "print the preview diff of every applied stage")
	fs.BoolVar(&o.index, "index", false, "write row labels as a leading index column")
	fs.BoolVar(&o.strict, "strict", false, "exit non-zero when any stage fails")
	fs.IntVar(&o.previewRows, "preview-rows", pipeline.DefaultPreviewRows, "rows compared by -diff")
	fs.DurationVar(&o.exprTimeout, "expr-timeout", ops.DefaultCompileTimeout, "bound on compiling each apply expression")
	fs.StringVar(&o.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	fs.StringVar(&o.logFormat, "log-format", "text", "log format: text or json")

	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.in == "" {
		fs.Usage()
		return o, errors.New("-in is required")
	}
	return o, nil
}

// outputFormat picks the format from -format, then the -out extension.
func outputFormat(o options) (export.Format, error) {
	if o.format != "" {
		return export.ParseFormat(o.format)
	}
	if ext := strings.TrimPrefix(filepath.Ext(o.out), "."); ext != "" {
		if f, err := export.ParseFormat(ext); err == nil {
			return f, nil
		}
	}
	return export.FormatCSV, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	o, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	logger := logging.Setup(stderr, o.logLevel, o.logFormat)

	format, err := outputFormat(o)
	if err != nil {
		return err
	}

	var plan pipeline.Plan
	if o.recipe != "" {
		if plan, err = pipeline.LoadRecipe(o.recipe); err != nil {
			return fmt.Errorf("load recipe %s: %w", o.recipe, err)
		}
	}

	in, err := os.Open(o.in)
	if err != nil {
		return err
	}
	defer in.Close()

	t, err := ingest.Read(ctx, o.in, in, ingest.Options{Sheet: o.sheet})
	if err != nil {
		return fmt.Errorf("read %s: %w", o.in, err)
	}
	logger.Info("input parsed", "file", o.in, "rows", t.NumRows(), "cols", t.NumCols())

	opts := pipeline.Options{PreviewRows: o.previewRows, ExprTimeout: o.exprTimeout, Logger: logger}
	if o.diff {
		opts.DiffTimeout = pipeline.DefaultDiffTimeout
	}
	report, err := pipeline.New(opts).Run(ctx, t, plan)
	if err != nil {
		return err
	}
	logStages(logger, report, o.diff, stderr)

	if err := writeOutput(o, format, report.Final, stdout); err != nil {
		return err
	}
	logger.Info("output written", "format", string(format), "rows", report.Rows, "cols", report.Cols)

	if o.sink != "" {
		if err := sink(ctx, logger, o, report); err != nil {
			return err
		}
	}

	if o.strict && len(report.Failed()) > 0 {
		return fmt.Errorf("%w: %d of %d", errStagesFailed, len(report.Failed()), len(report.Stages))
	}
	return nil
}

func logStages(logger *slog.Logger, report *pipeline.Report, diff bool, stderr io.Writer) {
	for _, sr := range report.Stages {
		logger.Info("stage "+string(sr.Status),
			"stage", sr.Op,
			"rows_before", sr.RowsBefore,
			"rows_after", sr.RowsAfter,
			"cols_after", sr.ColsAfter,
		)
		for _, d := range sr.Diagnostics {
			level := slog.LevelInfo
			switch d.Severity {
			case ops.SeverityWarning:
				level = slog.LevelWarn
			case ops.SeverityError:
				level = slog.LevelError
			}
			logger.Log(context.Background(), level, d.Message, "stage", sr.Op, "code", d.Code, "column", d.Column)
		}
		if diff && !sr.Diff.Empty() {
			fmt.Fprintf(stderr, "--- %s\n%s", sr.Op, sr.Diff.String())
		}
	}
}

// writeOutput writes t to -out, or to stdout when -out is empty. A partly
// written file is removed on error.
func writeOutput(o options, format export.Format, t *table.Table, stdout io.Writer) error {
	opts := export.Options{IncludeIndex: o.index}
	if o.out == "" {
		return export.Write(stdout, t, format, opts)
	}

	f, err := os.Create(o.out)
	if err != nil {
		return err
	}
	if err := export.Write(f, t, format, opts); err != nil {
		f.Close()
		os.Remove(o.out)
		return fmt.Errorf("write %s: %w", o.out, err)
	}
	return f.Close()
}

// sink copies t into Postgres using EXPORT_DATABASE_URL or DATABASE_URL.
func sink(ctx context.Context, logger *slog.Logger, o options, report *pipeline.Report) error {
	dsn := os.Getenv("EXPORT_DATABASE_URL")
	if dsn == "" {
		dsn = os.Getenv("DATABASE_URL")
	}
	if dsn == "" {
		return errors.New("-sink needs EXPORT_DATABASE_URL or DATABASE_URL")
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	n, err := export.SinkPostgres(ctx, pool, o.sink, report.Final, export.SinkOptions{Replace: o.replace})
	if err != nil {
		return err
	}
	logger.Info("result written to postgres", "table", o.sink, "rows", n)
	return nil
}
