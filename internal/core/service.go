package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/prism/internal/config"
	"github.com/JonMunkholm/prism/internal/export"
	"github.com/JonMunkholm/prism/internal/ingest"
	"github.com/JonMunkholm/prism/internal/logging"
	"github.com/JonMunkholm/prism/internal/pipeline"
)

// SinkTimeout is the maximum duration for copying a result into Postgres.
var SinkTimeout = 5 * time.Minute

// Service runs plans over uploaded files and keeps the results.
type Service struct {
	cfg          *config.Config
	pool         *pgxpool.Pool
	sink         export.Beginner // nil when no database is configured
	limiter      *RunLimiter
	results      *ResultStore
	orchestrator *pipeline.Orchestrator
}

// NewService creates a Service. pool may be nil, which disables the
// database sink.
func NewService(cfg *config.Config, pool *pgxpool.Pool) *Service {
	s := &Service{
		cfg:     cfg,
		pool:    pool,
		limiter: NewRunLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime),
		results: NewResultStore(cfg.Session.ResultTTL, cfg.Session.MaxResults),
		orchestrator: pipeline.New(pipeline.Options{
			PreviewRows: cfg.Pipeline.PreviewRows,
			DiffTimeout: cfg.Pipeline.DiffTimeout,
			ExprTimeout: cfg.Pipeline.ExprTimeout,
		}),
	}
	if pool != nil {
		s.sink = pool
	}
	return s
}

// RunRequest is one input file and the plan to apply to it.
type RunRequest struct {
	FileName string
	Reader   io.Reader
	Plan     pipeline.Plan
	Sheet    string // xlsx only
}

// Run parses the file, applies the plan and stores the result.
//
// Admission waits for a free run slot. Stage failures are part of the
// result, not errors; Run fails only when the file cannot be read, the plan
// is invalid, or the run is cancelled or times out.
func (s *Service) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	if req.Reader == nil {
		return nil, ErrNoFile
	}
	format, err := ingest.DetectFormat(req.FileName)
	if err != nil {
		return nil, err
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	id := uuid.NewString()
	ctx = logging.ContextWithRunID(ctx, id)
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Upload.Timeout)
	defer cancel()

	log := logging.WithFields(ctx,
		"file", req.FileName,
		"format", string(format),
		"client_ip", GetIPAddressFromContext(ctx),
		"user_agent", GetUserAgentFromContext(ctx),
	)
	start := time.Now()

	t, err := ingest.ReadFormat(ctx, format, req.Reader, ingest.Options{
		MaxRows:  s.cfg.Pipeline.MaxRows,
		MaxBytes: s.cfg.Upload.MaxFileSize,
		Sheet:    req.Sheet,
	})
	if err != nil {
		log.Warn("read failed", "error", err)
		return nil, fmt.Errorf("read %s: %w", req.FileName, err)
	}
	log.Info("file parsed", "rows", t.NumRows(), "cols", t.NumCols())

	report, err := s.orchestrator.Run(ctx, t, req.Plan)
	if err != nil {
		log.Warn("run failed", "error", err)
		return nil, err
	}

	result := &RunResult{
		ID:          id,
		FileName:    req.FileName,
		InputFormat: format,
		Report:      report,
	}
	s.results.Put(result)

	log.Info("run completed",
		"stages", len(report.Stages),
		"failed", len(report.Failed()),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

// Result returns a stored run.
func (s *Service) Result(id string) (*RunResult, error) {
	r, ok := s.results.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return r, nil
}

// Export renders the final table of a stored run. An empty format uses
// the configured default.
func (s *Service) Export(id, format string) ([]byte, export.Format, error) {
	r, err := s.Result(id)
	if err != nil {
		return nil, "", err
	}
	if format == "" {
		format = s.cfg.Export.DefaultFormat
	}
	f, err := export.ParseFormat(format)
	if err != nil {
		return nil, "", err
	}
	b, err := r.Export(f, export.Options{IncludeIndex: s.cfg.Export.IncludeIndex})
	if err != nil {
		return nil, "", fmt.Errorf("export %s as %s: %w", id, f, err)
	}
	return b, f, nil
}

// SinkEnabled reports whether a database is configured.
func (s *Service) SinkEnabled() bool { return s.sink != nil }

// SinkToPostgres copies the final table of a stored run into the named
// Postgres table and returns the number of rows written.
func (s *Service) SinkToPostgres(ctx context.Context, id, tableName string, replace bool) (int64, error) {
	if s.sink == nil {
		return 0, ErrSinkDisabled
	}
	r, err := s.Result(id)
	if err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(logging.ContextWithRunID(ctx, id), SinkTimeout)
	defer cancel()

	n, err := export.SinkPostgres(ctx, s.sink, tableName, r.Report.Final, export.SinkOptions{Replace: replace})
	if err != nil {
		logging.FromContext(ctx).Error("sink failed", "table", tableName, "error", err)
		return 0, err
	}
	logging.FromContext(ctx).Info("result written to postgres", "table", tableName, "rows", n)
	return n, nil
}

// Catalog returns the stage catalog.
func (s *Service) Catalog() []pipeline.StageDef { return pipeline.Catalog() }

// Ping checks the database when one is configured.
func (s *Service) Ping(ctx context.Context) error {
	if s.pool == nil {
		return nil
	}
	return s.pool.Ping(ctx)
}

// WaitForRuns blocks until in-flight runs finish or ctx ends.
func (s *Service) WaitForRuns(ctx context.Context) error {
	if err := s.limiter.WaitForDrain(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%d runs still active: %w", s.limiter.ActiveCount(), err)
		}
		return err
	}
	return nil
}

// Status is a snapshot of the service for monitoring.
type Status struct {
	Runs          LimiterStatus `json:"runs"`
	StoredResults int           `json:"storedResults"`
	SinkEnabled   bool          `json:"sinkEnabled"`
}

// Status reports run slots and stored results.
func (s *Service) Status() Status {
	return Status{
		Runs:          s.limiter.Status(),
		StoredResults: s.results.Len(),
		SinkEnabled:   s.SinkEnabled(),
	}
}
