package core

// reaper.go purges expired run results in the background. It runs once on
// start and then every interval until the context is cancelled.

import (
	"context"
	"log/slog"
	"time"
)

// StartReaper blocks, purging expired results every interval. Call it in
// its own goroutine; it returns when ctx is cancelled.
func (s *Service) StartReaper(ctx context.Context, interval time.Duration) {
	slog.Info("result reaper started", "interval", interval.String())

	s.reap()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("result reaper stopped")
			return
		case <-ticker.C:
			s.reap()
		}
	}
}

// reap performs one purge cycle.
func (s *Service) reap() {
	start := time.Now()
	purged := s.results.Purge()
	if purged == 0 {
		slog.Debug("reap found nothing to purge", "stored", s.results.Len())
		return
	}
	slog.Info("purged expired results",
		"purged", purged,
		"stored", s.results.Len(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
