package scheduler

import (
	"context"
	"log/slog"
	"time"

	"news_ingestor/internal/domain"
)

// Job is one full ingestion pass over every source.
type Job interface {
	Run(ctx context.Context) ([]domain.RunSummary, error)
}

type Scheduler struct {
	job        Job
	interval   time.Duration
	runTimeout time.Duration
	logger     *slog.Logger
}

func NewScheduler(job Job, interval, runTimeout time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		job:        job,
		interval:   interval,
		runTimeout: runTimeout,
		logger:     logger,
	}
}

// Start runs the job immediately and then every interval until ctx is
// cancelled. A failing or panicking pass never stops the loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started", "interval", s.interval, "run_timeout", s.runTimeout)

	s.RunOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce executes a single pass bounded by the run timeout.
func (s *Scheduler) RunOnce(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("ingestion pass panicked", "panic", r)
		}
	}()

	runCtx := ctx
	if s.runTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.runTimeout)
		defer cancel()
	}

	start := time.Now()
	summaries, err := s.job.Run(runCtx)
	if err != nil {
		s.logger.Error("ingestion pass failed", "error", err, "duration", time.Since(start))
		return
	}

	failed := 0
	for _, sum := range summaries {
		if sum.Status == domain.StatusFailed {
			failed++
		}
	}
	s.logger.Info("ingestion pass done",
		"sources", len(summaries),
		"failed_sources", failed,
		"duration", time.Since(start),
	)
}
