package service

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"news_ingestor/internal/domain"
)

// SourceRun is one independently failing source pipeline.
type SourceRun interface {
	ID() string
	Run(ctx context.Context) domain.RunSummary
}

// Runner drives every configured source once per pass. Sources are
// independent fault domains and may run concurrently.
type Runner struct {
	sources     []SourceRun
	maxParallel int
	logger      *slog.Logger
}

// NewRunner creates a runner; maxParallel <= 1 runs sources sequentially.
func NewRunner(sources []SourceRun, maxParallel int, logger *slog.Logger) *Runner {
	if maxParallel < 1 {
		maxParallel = 1
	}
	return &Runner{
		sources:     sources,
		maxParallel: maxParallel,
		logger:      logger,
	}
}

// Run returns one summary per source, in configuration order. The only
// error is the context's, once every source has finished.
func (r *Runner) Run(ctx context.Context) ([]domain.RunSummary, error) {
	summaries := make([]domain.RunSummary, len(r.sources))

	var g errgroup.Group
	g.SetLimit(r.maxParallel)

	for i, src := range r.sources {
		g.Go(func() error {
			defer func() {
				if rec := recover(); rec != nil {
					r.logger.Error("source pipeline crashed", "source", src.ID(), "panic", rec)
					summaries[i] = domain.RunSummary{
						SourceID:            src.ID(),
						Status:              domain.StatusFailed,
						State:               domain.RunPartiallyFailed,
						CategoriesProcessed: []string{},
					}
				}
			}()
			summaries[i] = src.Run(ctx)
			return nil
		})
	}
	_ = g.Wait()

	var saved, skipped, failed int
	for _, s := range summaries {
		saved += s.TotalSaved
		skipped += s.TotalSkipped
		if s.Status == domain.StatusFailed {
			failed++
		}
	}

	r.logger.Info("ingestion pass finished",
		"sources", len(r.sources),
		"failed_sources", failed,
		"saved", saved,
		"skipped", skipped,
	)

	return summaries, ctx.Err()
}
