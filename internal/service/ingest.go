package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"news_ingestor/internal/domain"
	"news_ingestor/internal/metrics"
	"news_ingestor/internal/normalize"
)

// IngestService runs one source over its categories: fetch, normalize and
// persist, one category at a time in declared order.
type IngestService struct {
	fetcher    Fetcher
	normalizer *normalize.Normalizer
	writer     *BatchWriter
	recorder   *SummaryRecorder
	categories []domain.Category
	limiter    *rate.Limiter
	logger     *slog.Logger
	now        func() time.Time
}

func NewIngestService(
	fetcher Fetcher,
	normalizer *normalize.Normalizer,
	writer *BatchWriter,
	recorder *SummaryRecorder,
	categories []domain.Category,
	categoryDelay time.Duration,
	logger *slog.Logger,
) *IngestService {
	limit := rate.Inf
	if categoryDelay > 0 {
		limit = rate.Every(categoryDelay)
	}
	return &IngestService{
		fetcher:    fetcher,
		normalizer: normalizer,
		writer:     writer,
		recorder:   recorder,
		categories: categories,
		limiter:    rate.NewLimiter(limit, 1),
		logger:     logger.With("source", fetcher.ID()),
		now:        time.Now,
	}
}

func (s *IngestService) ID() string {
	return s.fetcher.ID()
}

// Run never fails: category errors are contained and the summary is
// recorded exactly once, even if the run panics.
func (s *IngestService) Run(ctx context.Context) (summary domain.RunSummary) {
	startTime := s.now()
	logger := s.logger.With("run_id", uuid.NewString())

	summary = domain.RunSummary{
		SourceID:            s.fetcher.ID(),
		FetchType:           s.fetcher.FetchType(),
		CategoriesProcessed: []string{},
		Categories:          make([]domain.CategoryResult, 0, len(s.categories)),
		State:               domain.RunRunning,
	}

	logger.Info("starting ingestion",
		"source_name", s.fetcher.Name(),
		"fetch_type", summary.FetchType,
		"categories", len(s.categories),
	)

	failed := 0

	defer func() {
		if r := recover(); r != nil {
			logger.Error("source run panicked", "panic", r)
			summary.Status = domain.StatusFailed
			summary.State = domain.RunPartiallyFailed
		}

		now := s.now()
		summary.Duration = now.Sub(startTime)
		summary.LastUpdated = now
		summary.FetchTimestamp = now.Format(time.RFC3339)

		s.recorder.Record(ctx, &summary)
		metrics.RecordRun(summary.SourceID, summary.Status, summary.Duration.Seconds())

		logger.Info("ingestion completed",
			"state", summary.State,
			"status", summary.Status,
			"saved", summary.TotalSaved,
			"skipped", summary.TotalSkipped,
			"failed_categories", failed,
			"duration", summary.Duration,
		)
	}()

	for i, cat := range s.categories {
		logger.Info("processing category", "index", i+1, "total", len(s.categories), "category", cat.Name)

		var result domain.CategoryResult
		if err := s.limiter.Wait(ctx); err != nil {
			result = domain.CategoryResult{Slug: cat.Slug, Name: cat.Name, Status: domain.CategoryFailed, Error: err.Error()}
			logger.Warn("category not started", "category", cat.Name, "error", err)
		} else {
			result = s.processCategory(ctx, logger, cat)
		}

		metrics.RecordCategory(summary.SourceID, result.Status)
		summary.Categories = append(summary.Categories, result)
		summary.TotalSaved += result.Saved
		summary.TotalSkipped += result.Skipped

		switch result.Status {
		case domain.CategorySuccess:
			summary.CategoriesProcessed = append(summary.CategoriesProcessed, cat.Name)
		case domain.CategoryFailed:
			failed++
		}
	}

	summary.Status = domain.StatusSuccess
	if len(s.categories) > 0 && failed == len(s.categories) {
		summary.Status = domain.StatusFailed
	}
	summary.State = domain.RunCompleted
	if failed > 0 {
		summary.State = domain.RunPartiallyFailed
	}

	s.logCategoryOutcome(logger, summary.Categories)

	return summary
}

func (s *IngestService) processCategory(ctx context.Context, logger *slog.Logger, cat domain.Category) (result domain.CategoryResult) {
	result = domain.CategoryResult{Slug: cat.Slug, Name: cat.Name}
	logger = logger.With("category", cat.Name)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("category panicked", "panic", r)
			result.Saved, result.Skipped = 0, 0
			result.Status = domain.CategoryFailed
			result.Error = fmt.Sprintf("panic: %v", r)
		}
	}()

	items, err := s.fetcher.FetchCategory(ctx, cat)
	if err != nil {
		var fetchErr *domain.FetchError
		if !errors.As(err, &fetchErr) {
			err = &domain.FetchError{SourceID: s.fetcher.ID(), Category: cat.Slug, Err: err}
		}
		logger.Error("category fetch failed", "error", err)
		result.Status = domain.CategoryFailed
		result.Error = err.Error()
		return result
	}
	result.Fetched = len(items)

	records := make([]domain.Article, 0, len(items))
	for _, raw := range items {
		article, err := s.normalizer.Normalize(raw, cat.Name)
		if err != nil {
			result.Dropped++
			logger.Warn("dropping item", "title", raw.Title, "error", err)
			continue
		}
		records = append(records, article)
	}
	metrics.RecordDropped(s.fetcher.ID(), "normalize", result.Dropped)

	if len(records) == 0 {
		logger.Info("no articles in category", "fetched", result.Fetched)
		result.Status = domain.CategoryEmpty
		return result
	}

	result.Saved, result.Skipped = s.writer.Persist(ctx, records, cat.Name)
	result.Status = domain.CategorySuccess
	return result
}

func (s *IngestService) logCategoryOutcome(logger *slog.Logger, results []domain.CategoryResult) {
	var succeeded, other []string
	for _, r := range results {
		if r.Status == domain.CategorySuccess {
			succeeded = append(succeeded, r.Name)
		} else {
			other = append(other, r.Name)
		}
	}
	if len(succeeded) > 0 {
		logger.Info("successful categories", "categories", succeeded)
	}
	if len(other) > 0 {
		logger.Warn("failed or empty categories", "categories", other)
	}
}
