package service

import (
	"context"
	"log/slog"
	"time"

	"news_ingestor/internal/domain"
)

const summaryWriteTimeout = 10 * time.Second

// SummaryRecorder overwrites the per-source summary document. It is
// best-effort: failures are logged and swallowed.
type SummaryRecorder struct {
	store  SummaryStore
	logger *slog.Logger
}

func NewSummaryRecorder(store SummaryStore, logger *slog.Logger) *SummaryRecorder {
	return &SummaryRecorder{store: store, logger: logger}
}

func (r *SummaryRecorder) Record(ctx context.Context, summary *domain.RunSummary) {
	// The run context may already be done when a run times out; the summary
	// is still written.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), summaryWriteTimeout)
	defer cancel()

	logger := r.logger.With("source", summary.SourceID, "doc_id", domain.SummaryDocID(summary.SourceID))

	if err := r.store.Put(ctx, summary); err != nil {
		logger.Error("failed to update summary document", "error", err)
		return
	}

	logger.Info("summary updated",
		"status", summary.Status,
		"saved", summary.TotalSaved,
		"skipped", summary.TotalSkipped,
		"categories", len(summary.CategoriesProcessed),
	)
}
