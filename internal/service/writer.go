package service

import (
	"context"
	"log/slog"

	"news_ingestor/internal/domain"
	"news_ingestor/internal/metrics"
)

// BatchWriter persists normalized articles in bounded batches, writing only
// ids the store does not hold yet. First write wins; existing records are
// never rewritten.
type BatchWriter struct {
	sourceID  string
	articles  ArticleStore
	txManager TransactionManager
	publisher Publisher
	batchSize int
	logger    *slog.Logger
}

func NewBatchWriter(
	sourceID string,
	articles ArticleStore,
	txManager TransactionManager,
	publisher Publisher,
	batchSize int,
	logger *slog.Logger,
) *BatchWriter {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &BatchWriter{
		sourceID:  sourceID,
		articles:  articles,
		txManager: txManager,
		publisher: publisher,
		batchSize: batchSize,
		logger:    logger.With("source", sourceID),
	}
}

// Persist returns the saved and skipped counts across all batches. Counts of
// a batch whose commit failed are discarded.
func (w *BatchWriter) Persist(ctx context.Context, records []domain.Article, label string) (saved, skipped int) {
	logger := w.logger.With("category", label)
	if len(records) == 0 {
		logger.Info("no articles to save")
		return 0, 0
	}

	seen := make(map[string]struct{}, len(records))

	for start, batchNo := 0, 1; start < len(records); start, batchNo = start+w.batchSize, batchNo+1 {
		end := min(start+w.batchSize, len(records))
		batch := records[start:end]

		ids := make([]string, len(batch))
		for i, a := range batch {
			ids[i] = a.ID
		}

		existing, err := w.articles.ExistingIDs(ctx, ids)
		if err != nil {
			w.batchFailed(logger, &domain.PersistenceError{Label: label, Batch: batchNo, Size: len(batch), Err: err})
			continue
		}

		batchSkipped := 0
		batchIDs := make(map[string]struct{}, len(batch))
		toWrite := make([]domain.Article, 0, len(batch))
		for _, a := range batch {
			if _, ok := existing[a.ID]; ok {
				batchSkipped++
				continue
			}
			_, inBatch := batchIDs[a.ID]
			_, committed := seen[a.ID]
			if inBatch || committed {
				batchSkipped++
				continue
			}
			batchIDs[a.ID] = struct{}{}
			toWrite = append(toWrite, a)
		}

		if len(toWrite) == 0 {
			skipped += batchSkipped
			continue
		}

		var inserted []string
		err = w.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
			var err error
			inserted, err = w.articles.InsertBatch(txCtx, toWrite)
			return err
		})
		if err != nil {
			w.batchFailed(logger, &domain.PersistenceError{Label: label, Batch: batchNo, Size: len(toWrite), Err: err})
			continue
		}

		// Only committed ids suppress later copies.
		for id := range batchIDs {
			seen[id] = struct{}{}
		}

		// Rows that lost a concurrent insert race count as skipped.
		saved += len(inserted)
		skipped += batchSkipped + len(toWrite) - len(inserted)

		logger.Info("committed batch",
			"batch", batchNo,
			"written", len(inserted),
			"skipped", batchSkipped+len(toWrite)-len(inserted),
		)

		w.publish(ctx, logger, toWrite, inserted)
	}

	metrics.RecordPersist(w.sourceID, saved, skipped)
	logger.Info("category persisted", "saved", saved, "skipped", skipped)

	return saved, skipped
}

func (w *BatchWriter) batchFailed(logger *slog.Logger, err *domain.PersistenceError) {
	metrics.RecordBatchFailure(w.sourceID)
	logger.Error("batch commit failed", "batch", err.Batch, "size", err.Size, "error", err)
}

func (w *BatchWriter) publish(ctx context.Context, logger *slog.Logger, written []domain.Article, inserted []string) {
	if w.publisher == nil || len(inserted) == 0 {
		return
	}

	ids := make(map[string]struct{}, len(inserted))
	for _, id := range inserted {
		ids[id] = struct{}{}
	}

	for i := range written {
		article := &written[i]
		if _, ok := ids[article.ID]; !ok {
			continue
		}
		if err := w.publisher.Publish(ctx, article); err != nil {
			logger.Warn("publish ingested article failed", "article_id", article.ID, "error", err)
		}
	}
}
