package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"news_ingestor/internal/domain"
)

type SummaryStore struct {
	db *sqlx.DB
}

func NewSummaryStore(db *sqlx.DB) *SummaryStore {
	return &SummaryStore{db: db}
}

// Put replaces the summary document of the source.
func (s *SummaryStore) Put(ctx context.Context, summary *domain.RunSummary) error {
	categories, err := json.Marshal(summary.Categories)
	if err != nil {
		return fmt.Errorf("marshal category results: %w", err)
	}

	query := `
		INSERT INTO fetch_summaries (
			doc_id, source_id, status, total_saved, total_skipped, categories_processed,
			fetch_type, last_updated, fetch_timestamp, state, duration_ms, categories
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)
		ON CONFLICT (doc_id) DO UPDATE SET
			status = EXCLUDED.status,
			total_saved = EXCLUDED.total_saved,
			total_skipped = EXCLUDED.total_skipped,
			categories_processed = EXCLUDED.categories_processed,
			fetch_type = EXCLUDED.fetch_type,
			last_updated = EXCLUDED.last_updated,
			fetch_timestamp = EXCLUDED.fetch_timestamp,
			state = EXCLUDED.state,
			duration_ms = EXCLUDED.duration_ms,
			categories = EXCLUDED.categories`

	_, err = s.db.ExecContext(ctx, query,
		domain.SummaryDocID(summary.SourceID),
		summary.SourceID,
		summary.Status,
		summary.TotalSaved,
		summary.TotalSkipped,
		pq.Array(summary.CategoriesProcessed),
		summary.FetchType,
		summary.LastUpdated,
		summary.FetchTimestamp,
		string(summary.State),
		summary.Duration.Milliseconds(),
		categories,
	)
	if err != nil {
		return fmt.Errorf("upsert summary: %w", err)
	}
	return nil
}

type summaryRow struct {
	SourceID            string         `db:"source_id"`
	Status              string         `db:"status"`
	TotalSaved          int            `db:"total_saved"`
	TotalSkipped        int            `db:"total_skipped"`
	CategoriesProcessed pq.StringArray `db:"categories_processed"`
	FetchType           string         `db:"fetch_type"`
	LastUpdated         time.Time      `db:"last_updated"`
	DurationMS          int64          `db:"duration_ms"`
	FetchTimestamp      string         `db:"fetch_timestamp"`
	State               string         `db:"state"`
	Categories          []byte         `db:"categories"`
}

// Get returns the latest summary of a source, or nil if it never ran.
func (s *SummaryStore) Get(ctx context.Context, sourceID string) (*domain.RunSummary, error) {
	var rows []summaryRow
	query := `
		SELECT source_id, status, total_saved, total_skipped, categories_processed,
			fetch_type, last_updated, duration_ms, fetch_timestamp, state, categories
		FROM fetch_summaries
		WHERE doc_id = $1`

	if err := s.db.SelectContext(ctx, &rows, query, domain.SummaryDocID(sourceID)); err != nil {
		return nil, fmt.Errorf("select summary: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	r := rows[0]
	summary := &domain.RunSummary{
		SourceID:            r.SourceID,
		Status:              r.Status,
		TotalSaved:          r.TotalSaved,
		TotalSkipped:        r.TotalSkipped,
		CategoriesProcessed: []string(r.CategoriesProcessed),
		FetchType:           r.FetchType,
		LastUpdated:         r.LastUpdated,
		FetchTimestamp:      r.FetchTimestamp,
		State:               domain.RunState(r.State),
		Duration:            time.Duration(r.DurationMS) * time.Millisecond,
	}
	if err := json.Unmarshal(r.Categories, &summary.Categories); err != nil {
		return nil, fmt.Errorf("unmarshal category results: %w", err)
	}
	return summary, nil
}
