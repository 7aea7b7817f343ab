package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"news_ingestor/internal/domain"
)

// ArticleStore is the narrow view of the document store used for ingestion.
type ArticleStore interface {
	// ExistingIDs resolves, in one round-trip, which of ids are stored.
	ExistingIDs(ctx context.Context, ids []string) (map[string]struct{}, error)
	// InsertBatch writes articles whose id is absent and returns the ids
	// actually inserted.
	InsertBatch(ctx context.Context, articles []domain.Article) ([]string, error)
}

type SummaryStore interface {
	Put(ctx context.Context, summary *domain.RunSummary) error
}

// Fetcher produces the raw items of one category of a source. Every call
// is a fresh fetch.
type Fetcher interface {
	ID() string
	Name() string
	FetchType() string
	FetchCategory(ctx context.Context, category domain.Category) ([]domain.RawItem, error)
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type Publisher interface {
	Publish(ctx context.Context, article *domain.Article) error
	Close() error
}
