package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"news_ingestor/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// memStore is an in-memory document store with first-write-wins inserts.
type memStore struct {
	mu          sync.Mutex
	articles    map[string]domain.Article
	summaries   map[string]domain.RunSummary
	summaryPuts int
	putErr      error
}

func newMemStore() *memStore {
	return &memStore{
		articles:  make(map[string]domain.Article),
		summaries: make(map[string]domain.RunSummary),
	}
}

func (m *memStore) ExistingIDs(_ context.Context, ids []string) (map[string]struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]struct{})
	for _, id := range ids {
		if _, ok := m.articles[id]; ok {
			out[id] = struct{}{}
		}
	}
	return out, nil
}

func (m *memStore) InsertBatch(_ context.Context, articles []domain.Article) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var inserted []string
	for _, a := range articles {
		if _, ok := m.articles[a.ID]; ok {
			continue
		}
		m.articles[a.ID] = a
		inserted = append(inserted, a.ID)
	}
	return inserted, nil
}

func (m *memStore) Put(_ context.Context, s *domain.RunSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.summaryPuts++
	if m.putErr != nil {
		return m.putErr
	}
	m.summaries[s.SourceID] = *s
	return nil
}

func (m *memStore) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (m *memStore) links() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0, len(m.articles))
	for _, a := range m.articles {
		out = append(out, a.Link)
	}
	return out
}

func makeArticles(n int) []domain.Article {
	out := make([]domain.Article, n)
	for i := range out {
		out[i] = domain.Article{
			ID:    fmt.Sprintf("id-%04d", i),
			Title: fmt.Sprintf("article %d", i),
			Link:  fmt.Sprintf("https://example.com/%d", i),
		}
	}
	return out
}

func rawItems(links ...string) []domain.RawItem {
	out := make([]domain.RawItem, len(links))
	for i, l := range links {
		out[i] = domain.RawItem{Title: "title " + l, Link: l}
	}
	return out
}
