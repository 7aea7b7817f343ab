package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"news_ingestor/internal/domain"
)

var articleColumns = []string{
	"id", "title", "link", "description", "content", "image_url",
	"source_id", "source_name", "source_url", "source_icon",
	"language", "country", "creator", "categories",
	"published_at", "created_at", "updated_at", "enrichment_tag",
}

type ArticleStore struct {
	db *sqlx.DB
}

func NewArticleStore(db *sqlx.DB) *ArticleStore {
	return &ArticleStore{db: db}
}

// ExistingIDs returns the subset of ids already stored.
func (s *ArticleStore) ExistingIDs(ctx context.Context, ids []string) (map[string]struct{}, error) {
	result := make(map[string]struct{}, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var found []string
	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &found,
		`SELECT id FROM articles WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("select existing ids: %w", err)
	}

	for _, id := range found {
		result[id] = struct{}{}
	}
	return result, nil
}

// InsertBatch writes articles in one statement and returns the ids actually
// inserted. Rows whose id already exists are left untouched.
func (s *ArticleStore) InsertBatch(ctx context.Context, articles []domain.Article) ([]string, error) {
	if len(articles) == 0 {
		return nil, nil
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO articles (")
	sb.WriteString(strings.Join(articleColumns, ", "))
	sb.WriteString(") VALUES ")

	valueArgs := make([]any, 0, len(articles)*len(articleColumns))
	for i, a := range articles {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(")
		for j := range articleColumns {
			if j > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString("$")
			sb.WriteString(strconv.Itoa(i*len(articleColumns) + j + 1))
		}
		sb.WriteString(")")

		valueArgs = append(valueArgs,
			a.ID,
			a.Title,
			a.Link,
			a.Description,
			a.Content,
			a.ImageURL,
			a.SourceID,
			a.SourceName,
			a.SourceURL,
			a.SourceIcon,
			a.Language,
			pq.Array(a.Country),
			pq.Array(a.Creator),
			pq.Array(a.Categories),
			a.PublishedAt,
			a.CreatedAt,
			a.UpdatedAt,
			a.EnrichmentTag,
		)
	}
	sb.WriteString(" ON CONFLICT (id) DO NOTHING RETURNING id")

	var inserted []string
	if err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &inserted, sb.String(), valueArgs...); err != nil {
		return nil, fmt.Errorf("insert articles: %w", err)
	}
	return inserted, nil
}

type pendingRow struct {
	ID       string `db:"id"`
	Link     string `db:"link"`
	SourceID string `db:"source_id"`
}

// ListPendingContent returns up to limit articles of a source whose body is
// still the pending sentinel, oldest first.
func (s *ArticleStore) ListPendingContent(ctx context.Context, sourceID string, limit int) ([]domain.Article, error) {
	query := `
		SELECT id, link, source_id
		FROM articles
		WHERE source_id = $1 AND content = $2
		ORDER BY created_at
		LIMIT $3`

	var rows []pendingRow
	if err := s.db.SelectContext(ctx, &rows, query, sourceID, domain.ContentPending, limit); err != nil {
		return nil, fmt.Errorf("select pending content: %w", err)
	}

	out := make([]domain.Article, len(rows))
	for i, r := range rows {
		out[i] = domain.Article{ID: r.ID, Link: r.Link, SourceID: r.SourceID, Content: domain.ContentPending}
	}
	return out, nil
}

// UpdateContent replaces the body of an article that is still pending.
func (s *ArticleStore) UpdateContent(ctx context.Context, id, content string, updatedAt time.Time) error {
	_, err := GetExecutor(ctx, s.db).ExecContext(ctx,
		`UPDATE articles SET content = $1, updated_at = $2 WHERE id = $3 AND content = $4`,
		content, updatedAt, id, domain.ContentPending,
	)
	if err != nil {
		return fmt.Errorf("update content: %w", err)
	}
	return nil
}
