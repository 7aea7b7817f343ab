package enrich

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"codeberg.org/readeck/go-readability/v2"
	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
	htmlnode "golang.org/x/net/html"
	"golang.org/x/time/rate"

	"news_ingestor/internal/domain"
	"news_ingestor/internal/metrics"
)

const maxPageBytes = 5 << 20

var errNoContent = errors.New("no article content found")

// Store is the slice of the article store the enricher needs.
type Store interface {
	ListPendingContent(ctx context.Context, sourceID string, limit int) ([]domain.Article, error)
	UpdateContent(ctx context.Context, id, content string, updatedAt time.Time) error
}

// Target is a source whose articles are stored with the pending sentinel.
type Target struct {
	SourceID  string
	Selectors []string
}

type Config struct {
	Limit   int
	Delay   time.Duration
	Timeout time.Duration
}

// Enricher replaces the pending-content sentinel with the article body
// scraped from the article page. A failed article keeps its sentinel and is
// retried on the next run.
type Enricher struct {
	store      Store
	targets    []Target
	httpClient *http.Client
	limiter    *rate.Limiter
	limit      int
	policy     *bluemonday.Policy
	logger     *slog.Logger
	now        func() time.Time
}

func New(store Store, targets []Target, cfg Config, logger *slog.Logger) *Enricher {
	limit := rate.Inf
	if cfg.Delay > 0 {
		limit = rate.Every(cfg.Delay)
	}
	return &Enricher{
		store:      store,
		targets:    targets,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(limit, 1),
		limit:      cfg.Limit,
		policy:     bluemonday.StrictPolicy(),
		logger:     logger.With("component", "enricher"),
		now:        time.Now,
	}
}

// Run enriches every target once. Only cancellation is reported.
func (e *Enricher) Run(ctx context.Context) error {
	for _, t := range e.targets {
		updated, failed, err := e.EnrichSource(ctx, t)
		if err != nil {
			e.logger.Error("enrichment failed", "source", t.SourceID, "error", err)
		} else {
			e.logger.Info("enrichment done", "source", t.SourceID, "updated", updated, "failed", failed)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return nil
}

func (e *Enricher) EnrichSource(ctx context.Context, t Target) (updated, failed int, err error) {
	logger := e.logger.With("source", t.SourceID)

	pending, err := e.store.ListPendingContent(ctx, t.SourceID, e.limit)
	if err != nil {
		return 0, 0, fmt.Errorf("list pending content: %w", err)
	}
	logger.Info("scraping full content", "articles", len(pending))

	for _, a := range pending {
		if err := e.limiter.Wait(ctx); err != nil {
			return updated, failed, err
		}

		content, err := e.scrape(ctx, a.Link, t.Selectors)
		if err != nil {
			failed++
			metrics.RecordEnrichment(t.SourceID, domain.StatusFailed)
			logger.Warn("content scraping failed", "article_id", a.ID, "link", a.Link, "error", err)
			continue
		}

		if err := e.store.UpdateContent(ctx, a.ID, content, e.now()); err != nil {
			failed++
			metrics.RecordEnrichment(t.SourceID, domain.StatusFailed)
			logger.Error("content update failed", "article_id", a.ID, "error", err)
			continue
		}

		updated++
		metrics.RecordEnrichment(t.SourceID, domain.StatusSuccess)
	}

	return updated, failed, nil
}

func (e *Enricher) scrape(ctx context.Context, link string, selectors []string) (string, error) {
	pageURL, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("parse link: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; NewsIngestor/1.0)")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	return e.Extract(body, pageURL, selectors)
}

// Extract returns the article text of a page: the first matching content
// selector wins, otherwise readability picks the main block.
func (e *Enricher) Extract(page []byte, pageURL *url.URL, selectors []string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return "", fmt.Errorf("parse page: %w", err)
	}

	for _, selector := range selectors {
		block := doc.Find(selector).First()
		if block.Length() == 0 {
			continue
		}
		block.Find("script, style, .ads").Remove()
		if text := e.clean(textLines(block)); text != "" {
			return text, nil
		}
	}

	article, err := readability.FromReader(bytes.NewReader(page), pageURL)
	if err != nil {
		return "", fmt.Errorf("readability: %w", err)
	}
	var buf strings.Builder
	if err := article.RenderText(&buf); err != nil {
		return "", fmt.Errorf("render text: %w", err)
	}
	if text := e.clean(buf.String()); text != "" {
		return text, nil
	}

	return "", errNoContent
}

// clean strips markup that survived inside text nodes and normalizes
// blank lines.
func (e *Enricher) clean(text string) string {
	text = html.UnescapeString(e.policy.Sanitize(text))

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// textLines puts every text node of the selection on its own line.
func textLines(sel *goquery.Selection) string {
	var lines []string
	var walk func(*htmlnode.Node)
	walk = func(n *htmlnode.Node) {
		if n.Type == htmlnode.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				lines = append(lines, t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return strings.Join(lines, "\n")
}
