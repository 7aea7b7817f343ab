package feed

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"golang.org/x/net/html"

	"news_ingestor/internal/domain"
)

const (
	FetchType = "rss_category_fetch"

	maxFeedBytes = 10 << 20
)

var (
	itemBlock  = regexp.MustCompile(`(?s)<item[\s>].*?</item>`)
	entryBlock = regexp.MustCompile(`(?s)<entry[\s>].*?</entry>`)
)

// Config holds RSS/Atom source configuration. URLPattern takes the category
// slug through a single %s verb.
type Config struct {
	ID         string
	Name       string
	URLPattern string
	Timeout    time.Duration
}

// Source reads one RSS or Atom document per category.
type Source struct {
	httpClient *http.Client
	parser     *gofeed.Parser
	id         string
	name       string
	urlPattern string
	logger     *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Source {
	return &Source{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		parser:     gofeed.NewParser(),
		id:         cfg.ID,
		name:       cfg.Name,
		urlPattern: cfg.URLPattern,
		logger:     logger.With("source", cfg.ID),
	}
}

func (s *Source) ID() string {
	return s.id
}

func (s *Source) Name() string {
	return s.name
}

func (s *Source) FetchType() string {
	return FetchType
}

// CategoryURL returns the category's explicit URL, or the pattern applied
// to its slug.
func (s *Source) CategoryURL(cat domain.Category) string {
	if cat.URL != "" {
		return cat.URL
	}
	return fmt.Sprintf(s.urlPattern, cat.Slug)
}

// FetchCategory downloads and parses the category feed. A malformed
// document is parsed entry by entry so that complete entries still count.
func (s *Source) FetchCategory(ctx context.Context, cat domain.Category) ([]domain.RawItem, error) {
	feedURL := s.CategoryURL(cat)
	logger := s.logger.With("category", cat.Slug, "url", feedURL)

	body, err := s.download(ctx, feedURL)
	if err != nil {
		return nil, &domain.FetchError{SourceID: s.id, Category: cat.Slug, Err: err}
	}

	var entries []*gofeed.Item
	parsed, err := s.parser.Parse(bytes.NewReader(body))
	if err != nil {
		logger.Warn("feed is ill-formed, recovering entries", "error", err)
		entries = s.recoverEntries(logger, body)
	} else {
		entries = parsed.Items
	}

	items := make([]domain.RawItem, 0, len(entries))
	for _, e := range entries {
		item, ok := toRawItem(e)
		if !ok {
			logger.Warn("skipping entry without link or title", "title", e.Title, "link", e.Link)
			continue
		}
		items = append(items, item)
	}

	logger.Info("parsed feed", "entries", len(entries), "items", len(items))
	return items, nil
}

func (s *Source) download(ctx context.Context, feedURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; NewsIngestor/1.0)")
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// recoverEntries parses every complete <item> or <entry> block on its own.
func (s *Source) recoverEntries(logger *slog.Logger, body []byte) []*gofeed.Item {
	var out []*gofeed.Item

	for _, block := range itemBlock.FindAll(body, -1) {
		doc := `<rss version="2.0"><channel>` + string(block) + `</channel></rss>`
		if f, err := s.parser.ParseString(doc); err == nil {
			out = append(out, f.Items...)
		} else {
			logger.Debug("dropping unparsable item", "error", err)
		}
	}

	for _, block := range entryBlock.FindAll(body, -1) {
		doc := `<feed xmlns="http://www.w3.org/2005/Atom">` + string(block) + `</feed>`
		if f, err := s.parser.ParseString(doc); err == nil {
			out = append(out, f.Items...)
		} else {
			logger.Debug("dropping unparsable entry", "error", err)
		}
	}

	return out
}

func toRawItem(e *gofeed.Item) (domain.RawItem, bool) {
	title := strings.TrimSpace(e.Title)
	link := strings.TrimSpace(e.Link)
	if title == "" || link == "" {
		return domain.RawItem{}, false
	}

	description, image := cleanDescription(e.Description)

	item := domain.RawItem{
		Title:       title,
		Link:        link,
		Description: description,
		ImageURL:    image,
		Published:   e.Published,
	}
	if e.PublishedParsed != nil {
		item.Published = e.PublishedParsed.Format(time.RFC3339)
	}
	if e.Content != "" {
		item.Content, _ = cleanDescription(e.Content)
	}
	for _, a := range e.Authors {
		if a != nil && a.Name != "" {
			item.Creator = append(item.Creator, a.Name)
		}
	}

	if item.ImageURL == "" && e.Image != nil {
		item.ImageURL = e.Image.URL
	}
	if item.ImageURL == "" {
		for _, enc := range e.Enclosures {
			if strings.HasPrefix(enc.Type, "image/") && enc.URL != "" {
				item.ImageURL = enc.URL
				break
			}
		}
	}

	return item, true
}

// cleanDescription reduces description HTML to plain text and returns the
// first image source it contained.
func cleanDescription(html string) (string, string) {
	if strings.TrimSpace(html) == "" {
		return "", ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return strings.TrimSpace(html), ""
	}

	image, _ := doc.Find("img").First().Attr("src")
	doc.Find("img, br").Remove()

	return textOf(doc.Selection), strings.TrimSpace(image)
}

// textOf joins the element's text nodes with single spaces.
func textOf(sel *goquery.Selection) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}
