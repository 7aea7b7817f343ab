package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"news_ingestor/internal/domain"
)

const FetchType = "selenium_category_fetch"

type Selectors struct {
	Item      string
	Title     string
	Excerpt   string
	Thumbnail string
}

// Config holds listing-page source configuration. URLPattern takes the
// category slug through a single %s verb.
type Config struct {
	ID         string
	Name       string
	URLPattern string
	Selectors  Selectors
}

// Source extracts article cards from rendered category listing pages.
type Source struct {
	loader     PageLoader
	id         string
	name       string
	urlPattern string
	selectors  Selectors
	logger     *slog.Logger

	parseCard func(card *goquery.Selection) (domain.RawItem, error)
}

func New(cfg Config, loader PageLoader, logger *slog.Logger) *Source {
	s := &Source{
		loader:     loader,
		id:         cfg.ID,
		name:       cfg.Name,
		urlPattern: cfg.URLPattern,
		selectors:  cfg.Selectors,
		logger:     logger.With("source", cfg.ID),
	}
	s.parseCard = s.parse
	return s
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

func (s *Source) FetchCategory(ctx context.Context, cat domain.Category) ([]domain.RawItem, error) {
	pageURL := cat.URL
	if pageURL == "" {
		pageURL = fmt.Sprintf(s.urlPattern, cat.Slug)
	}
	logger := s.logger.With("category", cat.Slug, "url", pageURL)

	html, err := s.loader.Load(ctx, pageURL)
	if err != nil {
		return nil, &domain.FetchError{SourceID: s.id, Category: cat.Slug, Err: err}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, &domain.FetchError{SourceID: s.id, Category: cat.Slug, Err: fmt.Errorf("parse page: %w", err)}
	}

	cards := doc.Find(s.selectors.Item)
	if cards.Length() == 0 {
		logger.Warn("no article items found")
		return nil, nil
	}

	items := make([]domain.RawItem, 0, cards.Length())
	cards.Each(func(i int, card *goquery.Selection) {
		item, err := s.extract(card)
		if err != nil {
			logger.Warn("skipping article card", "index", i, "error", err)
			return
		}
		items = append(items, item)
	})

	logger.Info("extracted articles", "cards", cards.Length(), "items", len(items))
	return items, nil
}

func (s *Source) extract(card *goquery.Selection) (item domain.RawItem, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("extract panicked: %v", r)
		}
	}()

	return s.parseCard(card)
}

func (s *Source) parse(card *goquery.Selection) (domain.RawItem, error) {
	anchor := card.Find(s.selectors.Title).First()
	title := strings.TrimSpace(anchor.Text())
	link, _ := anchor.Attr("href")
	link = strings.TrimSpace(link)
	if title == "" || link == "" {
		return domain.RawItem{}, fmt.Errorf("missing title or link")
	}

	description := strings.TrimSpace(card.Find(s.selectors.Excerpt).First().Text())
	if description == "" {
		description = title
	}

	img := card.Find(s.selectors.Thumbnail).First()
	image, ok := img.Attr("data-src")
	if !ok || strings.TrimSpace(image) == "" {
		image, _ = img.Attr("src")
	}

	return domain.RawItem{
		Title:       title,
		Link:        link,
		Description: description,
		ImageURL:    strings.TrimSpace(image),
	}, nil
}
