package main

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"news_ingestor/internal/config"
	"news_ingestor/internal/domain"
	"news_ingestor/internal/enrich"
	"news_ingestor/internal/normalize"
	"news_ingestor/internal/service"
	"news_ingestor/internal/source/feed"
	"news_ingestor/internal/source/newsapi"
	"news_ingestor/internal/source/scrape"
)

const renderSettle = 3 * time.Second

type pipelineDeps struct {
	articles  service.ArticleStore
	summaries service.SummaryStore
	txManager service.TransactionManager
	publisher service.Publisher
}

type pipelines struct {
	runs    []service.SourceRun
	closers []io.Closer
}

func (p *pipelines) Close() {
	for _, c := range p.closers {
		_ = c.Close()
	}
}

// buildPipelines wires one fetch-normalize-persist service per enabled
// source. Scrape sources share a single headless browser.
func buildPipelines(cfg *config.Config, deps pipelineDeps, logger *slog.Logger) (*pipelines, error) {
	p := &pipelines{}
	recorder := service.NewSummaryRecorder(deps.summaries, logger)

	var chrome *scrape.ChromeLoader

	for _, src := range cfg.EnabledSources() {
		var (
			fetcher service.Fetcher
			tag     string
		)

		switch src.Kind {
		case config.KindFeed:
			tag = domain.TagFeedParsed
			fetcher = feed.New(feed.Config{
				ID:         src.ID,
				Name:       src.Name,
				URLPattern: src.URLPattern,
				Timeout:    cfg.Ingest.FetchTimeout,
			}, logger)

		case config.KindAPI:
			tag = domain.TagAPIFetched
			fetcher = newsapi.New(newsapi.Config{
				ID:             src.ID,
				Name:           src.Name,
				BaseURL:        src.BaseURL,
				APIKey:         src.APIKey,
				Language:       src.APILanguage,
				MaxPages:       src.MaxPages,
				Timeout:        cfg.Ingest.FetchTimeout,
				MaxAttempts:    cfg.Retry.MaxAttempts,
				InitialBackoff: cfg.Retry.InitialBackoff,
				MaxBackoff:     cfg.Retry.MaxBackoff,
			}, logger)

		case config.KindScrape:
			tag = domain.TagScrapeParsed
			var loader scrape.PageLoader
			if src.Renderer == config.RendererStatic {
				loader = scrape.NewStaticLoader(cfg.Ingest.FetchTimeout)
			} else {
				if chrome == nil {
					var err error
					chrome, err = scrape.NewChromeLoader(cfg.Ingest.FetchTimeout, renderSettle)
					if err != nil {
						p.Close()
						return nil, fmt.Errorf("source %s: %w", src.ID, err)
					}
					p.closers = append(p.closers, chrome)
				}
				loader = chrome
			}
			fetcher = scrape.New(scrape.Config{
				ID:         src.ID,
				Name:       src.Name,
				URLPattern: src.URLPattern,
				Selectors: scrape.Selectors{
					Item:      src.Selectors.Item,
					Title:     src.Selectors.Title,
					Excerpt:   src.Selectors.Excerpt,
					Thumbnail: src.Selectors.Thumbnail,
				},
			}, loader, logger)

		default:
			p.Close()
			return nil, &domain.ConfigurationError{Field: "sources." + src.ID + ".kind", Reason: fmt.Sprintf("unknown kind %q", src.Kind)}
		}

		normalizer := normalize.New(normalize.Profile{
			ID:            src.ID,
			Name:          src.Name,
			BaseURL:       src.BaseURL,
			Icon:          src.Icon,
			Language:      src.Language,
			Country:       src.Country,
			Creator:       src.Creator,
			EnrichmentTag: tag,
			DeferContent:  len(src.ContentSelectors) > 0,
		})

		writer := service.NewBatchWriter(src.ID, deps.articles, deps.txManager, deps.publisher, cfg.Ingest.BatchSize, logger)

		p.runs = append(p.runs, service.NewIngestService(
			fetcher,
			normalizer,
			writer,
			recorder,
			src.DomainCategories(),
			cfg.Ingest.CategoryDelay,
			logger,
		))
	}

	return p, nil
}

// enrichTargets lists the sources whose articles are stored with pending
// content.
func enrichTargets(cfg *config.Config) []enrich.Target {
	var targets []enrich.Target
	for _, src := range cfg.EnabledSources() {
		if len(src.ContentSelectors) == 0 {
			continue
		}
		targets = append(targets, enrich.Target{SourceID: src.ID, Selectors: src.ContentSelectors})
	}
	return targets
}
