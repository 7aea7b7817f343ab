package main

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"news_ingestor/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Schedule: config.ScheduleConfig{MaxParallelSources: 2},
		Ingest:   config.IngestConfig{BatchSize: 500},
		Sources: []config.SourceConfig{
			{
				ID: "vnexpress", Name: "VnExpress", Kind: config.KindFeed,
				BaseURL: "https://vnexpress.net", URLPattern: "https://vnexpress.net/rss/%s.rss",
				ContentSelectors: []string{".fck_detail"},
				Categories:       []config.CategoryConfig{{Slug: "the-gioi", Name: "Thế giới"}},
			},
			{
				ID: "newsdata_api", Kind: config.KindAPI,
				BaseURL: "https://newsdata.io/api/1/news", APIKey: "k",
				Categories: []config.CategoryConfig{{Slug: "business"}},
			},
			{
				ID: "dantri", Kind: config.KindScrape, Renderer: config.RendererStatic,
				BaseURL: "https://dantri.com.vn", URLPattern: "https://dantri.com.vn/%s.htm",
				Categories: []config.CategoryConfig{{Slug: "kinh-doanh", Name: "business"}},
			},
			{
				ID: "disabled", Kind: config.KindFeed, Disabled: true,
				Categories: []config.CategoryConfig{{Slug: "x"}},
			},
		},
	}
}

func TestBuildPipelines(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	p, err := buildPipelines(testConfig(), pipelineDeps{}, logger)
	require.NoError(t, err)
	defer p.Close()

	require.Len(t, p.runs, 3)
	assert.Equal(t, "vnexpress", p.runs[0].ID())
	assert.Equal(t, "newsdata_api", p.runs[1].ID())
	assert.Equal(t, "dantri", p.runs[2].ID())
	assert.Empty(t, p.closers, "static renderer needs no browser")
}

func TestBuildPipelines_UnknownKind(t *testing.T) {
	cfg := testConfig()
	cfg.Sources[1].Kind = "carrier-pigeon"
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	_, err := buildPipelines(cfg, pipelineDeps{}, logger)

	assert.Error(t, err)
}

func TestEnrichTargets(t *testing.T) {
	targets := enrichTargets(testConfig())

	require.Len(t, targets, 1)
	assert.Equal(t, "vnexpress", targets[0].SourceID)
	assert.Equal(t, []string{".fck_detail"}, targets[0].Selectors)
}

func TestSetupLogger(t *testing.T) {
	assert.True(t, setupLogger("debug").Enabled(context.Background(), slog.LevelDebug))
	assert.False(t, setupLogger("warn").Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, setupLogger("bogus").Enabled(context.Background(), slog.LevelInfo))
}
