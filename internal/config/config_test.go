package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"news_ingestor/internal/domain"
)

const minimalConfig = `
database:
  host: localhost
  user: ingest
  password: ${TEST_DB_PASSWORD}
  dbname: news
sources:
  - id: vnexpress
    kind: feed
    base_url: https://vnexpress.net
    url_pattern: https://vnexpress.net/rss/%s.rss
    categories:
      - { slug: the-gioi, name: "Thế giới" }
      - { slug: startup }
  - id: newsdata_api
    kind: api
    base_url: https://newsdata.io/api/1/news
    api_key: secret
    categories:
      - { slug: business }
  - id: dantri
    kind: scrape
    base_url: https://dantri.com.vn
    url_pattern: https://dantri.com.vn/%s.htm
    disabled: true
    categories:
      - { slug: the-thao, name: sports }
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_DefaultsAndEnvExpansion(t *testing.T) {
	t.Setenv("TEST_DB_PASSWORD", "s3cret")

	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.Database.Password)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, time.Hour, cfg.Schedule.Interval)
	assert.Equal(t, 3, cfg.Schedule.MaxParallelSources)
	assert.Equal(t, MaxBatchSize, cfg.Ingest.BatchSize)
	assert.Equal(t, 2*time.Second, cfg.Ingest.CategoryDelay)
	assert.Equal(t, 15*time.Second, cfg.Ingest.FetchTimeout)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "@every 30m", cfg.Enrich.Schedule)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.RabbitMQ.URL)

	api := cfg.Sources[1]
	assert.Equal(t, "en", api.APILanguage)
	assert.Equal(t, 1, api.MaxPages)
	assert.Equal(t, "newsdata_api", api.Name)

	scrape := cfg.Sources[2]
	assert.Equal(t, RendererChrome, scrape.Renderer)
	assert.Equal(t, "article.article-item", scrape.Selectors.Item)
	assert.Equal(t, ".article-thumb img", scrape.Selectors.Thumbnail)
}

func TestLoad_BatchSizeIsCapped(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig+"\ningest:\n  batch_size: 2000\n"))
	require.NoError(t, err)
	assert.Equal(t, MaxBatchSize, cfg.Ingest.BatchSize)
}

func TestDomainCategories_KeepsOrderAndFallsBackToSlug(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	cats := cfg.Sources[0].DomainCategories()
	require.Len(t, cats, 2)
	assert.Equal(t, domain.Category{Slug: "the-gioi", Name: "Thế giới"}, cats[0])
	assert.Equal(t, domain.Category{Slug: "startup", Name: "startup"}, cats[1])
}

func TestEnabledSources(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	enabled := cfg.EnabledSources()
	require.Len(t, enabled, 2)
	assert.Equal(t, "vnexpress", enabled[0].ID)
	assert.Equal(t, "newsdata_api", enabled[1].ID)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "read config file")
}

func TestValidate_URLPatternAllowsEscapedPercent(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	cfg.Sources[0].URLPattern = "https://vnexpress.net/rss/%s.rss?q=100%%"
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"no database host", func(c *Config) { c.Database.Host = "" }, "database.host"},
		{"no sources", func(c *Config) { c.Sources = nil }, "sources"},
		{"missing api key", func(c *Config) { c.Sources[1].APIKey = "" }, "sources[1].api_key"},
		{"unknown kind", func(c *Config) { c.Sources[0].Kind = "ftp" }, "sources[0].kind"},
		{"duplicate id", func(c *Config) { c.Sources[1].ID = "vnexpress" }, "sources[1].id"},
		{"no categories", func(c *Config) { c.Sources[0].Categories = nil }, "sources[0].categories"},
		{"bad renderer", func(c *Config) { c.Sources[2].Renderer = "firefox" }, "sources[2].renderer"},
		{"feed without pattern", func(c *Config) { c.Sources[0].URLPattern = "" }, "sources[0].url_pattern"},
		{"pattern without slug verb", func(c *Config) { c.Sources[0].URLPattern = "https://vnexpress.net/rss.rss" }, "sources[0].url_pattern"},
		{"pattern with extra verb", func(c *Config) { c.Sources[2].URLPattern = "https://dantri.com.vn/%s/%d.htm" }, "sources[2].url_pattern"},
		{"negative interval", func(c *Config) { c.Schedule.Interval = -time.Minute }, "schedule.interval"},
		{"negative run timeout", func(c *Config) { c.Schedule.RunTimeout = -time.Second }, "schedule.run_timeout"},
		{"negative fetch timeout", func(c *Config) { c.Ingest.FetchTimeout = -time.Second }, "ingest.fetch_timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, minimalConfig))
			require.NoError(t, err)

			tt.mutate(cfg)
			err = cfg.Validate()

			var cfgErr *domain.ConfigurationError
			require.True(t, errors.As(err, &cfgErr), "got %v", err)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}
