package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"news_ingestor/internal/domain"
)

const (
	KindFeed   = "feed"
	KindAPI    = "api"
	KindScrape = "scrape"

	RendererChrome = "chrome"
	RendererStatic = "static"

	// MaxBatchSize is the store's per-transaction write limit.
	MaxBatchSize = 500
)

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	HTTP     HTTPConfig     `yaml:"http"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Ingest   IngestConfig   `yaml:"ingest"`
	Retry    RetryConfig    `yaml:"retry"`
	Enrich   EnrichConfig   `yaml:"enrich"`
	Sources  []SourceConfig `yaml:"sources"`
	LogLevel string         `yaml:"log_level"`
}

// RabbitMQConfig is optional; an empty URL disables ingestion events.
type RabbitMQConfig struct {
	URL        string `yaml:"url"`
	Exchange   string `yaml:"exchange"`
	RoutingKey string `yaml:"routing_key"`
	QueueName  string `yaml:"queue_name"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

type ScheduleConfig struct {
	Interval           time.Duration `yaml:"interval"`
	RunTimeout         time.Duration `yaml:"run_timeout"`
	MaxParallelSources int           `yaml:"max_parallel_sources"`
}

type IngestConfig struct {
	BatchSize     int           `yaml:"batch_size"`
	CategoryDelay time.Duration `yaml:"category_delay"`
	FetchTimeout  time.Duration `yaml:"fetch_timeout"`
}

type RetryConfig struct {
	MaxAttempts    int           `yaml:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
}

type EnrichConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Schedule string        `yaml:"schedule"`
	Limit    int           `yaml:"limit"`
	Delay    time.Duration `yaml:"delay"`
}

type SourceConfig struct {
	ID         string   `yaml:"id"`
	Name       string   `yaml:"name"`
	Kind       string   `yaml:"kind"`
	BaseURL    string   `yaml:"base_url"`
	Icon       string   `yaml:"icon"`
	Language   string   `yaml:"language"`
	Country    []string `yaml:"country"`
	Creator    []string `yaml:"creator"`
	Disabled   bool     `yaml:"disabled"`
	URLPattern string   `yaml:"url_pattern"`

	// api
	APIKey      string `yaml:"api_key"`
	APILanguage string `yaml:"api_language"`
	MaxPages    int    `yaml:"max_pages"`

	// scrape
	Renderer  string          `yaml:"renderer"`
	Selectors ScrapeSelectors `yaml:"selectors"`

	ContentSelectors []string         `yaml:"content_selectors"`
	Categories       []CategoryConfig `yaml:"categories"`
}

type ScrapeSelectors struct {
	Item      string `yaml:"item"`
	Title     string `yaml:"title"`
	Excerpt   string `yaml:"excerpt"`
	Thumbnail string `yaml:"thumbnail"`
}

type CategoryConfig struct {
	Slug string `yaml:"slug"`
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// DomainCategories returns the mapping table in declared order.
func (s SourceConfig) DomainCategories() []domain.Category {
	out := make([]domain.Category, 0, len(s.Categories))
	for _, c := range s.Categories {
		name := c.Name
		if name == "" {
			name = c.Slug
		}
		out = append(out, domain.Category{Slug: c.Slug, Name: name, URL: c.URL})
	}
	return out
}

func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.RabbitMQ.Exchange == "" {
		c.RabbitMQ.Exchange = "news_ingestor"
	}
	if c.RabbitMQ.RoutingKey == "" {
		c.RabbitMQ.RoutingKey = "article.ingested"
	}
	if c.RabbitMQ.QueueName == "" {
		c.RabbitMQ.QueueName = "ingested_articles"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.Schedule.Interval == 0 {
		c.Schedule.Interval = 1 * time.Hour
	}
	if c.Schedule.RunTimeout == 0 {
		c.Schedule.RunTimeout = 50 * time.Minute
	}
	if c.Schedule.MaxParallelSources == 0 {
		c.Schedule.MaxParallelSources = len(c.Sources)
	}
	if c.Ingest.BatchSize <= 0 || c.Ingest.BatchSize > MaxBatchSize {
		c.Ingest.BatchSize = MaxBatchSize
	}
	if c.Ingest.CategoryDelay == 0 {
		c.Ingest.CategoryDelay = 2 * time.Second
	}
	if c.Ingest.FetchTimeout == 0 {
		c.Ingest.FetchTimeout = 15 * time.Second
	}
	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = 3
	}
	if c.Retry.InitialBackoff == 0 {
		c.Retry.InitialBackoff = 1 * time.Second
	}
	if c.Retry.MaxBackoff == 0 {
		c.Retry.MaxBackoff = 30 * time.Second
	}
	if c.Enrich.Schedule == "" {
		c.Enrich.Schedule = "@every 30m"
	}
	if c.Enrich.Limit == 0 {
		c.Enrich.Limit = 10
	}
	if c.Enrich.Delay == 0 {
		c.Enrich.Delay = 2 * time.Second
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	for i := range c.Sources {
		s := &c.Sources[i]
		if s.Name == "" {
			s.Name = s.ID
		}
		switch s.Kind {
		case KindAPI:
			if s.APILanguage == "" {
				s.APILanguage = "en"
			}
			if s.MaxPages == 0 {
				s.MaxPages = 1
			}
		case KindScrape:
			if s.Renderer == "" {
				s.Renderer = RendererChrome
			}
			if s.Selectors.Item == "" {
				s.Selectors.Item = "article.article-item"
			}
			if s.Selectors.Title == "" {
				s.Selectors.Title = ".article-title a"
			}
			if s.Selectors.Excerpt == "" {
				s.Selectors.Excerpt = ".article-excerpt"
			}
			if s.Selectors.Thumbnail == "" {
				s.Selectors.Thumbnail = ".article-thumb img"
			}
		}
	}
}

// Validate reports missing startup configuration as *domain.ConfigurationError.
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return &domain.ConfigurationError{Field: "database.host", Reason: "required"}
	}
	if c.Database.DBName == "" {
		return &domain.ConfigurationError{Field: "database.dbname", Reason: "required"}
	}
	if c.Schedule.Interval <= 0 {
		return &domain.ConfigurationError{Field: "schedule.interval", Reason: "must be positive"}
	}
	if c.Schedule.RunTimeout < 0 {
		return &domain.ConfigurationError{Field: "schedule.run_timeout", Reason: "must not be negative"}
	}
	if c.Ingest.FetchTimeout < 0 {
		return &domain.ConfigurationError{Field: "ingest.fetch_timeout", Reason: "must not be negative"}
	}
	if len(c.Sources) == 0 {
		return &domain.ConfigurationError{Field: "sources", Reason: "at least one source is required"}
	}

	seen := make(map[string]struct{}, len(c.Sources))
	for i, s := range c.Sources {
		field := fmt.Sprintf("sources[%d]", i)
		if s.ID == "" {
			return &domain.ConfigurationError{Field: field + ".id", Reason: "required"}
		}
		if _, ok := seen[s.ID]; ok {
			return &domain.ConfigurationError{Field: field + ".id", Reason: fmt.Sprintf("duplicate source %q", s.ID)}
		}
		seen[s.ID] = struct{}{}

		switch s.Kind {
		case KindFeed, KindScrape:
			if s.BaseURL == "" {
				return &domain.ConfigurationError{Field: field + ".base_url", Reason: "required"}
			}
			if s.URLPattern == "" {
				return &domain.ConfigurationError{Field: field + ".url_pattern", Reason: "required"}
			}
			if !validURLPattern(s.URLPattern) {
				return &domain.ConfigurationError{Field: field + ".url_pattern", Reason: "must contain exactly one %s for the category slug"}
			}
		case KindAPI:
			if s.BaseURL == "" {
				return &domain.ConfigurationError{Field: field + ".base_url", Reason: "required"}
			}
			if s.APIKey == "" {
				return &domain.ConfigurationError{Field: field + ".api_key", Reason: "required"}
			}
		default:
			return &domain.ConfigurationError{Field: field + ".kind", Reason: fmt.Sprintf("unknown kind %q", s.Kind)}
		}

		if s.Kind == KindScrape && s.Renderer != RendererChrome && s.Renderer != RendererStatic {
			return &domain.ConfigurationError{Field: field + ".renderer", Reason: fmt.Sprintf("unknown renderer %q", s.Renderer)}
		}
		if len(s.Categories) == 0 {
			return &domain.ConfigurationError{Field: field + ".categories", Reason: "at least one category is required"}
		}
	}

	return nil
}

// validURLPattern accepts patterns with a single %s and no other verbs;
// "%%" is a literal percent.
func validURLPattern(pattern string) bool {
	rest := strings.ReplaceAll(pattern, "%%", "")
	return strings.Count(rest, "%s") == 1 && strings.Count(rest, "%") == 1
}

// EnabledSources returns the sources not marked disabled.
func (c *Config) EnabledSources() []SourceConfig {
	out := make([]SourceConfig, 0, len(c.Sources))
	for _, s := range c.Sources {
		if !s.Disabled {
			out = append(out, s)
		}
	}
	return out
}
