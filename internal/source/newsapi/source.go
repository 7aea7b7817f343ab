package newsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"news_ingestor/internal/domain"
)

const FetchType = "api_category_fetch"

// Config holds news API source configuration.
type Config struct {
	ID             string
	Name           string
	BaseURL        string
	APIKey         string
	Language       string
	MaxPages       int
	Timeout        time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Source fetches category listings from a paginated JSON news API.
type Source struct {
	httpClient     *http.Client
	id             string
	name           string
	baseURL        string
	apiKey         string
	language       string
	maxPages       int
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	logger         *slog.Logger
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return "unexpected status: " + strconv.Itoa(e.code)
}

func (e *statusError) retryable() bool {
	return e.code >= http.StatusInternalServerError
}

func New(cfg Config, logger *slog.Logger) *Source {
	maxPages := cfg.MaxPages
	if maxPages <= 0 {
		maxPages = 1
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &Source{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		id:             cfg.ID,
		name:           cfg.Name,
		baseURL:        cfg.BaseURL,
		apiKey:         cfg.APIKey,
		language:       cfg.Language,
		maxPages:       maxPages,
		maxAttempts:    maxAttempts,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		logger:         logger.With("source", cfg.ID),
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

// FetchCategory walks the category's pages until there is no next page or
// the page budget is spent. An API-level refusal yields no items and no
// error; only transport failures after retries are returned.
func (s *Source) FetchCategory(ctx context.Context, cat domain.Category) ([]domain.RawItem, error) {
	logger := s.logger.With("category", cat.Slug)
	var items []domain.RawItem

	page := ""
	for n := 0; n < s.maxPages; n++ {
		resp, err := s.fetchPage(ctx, cat.Slug, page)
		if err != nil {
			var se *statusError
			if errors.As(err, &se) && !se.retryable() {
				logger.Error("api rejected request", "status", se.code)
				return items, nil
			}
			return items, &domain.FetchError{SourceID: s.id, Category: cat.Slug, Err: err}
		}

		if resp.Status != "success" {
			var apiErr APIError
			_ = json.Unmarshal(resp.Results, &apiErr)
			logger.Error("api returned failure", "status", resp.Status, "message", apiErr.Message, "code", apiErr.Code)
			return items, nil
		}

		pageItems := s.transform(logger, resp.Results)
		if len(pageItems) == 0 {
			logger.Info("no articles found", "page", n+1)
			break
		}
		items = append(items, pageItems...)

		logger.Debug("fetched page",
			"page", n+1,
			"articles", len(pageItems),
			"total", len(items),
		)

		if resp.NextPage == "" {
			break
		}
		page = resp.NextPage
	}

	return items, nil
}

func (s *Source) fetchPage(ctx context.Context, category, page string) (*APIResponse, error) {
	q := url.Values{}
	q.Set("apikey", s.apiKey)
	q.Set("language", s.language)
	q.Set("category", category)
	if page != "" {
		q.Set("page", page)
	}
	reqURL := s.baseURL + "?" + q.Encode()

	var resp *APIResponse
	var err error

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		resp, err = s.doRequest(ctx, reqURL)
		if err == nil {
			return resp, nil
		}

		var se *statusError
		if errors.As(err, &se) && !se.retryable() {
			return nil, err
		}

		if attempt == s.maxAttempts {
			break
		}

		backoff := s.calculateBackoff(attempt)
		s.logger.Warn("request failed, retrying",
			"category", category,
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	return nil, fmt.Errorf("after %d attempts: %w", s.maxAttempts, err)
}

func (s *Source) doRequest(ctx context.Context, reqURL string) (*APIResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "NewsIngestor/1.0")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		// url.Error carries the request URL, which holds the api key.
		var ue *url.Error
		if errors.As(err, &ue) {
			err = ue.Err
		}
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{code: resp.StatusCode}
	}

	var apiResp APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &apiResp, nil
}

func (s *Source) calculateBackoff(attempt int) time.Duration {
	backoff := s.initialBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
	}
	if backoff > s.maxBackoff {
		backoff = s.maxBackoff
	}
	return backoff
}

// transform decodes each result on its own so one malformed entry does not
// discard the page.
func (s *Source) transform(logger *slog.Logger, raw json.RawMessage) []domain.RawItem {
	var results []json.RawMessage
	if err := json.Unmarshal(raw, &results); err != nil {
		logger.Warn("results is not a list", "error", err)
		return nil
	}

	items := make([]domain.RawItem, 0, len(results))
	for i, r := range results {
		var res Result
		if err := json.Unmarshal(r, &res); err != nil {
			logger.Warn("skipping malformed result", "index", i, "error", err)
			continue
		}

		item := domain.RawItem{
			Title:      res.Title,
			Link:       res.Link,
			Published:  res.PubDate,
			Creator:    res.Creator,
			Country:    res.Country,
			Language:   res.Language,
			Categories: res.Category,
			SourceID:   res.SourceID,
			SourceName: res.SourceName,
		}
		if res.Description != nil {
			item.Description = *res.Description
		}
		if res.ImageURL != nil {
			item.ImageURL = *res.ImageURL
		}

		items = append(items, item)
	}

	return items
}
