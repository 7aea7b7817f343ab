package domain

import "time"

// ContentPending marks an article whose full body has not been scraped yet.
const ContentPending = "CONTENT_TO_BE_SCRAPED"

const (
	TagFeedParsed   = "feed-parsed"
	TagAPIFetched   = "api-fetched"
	TagScrapeParsed = "scrape-parsed"
)

type Article struct {
	ID            string
	Title         string
	Link          string
	Description   string
	Content       string
	ImageURL      *string
	SourceID      string // publisher of the item, e.g. "vnexpress"
	SourceName    string
	SourceURL     string
	SourceIcon    string
	Language      string
	Country       []string
	Creator       []string
	Categories    []string
	PublishedAt   time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
	EnrichmentTag string
}

// RawItem is what a fetcher extracts from a source before normalization.
// Empty fields are filled from the source profile by the normalizer.
type RawItem struct {
	Title       string
	Link        string
	Description string
	Content     string
	ImageURL    string
	Published   string
	Creator     []string
	Country     []string
	Language    string
	Categories  []string
	SourceID    string
	SourceName  string
}

// Category is one entry of a source's category mapping table.
type Category struct {
	Slug string
	Name string
	URL  string
}
