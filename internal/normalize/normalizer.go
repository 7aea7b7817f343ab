package normalize

import (
	"strings"
	"time"

	"news_ingestor/internal/domain"
)

const (
	DefaultTitle       = "No Title"
	DefaultDescription = "No description available."
)

var dateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339,
	time.RFC822Z,
	time.RFC822,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// Profile is the static description of a source used to fill fields a raw
// item does not carry.
type Profile struct {
	ID            string
	Name          string
	BaseURL       string
	Icon          string
	Language      string
	Country       []string
	Creator       []string
	EnrichmentTag string
	// DeferContent stores the pending sentinel instead of the description
	// when the item has no body.
	DeferContent bool
}

type Normalizer struct {
	profile Profile
	now     func() time.Time
}

func New(profile Profile) *Normalizer {
	return &Normalizer{profile: profile, now: time.Now}
}

// WithClock replaces the ingestion clock.
func (n *Normalizer) WithClock(now func() time.Time) *Normalizer {
	n.now = now
	return n
}

func (n *Normalizer) Profile() Profile {
	return n.profile
}

// Normalize maps a raw item of the given category into the canonical record.
func (n *Normalizer) Normalize(raw domain.RawItem, category string) (domain.Article, error) {
	title := strings.TrimSpace(raw.Title)
	if strings.TrimSpace(raw.Link) == "" {
		return domain.Article{}, &domain.MissingLinkError{Title: title}
	}

	link, err := ResolveLink(n.profile.BaseURL, raw.Link)
	if err != nil {
		return domain.Article{}, err
	}
	id, err := ArticleID(link)
	if err != nil {
		return domain.Article{}, err
	}

	now := n.now()

	if title == "" {
		title = DefaultTitle
	}
	description := strings.TrimSpace(raw.Description)
	if description == "" {
		description = DefaultDescription
	}

	content := strings.TrimSpace(raw.Content)
	if content == "" {
		if n.profile.DeferContent {
			content = domain.ContentPending
		} else {
			content = description
		}
	}

	article := domain.Article{
		ID:            id,
		Title:         title,
		Link:          link,
		Description:   description,
		Content:       content,
		SourceID:      firstNonEmpty(raw.SourceID, n.profile.ID),
		SourceName:    firstNonEmpty(raw.SourceName, n.profile.Name),
		SourceURL:     n.profile.BaseURL,
		SourceIcon:    n.profile.Icon,
		Language:      firstNonEmpty(raw.Language, n.profile.Language),
		Country:       uniq(orDefault(raw.Country, n.profile.Country)),
		Creator:       nonNil(orDefault(raw.Creator, n.profile.Creator)),
		Categories:    uniq(append([]string{category}, raw.Categories...)),
		PublishedAt:   n.parseDate(raw.Published, now),
		CreatedAt:     now,
		UpdatedAt:     now,
		EnrichmentTag: n.profile.EnrichmentTag,
	}

	if raw.ImageURL != "" {
		if img, err := ResolveLink(n.profile.BaseURL, raw.ImageURL); err == nil {
			article.ImageURL = &img
		}
	}

	return article, nil
}

func (n *Normalizer) parseDate(s string, fallback time.Time) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func orDefault(values, def []string) []string {
	if len(values) > 0 {
		return values
	}
	return def
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

// uniq keeps the first occurrence of every non-empty value.
func uniq(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
