package publisher

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"news_ingestor/internal/domain"
)

func TestNewIngestedMessage(t *testing.T) {
	published := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.FixedZone("ICT", 7*3600))

	article := &domain.Article{
		ID:            "5d41402abc4b2a76b9719d911017c592",
		Link:          "https://vnexpress.net/a.html",
		Title:         "Title",
		SourceID:      "vnexpress",
		Categories:    []string{"Kinh doanh"},
		Content:       domain.ContentPending,
		EnrichmentTag: domain.TagFeedParsed,
		PublishedAt:   published,
	}

	msg := NewIngestedMessage(article, now)

	assert.Equal(t, EventArticleIngested, msg.Event)
	assert.Equal(t, article.ID, msg.ArticleID)
	assert.True(t, msg.ContentPending)
	assert.Equal(t, time.UTC, msg.Timestamp.Location())

	body, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"article_id":"5d41402abc4b2a76b9719d911017c592"`)
	assert.Contains(t, string(body), `"content_pending":true`)
}

func TestNewIngestedMessage_WithBody(t *testing.T) {
	msg := NewIngestedMessage(&domain.Article{ID: "x", Content: "full text"}, time.Now())

	assert.False(t, msg.ContentPending)
}
