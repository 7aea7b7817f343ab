package newsapi

import "encoding/json"

// APIResponse is the envelope of a news endpoint page. Results is an array
// on success and an error object otherwise, so it is decoded lazily.
type APIResponse struct {
	Status       string          `json:"status"`
	TotalResults int             `json:"totalResults"`
	Results      json.RawMessage `json:"results"`
	NextPage     string          `json:"nextPage"`
}

type Result struct {
	ArticleID   string   `json:"article_id"`
	Title       string   `json:"title"`
	Link        string   `json:"link"`
	Creator     []string `json:"creator"`
	Description *string  `json:"description"`
	PubDate     string   `json:"pubDate"`
	ImageURL    *string  `json:"image_url"`
	SourceID    string   `json:"source_id"`
	SourceName  string   `json:"source_name"`
	Language    string   `json:"language"`
	Country     []string `json:"country"`
	Category    []string `json:"category"`
}

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}
