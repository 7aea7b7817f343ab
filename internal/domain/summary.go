package domain

import "time"

const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

const (
	CategorySuccess = "success"
	CategoryEmpty   = "empty"
	CategoryFailed  = "failed"
)

// RunState is the orchestrator state of one source run.
type RunState string

const (
	RunIdle            RunState = "idle"
	RunRunning         RunState = "running"
	RunCompleted       RunState = "completed"
	RunPartiallyFailed RunState = "partially_failed"
)

// CategoryResult holds the outcome of one category within a run.
type CategoryResult struct {
	Slug    string `json:"slug"`
	Name    string `json:"name"`
	Fetched int    `json:"fetched"`
	Dropped int    `json:"dropped"`
	Saved   int    `json:"saved"`
	Skipped int    `json:"skipped"`
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
}

// RunSummary is the latest run outcome of a source. One per source; each
// run replaces the previous one.
type RunSummary struct {
	SourceID            string           `json:"source_id"`
	Status              string           `json:"status"`
	TotalSaved          int              `json:"total_saved"`
	TotalSkipped        int              `json:"total_skipped"`
	CategoriesProcessed []string         `json:"categories_processed"`
	FetchType           string           `json:"fetch_type"`
	LastUpdated         time.Time        `json:"last_updated"`
	FetchTimestamp      string           `json:"fetch_timestamp"`
	Categories          []CategoryResult `json:"categories"`
	State               RunState         `json:"state"`
	Duration            time.Duration    `json:"-"`
}

// SummaryDocID returns the stable document id of a source summary.
func SummaryDocID(sourceID string) string {
	return "summary_" + sourceID
}
