// Package metrics provides Prometheus metrics for the ingestion pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ArticlesSaved counts newly inserted articles.
	ArticlesSaved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ingestor",
			Name:      "articles_saved_total",
			Help:      "Total number of newly inserted articles",
		},
		[]string{"source"},
	)

	// ArticlesSkipped counts articles whose id was already stored.
	ArticlesSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ingestor",
			Name:      "articles_skipped_total",
			Help:      "Total number of articles skipped as already stored",
		},
		[]string{"source"},
	)

	// ItemsDropped counts raw items rejected during normalization.
	ItemsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ingestor",
			Name:      "items_dropped_total",
			Help:      "Total number of raw items dropped before persistence",
		},
		[]string{"source", "reason"},
	)

	// CategoryRuns counts processed categories by outcome.
	CategoryRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ingestor",
			Name:      "category_runs_total",
			Help:      "Total number of category runs by status",
		},
		[]string{"source", "status"},
	)

	// BatchCommitFailures counts failed batch commits.
	BatchCommitFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ingestor",
			Name:      "batch_commit_failures_total",
			Help:      "Total number of failed batch commits",
		},
		[]string{"source"},
	)

	// RunDuration measures a full source run.
	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ingestor",
			Name:      "run_duration_seconds",
			Help:      "Duration of source runs in seconds",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"source", "status"},
	)

	// ContentEnriched counts pending articles whose content was filled.
	ContentEnriched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ingestor",
			Name:      "content_enriched_total",
			Help:      "Total number of enrichment attempts by status",
		},
		[]string{"source", "status"},
	)
)

// RecordPersist records the outcome of persisting one category.
func RecordPersist(source string, saved, skipped int) {
	ArticlesSaved.WithLabelValues(source).Add(float64(saved))
	ArticlesSkipped.WithLabelValues(source).Add(float64(skipped))
}

// RecordDropped records raw items dropped for reason.
func RecordDropped(source, reason string, n int) {
	if n > 0 {
		ItemsDropped.WithLabelValues(source, reason).Add(float64(n))
	}
}

// RecordCategory records the status of one category run.
func RecordCategory(source, status string) {
	CategoryRuns.WithLabelValues(source, status).Inc()
}

// RecordBatchFailure records a failed batch commit.
func RecordBatchFailure(source string) {
	BatchCommitFailures.WithLabelValues(source).Inc()
}

// RecordRun records a finished source run.
func RecordRun(source, status string, seconds float64) {
	RunDuration.WithLabelValues(source, status).Observe(seconds)
}

// RecordEnrichment records one enrichment attempt.
func RecordEnrichment(source, status string) {
	ContentEnriched.WithLabelValues(source, status).Inc()
}
