// Package metrics exposes Prometheus collectors for the scrape pipeline.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sourcesTotal      *prometheus.CounterVec
	quotesSavedTotal  prometheus.Counter
	duplicatesTotal   prometheus.Counter
	fetchRetriesTotal prometheus.Counter

	once sync.Once
)

// Init initializes the Prometheus collectors. Safe to call multiple times.
func Init() {
	once.Do(func() {
		sourcesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quotegrab_sources_total",
				Help: "Total number of sources processed, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		quotesSavedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "quotegrab_quotes_saved_total",
				Help: "Total number of new quotes persisted.",
			},
		)

		duplicatesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "quotegrab_duplicate_quotes_total",
				Help: "Total number of quotes skipped as duplicates.",
			},
		)

		fetchRetriesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "quotegrab_fetch_retries_total",
				Help: "Total number of fetch attempts beyond the first.",
			},
		)
	})
}

// Source outcome labels.
const (
	OutcomeScraped  = "scraped"
	OutcomeEmpty    = "empty"
	OutcomeNotFound = "not_found"
	OutcomeFailed   = "failed"
)

// ObserveSource records a per-source pipeline outcome.
func ObserveSource(outcome string) {
	if sourcesTotal == nil {
		return
	}
	sourcesTotal.WithLabelValues(outcome).Inc()
}

// ObserveQuotesSaved records newly persisted quotes.
func ObserveQuotesSaved(n int) {
	if quotesSavedTotal == nil || n <= 0 {
		return
	}
	quotesSavedTotal.Add(float64(n))
}

// ObserveDuplicates records quotes skipped by the unique constraint.
func ObserveDuplicates(n int) {
	if duplicatesTotal == nil || n <= 0 {
		return
	}
	duplicatesTotal.Add(float64(n))
}

// ObserveFetchRetry records one retried fetch attempt.
func ObserveFetchRetry() {
	if fetchRetriesTotal == nil {
		return
	}
	fetchRetriesTotal.Inc()
}
