// Package metrics exposes Prometheus collectors for the catalog service.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	pagesFetchedTotal    *prometheus.CounterVec
	fetchDurationSeconds prometheus.Histogram
	gamesUpsertedTotal   *prometheus.CounterVec
	syncRunsTotal        *prometheus.CounterVec
	politenessDelay      prometheus.Histogram

	once sync.Once
)

// Init initializes the Prometheus collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		pagesFetchedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_pages_fetched_total",
				Help: "Total pages fetched from the source site, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		fetchDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "catalog_fetch_duration_seconds",
				Help:    "Histogram of page fetch latencies.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
		)

		gamesUpsertedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_games_upserted_total",
				Help: "Total game upserts, labeled created or updated.",
			},
			[]string{"outcome"},
		)

		syncRunsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_sync_runs_total",
				Help: "Total sync runs, labeled by final state.",
			},
			[]string{"state"},
		)

		politenessDelay = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "catalog_politeness_delay_seconds",
				Help:    "Time spent waiting on the outbound rate limiter.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2},
			},
		)
	})
}

// ObservePageFetch records one fetch attempt and its latency.
func ObservePageFetch(ok bool, duration time.Duration) {
	Init()
	outcome := "ok"
	if !ok {
		outcome = "unavailable"
	}
	pagesFetchedTotal.WithLabelValues(outcome).Inc()
	fetchDurationSeconds.Observe(duration.Seconds())
}

// ObserveUpsert records one store upsert.
func ObserveUpsert(created bool) {
	Init()
	outcome := "updated"
	if created {
		outcome = "created"
	}
	gamesUpsertedTotal.WithLabelValues(outcome).Inc()
}

// ObserveSyncRun records the final state of a sync run.
func ObserveSyncRun(state string) {
	Init()
	syncRunsTotal.WithLabelValues(state).Inc()
}

// ObservePolitenessDelay records time spent waiting for a rate-limit token.
func ObservePolitenessDelay(duration time.Duration) {
	Init()
	politenessDelay.Observe(duration.Seconds())
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	Init()
	return promhttp.Handler()
}
