// Package metrics holds the Prometheus collectors of the ingestion jobs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FetchAttempts counts metadata-stage calls by endpoint and outcome.
	FetchAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "aemet",
		Name:      "fetch_attempts_total",
		Help:      "Metadata-stage requests to the AEMET API by endpoint and outcome.",
	}, []string{"endpoint", "outcome"})

	// FetchLatency observes full two-stage fetch latency by endpoint.
	FetchLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "aemet",
		Name:      "fetch_duration_seconds",
		Help:      "Duration of two-stage fetches including retries.",
		Buckets:   []float64{0.5, 1, 5, 10, 30, 60, 120, 300},
	}, []string{"endpoint"})

	// Windows counts processed fetch windows by outcome.
	Windows = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "aemet",
		Name:      "windows_total",
		Help:      "Fetch windows processed by the daily job.",
	}, []string{"outcome"})

	// RowsWritten counts rows persisted per dataset kind.
	RowsWritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "aemet",
		Name:      "rows_written_total",
		Help:      "Rows written to datasets after merge.",
	}, []string{"dataset"})

	// Skipped counts input units that were dropped with a warning.
	Skipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "aemet",
		Name:      "skipped_total",
		Help:      "Records, station lines or files skipped by kind.",
	}, []string{"kind"})

	// JobRuns counts finished jobs by name and status.
	JobRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "aemet",
		Name:      "job_runs_total",
		Help:      "Finished job runs.",
	}, []string{"job", "status"})
)

// ObserveJob records the outcome of a job run.
func ObserveJob(job string, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	JobRuns.WithLabelValues(job, status).Inc()
}
