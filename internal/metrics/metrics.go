// Package metrics defines the Prometheus collectors for clustering runs and NCBI traffic.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Pipeline metrics.
var (
	PipelineRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "geocluster",
			Name:      "pipeline_runs_total",
			Help:      "Total number of clustering pipeline runs",
		},
		[]string{"outcome"}, // "empty" / "trivial" / "clustered" / "fallback"
	)

	PipelineDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "geocluster",
			Name:      "pipeline_duration_seconds",
			Help:      "Clustering pipeline duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	SelectedClusters = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "geocluster",
			Name:      "selected_clusters",
			Help:      "Cluster count chosen by silhouette search",
			Buckets:   []float64{2, 3, 4, 5, 8, 12, 20, 50, 100, 200},
		},
	)

	CandidateFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "geocluster",
			Name:      "candidate_failures_total",
			Help:      "Candidate cluster counts that failed to score and were recorded as 0",
		},
	)
)

// Collaborator metrics.
var (
	NCBIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "geocluster",
			Name:      "ncbi_requests_total",
			Help:      "Total number of requests to NCBI E-utilities and GEO",
		},
		[]string{"endpoint", "status"},
	)

	GEOCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "geocluster",
			Name:      "geo_cache_total",
			Help:      "GEO record cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)
)

var registerOnce sync.Once

// Register registers all collectors with the default registry. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			PipelineRunsTotal,
			PipelineDuration,
			SelectedClusters,
			CandidateFailuresTotal,
			NCBIRequestsTotal,
			GEOCacheTotal,
			HTTPRequestsTotal,
			HTTPRequestDuration,
		)
	})
}
