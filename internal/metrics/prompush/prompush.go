// Package prompush implements a Prometheus Pushgateway backend for the
// metrics package. A batch run has no scrape endpoint, so collected values
// are pushed once at the end of the run with Flush.
package prompush

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"reviewetl/internal/metrics"
)

// Backend is a Prometheus Pushgateway metrics backend.
type Backend struct {
	gatewayURL string // e.g. http://pushgateway:9091
	jobName    string // Pushgateway "job" grouping key
	reg        *prometheus.Registry

	stageCounter  *prometheus.CounterVec   // reviewetl_stage_total{step,status}
	stageDuration *prometheus.SummaryVec   // reviewetl_stage_duration_seconds{step,status}
	rowCounter    *prometheus.CounterVec   // reviewetl_rows_total{kind}
	artifacts     *prometheus.CounterVec   // reviewetl_artifacts_total{artifact}
	artifactBytes *prometheus.HistogramVec // reviewetl_artifact_bytes{artifact}
}

var _ metrics.Backend = (*Backend)(nil)

// NewBackend constructs a Pushgateway backend. The job label is carried by
// the grouping key, so collectors do not repeat it.
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "reviewetl"
	}

	b := &Backend{
		gatewayURL: gatewayURL,
		jobName:    jobName,
		reg:        prometheus.NewRegistry(),
		stageCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.StageTotal,
			Help: "Pipeline stage executions by step and status.",
		}, []string{"step", "status"}),
		stageDuration: prometheus.NewSummaryVec(prometheus.SummaryOpts{
			Name:       metrics.StageDuration,
			Help:       "Pipeline stage duration in seconds by step and status.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		}, []string{"step", "status"}),
		rowCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.RowsTotal,
			Help: "Rows handled per kind (loaded, cleaned, reported).",
		}, []string{"kind"}),
		artifacts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.ArtifactsTotal,
			Help: "Output artifacts written.",
		}, []string{"artifact"}),
		artifactBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    metrics.ArtifactBytes,
			Help:    "Encoded size of written artifacts.",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
		}, []string{"artifact"}),
	}

	for _, c := range []prometheus.Collector{b.stageCounter, b.stageDuration, b.rowCounter, b.artifacts, b.artifactBytes} {
		if err := b.reg.Register(c); err != nil {
			return nil, fmt.Errorf("prompush: register collector: %w", err)
		}
	}
	return b, nil
}

// IncCounter implements metrics.Backend. Unknown names are ignored.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case metrics.StageTotal:
		b.stageCounter.WithLabelValues(labels["step"], labels["status"]).Add(delta)
	case metrics.RowsTotal:
		b.rowCounter.WithLabelValues(labels["kind"]).Add(delta)
	case metrics.ArtifactsTotal:
		b.artifacts.WithLabelValues(labels["artifact"]).Add(delta)
	}
}

// ObserveHistogram implements metrics.Backend. Unknown names are ignored.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	switch name {
	case metrics.StageDuration:
		b.stageDuration.WithLabelValues(labels["step"], labels["status"]).Observe(value)
	case metrics.ArtifactBytes:
		b.artifactBytes.WithLabelValues(labels["artifact"]).Observe(value)
	}
}

// Flush pushes the current registry to the Pushgateway, replacing the
// previous push for the same job.
func (b *Backend) Flush() error {
	return push.New(b.gatewayURL, b.jobName).
		Gatherer(b.reg).
		Push()
}
