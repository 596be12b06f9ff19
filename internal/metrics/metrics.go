// Package metrics records operational metrics for review ETL runs behind a
// small backend-agnostic interface.
//
// The default backend is a no-op, so instrumented code never has to check
// whether metrics are configured. Concrete systems live in sub-packages
// (prompush, datadog) and are installed once at startup with SetBackend.
package metrics

import (
	"sync"
	"time"
)

// Metric names emitted by the helpers below.
const (
	StageTotal     = "reviewetl_stage_total"
	StageDuration  = "reviewetl_stage_duration_seconds"
	RowsTotal      = "reviewetl_rows_total"
	ArtifactsTotal = "reviewetl_artifacts_total"
	ArtifactBytes  = "reviewetl_artifact_bytes"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a distribution metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	mu.Lock()
	backend = b
	mu.Unlock()
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// Flush delegates to the current backend.
func Flush() error {
	return current().Flush()
}

// RecordStep counts one execution of a pipeline stage (load, normalize,
// aggregate, write, ...) and observes its duration.
func RecordStep(job, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	lbls := Labels{"job": job, "step": step, "status": status}

	b := current()
	b.IncCounter(StageTotal, 1, lbls)
	b.ObserveHistogram(StageDuration, d.Seconds(), lbls)
}

// RecordRow adds delta rows of the given kind, e.g. "loaded", "cleaned" or
// "reported". Non-positive deltas are ignored.
func RecordRow(job, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	current().IncCounter(RowsTotal, float64(delta), Labels{"job": job, "kind": kind})
}

// RecordArtifact counts one written output artifact and its encoded size.
func RecordArtifact(job, name string, bytes int64) {
	lbls := Labels{"job": job, "artifact": name}
	b := current()
	b.IncCounter(ArtifactsTotal, 1, lbls)
	b.ObserveHistogram(ArtifactBytes, float64(bytes), lbls)
}
