package datadog

import (
	"reflect"
	"testing"

	"github.com/DataDog/datadog-go/v5/statsd"

	"reviewetl/internal/metrics"
)

type sample struct {
	kind  string
	name  string
	value float64
	tags  []string
}

// fakeClient records Count and Histogram calls. Other ClientInterface
// methods are not used by the backend.
type fakeClient struct {
	statsd.ClientInterface
	samples []sample
	flushed bool
	closed  bool
}

func (f *fakeClient) Count(name string, value int64, tags []string, _ float64) error {
	f.samples = append(f.samples, sample{"count", name, float64(value), tags})
	return nil
}

func (f *fakeClient) Histogram(name string, value float64, tags []string, _ float64) error {
	f.samples = append(f.samples, sample{"histogram", name, value, tags})
	return nil
}

func (f *fakeClient) Flush() error { f.flushed = true; return nil }
func (f *fakeClient) Close() error { f.closed = true; return nil }

func TestBackend_SendsTaggedSamples(t *testing.T) {
	t.Parallel()

	fc := &fakeClient{}
	b := &Backend{client: fc}

	b.IncCounter(metrics.StageTotal, 1, metrics.Labels{"step": "load", "job": "reviews", "status": "success"})
	b.ObserveHistogram(metrics.StageDuration, 0.5, nil)

	want := []sample{
		{"count", metrics.StageTotal, 1, []string{"job:reviews", "status:success", "step:load"}},
		{"histogram", metrics.StageDuration, 0.5, nil},
	}
	if !reflect.DeepEqual(fc.samples, want) {
		t.Fatalf("samples = %#v, want %#v", fc.samples, want)
	}

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if !fc.flushed || !fc.closed {
		t.Fatalf("flushed=%v closed=%v, want both", fc.flushed, fc.closed)
	}
}

func TestNewBackend_RequiresAddr(t *testing.T) {
	t.Parallel()

	if _, err := NewBackend(Config{}); err == nil {
		t.Fatal("expected error for empty Addr")
	}
}
