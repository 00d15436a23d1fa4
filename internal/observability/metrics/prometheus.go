// Package metrics provides Prometheus metrics for the composition engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application metrics
type Metrics struct {
	MessagesComposed prometheus.Counter
	ComposeFailed    *prometheus.CounterVec
	SegmentsComposed prometheus.Counter
	SegmentsStubbed  *prometheus.CounterVec
	ComposeDuration  prometheus.Histogram
	FeedPublished    prometheus.Counter
	BatchActive      prometheus.Gauge
}

// New creates and registers all metrics
func New() *Metrics {
	m := NewWith(prometheus.DefaultRegisterer)
	return m
}

// NewWith creates metrics registered against reg. Tests pass a private
// registry so parallel packages do not collide on the default one.
func NewWith(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		MessagesComposed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "messages_composed_total",
			Help: "Total messages composed successfully",
		}),
		ComposeFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "messages_compose_failed_total",
			Help: "Total compose calls that returned a fatal error",
		}, []string{"reason"}),
		SegmentsComposed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "segments_composed_total",
			Help: "Total segment lines emitted",
		}),
		SegmentsStubbed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "segments_stubbed_total",
			Help: "Segments emitted as stubs because their schema was missing",
		}, []string{"segment"}),
		ComposeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "compose_duration_seconds",
			Help:    "Message composition duration",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25},
		}),
		FeedPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feed_messages_published_total",
			Help: "Composed messages published to the feed topic",
		}),
		BatchActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "batch_compositions_active",
			Help: "Batch compositions currently in flight",
		}),
	}

	reg.MustRegister(
		m.MessagesComposed,
		m.ComposeFailed,
		m.SegmentsComposed,
		m.SegmentsStubbed,
		m.ComposeDuration,
		m.FeedPublished,
		m.BatchActive,
	)

	return m
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
