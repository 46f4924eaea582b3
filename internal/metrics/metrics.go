// Package metrics provides Prometheus metrics for the dictionary cache.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the cache collectors. A nil *Metrics records nothing.
type Metrics struct {
	resolves        *prometheus.CounterVec
	refreshes       *prometheus.CounterVec
	refreshDuration prometheus.Histogram
	pages           prometheus.Counter
	duplicates      *prometheus.CounterVec
	corrupt         prometheus.Counter
	labelBatches    prometheus.Histogram
	selections      *prometheus.CounterVec
}

// New registers the collectors on reg under namespace.
func New(reg prometheus.Registerer, namespace string) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		resolves: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolves_total",
			Help:      "Dictionary resolves by the layer that served them",
		}, []string{"source"}),
		refreshes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refreshes_total",
			Help:      "Snapshot loads from the network by outcome",
		}, []string{"outcome"}),
		refreshDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "refresh_duration_seconds",
			Help:      "Time to page through and index every dictionary",
			Buckets:   prometheus.DefBuckets,
		}),
		pages: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_fetched_total",
			Help:      "Pages fetched from the reference-data API",
		}),
		duplicates: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicate_codes_total",
			Help:      "Item codes seen more than once within a dictionary",
		}, []string{"dictionary"}),
		corrupt: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "corrupt_snapshots_total",
			Help:      "Durable snapshots discarded because they could not be decoded",
		}),
		labelBatches: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "label_batch_size",
			Help:      "Codes resolved per label batch",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 8),
		}),
		selections: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "picker_changes_total",
			Help:      "Selection changes emitted by pickers",
		}, []string{"multiple"}),
	}
}

// ObserveResolve counts a resolve served by source.
func (m *Metrics) ObserveResolve(source string) {
	if m == nil {
		return
	}
	m.resolves.WithLabelValues(source).Inc()
}

// ObserveRefresh counts a network load and records its duration.
func (m *Metrics) ObserveRefresh(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(outcome).Inc()
	m.refreshDuration.Observe(d.Seconds())
}

// IncPages counts one fetched page.
func (m *Metrics) IncPages() {
	if m == nil {
		return
	}
	m.pages.Inc()
}

// AddDuplicates counts duplicate codes found in dictionary.
func (m *Metrics) AddDuplicates(dictionary string, n int) {
	if m == nil {
		return
	}
	m.duplicates.WithLabelValues(dictionary).Add(float64(n))
}

// IncCorrupt counts one discarded durable snapshot.
func (m *Metrics) IncCorrupt() {
	if m == nil {
		return
	}
	m.corrupt.Inc()
}

// ObserveLabelBatch records the size of one label batch.
func (m *Metrics) ObserveLabelBatch(n int) {
	if m == nil {
		return
	}
	m.labelBatches.Observe(float64(n))
}

// IncSelectionChange counts one picker change.
func (m *Metrics) IncSelectionChange(multiple bool) {
	if m == nil {
		return
	}
	m.selections.WithLabelValues(strconv.FormatBool(multiple)).Inc()
}

// Handler returns the Prometheus HTTP handler for g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
