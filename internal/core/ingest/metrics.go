// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ingest

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/taibuivan/chapterhub/internal/platform/constants"
)

// Item outcomes.
const (
	OutcomeRegistered = "registered"
	OutcomeFailed     = "failed"
)

// Metrics exposes Prometheus collectors for the ingestion pipeline.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	items           *prometheus.CounterVec
	normalize       prometheus.Histogram
	scratchRemovals *prometheus.CounterVec
}

// MustNewMetrics registers the ingestion collectors with reg.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	items := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: constants.MetricsNamespace,
			Subsystem: "ingest",
			Name:      "items_total",
			Help:      "Batch items processed, by outcome.",
		},
		[]string{"outcome"},
	)
	normalize := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: constants.MetricsNamespace,
		Subsystem: "ingest",
		Name:      "normalize_seconds",
		Help:      "Time spent decoding, fitting and encoding one image.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	})
	scratchRemovals := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: constants.MetricsNamespace,
			Name:      "scratch_removals_total",
			Help:      "Scratch file removal attempts, by outcome.",
		},
		[]string{"outcome"},
	)

	reg.MustRegister(items, normalize, scratchRemovals)

	return &Metrics{items: items, normalize: normalize, scratchRemovals: scratchRemovals}
}

func (m *Metrics) incItem(outcome string) {
	if m == nil {
		return
	}
	m.items.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observeNormalize(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.normalize.Observe(elapsed.Seconds())
}

func (m *Metrics) incScratchRemoval(outcome string) {
	if m == nil {
		return
	}
	m.scratchRemovals.WithLabelValues(outcome).Inc()
}
