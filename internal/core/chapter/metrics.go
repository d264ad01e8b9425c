// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package chapter

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/taibuivan/chapterhub/internal/platform/constants"
)

// Asset deletion outcomes.
const (
	OutcomeRemoved = "removed"
	OutcomeMissing = "missing"
	OutcomeFailed  = "failed"
)

// Metrics exposes Prometheus collectors for the chapter read and delete paths.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	assetDeletions *prometheus.CounterVec
	viewIncrements *prometheus.CounterVec
}

// MustNewMetrics registers the chapter collectors with reg and panics on a
// registration conflict, surfacing wiring bugs at startup.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	assetDeletions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: constants.MetricsNamespace,
			Name:      "asset_deletions_total",
			Help:      "Asset file deletions attempted while removing chapters or pages.",
		},
		[]string{"outcome"},
	)
	viewIncrements := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: constants.MetricsNamespace,
			Name:      "view_increments_total",
			Help:      "Asynchronous chapter view increments by outcome.",
		},
		[]string{"outcome"},
	)

	reg.MustRegister(assetDeletions, viewIncrements)

	return &Metrics{assetDeletions: assetDeletions, viewIncrements: viewIncrements}
}

// IncAssetDeletion counts one settled file deletion.
func (m *Metrics) IncAssetDeletion(outcome string) {
	if m == nil {
		return
	}
	m.assetDeletions.WithLabelValues(outcome).Inc()
}

// IncViewIncrement counts one view increment attempt.
func (m *Metrics) IncViewIncrement(ok bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = OutcomeFailed
	}
	m.viewIncrements.WithLabelValues(outcome).Inc()
}
