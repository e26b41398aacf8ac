// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package counter

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsNamespace prefixes every metric exported by this package.
const MetricsNamespace = "countergame"

// =============================================================================
// Prometheus Metrics
// =============================================================================

var (
	actionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "actions_total",
		Help:      "Total actions dispatched by kind",
	}, []string{"action"})

	countValue = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "count",
		Help:      "Current counter value",
	})

	historyLength = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "history_length",
		Help:      "Number of change records in the history",
	})

	persistFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "persist_failures_total",
		Help:      "Total history persistence failures by operation",
	}, []string{"op"})

	rehydrations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "rehydrations_total",
		Help:      "Session rehydrations by outcome (empty, restored, corrupt)",
	}, []string{"outcome"})
)

func observeState(s State) {
	countValue.Set(float64(s.Count))
	historyLength.Set(float64(len(s.History)))
}
