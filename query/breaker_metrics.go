// Copyright 2026 The FASQ Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package query

import (
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Circuit breaker Prometheus collectors, adapted from the teacher's
// observability package (trimmed to the one concern Query's per-key
// gobreaker instances actually exercise — background refreshes, not
// explicit Fetch calls, since those bypass the breaker entirely).
var (
	breakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "fasq_query_circuit_breaker_state",
		Help: "Circuit breaker state per query key (0=closed, 1=half-open, 2=open)",
	}, []string{"key"})

	breakerTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fasq_query_circuit_breaker_transitions_total",
		Help: "Total circuit breaker state transitions per query key",
	}, []string{"key", "from_state", "to_state"})

	breakerConsecutiveFailures = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "fasq_query_circuit_breaker_consecutive_failures",
		Help: "Current number of consecutive background-refresh failures per query key",
	}, []string{"key"})
)

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// onBreakerStateChange is wired as every Query's gobreaker.Settings.OnStateChange.
func onBreakerStateChange(name string, from, to gobreaker.State) {
	breakerState.WithLabelValues(name).Set(breakerStateValue(to))
	breakerTransitionsTotal.WithLabelValues(name, from.String(), to.String()).Inc()
	if to == gobreaker.StateClosed {
		breakerConsecutiveFailures.WithLabelValues(name).Set(0)
	}
}
