// Copyright (C) 2026 Attest Labs (dev@attest-net.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ============================================================================
// Prometheus Metrics
// ============================================================================

var (
	transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "attest",
		Subsystem: "session",
		Name:      "transitions_total",
		Help:      "Machine transitions processed, by triggering event.",
	}, []string{"event"})

	staleEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "attest",
		Subsystem: "session",
		Name:      "stale_events_total",
		Help:      "Internal events dropped because their region generation had moved on.",
	})

	fetchRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "attest",
		Subsystem: "session",
		Name:      "fetch_retries_total",
		Help:      "Fetch failures that scheduled a retry, by stage.",
	}, []string{"stage"})

	decodeFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "attest",
		Subsystem: "session",
		Name:      "decode_failures_total",
		Help:      "Flips whose payload failed to decode.",
	})

	submissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "attest",
		Subsystem: "session",
		Name:      "submissions_total",
		Help:      "Answer batch submissions, by session kind and outcome.",
	}, []string{"session", "status"})

	phaseGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "attest",
		Subsystem: "session",
		Name:      "phase",
		Help:      "Current machine phase (0 short, 1 long, 2 failed, 3 succeeded).",
	})
)

// observeEvent records metric side effects of a processed event.
func observeEvent(ev Event) {
	transitionsTotal.WithLabelValues(ev.eventName()).Inc()
	switch ev := ev.(type) {
	case hashesFetchedEvent:
		if ev.err != nil {
			fetchRetriesTotal.WithLabelValues("hashes").Inc()
		}
	case flipsFetchedEvent:
		if ev.err != nil {
			fetchRetriesTotal.WithLabelValues("flips").Inc()
		}
	case flipsDecodedEvent:
		for _, p := range ev.patches {
			if p.Failed != nil && *p.Failed {
				decodeFailuresTotal.Inc()
			}
		}
	}
}
