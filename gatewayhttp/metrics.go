// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package gatewayhttp

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the Prometheus instruments the gateway exports at
// /metrics, covering request volume, consensus outcomes, and round
// latency.
type Metrics struct {
	QueriesTotal          prometheus.Counter
	ConsensusReachedTotal prometheus.Counter
	GuardrailBlockedTotal prometheus.Counter
	DecisionsTotal        *prometheus.CounterVec
	RoundLatencySeconds   prometheus.Histogram
}

// NewMetrics registers and returns the gateway's metric set under
// namespace.
func NewMetrics(namespace string, registerer prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		QueriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "queries_total", Help: "Total requests submitted to the gateway.",
		}),
		ConsensusReachedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "consensus_reached_total", Help: "Total rounds that reached a certificate.",
		}),
		GuardrailBlockedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "guardrail_blocked_total", Help: "Total requests blocked pre-consensus.",
		}),
		DecisionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "decisions_total", Help: "Total consensus decisions by outcome.",
		}, []string{"decision"}),
		RoundLatencySeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "round_latency_seconds", Help: "Consensus round latency.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	for _, c := range []prometheus.Collector{m.QueriesTotal, m.ConsensusReachedTotal, m.GuardrailBlockedTotal, m.DecisionsTotal, m.RoundLatencySeconds} {
		if err := registerer.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}
