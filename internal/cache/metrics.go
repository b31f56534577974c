package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	lookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cityflow",
		Subsystem: "query_cache",
		Name:      "lookups_total",
		Help:      "Query cache lookups by aggregation kind and outcome (hit, miss, shared).",
	}, []string{"kind", "outcome"})

	computeErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cityflow",
		Subsystem: "query_cache",
		Name:      "compute_errors_total",
		Help:      "Failed computations, which are never cached.",
	}, []string{"kind"})

	computeSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "cityflow",
		Subsystem: "query_cache",
		Name:      "compute_duration_seconds",
		Help:      "Time spent computing a missing result.",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 14),
	}, []string{"kind"})

	entries = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "cityflow",
		Subsystem: "query_cache",
		Name:      "entries",
		Help:      "Cached results by aggregation kind.",
	}, []string{"kind"})
)
