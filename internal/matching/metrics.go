package matching

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PairsMatchedTotal tracks cross-exchange pairs produced.
	PairsMatchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crossarb_matching_pairs_total",
		Help: "Total number of cross-exchange pairs matched",
	})

	// MatchDurationSeconds tracks full matching pass latency.
	MatchDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "crossarb_matching_duration_seconds",
		Help:    "Duration of a full matching pass",
		Buckets: prometheus.DefBuckets,
	})
)
