package arbitrage

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ResultsValidTotal tracks directional combinations that passed the
	// validity bound.
	ResultsValidTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crossarb_calc_valid_results_total",
		Help: "Total number of valid arbitrage results computed",
	})

	// CalcDurationSeconds tracks calculator latency per quote pair.
	CalcDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "crossarb_calc_duration_seconds",
		Help:    "Duration of arbitrage calculation per quote pair",
		Buckets: prometheus.DefBuckets,
	})
)
