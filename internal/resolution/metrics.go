package resolution

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ComparisonsTotal tracks pairwise resolution comparisons.
	ComparisonsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crossarb_resolution_comparisons_total",
		Help: "Total number of resolution alignment comparisons",
	})

	// NotTradeableTotal tracks comparisons that failed the tradeability gate.
	NotTradeableTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crossarb_resolution_not_tradeable_total",
		Help: "Total number of comparisons gated as not tradeable",
	})
)
