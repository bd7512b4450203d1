package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crossarb_cache_hits_total",
		Help: "Cache reads served from the store",
	})

	MissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crossarb_cache_misses_total",
		Help: "Cache reads that found no live entry",
	})

	StaleQuotesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crossarb_cache_stale_quotes_total",
		Help: "Cached quotes rejected because they exceeded the max age",
	})
)
