package venues

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crossarb_venue_requests_total",
		Help: "REST requests issued per venue and operation",
	}, []string{"venue", "op"})

	RateLimitedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crossarb_venue_rate_limited_total",
		Help: "Requests rejected by a venue with HTTP 429",
	}, []string{"venue"})

	RequestDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "crossarb_venue_request_duration_seconds",
		Help:    "REST request latency per venue and operation",
		Buckets: prometheus.DefBuckets,
	}, []string{"venue", "op"})
)
