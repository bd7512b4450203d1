package notify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SendsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crossarb_notify_sends_total",
		Help: "Webhook alerts delivered",
	})

	SendFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crossarb_notify_send_failures_total",
		Help: "Webhook alerts that failed to deliver",
	})
)
