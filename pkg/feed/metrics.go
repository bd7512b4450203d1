package feed

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	StateGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "crossarb_feed_state",
		Help: "Feed connection state (0 disconnected, 1 connecting, 2 connected, 3 reconnecting, 4 failed)",
	}, []string{"venue"})

	ReconnectsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crossarb_feed_reconnects_total",
		Help: "Reconnect attempts scheduled after a failed dial or dropped connection",
	}, []string{"venue"})

	UpdatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crossarb_feed_updates_total",
		Help: "Price updates delivered on the updates channel",
	}, []string{"venue"})

	DroppedUpdatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crossarb_feed_dropped_updates_total",
		Help: "Price updates dropped because the updates channel was full",
	}, []string{"venue"})

	ParseErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crossarb_feed_parse_errors_total",
		Help: "Inbound frames the framer could not decode",
	}, []string{"venue"})

	SubscriptionsGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "crossarb_feed_subscriptions",
		Help: "Live market subscriptions per venue",
	}, []string{"venue"})
)
