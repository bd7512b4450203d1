package backtest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TradesReplayedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "crossarb",
		Subsystem: "backtest",
		Name:      "trades_replayed_total",
		Help:      "Trades executed during replay runs",
	})

	WeeksReplayedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "crossarb",
		Subsystem: "backtest",
		Name:      "weeks_replayed_total",
		Help:      "Sampled weekly windows replayed",
	})
)
