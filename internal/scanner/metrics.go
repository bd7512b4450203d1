package scanner

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ScansTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crossarb_scan_cycles_total",
		Help: "Scan cycles started",
	})

	ScanDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "crossarb_scan_duration_seconds",
		Help:    "Wall time per scan cycle",
		Buckets: prometheus.DefBuckets,
	})

	ScanErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crossarb_scan_errors_total",
		Help: "Pairs skipped within a cycle due to errors",
	})

	GatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crossarb_scan_gated_total",
		Help: "Profitable results suppressed by resolution gating",
	})

	OpportunitiesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crossarb_scan_opportunities_total",
		Help: "Opportunities that survived ranking",
	})

	EventsDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crossarb_scan_events_dropped_total",
		Help: "Pipeline events dropped because the channel was full",
	})

	CoalescedTriggersTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crossarb_scan_coalesced_triggers_total",
		Help: "Scan triggers merged into an already-queued cycle",
	})

	RealtimeUpdatesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crossarb_scan_realtime_updates_total",
		Help: "Streamed price updates consumed",
	})

	ThrottledRescansTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crossarb_scan_throttled_rescans_total",
		Help: "Rescans executed by the realtime throttle",
	})
)
