package businessflow

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Scan writes partitioned by result: recorded, failed, not_found
	scansRecordedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qrtrack_scans_recorded_total",
			Help: "Scan writes attempted on the redirect path",
		},
		[]string{"result"},
	)

	// Codes whose cached counter disagreed with the scans table at the last detection
	driftCodes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "qrtrack_drift_codes",
			Help: "Number of QR codes with counter drift at the last detection",
		},
	)

	reconcileRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qrtrack_reconcile_runs_total",
			Help: "Reconcile runs partitioned by outcome",
		},
		[]string{"outcome"},
	)

	reconcileUpdatesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "qrtrack_reconcile_updates_total",
			Help: "Counters overwritten by committed reconcile runs",
		},
	)

	// Destination lookups partitioned by result: hit, miss, error
	destinationCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qrtrack_destination_cache_total",
			Help: "Destination cache lookups on the redirect path",
		},
		[]string{"result"},
	)
)
