package scanner

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ScanDurationSeconds times a full fetch->match->enrich->detect cycle.
	ScanDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "arb_scanner_scan_duration_seconds",
		Help:    "Duration of a full scan tick",
		Buckets: prometheus.DefBuckets,
	})

	// ScanErrorsTotal counts failed scan ticks.
	ScanErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arb_scanner_scan_errors_total",
		Help: "Total number of scan ticks that returned an error",
	})
)
