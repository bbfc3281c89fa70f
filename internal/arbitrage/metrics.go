package arbitrage

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OpportunitiesDetected counts opportunities found, labeled by direction.
	OpportunitiesDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arb_scanner_opportunities_detected_total",
			Help: "Total number of arbitrage opportunities detected, by direction",
		},
		[]string{"direction"},
	)

	// DetectionDurationSeconds tracks how long a full Detect pass takes.
	DetectionDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "arb_scanner_detection_duration_seconds",
		Help:    "Duration of one detector pass over matched pairs",
		Buckets: prometheus.DefBuckets,
	})
)
