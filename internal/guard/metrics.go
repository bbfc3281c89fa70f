package guard

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DailyPnLUSD tracks the current UTC day's running realized PnL.
	DailyPnLUSD = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arb_scanner_guard_daily_pnl_usd",
		Help: "Running realized PnL for the current UTC day",
	})

	// BlockedTotal counts opportunities blocked by the guard, by reason.
	BlockedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arb_scanner_guard_blocked_total",
			Help: "Total number of opportunities blocked by the guard, by reason",
		},
		[]string{"reason"},
	)
)
