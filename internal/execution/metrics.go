package execution

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ExecutionsTotal tracks execution attempts by outcome.
	ExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arb_scanner_executions_total",
			Help: "Total number of execution attempts, by outcome (success, failed, partial_fill)",
		},
		[]string{"outcome"},
	)

	// ProfitRealizedUSD tracks cumulative estimated realized profit.
	ProfitRealizedUSD = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arb_scanner_profit_realized_usd",
		Help: "Cumulative estimated realized profit in USD",
	})
)
