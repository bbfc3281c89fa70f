package polymarket

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MarketsFetched tracks how many markets came back from the most recent fetch.
	MarketsFetched = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arb_scanner_polymarket_markets_fetched",
		Help: "Number of Polymarket markets returned by the most recent fetch",
	})

	// FetchErrorsTotal counts failed fetch calls.
	FetchErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arb_scanner_polymarket_fetch_errors_total",
		Help: "Total number of failed Polymarket fetch calls",
	})
)
