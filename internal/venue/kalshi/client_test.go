package kalshi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mselser95/arb-scanner/internal/ratelimit"
	"github.com/mselser95/arb-scanner/pkg/types"
)

func TestParseMarket_NormalizesPricesAbove1(t *testing.T) {
	raw := rawMarket{
		Ticker:      "KXBTC-25-T1",
		Title:       "Will BTC close above $100k?",
		YesPrice:    65,
		NoPrice:     35,
		EventTicker: "KXBTC-25",
	}

	m, ok := parseMarket(raw, "Bitcoin price markets")
	require.True(t, ok)
	require.Len(t, m.Outcomes, 1)
	require.InDelta(t, 0.65, m.Outcomes[0].YesPrice, 1e-9)
	require.InDelta(t, 0.35, m.Outcomes[0].NoPrice, 1e-9)
}

func TestParseMarket_KeepsFractionalPricesAsIs(t *testing.T) {
	raw := rawMarket{
		Ticker:   "KXBTC-25-T1",
		Title:    "Will BTC close above $100k?",
		YesPrice: 0.65,
		NoPrice:  0.35,
	}

	m, ok := parseMarket(raw, "Bitcoin price markets")
	require.True(t, ok)
	require.InDelta(t, 0.65, m.Outcomes[0].YesPrice, 1e-9)
	require.InDelta(t, 0.35, m.Outcomes[0].NoPrice, 1e-9)
}

func TestParseMarket_FallsBackToLastPriceWhenYesNoMissing(t *testing.T) {
	raw := rawMarket{
		Ticker:    "KXBTC-25-T1",
		Title:     "Will BTC close above $100k?",
		LastPrice: 72,
	}

	m, ok := parseMarket(raw, "Bitcoin price markets")
	require.True(t, ok)
	require.InDelta(t, 0.72, m.Outcomes[0].YesPrice, 1e-9)
	require.InDelta(t, 0.28, m.Outcomes[0].NoPrice, 1e-9)
}

func TestParseMarket_RejectsMissingTickerOrTitle(t *testing.T) {
	_, ok := parseMarket(rawMarket{Title: "x"}, "event")
	require.False(t, ok)

	_, ok = parseMarket(rawMarket{Ticker: "x"}, "event")
	require.False(t, ok)
}

func TestParseMarket_DerivesURLAndTitleFallbackChain(t *testing.T) {
	raw := rawMarket{
		Ticker:       "KXBTC-25-T1",
		Title:        "Will BTC close above $100k?",
		EventTicker:  "KXBTC-25",
		SeriesTicker: "KXBTC",
		YesPrice:     65,
		NoPrice:      35,
	}

	m, ok := parseMarket(raw, "")
	require.True(t, ok)
	require.Equal(t, "https://kalshi.com/markets/kxbtc/kxbtc-25", m.URL)
	require.Equal(t, "KXBTC-25", m.EventTitle)
}

func TestParseMarket_ParsesExpirationTimestamp(t *testing.T) {
	raw := rawMarket{
		Ticker:         "KXBTC-25-T1",
		Title:          "Will BTC close above $100k?",
		ExpirationTime: "2026-12-31T23:59:59Z",
		YesPrice:       65,
		NoPrice:        35,
	}

	m, ok := parseMarket(raw, "event")
	require.True(t, ok)
	require.NotNil(t, m.Expiration)
	require.Equal(t, 2026, m.Expiration.Year())
}

func TestParseMarket_RejectsMarketWithNoParseablePrices(t *testing.T) {
	raw := rawMarket{
		Ticker: "KXBTC-25-T1",
		Title:  "Will BTC close above $100k?",
	}

	_, ok := parseMarket(raw, "event")
	require.False(t, ok)
}

func TestEnrichWithOrderbook_DerivesAskFromOppositeBid(t *testing.T) {
	// book.Orderbook.Yes/No best bids come back as [price, depth] pairs,
	// where price can arrive scaled 0-100 like the REST market fields.
	mux := http.NewServeMux()
	mux.HandleFunc("/markets/KXBTC-25-T1/orderbook", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"orderbook":{"yes":[[60,120]],"no":[[35,80]]}}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(srv.URL, ratelimit.NewTokenBucket(10, 10), zap.NewNop())
	market := &types.Market{Ticker: "KXBTC-25-T1", Outcomes: []types.Outcome{{Name: "Will BTC close above $100k?"}}}
	require.NoError(t, c.EnrichWithOrderbook(context.Background(), market))
	outcome := market.Outcomes[0]

	require.InDelta(t, 0.60, outcome.YesBid, 1e-9)
	require.InDelta(t, 0.35, outcome.NoBid, 1e-9)
	require.InDelta(t, 0.65, outcome.YesAsk, 1e-9)
	require.InDelta(t, 0.40, outcome.NoAsk, 1e-9)
	require.Equal(t, 120.0, outcome.YesDepth)
	require.Equal(t, 80.0, outcome.NoDepth)
}

func TestRoundTo(t *testing.T) {
	require.InDelta(t, 0.6543, roundTo(0.65434999, 4), 1e-9)
	require.InDelta(t, 1.0, roundTo(0.999999, 4), 1e-9)
}

func TestSeriesTickers_NonEmptyAndUnique(t *testing.T) {
	require.NotEmpty(t, seriesTickers)
	seen := make(map[string]struct{}, len(seriesTickers))
	for _, s := range seriesTickers {
		_, dup := seen[s]
		require.False(t, dup, "duplicate series ticker: %s", s)
		seen[s] = struct{}{}
	}
}

func TestNew_TrimsTrailingSlashFromBaseURL(t *testing.T) {
	c := New("https://api.kalshi.com/trade-api/v2/", nil, nil)
	require.Equal(t, "https://api.kalshi.com/trade-api/v2", c.baseURL)
}
