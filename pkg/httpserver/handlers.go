package httpserver

import (
	"math"
	"net/http"
	"time"

	goccyjson "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/mselser95/arb-scanner/internal/scanner"
)

type apiHandler struct {
	scanner *scanner.Scanner
	logger  *zap.Logger
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = goccyjson.NewEncoder(w).Encode(v)
}

// getOpportunities serves GET /api/opportunities.
func (h *apiHandler) getOpportunities(w http.ResponseWriter, r *http.Request) {
	opportunities := h.scanner.Opportunities()
	dicts := make([]map[string]interface{}, len(opportunities))
	for i := range opportunities {
		dicts[i] = opportunities[i].ToDict()
	}
	writeJSON(w, http.StatusOK, dicts)
}

type matchedMarketView struct {
	KalshiTitle     string  `json:"kalshi_title"`
	KalshiTicker    string  `json:"kalshi_ticker"`
	KalshiURL       string  `json:"kalshi_url"`
	PolymarketTitle string  `json:"polymarket_title"`
	PolymarketURL   string  `json:"polymarket_url"`
	Similarity      float64 `json:"similarity"`
	Expiry          string  `json:"expiry,omitempty"`
	KalshiYes       float64 `json:"kalshi_yes"`
	KalshiNo        float64 `json:"kalshi_no"`
	PolyYes         float64 `json:"poly_yes"`
	PolyNo          float64 `json:"poly_no"`
}

// getMatchedMarkets serves GET /api/matched-markets.
func (h *apiHandler) getMatchedMarkets(w http.ResponseWriter, r *http.Request) {
	pairs := h.scanner.MatchedMarkets()
	views := make([]matchedMarketView, 0, len(pairs))

	for _, mm := range pairs {
		expiry := mm.Kalshi.Expiration
		if expiry == nil {
			expiry = mm.Polymarket.Expiration
		}

		view := matchedMarketView{
			KalshiTitle:     mm.Kalshi.Title,
			KalshiTicker:    mm.Kalshi.Ticker,
			KalshiURL:       mm.Kalshi.URL,
			PolymarketTitle: mm.Polymarket.Title,
			PolymarketURL:   mm.Polymarket.URL,
			Similarity:      round1(mm.SimilarityScore),
		}
		if expiry != nil {
			view.Expiry = expiry.Format(time.RFC3339)
		}
		if mm.KalshiOutcome != nil {
			view.KalshiYes = round4(mm.KalshiOutcome.YesPrice)
			view.KalshiNo = round4(mm.KalshiOutcome.NoPrice)
		}
		if mm.PolymarketOutcome != nil {
			view.PolyYes = round4(mm.PolymarketOutcome.YesPrice)
			view.PolyNo = round4(mm.PolymarketOutcome.NoPrice)
		}
		views = append(views, view)
	}

	writeJSON(w, http.StatusOK, views)
}

// getStats serves GET /api/stats.
func (h *apiHandler) getStats(w http.ResponseWriter, r *http.Request) {
	stats := h.scanner.Stats()
	errors := lastN(stats.Errors, 5)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"kalshi_markets":       stats.KalshiMarkets,
		"polymarket_markets":   stats.PolymarketMarkets,
		"matched_pairs":        stats.MatchedPairs,
		"active_opportunities": stats.ActiveOpportunities,
		"total_scans":          stats.TotalScans,
		"last_scan":            stats.LastScan,
		"is_running":           stats.IsRunning,
		"scan_interval":        stats.ScanIntervalSeconds,
		"auto_execute":         stats.AutoExecute,
		"errors":               errors,
	})
}

// getExecutions serves GET /api/executions.
func (h *apiHandler) getExecutions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.scanner.Executions())
}

// settingsUpdateBody mirrors the original control plane's settings
// payload: every field optional, a nil field leaves that setting untouched.
type settingsUpdateBody struct {
	ScanInterval   *int     `json:"scan_interval"`
	MinProfitCents *float64 `json:"min_profit_cents"`
	MatchThreshold *int     `json:"match_threshold"`
	AutoExecute    *bool    `json:"auto_execute"`
	MaxPositionUSD *float64 `json:"max_position_usd"`
}

// postSettings serves POST /api/settings.
func (h *apiHandler) postSettings(w http.ResponseWriter, r *http.Request) {
	var body settingsUpdateBody
	if err := goccyjson.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	h.scanner.UpdateSettings(scanner.SettingsUpdate{
		ScanIntervalSeconds: body.ScanInterval,
		MinProfitCents:      body.MinProfitCents,
		MatchThreshold:      body.MatchThreshold,
		AutoExecute:         body.AutoExecute,
		MaxPositionSizeUSD:  body.MaxPositionUSD,
	})

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// lastN returns the last n elements of s, mirroring the original control
// plane's errors[-5:] slicing — the scanner keeps a longer 20-entry ring
// internally, but the API only ever surfaces the most recent handful.
func lastN(s []string, n int) []string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

func round1(v float64) float64 { return roundTo(v, 1) }
func round4(v float64) float64 { return roundTo(v, 4) }

func roundTo(v float64, places int) float64 {
	mult := math.Pow(10, float64(places))
	return math.Round(v*mult) / mult
}
