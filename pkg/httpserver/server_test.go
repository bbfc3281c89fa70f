package httpserver

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	goccyjson "github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mselser95/arb-scanner/internal/scanner"
	"github.com/mselser95/arb-scanner/pkg/healthprobe"
	"github.com/mselser95/arb-scanner/pkg/types"
)

type stubFetcher struct{ markets []types.Market }

func (f *stubFetcher) FetchActiveMarkets(_ context.Context, _ int) ([]types.Market, error) {
	return f.markets, nil
}
func (f *stubFetcher) EnrichWithOrderbook(_ context.Context, _ *types.Market) error { return nil }

type stubMatcher struct{ pairs []types.MatchedPair }

func (m *stubMatcher) Match(_, _ []types.Market) []types.MatchedPair { return m.pairs }
func (m *stubMatcher) SetThreshold(int)                              {}
func (m *stubMatcher) ClearCache()                                   {}

type stubDetector struct{ opportunities []types.Opportunity }

func (d *stubDetector) Detect(_ []types.MatchedPair) []types.Opportunity { return d.opportunities }
func (d *stubDetector) SetMinProfitCents(float64)                       {}

type stubExecutor struct{ log []types.ExecutionRecord }

func (e *stubExecutor) Execute(_ context.Context, opp types.Opportunity) types.ExecutionRecord {
	record := types.ExecutionRecord{Opportunity: opp, Success: true}
	e.log = append(e.log, record)
	return record
}
func (e *stubExecutor) ExecutionLog() []types.ExecutionRecord { return e.log }

type stubGuard struct{ enabled bool }

func (g *stubGuard) IsEnabled() bool              { return g.enabled }
func (g *stubGuard) SetEnabled(enabled bool)      { g.enabled = enabled }
func (g *stubGuard) SetMaxPositionSize(_ float64) {}

type stubStorage struct{}

func (s *stubStorage) StoreOpportunity(_ context.Context, _ *types.Opportunity) error { return nil }
func (s *stubStorage) Close() error                                                   { return nil }

func newTestServer(t *testing.T) (*Server, *scanner.Scanner, *stubDetector, *stubExecutor, *stubGuard) {
	t.Helper()
	kalshiMatched := types.Market{
		ID: "K1", Title: "Will it rain", Ticker: "RAIN-24",
		Outcomes: []types.Outcome{{YesPrice: 0.4, NoPrice: 0.6}},
	}
	polyMatched := types.Market{
		ID: "P1", Title: "Will it rain",
		Outcomes: []types.Outcome{{YesPrice: 0.55, NoPrice: 0.45}},
	}

	pair := types.MatchedPair{
		Kalshi:            kalshiMatched,
		Polymarket:        polyMatched,
		SimilarityScore:   95.5,
		KalshiOutcome:     &kalshiMatched.Outcomes[0],
		PolymarketOutcome: &polyMatched.Outcomes[0],
	}

	d := &stubDetector{}
	e := &stubExecutor{}
	g := &stubGuard{}

	s := scanner.New(scanner.Config{
		KalshiClient:         &stubFetcher{markets: []types.Market{kalshiMatched}},
		PolymarketClient:     &stubFetcher{markets: []types.Market{polyMatched}},
		Matcher:              &stubMatcher{pairs: []types.MatchedPair{pair}},
		Detector:             d,
		Executor:             e,
		Guard:                g,
		Storage:              &stubStorage{},
		Logger:               zap.NewNop(),
		ScanInterval:         time.Minute,
		MaxKalshiMarkets:     10,
		MaxPolymarketMarkets: 10,
	})

	server := New(&Config{
		Port:          "0",
		Logger:        zap.NewNop(),
		HealthChecker: healthprobe.New(),
		Scanner:       s,
	})

	return server, s, d, e, g
}

// runScanAndWait starts the scanner, waits for at least one completed tick,
// then stops it, leaving the scanner's latest snapshot in place for the
// handler under test to read.
func runScanAndWait(t *testing.T, s *scanner.Scanner) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.Start(ctx)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.Stats().TotalScans > 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	s.Stop()
	require.Greater(t, s.Stats().TotalScans, 0)
}

func doRequest(server *Server, method, target string, body []byte) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	server.server.Handler.ServeHTTP(w, req)
	return w
}

func TestGetOpportunities_ReturnsScannerSnapshot(t *testing.T) {
	server, s, d, _, _ := newTestServer(t)
	d.opportunities = []types.Opportunity{{ROI: 5, Cost: 0.9}}
	runScanAndWait(t, s)

	w := doRequest(server, http.MethodGet, "/api/opportunities", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got []map[string]interface{}
	require.NoError(t, goccyjson.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 1)
	require.InDelta(t, 5.0, got[0]["roi"], 0.001)
}

func TestGetMatchedMarkets_ReturnsFlattenedView(t *testing.T) {
	server, s, _, _, _ := newTestServer(t)
	runScanAndWait(t, s)

	w := doRequest(server, http.MethodGet, "/api/matched-markets", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got []matchedMarketView
	require.NoError(t, goccyjson.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 1)
	require.Equal(t, "Will it rain", got[0].KalshiTitle)
	require.Equal(t, "RAIN-24", got[0].KalshiTicker)
	require.InDelta(t, 95.5, got[0].Similarity, 0.01)
}

func TestGetStats_ReturnsCurrentSnapshot(t *testing.T) {
	server, s, _, _, _ := newTestServer(t)
	runScanAndWait(t, s)

	w := doRequest(server, http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got map[string]interface{}
	require.NoError(t, goccyjson.Unmarshal(w.Body.Bytes(), &got))
	require.Equal(t, float64(1), got["total_scans"])
	require.Equal(t, float64(1), got["kalshi_markets"])
}

func TestLastN_TrimsToMostRecentEntries(t *testing.T) {
	errs := []string{"e1", "e2", "e3", "e4", "e5", "e6", "e7"}
	require.Equal(t, []string{"e3", "e4", "e5", "e6", "e7"}, lastN(errs, 5))
}

func TestLastN_ReturnsInputUnchangedWhenWithinLimit(t *testing.T) {
	errs := []string{"e1", "e2"}
	require.Equal(t, errs, lastN(errs, 5))
}

func TestGetExecutions_ReflectsExecutorLog(t *testing.T) {
	server, s, d, _, g := newTestServer(t)
	g.enabled = true
	d.opportunities = []types.Opportunity{{ROI: 1}}
	runScanAndWait(t, s)

	w := doRequest(server, http.MethodGet, "/api/executions", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got []types.ExecutionRecord
	require.NoError(t, goccyjson.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 1)
}

func TestPostSettings_AppliesPartialUpdate(t *testing.T) {
	server, s, _, _, g := newTestServer(t)

	body := []byte(`{"auto_execute": true, "match_threshold": 90}`)
	w := doRequest(server, http.MethodPost, "/api/settings", body)
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, g.enabled)
	require.True(t, s.Stats().AutoExecute)
}

func TestPostSettings_RejectsMalformedBody(t *testing.T) {
	server, _, _, _, _ := newTestServer(t)

	w := doRequest(server, http.MethodPost, "/api/settings", []byte("{not json"))
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthAndReadyEndpoints(t *testing.T) {
	server, _, _, _, _ := newTestServer(t)

	w := doRequest(server, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(server, http.MethodGet, "/ready", nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}
