package matching

import (
	"os"
	"path/filepath"
	"testing"

	goccyjson "github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mselser95/arb-scanner/pkg/types"
)

func newTestMatcher(t *testing.T, threshold int) *Matcher {
	t.Helper()
	m, err := New(&Config{Threshold: threshold, Logger: zap.NewNop()})
	require.NoError(t, err)
	return m
}

func kalshiMarket(id, title string) types.Market {
	return types.Market{Venue: types.VenueKalshi, ID: id, Title: title, Outcomes: []types.Outcome{{Name: title}}}
}

func polyMarket(id, title string) types.Market {
	return types.Market{Venue: types.VenuePolymarket, ID: id, Title: title, Outcomes: []types.Outcome{{Name: title}}}
}

func TestMatch_EmptyInputsReturnNil(t *testing.T) {
	m := newTestMatcher(t, 80)
	require.Nil(t, m.Match(nil, nil))
	require.Nil(t, m.Match([]types.Market{kalshiMarket("K1", "Will it rain")}, nil))
}

func TestMatch_PicksHighestSimilarityAboveThreshold(t *testing.T) {
	m := newTestMatcher(t, 50)

	kalshi := []types.Market{kalshiMarket("K1", "Will the Fed cut rates in March")}
	poly := []types.Market{
		polyMarket("P1", "Totally unrelated sports result"),
		polyMarket("P2", "Will the Fed cut rates in March 2026"),
	}

	matched := m.Match(kalshi, poly)
	require.Len(t, matched, 1)
	require.Equal(t, "P2", matched[0].Polymarket.ID)
}

func TestMatch_BelowThresholdIsDropped(t *testing.T) {
	m := newTestMatcher(t, 95)

	kalshi := []types.Market{kalshiMarket("K1", "Will the Fed cut rates")}
	poly := []types.Market{polyMarket("P1", "Completely different question entirely")}

	matched := m.Match(kalshi, poly)
	require.Empty(t, matched)
}

func TestMatch_UniquePerKalshiAndPolymarketID(t *testing.T) {
	m := newTestMatcher(t, 10)

	kalshi := []types.Market{
		kalshiMarket("K1", "Will the Fed cut rates"),
		kalshiMarket("K2", "Will the Fed cut rates"),
	}
	poly := []types.Market{polyMarket("P1", "Will the Fed cut rates")}

	matched := m.Match(kalshi, poly)
	require.Len(t, matched, 1)

	seenKalshi := map[string]bool{}
	seenPoly := map[string]bool{}
	for _, mm := range matched {
		require.False(t, seenKalshi[mm.Kalshi.ID], "duplicate kalshi id in output")
		require.False(t, seenPoly[mm.Polymarket.ID], "duplicate polymarket id in output")
		seenKalshi[mm.Kalshi.ID] = true
		seenPoly[mm.Polymarket.ID] = true
	}
}

func TestMatch_OverrideBypassesThreshold(t *testing.T) {
	m := newTestMatcher(t, 99)
	m.overrides["K1"] = "P1"

	kalshi := []types.Market{kalshiMarket("K1", "Nothing like the other title")}
	poly := []types.Market{polyMarket("P1", "A totally different phrasing")}

	matched := m.Match(kalshi, poly)
	require.Len(t, matched, 1)
	require.InDelta(t, 100.0, matched[0].SimilarityScore, 1e-9)
}

func TestMatch_ExcludedKalshiIDNeverMatches(t *testing.T) {
	m := newTestMatcher(t, 10)
	m.excluded["K1"] = struct{}{}

	kalshi := []types.Market{kalshiMarket("K1", "Will the Fed cut rates")}
	poly := []types.Market{polyMarket("P1", "Will the Fed cut rates")}

	matched := m.Match(kalshi, poly)
	require.Empty(t, matched)
}

func TestMatch_CacheHintRevalidatedAgainstCurrentScan(t *testing.T) {
	m := newTestMatcher(t, 10)

	kalshi := []types.Market{kalshiMarket("K1", "Will the Fed cut rates")}
	polyRound1 := []types.Market{polyMarket("P1", "Will the Fed cut rates")}

	matched := m.Match(kalshi, polyRound1)
	require.Len(t, matched, 1)
	m.cache.(interface{ Wait() }).Wait()

	// Round 2: the cached Polymarket id is gone from this scan's table, so
	// the stale hint must not be trusted -- matcher falls back to a fresh
	// fuzzy match against whatever is present now.
	polyRound2 := []types.Market{polyMarket("P2", "Will the Fed cut rates")}
	matched2 := m.Match(kalshi, polyRound2)
	require.Len(t, matched2, 1)
	require.Equal(t, "P2", matched2[0].Polymarket.ID)
}

func TestLoadOverrides_MissingFileIsNotAnError(t *testing.T) {
	m := newTestMatcher(t, 80)
	require.NoError(t, m.loadOverrides(filepath.Join(t.TempDir(), "does-not-exist.json")))
}

func TestLoadOverrides_ParsesOverridesAndExclusions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "market_overrides.json")

	data, err := goccyjson.Marshal(types.Overrides{
		Overrides: map[string]string{"K1": "P9"},
		Excluded:  []string{"K2"},
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	m := newTestMatcher(t, 80)
	require.NoError(t, m.loadOverrides(path))
	require.Equal(t, "P9", m.overrides["K1"])
	_, excluded := m.excluded["K2"]
	require.True(t, excluded)
}

func TestNormalize_IsIdempotent(t *testing.T) {
	in := "  Will the Fed CUT Rates?!  "
	once := Normalize(in)
	twice := Normalize(once)
	require.Equal(t, once, twice)
}
