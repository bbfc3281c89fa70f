// Package matching pairs Kalshi markets with the Polymarket market the
// matcher judges most similar, by fuzzy title matching with a manual
// override file and a scoring-hint cache layered on top.
package matching

import (
	"os"
	"sort"
	"time"

	goccyjson "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/mselser95/arb-scanner/pkg/cache"
	"github.com/mselser95/arb-scanner/pkg/types"
)

// cacheTTL of 0 means cached hints never expire; they stay until ClearCache.
// The cache only ever serves as a scoring hint that gets re-validated against
// the current scan's Polymarket table, so a stale hint is harmless and simply
// falls back to a fresh fuzzy match.
const cacheTTL time.Duration = 0

// cachedMatch is what the matcher stores per Kalshi id between scans.
type cachedMatch struct {
	polymarketID string
	score        float64
}

// Matcher matches Kalshi markets against Polymarket markets via fuzzy title
// similarity, honoring manual overrides and exclusions loaded from disk.
type Matcher struct {
	threshold int
	logger    *zap.Logger
	cache     cache.Cache

	overrides map[string]string
	excluded  map[string]struct{}
}

// Config configures a new Matcher.
type Config struct {
	Threshold     int
	OverridesPath string
	Logger        *zap.Logger
}

// New creates a Matcher, loading manual overrides/exclusions from
// cfg.OverridesPath if the file exists (a missing file is not an error).
func New(cfg *Config) (*Matcher, error) {
	c, err := cache.NewRistrettoCache(&cache.RistrettoConfig{
		NumCounters: 100_000,
		MaxCost:     10_000,
		BufferItems: 64,
		Logger:      cfg.Logger,
	})
	if err != nil {
		return nil, err
	}

	m := &Matcher{
		threshold: cfg.Threshold,
		logger:    cfg.Logger,
		cache:     c,
		overrides: map[string]string{},
		excluded:  map[string]struct{}{},
	}

	if err := m.loadOverrides(cfg.OverridesPath); err != nil {
		cfg.Logger.Warn("failed-to-load-overrides", zap.Error(err))
	}

	return m, nil
}

func (m *Matcher) loadOverrides(path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var parsed types.Overrides
	if err := goccyjson.Unmarshal(data, &parsed); err != nil {
		return err
	}

	if parsed.Overrides != nil {
		m.overrides = parsed.Overrides
	}
	for _, id := range parsed.Excluded {
		m.excluded[id] = struct{}{}
	}

	m.logger.Info("loaded-market-overrides",
		zap.Int("overrides", len(m.overrides)),
		zap.Int("exclusions", len(m.excluded)))
	return nil
}

// SetThreshold updates the minimum similarity score a fresh fuzzy match must
// clear. Existing cache entries are left untouched; callers that want a
// clean slate should also call ClearCache.
func (m *Matcher) SetThreshold(threshold int) {
	m.threshold = threshold
}

// ClearCache discards all cached scoring hints.
func (m *Matcher) ClearCache() {
	m.cache.Clear()
}

// Match pairs every Kalshi market against the Polymarket market judged most
// similar by fuzzy title matching, honoring manual overrides first. Returns
// at most one MatchedPair per Kalshi id and at most one per Polymarket id —
// when two Kalshi markets would both best-match the same Polymarket market,
// only the higher-scoring pair survives.
func (m *Matcher) Match(kalshiMarkets, polymarketMarkets []types.Market) []types.MatchedPair {
	if len(kalshiMarkets) == 0 || len(polymarketMarkets) == 0 {
		return nil
	}

	polyByID := make(map[string]*types.Market, len(polymarketMarkets))
	for i := range polymarketMarkets {
		polyByID[polymarketMarkets[i].ID] = &polymarketMarkets[i]
	}

	overriddenKalshi := make(map[string]struct{})
	overriddenPoly := make(map[string]struct{})
	var overrideMatches []types.MatchedPair

	for i := range kalshiMarkets {
		km := &kalshiMarkets[i]
		targetID, ok := m.overrides[km.ID]
		if !ok {
			continue
		}
		pm, ok := polyByID[targetID]
		if !ok {
			continue
		}
		pair := buildPair(km, pm, 100.0)
		overrideMatches = append(overrideMatches, pair)
		m.cache.Set(km.ID, cachedMatch{polymarketID: pm.ID, score: 100.0}, cacheTTL)
		overriddenKalshi[km.ID] = struct{}{}
		overriddenPoly[pm.ID] = struct{}{}
	}

	// Build the candidate pool of non-overridden Polymarket titles.
	var polyList []*types.Market
	var polyTitles []string
	for i := range polymarketMarkets {
		pm := &polymarketMarkets[i]
		if _, skip := overriddenPoly[pm.ID]; skip {
			continue
		}
		polyList = append(polyList, pm)
		polyTitles = append(polyTitles, Normalize(pm.Title))
	}

	if len(polyTitles) == 0 {
		return overrideMatches
	}

	type scored struct {
		score float64
		pair  types.MatchedPair
	}
	// key: kalshiID|polyID
	bestByPair := make(map[string]scored)

	for i := range kalshiMarkets {
		km := &kalshiMarkets[i]
		if _, skip := overriddenKalshi[km.ID]; skip {
			continue
		}
		if _, skip := m.excluded[km.ID]; skip {
			continue
		}

		if hint, found := m.cacheHint(km.ID); found {
			if pm, present := polyByID[hint.polymarketID]; present {
				pair := buildPair(km, pm, hint.score)
				key := km.ID + "|" + pm.ID
				if existing, ok := bestByPair[key]; !ok || hint.score > existing.score {
					bestByPair[key] = scored{score: hint.score, pair: pair}
				}
				continue
			}
			// Cached Polymarket market vanished from this scan; fall through
			// to a fresh fuzzy match instead of trusting a stale hint.
		}

		normTitle := Normalize(km.Title)
		idx, score, ok := bestMatch(normTitle, polyTitles, float64(m.threshold))
		if !ok {
			continue
		}

		pm := polyList[idx]
		key := km.ID + "|" + pm.ID
		pair := buildPair(km, pm, score)
		if existing, ok := bestByPair[key]; !ok || score > existing.score {
			bestByPair[key] = scored{score: score, pair: pair}
			m.cache.Set(km.ID, cachedMatch{polymarketID: pm.ID, score: score}, cacheTTL)
		}
	}

	// Dedup per Kalshi id, keeping the highest score.
	kalshiBest := make(map[string]scored)
	for _, s := range bestByPair {
		kid := s.pair.Kalshi.ID
		if existing, ok := kalshiBest[kid]; !ok || s.score > existing.score {
			kalshiBest[kid] = s
		}
	}

	// Dedup per Polymarket id, keeping the highest score.
	polyBest := make(map[string]scored)
	for _, s := range kalshiBest {
		pid := s.pair.Polymarket.ID
		if existing, ok := polyBest[pid]; !ok || s.score > existing.score {
			polyBest[pid] = s
		}
	}

	matched := append([]types.MatchedPair{}, overrideMatches...)
	for _, s := range polyBest {
		matched = append(matched, s.pair)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].SimilarityScore > matched[j].SimilarityScore
	})

	m.logger.Info("matched-market-pairs",
		zap.Int("pairs", len(matched)),
		zap.Int("threshold", m.threshold))

	return matched
}

// cacheHint re-validates a cached Kalshi->Polymarket scoring hint: the cache
// exists only to skip re-scoring known-good pairs, never to skip the
// existence check against the current scan's Polymarket table. Match()
// still confirms the cached Polymarket id is present before using the hint.
func (m *Matcher) cacheHint(kalshiID string) (cachedMatch, bool) {
	v, found := m.cache.Get(kalshiID)
	if !found {
		return cachedMatch{}, false
	}
	cm, ok := v.(cachedMatch)
	if !ok {
		return cachedMatch{}, false
	}
	return cm, true
}

func buildPair(km, pm *types.Market, score float64) types.MatchedPair {
	pair := types.MatchedPair{
		Kalshi:          *km,
		Polymarket:      *pm,
		SimilarityScore: score,
	}
	pair.KalshiOutcome = km.Outcome()
	pair.PolymarketOutcome = pm.Outcome()
	return pair
}
