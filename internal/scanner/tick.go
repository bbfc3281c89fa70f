package scanner

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/arb-scanner/pkg/types"
)

// scanOnce runs a single fetch -> match -> enrich -> detect -> broadcast ->
// auto-execute cycle.
func (s *Scanner) scanOnce(ctx context.Context) error {
	start := time.Now()
	defer func() { ScanDurationSeconds.Observe(time.Since(start).Seconds()) }()

	kalshiMarkets, polyMarkets, err := s.fetchMarkets(ctx)
	if err != nil {
		ScanErrorsTotal.Inc()
		return err
	}

	matched := s.matcher.Match(kalshiMarkets, polyMarkets)

	s.enrichOrderbooks(ctx, matched)

	opportunities := s.detector.Detect(matched)

	s.mu.Lock()
	s.kalshiMarkets = kalshiMarkets
	s.polymarketMarkets = polyMarkets
	s.matchedMarkets = matched
	s.opportunities = opportunities
	s.stats.KalshiMarkets = len(kalshiMarkets)
	s.stats.PolymarketMarkets = len(polyMarkets)
	s.stats.MatchedPairs = len(matched)
	s.stats.ActiveOpportunities = len(opportunities)
	s.stats.TotalScans++
	s.stats.LastScan = time.Now().UTC().Format(time.RFC3339)
	stats := s.stats
	s.mu.Unlock()

	for i := range opportunities {
		if err := s.store.StoreOpportunity(ctx, &opportunities[i]); err != nil {
			s.logger.Warn("store-opportunity-failed", zap.Error(err))
		}
	}

	s.logger.Info("scan-tick-complete",
		zap.Int("scan", stats.TotalScans),
		zap.Int("kalshi", stats.KalshiMarkets),
		zap.Int("polymarket", stats.PolymarketMarkets),
		zap.Int("matched", stats.MatchedPairs),
		zap.Int("opportunities", stats.ActiveOpportunities))

	s.publishUpdate(opportunities, stats)

	if s.guard.IsEnabled() && len(opportunities) > 0 {
		record := s.executor.Execute(ctx, opportunities[0])
		if !record.Success {
			s.logger.Info("auto-execute-skipped", zap.String("reason", record.Error))
		}
	}

	return nil
}

func (s *Scanner) publishUpdate(opportunities []types.Opportunity, stats types.ScanStats) {
	dicts := make([]map[string]interface{}, len(opportunities))
	for i := range opportunities {
		dicts[i] = opportunities[i].ToDict()
	}
	s.broadcast(Update{
		Type:          "scan_update",
		Opportunities: dicts,
		Stats:         stats,
	})
}

func (s *Scanner) fetchMarkets(ctx context.Context) ([]types.Market, []types.Market, error) {
	var (
		kalshiMarkets, polyMarkets []types.Market
		kalshiErr, polyErr         error
		wg                         sync.WaitGroup
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		kalshiMarkets, kalshiErr = s.kalshiClient.FetchActiveMarkets(ctx, s.maxKalshiMarkets)
	}()
	go func() {
		defer wg.Done()
		polyMarkets, polyErr = s.polymarketClient.FetchActiveMarkets(ctx, s.maxPolymarketMarkets)
	}()
	wg.Wait()

	if kalshiErr != nil {
		return nil, nil, kalshiErr
	}
	if polyErr != nil {
		return nil, nil, polyErr
	}
	return kalshiMarkets, polyMarkets, nil
}

// enrichOrderbooks fetches live orderbook depth for every matched pair's
// outcomes, batched to respect each venue's rate limit. Kalshi enriches the
// whole market (it carries a single merged outcome); Polymarket only
// enriches when the matched outcome has a token id.
func (s *Scanner) enrichOrderbooks(ctx context.Context, matched []types.MatchedPair) {
	type task func()
	var tasks []task

	for i := range matched {
		mm := &matched[i]
		tasks = append(tasks, func() {
			if err := s.kalshiClient.EnrichWithOrderbook(ctx, &mm.Kalshi); err != nil {
				s.logger.Debug("kalshi-enrich-failed", zap.String("ticker", mm.Kalshi.Ticker), zap.Error(err))
			}
		})
		if mm.PolymarketOutcome != nil && mm.PolymarketOutcome.TokenID != "" {
			tasks = append(tasks, func() {
				if err := s.polymarketClient.EnrichWithOrderbook(ctx, &mm.Polymarket); err != nil {
					s.logger.Debug("polymarket-enrich-failed", zap.String("id", mm.Polymarket.ID), zap.Error(err))
				}
			})
		}
	}

	for i := 0; i < len(tasks); i += enrichBatchSize {
		end := i + enrichBatchSize
		if end > len(tasks) {
			end = len(tasks)
		}
		batch := tasks[i:end]

		var wg sync.WaitGroup
		wg.Add(len(batch))
		for _, t := range batch {
			t := t
			go func() {
				defer wg.Done()
				t()
			}()
		}
		wg.Wait()

		if end < len(tasks) {
			select {
			case <-ctx.Done():
				return
			case <-time.After(enrichBatchPause):
			}
		}
	}

	// Re-link enriched outcomes back into each pair so the detector sees
	// the freshly fetched ask/bid/depth fields.
	for i := range matched {
		mm := &matched[i]
		mm.KalshiOutcome = mm.Kalshi.Outcome()
		mm.PolymarketOutcome = mm.Polymarket.Outcome()
	}
}
