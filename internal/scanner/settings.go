package scanner

import "github.com/mselser95/arb-scanner/pkg/types"

// SettingsUpdate carries an optional subset of the scanner's live-tunable
// settings. A nil field leaves that setting unchanged.
type SettingsUpdate struct {
	ScanIntervalSeconds  *int
	MinProfitCents       *float64
	MatchThreshold       *int
	AutoExecute          *bool
	MaxPositionSizeUSD   *float64
}

// UpdateSettings applies any fields present in upd to the running scanner,
// mirroring the original scanner's update_settings: a changed match
// threshold also clears the matcher's scoring-hint cache, since cached
// hints were scored against the old threshold. MinProfitCents reaches the
// detector only; the guard keeps the minimum-profit floor it was built with.
func (s *Scanner) UpdateSettings(upd SettingsUpdate) {
	s.mu.Lock()
	if upd.ScanIntervalSeconds != nil {
		s.scanIntervalSec = *upd.ScanIntervalSeconds
		s.stats.ScanIntervalSeconds = *upd.ScanIntervalSeconds
	}
	if upd.AutoExecute != nil {
		s.stats.AutoExecute = *upd.AutoExecute
	}
	s.mu.Unlock()

	if upd.MinProfitCents != nil {
		s.detector.SetMinProfitCents(*upd.MinProfitCents)
	}
	if upd.MatchThreshold != nil {
		s.matcher.SetThreshold(*upd.MatchThreshold)
		s.matcher.ClearCache()
	}
	if upd.AutoExecute != nil {
		s.guard.SetEnabled(*upd.AutoExecute)
	}
	if upd.MaxPositionSizeUSD != nil {
		s.guard.SetMaxPositionSize(*upd.MaxPositionSizeUSD)
	}
}

// Opportunities returns a snapshot of the latest detected opportunities.
func (s *Scanner) Opportunities() []types.Opportunity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Opportunity, len(s.opportunities))
	copy(out, s.opportunities)
	return out
}

// MatchedMarkets returns a snapshot of the latest matched pairs.
func (s *Scanner) MatchedMarkets() []types.MatchedPair {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.MatchedPair, len(s.matchedMarkets))
	copy(out, s.matchedMarkets)
	return out
}

// Executions returns the executor's full attempt log.
func (s *Scanner) Executions() []types.ExecutionRecord {
	return s.executor.ExecutionLog()
}

// Stats returns a snapshot of the scanner's current status.
func (s *Scanner) Stats() types.ScanStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := s.stats
	stats.Errors = append([]string(nil), s.stats.Errors...)
	return stats
}
