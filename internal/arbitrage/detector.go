// Package arbitrage scores matched market pairs for cross-venue arbitrage:
// buying the YES leg on one venue and the NO leg on the other for a
// combined cost below $1.00 after worst-case fees.
package arbitrage

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mselser95/arb-scanner/pkg/types"
)

// Config holds the fee rates and profit floor the detector scores against.
type Config struct {
	KalshiFeeRate     float64
	PolymarketFeeRate float64
	MinProfitCents    float64
	Logger            *zap.Logger
}

// Detector scans matched pairs for arbitrage opportunities in both
// directions (YES-Kalshi/NO-Polymarket and YES-Polymarket/NO-Kalshi).
type Detector struct {
	cfg Config

	mu             sync.RWMutex
	minProfitCents float64
}

// New creates a Detector from cfg.
func New(cfg Config) *Detector {
	return &Detector{cfg: cfg, minProfitCents: cfg.MinProfitCents}
}

// SetMinProfitCents updates the minimum-profit floor opportunities must
// clear to be returned by Detect.
func (d *Detector) SetMinProfitCents(cents float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.minProfitCents = cents
}

// Detect scans every matched pair for arbitrage in both directions and
// returns the opportunities that clear the minimum profit floor, sorted by
// descending ROI.
func (d *Detector) Detect(pairs []types.MatchedPair) []types.Opportunity {
	start := time.Now()
	defer func() { DetectionDurationSeconds.Observe(time.Since(start).Seconds()) }()

	d.mu.RLock()
	minProfit := d.minProfitCents / 100.0
	d.mu.RUnlock()

	var opportunities []types.Opportunity
	for _, mm := range pairs {
		ko := mm.KalshiOutcome
		po := mm.PolymarketOutcome
		if ko == nil || po == nil {
			continue
		}

		if opp, ok := d.checkDirection(mm, types.DirectionKalshiYesPolyNo, ko, po,
			d.cfg.KalshiFeeRate, d.cfg.PolymarketFeeRate, minProfit); ok {
			OpportunitiesDetected.WithLabelValues(string(types.DirectionKalshiYesPolyNo)).Inc()
			opportunities = append(opportunities, opp)
		}

		if opp, ok := d.checkDirection(mm, types.DirectionPolyYesKalshiNo, po, ko,
			d.cfg.PolymarketFeeRate, d.cfg.KalshiFeeRate, minProfit); ok {
			OpportunitiesDetected.WithLabelValues(string(types.DirectionPolyYesKalshiNo)).Inc()
			opportunities = append(opportunities, opp)
		}
	}

	sort.Slice(opportunities, func(i, j int) bool {
		return opportunities[i].ROI > opportunities[j].ROI
	})

	return opportunities
}

// effectiveCost computes total leg cost plus the worst-case fee on whichever
// side ends up winning: when the market resolves, exactly one leg pays out
// $1.00 and fees apply to that leg's profit (payout - cost).
func effectiveCost(yesPrice, noPrice, yesFeeRate, noFeeRate float64) float64 {
	feeIfYesWins := math.Max(0, 1.0-yesPrice) * yesFeeRate
	feeIfNoWins := math.Max(0, 1.0-noPrice) * noFeeRate
	worstFee := math.Max(feeIfYesWins, feeIfNoWins)
	return yesPrice + noPrice + worstFee
}

func (d *Detector) checkDirection(
	mm types.MatchedPair,
	direction types.Direction,
	yesOutcome, noOutcome *types.Outcome,
	yesFeeRate, noFeeRate, minProfit float64,
) (types.Opportunity, bool) {
	yesPrice := yesOutcome.YesAsk
	if yesPrice <= 0 {
		yesPrice = yesOutcome.YesPrice
	}
	noPrice := noOutcome.NoAsk
	if noPrice <= 0 {
		noPrice = noOutcome.NoPrice
	}

	if yesPrice <= 0 || noPrice <= 0 {
		return types.Opportunity{}, false
	}

	cost := effectiveCost(yesPrice, noPrice, yesFeeRate, noFeeRate)
	profit := 1.0 - cost
	if profit < minProfit {
		return types.Opportunity{}, false
	}

	roi := 0.0
	if cost > 0 {
		roi = (profit / cost) * 100.0
	}

	maxSize := math.Inf(1)
	if yesOutcome.YesDepth > 0 {
		maxSize = math.Min(maxSize, yesOutcome.YesDepth)
	}
	if noOutcome.NoDepth > 0 {
		maxSize = math.Min(maxSize, noOutcome.NoDepth)
	}
	if math.IsInf(maxSize, 1) {
		maxSize = 0.0
	}

	kalshiPrice, polymarketPrice := yesPrice, noPrice
	if direction == types.DirectionPolyYesKalshiNo {
		kalshiPrice, polymarketPrice = noPrice, yesPrice
	}

	return types.Opportunity{
		ID:              uuid.New().String(),
		Pair:            mm,
		Direction:       direction,
		Cost:            round4(cost),
		Profit:          round4(profit),
		ROI:             round2(roi),
		MaxSize:         round2(maxSize),
		Timestamp:       time.Now().UTC(),
		KalshiPrice:     kalshiPrice,
		PolymarketPrice: polymarketPrice,
	}, true
}

func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
