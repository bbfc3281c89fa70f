// Package execution runs detected opportunities through the guard's safety
// checks and places the two stub legs concurrently.
package execution

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/arb-scanner/internal/guard"
	"github.com/mselser95/arb-scanner/pkg/types"
)

// Executor checks each opportunity passed to Execute against a Guard and
// places both legs concurrently when approved.
type Executor struct {
	logger *zap.Logger
	guard  *guard.Guard

	mu  sync.Mutex
	log []types.ExecutionRecord
}

// Config holds executor configuration.
type Config struct {
	Guard  *guard.Guard
	Logger *zap.Logger
}

// New creates a new trade executor.
func New(cfg Config) *Executor {
	return &Executor{
		logger: cfg.Logger,
		guard:  cfg.Guard,
	}
}

// ExecutionLog returns a snapshot of every attempted execution so far.
func (e *Executor) ExecutionLog() []types.ExecutionRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]types.ExecutionRecord, len(e.log))
	copy(out, e.log)
	return out
}

// Execute attempts to execute opp, running it through the guard's checks
// first. Both legs are placed concurrently; if exactly one leg succeeds the
// resulting record is flagged PartialFill with no rollback attempted.
func (e *Executor) Execute(ctx context.Context, opp types.Opportunity) types.ExecutionRecord {
	if reason := e.guard.Check(opp.Profit, opp.MaxSize); reason != "" {
		record := types.ExecutionRecord{
			Opportunity: opp,
			ExecutedAt:  time.Now().UTC(),
			Error:       reason,
		}
		guard.BlockedTotal.WithLabelValues(reason).Inc()
		e.appendLog(record)
		e.logger.Info("execution-blocked", zap.String("reason", reason))
		return record
	}

	positionSize := e.guard.PositionSize(opp.MaxSize)

	e.logger.Info("executing-opportunity",
		zap.String("direction", string(opp.Direction)),
		zap.Float64("cost", opp.Cost),
		zap.Float64("profit", opp.Profit),
		zap.Float64("size", positionSize))

	yesErr, noErr := e.placeLegs(ctx, opp, positionSize)

	record := types.ExecutionRecord{
		Opportunity: opp,
		ExecutedAt:  time.Now().UTC(),
	}

	switch {
	case yesErr == nil && noErr == nil:
		pnl := opp.Profit * positionSize
		e.guard.RecordPnL(pnl)
		e.guard.RecordExecution(record.ExecutedAt)
		record.Success = true
		record.PnL = pnl
		ExecutionsTotal.WithLabelValues("success").Inc()
		ProfitRealizedUSD.Add(pnl)
		e.logger.Info("execution-succeeded", zap.Float64("estimated-pnl", pnl))
	case yesErr != nil && noErr != nil:
		record.Error = fmt.Errorf("both legs failed: yes=%w, no=%w", yesErr, noErr).Error()
		ExecutionsTotal.WithLabelValues("failed").Inc()
		e.logger.Error("execution-failed", zap.Error(fmt.Errorf("%s", record.Error)))
	default:
		// Exactly one leg failed. The spec explicitly leaves rollback
		// policy undefined for this case, so the failure is recorded and
		// surfaced as a partial fill without attempting to unwind the
		// leg that succeeded.
		record.PartialFill = true
		if yesErr != nil {
			record.Error = fmt.Sprintf("yes leg failed: %v", yesErr)
		} else {
			record.Error = fmt.Sprintf("no leg failed: %v", noErr)
		}
		ExecutionsTotal.WithLabelValues("partial_fill").Inc()
		e.logger.Warn("execution-partial-fill", zap.String("error", record.Error))
	}

	e.appendLog(record)
	return record
}

func (e *Executor) appendLog(record types.ExecutionRecord) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.log = append(e.log, record)
}

// placeLegs places the YES and NO legs concurrently and returns each leg's
// error, nil on success. Both legs are stubs: without live trading
// credentials configured, placement is a logged dry run, matching the
// original bot's behavior when no API key/private key is present.
func (e *Executor) placeLegs(ctx context.Context, opp types.Opportunity, size float64) (yesErr, noErr error) {
	var wg sync.WaitGroup
	wg.Add(2)

	switch opp.Direction {
	case types.DirectionKalshiYesPolyNo:
		go func() {
			defer wg.Done()
			yesErr = e.buyKalshiYes(ctx, opp, size)
		}()
		go func() {
			defer wg.Done()
			noErr = e.buyPolymarketNo(ctx, opp, size)
		}()
	default:
		go func() {
			defer wg.Done()
			yesErr = e.buyPolymarketYes(ctx, opp, size)
		}()
		go func() {
			defer wg.Done()
			noErr = e.buyKalshiNo(ctx, opp, size)
		}()
	}

	wg.Wait()
	return yesErr, noErr
}

// buyKalshiYes places a YES buy order on Kalshi. This is a dry-run stub:
// real order placement requires a signed Kalshi API session that is out of
// scope here.
func (e *Executor) buyKalshiYes(_ context.Context, opp types.Opportunity, size float64) error {
	e.logger.Info("kalshi-buy-yes",
		zap.String("ticker", opp.Pair.Kalshi.Ticker),
		zap.Float64("price", opp.KalshiPrice),
		zap.Float64("size", size))
	return nil
}

func (e *Executor) buyKalshiNo(_ context.Context, opp types.Opportunity, size float64) error {
	e.logger.Info("kalshi-buy-no",
		zap.String("ticker", opp.Pair.Kalshi.Ticker),
		zap.Float64("price", opp.KalshiPrice),
		zap.Float64("size", size))
	return nil
}

// buyPolymarketYes places a YES buy order on Polymarket, identified by its
// outcome token (index 0). Dry-run stub: real order placement requires a
// signed CLOB order that is out of scope here.
func (e *Executor) buyPolymarketYes(_ context.Context, opp types.Opportunity, size float64) error {
	tokenID := ""
	if opp.Pair.PolymarketOutcome != nil {
		tokenID = opp.Pair.PolymarketOutcome.TokenID
	}
	e.logger.Info("polymarket-buy-yes",
		zap.String("token-id", tokenID),
		zap.Float64("price", opp.PolymarketPrice),
		zap.Float64("size", size))
	return nil
}

// buyPolymarketNo places a NO buy order on Polymarket. A binary Polymarket
// market's NO token is always at outcome index 1 -- guaranteed by the venue
// client only admitting two-outcome markets past its parser.
func (e *Executor) buyPolymarketNo(_ context.Context, opp types.Opportunity, size float64) error {
	outcomes := opp.Pair.Polymarket.Outcomes
	tokenID := ""
	if len(outcomes) > 1 {
		tokenID = outcomes[1].TokenID
	} else if opp.Pair.PolymarketOutcome != nil {
		tokenID = opp.Pair.PolymarketOutcome.TokenID
	}
	e.logger.Info("polymarket-buy-no",
		zap.String("token-id", tokenID),
		zap.Float64("price", opp.PolymarketPrice),
		zap.Float64("size", size))
	return nil
}
