// Package guard implements the executor's safety guardrails: a daily
// realized-PnL circuit breaker plus the cooldown/minimum-profit/position-size
// checks the executor consults before placing trades.
package guard

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Config configures a Guard.
type Config struct {
	Enabled            bool
	MaxDailyLossUSD    float64
	MinProfitCents     float64
	CooldownSeconds    float64
	MaxPositionSizeUSD float64
	Logger             *zap.Logger
}

// Guard is a daily-PnL circuit breaker: once realized losses for the UTC day
// exceed MaxDailyLossUSD, Check returns a "daily loss limit reached" reason
// until the next UTC day resets the counter. It also enforces the cooldown and minimum-profit
// checks the executor runs before every trade.
type Guard struct {
	enabled atomic.Bool

	maxDailyLossUSD float64
	cooldownSeconds float64
	logger          *zap.Logger

	mu                 sync.Mutex
	dailyPnL           float64
	resetDate          string
	lastExecution      time.Time
	hasLastExec        bool
	minProfitCents     float64
	maxPositionSizeUSD float64
}

// New creates a Guard from cfg.
func New(cfg Config) *Guard {
	g := &Guard{
		maxDailyLossUSD:    cfg.MaxDailyLossUSD,
		cooldownSeconds:    cfg.CooldownSeconds,
		minProfitCents:     cfg.MinProfitCents,
		maxPositionSizeUSD: cfg.MaxPositionSizeUSD,
		logger:             cfg.Logger,
	}
	g.enabled.Store(cfg.Enabled)
	return g
}

// SetMinProfitCents updates the minimum-profit floor a trade must clear.
func (g *Guard) SetMinProfitCents(cents float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.minProfitCents = cents
}

// SetMaxPositionSize updates the maximum USD size a single trade may take.
func (g *Guard) SetMaxPositionSize(usd float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.maxPositionSizeUSD = usd
}

// IsEnabled reports whether auto-execution is turned on. Lock-free, safe on
// hot paths.
func (g *Guard) IsEnabled() bool {
	return g.enabled.Load()
}

// SetEnabled turns auto-execution on or off.
func (g *Guard) SetEnabled(enabled bool) {
	g.enabled.Store(enabled)
}

// RecordPnL adds a realized profit/loss amount to the running daily total,
// resetting the total first if the UTC day has rolled over.
func (g *Guard) RecordPnL(amount float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.resetDailyIfNeeded()
	g.dailyPnL += amount
	DailyPnLUSD.Set(g.dailyPnL)
}

// RecordExecution marks the cooldown clock as having just fired.
func (g *Guard) RecordExecution(at time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lastExecution = at
	g.hasLastExec = true
}

func (g *Guard) resetDailyIfNeeded() {
	today := time.Now().UTC().Format("2006-01-02")
	if g.resetDate != today {
		g.dailyPnL = 0
		g.resetDate = today
	}
}

// Check runs the guardrail sequence and returns a non-empty reason if
// execution should be blocked, or "" if the opportunity may proceed.
// Order matches the original executor's _check_guardrails: disabled check,
// daily loss limit, minimum profit, cooldown, then executable size.
func (g *Guard) Check(profit, maxSize float64) string {
	if !g.IsEnabled() {
		return "auto-execution is disabled"
	}

	g.mu.Lock()
	g.resetDailyIfNeeded()
	dailyPnL := g.dailyPnL
	minProfitCents := g.minProfitCents
	maxPositionSizeUSD := g.maxPositionSizeUSD
	var elapsed float64
	hasLastExec := g.hasLastExec
	if hasLastExec {
		elapsed = time.Since(g.lastExecution).Seconds()
	}
	g.mu.Unlock()

	if dailyPnL < -g.maxDailyLossUSD {
		return fmt.Sprintf("daily loss limit reached ($%.2f)", dailyPnL)
	}

	if profit*100 < minProfitCents {
		return fmt.Sprintf("profit %.1f¢ below minimum %.1f¢", profit*100, minProfitCents)
	}

	if hasLastExec && elapsed < g.cooldownSeconds {
		return fmt.Sprintf("cooldown active (%.1fs / %.1fs)", elapsed, g.cooldownSeconds)
	}

	positionSize := maxPositionSizeUSD
	if maxSize > 0 && maxSize < positionSize {
		positionSize = maxSize
	}
	if positionSize <= 0 {
		return "no executable size available"
	}

	return ""
}

// PositionSize returns the position size (in USD) a Check-approved
// opportunity should be sized at: min(maxSize, MaxPositionSizeUSD) when
// maxSize is reported, else MaxPositionSizeUSD outright.
func (g *Guard) PositionSize(maxSize float64) float64 {
	g.mu.Lock()
	maxPositionSizeUSD := g.maxPositionSizeUSD
	g.mu.Unlock()

	if maxSize > 0 && maxSize < maxPositionSizeUSD {
		return maxSize
	}
	return maxPositionSizeUSD
}

// DailyPnL returns the current UTC day's running realized PnL.
func (g *Guard) DailyPnL() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.resetDailyIfNeeded()
	return g.dailyPnL
}
