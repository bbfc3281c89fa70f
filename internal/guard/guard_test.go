package guard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newGuard(t *testing.T) *Guard {
	t.Helper()
	return New(Config{
		Enabled:            true,
		MaxDailyLossUSD:    50.0,
		MinProfitCents:     2.0,
		CooldownSeconds:    5.0,
		MaxPositionSizeUSD: 100.0,
		Logger:             zap.NewNop(),
	})
}

func TestCheck_BlocksWhenDisabled(t *testing.T) {
	g := newGuard(t)
	g.SetEnabled(false)
	require.NotEmpty(t, g.Check(0.10, 10))
}

func TestCheck_BlocksWhenDailyLossBreached(t *testing.T) {
	g := newGuard(t)
	g.RecordPnL(-60.0)
	require.Contains(t, g.Check(0.10, 10), "daily loss")
}

func TestCheck_BlocksBelowMinimumProfit(t *testing.T) {
	g := newGuard(t)
	require.Contains(t, g.Check(0.01, 10), "below minimum")
}

func TestCheck_BlocksDuringCooldown(t *testing.T) {
	g := newGuard(t)
	g.RecordExecution(time.Now())
	require.Contains(t, g.Check(0.10, 10), "cooldown")
}

func TestCheck_AllowsAfterCooldownElapses(t *testing.T) {
	g := newGuard(t)
	g.RecordExecution(time.Now().Add(-10 * time.Second))
	require.Empty(t, g.Check(0.10, 10))
}

func TestCheck_BlocksWhenNoExecutableSize(t *testing.T) {
	g := New(Config{Enabled: true, MinProfitCents: 0, MaxPositionSizeUSD: 0, Logger: zap.NewNop()})
	require.Contains(t, g.Check(0.10, 0), "no executable size")
}

func TestDailyPnL_ResetsOnUTCDayRollover(t *testing.T) {
	g := newGuard(t)
	g.mu.Lock()
	g.dailyPnL = -40
	g.resetDate = "2000-01-01"
	g.mu.Unlock()

	// DailyPnL/Check call resetDailyIfNeeded internally, which compares
	// against today's UTC date and should zero out the stale total.
	require.Equal(t, 0.0, g.DailyPnL())
}

func TestPositionSize_CapsAtMaxPositionOrMaxSize(t *testing.T) {
	g := newGuard(t)
	require.Equal(t, 25.0, g.PositionSize(25))
	require.Equal(t, 100.0, g.PositionSize(0))
	require.Equal(t, 100.0, g.PositionSize(500))
}

func TestSetMaxPositionSize_AppliesImmediately(t *testing.T) {
	g := newGuard(t)
	g.SetMaxPositionSize(10.0)
	require.Equal(t, 10.0, g.PositionSize(500))
}

func TestSetMinProfitCents_AppliesImmediately(t *testing.T) {
	g := newGuard(t)
	g.SetMinProfitCents(0.0)
	require.Empty(t, g.Check(0.001, 10))
}
