// Package scanner orchestrates the fetch -> match -> enrich -> detect ->
// broadcast -> auto-execute loop that drives the whole scanner.
package scanner

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/arb-scanner/internal/storage"
	"github.com/mselser95/arb-scanner/pkg/types"
)

const (
	enrichBatchSize  = 8
	enrichBatchPause = 200 * time.Millisecond
	minBackoff       = 1 * time.Second
	maxBackoff       = 60 * time.Second
)

// MarketFetcher is satisfied by both venue clients: it discovers active
// markets and enriches a single market with live orderbook depth.
type MarketFetcher interface {
	FetchActiveMarkets(ctx context.Context, maxMarkets int) ([]types.Market, error)
	EnrichWithOrderbook(ctx context.Context, market *types.Market) error
}

// Matcher pairs Kalshi and Polymarket markets by fuzzy title similarity.
type Matcher interface {
	Match(kalshiMarkets, polymarketMarkets []types.Market) []types.MatchedPair
	SetThreshold(threshold int)
	ClearCache()
}

// Detector scores matched pairs for arbitrage opportunities.
type Detector interface {
	Detect(pairs []types.MatchedPair) []types.Opportunity
	SetMinProfitCents(cents float64)
}

// Executor places the legs of an approved opportunity and keeps a log of
// every attempt.
type Executor interface {
	Execute(ctx context.Context, opp types.Opportunity) types.ExecutionRecord
	ExecutionLog() []types.ExecutionRecord
}

// Guard is the executor's safety gate, also exposed here so the scanner's
// settings endpoint can flip auto-execution and resize positions live.
type Guard interface {
	IsEnabled() bool
	SetEnabled(enabled bool)
	SetMaxPositionSize(usd float64)
}

// Update is published to every broadcast subscriber after a successful
// scan tick.
type Update struct {
	Type          string                    `json:"type"`
	Opportunities []map[string]interface{} `json:"opportunities"`
	Stats         types.ScanStats           `json:"stats"`
}

// Config wires a Scanner's dependencies and starting settings.
type Config struct {
	KalshiClient     MarketFetcher
	PolymarketClient MarketFetcher
	Matcher          Matcher
	Detector         Detector
	Executor         Executor
	Guard            Guard
	Storage          storage.Storage
	Logger           *zap.Logger

	ScanInterval         time.Duration
	MaxKalshiMarkets     int
	MaxPolymarketMarkets int
	AutoExecute          bool
}

// Scanner runs the scan loop and exposes its latest results to the
// control-plane API and broadcast subscribers.
type Scanner struct {
	kalshiClient     MarketFetcher
	polymarketClient MarketFetcher
	matcher          Matcher
	detector         Detector
	executor         Executor
	guard            Guard
	store            storage.Storage
	logger           *zap.Logger

	maxKalshiMarkets     int
	maxPolymarketMarkets int

	mu                sync.RWMutex
	scanIntervalSec   int
	kalshiMarkets     []types.Market
	polymarketMarkets []types.Market
	matchedMarkets    []types.MatchedPair
	opportunities     []types.Opportunity
	stats             types.ScanStats

	subMu sync.Mutex
	subs  map[chan Update]struct{}

	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a Scanner from cfg.
func New(cfg Config) *Scanner {
	return &Scanner{
		kalshiClient:         cfg.KalshiClient,
		polymarketClient:     cfg.PolymarketClient,
		matcher:              cfg.Matcher,
		detector:             cfg.Detector,
		executor:             cfg.Executor,
		guard:                cfg.Guard,
		store:                cfg.Storage,
		logger:               cfg.Logger,
		maxKalshiMarkets:     cfg.MaxKalshiMarkets,
		maxPolymarketMarkets: cfg.MaxPolymarketMarkets,
		scanIntervalSec:      int(cfg.ScanInterval.Seconds()),
		subs:                 make(map[chan Update]struct{}),
		stats: types.ScanStats{
			ScanIntervalSeconds: int(cfg.ScanInterval.Seconds()),
			AutoExecute:         cfg.AutoExecute,
		},
	}
}

// Subscribe registers a new broadcast subscriber and returns its channel
// plus an unsubscribe function. The channel is buffered; a slow consumer
// that falls behind has its oldest pending update dropped rather than
// blocking the scan loop.
func (s *Scanner) Subscribe() (<-chan Update, func()) {
	ch := make(chan Update, 4)
	s.subMu.Lock()
	s.subs[ch] = struct{}{}
	s.subMu.Unlock()

	unsubscribe := func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		if _, ok := s.subs[ch]; ok {
			delete(s.subs, ch)
			close(ch)
		}
	}
	return ch, unsubscribe
}

func (s *Scanner) broadcast(update Update) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- update:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- update:
			default:
			}
		}
	}
}

// Start launches the scan loop in a background goroutine. Calling Start
// twice without an intervening Stop is a no-op.
func (s *Scanner) Start(ctx context.Context) {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		s.logger.Warn("scanner-already-running")
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.stats.IsRunning = true
	s.mu.Unlock()

	s.logger.Info("scanner-started", zap.Int("interval-seconds", s.scanIntervalSec))
	go s.runLoop(runCtx)
}

// Stop cancels the scan loop and waits for it to exit.
func (s *Scanner) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done

	s.mu.Lock()
	s.stats.IsRunning = false
	s.mu.Unlock()
	s.logger.Info("scanner-stopped")
}

func (s *Scanner) runLoop(ctx context.Context) {
	defer close(s.done)
	backoff := minBackoff

	for {
		if ctx.Err() != nil {
			return
		}

		if err := s.scanOnce(ctx); err != nil {
			errMsg := "scan error: " + err.Error()
			s.logger.Error("scan-tick-failed", zap.Error(err))
			s.mu.Lock()
			s.stats.RecordError(errMsg)
			s.mu.Unlock()

			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}
		backoff = minBackoff

		s.mu.RLock()
		interval := time.Duration(s.scanIntervalSec) * time.Second
		s.mu.RUnlock()

		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}
