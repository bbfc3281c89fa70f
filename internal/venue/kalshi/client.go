// Package kalshi fetches markets and orderbook data from Kalshi's REST API.
package kalshi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	goccyjson "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/mselser95/arb-scanner/internal/httpretry"
	"github.com/mselser95/arb-scanner/internal/ratelimit"
	"github.com/mselser95/arb-scanner/pkg/types"
)

// seriesTickers lists the Kalshi series worth scanning for cross-platform
// arbitrage: crypto, sports, economics, weather and politics.
var seriesTickers = []string{
	"KXBTC", "KXBTCD", "KXETH", "KXETHD", "KXXRP", "KXXRPD",
	"KXDOGE", "KXDOGED", "KXSOLD", "KXSOLE",
	"KXINX",
	"KXNBA", "KXNBASPREAD", "KXNBATOTAL", "KXNBAPTS",
	"KXNBAREB", "KXNBAAST", "KXNBAWINS",
	"KXMVENBASINGLEGAME",
	"KXNCAAMBGAME", "KXNCAAMBTOTAL", "KXNCAAMBSPREAD",
	"KXNCAAMB1HSPREAD", "KXNCAAMB1HTOTAL", "KXNCAAMB1HWINNER",
	"KXNCAAWBGAME",
	"KXNEXTTEAMNFL", "KXNCAAF", "KXNFLDRAFTPICK",
	"KXNHL", "KXNHLTOTAL", "KXMLB", "KXPGATOUR", "KXPGATOP5",
	"KXPGATOP10", "KXPGATOP20", "KXPGAMAKECUT",
	"KXWCGAME", "KXWCROUND", "KXMARMADROUND", "KXMAKEMARMAD",
	"KXDPWORLDTOUR", "KXDPWORLDTOURR1LEAD",
	"KXFEDDECISION", "KXFED", "KXCPI", "KXGDP", "KXGDPNOM",
	"KXPAYROLLS", "KXECONSTATCPIYOY", "KXECONSTATCORECPIYOY",
	"KXECONSTATU3",
	"KXHIGHNY", "KXHIGHCHI", "KXHIGHMIA",
	"KXHOUSERACE", "KXTXPRIMARY",
	"KXALBUMSALES", "KXALBUMRELEASE", "KX10SONG",
}

const (
	seriesBatchSize     = 8
	maxPerSeries        = 500
	seriesPageLimit     = 200
	maxEvents           = 500
	maxEventPages       = 30
	eventsPageLimit     = 100
	seriesBatchPause    = 300 * time.Millisecond
	seriesPagePause     = 100 * time.Millisecond
	eventsPagePause     = 150 * time.Millisecond
)

// Client fetches active markets and orderbook data from Kalshi's public v2 API.
type Client struct {
	baseURL string
	http    *httpretry.Client
	limiter *ratelimit.TokenBucket
	logger  *zap.Logger
}

// New creates a Kalshi client.
func New(baseURL string, limiter *ratelimit.TokenBucket, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpretry.New(20*time.Second, logger),
		limiter: limiter,
		logger:  logger,
	}
}

type marketsResponse struct {
	Markets []rawMarket `json:"markets"`
	Cursor  string      `json:"cursor"`
}

type eventsResponse struct {
	Events []rawEvent `json:"events"`
	Cursor string     `json:"cursor"`
}

type rawEvent struct {
	Title       string      `json:"title"`
	Markets     []rawMarket `json:"markets"`
}

type rawMarket struct {
	Ticker         string  `json:"ticker"`
	Title          string  `json:"title"`
	Subtitle       string  `json:"subtitle"`
	YesPrice       float64 `json:"yes_price"`
	NoPrice        float64 `json:"no_price"`
	LastPrice      float64 `json:"last_price"`
	ExpirationTime string  `json:"expiration_time"`
	CloseTime      string  `json:"close_time"`
	Volume         float64 `json:"volume"`
	EventTicker    string  `json:"event_ticker"`
	SeriesTicker   string  `json:"series_ticker"`
}

// FetchActiveMarkets fetches Kalshi markets from the targeted series list
// plus the broader events feed, merged and deduplicated by ticker, capped at
// maxMarkets.
func (c *Client) FetchActiveMarkets(ctx context.Context, maxMarkets int) ([]types.Market, error) {
	var allSeriesMarkets []types.Market
	for i := 0; i < len(seriesTickers); i += seriesBatchSize {
		end := i + seriesBatchSize
		if end > len(seriesTickers) {
			end = len(seriesTickers)
		}
		batch := seriesTickers[i:end]

		results := make([][]types.Market, len(batch))
		var wg sync.WaitGroup
		for j, ticker := range batch {
			wg.Add(1)
			go func(j int, ticker string) {
				defer wg.Done()
				markets, err := c.fetchSeries(ctx, ticker)
				if err != nil {
					c.logger.Warn("kalshi-series-fetch-failed", zap.String("series", ticker), zap.Error(err))
					FetchErrorsTotal.Inc()
					return
				}
				results[j] = markets
			}(j, ticker)
		}
		wg.Wait()
		for _, markets := range results {
			allSeriesMarkets = append(allSeriesMarkets, markets...)
		}

		if end < len(seriesTickers) {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(seriesBatchPause):
			}
		}
	}

	events, err := c.fetchEvents(ctx)
	if err != nil {
		c.logger.Warn("kalshi-events-fetch-failed", zap.Error(err))
		FetchErrorsTotal.Inc()
	}

	seen := make(map[string]struct{})
	var markets []types.Market
	for _, m := range allSeriesMarkets {
		if len(markets) >= maxMarkets {
			break
		}
		if _, dup := seen[m.ID]; dup {
			continue
		}
		seen[m.ID] = struct{}{}
		markets = append(markets, m)
	}

	eventsAdded := 0
	for _, event := range events {
		if len(markets) >= maxMarkets {
			break
		}
		for _, raw := range event.Markets {
			m, ok := parseMarket(raw, event.Title)
			if !ok {
				continue
			}
			if _, dup := seen[m.ID]; dup {
				continue
			}
			seen[m.ID] = struct{}{}
			markets = append(markets, m)
			eventsAdded++
			if len(markets) >= maxMarkets {
				break
			}
		}
		if len(markets) >= maxMarkets {
			break
		}
	}

	c.logger.Info("kalshi-markets-fetched",
		zap.Int("total", len(markets)),
		zap.Int("from-series", len(markets)-eventsAdded),
		zap.Int("from-events", eventsAdded))
	MarketsFetched.Set(float64(len(markets)))

	return markets, nil
}

func (c *Client) fetchSeries(ctx context.Context, seriesTicker string) ([]types.Market, error) {
	var markets []types.Market
	cursor := ""

	for len(markets) < maxPerSeries {
		if err := c.limiter.Wait(ctx); err != nil {
			return markets, err
		}

		params := url.Values{
			"series_ticker": {seriesTicker},
			"status":        {"open"},
			"limit":         {strconv.Itoa(seriesPageLimit)},
		}
		if cursor != "" {
			params.Set("cursor", cursor)
		}

		resp, err := c.http.Get(ctx, c.baseURL+"/markets", params)
		if err != nil {
			return markets, err
		}

		var parsed marketsResponse
		err = decodeAndClose(resp, &parsed)
		if err != nil {
			return markets, err
		}

		for _, raw := range parsed.Markets {
			if m, ok := parseMarket(raw, seriesTicker); ok {
				markets = append(markets, m)
			}
		}

		if parsed.Cursor == "" || len(parsed.Markets) == 0 {
			break
		}
		cursor = parsed.Cursor

		select {
		case <-ctx.Done():
			return markets, ctx.Err()
		case <-time.After(seriesPagePause):
		}
	}

	return markets, nil
}

func (c *Client) fetchEvents(ctx context.Context) ([]rawEvent, error) {
	var events []rawEvent
	cursor := ""
	pages := 0

	for len(events) < maxEvents && pages < maxEventPages {
		if err := c.limiter.Wait(ctx); err != nil {
			return events, err
		}

		params := url.Values{
			"status":              {"open"},
			"limit":               {strconv.Itoa(eventsPageLimit)},
			"with_nested_markets": {"true"},
		}
		if cursor != "" {
			params.Set("cursor", cursor)
		}

		resp, err := c.http.Get(ctx, c.baseURL+"/events", params)
		if err != nil {
			return events, err
		}

		var parsed eventsResponse
		if err := decodeAndClose(resp, &parsed); err != nil {
			return events, err
		}

		for _, e := range parsed.Events {
			events = append(events, e)
			if len(events) >= maxEvents {
				break
			}
		}

		if parsed.Cursor == "" || len(parsed.Events) == 0 {
			break
		}
		cursor = parsed.Cursor
		pages++

		select {
		case <-ctx.Done():
			return events, ctx.Err()
		case <-time.After(eventsPagePause):
		}
	}

	return events, nil
}

func parseMarket(mkt rawMarket, eventTitle string) (types.Market, bool) {
	if mkt.Ticker == "" || mkt.Title == "" {
		return types.Market{}, false
	}

	yesPrice := mkt.YesPrice
	noPrice := mkt.NoPrice
	if yesPrice == 0 && noPrice == 0 && mkt.LastPrice > 0 {
		last := mkt.LastPrice
		if last > 1 {
			last /= 100.0
		}
		yesPrice = last
		noPrice = roundTo(1.0-yesPrice, 4)
	}
	if yesPrice == 0 && noPrice == 0 {
		return types.Market{}, false
	}
	if yesPrice > 1 {
		yesPrice /= 100.0
	}
	if noPrice > 1 {
		noPrice /= 100.0
	}

	outcome := types.Outcome{
		Name:     mkt.Title,
		YesPrice: yesPrice,
		NoPrice:  noPrice,
		TokenID:  mkt.Ticker,
	}

	var expiration *time.Time
	expStr := mkt.ExpirationTime
	if expStr == "" {
		expStr = mkt.CloseTime
	}
	if expStr != "" {
		if t, err := time.Parse(time.RFC3339, expStr); err == nil {
			expiration = &t
		}
	}

	series := mkt.SeriesTicker
	if series == "" && mkt.EventTicker != "" {
		series = strings.SplitN(mkt.EventTicker, "-", 2)[0]
	}
	if series == "" {
		series = strings.SplitN(mkt.Ticker, "-", 2)[0]
	}
	eventSlug := mkt.EventTicker
	if eventSlug == "" {
		eventSlug = mkt.Ticker
	}
	marketURL := "https://kalshi.com/markets/" + strings.ToLower(series) + "/" + strings.ToLower(eventSlug)

	title := eventTitle
	if title == "" {
		title = mkt.Subtitle
	}
	if title == "" {
		title = mkt.EventTicker
	}

	return types.Market{
		Venue:      types.VenueKalshi,
		ID:         mkt.Ticker,
		Title:      mkt.Title,
		EventTitle: title,
		Ticker:     mkt.Ticker,
		URL:        marketURL,
		Volume:     mkt.Volume,
		Expiration: expiration,
		Outcomes:   []types.Outcome{outcome},
	}, true
}

type orderbookResponse struct {
	Orderbook struct {
		Yes [][2]float64 `json:"yes"`
		No  [][2]float64 `json:"no"`
	} `json:"orderbook"`
}

// EnrichWithOrderbook fetches the live orderbook for market and populates
// its outcome's ask/bid/depth fields from the best yes/no bid levels.
func (c *Client) EnrichWithOrderbook(ctx context.Context, market *types.Market) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	resp, err := c.http.Get(ctx, c.baseURL+"/markets/"+market.Ticker+"/orderbook", nil)
	if err != nil {
		c.logger.Warn("kalshi-orderbook-fetch-failed", zap.String("ticker", market.Ticker), zap.Error(err))
		return nil
	}

	var book orderbookResponse
	if err := decodeAndClose(resp, &book); err != nil {
		c.logger.Warn("kalshi-orderbook-decode-failed", zap.String("ticker", market.Ticker), zap.Error(err))
		return nil
	}

	for i := range market.Outcomes {
		o := &market.Outcomes[i]

		if len(book.Orderbook.Yes) > 0 {
			price := book.Orderbook.Yes[0][0]
			if price > 1 {
				price /= 100.0
			}
			o.YesBid = price
			o.YesDepth = book.Orderbook.Yes[0][1]
		}

		if len(book.Orderbook.No) > 0 {
			price := book.Orderbook.No[0][0]
			if price > 1 {
				price /= 100.0
			}
			o.NoBid = price
			o.NoDepth = book.Orderbook.No[0][1]
		}

		if o.NoBid > 0 {
			o.YesAsk = roundTo(1.0-o.NoBid, 4)
		}
		if o.YesBid > 0 {
			o.NoAsk = roundTo(1.0-o.YesBid, 4)
		}
	}

	return nil
}

func decodeAndClose(resp *http.Response, v interface{}) error {
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("kalshi api error: status %d", resp.StatusCode)
	}
	return goccyjson.NewDecoder(resp.Body).Decode(v)
}

func roundTo(v float64, places int) float64 {
	mult := 1.0
	for i := 0; i < places; i++ {
		mult *= 10
	}
	r := v * mult
	if r >= 0 {
		r += 0.5
	} else {
		r -= 0.5
	}
	return float64(int64(r)) / mult
}
