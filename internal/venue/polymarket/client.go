// Package polymarket fetches markets and orderbook data from Polymarket's
// Gamma (discovery) and CLOB (orderbook) APIs.
package polymarket

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	goccyjson "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/mselser95/arb-scanner/internal/httpretry"
	"github.com/mselser95/arb-scanner/internal/ratelimit"
	"github.com/mselser95/arb-scanner/pkg/types"
)

const (
	eventsPageLimit  = 100
	eventsPagePause  = 100 * time.Millisecond
	orderbookPause   = 50 * time.Millisecond
)

// Client fetches active markets from the Gamma API and orderbook depth from
// the CLOB API.
type Client struct {
	gammaURL string
	clobURL  string
	http     *httpretry.Client
	limiter  *ratelimit.TokenBucket
	logger   *zap.Logger
}

// New creates a Polymarket client.
func New(gammaURL, clobURL string, limiter *ratelimit.TokenBucket, logger *zap.Logger) *Client {
	return &Client{
		gammaURL: strings.TrimRight(gammaURL, "/"),
		clobURL:  strings.TrimRight(clobURL, "/"),
		http:     httpretry.New(20*time.Second, logger),
		limiter:  limiter,
		logger:   logger,
	}
}

type rawEvent struct {
	Title   string      `json:"title"`
	Slug    string      `json:"slug"`
	Markets []rawMarket `json:"markets"`
}

type rawMarket struct {
	ID              string      `json:"id"`
	Question        string      `json:"question"`
	Title           string      `json:"title"`
	ConditionID     string      `json:"conditionId"`
	VolumeRaw       interface{} `json:"volume"`
	Outcomes        interface{} `json:"outcomes"`
	OutcomePrices   interface{} `json:"outcomePrices"`
	ClobTokenIDs    interface{} `json:"clobTokenIds"`
	EndDateISO      string      `json:"end_date_iso"`
	EndDate         string      `json:"endDate"`
	EndDateIsoCamel string      `json:"endDateIso"`
	CloseTime       string      `json:"close_time"`
}

// FetchActiveMarkets fetches active Polymarket events from the Gamma API,
// ordered by descending 24h volume, flattened into Markets and capped at
// maxMarkets.
func (c *Client) FetchActiveMarkets(ctx context.Context, maxMarkets int) ([]types.Market, error) {
	var markets []types.Market
	offset := 0

	for len(markets) < maxMarkets {
		if err := c.limiter.Wait(ctx); err != nil {
			return markets, err
		}

		params := url.Values{
			"active":    {"true"},
			"closed":    {"false"},
			"archived":  {"false"},
			"limit":     {strconv.Itoa(eventsPageLimit)},
			"offset":    {strconv.Itoa(offset)},
			"order":     {"volume24hr"},
			"ascending": {"false"},
		}

		resp, err := c.http.Get(ctx, c.gammaURL+"/events", params)
		if err != nil {
			c.logger.Warn("polymarket-events-fetch-failed", zap.Int("offset", offset), zap.Error(err))
			FetchErrorsTotal.Inc()
			break
		}

		var events []rawEvent
		if err := decodeAndClose(resp, &events); err != nil {
			c.logger.Warn("polymarket-events-decode-failed", zap.Int("offset", offset), zap.Error(err))
			FetchErrorsTotal.Inc()
			break
		}

		if len(events) == 0 {
			break
		}

		for _, event := range events {
			for _, mkt := range event.Markets {
				m, ok := parseMarket(mkt, event)
				if !ok {
					continue
				}
				markets = append(markets, m)
				if len(markets) >= maxMarkets {
					break
				}
			}
			if len(markets) >= maxMarkets {
				break
			}
		}

		if len(events) < eventsPageLimit {
			break
		}
		offset += eventsPageLimit

		select {
		case <-ctx.Done():
			return markets, ctx.Err()
		case <-time.After(eventsPagePause):
		}
	}

	c.logger.Info("polymarket-markets-fetched", zap.Int("total", len(markets)), zap.Int("cap", maxMarkets))
	MarketsFetched.Set(float64(len(markets)))

	return markets, nil
}

// parseMarket builds a types.Market from a Gamma rawMarket, rejecting any
// market that isn't a binary (exactly two outcomes) market with at least one
// parseable outcome price. The second return value is false for a rejected
// market, in which case the Market is not meaningful and must not be kept.
func parseMarket(mkt rawMarket, event rawEvent) (types.Market, bool) {
	title := mkt.Question
	if title == "" {
		title = mkt.Title
	}

	outcomes := parseOutcomes(mkt)
	if len(outcomes) != 2 || !hasParseablePrice(outcomes) {
		return types.Market{}, false
	}

	return types.Market{
		Venue:      types.VenuePolymarket,
		ID:         mkt.ID,
		Title:      title,
		EventTitle: event.Title,
		Ticker:     mkt.ConditionID,
		URL:        "https://polymarket.com/event/" + event.Slug,
		Volume:     toFloat(mkt.VolumeRaw),
		Expiration: parseExpiration(mkt),
		Outcomes:   outcomes,
	}, true
}

// hasParseablePrice reports whether at least one outcome carries a nonzero
// YesPrice. A market whose every outcome price came back zero or unparseable
// has nothing for the matcher or detector to work with.
func hasParseablePrice(outcomes []types.Outcome) bool {
	for _, o := range outcomes {
		if o.YesPrice != 0 {
			return true
		}
	}
	return false
}

func parseExpiration(mkt rawMarket) *time.Time {
	for _, raw := range []string{mkt.EndDateISO, mkt.EndDate, mkt.EndDateIsoCamel, mkt.CloseTime} {
		if raw == "" {
			continue
		}
		normalized := strings.Replace(raw, "Z", "+00:00", 1)
		if t, err := time.Parse(time.RFC3339, normalized); err == nil {
			return &t
		}
		if t, err := time.Parse("2006-01-02T15:04:05Z07:00", raw); err == nil {
			return &t
		}
	}
	return nil
}

// parseOutcomes decodes outcomes/outcomePrices/clobTokenIds, each of which
// the Gamma API may return either as a JSON array or as a JSON-encoded
// string containing one, depending on the endpoint version.
func parseOutcomes(mkt rawMarket) []types.Outcome {
	names := decodeStringArray(mkt.Outcomes)
	prices := decodeStringArray(mkt.OutcomePrices)
	tokenIDs := decodeStringArray(mkt.ClobTokenIDs)

	outcomes := make([]types.Outcome, 0, len(names))
	for i, name := range names {
		var price float64
		if i < len(prices) {
			price, _ = strconv.ParseFloat(prices[i], 64)
		}
		tokenID := ""
		if i < len(tokenIDs) {
			tokenID = tokenIDs[i]
		}

		noPrice := 0.0
		if price != 0 {
			noPrice = roundTo(1.0-price, 4)
		}

		outcomes = append(outcomes, types.Outcome{
			Name:     name,
			YesPrice: price,
			NoPrice:  noPrice,
			TokenID:  tokenID,
		})
	}
	return outcomes
}

// decodeStringArray accepts a value that is either a []interface{} (already
// decoded JSON array) or a string holding a JSON-encoded array, and returns
// its elements as strings. Any decode failure yields an empty slice rather
// than an error, matching the tolerant parsing the original client used.
func decodeStringArray(v interface{}) []string {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		var items []interface{}
		if err := goccyjson.Unmarshal([]byte(val), &items); err != nil {
			return nil
		}
		return toStringSlice(items)
	case []interface{}:
		return toStringSlice(val)
	default:
		return nil
	}
}

func toStringSlice(items []interface{}) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case string:
			out = append(out, v)
		case float64:
			out = append(out, strconv.FormatFloat(v, 'f', -1, 64))
		default:
			out = append(out, "")
		}
	}
	return out
}

func toFloat(v interface{}) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case string:
		f, _ := strconv.ParseFloat(val, 64)
		return f
	default:
		return 0
	}
}

type bookLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

type bookResponse struct {
	Bids []bookLevel `json:"bids"`
	Asks []bookLevel `json:"asks"`
}

// EnrichWithOrderbook fetches the CLOB orderbook for every outcome token in
// market and populates ask/bid/depth fields from the best levels. Outcomes
// without a token id (parseOutcomes leaves it empty when clobTokenIds is
// missing or shorter than the outcome list) are skipped. A 404 or fetch failure leaves that outcome's fields at zero
// rather than erroring out the whole call.
func (c *Client) EnrichWithOrderbook(ctx context.Context, market *types.Market) error {
	for i := range market.Outcomes {
		o := &market.Outcomes[i]
		if o.TokenID == "" {
			continue
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		book, err := c.fetchBook(ctx, o.TokenID)
		if err != nil {
			c.logger.Debug("polymarket-orderbook-unavailable", zap.String("token", truncate(o.TokenID, 20)), zap.Error(err))
			continue
		}

		if len(book.Asks) > 0 {
			best := bestByMinPrice(book.Asks)
			o.YesAsk = best.price
			o.YesDepth = best.size
		}
		if len(book.Bids) > 0 {
			best := bestByMaxPrice(book.Bids)
			o.YesBid = best.price
		}

		if o.YesBid > 0 {
			o.NoAsk = roundTo(1.0-o.YesBid, 4)
		}
		if o.YesAsk > 0 {
			o.NoBid = roundTo(1.0-o.YesAsk, 4)
		}
		o.NoDepth = o.YesDepth

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(orderbookPause):
		}
	}

	return nil
}

func (c *Client) fetchBook(ctx context.Context, tokenID string) (*bookResponse, error) {
	resp, err := c.http.Get(ctx, c.clobURL+"/book", url.Values{"token_id": {tokenID}})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == 404 {
		resp.Body.Close()
		return &bookResponse{}, nil
	}

	var book bookResponse
	if err := decodeAndClose(resp, &book); err != nil {
		return nil, err
	}
	return &book, nil
}

type level struct {
	price, size float64
}

func bestByMinPrice(levels []bookLevel) level {
	best := level{price: 999}
	for _, l := range levels {
		p, _ := strconv.ParseFloat(l.Price, 64)
		if p < best.price {
			best.price = p
			best.size, _ = strconv.ParseFloat(l.Size, 64)
		}
	}
	if best.price == 999 {
		best.price = 0
	}
	return best
}

func bestByMaxPrice(levels []bookLevel) level {
	var best level
	for _, l := range levels {
		p, _ := strconv.ParseFloat(l.Price, 64)
		if p > best.price {
			best.price = p
			best.size, _ = strconv.ParseFloat(l.Size, 64)
		}
	}
	return best
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func decodeAndClose(resp *http.Response, v interface{}) error {
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("polymarket api error: status %d", resp.StatusCode)
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
