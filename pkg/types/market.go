// Package types holds the data model shared across venue clients, the
// matcher, the detector, the executor and the HTTP control plane.
package types

import (
	"time"
)

// Venue identifies which platform a Market was fetched from.
type Venue string

const (
	VenueKalshi     Venue = "kalshi"
	VenuePolymarket Venue = "polymarket"
)

// Outcome holds the pricing and depth data for one side of a binary market.
// Kalshi markets carry one Outcome; Polymarket markets carry two, the second
// supplying the NO token. The matcher and detector only reason about the
// YES/NO pair implied by the first Outcome's yes/no price and ask fields.
type Outcome struct {
	Name     string `json:"name"`
	TokenID  string `json:"token_id"`
	YesPrice float64 `json:"yes_price"`
	NoPrice  float64 `json:"no_price"`
	YesAsk   float64 `json:"yes_ask"`
	NoAsk    float64 `json:"no_ask"`
	YesBid   float64 `json:"yes_bid"`
	NoBid    float64 `json:"no_bid"`
	YesDepth float64 `json:"yes_depth"`
	NoDepth  float64 `json:"no_depth"`
}

// Market is a single binary prediction market on one venue.
type Market struct {
	Venue      Venue      `json:"venue"`
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	EventTitle string     `json:"event_title"`
	Ticker     string     `json:"ticker"`
	URL        string     `json:"url"`
	Volume     float64    `json:"volume"`
	Expiration *time.Time `json:"expiration,omitempty"`
	Outcomes   []Outcome  `json:"outcomes"`
}

// Outcome returns the market's first outcome, or nil if it has none.
// The matcher and detector price a pair from this outcome alone.
func (m *Market) Outcome() *Outcome {
	if len(m.Outcomes) == 0 {
		return nil
	}
	return &m.Outcomes[0]
}

// MatchedPair links one Kalshi market to the Polymarket market the matcher
// judged most similar, along with the score and the pair's working outcomes.
type MatchedPair struct {
	Kalshi           Market  `json:"kalshi_market"`
	Polymarket       Market  `json:"polymarket_market"`
	SimilarityScore  float64 `json:"similarity_score"`
	KalshiOutcome    *Outcome `json:"-"`
	PolymarketOutcome *Outcome `json:"-"`
}

// Direction names which venue supplies the YES leg and which supplies NO.
type Direction string

const (
	DirectionKalshiYesPolyNo Direction = "YES on Kalshi + NO on Polymarket"
	DirectionPolyYesKalshiNo Direction = "YES on Polymarket + NO on Kalshi"
)

// Opportunity is a detected cross-venue arbitrage: buying the YES leg on one
// venue and the NO leg on the other for a combined cost below $1.00.
type Opportunity struct {
	ID              string      `json:"id"`
	Pair            MatchedPair `json:"-"`
	Direction       Direction   `json:"direction"`
	Cost            float64     `json:"cost"`
	Profit          float64     `json:"profit"`
	ROI             float64     `json:"roi"`
	MaxSize         float64     `json:"max_size"`
	Timestamp       time.Time   `json:"timestamp"`
	KalshiPrice     float64     `json:"kalshi_price"`
	PolymarketPrice float64     `json:"polymarket_price"`
}

// ToDict mirrors the field set and rounding the original Python
// ArbitrageOpportunity.to_dict() exposes over the control-plane API.
func (o *Opportunity) ToDict() map[string]interface{} {
	km := o.Pair.Kalshi
	pm := o.Pair.Polymarket

	var expiry *time.Time
	if km.Expiration != nil {
		expiry = km.Expiration
	} else {
		expiry = pm.Expiration
	}

	var expiryStr interface{}
	if expiry != nil {
		expiryStr = expiry.Format(time.RFC3339)
	}

	return map[string]interface{}{
		"id":                o.ID,
		"kalshi_title":      km.Title,
		"polymarket_title":  pm.Title,
		"kalshi_ticker":     km.Ticker,
		"similarity":        round(o.Pair.SimilarityScore, 1),
		"direction":         string(o.Direction),
		"kalshi_price":      round(o.KalshiPrice, 4),
		"polymarket_price":  round(o.PolymarketPrice, 4),
		"cost":              round(o.Cost, 4),
		"profit":            round(o.Profit, 4),
		"roi":               round(o.ROI, 2),
		"max_size":          round(o.MaxSize, 2),
		"timestamp":         o.Timestamp.Format(time.RFC3339),
		"expiry":            expiryStr,
		"kalshi_url":        km.URL,
		"polymarket_url":    pm.URL,
	}
}

// ExecutionRecord is an attempted (successful or blocked) execution of an
// Opportunity, kept in the executor's in-memory log.
type ExecutionRecord struct {
	Opportunity Opportunity `json:"opportunity"`
	ExecutedAt  time.Time   `json:"executed_at"`
	Success     bool        `json:"success"`
	Error       string      `json:"error,omitempty"`
	PnL         float64     `json:"pnl"`
	PartialFill bool        `json:"partial_fill"`
}
