// Package polymarket is the prediction market capability client.
package polymarket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/hrygo/execfi/plugin/apiclient"
)

const (
	DefaultSearchLimit   = 10
	DefaultTrendingLimit = 10
	defaultMarketWindow  = 30 * 24 * time.Hour
)

// ErrInvalidTimeframe is returned for trending timeframes other than 1h, 24h and 7d.
var ErrInvalidTimeframe = errors.New("invalid timeframe")

// Market is a prediction market. Times are unix seconds.
type Market struct {
	ID            string    `json:"id"`
	Question      string    `json:"question"`
	Outcomes      []string  `json:"outcomes"`
	Prices        []float64 `json:"prices"`
	Volume24h     float64   `json:"volume24h"`
	Liquidity     float64   `json:"liquidity"`
	CreatedAt     int64     `json:"createdAt"`
	EndTime       int64     `json:"endTime"`
	ResolvedAt    *int64    `json:"resolvedAt,omitempty"`
	ResolvedValue *float64  `json:"resolvedValue,omitempty"`
}

// BetRequest buys shares of one outcome.
type BetRequest struct {
	MarketID     string
	OutcomeIndex int
	Amount       string
	Maker        string
}

type BetResult struct {
	OrderID        string  `json:"orderId"`
	MarketID       string  `json:"marketId"`
	Outcome        int     `json:"outcome"`
	Amount         string  `json:"amount"`
	EstimatedPrice float64 `json:"estimatedPrice"`
}

// Client talks to the Polymarket API.
type Client struct {
	api *apiclient.Client
	now func() time.Time
}

// NewClient creates a client; apiKey may be empty.
func NewClient(baseURL, apiKey string, opts ...apiclient.Option) *Client {
	return &Client{api: apiclient.New(baseURL, apiKey, opts...), now: time.Now}
}

type marketsResponse struct {
	Markets []*Market `json:"markets"`
}

// SearchMarkets returns markets matching query.
func (c *Client) SearchMarkets(ctx context.Context, query string, limit int) ([]*Market, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	slog.Info("searching prediction markets", "query", query, "limit", limit)
	var resp marketsResponse
	if err := c.api.GetJSON(ctx, "/markets", url.Values{"search": {query}, "limit": {strconv.Itoa(limit)}}, &resp); err != nil {
		return nil, fmt.Errorf("search markets: %w", err)
	}
	return c.normalizeAll(resp.Markets), nil
}

// GetMarket returns one market.
func (c *Client) GetMarket(ctx context.Context, marketID string) (*Market, error) {
	var market Market
	if err := c.api.GetJSON(ctx, "/markets/"+url.PathEscape(marketID), nil, &market); err != nil {
		return nil, fmt.Errorf("get market %s: %w", marketID, err)
	}
	return c.normalize(&market), nil
}

// ValidTimeframe reports whether tf is accepted by GetTrendingMarkets.
func ValidTimeframe(tf string) bool {
	return tf == "1h" || tf == "24h" || tf == "7d"
}

// GetTrendingMarkets returns the highest-volume markets. Empty timeframe
// means 24h.
func (c *Client) GetTrendingMarkets(ctx context.Context, timeframe string, limit int) ([]*Market, error) {
	if timeframe == "" {
		timeframe = "24h"
	}
	if !ValidTimeframe(timeframe) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTimeframe, timeframe)
	}
	if limit <= 0 {
		limit = DefaultTrendingLimit
	}
	var resp marketsResponse
	query := url.Values{"orderBy": {"volume"}, "timeframe": {timeframe}, "limit": {strconv.Itoa(limit)}}
	if err := c.api.GetJSON(ctx, "/markets", query, &resp); err != nil {
		return nil, fmt.Errorf("get trending markets: %w", err)
	}
	return c.normalizeAll(resp.Markets), nil
}

// AnalyzeMarket fetches a market and analyzes it at the current time.
func (c *Client) AnalyzeMarket(ctx context.Context, marketID string) (*Analysis, error) {
	market, err := c.GetMarket(ctx, marketID)
	if err != nil {
		return nil, err
	}
	return Analyze(market, c.now()), nil
}

// PlaceBet submits a buy order. It moves funds and must only be called for
// a confirmed bet.
func (c *Client) PlaceBet(ctx context.Context, req *BetRequest) (*BetResult, error) {
	slog.Info("placing prediction bet", "market_id", req.MarketID, "outcome", req.OutcomeIndex, "amount", req.Amount)
	body := map[string]any{
		"market_id": req.MarketID,
		"outcome":   req.OutcomeIndex,
		"amount":    req.Amount,
		"maker":     req.Maker,
		"side":      "buy",
	}
	var order struct {
		ID            string  `json:"id"`
		PricePerShare float64 `json:"pricePerShare"`
	}
	if err := c.api.PostJSON(ctx, "/orders", body, &order); err != nil {
		return nil, fmt.Errorf("place bet on %s: %w", req.MarketID, err)
	}
	return &BetResult{
		OrderID:        order.ID,
		MarketID:       req.MarketID,
		Outcome:        req.OutcomeIndex,
		Amount:         req.Amount,
		EstimatedPrice: order.PricePerShare,
	}, nil
}

func (c *Client) normalizeAll(markets []*Market) []*Market {
	out := make([]*Market, 0, len(markets))
	for _, m := range markets {
		if m != nil {
			out = append(out, c.normalize(m))
		}
	}
	return out
}

// normalize fills the defaults of a binary market open for 30 days.
func (c *Client) normalize(m *Market) *Market {
	now := c.now()
	if len(m.Outcomes) == 0 {
		m.Outcomes = []string{"Yes", "No"}
	}
	if len(m.Prices) == 0 {
		m.Prices = []float64{0.5, 0.5}
	}
	if m.CreatedAt == 0 {
		m.CreatedAt = now.Unix()
	}
	if m.EndTime == 0 {
		m.EndTime = now.Add(defaultMarketWindow).Unix()
	}
	return m
}
