// Package gmgn is the token metrics capability client: real-time metrics,
// trending tokens and the composite token analysis.
package gmgn

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/hrygo/execfi/plugin/apiclient"
	"github.com/hrygo/execfi/plugin/blockchain"
	"github.com/hrygo/execfi/store/cache"
)

// DefaultTrendingLimit is the number of trending tokens returned when the
// caller does not ask for a specific count.
const DefaultTrendingLimit = 10

// ErrInvalidTimeframe is returned for trending timeframes other than 1h, 4h and 24h.
var ErrInvalidTimeframe = errors.New("invalid timeframe")

type Sentiment string

const (
	SentimentBullish Sentiment = "bullish"
	SentimentNeutral Sentiment = "neutral"
	SentimentBearish Sentiment = "bearish"
)

type Momentum string

const (
	MomentumStrong   Momentum = "strong"
	MomentumModerate Momentum = "moderate"
	MomentumWeak     Momentum = "weak"
)

// TokenMetrics is the 24h market activity of a token.
type TokenMetrics struct {
	Mint            string    `json:"mint"`
	Symbol          string    `json:"symbol"`
	Name            string    `json:"name"`
	PriceUSD        float64   `json:"priceUsd"`
	PriceChange24h  float64   `json:"priceChange24h"`
	MarketCapUSD    float64   `json:"marketCapUsd"`
	Liquidity       float64   `json:"liquidity"`
	Volume24h       float64   `json:"volume24h"`
	VolumeChange24h float64   `json:"volumeChange24h"`
	Buys24h         int64     `json:"buys24h"`
	Sells24h        int64     `json:"sells24h"`
	Holders         int64     `json:"holders"`
	BuyPressure     float64   `json:"buyPressure"`
	SellPressure    float64   `json:"sellPressure"`
	Sentiment       Sentiment `json:"sentiment"`
}

type TrendingToken struct {
	Mint      string   `json:"mint"`
	Symbol    string   `json:"symbol"`
	Name      string   `json:"name"`
	PriceUSD  float64  `json:"priceUsd"`
	Change24h float64  `json:"change24h"`
	Volume24h float64  `json:"volume24h"`
	Trend     float64  `json:"trend"`
	Momentum  Momentum `json:"momentum"`
}

// Client talks to the GMGN API.
type Client struct {
	api   *apiclient.Client
	cache *cache.TieredCache
}

// NewClient creates a client. tiered may be nil.
func NewClient(baseURL, apiKey string, tiered *cache.TieredCache, opts ...apiclient.Option) *Client {
	return &Client{api: apiclient.New(baseURL, apiKey, opts...), cache: tiered}
}

type metricsResponse struct {
	Symbol          string  `json:"symbol"`
	Name            string  `json:"name"`
	PriceUSD        float64 `json:"price_usd"`
	PriceChange24h  float64 `json:"price_change_24h"`
	MarketCapUSD    float64 `json:"market_cap_usd"`
	Liquidity       float64 `json:"liquidity"`
	Volume24h       float64 `json:"volume_24h"`
	VolumeChange24h float64 `json:"volume_change_24h"`
	Buys24h         int64   `json:"buys_24h"`
	Sells24h        int64   `json:"sells_24h"`
	Holders         int64   `json:"holders"`
}

// GetTokenMetrics returns metrics for mint, cached for cache.TokenDataTTL.
func (c *Client) GetTokenMetrics(ctx context.Context, mint string) (*TokenMetrics, error) {
	return cache.Fetch(ctx, c.cache, cache.Key("gmgn-metrics", mint), cache.TokenDataTTL, func(ctx context.Context) (*TokenMetrics, error) {
		var resp metricsResponse
		if err := c.api.GetJSON(ctx, "/v1/tokens/"+url.PathEscape(mint)+"/metrics", nil, &resp); err != nil {
			return nil, fmt.Errorf("get token metrics %s: %w", mint, err)
		}
		return newTokenMetrics(mint, &resp), nil
	})
}

func newTokenMetrics(mint string, resp *metricsResponse) *TokenMetrics {
	m := &TokenMetrics{
		Mint:            mint,
		Symbol:          resp.Symbol,
		Name:            resp.Name,
		PriceUSD:        resp.PriceUSD,
		PriceChange24h:  resp.PriceChange24h,
		MarketCapUSD:    resp.MarketCapUSD,
		Liquidity:       resp.Liquidity,
		Volume24h:       resp.Volume24h,
		VolumeChange24h: resp.VolumeChange24h,
		Buys24h:         resp.Buys24h,
		Sells24h:        resp.Sells24h,
		Holders:         resp.Holders,
		Sentiment:       SentimentNeutral,
	}
	if trades := resp.Buys24h + resp.Sells24h; trades > 0 {
		m.BuyPressure = float64(resp.Buys24h) / float64(trades) * 100
		m.SellPressure = float64(resp.Sells24h) / float64(trades) * 100
	}
	switch {
	case float64(resp.Buys24h) > float64(resp.Sells24h)*1.5:
		m.Sentiment = SentimentBullish
	case float64(resp.Sells24h) > float64(resp.Buys24h)*1.5:
		m.Sentiment = SentimentBearish
	}
	return m
}

// ValidTimeframe reports whether tf is accepted by GetTrendingTokens.
func ValidTimeframe(tf string) bool {
	return tf == "1h" || tf == "4h" || tf == "24h"
}

// GetTrendingTokens returns trending Solana tokens. Zero limit means
// DefaultTrendingLimit; empty timeframe means 1h.
func (c *Client) GetTrendingTokens(ctx context.Context, limit int, timeframe string) ([]*TrendingToken, error) {
	if limit <= 0 {
		limit = DefaultTrendingLimit
	}
	if timeframe == "" {
		timeframe = "1h"
	}
	if !ValidTimeframe(timeframe) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTimeframe, timeframe)
	}

	var resp struct {
		Tokens []struct {
			Mint       string  `json:"mint"`
			Symbol     string  `json:"symbol"`
			Name       string  `json:"name"`
			PriceUSD   float64 `json:"price_usd"`
			Change24h  float64 `json:"change_24h"`
			Volume24h  float64 `json:"volume_24h"`
			TrendScore float64 `json:"trend_score"`
		} `json:"tokens"`
	}
	query := url.Values{
		"limit":     {strconv.Itoa(limit)},
		"timeframe": {timeframe},
		"chain":     {"solana"},
	}
	if err := c.api.GetJSON(ctx, "/v1/tokens/trending", query, &resp); err != nil {
		return nil, fmt.Errorf("get trending tokens: %w", err)
	}

	tokens := make([]*TrendingToken, 0, len(resp.Tokens))
	for _, t := range resp.Tokens {
		tokens = append(tokens, &TrendingToken{
			Mint:      t.Mint,
			Symbol:    t.Symbol,
			Name:      t.Name,
			PriceUSD:  t.PriceUSD,
			Change24h: t.Change24h,
			Volume24h: t.Volume24h,
			Trend:     t.TrendScore,
			Momentum:  momentumOf(t.TrendScore),
		})
	}
	return tokens, nil
}

func momentumOf(score float64) Momentum {
	switch {
	case score > 0.7:
		return MomentumStrong
	case score > 0.4:
		return MomentumModerate
	default:
		return MomentumWeak
	}
}

// TokenData implements blockchain.PriceSource. GMGN only covers Solana.
func (c *Client) TokenData(ctx context.Context, chain, address string) (*blockchain.TokenData, error) {
	if chain != "solana" {
		return nil, fmt.Errorf("%w: %s", blockchain.ErrUnsupportedChain, chain)
	}
	var resp struct {
		Address        string  `json:"address"`
		Symbol         string  `json:"symbol"`
		Name           string  `json:"name"`
		PriceUSD       float64 `json:"price_usd"`
		PriceChange24h float64 `json:"price_change_24h"`
		MarketCapUSD   float64 `json:"market_cap_usd"`
		Volume24h      float64 `json:"volume_24h"`
	}
	if err := c.api.GetJSON(ctx, "/v1/tokens/"+url.PathEscape(address), nil, &resp); err != nil {
		return nil, fmt.Errorf("get token %s: %w", address, err)
	}
	if resp.Address == "" {
		resp.Address = address
	}
	return &blockchain.TokenData{
		Address:        resp.Address,
		Symbol:         resp.Symbol,
		Name:           resp.Name,
		Price:          resp.PriceUSD,
		PriceChange24h: resp.PriceChange24h,
		MarketCap:      resp.MarketCapUSD,
		Volume24h:      resp.Volume24h,
	}, nil
}
