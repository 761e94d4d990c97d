package gmgn

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/execfi/plugin/blockchain"
	"github.com/hrygo/execfi/store"
	"github.com/hrygo/execfi/store/cache"
)

func newServer(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/tokens/trending", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "solana", r.URL.Query().Get("chain"))
		assert.Equal(t, "4h", r.URL.Query().Get("timeframe"))
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		json.NewEncoder(w).Encode(map[string]any{"tokens": []map[string]any{
			{"mint": "m1", "symbol": "AAA", "trend_score": 0.9},
			{"mint": "m2", "symbol": "BBB", "trend_score": 0.5},
			{"mint": "m3", "symbol": "CCC", "trend_score": 0.4},
		}})
	})
	mux.HandleFunc("GET /v1/tokens/{mint}/metrics", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]any{
			"symbol":     "BONK",
			"name":       "Bonk",
			"price_usd":  0.00002,
			"liquidity":  6_000_000,
			"volume_24h": 30_000,
			"buys_24h":   300,
			"sells_24h":  100,
			"holders":    8000,
		})
	})
	mux.HandleFunc("GET /v1/tokens/{mint}", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"symbol":           "SOL",
			"price_usd":        180.5,
			"price_change_24h": 3.2,
			"market_cap_usd":   8e10,
			"volume_24h":       2e9,
		})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestClient_GetTokenMetrics(t *testing.T) {
	var calls atomic.Int32
	server := newServer(t, &calls)
	tiered := cache.NewTieredCache(cache.Config{DefaultTTL: time.Minute, CleanupInterval: time.Minute, MaxItems: 10}, nil)
	defer tiered.Close()
	client := NewClient(server.URL, "key", tiered)

	m, err := client.GetTokenMetrics(context.Background(), "bonkmint")
	require.NoError(t, err)
	assert.Equal(t, "bonkmint", m.Mint)
	assert.Equal(t, "BONK", m.Symbol)
	assert.Equal(t, 75.0, m.BuyPressure)
	assert.Equal(t, 25.0, m.SellPressure)
	assert.Equal(t, SentimentBullish, m.Sentiment)

	_, err = client.GetTokenMetrics(context.Background(), "bonkmint")
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_AnalyzeToken(t *testing.T) {
	var calls atomic.Int32
	client := NewClient(newServer(t, &calls).URL, "key", nil)

	analysis, metrics, err := client.AnalyzeToken(context.Background(), "bonkmint")
	require.NoError(t, err)
	assert.Equal(t, int64(8000), metrics.Holders)
	// technical min(100, 600+30), fundamental 100, sentiment 75-25+50
	assert.Equal(t, 100.0, analysis.TechnicalScore)
	assert.Equal(t, 100.0, analysis.FundamentalScore)
	assert.Equal(t, 100.0, analysis.SentimentScore)
	assert.InDelta(t, 100.0, analysis.OverallScore, 1e-9)
	assert.Equal(t, RecommendationBuy, analysis.Recommendation)
	assert.Equal(t, store.RiskLevelLow, analysis.RiskLevel)
}

func TestClient_GetTrendingTokens(t *testing.T) {
	var calls atomic.Int32
	client := NewClient(newServer(t, &calls).URL, "key", nil)

	tokens, err := client.GetTrendingTokens(context.Background(), 0, "4h")
	require.NoError(t, err)
	require.Len(t, tokens, 3)
	assert.Equal(t, MomentumStrong, tokens[0].Momentum)
	assert.Equal(t, MomentumModerate, tokens[1].Momentum)
	assert.Equal(t, MomentumWeak, tokens[2].Momentum)

	_, err = client.GetTrendingTokens(context.Background(), 5, "7d")
	assert.ErrorIs(t, err, ErrInvalidTimeframe)
}

func TestClient_TokenData(t *testing.T) {
	var calls atomic.Int32
	client := NewClient(newServer(t, &calls).URL, "key", nil)

	var source blockchain.PriceSource = client
	data, err := source.TokenData(context.Background(), "solana", "So11111111111111111111111111111111111111112")
	require.NoError(t, err)
	assert.Equal(t, "So11111111111111111111111111111111111111112", data.Address)
	assert.Equal(t, 180.5, data.Price)
	assert.Equal(t, 3.2, data.PriceChange24h)

	_, err = source.TokenData(context.Background(), "ethereum", "0x0")
	assert.ErrorIs(t, err, blockchain.ErrUnsupportedChain)
}
