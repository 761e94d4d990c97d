package test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hrygo/execfi/store"
)

func TestSignalStore(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	for i, chain := range []string{"solana", "solana", "ethereum"} {
		_, err := ts.CreateSignal(ctx, &store.Signal{
			UserID:       "wallet-a",
			TokenAddress: "token",
			TokenSymbol:  "TKN",
			Chain:        chain,
			SignalType:   store.SignalTypeBuy,
			Confidence:   85,
			RiskLevel:    store.RiskLevelLow,
			CreatedTs:    int64(100 * (i + 1)),
		})
		require.NoError(t, err)
	}

	chain := "solana"
	list, err := ts.ListSignals(ctx, &store.FindSignal{Chain: &chain})
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, int64(200), list[0].CreatedTs)
	require.Equal(t, store.SignalTypeBuy, list[0].SignalType)

	after := int64(150)
	list, err = ts.ListSignals(ctx, &store.FindSignal{CreatedAfter: &after})
	require.NoError(t, err)
	require.Len(t, list, 2)
}

func TestAnalysisStore_Upsert(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	for _, score := range []float64{40, 72.5} {
		_, err := ts.UpsertTokenAnalysis(ctx, &store.TokenAnalysis{
			UserID:         "wallet-a",
			TokenAddress:   "token",
			Chain:          "solana",
			OverallScore:   score,
			Recommendation: "hold",
			RiskLevel:      store.RiskLevelMedium,
			Data:           "{}",
		})
		require.NoError(t, err)
	}
	userID := "wallet-a"
	analyses, err := ts.ListTokenAnalyses(ctx, &store.FindTokenAnalysis{UserID: &userID})
	require.NoError(t, err)
	require.Len(t, analyses, 1)
	require.Equal(t, 72.5, analyses[0].OverallScore)

	_, err = ts.UpsertMarketAnalysis(ctx, &store.MarketAnalysis{UserID: userID, MarketID: "m1", Confidence: 55, Data: "{}"})
	require.NoError(t, err)
	_, err = ts.UpsertMarketAnalysis(ctx, &store.MarketAnalysis{UserID: userID, MarketID: "m1", Confidence: 70, Data: "{}"})
	require.NoError(t, err)
	markets, err := ts.ListMarketAnalyses(ctx, &store.FindMarketAnalysis{UserID: &userID})
	require.NoError(t, err)
	require.Len(t, markets, 1)
	require.Equal(t, 70, markets[0].Confidence)
}

func TestAuditLogStore(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	_, err := ts.CreateAuditLog(ctx, &store.AuditLog{UserID: "wallet-a", Action: "action.confirm", ResourceType: "action", ResourceID: "a1"})
	require.NoError(t, err)
	action := "action.confirm"
	logs, err := ts.ListAuditLogs(ctx, &store.FindAuditLog{Action: &action})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.Equal(t, "{}", logs[0].Details)
}
