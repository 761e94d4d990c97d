package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hrygo/execfi/store"
)

func TestCalculateSignalScore(t *testing.T) {
	tests := []struct {
		name      string
		metrics   SignalMetrics
		composite float64
		want      SignalScore
	}{
		{
			// Price and volume both saturate at 100.
			name: "strong token",
			metrics: SignalMetrics{
				PriceChange24h: 10, VolumeChange24h: 20,
				LiquidityScore: 90, CommunityScore: 80, HoldersDistribution: 90, OnChainActivity: 85,
			},
			composite: 92.5,
			want:      SignalScore{Score: 93, SignalType: store.SignalTypeBuy, Confidence: 85, RiskLevel: store.RiskLevelLow},
		},
		{
			name:      "flat token",
			metrics:   SignalMetrics{LiquidityScore: 50, CommunityScore: 50, HoldersDistribution: 50, OnChainActivity: 50},
			composite: 50,
			want:      SignalScore{Score: 50, SignalType: store.SignalTypeHold, Confidence: 0, RiskLevel: store.RiskLevelMedium},
		},
		{
			name: "collapsing token",
			metrics: SignalMetrics{
				PriceChange24h: -20, VolumeChange24h: -30,
				LiquidityScore: 10, CommunityScore: 20, HoldersDistribution: 30, OnChainActivity: 20,
			},
			// 0 + 0 + 2 + 3 + 3 + 2
			composite: 10,
			want:      SignalScore{Score: 10, SignalType: store.SignalTypeSell, Confidence: 80, RiskLevel: store.RiskLevelHigh},
		},
		{
			name: "liquid but quiet",
			metrics: SignalMetrics{
				PriceChange24h: 3, VolumeChange24h: 5,
				LiquidityScore: 95, CommunityScore: 62, HoldersDistribution: 70, OnChainActivity: 70,
			},
			// 16.25 + 14 + 19 + 9.3 + 7 + 7
			composite: 72.55,
			want:      SignalScore{Score: 73, SignalType: store.SignalTypeBuy, Confidence: 45, RiskLevel: store.RiskLevelMedium},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateSignalScore(tt.metrics)
			assert.InDelta(t, tt.composite, got.Composite, 1e-9)
			got.Composite = 0
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCalculateSignalScore_Thresholds(t *testing.T) {
	// Exactly 65 and 35 stay on hold.
	upper := CalculateSignalScore(SignalMetrics{PriceChange24h: 8, VolumeChange24h: 6.25, LiquidityScore: 50, CommunityScore: 50, HoldersDistribution: 50, OnChainActivity: 50})
	assert.InDelta(t, 65, upper.Composite, 1e-9)
	assert.Equal(t, store.SignalTypeHold, upper.SignalType)

	lower := CalculateSignalScore(SignalMetrics{PriceChange24h: -8, VolumeChange24h: -6.25, LiquidityScore: 50, CommunityScore: 50, HoldersDistribution: 50, OnChainActivity: 50})
	assert.InDelta(t, 35, lower.Composite, 1e-9)
	assert.Equal(t, store.SignalTypeHold, lower.SignalType)
}
