package agent

import (
	"math"

	"github.com/hrygo/execfi/store"
)

// SignalMetrics are the inputs of the signal score. Changes are 24h
// percentages; the other fields are already on a 0..100 scale.
type SignalMetrics struct {
	PriceChange24h      float64 `json:"priceChange24h"`
	VolumeChange24h     float64 `json:"volumeChange24h"`
	LiquidityScore      float64 `json:"liquidityScore"`
	CommunityScore      float64 `json:"communityScore"`
	HoldersDistribution float64 `json:"holdersDistribution"`
	OnChainActivity     float64 `json:"onChainActivity"`
}

// SignalScore is the outcome of CalculateSignalScore.
type SignalScore struct {
	// Composite is the unrounded weighted score.
	Composite  float64          `json:"composite"`
	Score      int              `json:"score"`
	SignalType store.SignalType `json:"signal"`
	Confidence int              `json:"confidence"`
	RiskLevel  store.RiskLevel  `json:"riskLevel"`
}

const (
	buyThreshold  = 65
	sellThreshold = 35
)

// CalculateSignalScore weighs the metrics into a buy/hold/sell signal.
func CalculateSignalScore(m SignalMetrics) SignalScore {
	normPrice := clamp(m.PriceChange24h*5+50, 0, 100)
	normVolume := clamp(m.VolumeChange24h*4+50, 0, 100)

	composite := normPrice*0.25 +
		normVolume*0.20 +
		m.LiquidityScore*0.20 +
		m.CommunityScore*0.15 +
		m.HoldersDistribution*0.10 +
		m.OnChainActivity*0.10

	signal := store.SignalTypeHold
	switch {
	case composite > buyThreshold:
		signal = store.SignalTypeBuy
	case composite < sellThreshold:
		signal = store.SignalTypeSell
	}

	risk := store.RiskLevelMedium
	switch {
	case m.OnChainActivity < 40 || m.HoldersDistribution < 40:
		risk = store.RiskLevelHigh
	case m.LiquidityScore > 80 && m.OnChainActivity > 70:
		risk = store.RiskLevelLow
	}

	return SignalScore{
		Composite:  composite,
		Score:      int(math.Round(composite)),
		SignalType: signal,
		Confidence: int(math.Round(math.Abs(composite-50) / 50 * 100)),
		RiskLevel:  risk,
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
