package gmgn

import (
	"context"
	"log/slog"
	"math"

	"github.com/hrygo/execfi/store"
)

type Recommendation string

const (
	RecommendationBuy  Recommendation = "buy"
	RecommendationHold Recommendation = "hold"
	RecommendationSell Recommendation = "sell"
)

// TokenAnalysis is the composite score of a token's metrics.
type TokenAnalysis struct {
	Mint             string          `json:"mint"`
	TechnicalScore   float64         `json:"technicalScore"`
	FundamentalScore float64         `json:"fundamentalScore"`
	SentimentScore   float64         `json:"sentimentScore"`
	OverallScore     float64         `json:"overallScore"`
	Recommendation   Recommendation  `json:"recommendation"`
	RiskLevel        store.RiskLevel `json:"riskLevel"`
}

// AnalyzeToken fetches metrics for mint and scores them.
func (c *Client) AnalyzeToken(ctx context.Context, mint string) (*TokenAnalysis, *TokenMetrics, error) {
	metrics, err := c.GetTokenMetrics(ctx, mint)
	if err != nil {
		return nil, nil, err
	}
	analysis := Analyze(metrics)
	slog.Info("token analysis completed",
		"mint", mint,
		"overall_score", analysis.OverallScore,
		"recommendation", analysis.Recommendation,
	)
	return analysis, metrics, nil
}

// Analyze scores metrics:
//
//	technical   = min(100, liquidity/1e6*100 + min(50, volume24h/1e5*100))
//	fundamental = min(100, holders/1000*100)
//	sentiment   = buyPressure - sellPressure + 50
//	overall     = .4*technical + .3*fundamental + .3*sentiment
func Analyze(m *TokenMetrics) *TokenAnalysis {
	technical := math.Min(100, m.Liquidity/1_000_000*100+math.Min(50, m.Volume24h/100_000*100))
	fundamental := math.Min(100, float64(m.Holders)/1000*100)
	sentiment := m.BuyPressure - m.SellPressure + 50
	overall := technical*0.4 + fundamental*0.3 + sentiment*0.3

	a := &TokenAnalysis{
		Mint:             m.Mint,
		TechnicalScore:   technical,
		FundamentalScore: fundamental,
		SentimentScore:   sentiment,
		OverallScore:     overall,
	}
	switch {
	case overall > 70:
		a.Recommendation = RecommendationBuy
	case overall > 40:
		a.Recommendation = RecommendationHold
	default:
		a.Recommendation = RecommendationSell
	}
	switch {
	case m.Holders > 5000 && m.Liquidity > 5_000_000:
		a.RiskLevel = store.RiskLevelLow
	case m.Holders > 1000 && m.Liquidity > 1_000_000:
		a.RiskLevel = store.RiskLevelMedium
	default:
		a.RiskLevel = store.RiskLevelHigh
	}
	return a
}

// RiskScore maps a risk level to 20, 50 or 80.
func RiskScore(level store.RiskLevel) int {
	switch level {
	case store.RiskLevelLow:
		return 20
	case store.RiskLevelMedium:
		return 50
	default:
		return 80
	}
}
