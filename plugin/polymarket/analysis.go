package polymarket

import (
	"fmt"
	"math"
	"time"
)

// MinRecommendConfidence is the prediction confidence at which a bet is suggested.
const MinRecommendConfidence = 60

type Sentiment string

const (
	SentimentBullish Sentiment = "bullish"
	SentimentNeutral Sentiment = "neutral"
	SentimentBearish Sentiment = "bearish"
)

type Prediction struct {
	FavoredOutcome string    `json:"favoredOutcome"`
	OutcomeIndex   int       `json:"outcomeIndex"`
	Confidence     int       `json:"confidence"`
	Reasoning      string    `json:"reasoning"`
	Sentiment      Sentiment `json:"sentiment"`
}

// RiskAssessment scores are in [0,100], higher is riskier.
type RiskAssessment struct {
	LiquidityRisk  int `json:"liquidityRisk"`
	VolatilityRisk int `json:"volatilityRisk"`
	ResolutionRisk int `json:"resolutionRisk"`
	OverallRisk    int `json:"overallRisk"`
}

type BetRecommendation struct {
	Outcome         string `json:"outcome"`
	OutcomeIndex    int    `json:"outcomeIndex"`
	SuggestedAmount string `json:"suggestedAmount"`
	ExpectedValue   int    `json:"expectedValue"`
}

type Analysis struct {
	MarketID       string             `json:"marketId"`
	Question       string             `json:"question"`
	Outcomes       []string           `json:"outcomes"`
	CurrentPrices  []float64          `json:"currentPrices"`
	Prediction     Prediction         `json:"aiPrediction"`
	RiskAssessment RiskAssessment     `json:"riskAssessment"`
	RecommendedBet *BetRecommendation `json:"recommendedBet,omitempty"`
}

// Analyze derives a prediction and risk assessment from market prices.
// The favored outcome is the highest-priced one, first on ties.
func Analyze(m *Market, now time.Time) *Analysis {
	liquidityRisk := math.Max(0, 100-math.Min(m.Liquidity/100_000, 100))
	volatilityRisk := volatilityRisk(m.Prices)
	days := math.Max(0, math.Ceil(float64(m.EndTime-now.Unix())/86400))
	resolutionRisk := math.Min(100, days*2)
	overallRisk := (liquidityRisk + volatilityRisk + resolutionRisk) / 3

	prediction := predict(m)
	return &Analysis{
		MarketID:      m.ID,
		Question:      m.Question,
		Outcomes:      m.Outcomes,
		CurrentPrices: m.Prices,
		Prediction:    prediction,
		RiskAssessment: RiskAssessment{
			LiquidityRisk:  int(math.Round(liquidityRisk)),
			VolatilityRisk: int(math.Round(volatilityRisk)),
			ResolutionRisk: int(math.Round(resolutionRisk)),
			OverallRisk:    int(math.Round(overallRisk)),
		},
		RecommendedBet: recommend(prediction, overallRisk),
	}
}

// volatilityRisk is ten times the coefficient of variation of prices in
// percent, capped at 100. Fewer than two prices, or a zero mean, score 50.
func volatilityRisk(prices []float64) float64 {
	if len(prices) < 2 {
		return 50
	}
	var sum float64
	for _, p := range prices {
		sum += p
	}
	mean := sum / float64(len(prices))
	if mean <= 0 {
		return 50
	}
	var variance float64
	for _, p := range prices {
		variance += (p - mean) * (p - mean)
	}
	variance /= float64(len(prices))
	cv := math.Sqrt(variance) / mean * 100
	return math.Min(100, cv*10)
}

func predict(m *Market) Prediction {
	index := 0
	for i, p := range m.Prices {
		if p > m.Prices[index] {
			index = i
		}
	}
	maxPrice := m.Prices[index]
	outcome := fmt.Sprintf("Outcome %d", index)
	if index < len(m.Outcomes) {
		outcome = m.Outcomes[index]
	}
	confidence := int(math.Round(maxPrice * 100))

	sentiment := SentimentNeutral
	switch {
	case maxPrice > 0.6:
		sentiment = SentimentBullish
	case maxPrice < 0.4:
		sentiment = SentimentBearish
	}
	return Prediction{
		FavoredOutcome: outcome,
		OutcomeIndex:   index,
		Confidence:     confidence,
		Reasoning: fmt.Sprintf("Based on current market prices and trading volume, %q appears to be the favored outcome with %d%% confidence.",
			outcome, confidence),
		Sentiment: sentiment,
	}
}

func recommend(p Prediction, overallRisk float64) *BetRecommendation {
	if p.Confidence < MinRecommendConfidence {
		return nil
	}
	amount := 50
	if overallRisk < 50 {
		amount = 100
	}
	return &BetRecommendation{
		Outcome:         p.FavoredOutcome,
		OutcomeIndex:    p.OutcomeIndex,
		SuggestedAmount: fmt.Sprint(amount),
		ExpectedValue:   int(math.Round(float64(amount*p.Confidence) / 100)),
	}
}
