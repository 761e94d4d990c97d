package store

// TokenAnalysis is the latest market-metrics analysis of a token for a user.
// Rows are unique on (UserID, TokenAddress); a newer analysis replaces the
// previous one.
type TokenAnalysis struct {
	UserID           string
	TokenAddress     string
	Chain            string
	TechnicalScore   float64
	FundamentalScore float64
	SentimentScore   float64
	OverallScore     float64
	Recommendation   string
	RiskLevel        RiskLevel
	Data             string // JSON string
	UpdatedTs        int64
}

type FindTokenAnalysis struct {
	UserID       *string
	TokenAddress *string
}

// MarketAnalysis is the latest prediction-market analysis for a user,
// unique on (UserID, MarketID).
type MarketAnalysis struct {
	UserID     string
	MarketID   string
	Confidence int
	Data       string // JSON string
	UpdatedTs  int64
}

type FindMarketAnalysis struct {
	UserID   *string
	MarketID *string
}
