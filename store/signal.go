package store

type SignalType string

const (
	SignalTypeBuy  SignalType = "buy"
	SignalTypeSell SignalType = "sell"
	SignalTypeHold SignalType = "hold"
)

type RiskLevel string

const (
	RiskLevelLow    RiskLevel = "low"
	RiskLevelMedium RiskLevel = "medium"
	RiskLevelHigh   RiskLevel = "high"
)

// Signal is append-only. It is owned by the emitting user but readable
// across users for trending queries.
type Signal struct {
	ID            string
	UserID        string
	TokenAddress  string
	TokenSymbol   string
	Chain         string
	SignalType    SignalType
	Confidence    int
	RiskLevel     RiskLevel
	Reasoning     string
	PriceAtSignal float64
	Volume24h     float64
	CreatedTs     int64
}

type FindSignal struct {
	UserID *string
	Chain  *string
	// CreatedAfter filters on CreatedTs (unix milliseconds), exclusive.
	CreatedAfter *int64
	Limit        *int
}
