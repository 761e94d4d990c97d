// Package router classifies free-text messages into the closed intent set
// that selects an executor.
package router

import "context"

// Classifier maps a message to an intent. Classify never fails: any
// internal error degrades to the unknown intent.
type Classifier interface {
	Classify(ctx context.Context, text string) Classification
}

// Intent represents the type of user intent.
type Intent string

const (
	IntentAnalysis         Intent = "analysis"
	IntentSend             Intent = "send"
	IntentSwap             Intent = "swap"
	IntentSignal           Intent = "signal"
	IntentBalance          Intent = "balance"
	IntentX402Payment      Intent = "x402_payment"
	IntentTokenAnalysis    Intent = "token_analysis"
	IntentPredictionMarket Intent = "prediction_market"
	IntentUnknown          Intent = "unknown"
)

// Intents lists every intent in taxonomy order.
var Intents = []Intent{
	IntentAnalysis,
	IntentSend,
	IntentSwap,
	IntentSignal,
	IntentBalance,
	IntentX402Payment,
	IntentTokenAnalysis,
	IntentPredictionMarket,
	IntentUnknown,
}

// ParseIntent returns the intent named s and whether it is part of the
// closed set.
func ParseIntent(s string) (Intent, bool) {
	for _, intent := range Intents {
		if string(intent) == s {
			return intent, true
		}
	}
	return IntentUnknown, false
}

// Classification is the outcome of classifying one message.
type Classification struct {
	Intent Intent `json:"type"`
	// Confidence is in [0, 100].
	Confidence int    `json:"confidence"`
	Reason     string `json:"reason"`
}

// ReasonClassificationError is the reason attached to degraded results.
const ReasonClassificationError = "classification error"

// Unclassified is the result of any classification failure.
func Unclassified() Classification {
	return Classification{Intent: IntentUnknown, Confidence: 0, Reason: ReasonClassificationError}
}

const (
	StrategyKeyword = "keyword"
	StrategyAI      = "ai"
)
