package router

import (
	"context"
	"fmt"
	"strings"
)

type rule struct {
	intent   Intent
	keywords []string
}

// RuleMatcher is the keyword strategy: an ordered rule list where the first
// rule with a keyword contained in the lower-cased message wins. More
// specific intents sit above the generic ones they overlap with ("bet on"
// before "buy", "analyze token" before "analyze").
type RuleMatcher struct {
	rules []rule
}

// NewRuleMatcher creates a rule matcher with the default rule order.
func NewRuleMatcher() *RuleMatcher {
	return &RuleMatcher{
		rules: []rule{
			{intent: IntentBalance, keywords: []string{"balance", "how much"}},
			{intent: IntentX402Payment, keywords: []string{"x402", "payment request", "invoice"}},
			{intent: IntentPredictionMarket, keywords: []string{"polymarket", "prediction market", "odds", "bet on"}},
			{intent: IntentTokenAnalysis, keywords: []string{"gmgn", "token analysis", "analyze token"}},
			{intent: IntentSwap, keywords: []string{"swap", "exchange", "trade", "convert"}},
			{intent: IntentSend, keywords: []string{"send", "transfer", "pay", "mint"}},
			{intent: IntentSignal, keywords: []string{"signal", "buy", "sell", "hold", "analyze"}},
			{intent: IntentAnalysis, keywords: []string{"analyze", "analysis", "portfolio", "wallet"}},
		},
	}
}

// Match returns the classification and whether any rule matched.
func (m *RuleMatcher) Match(input string) (Classification, bool) {
	lower := strings.ToLower(input)
	for _, r := range m.rules {
		for _, keyword := range r.keywords {
			if strings.Contains(lower, keyword) {
				return Classification{
					Intent:     r.intent,
					Confidence: 100,
					Reason:     fmt.Sprintf("matched keyword %q", keyword),
				}, true
			}
		}
	}
	return Classification{Intent: IntentUnknown, Confidence: 0, Reason: "no keyword matched"}, false
}

// Classify implements Classifier.
func (m *RuleMatcher) Classify(_ context.Context, text string) Classification {
	c, _ := m.Match(text)
	return c
}
