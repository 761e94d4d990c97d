package router

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/hrygo/execfi/plugin/ai"
)

// LLMClient is the structured-output subset of ai.LLMService.
type LLMClient interface {
	ChatJSON(ctx context.Context, messages []ai.Message, format ai.JSONFormat) (string, error)
}

// LLMClassifier is the AI strategy: one structured-output request against
// a fixed taxonomy.
type LLMClassifier struct {
	client LLMClient
}

// NewLLMClassifier creates a new LLM classifier.
func NewLLMClassifier(client LLMClient) *LLMClassifier {
	return &LLMClassifier{client: client}
}

const classificationPrompt = `You classify messages sent to a crypto wallet assistant.
Pick exactly one type:
- analysis: analyze a wallet or portfolio
- send: send or transfer tokens to an address
- swap: swap or exchange one token for another
- signal: ask for a trading signal (buy, sell, hold) on a token
- balance: ask for a balance
- x402_payment: create or pay an x402 payment request or invoice
- token_analysis: deep market-metrics analysis of a specific token
- prediction_market: prediction markets, odds or bets (Polymarket)
- unknown: anything else

Respond with type, confidence (integer 0-100) and a short reason.`

var classificationSchema = &ai.JSONSchema{
	Type: "object",
	Properties: map[string]*ai.JSONSchema{
		"type": {
			Type:        "string",
			Enum:        intentNames(),
			Description: "The classified intent type",
		},
		"confidence": {
			Type:        "number",
			Description: "Confidence between 0 and 100",
		},
		"reason": {
			Type:        "string",
			Description: "Short justification",
		},
	},
	Required:             []string{"type", "confidence", "reason"},
	AdditionalProperties: false,
}

func intentNames() []string {
	names := make([]string, len(Intents))
	for i, intent := range Intents {
		names[i] = string(intent)
	}
	return names
}

// Classify returns an error for transport failures and for any response
// outside the contract: invalid JSON, a type outside the taxonomy or a
// confidence outside [0, 100].
func (c *LLMClassifier) Classify(ctx context.Context, input string) (Classification, error) {
	if c.client == nil {
		return Classification{}, fmt.Errorf("LLM client not configured")
	}

	content, err := c.client.ChatJSON(ctx, []ai.Message{
		ai.SystemPrompt(classificationPrompt),
		ai.UserMessage(input),
	}, ai.JSONFormat{Name: "intent_classification", Schema: classificationSchema})
	if err != nil {
		return Classification{}, fmt.Errorf("LLM classification failed: %w", err)
	}
	return parseClassification(content)
}

type llmResponse struct {
	Type       string   `json:"type"`
	Confidence *float64 `json:"confidence"`
	Reason     string   `json:"reason"`
}

func parseClassification(content string) (Classification, error) {
	var raw llmResponse
	if err := json.Unmarshal([]byte(ai.StripCodeFence(content)), &raw); err != nil {
		return Classification{}, fmt.Errorf("JSON unmarshal failed: %w", err)
	}
	intent, ok := ParseIntent(strings.ToLower(strings.TrimSpace(raw.Type)))
	if !ok {
		return Classification{}, fmt.Errorf("unknown intent type %q", raw.Type)
	}
	if raw.Confidence == nil || *raw.Confidence < 0 || *raw.Confidence > 100 || math.IsNaN(*raw.Confidence) {
		return Classification{}, fmt.Errorf("confidence out of range")
	}
	return Classification{
		Intent:     intent,
		Confidence: int(math.Round(*raw.Confidence)),
		Reason:     raw.Reason,
	}, nil
}
