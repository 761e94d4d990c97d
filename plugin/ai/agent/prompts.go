package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hrygo/execfi/plugin/ai"
)

const basePrompt = `You are ExecFi, an AI assistant specialized in cryptocurrency and blockchain transactions.
You have deep knowledge of wallet management, token swaps, transaction simulation, trading signals and risk assessment.
You are helpful, accurate, and prioritize user security. Never claim a transaction was executed: the user confirms every transaction separately.
Answer only from the data provided. Keep responses concise and actionable.`

var kindPrompts = map[string]string{
	TagAnalyze: `You are analyzing a cryptocurrency wallet.
Summarize the balances per token, the total value, the transaction history size and the wallet risk score.
Provide clear, structured analysis with actionable insights.`,

	TagSend: `You are helping the user send tokens.
Restate the token, the amount, the destination address and the estimated network fee.
Ask the user to confirm before anything is sent.`,

	TagSwap: `You are helping the user swap tokens.
Restate the input and output tokens, the expected output amount, price impact, slippage and fees.
Ask the user to confirm the quote before anything is executed.`,

	TagSignal: `You are explaining a cryptocurrency trading signal.
State the signal (BUY, SELL or HOLD), the confidence score (0-100), the risk level and the reasoning behind it.`,

	TagGMGN: `You are explaining a token analysis.
Cover the technical, fundamental and sentiment scores, the recommendation and the risk level.`,

	TagPolymarket: `You are explaining a prediction market analysis.
Cover the favored outcome, its implied probability, the risk assessment and any bet recommendation.`,

	TagX402: `You are helping the user create an x402 payment request on Solana.
Restate the amount, the token, the recipient, the fees and the payment link, and tell the user how to complete it.`,
}

// responder produces the user-facing reply. Without a language model the
// fallback text is used as is.
type responder struct {
	llm     ai.LLMService
	metrics *Metrics
}

// reply asks the language model for a reply grounded in data. A model
// failure is a capability failure.
func (r responder) reply(ctx context.Context, tag string, input *Input, data any, fallback string) (string, error) {
	if r.llm == nil {
		return fallback, nil
	}

	system := basePrompt
	if p, ok := kindPrompts[tag]; ok {
		system += "\n\n" + p
	}
	facts, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	messages := []ai.Message{
		ai.SystemPrompt(system),
		ai.UserMessage(buildReplyPrompt(input, string(facts))),
	}
	return call(ctx, r.metrics, "llm", func(ctx context.Context) (string, error) {
		return r.llm.Chat(ctx, messages)
	})
}

func buildReplyPrompt(input *Input, facts string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "User's wallet: %s on %s\n\n", input.WalletAddress, input.Chain)
	if len(input.Context) > 0 {
		b.WriteString("Conversation context:\n")
		for _, msg := range input.Context {
			fmt.Fprintf(&b, "%s: %s\n", msg.Role, msg.Content)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Data:\n%s\n\n", facts)
	fmt.Fprintf(&b, "User: %s", input.UserMessage)
	return b.String()
}
