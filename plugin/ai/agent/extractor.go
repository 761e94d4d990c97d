package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/hrygo/execfi/plugin/ai"
	"github.com/hrygo/execfi/plugin/ai/timeout"
)

// Extraction modes.
const (
	ExtractionNone    = "none"
	ExtractionGrammar = "grammar"
	ExtractionLLM     = "llm"
)

// TransferInstruction is a parsed "send" request.
type TransferInstruction struct {
	Recipient string
	Amount    decimal.Decimal
	// Token is an upper-case symbol or an address; empty means the native token.
	Token string
}

func (t TransferInstruction) Complete() bool {
	return t.Recipient != "" && t.Amount.IsPositive()
}

// SwapInstruction is a parsed "swap" request.
type SwapInstruction struct {
	InputToken  string
	OutputToken string
	Amount      decimal.Decimal
}

func (s SwapInstruction) Complete() bool {
	return s.InputToken != "" && s.OutputToken != "" && s.Amount.IsPositive()
}

// PaymentInstruction is a parsed x402 payment request.
type PaymentInstruction struct {
	Recipient string
	Amount    decimal.Decimal
	// Token is an upper-case symbol or a mint address.
	Token string
}

func (p PaymentInstruction) Complete() bool {
	return p.Recipient != "" && p.Token != "" && p.Amount.IsPositive()
}

// Extractor pulls structured instructions out of free text. Anything it
// cannot determine is left empty; callers ask the user to clarify.
type Extractor interface {
	ExtractTransfer(ctx context.Context, text string) TransferInstruction
	ExtractSwap(ctx context.Context, text string) SwapInstruction
	ExtractPayment(ctx context.Context, text string) PaymentInstruction
}

// NewExtractor returns the extractor for mode. The llm mode requires llm.
func NewExtractor(mode string, llm ai.LLMService) (Extractor, error) {
	switch mode {
	case ExtractionNone:
		return NoneExtractor{}, nil
	case ExtractionGrammar, "":
		return GrammarExtractor{}, nil
	case ExtractionLLM:
		if llm == nil {
			return nil, fmt.Errorf("extraction mode %q requires a configured LLM", mode)
		}
		return &LLMExtractor{llm: llm}, nil
	default:
		return nil, fmt.Errorf("unknown extraction mode %q", mode)
	}
}

// NoneExtractor never extracts anything.
type NoneExtractor struct{}

func (NoneExtractor) ExtractTransfer(context.Context, string) TransferInstruction {
	return TransferInstruction{}
}

func (NoneExtractor) ExtractSwap(context.Context, string) SwapInstruction {
	return SwapInstruction{}
}

func (NoneExtractor) ExtractPayment(context.Context, string) PaymentInstruction {
	return PaymentInstruction{}
}

// GrammarExtractor fills slots from fixed sentence shapes:
//
//	(send|transfer|pay) <amount> [<token>] to <address>
//	(swap|exchange|trade|convert) <amount> <token> (for|to|into) <token>
//	<amount> <token> to <address>            (payments)
type GrammarExtractor struct{}

var (
	transferGrammar = regexp.MustCompile(`(?i)\b(?:send|transfer|pay)\s+(\d+(?:\.\d+)?)\s*(\$?[a-z][a-z0-9]{1,9}|[1-9A-HJ-NP-Za-km-z]{32,44})?\s+to\s+(\S+)`)
	swapGrammar     = regexp.MustCompile(`(?i)\b(?:swap|exchange|trade|convert)\s+(\d+(?:\.\d+)?)\s*\$?([a-z][a-z0-9]{1,9})\s+(?:for|to|into)\s+\$?([a-z][a-z0-9]{1,9})\b`)
	paymentGrammar  = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(\$?[a-z][a-z0-9]{1,9}|[1-9A-HJ-NP-Za-km-z]{32,44})\s+to\s+(\S+)`)
)

func (GrammarExtractor) ExtractTransfer(_ context.Context, text string) TransferInstruction {
	m := transferGrammar.FindStringSubmatch(text)
	if m == nil {
		return TransferInstruction{}
	}
	amount, ok := parseAmount(m[1])
	if !ok {
		return TransferInstruction{}
	}
	return TransferInstruction{Recipient: trimAddress(m[3]), Amount: amount, Token: normalizeToken(m[2])}
}

func (GrammarExtractor) ExtractSwap(_ context.Context, text string) SwapInstruction {
	m := swapGrammar.FindStringSubmatch(text)
	if m == nil {
		return SwapInstruction{}
	}
	amount, ok := parseAmount(m[1])
	if !ok {
		return SwapInstruction{}
	}
	return SwapInstruction{InputToken: normalizeToken(m[2]), OutputToken: normalizeToken(m[3]), Amount: amount}
}

func (GrammarExtractor) ExtractPayment(_ context.Context, text string) PaymentInstruction {
	m := paymentGrammar.FindStringSubmatch(text)
	if m == nil {
		return PaymentInstruction{}
	}
	amount, ok := parseAmount(m[1])
	if !ok {
		return PaymentInstruction{}
	}
	return PaymentInstruction{Recipient: trimAddress(m[3]), Amount: amount, Token: normalizeToken(m[2])}
}

func parseAmount(raw string) (decimal.Decimal, bool) {
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil || !amount.IsPositive() {
		return decimal.Zero, false
	}
	return amount, true
}

// normalizeToken upper-cases symbols and keeps addresses verbatim.
func normalizeToken(raw string) string {
	raw = strings.TrimPrefix(strings.TrimSpace(raw), "$")
	if len(raw) > 10 {
		return raw
	}
	return strings.ToUpper(raw)
}

func trimAddress(raw string) string {
	return strings.TrimRight(raw, ".,;:!?)\"'")
}

// LLMExtractor asks the language model to fill the slots through a
// structured-output request.
type LLMExtractor struct {
	llm ai.LLMService
}

const extractionPrompt = `Extract the %s details from the user's message.
Use an empty string for anything the message does not state explicitly. Never guess addresses.
Amounts are plain decimal numbers without units. Token symbols are upper case.`

func stringSchema(name string, fields ...string) ai.JSONFormat {
	props := make(map[string]*ai.JSONSchema, len(fields))
	for _, f := range fields {
		props[f] = &ai.JSONSchema{Type: "string"}
	}
	return ai.JSONFormat{
		Name: name,
		Schema: &ai.JSONSchema{
			Type:                 "object",
			Properties:           props,
			Required:             fields,
			AdditionalProperties: false,
		},
	}
}

func (e *LLMExtractor) extract(ctx context.Context, what, text string, format ai.JSONFormat) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, timeout.ExtractionTimeout)
	defer cancel()

	content, err := e.llm.ChatJSON(ctx, []ai.Message{
		ai.SystemPrompt(fmt.Sprintf(extractionPrompt, what)),
		ai.UserMessage(text),
	}, format)
	if err != nil {
		slog.Warn("instruction extraction failed", "instruction", what, "error", err)
		return nil
	}
	var fields map[string]string
	if err := json.Unmarshal([]byte(content), &fields); err != nil {
		slog.Warn("instruction extraction returned invalid JSON", "instruction", what, "error", err)
		return nil
	}
	return fields
}

func (e *LLMExtractor) ExtractTransfer(ctx context.Context, text string) TransferInstruction {
	fields := e.extract(ctx, "token transfer", text, stringSchema("transfer_instruction", "recipient", "amount", "token"))
	amount, ok := parseAmount(fields["amount"])
	if !ok {
		return TransferInstruction{}
	}
	return TransferInstruction{Recipient: trimAddress(fields["recipient"]), Amount: amount, Token: normalizeToken(fields["token"])}
}

func (e *LLMExtractor) ExtractSwap(ctx context.Context, text string) SwapInstruction {
	fields := e.extract(ctx, "token swap", text, stringSchema("swap_instruction", "input_token", "output_token", "amount"))
	amount, ok := parseAmount(fields["amount"])
	if !ok {
		return SwapInstruction{}
	}
	return SwapInstruction{
		InputToken:  normalizeToken(fields["input_token"]),
		OutputToken: normalizeToken(fields["output_token"]),
		Amount:      amount,
	}
}

func (e *LLMExtractor) ExtractPayment(ctx context.Context, text string) PaymentInstruction {
	fields := e.extract(ctx, "payment request", text, stringSchema("payment_instruction", "recipient", "amount", "token"))
	amount, ok := parseAmount(fields["amount"])
	if !ok {
		return PaymentInstruction{}
	}
	return PaymentInstruction{Recipient: trimAddress(fields["recipient"]), Amount: amount, Token: normalizeToken(fields["token"])}
}
