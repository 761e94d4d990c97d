package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRecipient = "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU"

func TestGrammarExtractor_Transfer(t *testing.T) {
	tests := []struct {
		name string
		text string
		want TransferInstruction
	}{
		{
			name: "amount token recipient",
			text: "Send 1.5 SOL to " + testRecipient,
			want: TransferInstruction{Recipient: testRecipient, Amount: decimal.RequireFromString("1.5"), Token: "SOL"},
		},
		{
			name: "lower case token and trailing punctuation",
			text: "please transfer 20 usdc to " + testRecipient + ".",
			want: TransferInstruction{Recipient: testRecipient, Amount: decimal.NewFromInt(20), Token: "USDC"},
		},
		{
			name: "native token implied",
			text: "pay 3 to " + testRecipient,
			want: TransferInstruction{Recipient: testRecipient, Amount: decimal.NewFromInt(3)},
		},
		{
			name: "zero amount",
			text: "send 0 SOL to " + testRecipient,
		},
		{
			name: "no recipient",
			text: "send 2 SOL",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GrammarExtractor{}.ExtractTransfer(context.Background(), tt.text)
			assert.Equal(t, tt.want.Recipient, got.Recipient)
			assert.Equal(t, tt.want.Token, got.Token)
			assert.True(t, tt.want.Amount.Equal(got.Amount), "amount %s", got.Amount)
			assert.Equal(t, tt.want.Complete(), got.Complete())
		})
	}
}

func TestGrammarExtractor_Swap(t *testing.T) {
	tests := []struct {
		text     string
		in, out  string
		amount   string
		complete bool
	}{
		{text: "Swap 1 SOL for USDC", in: "SOL", out: "USDC", amount: "1", complete: true},
		{text: "convert 0.25 $bonk into jup", in: "BONK", out: "JUP", amount: "0.25", complete: true},
		{text: "exchange 10 USDT to SOL please", in: "USDT", out: "SOL", amount: "10", complete: true},
		{text: "swap my SOL", amount: "0"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got := GrammarExtractor{}.ExtractSwap(context.Background(), tt.text)
			assert.Equal(t, tt.in, got.InputToken)
			assert.Equal(t, tt.out, got.OutputToken)
			assert.True(t, decimal.RequireFromString(tt.amount).Equal(got.Amount))
			assert.Equal(t, tt.complete, got.Complete())
		})
	}
}

func TestGrammarExtractor_Payment(t *testing.T) {
	got := GrammarExtractor{}.ExtractPayment(context.Background(), "create an x402 payment request for 12.5 USDC to "+testRecipient)
	assert.True(t, got.Complete())
	assert.Equal(t, "USDC", got.Token)
	assert.Equal(t, testRecipient, got.Recipient)
	assert.Equal(t, "12.5", got.Amount.String())

	assert.False(t, GrammarExtractor{}.ExtractPayment(context.Background(), "x402 invoice please").Complete())
}

func TestNoneExtractor(t *testing.T) {
	e := NoneExtractor{}
	ctx := context.Background()
	assert.False(t, e.ExtractTransfer(ctx, "Send 1.5 SOL to "+testRecipient).Complete())
	assert.False(t, e.ExtractSwap(ctx, "Swap 1 SOL for USDC").Complete())
	assert.False(t, e.ExtractPayment(ctx, "pay 1 USDC to "+testRecipient).Complete())
}

func TestLLMExtractor(t *testing.T) {
	ctx := context.Background()

	llm := &fakeLLM{json: `{"recipient":"` + testRecipient + `","amount":"2.5","token":"usdc"}`}
	e, err := NewExtractor(ExtractionLLM, llm)
	require.NoError(t, err)

	got := e.ExtractTransfer(ctx, "send two and a half usdc to my friend")
	assert.True(t, got.Complete())
	assert.Equal(t, "USDC", got.Token)
	assert.Equal(t, "2.5", got.Amount.String())

	llm.json = `{"input_token":"SOL","output_token":"","amount":"1"}`
	assert.False(t, e.ExtractSwap(ctx, "swap 1 SOL").Complete())

	llm.json = "not json"
	assert.Equal(t, TransferInstruction{}, e.ExtractTransfer(ctx, "send"))

	llm.err = errors.New("llm down")
	assert.Equal(t, PaymentInstruction{}, e.ExtractPayment(ctx, "pay"))
}

func TestNewExtractor(t *testing.T) {
	e, err := NewExtractor("", nil)
	require.NoError(t, err)
	assert.IsType(t, GrammarExtractor{}, e)

	e, err = NewExtractor(ExtractionNone, nil)
	require.NoError(t, err)
	assert.IsType(t, NoneExtractor{}, e)

	_, err = NewExtractor(ExtractionLLM, nil)
	require.Error(t, err)

	_, err = NewExtractor("regex", nil)
	require.Error(t, err)
}
