package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicy_Defaults(t *testing.T) {
	p, err := NewPolicy(1_000, []string{"bad-address"})
	require.NoError(t, err)
	ctx := context.Background()

	tests := []struct {
		name string
		in   PolicyInput
		want string
	}{
		{"allowed", PolicyInput{Kind: "transaction_simulation", Amount: 10, Recipient: "good"}, ""},
		{"at the limit", PolicyInput{Amount: 1_000, Recipient: "good"}, ""},
		{"over the limit", PolicyInput{Amount: 1_000.01, Recipient: "good"}, "max_transaction_amount"},
		{"blocklisted", PolicyInput{Amount: 1, Recipient: "bad-address"}, "blocklisted_recipient"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Violation(ctx, tt.in))
		})
	}
}

func TestPolicy_CustomRules(t *testing.T) {
	p, err := NewPolicy(1_000_000, nil,
		PolicyRule{Name: "solana_only", Expression: `chain == "solana"`},
		PolicyRule{Name: "no_bets", Expression: `kind != "bet_placement"`},
	)
	require.NoError(t, err)

	ctx := context.Background()
	assert.Empty(t, p.Violation(ctx, PolicyInput{Kind: "swap_quote", Chain: "solana"}))
	assert.Equal(t, "solana_only", p.Violation(ctx, PolicyInput{Kind: "swap_quote", Chain: "base"}))
	assert.Equal(t, "no_bets", p.Violation(ctx, PolicyInput{Kind: "bet_placement", Chain: "solana"}))
}

func TestPolicy_RejectsInvalidRules(t *testing.T) {
	_, err := NewPolicy(1, nil, PolicyRule{Name: "not_bool", Expression: "amount + 1.0"})
	require.Error(t, err)

	_, err = NewPolicy(1, nil, PolicyRule{Name: "syntax", Expression: "amount <="})
	require.Error(t, err)

	_, err = NewPolicy(1, nil, PolicyRule{Name: "unknown_var", Expression: "fee < 1.0"})
	require.Error(t, err)
}

func TestPolicy_NilAllowsEverything(t *testing.T) {
	var p *Policy
	assert.Empty(t, p.Violation(context.Background(), PolicyInput{Amount: 1e12}))
}

func TestPolicyRefusal(t *testing.T) {
	assert.Equal(t, "This request was blocked by the safety policy: max_transaction_amount.", policyRefusal("max_transaction_amount"))
}
