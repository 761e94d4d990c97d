package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/hrygo/execfi/plugin/blockchain"
	"github.com/hrygo/execfi/plugin/swap"
	"github.com/hrygo/execfi/store"
)

const swapClarification = "I need swap details. Please specify: input token, output token, and amount (e.g., 'Swap 1 SOL for USDC')."

// SwapExecutor quotes a swap and records the quote for confirmation.
type SwapExecutor struct {
	deps Deps
}

func (e *SwapExecutor) Execute(ctx context.Context, input *Input) (*Result, error) {
	instr := e.deps.Extractor.ExtractSwap(ctx, input.UserMessage)
	input.override(&instr.InputToken, ParamInputToken)
	input.override(&instr.OutputToken, ParamOutputToken)
	input.overrideAmount(&instr.Amount, ParamAmount)
	if !instr.Complete() {
		return clarification(TagSwap, swapClarification), nil
	}

	if rule := e.deps.Policy.Violation(ctx, PolicyInput{
		Kind:      string(store.ActionKindSwapQuote),
		Chain:     input.Chain,
		Amount:    instr.Amount.InexactFloat64(),
		Token:     instr.InputToken,
		Recipient: input.WalletAddress,
	}); rule != "" {
		return clarification(TagSwap, policyRefusal(rule)), nil
	}

	quote, err := call(ctx, e.deps.Metrics, "swap", func(ctx context.Context) (*swap.Quote, error) {
		return e.deps.Swaps.Quote(ctx, &swap.QuoteRequest{
			Chain:       input.Chain,
			InputToken:  instr.InputToken,
			OutputToken: instr.OutputToken,
			Amount:      instr.Amount,
			SlippageBps: swap.DefaultSlippageBps,
		})
	})
	switch {
	case errors.Is(err, blockchain.ErrUnsupportedChain):
		return clarification(TagSwap, fmt.Sprintf("Swaps are not available on %s yet. Switch to Solana to swap tokens.", input.Chain)), nil
	case errors.Is(err, blockchain.ErrUnknownToken):
		return clarification(TagSwap, fmt.Sprintf("I don't recognize one of the tokens %s or %s on %s.", instr.InputToken, instr.OutputToken, input.Chain)), nil
	case errors.Is(err, swap.ErrNoRoute):
		return clarification(TagSwap, fmt.Sprintf("I couldn't find a route from %s to %s.", instr.InputToken, instr.OutputToken)), nil
	case err != nil:
		return nil, err
	}

	fallback := fmt.Sprintf("Swapping %s %s returns about %s %s (minimum %s) with %.2f%% price impact via %s. Network fee: %s %s. Please confirm to proceed.",
		quote.InputAmount, quote.InputToken, quote.OutputAmount, quote.OutputToken, quote.MinOutputAmount,
		quote.PriceImpact, routeLabel(quote.Route), quote.GasFee, quote.FeeToken)
	text, err := e.deps.responder().reply(ctx, TagSwap, input, quote, fallback)
	if err != nil {
		return nil, err
	}

	action, err := pendingAction(input, store.ActionKindSwapQuote, quote)
	if err != nil {
		return nil, err
	}
	if action, err = e.deps.Store.CreateAction(ctx, action); err != nil {
		return nil, err
	}
	return &Result{ResponseText: text, ExecutorTag: TagSwap, Actions: []*store.Action{action}}, nil
}

func routeLabel(route []string) string {
	if len(route) == 0 {
		return "a direct route"
	}
	label := route[0]
	for _, hop := range route[1:] {
		label += " > " + hop
	}
	return label
}
