package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/hrygo/execfi/plugin/blockchain"
	"github.com/hrygo/execfi/store"
)

const sendClarification = "I need more details. Please specify: recipient address, amount, and token to send."

// SendExecutor simulates a transfer and records it for confirmation.
type SendExecutor struct {
	deps Deps
}

func (e *SendExecutor) Execute(ctx context.Context, input *Input) (*Result, error) {
	instr := e.deps.Extractor.ExtractTransfer(ctx, input.UserMessage)
	input.override(&instr.Recipient, ParamRecipient)
	input.override(&instr.Token, ParamToken)
	input.overrideAmount(&instr.Amount, ParamAmount)
	if !instr.Complete() {
		return clarification(TagSend, sendClarification), nil
	}

	if err := blockchain.ValidateAddress(input.Chain, instr.Recipient); err != nil {
		if errors.Is(err, blockchain.ErrUnsupportedChain) {
			return clarification(TagSend, fmt.Sprintf("Sending on %s is not supported.", input.Chain)), nil
		}
		return clarification(TagSend, fmt.Sprintf("%s is not a valid %s address. Please check the recipient and try again.", instr.Recipient, input.Chain)), nil
	}

	if rule := e.deps.Policy.Violation(ctx, PolicyInput{
		Kind:      string(store.ActionKindTransactionSimulation),
		Chain:     input.Chain,
		Amount:    instr.Amount.InexactFloat64(),
		Token:     instr.Token,
		Recipient: instr.Recipient,
	}); rule != "" {
		return clarification(TagSend, policyRefusal(rule)), nil
	}

	sim, err := call(ctx, e.deps.Metrics, "blockchain", func(ctx context.Context) (*blockchain.TransferSimulation, error) {
		return e.deps.Wallets.SimulateTransfer(ctx, &blockchain.TransferRequest{
			From:   input.WalletAddress,
			To:     instr.Recipient,
			Amount: instr.Amount,
			Token:  instr.Token,
			Chain:  input.Chain,
		})
	})
	if errors.Is(err, blockchain.ErrUnknownToken) {
		return clarification(TagSend, fmt.Sprintf("I don't recognize the token %s on %s.", instr.Token, input.Chain)), nil
	}
	if err != nil {
		return nil, err
	}

	fallback := fmt.Sprintf("Ready to send %s %s to %s on %s. Estimated network fee: %s %s. Please confirm to proceed.",
		sim.Amount, sim.Token, sim.To, sim.Chain, sim.GasFee, sim.FeeToken)
	text, err := e.deps.responder().reply(ctx, TagSend, input, sim, fallback)
	if err != nil {
		return nil, err
	}

	action, err := pendingAction(input, store.ActionKindTransactionSimulation, sim)
	if err != nil {
		return nil, err
	}
	if action, err = e.deps.Store.CreateAction(ctx, action); err != nil {
		return nil, err
	}
	return &Result{ResponseText: text, ExecutorTag: TagSend, Actions: []*store.Action{action}}, nil
}
