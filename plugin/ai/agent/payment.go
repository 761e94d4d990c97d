package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lithammer/shortuuid/v4"
	"golang.org/x/sync/errgroup"

	"github.com/hrygo/execfi/plugin/blockchain"
	"github.com/hrygo/execfi/plugin/x402"
	"github.com/hrygo/execfi/store"
)

const paymentClarification = "I need payment details. Please specify: amount, token, and recipient address (e.g., 'x402 payment request 10 USDC to <address>')."

// x402 payments settle on Solana whatever chain the conversation uses.
const paymentChain = "solana"

// PaymentExecutor creates an x402 payment request. The request is settled
// only by verifying the payment signature.
type PaymentExecutor struct {
	deps Deps
}

type paymentPayload struct {
	PaymentID        string    `json:"paymentId"`
	Reference        string    `json:"reference"`
	Amount           string    `json:"amount"`
	Token            string    `json:"token,omitempty"`
	TokenMint        string    `json:"tokenMint"`
	RecipientAddress string    `json:"recipientAddress"`
	SenderAddress    string    `json:"senderAddress"`
	PaymentURL       string    `json:"paymentUrl"`
	ExpiresAt        int64     `json:"expiresAt"`
	Fees             x402.Fees `json:"fees"`
}

func (e *PaymentExecutor) Execute(ctx context.Context, input *Input) (*Result, error) {
	instr := e.deps.Extractor.ExtractPayment(ctx, input.UserMessage)
	input.override(&instr.Recipient, ParamRecipient)
	input.override(&instr.Token, ParamToken)
	input.override(&instr.Token, ParamTokenMint)
	input.overrideAmount(&instr.Amount, ParamAmount)
	if !instr.Complete() {
		return clarification(TagX402, paymentClarification), nil
	}

	symbol, mint := "", instr.Token
	if token, ok := blockchain.ResolveToken(paymentChain, instr.Token); ok {
		symbol, mint = token.Symbol, token.Address
	} else if !blockchain.IsTokenAddress(paymentChain, instr.Token) {
		return clarification(TagX402, fmt.Sprintf("I don't recognize the token %s. Use a Solana token symbol or mint address.", instr.Token)), nil
	}
	if err := blockchain.ValidateAddress(paymentChain, instr.Recipient); err != nil {
		return clarification(TagX402, fmt.Sprintf("%s is not a valid Solana address. Please check the recipient and try again.", instr.Recipient)), nil
	}

	if rule := e.deps.Policy.Violation(ctx, PolicyInput{
		Kind:      string(store.ActionKindPaymentRequest),
		Chain:     paymentChain,
		Amount:    instr.Amount.InexactFloat64(),
		Token:     mint,
		Recipient: instr.Recipient,
	}); rule != "" {
		return clarification(TagX402, policyRefusal(rule)), nil
	}

	reference := shortuuid.New()
	var (
		fees *x402.Fees
		link *x402.PaymentLink
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		fees, err = call(gctx, e.deps.Metrics, "x402", func(ctx context.Context) (*x402.Fees, error) {
			return e.deps.Payments.EstimateFees(ctx, instr.Amount, mint)
		})
		return err
	})
	g.Go(func() error {
		var err error
		link, err = call(gctx, e.deps.Metrics, "x402", func(ctx context.Context) (*x402.PaymentLink, error) {
			return e.deps.Payments.CreatePaymentRequest(ctx, &x402.PaymentRequest{
				Amount:           instr.Amount,
				RecipientAddress: instr.Recipient,
				TokenMint:        mint,
				SenderAddress:    input.WalletAddress,
				Reference:        reference,
			})
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	payload := &paymentPayload{
		PaymentID:        uuid.NewString(),
		Reference:        reference,
		Amount:           instr.Amount.String(),
		Token:            symbol,
		TokenMint:        mint,
		RecipientAddress: instr.Recipient,
		SenderAddress:    input.WalletAddress,
		PaymentURL:       link.PaymentURL,
		ExpiresAt:        link.ExpiresAt,
		Fees:             *fees,
	}
	label := symbol
	if label == "" {
		label = mint
	}
	fallback := fmt.Sprintf("Payment request for %s %s to %s is ready: %s (expires %s). Network fee: %d lamports. The request completes once the payment is verified on-chain.",
		payload.Amount, label, payload.RecipientAddress, payload.PaymentURL,
		time.Unix(payload.ExpiresAt, 0).UTC().Format(time.RFC3339), fees.LamportFee)
	text, err := e.deps.responder().reply(ctx, TagX402, input, payload, fallback)
	if err != nil {
		return nil, err
	}

	action, err := pendingAction(input, store.ActionKindPaymentRequest, payload)
	if err != nil {
		return nil, err
	}
	if _, err := e.deps.Store.CreatePaymentWithAction(ctx, &store.Payment{
		ID:               payload.PaymentID,
		UserID:           input.UserID,
		Reference:        reference,
		Amount:           payload.Amount,
		TokenMint:        mint,
		RecipientAddress: instr.Recipient,
		SenderAddress:    input.WalletAddress,
		PaymentURL:       link.PaymentURL,
		ExpiresAt:        link.ExpiresAt,
		LamportFee:       fees.LamportFee,
		TokenFee:         fees.TokenFee,
	}, action); err != nil {
		return nil, err
	}
	return &Result{ResponseText: text, ExecutorTag: TagX402, Actions: []*store.Action{action}}, nil
}
