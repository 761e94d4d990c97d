// Package x402 is the payment rail capability client for SPL token
// payment requests.
package x402

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/shopspring/decimal"

	"github.com/hrygo/execfi/plugin/apiclient"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// PaymentRequest asks the rail for a payable link.
type PaymentRequest struct {
	Amount           decimal.Decimal
	RecipientAddress string
	TokenMint        string
	SenderAddress    string
	// Reference correlates the on-chain payment with the request.
	Reference string
}

type PaymentLink struct {
	PaymentID  string `json:"paymentId"`
	PaymentURL string `json:"paymentUrl"`
	ExpiresAt  int64  `json:"expiresAt"`
}

type Transaction struct {
	Signature string          `json:"signature"`
	Status    Status          `json:"status"`
	Amount    decimal.Decimal `json:"amount"`
	TokenMint string          `json:"tokenMint"`
	Timestamp int64           `json:"timestamp"`
}

type Fees struct {
	LamportFee int64   `json:"lamportFee"`
	TokenFee   float64 `json:"tokenFee"`
}

// Client talks to the x402 API.
type Client struct {
	api *apiclient.Client
}

func NewClient(baseURL, apiKey string, opts ...apiclient.Option) *Client {
	return &Client{api: apiclient.New(baseURL, apiKey, opts...)}
}

// CreatePaymentRequest registers a payment and returns its link.
func (c *Client) CreatePaymentRequest(ctx context.Context, req *PaymentRequest) (*PaymentLink, error) {
	body := map[string]any{
		"amount":     json.Number(req.Amount.String()),
		"recipient":  req.RecipientAddress,
		"token_mint": req.TokenMint,
		"sender":     req.SenderAddress,
	}
	if req.Reference != "" {
		body["reference"] = req.Reference
	}
	var resp struct {
		PaymentID  string `json:"payment_id"`
		PaymentURL string `json:"payment_url"`
		ExpiresAt  int64  `json:"expires_at"`
	}
	if err := c.api.PostJSON(ctx, "/v1/payments", body, &resp); err != nil {
		return nil, fmt.Errorf("x402 payment creation failed: %w", err)
	}
	slog.Info("x402 payment request created", "payment_id", resp.PaymentID)
	return &PaymentLink{PaymentID: resp.PaymentID, PaymentURL: resp.PaymentURL, ExpiresAt: resp.ExpiresAt}, nil
}

// GetStatus returns the settlement state of a transaction signature.
func (c *Client) GetStatus(ctx context.Context, signature string) (*Transaction, error) {
	var resp struct {
		Signature string          `json:"signature"`
		Status    Status          `json:"status"`
		Amount    decimal.Decimal `json:"amount"`
		TokenMint string          `json:"token_mint"`
		Timestamp int64           `json:"timestamp"`
	}
	if err := c.api.GetJSON(ctx, "/v1/transactions/"+url.PathEscape(signature), nil, &resp); err != nil {
		return nil, fmt.Errorf("get x402 transaction %s: %w", signature, err)
	}
	switch resp.Status {
	case StatusPending, StatusCompleted, StatusFailed:
	default:
		return nil, fmt.Errorf("unexpected x402 transaction status %q", resp.Status)
	}
	return &Transaction{
		Signature: resp.Signature,
		Status:    resp.Status,
		Amount:    resp.Amount,
		TokenMint: resp.TokenMint,
		Timestamp: resp.Timestamp,
	}, nil
}

// EstimateFees quotes the network and token fees of a payment.
func (c *Client) EstimateFees(ctx context.Context, amount decimal.Decimal, tokenMint string) (*Fees, error) {
	body := map[string]any{"amount": json.Number(amount.String()), "token_mint": tokenMint}
	var resp struct {
		LamportFee int64   `json:"lamport_fee"`
		TokenFee   float64 `json:"token_fee"`
	}
	if err := c.api.PostJSON(ctx, "/v1/estimate-fees", body, &resp); err != nil {
		return nil, fmt.Errorf("estimate x402 fees: %w", err)
	}
	return &Fees{LamportFee: resp.LamportFee, TokenFee: resp.TokenFee}, nil
}
