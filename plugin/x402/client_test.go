package x402

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/payments", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer x402-key", r.Header.Get("Authorization"))
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, 12.5, body["amount"])
		assert.Equal(t, "recipient", body["recipient"])
		assert.Equal(t, "mint", body["token_mint"])
		assert.Equal(t, "ref-1", body["reference"])
		json.NewEncoder(w).Encode(map[string]any{"payment_id": "pay-1", "payment_url": "https://pay/1", "expires_at": 1_700_000_900})
	})
	mux.HandleFunc("POST /v1/estimate-fees", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"lamport_fee": 5000, "token_fee": 0.01})
	})
	mux.HandleFunc("GET /v1/transactions/{sig}", func(w http.ResponseWriter, r *http.Request) {
		status := "completed"
		if r.PathValue("sig") == "weird" {
			status = "exploded"
		}
		json.NewEncoder(w).Encode(map[string]any{
			"signature": r.PathValue("sig"), "status": status, "amount": 12.5, "token_mint": "mint", "timestamp": 1_700_000_100,
		})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return NewClient(server.URL, "x402-key")
}

func TestClient_CreatePaymentRequest(t *testing.T) {
	link, err := newTestClient(t).CreatePaymentRequest(context.Background(), &PaymentRequest{
		Amount:           decimal.RequireFromString("12.5"),
		RecipientAddress: "recipient",
		TokenMint:        "mint",
		SenderAddress:    "sender",
		Reference:        "ref-1",
	})
	require.NoError(t, err)
	assert.Equal(t, &PaymentLink{PaymentID: "pay-1", PaymentURL: "https://pay/1", ExpiresAt: 1_700_000_900}, link)
}

func TestClient_EstimateFees(t *testing.T) {
	fees, err := newTestClient(t).EstimateFees(context.Background(), decimal.NewFromInt(1), "mint")
	require.NoError(t, err)
	assert.Equal(t, int64(5000), fees.LamportFee)
	assert.Equal(t, 0.01, fees.TokenFee)
}

func TestClient_GetStatus(t *testing.T) {
	c := newTestClient(t)
	tx, err := c.GetStatus(context.Background(), "sig-1")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, tx.Status)
	assert.Equal(t, "12.5", tx.Amount.String())

	_, err = c.GetStatus(context.Background(), "weird")
	assert.Error(t, err)
}
