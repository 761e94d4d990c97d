package agent

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/hrygo/execfi/plugin/ai"
	"github.com/hrygo/execfi/plugin/blockchain"
	"github.com/hrygo/execfi/plugin/gmgn"
	"github.com/hrygo/execfi/plugin/polymarket"
	"github.com/hrygo/execfi/plugin/swap"
	"github.com/hrygo/execfi/plugin/x402"
	"github.com/hrygo/execfi/store"
)

// WalletService is the blockchain capability.
type WalletService interface {
	AnalyzeWallet(ctx context.Context, address, chain string) (*blockchain.WalletAnalysis, error)
	SimulateTransfer(ctx context.Context, req *blockchain.TransferRequest) (*blockchain.TransferSimulation, error)
	GetTokenData(ctx context.Context, chain, ref string) (*blockchain.TokenData, error)
}

// SwapQuoter is the swap-quote capability.
type SwapQuoter interface {
	Quote(ctx context.Context, req *swap.QuoteRequest) (*swap.Quote, error)
}

// TokenMetricsSource is the token metrics capability.
type TokenMetricsSource interface {
	GetTokenMetrics(ctx context.Context, mint string) (*gmgn.TokenMetrics, error)
	AnalyzeToken(ctx context.Context, mint string) (*gmgn.TokenAnalysis, *gmgn.TokenMetrics, error)
}

// PredictionMarkets is the prediction market capability.
type PredictionMarkets interface {
	SearchMarkets(ctx context.Context, query string, limit int) ([]*polymarket.Market, error)
	AnalyzeMarket(ctx context.Context, marketID string) (*polymarket.Analysis, error)
}

// PaymentRail is the x402 payment capability.
type PaymentRail interface {
	EstimateFees(ctx context.Context, amount decimal.Decimal, tokenMint string) (*x402.Fees, error)
	CreatePaymentRequest(ctx context.Context, req *x402.PaymentRequest) (*x402.PaymentLink, error)
}

// Notifier publishes realtime events. Publishing is best effort.
type Notifier interface {
	Publish(room, event string, payload any)
}

// Deps are the collaborators shared by all executors.
type Deps struct {
	Store    *store.Store
	Wallets  WalletService
	Swaps    SwapQuoter
	Tokens   TokenMetricsSource
	Markets  PredictionMarkets
	Payments PaymentRail
	// LLM writes the replies. Nil falls back to templated text.
	LLM       ai.LLMService
	Extractor Extractor
	Policy    *Policy
	Notifier  Notifier
	Metrics   *Metrics
}

func (d *Deps) responder() responder {
	return responder{llm: d.LLM, metrics: d.Metrics}
}
