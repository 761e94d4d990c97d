package agent

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"sync"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/execfi/plugin/ai"
	"github.com/hrygo/execfi/plugin/blockchain"
	"github.com/hrygo/execfi/plugin/gmgn"
	"github.com/hrygo/execfi/plugin/polymarket"
	"github.com/hrygo/execfi/plugin/swap"
	"github.com/hrygo/execfi/plugin/x402"
	"github.com/hrygo/execfi/store"
	storetest "github.com/hrygo/execfi/store/test"
)

type fakeWallets struct {
	mu        sync.Mutex
	calls     int
	analysis  *blockchain.WalletAnalysis
	tokenData *blockchain.TokenData
	err       error
	transfers []*blockchain.TransferRequest
}

func (f *fakeWallets) record() {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
}

func (f *fakeWallets) AnalyzeWallet(_ context.Context, address, chain string) (*blockchain.WalletAnalysis, error) {
	f.record()
	if f.err != nil {
		return nil, f.err
	}
	return f.analysis, nil
}

func (f *fakeWallets) SimulateTransfer(_ context.Context, req *blockchain.TransferRequest) (*blockchain.TransferSimulation, error) {
	f.record()
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	f.transfers = append(f.transfers, req)
	f.mu.Unlock()
	fee := decimal.RequireFromString("0.000005")
	return &blockchain.TransferSimulation{
		From:         req.From,
		To:           req.To,
		Amount:       req.Amount,
		Token:        "SOL",
		Chain:        req.Chain,
		EstimatedGas: blockchain.SolanaSignatureFee,
		GasFee:       fee,
		FeeToken:     "SOL",
		TotalCost:    req.Amount.Add(fee),
		Status:       "simulated",
	}, nil
}

func (f *fakeWallets) GetTokenData(_ context.Context, chain, ref string) (*blockchain.TokenData, error) {
	f.record()
	if f.err != nil {
		return nil, f.err
	}
	return f.tokenData, nil
}

type fakeSwaps struct {
	calls int
	quote *swap.Quote
	err   error
}

func (f *fakeSwaps) Quote(_ context.Context, req *swap.QuoteRequest) (*swap.Quote, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.quote, nil
}

type fakeTokens struct {
	calls    int
	metrics  *gmgn.TokenMetrics
	analysis *gmgn.TokenAnalysis
	err      error
	mu       sync.Mutex
}

func (f *fakeTokens) GetTokenMetrics(_ context.Context, mint string) (*gmgn.TokenMetrics, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.metrics, nil
}

func (f *fakeTokens) AnalyzeToken(_ context.Context, mint string) (*gmgn.TokenAnalysis, *gmgn.TokenMetrics, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.analysis, f.metrics, nil
}

type fakeMarkets struct {
	calls    int
	markets  []*polymarket.Market
	analysis *polymarket.Analysis
	err      error
}

func (f *fakeMarkets) SearchMarkets(_ context.Context, query string, limit int) ([]*polymarket.Market, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if len(f.markets) > limit {
		return f.markets[:limit], nil
	}
	return f.markets, nil
}

func (f *fakeMarkets) AnalyzeMarket(_ context.Context, marketID string) (*polymarket.Analysis, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.analysis, nil
}

type fakePayments struct {
	mu      sync.Mutex
	calls   int
	fees    *x402.Fees
	link    *x402.PaymentLink
	err     error
	request *x402.PaymentRequest
}

func (f *fakePayments) EstimateFees(_ context.Context, amount decimal.Decimal, tokenMint string) (*x402.Fees, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.fees, nil
}

func (f *fakePayments) CreatePaymentRequest(_ context.Context, req *x402.PaymentRequest) (*x402.PaymentLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.request = req
	if f.err != nil {
		return nil, f.err
	}
	return f.link, nil
}

type published struct {
	room, event string
	payload     any
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []published
}

func (f *fakeNotifier) Publish(room, event string, payload any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, published{room: room, event: event, payload: payload})
}

// fakeLLM answers every chat with reply and every structured request with json.
type fakeLLM struct {
	reply    string
	json     string
	err      error
	messages [][]ai.Message
}

func (f *fakeLLM) Chat(_ context.Context, messages []ai.Message) (string, error) {
	f.messages = append(f.messages, messages)
	return f.reply, f.err
}

func (f *fakeLLM) ChatJSON(_ context.Context, messages []ai.Message, _ ai.JSONFormat) (string, error) {
	f.messages = append(f.messages, messages)
	return f.json, f.err
}

type testEnv struct {
	store    *store.Store
	wallets  *fakeWallets
	swaps    *fakeSwaps
	tokens   *fakeTokens
	markets  *fakeMarkets
	payments *fakePayments
	notifier *fakeNotifier
	deps     Deps
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	policy, err := NewPolicy(1_000_000, nil)
	require.NoError(t, err)

	env := &testEnv{
		store:    storetest.NewTestingStore(context.Background(), t),
		wallets:  &fakeWallets{},
		swaps:    &fakeSwaps{},
		tokens:   &fakeTokens{},
		markets:  &fakeMarkets{},
		payments: &fakePayments{},
		notifier: &fakeNotifier{},
	}
	env.deps = Deps{
		Store:     env.store,
		Wallets:   env.wallets,
		Swaps:     env.swaps,
		Tokens:    env.tokens,
		Markets:   env.markets,
		Payments:  env.payments,
		Extractor: GrammarExtractor{},
		Policy:    policy,
		Notifier:  env.notifier,
		Metrics:   NewMetrics(),
	}
	return env
}

func (env *testEnv) router(t *testing.T) *ExecutorRouter {
	t.Helper()
	r, err := NewExecutorRouter(env.deps)
	require.NoError(t, err)
	return r
}

func (env *testEnv) capabilityCalls() int {
	return env.wallets.calls + env.swaps.calls + env.tokens.calls + env.markets.calls + env.payments.calls
}

func (env *testEnv) ledger(t *testing.T, userID string) []*store.Action {
	t.Helper()
	actions, err := env.store.ListActions(context.Background(), &store.FindAction{UserID: &userID})
	require.NoError(t, err)
	return actions
}

// solanaAddress returns a fresh on-curve Solana address.
func solanaAddress(t *testing.T) string {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return base58.Encode(pub)
}

func newInput(userID, message string) *Input {
	return &Input{
		UserMessage:    message,
		WalletAddress:  "wallet-" + userID,
		Chain:          "solana",
		UserID:         userID,
		ConversationID: "conv-" + userID,
	}
}
