// Package blockchain reads wallet state over chain JSON-RPC and prices it
// through a market data source.
package blockchain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/mr-tron/base58"
	"github.com/shopspring/decimal"

	"github.com/hrygo/execfi/plugin/apiclient"
	"github.com/hrygo/execfi/store/cache"
)

const (
	// SolanaSignatureFee is the base fee per signature in lamports.
	SolanaSignatureFee = 5000
	// EVMNativeTransferGas is the gas limit of a plain value transfer.
	EVMNativeTransferGas = 21000
	// EVMTokenTransferGas is a conservative gas limit for an ERC-20 transfer.
	EVMTokenTransferGas = 65000

	splTokenProgram     = "TokenkegQfeZyiNwAJbNbGQPZFRmnkkqJ4Bn5YtwbXg"
	erc20BalanceOf      = "0x70a08231"
	signatureCountLimit = 1000
)

// ErrUnknownToken is returned when a token reference is neither a registry
// symbol nor an address.
var ErrUnknownToken = errors.New("unknown token")

// TokenData is a market snapshot of a token.
type TokenData struct {
	Address        string  `json:"address"`
	Symbol         string  `json:"symbol"`
	Name           string  `json:"name"`
	Price          float64 `json:"price"`
	PriceChange24h float64 `json:"priceChange24h"`
	MarketCap      float64 `json:"marketCap"`
	Volume24h      float64 `json:"volume24h"`
}

// PriceSource supplies market data for tokens.
type PriceSource interface {
	TokenData(ctx context.Context, chain, address string) (*TokenData, error)
}

type Balance struct {
	Token    string  `json:"token"`
	Amount   float64 `json:"amount"`
	USDValue float64 `json:"usdValue"`
}

// WalletAnalysis summarizes the holdings and activity of an address.
type WalletAnalysis struct {
	Address          string     `json:"address"`
	Chain            string     `json:"chain"`
	Balances         []*Balance `json:"balances"`
	TotalUSDValue    float64    `json:"totalUsdValue"`
	TransactionCount int        `json:"transactionCount"`
	RiskScore        int        `json:"riskScore"`
}

type TransferRequest struct {
	From   string
	To     string
	Amount decimal.Decimal
	// Token is a registry symbol or address; empty means the native token.
	Token string
	Chain string
}

// TransferSimulation is the fee estimate for a transfer. Nothing is signed
// or broadcast.
type TransferSimulation struct {
	From         string          `json:"from"`
	To           string          `json:"to"`
	Amount       decimal.Decimal `json:"amount"`
	Token        string          `json:"token"`
	TokenAddress string          `json:"tokenAddress,omitempty"`
	Chain        string          `json:"chain"`
	EstimatedGas int64           `json:"estimatedGas"`
	GasFee       decimal.Decimal `json:"gasFee"`
	FeeToken     string          `json:"feeToken"`
	TotalCost    decimal.Decimal `json:"totalCost"`
	Status       string          `json:"status"`
}

// Service is the blockchain capability client.
type Service struct {
	rpc    map[string]*apiclient.Client
	cache  *cache.TieredCache
	prices PriceSource
}

// NewService creates a service with one JSON-RPC client per configured chain.
// tiered and prices may be nil.
func NewService(rpcURLs map[string]string, tiered *cache.TieredCache, prices PriceSource, opts ...apiclient.Option) *Service {
	clients := make(map[string]*apiclient.Client, len(rpcURLs))
	for chain, url := range rpcURLs {
		if url != "" && IsSupported(chain) {
			clients[chain] = apiclient.New(url, "", opts...)
		}
	}
	return &Service{rpc: clients, cache: tiered, prices: prices}
}

func (s *Service) client(chain string) (*apiclient.Client, error) {
	c, ok := s.rpc[chain]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedChain, chain)
	}
	return c, nil
}

// AnalyzeWallet returns balances and activity for address, cached for
// cache.WalletAnalysisTTL.
func (s *Service) AnalyzeWallet(ctx context.Context, address, chain string) (*WalletAnalysis, error) {
	key := cache.Key("wallet-analysis", address, chain)
	return cache.Fetch(ctx, s.cache, key, cache.WalletAnalysisTTL, func(ctx context.Context) (*WalletAnalysis, error) {
		return s.analyzeWallet(ctx, address, chain)
	})
}

func (s *Service) analyzeWallet(ctx context.Context, address, chain string) (*WalletAnalysis, error) {
	c, err := s.client(chain)
	if err != nil {
		return nil, err
	}

	var holdings []holding
	var txCount int
	if chain == "solana" {
		holdings, txCount, err = solanaHoldings(ctx, c, address)
	} else {
		holdings, txCount, err = evmHoldings(ctx, c, chain, address)
	}
	if err != nil {
		return nil, fmt.Errorf("analyze wallet %s on %s: %w", address, chain, err)
	}

	analysis := &WalletAnalysis{
		Address:          address,
		Chain:            chain,
		Balances:         make([]*Balance, 0, len(holdings)),
		TransactionCount: txCount,
		RiskScore:        activityRiskScore(txCount),
	}
	for _, h := range holdings {
		balance := &Balance{Token: h.symbol, Amount: h.amount.InexactFloat64()}
		if price, ok := s.price(ctx, chain, h.address); ok {
			balance.USDValue = h.amount.Mul(decimal.NewFromFloat(price)).Round(2).InexactFloat64()
		}
		analysis.TotalUSDValue += balance.USDValue
		analysis.Balances = append(analysis.Balances, balance)
	}
	analysis.TotalUSDValue = decimal.NewFromFloat(analysis.TotalUSDValue).Round(2).InexactFloat64()
	return analysis, nil
}

// activityRiskScore rates established wallets lower than fresh ones.
func activityRiskScore(txCount int) int {
	switch {
	case txCount >= 100:
		return 10
	case txCount >= 10:
		return 15
	default:
		return 40
	}
}

func (s *Service) price(ctx context.Context, chain, address string) (float64, bool) {
	if s.prices == nil || address == "" {
		return 0, false
	}
	data, err := s.GetTokenData(ctx, chain, address)
	if err != nil {
		slog.Debug("token price unavailable", "chain", chain, "token", address, "error", err)
		return 0, false
	}
	return data.Price, true
}

// GetTokenData returns market data for a registry symbol or token address,
// cached for cache.TokenDataTTL.
func (s *Service) GetTokenData(ctx context.Context, chain, ref string) (*TokenData, error) {
	if s.prices == nil {
		return nil, errors.New("no market data source configured")
	}
	address, symbol, err := resolveTokenAddress(chain, ref)
	if err != nil {
		return nil, err
	}
	key := cache.Key("token-data", address, chain)
	return cache.Fetch(ctx, s.cache, key, cache.TokenDataTTL, func(ctx context.Context) (*TokenData, error) {
		data, err := s.prices.TokenData(ctx, chain, address)
		if err != nil {
			return nil, err
		}
		if data.Symbol == "" {
			data.Symbol = symbol
		}
		return data, nil
	})
}

func resolveTokenAddress(chain, ref string) (address, symbol string, err error) {
	if token, ok := ResolveToken(chain, ref); ok {
		if token.Address == "" {
			return "", "", fmt.Errorf("%w: %s has no contract address on %s", ErrUnknownToken, token.Symbol, chain)
		}
		return token.Address, token.Symbol, nil
	}
	if IsTokenAddress(chain, ref) {
		return ref, "", nil
	}
	return "", "", fmt.Errorf("%w: %s", ErrUnknownToken, ref)
}

// IsTokenAddress reports whether ref is shaped like a token address on
// chain. Mints and contracts need not be on the ed25519 curve.
func IsTokenAddress(chain, ref string) bool {
	if IsEVM(chain) {
		return evmAddressRegex.MatchString(ref)
	}
	raw, err := base58.Decode(ref)
	return err == nil && len(raw) == 32
}

// SimulateTransfer estimates the network fee of a transfer.
func (s *Service) SimulateTransfer(ctx context.Context, req *TransferRequest) (*TransferSimulation, error) {
	native, ok := NativeToken(req.Chain)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedChain, req.Chain)
	}
	token := native
	if req.Token != "" {
		if token, ok = ResolveToken(req.Chain, req.Token); !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownToken, req.Token)
		}
	}

	sim := &TransferSimulation{
		From:     req.From,
		To:       req.To,
		Amount:   req.Amount,
		Token:    token.Symbol,
		Chain:    req.Chain,
		FeeToken: native.Symbol,
		Status:   "simulated",
	}
	if !token.Native {
		sim.TokenAddress = token.Address
	}

	if req.Chain == "solana" {
		sim.EstimatedGas = SolanaSignatureFee
		sim.GasFee = FromBaseUnits(decimal.NewFromInt(SolanaSignatureFee), native.Decimals)
	} else {
		c, err := s.client(req.Chain)
		if err != nil {
			return nil, err
		}
		var raw string
		if err := c.RPC(ctx, "eth_gasPrice", nil, &raw); err != nil {
			return nil, fmt.Errorf("estimate gas price: %w", err)
		}
		gasPrice, err := hexToDecimal(raw)
		if err != nil {
			return nil, err
		}
		sim.EstimatedGas = EVMNativeTransferGas
		if !token.Native {
			sim.EstimatedGas = EVMTokenTransferGas
		}
		sim.GasFee = FromBaseUnits(gasPrice.Mul(decimal.NewFromInt(sim.EstimatedGas)), native.Decimals)
	}

	sim.TotalCost = req.Amount
	if token.Native {
		sim.TotalCost = req.Amount.Add(sim.GasFee)
	}
	return sim, nil
}

type holding struct {
	symbol  string
	address string
	amount  decimal.Decimal
}

type solanaTokenAccounts struct {
	Value []struct {
		Account struct {
			Data struct {
				Parsed struct {
					Info struct {
						Mint        string `json:"mint"`
						TokenAmount struct {
							UIAmountString string `json:"uiAmountString"`
						} `json:"tokenAmount"`
					} `json:"info"`
				} `json:"parsed"`
			} `json:"data"`
		} `json:"account"`
	} `json:"value"`
}

func solanaHoldings(ctx context.Context, c *apiclient.Client, address string) ([]holding, int, error) {
	native, _ := NativeToken("solana")

	var balance struct {
		Value uint64 `json:"value"`
	}
	if err := c.RPC(ctx, "getBalance", []any{address, map[string]string{"commitment": "confirmed"}}, &balance); err != nil {
		return nil, 0, err
	}
	holdings := []holding{{
		symbol:  native.Symbol,
		address: native.Address,
		amount:  FromBaseUnits(decimal.NewFromUint64(balance.Value), native.Decimals),
	}}

	var accounts solanaTokenAccounts
	if err := c.RPC(ctx, "getTokenAccountsByOwner", []any{
		address,
		map[string]string{"programId": splTokenProgram},
		map[string]string{"encoding": "jsonParsed"},
	}, &accounts); err != nil {
		return nil, 0, err
	}
	for _, account := range accounts.Value {
		info := account.Account.Data.Parsed.Info
		amount, err := decimal.NewFromString(info.TokenAmount.UIAmountString)
		if err != nil || amount.IsZero() {
			continue
		}
		symbol := info.Mint
		if token, ok := ResolveToken("solana", info.Mint); ok {
			symbol = token.Symbol
		}
		holdings = append(holdings, holding{symbol: symbol, address: info.Mint, amount: amount})
	}

	var signatures []struct {
		Signature string `json:"signature"`
	}
	if err := c.RPC(ctx, "getSignaturesForAddress", []any{address, map[string]int{"limit": signatureCountLimit}}, &signatures); err != nil {
		return nil, 0, err
	}
	return holdings, len(signatures), nil
}

func evmHoldings(ctx context.Context, c *apiclient.Client, chain, address string) ([]holding, int, error) {
	var raw string
	if err := c.RPC(ctx, "eth_getBalance", []any{address, "latest"}, &raw); err != nil {
		return nil, 0, err
	}
	wei, err := hexToDecimal(raw)
	if err != nil {
		return nil, 0, err
	}

	var holdings []holding
	for _, token := range Tokens(chain) {
		if token.Native {
			holdings = append(holdings, holding{symbol: token.Symbol, amount: FromBaseUnits(wei, token.Decimals)})
			continue
		}
		call := map[string]string{
			"to":   token.Address,
			"data": erc20BalanceOf + strings.Repeat("0", 24) + strings.ToLower(strings.TrimPrefix(address, "0x")),
		}
		if err := c.RPC(ctx, "eth_call", []any{call, "latest"}, &raw); err != nil {
			return nil, 0, err
		}
		units, err := hexToDecimal(raw)
		if err != nil {
			return nil, 0, err
		}
		if units.IsZero() {
			continue
		}
		holdings = append(holdings, holding{symbol: token.Symbol, address: token.Address, amount: FromBaseUnits(units, token.Decimals)})
	}

	if err := c.RPC(ctx, "eth_getTransactionCount", []any{address, "latest"}, &raw); err != nil {
		return nil, 0, err
	}
	nonce, err := hexToDecimal(raw)
	if err != nil {
		return nil, 0, err
	}
	return holdings, int(nonce.IntPart()), nil
}

func hexToDecimal(raw string) (decimal.Decimal, error) {
	digits := strings.TrimPrefix(raw, "0x")
	if digits == "" {
		return decimal.Zero, nil
	}
	n, ok := new(big.Int).SetString(digits, 16)
	if !ok {
		return decimal.Zero, fmt.Errorf("invalid hex quantity %q", raw)
	}
	return decimal.NewFromBigInt(n, 0), nil
}
