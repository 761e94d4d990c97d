package blockchain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Token is a registry entry.
type Token struct {
	Symbol   string `json:"symbol"`
	Address  string `json:"address"`
	Decimals int32  `json:"decimals"`
	// Native marks the chain's gas token. On solana Address is the wrapped SOL mint.
	Native bool `json:"native,omitempty"`
}

var registry = map[string][]Token{
	"solana": {
		{Symbol: "SOL", Address: "So11111111111111111111111111111111111111112", Decimals: 9, Native: true},
		{Symbol: "USDC", Address: "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", Decimals: 6},
		{Symbol: "USDT", Address: "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB", Decimals: 6},
		{Symbol: "BONK", Address: "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263", Decimals: 5},
		{Symbol: "JUP", Address: "JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN", Decimals: 6},
		{Symbol: "WIF", Address: "EKpQGSJtjMFqKZ9KQanSqYXRcF8fBopzLHYxdM65zcjm", Decimals: 6},
	},
	"ethereum": {
		{Symbol: "ETH", Decimals: 18, Native: true},
		{Symbol: "USDC", Address: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", Decimals: 6},
		{Symbol: "USDT", Address: "0xdAC17F958D2ee523a2206206994597C13D831ec7", Decimals: 6},
	},
	"base": {
		{Symbol: "ETH", Decimals: 18, Native: true},
		{Symbol: "USDC", Address: "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913", Decimals: 6},
	},
	"polygon": {
		{Symbol: "POL", Decimals: 18, Native: true},
		{Symbol: "USDC", Address: "0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359", Decimals: 6},
	},
}

// Tokens returns the registry of chain.
func Tokens(chain string) []Token {
	return registry[chain]
}

// NativeToken returns the gas token of chain.
func NativeToken(chain string) (Token, bool) {
	for _, token := range registry[chain] {
		if token.Native {
			return token, true
		}
	}
	return Token{}, false
}

// ResolveToken looks ref up by symbol (case-insensitive) or by address.
func ResolveToken(chain, ref string) (Token, bool) {
	ref = strings.TrimPrefix(strings.TrimSpace(ref), "$")
	if ref == "" {
		return Token{}, false
	}
	for _, token := range registry[chain] {
		if strings.EqualFold(token.Symbol, ref) {
			return token, true
		}
		if token.Address == "" {
			continue
		}
		if token.Address == ref || (IsEVM(chain) && strings.EqualFold(token.Address, ref)) {
			return token, true
		}
	}
	return Token{}, false
}

// IsKnownSymbol reports whether any chain lists symbol.
func IsKnownSymbol(symbol string) bool {
	for chain := range registry {
		for _, token := range registry[chain] {
			if strings.EqualFold(token.Symbol, symbol) {
				return true
			}
		}
	}
	return false
}

// ToBaseUnits converts a display amount into integer base units.
func ToBaseUnits(amount decimal.Decimal, decimals int32) decimal.Decimal {
	return amount.Shift(decimals).Truncate(0)
}

// FromBaseUnits converts integer base units into a display amount.
func FromBaseUnits(units decimal.Decimal, decimals int32) decimal.Decimal {
	return units.Shift(-decimals)
}
