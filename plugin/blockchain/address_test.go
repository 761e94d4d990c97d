package blockchain

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSolanaAddress(t *testing.T) string {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return base58.Encode(pub)
}

func TestValidateAddress(t *testing.T) {
	solana := newSolanaAddress(t)

	tests := []struct {
		name    string
		chain   string
		address string
		wantErr error
	}{
		{name: "solana wallet", chain: "solana", address: solana},
		{name: "solana not base58", chain: "solana", address: "0OIl" + solana[4:], wantErr: ErrInvalidAddress},
		{name: "solana too short", chain: "solana", address: "abc", wantErr: ErrInvalidAddress},
		{name: "evm checksummed", chain: "ethereum", address: "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"},
		{name: "evm checksummed 2", chain: "base", address: "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"},
		{name: "evm lowercase", chain: "polygon", address: "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"},
		{name: "evm bad checksum", chain: "ethereum", address: "0x5AAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", wantErr: ErrInvalidAddress},
		{name: "evm short", chain: "ethereum", address: "0x1234", wantErr: ErrInvalidAddress},
		{name: "solana address on evm", chain: "ethereum", address: solana, wantErr: ErrInvalidAddress},
		{name: "unknown chain", chain: "tron", address: solana, wantErr: ErrUnsupportedChain},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAddress(tt.chain, tt.address)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestChecksumAddress(t *testing.T) {
	assert.Equal(t, "0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB", ChecksumAddress("0xdbf03b407c01e7cd3cbea99509d93f8dddc8c6fb"))
	assert.Equal(t, "0xD1220A0cf47c7B9Be7A2E6BA89F429762e7b9aDb", ChecksumAddress("0xD1220A0CF47C7B9BE7A2E6BA89F429762E7B9ADB"))
}

func TestResolveToken(t *testing.T) {
	token, ok := ResolveToken("solana", "usdc")
	require.True(t, ok)
	assert.Equal(t, "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", token.Address)

	token, ok = ResolveToken("solana", "$bonk")
	require.True(t, ok)
	assert.Equal(t, int32(5), token.Decimals)

	token, ok = ResolveToken("ethereum", "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48")
	require.True(t, ok)
	assert.Equal(t, "USDC", token.Symbol)

	_, ok = ResolveToken("base", "BONK")
	assert.False(t, ok)

	native, ok := NativeToken("polygon")
	require.True(t, ok)
	assert.Equal(t, "POL", native.Symbol)
}

func TestBaseUnits(t *testing.T) {
	amount := decimal.RequireFromString("1.5")
	assert.Equal(t, "1500000000", ToBaseUnits(amount, 9).String())
	assert.Equal(t, "1", ToBaseUnits(decimal.RequireFromString("0.0000019"), 6).String())
	assert.Equal(t, "0.000005", FromBaseUnits(decimal.NewFromInt(5000), 9).String())
}
