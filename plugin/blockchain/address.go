package blockchain

import (
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
	"golang.org/x/crypto/sha3"
)

var (
	// ErrUnsupportedChain is returned for chains outside Chains.
	ErrUnsupportedChain = errors.New("unsupported chain")
	// ErrInvalidAddress is returned when an address fails the chain's format check.
	ErrInvalidAddress = errors.New("invalid address")
)

// Chains lists supported chains.
var Chains = []string{"solana", "ethereum", "base", "polygon"}

var evmAddressRegex = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// IsEVM reports whether chain uses Ethereum-style accounts.
func IsEVM(chain string) bool {
	return chain == "ethereum" || chain == "base" || chain == "polygon"
}

// IsSupported reports whether chain is one of Chains.
func IsSupported(chain string) bool {
	return chain == "solana" || IsEVM(chain)
}

// ValidateAddress checks that address is a well-formed wallet address on chain.
// Solana addresses must decode to a point on the ed25519 curve; EVM addresses
// in mixed case must carry a valid EIP-55 checksum.
func ValidateAddress(chain, address string) error {
	switch {
	case chain == "solana":
		return validateSolanaAddress(address)
	case IsEVM(chain):
		return validateEVMAddress(address)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedChain, chain)
	}
}

func validateSolanaAddress(address string) error {
	raw, err := base58.Decode(address)
	if err != nil {
		return fmt.Errorf("%w: not base58", ErrInvalidAddress)
	}
	if len(raw) != 32 {
		return fmt.Errorf("%w: expected 32 bytes, got %d", ErrInvalidAddress, len(raw))
	}
	if _, err := new(edwards25519.Point).SetBytes(raw); err != nil {
		return fmt.Errorf("%w: not an ed25519 public key", ErrInvalidAddress)
	}
	return nil
}

func validateEVMAddress(address string) error {
	if !evmAddressRegex.MatchString(address) {
		return fmt.Errorf("%w: expected 0x followed by 40 hex characters", ErrInvalidAddress)
	}
	body := address[2:]
	if body == strings.ToLower(body) || body == strings.ToUpper(body) {
		return nil
	}
	if ChecksumAddress(address) != address {
		return fmt.Errorf("%w: checksum mismatch", ErrInvalidAddress)
	}
	return nil
}

// ChecksumAddress returns the EIP-55 mixed-case form of a hex address.
func ChecksumAddress(address string) string {
	lower := strings.ToLower(strings.TrimPrefix(address, "0x"))
	hash := sha3.NewLegacyKeccak256()
	hash.Write([]byte(lower))
	digest := hex.EncodeToString(hash.Sum(nil))

	out := []byte(lower)
	for i, c := range out {
		if c >= 'a' && c <= 'f' && digest[i] >= '8' {
			out[i] = c - 'a' + 'A'
		}
	}
	return "0x" + string(out)
}
