package domain

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// NativeAddress is the sentinel address used to mean "the chain's native
// currency" (ETH on mainnet/sepolia, ETH on optimism/arbitrum). It is never a
// real token and never appears in a Pool.
var NativeAddress = common.Address{}

// Currency is an immutable (chain, address, decimals, symbol) record. Two
// Currencies are equal iff they share a chain id and a lowercase address -
// symbol and decimals are metadata, not identity.
type Currency struct {
	ChainID  int64
	Address  common.Address
	Decimals uint8
	Symbol   string
}

// IsNative reports whether c represents the chain's native currency rather
// than an ERC-20 token.
func (c Currency) IsNative() bool {
	return c.Address == NativeAddress
}

// Equal compares identity only: chain id and lowercased address.
func (c Currency) Equal(other Currency) bool {
	return c.ChainID == other.ChainID &&
		strings.EqualFold(c.Address.Hex(), other.Address.Hex())
}

// Key returns a stable map key for use in sets/maps keyed by currency
// identity.
func (c Currency) Key() string {
	return strings.ToLower(c.Address.Hex())
}

func (c Currency) String() string {
	if c.Symbol != "" {
		return c.Symbol
	}
	return c.Address.Hex()
}
