// Package chain holds the immutable, initialized-once per-chain
// configuration tables the rest of the router reads from (design note
// "shared caches as process state"): supported chain ids, each chain's
// wrapped-native twin, base tokens used to seed candidate-pool selection
// (§4.5), and whether the chain charges an L1 data fee (§4.8, §4.10 step 7).
package chain

import (
	"dex-aggregator/internal/domain"

	"github.com/ethereum/go-ethereum/common"
)

// ID is an EVM chain id. Only the four first-class chains in spec.md §6
// are accepted by the orchestrator; any other id is ErrUnsupportedChain.
type ID int64

const (
	Mainnet  ID = 1
	Sepolia  ID = 11155111
	Optimism ID = 10
	Arbitrum ID = 42161
)

// Chain is the static, per-chain configuration consulted throughout the
// router: its wrapped-native currency, base tokens for selection, and
// whether it is a rollup that charges an L1 data fee.
type Chain struct {
	ID              ID
	Name            string
	WrappedNative   domain.Currency
	BaseTokens      []domain.Currency
	HasL1Fee        bool
	MulticallAddr   common.Address
}

// registry is populated once at package init and never mutated afterward.
var registry = map[ID]Chain{}

func register(c Chain) { registry[c.ID] = c }

func init() {
	weth := func(addr string) domain.Currency {
		return domain.Currency{ChainID: int64(Mainnet), Address: common.HexToAddress(addr), Decimals: 18, Symbol: "WETH"}
	}
	usdc := domain.Currency{ChainID: int64(Mainnet), Address: common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"), Decimals: 6, Symbol: "USDC"}
	usdt := domain.Currency{ChainID: int64(Mainnet), Address: common.HexToAddress("0xdAC17F958D2ee523a2206206994597C13D831ec7"), Decimals: 6, Symbol: "USDT"}
	dai := domain.Currency{ChainID: int64(Mainnet), Address: common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F"), Decimals: 18, Symbol: "DAI"}

	register(Chain{
		ID:            Mainnet,
		Name:          "mainnet",
		WrappedNative: weth("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"),
		BaseTokens:    []domain.Currency{usdc, usdt, dai},
		HasL1Fee:      false,
		MulticallAddr: common.HexToAddress("0xcA11bde05977b3631167028862bE2a173976CA11"), // Multicall3
	})

	sepWeth := domain.Currency{ChainID: int64(Sepolia), Address: common.HexToAddress("0xfFf9976782d46CC05630D1f6eBAb18b2324d6B14"), Decimals: 18, Symbol: "WETH"}
	sepUsdc := domain.Currency{ChainID: int64(Sepolia), Address: common.HexToAddress("0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238"), Decimals: 6, Symbol: "USDC"}
	register(Chain{
		ID:            Sepolia,
		Name:          "sepolia",
		WrappedNative: sepWeth,
		BaseTokens:    []domain.Currency{sepUsdc},
		HasL1Fee:      false,
		MulticallAddr: common.HexToAddress("0xcA11bde05977b3631167028862bE2a173976CA11"),
	})

	opWeth := domain.Currency{ChainID: int64(Optimism), Address: common.HexToAddress("0x4200000000000000000000000000000000000006"), Decimals: 18, Symbol: "WETH"}
	opUsdc := domain.Currency{ChainID: int64(Optimism), Address: common.HexToAddress("0x0b2C639c533813f4Aa9D7837CAf62653d097Ff85"), Decimals: 6, Symbol: "USDC"}
	register(Chain{
		ID:            Optimism,
		Name:          "optimism",
		WrappedNative: opWeth,
		BaseTokens:    []domain.Currency{opUsdc},
		HasL1Fee:      true,
		MulticallAddr: common.HexToAddress("0xcA11bde05977b3631167028862bE2a173976CA11"),
	})

	arbWeth := domain.Currency{ChainID: int64(Arbitrum), Address: common.HexToAddress("0x82aF49447D8a07e3bd95BD0d56f35241523fBab1"), Decimals: 18, Symbol: "WETH"}
	arbUsdc := domain.Currency{ChainID: int64(Arbitrum), Address: common.HexToAddress("0xaf88d065e77c8cC2239327C5EDb3A432268e5831"), Decimals: 6, Symbol: "USDC"}
	register(Chain{
		ID:            Arbitrum,
		Name:          "arbitrum",
		WrappedNative: arbWeth,
		BaseTokens:    []domain.Currency{arbUsdc},
		HasL1Fee:      true,
		MulticallAddr: common.HexToAddress("0xcA11bde05977b3631167028862bE2a173976CA11"),
	})
}

// Get returns the static config for a chain id, or false if the chain is
// not one of the four first-class chains this router supports.
func Get(id int64) (Chain, bool) {
	c, ok := registry[ID(id)]
	return c, ok
}

// MustGet is Get but panics on an unsupported chain - only used where the
// caller has already validated the chain id (e.g. a currency constructed
// from a Chain value), never on untrusted input.
func MustGet(id int64) Chain {
	c, ok := Get(id)
	if !ok {
		panic("chain: unsupported chain id queried without validation")
	}
	return c
}

// Supported returns all first-class chain ids, used for config validation
// and tests.
func Supported() []ID {
	ids := make([]ID, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	return ids
}
