// Package seed holds a fixed, hand-curated pool universe for each
// first-class chain, generalized from the teacher's MockPoolCollector
// major-pairs table into subgraph.PoolDescriptor records. It backs
// subgraph.StaticProvider as the innermost fallback tier when neither the
// remote subgraph nor a URI snapshot is reachable (spec.md §4.3, §7).
package seed

import (
	"dex-aggregator/internal/chain"
	"dex-aggregator/internal/domain"
	"dex-aggregator/internal/subgraph"

	"github.com/ethereum/go-ethereum/common"
)

func v3(token0, token1 domain.Currency, fee domain.FeeTier, tvlUSD float64) subgraph.PoolDescriptor {
	return subgraph.PoolDescriptor{Protocol: domain.ProtocolV3, Token0: token0, Token1: token1, Fee: fee, TVLUSD: tvlUSD}
}

func v2(token0, token1 domain.Currency, tvlUSD float64) subgraph.PoolDescriptor {
	return subgraph.PoolDescriptor{Protocol: domain.ProtocolV2, Token0: token0, Token1: token1, TVLUSD: tvlUSD}
}

// Pools returns the static seed set for one chain, empty if the chain has
// no seeded pairs.
func Pools(chainID int64) []subgraph.PoolDescriptor {
	switch chain.ID(chainID) {
	case chain.Mainnet:
		return mainnetPools()
	case chain.Optimism:
		return optimismPools()
	case chain.Arbitrum:
		return arbitrumPools()
	default:
		return nil
	}
}

func mainnetPools() []subgraph.PoolDescriptor {
	weth := currency(chain.Mainnet, "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", 18, "WETH")
	usdc := currency(chain.Mainnet, "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", 6, "USDC")
	usdt := currency(chain.Mainnet, "0xdAC17F958D2ee523a2206206994597C13D831ec7", 6, "USDT")
	dai := currency(chain.Mainnet, "0x6B175474E89094C44Da98b954EedeAC495271d0F", 18, "DAI")
	wbtc := currency(chain.Mainnet, "0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599", 8, "WBTC")

	return []subgraph.PoolDescriptor{
		v3(weth, usdc, domain.FeeMedium, 250_000_000),
		v3(weth, usdt, domain.FeeMedium, 180_000_000),
		v3(weth, dai, domain.FeeLow, 90_000_000),
		v3(weth, wbtc, domain.FeeMedium, 120_000_000),
		v2(weth, usdc, 60_000_000),
		v2(weth, usdt, 40_000_000),
		v2(weth, dai, 20_000_000),
	}
}

func optimismPools() []subgraph.PoolDescriptor {
	weth := currency(chain.Optimism, "0x4200000000000000000000000000000000000006", 18, "WETH")
	usdc := currency(chain.Optimism, "0x0b2C639c533813f4Aa9D7837CAf62653d097Ff85", 6, "USDC")
	return []subgraph.PoolDescriptor{
		v3(weth, usdc, domain.FeeMedium, 30_000_000),
	}
}

func arbitrumPools() []subgraph.PoolDescriptor {
	weth := currency(chain.Arbitrum, "0x82aF49447D8a07e3bd95BD0d56f35241523fBab1", 18, "WETH")
	usdc := currency(chain.Arbitrum, "0xaf88d065e77c8cC2239327C5EDb3A432268e5831", 6, "USDC")
	return []subgraph.PoolDescriptor{
		v3(weth, usdc, domain.FeeMedium, 50_000_000),
	}
}

func currency(id chain.ID, addr string, decimals uint8, symbol string) domain.Currency {
	return domain.Currency{ChainID: int64(id), Address: common.HexToAddress(addr), Decimals: decimals, Symbol: symbol}
}
