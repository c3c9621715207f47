package selector

import (
	"context"
	"testing"

	"dex-aggregator/internal/domain"
	"dex-aggregator/internal/subgraph"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cur(addr string) domain.Currency {
	return domain.Currency{ChainID: 1, Address: common.HexToAddress(addr), Decimals: 18, Symbol: addr}
}

func TestSelect_DirectSwapIsIncluded(t *testing.T) {
	weth := cur("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	usdc := cur("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	direct := subgraph.PoolDescriptor{Protocol: domain.ProtocolV3, Token0: weth, Token1: usdc, Fee: domain.FeeMedium, TVLUSD: 1_000_000}

	provider := subgraph.NewStaticProvider([]subgraph.PoolDescriptor{direct})
	sel := New(provider, NewConfig())

	descs, err := sel.Select(context.Background(), 1, weth, usdc, domain.ExactInput, domain.ProtocolV3)
	require.NoError(t, err)
	assert.NotEmpty(t, descs)

	found := false
	for _, d := range descs {
		if d.Protocol == domain.ProtocolV3 && d.Fee == domain.FeeMedium {
			found = true
		}
	}
	assert.True(t, found)
}

func TestSelect_RejectsUnsupportedChain(t *testing.T) {
	weth := cur("0x1")
	usdc := cur("0x2")
	provider := subgraph.NewStaticProvider(nil)
	sel := New(provider, NewConfig())

	_, err := sel.Select(context.Background(), 999999, weth, usdc, domain.ExactInput, domain.ProtocolV3)
	assert.ErrorIs(t, err, domain.ErrUnsupportedChain)
}

func TestSelect_BlockedTokenExcludesPool(t *testing.T) {
	weth := cur("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	usdc := cur("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	direct := subgraph.PoolDescriptor{Protocol: domain.ProtocolV3, Token0: weth, Token1: usdc, Fee: domain.FeeMedium, TVLUSD: 1_000_000}
	provider := subgraph.NewStaticProvider([]subgraph.PoolDescriptor{direct})

	cfg := NewConfig()
	cfg.BlockedTokens[usdc.Key()] = true
	sel := New(provider, cfg)

	descs, err := sel.Select(context.Background(), 1, weth, usdc, domain.ExactInput, domain.ProtocolV3)
	require.NoError(t, err)
	for _, d := range descs {
		assert.NotEqual(t, usdc.Key(), d.Token1.Key())
	}
}

func TestSelect_MixedUnionsV3AndStable(t *testing.T) {
	weth := cur("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	usdc := cur("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	v3 := subgraph.PoolDescriptor{Protocol: domain.ProtocolV3, Token0: weth, Token1: usdc, Fee: domain.FeeMedium, TVLUSD: 1_000_000}
	stable := subgraph.PoolDescriptor{Protocol: domain.ProtocolStable, Tokens: []domain.Currency{weth, usdc}, PoolID: [32]byte{1}, TVLUSD: 500_000}
	provider := subgraph.NewStaticProvider([]subgraph.PoolDescriptor{v3, stable})
	sel := New(provider, NewConfig())

	descs, err := sel.Select(context.Background(), 1, weth, usdc, domain.ExactInput, domain.ProtocolMixed)
	require.NoError(t, err)

	var hasV3, hasStable bool
	for _, d := range descs {
		if d.Protocol == domain.ProtocolV3 {
			hasV3 = true
		}
		if d.Protocol == domain.ProtocolStable {
			hasStable = true
		}
	}
	assert.True(t, hasV3)
	assert.True(t, hasStable)
}
