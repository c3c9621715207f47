package subgraph

import (
	"context"
	"testing"

	"dex-aggregator/internal/domain"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cur(addr string) domain.Currency {
	return domain.Currency{ChainID: 1, Address: common.HexToAddress(addr), Decimals: 18, Symbol: addr}
}

func TestStaticProvider_PoolsForPair(t *testing.T) {
	weth, usdc, dai := cur("0x1"), cur("0x2"), cur("0x3")
	p := NewStaticProvider([]PoolDescriptor{
		{Protocol: domain.ProtocolV3, Token0: weth, Token1: usdc, Fee: domain.FeeMedium},
		{Protocol: domain.ProtocolV3, Token0: weth, Token1: dai, Fee: domain.FeeLow},
	})

	descs, err := p.PoolsForPair(context.Background(), 1, weth, usdc)
	require.NoError(t, err)
	assert.Len(t, descs, 1)

	descsReversed, err := p.PoolsForPair(context.Background(), 1, usdc, weth)
	require.NoError(t, err)
	assert.Len(t, descsReversed, 1)
}

func TestStaticProvider_TopPoolsByTVLRespectsLimitAndOrder(t *testing.T) {
	weth, usdc, dai := cur("0x1"), cur("0x2"), cur("0x3")
	p := NewStaticProvider([]PoolDescriptor{
		{Protocol: domain.ProtocolV3, Token0: weth, Token1: usdc, TVLUSD: 100},
		{Protocol: domain.ProtocolV3, Token0: weth, Token1: dai, TVLUSD: 500},
	})

	descs, err := p.TopPoolsByTVL(context.Background(), 1, 1)
	require.NoError(t, err)
	require.Len(t, descs, 1)
	assert.Equal(t, 500.0, descs[0].TVLUSD)
}

func TestStaticProvider_PoolsInvolvingStableTokenList(t *testing.T) {
	usdc, usdt, dai := cur("0x1"), cur("0x2"), cur("0x3")
	p := NewStaticProvider([]PoolDescriptor{
		{Protocol: domain.ProtocolStable, Tokens: []domain.Currency{usdc, usdt, dai}, PoolID: [32]byte{1}},
	})

	descs, err := p.PoolsInvolving(context.Background(), 1, dai, 10)
	require.NoError(t, err)
	assert.Len(t, descs, 1)
}

func TestStaticProvider_IgnoresOtherChains(t *testing.T) {
	other := domain.Currency{ChainID: 42161, Address: common.HexToAddress("0x1"), Decimals: 18}
	weth := cur("0x1")
	p := NewStaticProvider([]PoolDescriptor{
		{Protocol: domain.ProtocolV3, Token0: other, Token1: cur("0x2")},
	})

	descs, err := p.PoolsForPair(context.Background(), 1, weth, cur("0x2"))
	require.NoError(t, err)
	assert.Empty(t, descs)
}
