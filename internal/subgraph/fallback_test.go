package subgraph

import (
	"context"
	"errors"
	"testing"

	"dex-aggregator/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type erroringProvider struct{}

func (erroringProvider) PoolsForPair(ctx context.Context, chainID int64, tokenA, tokenB domain.Currency) ([]PoolDescriptor, error) {
	return nil, errors.New("remote unavailable")
}
func (erroringProvider) TopPoolsByTVL(ctx context.Context, chainID int64, limit int) ([]PoolDescriptor, error) {
	return nil, errors.New("remote unavailable")
}
func (erroringProvider) PoolsInvolving(ctx context.Context, chainID int64, token domain.Currency, limit int) ([]PoolDescriptor, error) {
	return nil, errors.New("remote unavailable")
}

func TestFallbackProvider_FallsThroughToNextProvider(t *testing.T) {
	weth, usdc := cur("0x1"), cur("0x2")
	good := NewStaticProvider([]PoolDescriptor{{Protocol: domain.ProtocolV3, Token0: weth, Token1: usdc, TVLUSD: 10}})
	fp := WithFallback(zap.NewNop(), erroringProvider{}, good)

	descs, err := fp.PoolsForPair(context.Background(), 1, weth, usdc)
	require.NoError(t, err)
	assert.Len(t, descs, 1)
}

func TestFallbackProvider_ReturnsLastErrorWhenAllFail(t *testing.T) {
	fp := WithFallback(zap.NewNop(), erroringProvider{}, erroringProvider{})

	_, err := fp.TopPoolsByTVL(context.Background(), 1, 10)
	assert.Error(t, err)
}

func TestFallbackProvider_UsesFirstSuccessfulProvider(t *testing.T) {
	weth, usdc := cur("0x1"), cur("0x2")
	first := NewStaticProvider([]PoolDescriptor{{Protocol: domain.ProtocolV3, Token0: weth, Token1: usdc, TVLUSD: 1}})
	second := NewStaticProvider([]PoolDescriptor{{Protocol: domain.ProtocolV3, Token0: weth, Token1: usdc, TVLUSD: 2}})
	fp := WithFallback(zap.NewNop(), first, second)

	descs, err := fp.PoolsInvolving(context.Background(), 1, weth, 10)
	require.NoError(t, err)
	require.Len(t, descs, 1)
	assert.Equal(t, 1.0, descs[0].TVLUSD)
}
