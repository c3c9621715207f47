package gasmodel

import (
	"math/big"
	"testing"

	"dex-aggregator/internal/domain"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cur(addr string, decimals uint8) domain.Currency {
	return domain.Currency{ChainID: 1, Address: common.HexToAddress(addr), Decimals: decimals, Symbol: addr}
}

func TestEstimateRoute_SingleV3HopNoTicks(t *testing.T) {
	cfg := DefaultConfig()
	model := New(cfg, 1, big.NewInt(20_000_000_000), ReferencePools{}, common.HexToAddress("0x1"))

	pool := &domain.V3Pool{Token0: cur("0x1", 18), Token1: cur("0x2", 6), Fee: domain.FeeMedium}
	route := domain.Route{Pools: []domain.Pool{pool}, Input: pool.Token0, Output: pool.Token1}

	est := model.EstimateRoute(route, []int{0})

	want := new(big.Int).Set(cfg.V3[1].BaseSwapCost)
	want.Add(want, cfg.V3[1].CostPerHop)
	want.Add(want, cfg.AdditionalGasOverhead)
	assert.Equal(t, want, est.GasUseEstimate)
}

func TestEstimateRoute_WithoutReferencePoolsGivesZeroCost(t *testing.T) {
	cfg := DefaultConfig()
	model := New(cfg, 1, big.NewInt(20_000_000_000), ReferencePools{}, common.HexToAddress("0x1"))

	pool := &domain.V3Pool{Token0: cur("0x1", 18), Token1: cur("0x2", 6), Fee: domain.FeeMedium}
	route := domain.Route{Pools: []domain.Pool{pool}, Input: pool.Token0, Output: pool.Token1}

	est := model.EstimateRoute(route, []int{0})
	assert.True(t, est.CostInQuoteToken.IsZero())
	assert.True(t, est.CostInUSD.IsZero())
	assert.Nil(t, est.CostInGasToken)
}

func TestEstimateRoute_V3TicksCrossedAddCost(t *testing.T) {
	cfg := DefaultConfig()
	model := New(cfg, 1, big.NewInt(20_000_000_000), ReferencePools{}, common.HexToAddress("0x1"))

	pool := &domain.V3Pool{Token0: cur("0x1", 18), Token1: cur("0x2", 6), Fee: domain.FeeMedium}
	route := domain.Route{Pools: []domain.Pool{pool}, Input: pool.Token0, Output: pool.Token1}

	estNoTicks := model.EstimateRoute(route, []int{0})
	estWithTicks := model.EstimateRoute(route, []int{3})

	assert.True(t, estWithTicks.GasUseEstimate.Cmp(estNoTicks.GasUseEstimate) > 0)
}

func TestConvertNativeWei_UsesMidPrice(t *testing.T) {
	native := cur("0x1", 18)
	ref := &domain.V3Pool{
		Token0:       native,
		Token1:       cur("0x2", 6),
		SqrtPriceX96: new(big.Int).Lsh(big.NewInt(1), 96), // price = 1.0
	}
	model := New(DefaultConfig(), 1, big.NewInt(1), ReferencePools{NativeAndQuoteTokenPool: ref}, native.Address)

	est := model.ConvertNativeWei(big.NewInt(1_000_000_000_000_000_000)) // 1e18 wei
	require.False(t, est.CostInQuoteToken.IsZero())
}

// TestConvertNativeWei_NativeAsToken1 mirrors the mainnet WETH/USDC case:
// poolprovider sorts pools by raw address (v3.go), and USDC (0xA0b8...)
// sorts below WETH (0xC02a...), so native ends up as Token1. The converted
// cost must still land in Token0 (quote token) units, not be inverted.
func TestConvertNativeWei_NativeAsToken1(t *testing.T) {
	native := cur("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", 18)
	quote := cur("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", 6)
	ref := &domain.V3Pool{
		Token0:       quote,
		Token1:       native,
		SqrtPriceX96: new(big.Int).Lsh(big.NewInt(1), 96), // price = 1.0 (raw token1-per-token0)
	}
	model := New(DefaultConfig(), 1, big.NewInt(1), ReferencePools{NativeAndQuoteTokenPool: ref}, native.Address)

	oneEth := big.NewInt(1_000_000_000_000_000_000)
	est := model.ConvertNativeWei(oneEth)
	require.False(t, est.CostInQuoteToken.IsZero())

	flippedRef := &domain.V3Pool{Token0: native, Token1: quote, SqrtPriceX96: ref.SqrtPriceX96}
	flippedModel := New(DefaultConfig(), 1, big.NewInt(1), ReferencePools{NativeAndQuoteTokenPool: flippedRef}, native.Address)
	flippedEst := flippedModel.ConvertNativeWei(oneEth)

	assert.True(t, est.CostInQuoteToken.Equal(flippedEst.CostInQuoteToken))
}

func TestPartitionByProtocol_SplitsOnProtocolChange(t *testing.T) {
	v3 := &domain.V3Pool{Token0: cur("0x1", 18), Token1: cur("0x2", 18), Fee: domain.FeeMedium}
	v2 := &domain.V2Pool{Token0: cur("0x2", 18), Token1: cur("0x3", 18)}

	sections := partitionByProtocol([]domain.Pool{v3, v2})
	require.Len(t, sections, 2)
	assert.Equal(t, domain.ProtocolV3, sections[0][0].Protocol())
	assert.Equal(t, domain.ProtocolV2, sections[1][0].Protocol())
}
