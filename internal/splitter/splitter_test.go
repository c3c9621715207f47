package splitter

import (
	"math/big"
	"testing"

	"dex-aggregator/internal/domain"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCurrency(addr string, chain int64) domain.Currency {
	return domain.Currency{ChainID: chain, Address: common.HexToAddress(addr), Decimals: 18, Symbol: addr}
}

func v3Route(tokenIn, tokenOut domain.Currency, addr string) domain.Route {
	pool := &domain.V3Pool{
		Token0:      tokenIn,
		Token1:      tokenOut,
		Fee:         domain.FeeMedium,
		PoolAddress: common.HexToAddress(addr),
		Chain:       tokenIn.ChainID,
	}
	return domain.Route{Pools: []domain.Pool{pool}, Input: tokenIn, Output: tokenOut}
}

func stableRoute(tokenIn, tokenOut domain.Currency, idByte byte) domain.Route {
	var id [32]byte
	id[31] = idByte
	pool := &domain.StablePool{ID: id, TokensList: []domain.Currency{tokenIn, tokenOut}, Chain: tokenIn.ChainID}
	return domain.Route{Pools: []domain.Pool{pool}, Input: tokenIn, Output: tokenOut}
}

func rq(route domain.Route, percent int, amountIn, quoteOut int64) domain.RouteWithQuote {
	return domain.RouteWithQuote{
		Route:               route,
		Percent:             percent,
		Amount:              domain.NewAmountFromBigInt(route.Input, big.NewInt(amountIn)),
		Quote:                domain.NewAmountFromBigInt(route.Output, big.NewInt(quoteOut)),
		GasEstimate:          big.NewInt(130000),
		GasCostInQuoteToken:  decimal.NewFromInt(1),
		GasCostInUSD:         decimal.NewFromInt(1),
	}
}

func TestOptimize_SingleRouteFullFraction(t *testing.T) {
	tokenIn := testCurrency("0x1000000000000000000000000000000000000001", 1)
	tokenOut := testCurrency("0x1000000000000000000000000000000000000002", 1)
	route := v3Route(tokenIn, tokenOut, "0x2000000000000000000000000000000000000001")

	quotes := []domain.RouteWithQuote{rq(route, 100, 1000, 990)}

	cfg := DefaultConfig()
	cfg.DistributionPercent = 100
	plan, err := Optimize(quotes, domain.ExactInput, cfg)
	require.NoError(t, err)
	assert.Equal(t, 100, plan.SumPercent())
	assert.Len(t, plan.Routes, 1)
}

func TestOptimize_PrefersHigherAggregateOutput(t *testing.T) {
	tokenIn := testCurrency("0x1000000000000000000000000000000000000001", 1)
	tokenOut := testCurrency("0x1000000000000000000000000000000000000002", 1)
	routeA := v3Route(tokenIn, tokenOut, "0x2000000000000000000000000000000000000001")
	routeB := v3Route(tokenIn, tokenOut, "0x2000000000000000000000000000000000000002")

	quotes := []domain.RouteWithQuote{
		rq(routeA, 100, 1000, 990),
		rq(routeB, 100, 1000, 950),
		rq(routeA, 50, 500, 498),
		rq(routeB, 50, 500, 490),
	}

	cfg := DefaultConfig()
	cfg.DistributionPercent = 50
	plan, err := Optimize(quotes, domain.ExactInput, cfg)
	require.NoError(t, err)
	assert.Equal(t, 100, plan.SumPercent())
	// The single-route 100% plan on routeA (990) beats splitting 50/50
	// (498+490=988) and beats routeB alone (950).
	assert.Len(t, plan.Routes, 1)
	assert.Equal(t, "0x2000000000000000000000000000000000000001", plan.Routes[0].Route.Pools[0].Address().Hex())
}

func TestOptimize_ForceCrossProtocolRejectsSingleProtocolWinner(t *testing.T) {
	tokenIn := testCurrency("0x1000000000000000000000000000000000000001", 1)
	tokenOut := testCurrency("0x1000000000000000000000000000000000000002", 1)
	v3 := v3Route(tokenIn, tokenOut, "0x2000000000000000000000000000000000000001")
	stable := stableRoute(tokenIn, tokenOut, 0x01)

	quotes := []domain.RouteWithQuote{
		rq(v3, 100, 1000, 990),
		rq(v3, 50, 500, 498),
		rq(stable, 50, 500, 480),
	}

	cfg := DefaultConfig()
	cfg.DistributionPercent = 50
	cfg.ForceCrossProtocol = true
	plan, err := Optimize(quotes, domain.ExactInput, cfg)
	require.NoError(t, err)
	assert.Equal(t, 100, plan.SumPercent())
	protocols := plan.Protocols()
	assert.GreaterOrEqual(t, len(protocols), 2)
}

func TestOptimize_NoPlanReaches100(t *testing.T) {
	tokenIn := testCurrency("0x1000000000000000000000000000000000000001", 1)
	tokenOut := testCurrency("0x1000000000000000000000000000000000000002", 1)
	route := v3Route(tokenIn, tokenOut, "0x2000000000000000000000000000000000000001")

	cfg := DefaultConfig()
	cfg.DistributionPercent = 50
	_, err := Optimize([]domain.RouteWithQuote{rq(route, 50, 500, 498)}, domain.ExactInput, cfg)
	assert.Error(t, err)
}

func TestOptimize_MinSplitsForcesMultiRoutePlan(t *testing.T) {
	tokenIn := testCurrency("0x1000000000000000000000000000000000000001", 1)
	tokenOut := testCurrency("0x1000000000000000000000000000000000000002", 1)
	routeA := v3Route(tokenIn, tokenOut, "0x2000000000000000000000000000000000000001")
	routeB := v3Route(tokenIn, tokenOut, "0x2000000000000000000000000000000000000002")

	// routeA alone at 100% (990) beats any 50/50 split, but MinSplits=2
	// must steer the DP toward the best plan that actually uses two
	// routes, rather than finding the single-route winner and rejecting it.
	quotes := []domain.RouteWithQuote{
		rq(routeA, 100, 1000, 990),
		rq(routeA, 50, 500, 498),
		rq(routeB, 50, 500, 490),
	}

	cfg := DefaultConfig()
	cfg.DistributionPercent = 50
	cfg.MinSplits = 2
	plan, err := Optimize(quotes, domain.ExactInput, cfg)
	require.NoError(t, err)
	assert.Equal(t, 100, plan.SumPercent())
	assert.Len(t, plan.Routes, 2)
}

func TestOptimize_MinSplitsUnsatisfiableErrors(t *testing.T) {
	tokenIn := testCurrency("0x1000000000000000000000000000000000000001", 1)
	tokenOut := testCurrency("0x1000000000000000000000000000000000000002", 1)
	route := v3Route(tokenIn, tokenOut, "0x2000000000000000000000000000000000000001")

	quotes := []domain.RouteWithQuote{rq(route, 100, 1000, 990)}

	cfg := DefaultConfig()
	cfg.DistributionPercent = 100
	cfg.MinSplits = 2
	_, err := Optimize(quotes, domain.ExactInput, cfg)
	assert.Error(t, err)
}

func TestOptimize_ExactOutputMinimizesRequiredInput(t *testing.T) {
	tokenIn := testCurrency("0x1000000000000000000000000000000000000001", 1)
	tokenOut := testCurrency("0x1000000000000000000000000000000000000002", 1)
	routeA := v3Route(tokenIn, tokenOut, "0x2000000000000000000000000000000000000001")
	routeB := v3Route(tokenIn, tokenOut, "0x2000000000000000000000000000000000000002")

	// For ExactOutput, Amount is the fixed output and Quote is the required
	// input - lower required input wins.
	quotes := []domain.RouteWithQuote{
		rq(routeA, 100, 990, 1000),
		rq(routeB, 100, 990, 1050),
	}

	cfg := DefaultConfig()
	cfg.DistributionPercent = 100
	plan, err := Optimize(quotes, domain.ExactOutput, cfg)
	require.NoError(t, err)
	assert.Equal(t, "0x2000000000000000000000000000000000000001", plan.Routes[0].Route.Pools[0].Address().Hex())
}
