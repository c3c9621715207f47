package quoter

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"dex-aggregator/internal/domain"
	"dex-aggregator/internal/multicall"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// quoterV2ABIJSON is the Uniswap QuoterV2 interface: quoteExactInputSingle
// /quoteExactOutputSingle simulate a swap and additionally return
// sqrtPriceX96After and initializedTicksCrossed, which the gas model
// needs (spec.md §4.7 "V3 additionally returns sqrt-price-after and
// initialized-ticks-crossed").
const quoterV2ABIJSON = `[
	{"inputs":[{"components":[
		{"internalType":"address","name":"tokenIn","type":"address"},
		{"internalType":"address","name":"tokenOut","type":"address"},
		{"internalType":"uint256","name":"amountIn","type":"uint256"},
		{"internalType":"uint24","name":"fee","type":"uint24"},
		{"internalType":"uint160","name":"sqrtPriceLimitX96","type":"uint160"}
	],"internalType":"struct IQuoterV2.QuoteExactInputSingleParams","name":"params","type":"tuple"}],
	 "name":"quoteExactInputSingle",
	 "outputs":[
		{"internalType":"uint256","name":"amountOut","type":"uint256"},
		{"internalType":"uint160","name":"sqrtPriceX96After","type":"uint160"},
		{"internalType":"uint32","name":"initializedTicksCrossed","type":"uint32"},
		{"internalType":"uint256","name":"gasEstimate","type":"uint256"}
	 ],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[{"components":[
		{"internalType":"address","name":"tokenIn","type":"address"},
		{"internalType":"address","name":"tokenOut","type":"address"},
		{"internalType":"uint256","name":"amount","type":"uint256"},
		{"internalType":"uint24","name":"fee","type":"uint24"},
		{"internalType":"uint160","name":"sqrtPriceLimitX96","type":"uint160"}
	],"internalType":"struct IQuoterV2.QuoteExactOutputSingleParams","name":"params","type":"tuple"}],
	 "name":"quoteExactOutputSingle",
	 "outputs":[
		{"internalType":"uint256","name":"amountIn","type":"uint256"},
		{"internalType":"uint160","name":"sqrtPriceX96After","type":"uint160"},
		{"internalType":"uint32","name":"initializedTicksCrossed","type":"uint32"},
		{"internalType":"uint256","name":"gasEstimate","type":"uint256"}
	 ],"stateMutability":"nonpayable","type":"function"}
]`

// V3Quoter simulates V3 swaps against a deployed QuoterV2 contract via
// multicall, one call per (route-hop, fraction) pair.
type V3Quoter struct {
	mc      *multicall.Client
	quoter  common.Address
	abi     abi.ABI
	logger  *zap.Logger
}

func NewV3Quoter(mc *multicall.Client, quoterAddr common.Address, logger *zap.Logger) (*V3Quoter, error) {
	parsed, err := abi.JSON(strings.NewReader(quoterV2ABIJSON))
	if err != nil {
		return nil, fmt.Errorf("quoter: parse quoterv2 abi: %w", err)
	}
	return &V3Quoter{mc: mc, quoter: quoterAddr, abi: parsed, logger: logger}, nil
}

func (q *V3Quoter) Quote(ctx context.Context, routes []domain.Route, amount domain.Amount, tradeType domain.TradeType, percents []int) ([]RouteQuotes, error) {
	out := make([]RouteQuotes, len(routes))
	for i, route := range routes {
		rq, err := q.quoteRoute(ctx, route, amount, tradeType, percents)
		if err != nil {
			return nil, err
		}
		out[i] = rq
	}
	return out, nil
}

// quoteRoute walks a route hop by hop, at every fraction, in one multicall
// batch per hop (so a multi-hop route still costs len(hops) round trips,
// not len(hops)*len(percents)).
func (q *V3Quoter) quoteRoute(ctx context.Context, route domain.Route, amount domain.Amount, tradeType domain.TradeType, percents []int) (RouteQuotes, error) {
	rq := RouteQuotes{Route: route}
	quotes := make([]AmountQuote, len(percents))
	for i, pct := range percents {
		quotes[i] = AmountQuote{Percent: pct, AmountIn: amount.Fraction(pct)}
	}

	hops := route.Pools
	if tradeType == domain.ExactOutput {
		hops = reversePools(hops)
	}
	path := route.TokenPath()

	current := make([]*domain.Amount, len(percents))
	for i := range quotes {
		amt := quotes[i].AmountIn
		current[i] = &amt
	}

	for hopIdx, p := range hops {
		v3, ok := p.(*domain.V3Pool)
		if !ok {
			return rq, nil // non-V3 hop: not this quoter's job, leave quotes nil
		}

		var tokenIn, tokenOut domain.Currency
		if tradeType == domain.ExactInput {
			tokenIn, tokenOut = path[hopIdx], path[hopIdx+1]
		} else {
			originalIdx := len(route.Pools) - 1 - hopIdx
			tokenIn, tokenOut = path[originalIdx], path[originalIdx+1]
		}

		method := q.methodFor(tradeType)
		paramSets := make([][]interface{}, 0, len(percents))
		activeIdx := make([]int, 0, len(percents))
		for i, cur := range current {
			if cur == nil {
				continue
			}
			paramSets = append(paramSets, []interface{}{q.packParams(tradeType, tokenIn, tokenOut, v3.Fee, cur.Quotient())})
			activeIdx = append(activeIdx, i)
		}
		if len(paramSets) == 0 {
			break
		}

		results, err := q.mc.SameFunctionOneContractManyParams(ctx, q.quoter, &method, paramSets, "latest")
		if err != nil {
			return rq, fmt.Errorf("quoter: v3 quote batch: %w", err)
		}

		for j, idx := range activeIdx {
			res := results[j]
			if !res.Success {
				current[idx] = nil
				continue
			}
			values, err := method.Outputs.Unpack(res.Return)
			if err != nil || len(values) < 3 {
				current[idx] = nil
				continue
			}
			amountOut, _ := values[0].(*big.Int)
			sqrtAfter, _ := values[1].(*big.Int)
			ticksCrossed, _ := values[2].(uint32)
			if amountOut == nil || amountOut.Sign() <= 0 {
				current[idx] = nil
				continue
			}

			resultToken := tokenOut
			if tradeType == domain.ExactOutput {
				resultToken = tokenIn
			}
			next := domain.NewAmountFromBigInt(resultToken, amountOut)
			current[idx] = &next
			quotes[idx].SqrtPriceAfterX96 = append(quotes[idx].SqrtPriceAfterX96, sqrtAfter)
			quotes[idx].InitializedTicksCrossed = append(quotes[idx].InitializedTicksCrossed, int(ticksCrossed))
		}
	}

	for i := range quotes {
		quotes[i].Quote = current[i]
	}
	rq.Quotes = quotes
	return rq, nil
}

func (q *V3Quoter) methodFor(tradeType domain.TradeType) abi.Method {
	if tradeType == domain.ExactInput {
		return q.abi.Methods["quoteExactInputSingle"]
	}
	return q.abi.Methods["quoteExactOutputSingle"]
}

func (q *V3Quoter) packParams(tradeType domain.TradeType, tokenIn, tokenOut domain.Currency, fee domain.FeeTier, amount *big.Int) interface{} {
	if tradeType == domain.ExactOutput {
		// QuoteExactOutputSingleParams names its amount field "amount".
		return struct {
			TokenIn           common.Address
			TokenOut          common.Address
			Amount            *big.Int
			Fee               *big.Int
			SqrtPriceLimitX96 *big.Int
		}{tokenIn.Address, tokenOut.Address, amount, big.NewInt(int64(fee)), big.NewInt(0)}
	}
	return struct {
		TokenIn           common.Address
		TokenOut          common.Address
		AmountIn          *big.Int
		Fee               *big.Int
		SqrtPriceLimitX96 *big.Int
	}{
		TokenIn:           tokenIn.Address,
		TokenOut:          tokenOut.Address,
		AmountIn:          amount,
		Fee:               big.NewInt(int64(fee)),
		SqrtPriceLimitX96: big.NewInt(0),
	}
}

func reversePools(pools []domain.Pool) []domain.Pool {
	out := make([]domain.Pool, len(pools))
	for i, p := range pools {
		out[len(pools)-1-i] = p
	}
	return out
}
