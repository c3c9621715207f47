package quoter

import (
	"context"
	"math/big"

	"dex-aggregator/internal/domain"
)

// V2Quoter computes constant-product swap output off-chain, the same
// 997/1000 fee formula as the teacher's PriceCalculator.CalculateOutput,
// generalized from a single pool to an arbitrary-length route and to
// both trade directions.
type V2Quoter struct{}

func NewV2Quoter() *V2Quoter { return &V2Quoter{} }

var (
	feeNumerator   = big.NewInt(997)
	feeDenominator = big.NewInt(1000)
)

func (q *V2Quoter) Quote(ctx context.Context, routes []domain.Route, amount domain.Amount, tradeType domain.TradeType, percents []int) ([]RouteQuotes, error) {
	out := make([]RouteQuotes, 0, len(routes))
	for _, route := range routes {
		rq := RouteQuotes{Route: route}
		for _, pct := range percents {
			fraction := amount.Fraction(pct)
			var result *domain.Amount
			var ok bool
			if tradeType == domain.ExactInput {
				result, ok = quoteExactInPath(route, fraction)
			} else {
				result, ok = quoteExactOutPath(route, fraction)
			}
			aq := AmountQuote{Percent: pct, AmountIn: fraction}
			if ok {
				aq.Quote = result
			}
			rq.Quotes = append(rq.Quotes, aq)
		}
		out = append(out, rq)
	}
	return out, nil
}

func quoteExactInPath(route domain.Route, amountIn domain.Amount) (*domain.Amount, bool) {
	current := amountIn
	token := route.Input
	for _, p := range route.Pools {
		v2, ok := p.(*domain.V2Pool)
		if !ok {
			return nil, false
		}
		out, ok := quoteExactInSingle(v2, token, current)
		if !ok {
			return nil, false
		}
		next, ok := v2.Other(token)
		if !ok {
			return nil, false
		}
		current = *out
		token = next
	}
	return &current, true
}

func quoteExactInSingle(pool *domain.V2Pool, tokenIn domain.Currency, amountIn domain.Amount) (*domain.Amount, bool) {
	reserveIn, reserveOut, ok := pool.ReservesFor(tokenIn)
	if !ok || reserveIn.Sign() == 0 || reserveOut.Sign() == 0 {
		return nil, false
	}
	tokenOut, _ := pool.Other(tokenIn)

	amountInWei := amountIn.Quotient()
	amountInWithFee := new(big.Int).Mul(amountInWei, feeNumerator)
	numerator := new(big.Int).Mul(reserveOut, amountInWithFee)
	denominator := new(big.Int).Mul(reserveIn, feeDenominator)
	denominator.Add(denominator, amountInWithFee)
	if denominator.Sign() == 0 {
		return nil, false
	}
	amountOutWei := new(big.Int).Div(numerator, denominator)
	if amountOutWei.Sign() <= 0 {
		return nil, false
	}

	result := domain.NewAmountFromBigInt(tokenOut, amountOutWei)
	return &result, true
}

func quoteExactOutPath(route domain.Route, amountOut domain.Amount) (*domain.Amount, bool) {
	// Walk the route in reverse: each hop's required input becomes the
	// previous hop's required output.
	current := amountOut
	for i := len(route.Pools) - 1; i >= 0; i-- {
		v2, ok := route.Pools[i].(*domain.V2Pool)
		if !ok {
			return nil, false
		}
		in, ok := quoteExactOutSingle(v2, current)
		if !ok {
			return nil, false
		}
		current = *in
	}
	return &current, true
}

func quoteExactOutSingle(pool *domain.V2Pool, amountOut domain.Amount) (*domain.Amount, bool) {
	reserveIn, reserveOut, ok := pool.ReservesFor(reverseTokenFor(pool, amountOut.Currency))
	if !ok {
		return nil, false
	}
	amountOutWei := amountOut.Quotient()
	if reserveOut.Cmp(amountOutWei) <= 0 {
		return nil, false
	}

	numerator := new(big.Int).Mul(reserveIn, amountOutWei)
	numerator.Mul(numerator, feeDenominator)
	denominator := new(big.Int).Sub(reserveOut, amountOutWei)
	denominator.Mul(denominator, feeNumerator)
	if denominator.Sign() <= 0 {
		return nil, false
	}
	amountInWei := new(big.Int).Div(numerator, denominator)
	amountInWei.Add(amountInWei, big.NewInt(1)) // round up, matching on-chain getAmountIn

	tokenIn, _ := pool.Other(amountOut.Currency)
	result := domain.NewAmountFromBigInt(tokenIn, amountInWei)
	return &result, true
}

// reverseTokenFor returns the token on the opposite side of amountOut's
// currency within pool, i.e. the token that would be supplied as input.
func reverseTokenFor(pool *domain.V2Pool, tokenOut domain.Currency) domain.Currency {
	other, _ := pool.Other(tokenOut)
	return other
}
