// Package quoter implements C7: on-chain quoting of a route at every
// distributionPercent fraction of the trade amount. Only V2's constant-
// product math is computed off-chain (it is pure and cheap, generalized
// from the teacher's PriceCalculator); V3 and Stable delegate to their
// real quoter contracts through multicall, per spec.md §4.7's "avoid
// reimplementing per-protocol pricing math off-chain" design decision.
package quoter

import (
	"context"
	"math/big"

	"dex-aggregator/internal/domain"
)

// AmountQuote is one fraction's on-chain quoting result; Quote is nil if
// the quoter reverted for that fraction (§4.7 "skipped, not fatal").
type AmountQuote struct {
	Percent                 int
	AmountIn                domain.Amount
	Quote                   *domain.Amount
	SqrtPriceAfterX96       []*big.Int
	InitializedTicksCrossed []int
}

// RouteQuotes is one route's quotes across every fraction step.
type RouteQuotes struct {
	Route  domain.Route
	Quotes []AmountQuote
}

// Quoter fetches quotes for every route at every fraction step. EXACT_INPUT
// is the only supported TradeType for Stable, StableWrapper and Mixed
// (§4.7) - callers must not invoke a Quoter with ExactOutput for those
// protocols; ErrUnsupportedTradeType is returned if they do.
type Quoter interface {
	Quote(ctx context.Context, routes []domain.Route, amount domain.Amount, tradeType domain.TradeType, percents []int) ([]RouteQuotes, error)
}
