package domain

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// RouteWithQuote is a route plus the fraction of the whole trade it
// carries, its raw on-chain quote for that fraction, the gas estimate, and
// the quote expressed in quote-token, USD, and optionally a caller-
// specified gas token (spec.md §3).
type RouteWithQuote struct {
	Route    Route
	Percent  int // integer percent, multiple of distributionPercent
	Amount   Amount // the input (exact-in) or output (exact-out) amount for this fraction
	Quote    Amount // the on-chain quote: output (exact-in) or required input (exact-out)

	GasEstimate        *big.Int
	GasCostInQuoteToken decimal.Decimal
	GasCostInUSD        decimal.Decimal
	GasCostInGasToken   *decimal.Decimal // nil if no gasToken override was requested

	// V3-only diagnostics feeding the gas model (§4.7).
	SqrtPriceAfterX96        []*big.Int
	InitializedTicksCrossed  []int
}

// GasAdjustedQuote returns quote-gasCost for exact-in, quote+gasCost for
// exact-out (both in quote-token units), the comparator the split
// optimizer (§4.9) maximizes/minimizes.
func (rq RouteWithQuote) GasAdjustedQuote(tradeType TradeType) decimal.Decimal {
	quoteDec := rq.Quote.Decimal()
	if tradeType == ExactInput {
		return quoteDec.Sub(rq.GasCostInQuoteToken)
	}
	return quoteDec.Add(rq.GasCostInQuoteToken)
}

// Plan is the final result of a Route call: an ordered list of
// RouteWithQuote whose fractions sum to exactly 100, aggregate quote,
// gas-adjusted quote, gas in wei/USD/quote-token, trade type, block
// number, and the opaque call-data assembled by the downstream SDK.
type Plan struct {
	TradeType   TradeType
	BlockNumber uint64

	Routes []RouteWithQuote

	AmountIn  Amount
	AmountOut Amount

	QuoteAmount       Amount
	GasAdjustedAmount decimal.Decimal

	GasUseEstimate      *big.Int
	GasCostInUSD        decimal.Decimal
	GasCostInQuoteToken decimal.Decimal

	// WrapsInput/UnwrapsOutput record whether the caller's native currency
	// was wrapped/unwrapped at the edges (§4.10 step 2 and step 8).
	WrapsInput     bool
	UnwrapsOutput  bool

	CallData []byte // opaque, produced by the downstream SDK stand-in (internal/router/calldata.go)
}

// Protocols returns the distinct protocols drawn on by the plan's routes,
// used by forceCrossProtocol validation (§4.9) and by API responses.
func (p Plan) Protocols() []Protocol {
	seen := map[Protocol]struct{}{}
	var out []Protocol
	for _, r := range p.Routes {
		proto := r.Route.Protocol()
		if _, ok := seen[proto]; !ok {
			seen[proto] = struct{}{}
			out = append(out, proto)
		}
	}
	return out
}

// SumPercent returns the sum of all route fractions - must equal 100 for a
// valid plan (spec.md §8 "Fraction closure").
func (p Plan) SumPercent() int {
	total := 0
	for _, r := range p.Routes {
		total += r.Percent
	}
	return total
}
