package quoter

import (
	"context"
	"math/big"
	"testing"

	"dex-aggregator/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// identityQuoter echoes amount.Fraction(pct) back as the quote for every
// percent, scaled by a fixed rate - good enough to make the scaling
// relationship between percent steps checkable without modeling real
// Stable-pool math.
type identityQuoter struct {
	rate   *big.Rat
	out    domain.Currency
	calls  []domain.Amount
}

func (q *identityQuoter) Quote(ctx context.Context, routes []domain.Route, amount domain.Amount, tradeType domain.TradeType, percents []int) ([]RouteQuotes, error) {
	out := make([]RouteQuotes, 0, len(routes))
	for _, route := range routes {
		rq := RouteQuotes{Route: route}
		for _, pct := range percents {
			fraction := amount.Fraction(pct)
			q.calls = append(q.calls, fraction)
			scaled := new(big.Rat).Mul(fraction.Value, q.rate)
			quote := domain.NewAmountFromRat(q.out, scaled)
			rq.Quotes = append(rq.Quotes, AmountQuote{Percent: pct, AmountIn: fraction, Quote: &quote})
		}
		out = append(out, rq)
	}
	return out, nil
}

// TestDispatcher_MixedRouteScalesEachPercentIndependently guards against
// re-fractioning one percent step's amount as the "whole" for every other
// step: the second (Stable) section must see each step's own input amount,
// not percents[0]'s amount re-fractioned through percents.
func TestDispatcher_MixedRouteScalesEachPercentIndependently(t *testing.T) {
	a, b, c := cur("0x1", 18), cur("0x2", 18), cur("0x3", 18)
	pool1 := &domain.V2Pool{Token0: a, Token1: b, Reserve0: big.NewInt(10_000_000), Reserve1: big.NewInt(10_000_000)}

	var stableID [32]byte
	stableID[31] = 0x01
	pool2 := &domain.StablePool{ID: stableID, TokensList: []domain.Currency{b, c}, Chain: 1}

	fake := &identityQuoter{rate: big.NewRat(1, 1), out: c}
	d := NewDispatcher(NewV2Quoter(), nil, fake)

	route := domain.Route{Pools: []domain.Pool{pool1, pool2}, Input: a, Output: c}
	amount := domain.NewAmountFromBigInt(a, big.NewInt(1_000_000))
	percents := []int{10, 100}

	results, err := d.Quote(context.Background(), []domain.Route{route}, amount, domain.ExactInput, percents)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Len(t, results[0].Quotes, 2)

	tenPct := results[0].Quotes[0]
	hundredPct := results[0].Quotes[1]
	require.NotNil(t, tenPct.Quote)
	require.NotNil(t, hundredPct.Quote)

	// Section 2 (the fake Stable quoter) must have been called once per
	// percent step, each with that step's own V2-leg output, not a single
	// shared base amount used for every step.
	require.Len(t, fake.calls, 2)
	assert.NotEqual(t, fake.calls[0].Quotient().String(), fake.calls[1].Quotient().String())

	ratio := new(big.Rat).SetFrac(hundredPct.Quote.Quotient(), tenPct.Quote.Quotient())
	ratioF, _ := ratio.Float64()
	// The 10%/100% V2 leg outputs are themselves roughly 1:10 (constant
	// product curves are slightly sub-linear), and the fake Stable leg is
	// linear, so the end-to-end ratio should stay near 10 - the shared-base
	// bug collapsed this down to roughly 1 (both steps quoted off the same
	// 10% amount).
	assert.InDelta(t, 10.0, ratioF, 1.5)
}

func TestDispatcher_MixedRouteRejectsExactOutput(t *testing.T) {
	a, b := cur("0x1", 18), cur("0x2", 18)
	pool1 := &domain.V2Pool{Token0: a, Token1: b, Reserve0: big.NewInt(1_000_000), Reserve1: big.NewInt(1_000_000)}
	d := NewDispatcher(NewV2Quoter(), nil, nil)

	route := domain.Route{Pools: []domain.Pool{pool1}, Input: a, Output: b}
	amount := domain.NewAmountFromBigInt(b, big.NewInt(1000))

	_, err := d.quoteMixedRoute(context.Background(), route, amount, domain.ExactOutput, []int{100})
	assert.ErrorIs(t, err, domain.ErrUnsupportedTradeType)
}
