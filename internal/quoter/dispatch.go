package quoter

import (
	"context"

	"dex-aggregator/internal/domain"
)

// Dispatcher routes each request to the quoter registered for the route's
// declared protocol, and handles Mixed routes by quoting hop-by-hop across
// whichever per-protocol quoter owns each leg - necessary since neither
// V3Quoter nor StableQuoter alone can simulate a route that crosses both.
type Dispatcher struct {
	v2     Quoter
	v3     Quoter
	stable Quoter
}

func NewDispatcher(v2, v3, stable Quoter) *Dispatcher {
	return &Dispatcher{v2: v2, v3: v3, stable: stable}
}

func (d *Dispatcher) Quote(ctx context.Context, routes []domain.Route, amount domain.Amount, tradeType domain.TradeType, percents []int) ([]RouteQuotes, error) {
	var v2Routes, v3Routes, stableRoutes, mixedRoutes []domain.Route
	for _, r := range routes {
		switch r.Protocol() {
		case domain.ProtocolV2:
			v2Routes = append(v2Routes, r)
		case domain.ProtocolV3:
			v3Routes = append(v3Routes, r)
		case domain.ProtocolStable, domain.ProtocolStableWrapper:
			stableRoutes = append(stableRoutes, r)
		default:
			mixedRoutes = append(mixedRoutes, r)
		}
	}

	var out []RouteQuotes
	groups := []struct {
		routes []domain.Route
		q      Quoter
	}{
		{v2Routes, d.v2},
		{v3Routes, d.v3},
		{stableRoutes, d.stable},
	}
	for _, g := range groups {
		if len(g.routes) == 0 || g.q == nil {
			continue
		}
		rq, err := g.q.Quote(ctx, g.routes, amount, tradeType, percents)
		if err != nil {
			return nil, err
		}
		out = append(out, rq...)
	}

	for _, r := range mixedRoutes {
		rq, err := d.quoteMixedRoute(ctx, r, amount, tradeType, percents)
		if err != nil {
			continue // a mixed route that can't be simulated is dropped, not fatal (§4.7)
		}
		out = append(out, rq)
	}

	return out, nil
}

// quoteMixedRoute walks a Mixed route section by section (maximal runs of
// one protocol, same partition the gas model uses), feeding each section's
// output amount into the next section's input - only supported for
// EXACT_INPUT (§4.7).
func (d *Dispatcher) quoteMixedRoute(ctx context.Context, route domain.Route, amount domain.Amount, tradeType domain.TradeType, percents []int) (RouteQuotes, error) {
	if tradeType != domain.ExactInput {
		return RouteQuotes{}, domain.ErrUnsupportedTradeType
	}

	sections := sectionRoutes(route)
	current := make([]*domain.Amount, len(percents))
	for i, pct := range percents {
		amt := amount.Fraction(pct)
		current[i] = &amt
	}

	// Each percent step already holds its own section-input amount, so every
	// step must be quoted independently against percents=[100] (an exact
	// pass-through via Amount.Fraction) rather than re-fractioned through a
	// single shared base - using one step's amount as the "whole" for every
	// other step would scale every step but that one by the wrong factor.
	for _, section := range sections {
		q := d.quoterFor(section.Protocol())
		if q == nil {
			return RouteQuotes{}, domain.ErrUnsupportedTradeType
		}
		next := make([]*domain.Amount, len(percents))
		for i := range percents {
			if current[i] == nil {
				continue
			}
			rqs, err := q.Quote(ctx, []domain.Route{section}, *current[i], domain.ExactInput, []int{100})
			if err != nil {
				return RouteQuotes{}, err
			}
			if len(rqs) == 0 || len(rqs[0].Quotes) == 0 {
				continue
			}
			next[i] = rqs[0].Quotes[0].Quote
		}
		current = next
	}

	quotes := make([]AmountQuote, len(percents))
	for i, pct := range percents {
		quotes[i] = AmountQuote{Percent: pct, AmountIn: amount.Fraction(pct), Quote: current[i]}
	}
	return RouteQuotes{Route: route, Quotes: quotes}, nil
}

func (d *Dispatcher) quoterFor(p domain.Protocol) Quoter {
	switch p {
	case domain.ProtocolV2:
		return d.v2
	case domain.ProtocolV3:
		return d.v3
	case domain.ProtocolStable, domain.ProtocolStableWrapper:
		return d.stable
	default:
		return nil
	}
}

// sectionRoutes splits a Mixed route into maximal same-protocol
// sub-routes, each a standalone Route whose Input/Output are the
// section's boundary tokens.
func sectionRoutes(route domain.Route) []domain.Route {
	path := route.TokenPath()
	var sections []domain.Route
	start := 0
	for i := 1; i <= len(route.Pools); i++ {
		if i == len(route.Pools) || route.Pools[i].Protocol() != route.Pools[start].Protocol() {
			sections = append(sections, domain.Route{
				Pools:  route.Pools[start:i],
				Input:  path[start],
				Output: path[i],
			})
			start = i
		}
	}
	return sections
}
