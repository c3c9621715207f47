// Package splitter implements C9: given every route's on-chain quote at
// every fraction step, choose the (route, fraction) combination that
// maximizes gas-adjusted output (exact-in) or minimizes gas-adjusted
// required input (exact-out), subject to a split-count window.
//
// The teacher has no analogue to this component - Router.findOptimalPath
// only sorts candidate paths by raw output and takes the first. Optimize
// generalizes that same "sort descending, take the best" comparator into
// a bounded subset-sum dynamic program over percentage buckets, since a
// single best path is just the degenerate one-split case.
package splitter

import (
	"fmt"
	"math/big"
	"sort"
	"strings"

	"dex-aggregator/internal/domain"

	"github.com/shopspring/decimal"
)

// Config mirrors the RoutingConfig fields spec.md §6 assigns to C9.
type Config struct {
	DistributionPercent int
	MinSplits           int
	MaxSplits           int
	ForceCrossProtocol  bool
}

func DefaultConfig() Config {
	return Config{
		DistributionPercent: 10,
		MinSplits:           1,
		MaxSplits:           7,
		ForceCrossProtocol:  false,
	}
}

// plan is the DP's working representation of a candidate (route, fraction)
// combination; aggregate is already gas-adjusted and expressed in
// quote-token units, comparable directly across routes and protocols.
type plan struct {
	routes    []domain.RouteWithQuote
	used      map[string]struct{}
	protocols map[domain.Protocol]struct{}
	aggregate decimal.Decimal
}

func emptyPlan() *plan {
	return &plan{
		used:      map[string]struct{}{},
		protocols: map[domain.Protocol]struct{}{},
		aggregate: decimal.Zero,
	}
}

func (p *plan) extend(rq domain.RouteWithQuote, tradeType domain.TradeType) *plan {
	used := make(map[string]struct{}, len(p.used)+1)
	for k := range p.used {
		used[k] = struct{}{}
	}
	used[routeIdentity(rq.Route)] = struct{}{}

	protocols := make(map[domain.Protocol]struct{}, len(p.protocols)+1)
	for k := range p.protocols {
		protocols[k] = struct{}{}
	}
	protocols[rq.Route.Protocol()] = struct{}{}

	routes := make([]domain.RouteWithQuote, len(p.routes), len(p.routes)+1)
	copy(routes, p.routes)
	routes = append(routes, rq)

	return &plan{
		routes:    routes,
		used:      used,
		protocols: protocols,
		aggregate: p.aggregate.Add(rq.GasAdjustedQuote(tradeType)),
	}
}

// better reports whether a should win over b per spec.md §4.9: exact-in
// maximizes the aggregate, exact-out minimizes it; ties break by fewer
// splits, then by ascending route id.
func better(tradeType domain.TradeType, a, b *plan) bool {
	cmp := a.aggregate.Cmp(b.aggregate)
	if cmp != 0 {
		if tradeType == domain.ExactInput {
			return cmp > 0
		}
		return cmp < 0
	}
	if len(a.routes) != len(b.routes) {
		return len(a.routes) < len(b.routes)
	}
	return planID(a) < planID(b)
}

func planID(p *plan) string {
	ids := make([]string, len(p.routes))
	for i, rq := range p.routes {
		ids[i] = routeIdentity(rq.Route)
	}
	sort.Strings(ids)
	return strings.Join(ids, "|")
}

// routeIdentity uniquely identifies a route by its ordered pool identities,
// independent of which fraction it is quoted at - two RouteWithQuote
// entries for the same route at different percents must count as the same
// route for the "no duplicate route in a plan" rule.
func routeIdentity(r domain.Route) string {
	ids := make([]string, len(r.Pools))
	for i, p := range r.Pools {
		ids[i] = domain.PoolIdentity(p)
	}
	return r.Input.Key() + ">" + strings.Join(ids, "->") + ">" + r.Output.Key()
}

// Optimize runs the bounded subset-sum DP described in spec.md §4.9 over
// every (route, fraction) quote and returns the winning combination.
// routeQuotes must contain only fractions that are positive multiples of
// cfg.DistributionPercent, and every entry must carry a valid on-chain
// quote (callers filter reverted fractions out before calling Optimize).
func Optimize(routeQuotes []domain.RouteWithQuote, tradeType domain.TradeType, cfg Config) (*domain.Plan, error) {
	step := cfg.DistributionPercent
	if step <= 0 || 100%step != 0 {
		return nil, fmt.Errorf("splitter: distributionPercent must evenly divide 100, got %d", step)
	}
	steps := 100 / step

	maxSplits := cfg.MaxSplits
	if maxSplits <= 0 {
		maxSplits = steps
	}
	minSplits := cfg.MinSplits
	if minSplits <= 0 {
		minSplits = 1
	}

	byFraction := make(map[int][]domain.RouteWithQuote)
	for _, rq := range routeQuotes {
		if rq.Percent <= 0 || rq.Percent%step != 0 {
			continue
		}
		byFraction[rq.Percent] = append(byFraction[rq.Percent], rq)
	}

	// anyDP[bucket][splits] is the best plan reaching bucket*step% of the
	// trade using exactly splits routes; crossDP is the same restricted to
	// plans that have already mixed at least two protocols. Indexing by
	// split count, not just bucket, lets the MaxSplits transition bound and
	// the MinSplits result filter both apply to the same search space,
	// instead of picking an unconstrained winner and rejecting it after
	// the fact.
	anyDP := make([][]*plan, steps+1)
	crossDP := make([][]*plan, steps+1)
	for b := range anyDP {
		anyDP[b] = make([]*plan, maxSplits+1)
		crossDP[b] = make([]*plan, maxSplits+1)
	}
	anyDP[0][0] = emptyPlan()

	for bucket := 1; bucket <= steps; bucket++ {
		for fBucket := 1; fBucket <= bucket; fBucket++ {
			f := fBucket * step
			candidates, ok := byFraction[f]
			if !ok {
				continue
			}
			baseBucket := bucket - fBucket
			for _, rq := range candidates {
				id := routeIdentity(rq.Route)

				for splits := 0; splits < maxSplits; splits++ {
					if base := anyDP[baseBucket][splits]; base != nil {
						if _, dup := base.used[id]; !dup {
							cand := base.extend(rq, tradeType)
							if anyDP[bucket][splits+1] == nil || better(tradeType, cand, anyDP[bucket][splits+1]) {
								anyDP[bucket][splits+1] = cand
							}
							if len(cand.protocols) >= 2 {
								if crossDP[bucket][splits+1] == nil || better(tradeType, cand, crossDP[bucket][splits+1]) {
									crossDP[bucket][splits+1] = cand
								}
							}
						}
					}
					if base := crossDP[baseBucket][splits]; base != nil {
						if _, dup := base.used[id]; !dup {
							cand := base.extend(rq, tradeType)
							if crossDP[bucket][splits+1] == nil || better(tradeType, cand, crossDP[bucket][splits+1]) {
								crossDP[bucket][splits+1] = cand
							}
						}
					}
				}
			}
		}
	}

	table := anyDP
	if cfg.ForceCrossProtocol {
		table = crossDP
	}

	var winner *plan
	for splits := minSplits; splits <= maxSplits; splits++ {
		cand := table[steps][splits]
		if cand == nil {
			continue
		}
		if winner == nil || better(tradeType, cand, winner) {
			winner = cand
		}
	}
	if winner == nil {
		return nil, fmt.Errorf("splitter: no plan reaches 100%% of the trade with between %d and %d splits", minSplits, maxSplits)
	}

	return assemblePlan(winner, tradeType), nil
}

func assemblePlan(p *plan, tradeType domain.TradeType) *domain.Plan {
	routes := append([]domain.RouteWithQuote{}, p.routes...)
	sort.Slice(routes, func(i, j int) bool { return routes[i].Percent > routes[j].Percent })

	result := &domain.Plan{
		TradeType:           tradeType,
		Routes:              routes,
		GasAdjustedAmount:   p.aggregate,
		GasCostInQuoteToken: decimal.Zero,
		GasCostInUSD:        decimal.Zero,
	}

	quoteSum := decimal.Zero
	inSum := decimal.Zero
	outSum := decimal.Zero
	gasUnits := big.NewInt(0)

	for _, rq := range routes {
		quoteSum = quoteSum.Add(rq.Quote.Decimal())
		result.GasCostInQuoteToken = result.GasCostInQuoteToken.Add(rq.GasCostInQuoteToken)
		result.GasCostInUSD = result.GasCostInUSD.Add(rq.GasCostInUSD)
		if rq.GasEstimate != nil {
			gasUnits.Add(gasUnits, rq.GasEstimate)
		}

		if tradeType == domain.ExactInput {
			inSum = inSum.Add(rq.Amount.Decimal())
			outSum = outSum.Add(rq.Quote.Decimal())
		} else {
			inSum = inSum.Add(rq.Quote.Decimal())
			outSum = outSum.Add(rq.Amount.Decimal())
		}
	}

	result.GasUseEstimate = gasUnits
	result.QuoteAmount = domain.NewAmountFromRat(routes[0].Quote.Currency, quoteSum.Rat())
	if tradeType == domain.ExactInput {
		result.AmountIn = domain.NewAmountFromRat(routes[0].Amount.Currency, inSum.Rat())
		result.AmountOut = domain.NewAmountFromRat(routes[0].Quote.Currency, outSum.Rat())
	} else {
		result.AmountIn = domain.NewAmountFromRat(routes[0].Quote.Currency, inSum.Rat())
		result.AmountOut = domain.NewAmountFromRat(routes[0].Amount.Currency, outSum.Rat())
	}

	return result
}
