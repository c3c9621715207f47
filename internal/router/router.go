// Package router implements C10: the single entry point driving candidate
// selection (C5), route enumeration (C6), on-chain quoting (C7), the gas
// model (C8) and the split optimizer (C9) for one swap request, generalized
// from the teacher's Router.GetBestQuote - same validate-then-fan-out-then-
// pick-best shape, same bounded-concurrency worker fan-out
// (calculatePathsConcurrently), but driving a DP split over many protocols
// instead of sorting one flat list of paths by raw output.
package router

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"dex-aggregator/internal/chain"
	"dex-aggregator/internal/domain"
	"dex-aggregator/internal/enumerator"
	"dex-aggregator/internal/gasmodel"
	"dex-aggregator/internal/poolprovider"
	"dex-aggregator/internal/quoter"
	"dex-aggregator/internal/selector"
	"dex-aggregator/internal/splitter"
	"dex-aggregator/internal/subgraph"
	"dex-aggregator/internal/tokenprovider"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Selector is the subset of selector.Selector the router depends on - an
// interface so tests can fake candidate selection without a live subgraph.
type Selector interface {
	Select(ctx context.Context, chainID int64, tokenIn, tokenOut domain.Currency, tradeType domain.TradeType, protocol domain.Protocol) ([]subgraph.PoolDescriptor, error)
}

// StableWrapperProvider mirrors poolprovider.StableWrapperProvider's one
// method - redeclared as an interface here so router tests can fake it.
type StableWrapperProvider interface {
	GetStableWrapperPools(ctx context.Context, underlying map[[32]byte]*domain.StablePool, keys []poolprovider.StableKey, blockTag string) (map[common.Address]*domain.StableWrapperPool, error)
}

// L1FeeProvider is satisfied by *gasmodel.L1FeeProvider; nil on chains
// without an L1 data fee.
type L1FeeProvider interface {
	EstimateL1Fee(ctx context.Context, txData []byte) (*big.Int, error)
}

// CallDataBuilder is the downstream call-data SDK stand-in (spec.md §1
// Non-goals: "on-chain contracts, node-RPC transport internals... and
// producing signable call-data" is explicitly out of scope). Router calls
// into it but ships only a diagnostic stub (calldata.go).
type CallDataBuilder interface {
	Build(ctx context.Context, plan *domain.Plan, originalTokenIn, originalTokenOut common.Address, wrapsInput, unwrapsOutput bool) ([]byte, error)
}

// Config is the RoutingConfig surface spec.md §6 assigns to the
// orchestrator: split/selection tuning plus which protocols to search.
type Config struct {
	MaxSwapsPerPath int
	Protocols       []domain.Protocol // defaults to {V2, V3, Stable, Mixed} if empty
	Selector        selector.Config
	Splitter        splitter.Config
	GasToken        *common.Address
}

func DefaultConfig() Config {
	return Config{
		MaxSwapsPerPath: 3,
		Protocols:       []domain.Protocol{domain.ProtocolV2, domain.ProtocolV3, domain.ProtocolStable, domain.ProtocolMixed},
		Selector:        selector.NewConfig(),
		Splitter:        splitter.DefaultConfig(),
	}
}

// Request is one swap quote request (spec.md §4.10 step 1's inputs).
type Request struct {
	ChainID   int64
	TokenIn   common.Address
	TokenOut  common.Address
	Amount    *big.Int
	TradeType domain.TradeType
}

// Router wires C2-C9 together behind Route, the orchestrator's single
// entry point.
type Router struct {
	tokenProvider         tokenprovider.Provider
	v3Provider            poolprovider.V3Provider
	v2Provider            poolprovider.V2Provider
	stableProvider        poolprovider.StableProvider
	stableWrapperProvider StableWrapperProvider
	selector              Selector
	quoter                quoter.Quoter
	gasCfg                gasmodel.Config
	gasPriceFunc          func(ctx context.Context) (*big.Int, error)
	l1FeeProvider         L1FeeProvider
	calldata              CallDataBuilder
	cfg                   Config
	logger                *zap.Logger
}

func New(
	tokenProvider tokenprovider.Provider,
	v3Provider poolprovider.V3Provider,
	v2Provider poolprovider.V2Provider,
	stableProvider poolprovider.StableProvider,
	stableWrapperProvider StableWrapperProvider,
	sel Selector,
	q quoter.Quoter,
	gasCfg gasmodel.Config,
	gasPriceFunc func(ctx context.Context) (*big.Int, error),
	l1FeeProvider L1FeeProvider,
	calldata CallDataBuilder,
	cfg Config,
	logger *zap.Logger,
) *Router {
	if len(cfg.Protocols) == 0 {
		cfg.Protocols = DefaultConfig().Protocols
	}
	return &Router{
		tokenProvider:         tokenProvider,
		v3Provider:            v3Provider,
		v2Provider:            v2Provider,
		stableProvider:        stableProvider,
		stableWrapperProvider: stableWrapperProvider,
		selector:              sel,
		quoter:                q,
		gasCfg:                gasCfg,
		gasPriceFunc:          gasPriceFunc,
		l1FeeProvider:         l1FeeProvider,
		calldata:              calldata,
		cfg:                   cfg,
		logger:                logger,
	}
}

// Route runs the full pipeline for one request and returns the winning
// plan (spec.md §4.10 pseudosteps 1-9). On cancellation or deadline expiry
// (spec.md §5 "Cancellation"), outstanding RPC tasks are abandoned (errgroup
// propagates the cancellation to every in-flight goroutine) and Route
// returns domain.ErrTimeout rather than whatever partial error the
// underlying RPC calls surfaced.
func (r *Router) Route(ctx context.Context, req Request) (*domain.Plan, error) {
	plan, err := r.route(ctx, req)
	if err != nil && (errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || ctx.Err() != nil) {
		return nil, fmt.Errorf("%w: %v", domain.ErrTimeout, err)
	}
	return plan, err
}

func (r *Router) route(ctx context.Context, req Request) (*domain.Plan, error) {
	c, ok := chain.Get(req.ChainID)
	if !ok {
		return nil, domain.ErrUnsupportedChain
	}
	if req.TokenIn == req.TokenOut {
		return nil, fmt.Errorf("%w: tokenIn equals tokenOut", domain.ErrInvalidInput)
	}
	if req.Amount == nil || req.Amount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", domain.ErrInvalidInput)
	}

	// Step 2: normalize - wrap native currency at either end for internal
	// math, remembering the wrap/unwrap flags for step 8.
	wrapsInput := req.TokenIn == domain.NativeAddress
	unwrapsOutput := req.TokenOut == domain.NativeAddress
	tokenInAddr := req.TokenIn
	if wrapsInput {
		tokenInAddr = c.WrappedNative.Address
	}
	tokenOutAddr := req.TokenOut
	if unwrapsOutput {
		tokenOutAddr = c.WrappedNative.Address
	}

	resolved, err := r.tokenProvider.Resolve(ctx, req.ChainID, []common.Address{tokenInAddr, tokenOutAddr})
	if err != nil {
		return nil, fmt.Errorf("router: resolve tokenIn/tokenOut: %w", err)
	}
	tokenIn, ok := resolved[tokenInAddr]
	if !ok {
		return nil, fmt.Errorf("%w: could not resolve tokenIn metadata", domain.ErrInvalidInput)
	}
	tokenOut, ok := resolved[tokenOutAddr]
	if !ok {
		return nil, fmt.Errorf("%w: could not resolve tokenOut metadata", domain.ErrInvalidInput)
	}

	// Step 3: load candidate pools for every enabled protocol concurrently.
	descriptorsByProtocol, err := r.selectCandidates(ctx, c.ID, tokenIn, tokenOut, req.TradeType)
	if err != nil {
		return nil, err
	}
	pools, err := r.loadPools(ctx, int64(c.ID), descriptorsByProtocol)
	if err != nil {
		return nil, err
	}
	if len(pools) == 0 {
		return nil, domain.ErrNoRouteFound
	}

	// Step 4: enumerate routes per protocol; short-circuit empty protocols.
	var allRoutes []domain.Route
	for _, protocol := range r.cfg.Protocols {
		if len(descriptorsByProtocol[protocol]) == 0 {
			continue
		}
		routes := enumerator.Enumerate(pools, tokenIn, tokenOut, r.cfg.MaxSwapsPerPath, protocol)
		allRoutes = append(allRoutes, routes...)
	}
	if len(allRoutes) == 0 {
		return nil, domain.ErrNoRouteFound
	}

	// Step 5: construct the gas model, including reference pools.
	gasModel, err := r.buildGasModel(ctx, c, tokenIn, tokenOut)
	if err != nil {
		return nil, fmt.Errorf("router: build gas model: %w", err)
	}

	amountCurrency := tokenIn
	if req.TradeType == domain.ExactOutput {
		amountCurrency = tokenOut
	}
	amount := domain.NewAmountFromBigInt(amountCurrency, req.Amount)

	// Step 6: fetch quotes for every route across every fraction step,
	// gas-adjust, then run the split optimizer over the combined pool of
	// RouteWithQuotes (merging is order-independent, spec.md §5).
	percents := percentSteps(r.cfg.Splitter.DistributionPercent)
	routeQuotes, err := r.quoter.Quote(ctx, allRoutes, amount, req.TradeType, percents)
	if err != nil {
		return nil, fmt.Errorf("router: quote routes: %w", err)
	}

	withQuotes := buildRouteWithQuotes(routeQuotes, gasModel)
	if len(withQuotes) == 0 {
		return nil, domain.ErrNoRouteFound
	}

	plan, err := splitter.Optimize(withQuotes, req.TradeType, r.cfg.Splitter)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrNoRouteFound, err)
	}

	// Step 7: L1 data fee correction on rollup chains.
	if c.HasL1Fee && r.l1FeeProvider != nil {
		r.applyL1FeeCorrection(ctx, plan, gasModel)
	}

	// Step 8: translate back to native-currency-aware form.
	plan.WrapsInput = wrapsInput
	plan.UnwrapsOutput = unwrapsOutput

	if r.calldata != nil {
		callData, err := r.calldata.Build(ctx, plan, req.TokenIn, req.TokenOut, wrapsInput, unwrapsOutput)
		if err != nil {
			r.logger.Info("router: calldata build failed, returning plan without call data", zap.Error(err))
		} else {
			plan.CallData = callData
		}
	}

	return plan, nil
}

// selectCandidates runs C5 for every enabled protocol concurrently.
func (r *Router) selectCandidates(ctx context.Context, chainID chain.ID, tokenIn, tokenOut domain.Currency, tradeType domain.TradeType) (map[domain.Protocol][]subgraph.PoolDescriptor, error) {
	out := make(map[domain.Protocol][]subgraph.PoolDescriptor, len(r.cfg.Protocols))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, protocol := range r.cfg.Protocols {
		protocol := protocol
		g.Go(func() error {
			descs, err := r.selector.Select(gctx, int64(chainID), tokenIn, tokenOut, tradeType, protocol)
			if err != nil {
				return fmt.Errorf("router: select candidates for %s: %w", protocol, err)
			}
			mu.Lock()
			out[protocol] = descs
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func percentSteps(distributionPercent int) []int {
	if distributionPercent <= 0 {
		distributionPercent = 10
	}
	var percents []int
	for p := distributionPercent; p <= 100; p += distributionPercent {
		percents = append(percents, p)
	}
	return percents
}

// buildRouteWithQuotes flattens every route's per-fraction quotes into the
// splitter's input shape, applying the gas model to each and dropping
// fractions the quoter couldn't simulate (spec.md §4.7 "skipped, not
// fatal").
func buildRouteWithQuotes(routeQuotes []quoter.RouteQuotes, gasModel *gasmodel.Model) []domain.RouteWithQuote {
	var out []domain.RouteWithQuote
	for _, rq := range routeQuotes {
		for _, aq := range rq.Quotes {
			if aq.Quote == nil {
				continue
			}
			estimate := gasModel.EstimateRoute(rq.Route, aq.InitializedTicksCrossed)
			out = append(out, domain.RouteWithQuote{
				Route:                   rq.Route,
				Percent:                 aq.Percent,
				Amount:                  aq.AmountIn,
				Quote:                   *aq.Quote,
				GasEstimate:             estimate.GasUseEstimate,
				GasCostInQuoteToken:     estimate.CostInQuoteToken,
				GasCostInUSD:            estimate.CostInUSD,
				GasCostInGasToken:       estimate.CostInGasToken,
				SqrtPriceAfterX96:       aq.SqrtPriceAfterX96,
				InitializedTicksCrossed: aq.InitializedTicksCrossed,
			})
		}
	}
	return out
}
