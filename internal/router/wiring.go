package router

import (
	"context"
	"fmt"
	"math/big"

	"dex-aggregator/internal/chain"
	"dex-aggregator/internal/domain"
	"dex-aggregator/internal/gasmodel"
	"dex-aggregator/internal/poolprovider"
	"dex-aggregator/internal/subgraph"

	"github.com/ethereum/go-ethereum/common"
)

// loadPools resolves every token address named by the selected descriptors
// and fetches on-chain state for the resulting V3/V2/Stable/StableWrapper
// keys (C2), returning one flat pool set the enumerator (C6) explores
// regardless of which top-level protocol(s) were requested - a Mixed
// request's descriptors already carry their real per-pool Protocol tag, so
// dispatching on that tag here naturally feeds V3 and Stable pools into a
// single combined set.
func (r *Router) loadPools(ctx context.Context, chainID int64, descriptorsByProtocol map[domain.Protocol][]subgraph.PoolDescriptor) ([]domain.Pool, error) {
	addrSet := map[common.Address]struct{}{}
	addAddr := func(c domain.Currency) { addrSet[c.Address] = struct{}{} }
	for _, descs := range descriptorsByProtocol {
		for _, d := range descs {
			addAddr(d.Token0)
			addAddr(d.Token1)
			for _, t := range d.Tokens {
				addAddr(t)
			}
			if d.Wrapper != nil {
				addAddr(*d.Wrapper)
			}
		}
	}
	addrs := make([]common.Address, 0, len(addrSet))
	for a := range addrSet {
		addrs = append(addrs, a)
	}
	if len(addrs) == 0 {
		return nil, nil
	}

	resolved, err := r.tokenProvider.Resolve(ctx, chainID, addrs)
	if err != nil {
		return nil, fmt.Errorf("router: resolve candidate pool tokens: %w", err)
	}
	resolve := func(c domain.Currency) domain.Currency {
		if r, ok := resolved[c.Address]; ok {
			return r
		}
		return c
	}

	v3Keys := map[string]poolprovider.V3Key{}
	v2Keys := map[string]poolprovider.V2Key{}
	stableKeys := map[[32]byte]poolprovider.StableKey{}

	for _, descs := range descriptorsByProtocol {
		for _, d := range descs {
			switch d.Protocol {
			case domain.ProtocolV3:
				k := poolprovider.V3Key{Token0: resolve(d.Token0), Token1: resolve(d.Token1), Fee: d.Fee}
				v3Keys[fmt.Sprintf("%s-%s-%d", k.Token0.Key(), k.Token1.Key(), k.Fee)] = k
			case domain.ProtocolV2:
				k := poolprovider.V2Key{Token0: resolve(d.Token0), Token1: resolve(d.Token1)}
				v2Keys[k.Token0.Key()+"-"+k.Token1.Key()] = k
			case domain.ProtocolStable, domain.ProtocolStableWrapper:
				tokens := make([]domain.Currency, len(d.Tokens))
				for i, t := range d.Tokens {
					tokens[i] = resolve(t)
				}
				var wrapper *domain.Currency
				if d.Wrapper != nil {
					w := resolve(*d.Wrapper)
					wrapper = &w
				}
				if existing, ok := stableKeys[d.PoolID]; ok && existing.Wrapper != nil {
					wrapper = existing.Wrapper
				}
				stableKeys[d.PoolID] = poolprovider.StableKey{ID: d.PoolID, Tokens: tokens, Wrapper: wrapper}
			}
		}
	}

	var pools []domain.Pool

	if len(v3Keys) > 0 && r.v3Provider != nil {
		keys := make([]poolprovider.V3Key, 0, len(v3Keys))
		for _, k := range v3Keys {
			keys = append(keys, k)
		}
		result, err := r.v3Provider.GetV3Pools(ctx, keys, "latest")
		if err != nil {
			return nil, fmt.Errorf("router: load v3 pools: %w", err)
		}
		for _, p := range result {
			pools = append(pools, p)
		}
	}

	if len(v2Keys) > 0 && r.v2Provider != nil {
		keys := make([]poolprovider.V2Key, 0, len(v2Keys))
		for _, k := range v2Keys {
			keys = append(keys, k)
		}
		result, err := r.v2Provider.GetV2Pools(ctx, keys, "latest")
		if err != nil {
			return nil, fmt.Errorf("router: load v2 pools: %w", err)
		}
		for _, p := range result {
			pools = append(pools, p)
		}
	}

	if len(stableKeys) > 0 && r.stableProvider != nil {
		keys := make([]poolprovider.StableKey, 0, len(stableKeys))
		for _, k := range stableKeys {
			keys = append(keys, k)
		}
		stableResult, err := r.stableProvider.GetStablePools(ctx, keys, "latest")
		if err != nil {
			return nil, fmt.Errorf("router: load stable pools: %w", err)
		}
		for _, p := range stableResult {
			pools = append(pools, p)
		}

		if r.stableWrapperProvider != nil {
			wrapperResult, err := r.stableWrapperProvider.GetStableWrapperPools(ctx, stableResult, keys, "latest")
			if err != nil {
				return nil, fmt.Errorf("router: load stable wrapper pools: %w", err)
			}
			for _, p := range wrapperResult {
				pools = append(pools, p)
			}
		}
	}

	return pools, nil
}

// buildGasModel constructs the gas cost model (C8) for one request,
// locating the reference pools the conversion step needs by optimistically
// probing every V3 fee tier between the chain's wrapped native and the
// relevant quote/USD tokens (the same "derive address, probe on-chain"
// technique poolprovider.V3OnChainProvider uses for candidate pools).
func (r *Router) buildGasModel(ctx context.Context, c chain.Chain, tokenIn, tokenOut domain.Currency) (*gasmodel.Model, error) {
	gasPrice, err := r.gasPriceFunc(ctx)
	if err != nil {
		return nil, fmt.Errorf("router: fetch gas price: %w", err)
	}

	quoteToken := tokenOut
	refs := gasmodel.ReferencePools{}

	if !c.WrappedNative.Equal(quoteToken) {
		if pool, _ := r.resolveReferencePool(ctx, c.WrappedNative, quoteToken); pool != nil {
			refs.NativeAndQuoteTokenPool = pool
		}
	}
	if len(c.BaseTokens) > 0 {
		if pool, _ := r.resolveReferencePool(ctx, c.WrappedNative, c.BaseTokens[0]); pool != nil {
			refs.USDPool = pool
		}
	}
	if r.cfg.GasToken != nil {
		gasTokenCurrency := domain.Currency{ChainID: int64(c.ID), Address: *r.cfg.GasToken}
		if resolved, err := r.tokenProvider.Resolve(ctx, int64(c.ID), []common.Address{*r.cfg.GasToken}); err == nil {
			if rc, ok := resolved[*r.cfg.GasToken]; ok {
				gasTokenCurrency = rc
			}
		}
		if !c.WrappedNative.Equal(gasTokenCurrency) {
			if pool, _ := r.resolveReferencePool(ctx, c.WrappedNative, gasTokenCurrency); pool != nil {
				refs.NativeAndGasTokenPool = pool
			}
		}
	}

	return gasmodel.New(r.gasCfg, int64(c.ID), gasPrice, refs, c.WrappedNative.Address), nil
}

func (r *Router) resolveReferencePool(ctx context.Context, a, b domain.Currency) (*domain.V3Pool, error) {
	if r.v3Provider == nil {
		return nil, nil
	}
	keys := make([]poolprovider.V3Key, 0, len(domain.AllFeeTiers))
	for _, fee := range domain.AllFeeTiers {
		keys = append(keys, poolprovider.V3Key{Token0: a, Token1: b, Fee: fee})
	}
	result, err := r.v3Provider.GetV3Pools(ctx, keys, "latest")
	if err != nil || len(result) == 0 {
		return nil, err
	}
	var best *domain.V3Pool
	for _, p := range result {
		if best == nil || (p.Liquidity != nil && best.Liquidity != nil && p.Liquidity.Cmp(best.Liquidity) > 0) {
			best = p
		}
	}
	return best, nil
}

// applyL1FeeCorrection recomputes the winning plan's gas cost with an
// L1 data-publishing fee for rollup chains (spec.md §4.10 step 7). The
// downstream call-data SDK is out of scope, so the calldata size used here
// is an approximation (4-byte selector plus one 32-byte word per hop),
// not the real assembled transaction payload.
func (r *Router) applyL1FeeCorrection(ctx context.Context, plan *domain.Plan, gasModel *gasmodel.Model) {
	totalL1Wei := big.NewInt(0)
	for i, route := range plan.Routes {
		txData := approximateCallData(route.Route)
		l1Fee, err := r.l1FeeProvider.EstimateL1Fee(ctx, txData)
		if err != nil || l1Fee == nil {
			continue
		}
		totalL1Wei.Add(totalL1Wei, l1Fee)

		correction := gasModel.ConvertNativeWei(l1Fee)
		plan.Routes[i].GasCostInQuoteToken = plan.Routes[i].GasCostInQuoteToken.Add(correction.CostInQuoteToken)
		plan.Routes[i].GasCostInUSD = plan.Routes[i].GasCostInUSD.Add(correction.CostInUSD)
	}
	if totalL1Wei.Sign() == 0 {
		return
	}
	correction := gasModel.ConvertNativeWei(totalL1Wei)
	plan.GasCostInQuoteToken = plan.GasCostInQuoteToken.Add(correction.CostInQuoteToken)
	plan.GasCostInUSD = plan.GasCostInUSD.Add(correction.CostInUSD)
	plan.GasAdjustedAmount = plan.GasAdjustedAmount.Sub(correction.CostInQuoteToken)
}

func approximateCallData(route domain.Route) []byte {
	data := make([]byte, 4+32*len(route.Pools))
	return data
}
