package selector

import (
	"context"
	"sort"
	"strconv"

	"dex-aggregator/internal/chain"
	"dex-aggregator/internal/domain"
	"dex-aggregator/internal/subgraph"

	"github.com/ethereum/go-ethereum/common"
)

// Selector fills the priority-ordered buckets of §4.5 against a single
// subgraph.Provider, tracking a running selected-pool set so later
// buckets never re-add a pool an earlier bucket already picked.
type Selector struct {
	provider subgraph.Provider
	cfg      Config
}

func New(provider subgraph.Provider, cfg Config) *Selector {
	return &Selector{provider: provider, cfg: cfg}
}

// Select runs the full bucket sequence for one (tokenIn, tokenOut, protocol)
// request. For ProtocolMixed it unions the V3 and Stable candidate sets, as
// the design note in §4.5 requires.
func (s *Selector) Select(ctx context.Context, chainID int64, tokenIn, tokenOut domain.Currency, tradeType domain.TradeType, protocol domain.Protocol) ([]subgraph.PoolDescriptor, error) {
	if protocol == domain.ProtocolMixed {
		v3, err := s.selectForProtocol(ctx, chainID, tokenIn, tokenOut, tradeType, domain.ProtocolV3)
		if err != nil {
			return nil, err
		}
		stable, err := s.selectForProtocol(ctx, chainID, tokenIn, tokenOut, tradeType, domain.ProtocolStable)
		if err != nil {
			return nil, err
		}
		return union(v3, stable), nil
	}
	return s.selectForProtocol(ctx, chainID, tokenIn, tokenOut, tradeType, protocol)
}

func (s *Selector) selectForProtocol(ctx context.Context, chainID int64, tokenIn, tokenOut domain.Currency, tradeType domain.TradeType, protocol domain.Protocol) ([]subgraph.PoolDescriptor, error) {
	selected := map[string]subgraph.PoolDescriptor{}
	add := func(descs []subgraph.PoolDescriptor, limit int) int {
		added := 0
		for _, d := range descs {
			if added >= limit {
				break
			}
			if d.Protocol != protocol {
				continue
			}
			if s.isBlocked(d) {
				continue
			}
			id := descriptorIdentity(d)
			if _, ok := selected[id]; ok {
				continue
			}
			selected[id] = d
			added++
		}
		return added
	}

	c, ok := chain.Get(chainID)
	if !ok {
		return nil, domain.ErrUnsupportedChain
	}

	// topByBaseWithTokenIn / topByBaseWithTokenOut
	baseTotal := 0
	for _, base := range c.BaseTokens {
		if baseTotal >= s.cfg.TopNWithBaseToken {
			break
		}
		inPools, err := s.provider.PoolsForPair(ctx, chainID, tokenIn, base)
		if err != nil {
			return nil, err
		}
		baseTotal += add(sortByTVLThenID(inPools), min(s.cfg.TopNWithEachBaseToken, s.cfg.TopNWithBaseToken-baseTotal))

		outPools, err := s.provider.PoolsForPair(ctx, chainID, tokenOut, base)
		if err != nil {
			return nil, err
		}
		baseTotal += add(sortByTVLThenID(outPools), min(s.cfg.TopNWithEachBaseToken, s.cfg.TopNWithBaseToken-baseTotal))
	}

	// topByDirectSwapPool
	direct, err := s.provider.PoolsForPair(ctx, chainID, tokenIn, tokenOut)
	if err != nil {
		return nil, err
	}
	directAdded := add(sortByTVLThenID(direct), s.cfg.TopNDirectSwaps)
	if directAdded == 0 && (protocol == domain.ProtocolV2 || protocol == domain.ProtocolV3) {
		add(syntheticDirectPools(protocol, tokenIn, tokenOut), s.cfg.TopNDirectSwaps)
	}

	// topByEthQuoteTokenPool
	native := c.WrappedNative
	quoteSide := tokenOut
	if tradeType == domain.ExactOutput {
		quoteSide = tokenIn
	}
	if !quoteSide.Equal(native) {
		ethPools, err := s.provider.PoolsForPair(ctx, chainID, native, quoteSide)
		if err != nil {
			return nil, err
		}
		add(sortByTVLThenID(ethPools), 1)
	}

	// topByTVL
	tvlPools, err := s.provider.TopPoolsByTVL(ctx, chainID, s.cfg.TopN*4)
	if err != nil {
		return nil, err
	}
	add(tvlPools, s.cfg.TopN)

	// topByTVLUsingTokenIn / topByTVLUsingTokenOut
	inTVL, err := s.provider.PoolsInvolving(ctx, chainID, tokenIn, s.cfg.TopNTokenInOut*4)
	if err != nil {
		return nil, err
	}
	add(inTVL, s.cfg.TopNTokenInOut)

	outTVL, err := s.provider.PoolsInvolving(ctx, chainID, tokenOut, s.cfg.TopNTokenInOut*4)
	if err != nil {
		return nil, err
	}
	add(outTVL, s.cfg.TopNTokenInOut)

	// Second hops: expand from the "other token" exposed by the
	// tokenIn/tokenOut TVL buckets just filled.
	otherTokens := map[string]domain.Currency{}
	for _, d := range append(append([]subgraph.PoolDescriptor{}, inTVL...), outTVL...) {
		for _, t := range descriptorTokens(d) {
			if t.Equal(tokenIn) || t.Equal(tokenOut) {
				continue
			}
			otherTokens[t.Key()] = t
		}
	}
	for key, other := range otherTokens {
		if s.cfg.TokensToAvoidOnSecondHops[key] {
			continue
		}
		hopCap := s.cfg.secondHopCapFor(key)
		if hopCap <= 0 {
			continue
		}
		pools, err := s.provider.PoolsInvolving(ctx, chainID, other, hopCap*4)
		if err != nil {
			return nil, err
		}
		add(pools, hopCap)
	}

	out := make([]subgraph.PoolDescriptor, 0, len(selected))
	for _, d := range selected {
		out = append(out, d)
	}
	return out, nil
}

func (s *Selector) isBlocked(d subgraph.PoolDescriptor) bool {
	for _, t := range descriptorTokens(d) {
		if s.cfg.BlockedTokens[t.Key()] {
			return true
		}
	}
	return false
}

// descriptorTokens returns a descriptor's full token set, folding in the
// Stable pool's optional wrapper token as if it were part of the pool
// (§4.5 "additionally considers the pool's optional wrapper token").
func descriptorTokens(d subgraph.PoolDescriptor) []domain.Currency {
	var tokens []domain.Currency
	if len(d.Tokens) > 0 {
		tokens = append(tokens, d.Tokens...)
	} else {
		tokens = append(tokens, d.Token0, d.Token1)
	}
	if d.Wrapper != nil {
		tokens = append(tokens, *d.Wrapper)
	}
	return tokens
}

func descriptorIdentity(d subgraph.PoolDescriptor) string {
	if d.Protocol == domain.ProtocolStable || d.Protocol == domain.ProtocolStableWrapper {
		return "stable:" + common.Bytes2Hex(d.PoolID[:])
	}
	a, b := d.Token0.Key(), d.Token1.Key()
	if a > b {
		a, b = b, a
	}
	if d.Protocol == domain.ProtocolV3 {
		return "v3:" + a + ":" + b + ":" + strconv.FormatUint(uint64(d.Fee), 10)
	}
	return "v2:" + a + ":" + b
}

func syntheticDirectPools(protocol domain.Protocol, tokenIn, tokenOut domain.Currency) []subgraph.PoolDescriptor {
	if protocol == domain.ProtocolV2 {
		return []subgraph.PoolDescriptor{{Protocol: domain.ProtocolV2, Token0: tokenIn, Token1: tokenOut, TVLUSD: 0}}
	}
	out := make([]subgraph.PoolDescriptor, 0, len(domain.AllFeeTiers))
	for _, fee := range domain.AllFeeTiers {
		out = append(out, subgraph.PoolDescriptor{Protocol: domain.ProtocolV3, Token0: tokenIn, Token1: tokenOut, Fee: fee, TVLUSD: 0})
	}
	return out
}

// sortByTVLThenID applies §4.5's intra-bucket tie-break: TVL descending,
// then pool identity ascending.
func sortByTVLThenID(descs []subgraph.PoolDescriptor) []subgraph.PoolDescriptor {
	out := append([]subgraph.PoolDescriptor{}, descs...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].TVLUSD != out[j].TVLUSD {
			return out[i].TVLUSD > out[j].TVLUSD
		}
		return descriptorIdentity(out[i]) < descriptorIdentity(out[j])
	})
	return out
}

func union(a, b []subgraph.PoolDescriptor) []subgraph.PoolDescriptor {
	seen := map[string]bool{}
	out := make([]subgraph.PoolDescriptor, 0, len(a)+len(b))
	for _, d := range append(append([]subgraph.PoolDescriptor{}, a...), b...) {
		id := descriptorIdentity(d)
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, d)
	}
	return out
}
