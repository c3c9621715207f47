package subgraph

import (
	"context"
	"sort"

	"dex-aggregator/internal/domain"
)

// StaticProvider serves a fixed, hand-seeded pool universe, generalized
// from the teacher's MockPoolCollector major-pairs table. Used for local
// development and as the innermost fallback when neither the remote
// subgraph nor a URI-hosted snapshot is reachable.
type StaticProvider struct {
	pools []PoolDescriptor
}

func NewStaticProvider(pools []PoolDescriptor) *StaticProvider {
	return &StaticProvider{pools: pools}
}

func (s *StaticProvider) PoolsForPair(ctx context.Context, chainID int64, tokenA, tokenB domain.Currency) ([]PoolDescriptor, error) {
	var out []PoolDescriptor
	for _, p := range s.pools {
		if !involvesPair(p, chainID, tokenA, tokenB) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *StaticProvider) TopPoolsByTVL(ctx context.Context, chainID int64, limit int) ([]PoolDescriptor, error) {
	var out []PoolDescriptor
	for _, p := range s.pools {
		if p.Token0.ChainID != chainID && (len(p.Tokens) == 0 || p.Tokens[0].ChainID != chainID) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TVLUSD > out[j].TVLUSD })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *StaticProvider) PoolsInvolving(ctx context.Context, chainID int64, token domain.Currency, limit int) ([]PoolDescriptor, error) {
	var out []PoolDescriptor
	for _, p := range s.pools {
		if !descriptorInvolves(p, token) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TVLUSD > out[j].TVLUSD })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func descriptorInvolves(p PoolDescriptor, token domain.Currency) bool {
	if len(p.Tokens) > 0 {
		for _, t := range p.Tokens {
			if t.Equal(token) {
				return true
			}
		}
		return false
	}
	return p.Token0.Equal(token) || p.Token1.Equal(token)
}

func involvesPair(p PoolDescriptor, chainID int64, a, b domain.Currency) bool {
	if len(p.Tokens) > 0 {
		return p.Tokens[0].ChainID == chainID && descriptorInvolves(p, a) && descriptorInvolves(p, b)
	}
	return p.Token0.ChainID == chainID &&
		((p.Token0.Equal(a) && p.Token1.Equal(b)) || (p.Token0.Equal(b) && p.Token1.Equal(a)))
}
