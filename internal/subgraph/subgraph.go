// Package subgraph implements C3: listing candidate pool descriptors per
// protocol for a token pair or base-token universe, the input the pool
// metadata provider (C2) and candidate selector (C5) build on. A
// descriptor only carries identity - token pair/fee/pool-id - never live
// reserves, since those go stale the moment the subgraph's indexer falls
// behind chain head (spec.md §4.3).
package subgraph

import (
	"context"

	"dex-aggregator/internal/domain"
)

// PoolDescriptor is protocol-tagged pool identity plus the TVL estimate
// the selector sorts by (spec.md §4.5 topByTVL*).
type PoolDescriptor struct {
	Protocol   domain.Protocol
	Token0     domain.Currency
	Token1     domain.Currency
	Fee        domain.FeeTier      // V3 only
	PoolID     [32]byte            // Stable/StableWrapper only
	Tokens     []domain.Currency   // Stable/StableWrapper only, full token list
	Wrapper    *domain.Currency    // StableWrapper only
	TVLUSD     float64             // the one float64 permitted outside display accounting (§9)
}

// Provider lists candidate pools for a token pair (direct-swap candidates)
// or for the whole chain (base-token/TVL-ranked candidates).
type Provider interface {
	PoolsForPair(ctx context.Context, chainID int64, tokenA, tokenB domain.Currency) ([]PoolDescriptor, error)
	TopPoolsByTVL(ctx context.Context, chainID int64, limit int) ([]PoolDescriptor, error)
	PoolsInvolving(ctx context.Context, chainID int64, token domain.Currency, limit int) ([]PoolDescriptor, error)
}
