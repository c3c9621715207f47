// Package poolprovider implements C2: given a list of pool identifiers per
// protocol, fetch on-chain pool state through the multicall transport (C1)
// and return an accessor keyed by address (V2/V3/StableWrapper) or pool-id
// (Stable). Any pool whose metadata call fails is dropped, never fatal
// (spec.md §4.2, §7). Callers resolve token metadata (C4) before calling
// in, so every key already carries fully-formed domain.Currency values.
package poolprovider

import (
	"context"
	"strconv"

	"dex-aggregator/internal/domain"

	"github.com/ethereum/go-ethereum/common"
)

// V3Key identifies a V3 pool by its three immutable constructor params -
// the pool address is deterministically derivable from these plus the
// factory (spec.md §4.2), so unknown pools can be probed optimistically.
type V3Key struct {
	Token0 domain.Currency
	Token1 domain.Currency
	Fee    domain.FeeTier
}

// V2Key identifies a V2 pool by its token pair.
type V2Key struct {
	Token0 domain.Currency
	Token1 domain.Currency
}

// StableKey identifies a stable pool by its 32-byte pool id, the full
// token list the subgraph reported for it, and an optional wrapper vault
// token (spec.md §3 "StableWrapper").
type StableKey struct {
	ID      [32]byte
	Tokens  []domain.Currency
	Wrapper *domain.Currency
}

// V3Provider fetches slot0/liquidity/tokens for a set of V3 pool keys.
type V3Provider interface {
	GetV3Pools(ctx context.Context, keys []V3Key, blockTag string) (map[common.Address]*domain.V3Pool, error)
}

// V2Provider fetches reserves for a set of V2 pool keys.
type V2Provider interface {
	GetV2Pools(ctx context.Context, keys []V2Key, blockTag string) (map[common.Address]*domain.V2Pool, error)
}

// StableProvider fetches balances, scaling factors, amplification and swap
// fee for a set of stable pool keys, recording the key's wrapper vault token
// on the returned StablePool when one was supplied. The StableWrapperPool
// view itself is built separately by StableWrapperProvider.
type StableProvider interface {
	GetStablePools(ctx context.Context, keys []StableKey, blockTag string) (map[[32]byte]*domain.StablePool, error)
}

// cacheKey renders a stable map key for the caching wrapper (§4.2
// "Keys: pool-{chain}-{key}[-{block}]").
func cacheKey(prefix string, chain int64, id string, blockTag string) string {
	key := prefix + "-" + strconv.FormatInt(chain, 10) + "-" + id
	if blockTag != "" && blockTag != "latest" {
		key += "-" + blockTag
	}
	return key
}
