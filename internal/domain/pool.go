package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Protocol tags a Pool or Route by the AMM design it belongs to.
type Protocol int

const (
	ProtocolV2 Protocol = iota
	ProtocolV3
	ProtocolStable
	ProtocolStableWrapper
	ProtocolMixed
)

func (p Protocol) String() string {
	switch p {
	case ProtocolV2:
		return "V2"
	case ProtocolV3:
		return "V3"
	case ProtocolStable:
		return "Stable"
	case ProtocolStableWrapper:
		return "StableWrapper"
	case ProtocolMixed:
		return "Mixed"
	default:
		return "Unknown"
	}
}

// FeeTier is a V3 concentrated-liquidity fee level, expressed in hundredths
// of a basis point (the on-chain convention: 3000 == 0.30%).
type FeeTier uint32

const (
	FeeLowest FeeTier = 100
	FeeLow    FeeTier = 500
	FeeMedium FeeTier = 3000
	FeeHigh   FeeTier = 10000
)

// AllFeeTiers is iterated by the candidate selector (§4.5) when it injects
// optimistic synthetic pool descriptors for a direct-swap bucket that came
// back empty from the subgraph.
var AllFeeTiers = []FeeTier{FeeLowest, FeeLow, FeeMedium, FeeHigh}

// Pool is the uniform capability set every pool variant exposes (design
// note "dynamic dispatch on pools"): a tagged union dispatched by Go type
// switch, not reflection.
type Pool interface {
	Tokens() [2]Currency
	Involves(c Currency) bool
	Other(c Currency) (Currency, bool)
	Address() common.Address
	Protocol() Protocol
	ChainID() int64
}

func involves(tokens [2]Currency, c Currency) bool {
	return tokens[0].Equal(c) || tokens[1].Equal(c)
}

func other(tokens [2]Currency, c Currency) (Currency, bool) {
	switch {
	case tokens[0].Equal(c):
		return tokens[1], true
	case tokens[1].Equal(c):
		return tokens[0], true
	default:
		return Currency{}, false
	}
}

// V3Pool is a concentrated-liquidity pool: tokens, fee tier, current
// liquidity. Invariant: Token0.Address < Token1.Address lexicographically.
type V3Pool struct {
	Token0        Currency
	Token1        Currency
	Fee           FeeTier
	Liquidity     *big.Int
	SqrtPriceX96  *big.Int
	Tick          int32
	PoolAddress   common.Address
	Chain         int64
}

func (p *V3Pool) Tokens() [2]Currency { return [2]Currency{p.Token0, p.Token1} }
func (p *V3Pool) Involves(c Currency) bool { return involves(p.Tokens(), c) }
func (p *V3Pool) Other(c Currency) (Currency, bool) { return other(p.Tokens(), c) }
func (p *V3Pool) Address() common.Address { return p.PoolAddress }
func (p *V3Pool) Protocol() Protocol { return ProtocolV3 }
func (p *V3Pool) ChainID() int64 { return p.Chain }

// V2Pool is a constant-product pool: tokens, reserves. Invariant: Token0 <
// Token1 lexicographically.
type V2Pool struct {
	Token0      Currency
	Token1      Currency
	Reserve0    *big.Int
	Reserve1    *big.Int
	PoolAddress common.Address
	Chain       int64
}

func (p *V2Pool) Tokens() [2]Currency { return [2]Currency{p.Token0, p.Token1} }
func (p *V2Pool) Involves(c Currency) bool { return involves(p.Tokens(), c) }
func (p *V2Pool) Other(c Currency) (Currency, bool) { return other(p.Tokens(), c) }
func (p *V2Pool) Address() common.Address { return p.PoolAddress }
func (p *V2Pool) Protocol() Protocol { return ProtocolV2 }
func (p *V2Pool) ChainID() int64 { return p.Chain }

// ReservesFor returns (reserveIn, reserveOut) for a swap starting at tokenIn.
func (p *V2Pool) ReservesFor(tokenIn Currency) (in, out *big.Int, ok bool) {
	switch {
	case p.Token0.Equal(tokenIn):
		return p.Reserve0, p.Reserve1, true
	case p.Token1.Equal(tokenIn):
		return p.Reserve1, p.Reserve0, true
	default:
		return nil, nil, false
	}
}

// StablePool is a Curve/Balancer-style stable pool: identified by a 32-byte
// pool id (not an address - the first 20 bytes of the id are conventionally
// the pool contract address, mirrored in Address()), an ordered token list,
// amplification parameter, swap fee, total shares, and per-token balances
// and scaling factors.
type StablePool struct {
	ID                [32]byte
	TokensList        []Currency
	Amplification     *big.Int
	SwapFeeBps        *big.Int
	TotalShares       *big.Int
	Balances          []*big.Int
	ScalingFactors    []*big.Int
	Wrapper           *Currency // optional StableWrapper share/vault pairing, see §4.5
	Chain             int64
}

// PoolID returns the canonical stable-pool identity used by the enumerator
// (§4.6 "mixed-route equivalence by pool-id") to collapse the same pool
// enumerated under different token-pair projections.
func (p *StablePool) PoolID() [32]byte { return p.ID }

func (p *StablePool) Tokens() [2]Currency {
	// Stable pools may have >2 tokens; callers that need the full set use
	// TokensList. Tokens() here exists only to satisfy the uniform
	// capability set for two-token consumers (e.g. V2/V3-style gas
	// hop counting); it returns the first and last listed token.
	if len(p.TokensList) == 0 {
		return [2]Currency{}
	}
	return [2]Currency{p.TokensList[0], p.TokensList[len(p.TokensList)-1]}
}

func (p *StablePool) Involves(c Currency) bool {
	for _, t := range p.TokensList {
		if t.Equal(c) {
			return true
		}
	}
	return false
}

func (p *StablePool) Other(c Currency) (Currency, bool) {
	if !p.Involves(c) {
		return Currency{}, false
	}
	for _, t := range p.TokensList {
		if !t.Equal(c) {
			return t, true
		}
	}
	return Currency{}, false
}

func (p *StablePool) Address() common.Address {
	return common.BytesToAddress(p.ID[:20])
}
func (p *StablePool) Protocol() Protocol { return ProtocolStable }
func (p *StablePool) ChainID() int64     { return p.Chain }

// BalanceOf returns the pool balance and scaling factor for one of its
// tokens, used by the stable-swap math and gas model.
func (p *StablePool) BalanceOf(c Currency) (balance, scalingFactor *big.Int, ok bool) {
	for i, t := range p.TokensList {
		if t.Equal(c) {
			return p.Balances[i], p.ScalingFactors[i], true
		}
	}
	return nil, nil, false
}

// StableWrapperPool pairs an underlying stable-pool share token with a
// "vault" token and a share/asset conversion rate (e.g. a yield-bearing
// wrapper around a stable pool's LP token).
type StableWrapperPool struct {
	Underlying *StablePool
	ShareToken Currency
	VaultToken Currency
	RateNum    *big.Int // vault = share * RateNum / RateDenom
	RateDenom  *big.Int
	Chain      int64
}

func (p *StableWrapperPool) Tokens() [2]Currency {
	return [2]Currency{p.ShareToken, p.VaultToken}
}
func (p *StableWrapperPool) Involves(c Currency) bool { return involves(p.Tokens(), c) }
func (p *StableWrapperPool) Other(c Currency) (Currency, bool) { return other(p.Tokens(), c) }
func (p *StableWrapperPool) Address() common.Address {
	return common.BytesToAddress(p.Underlying.ID[:20])
}
func (p *StableWrapperPool) Protocol() Protocol { return ProtocolStableWrapper }
func (p *StableWrapperPool) ChainID() int64     { return p.Chain }

// PoolIdentity returns a string uniquely identifying a pool for "no pool
// appears twice in one path" checks during enumeration (§4.6): pool
// address for V2/V3/StableWrapper, pool-id for Stable (so a stable pool is
// recognized as itself regardless of which token-pair projection the
// enumerator is exploring it through).
func PoolIdentity(p Pool) string {
	if sp, ok := p.(*StablePool); ok {
		return "stable:" + common.Bytes2Hex(sp.ID[:])
	}
	return "addr:" + p.Address().Hex()
}
