// Package gasmodel implements C8: a heuristic per-route gas cost model,
// generalized from the teacher's Router.estimateGasCost (which priced a
// hop by a fixed per-exchange constant) into a per-protocol, per-chain
// base-plus-per-hop formula with V3 tick surcharges and Stable token
// overheads (spec.md §4.8).
package gasmodel

import (
	"math/big"

	"dex-aggregator/internal/domain"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// ChainCosts are the per-chain base/per-hop gas constants for one
// protocol family.
type ChainCosts struct {
	BaseSwapCost *big.Int
	CostPerHop   *big.Int
}

// Config is the full gas cost table plus the reference pools used to
// convert a native-currency gas cost into quote-token/USD/gas-token
// terms (spec.md §4.8 "Conversion uses the reference pool's mid price").
type Config struct {
	V3             map[int64]ChainCosts
	Stable         map[int64]ChainCosts
	StableWrapper  map[int64]ChainCosts
	CostPerInitTick *big.Int

	// TokenOverhead is an additive gas cost for specific tokens that do
	// extra work on transfer (e.g. governance snapshotting).
	TokenOverhead map[string]*big.Int

	AdditionalGasOverhead *big.Int
}

func DefaultConfig() Config {
	mk := func(base, perHop int64) ChainCosts {
		return ChainCosts{BaseSwapCost: big.NewInt(base), CostPerHop: big.NewInt(perHop)}
	}
	perChain := func(base, perHop int64) map[int64]ChainCosts {
		return map[int64]ChainCosts{
			1:         mk(base, perHop),
			11155111:  mk(base, perHop),
			10:        mk(base, perHop),
			42161:     mk(base, perHop),
		}
	}
	return Config{
		V3:                    perChain(130000, 60000),
		Stable:                perChain(150000, 70000),
		StableWrapper:         perChain(170000, 80000),
		CostPerInitTick:       big.NewInt(24000),
		TokenOverhead:         map[string]*big.Int{},
		AdditionalGasOverhead: big.NewInt(21000),
	}
}

// ReferencePools supplies the mid-price reference pools located during
// candidate selection (§4.5 topByEthQuoteTokenPool) that the gas model
// converts a native-currency cost through.
type ReferencePools struct {
	// USDPool is a high-TVL native/USD pool; nil if unavailable (gas cost
	// in USD is then left zero).
	USDPool *domain.V3Pool
	// NativeAndQuoteTokenPool converts native gas cost into quote-token
	// units; nil means no gas adjustment is applied to the route.
	NativeAndQuoteTokenPool *domain.V3Pool
	// NativeAndGasTokenPool converts into an optional explicit gas token;
	// nil when the gas token is simply the native wrapper or unset.
	NativeAndGasTokenPool *domain.V3Pool
}

// Estimate is one route's gas cost estimate in every unit the orchestrator
// needs downstream.
type Estimate struct {
	GasUseEstimate     *big.Int
	CostInQuoteToken   decimal.Decimal
	CostInUSD          decimal.Decimal
	CostInGasToken     *decimal.Decimal
}

// Model computes per-route gas estimates given the route's pool protocol
// composition and, for V3 hops, the ticks-crossed reported by the quoter.
type Model struct {
	cfg        Config
	chainID    int64
	gasPrice   *big.Int // wei
	refPools   ReferencePools
	nativeAddr common.Address
}

// New builds a gas model for one request. nativeAddr is the chain's
// wrapped-native token address, used to orient the reference pools'
// token0/token1 price against whichever side actually holds native
// (pool providers sort token0/token1 by raw address, independent of
// which side is native - see poolprovider.V3OnChainProvider).
func New(cfg Config, chainID int64, gasPriceWei *big.Int, refPools ReferencePools, nativeAddr common.Address) *Model {
	return &Model{cfg: cfg, chainID: chainID, gasPrice: gasPriceWei, refPools: refPools, nativeAddr: nativeAddr}
}

// EstimateRoute computes the gas cost for one route. initializedTicksCrossed
// is indexed per-pool for V3 hops (zero for non-V3 hops) and comes from the
// quoter (C7)'s per-amount output.
func (m *Model) EstimateRoute(route domain.Route, initializedTicksCrossed []int) Estimate {
	gasUnits := big.NewInt(0)

	sections := partitionByProtocol(route.Pools)
	for _, section := range sections {
		gasUnits.Add(gasUnits, m.sectionCost(section, initializedTicksCrossed))
	}
	gasUnits.Add(gasUnits, m.cfg.AdditionalGasOverhead)

	for _, p := range route.Pools {
		for _, t := range p.Tokens() {
			if overhead, ok := m.cfg.TokenOverhead[t.Key()]; ok {
				gasUnits.Add(gasUnits, overhead)
			}
		}
	}

	nativeCostWei := new(big.Int).Mul(gasUnits, m.gasPrice)

	return Estimate{
		GasUseEstimate:   gasUnits,
		CostInQuoteToken: m.convert(nativeCostWei, m.refPools.NativeAndQuoteTokenPool),
		CostInUSD:        m.convert(nativeCostWei, m.refPools.USDPool),
		CostInGasToken:   m.convertOptional(nativeCostWei, m.refPools.NativeAndGasTokenPool),
	}
}

func (m *Model) sectionCost(section []domain.Pool, initializedTicksCrossed []int) *big.Int {
	if len(section) == 0 {
		return big.NewInt(0)
	}
	protocol := section[0].Protocol()
	hops := big.NewInt(int64(len(section)))

	var costs map[int64]ChainCosts
	switch protocol {
	case domain.ProtocolV3:
		costs = m.cfg.V3
	case domain.ProtocolStable:
		costs = m.cfg.Stable
	case domain.ProtocolStableWrapper:
		costs = m.cfg.StableWrapper
	default:
		costs = m.cfg.V3 // V2 shares the V3 base/hop table shape; tune via config if needed
	}

	chainCosts, ok := costs[m.chainID]
	if !ok {
		chainCosts = ChainCosts{BaseSwapCost: big.NewInt(0), CostPerHop: big.NewInt(0)}
	}

	total := new(big.Int).Set(chainCosts.BaseSwapCost)
	total.Add(total, new(big.Int).Mul(chainCosts.CostPerHop, hops))

	if protocol == domain.ProtocolV3 {
		ticksCost := big.NewInt(0)
		for _, ticks := range initializedTicksCrossed {
			ticksCost.Add(ticksCost, new(big.Int).Mul(m.cfg.CostPerInitTick, big.NewInt(int64(ticks))))
		}
		total.Add(total, ticksCost)
	}

	return total
}

// partitionByProtocol splits a route's pools into maximal same-protocol
// runs (§4.8 "Mixed: partition the route into maximal same-protocol
// sections").
func partitionByProtocol(pools []domain.Pool) [][]domain.Pool {
	var sections [][]domain.Pool
	var current []domain.Pool
	for _, p := range pools {
		if len(current) > 0 && current[len(current)-1].Protocol() != p.Protocol() {
			sections = append(sections, current)
			current = nil
		}
		current = append(current, p)
	}
	if len(current) > 0 {
		sections = append(sections, current)
	}
	return sections
}

// convert prices nativeCostWei through a reference pool's mid price (not a
// swap simulation, per §4.8). Returns zero if the reference pool is absent.
func (m *Model) convert(nativeCostWei *big.Int, ref *domain.V3Pool) decimal.Decimal {
	if ref == nil {
		return decimal.Zero
	}
	return midPriceConvert(nativeCostWei, ref, m.nativeAddr)
}

func (m *Model) convertOptional(nativeCostWei *big.Int, ref *domain.V3Pool) *decimal.Decimal {
	if ref == nil {
		return nil
	}
	v := midPriceConvert(nativeCostWei, ref, m.nativeAddr)
	return &v
}

// ConvertNativeWei exposes the same reference-pool mid-price conversion
// EstimateRoute uses internally, for correcting an already-computed gas
// estimate with an L1 data fee (spec.md §4.10 step 7) without recomputing
// the whole route.
func (m *Model) ConvertNativeWei(nativeCostWei *big.Int) Estimate {
	return Estimate{
		GasUseEstimate:   big.NewInt(0),
		CostInQuoteToken: m.convert(nativeCostWei, m.refPools.NativeAndQuoteTokenPool),
		CostInUSD:        m.convert(nativeCostWei, m.refPools.USDPool),
		CostInGasToken:   m.convertOptional(nativeCostWei, m.refPools.NativeAndGasTokenPool),
	}
}

// midPriceConvert derives the spot price from a V3 pool's sqrtPriceX96 and
// applies it to a wei-denominated native cost: price = (sqrtPriceX96 / 2^96)^2,
// expressed as token1-per-token0. poolprovider sorts Token0/Token1 by raw
// address, independent of which side is native (poolprovider/v3.go), so the
// conversion must check which side nativeAddr actually is and invert the
// price when native is Token1.
func midPriceConvert(amountWei *big.Int, ref *domain.V3Pool, nativeAddr common.Address) decimal.Decimal {
	if ref.SqrtPriceX96 == nil || ref.SqrtPriceX96.Sign() == 0 {
		return decimal.Zero
	}
	q96 := new(big.Float).SetInt(new(big.Int).Lsh(big.NewInt(1), 96))
	sqrtPrice := new(big.Float).SetInt(ref.SqrtPriceX96)
	ratio := new(big.Float).Quo(sqrtPrice, q96)
	price := new(big.Float).Mul(ratio, ratio)

	priceDec, _ := decimal.NewFromString(price.Text('f', 36))
	amountDec, _ := decimal.NewFromString(amountWei.String())

	if ref.Token1.Address == nativeAddr {
		if priceDec.IsZero() {
			return decimal.Zero
		}
		scale := decimal.New(1, int32(ref.Token1.Decimals))
		return amountDec.Div(scale).Div(priceDec)
	}

	scale := decimal.New(1, int32(ref.Token0.Decimals))
	return amountDec.Div(scale).Mul(priceDec)
}
