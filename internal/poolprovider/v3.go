package poolprovider

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"dex-aggregator/internal/domain"
	"dex-aggregator/internal/multicall"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

// uniswapV3FactoryInitCodeHash is the canonical Uniswap V3 pool init code
// hash, used to derive a pool's CREATE2 address from (factory, token0,
// token1, fee) without needing the subgraph to have indexed it yet
// (spec.md §4.2 "unknown pools can be probed optimistically").
var uniswapV3FactoryInitCodeHash = common.HexToHash("0xe34f199b19b2b4f47f68442619d555527d244f78a3297ea89325f843f87b8b54")

const v3PoolABIJSON = `[
	{"inputs":[],"name":"slot0","outputs":[
		{"internalType":"uint160","name":"sqrtPriceX96","type":"uint160"},
		{"internalType":"int24","name":"tick","type":"int24"},
		{"internalType":"uint16","name":"observationIndex","type":"uint16"},
		{"internalType":"uint16","name":"observationCardinality","type":"uint16"},
		{"internalType":"uint16","name":"observationCardinalityNext","type":"uint16"},
		{"internalType":"uint8","name":"feeProtocol","type":"uint8"},
		{"internalType":"bool","name":"unlocked","type":"bool"}
	],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"liquidity","outputs":[{"internalType":"uint128","name":"","type":"uint128"}],"stateMutability":"view","type":"function"}
]`

// V3OnChainProvider is the concrete V3 pool metadata provider (C2),
// grounded on the multicall-batched "probe every candidate address"
// pattern from the retrieved Slinky Uniswap V3 price fetcher.
type V3OnChainProvider struct {
	mc      *multicall.Client
	factory common.Address
	abi     abi.ABI
	logger  *zap.Logger
}

func NewV3OnChainProvider(mc *multicall.Client, factory common.Address, logger *zap.Logger) (*V3OnChainProvider, error) {
	parsed, err := abi.JSON(strings.NewReader(v3PoolABIJSON))
	if err != nil {
		return nil, fmt.Errorf("poolprovider: parse v3 pool abi: %w", err)
	}
	return &V3OnChainProvider{mc: mc, factory: factory, abi: parsed, logger: logger}, nil
}

// DeriveV3Address computes the CREATE2 pool address for (factory, token0,
// token1, fee), used both to fetch a known pool and to probe an
// optimistic synthetic descriptor (§4.5 topByDirectSwapPool).
func DeriveV3Address(factory common.Address, token0, token1 common.Address, fee domain.FeeTier) common.Address {
	addrType, _ := abi.NewType("address", "", nil)
	uint24Type, _ := abi.NewType("uint24", "", nil)
	args := abi.Arguments{{Type: addrType}, {Type: addrType}, {Type: uint24Type}}
	salt, err := args.Pack(token0, token1, big.NewInt(int64(fee)))
	if err != nil {
		return common.Address{}
	}
	saltHash := crypto.Keccak256Hash(salt)

	payload := make([]byte, 0, 1+20+32+32)
	payload = append(payload, 0xff)
	payload = append(payload, factory.Bytes()...)
	payload = append(payload, saltHash.Bytes()...)
	payload = append(payload, uniswapV3FactoryInitCodeHash.Bytes()...)
	return common.BytesToAddress(crypto.Keccak256(payload)[12:])
}

func (p *V3OnChainProvider) GetV3Pools(ctx context.Context, keys []V3Key, blockTag string) (map[common.Address]*domain.V3Pool, error) {
	if len(keys) == 0 {
		return map[common.Address]*domain.V3Pool{}, nil
	}

	addrs := make([]common.Address, len(keys))
	for i, k := range keys {
		t0, t1 := orderTokens(k.Token0.Address, k.Token1.Address)
		addrs[i] = DeriveV3Address(p.factory, t0, t1, k.Fee)
	}

	slot0Method := p.abi.Methods["slot0"]
	liquidityMethod := p.abi.Methods["liquidity"]

	slot0Results, err := p.mc.SameFunctionManyContracts(ctx, addrs, &slot0Method, nil, blockTag)
	if err != nil {
		return nil, fmt.Errorf("poolprovider: v3 slot0 batch: %w", err)
	}
	liqResults, err := p.mc.SameFunctionManyContracts(ctx, addrs, &liquidityMethod, nil, blockTag)
	if err != nil {
		return nil, fmt.Errorf("poolprovider: v3 liquidity batch: %w", err)
	}

	out := make(map[common.Address]*domain.V3Pool, len(keys))
	for i, key := range keys {
		slot0Res, liqRes := slot0Results[i], liqResults[i]
		if !slot0Res.Success || !liqRes.Success {
			p.logger.Info("poolprovider: dropping v3 pool, metadata call failed",
				zap.String("address", addrs[i].Hex()))
			continue
		}

		slot0Values, err := slot0Method.Outputs.Unpack(slot0Res.Return)
		if err != nil || len(slot0Values) < 2 {
			p.logger.Info("poolprovider: dropping v3 pool, slot0 unpack failed", zap.Error(err))
			continue
		}
		liqValues, err := liquidityMethod.Outputs.Unpack(liqRes.Return)
		if err != nil || len(liqValues) < 1 {
			p.logger.Info("poolprovider: dropping v3 pool, liquidity unpack failed", zap.Error(err))
			continue
		}

		sqrtPrice, _ := slot0Values[0].(*big.Int)
		tick, _ := slot0Values[1].(*big.Int)
		liquidity, _ := liqValues[0].(*big.Int)
		if sqrtPrice == nil || sqrtPrice.Sign() == 0 {
			continue // uninitialized pool, drop silently
		}

		t0, t1 := key.Token0, key.Token1
		if strings.ToLower(t0.Address.Hex()) > strings.ToLower(t1.Address.Hex()) {
			t0, t1 = t1, t0
		}

		out[addrs[i]] = &domain.V3Pool{
			Token0:       t0,
			Token1:       t1,
			Fee:          key.Fee,
			Liquidity:    liquidity,
			SqrtPriceX96: sqrtPrice,
			Tick:         int32(tick.Int64()),
			PoolAddress:  addrs[i],
			Chain:        t0.ChainID,
		}
	}
	return out, nil
}

func orderTokens(a, b common.Address) (common.Address, common.Address) {
	if strings.ToLower(a.Hex()) < strings.ToLower(b.Hex()) {
		return a, b
	}
	return b, a
}
